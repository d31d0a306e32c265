package tasks

import (
	"fmt"

	"github.com/desertthunder/lyrebird/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadLibrary Phase = iota
	ResolveTracks
	ExportLibrary
)

func (p Phase) String() string {
	switch p {
	case LoadLibrary:
		return "load_library"
	case ResolveTracks:
		return "resolve_tracks"
	case ExportLibrary:
		return "export_library"
	default:
		return ""
	}
}

func loadLibraryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d saved tracks", count),
	}
}

func resolveStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    0,
		Total:   total,
		Message: "Resolving tracks...",
	}
}

func resolvedUpdate(step, total int, res ResolveResult) ProgressUpdate {
	if res.Error != nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Stub.Title(), res.Error),
			Data:    res,
		}
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.Track.Title(), res.Track.Bitrate),
		Data:    res,
	}
}

func exportingUpdate(format string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Exporting %d tracks as %s...", count, format),
	}
}

func coverUpdate(track models.TrackStub) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching cover for %s...", track.Title()),
	}
}

func exportedUpdate(files []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Export complete (%d files)", len(files)),
		Data:    files,
	}
}
