// package tasks implements long-running operations over the saved library.
//
// The core abstraction is LibraryEngine, which checks saved stubs against the catalog and exports them.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/lyrebird/internal/formatter"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// Resolver turns a track into a playable one. Satisfied by *resolver.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, track models.ResolvedTrack, bitrate models.Bitrate) (models.ResolvedTrack, error)
}

// StubLister lists saved stubs. Satisfied by *repositories.StubRepository.
type StubLister interface {
	List(criteria map[string]any) ([]*models.PersistedStub, error)
}

// LibraryEngine runs bulk operations over the saved library.
type LibraryEngine struct {
	resolver Resolver
	stubs    StubLister
	client   *http.Client
	logger   *log.Logger
}

// NewLibraryEngine creates a new LibraryEngine. client is used for cover downloads and may be nil.
func NewLibraryEngine(r Resolver, stubs StubLister, client *http.Client, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{resolver: r, stubs: stubs, client: client, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *LibraryEngine) load(criteria map[string]any) ([]models.TrackStub, error) {
	if e.stubs == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	saved, err := e.stubs.List(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return lo.Map(saved, func(p *models.PersistedStub, _ int) models.TrackStub { return p.Stub() }), nil
}

// Check resolves every saved stub matching criteria and reports which ones are still playable.
func (e *LibraryEngine) Check(ctx context.Context, progress chan<- ProgressUpdate, criteria map[string]any, opts BulkResolveOpts) (*BulkResolveResult, error) {
	stubs, err := e.load(criteria)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, loadLibraryUpdate(len(stubs)))
	return e.BulkResolve(ctx, progress, stubs, opts)
}

// ExportOpts configures [LibraryEngine.Export].
type ExportOpts struct {
	Format    string         // csv, markdown, txt or json (default)
	Path      string         // Output base path (csv), directory (markdown) or file (txt, json)
	Title     string         // Heading for the export (default: "Library")
	Criteria  map[string]any // Filters passed to the library listing
	WithCover bool           // Markdown only: resolve the first track and save its cover
	Bitrate   models.Bitrate // Bitrate used when resolving for the cover
}

// ExportResult lists the files written by an export.
type ExportResult struct {
	Format string
	Count  int
	Files  []string
}

// Export writes the saved library in the requested format.
func (e *LibraryEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	stubs, err := e.load(opts.Criteria)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, loadLibraryUpdate(len(stubs)))

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "json"
	}
	if opts.Title == "" {
		opts.Title = "Library"
	}

	export := &formatter.LibraryExport{Title: opts.Title, Tracks: stubs}
	result := &ExportResult{Format: format, Count: len(stubs)}

	e.sendProgress(progress, exportingUpdate(format, len(stubs)))

	switch format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, opts.Path)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		result.Files = []string{res.TracksFile, res.MetadataFile}

	case "markdown", "md":
		var image []byte
		var mime string
		if opts.WithCover && len(stubs) > 0 {
			e.sendProgress(progress, coverUpdate(stubs[0]))
			image, mime = e.fetchCover(ctx, stubs[0], opts.Bitrate)
		}
		res, err := formatter.WriteMarkdownExport(export, opts.Path, image, mime)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		result.Files = res.Files

	case "txt", "text":
		path, err := formatter.WriteTextExport(export, opts.Path)
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		result.Files = []string{path}

	case "json":
		path := opts.Path
		if path == "" {
			path = "library.json"
		}
		data, err := shared.MarshalJSON(stubs, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		result.Files = []string{path}

	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}

	e.sendProgress(progress, exportedUpdate(result.Files))
	return result, nil
}

// fetchCover resolves stub and downloads its cover. Failures are logged and yield no image.
func (e *LibraryEngine) fetchCover(ctx context.Context, stub models.TrackStub, br models.Bitrate) ([]byte, string) {
	if e.resolver == nil {
		return nil, ""
	}
	if !br.Valid() {
		br = models.DefaultBitrate
	}
	track, err := e.resolver.Resolve(ctx, stub.Unresolved(), br)
	if err != nil || track.Cover == "" {
		e.logger.Warn("no cover for export", "track", stub.Title(), "error", err)
		return nil, ""
	}
	image, mime, err := formatter.DownloadImage(ctx, e.client, track.Cover)
	if err != nil {
		e.logger.Warn("failed to download cover image", "url", track.Cover, "error", err)
		return nil, ""
	}
	return image, mime
}
