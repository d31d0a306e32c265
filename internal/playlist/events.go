package playlist

import (
	"github.com/desertthunder/lyrebird/internal/player"
)

// EventKind names what changed.
type EventKind string

const (
	TrackLoading  EventKind = "loading"
	TrackChanged  EventKind = "track"
	StateChanged  EventKind = "state"
	ClockTick     EventKind = "tick"
	LyricAdvanced EventKind = "lyric"
	CoverChanged  EventKind = "cover"
	SearchDone    EventKind = "search"
	ErrorChanged  EventKind = "error"
	ListChanged   EventKind = "list"
	ModeChanged   EventKind = "mode"
)

// Event is one notification on [Controller.Updates]. Only the fields relevant to Kind are set.
type Event struct {
	Kind  EventKind    `json:"kind"`
	Index int          `json:"index"`
	State player.State `json:"state,omitzero"`
	Tick  player.Tick  `json:"tick,omitzero"`
	Line  int          `json:"line,omitzero"`
	Mode  player.Mode  `json:"mode,omitempty"`
	Err   string       `json:"error,omitempty"`
}

// updateBuffer is the capacity of the updates channel. Events beyond it are dropped.
const updateBuffer = 64

// emit sends e without blocking; a full or closed channel drops it.
func (c *Controller) emit(e Event) {
	c.evMu.Lock()
	defer c.evMu.Unlock()
	if c.evClosed {
		return
	}
	select {
	case c.updates <- e:
	default:
	}
}
