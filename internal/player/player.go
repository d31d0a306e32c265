package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// State is the engine's playback state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects what happens when a track ends.
type Mode string

const (
	Order   Mode = "order"
	Single  Mode = "single"
	Shuffle Mode = "shuffle"
)

// Modes lists every mode in toggle order.
var Modes = []Mode{Order, Single, Shuffle}

// ParseMode parses a mode name case-insensitively.
func ParseMode(v string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(v)))
	switch m {
	case Order, Single, Shuffle:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidArgument, v)
}

// Cycle returns the mode after m in [Modes], wrapping around.
func (m Mode) Cycle() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Order
}

// Decoder is one opened audio stream. Implementations must be safe for concurrent use.
//
// A freshly opened decoder is paused at position zero.
type Decoder interface {
	SetPaused(paused bool)
	Seek(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	SetVolume(v float64)
	Close() error
}

// Opener opens a decoder for url. onEnd runs once, off the caller's goroutine, when the stream plays out.
type Opener interface {
	Open(ctx context.Context, url string, onEnd func()) (Decoder, error)
}

// OpenerFunc adapts a function to [Opener].
type OpenerFunc func(ctx context.Context, url string, onEnd func()) (Decoder, error)

func (f OpenerFunc) Open(ctx context.Context, url string, onEnd func()) (Decoder, error) {
	return f(ctx, url, onEnd)
}

// Tick is one clock sample published while playing.
type Tick struct {
	Position time.Duration
	Duration time.Duration
}

// Fraction returns Position/Duration in [0,1], or 0 when the duration is unknown.
func (t Tick) Fraction() float64 {
	if t.Duration <= 0 {
		return 0
	}
	return min(max(float64(t.Position)/float64(t.Duration), 0), 1)
}

// Snapshot is a consistent view of the engine.
type Snapshot struct {
	State    State         `json:"state"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
	Volume   float64       `json:"volume"`
	Mode     Mode          `json:"mode"`
	URL      string        `json:"url,omitempty"`
}

// Fraction returns the progress in [0,1].
func (s Snapshot) Fraction() float64 {
	return Tick{Position: s.Position, Duration: s.Duration}.Fraction()
}

// Playing reports whether audio is audible right now.
func (s Snapshot) Playing() bool {
	return s.State == Playing
}
