package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/shared"
)

const (
	DefaultVolume       = 0.7
	DefaultTickInterval = 500 * time.Millisecond
	maxTickInterval     = time.Second
)

// Options configures an [Engine]. A nil Volume uses [DefaultVolume]; a pointer to 0 starts muted.
//
// Hooks run without the engine lock held. OnTick runs on the sampler goroutine and must not call back
// into the engine's state-changing methods.
type Options struct {
	Volume       *float64
	Mode         Mode
	TickInterval time.Duration
	Logger       *log.Logger

	OnTick  func(Tick)
	OnState func(State)
	OnEnded func()
}

// Engine owns the single live decoder and its clock sampler.
type Engine struct {
	opener Opener
	logger *log.Logger
	tick   time.Duration

	onTick  func(Tick)
	onState func(State)
	onEnded func()

	mu      sync.Mutex
	gen     uint64
	state   State
	mode    Mode
	volume  float64
	url     string
	dec     Decoder
	sampler *sampler
	closed  bool
}

// NewEngine creates an idle engine that opens decoders through opener.
func NewEngine(opener Opener, opts Options) *Engine {
	e := &Engine{
		opener:  opener,
		logger:  opts.Logger,
		tick:    opts.TickInterval,
		onTick:  opts.OnTick,
		onState: opts.OnState,
		onEnded: opts.OnEnded,
		mode:    opts.Mode,
		volume:  DefaultVolume,
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if e.tick <= 0 {
		e.tick = DefaultTickInterval
	}
	e.tick = min(e.tick, maxTickInterval)
	if e.mode == "" {
		e.mode = Order
	}
	if opts.Volume != nil {
		e.volume = clampVolume(*opts.Volume)
	}
	return e
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

// Load tears down the current decoder and opens url. A load superseded by a newer Load or Close is
// discarded without error. Open failures leave the engine Idle and wrap [shared.ErrPlayback].
func (e *Engine) Load(ctx context.Context, url string, autoplay bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("%w: engine closed", shared.ErrPlayback)
	}
	e.gen++
	gen := e.gen
	old, oldSampler := e.detachLocked()
	e.url = url
	e.state = Loading
	e.mu.Unlock()

	release(old, oldSampler)
	e.emitState(Loading)

	dec, err := e.opener.Open(ctx, url, func() { e.handleEnded(gen) })

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		if dec != nil {
			_ = dec.Close()
		}
		e.logger.Debug("discarded stale load", "url", url)
		return nil
	}
	if err != nil {
		e.state = Idle
		e.mu.Unlock()
		e.emitState(Idle)
		return fmt.Errorf("%w: failed to open %s: %v", shared.ErrPlayback, url, err)
	}

	dec.SetVolume(e.volume)
	e.dec = dec
	e.state = Ready
	if autoplay {
		dec.SetPaused(false)
		e.state = Playing
		e.startSamplerLocked(gen)
	}
	state := e.state
	e.mu.Unlock()

	e.logger.Debug("loaded", "url", url, "duration", dec.Duration(), "autoplay", autoplay)
	e.emitState(state)
	return nil
}

// TogglePlayPause flips between Playing and Paused. Ready starts playback and Ended restarts from zero;
// Idle and Loading are left alone. Returns the resulting state.
func (e *Engine) TogglePlayPause() State {
	e.mu.Lock()
	var stopped *sampler
	switch e.state {
	case Idle, Loading:
		state := e.state
		e.mu.Unlock()
		return state
	case Playing:
		e.dec.SetPaused(true)
		e.state = Paused
		stopped, e.sampler = e.sampler, nil
	case Ended:
		if err := e.dec.Seek(0); err != nil {
			e.logger.Warn("restart seek failed", "error", err)
		}
		fallthrough
	case Ready, Paused:
		e.dec.SetPaused(false)
		e.state = Playing
		e.startSamplerLocked(e.gen)
	}
	state := e.state
	e.mu.Unlock()

	stopped.stop()
	e.emitState(state)
	return state
}

// Seek moves to pos clamped to [0, duration] and returns the clamped position.
func (e *Engine) Seek(pos time.Duration) (time.Duration, error) {
	e.mu.Lock()
	if e.dec == nil {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: nothing loaded", shared.ErrPlayback)
	}

	dur := e.dec.Duration()
	pos = min(max(pos, 0), dur)
	if err := e.dec.Seek(pos); err != nil {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: seek failed: %v", shared.ErrPlayback, err)
	}

	state := e.state
	if state == Ended && pos < dur {
		e.state = Paused
		state = Paused
	}
	e.mu.Unlock()

	e.emitTick(Tick{Position: pos, Duration: dur})
	if state == Paused {
		e.emitState(state)
	}
	return pos, nil
}

// SeekFraction seeks to f of the duration, f clamped to [0,1].
func (e *Engine) SeekFraction(f float64) (time.Duration, error) {
	f = min(max(f, 0), 1)
	dur := e.Snapshot().Duration
	return e.Seek(time.Duration(f * float64(dur)))
}

// SetVolume clamps v to [0,1] and applies it to the live decoder. Returns the applied volume.
func (e *Engine) SetVolume(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clampVolume(v)
	if e.dec != nil {
		e.dec.SetVolume(e.volume)
	}
	return e.volume
}

// SetMode changes how future track ends are handled.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Snapshot returns the current state, clock and settings.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{State: e.state, Volume: e.volume, Mode: e.mode, URL: e.url}
	if e.dec != nil {
		s.Position = e.dec.Position()
		s.Duration = e.dec.Duration()
	}
	return s
}

// Fraction returns playback progress in [0,1].
func (e *Engine) Fraction() float64 {
	return e.Snapshot().Fraction()
}

// Close tears down the decoder and sampler. Later loads fail.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.gen++
	old, oldSampler := e.detachLocked()
	e.state = Idle
	e.url = ""
	e.mu.Unlock()

	return release(old, oldSampler)
}

// handleEnded runs when the decoder of load gen plays out.
func (e *Engine) handleEnded(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.dec == nil || e.state != Playing {
		e.mu.Unlock()
		return
	}

	if e.mode == Single {
		if err := e.dec.Seek(0); err != nil {
			e.logger.Warn("single mode restart failed", "error", err)
		}
		e.dec.SetPaused(false)
		dur, url := e.dec.Duration(), e.url
		e.mu.Unlock()

		e.logger.Debug("replaying", "url", url)
		e.emitTick(Tick{Position: 0, Duration: dur})
		return
	}

	e.state = Ended
	stopped := e.sampler
	e.sampler = nil
	tick := Tick{Position: e.dec.Duration(), Duration: e.dec.Duration()}
	e.mu.Unlock()

	stopped.stop()
	e.emitTick(tick)
	e.emitState(Ended)
	if e.onEnded != nil {
		e.onEnded()
	}
}

// detachLocked unhooks the decoder and sampler so they can be released outside the lock.
func (e *Engine) detachLocked() (Decoder, *sampler) {
	dec, s := e.dec, e.sampler
	e.dec, e.sampler = nil, nil
	return dec, s
}

// release stops the sampler before closing the decoder it reads from.
func release(dec Decoder, s *sampler) error {
	s.stop()
	if dec == nil {
		return nil
	}
	return dec.Close()
}

func (e *Engine) startSamplerLocked(gen uint64) {
	if e.sampler != nil || e.onTick == nil {
		return
	}
	e.sampler = startSampler(e.dec, e.tick, func(t Tick) {
		e.mu.Lock()
		current := gen == e.gen && e.state == Playing
		e.mu.Unlock()
		if current {
			e.emitTick(t)
		}
	})
}

func (e *Engine) emitTick(t Tick) {
	if e.onTick != nil {
		e.onTick(t)
	}
}

func (e *Engine) emitState(s State) {
	if e.onState != nil {
		e.onState(s)
	}
}

// sampler polls a decoder's clock on a ticker until stopped.
type sampler struct {
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func startSampler(dec Decoder, every time.Duration, publish func(Tick)) *sampler {
	s := &sampler{quit: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				publish(Tick{Position: dec.Position(), Duration: dec.Duration()})
			}
		}
	}()
	return s
}

// stop signals the sampler and waits for its goroutine to exit. Safe on nil and more than once.
func (s *sampler) stop() {
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.quit) })
	<-s.done
}
