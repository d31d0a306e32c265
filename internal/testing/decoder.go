package testing

import (
	"context"
	"sync"
	"time"
)

// FakeDecoder is an in-memory stand-in for an audio decoder. It never advances on its own; tests move
// the clock with [FakeDecoder.Advance] and end the track with [FakeDecoder.Finish].
type FakeDecoder struct {
	URL    string
	Length time.Duration

	mu      sync.Mutex
	pos     time.Duration
	paused  bool
	volume  float64
	closed  bool
	seeks   int
	onEnd   func()
	SeekErr error
}

// NewFakeDecoder returns a paused decoder of the given length.
func NewFakeDecoder(url string, length time.Duration, onEnd func()) *FakeDecoder {
	return &FakeDecoder{URL: url, Length: length, paused: true, volume: 1, onEnd: onEnd}
}

func (d *FakeDecoder) SetPaused(p bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = p
}

func (d *FakeDecoder) Seek(pos time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SeekErr != nil {
		return d.SeekErr
	}
	d.pos = pos
	d.seeks++
	return nil
}

func (d *FakeDecoder) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *FakeDecoder) Duration() time.Duration {
	return d.Length
}

func (d *FakeDecoder) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
}

func (d *FakeDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDecoder) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *FakeDecoder) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *FakeDecoder) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

func (d *FakeDecoder) Seeks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seeks
}

// Advance moves the playback position forward by delta, capped at Length.
func (d *FakeDecoder) Advance(delta time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = min(d.pos+delta, d.Length)
}

// Finish jumps to the end and fires the end-of-stream callback synchronously.
func (d *FakeDecoder) Finish() {
	d.mu.Lock()
	d.pos = d.Length
	onEnd := d.onEnd
	d.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// FakeOpener hands out [FakeDecoder] values and records every open.
//
// Gates holds per-URL channels; an open for a gated URL blocks until the channel is closed or ctx ends.
type FakeOpener struct {
	Length time.Duration
	Err    error
	Gates  map[string]chan struct{}

	mu       sync.Mutex
	decoders []*FakeDecoder
}

// NewFakeOpener returns an opener producing decoders of the given length.
func NewFakeOpener(length time.Duration) *FakeOpener {
	return &FakeOpener{Length: length, Gates: make(map[string]chan struct{})}
}

// Gate makes opens of url block until the returned func is called.
func (o *FakeOpener) Gate(url string) (release func()) {
	ch := make(chan struct{})
	o.mu.Lock()
	o.Gates[url] = ch
	o.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (o *FakeOpener) Open(ctx context.Context, url string, onEnd func()) (*FakeDecoder, error) {
	o.mu.Lock()
	gate := o.Gates[url]
	err := o.Err
	o.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	d := NewFakeDecoder(url, o.Length, onEnd)
	o.mu.Lock()
	o.decoders = append(o.decoders, d)
	o.mu.Unlock()
	return d, nil
}

// Decoders returns every decoder opened so far, oldest first.
func (o *FakeOpener) Decoders() []*FakeDecoder {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*FakeDecoder(nil), o.decoders...)
}

// Last returns the most recently opened decoder, or nil.
func (o *FakeOpener) Last() *FakeDecoder {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.decoders) == 0 {
		return nil
	}
	return o.decoders[len(o.decoders)-1]
}

// SetErr makes subsequent opens fail with err.
func (o *FakeOpener) SetErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Err = err
}
