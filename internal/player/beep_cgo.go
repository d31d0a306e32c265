//go:build cgo || windows || darwin

package player

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// AudioAvailable indicates whether this build can drive the sound card.
const AudioAvailable = true

const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// BeepOpener decodes mp3, flac, wav and ogg audio into memory and plays it through the speaker.
type BeepOpener struct {
	client *http.Client
	logger *log.Logger
}

// NewBeepOpener creates an opener fetching remote audio with client.
func NewBeepOpener(client *http.Client, logger *log.Logger) *BeepOpener {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BeepOpener{client: client, logger: logger}
}

func (o *BeepOpener) Open(ctx context.Context, url string, onEnd func()) (Decoder, error) {
	data, ext, err := readSource(ctx, o.client, url)
	if err != nil {
		return nil, err
	}

	streamer, format, err := decode(ext, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ext, err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	d := &beepDecoder{streamer: streamer, format: format, onEnd: onEnd}
	d.volume = &effects.Volume{Streamer: beep.Resample(4, format.SampleRate, speakerRate, streamer), Base: 2}
	d.ctrl = &beep.Ctrl{Streamer: d.volume, Paused: true}
	d.play()

	o.logger.Debug("decoded", "url", url, "format", ext, "rate", format.SampleRate, "duration", d.Duration())
	return d, nil
}

func decode(ext string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := nopCloser{bytes.NewReader(data)}
	switch ext {
	case ".flac":
		return flac.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	case ".ogg", ".oga":
		return vorbis.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

type beepDecoder struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	onEnd    func()

	mu     sync.Mutex
	ended  bool
	closed bool
}

// play queues the control streamer followed by the end callback.
func (d *beepDecoder) play() {
	speaker.Play(beep.Seq(d.ctrl, beep.Callback(d.finished)))
}

// finished runs on the speaker goroutine with the speaker lock held.
func (d *beepDecoder) finished() {
	d.mu.Lock()
	d.ended = true
	closed := d.closed
	d.mu.Unlock()

	if !closed && d.onEnd != nil {
		go d.onEnd()
	}
}

func (d *beepDecoder) SetPaused(paused bool) {
	speaker.Lock()
	d.ctrl.Paused = paused
	speaker.Unlock()
}

func (d *beepDecoder) Seek(pos time.Duration) error {
	n := d.format.SampleRate.N(pos)

	speaker.Lock()
	n = min(max(n, 0), d.streamer.Len())
	err := d.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return err
	}

	d.mu.Lock()
	replay := d.ended && !d.closed
	d.ended = false
	d.mu.Unlock()

	if replay {
		d.play()
	}
	return nil
}

func (d *beepDecoder) Position() time.Duration {
	speaker.Lock()
	defer speaker.Unlock()
	return d.format.SampleRate.D(d.streamer.Position())
}

func (d *beepDecoder) Duration() time.Duration {
	return d.format.SampleRate.D(d.streamer.Len())
}

func (d *beepDecoder) SetVolume(v float64) {
	speaker.Lock()
	defer speaker.Unlock()
	d.volume.Silent = v <= 0
	if v > 0 {
		d.volume.Volume = math.Log2(v)
	}
}

func (d *beepDecoder) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	speaker.Lock()
	d.ctrl.Streamer = nil
	speaker.Unlock()
	return d.streamer.Close()
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
