package library

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// DefaultDebounce is how long the watcher waits for the directory to settle before rescanning.
const DefaultDebounce = 500 * time.Millisecond

// Watcher rescans a [Scanner] whenever audio files in its directory change.
type Watcher struct {
	scanner  *Scanner
	debounce time.Duration
	onChange func([]models.LocalTrack)
	logger   *log.Logger
}

// NewWatcher creates a watcher calling onChange with each fresh listing. onChange may be nil.
func NewWatcher(s *Scanner, debounce time.Duration, onChange func([]models.LocalTrack), logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Watcher{scanner: s, debounce: debounce, onChange: onChange, logger: logger}
}

// Run watches until ctx ends. The directory must exist.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.scanner.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.scanner.Dir(), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(w.debounce)

		case <-debounce.C:
			tracks, err := w.scanner.Rescan()
			if err != nil {
				w.logger.Error("rescan failed", "dir", w.scanner.Dir(), "error", err)
				continue
			}
			w.logger.Debug("rescanned", "dir", w.scanner.Dir(), "tracks", len(tracks))
			if w.onChange != nil {
				w.onChange(tracks)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.scanner.Dir(), "error", err)
		}
	}
}

// relevant reports whether event can change the listing: any create, remove or rename, or a write to an
// audio file.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	return event.Op&fsnotify.Write != 0 && Supported(event.Name)
}
