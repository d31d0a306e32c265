// Package library lists the audio files of the local music directory and keeps the listing fresh.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// URLPrefix is the path local tracks are served under.
const URLPrefix = "/music/"

// Extensions lists the file extensions picked up by a scan.
var Extensions = []string{".mp3", ".m4a", ".flac", ".wav", ".ogg"}

// Supported reports whether name has an audio extension, case-insensitively.
func Supported(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// Scan lists the audio files directly inside dir, sorted by file name, with 1-based ids.
// A missing directory yields an empty listing.
func Scan(dir string) ([]models.LocalTrack, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.LocalTrack{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read music directory: %w", err)
	}

	tracks := []models.LocalTrack{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !Supported(e.Name()) {
			continue
		}
		tracks = append(tracks, models.LocalTrack{
			ID:   len(tracks) + 1,
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			URL:  URLPrefix + url.PathEscape(e.Name()),
		})
	}
	return tracks, nil
}

// Scanner caches the listing of one directory.
type Scanner struct {
	dir string

	mu     sync.RWMutex
	tracks []models.LocalTrack
}

// NewScanner creates a scanner for dir. Nothing is read until [Scanner.Rescan].
func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir, tracks: []models.LocalTrack{}}
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Rescan reads the directory again and replaces the cached listing.
func (s *Scanner) Rescan() ([]models.LocalTrack, error) {
	tracks, err := Scan(s.dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tracks = tracks
	s.mu.Unlock()
	return slices.Clone(tracks), nil
}

// Tracks returns the cached listing.
func (s *Scanner) Tracks() []models.LocalTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tracks)
}

// Path maps a file name from a track URL to its location on disk. Names that would leave the directory
// or are not audio files fail with [shared.ErrInvalidInput].
func (s *Scanner) Path(name string) (string, error) {
	name, err := url.PathUnescape(strings.TrimPrefix(name, URLPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if name == "" || name != filepath.Base(name) || name == ".." || !Supported(name) {
		return "", fmt.Errorf("%w: bad track file %q", shared.ErrInvalidInput, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Playable returns the cached listing as tracks streaming straight from disk. They carry no catalog
// source, so resolution leaves them unchanged.
func (s *Scanner) Playable() []models.ResolvedTrack {
	tracks := s.Tracks()
	out := make([]models.ResolvedTrack, 0, len(tracks))
	for _, t := range tracks {
		path, err := s.Path(t.URL)
		if err != nil {
			continue
		}
		out = append(out, models.ResolvedTrack{
			TrackStub: models.TrackStub{ID: fmt.Sprintf("local-%d", t.ID), Name: t.Name},
			URL:       path,
		})
	}
	return out
}
