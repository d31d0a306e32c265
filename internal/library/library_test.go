package library

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		tracks, err := Scan(filepath.Join(t.TempDir(), "nope"))
		if err != nil || tracks == nil || len(tracks) != 0 {
			t.Errorf("expected empty listing, got %v (%v)", tracks, err)
		}
	})

	t.Run("filters and sorts", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"b song.MP3", "a.flac", "notes.txt", "c#1.ogg", "d.m4a", "e.wav"} {
			touch(t, dir, name)
		}
		if err := os.Mkdir(filepath.Join(dir, "album.mp3"), 0o755); err != nil {
			t.Fatal(err)
		}

		tracks, err := Scan(dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.LocalTrack{
			{ID: 1, Name: "a", URL: "/music/a.flac"},
			{ID: 2, Name: "b song", URL: "/music/b%20song.MP3"},
			{ID: 3, Name: "c#1", URL: "/music/c%231.ogg"},
			{ID: 4, Name: "d", URL: "/music/d.m4a"},
			{ID: 5, Name: "e", URL: "/music/e.wav"},
		}
		if len(tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %+v", len(want), tracks)
		}
		for i := range want {
			if tracks[i] != want[i] {
				t.Errorf("track %d: expected %+v, got %+v", i, want[i], tracks[i])
			}
		}
	})
}

func TestScannerPath(t *testing.T) {
	s := NewScanner("/srv/music")

	tc := []struct {
		in, want string
		err      bool
	}{
		{"/music/b%20song.MP3", "/srv/music/b song.MP3", false},
		{"a.flac", "/srv/music/a.flac", false},
		{"..%2Fsecret.mp3", "", true},
		{"notes.txt", "", true},
		{"", "", true},
		{"%zz.mp3", "", true},
	}
	for _, tt := range tc {
		got, err := s.Path(tt.in)
		if tt.err {
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Path(%q): expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != filepath.FromSlash(tt.want) {
			t.Errorf("Path(%q) = %q (%v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestScannerPlayable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "one.mp3")
	s := NewScanner(dir)

	if len(s.Playable()) != 0 {
		t.Error("expected nothing before the first scan")
	}
	if _, err := s.Rescan(); err != nil {
		t.Fatal(err)
	}

	got := s.Playable()
	if len(got) != 1 || got[0].ID != "local-1" || got[0].URL != filepath.Join(dir, "one.mp3") || got[0].Source != "" {
		t.Errorf("unexpected playable tracks %+v", got)
	}
}

func TestRelevant(t *testing.T) {
	tc := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "x.txt", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "x.mp3", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "x.mp3", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "x.txt", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "x.mp3", Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tc {
		if got := relevant(tt.event); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	s := NewScanner(dir)
	changes := make(chan []models.LocalTrack, 4)
	w := NewWatcher(s, 20*time.Millisecond, func(tr []models.LocalTrack) { changes <- tr }, log.New(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// fsnotify registration is asynchronous; keep writing until the rescan lands.
	deadline := time.After(3 * time.Second)
	for {
		touch(t, dir, "new.mp3")
		select {
		case tracks := <-changes:
			if len(tracks) != 1 || tracks[0].Name != "new" {
				t.Errorf("unexpected listing %+v", tracks)
			}
			if len(s.Tracks()) != 1 {
				t.Error("expected scanner cache to be updated")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("expected clean stop, got %v", err)
			}
			return
		case <-deadline:
			cancel()
			t.Fatal("no rescan after file change")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(NewScanner(filepath.Join(t.TempDir(), "nope")), 0, nil, log.New(&bytes.Buffer{}))
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error for a missing directory")
	}
}
