package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/resolver"
	"github.com/desertthunder/lyrebird/internal/shared"
	tu "github.com/desertthunder/lyrebird/internal/testing"
)

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func fakeOpener(fo *tu.FakeOpener) player.Opener {
	return player.OpenerFunc(func(ctx context.Context, url string, onEnd func()) (player.Decoder, error) {
		d, err := fo.Open(ctx, url, onEnd)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

type fixture struct {
	ctl     *playlist.Controller
	catalog *tu.MockCatalog
	router  *BasicRouter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := &tu.MockCatalog{}
	ctl := playlist.New(playlist.Options{
		Resolver:     resolver.New(mock, 0, 0, quietLogger()),
		Opener:       fakeOpener(tu.NewFakeOpener(200 * time.Second)),
		TickInterval: time.Hour,
		Logger:       quietLogger(),
	})
	t.Cleanup(func() { _ = ctl.Close() })
	return &fixture{
		ctl:     ctl,
		catalog: mock,
		router:  NewRouter(Deps{Controller: ctl, Logger: quietLogger()}),
	}
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

type snapshotJSON struct {
	Index   int                   `json:"index"`
	Track   *models.ResolvedTrack `json:"track"`
	Tracks  int                   `json:"tracks"`
	Source  models.Source         `json:"source"`
	Bitrate models.Bitrate        `json:"bitrate"`
	Error   string                `json:"error"`
	Show    bool                  `json:"showTranslation"`
	Player  struct {
		State    string  `json:"state"`
		Position int64   `json:"position"`
		Volume   float64 `json:"volume"`
		Mode     string  `json:"mode"`
	} `json:"player"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tc := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: x", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", shared.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("%w: x", shared.ErrNetwork), http.StatusBadGateway},
		{fmt.Errorf("%w: x", shared.ErrPlayback), http.StatusInternalServerError},
		{fmt.Errorf("%w: x", shared.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: x", shared.ErrMissingArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: x", shared.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tc {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mark("outer"), mark("inner"))
	r.Handle(http.MethodPost, "/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	if strings.Join(order, ",") != "outer,inner,handler" {
		t.Errorf("unexpected middleware order %v", order)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") == "" {
		t.Errorf("expected 405 with Allow, got %d %v", rec.Code, rec.Header())
	}

	if got := r.Patterns(); len(got) != 1 || got[0] != "POST /x" {
		t.Errorf("unexpected patterns %v", got)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("Recover", func(t *testing.T) {
		h := Recover(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			w.(http.Flusher).Flush()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))

		if rec.Code != http.StatusTeapot || !rec.Flushed {
			t.Errorf("expected status and flush to pass through, got %d %v", rec.Code, rec.Flushed)
		}
		if out := buf.String(); !strings.Contains(out, "path=/tea") || !strings.Contains(out, "status=418") {
			t.Errorf("unexpected log line %q", out)
		}
	})
}

func TestAPI(t *testing.T) {
	t.Run("state", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/api/state", nil)
		expectStatus(t, rec, http.StatusOK)

		s := decode[snapshotJSON](t, rec)
		if s.Index != -1 || s.Track != nil || s.Source != models.Netease || s.Bitrate != models.Bitrate320 {
			t.Errorf("unexpected idle snapshot %+v", s)
		}
	})

	t.Run("tracks", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/tracks/add", strings.NewReader(`[{"id":"a","name":"A","trackId":"1"},{"id":"b","name":"B","source":"kuwo","trackId":"2"}]`))
		expectStatus(t, rec, http.StatusOK)
		if got := decode[map[string]int](t, rec); got["added"] != 2 || got["tracks"] != 2 {
			t.Errorf("unexpected add result %v", got)
		}

		rec = f.do(t, http.MethodPost, "/api/tracks/add", strings.NewReader(`{"id":"c","name":"C","trackId":"3"}`))
		expectStatus(t, rec, http.StatusOK)

		tracks := decode[[]models.ResolvedTrack](t, f.do(t, http.MethodGet, "/api/tracks", nil))
		if len(tracks) != 3 || tracks[0].Source != models.Netease {
			t.Errorf("expected 3 tracks defaulting to netease, got %+v", tracks)
		}
		kuwo := decode[[]models.ResolvedTrack](t, f.do(t, http.MethodGet, "/api/tracks?source=kuwo", nil))
		if len(kuwo) != 1 || kuwo[0].ID != "b" {
			t.Errorf("expected only the kuwo track, got %+v", kuwo)
		}

		rec = f.do(t, http.MethodPost, "/api/tracks/remove?id=a&id=c", nil)
		if got := decode[map[string]int](t, rec); got["removed"] != 2 || got["tracks"] != 1 {
			t.Errorf("unexpected remove result %v", got)
		}

		expectStatus(t, f.do(t, http.MethodPost, "/api/tracks/add", strings.NewReader(`{`)), http.StatusBadRequest)
		expectStatus(t, f.do(t, http.MethodPost, "/api/tracks/remove", nil), http.StatusBadRequest)
		expectStatus(t, f.do(t, http.MethodGet, "/api/tracks?source=spotify", nil), http.StatusBadRequest)
	})

	t.Run("playback controls", func(t *testing.T) {
		f := newFixture(t)
		f.ctl.Add(
			models.TrackStub{ID: "a", Name: "A", Source: models.Netease, TrackID: "1"}.Unresolved(),
			models.TrackStub{ID: "b", Name: "B", Source: models.Netease, TrackID: "2"}.Unresolved(),
		)

		rec := f.do(t, http.MethodPost, "/api/play?i=0", nil)
		expectStatus(t, rec, http.StatusOK)
		s := decode[snapshotJSON](t, rec)
		if s.Index != 0 || s.Track.URL != tu.StreamURLFor(models.Netease, "1", models.Bitrate320) || s.Player.State != "playing" {
			t.Errorf("unexpected snapshot after play %+v", s)
		}

		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/toggle", nil))
		if s.Player.State != "paused" {
			t.Errorf("expected paused, got %s", s.Player.State)
		}

		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/seek?f=0.5", nil))
		if time.Duration(s.Player.Position) != 100*time.Second {
			t.Errorf("expected position 100s, got %v", time.Duration(s.Player.Position))
		}

		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/volume?v=0.25", nil))
		if s.Player.Volume != 0.25 {
			t.Errorf("expected volume 0.25, got %v", s.Player.Volume)
		}

		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/next", nil))
		if s.Index != 1 {
			t.Errorf("expected next track, got %d", s.Index)
		}
		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/prev", nil))
		if s.Index != 0 {
			t.Errorf("expected previous track, got %d", s.Index)
		}

		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/mode?m=single", nil))
		if s.Player.Mode != "single" {
			t.Errorf("expected single mode, got %s", s.Player.Mode)
		}
		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/mode", nil))
		if s.Player.Mode != "shuffle" {
			t.Errorf("expected mode to cycle to shuffle, got %s", s.Player.Mode)
		}
	})

	t.Run("bad arguments", func(t *testing.T) {
		f := newFixture(t)
		for _, target := range []string{
			"/api/play",
			"/api/play?i=x",
			"/api/play?i=3",
			"/api/seek?f=",
			"/api/volume?v=loud",
			"/api/mode?m=repeat",
			"/api/bitrate?br=256",
			"/api/source?s=spotify",
			"/api/search/select?i=0",
		} {
			rec := f.do(t, http.MethodPost, target, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
			if body := decode[errorBody](t, rec); body.Kind != "invalid_input" {
				t.Errorf("%s: unexpected error body %+v", target, body)
			}
		}
	})

	t.Run("resolution failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.StreamFunc = func(context.Context, models.Source, string, models.Bitrate) (models.StreamInfo, error) {
			return models.StreamInfo{}, fmt.Errorf("%w: upstream down", shared.ErrNetwork)
		}
		f.ctl.Add(models.TrackStub{ID: "a", Name: "A", Source: models.Netease, TrackID: "1"}.Unresolved())

		expectStatus(t, f.do(t, http.MethodPost, "/api/play?i=0", nil), http.StatusBadGateway)

		s := decode[snapshotJSON](t, f.do(t, http.MethodGet, "/api/state", nil))
		if s.Error == "" {
			t.Error("expected error slot to be filled")
		}
		s = decode[snapshotJSON](t, f.do(t, http.MethodDelete, "/api/error", nil))
		if s.Error != "" {
			t.Errorf("expected error cleared, got %q", s.Error)
		}
	})

	t.Run("bitrate and source", func(t *testing.T) {
		f := newFixture(t)
		f.ctl.Add(models.TrackStub{ID: "a", Name: "A", Source: models.Netease, TrackID: "1"}.Unresolved())
		expectStatus(t, f.do(t, http.MethodPost, "/api/play?i=0", nil), http.StatusOK)

		s := decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/bitrate?br=999", nil))
		if s.Bitrate != models.Bitrate999 || s.Track.URL != tu.StreamURLFor(models.Netease, "1", models.Bitrate999) {
			t.Errorf("unexpected snapshot after bitrate switch %+v", s)
		}

		f.catalog.SearchFunc = tu.SearchResults(models.SearchItem{ID: "9", Name: "A"})
		s = decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/source?s=kuwo", nil))
		if s.Source != models.Kuwo || s.Track.Source != models.Kuwo || s.Player.State != "ready" {
			t.Errorf("unexpected snapshot after source switch %+v", s)
		}
	})

	t.Run("search and select", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.SearchFunc = tu.SearchResults(
			models.SearchItem{ID: "7", Name: "Blue Bird", Artist: models.Artists{"Ikimono-gakari"}},
			models.SearchItem{ID: "8", Name: "Haruka"},
		)

		rec := f.do(t, http.MethodGet, "/api/search?q=blue+bird&s=kuwo", nil)
		expectStatus(t, rec, http.StatusOK)
		body := decode[searchBody](t, rec)
		if body.Source != models.Kuwo || len(body.Results) != 2 {
			t.Errorf("unexpected search body %+v", body)
		}

		s := decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/search/select?i=1", nil))
		if s.Track == nil || s.Track.ID != "kuwo-8" || s.Player.State != "playing" {
			t.Errorf("expected selected result to play, got %+v", s)
		}

		body = decode[searchBody](t, f.do(t, http.MethodGet, "/api/search?q=haruka&source=joox", nil))
		if body.Source != models.Joox {
			t.Errorf("expected joox search, got %s", body.Source)
		}

		body = decode[searchBody](t, f.do(t, http.MethodGet, "/api/search?q=", nil))
		if len(body.Results) != 0 {
			t.Errorf("expected no results for a blank query, got %+v", body.Results)
		}
	})

	t.Run("lyrics and translation", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.LyricFunc = func(context.Context, models.Source, string) (models.LyricPayload, error) {
			return models.LyricPayload{Lyric: "[00:00.00]hello\n[00:05.00]world", TLyric: "[00:00.00]bonjour"}, nil
		}
		f.ctl.Add(models.TrackStub{ID: "a", Name: "A", Source: models.Netease, TrackID: "1", LyricID: "1"}.Unresolved())
		expectStatus(t, f.do(t, http.MethodPost, "/api/play?i=0", nil), http.StatusOK)

		body := decode[lyricsBody](t, f.do(t, http.MethodGet, "/api/lyrics", nil))
		if len(body.Lines) != 2 || body.Active != 0 || body.Lines[0].Text != "hello" {
			t.Errorf("unexpected lyrics %+v", body)
		}

		s := decode[snapshotJSON](t, f.do(t, http.MethodPost, "/api/translation", nil))
		if !s.Show {
			t.Error("expected translation on")
		}
		body = decode[lyricsBody](t, f.do(t, http.MethodGet, "/api/lyrics", nil))
		if len(body.Lines) != 1 || body.Lines[0].Text != "bonjour" {
			t.Errorf("expected translated lines, got %+v", body)
		}
	})

	t.Run("cover", func(t *testing.T) {
		f := newFixture(t)
		expectStatus(t, f.do(t, http.MethodGet, "/api/cover", nil), http.StatusNotFound)

		f.catalog.CoverFunc = func(context.Context, models.Source, string, int) (models.CoverInfo, error) {
			return models.CoverInfo{URL: "http://img.test/a.jpg"}, nil
		}
		f.ctl.Add(models.TrackStub{ID: "a", Name: "A", Source: models.Netease, TrackID: "1", PicID: "p"}.Unresolved())
		expectStatus(t, f.do(t, http.MethodPost, "/api/play?i=0", nil), http.StatusOK)

		rec := f.do(t, http.MethodGet, "/api/cover", nil)
		expectStatus(t, rec, http.StatusFound)
		if loc := rec.Header().Get("Location"); loc != "http://img.test/a.jpg" {
			t.Errorf("unexpected redirect %q", loc)
		}
	})

	t.Run("share", func(t *testing.T) {
		f := newFixture(t)
		expectStatus(t, f.do(t, http.MethodGet, "/api/share", nil), http.StatusNotFound)

		rec := f.do(t, http.MethodGet, "/share?trackId=42&name=Blue+Bird&artist=Ikimono-gakari&bitrate=999&source=kuwo&id=x1", nil)
		expectStatus(t, rec, http.StatusSeeOther)
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("unexpected redirect %q", loc)
		}

		s := f.ctl.Snapshot()
		if s.Track == nil || s.Track.ID != "x1" || s.Track.URL != tu.StreamURLFor(models.Kuwo, "42", models.Bitrate999) || s.Bitrate != models.Bitrate999 {
			t.Errorf("expected shared track to play, got %+v", s)
		}

		link := decode[shareBody](t, f.do(t, http.MethodGet, "/api/share", nil))
		if !strings.HasPrefix(link.URL, "http://example.com/share?") || !strings.Contains(link.URL, "trackId=42") {
			t.Errorf("unexpected share link %q", link.URL)
		}
		if !strings.Contains(link.Embed, "<iframe") {
			t.Errorf("unexpected embed %q", link.Embed)
		}

		expectStatus(t, f.do(t, http.MethodGet, "/share?source=kuwo", nil), http.StatusBadRequest)
		expectStatus(t, f.do(t, http.MethodGet, "/share?name=x&source=spotify", nil), http.StatusBadRequest)
	})

	t.Run("page", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/", nil)
		expectStatus(t, rec, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "Nothing playing") {
			t.Error("expected idle page")
		}
		expectStatus(t, f.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound)
	})
}

func TestMusicHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b song.mp3"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	scanner := library.NewScanner(dir)
	if _, err := scanner.Rescan(); err != nil {
		t.Fatal(err)
	}
	h := NewMusicHandler(scanner)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("listing", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/music", nil))
		expectStatus(t, rec, http.StatusOK)
		tracks := decode[[]models.LocalTrack](t, rec)
		if len(tracks) != 1 || tracks[0].URL != "/music/b%20song.mp3" {
			t.Errorf("unexpected listing %+v", tracks)
		}
	})

	t.Run("file with range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/music/b%20song.mp3", nil)
		req.Header.Set("Range", "bytes=2-5")
		rec := serve(req)
		expectStatus(t, rec, http.StatusPartialContent)
		if rec.Body.String() != "2345" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("errors", func(t *testing.T) {
		expectStatus(t, serve(httptest.NewRequest(http.MethodGet, "/music/..%2Fsecret.mp3", nil)), http.StatusBadRequest)
		expectStatus(t, serve(httptest.NewRequest(http.MethodGet, "/music/notes.txt", nil)), http.StatusBadRequest)
		expectStatus(t, serve(httptest.NewRequest(http.MethodGet, "/music/gone.mp3", nil)), http.StatusNotFound)
		expectStatus(t, serve(httptest.NewRequest(http.MethodPost, "/music", nil)), http.StatusMethodNotAllowed)
	})
}

func TestCoverHandler(t *testing.T) {
	store := cover.NewStore()
	handle := store.Register("http://stream.test/a.mp3", cover.Picture{MIME: "image/png", Data: []byte("png-bytes")})
	h := NewCoverHandler(store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CoverPrefix+handle.ID(), nil))
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "png-bytes" || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("unexpected cover response %q %q", rec.Body.String(), rec.Header().Get("Content-Type"))
	}

	handle.Release()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CoverPrefix+handle.ID(), nil))
	expectStatus(t, rec, http.StatusNotFound)
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("pong")) })
	srv := New(ln.Addr().String(), mux, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
