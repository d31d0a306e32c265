package server

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// API exposes a [playlist.Controller] over HTTP. Mutating endpoints answer with the resulting snapshot.
type API struct {
	ctrl   *playlist.Controller
	logger *log.Logger
}

// NewAPI creates the control API for ctrl.
func NewAPI(ctrl *playlist.Controller, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{ctrl: ctrl, logger: logger}
}

// Register adds every control route to r.
func (a *API) Register(r Router) {
	routes := []struct {
		method, path string
		fn           http.HandlerFunc
	}{
		{http.MethodGet, "/api/state", a.state},
		{http.MethodGet, "/api/tracks", a.tracks},
		{http.MethodPost, "/api/tracks/add", a.addTracks},
		{http.MethodPost, "/api/tracks/remove", a.removeTracks},
		{http.MethodPost, "/api/play", a.play},
		{http.MethodPost, "/api/toggle", a.toggle},
		{http.MethodPost, "/api/next", a.next},
		{http.MethodPost, "/api/prev", a.prev},
		{http.MethodPost, "/api/seek", a.seek},
		{http.MethodPost, "/api/volume", a.volume},
		{http.MethodPost, "/api/mode", a.mode},
		{http.MethodPost, "/api/bitrate", a.bitrate},
		{http.MethodPost, "/api/source", a.source},
		{http.MethodPost, "/api/translation", a.translation},
		{http.MethodGet, "/api/lyrics", a.lyrics},
		{http.MethodGet, "/api/search", a.search},
		{http.MethodPost, "/api/search/select", a.selectResult},
		{http.MethodDelete, "/api/error", a.clearError},
		{http.MethodGet, "/api/cover", a.cover},
		{http.MethodGet, "/api/share", a.shareLink},
		{http.MethodGet, "/share", a.share},
	}
	for _, rt := range routes {
		r.Handle(rt.method, rt.path, rt.fn)
	}
}

func (a *API) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.ctrl.Snapshot())
}

func (a *API) state(w http.ResponseWriter, r *http.Request) {
	a.respond(w, nil)
}

func (a *API) tracks(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("source"); raw != "" {
		src, err := models.ParseSource(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
			return
		}
		writeJSON(w, http.StatusOK, a.ctrl.TracksBySource(src))
		return
	}
	writeJSON(w, http.StatusOK, a.ctrl.Tracks())
}

// addTracks appends the stubs in the JSON body (one object or an array) to the list.
func (a *API) addTracks(w http.ResponseWriter, r *http.Request) {
	var stubs []models.TrackStub
	body := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))

	var raw json.RawMessage
	if err := body.Decode(&raw); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &stubs); err != nil {
			writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
			return
		}
	} else {
		var one models.TrackStub
		if err := json.Unmarshal(raw, &one); err != nil {
			writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
			return
		}
		stubs = append(stubs, one)
	}

	src := a.ctrl.Source()
	tracks := lo.Map(stubs, func(s models.TrackStub, _ int) models.ResolvedTrack {
		if !s.Source.Valid() {
			s.Source = src
		}
		return s.Unresolved()
	})
	added := a.ctrl.Add(tracks...)
	writeJSON(w, http.StatusOK, map[string]int{"added": added, "tracks": len(a.ctrl.Tracks())})
}

func (a *API) removeTracks(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		writeError(w, fmt.Errorf("%w: id", shared.ErrMissingArgument))
		return
	}
	removed := a.ctrl.Remove(ids...)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed, "tracks": len(a.ctrl.Tracks())})
}

func (a *API) play(w http.ResponseWriter, r *http.Request) {
	i, err := queryInt(r, "i")
	if err != nil {
		writeError(w, err)
		return
	}
	a.respond(w, a.ctrl.Play(r.Context(), i))
}

func (a *API) toggle(w http.ResponseWriter, r *http.Request) {
	a.ctrl.TogglePlayPause()
	a.respond(w, nil)
}

func (a *API) next(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.ctrl.Next(r.Context()))
}

func (a *API) prev(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.ctrl.Prev(r.Context()))
}

func (a *API) seek(w http.ResponseWriter, r *http.Request) {
	f, err := queryFloat(r, "f")
	if err != nil {
		writeError(w, err)
		return
	}
	_, err = a.ctrl.SeekToFraction(f)
	a.respond(w, err)
}

func (a *API) volume(w http.ResponseWriter, r *http.Request) {
	v, err := queryFloat(r, "v")
	if err != nil {
		writeError(w, err)
		return
	}
	a.ctrl.SetVolume(v)
	a.respond(w, nil)
}

// mode sets ?m= when given, otherwise cycles to the next mode.
func (a *API) mode(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("m")
	if raw == "" {
		a.ctrl.CycleMode()
		a.respond(w, nil)
		return
	}
	m, err := player.ParseMode(raw)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}
	a.ctrl.SetMode(m)
	a.respond(w, nil)
}

func (a *API) bitrate(w http.ResponseWriter, r *http.Request) {
	br, err := models.ParseBitrate(r.URL.Query().Get("br"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}
	a.respond(w, a.ctrl.SetBitrate(r.Context(), br))
}

func (a *API) source(w http.ResponseWriter, r *http.Request) {
	src, err := models.ParseSource(r.URL.Query().Get("s"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}
	a.respond(w, a.ctrl.SetSource(r.Context(), src))
}

func (a *API) translation(w http.ResponseWriter, r *http.Request) {
	a.ctrl.ToggleTranslation()
	a.respond(w, nil)
}

type lyricsBody struct {
	Lines  []lyric.Line `json:"lines"`
	Active int          `json:"active"`
}

func (a *API) lyrics(w http.ResponseWriter, r *http.Request) {
	lines, active := a.ctrl.ActiveLyric()
	if lines == nil {
		lines = []lyric.Line{}
	}
	writeJSON(w, http.StatusOK, lyricsBody{Lines: lines, Active: active})
}

type searchBody struct {
	Source  models.Source       `json:"source"`
	Results []models.SearchItem `json:"results"`
}

// search runs ?q= against ?source= (or ?s=; default: the current source).
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src := a.ctrl.Source()
	if raw := cmp.Or(q.Get("source"), q.Get("s")); raw != "" {
		parsed, err := models.ParseSource(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
			return
		}
		src = parsed
	}

	results, err := a.ctrl.Search(r.Context(), q.Get("q"), src)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []models.SearchItem{}
	}
	writeJSON(w, http.StatusOK, searchBody{Source: src, Results: results})
}

func (a *API) selectResult(w http.ResponseWriter, r *http.Request) {
	i, err := queryInt(r, "i")
	if err != nil {
		writeError(w, err)
		return
	}
	a.respond(w, a.ctrl.SelectSearchResult(r.Context(), i))
}

func (a *API) clearError(w http.ResponseWriter, r *http.Request) {
	a.ctrl.ClearError()
	a.respond(w, nil)
}

// cover redirects to the catalog cover, or serves the embedded one extracted from the stream.
func (a *API) cover(w http.ResponseWriter, r *http.Request) {
	url, handle := a.ctrl.Cover()
	switch {
	case url != "":
		http.Redirect(w, r, url, http.StatusFound)
	case handle != nil:
		serveHandle(w, r, handle)
	default:
		writeError(w, fmt.Errorf("%w: no cover", shared.ErrNotFound))
	}
}

type shareBody struct {
	URL   string `json:"url"`
	Embed string `json:"embed"`
}

// shareLink returns a share URL for the current track, rooted at this server.
func (a *API) shareLink(w http.ResponseWriter, r *http.Request) {
	snap := a.ctrl.Snapshot()
	if snap.Track == nil || snap.Track.Source == "" {
		writeError(w, fmt.Errorf("%w: no shareable track", shared.ErrNotFound))
		return
	}
	link := models.ShareURL(origin(r), snap.Track.TrackStub, snap.Bitrate, snap.Track.Source)
	writeJSON(w, http.StatusOK, shareBody{URL: link, Embed: models.EmbedSnippet(link)})
}

// share resolves and plays a shared stub, then sends the browser to the player page.
func (a *API) share(w http.ResponseWriter, r *http.Request) {
	stub, br, err := models.ParseShareQuery(r.URL.Query())
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if err := a.ctrl.ResolveAndPlay(r.Context(), stub, br); err != nil {
		writeError(w, err)
		return
	}
	a.logger.Info("playing shared track", "track", stub.Title(), "source", stub.Source)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
