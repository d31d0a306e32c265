package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/desertthunder/lyrebird/internal/formatter"
	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// lyricRadius is how many lines around the active one the page shows.
const lyricRadius = 3

// Player is the part of the playlist controller the page reads.
type Player interface {
	Snapshot() playlist.Snapshot
	ActiveLyric() ([]lyric.Line, int)
}

type pageLine struct {
	Text   string
	Active bool
}

type pageData struct {
	Track          *models.ResolvedTrack
	State          player.State
	Position       string
	Duration       string
	Source         string
	Bitrate        models.Bitrate
	Mode           player.Mode
	Error          string
	HasTranslation bool
	Lyrics         []pageLine
}

// PageHandler renders the now-playing page.
type PageHandler struct {
	player Player
}

// NewPageHandler creates a page for p.
func NewPageHandler(p Player) *PageHandler {
	return &PageHandler{player: p}
}

// Routes returns the paths served by this handler.
func (h *PageHandler) Routes() []string {
	return []string{"/{$}"}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.player.Snapshot()
	lines, active := h.player.ActiveLyric()

	data := pageData{
		Track:          snap.Track,
		State:          snap.Player.State,
		Position:       formatter.FormatTime(snap.Player.Position.Seconds()),
		Duration:       formatter.FormatTime(snap.Player.Duration.Seconds()),
		Source:         snap.Source.Label(),
		Bitrate:        snap.Bitrate,
		Mode:           snap.Player.Mode,
		Error:          snap.Error,
		HasTranslation: snap.HasTranslation,
	}

	start := max(active-lyricRadius, 0)
	for i, l := range lyric.Preview(lines, active, lyricRadius) {
		data.Lyrics = append(data.Lyrics, pageLine{Text: l.Text, Active: start+i == active})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
