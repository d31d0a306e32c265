package server

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/shared"
	"github.com/desertthunder/lyrebird/internal/web"
)

// Deps are the components served over HTTP. Nil Scanner, Covers or Hub skip their routes.
type Deps struct {
	Controller *playlist.Controller
	Scanner    *library.Scanner
	Covers     *cover.Store
	Hub        *web.Hub
	Logger     *log.Logger
}

// NewRouter wires the control API, local music, covers, the event stream and the player page.
func NewRouter(d Deps) *BasicRouter {
	logger := d.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger))

	NewAPI(d.Controller, logger).Register(r)
	r.Handler(web.NewPageHandler(d.Controller))
	if d.Scanner != nil {
		r.Handler(NewMusicHandler(d.Scanner))
	}
	if d.Covers != nil {
		r.Handler(NewCoverHandler(d.Covers))
	}
	if d.Hub != nil {
		r.Handler(web.NewEventsHandler(d.Hub))
	}
	return r
}
