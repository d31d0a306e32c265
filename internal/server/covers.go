package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// CoverPrefix is the path extracted covers are served under.
const CoverPrefix = "/covers/"

// CoverHandler serves extracted cover images by handle id while they are live.
type CoverHandler struct {
	store *cover.Store
}

// NewCoverHandler creates a handler over store.
func NewCoverHandler(store *cover.Store) *CoverHandler {
	return &CoverHandler{store: store}
}

// Routes returns the paths served by this handler.
func (h *CoverHandler) Routes() []string {
	return []string{CoverPrefix}
}

func (h *CoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, CoverPrefix)
	handle, ok := h.store.Get(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: cover %q", shared.ErrNotFound, id))
		return
	}
	serveHandle(w, r, handle)
}

// serveHandle writes a cover's bytes. A handle released mid-request yields 404.
func serveHandle(w http.ResponseWriter, r *http.Request, h *cover.Handle) {
	data := h.Bytes()
	if data == nil {
		writeError(w, fmt.Errorf("%w: cover released", shared.ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", h.MIME())
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}
