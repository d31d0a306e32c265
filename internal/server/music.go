package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// MusicHandler lists and streams the local music directory.
//
//	GET /music         → JSON listing from the scanner cache
//	GET /music/{file}  → the file, with range support
type MusicHandler struct {
	scanner *library.Scanner
}

// NewMusicHandler creates a handler over s.
func NewMusicHandler(s *library.Scanner) *MusicHandler {
	return &MusicHandler{scanner: s}
}

// Routes returns the paths served by this handler.
func (h *MusicHandler) Routes() []string {
	return []string{"/music", library.URLPrefix}
}

func (h *MusicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.EscapedPath(), "/music")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		writeJSON(w, http.StatusOK, h.scanner.Tracks())
		return
	}

	path, err := h.scanner.Path(name)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, fmt.Errorf("%w: %s", shared.ErrNotFound, name))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, fmt.Errorf("%w: %s", shared.ErrNotFound, name))
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
