package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// keepAlive is how often an idle stream sends a comment line.
const keepAlive = 15 * time.Second

// EventsHandler streams hub events as Server-Sent Events.
type EventsHandler struct {
	hub *Hub
}

// NewEventsHandler creates a handler serving hub.
func NewEventsHandler(hub *Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Routes returns the paths served by this handler.
func (h *EventsHandler) Routes() []string {
	return []string{"/api/events"}
}

// ServeHTTP holds the connection open until the client leaves or the hub stops.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := shared.MarshalJSON(e, false)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}
