// Package web fans controller events out to browser clients.
//
// # Architecture
//
// A [Hub] is the single consumer of a controller's update channel. Every browser connection subscribes
// to the hub and receives each event as a Server-Sent Event:
//
//	event: state
//	data: {"kind":"state","index":0,"state":"playing"}
//
// Slow subscribers lose events rather than stalling the hub; the controller's own snapshot endpoint is
// the source of truth, events only say what changed.
//
// # Routes
//
//	GET /api/events → SSE stream of controller events
//	GET /           → Now-playing page driven by the control API
package web

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// subscriberBuffer is the per-client queue. Events beyond it are dropped for that client.
const subscriberBuffer = 32

// Hub broadcasts events from one source channel to any number of subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan playlist.Event]struct{}
	closed bool
	logger *log.Logger
}

// NewHub creates an idle hub. Start it with [Hub.Run].
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Hub{subs: make(map[chan playlist.Event]struct{}), logger: logger}
}

// Run forwards events from src until src closes or ctx ends, then closes every subscriber.
func (h *Hub) Run(ctx context.Context, src <-chan playlist.Event) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-src:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e playlist.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Debug("dropped event for slow subscriber", "kind", e.Kind)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	clear(h.subs)
}

// Subscribe registers a new client. The returned channel closes when the hub stops or cancel is called.
func (h *Hub) Subscribe() (events <-chan playlist.Event, cancel func()) {
	ch := make(chan playlist.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
