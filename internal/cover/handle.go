package cover

import (
	"encoding/base64"
	"sync"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// Handle is an extracted cover image held in memory until released.
//
// A released handle no longer serves its bytes and is removed from its [Store].
type Handle struct {
	id          string
	mime        string
	description string
	kind        string
	source      string

	mu       sync.RWMutex
	data     []byte
	released bool
	store    *Store
}

func (h *Handle) ID() string          { return h.id }
func (h *Handle) MIME() string        { return h.mime }
func (h *Handle) Description() string { return h.description }
func (h *Handle) Kind() string        { return h.kind }
func (h *Handle) Source() string      { return h.source }

// Bytes returns the image data, or nil once released.
func (h *Handle) Bytes() []byte {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

// Len returns the image size in bytes.
func (h *Handle) Len() int {
	return len(h.Bytes())
}

// DataURI encodes the image as a data: URI, or "" once released.
func (h *Handle) DataURI() string {
	data := h.Bytes()
	if data == nil {
		return ""
	}
	return "data:" + h.mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Release drops the image bytes and unregisters the handle. Safe to call more than once and on nil.
func (h *Handle) Release() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.data = nil
	store := h.store
	h.mu.Unlock()

	if store != nil {
		store.forget(h.id)
	}
}

// Released reports whether [Handle.Release] has run.
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

// Store tracks live handles by id so they can be served and counted.
type Store struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{handles: make(map[string]*Handle)}
}

// Picture is a decoded embedded image before it is registered.
type Picture struct {
	MIME        string
	Description string
	Kind        string
	Data        []byte
}

// Register wraps pic into a live [Handle] tagged with the source URL it came from.
func (s *Store) Register(source string, pic Picture) *Handle {
	h := &Handle{
		id:          shared.GenerateID(),
		mime:        pic.MIME,
		description: pic.Description,
		kind:        pic.Kind,
		source:      source,
		data:        pic.Data,
		store:       s,
	}

	s.mu.Lock()
	s.handles[h.id] = h
	s.mu.Unlock()
	return h
}

// Get returns the live handle with id.
func (s *Store) Get(id string) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	return h, ok
}

// Live returns the number of unreleased handles.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

func (s *Store) forget(id string) {
	s.mu.Lock()
	delete(s.handles, id)
	s.mu.Unlock()
}
