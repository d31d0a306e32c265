package cover

import "sync"

// Ticket tags one extraction request. Only the ticket from the latest [Slot.Begin] may install.
type Ticket struct {
	gen uint64
	URL string
}

// Slot owns the single displayed cover and enforces last-request-wins.
type Slot struct {
	mu      sync.Mutex
	gen     uint64
	current *Handle
	url     string
}

// Begin starts a new request for url, invalidating every earlier ticket.
func (s *Slot) Begin(url string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return Ticket{gen: s.gen, URL: url}
}

// Install makes h current when t is still the latest ticket, releasing the handle it replaces.
//
// A stale ticket releases h instead and returns false. A nil h clears the slot.
func (s *Slot) Install(t Ticket, h *Handle) bool {
	s.mu.Lock()
	if t.gen != s.gen {
		s.mu.Unlock()
		h.Release()
		return false
	}
	prev := s.current
	s.current, s.url = h, t.URL
	s.mu.Unlock()

	if prev != h {
		prev.Release()
	}
	return true
}

// Current returns the installed handle and the URL it was extracted for.
func (s *Slot) Current() (*Handle, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.url
}

// Rebind re-keys the installed handle from one stream URL to another carrying the same audio.
// It reports false, leaving the slot alone, when the installed handle is not for from.
func (s *Slot) Rebind(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.url != from {
		return false
	}
	s.url = to
	return true
}

// Clear invalidates pending tickets and releases the current handle.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.gen++
	prev := s.current
	s.current, s.url = nil, ""
	s.mu.Unlock()

	prev.Release()
}
