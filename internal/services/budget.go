package services

import (
	"sync"
	"time"
)

// Budget admits at most n requests in any window-long span of time.
//
// It remembers the time of each admitted request; a request is refused while n of them are younger
// than window, and admitted again once the oldest ages out.
type Budget struct {
	mu     sync.Mutex
	n      int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// NewBudget returns a budget of n requests per window. Non-positive values take the defaults
// (60 requests per 5 minutes).
func NewBudget(n int, window time.Duration) *Budget {
	if n <= 0 {
		n = defaultBudget
	}
	if window <= 0 {
		window = defaultBudgetSpan
	}
	return &Budget{n: n, window: window, now: time.Now}
}

// Allow records and admits a request if the window has room.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.prune(now)
	if len(b.stamps) >= b.n {
		return false
	}
	b.stamps = append(b.stamps, now)
	return true
}

// Remaining reports how many requests the window would admit right now.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.now())
	return b.n - len(b.stamps)
}

// Size returns n.
func (b *Budget) Size() int { return b.n }

func (b *Budget) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.stamps) && !b.stamps[i].After(cutoff) {
		i++
	}
	b.stamps = b.stamps[i:]
}
