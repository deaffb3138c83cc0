package pocket

import (
	"sync"
)

// History records which generators a generation run has used.
// It is safe for concurrent use so it can be shared between chunk workers.
type History struct {
	mu    sync.RWMutex
	used  map[Identifier]int
	order []Identifier
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		used: make(map[Identifier]int),
	}
}

// Record marks key as used once more.
func (h *History) Record(key Identifier) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.used[key] == 0 {
		h.order = append(h.order, key)
	}
	h.used[key]++
}

// Used reports whether key was recorded at least once.
func (h *History) Used(key Identifier) bool {
	return h.Count(key) > 0
}

// Count returns how many times key was recorded.
func (h *History) Count(key Identifier) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.used[key]
}

// Entries returns the recorded keys in first-use order.
func (h *History) Entries() []Identifier {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Identifier, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the number of distinct keys recorded.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.order)
}
