package snooze

import (
	"sync"
	"time"

	"github.com/harrisonrobin/eisen/pkg/clock"
)

// Registry holds per-task alert suppression windows. Expired entries are
// dropped when they are next looked at.
type Registry struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[int]time.Time
}

func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.System
	}
	return &Registry{clock: clk, entries: make(map[int]time.Time)}
}

// Snooze suppresses alerts for id for the given number of minutes,
// replacing any earlier window.
func (r *Registry) Snooze(id int, minutes int) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	until := now.Add(time.Duration(minutes) * time.Minute)
	r.entries[id] = until
	r.prune(now)
	return until
}

// IsSnoozed reports whether now is still inside id's window.
func (r *Registry) IsSnoozed(id int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[id]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(r.entries, id)
		return false
	}
	return true
}

// Until returns the expiry for id, if any, without pruning.
func (r *Registry) Until(id int) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[id]
	return until, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) prune(now time.Time) {
	for id, until := range r.entries {
		if now.After(until) {
			delete(r.entries, id)
		}
	}
}
