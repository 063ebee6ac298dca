package insight

import (
	"fmt"
	"sync"

	"github.com/harrisonrobin/eisen/pkg/clock"
)

const (
	// Capacity is how many entries the log keeps.
	Capacity = 8
	// Placeholder is rendered in place of an empty log.
	Placeholder = "No insights yet"
)

// Log is a bounded newest-first activity log.
type Log struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []string
}

func New(clk clock.Clock) *Log {
	if clk == nil {
		clk = clock.System
	}
	return &Log{clock: clk}
}

// Append prepends a time-labelled entry and drops anything past Capacity.
func (l *Log) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := fmt.Sprintf("[%s] %s", l.clock.Now().Format("15:04"), message)
	l.entries = append([]string{entry}, l.entries...)
	if len(l.entries) > Capacity {
		l.entries = l.entries[:Capacity]
	}
}

// Restore replaces the log with previously saved entries, newest first,
// keeping at most Capacity of them.
func (l *Log) Restore(entries []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}
	l.entries = append([]string(nil), entries...)
}

// Entries returns the entries, newest first. Empty log → empty slice.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Render is Entries for display: an empty log yields the placeholder line.
func (l *Log) Render() []string {
	entries := l.Entries()
	if len(entries) == 0 {
		return []string{Placeholder}
	}
	return entries
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
