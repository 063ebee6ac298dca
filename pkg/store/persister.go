package store

import (
	"sync"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

// Persister is the durable side of the store. persist.Gateway implements it.
type Persister interface {
	// Save writes d and returns the new, strictly increasing lastModified.
	Save(d model.Data, at time.Time) (time.Time, error)
	LastModified() (time.Time, error)
	// Adopt writes a document received from a remote along with its stamp.
	Adopt(d model.Data, modified time.Time) error
	Stamp(modified time.Time) error
}

// InsightSaver is implemented by persisters that also keep the insight log
// across restarts.
type InsightSaver interface {
	SaveInsights(entries []string) error
}

// MemoryPersister keeps the last saved document in memory.
type MemoryPersister struct {
	mu       sync.Mutex
	data     model.Data
	modified time.Time
	saves    int
	insights []string
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: model.Empty()}
}

func (m *MemoryPersister) Save(d model.Data, at time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp := at.UTC().Truncate(time.Millisecond)
	if !stamp.After(m.modified) {
		stamp = m.modified.Add(time.Millisecond)
	}
	m.data = d.Clone()
	m.modified = stamp
	m.saves++
	return stamp, nil
}

func (m *MemoryPersister) LastModified() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modified, nil
}

func (m *MemoryPersister) Adopt(d model.Data, modified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = d.Clone()
	m.modified = modified.UTC()
	return nil
}

func (m *MemoryPersister) Stamp(modified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modified = modified.UTC()
	return nil
}

// Saves counts Save calls.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Data returns the last written document.
func (m *MemoryPersister) Data() model.Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

func (m *MemoryPersister) SaveInsights(entries []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights = append([]string(nil), entries...)
	return nil
}

// Insights returns the last saved insight entries.
func (m *MemoryPersister) Insights() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.insights...)
}
