// Package index remembers which calendar event mirrors which task.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/harrisonrobin/eisen/pkg/persist"
)

type EventIndex struct {
	Mappings map[int]string `json:"mappings"`
	kv       persist.KV
	mu       sync.RWMutex
	dirty    bool
}

// Load reads the index from its storage slot; a missing slot is an empty
// index.
func Load(kv persist.KV) (*EventIndex, error) {
	idx := &EventIndex{Mappings: make(map[int]string), kv: kv}
	b, ok, err := kv.Get(persist.KeyCalendarIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return idx, nil
	}
	if err := json.Unmarshal(b, idx); err != nil {
		return nil, fmt.Errorf("failed to decode calendar index: %w", err)
	}
	if idx.Mappings == nil {
		idx.Mappings = make(map[int]string)
	}
	return idx, nil
}

// Save writes the index back if anything changed since the last save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	if err := idx.kv.Set(persist.KeyCalendarIndex, b); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID int) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[taskID]
}

func (idx *EventIndex) Set(taskID int, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[taskID] != eventID {
		idx.Mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[taskID]; exists {
		delete(idx.Mappings, taskID)
		idx.dirty = true
	}
}

// TaskIDs returns the indexed task ids in ascending order.
func (idx *EventIndex) TaskIDs() []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]int, 0, len(idx.Mappings))
	for id := range idx.Mappings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
