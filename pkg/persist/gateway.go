package persist

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/model"
)

// Meta is the bookkeeping the sync agent needs next to the data slot.
type Meta struct {
	LastSyncTime    *time.Time `json:"lastSyncTime,omitempty"`
	LastLocalUpdate *time.Time `json:"lastLocalUpdate,omitempty"`
}

// Gateway reads and writes the task document and its sync metadata.
type Gateway struct {
	kv  KV
	log *zap.Logger
	mu  sync.Mutex
}

func NewGateway(kv KV, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{kv: kv, log: log.Named("persist")}
}

// KV exposes the underlying slots for the credential and calendar index.
func (g *Gateway) KV() KV { return g.kv }

// Load returns the stored document. A missing slot is not an error; a slot
// that can't be decoded returns ErrCorrupt alongside empty defaults.
func (g *Gateway) Load() (model.Data, bool, error) {
	b, ok, err := g.kv.Get(KeyData)
	if err != nil {
		return model.Empty(), false, fmt.Errorf("failed to read task data: %w", err)
	}
	if !ok {
		return model.Empty(), false, nil
	}
	var d model.Data
	if err := json.Unmarshal(b, &d); err != nil {
		return model.Empty(), false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return d.Normalize(), true, nil
}

// LoadOrEmpty is Load for startup: anything unreadable means a fresh start.
func (g *Gateway) LoadOrEmpty() model.Data {
	d, _, err := g.Load()
	if err != nil {
		g.log.Warn("Warning: starting with empty task data", zap.Error(err))
		return model.Empty()
	}
	return d
}

// Save writes d and advances lastLocalUpdate. The returned stamp is
// strictly later than the previous one even if the clock stood still.
func (g *Gateway) Save(d model.Data, at time.Time) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	meta, err := g.readMeta()
	if err != nil {
		g.log.Warn("Warning: sync metadata unreadable, resetting", zap.Error(err))
		meta = Meta{}
	}
	stamp := at.UTC().Truncate(time.Millisecond)
	if meta.LastLocalUpdate != nil && !stamp.After(*meta.LastLocalUpdate) {
		stamp = meta.LastLocalUpdate.Add(time.Millisecond)
	}

	if err := g.writeData(d); err != nil {
		return time.Time{}, err
	}
	meta.LastLocalUpdate = &stamp
	if err := g.writeMeta(meta); err != nil {
		return time.Time{}, err
	}
	return stamp, nil
}

// Adopt replaces the document with one pulled from a remote and takes over
// its timestamp, so the next comparison sees both sides as equal.
func (g *Gateway) Adopt(d model.Data, modified time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.writeData(d); err != nil {
		return err
	}
	return g.setLastLocal(modified)
}

// Stamp records modified as the local timestamp without touching the data.
func (g *Gateway) Stamp(modified time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setLastLocal(modified)
}

// LastModified returns lastLocalUpdate, or the zero time if never set.
func (g *Gateway) LastModified() (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	meta, err := g.readMeta()
	if err != nil {
		return time.Time{}, err
	}
	if meta.LastLocalUpdate == nil {
		return time.Time{}, nil
	}
	return *meta.LastLocalUpdate, nil
}

func (g *Gateway) Meta() (Meta, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readMeta()
}

// RecordSync stores the time of the last successful sync.
func (g *Gateway) RecordSync(at time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	meta, err := g.readMeta()
	if err != nil {
		meta = Meta{}
	}
	at = at.UTC()
	meta.LastSyncTime = &at
	return g.writeMeta(meta)
}

// SaveInsights keeps the activity log next to the document. It is local
// only and never part of a sync snapshot.
func (g *Gateway) SaveInsights(entries []string) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := g.kv.Set(KeyInsights, b); err != nil {
		return fmt.Errorf("failed to save insights: %w", err)
	}
	return nil
}

// LoadInsights returns the saved activity log, or nil when there is none.
func (g *Gateway) LoadInsights() ([]string, error) {
	b, ok, err := g.kv.Get(KeyInsights)
	if err != nil || !ok {
		return nil, err
	}
	var entries []string
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}

func (g *Gateway) setLastLocal(modified time.Time) error {
	meta, err := g.readMeta()
	if err != nil {
		meta = Meta{}
	}
	modified = modified.UTC()
	meta.LastLocalUpdate = &modified
	return g.writeMeta(meta)
}

func (g *Gateway) writeData(d model.Data) error {
	b, err := json.Marshal(d.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode task data: %w", err)
	}
	if err := g.kv.Set(KeyData, b); err != nil {
		return fmt.Errorf("failed to save task data: %w", err)
	}
	return nil
}

func (g *Gateway) readMeta() (Meta, error) {
	var meta Meta
	b, ok, err := g.kv.Get(KeySyncMeta)
	if err != nil || !ok {
		return meta, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return meta, nil
}

func (g *Gateway) writeMeta(meta Meta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := g.kv.Set(KeySyncMeta, b); err != nil {
		return fmt.Errorf("failed to save sync metadata: %w", err)
	}
	return nil
}
