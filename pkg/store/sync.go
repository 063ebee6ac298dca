package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
)

// Snapshot returns the document and its lastModified read under one lock,
// so a sync cycle always works from a consistent pair.
func (s *Store) Snapshot() (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	modified, err := s.persister.LastModified()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read local timestamp: %w", err)
	}
	snap := model.Snapshot{Data: s.data.Clone()}
	if !modified.IsZero() {
		snap.LastModified = &modified
	}
	return snap, nil
}

// ApplyRemote replaces the whole local document with remote, provided the
// local lastModified is still expected. It returns false without touching
// anything when a local mutation landed in between; the next sync cycle
// will see the newer local stamp and push instead.
func (s *Store) ApplyRemote(remote model.Snapshot, expected time.Time) (bool, error) {
	s.mu.Lock()
	current, err := s.persister.LastModified()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if !current.Equal(expected) {
		s.mu.Unlock()
		s.log.Info("local data changed during sync, skipping remote apply")
		return false, nil
	}
	data := remote.Data.Normalize().Clone()
	if err := s.persister.Adopt(data, remote.Modified()); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.data = data
	ev := &events{
		rendered: s.activeLocked(),
		counts:   s.countsLocked(),
		stats:    s.statsLocked(),
		insights: s.recordInsight("Synced tasks from another device"),
	}
	ev.note("Tasks synced from other device", presenter.Success)
	s.mu.Unlock()

	s.log.Info("applied remote snapshot", zap.Int("tasks", len(data.Tasks)), zap.Time("modified", remote.Modified()))
	s.dispatch(ev)
	return true, nil
}

// ConfirmPush records the stamp a push wrote remotely as the local
// lastModified, unless a local mutation happened after the snapshot was
// taken.
func (s *Store) ConfirmPush(expected, stamp time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.persister.LastModified()
	if err != nil {
		return false, err
	}
	if !current.Equal(expected) || !stamp.After(current) {
		return false, nil
	}
	return true, s.persister.Stamp(stamp)
}
