// Package remote holds the stores a sync snapshot can be exchanged with.
package remote

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/eisen/pkg/model"
)

// Remote is a single remote copy of the snapshot.
type Remote interface {
	// Fetch returns the remote snapshot, or nil when none exists yet.
	Fetch(ctx context.Context) (*model.Snapshot, error)
	// Push overwrites the remote copy.
	Push(ctx context.Context, snap model.Snapshot) error
	Name() string
}

// TransportError wraps anything that went wrong talking to a remote:
// network failures, non-2xx answers and undecodable payloads.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
