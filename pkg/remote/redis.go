package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/harrisonrobin/eisen/pkg/model"
)

const DefaultRedisKey = "eisen:snapshot"

// Redis keeps the snapshot under a single key, for setups that share a
// Redis instance instead of a repository.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Fetch(ctx context.Context) (*model.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &TransportError{Op: "fetch", Err: fmt.Errorf("failed to parse snapshot: %w", err)}
	}
	snap.Data = snap.Data.Normalize()
	return &snap, nil
}

func (r *Redis) Push(ctx context.Context, snap model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
