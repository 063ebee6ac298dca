package remote

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires Redis on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func TestRedisRoundTrip(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	key := "eisen:test:" + t.Name()
	client.Del(ctx, key)
	r := NewRedis(client, key)
	t.Cleanup(func() {
		client.Del(ctx, key)
		r.Close()
	})

	got, err := r.Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := snapshot()
	require.NoError(t, r.Push(ctx, want))
	got, err = r.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}
