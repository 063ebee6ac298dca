package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/config"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/syncagent"
)

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeRemote struct {
	mu     sync.Mutex
	snap   *model.Snapshot
	pushes int
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Fetch(context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return nil, nil
	}
	cp := *f.snap
	cp.Data = f.snap.Data.Clone()
	return &cp, nil
}

func (f *fakeRemote) Push(_ context.Context, snap model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	snap.Data = snap.Data.Clone()
	f.snap = &snap
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: "file",
		DataDir: t.TempDir(),
		Sync: config.SyncConfig{
			Backend:  "github",
			Interval: time.Hour,
			Debounce: time.Hour,
		},
	}
}

func TestNewWithoutRemoteIsOffline(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.False(t, a.Agent.Enabled())
	require.NoError(t, a.Agent.SyncData(context.Background()))
	assert.Equal(t, syncagent.Offline, a.Agent.State())
}

func TestUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Backend = "ftp"
	_, err := New(context.Background(), cfg, zap.NewNop(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	_, err = a.Store.AddTask("Write report", "", nil, model.Important)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	b, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	defer b.Close(ctx)

	active := b.Store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Write report", active[0].Title)
	assert.Equal(t, model.NotUrgentImportant, active[0].Quadrant)
}

func TestImportSkipsInvalidDrafts(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	defer a.Close(context.Background())

	due := epoch.Add(3 * time.Hour)
	added, err := a.Import([]model.Draft{
		{Title: "Renew passport", Due: &due, Importance: model.Important, Source: "todo.org"},
		{Title: "   ", Source: "todo.org"},
		{Title: "Tidy desk", Importance: model.NotImportant, Source: "todo.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	active := a.Store.Active()
	require.Len(t, active, 2)
	assert.Equal(t, model.UrgentImportant, active[0].Quadrant)
	assert.Equal(t, model.NotUrgentNotImportant, active[1].Quadrant)
}

func TestCloseFlushesPendingSync(t *testing.T) {
	cfg := testConfig(t)
	rem := &fakeRemote{}
	ctx := context.Background()

	a, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch), Remote: rem})
	require.NoError(t, err)
	require.True(t, a.Agent.Enabled())

	_, err = a.Store.AddTask("Call plumber", "", nil, model.Important)
	require.NoError(t, err)
	assert.True(t, a.Agent.Pending())

	require.NoError(t, a.Close(ctx))

	rem.mu.Lock()
	defer rem.mu.Unlock()
	assert.Equal(t, 1, rem.pushes)
	require.NotNil(t, rem.snap)
	require.Len(t, rem.snap.Tasks, 1)
	assert.Equal(t, "Call plumber", rem.snap.Tasks[0].Title)
}

func TestStartStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Remote: &fakeRemote{}})
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		a.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loops did not stop")
	}
}

func TestPullKeepsNewerRemoteTasks(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	laptop := epoch.Add(-time.Hour)
	d := model.Empty()
	d.Tasks = []model.Task{{ID: 1, Title: "From laptop", Importance: model.Important,
		Quadrant: model.NotUrgentImportant, Priority: model.High, CreatedAt: laptop}}
	d.TaskIDCounter = 2
	rem := &fakeRemote{snap: &model.Snapshot{Data: d, LastModified: &laptop}}

	a, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch), Remote: rem})
	require.NoError(t, err)
	a.Pull(ctx)
	task, err := a.Store.AddTask("Buy milk", "", nil, model.NotImportant)
	require.NoError(t, err)
	assert.Equal(t, 2, task.ID)
	require.NoError(t, a.Close(ctx))

	rem.mu.Lock()
	defer rem.mu.Unlock()
	require.Len(t, rem.snap.Tasks, 2)
	titles := []string{rem.snap.Tasks[0].Title, rem.snap.Tasks[1].Title}
	assert.ElementsMatch(t, []string{"From laptop", "Buy milk"}, titles)
}

func TestPullOfflineIsNoop(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	defer a.Close(context.Background())

	a.Pull(context.Background())
	assert.Equal(t, syncagent.Offline, a.Agent.State())
}

func TestInsightsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch)})
	require.NoError(t, err)
	_, err = first.Store.AddTask("Write report", "", nil, model.Important)
	require.NoError(t, err)
	written := first.Store.Insights().Entries()
	require.NotEmpty(t, written)
	require.NoError(t, first.Close(ctx))

	second, err := New(ctx, cfg, zap.NewNop(), Options{Clock: clock.NewManual(epoch.Add(time.Hour))})
	require.NoError(t, err)
	defer second.Close(ctx)
	assert.Equal(t, written, second.Store.Insights().Entries())
}

func TestRedisRemoteIsClosed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Backend = "redis"
	cfg.Sync.RedisAddr = "127.0.0.1:1"
	cfg.Sync.RedisKey = "eisen:test"
	ctx := context.Background()

	a := &App{Config: cfg, Log: zap.NewNop(), Clock: clock.NewManual(epoch)}
	rem, err := a.buildRemote(ctx)
	require.NoError(t, err)
	require.NotNil(t, rem)
	require.NoError(t, a.Close(ctx))

	_, err = rem.Fetch(ctx)
	assert.ErrorIs(t, err, redis.ErrClosed)
}
