package syncagent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
	"github.com/harrisonrobin/eisen/pkg/remote"
	"github.com/harrisonrobin/eisen/pkg/store"
)

var start = time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC)

type memRemote struct {
	mu      sync.Mutex
	snap    *model.Snapshot
	pushes  int
	fetches int
	err     error

	// When set, the next Fetch closes entered and waits for gate.
	entered chan struct{}
	gate    chan struct{}
}

func (m *memRemote) Name() string { return "memory" }

func (m *memRemote) holdNextFetch() (entered, release chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entered = make(chan struct{})
	m.gate = make(chan struct{})
	return m.entered, m.gate
}

func (m *memRemote) Fetch(context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	entered, gate := m.entered, m.gate
	m.entered, m.gate = nil, nil
	m.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.err != nil {
		return nil, &remote.TransportError{Op: "fetch", Err: m.err}
	}
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	cp.Data = m.snap.Data.Clone()
	return &cp, nil
}

func (m *memRemote) Push(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return &remote.TransportError{Op: "push", Err: m.err}
	}
	m.pushes++
	snap.Data = snap.Data.Clone()
	m.snap = &snap
	return nil
}

func (m *memRemote) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

type recorded struct {
	mu sync.Mutex
	at []time.Time
}

func (r *recorded) RecordSync(at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = append(r.at, at)
	return nil
}

type fixture struct {
	store  *store.Store
	disk   *store.MemoryPersister
	remote *memRemote
	agent  *Agent
	ui     *presenter.Recorder
	clock  *clock.Manual
	synced *recorded
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		disk:   store.NewMemoryPersister(),
		remote: &memRemote{},
		ui:     presenter.NewRecorder(),
		clock:  clock.NewManual(start),
		synced: &recorded{},
	}
	f.store = store.New(model.Empty(), store.Options{Clock: f.clock, Persister: f.disk, Presenter: f.ui})
	f.agent = New(f.store, f.remote, f.synced, f.clock, f.ui, nil, cfg)
	return f
}

func remoteWith(title string, modified time.Time) *model.Snapshot {
	d := model.Empty()
	d.Tasks = []model.Task{{ID: 1, Title: title, Importance: model.Important,
		Quadrant: model.NotUrgentImportant, Priority: model.High, CreatedAt: start}}
	d.TaskIDCounter = 2
	return &model.Snapshot{Data: d, LastModified: &modified}
}

func TestAbsentRemoteGetsLocalCopy(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.store.AddTask("local", "", nil, model.Important)
	require.NoError(t, err)
	before, _ := f.disk.LastModified()

	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, Synced, f.agent.State())
	require.NotNil(t, f.remote.snap)
	assert.Equal(t, f.store.Data(), f.remote.snap.Data)

	stamp := f.remote.snap.Modified()
	assert.True(t, stamp.After(before))
	after, _ := f.disk.LastModified()
	assert.True(t, after.Equal(stamp), "local stamp should follow the pushed one")

	// A second pass finds both sides equal.
	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, 1, f.remote.Pushes())
	assert.Len(t, f.synced.at, 2)
	assert.Equal(t, start, f.agent.LastSync())
}

func TestRemoteNewerWins(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.store.AddTask("stale", "", nil, model.Important)
	require.NoError(t, err)
	local, _ := f.disk.LastModified()
	f.remote.snap = remoteWith("from phone", local.Add(time.Minute))

	require.NoError(t, f.agent.SyncData(context.Background()))
	active := f.store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "from phone", active[0].Title)
	assert.Equal(t, 0, f.remote.Pushes())

	note, _ := f.ui.LastNotification()
	assert.Equal(t, "Tasks synced from other device", note.Message)
	modified, _ := f.disk.LastModified()
	assert.True(t, modified.Equal(local.Add(time.Minute)))
}

func TestLocalNewerIsPushed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.remote.snap = remoteWith("old", start.Add(-time.Hour))
	_, err := f.store.AddTask("fresh", "", nil, model.Important)
	require.NoError(t, err)

	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, 1, f.remote.Pushes())
	require.Len(t, f.remote.snap.Tasks, 1)
	assert.Equal(t, "fresh", f.remote.snap.Tasks[0].Title)
	local, _ := f.disk.LastModified()
	assert.True(t, f.remote.snap.Modified().Equal(local))
}

func TestRemoteWithoutStampLosesToLocal(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	snap := remoteWith("unstamped", start)
	snap.LastModified = nil
	f.remote.snap = snap
	_, err := f.store.AddTask("mine", "", nil, model.Important)
	require.NoError(t, err)

	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, "mine", f.remote.snap.Tasks[0].Title)
}

func TestEqualStampsDoNothing(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.store.AddTask("same", "", nil, model.Important)
	require.NoError(t, err)
	local, _ := f.disk.LastModified()
	f.remote.snap = remoteWith("other", local)

	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, 0, f.remote.Pushes())
	assert.Equal(t, "same", f.store.Active()[0].Title)
}

func TestFailureSetsErrorState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.remote.err = errors.New("connection refused")
	_, err := f.store.AddTask("kept", "", nil, model.Important)
	require.NoError(t, err)

	err = f.agent.SyncData(context.Background())
	var terr *remote.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, Error, f.agent.State())
	assert.Error(t, f.agent.LastError())
	assert.Len(t, f.store.Active(), 1)
	assert.Empty(t, f.synced.at)
	assert.Equal(t, []string{"syncing", "error"}, f.ui.SyncStates)

	// The next cycle recovers.
	f.remote.mu.Lock()
	f.remote.err = nil
	f.remote.mu.Unlock()
	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, Synced, f.agent.State())
	assert.NoError(t, f.agent.LastError())
}

func TestWithoutRemoteStaysOffline(t *testing.T) {
	s := store.New(model.Empty(), store.Options{})
	a := New(s, nil, nil, nil, nil, nil, DefaultConfig())
	assert.False(t, a.Enabled())
	require.NoError(t, a.SyncData(context.Background()))
	assert.Equal(t, Offline, a.State())
	a.OnDataChange()
	assert.False(t, a.Pending())
}

func TestDebouncedChangesCollapse(t *testing.T) {
	f := newFixture(t, Config{Interval: time.Hour, Debounce: 20 * time.Millisecond})
	f.store.OnChange(f.agent.OnDataChange)
	for i := 0; i < 5; i++ {
		_, err := f.store.AddTask("t", "", nil, model.Important)
		require.NoError(t, err)
	}
	assert.True(t, f.agent.Pending())

	require.Eventually(t, func() bool { return f.remote.Pushes() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, f.agent.Pending())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.remote.Pushes())
}

func TestFlushRunsPendingSync(t *testing.T) {
	f := newFixture(t, Config{Interval: time.Hour, Debounce: time.Hour})
	f.store.OnChange(f.agent.OnDataChange)
	_, err := f.store.AddTask("before exit", "", nil, model.Important)
	require.NoError(t, err)
	require.True(t, f.agent.Pending())

	require.NoError(t, f.agent.Flush(context.Background()))
	assert.False(t, f.agent.Pending())
	assert.Equal(t, 1, f.remote.Pushes())

	// Nothing left to flush.
	require.NoError(t, f.agent.Flush(context.Background()))
	assert.Equal(t, 1, f.remote.Pushes())
}

func TestRunSyncsImmediately(t *testing.T) {
	f := newFixture(t, Config{Interval: time.Hour, Debounce: time.Hour})
	f.remote.snap = remoteWith("waiting", start)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.agent.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return f.agent.State() == Synced }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "waiting", f.store.Active()[0].Title)
}

func TestEditDuringSyncIsPushedBeforeReturning(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.remote.snap = remoteWith("From laptop", start.Add(-time.Hour))
	_, err := f.store.AddTask("Write report", "", nil, model.Important)
	require.NoError(t, err)

	entered, release := f.remote.holdNextFetch()
	done := make(chan error, 1)
	go func() { done <- f.agent.SyncData(context.Background()) }()

	<-entered
	f.clock.Advance(time.Minute)
	_, err = f.store.AddTask("Call bank", "", nil, model.NotImportant)
	require.NoError(t, err)
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, 2, f.remote.Pushes())
	f.remote.mu.Lock()
	pushed := f.remote.snap
	f.remote.mu.Unlock()
	require.Len(t, pushed.Tasks, 2)
	assert.True(t, pushed.Modified().Equal(start.Add(time.Minute)))
}

func TestSettledSyncDoesNotRunTwice(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.remote.snap = remoteWith("From laptop", start.Add(-time.Hour))

	require.NoError(t, f.agent.SyncData(context.Background()))
	assert.Equal(t, 1, f.remote.fetches)
	assert.Equal(t, 0, f.remote.Pushes())
}
