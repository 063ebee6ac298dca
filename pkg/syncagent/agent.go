// Package syncagent reconciles the local task document with a remote copy
// using whole-snapshot last-writer-wins on lastModified.
//
// Concurrent edits on two devices between syncs are not merged: whichever
// side carries the later stamp replaces the other wholesale.
package syncagent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
	"github.com/harrisonrobin/eisen/pkg/remote"
)

type State string

const (
	Offline State = "offline"
	Syncing State = "syncing"
	Synced  State = "synced"
	Error   State = "error"
)

// Store is what the agent needs from the task store.
type Store interface {
	Snapshot() (model.Snapshot, error)
	ApplyRemote(snap model.Snapshot, expected time.Time) (bool, error)
	ConfirmPush(expected, stamp time.Time) (bool, error)
}

// SyncRecorder persists the time of the last successful sync.
type SyncRecorder interface {
	RecordSync(at time.Time) error
}

type Config struct {
	Interval time.Duration
	Debounce time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: 30 * time.Second, Debounce: 2 * time.Second}
}

var epoch = time.Unix(0, 0).UTC()

type Agent struct {
	store    Store
	remote   remote.Remote
	recorder SyncRecorder
	clock    clock.Clock
	ui       presenter.Presenter
	log      *zap.Logger
	cfg      Config
	group    singleflight.Group

	mu       sync.Mutex
	state    State
	lastSync time.Time
	lastErr  error
	ctx      context.Context
	settled  time.Time
	debounce *time.Timer
	pending  bool
}

// New builds an agent. With a nil remote the agent stays offline and every
// trigger is a no-op.
func New(store Store, rem remote.Remote, recorder SyncRecorder, clk clock.Clock, ui presenter.Presenter, log *zap.Logger, cfg Config) *Agent {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if clk == nil {
		clk = clock.System
	}
	if ui == nil {
		ui = presenter.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{
		store:    store,
		remote:   rem,
		recorder: recorder,
		clock:    clk,
		ui:       ui,
		log:      log.Named("sync"),
		cfg:      cfg,
		state:    Offline,
		ctx:      context.Background(),
	}
}

func (a *Agent) Enabled() bool { return a.remote != nil }

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) LastSync() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSync
}

func (a *Agent) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	a.ui.SyncStatus(string(s))
}

// SyncData runs one reconciliation. Calls that overlap a running one wait
// for it and share its result.
func (a *Agent) SyncData(ctx context.Context) error {
	if !a.Enabled() {
		a.setState(Offline)
		return nil
	}
	_, err, _ := a.group.Do("sync", func() (any, error) {
		if err := a.reconcile(ctx); err != nil {
			return nil, err
		}
		// Callers that joined this run made edits after its snapshot was
		// taken; one more pass carries them.
		if a.changedDuringRun() {
			return nil, a.reconcile(ctx)
		}
		return nil, nil
	})
	return err
}

// changedDuringRun reports whether the local stamp moved past the one the
// last exchange settled on.
func (a *Agent) changedDuringRun() bool {
	snap, err := a.store.Snapshot()
	if err != nil {
		return false
	}
	a.mu.Lock()
	settled := a.settled
	a.mu.Unlock()
	return !snap.Modified().Equal(settled)
}

func (a *Agent) settle(local time.Time) {
	a.mu.Lock()
	a.settled = local
	a.mu.Unlock()
}

func (a *Agent) reconcile(ctx context.Context) error {
	a.setState(Syncing)
	if err := a.exchange(ctx); err != nil {
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
		a.log.Warn("sync failed", zap.String("remote", a.remote.Name()), zap.Error(err))
		a.setState(Error)
		return err
	}
	now := a.clock.Now()
	if a.recorder != nil {
		if err := a.recorder.RecordSync(now); err != nil {
			a.log.Warn("Warning: failed to record sync time", zap.Error(err))
		}
	}
	a.mu.Lock()
	a.lastSync = now
	a.lastErr = nil
	a.mu.Unlock()
	a.setState(Synced)
	return nil
}

func (a *Agent) exchange(ctx context.Context) error {
	local, err := a.store.Snapshot()
	if err != nil {
		return err
	}
	expected := local.Modified()
	localTime := orEpoch(expected)

	remoteSnap, err := a.remote.Fetch(ctx)
	if err != nil {
		return err
	}
	if remoteSnap == nil {
		stamp := a.freshStamp(localTime)
		local.LastModified = &stamp
		if err := a.remote.Push(ctx, local); err != nil {
			return err
		}
		a.log.Info("created remote copy", zap.Int("tasks", len(local.Tasks)))
		confirmed, err := a.store.ConfirmPush(expected, stamp)
		if err != nil {
			return err
		}
		if confirmed {
			a.settle(stamp)
		} else {
			a.settle(expected)
		}
		return nil
	}

	remoteTime := orEpoch(remoteSnap.Modified())
	switch {
	case remoteTime.After(localTime):
		applied, err := a.store.ApplyRemote(*remoteSnap, expected)
		if err != nil {
			return err
		}
		if applied {
			a.settle(remoteSnap.Modified())
		} else {
			a.settle(expected)
		}
		a.log.Info("remote is newer", zap.Bool("applied", applied), zap.Time("remote", remoteTime), zap.Time("local", localTime))
	case localTime.After(remoteTime):
		local.LastModified = &localTime
		if err := a.remote.Push(ctx, local); err != nil {
			return err
		}
		a.settle(expected)
		a.log.Info("pushed local changes", zap.Int("tasks", len(local.Tasks)))
	default:
		a.settle(expected)
		a.log.Debug("already in sync")
	}
	return nil
}

// freshStamp is the current instant at millisecond precision, nudged past
// after if the clock hasn't moved.
func (a *Agent) freshStamp(after time.Time) time.Time {
	stamp := a.clock.Now().UTC().Truncate(time.Millisecond)
	if !stamp.After(after) {
		stamp = after.Add(time.Millisecond)
	}
	return stamp
}

func orEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}

// OnDataChange schedules a sync once local edits have been quiet for the
// debounce period.
func (a *Agent) OnDataChange() {
	if !a.Enabled() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.debounce != nil {
		a.debounce.Stop()
	}
	a.pending = true
	a.debounce = time.AfterFunc(a.cfg.Debounce, a.firePending)
}

func (a *Agent) firePending() {
	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	ctx := a.ctx
	a.mu.Unlock()
	_ = a.SyncData(ctx)
}

// Pending reports whether a debounced sync is waiting to fire.
func (a *Agent) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Flush runs a waiting debounced sync right away. Short-lived commands call
// it before exiting.
func (a *Agent) Flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return nil
	}
	a.pending = false
	if a.debounce != nil {
		a.debounce.Stop()
	}
	a.mu.Unlock()
	return a.SyncData(ctx)
}

// Focus syncs when the user comes back to the app.
func (a *Agent) Focus(ctx context.Context) error {
	return a.SyncData(ctx)
}

// Run syncs once, then on every interval until ctx is done.
func (a *Agent) Run(ctx context.Context) {
	if !a.Enabled() {
		a.setState(Offline)
		return
	}
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	_ = a.SyncData(ctx)
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.mu.Lock()
			if a.debounce != nil {
				a.debounce.Stop()
			}
			a.mu.Unlock()
			return
		case <-ticker.C:
			_ = a.SyncData(ctx)
		}
	}
}
