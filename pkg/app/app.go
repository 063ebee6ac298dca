// Package app builds the component graph shared by the CLI and the HTTP
// front: storage, task store, deadline monitor and sync agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/auth"
	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/config"
	"github.com/harrisonrobin/eisen/pkg/deadline"
	"github.com/harrisonrobin/eisen/pkg/google"
	"github.com/harrisonrobin/eisen/pkg/index"
	"github.com/harrisonrobin/eisen/pkg/insight"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/persist"
	"github.com/harrisonrobin/eisen/pkg/presenter"
	"github.com/harrisonrobin/eisen/pkg/remote"
	"github.com/harrisonrobin/eisen/pkg/snooze"
	"github.com/harrisonrobin/eisen/pkg/store"
	"github.com/harrisonrobin/eisen/pkg/syncagent"
)

type Options struct {
	Clock clock.Clock
	// Presenter receives UI callbacks in addition to the log and the
	// in-memory recorder.
	Presenter presenter.Presenter
	// KV overrides the configured storage backend.
	KV persist.KV
	// Remote overrides the configured sync remote.
	Remote remote.Remote
}

type App struct {
	Config      *config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	KV          persist.KV
	Gateway     *persist.Gateway
	Store       *store.Store
	Snoozes     *snooze.Registry
	Monitor     *deadline.Monitor
	Agent       *syncagent.Agent
	Credentials *auth.Credentials
	Recorder    *presenter.Recorder

	closers []func() error
	wg      sync.WaitGroup
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System
	}

	kv := opts.KV
	if kv == nil {
		var err error
		kv, err = persist.Open(cfg.Storage, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	a := &App{
		Config:      cfg,
		Log:         log,
		Clock:       clk,
		KV:          kv,
		Gateway:     persist.NewGateway(kv, log),
		Credentials: auth.NewCredentials(kv),
		Recorder:    presenter.NewRecorder(),
	}
	a.closers = append(a.closers, kv.Close)

	ui := presenter.Multi{presenter.NewLogger(log), a.Recorder}
	if opts.Presenter != nil {
		ui = append(ui, opts.Presenter)
	}

	insights := insight.New(clk)
	if entries, err := a.Gateway.LoadInsights(); err != nil {
		log.Warn("Warning: failed to load insights", zap.Error(err))
	} else {
		insights.Restore(entries)
	}
	a.Store = store.New(a.Gateway.LoadOrEmpty(), store.Options{
		Clock:     clk,
		Persister: a.Gateway,
		Insights:  insights,
		Presenter: ui,
		Logger:    log,
	})
	a.Snoozes = snooze.NewRegistry(clk)
	a.Monitor = deadline.New(a.Store, a.Snoozes, clk, ui, log, deadline.Config{
		Interval:      cfg.Deadline.Interval,
		InitialDelay:  cfg.Deadline.InitialDelay,
		SnoozeMinutes: cfg.Deadline.SnoozeMinutes,
	})

	rem := opts.Remote
	if rem == nil {
		var err error
		rem, err = a.buildRemote(ctx)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	a.Agent = syncagent.New(a.Store, rem, a.Gateway, clk, ui, log, syncagent.Config{
		Interval: cfg.Sync.Interval,
		Debounce: cfg.Sync.Debounce,
	})
	a.Store.OnChange(a.Agent.OnDataChange)
	return a, nil
}

// buildRemote returns nil when sync isn't set up, which leaves the agent
// offline.
func (a *App) buildRemote(ctx context.Context) (remote.Remote, error) {
	sc := a.Config.Sync
	switch sc.Backend {
	case "redis":
		if sc.RedisAddr == "" {
			return nil, nil
		}
		rem := remote.NewRedis(redis.NewClient(&redis.Options{Addr: sc.RedisAddr}), sc.RedisKey)
		a.closers = append(a.closers, rem.Close)
		return rem, nil
	case "github", "":
		if sc.Owner == "" || sc.Repo == "" {
			return nil, nil
		}
		tok, err := a.Credentials.Load()
		if errors.Is(err, auth.ErrNoCredential) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return remote.NewGitHub(ctx, remote.GitHubConfig{
			Owner:   sc.Owner,
			Repo:    sc.Repo,
			Path:    sc.Path,
			Branch:  sc.Branch,
			APIBase: sc.APIBase,
		}, tok, a.Clock, a.Log), nil
	default:
		return nil, fmt.Errorf("unknown sync backend %q", sc.Backend)
	}
}

// Pull runs one sync before a command touches the data, so a newer remote
// copy is adopted instead of being overwritten by the push on Close. A
// failure is logged and the command carries on with local data.
func (a *App) Pull(ctx context.Context) {
	if !a.Agent.Enabled() {
		return
	}
	if err := a.Agent.SyncData(ctx); err != nil {
		a.Log.Warn("Warning: startup sync failed, using local data", zap.Error(err))
	}
}

// Start launches the deadline monitor and the sync loop.
func (a *App) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Monitor.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.Agent.Run(ctx)
	}()
}

// Wait blocks until the loops started by Start have returned.
func (a *App) Wait() {
	a.wg.Wait()
}

// Import adds every draft to the store and returns how many were added.
func (a *App) Import(drafts []model.Draft) (int, error) {
	added := 0
	for _, d := range drafts {
		if _, err := a.Store.AddTask(d.Title, d.Description, d.Due, d.Importance); err != nil {
			if errors.Is(err, store.ErrValidation) {
				a.Log.Warn("skipping draft", zap.String("source", d.Source), zap.Error(err))
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

// ConfigDir is where credentials and the Google token live.
func (a *App) ConfigDir() (string, error) {
	if a.Config.DataDir != "" {
		return a.Config.DataDir, nil
	}
	return persist.DefaultDir()
}

// MirrorCalendar pushes dated active tasks to the configured Google
// calendar. The authorization URL, if one is needed, goes to prompt.
func (a *App) MirrorCalendar(ctx context.Context, prompt io.Writer) (google.MirrorResult, error) {
	dir, err := a.ConfigDir()
	if err != nil {
		return google.MirrorResult{}, err
	}
	srv, err := auth.NewGoogle(dir, a.Log, prompt).CalendarService(ctx)
	if err != nil {
		return google.MirrorResult{}, err
	}
	idx, err := index.Load(a.KV)
	if err != nil {
		return google.MirrorResult{}, err
	}
	client, err := google.NewClient(ctx, srv, a.Config.Calendar, idx, a.Log)
	if err != nil {
		return google.MirrorResult{}, err
	}
	return client.Mirror(ctx, a.Store.Active(), a.Clock.Now())
}

// Close flushes a pending sync and releases storage and connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Agent != nil {
		if err := a.Agent.Flush(ctx); err != nil {
			a.Log.Warn("Warning: final sync failed", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
