// Package deadline watches active tasks for imminent or just-missed due
// dates and raises at most one alert at a time.
package deadline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
	"github.com/harrisonrobin/eisen/pkg/snooze"
)

const (
	// Ahead is how far before the due instant a task starts alerting.
	Ahead = 2 * time.Hour
	// Grace is how long after the due instant it keeps alerting.
	Grace = time.Hour
)

// Source is the slice of the task store the monitor reads.
type Source interface {
	Active() []model.Task
}

type Config struct {
	Interval      time.Duration
	InitialDelay  time.Duration
	SnoozeMinutes int
}

func DefaultConfig() Config {
	return Config{Interval: 30 * time.Second, InitialDelay: 2 * time.Second, SnoozeMinutes: 15}
}

type Monitor struct {
	mu       sync.Mutex
	source   Source
	snoozes  *snooze.Registry
	clock    clock.Clock
	ui       presenter.Presenter
	log      *zap.Logger
	cfg      Config
	alerting bool
	shown    []model.Task
}

func New(source Source, snoozes *snooze.Registry, clk clock.Clock, ui presenter.Presenter, log *zap.Logger, cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.SnoozeMinutes <= 0 {
		cfg.SnoozeMinutes = def.SnoozeMinutes
	}
	if clk == nil {
		clk = clock.System
	}
	if snoozes == nil {
		snoozes = snooze.NewRegistry(clk)
	}
	if ui == nil {
		ui = presenter.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		source:  source,
		snoozes: snoozes,
		clock:   clk,
		ui:      ui,
		log:     log.Named("deadline"),
		cfg:     cfg,
	}
}

// Qualifies reports whether t should alert at now, ignoring snoozes.
func Qualifies(t model.Task, now time.Time) bool {
	if t.Quadrant != model.UrgentImportant {
		return false
	}
	due := t.Due()
	if due == nil {
		return false
	}
	d := due.Sub(now)
	return d > -Grace && d <= Ahead
}

// Scan returns the tasks that currently qualify. When the monitor is idle
// and the set is non-empty it opens an alert for them; while an alert is
// open nothing new is shown.
func (m *Monitor) Scan() []model.Task {
	now := m.clock.Now()
	var due []model.Task
	for _, t := range m.source.Active() {
		if Qualifies(t, now) && !m.snoozes.IsSnoozed(t.ID, now) {
			due = append(due, t)
		}
	}

	m.mu.Lock()
	open := !m.alerting && len(due) > 0
	if open {
		m.alerting = true
		m.shown = due
	}
	m.mu.Unlock()

	if open {
		m.log.Info("deadline alert", zap.Int("tasks", len(due)))
		m.ui.DeadlineAlert(due)
	}
	return due
}

func (m *Monitor) Alerting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerting
}

// Shown returns the tasks of the open alert.
func (m *Monitor) Shown() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, len(m.shown))
	copy(out, m.shown)
	return out
}

// Dismiss closes the alert. The tasks will alert again on a later scan.
func (m *Monitor) Dismiss() {
	if m.close() == nil {
		return
	}
	m.ui.DeadlineCleared()
}

// SnoozeAll silences every task of the open alert and closes it.
func (m *Monitor) SnoozeAll() int {
	shown := m.close()
	if shown == nil {
		return 0
	}
	for _, t := range shown {
		m.snoozes.Snooze(t.ID, m.cfg.SnoozeMinutes)
	}
	m.ui.DeadlineCleared()
	m.ui.Notify(fmt.Sprintf("Deadline alerts snoozed for %d minutes", m.cfg.SnoozeMinutes), presenter.Info)
	return len(shown)
}

func (m *Monitor) close() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alerting {
		return nil
	}
	shown := m.shown
	m.alerting = false
	m.shown = nil
	return shown
}

// Run scans once after the initial delay and then on every interval until
// ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	timer := time.NewTimer(m.cfg.InitialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	m.Scan()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan()
		}
	}
}

// Describe renders how far t is from its due instant.
func Describe(t model.Task, now time.Time) string {
	due := t.Due()
	if due == nil {
		return ""
	}
	d := due.Sub(now)
	if d < 0 {
		return "OVERDUE!"
	}
	hours := int(d / time.Hour)
	mins := int((d % time.Hour) / time.Minute)
	if hours < 1 {
		return fmt.Sprintf("Due in %d minutes", mins)
	}
	return fmt.Sprintf("Due in %dh %dm", hours, mins)
}
