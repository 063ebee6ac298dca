// Package presenter is the narrow interface the core uses to tell a front
// end (CLI, HTTP UI, logs) that something changed.
package presenter

import (
	"sync"

	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/model"
)

type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Error   Severity = "error"
)

type Presenter interface {
	TaskRendered(task model.Task)
	QuadrantCountChanged(q model.Quadrant, count int)
	StatsChanged(stats model.Stats)
	Notify(message string, severity Severity)
	Insight(entries []string)
	DeadlineAlert(tasks []model.Task)
	DeadlineCleared()
	SyncStatus(state string)
}

// Nop discards every callback.
type Nop struct{}

func (Nop) TaskRendered(model.Task)                  {}
func (Nop) QuadrantCountChanged(model.Quadrant, int) {}
func (Nop) StatsChanged(model.Stats)                 {}
func (Nop) Notify(string, Severity)                  {}
func (Nop) Insight([]string)                         {}
func (Nop) DeadlineAlert([]model.Task)               {}
func (Nop) DeadlineCleared()                         {}
func (Nop) SyncStatus(string)                        {}

// Logger writes callbacks to a zap logger. Rendering noise goes to debug,
// notifications and alerts to info/warn.
type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.Named("ui")}
}

func (l *Logger) TaskRendered(task model.Task) {
	l.log.Debug("task rendered", zap.Int("id", task.ID), zap.String("quadrant", string(task.Quadrant)))
}

func (l *Logger) QuadrantCountChanged(q model.Quadrant, count int) {
	l.log.Debug("quadrant count", zap.String("quadrant", string(q)), zap.Int("count", count))
}

func (l *Logger) StatsChanged(stats model.Stats) {
	l.log.Debug("stats", zap.Int("total", stats.Total), zap.Int("completion_percent", stats.CompletionPercent))
}

func (l *Logger) Notify(message string, severity Severity) {
	if severity == Error {
		l.log.Warn(message)
		return
	}
	l.log.Info(message, zap.String("severity", string(severity)))
}

func (l *Logger) Insight(entries []string) {
	if len(entries) > 0 {
		l.log.Debug("insight", zap.String("latest", entries[0]))
	}
}

func (l *Logger) DeadlineAlert(tasks []model.Task) {
	for _, t := range tasks {
		l.log.Warn("deadline approaching", zap.Int("id", t.ID), zap.String("title", t.Title))
	}
}

func (l *Logger) DeadlineCleared() {
	l.log.Info("deadline alert closed")
}

func (l *Logger) SyncStatus(state string) {
	l.log.Debug("sync status", zap.String("state", state))
}

// Notification is one recorded Notify call.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Recorder keeps every callback it receives. The HTTP front exposes its
// notifications; tests use it to assert on emitted events.
type Recorder struct {
	mu            sync.Mutex
	Rendered      []model.Task
	Counts        map[model.Quadrant]int
	Stats         []model.Stats
	Notifications []Notification
	Insights      [][]string
	Alerts        [][]model.Task
	Cleared       int
	SyncStates    []string
}

func NewRecorder() *Recorder {
	return &Recorder{Counts: make(map[model.Quadrant]int)}
}

func (r *Recorder) TaskRendered(task model.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rendered = append(r.Rendered, task)
}

func (r *Recorder) QuadrantCountChanged(q model.Quadrant, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts[q] = count
}

func (r *Recorder) StatsChanged(stats model.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stats = append(r.Stats, stats)
}

func (r *Recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, Notification{Message: message, Severity: severity})
}

func (r *Recorder) Insight(entries []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Insights = append(r.Insights, entries)
}

func (r *Recorder) DeadlineAlert(tasks []model.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, tasks)
}

func (r *Recorder) DeadlineCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cleared++
}

func (r *Recorder) SyncStatus(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SyncStates = append(r.SyncStates, state)
}

// LastNotification returns the most recent Notify call.
func (r *Recorder) LastNotification() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Notifications) == 0 {
		return Notification{}, false
	}
	return r.Notifications[len(r.Notifications)-1], true
}

// NotificationCount is safe to call while callbacks are arriving.
func (r *Recorder) NotificationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Notifications)
}

// Recent returns up to n notifications, newest first.
func (r *Recorder) Recent(n int) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0, n)
	for i := len(r.Notifications) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.Notifications[i])
	}
	return out
}

// Multi fans callbacks out to several presenters.
type Multi []Presenter

func (m Multi) TaskRendered(task model.Task) {
	for _, p := range m {
		p.TaskRendered(task)
	}
}

func (m Multi) QuadrantCountChanged(q model.Quadrant, count int) {
	for _, p := range m {
		p.QuadrantCountChanged(q, count)
	}
}

func (m Multi) StatsChanged(stats model.Stats) {
	for _, p := range m {
		p.StatsChanged(stats)
	}
}

func (m Multi) Notify(message string, severity Severity) {
	for _, p := range m {
		p.Notify(message, severity)
	}
}

func (m Multi) Insight(entries []string) {
	for _, p := range m {
		p.Insight(entries)
	}
}

func (m Multi) DeadlineAlert(tasks []model.Task) {
	for _, p := range m {
		p.DeadlineAlert(tasks)
	}
}

func (m Multi) DeadlineCleared() {
	for _, p := range m {
		p.DeadlineCleared()
	}
}

func (m Multi) SyncStatus(state string) {
	for _, p := range m {
		p.SyncStatus(state)
	}
}
