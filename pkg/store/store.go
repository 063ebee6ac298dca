// Package store owns the active and completed task sets and every mutation
// on them.
//
// All operations serialise on a single mutex. A mutation persists through
// the Persister while holding it; presenter callbacks and change listeners
// run after it is released, so they may call back into the store.
//
// Operations on unknown ids are silent no-ops. Input that can't be applied
// (an empty title, an unknown quadrant) returns a *ValidationError and
// leaves state untouched.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/insight"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
	"github.com/harrisonrobin/eisen/pkg/quadrant"
)

type Options struct {
	Clock     clock.Clock
	Persister Persister
	Insights  *insight.Log
	Presenter presenter.Presenter
	Logger    *zap.Logger
}

type Store struct {
	mu        sync.Mutex
	data      model.Data
	clock     clock.Clock
	persister Persister
	insights  *insight.Log
	ui        presenter.Presenter
	log       *zap.Logger
	listeners []func()
}

func New(initial model.Data, opts Options) *Store {
	s := &Store{
		data:      initial.Normalize().Clone(),
		clock:     opts.Clock,
		persister: opts.Persister,
		insights:  opts.Insights,
		ui:        opts.Presenter,
		log:       opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.System
	}
	if s.persister == nil {
		s.persister = NewMemoryPersister()
	}
	if s.insights == nil {
		s.insights = insight.New(s.clock)
	}
	if s.ui == nil {
		s.ui = presenter.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("store")
	return s
}

// OnChange registers fn to run after every persisted local mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) Insights() *insight.Log { return s.insights }

// AddTask creates a task, classifying it at the current instant.
func (s *Store) AddTask(title, description string, due *time.Time, importance model.Importance) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		s.ui.Notify("Please enter a task title", presenter.Error)
		return model.Task{}, &ValidationError{Field: "title", Message: "task title is required"}
	}
	if importance != model.NotImportant {
		importance = model.Important
	}

	s.mu.Lock()
	now := s.clock.Now()
	q := quadrant.Classify(due, importance, now)
	task := model.Task{
		ID:          s.data.TaskIDCounter,
		Title:       title,
		Description: strings.TrimSpace(description),
		DueDate:     model.NewTimestamp(due),
		Importance:  importance,
		Quadrant:    q,
		Priority:    quadrant.PriorityFor(q),
		CreatedAt:   now,
	}
	s.data.TaskIDCounter++
	s.data.Tasks = append(s.data.Tasks, task)
	ev := s.commit(now, "Added task to "+quadrant.Short(q))
	ev.rendered = []model.Task{task}
	ev.note("Task added successfully!", presenter.Success)
	s.mu.Unlock()

	s.dispatch(ev)
	return task, nil
}

// CompleteTask moves the task to the completed set.
func (s *Store) CompleteTask(id int) (model.CompletedTask, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.CompletedTask{}, false
	}
	now := s.clock.Now()
	done := model.CompletedTask{Task: s.data.Tasks[i], CompletedAt: now}
	s.data.Tasks = append(s.data.Tasks[:i], s.data.Tasks[i+1:]...)
	s.data.CompletedTasks = append(s.data.CompletedTasks, done)
	ev := s.commit(now, "Completed "+done.Title)
	ev.note("Task completed! 🎉", presenter.Success)
	s.mu.Unlock()

	s.dispatch(ev)
	return done, true
}

// DeleteTask removes an active task. Completed tasks can't be deleted.
func (s *Store) DeleteTask(id int) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	task := s.data.Tasks[i]
	s.data.Tasks = append(s.data.Tasks[:i], s.data.Tasks[i+1:]...)
	ev := s.commit(s.clock.Now(), "Deleted "+task.Title)
	ev.note("Task deleted", presenter.Info)
	s.mu.Unlock()

	s.dispatch(ev)
	return true
}

// EditTask replaces title and description. Without a non-empty title the
// whole edit is skipped. Classification is left alone.
func (s *Store) EditTask(id int, title, description string) (model.Task, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, false
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false
	}
	s.data.Tasks[i].Title = title
	s.data.Tasks[i].Description = strings.TrimSpace(description)
	task := s.data.Tasks[i]
	ev := s.commit(s.clock.Now(), "Edited "+task.Title)
	ev.rendered = []model.Task{task}
	ev.note("Task updated!", presenter.Success)
	s.mu.Unlock()

	s.dispatch(ev)
	return task, true
}

// MoveTask manually re-files a task. Priority follows the target quadrant
// even if the due date would classify it elsewhere.
func (s *Store) MoveTask(id int, target model.Quadrant) (model.Task, bool, error) {
	if !quadrant.Valid(target) {
		return model.Task{}, false, &ValidationError{Field: "quadrant", Message: fmt.Sprintf("unknown quadrant %q", target)}
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 || s.data.Tasks[i].Quadrant == target {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	s.data.Tasks[i].Quadrant = target
	s.data.Tasks[i].Priority = quadrant.PriorityFor(target)
	task := s.data.Tasks[i]
	ev := s.commit(s.clock.Now(), "Moved task to "+quadrant.Short(target))
	ev.rendered = []model.Task{task}
	ev.note("Task moved to "+quadrant.Name(target), presenter.Success)
	s.mu.Unlock()

	s.dispatch(ev)
	return task, true, nil
}

// RecalculateUrgency reclassifies every active task at the current instant
// and returns how many changed quadrant. Priority is re-derived with the
// quadrant so the two never disagree after a recalculation.
func (s *Store) RecalculateUrgency() int {
	s.mu.Lock()
	now := s.clock.Now()
	changed := 0
	for i := range s.data.Tasks {
		t := &s.data.Tasks[i]
		q := quadrant.Classify(t.Due(), t.Importance, now)
		if q != t.Quadrant {
			t.Quadrant = q
			changed++
		}
		t.Priority = quadrant.PriorityFor(t.Quadrant)
	}
	ev := s.commit(now, fmt.Sprintf("Recalculated urgency (%d changed)", changed))
	ev.rendered = s.activeLocked()
	ev.note("Urgency recalculated based on current time limits.", presenter.Info)
	s.mu.Unlock()

	s.dispatch(ev)
	return changed
}

// ClearAll drops every active task. Completed tasks and the insight log are
// kept. Asking the user first is the caller's job.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	n := len(s.data.Tasks)
	s.data.Tasks = []model.Task{}
	ev := s.commit(s.clock.Now(), fmt.Sprintf("Cleared %d tasks", n))
	ev.note("All tasks cleared", presenter.Info)
	s.mu.Unlock()

	s.dispatch(ev)
	return n
}

// Active returns the active tasks in insertion order.
func (s *Store) Active() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Completed returns completed tasks, most recently completed first.
func (s *Store) Completed() []model.CompletedTask {
	s.mu.Lock()
	out := make([]model.CompletedTask, len(s.data.CompletedTasks))
	copy(out, s.data.CompletedTasks)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}

func (s *Store) Get(id int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.data.Tasks[i], true
	}
	return model.Task{}, false
}

// Data returns a copy of the whole document.
func (s *Store) Data() model.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *Store) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Store) Counts() map[model.Quadrant]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

func (s *Store) indexOf(id int) int {
	for i, t := range s.data.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) activeLocked() []model.Task {
	out := make([]model.Task, len(s.data.Tasks))
	copy(out, s.data.Tasks)
	return out
}

func (s *Store) countsLocked() map[model.Quadrant]int {
	counts := make(map[model.Quadrant]int, 4)
	for _, q := range quadrant.All() {
		counts[q] = 0
	}
	for _, t := range s.data.Tasks {
		counts[t.Quadrant]++
	}
	return counts
}

func (s *Store) statsLocked() model.Stats {
	st := model.Stats{
		Active:    len(s.data.Tasks),
		Completed: len(s.data.CompletedTasks),
		Counts:    s.countsLocked(),
	}
	st.Total = st.Active + st.Completed
	if st.Total > 0 {
		st.CompletionPercent = int(float64(st.Completed)/float64(st.Total)*100 + 0.5)
	}
	best := 0
	for _, q := range quadrant.All() {
		if st.Counts[q] > best {
			best = st.Counts[q]
			st.FocusArea = q
		}
	}
	if best > 0 {
		st.FocusText = "Most tasks in: " + quadrant.Name(st.FocusArea)
	} else {
		st.FocusText = "No focus area data yet"
	}
	return st
}

// events is what a mutation wants the outside world to hear about.
type events struct {
	rendered  []model.Task
	counts    map[model.Quadrant]int
	stats     model.Stats
	insights  []string
	message   string
	severity  presenter.Severity
	unsaved   bool
	listeners []func()
}

func (e *events) note(message string, severity presenter.Severity) {
	e.message = message
	e.severity = severity
}

// commit persists the current document and records an insight. Callers
// hold s.mu.
func (s *Store) commit(now time.Time, insightMsg string) *events {
	ev := &events{listeners: s.listeners}
	if _, err := s.persister.Save(s.data.Clone(), now); err != nil {
		s.log.Error("failed to persist tasks", zap.Error(err))
		ev.unsaved = true
	}
	if insightMsg != "" {
		ev.insights = s.recordInsight(insightMsg)
	}
	ev.counts = s.countsLocked()
	ev.stats = s.statsLocked()
	return ev
}

// recordInsight appends to the log, keeps it durable when the persister
// can, and returns the rendered log. Callers hold s.mu.
func (s *Store) recordInsight(message string) []string {
	s.insights.Append(message)
	if saver, ok := s.persister.(InsightSaver); ok {
		if err := saver.SaveInsights(s.insights.Entries()); err != nil {
			s.log.Warn("Warning: failed to save insights", zap.Error(err))
		}
	}
	return s.insights.Render()
}

func (s *Store) dispatch(ev *events) {
	for _, t := range ev.rendered {
		s.ui.TaskRendered(t)
	}
	for _, q := range quadrant.All() {
		s.ui.QuadrantCountChanged(q, ev.counts[q])
	}
	s.ui.StatsChanged(ev.stats)
	if ev.insights != nil {
		s.ui.Insight(ev.insights)
	}
	if ev.message != "" {
		s.ui.Notify(ev.message, ev.severity)
	}
	if ev.unsaved {
		// The persisted stamp is older than memory; a sync now could
		// adopt a remote copy over the unsaved edit.
		s.ui.Notify("Could not save tasks", presenter.Error)
		return
	}
	for _, fn := range ev.listeners {
		fn()
	}
}
