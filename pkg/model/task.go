package model

import "time"

type Quadrant string

const (
	UrgentImportant       Quadrant = "urgent-important"
	NotUrgentImportant    Quadrant = "not-urgent-important"
	UrgentNotImportant    Quadrant = "urgent-not-important"
	NotUrgentNotImportant Quadrant = "not-urgent-not-important"
)

type Priority string

const (
	Critical Priority = "Critical"
	High     Priority = "High"
	Medium   Priority = "Medium"
	Low      Priority = "Low"
)

type Importance string

const (
	Important    Importance = "important"
	NotImportant Importance = "not-important"
)

// Task is an active entry in the matrix. Quadrant and Priority are cached:
// they are written on creation, move and recalculation only.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *Timestamp `json:"dueDate"`
	Importance  Importance `json:"importance"`
	Quadrant    Quadrant   `json:"quadrant"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Due returns the due instant or nil when the task has none.
func (t Task) Due() *time.Time {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return nil
	}
	due := t.DueDate.Time
	return &due
}

// CompletedTask is a task that was moved out of the active set.
type CompletedTask struct {
	Task
	CompletedAt time.Time `json:"completedAt"`
}

// Data is the document kept in the local storage slot.
type Data struct {
	Tasks          []Task          `json:"tasks"`
	CompletedTasks []CompletedTask `json:"completedTasks"`
	TaskIDCounter  int             `json:"taskIdCounter"`
}

// Empty returns the first-run document.
func Empty() Data {
	return Data{Tasks: []Task{}, CompletedTasks: []CompletedTask{}, TaskIDCounter: 1}
}

// Normalize fills the defaults a missing or partial document leaves out.
func (d Data) Normalize() Data {
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.CompletedTasks == nil {
		d.CompletedTasks = []CompletedTask{}
	}
	if d.TaskIDCounter < 1 {
		d.TaskIDCounter = 1
	}
	return d
}

// Clone deep-copies the slices so callers can't alias store state.
func (d Data) Clone() Data {
	out := Data{
		Tasks:          make([]Task, len(d.Tasks)),
		CompletedTasks: make([]CompletedTask, len(d.CompletedTasks)),
		TaskIDCounter:  d.TaskIDCounter,
	}
	copy(out.Tasks, d.Tasks)
	copy(out.CompletedTasks, d.CompletedTasks)
	return out
}

// Snapshot is the unit exchanged with a remote store.
type Snapshot struct {
	Data
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// Modified returns LastModified, or the zero time when it was never set.
func (s Snapshot) Modified() time.Time {
	if s.LastModified == nil {
		return time.Time{}
	}
	return *s.LastModified
}

// Stats feeds the analytics view.
type Stats struct {
	Active            int              `json:"active"`
	Completed         int              `json:"completed"`
	Total             int              `json:"total"`
	CompletionPercent int              `json:"completionPercent"`
	Counts            map[Quadrant]int `json:"counts"`
	FocusArea         Quadrant         `json:"focusArea,omitempty"`
	FocusText         string           `json:"focusText"`
}

// Draft is a task about to be added, as produced by an importer.
type Draft struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Due         *time.Time `json:"dueDate" yaml:"dueDate"`
	Importance  Importance `json:"importance" yaml:"importance"`
	Source      string     `json:"source,omitempty" yaml:"source,omitempty"`
}
