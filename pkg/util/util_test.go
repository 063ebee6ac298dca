package util

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/eisen/pkg/model"
)

func dueTask(due time.Time) model.Task {
	return model.Task{
		ID:          12,
		Title:       "Test Task",
		Description: "bring the receipts",
		DueDate:     &model.Timestamp{Time: due},
		Importance:  model.Important,
		Quadrant:    model.UrgentImportant,
		Priority:    model.Critical,
	}
}

func TestConvertTaskToCalendarEvent(t *testing.T) {
	deadline := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	event, err := ConvertTaskToCalendarEvent(dueTask(deadline), deadline.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ConvertTaskToCalendarEvent failed: %v", err)
	}

	if event.ExtendedProperties == nil || event.ExtendedProperties.Private == nil {
		t.Fatal("ExtendedProperties or Private map is nil")
	}
	if val := event.ExtendedProperties.Private[TaskIDProperty]; val != "12" {
		t.Errorf("Expected %s 12, got %v", TaskIDProperty, val)
	}
	if event.Summary != "Test Task" {
		t.Errorf("Expected plain summary, got %q", event.Summary)
	}
	if event.ColorId != "11" {
		t.Errorf("Expected tomato colour for urgent-important, got %q", event.ColorId)
	}
	if event.Start.DateTime != "2023-01-01T12:00:00Z" || event.End.DateTime != "2023-01-01T12:30:00Z" {
		t.Errorf("Unexpected slot %s - %s", event.Start.DateTime, event.End.DateTime)
	}
	if !strings.Contains(event.Description, "Do First (Urgent + Important)") {
		t.Errorf("Expected description to name the quadrant, got: %s", event.Description)
	}
	if !strings.Contains(event.Description, "bring the receipts") {
		t.Errorf("Expected description to contain notes, got: %s", event.Description)
	}
	if id, ok := GetTaskIDFromEventDescription(event.Description); !ok || id != 12 {
		t.Errorf("Expected id 12 from description, got %d", id)
	}
}

func TestOverdueTaskIsFlagged(t *testing.T) {
	deadline := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	event, err := ConvertTaskToCalendarEvent(dueTask(deadline), deadline.Add(time.Minute))
	if err != nil {
		t.Fatalf("ConvertTaskToCalendarEvent failed: %v", err)
	}
	if event.Summary != "! Test Task" {
		t.Errorf("Expected overdue prefix, got %q", event.Summary)
	}
}

func TestConvertUndatedTaskFails(t *testing.T) {
	if _, err := ConvertTaskToCalendarEvent(model.Task{ID: 1, Title: "x"}, time.Now()); err == nil {
		t.Error("expected an error for a task without due date")
	}
}

func TestEventNeedsUpdate(t *testing.T) {
	deadline := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	target, _ := ConvertTaskToCalendarEvent(dueTask(deadline), deadline.Add(-time.Hour))
	same, _ := ConvertTaskToCalendarEvent(dueTask(deadline), deadline.Add(-time.Hour))

	patch, err := EventNeedsUpdate(same, target)
	if err != nil {
		t.Fatalf("EventNeedsUpdate failed: %v", err)
	}
	if patch != nil {
		t.Errorf("expected no patch, got %+v", patch)
	}

	moved := dueTask(deadline.Add(time.Hour))
	moved.Quadrant = model.NotUrgentImportant
	existing, _ := ConvertTaskToCalendarEvent(moved, deadline.Add(-time.Hour))
	patch, err = EventNeedsUpdate(existing, target)
	if err != nil {
		t.Fatalf("EventNeedsUpdate failed: %v", err)
	}
	if patch == nil {
		t.Fatal("expected a patch")
	}
	if patch.ColorId != "11" || patch.Start == nil || patch.Summary != "" {
		t.Errorf("unexpected patch %+v", patch)
	}
}

func TestTaskIDFromEvent(t *testing.T) {
	ev := &calendar.Event{Description: "ID: 33\n"}
	if id, ok := TaskIDFromEvent(ev); !ok || id != 33 {
		t.Errorf("expected 33 from description, got %d", id)
	}
	ev.ExtendedProperties = &calendar.EventExtendedProperties{Private: map[string]string{TaskIDProperty: "7"}}
	if id, ok := TaskIDFromEvent(ev); !ok || id != 7 {
		t.Errorf("expected 7 from property, got %d", id)
	}
	if _, ok := TaskIDFromEvent(&calendar.Event{}); ok {
		t.Error("expected no id")
	}
}
