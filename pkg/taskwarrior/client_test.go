package taskwarrior

import (
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

func TestParseTask(t *testing.T) {
	input := `{
		"uuid": "f45a05b3-c12e-42e5-9c9c-333333333333",
		"description": "Buy milk",
		"status": "pending",
		"due": "20230101T120000Z",
		"project": "Groceries",
		"tags": ["buy", "food"],
		"annotations": [
			{"entry": "20230101T120500Z", "description": "Don't forget almond milk"}
		]
	}`

	client := NewClient()
	task, err := client.ParseTask(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTask failed: %v", err)
	}

	if task.UUID != "f45a05b3-c12e-42e5-9c9c-333333333333" {
		t.Errorf("Expected UUID f45a05b3-c12e-42e5-9c9c-333333333333, got %s", task.UUID)
	}
	if task.Description != "Buy milk" {
		t.Errorf("Expected Description 'Buy milk', got '%s'", task.Description)
	}
	if len(task.Annotations) != 1 {
		t.Errorf("Expected 1 annotation, got %d", len(task.Annotations))
	}
	expectedDue, _ := time.Parse(time.RFC3339, "2023-01-01T12:00:00Z")
	if !task.Due.Time.Equal(expectedDue) {
		t.Errorf("Expected Due %v, got %v", expectedDue, task.Due.Time)
	}

	draft := task.ToDraft()
	if draft.Title != "Buy milk" || draft.Importance != model.Important {
		t.Errorf("unexpected draft %+v", draft)
	}
	if draft.Due == nil || !draft.Due.Equal(expectedDue) {
		t.Errorf("Expected draft due %v, got %v", expectedDue, draft.Due)
	}
	if draft.Description != "project:Groceries #buy #food\n‣ Don't forget almond milk" {
		t.Errorf("unexpected description %q", draft.Description)
	}
}

func TestParseTasksExportArray(t *testing.T) {
	input := `[
{"uuid":"a","description":"Low one","status":"pending","priority":"L","scheduled":"20240505T090000Z"},
{"uuid":"b","description":"Finished","status":"completed"},
{"uuid":"c","description":"Parked","status":"waiting","priority":"H"}
]`
	tasks, err := NewClient().ParseTasks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}

	drafts := Drafts(tasks)
	if len(drafts) != 2 {
		t.Fatalf("expected 2 open drafts, got %d", len(drafts))
	}
	if drafts[0].Importance != model.NotImportant {
		t.Errorf("priority L should be not important")
	}
	if drafts[0].Due == nil || drafts[0].Due.Hour() != 9 {
		t.Errorf("expected scheduled fallback, got %v", drafts[0].Due)
	}
	if drafts[1].Title != "Parked" || drafts[1].Due != nil {
		t.Errorf("unexpected draft %+v", drafts[1])
	}
}

func TestParseTasksObjectStream(t *testing.T) {
	input := "{\"uuid\":\"a\",\"description\":\"one\",\"status\":\"pending\"}\n{\"uuid\":\"b\",\"description\":\"two\",\"status\":\"pending\"}\n"
	tasks, err := NewClient().ParseTasks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[1].Description != "two" {
		t.Errorf("unexpected tasks %+v", tasks)
	}

	if _, err := NewClient().ParseTasks(strings.NewReader("{broken")); err == nil {
		t.Error("expected a decode error")
	}
}

func TestCustomTimeRoundTrip(t *testing.T) {
	var ct CustomTime
	if err := ct.UnmarshalJSON([]byte(`"20240102T030405Z"`)); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	out, err := ct.MarshalJSON()
	if err != nil || string(out) != `"20240102T030405Z"` {
		t.Errorf("unexpected marshal %s (%v)", out, err)
	}
	if err := ct.UnmarshalJSON([]byte(`"yesterday"`)); err == nil {
		t.Error("expected a parse error")
	}
}
