package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/quadrant"
)

// TaskIDProperty is the private extended property carrying the task id.
const TaskIDProperty = "eisen_id"

// EventDuration is the slot length given to a task at its due time.
const EventDuration = 30 * time.Minute

// Google Calendar event colour ids per quadrant.
var quadrantColors = map[model.Quadrant]string{
	model.UrgentImportant:       "11", // tomato
	model.NotUrgentImportant:    "9",  // blueberry
	model.UrgentNotImportant:    "5",  // banana
	model.NotUrgentNotImportant: "8",  // graphite
}

// ColorFor returns the event colour of a quadrant, lavender when unknown.
func ColorFor(q model.Quadrant) string {
	if c, ok := quadrantColors[q]; ok {
		return c
	}
	return "1"
}

// EventNeedsUpdate returns a patch event if the fields the mirror owns
// differ between the existing event and the freshly converted one.
func EventNeedsUpdate(existingEvent *calendar.Event, targetEvent *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existingEvent.Summary != targetEvent.Summary {
		patch.Summary = targetEvent.Summary
		needsUpdate = true
	}
	if existingEvent.Description != targetEvent.Description {
		patch.Description = targetEvent.Description
		needsUpdate = true
	}
	if existingEvent.ColorId != targetEvent.ColorId {
		patch.ColorId = targetEvent.ColorId
		needsUpdate = true
	}

	if existingEvent.Start == nil || existingEvent.End == nil {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		return patch, nil
	}
	existingStartTime, err := time.Parse(time.RFC3339, existingEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	targetStartTime, err := time.Parse(time.RFC3339, targetEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	existingEndTime, err := time.Parse(time.RFC3339, existingEvent.End.DateTime)
	if err != nil {
		return nil, err
	}
	targetEndTime, err := time.Parse(time.RFC3339, targetEvent.End.DateTime)
	if err != nil {
		return nil, err
	}
	if !existingStartTime.Equal(targetStartTime) || !existingEndTime.Equal(targetEndTime) {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

// ConvertTaskToCalendarEvent builds the event that mirrors a dated task.
// Overdue tasks get a "!" prefix.
func ConvertTaskToCalendarEvent(task model.Task, now time.Time) (*calendar.Event, error) {
	due := task.Due()
	if due == nil {
		return nil, fmt.Errorf("task %d has no due date", task.ID)
	}

	summary := task.Title
	if due.Before(now) {
		summary = "! " + task.Title
	}

	var desc strings.Builder
	desc.WriteString(fmt.Sprintf("Quadrant: %s\n", quadrant.Name(task.Quadrant)))
	desc.WriteString(fmt.Sprintf("Priority: %s\n", task.Priority))
	desc.WriteString(fmt.Sprintf("ID: %d\n", task.ID))
	if task.Description != "" {
		desc.WriteString("\nNotes:\n")
		desc.WriteString(task.Description)
		desc.WriteString("\n")
	}

	start := *due
	end := start.Add(EventDuration)
	return &calendar.Event{
		Summary:     summary,
		ColorId:     ColorFor(task.Quadrant),
		Description: desc.String(),
		Start:       &calendar.EventDateTime{DateTime: start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: strconv.Itoa(task.ID)},
		},
	}, nil
}

var idLine = regexp.MustCompile(`ID: (\d+)`)

// GetTaskIDFromEventDescription parses the task id from an event
// description written by ConvertTaskToCalendarEvent.
func GetTaskIDFromEventDescription(description string) (int, bool) {
	m := idLine.FindStringSubmatch(description)
	if len(m) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// TaskIDFromEvent reads the task id from the event's private property,
// falling back to its description.
func TaskIDFromEvent(ev *calendar.Event) (int, bool) {
	if ev.ExtendedProperties != nil {
		if v, ok := ev.ExtendedProperties.Private[TaskIDProperty]; ok {
			if id, err := strconv.Atoi(v); err == nil {
				return id, true
			}
		}
	}
	return GetTaskIDFromEventDescription(ev.Description)
}
