package google

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/eisen/pkg/index"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/util"
)

// CalendarClient mirrors dated tasks into one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	log        *zap.Logger
}

func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, log *zap.Logger) *CalendarClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, log: log.Named("calendar")}
}

// SyncEvent creates the task's event or patches the existing one.
func (c *CalendarClient) SyncEvent(ctx context.Context, task model.Task, now time.Time) (*calendar.Event, bool, error) {
	event, err := util.ConvertTaskToCalendarEvent(task, now)
	if err != nil {
		return nil, false, err
	}

	var existingEvent *calendar.Event
	if c.index != nil {
		if eventID := c.index.Get(task.ID); eventID != "" {
			existingEvent, err = c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err != nil || existingEvent.Status == "cancelled" {
				existingEvent = nil
			}
		}
	}
	if existingEvent == nil {
		existingEvent, err = c.GetEventByTaskID(ctx, task.ID)
		if err != nil {
			return nil, false, fmt.Errorf("error searching for event: %w", err)
		}
	}

	if existingEvent != nil {
		patch, err := util.EventNeedsUpdate(existingEvent, event)
		if err != nil {
			c.log.Warn("could not compare task with its calendar event", zap.Int("id", task.ID), zap.Error(err))
			return nil, false, err
		}
		if c.index != nil {
			c.index.Set(task.ID, existingEvent.Id)
		}
		if patch == nil {
			return existingEvent, false, nil
		}
		updated, err := c.PatchEvent(ctx, existingEvent.Id, patch)
		return updated, true, err
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, false, err
	}
	if c.index != nil {
		c.index.Set(task.ID, created.Id)
	}
	return created, true, nil
}

func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// GetEventByTaskID searches for the event carrying the task id in its
// private extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID int) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.TaskIDProperty, strconv.Itoa(taskID))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// MirrorResult counts what a Mirror pass did.
type MirrorResult struct {
	Synced  int `json:"synced"`
	Changed int `json:"changed"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Mirror brings the calendar in line with the active tasks: every dated
// task gets an event, indexed events of tasks that are gone or undated are
// deleted. Per-task failures are logged and counted, not returned.
func (c *CalendarClient) Mirror(ctx context.Context, tasks []model.Task, now time.Time) (MirrorResult, error) {
	var res MirrorResult
	keep := make(map[int]bool)
	for _, t := range tasks {
		if t.Due() == nil {
			continue
		}
		keep[t.ID] = true
		_, changed, err := c.SyncEvent(ctx, t, now)
		if err != nil {
			c.log.Warn("Sync: error syncing event", zap.Int("id", t.ID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Synced++
		if changed {
			res.Changed++
		}
	}

	if c.index != nil {
		for _, id := range c.index.TaskIDs() {
			if keep[id] {
				continue
			}
			if err := c.DeleteEvent(ctx, c.index.Get(id)); err != nil {
				c.log.Warn("Sweep: error deleting event", zap.Int("id", id), zap.Error(err))
				res.Failed++
				continue
			}
			c.index.Remove(id)
			res.Deleted++
		}
		if err := c.index.Save(); err != nil {
			return res, fmt.Errorf("failed to save calendar index: %w", err)
		}
	}
	return res, nil
}
