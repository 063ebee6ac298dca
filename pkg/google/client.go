package google

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/eisen/pkg/index"
)

// NewClient resolves calendarName on srv and returns a client for it.
func NewClient(ctx context.Context, srv *calendar.Service, calendarName string, idx *index.EventIndex, log *zap.Logger) (*CalendarClient, error) {
	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	var calendarID string
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			calendarID = item.Id
			break
		}
	}
	if calendarID == "" {
		return nil, fmt.Errorf("calendar '%s' not found", calendarName)
	}
	return NewCalendarClient(srv, calendarID, idx, log), nil
}
