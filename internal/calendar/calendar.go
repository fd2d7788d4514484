// Package calendar reads and writes a chat owner's Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/hray3182/amaa-remind/internal/models"
)

const (
	PrimaryCalendar = "primary"
	TimeZone        = "Asia/Jakarta"
)

// ErrNotConnected is returned for chats that have not linked a calendar.
var ErrNotConnected = errors.New("calendar not connected")

// Calendar is one chat's calendar.
type Calendar interface {
	Insert(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	Get(ctx context.Context, id string) (models.CalendarEvent, error)
	Patch(ctx context.Context, id string, patch models.EventPatch) (models.CalendarEvent, error)
	Delete(ctx context.Context, id string) error
	// List returns single events starting in [from, to), ordered by start.
	List(ctx context.Context, from, to time.Time, max int) ([]models.CalendarEvent, error)
}

// Google is a Calendar backed by the Calendar v3 API.
type Google struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
}

func NewGoogle(svc *gcal.Service, loc *time.Location) *Google {
	if loc == nil {
		loc = time.UTC
	}
	return &Google{svc: svc, calendarID: PrimaryCalendar, loc: loc}
}

func (g *Google) Insert(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	created, err := g.svc.Events.Insert(g.calendarID, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return fromGoogle(created, g.loc)
}

func (g *Google) Get(ctx context.Context, id string) (models.CalendarEvent, error) {
	ev, err := g.svc.Events.Get(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to get event: %w", err)
	}
	return fromGoogle(ev, g.loc)
}

func (g *Google) Patch(ctx context.Context, id string, patch models.EventPatch) (models.CalendarEvent, error) {
	updated, err := g.svc.Events.Patch(g.calendarID, id, patchToGoogle(patch)).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to patch event: %w", err)
	}
	return fromGoogle(updated, g.loc)
}

func (g *Google) Delete(ctx context.Context, id string) error {
	if err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (g *Google) List(ctx context.Context, from, to time.Time, max int) ([]models.CalendarEvent, error) {
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		ev, err := fromGoogle(item, g.loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func toGoogle(ev models.CalendarEvent) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       dateTime(ev.Start),
		End:         dateTime(ev.End),
	}
}

func patchToGoogle(p models.EventPatch) *gcal.Event {
	ev := &gcal.Event{}
	if p.Summary != nil {
		ev.Summary = *p.Summary
	}
	if p.Location != nil {
		ev.Location = *p.Location
	}
	if p.Start != nil {
		ev.Start = dateTime(*p.Start)
	}
	if p.End != nil {
		ev.End = dateTime(*p.End)
	}
	return ev
}

func dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: TimeZone}
}

func fromGoogle(e *gcal.Event, loc *time.Location) (models.CalendarEvent, error) {
	ev := models.CalendarEvent{
		ID:          e.Id,
		Summary:     e.Summary,
		Location:    e.Location,
		Description: e.Description,
	}

	var err error
	if ev.Start, ev.AllDay, err = parseEventTime(e.Start, loc); err != nil {
		return ev, fmt.Errorf("event %s start: %w", e.Id, err)
	}
	if ev.End, _, err = parseEventTime(e.End, loc); err != nil {
		return ev, fmt.Errorf("event %s end: %w", e.Id, err)
	}
	return ev, nil
}

// parseEventTime reads a timed or all-day boundary. All-day dates are
// midnight in loc.
func parseEventTime(dt *gcal.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, nil
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, loc)
		return t, true, err
	}
	return time.Time{}, false, nil
}
