package models

import "time"

// CalendarEvent is an event as the calendar provider stores it.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
}

// Duration returns the length of the event
func (e *CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// ParsedEvent is an event extracted from a chat message, before it is written.
type ParsedEvent struct {
	Title    string
	Location string
	Start    time.Time
	End      time.Time
}

// EventPatch lists the fields an edit changes. Nil fields stay as they are.
type EventPatch struct {
	Summary  *string
	Location *string
	Start    *time.Time
	End      *time.Time
}

func (p EventPatch) IsEmpty() bool {
	return p.Summary == nil && p.Location == nil && p.Start == nil && p.End == nil
}
