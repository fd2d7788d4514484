package nlp

import (
	"time"

	"github.com/hray3182/amaa-remind/internal/timeparse"
)

// Outcome is the result class of Resolve.
type Outcome int

const (
	// NotTemporal means no date or time expression was found at all.
	NotTemporal Outcome = iota
	// TimeUnclear means a date was found but no explicit hour.
	TimeUnclear
	// Resolved means Start and End are set.
	Resolved
)

func (o Outcome) String() string {
	switch o {
	case NotTemporal:
		return "not-temporal"
	case TimeUnclear:
		return "time-unclear"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// Resolution is the outcome of resolving a normalized message.
type Resolution struct {
	Outcome Outcome
	Start   time.Time
	End     time.Time
}

type clock struct {
	hour, minute int
}

// Resolve finds the event start and end in normalized text, relative to
// ref and evaluated in zone. The first candidate with an explicit day is
// the anchor date; the first explicit hour is the start and the next one
// (or the same candidate's range end) is the end.
func Resolve(normalized string, ref time.Time, zone *time.Location) Resolution {
	_, offset := ref.In(zone).Zone()
	results := timeparse.Parse(normalized, ref, timeparse.Options{
		TimezoneOffsetMinutes: offset / 60,
		ForwardDate:           true,
	})
	if len(results) == 0 {
		return Resolution{Outcome: NotTemporal}
	}

	anchor := results[0].Start
	for _, r := range results {
		if r.Start.Certain(timeparse.Day) {
			anchor = r.Start
			break
		}
	}

	var start, end *clock
	for _, r := range results {
		if !r.Start.Certain(timeparse.Hour) {
			continue
		}
		if start == nil {
			start = &clock{r.Start.Get(timeparse.Hour), r.Start.Get(timeparse.Minute)}
			if r.End != nil && r.End.Certain(timeparse.Hour) {
				end = &clock{r.End.Get(timeparse.Hour), r.End.Get(timeparse.Minute)}
			}
			continue
		}
		if end == nil {
			end = &clock{r.Start.Get(timeparse.Hour), r.Start.Get(timeparse.Minute)}
		}
	}
	if start == nil {
		return Resolution{Outcome: TimeUnclear}
	}

	year, month, day := anchor.Get(timeparse.Year), time.Month(anchor.Get(timeparse.Month)), anchor.Get(timeparse.Day)
	startAt := time.Date(year, month, day, start.hour, start.minute, 0, 0, zone)
	endAt := startAt.Add(time.Hour)
	if end != nil {
		endAt = time.Date(year, month, day, end.hour, end.minute, 0, 0, zone)
		switch {
		case endAt.Before(startAt):
			endAt = endAt.AddDate(0, 0, 1)
		case endAt.Equal(startAt):
			endAt = startAt.Add(time.Hour)
		}
	}

	return Resolution{Outcome: Resolved, Start: startAt, End: endAt}
}
