// Package timeparse finds date and time expressions in English text and
// reports, per field, whether the value was stated or inferred.
package timeparse

import "time"

// Field identifies one component of a parsed date/time.
type Field int

const (
	Year Field = iota
	Month
	Day
	Hour
	Minute
)

func (f Field) String() string {
	switch f {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Hour:
		return "hour"
	case Minute:
		return "minute"
	}
	return "unknown"
}

// Components holds the fields of one side (start or end) of a match.
// Known fields were stated in the text; implied fields were filled in from
// the reference instant or a default.
type Components struct {
	known   map[Field]int
	implied map[Field]int
	loc     *time.Location
}

func newComponents(ref time.Time) *Components {
	c := &Components{
		known:   make(map[Field]int, 5),
		implied: make(map[Field]int, 5),
		loc:     ref.Location(),
	}
	c.implyDate(ref)
	c.imply(Hour, 12)
	c.imply(Minute, 0)
	return c
}

// Certain reports whether f was stated explicitly.
func (c *Components) Certain(f Field) bool {
	_, ok := c.known[f]
	return ok
}

// Get returns the stated value of f, or the implied one.
func (c *Components) Get(f Field) int {
	if v, ok := c.known[f]; ok {
		return v
	}
	return c.implied[f]
}

// Time builds the instant described by the components in their zone.
func (c *Components) Time() time.Time {
	return time.Date(c.Get(Year), time.Month(c.Get(Month)), c.Get(Day), c.Get(Hour), c.Get(Minute), 0, 0, c.loc)
}

func (c *Components) assign(f Field, v int) {
	c.known[f] = v
	delete(c.implied, f)
}

func (c *Components) imply(f Field, v int) {
	if c.Certain(f) {
		return
	}
	c.implied[f] = v
}

func (c *Components) assignDate(t time.Time) {
	c.assign(Year, t.Year())
	c.assign(Month, int(t.Month()))
	c.assign(Day, t.Day())
}

func (c *Components) implyDate(t time.Time) {
	c.imply(Year, t.Year())
	c.imply(Month, int(t.Month()))
	c.imply(Day, t.Day())
}

func (c *Components) assignClock(hour, minute int) {
	c.assign(Hour, hour)
	c.assign(Minute, minute)
}

// copyDate moves the date fields of src onto c, keeping certainty.
func (c *Components) copyDate(src *Components) {
	for _, f := range []Field{Year, Month, Day} {
		if src.Certain(f) {
			c.assign(f, src.Get(f))
		} else {
			c.imply(f, src.Get(f))
		}
	}
}

func (c *Components) clone() *Components {
	out := &Components{
		known:   make(map[Field]int, len(c.known)),
		implied: make(map[Field]int, len(c.implied)),
		loc:     c.loc,
	}
	for k, v := range c.known {
		out.known[k] = v
	}
	for k, v := range c.implied {
		out.implied[k] = v
	}
	return out
}
