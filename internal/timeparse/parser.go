package timeparse

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Options controls how matches are interpreted.
type Options struct {
	// TimezoneOffsetMinutes is the UTC offset every match is evaluated in.
	TimezoneOffsetMinutes int
	// ForwardDate moves time-only and year-less matches that already passed
	// into the future.
	ForwardDate bool
}

func (o Options) location() *time.Location {
	return time.FixedZone("", o.TimezoneOffsetMinutes*60)
}

// Result is one matched expression. End is nil unless the text stated a range.
type Result struct {
	Index int
	Text  string
	Start *Components
	End   *Components
}

type kind int

const (
	kindDate kind = iota
	kindTime
	kindDayPart
	kindDateTime
)

type span struct {
	kind    kind
	start   int
	end     int
	comp    *Components
	endComp *Components
	// meridiem is set once am/pm or a day part has fixed the hour.
	meridiem bool
	dayPart  string
}

type parser struct {
	text string
	ref  time.Time
	opts Options
}

// Parse returns the date/time expressions found in text, in document order.
func Parse(text string, ref time.Time, opts Options) []Result {
	p := &parser{
		text: strings.ToLower(text),
		ref:  ref.In(opts.location()),
		opts: opts,
	}

	var spans []*span
	for _, extract := range []func() []*span{
		p.casualDates,
		p.weekdays,
		p.relative,
		p.nextPeriods,
		p.absoluteDates,
		p.clockTimes,
		p.dayParts,
	} {
		spans = append(spans, extract()...)
	}

	spans = dropOverlaps(spans)
	spans = p.absorbDayParts(spans)
	spans = p.mergeRanges(spans)
	spans = p.mergeDateTimes(spans)

	results := make([]Result, 0, len(spans))
	for _, s := range spans {
		if p.opts.ForwardDate {
			p.forward(s)
		}
		results = append(results, Result{
			Index: s.start,
			Text:  p.text[s.start:s.end],
			Start: s.comp,
			End:   s.endComp,
		})
	}
	return results
}

func dropOverlaps(spans []*span) []*span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	out := spans[:0]
	last := -1
	for _, s := range spans {
		if s.start < last {
			continue
		}
		out = append(out, s)
		last = s.end
	}
	return out
}

var (
	dayPartGapRe  = regexp.MustCompile(`^\s*(?:in the)?\s*$`)
	rangeGapRe    = regexp.MustCompile(`^\s*(?:-|–|~|to|until|till|through)\s*$`)
	dateTimeGapRe = regexp.MustCompile(`^\s*(?:,|on|at)?\s*$`)
)

func (p *parser) gap(a, b *span) string {
	return p.text[a.end:b.start]
}

// absorbDayParts folds "morning", "evening" and friends into the clock
// time written right before or after them.
func (p *parser) absorbDayParts(spans []*span) []*span {
	out := make([]*span, 0, len(spans))
	for i := 0; i < len(spans); i++ {
		s := spans[i]
		if s.kind != kindDayPart {
			out = append(out, s)
			continue
		}

		if n := len(out); n > 0 && out[n-1].kind == kindTime && dayPartGapRe.MatchString(p.gap(out[n-1], s)) {
			prev := out[n-1]
			if !prev.meridiem {
				applyDayPart(prev, s.dayPart)
			}
			prev.end = s.end
			continue
		}

		if i+1 < len(spans) && spans[i+1].kind == kindTime && dayPartGapRe.MatchString(p.gap(s, spans[i+1])) {
			next := spans[i+1]
			if !next.meridiem {
				applyDayPart(next, s.dayPart)
			}
			next.start = s.start
			continue
		}

		out = append(out, s)
	}
	return out
}

func (p *parser) mergeRanges(spans []*span) []*span {
	out := make([]*span, 0, len(spans))
	for _, s := range spans {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.kind == kindTime && s.kind == kindTime && prev.endComp == nil && rangeGapRe.MatchString(p.gap(prev, s)) {
				prev.endComp = s.comp
				prev.end = s.end
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func (p *parser) mergeDateTimes(spans []*span) []*span {
	out := make([]*span, 0, len(spans))
	for _, s := range spans {
		if n := len(out); n > 0 {
			if merged, ok := p.joinDateTime(out[n-1], s); ok {
				out[n-1] = merged
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func (p *parser) joinDateTime(a, b *span) (*span, bool) {
	if !dateTimeGapRe.MatchString(p.gap(a, b)) {
		return nil, false
	}

	var date, clock *span
	switch {
	case a.kind == kindDate && isTimeLike(b):
		date, clock = a, b
	case isTimeLike(a) && b.kind == kindDate:
		date, clock = b, a
	default:
		return nil, false
	}

	merged := &span{
		kind:     kindDateTime,
		start:    a.start,
		end:      b.end,
		comp:     clock.comp.clone(),
		meridiem: clock.meridiem,
	}
	merged.comp.copyDate(date.comp)
	if clock.endComp != nil {
		merged.endComp = clock.endComp.clone()
		merged.endComp.copyDate(date.comp)
	}
	if date.dayPart != "" && clock.kind == kindTime && !clock.meridiem {
		applyDayPart(merged, date.dayPart)
	}
	return merged, true
}

func isTimeLike(s *span) bool {
	return s.kind == kindTime || s.kind == kindDayPart
}

// forward pushes a time-only match that already passed to the next day.
func (p *parser) forward(s *span) {
	c := s.comp
	if !c.Certain(Hour) || c.Certain(Day) {
		return
	}
	if !c.Time().Before(p.ref) {
		return
	}
	next := c.Time().AddDate(0, 0, 1)
	c.implyDate(next)
	if s.endComp != nil && !s.endComp.Certain(Day) {
		s.endComp.implyDate(next)
	}
}

func applyDayPart(s *span, part string) {
	if s.endComp != nil && s.endComp.Certain(Hour) {
		end := adjustHour(s.endComp.Get(Hour), part)
		s.endComp.assign(Hour, end)
		if start := adjustHour(s.comp.Get(Hour), part); s.comp.Certain(Hour) && start <= end {
			s.comp.assign(Hour, start)
		}
	} else if s.comp.Certain(Hour) {
		s.comp.assign(Hour, adjustHour(s.comp.Get(Hour), part))
	}
	s.meridiem = true
}

// adjustHour maps a 12-hour clock reading onto 24 hours using the day part
// it was said with. "11 siang" stays 11 while "3 sore" becomes 15.
func adjustHour(h int, part string) int {
	switch part {
	case "morning":
		if h == 12 {
			return 0
		}
	case "afternoon":
		if h >= 1 && h <= 10 {
			return h + 12
		}
	case "evening", "night":
		if h == 12 {
			return 0
		}
		if h >= 1 && h < 12 {
			return h + 12
		}
	}
	return h
}
