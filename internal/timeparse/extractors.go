package timeparse

import (
	"regexp"
	"strconv"
	"time"
)

const (
	monthPattern = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`
	clockPattern = `(\d{1,2})(?:[:.](\d{2}))?(?:\s*(am|pm))?`
	rangeTail    = `(?:\s*(?:-|–|~|to|until|till)\s*(?:at\s+)?(\d{1,2})(?:[:.](\d{2}))?(?:\s*(am|pm))?)?`
)

var (
	casualDateRe = regexp.MustCompile(`\b(?:the\s+)?(day after tomorrow|tomorrow|today|tonight|yesterday)\b`)
	weekdayRe    = regexp.MustCompile(`\b(?:(this|next|last)\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	relativeRe   = regexp.MustCompile(`\bin\s+(half an?|an?|one|two|three|four|five|six|seven|eight|nine|ten|twelve|\d+)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)
	nextPeriodRe = regexp.MustCompile(`\b(next|last)\s+(week|month|year)\b`)
	dayMonthRe   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b(?:,?\s+(\d{4})\b)?`)
	monthDayRe   = regexp.MustCompile(`\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDateRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	atTimeRe     = regexp.MustCompile(`\bat\s+` + clockPattern + rangeTail + `\b`)
	clockRe      = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})(?:\s*(am|pm))?` + rangeTail + `\b`)
	meridiemRe   = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	noonRe       = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	dayPartRe    = regexp.MustCompile(`\b(?:this\s+)?(morning|afternoon|evening|night)\b`)
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var numberWords = map[string]float64{
	"a": 1, "an": 1, "half a": 0.5, "half an": 0.5,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "twelve": 12,
}

var dayPartHours = map[string]int{
	"morning":   6,
	"afternoon": 15,
	"evening":   19,
	"night":     22,
}

func (p *parser) group(m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return p.text[m[2*i]:m[2*i+1]]
}

func (p *parser) casualDates() []*span {
	var out []*span
	for _, m := range casualDateRe.FindAllStringSubmatchIndex(p.text, -1) {
		s := &span{kind: kindDate, start: m[0], end: m[1], comp: newComponents(p.ref)}
		offset := 0
		switch p.group(m, 1) {
		case "tomorrow":
			offset = 1
		case "day after tomorrow":
			offset = 2
		case "yesterday":
			offset = -1
		case "tonight":
			s.dayPart = "evening"
			s.comp.imply(Hour, 22)
		}
		s.comp.assignDate(p.ref.AddDate(0, 0, offset))
		out = append(out, s)
	}
	return out
}

func (p *parser) weekdays() []*span {
	var out []*span
	for _, m := range weekdayRe.FindAllStringSubmatchIndex(p.text, -1) {
		target := weekdayNames[p.group(m, 2)]
		diff := (int(target) - int(p.ref.Weekday()) + 7) % 7
		switch p.group(m, 1) {
		case "next":
			diff += 7
		case "last":
			diff -= 7
		}
		c := newComponents(p.ref)
		c.assignDate(p.ref.AddDate(0, 0, diff))
		out = append(out, &span{kind: kindDate, start: m[0], end: m[1], comp: c})
	}
	return out
}

func (p *parser) relative() []*span {
	var out []*span
	for _, m := range relativeRe.FindAllStringSubmatchIndex(p.text, -1) {
		qty, ok := numberWords[p.group(m, 1)]
		if !ok {
			n, err := strconv.Atoi(p.group(m, 1))
			if err != nil {
				continue
			}
			qty = float64(n)
		}

		c := newComponents(p.ref)
		unit := p.group(m, 2)
		switch unit[0] {
		case 'm':
			t := p.ref.Add(time.Duration(qty * float64(time.Minute)))
			c.assignDate(t)
			c.assignClock(t.Hour(), t.Minute())
		case 'h':
			t := p.ref.Add(time.Duration(qty * float64(time.Hour)))
			c.assignDate(t)
			c.assignClock(t.Hour(), t.Minute())
		case 'd', 'w':
			days := qty
			if unit[0] == 'w' {
				days *= 7
			}
			if days < 1 {
				continue
			}
			c.assignDate(p.ref.AddDate(0, 0, int(days)))
			c.imply(Hour, p.ref.Hour())
			c.imply(Minute, p.ref.Minute())
		}
		out = append(out, &span{kind: kindDateTime, start: m[0], end: m[1], comp: c})
	}
	return out
}

func (p *parser) nextPeriods() []*span {
	var out []*span
	for _, m := range nextPeriodRe.FindAllStringSubmatchIndex(p.text, -1) {
		step := 1
		if p.group(m, 1) == "last" {
			step = -1
		}

		c := newComponents(p.ref)
		switch p.group(m, 2) {
		case "week":
			c.assignDate(p.ref.AddDate(0, 0, 7*step))
		case "month":
			first := time.Date(p.ref.Year(), p.ref.Month()+time.Month(step), 1, 0, 0, 0, 0, p.ref.Location())
			c.assign(Year, first.Year())
			c.assign(Month, int(first.Month()))
			c.imply(Day, min(p.ref.Day(), daysIn(first.Month(), first.Year())))
		case "year":
			year := p.ref.Year() + step
			c.assign(Year, year)
			c.imply(Day, min(p.ref.Day(), daysIn(p.ref.Month(), year)))
		}
		out = append(out, &span{kind: kindDate, start: m[0], end: m[1], comp: c})
	}
	return out
}

func (p *parser) absoluteDates() []*span {
	var out []*span
	add := func(m []int, day, month, year string) {
		d, err := strconv.Atoi(day)
		if err != nil {
			return
		}
		mo, err := strconv.Atoi(month)
		if err != nil {
			return
		}
		y := 0
		if year != "" {
			if y, err = strconv.Atoi(year); err != nil {
				return
			}
			if y < 100 {
				y += 2000
			}
		}
		if c, ok := p.dateComponents(d, mo, y); ok {
			out = append(out, &span{kind: kindDate, start: m[0], end: m[1], comp: c})
		}
	}

	for _, m := range dayMonthRe.FindAllStringSubmatchIndex(p.text, -1) {
		add(m, p.group(m, 1), strconv.Itoa(int(monthNames[p.group(m, 2)])), p.group(m, 3))
	}
	for _, m := range monthDayRe.FindAllStringSubmatchIndex(p.text, -1) {
		add(m, p.group(m, 2), strconv.Itoa(int(monthNames[p.group(m, 1)])), p.group(m, 3))
	}
	for _, m := range isoDateRe.FindAllStringSubmatchIndex(p.text, -1) {
		add(m, p.group(m, 3), p.group(m, 2), p.group(m, 1))
	}
	for _, m := range slashDateRe.FindAllStringSubmatchIndex(p.text, -1) {
		add(m, p.group(m, 1), p.group(m, 2), p.group(m, 3))
	}
	return out
}

// dateComponents validates a calendar date. A zero year means the text
// did not state one.
func (p *parser) dateComponents(day, month, year int) (*Components, bool) {
	if month < 1 || month > 12 || day < 1 {
		return nil, false
	}

	c := newComponents(p.ref)
	if year != 0 {
		if day > daysIn(time.Month(month), year) {
			return nil, false
		}
		c.assign(Year, year)
		c.assign(Month, month)
		c.assign(Day, day)
		return c, true
	}

	year = p.ref.Year()
	if day > daysIn(time.Month(month), year) && day > daysIn(time.Month(month), year+1) {
		return nil, false
	}
	if p.opts.ForwardDate {
		endOfDay := time.Date(year, time.Month(month), day, 23, 59, 59, 0, p.ref.Location())
		if endOfDay.Before(p.ref) || day > daysIn(time.Month(month), year) {
			year++
		}
	}
	if day > daysIn(time.Month(month), year) {
		return nil, false
	}
	c.assign(Month, month)
	c.assign(Day, day)
	c.imply(Year, year)
	return c, true
}

func (p *parser) clockTimes() []*span {
	var out []*span
	for _, re := range []*regexp.Regexp{atTimeRe, clockRe} {
		for _, m := range re.FindAllStringSubmatchIndex(p.text, -1) {
			hour, minute, ok := toClock(p.group(m, 1), p.group(m, 2), p.group(m, 3))
			if !ok {
				continue
			}
			s := &span{
				kind:     kindTime,
				start:    m[0],
				end:      m[1],
				comp:     newComponents(p.ref),
				meridiem: p.group(m, 3) != "",
			}
			s.comp.assignClock(hour, minute)

			if p.group(m, 4) != "" {
				endMeridiem := p.group(m, 6)
				if endHour, endMinute, ok := toClock(p.group(m, 4), p.group(m, 5), endMeridiem); ok {
					s.endComp = newComponents(p.ref)
					s.endComp.assignClock(endHour, endMinute)
					if !s.meridiem && endMeridiem != "" {
						if h, _, ok := toClock(p.group(m, 1), p.group(m, 2), endMeridiem); ok && h <= endHour {
							s.comp.assign(Hour, h)
						}
						s.meridiem = true
					}
				}
			}
			out = append(out, s)
		}
	}

	for _, m := range meridiemRe.FindAllStringSubmatchIndex(p.text, -1) {
		hour, minute, ok := toClock(p.group(m, 1), "", p.group(m, 2))
		if !ok {
			continue
		}
		c := newComponents(p.ref)
		c.assignClock(hour, minute)
		out = append(out, &span{kind: kindTime, start: m[0], end: m[1], comp: c, meridiem: true})
	}

	for _, m := range noonRe.FindAllStringSubmatchIndex(p.text, -1) {
		c := newComponents(p.ref)
		if p.group(m, 1) == "midnight" {
			c.assignClock(0, 0)
		} else {
			c.assignClock(12, 0)
		}
		out = append(out, &span{kind: kindTime, start: m[0], end: m[1], comp: c, meridiem: true})
	}
	return out
}

func (p *parser) dayParts() []*span {
	var out []*span
	for _, m := range dayPartRe.FindAllStringSubmatchIndex(p.text, -1) {
		part := p.group(m, 1)
		c := newComponents(p.ref)
		c.imply(Hour, dayPartHours[part])
		out = append(out, &span{kind: kindDayPart, start: m[0], end: m[1], comp: c, dayPart: part})
	}
	return out
}

func toClock(hour, minute, meridiem string) (int, int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return 0, 0, false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil {
			return 0, 0, false
		}
	}
	if m > 59 {
		return 0, 0, false
	}

	switch meridiem {
	case "am":
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		if h < 12 {
			h += 12
		}
	default:
		if h > 23 {
			return 0, 0, false
		}
	}
	return h, m, true
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
