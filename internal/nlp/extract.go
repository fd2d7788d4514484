package nlp

import (
	"regexp"
	"strings"
)

const (
	// DefaultTitle is used when nothing is left after cleaning.
	DefaultTitle = "Agenda"
	// DefaultLocation is used when the message names no place.
	DefaultLocation = "Online"
)

var (
	hourPhraseRe     = regexp.MustCompile(`(?i)\b(?:jam|pukul)\s*\d{1,2}(?:[.:]\d{2})?(?:\s*(?:pagi|siang|sore|malam))?\b`)
	rangePhraseRe    = regexp.MustCompile(`(?i)\b(?:sampe|sampai|s/d)\s*(?:jam|pukul)?\s*\d{1,2}(?:[.:]\d{2})?\b`)
	relativeDayRe    = regexp.MustCompile(`(?i)\b(?:besok|lusa|hari ini|nanti|minggu depan|bulan depan|tahun depan)\b`)
	weekdayWordRe    = regexp.MustCompile(`(?i)\b(?:senin|selasa|rabu|kamis|jum'?at|sabtu|minggu)\b`)
	dayPartWordRe    = regexp.MustCompile(`(?i)\b(?:pagi|siang|sore|malam)\b`)
	relativeOffsetRe = regexp.MustCompile(`(?i)\b(?:\d+|setengah)\s+(?:menit|jam)\s+lagi\b`)
	connectorRe      = regexp.MustCompile(`(?i)\b(?:ada|sama|dengan|ke|buat)\b`)
	spacesRe         = regexp.MustCompile(`\s+`)
	locationSplitRe  = regexp.MustCompile(`(?i) di `)
)

// CleanTitle derives a title from the raw message by stripping time, date
// and connector words. It is the fallback when no generated title is
// available.
func CleanTitle(text string) string {
	t := strings.ToLower(text)
	t = stripTimePhrases(t)

	if i := strings.Index(t, " di "); i >= 0 {
		t = t[:i]
	}

	t = connectorRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(spacesRe.ReplaceAllString(t, " "))
	if t == "" {
		return DefaultTitle
	}
	return t
}

// ExtractLocation returns the place named after the last " di " in text,
// with trailing time phrases removed, or DefaultLocation.
func ExtractLocation(text string) string {
	parts := locationSplitRe.Split(text, -1)
	if len(parts) < 2 {
		return DefaultLocation
	}

	loc := parts[len(parts)-1]
	loc = stripTimePhrases(loc)
	loc = strings.TrimSpace(spacesRe.ReplaceAllString(loc, " "))
	if loc == "" {
		return DefaultLocation
	}
	return loc
}

// stripTimePhrases removes ranges before single hours so "sampe jam 12"
// goes as one phrase.
func stripTimePhrases(s string) string {
	for _, re := range []*regexp.Regexp{
		relativeOffsetRe,
		rangePhraseRe,
		hourPhraseRe,
		relativeDayRe,
		weekdayWordRe,
		dayPartWordRe,
	} {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}
