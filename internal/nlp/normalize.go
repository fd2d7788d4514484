// Package nlp turns informal Indonesian scheduling messages into event
// fields: a normalized text for the date parser, resolved start/end
// instants, a fallback title and a location.
package nlp

import (
	"regexp"
	"strings"
)

type substitution struct {
	re   *regexp.Regexp
	repl string
}

func sub(pattern, repl string) substitution {
	return substitution{re: regexp.MustCompile(pattern), repl: repl}
}

// Order matters: "minggu depan" must become "next week" before "minggu"
// is read as Sunday, and relative offsets must see "jam lagi" intact.
var substitutions = []substitution{
	sub(`\b(?:jam|pukul)\s*(\d{1,2})`, "at $1"),

	sub(`\bnanti malam\b`, "tonight"),
	sub(`\bbesok\b`, "tomorrow"),
	sub(`\blusa\b`, "day after tomorrow"),
	sub(`\bhari ini\b`, "today"),

	sub(`\b(?:sampe|sampai)\b`, "to"),
	sub(`\bs/d\b`, "to"),

	sub(`\b(\d+)\s+menit\s+lagi\b`, "in $1 minutes"),
	sub(`\b(\d+)\s+jam\s+lagi\b`, "in $1 hours"),
	sub(`\bsetengah\s+jam\s+lagi\b`, "in 30 minutes"),
	sub(`\b(\d+)\s+hari\s+lagi\b`, "in $1 days"),
	sub(`\b(\d+)\s+minggu\s+lagi\b`, "in $1 weeks"),

	sub(`\bpagi\b`, "morning"),
	sub(`\b(?:siang|sore)\b`, "afternoon"),
	sub(`\bmalam\b`, "evening"),

	sub(`\bminggu depan\b`, "next week"),
	sub(`\bbulan depan\b`, "next month"),
	sub(`\btahun depan\b`, "next year"),
	sub(`\bminggu ini\b`, "this week"),

	sub(`\bsenin\b`, "monday"),
	sub(`\bselasa\b`, "tuesday"),
	sub(`\brabu\b`, "wednesday"),
	sub(`\bkamis\b`, "thursday"),
	sub(`\bjum'?at\b`, "friday"),
	sub(`\bsabtu\b`, "saturday"),
	sub(`\bminggu\b`, "sunday"),

	sub(`\bjanuari\b`, "january"),
	sub(`\bfebruari\b`, "february"),
	sub(`\bmaret\b`, "march"),
	sub(`\bmei\b`, "may"),
	sub(`\bjuni\b`, "june"),
	sub(`\bjuli\b`, "july"),
	sub(`\bagustus\b`, "august"),
	sub(`\boktober\b`, "october"),
	sub(`\bdesember\b`, "december"),
}

// Normalize lowercases text and rewrites Indonesian date and time
// vocabulary into English the date parser understands.
func Normalize(text string) string {
	out := strings.ToLower(text)
	for _, s := range substitutions {
		out = s.re.ReplaceAllString(out, s.repl)
	}
	return out
}
