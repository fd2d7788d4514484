package assistant

import (
	"fmt"
	"time"
)

var (
	dayNames   = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}
)

// formatDay renders t as "Selasa, 3 Mar".
func formatDay(t time.Time) string {
	return fmt.Sprintf("%s, %s", dayNames[t.Weekday()], formatDate(t))
}

// formatDate renders t as "3 Mar".
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthNames[t.Month()-1])
}

// formatClock renders t as "09.00".
func formatClock(t time.Time) string {
	return t.Format("15.04")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
