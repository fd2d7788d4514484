package models

import "time"

// Stat is the monthly counter for one category.
type Stat struct {
	Month      string      `json:"month"` // YYYY-MM
	Category   string      `json:"category"`
	BotMode    string      `json:"bot_mode"`
	Count      int         `json:"count"`
	EventHours map[int]int `json:"event_hours"` // hour of day -> events starting then
}

// MonthKey formats the stats key for t in t's location
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
