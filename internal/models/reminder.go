package models

import "time"

type Reminder struct {
	ID           string     `json:"id"`
	ChatID       int64      `json:"chat_id"`
	Title        string     `json:"title"`
	ReminderTime time.Time  `json:"reminder_time"`
	StartTime    *time.Time `json:"start_time"` // Event start; nil for plain timed reminders
	Sent         bool       `json:"sent"`
	BotMode      string     `json:"bot_mode"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ForEvent returns true if the reminder announces an upcoming event
func (r *Reminder) ForEvent() bool {
	return r.StartTime != nil
}
