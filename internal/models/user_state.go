package models

import "time"

// UserState is the per-chat pointer record, upserted on every inbound message.
type UserState struct {
	ChatID           int64     `json:"chat_id"`
	BotMode          string    `json:"bot_mode"`
	LastChatID       int64     `json:"last_chat_id"`
	LastEventID      string    `json:"last_event_id"`
	LastFocusEventID string    `json:"last_focus_event_id"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *UserState) HasLastEvent() bool {
	return s != nil && s.LastEventID != ""
}

func (s *UserState) InFocus() bool {
	return s != nil && s.LastFocusEventID != ""
}
