package models

// OutgoingMessage is a chat reply. Text may use **bold**, _italic_ and
// `code` markers.
type OutgoingMessage struct {
	ChatID int64
	Text   string
	// Optional single link button under the message.
	LinkText string
	LinkURL  string
}
