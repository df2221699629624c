package models

import "time"

// MessageKind enumerates the supported message payload kinds.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageFile  MessageKind = "file"
)

// Message represents one chat message. The ID is assigned by the durable
// store on insert; before that the client only knows its own temporary id.
type Message struct {
	ID        string      `db:"id" json:"id"`
	RoomID    string      `db:"room_id" json:"room_id"`
	SenderID  string      `db:"sender_id" json:"sender_id"`
	Content   string      `db:"content" json:"content"`
	Kind      MessageKind `db:"kind" json:"kind"`
	EditedAt  *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
