package models

import "time"

// RoomKind distinguishes two-party chats from named groups.
type RoomKind string

const (
	RoomDirect RoomKind = "direct"
	RoomGroup  RoomKind = "group"
)

// Room represents a conversational context between two or more users.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Kind      RoomKind  `db:"kind" json:"kind"`
	Name      string    `db:"name" json:"name,omitempty"`
	OwnerID   string    `db:"owner_id" json:"owner_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Participant is one row of a room's ordered participant list.
type Participant struct {
	RoomID   string    `db:"room_id" json:"room_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
