package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"realtime-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, senderID, content string, kind models.MessageKind) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	GetRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) error
	ReadBy(ctx context.Context, messageID string) ([]string, error)
	EditMessage(ctx context.Context, messageID, senderID, content string) (models.Message, error)
	DeleteMessageForAll(ctx context.Context, messageID, senderID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns it with the store-assigned id.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID, senderID, content string, kind models.MessageKind) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room_id, sender_id, content, kind) VALUES ($1, $2, $3, $4)
        RETURNING id, room_id, sender_id, content, kind, edited_at, deleted_at, created_at`, roomID, senderID, content, kind).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.Kind, &msg.EditedAt, &msg.DeletedAt, &msg.CreatedAt)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, room_id, sender_id, content, kind, edited_at, deleted_at, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetRoomMessages returns the most recent messages of a room, oldest first.
func (r *MessageRepo) GetRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	query := `SELECT id, room_id, sender_id, content, kind, edited_at, deleted_at, created_at FROM (
            SELECT * FROM messages WHERE room_id=$1 AND deleted_at IS NULL ORDER BY created_at DESC LIMIT $2
        ) recent ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, roomID, limit)
	return msgs, err
}

// MarkRead records that userID has read the message. Idempotent.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, messageID, userID)
	return err
}

// ReadBy returns the set of users who have read the message.
func (r *MessageRepo) ReadBy(ctx context.Context, messageID string) ([]string, error) {
	var users []string
	err := r.db.SelectContext(ctx, &users, `SELECT user_id FROM message_reads WHERE message_id=$1 ORDER BY read_at ASC`, messageID)
	return users, err
}

// EditMessage replaces the content of the sender's own message.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID, senderID, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$3, edited_at=NOW() WHERE id=$1 AND sender_id=$2 AND deleted_at IS NULL
        RETURNING id, room_id, sender_id, content, kind, edited_at, deleted_at, created_at`, messageID, senderID, content).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.Kind, &msg.EditedAt, &msg.DeletedAt, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessageForAll marks the sender's own message as deleted for everyone.
func (r *MessageRepo) DeleteMessageForAll(ctx context.Context, messageID, senderID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_at=NOW() WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
