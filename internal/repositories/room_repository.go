package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"realtime-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreateOrGetDirectRoom(ctx context.Context, userID, targetID string) (models.Room, error)
	CreateGroupRoom(ctx context.Context, ownerID, name string, participants []string) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	Participants(ctx context.Context, roomID string) ([]string, error)
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateOrGetDirectRoom returns the direct room between two users, creating
// it if it does not already exist. The participant pair is looked up in
// sorted order so the same two users always map to one room.
func (r *RoomRepo) CreateOrGetDirectRoom(ctx context.Context, userID, targetID string) (models.Room, error) {
	if userID == targetID {
		return models.Room{}, errors.New("cannot create direct room with self")
	}
	pair := []string{userID, targetID}
	sort.Strings(pair)

	var room models.Room
	query := `SELECT r.id, r.kind, r.name, r.owner_id, r.created_at FROM rooms r
        JOIN room_participants p1 ON p1.room_id = r.id AND p1.user_id = $1
        JOIN room_participants p2 ON p2.room_id = r.id AND p2.user_id = $2
        WHERE r.kind = 'direct'`
	err := r.db.GetContext(ctx, &room, query, pair[0], pair[1])
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `INSERT INTO rooms (kind) VALUES ('direct') RETURNING id, kind, name, owner_id, created_at`).
		Scan(&room.ID, &room.Kind, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
		return models.Room{}, err
	}
	for _, uid := range pair {
		if _, err := tx.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2)`, room.ID, uid); err != nil {
			return models.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// CreateGroupRoom creates a named group room owned by ownerID. The owner is
// always part of the participant list.
func (r *RoomRepo) CreateGroupRoom(ctx context.Context, ownerID, name string, participants []string) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer tx.Rollback()

	var room models.Room
	if err := tx.QueryRowxContext(ctx, `INSERT INTO rooms (kind, name, owner_id) VALUES ('group', $1, $2) RETURNING id, kind, name, owner_id, created_at`, name, ownerID).
		Scan(&room.ID, &room.Kind, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
		return models.Room{}, err
	}

	seen := map[string]struct{}{}
	for _, uid := range append([]string{ownerID}, participants...) {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		if _, err := tx.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2)`, room.ID, uid); err != nil {
			return models.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetRoom retrieves a single room.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, kind, name, owner_id, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// Participants returns the room's participant list in join order.
func (r *RoomRepo) Participants(ctx context.Context, roomID string) ([]string, error) {
	var users []string
	err := r.db.SelectContext(ctx, &users, `SELECT user_id FROM room_participants WHERE room_id=$1 ORDER BY joined_at ASC`, roomID)
	return users, err
}

// IsParticipant reports whether userID belongs to the room.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// AddParticipant adds a user to a group room. Idempotent.
func (r *RoomRepo) AddParticipant(ctx context.Context, roomID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, userID)
	return err
}

// RemoveParticipant removes a user from a group room.
func (r *RoomRepo) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM room_participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}
