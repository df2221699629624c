package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"realtime-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository persists notifications and per-user preferences.
type NotificationRepository interface {
	GetPreferences(ctx context.Context, userID string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, prefs models.Preferences) error
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	MarkDelivered(ctx context.Context, notificationID string) error
	History(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// GetPreferences loads a user's preferences, defaulting to all-enabled when
// the user never stored any.
func (r *NotificationRepo) GetPreferences(ctx context.Context, userID string) (models.Preferences, error) {
	var prefs models.Preferences
	err := r.db.GetContext(ctx, &prefs, `SELECT user_id, job_alerts, matching_alerts, event_reminders, collaboration_invites
        FROM notification_preferences WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(userID), nil
	}
	return prefs, err
}

// UpdatePreferences upserts the user's preference row.
func (r *NotificationRepo) UpdatePreferences(ctx context.Context, prefs models.Preferences) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notification_preferences (user_id, job_alerts, matching_alerts, event_reminders, collaboration_invites)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET job_alerts=$2, matching_alerts=$3, event_reminders=$4, collaboration_invites=$5`,
		prefs.UserID, prefs.JobAlerts, prefs.MatchingAlerts, prefs.EventReminders, prefs.CollaborationInvites)
	return err
}

// Create stores a notification and returns it with the store-assigned id.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (recipient_id, type, title, body, related_id, delivered)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		n.RecipientID, n.Type, n.Title, n.Body, n.RelatedID, n.Delivered).
		Scan(&n.ID, &n.CreatedAt)
	return n, err
}

// MarkDelivered flags a notification as having reached a live connection.
func (r *NotificationRepo) MarkDelivered(ctx context.Context, notificationID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET delivered=TRUE WHERE id=$1`, notificationID)
	return err
}

// History returns the user's notifications, newest first.
func (r *NotificationRepo) History(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, `SELECT id, recipient_id, type, title, body, related_id, read, delivered, created_at
        FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	return list, err
}

// MarkNotificationRead marks one notification read, scoped to its recipient.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE recipient_id=$1 AND read=FALSE`, userID)
	return err
}
