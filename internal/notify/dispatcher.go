package notify

import (
	"context"
	"fmt"

	"realtime-service/internal/models"
	"realtime-service/internal/observability"
	"realtime-service/internal/rabbitmq"
	"realtime-service/internal/repositories"
)

// Outcome is the result of one dispatch attempt.
type Outcome string

const (
	Delivered  Outcome = "delivered"
	Suppressed Outcome = "suppressed"
	Queued     Outcome = "queued"
)

// DirectSender delivers an event to every live connection of one user in a
// namespace and reports how many received it.
type DirectSender interface {
	SendToUser(namespace, userID string, event models.Event) int
}

// Dispatcher filters outbound notifications against recipient preferences
// and delivers them to live connections, handing the rest to the offline
// queue. Each envelope is consumed exactly once.
type Dispatcher struct {
	repo   repositories.NotificationRepository
	sender DirectSender
	queue  rabbitmq.QueuePublisher
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(repo repositories.NotificationRepository, sender DirectSender, queue rabbitmq.QueuePublisher) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, queue: queue}
}

// Dispatch applies the recipient's preference gate, then either delivers the
// envelope to a live notifications-namespace connection or queues it for the
// offline fallback channel. Suppressed envelopes are discarded entirely.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) (Outcome, error) {
	prefs, err := d.repo.GetPreferences(ctx, n.RecipientID)
	if err != nil {
		return "", fmt.Errorf("load preferences: %w", err)
	}
	if !Allowed(prefs, n.Type) {
		observability.IncNotification(string(Suppressed))
		return Suppressed, nil
	}

	stored, err := d.repo.Create(ctx, n)
	if err != nil {
		return "", fmt.Errorf("persist notification: %w", err)
	}

	sent := d.sender.SendToUser(models.NamespaceNotifications, stored.RecipientID, models.Event{
		Type: eventName(stored.Type),
		Data: stored,
	})
	if sent == 0 {
		if err := d.queue.PublishQueued(ctx, stored); err != nil {
			observability.IncAMQPPublishError()
		}
		observability.IncNotification(string(Queued))
		return Queued, nil
	}

	if err := d.repo.MarkDelivered(ctx, stored.ID); err != nil {
		return Delivered, fmt.Errorf("mark delivered: %w", err)
	}
	observability.IncNotification(string(Delivered))
	return Delivered, nil
}

// UpdatePreferences stores the user's per-type opt-outs.
func (d *Dispatcher) UpdatePreferences(ctx context.Context, prefs models.Preferences) error {
	return d.repo.UpdatePreferences(ctx, prefs)
}

// Preferences loads the user's current opt-outs.
func (d *Dispatcher) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	return d.repo.GetPreferences(ctx, userID)
}

// History returns the user's stored notifications, newest first.
func (d *Dispatcher) History(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return d.repo.History(ctx, userID, limit, offset)
}

// MarkRead marks one of the user's notifications as read.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, userID string) error {
	return d.repo.MarkNotificationRead(ctx, notificationID, userID)
}

// MarkAllRead marks all of the user's notifications as read.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) error {
	return d.repo.MarkAllRead(ctx, userID)
}
