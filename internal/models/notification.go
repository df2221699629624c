package models

import "time"

// NotificationType enumerates the fixed set of notification categories.
type NotificationType string

const (
	NotifyMessage             NotificationType = "message"
	NotifyCollaboration       NotificationType = "collaboration"
	NotifyEvent               NotificationType = "event"
	NotifySystem              NotificationType = "system"
	NotifyJobAlert            NotificationType = "job-alert"
	NotifyMatchFound          NotificationType = "match-found"
	NotifyEventReminder       NotificationType = "event-reminder"
	NotifyCollaborationInvite NotificationType = "collaboration-invite"
)

// Notification is one outbound notification envelope.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	RelatedID   string           `db:"related_id" json:"related_id,omitempty"`
	Read        bool             `db:"read" json:"read"`
	Delivered   bool             `db:"delivered" json:"delivered"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// Preferences holds a user's per-type notification opt-outs. A missing row
// means everything is enabled.
type Preferences struct {
	UserID               string `db:"user_id" json:"user_id"`
	JobAlerts            bool   `db:"job_alerts" json:"job_alerts"`
	MatchingAlerts       bool   `db:"matching_alerts" json:"matching_alerts"`
	EventReminders       bool   `db:"event_reminders" json:"event_reminders"`
	CollaborationInvites bool   `db:"collaboration_invites" json:"collaboration_invites"`
}

// DefaultPreferences is what a user gets before ever touching the settings.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:               userID,
		JobAlerts:            true,
		MatchingAlerts:       true,
		EventReminders:       true,
		CollaborationInvites: true,
	}
}
