package notify

import "realtime-service/internal/models"

// Allowed reports whether the recipient's preferences permit a notification
// of the given type. Pure function of the two inputs; types without an
// opt-out (messages, system notices) are always allowed.
func Allowed(prefs models.Preferences, typ models.NotificationType) bool {
	switch typ {
	case models.NotifyJobAlert:
		return prefs.JobAlerts
	case models.NotifyMatchFound:
		return prefs.MatchingAlerts
	case models.NotifyEventReminder:
		return prefs.EventReminders
	case models.NotifyCollaborationInvite:
		return prefs.CollaborationInvites
	default:
		return true
	}
}

// eventName maps an envelope type to the event emitted on the recipient's
// notifications connection.
func eventName(typ models.NotificationType) string {
	switch typ {
	case models.NotifyJobAlert:
		return models.EvNewJob
	case models.NotifyMatchFound:
		return models.EvMatchFound
	case models.NotifyEventReminder:
		return models.EvEventReminder
	case models.NotifyCollaborationInvite:
		return models.EvCollaborationInv
	default:
		return models.EvNotification
	}
}
