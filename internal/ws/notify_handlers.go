package ws

import (
	"context"

	"github.com/goccy/go-json"

	"realtime-service/internal/models"
)

type preferencesPayload struct {
	JobAlerts            bool `json:"jobAlerts"`
	MatchingAlerts       bool `json:"matchingAlerts"`
	EventReminders       bool `json:"eventReminders"`
	CollaborationInvites bool `json:"collaborationInvites"`
}

type historyPayload struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type notificationReadPayload struct {
	NotificationID string `json:"notificationId"`
}

func (g *Gateway) handleNotifyEvent(ctx context.Context, conn *Conn, event inboundEvent) {
	switch event.Type {
	case models.EvUpdatePrefs:
		var p preferencesPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			conn.SendError("invalid preferences payload")
			return
		}
		prefs := models.Preferences{
			UserID:               conn.UserID,
			JobAlerts:            p.JobAlerts,
			MatchingAlerts:       p.MatchingAlerts,
			EventReminders:       p.EventReminders,
			CollaborationInvites: p.CollaborationInvites,
		}
		if err := g.notify.UpdatePreferences(ctx, prefs); err != nil {
			conn.SendError("could not update preferences")
			return
		}
		conn.Send(models.Event{Type: models.EvPrefsUpdated, Data: prefs})

	case models.EvGetHistory:
		var p historyPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			conn.SendError("invalid history payload")
			return
		}
		list, err := g.notify.History(ctx, conn.UserID, p.Limit, p.Offset)
		if err != nil {
			conn.SendError("could not load history")
			return
		}
		conn.Send(models.Event{Type: models.EvHistory, Data: map[string]interface{}{"notifications": list}})

	case models.EvMarkRead:
		var p notificationReadPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.NotificationID == "" {
			conn.SendError("mark-read requires notificationId")
			return
		}
		if err := g.notify.MarkRead(ctx, p.NotificationID, conn.UserID); err != nil {
			conn.SendError("notification not found")
		}

	case models.EvMarkAllRead:
		if err := g.notify.MarkAllRead(ctx, conn.UserID); err != nil {
			conn.SendError("could not mark notifications read")
		}

	default:
		conn.SendError("unknown event type: " + event.Type)
	}
}
