package ws

import (
	"context"

	"github.com/goccy/go-json"

	"realtime-service/internal/models"
)

type jobSubscribePayload struct {
	JobID string `json:"jobId"`
}

type eventSubscribePayload struct {
	EventID string `json:"eventId"`
}

type unsubscribePayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (g *Gateway) handleLiveEvent(ctx context.Context, conn *Conn, event inboundEvent) {
	switch event.Type {
	case models.EvSubscribeJob:
		var p jobSubscribePayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.JobID == "" {
			conn.SendError("subscribe-job-updates requires jobId")
			return
		}
		g.registry.Subscribe(conn, models.JobChannel(p.JobID))

	case models.EvSubscribeEvent:
		var p eventSubscribePayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.EventID == "" {
			conn.SendError("subscribe-event-updates requires eventId")
			return
		}
		g.registry.Subscribe(conn, models.EventChannel(p.EventID))

	case models.EvSubscribeOnline:
		g.registry.Subscribe(conn, models.OnlineCountChannel)
		conn.Send(models.Event{
			Type:      models.EvOnlineCount,
			ChannelID: models.OnlineCountChannel,
			Data:      map[string]int{"count": g.registry.Count()},
		})

	case models.EvUnsubscribe:
		var p unsubscribePayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			conn.SendError("invalid unsubscribe payload")
			return
		}
		channelID, ok := liveChannel(p)
		if !ok {
			conn.SendError("unknown subscription type: " + p.Type)
			return
		}
		g.registry.Unsubscribe(conn, channelID)

	case models.EvGetStats:
		stats, err := g.presence.Snapshot(ctx)
		if err != nil {
			conn.SendError("could not load stats")
			return
		}
		conn.Send(models.Event{Type: models.EvStatsUpdate, Data: stats})

	default:
		conn.SendError("unknown event type: " + event.Type)
	}
}

func liveChannel(p unsubscribePayload) (string, bool) {
	switch p.Type {
	case "job":
		return models.JobChannel(p.ID), true
	case "event":
		return models.EventChannel(p.ID), true
	case "online-count":
		return models.OnlineCountChannel, true
	}
	return "", false
}
