package broker

import (
	"context"
	"log"
	"time"

	"github.com/goccy/go-json"

	"realtime-service/internal/models"
	"realtime-service/internal/observability"
)

// LocalDeliverer fans a payload out to this process's subscribers of a
// channel. Implemented by the ws registry.
type LocalDeliverer interface {
	Deliver(channelID string, payload []byte)
}

// Relay forwards published events to every other process through the shared
// pub/sub backend and feeds back events published elsewhere.
type Relay interface {
	Publish(ctx context.Context, channelID string, payload []byte) error
	Listen(ctx context.Context, handler func(channelID string, payload []byte)) error
	Close() error
}

// Broadcaster publishes events to channel subscribers: local connections
// synchronously, remote processes through the relay. A nil relay degrades to
// single-process fan-out.
type Broadcaster struct {
	local LocalDeliverer
	relay Relay
}

// New constructs a Broadcaster.
func New(local LocalDeliverer, relay Relay) *Broadcaster {
	return &Broadcaster{local: local, relay: relay}
}

// Publish delivers the event to every local subscriber of the channel, then
// forwards it once to the shared backend. Relay failures are logged and
// never surfaced to the publisher.
func (b *Broadcaster) Publish(ctx context.Context, channelID string, event models.Event) {
	event.ChannelID = channelID
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broker: marshal event %s: %v", event.Type, err)
		return
	}

	b.local.Deliver(channelID, payload)
	observability.IncBroadcast("local")

	if b.relay == nil {
		return
	}
	if err := b.relay.Publish(ctx, channelID, payload); err != nil {
		observability.IncRelayError()
		log.Printf("broker: relay publish failed, continuing local-only: %v", err)
		return
	}
	observability.IncBroadcast("relay")
}

// Run consumes relayed events from other processes and re-delivers them to
// local subscribers. It blocks until ctx is canceled or the relay closes.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.relay == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.relay.Listen(ctx, func(channelID string, payload []byte) {
		b.local.Deliver(channelID, payload)
		observability.IncBroadcast("local")
	})
}
