package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-service/internal/models"
)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []delivery
}

type delivery struct {
	channelID string
	payload   []byte
}

func (d *fakeDeliverer) Deliver(channelID string, payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, delivery{channelID: channelID, payload: payload})
}

func (d *fakeDeliverer) all() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]delivery, len(d.delivered))
	copy(out, d.delivered)
	return out
}

type fakeRelay struct {
	mu         sync.Mutex
	published  []delivery
	publishErr error
	inbound    chan delivery
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{inbound: make(chan delivery, 16)}
}

func (r *fakeRelay) Publish(_ context.Context, channelID string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return r.publishErr
	}
	r.published = append(r.published, delivery{channelID: channelID, payload: payload})
	return nil
}

func (r *fakeRelay) Listen(ctx context.Context, handler func(channelID string, payload []byte)) error {
	for {
		select {
		case d := <-r.inbound:
			handler(d.channelID, d.payload)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *fakeRelay) Close() error { return nil }

func (r *fakeRelay) sent() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]delivery, len(r.published))
	copy(out, r.published)
	return out
}

func TestPublishDeliversLocallyThenRelays(t *testing.T) {
	local := &fakeDeliverer{}
	relay := newFakeRelay()
	b := New(local, relay)

	b.Publish(context.Background(), "room:r1", models.Event{Type: models.EvNewMessage})

	deliveries := local.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "room:r1", deliveries[0].channelID)

	relayed := relay.sent()
	require.Len(t, relayed, 1)
	assert.Equal(t, "room:r1", relayed[0].channelID)
	assert.Equal(t, deliveries[0].payload, relayed[0].payload)
}

func TestPublishStampsChannelAndTimestamp(t *testing.T) {
	local := &fakeDeliverer{}
	b := New(local, nil)

	b.Publish(context.Background(), "room:r1", models.Event{Type: models.EvNewMessage})

	deliveries := local.all()
	require.Len(t, deliveries, 1)
	var event models.Event
	require.NoError(t, json.Unmarshal(deliveries[0].payload, &event))
	assert.Equal(t, "room:r1", event.ChannelID)
	assert.NotZero(t, event.Timestamp)
}

func TestPublishNilRelayLocalOnly(t *testing.T) {
	local := &fakeDeliverer{}
	b := New(local, nil)

	b.Publish(context.Background(), "room:r1", models.Event{Type: models.EvNewMessage})
	assert.Len(t, local.all(), 1)
}

func TestPublishRelayFailureStillDeliversLocally(t *testing.T) {
	local := &fakeDeliverer{}
	relay := newFakeRelay()
	relay.publishErr = assert.AnError
	b := New(local, relay)

	b.Publish(context.Background(), "room:r1", models.Event{Type: models.EvNewMessage})

	assert.Len(t, local.all(), 1)
	assert.Empty(t, relay.sent())
}

func TestPublishPreservesLocalOrder(t *testing.T) {
	local := &fakeDeliverer{}
	b := New(local, nil)

	for _, typ := range []string{"a", "b", "c"} {
		b.Publish(context.Background(), "room:r1", models.Event{Type: typ})
	}

	deliveries := local.all()
	require.Len(t, deliveries, 3)
	for i, typ := range []string{"a", "b", "c"} {
		var event models.Event
		require.NoError(t, json.Unmarshal(deliveries[i].payload, &event))
		assert.Equal(t, typ, event.Type)
	}
}

func TestRunRedeliversRelayedEvents(t *testing.T) {
	local := &fakeDeliverer{}
	relay := newFakeRelay()
	b := New(local, relay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()

	relay.inbound <- delivery{channelID: "room:r2", payload: []byte(`{"type":"new-message"}`)}

	require.Eventually(t, func() bool {
		return len(local.all()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "room:r2", local.all()[0].channelID)

	cancel()
	<-done
}

// External backend services publish job and event updates through the
// relay. The broadcaster delivers them to local subscribers untouched.
func TestRunRelaysExternallyProducedUpdates(t *testing.T) {
	local := &fakeDeliverer{}
	relay := newFakeRelay()
	b := New(local, relay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()

	frame, err := json.Marshal(models.Event{Type: models.EvJobAppUpdate, ChannelID: models.JobChannel("j1")})
	require.NoError(t, err)
	relay.inbound <- delivery{channelID: models.JobChannel("j1"), payload: frame}

	require.Eventually(t, func() bool {
		return len(local.all()) == 1
	}, time.Second, 5*time.Millisecond)

	var event models.Event
	require.NoError(t, json.Unmarshal(local.all()[0].payload, &event))
	assert.Equal(t, models.EvJobAppUpdate, event.Type)
	assert.Equal(t, "job:j1", event.ChannelID)
	assert.Empty(t, relay.sent())

	cancel()
	<-done
}
