package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"realtime-service/internal/models"
	"realtime-service/internal/repositories"
)

// ConnCounter reports the number of live connections on this process.
// Implemented by the ws registry.
type ConnCounter interface {
	Count() int
}

// Publisher fans an event out to all subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channelID string, event models.Event)
}

// Tracker broadcasts the online count on every edge and periodically
// republishes aggregate statistics for subscribers that missed an
// edge-triggered update.
type Tracker struct {
	counter  ConnCounter
	bus      Publisher
	stats    repositories.StatsRepository
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTracker constructs a Tracker.
func NewTracker(counter ConnCounter, bus Publisher, stats repositories.StatsRepository, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Tracker{
		counter:  counter,
		bus:      bus,
		stats:    stats,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// OnConnect publishes the new online count after a connection registered.
func (t *Tracker) OnConnect(ctx context.Context) {
	t.publishCount(ctx)
}

// OnDisconnect publishes the new online count after a connection went away.
func (t *Tracker) OnDisconnect(ctx context.Context) {
	t.publishCount(ctx)
}

// Online returns the current local connection count.
func (t *Tracker) Online() int {
	return t.counter.Count()
}

func (t *Tracker) publishCount(ctx context.Context) {
	t.bus.Publish(ctx, models.OnlineCountChannel, models.Event{
		Type: models.EvOnlineCount,
		Data: map[string]int{"count": t.counter.Count()},
	})
}

// Snapshot assembles the aggregate statistics payload.
func (t *Tracker) Snapshot(ctx context.Context) (models.Stats, error) {
	stats := models.Stats{OnlineUsers: t.counter.Count()}
	var err error
	if stats.TotalJobs, err = t.stats.TotalJobs(ctx); err != nil {
		return stats, err
	}
	if stats.TotalEvents, err = t.stats.TotalEvents(ctx); err != nil {
		return stats, err
	}
	if stats.TotalUsers, err = t.stats.TotalUsers(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Run republishes stats on a fixed interval until ctx is canceled or Stop
// is called.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			stats, err := t.Snapshot(ctx)
			if err != nil {
				log.Printf("presence: stats snapshot failed: %v", err)
				continue
			}
			t.bus.Publish(ctx, models.OnlineCountChannel, models.Event{
				Type: models.EvStatsUpdate,
				Data: stats,
			})
		}
	}
}

// Stop terminates the periodic republish loop.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
