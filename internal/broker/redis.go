package broker

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const channelPrefix = "realtime:"

// frame wraps a relayed payload with its channel and an origin tag so the
// publishing process can recognize and drop its own events.
type frame struct {
	Origin    string          `json:"origin"`
	ChannelID string          `json:"channelId"`
	Payload   json.RawMessage `json:"payload"`
}

// RedisRelay implements Relay on top of redis pub/sub.
type RedisRelay struct {
	rdb    *redis.Client
	origin string
}

// NewRedisRelay connects to redis and verifies the connection.
func NewRedisRelay(redisURL string) (*RedisRelay, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisRelay{rdb: rdb, origin: uuid.NewString()}, nil
}

// Publish forwards one event to the backend topic for its channel.
func (r *RedisRelay) Publish(ctx context.Context, channelID string, payload []byte) error {
	body, err := json.Marshal(frame{Origin: r.origin, ChannelID: channelID, Payload: payload})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelPrefix+channelID, body).Err()
}

// Listen subscribes to all relayed channels and invokes handler for every
// event published by another process. Own events are dropped by origin tag.
func (r *RedisRelay) Listen(ctx context.Context, handler func(channelID string, payload []byte)) error {
	pubsub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}
	log.Printf("broker: subscribed to redis pattern %s*", channelPrefix)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			channelID, payload, ok := r.decodeFrame(msg.Channel, msg.Payload)
			if !ok {
				continue
			}
			handler(channelID, payload)
		}
	}
}

// decodeFrame parses a relayed frame. Malformed frames and frames this
// process published itself are dropped.
func (r *RedisRelay) decodeFrame(channel, raw string) (string, []byte, bool) {
	var f frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		log.Printf("broker: bad relay frame on %s: %v", channel, err)
		return "", nil, false
	}
	if f.Origin == r.origin {
		return "", nil, false
	}
	return f.ChannelID, f.Payload, true
}

// Close shuts the redis client down.
func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}
