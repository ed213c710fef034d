package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/debemdeboas/redux-content/internal/model"
)

const publishTimeout = 2 * time.Second

type envelope struct {
	Origin string           `json:"origin"`
	Change model.PageChange `json:"change"`
}

// RedisBus publishes page changes on a Redis channel and delivers changes
// published by other instances to a local handler.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging redis at %s: %w", addr, err)
	}
	return client, nil
}

// Publish sends change to other instances. Failures are logged and dropped;
// a missed event only delays a preview reload.
func (b *RedisBus) Publish(change model.PageChange) {
	data, err := json.Marshal(envelope{Origin: b.origin, Change: change})
	if err != nil {
		eventsLogger.Error().Err(err).Msg("Error encoding page change")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		eventsLogger.Warn().Err(err).
			Str("page_id", string(change.PageID)).
			Int("version", change.Version).
			Msg("Error publishing page change")
	}
}

// Subscribe calls handler for every change published by another instance
// until ctx is done. It returns once the subscription is confirmed.
func (b *RedisBus) Subscribe(ctx context.Context, handler Notifier) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("error subscribing to %s: %w", b.channel, err)
	}

	go func() {
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					eventsLogger.Warn().Err(err).Msg("Ignoring malformed page change")
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				handler(env.Change)
			}
		}
	}()

	return nil
}
