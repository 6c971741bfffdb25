package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/qrmenu/utils"
)

const redisChannel = "qrmenu:realtime"

type envelope struct {
	Topic   string  `json:"topic"`
	Message Message `json:"message"`
}

// RedisBroker fans messages out to the hub of every instance through a
// Redis pub/sub channel.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisBroker(client *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, hub: hub}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg Message) error {
	data, err := json.Marshal(envelope{Topic: topic, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Event, err)
	}
	return b.client.Publish(ctx, redisChannel, data).Err()
}

// Run relays channel messages into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, redisChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(ctx, m.Payload)
		}
	}
}

func (b *RedisBroker) deliver(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		utils.ErrorLogger.Printf("Ignoring malformed realtime payload: %v", err)
		return
	}
	if err := b.hub.Publish(ctx, env.Topic, env.Message); err != nil {
		utils.ErrorLogger.Printf("Realtime delivery to %s failed: %v", env.Topic, err)
	}
}
