package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroker(t *testing.T, client *redis.Client, hub *Hub) *RedisBroker {
	t.Helper()
	broker := NewRedisBroker(client, hub)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		broker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(context.Background(), redisChannel).Result()
		return err == nil && n[redisChannel] > 0
	}, 2*time.Second, 10*time.Millisecond)
	return broker
}

// Two instances share one Redis; a publish on either reaches subscribers of both.
func TestRedisBrokerFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hubA, hubB := NewHub(nil), NewHub(nil)
	brokerA := startBroker(t, client, hubA)
	startBroker(t, client, hubB)

	connB := dial(t, startHubServer(t, hubB)+"/ws/establishment:1")
	require.Eventually(t, func() bool { return hubB.ClientCount("establishment:1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, brokerA.Publish(context.Background(), "establishment:1",
		Message{Event: EventOrderCreated, Data: map[string]int{"id": 11}}))

	var got Message
	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, connB.ReadJSON(&got))
	assert.Equal(t, EventOrderCreated, got.Event)
	assert.Equal(t, map[string]interface{}{"id": float64(11)}, got.Data)
}

func TestRedisBrokerSkipsMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := NewHub(nil)
	broker := startBroker(t, client, hub)
	conn := dial(t, startHubServer(t, hub)+"/ws/session:abc")
	require.Eventually(t, func() bool { return hub.ClientCount("session:abc") == 1 }, time.Second, 10*time.Millisecond)

	mr.Publish(redisChannel, "{garbage")
	require.NoError(t, broker.Publish(context.Background(), "session:abc", Message{Event: EventSessionClosed}))

	var got Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventSessionClosed, got.Event, "relay keeps running after a bad payload")
}

func TestRedisBrokerPublishFailsWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	err = NewRedisBroker(client, NewHub(nil)).Publish(context.Background(), "establishment:1", Message{Event: EventOrderCreated})
	assert.Error(t, err)
}
