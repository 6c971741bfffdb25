package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/utils"
)

func startHubServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	r := gin.New()
	r.GET("/ws/:topic", func(c *gin.Context) {
		hub.Serve(c, c.Param("topic"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversOnlyToTopicSubscribers(t *testing.T) {
	hub := NewHub(nil)
	base := startHubServer(t, hub)

	dashboard := dial(t, base+"/ws/establishment:1")
	other := dial(t, base+"/ws/establishment:2")

	require.Eventually(t, func() bool {
		return hub.ClientCount("establishment:1") == 1 && hub.ClientCount("establishment:2") == 1
	}, time.Second, 10*time.Millisecond)

	err := hub.Publish(context.Background(), "establishment:1", Message{Event: EventOrderCreated, Data: map[string]int{"id": 7}})
	require.NoError(t, err)

	var got Message
	dashboard.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, dashboard.ReadJSON(&got))
	assert.Equal(t, EventOrderCreated, got.Event)
	assert.Equal(t, map[string]interface{}{"id": float64(7)}, got.Data)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "subscriber of another topic must not receive the message")
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	base := startHubServer(t, hub)

	conn := dial(t, base+"/ws/session:abc")
	require.Eventually(t, func() bool { return hub.ClientCount("session:abc") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("session:abc") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://menu.example.com"})
	base := startHubServer(t, hub)

	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/establishment:1", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestTopics(t *testing.T) {
	id := uuid.MustParse("7f1f0d4e-2d0a-4c2c-9a53-0d1b1f1c3e11")
	assert.Equal(t, "establishment:42", EstablishmentTopic(42))
	assert.Equal(t, "session:7f1f0d4e-2d0a-4c2c-9a53-0d1b1f1c3e11", SessionTopic(id))
}

func TestPublishDropsStalledSubscriber(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)
	// Nothing drains this queue, like a client that stopped reading.
	stalled := &client{topic: "establishment:9", send: make(chan []byte, sendBuffer)}
	hub.add(stalled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i <= sendBuffer; i++ {
			hub.Publish(context.Background(), "establishment:9", Message{Event: EventOrderUpdated, Data: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled subscriber")
	}
	assert.Equal(t, 0, hub.ClientCount("establishment:9"))
	assert.Len(t, stalled.send, sendBuffer)
}

func TestSlowSubscriberDoesNotDelayOthers(t *testing.T) {
	hub := NewHub(nil)
	base := startHubServer(t, hub)

	hub.add(&client{topic: "establishment:3", send: make(chan []byte, sendBuffer)})
	live := dial(t, base+"/ws/establishment:3")
	require.Eventually(t, func() bool { return hub.ClientCount("establishment:3") == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), "establishment:3", Message{Event: EventTableUpdated}))

	var got Message
	live.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, live.ReadJSON(&got))
	assert.Equal(t, EventTableUpdated, got.Event)
}
