package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/qrmenu/metrics"
	"github.com/yeremiapane/qrmenu/utils"
)

// Event types
const (
	EventOrderCreated  = "order_created"
	EventOrderUpdated  = "order_updated"
	EventOrderDeleted  = "order_deleted"
	EventTableUpdated  = "table_updated"
	EventSessionClosed = "session_closed"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Publisher delivers a message to every subscriber of a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// EstablishmentTopic is what the staff dashboard subscribes to.
func EstablishmentTopic(establishmentID uint) string {
	return fmt.Sprintf("establishment:%d", establishmentID)
}

// SessionTopic is what the customer view of one table session subscribes to.
func SessionTopic(session uuid.UUID) string {
	return "session:" + session.String()
}

const (
	writeWait = 5 * time.Second
	// Messages queued for one connection before it counts as stalled.
	sendBuffer = 16
)

type client struct {
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

// writePump is the only writer of c.conn. It exits when send is closed or a
// write fails.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Write to %s subscriber failed: %v", c.topic, err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub menampung semua websocket client beserta topic yang di-subscribe.
type Hub struct {
	clients  map[*client]struct{}
	mutex    sync.Mutex
	upgrader websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin]
			},
		},
	}
}

func (h *Hub) register(conn *websocket.Conn, topic string) *client {
	c := &client{conn: conn, topic: topic, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go c.writePump()
	return c
}

func (h *Hub) add(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = struct{}{}
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	metrics.RealtimeConnections.Dec()
	close(c.send)
}

// ClientCount returns the number of connections subscribed to topic.
func (h *Hub) ClientCount(topic string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for c := range h.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

// Publish queues msg for the connections of this process only. It never
// waits on a socket; a subscriber whose queue is full is dropped.
func (h *Hub) Publish(_ context.Context, topic string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Event, err)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients {
		if c.topic != topic {
			continue
		}
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.Printf("Dropping stalled %s subscriber", topic)
			h.removeLocked(c)
		}
	}
	return nil
}

// Serve upgrades the request and keeps the connection subscribed to topic
// until the client goes away.
func (h *Hub) Serve(c *gin.Context, topic string) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	sub := h.register(ws, topic)
	utils.InfoLogger.Debugf("Subscribed to %s", topic)

	// Client messages are ignored; reading detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(sub)
}
