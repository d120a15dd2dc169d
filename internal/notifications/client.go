package notifications

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// InboundEvent is a control or chat event received from a connection.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client is the middleman between one websocket connection and the hub.
// Writes go through a buffered channel so a slow consumer never blocks a
// broadcast; when the buffer is full the payload is dropped.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	UserID  uint
	IsAdmin bool

	// OnEvent handles inbound events. Runs on the read pump goroutine.
	OnEvent func(c *Client, ev InboundEvent)

	closeOnce sync.Once
}

// NewClient wraps a websocket connection for use with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, isAdmin bool) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		UserID:  userID,
		IsAdmin: isAdmin,
	}
}

// TrySend queues a payload for delivery without blocking. Returns false if
// the client's buffer is full or closed and the payload was dropped.
func (c *Client) TrySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		log.Printf("hub: dropping event for user %d, send buffer full", c.UserID)
		return false
	}
}

// TryReceive pops the next queued payload without blocking. Connection-less
// clients, which run no WritePump, drain their queue this way; mainly for
// tests.
func (c *Client) TryReceive() ([]byte, bool) {
	select {
	case payload := <-c.send:
		return payload, true
	default:
		return nil, false
	}
}

// SendEvent marshals and queues a named event for this client only.
func (c *Client) SendEvent(event string, data any) {
	payload, err := json.Marshal(Event{Name: event, Data: data})
	if err != nil {
		log.Printf("hub: marshal %s event: %v", event, err)
		return
	}
	c.TrySend(payload)
}

// Close tears down the connection once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ReadPump pumps inbound events from the websocket to OnEvent. It runs in
// the connection's handler goroutine; on exit the client is removed from
// every room.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: read error for user %d: %v", c.UserID, err)
			}
			return
		}

		var ev InboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("hub: invalid event from user %d: %v", c.UserID, err)
			continue
		}
		if c.OnEvent != nil {
			c.OnEvent(c, ev)
		}
	}
}

// WritePump pumps queued payloads to the websocket and keeps the connection
// alive with pings. Runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
