// Package notifications provides the real-time room hub and its Redis fan-in.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Room name helpers. Rooms are either group-scoped (chat, schedules,
// announcements) or user-scoped (personal notifications), plus one fixed
// room for administrators.
func GroupRoom(groupID uint) string { return fmt.Sprintf("group:%d", groupID) }
func UserRoom(userID uint) string   { return fmt.Sprintf("user:%d", userID) }

const AdminRoom = "admins"

// Event is the wire shape delivered to subscribed connections.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Hub tracks which connections are subscribed to which rooms and relays
// named events to them. It holds no durable state: membership exists only
// while a connection is registered and vanishes on disconnect.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
	}
}

// Register tracks a newly connected client so Shutdown and Unregister see
// it even before it joins any room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientRooms[c] == nil {
		h.clientRooms[c] = make(map[string]struct{})
	}
}

// Join subscribes a client to a room. Idempotent.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}

	if h.clientRooms[c] == nil {
		h.clientRooms[c] = make(map[string]struct{})
	}
	h.clientRooms[c][room] = struct{}{}
}

// Leave unsubscribes a client from a room. No-op if absent.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, room)
}

// Unregister drops a client from every room it joined. Called when the
// connection terminates.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.clientRooms[c] {
		h.removeLocked(c, room)
	}
	delete(h.clientRooms, c)
}

func (h *Hub) removeLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.clientRooms[c]; ok {
		delete(rooms, room)
	}
}

// InRoom reports whether the client is currently subscribed to the room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// RoomSize returns the number of connections subscribed to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers a named event to every connection in the room.
// Delivery is best-effort: slow or closed connections are skipped.
func (h *Hub) Broadcast(room, event string, data any) {
	h.BroadcastExcept(room, nil, event, data)
}

// BroadcastExcept delivers an event to every connection in the room except
// the origin. Used for self-echo events where the origin already holds the
// payload from its own request.
func (h *Hub) BroadcastExcept(room string, origin *Client, event string, data any) {
	payload, err := json.Marshal(Event{Name: event, Data: data})
	if err != nil {
		log.Printf("hub: marshal %s event: %v", event, err)
		return
	}
	h.broadcastRaw(room, origin, payload)
}

// BroadcastRaw delivers a pre-marshaled event payload to a room. Used by the
// Redis fan-in, which receives payloads already in wire shape.
func (h *Hub) BroadcastRaw(room string, payload []byte) {
	h.broadcastRaw(room, nil, payload)
}

func (h *Hub) broadcastRaw(room string, origin *Client, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if c == origin {
			continue
		}
		c.TrySend(payload)
	}
}

// StartWiring subscribes the hub to the Redis notification channels so that
// events published by any process instance reach this hub's user rooms.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartUserSubscriber(ctx, func(userID uint, payload string) {
		h.BroadcastRaw(UserRoom(userID), []byte(payload))
	})
}

// Shutdown closes every registered connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clientRooms))
	for c := range h.clientRooms {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return nil
}
