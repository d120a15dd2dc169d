package server

import (
	"context"
	"encoding/json"
	"log"

	"studyhive/internal/models"
	"studyhive/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type joinRoomPayload struct {
	Room string `json:"room"` // "group", "user" or "admins"
	ID   uint   `json:"id"`
}

// groupRefPayload carries just a group id, used by the join-group and
// leave-group control events.
type groupRefPayload struct {
	ID uint `json:"id"`
}

type wsMessagePayload struct {
	GroupID  uint   `json:"group_id"`
	Text     string `json:"text"`
	FileLink string `json:"file_link"`
}

// WebsocketHandler upgrades GET /api/ws connections and wires them to the
// hub. Auth runs before the upgrade, so the user id is already in Locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		isAdmin := s.isAdminUser(context.Background(), userID)

		client := notifications.NewClient(s.hub, conn, userID, isAdmin)
		client.OnEvent = s.handleClientEvent

		s.hub.Register(client)
		// Every connection listens on its own user room from the start.
		s.hub.Join(client, notifications.UserRoom(userID))

		client.SendEvent("connected", fiber.Map{"user_id": userID})

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// handleClientEvent dispatches inbound websocket events. Runs on the
// connection's read pump goroutine.
func (s *Server) handleClientEvent(c *notifications.Client, ev notifications.InboundEvent) {
	switch ev.Name {
	case "join":
		var p joinRoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.SendEvent("error", fiber.Map{"message": "invalid join payload"})
			return
		}
		s.handleJoinRoom(c, p)

	case "join-group":
		var p groupRefPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.SendEvent("error", fiber.Map{"message": "invalid join payload"})
			return
		}
		s.handleJoinRoom(c, joinRoomPayload{Room: "group", ID: p.ID})

	case "leave-group":
		var p groupRefPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.SendEvent("error", fiber.Map{"message": "invalid leave payload"})
			return
		}
		s.hub.Leave(c, notifications.GroupRoom(p.ID))

	case "send_message":
		var p wsMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.SendEvent("error", fiber.Map{"message": "invalid message payload"})
			return
		}
		s.handleWsMessage(c, p)

	default:
		log.Printf("ws: unknown event %q from user %d", ev.Name, c.UserID)
	}
}

func (s *Server) handleJoinRoom(c *notifications.Client, p joinRoomPayload) {
	ctx := context.Background()

	switch p.Room {
	case "group":
		member, err := s.groupRepo.GetMembership(ctx, p.ID, c.UserID)
		if err != nil {
			c.SendEvent("error", fiber.Map{"message": "failed to verify membership"})
			return
		}
		if !c.IsAdmin && (member == nil || member.Status != models.MemberStatusApproved) {
			c.SendEvent("error", fiber.Map{"message": "You are not a member of this group"})
			return
		}
		s.hub.Join(c, notifications.GroupRoom(p.ID))
		c.SendEvent("joined", fiber.Map{"room": notifications.GroupRoom(p.ID)})

	case "user":
		// Connections may only subscribe to their own user room.
		if p.ID != c.UserID {
			c.SendEvent("error", fiber.Map{"message": "cannot join another user's room"})
			return
		}
		s.hub.Join(c, notifications.UserRoom(c.UserID))
		c.SendEvent("joined", fiber.Map{"room": notifications.UserRoom(c.UserID)})

	case "admins":
		if !c.IsAdmin {
			c.SendEvent("error", fiber.Map{"message": "admin access required"})
			return
		}
		s.hub.Join(c, notifications.AdminRoom)
		c.SendEvent("joined", fiber.Map{"room": notifications.AdminRoom})

	default:
		c.SendEvent("error", fiber.Map{"message": "unknown room type"})
	}
}

// handleWsMessage persists a chat message received over the socket and
// relays the hydrated view to the rest of the room. The origin connection is
// excluded; it gets the same view back as a direct acknowledgement.
func (s *Server) handleWsMessage(c *notifications.Client, p wsMessagePayload) {
	ctx := context.Background()

	if p.Text == "" && p.FileLink == "" {
		c.SendEvent("error", fiber.Map{"message": "message text is required"})
		return
	}

	room := notifications.GroupRoom(p.GroupID)
	if !s.hub.InRoom(c, room) {
		c.SendEvent("error", fiber.Map{"message": "join the group room before sending"})
		return
	}

	view, err := s.persistAndHydrateMessage(ctx, p.GroupID, c.UserID, p.Text, p.FileLink)
	if err != nil {
		log.Printf("ws: persist message from user %d: %v", c.UserID, err)
		c.SendEvent("error", fiber.Map{"message": "failed to send message"})
		return
	}

	s.hub.BroadcastExcept(room, c, "receive_message", view)
	c.SendEvent("message_sent", view)
}
