package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient builds a connection-less client whose queued payloads can be
// read straight off the send channel.
func testClient(hub *Hub, userID uint) *Client {
	return NewClient(hub, nil, userID, false)
}

func receivedEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func assertNothingQueued(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected event queued: %s", payload)
	default:
	}
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a := testClient(hub, 1)
	b := testClient(hub, 2)
	outsider := testClient(hub, 3)

	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)

	room := GroupRoom(7)
	hub.Join(a, room)
	hub.Join(b, room)

	hub.Broadcast(room, "receive_message", map[string]string{"text": "hi"})

	for _, c := range []*Client{a, b} {
		ev := receivedEvent(t, c)
		assert.Equal(t, "receive_message", ev.Name)
	}
	assertNothingQueued(t, outsider)
}

func TestHubBroadcastExceptSkipsOrigin(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	origin := testClient(hub, 1)
	other := testClient(hub, 2)

	room := GroupRoom(3)
	hub.Join(origin, room)
	hub.Join(other, room)

	hub.BroadcastExcept(room, origin, "receive_message", nil)

	ev := receivedEvent(t, other)
	assert.Equal(t, "receive_message", ev.Name)
	assertNothingQueued(t, origin)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	c := testClient(hub, 5)
	room := UserRoom(5)

	hub.Join(c, room)
	hub.Join(c, room)
	assert.Equal(t, 1, hub.RoomSize(room))

	hub.Broadcast(room, "ping", nil)
	receivedEvent(t, c)
	// A second queued copy would mean the duplicate join stuck.
	assertNothingQueued(t, c)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	c := testClient(hub, 9)
	room := GroupRoom(9)

	hub.Join(c, room)
	assert.True(t, hub.InRoom(c, room))

	hub.Leave(c, room)
	assert.False(t, hub.InRoom(c, room))
	assert.Zero(t, hub.RoomSize(room))

	hub.Broadcast(room, "receive_message", nil)
	assertNothingQueued(t, c)

	// Leaving a room twice is harmless.
	hub.Leave(c, room)
}

func TestHubUnregisterRemovesFromAllRooms(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	c := testClient(hub, 4)
	hub.Register(c)
	hub.Join(c, GroupRoom(1))
	hub.Join(c, GroupRoom(2))
	hub.Join(c, UserRoom(4))

	hub.Unregister(c)

	assert.Zero(t, hub.RoomSize(GroupRoom(1)))
	assert.Zero(t, hub.RoomSize(GroupRoom(2)))
	assert.Zero(t, hub.RoomSize(UserRoom(4)))
}

func TestClientTrySendDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c := testClient(hub, 6)

	payload := []byte(`{"event":"x"}`)
	for i := 0; i < sendBufferSize; i++ {
		assert.True(t, c.TrySend(payload))
	}
	// Buffer is full now; the next send is dropped, not blocked.
	assert.False(t, c.TrySend(payload))
}

func TestHubShutdownClosesClients(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	c := testClient(hub, 8)
	hub.Register(c)
	hub.Join(c, UserRoom(8))

	require.NoError(t, hub.Shutdown(context.Background()))

	// The send channel is closed, so a queued read returns immediately.
	_, open := <-c.send
	assert.False(t, open)
}
