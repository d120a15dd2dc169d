package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"studyhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGroupMessage(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "chatowner", false)
	group := createTestGroup(t, s, creator, 5)
	path := fmt.Sprintf("/api/groups/%d/messages", group.ID)

	t.Run("Non-member forbidden", func(t *testing.T) {
		outsider := createTestUser(t, s, "eavesdropper", false)
		resp := doJSON(t, app, http.MethodPost, path, authToken(t, s, outsider.ID), map[string]string{
			"text": "hello?",
		})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Pending member forbidden", func(t *testing.T) {
		pending := createTestUser(t, s, "pendingchat", false)
		_, err := s.groupRepo.RequestJoin(context.Background(), group.ID, pending.ID)
		require.NoError(t, err)

		resp := doJSON(t, app, http.MethodPost, path, authToken(t, s, pending.ID), map[string]string{
			"text": "let me in",
		})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Member sends and gets hydrated view", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, authToken(t, s, creator.ID), map[string]string{
			"text": "first message",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Success bool               `json:"success"`
			Data    models.MessageView `json:"data"`
		}
		decodeBody(t, resp, &body)
		assert.True(t, body.Success)
		assert.Equal(t, "first message", body.Data.Text)
		assert.Equal(t, creator.ID, body.Data.SenderID)
		assert.Equal(t, "chatowner", body.Data.SenderName, "view must carry the sender's name")
		assert.NotZero(t, body.Data.ID)
	})

	t.Run("Empty message rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, authToken(t, s, creator.ID), map[string]string{})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSendGroupMessageBroadcastsToRoom(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "broadcaster", false)
	group := createTestGroup(t, s, creator, 5)
	otherGroup := createTestGroup(t, s, creator, 5)

	listener := createTestUser(t, s, "listener", false)
	subscribed := joinedRoomClient(t, s, listener.ID, group.ID)
	elsewhere := joinedRoomClient(t, s, listener.ID, otherGroup.ID)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/groups/%d/messages", group.ID),
		authToken(t, s, creator.ID), map[string]string{"text": "room check"})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ev := nextClientEvent(t, subscribed)
	assert.Equal(t, "receive_message", ev.Name)

	var view models.MessageView
	require.NoError(t, json.Unmarshal(ev.Data, &view))
	assert.Equal(t, "room check", view.Text)
	assert.Equal(t, "broadcaster", view.SenderName)

	// A client in a different group room hears nothing.
	assertNoClientEvent(t, elsewhere)
}

func TestGetGroupMessagesOrdering(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "historian", false)
	group := createTestGroup(t, s, creator, 5)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.db.Create(&models.Message{
			GroupID: group.ID, SenderID: creator.ID, Text: text,
		}).Error)
	}

	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/groups/%d/messages", group.ID), authToken(t, s, creator.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []models.MessageView `json:"data"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Data, 3)
	// Oldest first.
	assert.Equal(t, "one", body.Data[0].Text)
	assert.Equal(t, "three", body.Data[2].Text)
}
