package server

import (
	"net/http"
	"testing"

	"studyhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyProfile(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	user := createTestUser(t, s, "profileuser", false)

	resp := doJSON(t, app, http.MethodGet, "/api/users/me", authToken(t, s, user.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool        `json:"success"`
		Data    models.User `json:"data"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "profileuser", body.Data.Username)
	assert.Empty(t, body.Data.Password, "password hash must never serialize")
}

func TestUpdateMyProfile(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	user := createTestUser(t, s, "editor", false)
	token := authToken(t, s, user.ID)

	resp := doJSON(t, app, http.MethodPut, "/api/users/me", token, map[string]string{
		"first_name": "Grace",
		"bio":        "debugging pioneer",
	})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, s.db.First(&reloaded, user.ID).Error)
	assert.Equal(t, "Grace", reloaded.FirstName)
	assert.Equal(t, "debugging pioneer", reloaded.Bio)
	// Untouched fields stay put.
	assert.Equal(t, "editor", reloaded.Username)
}

func TestAdminUserList(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	admin := createTestUser(t, s, "listadmin", true)
	createTestUser(t, s, "plainuser", false)

	resp := doJSON(t, app, http.MethodGet, "/api/users/admin-list", authToken(t, s, admin.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []models.User `json:"data"`
	}
	decodeBody(t, resp, &body)
	assert.Len(t, body.Data, 2)
}
