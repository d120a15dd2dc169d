package server

import (
	"net/http"
	"testing"

	"studyhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"first_name": "Ada",
				"last_name":  "Lovelace",
				"username":   "ada",
				"email":      "ada@example.com",
				"password":   "password123",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate email",
			body: map[string]string{
				"username": "ada2",
				"email":    "ada@example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Duplicate username",
			body: map[string]string{
				"username": "ada",
				"email":    "other@example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Password too short",
			body: map[string]string{
				"username": "bob",
				"email":    "bob@example.com",
				"password": "short",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Missing email",
			body: map[string]string{
				"username": "carol",
				"password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", tt.body)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	var user models.User
	require.NoError(t, s.db.Where("username = ?", "ada").First(&user).Error)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NotEqual(t, "password123", user.Password, "password must be stored hashed")
}

func TestLogin(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	user := createTestUser(t, s, "logintest", false)

	t.Run("Success", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "password123",
		})
		var body struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, body.Success)
		assert.NotEmpty(t, body.Token)

		// Token must round-trip through the auth middleware's parser.
		parsedID, err := s.parseToken(body.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, parsedID)
	})

	t.Run("Wrong password", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "not-the-password",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Unknown email", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "password123",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Suspended account", func(t *testing.T) {
		suspended := createTestUser(t, s, "suspended", false)
		require.NoError(t, s.db.Model(suspended).Update("status", models.UserStatusSuspended).Error)

		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    suspended.Email,
			"password": "password123",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	user := createTestUser(t, s, "authcheck", false)

	t.Run("No token", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/users/me", "", nil)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Garbage token", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/users/me", "not-a-jwt", nil)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Valid token via header", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/users/me", authToken(t, s, user.ID), nil)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Valid token via query param", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/users/me?token="+authToken(t, s, user.ID), "", nil)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestAdminRequired(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	regular := createTestUser(t, s, "pleb", false)
	admin := createTestUser(t, s, "boss", true)

	resp := doJSON(t, app, http.MethodGet, "/api/users/admin-list", authToken(t, s, regular.ID), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/users/admin-list", authToken(t, s, admin.ID), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
