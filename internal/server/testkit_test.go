package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"studyhive/internal/config"
	"studyhive/internal/database"
	"studyhive/internal/models"
	"studyhive/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer builds a server over an in-memory sqlite database with the
// full route table mounted. Middleware is skipped: rate limits and metrics
// registration get in the way of parallel tests.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		Environment: "test",
		JWTSecret:   "test_secret",
		BaseURL:     "http://localhost:5000",
		UploadDir:   t.TempDir(),
	}

	s := NewServerWithDB(cfg, db, nil)

	app := fiber.New()
	s.SetupRoutes(app)

	return s, app
}

func createTestUser(t *testing.T, s *Server, username string, isAdmin bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &models.User{
		FirstName: "Test",
		LastName:  username,
		Username:  username,
		Email:     username + "@example.com",
		Password:  string(hash),
		IsAdmin:   isAdmin,
		Status:    models.UserStatusActive,
	}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func authToken(t *testing.T, s *Server, userID uint) string {
	t.Helper()
	token, err := s.generateToken(userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// doJSON issues a JSON request against the test app, optionally
// authenticated, and returns the response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) models.Envelope {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var env models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// wsEvent is the wire shape clients receive from the hub, with the payload
// left raw for per-test decoding.
type wsEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// joinedRoomClient subscribes a fresh connection-less client to a group room
// so tests can observe what the handlers broadcast. Broadcasts queue
// synchronously, so events can be read back without waiting.
func joinedRoomClient(t *testing.T, s *Server, userID, groupID uint) *notifications.Client {
	t.Helper()

	c := notifications.NewClient(s.hub, nil, userID, false)
	s.hub.Register(c)
	s.hub.Join(c, notifications.GroupRoom(groupID))
	return c
}

func nextClientEvent(t *testing.T, c *notifications.Client) wsEvent {
	t.Helper()

	payload, ok := c.TryReceive()
	require.True(t, ok, "expected a queued event")

	var ev wsEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	return ev
}

func assertNoClientEvent(t *testing.T, c *notifications.Client) {
	t.Helper()
	payload, ok := c.TryReceive()
	assert.False(t, ok, "unexpected event queued: %s", payload)
}
