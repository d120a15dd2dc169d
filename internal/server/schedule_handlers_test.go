package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"studyhive/internal/calendar"
	"studyhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCalendar records the last event and returns a canned result or error.
type fakeCalendar struct {
	created *calendar.CreatedEvent
	err     error
	lastEv  calendar.Event
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev calendar.Event) (*calendar.CreatedEvent, error) {
	f.lastEv = ev
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func TestCreateGroupSchedule(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "planner", false)
	group := createTestGroup(t, s, creator, 5)
	path := fmt.Sprintf("/api/calendar/group/%d", group.ID)
	token := authToken(t, s, creator.ID)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	end := start.Add(2 * time.Hour)

	t.Run("Calendar sync success stores event id and link", func(t *testing.T) {
		fake := &fakeCalendar{created: &calendar.CreatedEvent{
			ID:          "evt-123",
			HangoutLink: "https://meet.google.com/abc-defg-hij",
		}}
		s.SetCalendar(fake)

		resp := doJSON(t, app, http.MethodPost, path, token, map[string]any{
			"title":        "Midterm review",
			"start":        start,
			"end":          end,
			"meeting_type": "online",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Data models.Schedule `json:"data"`
		}
		decodeBody(t, resp, &body)
		require.NotNil(t, body.Data.GoogleEventID)
		assert.Equal(t, "evt-123", *body.Data.GoogleEventID)
		require.NotNil(t, body.Data.MeetingLink)
		assert.Equal(t, "https://meet.google.com/abc-defg-hij", *body.Data.MeetingLink)
		assert.Equal(t, "online", fake.lastEv.MeetingType)
	})

	t.Run("Calendar failure still persists the row", func(t *testing.T) {
		s.SetCalendar(&fakeCalendar{err: errors.New("google is down")})

		resp := doJSON(t, app, http.MethodPost, path, token, map[string]any{
			"title": "Offline session",
			"start": start,
			"end":   end,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Data models.Schedule `json:"data"`
		}
		decodeBody(t, resp, &body)
		assert.Nil(t, body.Data.GoogleEventID)
		assert.Nil(t, body.Data.MeetingLink)

		var row models.Schedule
		require.NoError(t, s.db.Where("title = ?", "Offline session").First(&row).Error)
		assert.Equal(t, group.ID, row.GroupID)
	})

	t.Run("No calendar configured", func(t *testing.T) {
		s.SetCalendar(nil)

		resp := doJSON(t, app, http.MethodPost, path, token, map[string]any{
			"title": "Local only",
			"start": start,
			"end":   end,
		})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("End before start rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, path, token, map[string]any{
			"title": "Time travel",
			"start": end,
			"end":   start,
		})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Non-member forbidden", func(t *testing.T) {
		outsider := createTestUser(t, s, "scheduler-outsider", false)
		resp := doJSON(t, app, http.MethodPost, path, authToken(t, s, outsider.ID), map[string]any{
			"title": "Sneaky",
			"start": start,
			"end":   end,
		})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestCreateGroupScheduleBroadcastsToRoom(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "schedcaster", false)
	group := createTestGroup(t, s, creator, 5)
	otherGroup := createTestGroup(t, s, creator, 5)

	member := createTestUser(t, s, "schedlistener", false)
	subscribed := joinedRoomClient(t, s, member.ID, group.ID)
	elsewhere := joinedRoomClient(t, s, member.ID, otherGroup.ID)

	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/calendar/group/%d", group.ID),
		authToken(t, s, creator.ID), map[string]any{
			"title": "Broadcast check",
			"start": start,
			"end":   start.Add(time.Hour),
		})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ev := nextClientEvent(t, subscribed)
	assert.Equal(t, "new_schedule", ev.Name)

	var schedule models.Schedule
	require.NoError(t, json.Unmarshal(ev.Data, &schedule))
	assert.Equal(t, "Broadcast check", schedule.Title)
	assert.Equal(t, group.ID, schedule.GroupID)

	// The event stays scoped to its group room.
	assertNoClientEvent(t, elsewhere)
}

func TestGetGroupSchedulesOrdering(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	creator := createTestUser(t, s, "agenda", false)
	group := createTestGroup(t, s, creator, 5)

	base := time.Now().UTC().Truncate(time.Second)
	for i, title := range []string{"later", "sooner"} {
		offset := time.Duration(48-24*i) * time.Hour
		require.NoError(t, s.db.Create(&models.Schedule{
			GroupID: group.ID,
			Title:   title,
			Start:   base.Add(offset),
			End:     base.Add(offset + time.Hour),
		}).Error)
	}

	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/calendar/group/%d", group.ID), authToken(t, s, creator.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []models.Schedule `json:"data"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "sooner", body.Data[0].Title, "schedules come back ordered by start time")
}

func TestGenerateMeetLink(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	user := createTestUser(t, s, "meeter", false)
	token := authToken(t, s, user.ID)

	start := time.Now().Add(time.Hour)
	body := map[string]any{"title": "Quick sync", "start": start, "end": start.Add(time.Hour)}

	t.Run("Not configured", func(t *testing.T) {
		s.SetCalendar(nil)
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/meet-link", token, body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("Link generated", func(t *testing.T) {
		fake := &fakeCalendar{created: &calendar.CreatedEvent{ID: "evt-9", HangoutLink: "https://meet.google.com/xyz"}}
		s.SetCalendar(fake)

		resp := doJSON(t, app, http.MethodPost, "/api/calendar/meet-link", token, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Data map[string]string `json:"data"`
		}
		decodeBody(t, resp, &out)
		assert.Equal(t, "https://meet.google.com/xyz", out.Data["meeting_link"])
		// Meet links always come from an online event.
		assert.Equal(t, models.MeetingTypeOnline, fake.lastEv.MeetingType)
	})

	t.Run("Upstream failure", func(t *testing.T) {
		s.SetCalendar(&fakeCalendar{err: errors.New("quota exceeded")})
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/meet-link", token, body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}
