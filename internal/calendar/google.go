// Package calendar wraps the Google Calendar API for schedule syncing.
// The adapter is deliberately fallible and independent of the local write:
// schedule rows are persisted whether or not event creation succeeds.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotConfigured is returned when no Google credentials are present.
var ErrNotConfigured = errors.New("calendar: google credentials not configured")

// Event is the local description of a session to sync.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	MeetingType string // "physical" or "online"
}

// CreatedEvent is what the remote service reports back.
type CreatedEvent struct {
	ID          string
	HangoutLink string
}

// Service creates remote calendar events. Implementations must be safe for
// concurrent use.
type Service interface {
	CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error)
}

// Options configures the Google-backed Service.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
	TimeZone     string

	// BaseURL overrides the Calendar API endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the oauth2-derived client, for tests.
	HTTPClient *http.Client
}

type googleService struct {
	client   *http.Client
	baseURL  string
	timeZone string
}

// NewGoogleService builds a Service backed by the Google Calendar v3 API.
// Returns ErrNotConfigured when credentials are missing so callers can run
// without calendar sync.
func NewGoogleService(opts Options) (Service, error) {
	tz := opts.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/calendar/v3"
	}

	if opts.HTTPClient != nil {
		return &googleService{client: opts.HTTPClient, baseURL: baseURL, timeZone: tz}, nil
	}

	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RefreshToken == "" {
		return nil, ErrNotConfigured
	}

	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/calendar.events"},
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{RefreshToken: opts.RefreshToken}
	client := conf.Client(context.Background(), token)
	client.Timeout = 15 * time.Second

	return &googleService{client: client, baseURL: baseURL, timeZone: tz}, nil
}

type eventDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type conferenceRequest struct {
	CreateRequest struct {
		RequestID             string            `json:"requestId"`
		ConferenceSolutionKey map[string]string `json:"conferenceSolutionKey"`
	} `json:"createRequest"`
}

type eventBody struct {
	Summary        string             `json:"summary"`
	Description    string             `json:"description,omitempty"`
	Location       string             `json:"location,omitempty"`
	Start          eventDateTime      `json:"start"`
	End            eventDateTime      `json:"end"`
	ConferenceData *conferenceRequest `json:"conferenceData,omitempty"`
}

type eventResponse struct {
	ID          string `json:"id"`
	HangoutLink string `json:"hangoutLink"`
}

func (g *googleService) CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error) {
	body := eventBody{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       eventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.timeZone},
		End:         eventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: g.timeZone},
	}

	// conferenceDataVersion must be 1 for the API to generate a Meet link.
	confVersion := 0
	if ev.MeetingType == "online" {
		confVersion = 1
		conf := &conferenceRequest{}
		conf.CreateRequest.RequestID = fmt.Sprintf("meet-%d", time.Now().UnixNano())
		conf.CreateRequest.ConferenceSolutionKey = map[string]string{"type": "hangoutsMeet"}
		body.ConferenceData = conf
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/calendars/primary/events?conferenceDataVersion=%d", g.baseURL, confVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("calendar: event insert failed with status %d: %s", resp.StatusCode, b)
	}

	var out eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &CreatedEvent{ID: out.ID, HangoutLink: out.HangoutLink}, nil
}
