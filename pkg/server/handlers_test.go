package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/credentials"
	"github.com/venkytv/riverside-connector/pkg/meetings"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// fakeService is a scriptable MeetingsService capturing call arguments
type fakeService struct {
	redirect   string
	installErr error
	shows      []video.Show
	showsErr   error
	meeting    *models.VideoMeeting
	meetingErr error
	deleteErr  error

	gotUserID    int64
	gotTeamID    *int64
	gotAPIKey    string
	gotRef       *models.BookingReference
	gotBooking   *models.Booking
	gotMeetingID string
}

func (f *fakeService) Install(ctx context.Context, userID int64, teamID *int64, apiKey string) (string, error) {
	f.gotUserID, f.gotTeamID, f.gotAPIKey = userID, teamID, apiKey
	return f.redirect, f.installErr
}

func (f *fakeService) ListShows(ctx context.Context, userID int64, teamID *int64) ([]video.Show, error) {
	f.gotUserID, f.gotTeamID = userID, teamID
	return f.shows, f.showsErr
}

func (f *fakeService) CreateMeeting(ctx context.Context, userID int64, teamID *int64, booking *models.Booking) (*models.VideoMeeting, error) {
	f.gotUserID, f.gotTeamID, f.gotBooking = userID, teamID, booking
	return f.meeting, f.meetingErr
}

func (f *fakeService) UpdateMeeting(ctx context.Context, userID int64, teamID *int64, ref *models.BookingReference, booking *models.Booking) (*models.VideoMeeting, error) {
	f.gotUserID, f.gotTeamID, f.gotRef, f.gotBooking = userID, teamID, ref, booking
	return f.meeting, f.meetingErr
}

func (f *fakeService) DeleteMeeting(ctx context.Context, userID int64, teamID *int64, meetingID string) error {
	f.gotUserID, f.gotTeamID, f.gotMeetingID = userID, teamID, meetingID
	return f.deleteErr
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) IsHealthy() error { return f.err }

func newTestServer(service *fakeService, health HealthChecker) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{ListenAddr: ":0"}, service, health, logger)
}

func doRequest(t *testing.T, server *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func userHeaders() map[string]string {
	return map[string]string{"X-User-Id": "7"}
}

func TestInstallHandler(t *testing.T) {
	service := &fakeService{redirect: meetings.SetupRedirectPath}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/install",
		`{"api_key":"rsk_live_key"}`, userHeaders())

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body installResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.RedirectURL != meetings.SetupRedirectPath {
		t.Errorf("Expected redirect %s, got %s", meetings.SetupRedirectPath, body.RedirectURL)
	}

	if service.gotUserID != 7 || service.gotAPIKey != "rsk_live_key" {
		t.Errorf("Unexpected service call: user=%d key=%q", service.gotUserID, service.gotAPIKey)
	}
}

func TestInstallHandlerTeamScope(t *testing.T) {
	service := &fakeService{redirect: meetings.SetupRedirectPath}
	server := newTestServer(service, nil)

	headers := userHeaders()
	headers["X-Team-Id"] = "3"
	resp := doRequest(t, server, http.MethodPost, "/api/v1/install",
		`{"api_key":"rsk_live_key"}`, headers)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}
	if service.gotTeamID == nil || *service.gotTeamID != 3 {
		t.Errorf("Expected team id 3, got %v", service.gotTeamID)
	}
}

func TestInstallHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"rejected key", meetings.ErrKeyRejected, http.StatusUnauthorized},
		{"empty key", meetings.ErrEmptyKey, http.StatusBadRequest},
		{"internal failure", errors.New("store offline"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{installErr: tt.serviceErr}
			server := newTestServer(service, nil)

			resp := doRequest(t, server, http.MethodPost, "/api/v1/install",
				`{"api_key":"k"}`, userHeaders())
			if resp.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.Code)
			}
		})
	}
}

func TestHandlersRequireIdentity(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/install", `{"api_key":"k"}`},
		{http.MethodGet, "/api/v1/shows", ""},
		{http.MethodPost, "/api/v1/meetings", `{}`},
		{http.MethodPut, "/api/v1/meetings/sess-1", `{}`},
		{http.MethodDelete, "/api/v1/meetings/sess-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			server := newTestServer(&fakeService{}, nil)

			// No identity headers at all
			resp := doRequest(t, server, tt.method, tt.path, tt.body, nil)
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 without identity, got %d", resp.Code)
			}

			// Garbage user id
			resp = doRequest(t, server, tt.method, tt.path, tt.body,
				map[string]string{"X-User-Id": "not-a-number"})
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 for bad user id, got %d", resp.Code)
			}
		})
	}
}

func TestListShowsHandler(t *testing.T) {
	service := &fakeService{shows: []video.Show{
		{ID: "show-1", Name: "Interviews"},
		{ID: "show-2", Name: "Weekly"},
	}}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodGet, "/api/v1/shows", "", userHeaders())
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var body showsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Shows) != 2 {
		t.Fatalf("Expected 2 shows, got %d", len(body.Shows))
	}
	// Each show is an [id, name] pair, order preserved
	if body.Shows[0] != [2]string{"show-1", "Interviews"} {
		t.Errorf("Unexpected first show: %v", body.Shows[0])
	}
	if body.Shows[1] != [2]string{"show-2", "Weekly"} {
		t.Errorf("Unexpected second show: %v", body.Shows[1])
	}
}

func TestListShowsHandlerNotInstalled(t *testing.T) {
	service := &fakeService{showsErr: credentials.ErrNotInstalled}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodGet, "/api/v1/shows", "", userHeaders())
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected 403 when not installed, got %d", resp.Code)
	}
}

func TestCreateMeetingHandler(t *testing.T) {
	service := &fakeService{meeting: &models.VideoMeeting{
		Type: "riverside_video",
		ID:   "sess-1",
		URL:  "https://riverside.fm/studio/show-9/session/sess-1",
	}}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/meetings",
		`{"uid":"bkg-1","title":"Episode recording","organizer":{"id":7,"email":"o@x.com","timezone":"UTC"}}`,
		userHeaders())

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var meeting models.VideoMeeting
	if err := json.Unmarshal(resp.Body.Bytes(), &meeting); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if meeting.ID != "sess-1" {
		t.Errorf("Expected meeting sess-1, got %s", meeting.ID)
	}
	if service.gotBooking == nil || service.gotBooking.UID != "bkg-1" {
		t.Errorf("Unexpected booking passed to service: %+v", service.gotBooking)
	}
}

func TestCreateMeetingHandlerDegradedResponse(t *testing.T) {
	// A degraded create is still a 200 with the empty descriptor
	service := &fakeService{meeting: &models.VideoMeeting{}}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/meetings",
		`{"uid":"bkg-1"}`, userHeaders())
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var meeting models.VideoMeeting
	if err := json.Unmarshal(resp.Body.Bytes(), &meeting); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !meeting.IsZero() {
		t.Errorf("Expected the empty descriptor, got %+v", meeting)
	}
}

func TestCreateMeetingHandlerInvalidBooking(t *testing.T) {
	service := &fakeService{meetingErr: video.ErrInvalidBooking}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/meetings",
		`{"uid":"bkg-1"}`, userHeaders())
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid booking, got %d", resp.Code)
	}
}

func TestCreateMeetingHandlerMalformedProviderResponse(t *testing.T) {
	service := &fakeService{meetingErr: video.ErrMalformedResponse}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/meetings",
		`{"uid":"bkg-1"}`, userHeaders())
	if resp.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for malformed provider response, got %d", resp.Code)
	}
}

func TestUpdateMeetingHandler(t *testing.T) {
	service := &fakeService{meeting: &models.VideoMeeting{ID: "sess-1"}}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodPut, "/api/v1/meetings/sess-1",
		`{"meeting_password":"pw","meeting_url":"https://riverside.fm/studio/s/session/sess-1","booking":{"uid":"bkg-1"}}`,
		userHeaders())

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if service.gotRef == nil || service.gotRef.MeetingID != "sess-1" {
		t.Fatalf("Unexpected reference: %+v", service.gotRef)
	}
	if service.gotRef.MeetingPassword != "pw" {
		t.Errorf("Expected password from request body, got %q", service.gotRef.MeetingPassword)
	}
	if service.gotBooking == nil || service.gotBooking.UID != "bkg-1" {
		t.Errorf("Unexpected booking: %+v", service.gotBooking)
	}
}

func TestDeleteMeetingHandler(t *testing.T) {
	service := &fakeService{}
	server := newTestServer(service, nil)

	resp := doRequest(t, server, http.MethodDelete, "/api/v1/meetings/sess-1", "", userHeaders())
	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.Code)
	}
	if service.gotMeetingID != "sess-1" {
		t.Errorf("Expected delete for sess-1, got %q", service.gotMeetingID)
	}
}

func TestHealthzHandler(t *testing.T) {
	server := newTestServer(&fakeService{}, &fakeHealth{})

	resp := doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.Code)
	}
}

func TestHealthzHandlerDegraded(t *testing.T) {
	server := newTestServer(&fakeService{}, &fakeHealth{err: errors.New("NATS is not connected")})

	resp := doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when a dependency is down, got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(&fakeService{}, nil)

	resp := doRequest(t, server, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", resp.Code)
	}
}
