// Package riverside implements the conferencing adapter for the Riverside
// recording-studio provider.
package riverside

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/venkytv/riverside-connector/pkg/metrics"
	"github.com/venkytv/riverside-connector/pkg/retry"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// MeetingType is the fixed provider tag carried on every descriptor
const MeetingType = "riverside_video"

// Config holds Riverside client configuration
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	StudioBaseURL  string        `yaml:"studio_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns a default Riverside configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.riverside.fm",
		StudioBaseURL:  "https://riverside.fm",
		RequestTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.StudioBaseURL == "" {
		c.StudioBaseURL = def.StudioBaseURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	return c
}

// Client is a thin HTTP client for the Riverside v2 API, authenticated
// with a bearer API key. Idempotent reads go through the retryer; the
// session create POST is never retried.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retryer *retry.Retryer
	logger  *slog.Logger
}

// NewClient creates a Riverside API client bound to a decrypted API key
func NewClient(config Config, apiKey string, retryConfig *retry.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		retryer: retry.NewRetryer(retryConfig, logger),
		logger:  logger,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "riverside-connector/1.0")

	return req, nil
}

// ValidateKey probes the organizations endpoint. Any non-2xx response
// means the key is not accepted.
func (c *Client) ValidateKey(ctx context.Context) error {
	start := time.Now()

	err := c.retryer.Do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/v2/organizations", nil)
		if err != nil {
			return err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return retry.NewHTTPError(resp.StatusCode, resp.Status, req.URL.String())
		}
		return nil
	})

	metrics.RecordProviderCallDuration("validate_key", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderCall("validate_key", "error")
		return fmt.Errorf("key validation failed: %w", err)
	}

	metrics.RecordProviderCall("validate_key", "success")
	return nil
}

// showEntry is the wire shape of one element of the shows listing
type showEntry struct {
	ShowID      string `json:"showID"`
	ShowDetails struct {
		ShowName string `json:"showName"`
	} `json:"showDetails"`
}

// ListShows fetches the caller's shows, preserving provider order
func (c *Client) ListShows(ctx context.Context) ([]video.Show, error) {
	start := time.Now()

	result, err := c.retryer.DoWithResult(ctx, func() (interface{}, error) {
		req, err := c.newRequest(ctx, http.MethodGet, "/v2/shows", nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, req.URL.String())
		}

		var entries []showEntry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("%w: shows list is not valid JSON: %v", video.ErrMalformedResponse, err)
		}
		return entries, nil
	})

	metrics.RecordProviderCallDuration("list_shows", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderCall("list_shows", "error")
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	metrics.RecordProviderCall("list_shows", "success")

	entries := result.([]showEntry)
	shows := make([]video.Show, 0, len(entries))
	for _, entry := range entries {
		shows = append(shows, video.Show{
			ID:   entry.ShowID,
			Name: entry.ShowDetails.ShowName,
		})
	}
	return shows, nil
}

// CreateSession creates a session from the built form payload and returns
// the provider-assigned session and show identifiers.
func (c *Client) CreateSession(ctx context.Context, form *Form) (sessionID, showID string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderCallDuration("create_session", time.Since(start).Seconds())
		if err != nil {
			metrics.RecordProviderCall("create_session", "error")
		} else {
			metrics.RecordProviderCall("create_session", "success")
		}
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/v2/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("Provider refused session create",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return "", "", &video.ProviderError{
			Operation:  "create session",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	var body struct {
		SessionID string `json:"sessionID"`
		ShowID    string `json:"showID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("%w: session create body is not valid JSON: %v", video.ErrMalformedResponse, err)
	}
	if body.SessionID == "" {
		return "", "", fmt.Errorf("%w: session create body has no sessionID", video.ErrMalformedResponse)
	}
	if body.ShowID == "" {
		return "", "", fmt.Errorf("%w: session create body has no showID", video.ErrMalformedResponse)
	}

	return body.SessionID, body.ShowID, nil
}

// UpdateSession reschedules an existing session. The provider's update
// endpoint does not return a usable body, so the call is fire-and-forget:
// once the request completes, its status and body are ignored. Only a
// transport failure is reported.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, form *Form) error {
	start := time.Now()

	req, err := c.newRequest(ctx, http.MethodPut, "/v2/sessions/"+url.PathEscape(sessionID), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	metrics.RecordProviderCallDuration("update_session", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderCall("update_session", "error")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Provider returned non-success status for session update",
			"session_id", sessionID,
			"status_code", resp.StatusCode,
			"status", resp.Status)
	}

	metrics.RecordProviderCall("update_session", "success")
	return nil
}

// RecordingEntryKind tags the two shapes a recordings-list element takes
type RecordingEntryKind int

const (
	// RecordingEntryStatus is a placeholder element carrying only a
	// session status
	RecordingEntryStatus RecordingEntryKind = iota

	// RecordingEntryRecording is an element carrying a recording
	// identifier; recorded content exists
	RecordingEntryRecording
)

// RecordingEntry is one element of a session's recordings list. The
// provider returns one of two shapes, distinguished by the presence of a
// recording identifier.
type RecordingEntry struct {
	Kind        RecordingEntryKind
	RecordingID string
	Status      string
}

func (e *RecordingEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		RecordingID string `json:"recordingID"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.RecordingID != "" {
		e.Kind = RecordingEntryRecording
		e.RecordingID = raw.RecordingID
	} else {
		e.Kind = RecordingEntryStatus
		e.Status = raw.Status
	}
	return nil
}

// ListRecordings fetches the recordings list of a session
func (c *Client) ListRecordings(ctx context.Context, sessionID string) ([]RecordingEntry, error) {
	start := time.Now()

	result, err := c.retryer.DoWithResult(ctx, func() (interface{}, error) {
		req, err := c.newRequest(ctx, http.MethodGet, "/v2/sessions/"+url.PathEscape(sessionID)+"/recordings", nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, req.URL.String())
		}

		var entries []RecordingEntry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("%w: recordings list is not valid JSON: %v", video.ErrMalformedResponse, err)
		}
		return entries, nil
	})

	metrics.RecordProviderCallDuration("list_recordings", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderCall("list_recordings", "error")
		return nil, fmt.Errorf("failed to list recordings for session %s: %w", sessionID, err)
	}

	metrics.RecordProviderCall("list_recordings", "success")
	return result.([]RecordingEntry), nil
}

// DeleteSession removes a session
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	start := time.Now()

	req, err := c.newRequest(ctx, http.MethodDelete, "/v2/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	metrics.RecordProviderCallDuration("delete_session", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderCall("delete_session", "error")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderCall("delete_session", "error")
		return &video.ProviderError{
			Operation:  "delete session",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	metrics.RecordProviderCall("delete_session", "success")
	return nil
}
