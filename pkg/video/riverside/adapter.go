package riverside

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/retry"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// ShowResolver maps an event type to the show its sessions are created
// under. Bindings are read-only input to request building; an unbound
// event type creates sessions in the provider's default show.
type ShowResolver interface {
	ShowForEventType(eventTypeID int64) (showID string, ok bool)
}

// StaticShowBindings is a ShowResolver backed by a fixed mapping, typically
// loaded from configuration.
type StaticShowBindings map[int64]string

func (b StaticShowBindings) ShowForEventType(eventTypeID int64) (string, bool) {
	showID, ok := b[eventTypeID]
	return showID, ok
}

// Adapter implements video.ConferencingAdapter against the Riverside
// session API. Adapters are stateless and bound to a single resolved API
// key; concurrent bookings each build their own.
type Adapter struct {
	client    *Client
	shows     ShowResolver
	studioURL string
	logger    *slog.Logger
}

// NewAdapter creates a Riverside adapter bound to a decrypted API key.
// shows may be nil when no show bindings are configured.
func NewAdapter(config Config, apiKey string, shows ShowResolver, retryConfig *retry.Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	return &Adapter{
		client:    NewClient(config, apiKey, retryConfig, logger),
		shows:     shows,
		studioURL: strings.TrimRight(config.StudioBaseURL, "/"),
		logger:    logger,
	}
}

// Type returns the fixed provider tag
func (a *Adapter) Type() string {
	return MeetingType
}

// ValidateKey probes whether the provider accepts the adapter's API key
func (a *Adapter) ValidateKey(ctx context.Context) error {
	return a.client.ValidateKey(ctx)
}

// ListShows returns the caller's shows in provider order
func (a *Adapter) ListShows(ctx context.Context) ([]video.Show, error) {
	return a.client.ListShows(ctx)
}

// CreateMeeting creates a session for the booking. A provider refusal
// surfaces as *video.ProviderError so the caller can apply its soft-failure
// policy; a success response missing required fields is a hard failure.
func (a *Adapter) CreateMeeting(ctx context.Context, booking *models.Booking) (*models.VideoMeeting, error) {
	form, err := buildSessionForm(booking, a.boundShow(booking), renderLocal)
	if err != nil {
		return nil, err
	}

	sessionID, showID, err := a.client.CreateSession(ctx, form)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Created provider session",
		"booking_uid", booking.UID,
		"session_id", sessionID,
		"show_id", showID)

	return &models.VideoMeeting{
		Type:     MeetingType,
		ID:       sessionID,
		Password: "",
		URL:      fmt.Sprintf("%s/studio/%s/session/%s", a.studioURL, showID, sessionID),
	}, nil
}

// UpdateMeeting reschedules the session referenced by ref. A reference
// without a meeting id returns the empty descriptor with no network call.
// The provider's update endpoint does not return a usable body, so the
// returned descriptor reuses the reference's id, password and URL.
func (a *Adapter) UpdateMeeting(ctx context.Context, ref *models.BookingReference, booking *models.Booking) (*models.VideoMeeting, error) {
	if ref == nil || ref.MeetingID == "" {
		return &models.VideoMeeting{}, nil
	}

	form, err := buildSessionForm(booking, a.boundShow(booking), renderUTC)
	if err != nil {
		return nil, err
	}

	if err := a.client.UpdateSession(ctx, ref.MeetingID, form); err != nil {
		return nil, err
	}

	return &models.VideoMeeting{
		Type:     MeetingType,
		ID:       ref.MeetingID,
		Password: ref.MeetingPassword,
		URL:      ref.MeetingURL,
	}, nil
}

// DeleteMeeting removes a session unless it holds recorded content. The
// recordings check must complete before any delete is attempted; if the
// check itself fails, no delete happens.
//
// Only the first element of the recordings list is inspected. That matches
// the provider's observed ordering; if the provider ever puts a
// status-only element ahead of a recording, this check would under-protect.
func (a *Adapter) DeleteMeeting(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		return nil
	}

	recordings, err := a.client.ListRecordings(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("recordings check failed, refusing to delete session %s: %w", meetingID, err)
	}

	if len(recordings) > 0 && recordings[0].Kind == RecordingEntryRecording {
		a.logger.Info("Session has a recording, skipping delete",
			"session_id", meetingID,
			"recording_id", recordings[0].RecordingID)
		return nil
	}

	// Accepted limitation: a failed delete is logged but not surfaced;
	// the booking-side cleanup has already happened by the time we get
	// here and there is no path to report it back.
	if err := a.client.DeleteSession(ctx, meetingID); err != nil {
		a.logger.Warn("Failed to delete provider session",
			"session_id", meetingID,
			"error", err)
	}

	return nil
}

// Availability always reports an empty busy list; Riverside has no
// comparable concept. Present to satisfy the adapter capability contract
// uniformly across providers.
func (a *Adapter) Availability(ctx context.Context, from, to time.Time) ([]video.BusySlot, error) {
	return []video.BusySlot{}, nil
}

func (a *Adapter) boundShow(booking *models.Booking) string {
	if a.shows == nil || booking.EventTypeID == nil {
		return ""
	}
	showID, ok := a.shows.ShowForEventType(*booking.EventTypeID)
	if !ok {
		return ""
	}
	return showID
}
