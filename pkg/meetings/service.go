// Package meetings orchestrates the video integration: credential install,
// show listing, and the meeting lifecycle with its soft-failure policy.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/credentials"
	"github.com/venkytv/riverside-connector/pkg/invite"
	"github.com/venkytv/riverside-connector/pkg/metrics"
	"github.com/venkytv/riverside-connector/pkg/secrets"
	"github.com/venkytv/riverside-connector/pkg/video"
)

var (
	// ErrEmptyKey indicates an install request carried no API key
	ErrEmptyKey = errors.New("API key must not be empty")

	// ErrKeyRejected indicates the provider refused the API key during
	// the install-time probe. Key validity is only ever checked at
	// install time; meeting-time failures take the soft-failure paths.
	ErrKeyRejected = errors.New("provider rejected the API key")
)

// SetupRedirectPath is returned after a successful install so the platform
// can send the user to the post-install setup page.
const SetupRedirectPath = "/apps/riverside/setup"

// EventPublisher publishes meeting lifecycle events for downstream
// consumers (mailers, webhooks).
type EventPublisher interface {
	PublishMeetingEvent(ctx context.Context, event *models.MeetingEvent) error
}

// Config holds meetings service configuration
type Config struct {
	// ProviderType selects the adapter the service drives
	ProviderType string
}

// Service ties the credential resolver, the adapter factory and the event
// publisher together. It owns the soft-failure policy: a provider refusal
// during create/update degrades to the empty descriptor instead of failing
// the booking.
type Service struct {
	config    Config
	store     credentials.Store
	resolver  *credentials.Resolver
	cipher    *secrets.Cipher
	adapters  video.AdapterFactory
	publisher EventPublisher
	logger    *slog.Logger
}

// NewService creates a meetings service. publisher may be nil when event
// publishing is disabled.
func NewService(config Config, store credentials.Store, resolver *credentials.Resolver, cipher *secrets.Cipher, adapters video.AdapterFactory, publisher EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:    config,
		store:     store,
		resolver:  resolver,
		cipher:    cipher,
		adapters:  adapters,
		publisher: publisher,
		logger:    logger,
	}
}

// Install validates an API key against the provider, encrypts it and
// stores it for the caller's scope. Nothing is stored when the probe
// fails. Returns the post-install redirect path.
func (s *Service) Install(ctx context.Context, userID int64, teamID *int64, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrEmptyKey
	}

	adapter, err := s.adapters.CreateAdapter(s.config.ProviderType, apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to create adapter: %w", err)
	}

	validator, ok := adapter.(video.KeyValidator)
	if !ok {
		return "", fmt.Errorf("provider %s does not support key validation", s.config.ProviderType)
	}
	if err := validator.ValidateKey(ctx); err != nil {
		s.logger.Warn("Install-time key probe failed",
			"user_id", userID,
			"error", err)
		return "", fmt.Errorf("%w: %v", ErrKeyRejected, err)
	}

	sealed, err := credentials.SealKey(s.cipher, apiKey)
	if err != nil {
		return "", err
	}

	kind, ownerID := models.OwnerUser, userID
	if teamID != nil {
		kind, ownerID = models.OwnerTeam, *teamID
	}

	cred := &models.Credential{
		ID:        uuid.NewString(),
		OwnerKind: kind,
		OwnerID:   ownerID,
		Key:       sealed,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, cred); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Info("Installed provider credential",
		"owner_kind", kind,
		"owner_id", ownerID,
		"credential_id", cred.ID)

	return SetupRedirectPath, nil
}

// ListShows returns the caller's shows in provider order
func (s *Service) ListShows(ctx context.Context, userID int64, teamID *int64) ([]video.Show, error) {
	adapter, err := s.adapterFor(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	lister, ok := adapter.(video.ShowLister)
	if !ok {
		return nil, fmt.Errorf("provider %s does not group sessions into shows", s.config.ProviderType)
	}

	return lister.ListShows(ctx)
}

// CreateMeeting creates a provider meeting for the booking. A provider
// refusal or outage degrades to the empty sentinel descriptor so the
// booking flow is never blocked by a third-party outage; a malformed
// success response stays a hard failure.
func (s *Service) CreateMeeting(ctx context.Context, userID int64, teamID *int64, booking *models.Booking) (*models.VideoMeeting, error) {
	adapter, err := s.adapterFor(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	meeting, err := adapter.CreateMeeting(ctx, booking)
	if err != nil {
		if degraded := s.absorb("create", booking.UID, err); degraded != nil {
			return degraded, nil
		}
		metrics.RecordMeetingLifecycle("create", "error")
		return nil, err
	}

	metrics.RecordMeetingLifecycle("create", "success")
	s.publishEvent(ctx, models.MeetingCreated, booking, *meeting)
	return meeting, nil
}

// UpdateMeeting reschedules the referenced meeting, with the same
// degradation policy as CreateMeeting.
func (s *Service) UpdateMeeting(ctx context.Context, userID int64, teamID *int64, ref *models.BookingReference, booking *models.Booking) (*models.VideoMeeting, error) {
	adapter, err := s.adapterFor(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	meeting, err := adapter.UpdateMeeting(ctx, ref, booking)
	if err != nil {
		if degraded := s.absorb("update", booking.UID, err); degraded != nil {
			return degraded, nil
		}
		metrics.RecordMeetingLifecycle("update", "error")
		return nil, err
	}

	metrics.RecordMeetingLifecycle("update", "success")
	if !meeting.IsZero() {
		s.publishEvent(ctx, models.MeetingUpdated, booking, *meeting)
	}
	return meeting, nil
}

// DeleteMeeting removes the provider meeting when safe. A failed safety
// check propagates; the adapter handles the recording guard itself.
func (s *Service) DeleteMeeting(ctx context.Context, userID int64, teamID *int64, meetingID string) error {
	adapter, err := s.adapterFor(ctx, userID, teamID)
	if err != nil {
		return err
	}

	if err := adapter.DeleteMeeting(ctx, meetingID); err != nil {
		metrics.RecordMeetingLifecycle("delete", "error")
		return err
	}

	metrics.RecordMeetingLifecycle("delete", "success")
	s.publishEvent(ctx, models.MeetingDeleted, nil, models.VideoMeeting{Type: s.config.ProviderType, ID: meetingID})
	return nil
}

func (s *Service) adapterFor(ctx context.Context, userID int64, teamID *int64) (video.ConferencingAdapter, error) {
	apiKey, err := s.resolver.Resolve(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	return s.adapters.CreateAdapter(s.config.ProviderType, apiKey)
}

// absorb maps provider refusals and outages to the sentinel descriptor.
// Validation failures (malformed responses, bad timezones) are never
// swallowed, so they return nil here and stay hard errors.
func (s *Service) absorb(action, bookingUID string, err error) *models.VideoMeeting {
	if errors.Is(err, video.ErrMalformedResponse) || errors.Is(err, video.ErrInvalidBooking) {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}

	var providerErr *video.ProviderError
	if errors.As(err, &providerErr) {
		s.logger.Warn("Provider refused lifecycle operation, booking proceeds without a meeting link",
			"action", action,
			"booking_uid", bookingUID,
			"status_code", providerErr.StatusCode)
		metrics.RecordMeetingLifecycle(action, "degraded")
		return &models.VideoMeeting{}
	}

	// Transport-level failure: the provider is unreachable, which the
	// booking flow treats the same as a refusal.
	s.logger.Warn("Provider unreachable during lifecycle operation, booking proceeds without a meeting link",
		"action", action,
		"booking_uid", bookingUID,
		"error", err)
	metrics.RecordMeetingLifecycle(action, "degraded")
	return &models.VideoMeeting{}
}

func (s *Service) publishEvent(ctx context.Context, action models.MeetingAction, booking *models.Booking, meeting models.VideoMeeting) {
	if s.publisher == nil {
		return
	}

	event := models.NewMeetingEvent(action, booking, meeting)

	if booking != nil && action != models.MeetingDeleted {
		ics, err := invite.Build(booking, meeting)
		if err != nil {
			s.logger.Warn("Failed to build calendar invite",
				"booking_uid", booking.UID,
				"error", err)
		} else {
			event.ICS = ics
		}
	}

	if err := s.publisher.PublishMeetingEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish meeting event",
			"action", action,
			"meeting_id", meeting.ID,
			"error", err)
	}
}
