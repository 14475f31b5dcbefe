// Package video defines the uniform contract video-conferencing adapters
// implement, so the meetings service can drive any provider the same way.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
)

// ErrMalformedResponse indicates a provider response was missing a required
// field. Missing fields are hard failures, never defaulted.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrInvalidBooking indicates the booking itself cannot be turned into a
// provider request (e.g. an unknown organizer timezone). Raised before any
// network call and never absorbed into the soft-failure path.
var ErrInvalidBooking = errors.New("invalid booking")

// ProviderError is returned when the provider answers a lifecycle call with
// a non-success status. It is a typed failure so callers can decide whether
// to absorb it into the soft-failure sentinel or surface it.
type ProviderError struct {
	Operation  string
	StatusCode int
	Status     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected %s: %s", e.Operation, e.Status)
}

// ConferencingAdapter is the capability contract every video provider
// integration satisfies.
type ConferencingAdapter interface {
	// Type returns the provider type identifier (e.g. "riverside_video")
	Type() string

	// CreateMeeting creates a provider-side meeting for the booking and
	// returns its normalized descriptor
	CreateMeeting(ctx context.Context, booking *models.Booking) (*models.VideoMeeting, error)

	// UpdateMeeting reschedules the meeting referenced by ref. A reference
	// without a meeting id yields the empty descriptor with no network call.
	UpdateMeeting(ctx context.Context, ref *models.BookingReference, booking *models.Booking) (*models.VideoMeeting, error)

	// DeleteMeeting removes the provider-side meeting when it is safe to
	// do so
	DeleteMeeting(ctx context.Context, meetingID string) error

	// Availability returns the organizer's busy slots in the given window;
	// providers without the concept return an empty slice
	Availability(ctx context.Context, from, to time.Time) ([]BusySlot, error)
}

// KeyValidator is implemented by adapters that can probe whether their API
// key is accepted by the provider. Used at install time and by the
// credential monitor.
type KeyValidator interface {
	ValidateKey(ctx context.Context) error
}

// ShowLister is implemented by adapters whose provider groups sessions
// into shows.
type ShowLister interface {
	ListShows(ctx context.Context) ([]Show, error)
}

// BusySlot is a time range during which the organizer is unavailable
type BusySlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Show is a provider-side container grouping recording sessions
type Show struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
