package models

import (
	"time"
)

// OwnerKind identifies which kind of account a credential belongs to
type OwnerKind string

const (
	OwnerUser OwnerKind = "user"
	OwnerTeam OwnerKind = "team"
)

// Credential is a stored provider API key, encrypted at rest.
// Key holds a JSON document of the form {"api_key": "<ciphertext>"};
// the plaintext key never touches the store.
type Credential struct {
	ID        string    `json:"id"`
	OwnerKind OwnerKind `json:"owner_kind"`
	OwnerID   int64     `json:"owner_id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// Organizer is the booking owner whose timezone drives time rendering
type Organizer struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	TimeZone string `json:"timezone"`
}

// Attendee represents a single booking participant
type Attendee struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	TimeZone string `json:"timezone,omitempty"`
}

// Team carries the team context of a booking, when one exists
type Team struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name,omitempty"`
	MemberEmails []string `json:"member_emails,omitempty"`
}

// Booking describes a single calendar booking handed to the video
// integration. It is input only: the connector never stores or mutates it.
type Booking struct {
	UID         string     `json:"uid"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Organizer   Organizer  `json:"organizer"`
	Attendees   []Attendee `json:"attendees"`
	// GuestEmails is the subset of attendees invited as guests; guests are
	// always given view-only access regardless of headcount.
	GuestEmails []string `json:"guest_emails,omitempty"`
	Team        *Team    `json:"team,omitempty"`
	EventTypeID *int64   `json:"event_type_id,omitempty"`
}

// AttendeeEmails returns the attendee email list in booking order
func (b *Booking) AttendeeEmails() []string {
	emails := make([]string, 0, len(b.Attendees))
	for _, a := range b.Attendees {
		emails = append(emails, a.Email)
	}
	return emails
}

// Duration returns the booked length of the meeting
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// HasTeam reports whether the booking carries a team context
func (b *Booking) HasTeam() bool {
	return b.Team != nil
}

// VideoMeeting is the normalized descriptor of a provider-side meeting.
// The zero value is the documented sentinel returned when the provider
// refuses an operation: callers treat an all-empty descriptor as "booking
// proceeds without a working meeting link".
type VideoMeeting struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// IsZero reports whether the descriptor is the empty sentinel
func (m VideoMeeting) IsZero() bool {
	return m.Type == "" && m.ID == "" && m.Password == "" && m.URL == ""
}

// BookingReference is the stored handle of a previously created meeting,
// supplied by the booking engine on update and delete
type BookingReference struct {
	MeetingID       string `json:"meeting_id"`
	MeetingPassword string `json:"meeting_password,omitempty"`
	MeetingURL      string `json:"meeting_url,omitempty"`
}

// MeetingAction enumerates lifecycle transitions published on the bus
type MeetingAction string

const (
	MeetingCreated MeetingAction = "created"
	MeetingUpdated MeetingAction = "updated"
	MeetingDeleted MeetingAction = "deleted"
)

// MeetingEvent is the message format published to NATS after a lifecycle
// operation. ICS carries a calendar invite for downstream mailers and is
// empty for deletions.
type MeetingEvent struct {
	Action         MeetingAction `json:"action"`
	BookingUID     string        `json:"booking_uid,omitempty"`
	Meeting        VideoMeeting  `json:"meeting"`
	Title          string        `json:"title,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	OrganizerEmail string        `json:"organizer_email,omitempty"`
	ICS            string        `json:"ics,omitempty"`
}

// NewMeetingEvent creates a MeetingEvent from a booking and the meeting
// descriptor the provider returned
func NewMeetingEvent(action MeetingAction, booking *Booking, meeting VideoMeeting) *MeetingEvent {
	ev := &MeetingEvent{
		Action:  action,
		Meeting: meeting,
	}
	if booking != nil {
		ev.BookingUID = booking.UID
		ev.Title = booking.Title
		ev.StartTime = booking.StartTime
		ev.EndTime = booking.EndTime
		ev.OrganizerEmail = booking.Organizer.Email
	}
	return ev
}
