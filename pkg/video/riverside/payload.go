package riverside

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// StageCapacity is the provider-imposed limit on simultaneous on-stage
// participants in a session.
const StageCapacity = 10

// Form is an ordered form body. The provider expects repeated keys for
// array-valued fields and is sensitive to field order, so url.Values (which
// sorts keys on encode) cannot be used here.
type Form struct {
	fields []formField
}

type formField struct {
	key    string
	values []string
}

// NewForm creates an empty form
func NewForm() *Form {
	return &Form{}
}

// Set appends a single-valued field
func (f *Form) Set(key, value string) {
	f.fields = append(f.fields, formField{key: key, values: []string{value}})
}

// SetAll appends a field repeated once per value. Empty slices add nothing.
func (f *Form) SetAll(key string, values []string) {
	if len(values) == 0 {
		return
	}
	copied := make([]string, len(values))
	copy(copied, values)
	f.fields = append(f.fields, formField{key: key, values: copied})
}

// Encode serializes the form as application/x-www-form-urlencoded, with
// fields in insertion order and array fields repeated once per element.
func (f *Form) Encode() string {
	var b strings.Builder
	for _, field := range f.fields {
		for _, value := range field.values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(field.key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// Keys returns the field keys in insertion order
func (f *Form) Keys() []string {
	keys := make([]string, 0, len(f.fields))
	for _, field := range f.fields {
		keys = append(keys, field.key)
	}
	return keys
}

// Get returns the first value of the named field
func (f *Form) Get(key string) string {
	for _, field := range f.fields {
		if field.key == key {
			return field.values[0]
		}
	}
	return ""
}

// GetAll returns every value of the named field
func (f *Form) GetAll(key string) []string {
	for _, field := range f.fields {
		if field.key == key {
			return field.values
		}
	}
	return nil
}

// PartitionParticipants splits booking participants into on-stage and
// viewer roles. Stage priority order is organizer first, then non-guest
// attendees in booking order, then team members; whoever does not fit under
// the stage capacity becomes a viewer. Guests are always viewers and are
// never promoted to the stage.
func PartitionParticipants(organizer string, attendees, guests, teamMembers []string) (stage, viewers []string) {
	guestSet := make(map[string]struct{}, len(guests))
	for _, g := range guests {
		guestSet[g] = struct{}{}
	}

	seen := make(map[string]struct{})
	everyone := make([]string, 0, 1+len(attendees)+len(teamMembers))

	add := func(email string) {
		if email == "" {
			return
		}
		if _, isGuest := guestSet[email]; isGuest {
			return
		}
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		everyone = append(everyone, email)
	}

	add(organizer)
	for _, a := range attendees {
		add(a)
	}
	for _, m := range teamMembers {
		add(m)
	}

	if len(everyone) <= StageCapacity {
		stage = everyone
		viewers = append([]string{}, guests...)
		return stage, viewers
	}

	stage = everyone[:StageCapacity]
	viewers = append(append([]string{}, everyone[StageCapacity:]...), guests...)
	return stage, viewers
}

// timeRendering selects which zone session times are rendered in. Creates
// use the organizer's local zone while updates use UTC; the provider's
// create and update endpoints interpret times differently, so the
// asymmetry must be preserved exactly.
type timeRendering int

const (
	renderLocal timeRendering = iota
	renderUTC
)

// buildSessionForm builds the session create/update payload for a booking.
// showID is included only when non-empty.
func buildSessionForm(booking *models.Booking, showID string, rendering timeRendering) (*Form, error) {
	loc := time.UTC
	if rendering == renderLocal && booking.Organizer.TimeZone != "" {
		var err error
		loc, err = time.LoadLocation(booking.Organizer.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown organizer timezone %q: %v", video.ErrInvalidBooking, booking.Organizer.TimeZone, err)
		}
	}

	start := booking.StartTime.In(loc)
	end := booking.EndTime.In(loc)

	var teamMembers []string
	if booking.Team != nil {
		teamMembers = booking.Team.MemberEmails
	}
	stage, viewers := PartitionParticipants(
		booking.Organizer.Email,
		booking.AttendeeEmails(),
		booking.GuestEmails,
		teamMembers,
	)

	form := NewForm()
	form.Set("sessionTitle", booking.Title)
	form.Set("date", start.Format("2006-01-02"))
	form.Set("startTime", formatClock(start))
	form.Set("endTime", formatClock(end))
	form.Set("timeZone", booking.Organizer.TimeZone)
	form.SetAll("stage", stage)
	form.SetAll("viewer", viewers)
	if showID != "" {
		form.Set("showID", showID)
	}

	return form, nil
}

// formatClock renders a 12-hour clock time with AM/PM, truncated to the
// 8-character width the provider expects, e.g. "02:30 PM".
func formatClock(t time.Time) string {
	s := t.Format("03:04 PM")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
