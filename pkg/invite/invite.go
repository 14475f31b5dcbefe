// Package invite renders calendar invites for meeting lifecycle events so
// downstream mailers can attach them.
package invite

import (
	"fmt"

	ics "github.com/arran4/golang-ical"

	"github.com/venkytv/riverside-connector/internal/models"
)

// Build renders an iCalendar REQUEST for the booking, carrying the meeting
// URL so recipients can join from the invite.
func Build(booking *models.Booking, meeting models.VideoMeeting) (string, error) {
	if booking == nil {
		return "", fmt.Errorf("booking must not be nil")
	}
	if booking.UID == "" {
		return "", fmt.Errorf("booking has no UID")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//riverside-connector//EN")

	event := cal.AddEvent(booking.UID)
	event.SetSummary(booking.Title)
	event.SetStartAt(booking.StartTime)
	event.SetEndAt(booking.EndTime)

	description := booking.Description
	if meeting.URL != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Join the session: " + meeting.URL
		event.SetURL(meeting.URL)
		event.SetLocation(meeting.URL)
	}
	if description != "" {
		event.SetDescription(description)
	}

	if booking.Organizer.Email != "" {
		event.SetOrganizer("mailto:"+booking.Organizer.Email, ics.WithCN(booking.Organizer.Name))
	}

	for _, attendee := range booking.Attendees {
		event.AddAttendee(attendee.Email,
			ics.CalendarUserTypeIndividual,
			ics.ParticipationStatusNeedsAction,
			ics.ParticipationRoleReqParticipant,
			ics.WithRSVP(true),
		)
	}

	return cal.Serialize(), nil
}
