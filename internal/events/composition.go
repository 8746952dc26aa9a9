package events

import (
	"calbridge/internal/models"

	"google.golang.org/api/calendar/v3"
)

// DefaultSolutionType is the conference solution requested for a meeting room.
const DefaultSolutionType = "hangoutsMeet"

// ConferenceRequest asks the calendar service to create a meeting room.
type ConferenceRequest struct {
	RequestID    string // idempotency token, unique per request
	SolutionType string
}

// Composition is the fully shaped event payload built before submission.
// Enrichment steps return a new value and never modify the receiver.
type Composition struct {
	Summary     string
	Location    string
	Description string
	Start       *calendar.EventDateTime
	End         *calendar.EventDateTime
	Recurrence  []string
	Attendees   []*calendar.EventAttendee
	Reminders   *calendar.EventReminders

	Attachments []models.AttachmentDescriptor
	Conference  *ConferenceRequest

	// SupportsAttachments is a calendar service protocol flag, true iff Attachments is non-empty.
	SupportsAttachments bool
}

// NewComposition starts a composition from the caller-supplied event fields.
func NewComposition(base *calendar.Event) Composition {
	if base == nil {
		return Composition{}
	}
	return Composition{
		Summary:     base.Summary,
		Location:    base.Location,
		Description: base.Description,
		Start:       base.Start,
		End:         base.End,
		Recurrence:  base.Recurrence,
		Attendees:   base.Attendees,
		Reminders:   base.Reminders,
	}
}

// WithAttachments returns the composition carrying attachments, in order.
func (c Composition) WithAttachments(attachments []models.AttachmentDescriptor) Composition {
	c.Attachments = append([]models.AttachmentDescriptor(nil), attachments...)
	c.SupportsAttachments = len(c.Attachments) > 0
	return c
}

// WithConference returns the composition requesting a meeting room.
func (c Composition) WithConference(requestID, solutionType string) Composition {
	if solutionType == "" {
		solutionType = DefaultSolutionType
	}
	c.Conference = &ConferenceRequest{RequestID: requestID, SolutionType: solutionType}
	return c
}

// WriteOptions returns the protocol flags that must accompany the payload.
func (c Composition) WriteOptions() models.WriteOptions {
	opts := models.WriteOptions{SupportsAttachments: c.SupportsAttachments}
	if c.Conference != nil {
		opts.ConferenceDataVersion = 1
	}
	return opts
}

// Event renders the composition in the calendar service's schema.
func (c Composition) Event() *calendar.Event {
	ev := &calendar.Event{
		Summary:     c.Summary,
		Location:    c.Location,
		Description: c.Description,
		Start:       c.Start,
		End:         c.End,
		Recurrence:  c.Recurrence,
		Attendees:   c.Attendees,
		Reminders:   c.Reminders,
	}

	for _, a := range c.Attachments {
		ev.Attachments = append(ev.Attachments, a.EventAttachment())
	}

	if c.Conference != nil {
		ev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: c.Conference.RequestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: c.Conference.SolutionType,
				},
			},
		}
	}
	return ev
}
