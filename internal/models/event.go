package models

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	dateLayout = "2006-01-02"
)

// NormalizedEvent is the provider-neutral form of one VEVENT block.
// Start and End are nil when the block carried no DTSTART/DTEND; they are never defaulted.
type NormalizedEvent struct {
	UID         string     // iCalendar UID, empty if the block had none
	Summary     string     // Summary or title of the event
	Description string     // Detailed description of the event
	Location    string     // Location of the event
	Start       *time.Time // DTSTART, nil when absent
	End         *time.Time // DTEND, nil when absent
	AllDay      bool       // DTSTART was a date-only value
	Recurrence  []string   // RRULE lines in provider form, e.g. "RRULE:FREQ=WEEKLY"
}

// ToEvent converts the record into a calendar event suitable for an insert call.
func (e NormalizedEvent) ToEvent() *calendar.Event {
	ev := &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Recurrence:  e.Recurrence,
	}
	if e.Start != nil {
		ev.Start = toEventDateTime(*e.Start, e.AllDay)
	}
	if e.End != nil {
		ev.End = toEventDateTime(*e.End, e.AllDay)
	}
	return ev
}

func toEventDateTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(dateLayout)}
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// WriteOptions are the protocol flags sent with an event insert or patch.
type WriteOptions struct {
	SupportsAttachments bool
	// ConferenceDataVersion is 1 when the payload carries conference data, otherwise 0 and not sent.
	ConferenceDataVersion int64
}
