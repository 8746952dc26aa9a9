package events

import (
	"fmt"
	"time"

	"calbridge/internal/apperr"

	"google.golang.org/api/calendar/v3"
)

// ValidateRange fails with an invalid-range validation error when both ends are
// present and start is not strictly before end. An absent end skips the check.
func ValidateRange(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if !start.Before(*end) {
		return apperr.InvalidRange()
	}
	return nil
}

// RangeOf extracts the optional start and end instants of a (possibly partial) event.
func RangeOf(event *calendar.Event) (start, end *time.Time, err error) {
	if event == nil {
		return nil, nil, nil
	}
	if start, err = parseEventTime("start", event.Start); err != nil {
		return nil, nil, err
	}
	if end, err = parseEventTime("end", event.End); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func parseEventTime(field string, dt *calendar.EventDateTime) (*time.Time, error) {
	switch {
	case dt == nil:
		return nil, nil
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("%s.dateTime %q is not an RFC 3339 timestamp", field, dt.DateTime))
		}
		return &t, nil
	case dt.Date != "":
		t, err := time.Parse("2006-01-02", dt.Date)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("%s.date %q is not a calendar date", field, dt.Date))
		}
		return &t, nil
	default:
		return nil, nil
	}
}
