// Package ics converts between iCalendar documents and calendar events.
package ics

import (
	"log/slog"
	"time"
)

const (
	productID = "-//calbridge//EN"

	// propCalendarName carries the display name of an exported calendar.
	propCalendarName = "X-WR-CALNAME"

	rrulePrefix = "RRULE:"
	dateLayout  = "2006-01-02"
)

// Codec decodes and encodes iCalendar documents.
type Codec struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCodec creates a new Codec.
func NewCodec(logger *slog.Logger) *Codec {
	return &Codec{logger: logger, now: time.Now}
}

// WithClock returns a copy of the codec that uses now as its current instant.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}
