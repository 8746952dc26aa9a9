// Package transfer imports iCalendar documents into a calendar and exports
// calendars as iCalendar documents.
package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"calbridge/internal/apperr"
	"calbridge/internal/events"
	"calbridge/internal/google"
	"calbridge/internal/ics"
	"calbridge/internal/models"

	"github.com/emersion/go-ical"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
)

const (
	defaultCalendarID   = "primary"
	defaultCalendarName = "My Calendar"
	defaultConcurrency  = 4
)

// Calendar is the part of the calendar service used for import and export.
type Calendar interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error)
	GetCalendar(ctx context.Context, calendarID string) (*calendar.Calendar, error)
	ListEvents(ctx context.Context, calendarID string, opts google.ListOptions) ([]*calendar.Event, error)
}

// Publisher pushes an exported calendar to another server.
type Publisher interface {
	Publish(ctx context.Context, cal *ical.Calendar) (int, error)
}

// Service runs imports and exports against one calendar service.
type Service struct {
	logger      *slog.Logger
	calendar    Calendar
	codec       *ics.Codec
	concurrency int
	now         func() time.Time
}

// NewService creates a Service. A concurrency below 1 selects the default.
func NewService(logger *slog.Logger, cal Calendar, codec *ics.Codec, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Service{
		logger:      logger,
		calendar:    cal,
		codec:       codec,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ImportOutcome is the result of creating one decoded event.
type ImportOutcome struct {
	Index   int
	Summary string
	EventID string
	Err     error
}

// ImportReport lists one outcome per decoded event, in document order.
type ImportReport struct {
	Found    int
	Outcomes []ImportOutcome
}

// Created returns how many events were created.
func (r ImportReport) Created() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Import decodes r and creates one event per decoded record. Each event is
// independent: a failure is recorded in its outcome and the rest proceed.
// A document without events yields an empty report, not an error.
func (s *Service) Import(ctx context.Context, calendarID string, r io.Reader) (ImportReport, error) {
	if calendarID == "" {
		calendarID = defaultCalendarID
	}

	decoded := s.codec.Decode(r)
	report := ImportReport{Found: len(decoded), Outcomes: make([]ImportOutcome, len(decoded))}
	if len(decoded) == 0 {
		s.logger.Warn("No events found in document", "calendarID", calendarID,
			"error", apperr.MalformedDocument("document holds no VEVENT blocks"))
		return report, nil
	}

	s.logger.Info("Importing events", "count", len(decoded), "calendarID", calendarID)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, record := range decoded {
		g.Go(func() error {
			report.Outcomes[i] = s.importOne(ctx, calendarID, i, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logger.Info("Import finished", "found", report.Found, "created", report.Created())
	return report, nil
}

func (s *Service) importOne(ctx context.Context, calendarID string, index int, record models.NormalizedEvent) ImportOutcome {
	outcome := ImportOutcome{Index: index, Summary: record.Summary}

	if err := events.ValidateRange(record.Start, record.End); err != nil {
		outcome.Err = err
		return outcome
	}

	created, err := s.calendar.InsertEvent(ctx, calendarID, record.ToEvent(), models.WriteOptions{})
	if err != nil {
		s.logger.Error("Failed to import event", "index", index, "summary", record.Summary, "error", err)
		outcome.Err = err
		return outcome
	}

	outcome.EventID = created.Id
	return outcome
}

// ExportResult is an encoded calendar ready to be written out.
type ExportResult struct {
	Filename string
	Document []byte
	Events   int
}

// Export encodes the upcoming events of a calendar.
func (s *Service) Export(ctx context.Context, calendarID string) (ExportResult, error) {
	summary, items, err := s.upcoming(ctx, calendarID)
	if err != nil {
		return ExportResult{}, err
	}

	doc, err := s.codec.Encode(displayName(summary), items)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to encode calendar: %w", err)
	}

	return ExportResult{Filename: exportFilename(summary), Document: doc, Events: len(items)}, nil
}

// Publish exports the upcoming events of a calendar and hands them to publisher.
func (s *Service) Publish(ctx context.Context, calendarID string, publisher Publisher) (int, error) {
	summary, items, err := s.upcoming(ctx, calendarID)
	if err != nil {
		return 0, err
	}
	return publisher.Publish(ctx, s.codec.Calendar(displayName(summary), items))
}

// upcoming returns the calendar's summary and its single events from now on,
// ordered by start time.
func (s *Service) upcoming(ctx context.Context, calendarID string) (string, []*calendar.Event, error) {
	if calendarID == "" {
		calendarID = defaultCalendarID
	}

	cal, err := s.calendar.GetCalendar(ctx, calendarID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get calendar %s: %w", calendarID, err)
	}
	items, err := s.calendar.ListEvents(ctx, calendarID, google.ListOptions{
		TimeMin:      s.now(),
		SingleEvents: true,
		OrderBy:      "startTime",
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to list events of %s: %w", calendarID, err)
	}
	return cal.Summary, items, nil
}

func displayName(summary string) string {
	if summary == "" {
		return defaultCalendarName
	}
	return summary
}

// exportFilename derives a single path element from a calendar summary.
// Separators and control characters become "_"; empty or dot-only names become "calendar".
func exportFilename(summary string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator || r < ' ' {
			return '_'
		}
		return r
	}, strings.TrimSpace(summary))
	if strings.Trim(name, ".") == "" {
		name = "calendar"
	}
	return name + ".ics"
}
