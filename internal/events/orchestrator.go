// Package events composes calendar events that carry attachments and conferencing,
// and drives their creation and update against the calendar service.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"calbridge/internal/apperr"
	"calbridge/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
)

const (
	defaultCalendarID  = "primary"
	defaultConcurrency = 4
)

// CalendarService is the subset of the calendar service the orchestrator consumes.
type CalendarService interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
}

// Materializer turns raw files and storage object ids into attachment descriptors.
type Materializer interface {
	UploadNew(ctx context.Context, file models.RawFile) (models.AttachmentDescriptor, error)
	ResolveExisting(ctx context.Context, objectID string) (models.AttachmentDescriptor, error)
}

// Options tune an Orchestrator. Zero values select defaults.
type Options struct {
	// Concurrency bounds parallel attachment materialization within one request.
	Concurrency int
	// SolutionType is the conference solution requested for meeting rooms.
	SolutionType string
}

// CreateRequest describes an event to create.
type CreateRequest struct {
	CalendarID      string
	Event           *calendar.Event
	MeetingRoom     bool
	Files           []models.RawFile
	ExistingFileIDs []string
}

// UpdateRequest describes a partial update of an existing event.
type UpdateRequest struct {
	CalendarID     string
	EventID        string
	Event          *calendar.Event
	FileIDToRemove string
}

// Orchestrator composes events and submits them to the calendar service.
type Orchestrator struct {
	calendar     CalendarService
	materializer Materializer
	logger       *slog.Logger
	concurrency  int
	solutionType string
	newRequestID func() string
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(logger *slog.Logger, cal CalendarService, materializer Materializer, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.SolutionType == "" {
		opts.SolutionType = DefaultSolutionType
	}
	return &Orchestrator{
		calendar:     cal,
		materializer: materializer,
		logger:       logger,
		concurrency:  opts.Concurrency,
		solutionType: opts.SolutionType,
		newRequestID: uuid.NewString,
	}
}

// Create materializes every attachment, composes the event and inserts it.
// Any attachment failure aborts before the insert; files uploaded earlier in the
// same request are not deleted.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*calendar.Event, error) {
	if req.Event == nil {
		return nil, apperr.Validation("event is required")
	}
	start, end, err := RangeOf(req.Event)
	if err != nil {
		return nil, err
	}
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	calendarID := calendarOrDefault(req.CalendarID)

	attachments, err := o.materialize(ctx, req.Files, req.ExistingFileIDs)
	if err != nil {
		return nil, err
	}

	comp := NewComposition(req.Event).WithAttachments(attachments)
	if req.MeetingRoom {
		comp = comp.WithConference(o.newRequestID(), o.solutionType)
	}

	created, err := o.calendar.InsertEvent(ctx, calendarID, comp.Event(), comp.WriteOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	o.logger.Info("Created event", "calendarID", calendarID, "eventID", created.Id,
		"attachments", len(comp.Attachments), "meetingRoom", req.MeetingRoom)
	return created, nil
}

// Update patches an existing event, optionally stripping one attachment by file id.
// The time range is validated before any call to the calendar service.
func (o *Orchestrator) Update(ctx context.Context, req UpdateRequest) (*calendar.Event, error) {
	if req.EventID == "" {
		return nil, apperr.Validation("event id is required")
	}
	base := req.Event
	if base == nil {
		base = &calendar.Event{}
	}
	start, end, err := RangeOf(base)
	if err != nil {
		return nil, err
	}
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	calendarID := calendarOrDefault(req.CalendarID)

	existing, err := o.calendar.GetEvent(ctx, calendarID, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s: %w", req.EventID, err)
	}

	patch := *base
	removal := req.FileIDToRemove != ""
	if removal && len(existing.Attachments) > 0 {
		patch.Attachments = withoutAttachment(existing.Attachments, req.FileIDToRemove)
		patch.ForceSendFields = append(append([]string(nil), base.ForceSendFields...), "Attachments")
	}

	updated, err := o.calendar.PatchEvent(ctx, calendarID, req.EventID, &patch, models.WriteOptions{SupportsAttachments: removal})
	if err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", req.EventID, err)
	}

	o.logger.Info("Updated event", "calendarID", calendarID, "eventID", req.EventID, "removedFileID", req.FileIDToRemove)
	return updated, nil
}

// materialize resolves raw files then existing ids concurrently. The result keeps
// input order: files first, then ids.
func (o *Orchestrator) materialize(ctx context.Context, files []models.RawFile, ids []string) ([]models.AttachmentDescriptor, error) {
	total := len(files) + len(ids)
	if total == 0 {
		return nil, nil
	}

	results := make([]models.AttachmentDescriptor, total)
	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, file := range files {
		g.Go(func() error {
			desc, err := o.materializer.UploadNew(gctx, file)
			if err != nil {
				return err
			}
			results[i] = desc
			mu.Lock()
			uploaded = append(uploaded, desc.FileID)
			mu.Unlock()
			return nil
		})
	}
	for j, id := range ids {
		idx := len(files) + j
		g.Go(func() error {
			desc, err := o.materializer.ResolveExisting(gctx, id)
			if err != nil {
				return err
			}
			results[idx] = desc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if len(uploaded) > 0 {
			o.logger.Warn("Attachment materialization failed, uploaded files are left in storage",
				"fileIDs", uploaded, "error", err)
		}
		return nil, err
	}
	return results, nil
}

// withoutAttachment returns attachments minus every entry whose file id is fileID.
func withoutAttachment(attachments []*calendar.EventAttachment, fileID string) []*calendar.EventAttachment {
	out := make([]*calendar.EventAttachment, 0, len(attachments))
	for _, a := range attachments {
		if a != nil && a.FileId == fileID {
			continue
		}
		out = append(out, a)
	}
	return out
}

func calendarOrDefault(id string) string {
	if id == "" {
		return defaultCalendarID
	}
	return id
}
