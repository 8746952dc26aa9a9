package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"calbridge/internal/apperr"
	"calbridge/internal/models"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewCalendarClient creates a new Google Calendar client from an authenticated HTTP client.
func NewCalendarClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, opts ...option.ClientOption) (*CalendarClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ListOptions filter an event listing.
type ListOptions struct {
	TimeMin      time.Time
	TimeMax      time.Time
	SingleEvents bool
	OrderBy      string // "startTime" or "updated"
}

// InsertEvent creates an event.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error) {
	call := c.service.Events.Insert(calendarID, event).
		SupportsAttachments(opts.SupportsAttachments).
		Context(ctx)
	if opts.ConferenceDataVersion > 0 {
		call = call.ConferenceDataVersion(opts.ConferenceDataVersion)
	}

	created, err := call.Do()
	if err != nil {
		return nil, calendarError("failed to insert event", err)
	}
	c.logger.Debug("Inserted event", "calendarID", calendarID, "eventID", created.Id)
	return created, nil
}

// PatchEvent applies a partial update to an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error) {
	call := c.service.Events.Patch(calendarID, eventID, event).
		SupportsAttachments(opts.SupportsAttachments).
		Context(ctx)
	if opts.ConferenceDataVersion > 0 {
		call = call.ConferenceDataVersion(opts.ConferenceDataVersion)
	}

	updated, err := call.Do()
	if err != nil {
		return nil, calendarError("failed to patch event", err)
	}
	return updated, nil
}

// GetEvent fetches a single event.
func (c *CalendarClient) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	ev, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to get event", err)
	}
	return ev, nil
}

// ListEvents fetches every event of a calendar matching opts, following pagination.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, opts ListOptions) ([]*calendar.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", opts.TimeMin, "timeMax", opts.TimeMax)

	call := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(opts.SingleEvents)
	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.UTC().Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.UTC().Format(time.RFC3339))
	}
	if opts.OrderBy != "" {
		call = call.OrderBy(opts.OrderBy)
	}

	var items []*calendar.Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, calendarError("failed to retrieve events", err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return items, nil
}

// DeleteEvent removes an event.
func (c *CalendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return calendarError("failed to delete event", err)
	}
	return nil
}

// CopyEvent inserts a copy of an event into another calendar. Only the summary,
// description, location, times, attendees and reminders are copied.
func (c *CalendarClient) CopyEvent(ctx context.Context, calendarID, eventID, destinationCalendarID string) (*calendar.Event, error) {
	original, err := c.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     original.Summary,
		Description: original.Description,
		Location:    original.Location,
		Start:       original.Start,
		End:         original.End,
		Attendees:   original.Attendees,
		Reminders:   original.Reminders,
	}
	return c.InsertEvent(ctx, destinationCalendarID, event, models.WriteOptions{})
}

// MoveEvent moves an event to another calendar.
func (c *CalendarClient) MoveEvent(ctx context.Context, calendarID, eventID, destinationCalendarID string) (*calendar.Event, error) {
	moved, err := c.service.Events.Move(calendarID, eventID, destinationCalendarID).Context(ctx).Do()
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, apperr.CalendarService("calendar or event not found, check the ids and try again", http.StatusNotFound, err)
		}
		return nil, calendarError("failed to move event", err)
	}
	return moved, nil
}

// WatchEvents opens a notification channel for event changes on a calendar.
func (c *CalendarClient) WatchEvents(ctx context.Context, calendarID string, channel *calendar.Channel) (*calendar.Channel, error) {
	ch, err := c.service.Events.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to watch events", err)
	}
	return ch, nil
}

// QueryFreeBusy returns busy intervals of the given calendars between timeMin and timeMax.
func (c *CalendarClient) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) (*calendar.FreeBusyResponse, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin: timeMin.UTC().Format(time.RFC3339),
		TimeMax: timeMax.UTC().Format(time.RFC3339),
	}
	for _, id := range calendarIDs {
		req.Items = append(req.Items, &calendar.FreeBusyRequestItem{Id: id})
	}

	resp, err := c.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to query free/busy", err)
	}
	return resp, nil
}

// WebhookChannel builds a web_hook notification channel. An empty id gets a fresh UUID.
func WebhookChannel(id, address string) *calendar.Channel {
	if id == "" {
		id = uuid.NewString()
	}
	return &calendar.Channel{Id: id, Type: "web_hook", Address: address}
}
