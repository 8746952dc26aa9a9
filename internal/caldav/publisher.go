// Package caldav publishes exported calendars to a CalDAV collection.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// DefaultEndpoint is the iCloud CalDAV server.
const DefaultEndpoint = "https://caldav.icloud.com/"

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calbridge/1.0")
	return t.Transport.RoundTrip(req)
}

// objectStore is the part of the CalDAV client used to write calendar objects.
type objectStore interface {
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*caldav.CalendarObject, error)
}

// Publisher writes events into one CalDAV calendar collection.
type Publisher struct {
	store        objectStore
	logger       *slog.Logger
	calendarPath string
}

// Config selects the server and the target collection.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
}

// NewPublisher connects to the server and locates the collection named cfg.CalendarName.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg Config) (*Publisher, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport,
	}}

	client, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
	calendarPath, err := findCalendar(ctx, client, cfg.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
	}
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return &Publisher{store: client, logger: logger, calendarPath: calendarPath}, nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func findCalendar(ctx context.Context, client *caldav.Client, name string) (string, error) {
	principalPath, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := client.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// Publish stores every VEVENT of cal as its own object named after its UID.
// A failed event does not stop the others; the number written is returned
// together with the joined failures.
func (p *Publisher) Publish(ctx context.Context, cal *ical.Calendar) (int, error) {
	var errs []error
	written := 0

	for _, obj := range splitEvents(cal) {
		objectPath := path.Join(p.calendarPath, url.PathEscape(obj.uid)+".ics")
		if _, err := p.store.PutCalendarObject(ctx, objectPath, obj.cal); err != nil {
			p.logger.Error("Failed to publish event", "uid", obj.uid, "error", err)
			errs = append(errs, fmt.Errorf("event %s: %w", obj.uid, err))
			continue
		}
		p.logger.Debug("Published event", "uid", obj.uid, "path", objectPath)
		written++
	}

	p.logger.Info("Published events to CalDAV", "written", written, "failed", len(errs))
	return written, errors.Join(errs...)
}

type eventObject struct {
	uid string
	cal *ical.Calendar
}

// splitEvents wraps each VEVENT in a calendar of its own carrying the parent's
// VERSION and PRODID. Events without a UID are skipped.
func splitEvents(cal *ical.Calendar) []eventObject {
	var objects []eventObject
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		uidProp := child.Props.Get(ical.PropUID)
		if uidProp == nil || uidProp.Value == "" {
			continue
		}

		single := ical.NewCalendar()
		for _, name := range []string{ical.PropVersion, ical.PropProductID} {
			if prop := cal.Props.Get(name); prop != nil {
				single.Props.Set(prop)
			}
		}
		single.Children = append(single.Children, child)
		objects = append(objects, eventObject{uid: uidProp.Value, cal: single})
	}
	return objects
}
