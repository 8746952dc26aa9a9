package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"calbridge/internal/apperr"
	"calbridge/internal/attachments"
	"calbridge/internal/events"
	"calbridge/internal/google"
	"calbridge/internal/models"

	"github.com/urfave/cli/v2"
	"google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

func calendarFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "calendar", Aliases: []string{"c"}, Value: "primary", Usage: "Calendar ID."}
}

func eventIDFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "id", Usage: "Event ID.", Required: true}
}

// eventFieldFlags describe an event body. --event loads a JSON body that the other flags override.
func eventFieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "event", Usage: "Path to a JSON event body."},
		&cli.StringFlag{Name: "summary", Usage: "Event title."},
		&cli.StringFlag{Name: "description", Usage: "Event description."},
		&cli.StringFlag{Name: "location", Usage: "Event location."},
		&cli.StringFlag{Name: "start", Usage: "Start as RFC 3339 date-time or YYYY-MM-DD."},
		&cli.StringFlag{Name: "end", Usage: "End as RFC 3339 date-time or YYYY-MM-DD."},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Create, update and inspect events.",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an event with optional attachments and a meeting room.",
				Flags: append(eventFieldFlags(),
					calendarFlag(),
					&cli.StringSliceFlag{Name: "file", Usage: "Local file to upload and attach. Repeatable."},
					&cli.StringSliceFlag{Name: "attach-id", Usage: "Existing Drive file ID to attach. Repeatable."},
					&cli.BoolFlag{Name: "meeting-room", Usage: "Request a video meeting room."},
				),
				Action: withRuntime(createEvent),
			},
			{
				Name:   "update",
				Usage:  "Patch an event, optionally removing one attachment.",
				Flags:  append(eventFieldFlags(), calendarFlag(), eventIDFlag(), &cli.StringFlag{Name: "remove-file", Usage: "Drive file ID of the attachment to remove."}),
				Action: withRuntime(updateEvent),
			},
			{
				Name:  "list",
				Usage: "List events.",
				Flags: []cli.Flag{
					calendarFlag(),
					&cli.StringFlag{Name: "from", Usage: "Lower bound (RFC 3339 or YYYY-MM-DD)."},
					&cli.StringFlag{Name: "to", Usage: "Upper bound (RFC 3339 or YYYY-MM-DD)."},
					&cli.BoolFlag{Name: "single", Usage: "Expand recurring events into instances."},
					&cli.StringFlag{Name: "order-by", Usage: "startTime or updated."},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					from, err := parseBound(c.String("from"))
					if err != nil {
						return err
					}
					to, err := parseBound(c.String("to"))
					if err != nil {
						return err
					}
					items, err := rt.calendar.ListEvents(c.Context, c.String("calendar"), google.ListOptions{
						TimeMin:      from,
						TimeMax:      to,
						SingleEvents: c.Bool("single"),
						OrderBy:      c.String("order-by"),
					})
					if err != nil {
						return err
					}
					return printJSON(items)
				}),
			},
			{
				Name:  "get",
				Usage: "Show one event.",
				Flags: []cli.Flag{calendarFlag(), eventIDFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ev, err := rt.calendar.GetEvent(c.Context, c.String("calendar"), c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(ev)
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete an event.",
				Flags: []cli.Flag{calendarFlag(), eventIDFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					if err := rt.calendar.DeleteEvent(c.Context, c.String("calendar"), c.String("id")); err != nil {
						return err
					}
					rt.logger.Info("Deleted event", "calendarID", c.String("calendar"), "eventID", c.String("id"))
					return nil
				}),
			},
			{
				Name:  "copy",
				Usage: "Copy an event into another calendar.",
				Flags: []cli.Flag{calendarFlag(), eventIDFlag(), &cli.StringFlag{Name: "to", Usage: "Destination calendar ID.", Required: true}},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ev, err := rt.calendar.CopyEvent(c.Context, c.String("calendar"), c.String("id"), c.String("to"))
					if err != nil {
						return err
					}
					return printJSON(ev)
				}),
			},
			{
				Name:  "move",
				Usage: "Move an event into another calendar.",
				Flags: []cli.Flag{calendarFlag(), eventIDFlag(), &cli.StringFlag{Name: "to", Usage: "Destination calendar ID.", Required: true}},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ev, err := rt.calendar.MoveEvent(c.Context, c.String("calendar"), c.String("id"), c.String("to"))
					if err != nil {
						return err
					}
					return printJSON(ev)
				}),
			},
			{
				Name:  "watch",
				Usage: "Open a webhook channel for event changes.",
				Flags: append([]cli.Flag{calendarFlag()}, channelFlags()...),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ch, err := rt.calendar.WatchEvents(c.Context, c.String("calendar"), google.WebhookChannel(c.String("channel-id"), c.String("address")))
					if err != nil {
						return err
					}
					return printJSON(ch)
				}),
			},
		},
	}
}

func newOrchestrator(rt *runtime) *events.Orchestrator {
	materializer := attachments.NewMaterializer(rt.logger, rt.drive, rt.cfg.TempDir)
	return events.NewOrchestrator(rt.logger, rt.calendar, materializer, events.Options{
		Concurrency:  rt.cfg.UploadConcurrency,
		SolutionType: rt.cfg.MeetingSolutionType,
	})
}

func createEvent(c *cli.Context, rt *runtime) error {
	ev, err := eventFromFlags(c)
	if err != nil {
		return err
	}

	var files []models.RawFile
	for _, path := range c.StringSlice("file") {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open attachment: %w", err)
		}
		defer f.Close()
		files = append(files, models.RawFile{Name: filepath.Base(path), Body: f})
	}

	created, err := newOrchestrator(rt).Create(c.Context, events.CreateRequest{
		CalendarID:      c.String("calendar"),
		Event:           ev,
		MeetingRoom:     c.Bool("meeting-room"),
		Files:           files,
		ExistingFileIDs: c.StringSlice("attach-id"),
	})
	if err != nil {
		return err
	}
	return printJSON(created)
}

func updateEvent(c *cli.Context, rt *runtime) error {
	ev, err := eventFromFlags(c)
	if err != nil {
		return err
	}

	updated, err := newOrchestrator(rt).Update(c.Context, events.UpdateRequest{
		CalendarID:     c.String("calendar"),
		EventID:        c.String("id"),
		Event:          ev,
		FileIDToRemove: c.String("remove-file"),
	})
	if err != nil {
		return err
	}
	return printJSON(updated)
}

// eventFromFlags builds an event body from --event and the field flags.
func eventFromFlags(c *cli.Context) (*calendar.Event, error) {
	ev := &calendar.Event{}
	if path := c.String("event"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read event file: %w", err)
		}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("event file %s is not a valid event: %v", path, err))
		}
	}

	if c.IsSet("summary") {
		ev.Summary = c.String("summary")
	}
	if c.IsSet("description") {
		ev.Description = c.String("description")
	}
	if c.IsSet("location") {
		ev.Location = c.String("location")
	}
	if c.IsSet("start") {
		ev.Start = eventDateTime(c.String("start"))
	}
	if c.IsSet("end") {
		ev.End = eventDateTime(c.String("end"))
	}
	return ev, nil
}

// eventDateTime treats a YYYY-MM-DD value as an all-day date and anything else as a date-time.
// Malformed date-times are rejected later by range validation.
func eventDateTime(value string) *calendar.EventDateTime {
	if _, err := time.Parse(dateLayout, value); err == nil {
		return &calendar.EventDateTime{Date: value}
	}
	return &calendar.EventDateTime{DateTime: value}
}

// parseBound parses an optional RFC 3339 or YYYY-MM-DD bound.
func parseBound(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.Validation(fmt.Sprintf("invalid time %q, use RFC 3339 or YYYY-MM-DD", value))
	}
	return t, nil
}

func channelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "HTTPS URL that receives notifications.", Required: true},
		&cli.StringFlag{Name: "channel-id", Usage: "Channel ID. A new UUID when empty."},
	}
}
