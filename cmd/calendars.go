package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"calbridge/internal/apperr"
	"calbridge/internal/caldav"
	"calbridge/internal/google"
	"calbridge/internal/ics"
	"calbridge/internal/transfer"

	"github.com/urfave/cli/v2"
	"google.golang.org/api/calendar/v3"
)

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "Manage calendars and move them in and out as iCalendar files.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List calendars in the user's calendar list.",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mine", Usage: "Only calendars you own or can edit."},
					&cli.BoolFlag{Name: "others", Usage: "Only calendars you can read."},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					var (
						entries []*calendar.CalendarListEntry
						err     error
					)
					switch {
					case c.Bool("mine"):
						entries, err = rt.calendar.MyCalendars(c.Context)
					case c.Bool("others"):
						entries, err = rt.calendar.OtherCalendars(c.Context)
					default:
						entries, err = rt.calendar.ListCalendars(c.Context)
					}
					if err != nil {
						return err
					}
					return printJSON(entries)
				}),
			},
			{
				Name:  "get",
				Usage: "Show calendar metadata.",
				Flags: []cli.Flag{calendarFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					cal, err := rt.calendar.GetCalendar(c.Context, c.String("calendar"))
					if err != nil {
						return err
					}
					return printJSON(cal)
				}),
			},
			{
				Name:  "create",
				Usage: "Create a secondary calendar.",
				Flags: calendarMetadataFlags(true),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					cal, err := rt.calendar.CreateCalendar(c.Context, calendarFromFlags(c))
					if err != nil {
						return err
					}
					return printJSON(cal)
				}),
			},
			{
				Name:  "add",
				Usage: "Add an existing calendar to the calendar list by ID or public address.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Usage: "Calendar ID or address.", Required: true}},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					entry, err := rt.calendar.AddCalendarFromURL(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(entry)
				}),
			},
			{
				Name:  "update",
				Usage: "Update calendar metadata.",
				Flags: append(calendarMetadataFlags(false), calendarFlag()),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					cal, err := rt.calendar.UpdateCalendar(c.Context, c.String("calendar"), calendarFromFlags(c))
					if err != nil {
						return err
					}
					return printJSON(cal)
				}),
			},
			{
				Name:  "properties",
				Usage: "Update how a calendar appears in your calendar list.",
				Flags: []cli.Flag{
					calendarFlag(),
					&cli.BoolFlag{Name: "hidden", Usage: "Hide the calendar from the list."},
					&cli.BoolFlag{Name: "selected", Usage: "Show the calendar's events."},
					&cli.StringFlag{Name: "summary-override", Usage: "Display name for this user."},
					&cli.StringFlag{Name: "color", Usage: "Color ID."},
					&cli.BoolFlag{Name: "default-reminder", Usage: "Set an email reminder 10 minutes before events."},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					props := google.CalendarProperties{
						SummaryOverride: c.String("summary-override"),
						ColorID:         c.String("color"),
						DefaultReminder: c.Bool("default-reminder"),
					}
					if c.IsSet("hidden") {
						hidden := c.Bool("hidden")
						props.Hidden = &hidden
					}
					if c.IsSet("selected") {
						selected := c.Bool("selected")
						props.Selected = &selected
					}
					entry, err := rt.calendar.UpdateCalendarProperties(c.Context, c.String("calendar"), props)
					if err != nil {
						return err
					}
					return printJSON(entry)
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete a secondary calendar.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "calendar", Aliases: []string{"c"}, Usage: "Calendar ID.", Required: true}},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					if err := rt.calendar.DeleteCalendar(c.Context, c.String("calendar")); err != nil {
						return err
					}
					rt.logger.Info("Deleted calendar", "calendarID", c.String("calendar"))
					return nil
				}),
			},
			{
				Name:  "freebusy",
				Usage: "Show busy intervals of one or more calendars.",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "calendar", Aliases: []string{"c"}, Value: cli.NewStringSlice("primary"), Usage: "Calendar ID. Repeatable."},
					&cli.StringFlag{Name: "from", Usage: "Start of the window (RFC 3339 or YYYY-MM-DD).", Required: true},
					&cli.StringFlag{Name: "to", Usage: "End of the window (RFC 3339 or YYYY-MM-DD).", Required: true},
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
					if !from.Before(to) {
						return apperr.InvalidRange()
					}
					resp, err := rt.calendar.QueryFreeBusy(c.Context, from, to, c.StringSlice("calendar"))
					if err != nil {
						return err
					}
					return printJSON(resp.Calendars)
				}),
			},
			{
				Name:  "import",
				Usage: "Create one event per VEVENT of an iCalendar file.",
				Flags: []cli.Flag{
					calendarFlag(),
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to the .ics file.", Required: true},
				},
				Action: withRuntime(importCalendar),
			},
			{
				Name:  "export",
				Usage: "Write upcoming events of a calendar to an iCalendar file.",
				Flags: []cli.Flag{
					calendarFlag(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "Output directory."},
				},
				Action: withRuntime(exportCalendar),
			},
			{
				Name:   "publish",
				Usage:  "Copy upcoming events of a calendar to the configured CalDAV calendar.",
				Flags:  []cli.Flag{calendarFlag()},
				Action: withRuntime(publishCalendar),
			},
		},
	}
}

func calendarMetadataFlags(requireSummary bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "summary", Usage: "Calendar title.", Required: requireSummary},
		&cli.StringFlag{Name: "description", Usage: "Calendar description."},
		&cli.StringFlag{Name: "time-zone", Usage: "IANA time zone, e.g. Europe/Berlin."},
	}
}

func calendarFromFlags(c *cli.Context) *calendar.Calendar {
	return &calendar.Calendar{
		Summary:     c.String("summary"),
		Description: c.String("description"),
		TimeZone:    c.String("time-zone"),
	}
}

func newTransfer(rt *runtime) *transfer.Service {
	return transfer.NewService(rt.logger, rt.calendar, ics.NewCodec(rt.logger), rt.cfg.ImportConcurrency)
}

type importOutcomeView struct {
	Index   int    `json:"index"`
	Summary string `json:"summary"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error,omitempty"`
}

func importCalendar(c *cli.Context, rt *runtime) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()

	report, err := newTransfer(rt).Import(c.Context, c.String("calendar"), f)
	if err != nil {
		return err
	}
	views := make([]importOutcomeView, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		view := importOutcomeView{Index: o.Index, Summary: o.Summary, EventID: o.EventID}
		if o.Err != nil {
			view.Error = o.Err.Error()
		}
		views = append(views, view)
	}
	rt.logger.Info("Imported events", "found", report.Found, "created", report.Created())
	return printJSON(views)
}

func exportCalendar(c *cli.Context, rt *runtime) error {
	result, err := newTransfer(rt).Export(c.Context, c.String("calendar"))
	if err != nil {
		return err
	}

	path := filepath.Join(c.String("out"), result.Filename)
	if err := os.WriteFile(path, result.Document, 0o644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}

	rt.logger.Info("Exported calendar", "file", path, "events", result.Events)
	return printJSON(map[string]any{"file": path, "events": result.Events})
}

func publishCalendar(c *cli.Context, rt *runtime) error {
	if err := rt.cfg.ValidateCalDAV(); err != nil {
		return err
	}

	ctx := c.Context
	start := time.Now()
	publisher, err := caldav.NewPublisher(ctx, rt.logger, caldav.Config{
		Endpoint:     rt.cfg.CalDAV.URL,
		Username:     rt.cfg.CalDAV.Username,
		Password:     rt.cfg.CalDAV.Password,
		CalendarName: rt.cfg.CalDAV.CalendarName,
	})
	if err != nil {
		return fmt.Errorf("failed to create caldav publisher: %w", err)
	}

	written, err := newTransfer(rt).Publish(ctx, c.String("calendar"), publisher)
	rt.logger.Info("Publish finished", "written", written, "duration", time.Since(start))
	return err
}
