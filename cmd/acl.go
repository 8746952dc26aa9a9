package main

import (
	"calbridge/internal/google"

	"github.com/urfave/cli/v2"
)

func aclCommand() *cli.Command {
	ruleFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "rule", Usage: "ACL rule ID, e.g. user:someone@example.com.", Required: true}
	}
	roleFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "role", Usage: "none, freeBusyReader, reader, writer or owner.", Required: true}
	}

	return &cli.Command{
		Name:  "acl",
		Usage: "Share calendars and manage access rules.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List access rules of a calendar.",
				Flags: []cli.Flag{calendarFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					rules, err := rt.calendar.ListACL(c.Context, c.String("calendar"))
					if err != nil {
						return err
					}
					return printJSON(rules)
				}),
			},
			{
				Name:  "create",
				Usage: "Grant a role to a user, group or domain.",
				Flags: []cli.Flag{
					calendarFlag(),
					roleFlag(),
					&cli.StringFlag{Name: "scope-type", Value: "user", Usage: "default, user, group or domain."},
					&cli.StringFlag{Name: "scope-value", Usage: "Email address or domain name."},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					rule, err := rt.calendar.ShareCalendar(c.Context, c.String("calendar"), c.String("scope-type"), c.String("scope-value"), c.String("role"))
					if err != nil {
						return err
					}
					return printJSON(rule)
				}),
			},
			{
				Name:  "update",
				Usage: "Change the role of an access rule.",
				Flags: []cli.Flag{calendarFlag(), ruleFlag(), roleFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					rule, err := rt.calendar.UpdateACL(c.Context, c.String("calendar"), c.String("rule"), c.String("role"))
					if err != nil {
						return err
					}
					return printJSON(rule)
				}),
			},
			{
				Name:  "delete",
				Usage: "Remove an access rule.",
				Flags: []cli.Flag{calendarFlag(), ruleFlag()},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					if err := rt.calendar.DeleteACL(c.Context, c.String("calendar"), c.String("rule")); err != nil {
						return err
					}
					rt.logger.Info("Deleted access rule", "calendarID", c.String("calendar"), "ruleID", c.String("rule"))
					return nil
				}),
			},
			{
				Name:  "watch",
				Usage: "Open a webhook channel for access rule changes.",
				Flags: append([]cli.Flag{calendarFlag()}, channelFlags()...),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ch, err := rt.calendar.WatchACL(c.Context, c.String("calendar"), google.WebhookChannel(c.String("channel-id"), c.String("address")))
					if err != nil {
						return err
					}
					return printJSON(ch)
				}),
			},
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read user calendar settings.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all settings.",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					settings, err := rt.calendar.ListSettings(c.Context)
					if err != nil {
						return err
					}
					return printJSON(settings)
				}),
			},
			{
				Name:  "get",
				Usage: "Show one setting.",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Usage: "Setting ID, e.g. timezone.", Required: true}},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					s, err := rt.calendar.GetSetting(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(s)
				}),
			},
			{
				Name:  "watch",
				Usage: "Open a webhook channel for settings changes.",
				Flags: channelFlags(),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ch, err := rt.calendar.WatchSettings(c.Context, google.WebhookChannel(c.String("channel-id"), c.String("address")))
					if err != nil {
						return err
					}
					return printJSON(ch)
				}),
			},
		},
	}
}

func channelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "Manage notification channels.",
		Subcommands: []*cli.Command{
			{
				Name:  "stop",
				Usage: "Stop receiving notifications on a channel.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Channel ID.", Required: true},
					&cli.StringFlag{Name: "resource-id", Usage: "Resource ID returned by the watch call.", Required: true},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					if err := rt.calendar.StopChannel(c.Context, c.String("id"), c.String("resource-id")); err != nil {
						return err
					}
					rt.logger.Info("Stopped channel", "channelID", c.String("id"))
					return nil
				}),
			},
		},
	}
}
