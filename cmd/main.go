package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"calbridge/internal/config"
	"calbridge/internal/google"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calbridge",
		Usage: "Manage Google Calendar events with Drive attachments and move calendars in and out as iCalendar files.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a YAML config file. Environment variables override it."},
		},
		Commands: []*cli.Command{
			authCommand(),
			calendarsCommand(),
			eventsCommand(),
			aclCommand(),
			settingsCommand(),
			channelsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// runtime holds what every API command needs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	calendar *google.CalendarClient
	drive    *google.DriveClient
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	if err := cfg.ValidateGoogle(); err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if cfg.Google.AccessToken != "" {
		httpClient = google.HTTPClientFromAccessToken(c.Context, cfg.Google.AccessToken)
	} else {
		httpClient, err = google.HTTPClientFromAccount(c.Context, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.Account)
		if err != nil {
			return nil, err
		}
	}

	calClient, err := google.NewCalendarClient(c.Context, logger, httpClient)
	if err != nil {
		return nil, err
	}
	driveClient, err := google.NewDriveClient(c.Context, logger, httpClient)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, calendar: calClient, drive: driveClient}, nil
}

// withRuntime builds the runtime before running action.
func withRuntime(action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := newRuntime(c)
		if err != nil {
			return err
		}
		return action(c, rt)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.Google.ClientID, cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token. Set GOOGLE_ACCOUNT to use it.", "file", tokenFile, "account", accountName)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "accounts",
				Usage: "List accounts with a saved token.",
				Action: func(c *cli.Context) error {
					accounts, err := google.GetTokenAccounts(".")
					if err != nil {
						return fmt.Errorf("failed to list saved tokens: %w", err)
					}
					return printJSON(accounts)
				},
			},
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
