// Package config loads calbridge settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel            = "info"
	defaultConcurrency         = 4
	defaultMeetingSolutionType = "hangoutsMeet"
)

// GoogleConfig holds the credentials used to reach Calendar and Drive.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// AccessToken is a bearer token used as is. When empty, the saved token of Account is used.
	AccessToken string `yaml:"access_token"`
	Account     string `yaml:"account"`
}

// CalDAVConfig selects the collection that exported events are published to.
type CalDAVConfig struct {
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name"`
}

// Config is the full application configuration.
type Config struct {
	Google              GoogleConfig `yaml:"google"`
	CalDAV              CalDAVConfig `yaml:"caldav"`
	LogLevel            string       `yaml:"log_level"`
	UploadConcurrency   int          `yaml:"upload_concurrency"`
	ImportConcurrency   int          `yaml:"import_concurrency"`
	TempDir             string       `yaml:"temp_dir"`
	MeetingSolutionType string       `yaml:"meeting_solution_type"`
}

// Load reads the YAML file at path, if any, then applies environment overrides and defaults.
// Environment values win over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.AccessToken, "GOOGLE_ACCESS_TOKEN")
	setString(&c.Google.Account, "GOOGLE_ACCOUNT")
	setString(&c.CalDAV.URL, "CALDAV_URL")
	setString(&c.CalDAV.Username, "CALDAV_USERNAME")
	setString(&c.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&c.CalDAV.CalendarName, "CALDAV_CALENDAR_NAME")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.TempDir, "TEMP_DIR")
	setString(&c.MeetingSolutionType, "MEETING_SOLUTION_TYPE")

	if err := setInt(&c.UploadConcurrency, "UPLOAD_CONCURRENCY"); err != nil {
		return err
	}
	return setInt(&c.ImportConcurrency, "IMPORT_CONCURRENCY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// Normalize fills in zero values with defaults.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = defaultConcurrency
	}
	if c.ImportConcurrency <= 0 {
		c.ImportConcurrency = defaultConcurrency
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.MeetingSolutionType == "" {
		c.MeetingSolutionType = defaultMeetingSolutionType
	}
}

// ValidateGoogle reports whether enough Google credentials are present to make API calls.
func (c *Config) ValidateGoogle() error {
	if c.Google.AccessToken == "" && c.Google.Account == "" {
		return errors.New("no Google credentials configured: set GOOGLE_ACCESS_TOKEN or GOOGLE_ACCOUNT (run the 'auth' command first)")
	}
	return nil
}

// ValidateCalDAV reports whether the CalDAV target is fully configured.
func (c *Config) ValidateCalDAV() error {
	if c.CalDAV.Username == "" || c.CalDAV.Password == "" || c.CalDAV.CalendarName == "" {
		return errors.New("CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR_NAME must be set")
	}
	return nil
}
