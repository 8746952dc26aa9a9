package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_ACCESS_TOKEN", "GOOGLE_ACCOUNT",
	"CALDAV_URL", "CALDAV_USERNAME", "CALDAV_PASSWORD", "CALDAV_CALENDAR_NAME",
	"LOG_LEVEL", "TEMP_DIR", "MEETING_SOLUTION_TYPE", "UPLOAD_CONCURRENCY", "IMPORT_CONCURRENCY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.UploadConcurrency)
	assert.Equal(t, 4, cfg.ImportConcurrency)
	assert.Equal(t, os.TempDir(), cfg.TempDir)
	assert.Equal(t, "hangoutsMeet", cfg.MeetingSolutionType)
	assert.Error(t, cfg.ValidateGoogle())
	assert.Error(t, cfg.ValidateCalDAV())
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "calbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
google:
  account: work
  client_id: file-client
caldav:
  username: me@example.com
  password: secret
  calendar_name: Work
log_level: debug
upload_concurrency: 8
`), 0o600))

	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("IMPORT_CONCURRENCY", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "work", cfg.Google.Account)
	assert.Equal(t, "env-client", cfg.Google.ClientID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, 2, cfg.ImportConcurrency)
	assert.NoError(t, cfg.ValidateGoogle())
	assert.NoError(t, cfg.ValidateCalDAV())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("google: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("UPLOAD_CONCURRENCY", "many")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_CONCURRENCY")
}
