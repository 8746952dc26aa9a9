package main

import (
	"log/slog"
	"testing"
	"time"

	"calbridge/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDateTime(t *testing.T) {
	assert.Equal(t, "2026-12-25", eventDateTime("2026-12-25").Date)
	assert.Empty(t, eventDateTime("2026-12-25").DateTime)

	dt := eventDateTime("2026-12-25T09:00:00+01:00")
	assert.Equal(t, "2026-12-25T09:00:00+01:00", dt.DateTime)
	assert.Empty(t, dt.Date)
}

func TestParseBound(t *testing.T) {
	zero, err := parseBound("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	day, err := parseBound("2026-03-01")
	require.NoError(t, err)
	assert.True(t, day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	ts, err := parseBound("2026-03-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))

	_, err = parseBound("next tuesday")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSetupLogger(t *testing.T) {
	logger := setupLogger("DEBUG")
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	logger = setupLogger("bogus")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
