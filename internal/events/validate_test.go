package events

import (
	"testing"
	"time"

	"calbridge/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func at(hour int) *time.Time {
	t := time.Date(2026, 5, 4, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		wantErr bool
	}{
		{name: "start before end", start: at(10), end: at(11)},
		{name: "start after end", start: at(11), end: at(10), wantErr: true},
		{name: "start equals end", start: at(10), end: at(10), wantErr: true},
		{name: "end absent", start: at(10), end: nil},
		{name: "start absent", start: nil, end: at(10)},
		{name: "both absent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRangeOf(t *testing.T) {
	start, end, err := RangeOf(&calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "2026-05-04T10:00:00+02:00"},
		End:   &calendar.EventDateTime{Date: "2026-05-05"},
	})
	require.NoError(t, err)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.True(t, start.Equal(*at(8)))
	assert.True(t, end.Equal(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)))

	start, end, err = RangeOf(&calendar.Event{Start: &calendar.EventDateTime{TimeZone: "UTC"}})
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)

	start, end, err = RangeOf(nil)
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestRangeOfRejectsMalformedTimestamps(t *testing.T) {
	_, _, err := RangeOf(&calendar.Event{Start: &calendar.EventDateTime{DateTime: "tomorrow at ten"}})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "start.dateTime")

	_, _, err = RangeOf(&calendar.Event{End: &calendar.EventDateTime{Date: "05/05/2026"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end.date")
}
