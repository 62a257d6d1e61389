package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduledTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "2024-12-25T19:30", false},
		{"valid midnight", "2024-01-01T00:00", false},
		{"missing padding on day", "2024-12-5T19:30", true},
		{"missing padding on hour", "2024-12-25T9:30", true},
		{"seconds not allowed", "2024-12-25T19:30:00", true},
		{"offset not allowed", "2024-12-25T19:30+02:00", true},
		{"zulu suffix not allowed", "2024-12-25T19:30Z", true},
		{"space separator", "2024-12-25 19:30", true},
		{"month out of range", "2024-13-25T19:30", true},
		{"hour out of range", "2024-12-25T25:30", true},
		{"garbage", "tomorrow at noon", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheduledTime(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.Format(ScheduledTimeLayout))
		})
	}
}

func TestLocalToUTC(t *testing.T) {
	naive, err := ParseScheduledTime("2024-01-15T19:30")
	require.NoError(t, err)

	got, err := LocalToUTC(naive, "America/New_York")
	require.NoError(t, err)
	// EST is UTC-5 in January.
	assert.Equal(t, "2024-01-16T00:30", got.Format(ScheduledTimeLayout))
	assert.Equal(t, time.UTC, got.Location())
}

func TestLocalToUTCBadZone(t *testing.T) {
	_, err := LocalToUTC(time.Now(), "Mars/Olympus_Mons")
	assert.ErrorIs(t, err, ErrBadTimezone)
}

func TestUTCToLocalRoundTrip(t *testing.T) {
	utc := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	local, err := UTCToLocal(utc, "Europe/Berlin")
	require.NoError(t, err)
	// CEST is UTC+2 in July.
	assert.Equal(t, 14, local.Hour())
	assert.True(t, local.Equal(utc), "conversion must preserve the instant")
}

func TestValidateTimezone(t *testing.T) {
	assert.True(t, ValidateTimezone("America/New_York"))
	assert.True(t, ValidateTimezone("UTC"))
	assert.False(t, ValidateTimezone(""))
	assert.False(t, ValidateTimezone("Local"))
	assert.False(t, ValidateTimezone("Not/A_Zone"))
}

func TestIsPast(t *testing.T) {
	clock := FixedClock{Instant: time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)}

	assert.True(t, IsPast(clock, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, IsPast(clock, clock.Instant), "the current instant counts as past")
	assert.False(t, IsPast(clock, time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC)))
}
