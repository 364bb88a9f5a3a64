package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestCalendarSessionBounds(t *testing.T) {
	cal := DefaultCalendar()
	loc := ist(t)

	// Monday 2025-06-02.
	assert.True(t, cal.InSession(time.Date(2025, 6, 2, 11, 0, 0, 0, loc)))
	assert.False(t, cal.InSession(time.Date(2025, 6, 2, 9, 14, 0, 0, loc)))
	assert.False(t, cal.InSession(time.Date(2025, 6, 2, 15, 30, 0, 0, loc)))

	// Saturday.
	assert.False(t, cal.InSession(time.Date(2025, 6, 7, 11, 0, 0, 0, loc)))
}

func TestCalendarLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Asia/Kolkata
open: "09:15"
close: "15:30"
holidays:
  - 2025-08-15
  - 2025-10-02
`), 0o644))

	cal, err := LoadCalendar(path)
	require.NoError(t, err)
	loc := ist(t)

	// Independence Day, a Friday.
	assert.False(t, cal.IsTradingDay(time.Date(2025, 8, 15, 11, 0, 0, 0, loc)))
	assert.True(t, cal.IsTradingDay(time.Date(2025, 8, 14, 11, 0, 0, 0, loc)))
}

func TestCalendarLoadRejectsBadHoliday(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  - not-a-date\n"), 0o644))
	_, err := LoadCalendar(path)
	assert.Error(t, err)
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	cal := DefaultCalendar()
	loc := ist(t)

	// Friday after close rolls to Monday 09:15.
	got := cal.NextOpen(time.Date(2025, 6, 6, 16, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 6, 9, 9, 15, 0, 0, loc), got)
}

func TestParseIntervalDuration(t *testing.T) {
	d, ok := ParseIntervalDuration("15m")
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, d)

	d, ok = ParseIntervalDuration("1h")
	require.True(t, ok)
	assert.Equal(t, time.Hour, d)

	_, ok = ParseIntervalDuration("soon")
	assert.False(t, ok)
}
