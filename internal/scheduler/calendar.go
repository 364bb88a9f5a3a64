package scheduler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar knows the exchange session boundaries and the holiday list.
// Weekends are always closed; holidays come from a YAML file so the list
// can be refreshed each year without a rebuild.
type Calendar struct {
	location *time.Location
	openH    int
	openM    int
	closeH   int
	closeM   int
	holidays map[string]struct{}
}

type calendarFile struct {
	Timezone string   `yaml:"timezone"`
	Open     string   `yaml:"open"`
	Close    string   `yaml:"close"`
	Holidays []string `yaml:"holidays"`
}

// DefaultCalendar is the NSE session with no holidays loaded.
func DefaultCalendar() *Calendar {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return &Calendar{
		location: loc,
		openH:    9, openM: 15,
		closeH: 15, closeM: 30,
		holidays: map[string]struct{}{},
	}
}

// LoadCalendar reads a calendar YAML. Missing fields keep the NSE
// defaults; a missing file is an error, not a silent default.
func LoadCalendar(path string) (*Calendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calendar: read %s: %w", path, err)
	}
	var f calendarFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("calendar: parse %s: %w", path, err)
	}

	cal := DefaultCalendar()
	if tz := strings.TrimSpace(f.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("calendar: timezone %q: %w", tz, err)
		}
		cal.location = loc
	}
	if f.Open != "" {
		if cal.openH, cal.openM, err = parseClock(f.Open); err != nil {
			return nil, fmt.Errorf("calendar: open: %w", err)
		}
	}
	if f.Close != "" {
		if cal.closeH, cal.closeM, err = parseClock(f.Close); err != nil {
			return nil, fmt.Errorf("calendar: close: %w", err)
		}
	}
	for _, h := range f.Holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, err := time.ParseInLocation("2006-01-02", h, cal.location); err != nil {
			return nil, fmt.Errorf("calendar: holiday %q: %w", h, err)
		}
		cal.holidays[h] = struct{}{}
	}
	return cal, nil
}

func parseClock(s string) (h, m int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Calendar) Location() *time.Location { return c.location }

// IsTradingDay reports whether the exchange is open at all on now's date.
func (c *Calendar) IsTradingDay(now time.Time) bool {
	local := now.In(c.location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[local.Format("2006-01-02")]
	return !holiday
}

// SessionOpen returns the session open instant on now's date.
func (c *Calendar) SessionOpen(now time.Time) time.Time {
	local := now.In(c.location)
	return time.Date(local.Year(), local.Month(), local.Day(), c.openH, c.openM, 0, 0, c.location)
}

// SessionClose returns the session close instant on now's date.
func (c *Calendar) SessionClose(now time.Time) time.Time {
	local := now.In(c.location)
	return time.Date(local.Year(), local.Month(), local.Day(), c.closeH, c.closeM, 0, 0, c.location)
}

// InSession reports whether now falls inside a live trading session.
func (c *Calendar) InSession(now time.Time) bool {
	if !c.IsTradingDay(now) {
		return false
	}
	local := now.In(c.location)
	return !local.Before(c.SessionOpen(now)) && local.Before(c.SessionClose(now))
}

// NextOpen returns the next session open at or after now, skipping
// weekends and holidays.
func (c *Calendar) NextOpen(now time.Time) time.Time {
	local := now.In(c.location)
	for i := 0; i < 366; i++ {
		day := local.AddDate(0, 0, i)
		open := c.SessionOpen(day)
		if c.IsTradingDay(day) && open.After(local) {
			return open
		}
	}
	return c.SessionOpen(local.AddDate(0, 0, 1))
}
