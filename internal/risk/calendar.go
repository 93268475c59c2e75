package risk

import (
	"fmt"
	"time"
)

// Session is a named intraday window in the calendar's timezone, "HH:MM" bounds inclusive.
type Session struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// DefaultSessions are the New York kill zones.
func DefaultSessions() []Session {
	return []Session{
		{Name: "London Kill Zone", Start: "02:00", End: "05:00"},
		{Name: "NY AM Kill Zone", Start: "10:00", End: "11:00"},
		{Name: "NY PM Silver Bullet", Start: "14:00", End: "15:00"},
	}
}

type window struct {
	name       string
	start, end int // minutes after midnight
}

// Calendar answers session membership and day/week boundaries in one timezone.
type Calendar struct {
	loc     *time.Location
	windows []window
}

// NewCalendar loads tz and parses the sessions. An empty session list puts every minute in session.
func NewCalendar(tz string, sessions []Session) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidLimits, tz, err)
	}
	c := &Calendar{loc: loc}
	for _, s := range sessions {
		start, err := parseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: session %q start: %v", ErrInvalidLimits, s.Name, err)
		}
		end, err := parseClock(s.End)
		if err != nil {
			return nil, fmt.Errorf("%w: session %q end: %v", ErrInvalidLimits, s.Name, err)
		}
		if end < start {
			return nil, fmt.Errorf("%w: session %q ends before it starts", ErrInvalidLimits, s.Name)
		}
		c.windows = append(c.windows, window{name: s.Name, start: start, end: end})
	}
	return c, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Location is the calendar's timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Session returns the name of the window containing t.
func (c *Calendar) Session(t time.Time) (string, bool) {
	if len(c.windows) == 0 {
		return "", true
	}
	local := t.In(c.loc)
	m := local.Hour()*60 + local.Minute()
	for _, w := range c.windows {
		if w.start <= m && m <= w.end {
			return w.name, true
		}
	}
	return "", false
}

// Label is the session name for logs, or "Out of session".
func (c *Calendar) Label(t time.Time) string {
	if name, ok := c.Session(t); ok && name != "" {
		return name
	}
	return "Out of session"
}

// DayKey identifies the local calendar day of t.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// WeekKey identifies the ISO week of t in local time.
func (c *Calendar) WeekKey(t time.Time) string {
	y, w := t.In(c.loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}
