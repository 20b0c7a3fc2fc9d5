package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME - Timestamps, dates and clocks
// =============================================================================

const (
	// TimestampLayout is ISO-8601 UTC with millisecond precision and a Z.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
)

// Clock returns the current instant. Injected so tests can pin time.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// FormatTimestamp renders t the way createdAt/updatedAt are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DateString renders the calendar date of t in t's own location.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// TimestampDate returns the YYYY-MM-DD prefix of a stored timestamp, or ""
// when the timestamp is too short to carry one.
func TimestampDate(ts string) string {
	if len(ts) < len(DateLayout) {
		return ""
	}
	d := ts[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ""
	}
	return d
}

// ParseDate parses YYYY-MM-DD as a date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, Invalid("date", fmt.Sprintf("%q is not YYYY-MM-DD", s))
	}
	return t, nil
}

// ParseDateTime combines a date and an HH:MM wall-clock time in loc.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, Invalid("time", fmt.Sprintf("%q %q is not YYYY-MM-DD HH:MM", date, clock))
	}
	return t, nil
}

// ValidateDue checks a due date and optional due time.
func ValidateDue(date, clock string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return Invalid("dueDate", fmt.Sprintf("%q is not YYYY-MM-DD", date))
	}
	if clock == "" {
		return nil
	}
	if _, err := time.Parse(ClockLayout, clock); err != nil {
		return Invalid("dueTime", fmt.Sprintf("%q is not HH:MM", clock))
	}
	return nil
}
