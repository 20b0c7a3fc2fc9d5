package ical

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// RECURRENCE RULES
// =============================================================================
// Supported: FREQ=DAILY|WEEKLY|MONTHLY|YEARLY with COUNT, UNTIL, INTERVAL
// and BYDAY. Other parts (BYMONTHDAY, BYSETPOS, WKST, ...) are ignored,
// which widens or narrows the series but never fails the import.

var errUnsupportedRule = errors.New("unsupported recurrence rule")

type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// maxPeriods stops expansion of rules whose periods rarely match
// (e.g. monthly on the 31st) from spinning.
const maxPeriods = 10000

// WeekdayNum is a BYDAY entry: "MO", "2TU", "-1FR".
type WeekdayNum struct {
	Ordinal int
	Day     time.Weekday
}

type Rule struct {
	Freq     Frequency
	Interval int
	Count    int
	Until    time.Time
	ByDay    []WeekdayNum
}

var weekdays = map[string]time.Weekday{
	"SU": time.Sunday, "MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday,
	"TH": time.Thursday, "FR": time.Friday, "SA": time.Saturday,
}

// ParseRule parses an RRULE value. loc resolves floating and DATE UNTILs.
func ParseRule(s string, loc *time.Location) (*Rule, error) {
	r := &Rule{Interval: 1}
	for _, part := range strings.Split(strings.TrimSpace(s), ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "FREQ":
			r.Freq = Frequency(strings.ToUpper(v))
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.Count = n
			}
		case "UNTIL":
			if t, ok := parseUntil(v, loc); ok {
				r.Until = t
			}
		case "BYDAY":
			for _, d := range strings.Split(v, ",") {
				if wn, ok := parseWeekdayNum(d); ok {
					r.ByDay = append(r.ByDay, wn)
				}
			}
		}
	}
	switch r.Freq {
	case Daily, Weekly, Monthly, Yearly:
		return r, nil
	}
	return nil, fmt.Errorf("%w: FREQ=%q", errUnsupportedRule, r.Freq)
}

func parseUntil(v string, loc *time.Location) (time.Time, bool) {
	if len(v) == 8 {
		d, err := time.ParseInLocation("20060102", v, loc)
		if err != nil {
			return time.Time{}, false
		}
		// A DATE until includes the whole day.
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	}
	if strings.HasSuffix(v, "Z") {
		t, err := parseFirst(strings.TrimSuffix(v, "Z"), time.UTC)
		return t, err == nil
	}
	t, err := parseFirst(v, loc)
	return t, err == nil
}

func parseWeekdayNum(s string) (WeekdayNum, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return WeekdayNum{}, false
	}
	day, ok := weekdays[s[len(s)-2:]]
	if !ok {
		return WeekdayNum{}, false
	}
	wn := WeekdayNum{Day: day}
	if prefix := s[:len(s)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 {
			return WeekdayNum{}, false
		}
		wn.Ordinal = n
	}
	return wn, true
}

// Expand returns the start times of the series beginning at start, in
// order. At most limit instances are returned. Open-ended rules stop at
// horizon.
func (r *Rule) Expand(start time.Time, limit int, horizon time.Time) []time.Time {
	var (
		out       []time.Time
		generated int
	)
	openEnded := r.Count == 0 && r.Until.IsZero()

	for k := 0; k < maxPeriods; k++ {
		cands := r.period(start, k)
		// DTSTART is always the first instance, even off-pattern.
		if k == 0 && !containsTime(cands, start) {
			cands = append([]time.Time{start}, cands...)
		}
		for _, c := range cands {
			if c.Before(start) {
				continue
			}
			if !r.Until.IsZero() && c.After(r.Until) {
				return out
			}
			if openEnded && c.After(horizon) {
				return out
			}
			out = append(out, c)
			generated++
			if (r.Count > 0 && generated >= r.Count) || len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func containsTime(ts []time.Time, t time.Time) bool {
	for _, c := range ts {
		if c.Equal(t) {
			return true
		}
	}
	return false
}

// period lists the candidates of the k-th period, sorted.
func (r *Rule) period(start time.Time, k int) []time.Time {
	step := k * r.Interval
	loc := start.Location()
	h, m, s := start.Clock()

	switch r.Freq {
	case Daily:
		c := start.AddDate(0, 0, step)
		if len(r.ByDay) > 0 && !r.hasWeekday(c.Weekday()) {
			return nil
		}
		return []time.Time{c}

	case Weekly:
		if len(r.ByDay) == 0 {
			return []time.Time{start.AddDate(0, 0, 7*step)}
		}
		// Weeks start on Monday.
		back := (int(start.Weekday()) + 6) % 7
		weekStart := start.AddDate(0, 0, 7*step-back)
		var out []time.Time
		for offset := 0; offset < 7; offset++ {
			c := weekStart.AddDate(0, 0, offset)
			if r.hasWeekday(c.Weekday()) {
				out = append(out, c)
			}
		}
		return out

	case Monthly:
		first := time.Date(start.Year(), start.Month()+time.Month(step), 1, h, m, s, 0, loc)
		if len(r.ByDay) == 0 {
			return dayOfMonth(first, start.Day())
		}
		return r.weekdaysInMonth(first)

	case Yearly:
		first := time.Date(start.Year()+step, start.Month(), 1, h, m, s, 0, loc)
		if len(r.ByDay) == 0 {
			return dayOfMonth(first, start.Day())
		}
		return r.weekdaysInMonth(first)
	}
	return nil
}

func (r *Rule) hasWeekday(d time.Weekday) bool {
	return slices.ContainsFunc(r.ByDay, func(wn WeekdayNum) bool { return wn.Day == d })
}

// dayOfMonth returns the given day in first's month, or nothing when the
// month is too short (Feb 30, Apr 31).
func dayOfMonth(first time.Time, day int) []time.Time {
	c := first.AddDate(0, 0, day-1)
	if c.Month() != first.Month() {
		return nil
	}
	return []time.Time{c}
}

func (r *Rule) weekdaysInMonth(first time.Time) []time.Time {
	last := first.AddDate(0, 1, -1).Day()
	var out []time.Time
	for _, wn := range r.ByDay {
		var matches []time.Time
		for d := 1; d <= last; d++ {
			c := first.AddDate(0, 0, d-1)
			if c.Weekday() == wn.Day {
				matches = append(matches, c)
			}
		}
		switch {
		case wn.Ordinal == 0:
			out = append(out, matches...)
		case wn.Ordinal > 0 && wn.Ordinal <= len(matches):
			out = append(out, matches[wn.Ordinal-1])
		case wn.Ordinal < 0 && -wn.Ordinal <= len(matches):
			out = append(out, matches[len(matches)+wn.Ordinal])
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}
