package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// PARSER
// =============================================================================

const (
	// DefaultMaxInstances caps the occurrences one recurring event yields.
	DefaultMaxInstances = 365

	// DefaultHorizon bounds open-ended rules (no COUNT, no UNTIL).
	DefaultHorizon = 2 * 365 * 24 * time.Hour
)

// Parser converts calendar text into occurrences in Location.
type Parser struct {
	Location     *time.Location
	MaxInstances int
	Horizon      time.Duration
}

func (p *Parser) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p *Parser) maxInstances() int {
	if p.MaxInstances <= 0 {
		return DefaultMaxInstances
	}
	return p.MaxInstances
}

func (p *Parser) horizon() time.Duration {
	if p.Horizon <= 0 {
		return DefaultHorizon
	}
	return p.Horizon
}

// Occurrence is one concrete instance of a VEVENT.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Categories  []string
	Start       time.Time
	End         time.Time // zero when the event has neither DTEND nor DURATION
	AllDay      bool
	Recurring   bool
	Index       int // position within the expanded series
}

// vevent is a single block after property extraction.
type vevent struct {
	uid         string
	summary     string
	description string
	location    string
	categories  []string
	start       time.Time
	end         time.Time
	duration    time.Duration
	hasDuration bool
	allDay      bool
	rrule       string
	exdates     []exdate
}

type exdate struct {
	at      time.Time
	dayOnly bool
}

// Parse extracts every occurrence from text. Blocks without a usable
// DTSTART are dropped. Occurrences keep feed order; a recurring event's
// instances are contiguous.
func (p *Parser) Parse(text string) []Occurrence {
	var out []Occurrence
	for i, block := range SplitEvents(Unfold(text)) {
		ev, ok := p.parseBlock(block)
		if !ok {
			continue
		}
		if ev.uid == "" {
			ev.uid = fmt.Sprintf("event%d", i)
		}
		out = append(out, p.expand(ev)...)
	}
	return out
}

func (p *Parser) parseBlock(lines []string) (vevent, bool) {
	var (
		ev       vevent
		hasStart bool
	)
	for _, line := range lines {
		prop, ok := ParseProperty(line)
		if !ok {
			continue
		}
		switch prop.Name {
		case "UID":
			ev.uid = strings.TrimSpace(prop.Value)
		case "SUMMARY":
			ev.summary = Unescape(prop.Value)
		case "DESCRIPTION":
			ev.description = Unescape(prop.Value)
		case "LOCATION":
			ev.location = Unescape(prop.Value)
		case "CATEGORIES":
			ev.categories = append(ev.categories, SplitList(prop.Value)...)
		case "DTSTART":
			if t, allDay, ok := p.parseDateTime(prop); ok {
				ev.start, ev.allDay, hasStart = t, allDay, true
			}
		case "DTEND":
			if t, _, ok := p.parseDateTime(prop); ok {
				ev.end = t
			}
		case "DURATION":
			if d, ok := ParseDuration(prop.Value); ok {
				ev.duration, ev.hasDuration = d, true
			}
		case "RRULE":
			ev.rrule = prop.Value
		case "EXDATE":
			for _, v := range strings.Split(prop.Value, ",") {
				single := Property{Name: prop.Name, Params: prop.Params, Value: v}
				if t, dayOnly, ok := p.parseDateTime(single); ok {
					ev.exdates = append(ev.exdates, exdate{at: t, dayOnly: dayOnly})
				}
			}
		}
	}
	if !hasStart {
		return vevent{}, false
	}
	if !ev.end.IsZero() && !ev.end.After(ev.start) {
		ev.end = time.Time{}
	}
	if ev.end.IsZero() && ev.hasDuration && ev.duration > 0 {
		ev.end = ev.start.Add(ev.duration)
	}
	if ev.end.IsZero() && ev.allDay {
		ev.end = ev.start.AddDate(0, 0, 1)
	}
	return ev, true
}

// parseDateTime handles the three DATE-TIME forms plus DATE:
//
//	VALUE=DATE:20250301        all-day, midnight in Location
//	20250301T093000Z           UTC
//	TZID=Europe/Paris:2025...  named zone, converted to Location
//	20250301T093000            floating, read as Location wall time
func (p *Parser) parseDateTime(prop Property) (time.Time, bool, bool) {
	v := strings.TrimSpace(prop.Value)
	loc := p.loc()

	if strings.EqualFold(prop.Param("VALUE"), "DATE") || len(v) == 8 {
		t, err := time.ParseInLocation("20060102", v, loc)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, true, true
	}

	if strings.HasSuffix(v, "Z") {
		t, err := parseFirst(strings.TrimSuffix(v, "Z"), time.UTC)
		if err != nil {
			return time.Time{}, false, false
		}
		return t.In(loc), false, true
	}

	src := loc
	if tzid := prop.Param("TZID"); tzid != "" {
		if zone, err := time.LoadLocation(tzid); err == nil {
			src = zone
		}
	}
	t, err := parseFirst(v, src)
	if err != nil {
		return time.Time{}, false, false
	}
	return t.In(loc), false, true
}

func parseFirst(v string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"20060102T150405", "20060102T1504"} {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseDuration reads an RFC 5545 duration such as P1D, PT1H30M, P2W or
// -PT15M. Fractions and years/months are not part of the format.
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, false
	}
	s = s[1:]

	var (
		total  time.Duration
		num    strings.Builder
		inTime bool
		seen   bool
	)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
			continue
		case r == 'T':
			if num.Len() > 0 {
				return 0, false
			}
			inTime = true
			continue
		}
		if num.Len() == 0 {
			return 0, false
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, false
		}
		num.Reset()
		unit := time.Duration(n)
		switch {
		case r == 'W' && !inTime:
			total += unit * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += unit * 24 * time.Hour
		case r == 'H' && inTime:
			total += unit * time.Hour
		case r == 'M' && inTime:
			total += unit * time.Minute
		case r == 'S' && inTime:
			total += unit * time.Second
		default:
			return 0, false
		}
		seen = true
	}
	if num.Len() > 0 || !seen {
		return 0, false
	}
	return sign * total, true
}

// =============================================================================
// EXPANSION
// =============================================================================

func (p *Parser) expand(ev vevent) []Occurrence {
	length := time.Duration(0)
	if !ev.end.IsZero() {
		length = ev.end.Sub(ev.start)
	}

	starts := []time.Time{ev.start}
	recurring := false
	if ev.rrule != "" {
		if rule, err := ParseRule(ev.rrule, p.loc()); err == nil {
			starts = rule.Expand(ev.start, p.maxInstances(), ev.start.Add(p.horizon()))
			recurring = true
		}
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		if excluded(s, ev.exdates) {
			continue
		}
		occ := Occurrence{
			UID:         ev.uid,
			Summary:     ev.summary,
			Description: ev.description,
			Location:    ev.location,
			Categories:  ev.categories,
			Start:       s,
			AllDay:      ev.allDay,
			Recurring:   recurring,
			Index:       len(out),
		}
		if length > 0 {
			if ev.allDay {
				// Calendar days, so DST shifts don't move all-day ends.
				occ.End = s.AddDate(0, 0, int(length.Round(24*time.Hour)/(24*time.Hour)))
			} else {
				occ.End = s.Add(length)
			}
		}
		out = append(out, occ)
	}
	return out
}

func excluded(t time.Time, exdates []exdate) bool {
	for _, ex := range exdates {
		if ex.dayOnly {
			if sameDay(ex.at, t) {
				return true
			}
			continue
		}
		if ex.at.Equal(t) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// =============================================================================
// IMPORT MAPPING
// =============================================================================

// Import parses text and maps each occurrence to the persisted shape.
// Event ids are "<source-id>_<uid>_<n>" so refreshes produce stable ids.
func (p *Parser) Import(text string, source generic.ICalSource) []generic.ImportedEvent {
	occs := p.Parse(text)
	out := make([]generic.ImportedEvent, 0, len(occs))
	for _, o := range occs {
		out = append(out, ToImported(o, source))
	}
	return out
}

// ToImported renders an occurrence as local date/time strings. All-day
// ends are stored as the last covered day, and only for multi-day events.
func ToImported(o Occurrence, source generic.ICalSource) generic.ImportedEvent {
	ev := generic.ImportedEvent{
		ID:          fmt.Sprintf("%s_%s_%d", source.ID, o.UID, o.Index),
		SourceURL:   source.URL,
		OriginalUID: o.UID,
		Title:       o.Summary,
		Description: o.Description,
		Location:    o.Location,
		Categories:  o.Categories,
		Date:        generic.DateString(o.Start),
		AllDay:      o.AllDay,
		Recurring:   o.Recurring,
	}
	if ev.Title == "" {
		ev.Title = "Imported Event"
	}
	if o.AllDay {
		if !o.End.IsZero() {
			last := o.End.AddDate(0, 0, -1)
			if last.After(o.Start) {
				ev.EndDate = generic.DateString(last)
			}
		}
		return ev
	}
	ev.Time = o.Start.Format(generic.ClockLayout)
	if !o.End.IsZero() {
		if end := generic.DateString(o.End); end != ev.Date {
			ev.EndDate = end
		}
		ev.EndTime = o.End.Format(generic.ClockLayout)
	}
	return ev
}
