package ical_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/ical"
)

func calendar(events ...string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n" + strings.Join(events, "") + "END:VCALENDAR\r\n"
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

func utcParser() *ical.Parser {
	return &ical.Parser{Location: time.UTC}
}

func starts(occs []ical.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Start.Format("2006-01-02 15:04")
	}
	return out
}

// =============================================================================
// LEXING
// =============================================================================

func TestUnfold(t *testing.T) {
	lines := ical.Unfold("SUMMARY:Hello\r\n  World\r\n\tagain\nDESCRIPTION:x\r\n")
	assert.Equal(t, []string{"SUMMARY:Hello Worldagain", "DESCRIPTION:x"}, lines)
}

func TestSplitEvents_SkipsNestedComponents(t *testing.T) {
	text := calendar(vevent(
		"SUMMARY:Dentist",
		"BEGIN:VALARM",
		"DESCRIPTION:Alarm text",
		"END:VALARM",
		"DTSTART:20250301T100000Z",
	))
	blocks := ical.SplitEvents(ical.Unfold(text))
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"SUMMARY:Dentist", "DTSTART:20250301T100000Z"}, blocks[0])
}

func TestParseProperty(t *testing.T) {
	p, ok := ical.ParseProperty(`dtstart;TZID="America/New_York";X-A=b:20250301T090000`)
	require.True(t, ok)
	assert.Equal(t, "DTSTART", p.Name)
	assert.Equal(t, "America/New_York", p.Param("tzid"))
	assert.Equal(t, "20250301T090000", p.Value)

	p, ok = ical.ParseProperty(`LOCATION;ALTREP="http://x.test/a:b":Room 1`)
	require.True(t, ok)
	assert.Equal(t, "Room 1", p.Value)

	_, ok = ical.ParseProperty("no colon here")
	assert.False(t, ok)
}

func TestEscapeRoundTrip(t *testing.T) {
	in := "a, b; c\\d\ne"
	assert.Equal(t, `a\, b\; c\\d\ne`, ical.Escape(in))
	assert.Equal(t, in, ical.Unescape(ical.Escape(in)))
	assert.Equal(t, "line\nbreak", ical.Unescape(`line\Nbreak`))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Work", "Kids, school", "Home"}, ical.SplitList(`Work,Kids\, school,,Home`))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT1H30M", 90 * time.Minute, true},
		{"P1D", 24 * time.Hour, true},
		{"P2W", 14 * 24 * time.Hour, true},
		{"-PT15M", -15 * time.Minute, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"PT", 0, false},
		{"1H", 0, false},
		{"P1H", 0, false},
	}
	for _, tt := range tests {
		got, ok := ical.ParseDuration(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse_DateForms(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	text := calendar(
		vevent("UID:allday", "SUMMARY:Holiday", "DTSTART;VALUE=DATE:20250301"),
		vevent("UID:utc", "SUMMARY:Call", "DTSTART:20250301T100000Z", "DURATION:PT1H30M"),
		vevent("UID:zoned", "SUMMARY:Zoned", "DTSTART;TZID=America/New_York:20250301T090000", "DTEND;TZID=America/New_York:20250301T100000"),
		vevent("UID:floating", "SUMMARY:Floating", "DTSTART:20250301T0800"),
		vevent("UID:nodate", "SUMMARY:Broken", "DTSTART:garbage"),
	)
	occs := utcParser().Parse(text)
	require.Len(t, occs, 4)

	assert.True(t, occs[0].AllDay)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), occs[0].End)

	assert.Equal(t, time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC), occs[1].End)

	assert.True(t, occs[2].Start.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, ny)))
	assert.Equal(t, "14:00", occs[2].Start.Format("15:04"))

	assert.Equal(t, "08:00", occs[3].Start.Format("15:04"))
	assert.True(t, occs[3].End.IsZero())
}

func TestParse_TextFields(t *testing.T) {
	text := calendar(vevent(
		"UID:x1",
		`SUMMARY:Soccer\, U10`,
		`DESCRIPTION:Bring water\nand shoes`,
		`LOCATION:Field 3\; north`,
		"CATEGORIES:Kids,Sport",
		"DTSTART:20250301T100000Z",
		"DTEND:20250301T090000Z",
	))
	occs := utcParser().Parse(text)
	require.Len(t, occs, 1)
	o := occs[0]
	assert.Equal(t, "Soccer, U10", o.Summary)
	assert.Equal(t, "Bring water\nand shoes", o.Description)
	assert.Equal(t, "Field 3; north", o.Location)
	assert.Equal(t, []string{"Kids", "Sport"}, o.Categories)
	assert.True(t, o.End.IsZero(), "an end before the start is dropped")
}

// =============================================================================
// RECURRENCE
// =============================================================================

func TestParse_Recurrence(t *testing.T) {
	tests := []struct {
		name  string
		start string
		rule  string
		extra []string
		want  []string
	}{
		{
			name:  "daily count",
			start: "DTSTART:20250301T070000Z",
			rule:  "RRULE:FREQ=DAILY;COUNT=3",
			want:  []string{"2025-03-01 07:00", "2025-03-02 07:00", "2025-03-03 07:00"},
		},
		{
			name:  "daily interval",
			start: "DTSTART:20250301T070000Z",
			rule:  "RRULE:FREQ=DAILY;INTERVAL=2;COUNT=3",
			want:  []string{"2025-03-01 07:00", "2025-03-03 07:00", "2025-03-05 07:00"},
		},
		{
			name:  "weekly byday",
			start: "DTSTART:20250303T100000Z",
			rule:  "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4",
			want:  []string{"2025-03-03 10:00", "2025-03-05 10:00", "2025-03-10 10:00", "2025-03-12 10:00"},
		},
		{
			name:  "weekly byday keeps an off-pattern start",
			start: "DTSTART:20250304T100000Z",
			rule:  "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3",
			want:  []string{"2025-03-04 10:00", "2025-03-05 10:00", "2025-03-10 10:00"},
		},
		{
			name:  "monthly last friday until",
			start: "DTSTART:20250131T180000Z",
			rule:  "RRULE:FREQ=MONTHLY;BYDAY=-1FR;UNTIL=20250531",
			want:  []string{"2025-01-31 18:00", "2025-02-28 18:00", "2025-03-28 18:00", "2025-04-25 18:00", "2025-05-30 18:00"},
		},
		{
			name:  "monthly skips short months",
			start: "DTSTART:20250131T090000Z",
			rule:  "RRULE:FREQ=MONTHLY;COUNT=3",
			want:  []string{"2025-01-31 09:00", "2025-03-31 09:00", "2025-05-31 09:00"},
		},
		{
			name:  "yearly leap day",
			start: "DTSTART;VALUE=DATE:20240229",
			rule:  "RRULE:FREQ=YEARLY;COUNT=2",
			want:  []string{"2024-02-29 00:00", "2028-02-29 00:00"},
		},
		{
			name:  "exdate by day",
			start: "DTSTART:20250301T070000Z",
			rule:  "RRULE:FREQ=DAILY;COUNT=3",
			extra: []string{"EXDATE;VALUE=DATE:20250302"},
			want:  []string{"2025-03-01 07:00", "2025-03-03 07:00"},
		},
		{
			name:  "exdate by instant",
			start: "DTSTART:20250301T070000Z",
			rule:  "RRULE:FREQ=DAILY;COUNT=3",
			extra: []string{"EXDATE:20250301T070000Z,20250303T070000Z"},
			want:  []string{"2025-03-02 07:00"},
		},
		{
			name:  "unsupported freq keeps the single event",
			start: "DTSTART:20250301T070000Z",
			rule:  "RRULE:FREQ=HOURLY;COUNT=3",
			want:  []string{"2025-03-01 07:00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := append([]string{"UID:r", "SUMMARY:R", tt.start, tt.rule}, tt.extra...)
			occs := utcParser().Parse(calendar(vevent(lines...)))
			if diff := cmp.Diff(tt.want, starts(occs)); diff != "" {
				t.Errorf("occurrences mismatch (-want +got):\n%s", diff)
			}
			for i, o := range occs {
				assert.Equal(t, i, o.Index)
			}
		})
	}
}

func TestParse_RecurrenceCaps(t *testing.T) {
	open := calendar(vevent("UID:o", "DTSTART:20250301T070000Z", "RRULE:FREQ=WEEKLY"))

	capped := (&ical.Parser{Location: time.UTC, MaxInstances: 10}).Parse(
		calendar(vevent("UID:d", "DTSTART:20250301T070000Z", "RRULE:FREQ=DAILY")))
	assert.Len(t, capped, 10)

	horizon := (&ical.Parser{Location: time.UTC, Horizon: 30 * 24 * time.Hour}).Parse(open)
	assert.Len(t, horizon, 5)

	defaults := utcParser().Parse(open)
	assert.Len(t, defaults, 105, "two years of weekly events")
}

func TestImport_StableIDs(t *testing.T) {
	src := generic.ICalSource{ID: "src", URL: "https://cal.test/a.ics"}
	text := calendar(
		vevent("UID:abc", "SUMMARY:Swim", "DTSTART:20250301T070000Z", "DTEND:20250301T080000Z", "RRULE:FREQ=DAILY;COUNT=2"),
		vevent("SUMMARY:No uid", "DTSTART;VALUE=DATE:20250310", "DTEND;VALUE=DATE:20250313"),
	)
	events := utcParser().Import(text, src)
	require.Len(t, events, 3)

	assert.Equal(t, "src_abc_0", events[0].ID)
	assert.Equal(t, "src_abc_1", events[1].ID)
	assert.Equal(t, "07:00", events[1].Time)
	assert.Equal(t, "08:00", events[1].EndTime)
	assert.True(t, events[1].Recurring)
	assert.Equal(t, src.URL, events[1].SourceURL)

	assert.Equal(t, "src_event1_0", events[2].ID)
	assert.True(t, events[2].AllDay)
	assert.Equal(t, "2025-03-10", events[2].Date)
	assert.Equal(t, "2025-03-12", events[2].EndDate)
}

// =============================================================================
// WRITING
// =============================================================================

func TestFold(t *testing.T) {
	long := "DESCRIPTION:" + strings.Repeat("é", 100)
	folded := ical.Fold(long)

	require.True(t, strings.HasSuffix(folded, "\r\n"))
	for _, line := range strings.Split(strings.TrimSuffix(folded, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75)
		assert.True(t, utf8.ValidString(line))
	}
	assert.Equal(t, []string{long}, ical.Unfold(folded))
	assert.Equal(t, "SHORT:x\r\n", ical.Fold("SHORT:x"))
}

func TestFold_InvalidUTF8Terminates(t *testing.T) {
	// GIVEN: A value with no rune start for more than a line
	long := "SUMMARY:" + strings.Repeat("\x80", 100)

	// WHEN
	done := make(chan string, 1)
	go func() { done <- ical.Fold(long) }()

	// THEN: Folding finishes and keeps every byte
	select {
	case folded := <-done:
		for _, line := range strings.Split(strings.TrimSuffix(folded, "\r\n"), "\r\n") {
			assert.LessOrEqual(t, len(line), 75)
		}
		assert.Equal(t, []string{long}, ical.Unfold(folded))
	case <-time.After(2 * time.Second):
		t.Fatal("Fold did not return")
	}
}

func TestWriter_Output(t *testing.T) {
	w := &ical.Writer{Name: "Family", Stamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	out := string(w.Encode([]ical.VEvent{{
		UID:     "u1",
		Summary: "Milk, eggs; bread",
		Start:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		End:     time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
	}}))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:"))
	assert.Contains(t, out, "SUMMARY:Milk\\, eggs\\; bread\r\n")
	assert.Contains(t, out, "DTSTART:20250301T093000Z\r\n")
	assert.Contains(t, out, "X-WR-CALNAME:Family\r\n")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestExportThenImport_PreservesDueDates(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// GIVEN: A list with a timed due item and an all-day child
	doc := generic.NewDocument()
	doc.Checklists = append(doc.Checklists, generic.Checklist{
		ID: "l1", Title: "Chores", CreatedAt: "2025-02-01T10:00:00.000Z", UpdatedAt: "2025-02-03T10:00:00.000Z",
		Items: []generic.Item{{
			Text: "Bins, recycling", DueDate: "2025-03-01", DueTime: "09:30",
			Children: []generic.Item{{Text: "Sort glass", DueDate: "2025-03-02", Children: []generic.Item{}}},
		}},
	})
	doc.Tasks = append(doc.Tasks, generic.Task{
		ID: "t1", Title: "Garage", Statuses: generic.DefaultStatuses(),
		Items: []generic.Item{{Text: "Paint", Status: generic.StatusInProgress, DueDate: "2025-07-04", DueTime: "23:15", Children: []generic.Item{}}},
	})

	// WHEN: Exported and re-imported in the same zone
	text := string((&ical.Writer{}).Encode(ical.ExportEvents(doc, ny, nil)))
	events := (&ical.Parser{Location: ny}).Import(text, generic.ICalSource{ID: "rt", URL: "file://x"})
	byUID := map[string]generic.ImportedEvent{}
	for _, e := range events {
		byUID[e.OriginalUID] = e
	}

	// THEN: Timed items keep minute precision, all-day items keep the day
	timed := byUID["list_l1_0"]
	assert.Equal(t, "2025-03-01", timed.Date)
	assert.Equal(t, "09:30", timed.Time)
	assert.Equal(t, "Bins, recycling", timed.Title)
	assert.Equal(t, "From list: Chores", timed.Description)

	allDay := byUID["list_l1_0.0"]
	assert.Equal(t, "2025-03-02", allDay.Date)
	assert.True(t, allDay.AllDay)
	assert.Empty(t, allDay.Time)

	task := byUID["task_t1_0"]
	assert.Equal(t, "2025-07-04", task.Date)
	assert.Equal(t, "23:15", task.Time)
	assert.Equal(t, "From task: Garage\nStatus: in_progress", task.Description)

	// AND: Lifecycle events are present, edited only for a later day
	assert.Contains(t, byUID, "list_created_l1")
	assert.Contains(t, byUID, "list_edited_l1")
	assert.NotContains(t, byUID, "task_edited_t1")
}

func TestReminderEvent(t *testing.T) {
	doc := generic.NewDocument()
	doc.Notes = append(doc.Notes, generic.Note{ID: "n1", Title: "Vet", Content: "Bring card"})

	ev, ok := ical.ReminderEvent(doc, generic.Reminder{ID: "r1", NoteID: "n1", ScheduledTime: "2025-03-01T15:00:00Z"}, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "Vet", ev.Summary)
	assert.Equal(t, "Bring card", ev.Description)
	assert.Equal(t, 30*time.Minute, ev.End.Sub(ev.Start))
	assert.Equal(t, "note_sched_r1", ev.UID)

	ev, ok = ical.ReminderEvent(doc, generic.Reminder{ID: "r2", Title: "Bins", ScheduledTime: "2025-03-04"}, time.UTC)
	require.True(t, ok)
	assert.True(t, ev.AllDay)

	_, ok = ical.ReminderEvent(doc, generic.Reminder{ID: "r3", ScheduledTime: "soon"}, time.UTC)
	assert.False(t, ok)
}

// =============================================================================
// FETCHING
// =============================================================================

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(calendar(vevent("UID:a", "DTSTART:20250301T070000Z"))))
	}))
	defer srv.Close()

	f := ical.NewHTTPFetcher(time.Second)
	body, err := f.Fetch(context.Background(), srv.URL+"/family.ics")
	require.NoError(t, err)
	assert.Contains(t, body, "BEGIN:VEVENT")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.ics")
	assert.ErrorIs(t, err, ical.ErrFetch)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://cal.test/a.ics", ical.NormalizeURL("webcal://cal.test/a.ics"))
	assert.Equal(t, "https://cal.test/a.ics", ical.NormalizeURL("WEBCAL://cal.test/a.ics"))
	assert.Equal(t, "http://cal.test/a.ics", ical.NormalizeURL("http://cal.test/a.ics"))
}
