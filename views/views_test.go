package views_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/views"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

func testOptions() views.Options {
	return views.Options{
		Calendar: views.DefaultCalendarConfig(),
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}
}

func testDoc() *generic.Document {
	doc := generic.NewDocument()
	doc.Notes = append(doc.Notes, generic.Note{
		ID: "n1", Title: "Wifi", Content: "hunter2",
		Images:    []string{"/local/a.png"},
		CreatedAt: "2025-10-01T08:00:00.000Z", UpdatedAt: "2025-10-03T08:00:00.000Z",
	})
	doc.Checklists = append(doc.Checklists, generic.Checklist{
		ID: "l1", Title: "Groceries", Type: generic.ChecklistShopping,
		CreatedAt: "2025-10-02T08:00:00.000Z", UpdatedAt: "2025-10-02T09:00:00.000Z",
		Items: []generic.Item{
			{Text: "Milk", Completed: true, DueDate: "2025-10-10"},
			{Text: "Bread", DueDate: "2025-10-12", Children: []generic.Item{
				{Text: "Rye", DueDate: "2025-10-20", DueTime: "18:30"},
			}},
		},
	})
	doc.Tasks = append(doc.Tasks, generic.Task{
		ID: "t1", Title: "Garage", Statuses: generic.DefaultStatuses(),
		CreatedAt: "2025-10-05T08:00:00.000Z", UpdatedAt: "2025-10-06T08:00:00.000Z",
		Items: []generic.Item{
			{Text: "Sort tools", Status: generic.StatusInProgress, DueDate: "2025-10-01"},
			{Text: "Sweep", Status: generic.StatusCompleted},
		},
	})
	doc.ICalSources = append(doc.ICalSources, generic.ICalSource{ID: "s1", URL: "https://cal.example/school.ics", Name: "School"})
	doc.ImportedEvents = append(doc.ImportedEvents,
		generic.ImportedEvent{ID: "s1_a_0", SourceURL: "https://cal.example/school.ics", Title: "Fair", Date: "2025-10-18", Time: "09:00", EndTime: "08:00"},
		generic.ImportedEvent{ID: "s1_b_0", SourceURL: "https://cal.example/school.ics", Title: "Break", Date: "2025-10-27", EndDate: "2025-10-31", AllDay: true},
	)
	return doc
}

// =============================================================================
// SENSORS
// =============================================================================

func TestCompletionRate_RoundsToOneDecimal(t *testing.T) {
	assert.Equal(t, 0.0, views.CompletionRate(0, 0))
	assert.Equal(t, 33.3, views.CompletionRate(1, 3))
	assert.Equal(t, 66.7, views.CompletionRate(2, 3))
	assert.Equal(t, 100.0, views.CompletionRate(4, 4))
}

func TestSummarize_CountsChecklistItemsAndOverdueEverywhere(t *testing.T) {
	// WHEN
	s := views.Summarize(testDoc(), testOptions())

	// THEN: Items come from checklists only
	assert.Equal(t, 1, s.TotalNotes)
	assert.Equal(t, 1, s.TotalChecklists)
	assert.Equal(t, 1, s.TotalTasks)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 1, s.CompletedItems)
	assert.Equal(t, 2, s.PendingItems)
	assert.Equal(t, 33.3, s.CompletionRate)

	// AND: Bread (list) and Sort tools (task) are overdue; Milk is done
	require.Equal(t, 2, s.OverdueItems)
	assert.Equal(t, "Bread", s.Overdue[0].Text)
	assert.Equal(t, "list", s.Overdue[0].ParentType)
	assert.Equal(t, "Sort tools", s.Overdue[1].Text)
	assert.Equal(t, "Garage", s.Overdue[1].ParentTitle)
	assert.Equal(t, 2, s.ImportedEvents)
}

func TestEntitySensors(t *testing.T) {
	doc := testDoc()
	opts := testOptions()

	t.Run("note", func(t *testing.T) {
		n := views.NoteView(doc.Notes[0])
		assert.Equal(t, "Wifi", n.State)
		assert.True(t, n.HasImages)
		assert.Equal(t, 1, n.ImageCount)
	})

	t.Run("checklist", func(t *testing.T) {
		c := views.ChecklistView(doc.Checklists[0], opts)
		assert.Equal(t, "1/3", c.State)
		assert.Len(t, c.FlatItems, 3)
		assert.Equal(t, "1.0", c.FlatItems[2].IndexPath)
		assert.Len(t, c.DueItems, 3)
		assert.Equal(t, 1, c.OverdueCount)
	})

	t.Run("task with default statuses", func(t *testing.T) {
		task := doc.Tasks[0]
		task.Statuses = nil
		v := views.TaskView(task, opts)
		assert.Equal(t, "1/2", v.State)
		require.Len(t, v.Statuses, 3)
		assert.Equal(t, "To Do", v.Statuses[0].Name)
		assert.Equal(t, 1, v.InProgress)
		assert.Equal(t, 1, v.StatusCounts[generic.StatusCompleted])
		assert.Equal(t, 0, v.Todo)
	})
}

// =============================================================================
// CALENDARS
// =============================================================================

func TestCalendars_OnePerSource(t *testing.T) {
	doc := testDoc()
	cals := views.Calendars(doc, testOptions())

	require.Len(t, cals, 8)
	assert.Equal(t, "ical_s1", cals[7].ID)
	assert.Equal(t, "JotTick iCal School", cals[7].Name)

	// WHEN: The source is removed
	doc.ICalSources = nil
	_, err := views.CalendarEventsFor(doc, "ical_s1", testOptions())

	// THEN: Its calendar is gone
	assert.ErrorIs(t, err, generic.ErrCalendarNotFound)
	assert.True(t, generic.IsNotFound(err))
}

func TestListDueCalendar_PrefixesAndToggles(t *testing.T) {
	doc := testDoc()
	opts := testOptions()

	// WHEN: Completed items are hidden by default
	evts, err := views.CalendarEventsFor(doc, views.CalendarListDue, opts)
	require.NoError(t, err)

	// THEN: Overdue Bread is flagged, Rye is timed for one hour
	require.Len(t, evts, 2)
	assert.Equal(t, "⚠ Bread", evts[0].Summary)
	assert.True(t, evts[0].AllDay)
	assert.Equal(t, "list_l1_1", evts[0].UID)
	assert.Equal(t, "Rye", evts[1].Summary)
	assert.False(t, evts[1].AllDay)
	assert.Equal(t, time.Date(2025, 10, 20, 18, 30, 0, 0, time.UTC), evts[1].Start)
	assert.Equal(t, time.Hour, evts[1].End.Sub(evts[1].Start))
	assert.Equal(t, "From list: Groceries", evts[1].Description)

	// WHEN: Completed shown, overdue hidden
	opts.Calendar.Show.Completed = true
	opts.Calendar.Show.Overdue = false
	evts, err = views.CalendarEventsFor(doc, views.CalendarListDue, opts)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "✓ Milk", evts[0].Summary)
	assert.Equal(t, "Rye", evts[1].Summary)

	// WHEN: The calendar is switched off
	opts.Calendar.Show.ListDue = false
	evts, err = views.CalendarEventsFor(doc, views.CalendarListDue, opts)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestTaskDueCalendar_CarriesStatus(t *testing.T) {
	evts, err := views.CalendarEventsFor(testDoc(), views.CalendarTaskDue, testOptions())
	require.NoError(t, err)

	require.Len(t, evts, 1)
	assert.Equal(t, "⚠ Sort tools", evts[0].Summary)
	assert.Equal(t, "From task: Garage\nStatus: in_progress", evts[0].Description)
}

func TestLifecycleCalendars(t *testing.T) {
	doc := testDoc()
	opts := testOptions()

	created, err := views.CalendarEventsFor(doc, views.CalendarNoteCreated, opts)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Note created: Wifi", created[0].Summary)

	edited, err := views.CalendarEventsFor(doc, views.CalendarNoteEdited, opts)
	require.NoError(t, err)
	require.Len(t, edited, 1)
	assert.Equal(t, "note_edited_n1", edited[0].UID)

	// Same-day edits do not count.
	listEdited, err := views.CalendarEventsFor(doc, views.CalendarListEdited, opts)
	require.NoError(t, err)
	assert.Empty(t, listEdited)
}

func TestImportedCalendar_EndFallbacks(t *testing.T) {
	evts, err := views.CalendarEventsFor(testDoc(), "ical_s1", testOptions())
	require.NoError(t, err)
	require.Len(t, evts, 2)

	// End before start becomes one hour
	assert.Equal(t, time.Hour, evts[0].End.Sub(evts[0].Start))

	// Multi-day all-day event ends the day after its last day
	assert.True(t, evts[1].AllDay)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), evts[1].End)
}

func TestRemindersCalendar(t *testing.T) {
	opts := testOptions()
	opts.Reminders = []generic.Reminder{
		{ID: "r1", NoteID: "n1", ScheduledTime: "2025-10-16T07:00:00Z"},
		{ID: "r2", NoteID: "n1", Title: "Pay rent", ScheduledTime: "2025-10-20"},
	}

	evts, err := views.CalendarEventsFor(testDoc(), views.CalendarNoteReminders, opts)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "Wifi", evts[0].Summary)
	assert.Equal(t, 30*time.Minute, evts[0].End.Sub(evts[0].Start))
	assert.Equal(t, "Pay rent", evts[1].Summary)
	assert.True(t, evts[1].AllDay)
}

func TestEventsInRangeAndNext(t *testing.T) {
	evts, err := views.CalendarEventsFor(testDoc(), "ical_s1", testOptions())
	require.NoError(t, err)

	// Inclusive by date on both ends
	in := views.EventsInRange(evts, time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC))
	require.Len(t, in, 1)
	assert.Equal(t, "Break", in[0].Summary)

	next := views.NextEvent(evts, time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, next)
	assert.Equal(t, "Break", next.Summary)

	// Nothing upcoming falls back to the earliest
	next = views.NextEvent(evts, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, next)
	assert.Equal(t, "Fair", next.Summary)

	assert.Nil(t, views.NextEvent(nil, testNow))
}

// =============================================================================
// CALENDAR EVENTS AGGREGATE
// =============================================================================

func TestCalendarEvents_WindowAndTypes(t *testing.T) {
	doc := testDoc()
	doc.ImportedEvents = append(doc.ImportedEvents,
		generic.ImportedEvent{ID: "s1_c_0", SourceURL: "https://cal.example/school.ics", Title: "Old", Date: "2025-09-01"})

	agg := views.CalendarEvents(doc, testOptions())

	assert.Equal(t, "2025-10-15", agg.Today)

	// THEN: September is outside the window but still counted
	_, hasSept := agg.Events["2025-09-01"]
	assert.False(t, hasSept)
	assert.Contains(t, agg.DatesWithEvents, "2025-10-01")
	assert.IsIncreasing(t, agg.DatesWithEvents)

	// note_created(10-01) note_edited(10-03) list_created(10-02)
	// list_overdue(10-12) list_due(10-20) task_created(10-05)
	// task_edited(10-06) task_overdue(10-01) imported x3
	assert.Equal(t, 11, agg.TotalEvents)

	oct12 := agg.Events["2025-10-12"]
	require.Len(t, oct12, 1)
	assert.Equal(t, "list_overdue", oct12[0].Type)
	assert.Equal(t, "#EF4444", oct12[0].Color)
	assert.Equal(t, "Groceries", oct12[0].ParentTitle)

	oct06 := agg.Events["2025-10-06"]
	require.Len(t, oct06, 1)
	assert.Equal(t, "Garage (edited)", oct06[0].Title)
	assert.Equal(t, "#7C3AED", oct06[0].Color)
}

func TestCalendarEvents_ConfiguredColorAndReminderTimes(t *testing.T) {
	opts := testOptions()
	opts.Calendar.Colors = map[string]string{views.ColorListDue: "#123456"}
	opts.Reminders = []generic.Reminder{
		{ID: "r1", NoteID: "n1", ScheduledTime: "2025-10-16T07:45:00"},
		{ID: "r2", NoteID: "n1", ScheduledTime: "2025-10-17"},
	}

	agg := views.CalendarEvents(testDoc(), opts)

	require.Len(t, agg.Events["2025-10-20"], 1)
	assert.Equal(t, "#123456", agg.Events["2025-10-20"][0].Color)

	// Only timed reminders appear
	require.Len(t, agg.Events["2025-10-16"], 1)
	assert.Equal(t, "07:45", agg.Events["2025-10-16"][0].Time)
	assert.Empty(t, agg.Events["2025-10-17"])

	// Colors missing from the configured map fall back to the defaults
	assert.Equal(t, "#9CCAEB", agg.Events["2025-10-01"][0].Color)
}
