package views

import (
	"sort"
	"time"

	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/ical"
)

// =============================================================================
// CALENDARS
// =============================================================================

// Built-in calendar ids. Imported sources use ICalCalendarPrefix + source id.
const (
	CalendarNoteCreated   = "note_created"
	CalendarNoteEdited    = "note_edited"
	CalendarNoteReminders = "note_reminders"
	CalendarListCreated   = "list_created"
	CalendarListEdited    = "list_edited"
	CalendarListDue       = "list_due"
	CalendarTaskDue       = "task_due"

	ICalCalendarPrefix = "ical_"
)

var builtinCalendars = []struct {
	id   string
	name string
}{
	{CalendarNoteCreated, "JotTick Note Created"},
	{CalendarNoteEdited, "JotTick Note Edited"},
	{CalendarNoteReminders, "JotTick Note Reminders"},
	{CalendarListCreated, "JotTick List Created"},
	{CalendarListEdited, "JotTick List Edited"},
	{CalendarListDue, "JotTick List Due Dates"},
	{CalendarTaskDue, "JotTick Task Due Dates"},
}

// Event is one calendar entry. All-day events have an exclusive End.
type Event struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
}

func fromVEvent(v ical.VEvent) Event {
	return Event{
		UID:         v.UID,
		Summary:     v.Summary,
		Description: v.Description,
		Location:    v.Location,
		Start:       v.Start,
		End:         v.End,
		AllDay:      v.AllDay,
	}
}

// CalendarInfo describes an available calendar.
type CalendarInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Calendars lists every calendar the document currently supports. A
// per-source calendar exists only while its source does.
func Calendars(doc *generic.Document, opts Options) []CalendarInfo {
	out := make([]CalendarInfo, 0, len(builtinCalendars)+len(doc.ICalSources))
	for _, c := range builtinCalendars {
		out = append(out, CalendarInfo{ID: c.id, Name: c.name, Enabled: opts.enabled(c.id)})
	}
	for _, s := range doc.ICalSources {
		out = append(out, CalendarInfo{
			ID:      ICalCalendarPrefix + s.ID,
			Name:    "JotTick iCal " + orDefault(s.Name, "Imported"),
			Enabled: opts.Calendar.Show.Imported,
		})
	}
	return out
}

func (o Options) enabled(id string) bool {
	s := o.Calendar.Show
	switch id {
	case CalendarNoteCreated:
		return s.NoteCreated
	case CalendarNoteEdited:
		return s.NoteEdited
	case CalendarNoteReminders:
		return s.NoteReminders
	case CalendarListCreated:
		return s.ListCreated
	case CalendarListEdited:
		return s.ListEdited
	case CalendarListDue:
		return s.ListDue
	case CalendarTaskDue:
		return s.TaskDue
	}
	return s.Imported
}

// CalendarEventsFor returns the events of one calendar sorted by start.
// A switched-off calendar is empty; an unknown id is ErrCalendarNotFound.
func CalendarEventsFor(doc *generic.Document, id string, opts Options) ([]Event, error) {
	var events []Event
	switch id {
	case CalendarNoteCreated, CalendarNoteEdited:
		for _, n := range doc.Notes {
			events = appendLifecycleEvent(events, opts, id == CalendarNoteEdited,
				"note", n.ID, "Note", orDefault(n.Title, "Untitled Note"), n.CreatedAt, n.UpdatedAt)
		}
	case CalendarListCreated, CalendarListEdited:
		for _, c := range doc.Checklists {
			events = appendLifecycleEvent(events, opts, id == CalendarListEdited,
				"list", c.ID, "List", orDefault(c.Title, "Untitled List"), c.CreatedAt, c.UpdatedAt)
		}
	case CalendarNoteReminders:
		for _, r := range opts.Reminders {
			if v, ok := ical.ReminderEvent(doc, r, opts.loc()); ok {
				events = append(events, fromVEvent(v))
			}
		}
	case CalendarListDue:
		events = listDueEvents(doc, opts)
	case CalendarTaskDue:
		events = taskDueEvents(doc, opts)
	default:
		src := findSourceByCalendar(doc, id)
		if src == nil {
			return nil, generic.ErrCalendarNotFound
		}
		events = importedEvents(doc, src, opts)
	}

	if !opts.enabled(id) {
		return []Event{}, nil
	}
	sortEvents(events)
	return events, nil
}

func findSourceByCalendar(doc *generic.Document, id string) *generic.ICalSource {
	if len(id) <= len(ICalCalendarPrefix) || id[:len(ICalCalendarPrefix)] != ICalCalendarPrefix {
		return nil
	}
	sid := id[len(ICalCalendarPrefix):]
	for i := range doc.ICalSources {
		if doc.ICalSources[i].ID == sid {
			return &doc.ICalSources[i]
		}
	}
	return nil
}

// EventsInRange keeps events whose dates overlap [from, to], compared by
// calendar day on both ends.
func EventsInRange(events []Event, from, to time.Time) []Event {
	fromDay, toDay := generic.DateString(from), generic.DateString(to)
	out := []Event{}
	for _, e := range events {
		if generic.DateString(e.End) >= fromDay && generic.DateString(e.Start) <= toDay {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

// NextEvent returns the first event starting today or later, falling back
// to the earliest event. Nil when there are none.
func NextEvent(events []Event, now time.Time) *Event {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]Event(nil), events...)
	sortEvents(sorted)
	today := generic.DateString(now)
	for i := range sorted {
		if generic.DateString(sorted[i].Start) >= today {
			return &sorted[i]
		}
	}
	return &sorted[0]
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// =============================================================================
// EVENT BUILDERS
// =============================================================================

func appendLifecycleEvent(out []Event, opts Options, edited bool, kind, id, label, title, created, updated string) []Event {
	cday := generic.TimestampDate(created)
	day, verb, suffix := cday, " created: ", "_created_"
	if edited {
		uday := generic.TimestampDate(updated)
		if cday == "" || uday == "" || uday == cday {
			return out
		}
		day, verb, suffix = uday, " edited: ", "_edited_"
	}
	start, err := generic.ParseDate(day, opts.loc())
	if err != nil {
		return out
	}
	return append(out, Event{
		UID:     kind + suffix + id,
		Summary: label + verb + title,
		Start:   start,
		End:     start.AddDate(0, 0, 1),
		AllDay:  true,
	})
}

func listDueEvents(doc *generic.Document, opts Options) []Event {
	var out []Event
	today := opts.today()
	for _, c := range doc.Checklists {
		title := orDefault(c.Title, "Untitled List")
		for _, d := range generic.DueItems(c.Items, today) {
			if e, ok := dueCalendarEvent(opts, "list_"+c.ID+"_"+d.IndexPath, d, "From list: "+title); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func taskDueEvents(doc *generic.Document, opts Options) []Event {
	var out []Event
	today := opts.today()
	for _, t := range doc.Tasks {
		title := orDefault(t.Title, "Untitled Task")
		for _, d := range generic.DueItems(t.Items, today) {
			status := orDefault(d.Status, generic.StatusTodo)
			desc := "From task: " + title + "\nStatus: " + status
			if e, ok := dueCalendarEvent(opts, "task_"+t.ID+"_"+d.IndexPath, d, desc); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// dueCalendarEvent applies the completed/overdue toggles and the status
// prefixes. A bad due time degrades to an all-day event.
func dueCalendarEvent(opts Options, uid string, d generic.DueItem, desc string) (Event, bool) {
	show := opts.Calendar.Show
	if d.IsCompleted && !show.Completed {
		return Event{}, false
	}
	if d.IsOverdue && !show.Overdue {
		return Event{}, false
	}
	day, err := generic.ParseDate(d.DueDate, opts.loc())
	if err != nil {
		return Event{}, false
	}

	summary := d.Text
	switch {
	case d.IsCompleted:
		summary = "✓ " + summary
	case d.IsOverdue:
		summary = "⚠ " + summary
	}

	e := Event{UID: uid, Summary: summary, Description: desc, Start: day, End: day.AddDate(0, 0, 1), AllDay: true}
	if d.DueTime != "" {
		if start, err := generic.ParseDateTime(d.DueDate, d.DueTime, opts.loc()); err == nil {
			e.Start, e.End, e.AllDay = start, start.Add(time.Hour), false
		}
	}
	return e, true
}

// importedEvents renders the stored occurrences of one source. A timed
// event without a usable end lasts one hour.
func importedEvents(doc *generic.Document, src *generic.ICalSource, opts Options) []Event {
	loc := opts.loc()
	var out []Event
	for _, ie := range doc.ImportedEvents {
		if ie.SourceURL != src.URL {
			continue
		}
		day, err := generic.ParseDate(ie.Date, loc)
		if err != nil {
			continue
		}
		uid := orDefault(ie.ID, ie.OriginalUID)
		e := Event{
			UID:         uid,
			Summary:     orDefault(ie.Title, "Imported Event"),
			Description: ie.Description,
			Location:    ie.Location,
			Start:       day,
			End:         day.AddDate(0, 0, 1),
			AllDay:      true,
		}
		if ie.Time == "" || ie.AllDay {
			if last, err := generic.ParseDate(ie.EndDate, loc); err == nil && last.After(day) {
				e.End = last.AddDate(0, 0, 1)
			}
			out = append(out, e)
			continue
		}
		start, err := generic.ParseDateTime(ie.Date, ie.Time, loc)
		if err != nil {
			out = append(out, e)
			continue
		}
		end := start.Add(time.Hour)
		if ie.EndTime != "" {
			if t, err := generic.ParseDateTime(orDefault(ie.EndDate, ie.Date), ie.EndTime, loc); err == nil && t.After(start) {
				end = t
			}
		}
		e.Start, e.End, e.AllDay = start, end, false
		out = append(out, e)
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
