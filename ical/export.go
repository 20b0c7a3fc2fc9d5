package ical

import (
	"strings"
	"time"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// EXPORT - Document -> VEVENTs
// =============================================================================

// ExportEvents builds the synthetic events for a document: created and
// edited days of notes, lists and tasks (all-day), every item due date
// (timed when a due time is set), and the supplied reminders.
func ExportEvents(doc *generic.Document, loc *time.Location, reminders []generic.Reminder) []VEvent {
	if loc == nil {
		loc = time.Local
	}
	var out []VEvent

	for _, n := range doc.Notes {
		title := orDefault(n.Title, "Untitled Note")
		out = appendLifecycle(out, loc, "note", n.ID, "Note", title, n.CreatedAt, n.UpdatedAt)
	}
	for _, c := range doc.Checklists {
		title := orDefault(c.Title, "Untitled List")
		out = appendLifecycle(out, loc, "list", c.ID, "List", title, c.CreatedAt, c.UpdatedAt)
		for _, due := range generic.DueItems(c.Items, "") {
			if ev, ok := dueEvent(loc, "list_"+c.ID+"_"+due.IndexPath, due, "From list: "+title, "List"); ok {
				out = append(out, ev)
			}
		}
	}
	for _, t := range doc.Tasks {
		title := orDefault(t.Title, "Untitled Task")
		out = appendLifecycle(out, loc, "task", t.ID, "Task", title, t.CreatedAt, t.UpdatedAt)
		for _, due := range generic.DueItems(t.Items, "") {
			status := orDefault(due.Status, generic.StatusTodo)
			desc := "From task: " + title + "\nStatus: " + status
			if ev, ok := dueEvent(loc, "task_"+t.ID+"_"+due.IndexPath, due, desc, "Task"); ok {
				out = append(out, ev)
			}
		}
	}
	for _, r := range reminders {
		if ev, ok := ReminderEvent(doc, r, loc); ok {
			out = append(out, ev)
		}
	}
	return out
}

// appendLifecycle adds the "created" event and, when the edit happened on
// a later day, the "edited" event.
func appendLifecycle(out []VEvent, loc *time.Location, kind, id, label, title, created, updated string) []VEvent {
	cday := generic.TimestampDate(created)
	if cday == "" {
		return out
	}
	if start, err := generic.ParseDate(cday, loc); err == nil {
		out = append(out, VEvent{
			UID:        kind + "_created_" + id,
			Summary:    label + " created: " + title,
			Start:      start,
			End:        start.AddDate(0, 0, 1),
			AllDay:     true,
			Categories: []string{"JotTick", label},
		})
	}
	uday := generic.TimestampDate(updated)
	if uday == "" || uday == cday {
		return out
	}
	if start, err := generic.ParseDate(uday, loc); err == nil {
		out = append(out, VEvent{
			UID:        kind + "_edited_" + id,
			Summary:    label + " edited: " + title,
			Start:      start,
			End:        start.AddDate(0, 0, 1),
			AllDay:     true,
			Categories: []string{"JotTick", label},
		})
	}
	return out
}

func dueEvent(loc *time.Location, uid string, due generic.DueItem, desc, label string) (VEvent, bool) {
	day, err := generic.ParseDate(due.DueDate, loc)
	if err != nil {
		return VEvent{}, false
	}
	ev := VEvent{
		UID:         uid,
		Summary:     due.Text,
		Description: desc,
		Categories:  []string{"JotTick", label},
		Start:       day,
		End:         day.AddDate(0, 0, 1),
		AllDay:      true,
	}
	if due.DueTime != "" {
		// A bad due time degrades to an all-day event.
		if start, err := generic.ParseDateTime(due.DueDate, due.DueTime, loc); err == nil {
			ev.Start, ev.End, ev.AllDay = start, start.Add(time.Hour), false
		}
	}
	return ev, true
}

// ReminderEvent turns a reminder into an event: 30 minutes for an instant,
// all-day for a bare date. Title and message fall back to the note's.
func ReminderEvent(doc *generic.Document, r generic.Reminder, loc *time.Location) (VEvent, bool) {
	if loc == nil {
		loc = time.Local
	}
	if r.ScheduledTime == "" {
		return VEvent{}, false
	}

	var note generic.Note
	if _, n := doc.FindNote(r.NoteID); n != nil {
		note = *n
	}
	ev := VEvent{
		UID:         "note_sched_" + r.ID,
		Summary:     orDefault(r.Title, orDefault(note.Title, "Scheduled Note")),
		Description: orDefault(r.Message, note.Content),
		Categories:  []string{"JotTick", "Reminder"},
	}

	if strings.Contains(r.ScheduledTime, "T") {
		t, err := time.Parse(time.RFC3339, r.ScheduledTime)
		if err != nil {
			t, err = time.ParseInLocation("2006-01-02T15:04:05", r.ScheduledTime, loc)
		}
		if err != nil {
			return VEvent{}, false
		}
		ev.Start = t.In(loc)
		ev.End = ev.Start.Add(30 * time.Minute)
		return ev, true
	}

	day := r.ScheduledTime
	if len(day) > len(generic.DateLayout) {
		day = day[:len(generic.DateLayout)]
	}
	start, err := generic.ParseDate(day, loc)
	if err != nil {
		return VEvent{}, false
	}
	ev.Start, ev.End, ev.AllDay = start, start.AddDate(0, 0, 1), true
	return ev, true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
