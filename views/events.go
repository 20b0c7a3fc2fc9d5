package views

import (
	"sort"
	"strings"
	"time"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// CALENDAR EVENTS AGGREGATE - date -> events for month-grid dashboards
// =============================================================================

// DayEvent is one entry of the aggregate.
type DayEvent struct {
	Type        string `json:"type"`
	Color       string `json:"color"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	ParentTitle string `json:"parent_title,omitempty"`
	ItemID      string `json:"item_id,omitempty"`
	ItemType    string `json:"item_type,omitempty"`
	IsCompleted bool   `json:"is_completed,omitempty"`
}

// EventsAggregate is the windowed date map. TotalEvents counts every event
// regardless of the window.
type EventsAggregate struct {
	Events          map[string][]DayEvent `json:"events"`
	DatesWithEvents []string              `json:"dates_with_events"`
	Today           string                `json:"today"`
	LastUpdated     string                `json:"last_updated"`
	TotalEvents     int                   `json:"total_events"`
}

// Fixed colors for task lifecycle entries.
const (
	taskCreatedColor = "#8B5CF6"
	taskEditedColor  = "#7C3AED"
)

// CalendarEvents builds the aggregate for the window running from the first
// of the current month to the last day of the next month.
func CalendarEvents(doc *generic.Document, opts Options) EventsAggregate {
	now := opts.now()
	all := collectDayEvents(doc, opts)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 2, -1)
	from, to := generic.DateString(first), generic.DateString(last)

	agg := EventsAggregate{
		Events:          map[string][]DayEvent{},
		DatesWithEvents: []string{},
		Today:           generic.DateString(now),
		LastUpdated:     now.Format(time.RFC3339),
	}
	for date, evts := range all {
		agg.TotalEvents += len(evts)
		if date >= from && date <= to {
			agg.Events[date] = evts
			agg.DatesWithEvents = append(agg.DatesWithEvents, date)
		}
	}
	sort.Strings(agg.DatesWithEvents)
	return agg
}

func collectDayEvents(doc *generic.Document, opts Options) map[string][]DayEvent {
	events := map[string][]DayEvent{}
	add := func(e DayEvent) {
		if e.Date == "" {
			return
		}
		events[e.Date] = append(events[e.Date], e)
	}
	show := opts.Calendar.Show
	today := opts.today()

	for _, n := range doc.Notes {
		title := orDefault(n.Title, "Untitled Note")
		cday, uday := generic.TimestampDate(n.CreatedAt), generic.TimestampDate(n.UpdatedAt)
		if show.NoteCreated {
			add(DayEvent{Type: "note_created", Color: opts.color(ColorNoteCreated), Title: title, Date: cday, ItemID: n.ID, ItemType: "note"})
		}
		if show.NoteEdited && cday != "" && uday != cday {
			add(DayEvent{Type: "note_edited", Color: opts.color(ColorNoteEdited), Title: title, Date: uday, ItemID: n.ID, ItemType: "note"})
		}
	}

	if show.NoteReminders {
		for _, r := range opts.Reminders {
			if !strings.Contains(r.ScheduledTime, "T") || len(r.ScheduledTime) < len(generic.DateLayout) {
				continue
			}
			title := "Scheduled Note"
			if _, n := doc.FindNote(r.NoteID); n != nil && n.Title != "" {
				title = n.Title
			}
			clock := ""
			if len(r.ScheduledTime) >= 16 {
				clock = r.ScheduledTime[11:16]
			}
			add(DayEvent{
				Type:     "note_reminder",
				Color:    opts.color(ColorNoteReminder),
				Title:    title,
				Date:     r.ScheduledTime[:len(generic.DateLayout)],
				Time:     clock,
				ItemID:   r.NoteID,
				ItemType: "note",
			})
		}
	}

	for _, c := range doc.Checklists {
		title := orDefault(c.Title, "Untitled List")
		cday, uday := generic.TimestampDate(c.CreatedAt), generic.TimestampDate(c.UpdatedAt)
		if show.ListCreated {
			add(DayEvent{Type: "list_created", Color: opts.color(ColorListCreated), Title: title, Date: cday, ItemID: c.ID, ItemType: "list"})
		}
		if show.ListEdited && cday != "" && uday != cday {
			add(DayEvent{Type: "list_edited", Color: opts.color(ColorListEdited), Title: title + " (edited)", Date: uday, ItemID: c.ID, ItemType: "list"})
		}
		if show.ListDue {
			for _, d := range generic.DueItems(c.Items, today) {
				if e, ok := dueDayEvent(opts, "list", ColorListDue, d, c.ID, title); ok {
					add(e)
				}
			}
		}
	}

	// Task lifecycle entries follow the list toggles.
	for _, t := range doc.Tasks {
		title := orDefault(t.Title, "Untitled Task")
		cday, uday := generic.TimestampDate(t.CreatedAt), generic.TimestampDate(t.UpdatedAt)
		if show.ListCreated {
			add(DayEvent{Type: "task_created", Color: taskCreatedColor, Title: title, Date: cday, ItemID: t.ID, ItemType: "task"})
		}
		if show.ListEdited && cday != "" && uday != cday {
			add(DayEvent{Type: "task_edited", Color: taskEditedColor, Title: title + " (edited)", Date: uday, ItemID: t.ID, ItemType: "task"})
		}
		if show.TaskDue {
			for _, d := range generic.DueItems(t.Items, today) {
				if e, ok := dueDayEvent(opts, "task", ColorTaskDue, d, t.ID, title); ok {
					add(e)
				}
			}
		}
	}

	if show.Imported {
		for _, ie := range doc.ImportedEvents {
			add(DayEvent{
				Type:     "imported",
				Color:    opts.color(ColorImported),
				Title:    orDefault(ie.Title, "Imported Event"),
				Date:     ie.Date,
				Time:     ie.Time,
				Location: ie.Location,
				ItemID:   ie.ID,
				ItemType: "imported",
			})
		}
	}
	return events
}

func dueDayEvent(opts Options, kind, dueColor string, d generic.DueItem, parentID, parentTitle string) (DayEvent, bool) {
	show := opts.Calendar.Show
	if d.IsCompleted && !show.Completed {
		return DayEvent{}, false
	}
	if d.IsOverdue && !show.Overdue {
		return DayEvent{}, false
	}
	e := DayEvent{
		Title:       d.Text,
		Date:        d.DueDate,
		Time:        d.DueTime,
		ParentTitle: parentTitle,
		ItemID:      parentID,
		ItemType:    kind,
		IsCompleted: d.IsCompleted,
	}
	switch {
	case d.IsCompleted:
		e.Type, e.Color = kind+"_completed", opts.color(ColorCompleted)
	case d.IsOverdue:
		e.Type, e.Color = kind+"_overdue", opts.color(ColorOverdue)
	default:
		e.Type, e.Color = kind+"_due", opts.color(dueColor)
	}
	return e, true
}
