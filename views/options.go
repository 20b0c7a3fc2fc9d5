/*
Package views computes the read-only projections of the household document:
dashboard sensors, per-entity sensors, and calendars.

PURPOSE:
  Nothing in this package is stored. Every view is derived from a document
  snapshot on each read, so views can never drift from the data.

KEY CONCEPTS:
  Summary:        Household-wide counters (items, completion, overdue)
  *Sensor:        One note / checklist / task with its derived attributes
  Calendar:       A named stream of events (due dates, created/edited days,
                  reminders, one per imported iCal source)
  CalendarEvents: Date-keyed aggregate for month-grid dashboards

OPTIONS:
  Calendars can be switched off individually and every event type has a
  color. Defaults: everything shown except completed items.

SEE ALSO:
  - generic/tree.go: Counting and flattening helpers
  - config/config.go: Where Options come from
*/
package views

import (
	"time"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Toggles switch calendars (and classes of events) on and off.
type Toggles struct {
	NoteCreated   bool `json:"note_created"`
	NoteEdited    bool `json:"note_edited"`
	NoteReminders bool `json:"note_reminders"`
	ListCreated   bool `json:"list_created"`
	ListEdited    bool `json:"list_edited"`
	ListDue       bool `json:"list_due"`
	TaskDue       bool `json:"task_due"`
	Imported      bool `json:"imported"`
	Overdue       bool `json:"overdue"`
	Completed     bool `json:"completed"`
}

// DefaultToggles shows everything except completed items.
func DefaultToggles() Toggles {
	return Toggles{
		NoteCreated:   true,
		NoteEdited:    true,
		NoteReminders: true,
		ListCreated:   true,
		ListEdited:    true,
		ListDue:       true,
		TaskDue:       true,
		Imported:      true,
		Overdue:       true,
		Completed:     false,
	}
}

// Color keys.
const (
	ColorNoteCreated  = "note_created"
	ColorNoteEdited   = "note_edited"
	ColorNoteReminder = "note_reminder"
	ColorListCreated  = "list_created"
	ColorListEdited   = "list_edited"
	ColorListDue      = "list_due"
	ColorTaskCreated  = "task_created"
	ColorTaskEdited   = "task_edited"
	ColorTaskDue      = "task_due"
	ColorOverdue      = "overdue"
	ColorCompleted    = "completed"
	ColorImported     = "imported"

	fallbackColor = "#666666"
)

// DefaultColors returns the stock palette.
func DefaultColors() map[string]string {
	return map[string]string{
		ColorNoteCreated:  "#9CCAEB",
		ColorNoteEdited:   "#6BA5D4",
		ColorNoteReminder: "#F7A700",
		ColorListCreated:  "#99C66D",
		ColorListEdited:   "#7AAD52",
		ColorListDue:      "#10B981",
		ColorTaskCreated:  "#8B5CF6",
		ColorTaskEdited:   "#7C3AED",
		ColorTaskDue:      "#F9E900",
		ColorOverdue:      "#EF4444",
		ColorCompleted:    "#6B7280",
		ColorImported:     "#8B5CF6",
	}
}

// CalendarConfig is the persisted/configured shape of calendar options.
type CalendarConfig struct {
	Show   Toggles           `json:"show"`
	Colors map[string]string `json:"colors,omitempty"`
}

// DefaultCalendarConfig returns the stock toggles and palette.
func DefaultCalendarConfig() CalendarConfig {
	return CalendarConfig{Show: DefaultToggles(), Colors: DefaultColors()}
}

// Options bundle everything a view needs besides the document.
type Options struct {
	Calendar  CalendarConfig
	Location  *time.Location
	Now       generic.Clock
	Reminders []generic.Reminder
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().In(o.loc())
	}
	return o.Now().In(o.loc())
}

func (o Options) today() string {
	return generic.DateString(o.now())
}

// color resolves a configured color, then the default, then a neutral grey.
func (o Options) color(key string) string {
	if c := o.Calendar.Colors[key]; c != "" {
		return c
	}
	if c := DefaultColors()[key]; c != "" {
		return c
	}
	return fallbackColor
}
