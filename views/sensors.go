package views

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/jottick/generic"
)

// =============================================================================
// RATES
// =============================================================================

// CompletionRate is completed/total as a percentage rounded half away from
// zero to one decimal place. An empty set is 0.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(completed)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 4).
		Round(1)
	f, _ := rate.Float64()
	return f
}

// =============================================================================
// HOUSEHOLD SUMMARY
// =============================================================================

// OverdueItem is a due item that has passed, with its container.
type OverdueItem struct {
	generic.DueItem
	ParentType  string `json:"parent_type"`
	ParentID    string `json:"parent_id"`
	ParentTitle string `json:"parent_title"`
}

// Summary holds the household-wide counters. Item counts cover checklists
// only; overdue covers both checklists and tasks.
type Summary struct {
	TotalNotes      int                  `json:"total_notes"`
	TotalChecklists int                  `json:"total_checklists"`
	TotalItems      int                  `json:"total_items"`
	CompletedItems  int                  `json:"completed_items"`
	PendingItems    int                  `json:"pending_items"`
	CompletionRate  float64              `json:"completion_rate"`
	TotalTasks      int                  `json:"total_tasks"`
	OverdueItems    int                  `json:"overdue_items"`
	Overdue         []OverdueItem        `json:"overdue"`
	ImportedEvents  int                  `json:"imported_events"`
	Sources         []generic.ICalSource `json:"sources"`
}

// Summarize computes the household counters.
func Summarize(doc *generic.Document, opts Options) Summary {
	today := opts.today()
	s := Summary{
		TotalNotes:      len(doc.Notes),
		TotalChecklists: len(doc.Checklists),
		TotalTasks:      len(doc.Tasks),
		ImportedEvents:  len(doc.ImportedEvents),
		Sources:         doc.ICalSources,
		Overdue:         []OverdueItem{},
	}
	for _, c := range doc.Checklists {
		s.TotalItems += generic.CountItems(c.Items)
		s.CompletedItems += generic.CountDone(c.Items)
		s.Overdue = appendOverdue(s.Overdue, c.Items, today, "list", c.ID, c.Title)
	}
	for _, t := range doc.Tasks {
		s.Overdue = appendOverdue(s.Overdue, t.Items, today, "task", t.ID, t.Title)
	}
	s.PendingItems = s.TotalItems - s.CompletedItems
	s.CompletionRate = CompletionRate(s.CompletedItems, s.TotalItems)
	s.OverdueItems = len(s.Overdue)
	return s
}

func appendOverdue(out []OverdueItem, items []generic.Item, today, kind, id, title string) []OverdueItem {
	for _, d := range generic.DueItems(items, today) {
		if d.IsOverdue {
			out = append(out, OverdueItem{DueItem: d, ParentType: kind, ParentID: id, ParentTitle: title})
		}
	}
	return out
}

// =============================================================================
// ENTITY SENSORS
// =============================================================================

type NoteSensor struct {
	State      string   `json:"state"`
	NoteID     string   `json:"note_id"`
	Content    string   `json:"content"`
	Images     []string `json:"images"`
	ImageCount int      `json:"image_count"`
	HasImages  bool     `json:"has_images"`
	Updated    string   `json:"updated"`
	Created    string   `json:"created"`
}

// NoteView projects one note. Its state is the title.
func NoteView(n generic.Note) NoteSensor {
	images := n.Images
	if images == nil {
		images = []string{}
	}
	return NoteSensor{
		State:      n.Title,
		NoteID:     n.ID,
		Content:    n.Content,
		Images:     images,
		ImageCount: len(images),
		HasImages:  len(images) > 0,
		Updated:    n.UpdatedAt,
		Created:    n.CreatedAt,
	}
}

type ChecklistSensor struct {
	State          string                `json:"state"`
	ChecklistID    string                `json:"checklist_id"`
	Title          string                `json:"title"`
	Type           generic.ChecklistType `json:"type"`
	Items          []generic.Item        `json:"items"`
	FlatItems      []generic.FlatItem    `json:"flat_items"`
	Completed      int                   `json:"completed"`
	Total          int                   `json:"total"`
	CompletionRate float64               `json:"completion_rate"`
	DueItems       []generic.DueItem     `json:"due_items"`
	OverdueCount   int                   `json:"overdue_count"`
	Updated        string                `json:"updated"`
	Created        string                `json:"created"`
}

// ChecklistView projects one checklist. Its state is "completed/total".
func ChecklistView(c generic.Checklist, opts Options) ChecklistSensor {
	today := opts.today()
	completed := generic.CountDone(c.Items)
	total := generic.CountItems(c.Items)
	return ChecklistSensor{
		State:          ratio(completed, total),
		ChecklistID:    c.ID,
		Title:          c.Title,
		Type:           c.Type,
		Items:          c.Items,
		FlatItems:      generic.Flatten(c.Items),
		Completed:      completed,
		Total:          total,
		CompletionRate: CompletionRate(completed, total),
		DueItems:       generic.DueItems(c.Items, today),
		OverdueCount:   generic.CountOverdue(c.Items, today),
		Updated:        c.UpdatedAt,
		Created:        c.CreatedAt,
	}
}

// StatusView is a task status as dashboards expect it.
type StatusView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

type TaskSensor struct {
	State          string             `json:"state"`
	TaskID         string             `json:"task_id"`
	Title          string             `json:"title"`
	Items          []generic.Item     `json:"items"`
	FlatItems      []generic.FlatItem `json:"flat_items"`
	Statuses       []StatusView       `json:"statuses"`
	StatusCounts   map[string]int     `json:"status_counts"`
	Todo           int                `json:"todo"`
	InProgress     int                `json:"in_progress"`
	Completed      int                `json:"completed"`
	Total          int                `json:"total"`
	CompletionRate float64            `json:"completion_rate"`
	DueItems       []generic.DueItem  `json:"due_items"`
	OverdueCount   int                `json:"overdue_count"`
	Updated        string             `json:"updated"`
	Created        string             `json:"created"`
}

// TaskView projects one task. A task without statuses reports the defaults.
func TaskView(t generic.Task, opts Options) TaskSensor {
	today := opts.today()
	statuses := t.Statuses
	if len(statuses) == 0 {
		statuses = generic.DefaultStatuses()
	}

	views := make([]StatusView, len(statuses))
	counts := make(map[string]int, len(statuses))
	for i, s := range statuses {
		name := s.Label
		if name == "" {
			name = s.ID
		}
		views[i] = StatusView{ID: s.ID, Name: name, Color: s.Color, Order: s.Order}
		counts[s.ID] = generic.CountByStatus(t.Items, s.ID)
	}

	completed := generic.CountByStatus(t.Items, generic.StatusCompleted)
	total := generic.CountItems(t.Items)
	return TaskSensor{
		State:          ratio(completed, total),
		TaskID:         t.ID,
		Title:          t.Title,
		Items:          t.Items,
		FlatItems:      generic.Flatten(t.Items),
		Statuses:       views,
		StatusCounts:   counts,
		Todo:           generic.CountByStatus(t.Items, generic.StatusTodo),
		InProgress:     generic.CountByStatus(t.Items, generic.StatusInProgress),
		Completed:      completed,
		Total:          total,
		CompletionRate: CompletionRate(completed, total),
		DueItems:       generic.DueItems(t.Items, today),
		OverdueCount:   generic.CountOverdue(t.Items, today),
		Updated:        t.UpdatedAt,
		Created:        t.CreatedAt,
	}
}

func ratio(completed, total int) string {
	return strconv.Itoa(completed) + "/" + strconv.Itoa(total)
}
