/*
Package generic provides the core document model for the household engine.

PURPOSE:
  This package contains the types every other package shares: the single
  Document that is the unit of persistence, the notes/checklists/tasks it
  owns, the nested Item tree, and the points/achievement records. Nothing
  here knows how the document is stored, served, or rendered.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: The whole household state. Every mutation rewrites it in full.
  - Item: A checklist/task entry with an ordered list of children (any depth)
  - Note/Checklist/Task: Top-level containers with ISO-8601 timestamps
  - PointsUser/HistoryEntry: The gamified points ledger
  - Achievement/UserAchievement: Threshold badges awarded to users

DESIGN PRINCIPLES:
  1. Wire format first: JSON tags are the persisted format and must not drift
  2. Value trees: Items own their children by value, addressed by IndexPath
  3. Keyed maps for hot lookups: points_users and user_achievements
  4. Clone before you hand out: readers never share memory with the writer

USAGE:
  doc := generic.NewDocument()
  doc.Checklists = append(doc.Checklists, generic.Checklist{
      ID:    "list-1",
      Title: "Groceries",
      Type:  generic.ChecklistSimple,
  })

SEE ALSO:
  - path.go: IndexPath parsing and resolution
  - tree.go: Recursive walks over Item trees
  - ledger.go: Points history cap
*/
package generic

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// DOCUMENT - The unit of persistence
// =============================================================================

// Document is the whole household state.
type Document struct {
	Notes            []Note                       `json:"notes"`
	Checklists       []Checklist                  `json:"checklists"`
	Tasks            []Task                       `json:"tasks"`
	ICalSources      []ICalSource                 `json:"ical_sources"`
	ImportedEvents   []ImportedEvent              `json:"imported_events"`
	PointsUsers      map[string]*PointsUser       `json:"points_users"`
	PointsHistory    []HistoryEntry               `json:"points_history"`
	PointsPrizes     []Prize                      `json:"points_prizes"`
	PointsAdmins     []string                     `json:"points_admins"`
	Achievements     []Achievement                `json:"achievements"`
	UserAchievements map[string][]UserAchievement `json:"user_achievements"`
}

// NewDocument returns an empty, normalized document.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize replaces nil collections with empty ones so the persisted form
// always carries every key and callers can append without nil checks.
func (d *Document) Normalize() {
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	if d.Checklists == nil {
		d.Checklists = []Checklist{}
	}
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.ICalSources == nil {
		d.ICalSources = []ICalSource{}
	}
	if d.ImportedEvents == nil {
		d.ImportedEvents = []ImportedEvent{}
	}
	if d.PointsUsers == nil {
		d.PointsUsers = make(map[string]*PointsUser)
	}
	for id, u := range d.PointsUsers {
		if u == nil {
			delete(d.PointsUsers, id)
			continue
		}
		u.ID = id
	}
	if d.PointsHistory == nil {
		d.PointsHistory = []HistoryEntry{}
	}
	if d.PointsPrizes == nil {
		d.PointsPrizes = []Prize{}
	}
	if d.PointsAdmins == nil {
		d.PointsAdmins = []string{}
	}
	if d.Achievements == nil {
		d.Achievements = []Achievement{}
	}
	if d.UserAchievements == nil {
		d.UserAchievements = make(map[string][]UserAchievement)
	}
	for i := range d.Checklists {
		if d.Checklists[i].Items == nil {
			d.Checklists[i].Items = []Item{}
		}
		if d.Checklists[i].Type == "" {
			d.Checklists[i].Type = ChecklistSimple
		}
	}
	for i := range d.Tasks {
		if d.Tasks[i].Items == nil {
			d.Tasks[i].Items = []Item{}
		}
		if d.Tasks[i].Statuses == nil {
			d.Tasks[i].Statuses = []Status{}
		}
	}
}

// Clone returns a deep copy. The JSON round trip is the same encoding the
// stores use, so a clone is exactly what a reload would produce.
func (d *Document) Clone() *Document {
	b, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("generic: clone document: %v", err))
	}
	out := &Document{}
	if err := json.Unmarshal(b, out); err != nil {
		panic(fmt.Sprintf("generic: clone document: %v", err))
	}
	out.Normalize()
	return out
}

// =============================================================================
// NOTES
// =============================================================================

type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Images    []string `json:"images,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// =============================================================================
// CHECKLISTS AND TASKS
// =============================================================================

type ChecklistType string

const (
	ChecklistSimple   ChecklistType = "simple"
	ChecklistShopping ChecklistType = "shopping"
	ChecklistAdvanced ChecklistType = "advanced"
)

type Checklist struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Type      ChecklistType `json:"type"`
	Items     []Item        `json:"items"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Items     []Item   `json:"items"`
	Statuses  []Status `json:"statuses"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// Status is a column a task item can sit in.
type Status struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"

	DefaultStatusColor = "#6b7280"
)

// DefaultStatuses returns the three statuses every new task starts with.
func DefaultStatuses() []Status {
	return []Status{
		{ID: StatusTodo, Label: "To Do", Color: "#6b7280", Order: 0},
		{ID: StatusInProgress, Label: "In Progress", Color: "#3b82f6", Order: 1},
		{ID: StatusCompleted, Label: "Completed", Color: "#10b981", Order: 2},
	}
}

// HasStatus reports whether the task defines a status with the given id.
func (t *Task) HasStatus(id string) bool {
	for _, s := range t.Statuses {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Item is one entry of a checklist or task. Checklists drive Completed,
// tasks drive Status; both share the same tree shape.
type Item struct {
	Text            string `json:"text"`
	Completed       bool   `json:"completed"`
	Status          string `json:"status,omitempty"`
	Children        []Item `json:"children"`
	Points          int    `json:"points,omitempty"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	DueDate         string `json:"dueDate,omitempty"`
	DueTime         string `json:"dueTime,omitempty"`
	NotifyOverdue   bool   `json:"notifyOverdue,omitempty"`
	PointsClaimed   bool   `json:"points_claimed,omitempty"`
	PointsClaimedBy string `json:"points_claimed_by,omitempty"`
	PointsClaimedAt string `json:"points_claimed_at,omitempty"`
}

// IsDone treats either representation of completion as done.
func (i *Item) IsDone() bool {
	return i.Completed || i.Status == StatusCompleted
}

// Claimable reports whether the item carries points nobody has collected.
func (i *Item) Claimable() bool {
	return i.Points > 0 && !i.PointsClaimed
}

// =============================================================================
// ICAL
// =============================================================================

type ICalSource struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Name          string `json:"name"`
	AddedAt       string `json:"added_at"`
	LastRefreshed string `json:"last_refreshed,omitempty"`
	EventCount    int    `json:"event_count"`
}

// ImportedEvent is one concrete (already expanded) occurrence. Dates and
// times are local wall-clock strings: date "YYYY-MM-DD", time "HH:MM".
type ImportedEvent struct {
	ID          string   `json:"id"`
	SourceURL   string   `json:"source_url"`
	OriginalUID string   `json:"original_uid,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Date        string   `json:"date"`
	Time        string   `json:"time,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	EndTime     string   `json:"end_time,omitempty"`
	AllDay      bool     `json:"all_day"`
	Recurring   bool     `json:"recurring,omitempty"`
}

// Reminder is a scheduled note notification. Reminders are owned by
// whatever schedules them and are never persisted in the Document.
// ScheduledTime is either "YYYY-MM-DD" or an RFC 3339 instant.
type Reminder struct {
	ID            string `json:"id"`
	NoteID        string `json:"note_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Message       string `json:"message,omitempty"`
	ScheduledTime string `json:"scheduled_time"`
}

// =============================================================================
// POINTS LEDGER
// =============================================================================

type PointsUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Points         int    `json:"points"`
	LifetimePoints int    `json:"lifetime_points"`
	LinkedHAUser   string `json:"linked_ha_user,omitempty"`
	LinkedDevice   string `json:"linked_device,omitempty"`
}

type HistoryType string

const (
	HistoryAdjustment HistoryType = "adjustment"
	HistoryClaim      HistoryType = "claim"
	HistoryRedemption HistoryType = "redemption"
	HistoryReset      HistoryType = "reset"
	HistoryPenalty    HistoryType = "penalty"
)

// HistoryEntry is immutable once appended.
type HistoryEntry struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Amount     int         `json:"amount"`
	OldBalance int         `json:"old_balance"`
	NewBalance int         `json:"new_balance"`
	Reason     string      `json:"reason"`
	Type       HistoryType `json:"type"`
	Timestamp  string      `json:"timestamp"`
	Reference  string      `json:"reference,omitempty"`
}

type Prize struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cost        int    `json:"cost"`
	Image       string `json:"image,omitempty"`
	Active      bool   `json:"active"`
}

type Achievement struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Image           string `json:"image,omitempty"`
	PointsThreshold int    `json:"points_threshold"`
}

type UserAchievement struct {
	AchievementID string `json:"achievement_id"`
	AwardedAt     string `json:"awarded_at"`
	AwardedBy     string `json:"awarded_by"`
}

// HasAchievement reports whether the user already holds the achievement.
func (d *Document) HasAchievement(userID, achievementID string) bool {
	for _, ua := range d.UserAchievements[userID] {
		if ua.AchievementID == achievementID {
			return true
		}
	}
	return false
}

// =============================================================================
// LOOKUPS
// =============================================================================
// Linear scans: collections are household-sized.

func (d *Document) FindNote(id string) (int, *Note) {
	for i := range d.Notes {
		if d.Notes[i].ID == id {
			return i, &d.Notes[i]
		}
	}
	return -1, nil
}

func (d *Document) FindChecklist(id string) (int, *Checklist) {
	for i := range d.Checklists {
		if d.Checklists[i].ID == id {
			return i, &d.Checklists[i]
		}
	}
	return -1, nil
}

func (d *Document) FindTask(id string) (int, *Task) {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return i, &d.Tasks[i]
		}
	}
	return -1, nil
}

func (d *Document) FindPrize(id string) (int, *Prize) {
	for i := range d.PointsPrizes {
		if d.PointsPrizes[i].ID == id {
			return i, &d.PointsPrizes[i]
		}
	}
	return -1, nil
}

func (d *Document) FindAchievement(id string) (int, *Achievement) {
	for i := range d.Achievements {
		if d.Achievements[i].ID == id {
			return i, &d.Achievements[i]
		}
	}
	return -1, nil
}

func (d *Document) FindSource(url string) (int, *ICalSource) {
	for i := range d.ICalSources {
		if d.ICalSources[i].URL == url {
			return i, &d.ICalSources[i]
		}
	}
	return -1, nil
}

// IsAdmin reports whether the user id is listed in points_admins.
func (d *Document) IsAdmin(userID string) bool {
	for _, a := range d.PointsAdmins {
		if a == userID {
			return true
		}
	}
	return false
}
