/*
dto.go - Request and response bodies for the REST API

PURPOSE:
  Defines the JSON structures clients send. Responses reuse the document
  types and the views package directly, since their JSON tags already are
  the persisted wire format.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Small response wrappers

OPTIONAL FIELDS:
  Pointer fields distinguish "leave unchanged" (absent) from "set to zero"
  on updates.

VALIDATION:
  Validation is done by the coordinator, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - coordinator/: The operations behind each request
*/
package api

import (
	"github.com/warp/jottick/generic"
)

// =============================================================================
// NOTES
// =============================================================================

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type NoteImageRequest struct {
	URL string `json:"url"`
}

// =============================================================================
// CHECKLISTS & TASKS
// =============================================================================

type CreateChecklistRequest struct {
	Title string                `json:"title"`
	Type  generic.ChecklistType `json:"type"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
}

type RenameRequest struct {
	Title *string `json:"title"`
}

type AddItemRequest struct {
	Text       string `json:"text"`
	Status     string `json:"status"`
	ParentPath string `json:"parent_path"`
}

// AddItemResponse carries the index path of the new item.
type AddItemResponse struct {
	Path string `json:"path"`
}

type ItemTextRequest struct {
	Text string `json:"text"`
}

type CheckItemRequest struct {
	Claimant string `json:"claimant"`
}

type ItemStatusRequest struct {
	Status   string `json:"status"`
	Claimant string `json:"claimant"`
}

type DueDateRequest struct {
	DueDate       string `json:"due_date"`
	DueTime       string `json:"due_time"`
	NotifyOverdue bool   `json:"notify_overdue"`
}

type ItemPointsRequest struct {
	Points int `json:"points"`
}

type AssignRequest struct {
	UserID string `json:"user_id"`
}

type StatusRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
	Order *int   `json:"order"`
}

type UpdateStatusRequest struct {
	Label *string `json:"label"`
	Color *string `json:"color"`
	Order *int    `json:"order"`
}

// =============================================================================
// POINTS
// =============================================================================

type CreatePointsUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UpdatePointsUserRequest struct {
	Name *string `json:"name"`
}

type LinkUserRequest struct {
	Account string `json:"linked_ha_user"`
	Device  string `json:"linked_device"`
}

// PointsRequest serves adjust (signed amount) and penalty (positive amount).
type PointsRequest struct {
	Actor  string `json:"actor"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type ResetPointsRequest struct {
	Actor           string `json:"actor"`
	Reason          string `json:"reason"`
	IncludeLifetime bool   `json:"include_lifetime"`
}

type RedeemRequest struct {
	PrizeID string `json:"prize_id"`
}

type PrizeRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Cost        *int    `json:"cost"`
	Image       *string `json:"image"`
	Active      *bool   `json:"active"`
}

type AdminRequest struct {
	UserID string `json:"user_id"`
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

type AchievementRequest struct {
	ID              string  `json:"id"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Image           *string `json:"image"`
	PointsThreshold *int    `json:"points_threshold"`
}

type AwardRequest struct {
	Actor  string `json:"actor"`
	UserID string `json:"user_id"`
}

// =============================================================================
// ICAL
// =============================================================================

type ImportICalRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// SourceRequest names an existing feed by URL.
type SourceRequest struct {
	URL string `json:"url"`
}

type RefreshAllResponse struct {
	Sources []generic.ICalSource `json:"sources"`
	Errors  []string             `json:"errors,omitempty"`
}

type RemindersRequest struct {
	Reminders []generic.Reminder `json:"reminders"`
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
