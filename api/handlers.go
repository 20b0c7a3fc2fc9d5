/*
handlers.go - HTTP handlers for the household engine

PURPOSE:
  Exposes the coordinator's operations via REST. Handles HTTP
  request/response and JSON serialization, and delegates everything else
  to the coordinator (mutations) or the views package (reads).

ENDPOINTS (all under /api):
  Notes:        /notes, /notes/{id}, /notes/{id}/images[/{index}]
  Checklists:   /checklists, /checklists/{id}, /checklists/{id}/items[/{path}/...]
  Tasks:        /tasks, /tasks/{id}, /tasks/{id}/items[/{path}/...],
                /tasks/{id}/statuses[/{status}]
  Points:       /points/users[/{id}/...], /points/leaderboard,
                /points/prizes[/{id}], /points/admins[/{id}]
  Achievements: /achievements[/{id}/award|revoke], /achievements/users/{id}
  iCal:         /ical/sources, /ical/refresh, /ical/export, /ical/calendar.ics,
                /ical/reminders
  Views:        /calendars[/{id}/events], /calendar-events, /sensors/summary

ITEM PATHS:
  Items are addressed by dotted index paths in the URL, e.g.
  /checklists/abc/items/2.1.0/check checks the first child of the second
  child of the third top-level item.

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the coordinator (or compute a view from a document copy)
  3. Serialize response
  4. Map errors to a status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed or out-of-range paths, low balance
  - 403: Admin-only operation by a non-admin
  - 404: Resource not found
  - 409: Conflict (duplicate, already claimed)
  - 502: Calendar feed could not be fetched
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Admin checks trust the "actor" field in the body.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/jottick/coordinator"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/ical"
	"github.com/warp/jottick/views"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coord    *coordinator.Coordinator
	Calendar views.CalendarConfig
	Now      generic.Clock // nil means wall clock
}

// NewHandler creates a handler around a loaded coordinator.
func NewHandler(c *coordinator.Coordinator, calendar views.CalendarConfig) *Handler {
	return &Handler{Coord: c, Calendar: calendar}
}

func (h *Handler) options() views.Options {
	return views.Options{
		Calendar:  h.Calendar,
		Location:  h.Coord.Location(),
		Now:       h.Now,
		Reminders: h.Coord.Reminders(),
	}
}

// document returns a copy of the current document, or writes 503.
func (h *Handler) document(w http.ResponseWriter) (*generic.Document, bool) {
	doc := h.Coord.Data()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, "Not loaded", coordinator.ErrNotLoaded)
		return nil, false
	}
	return doc, true
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Coord.Data() == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// NOTE HANDLERS
// =============================================================================

// ListNotes returns every note as a sensor view.
// GET /api/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	out := make([]views.NoteSensor, len(doc.Notes))
	for i, n := range doc.Notes {
		out[i] = views.NoteView(n)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	_, n := doc.FindNote(chi.URLParam(r, "id"))
	if n == nil {
		writeDomainError(w, generic.ErrNoteNotFound)
		return
	}
	writeJSON(w, http.StatusOK, views.NoteView(*n))
}

// POST /api/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.Coord.CreateNote(r.Context(), req.Title, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// PUT /api/notes/{id}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.Coord.UpdateNote(r.Context(), chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DELETE /api/notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeleteNote(r.Context(), chi.URLParam(r, "id")))
}

// POST /api/notes/{id}/images
func (h *Handler) AddNoteImage(w http.ResponseWriter, r *http.Request) {
	var req NoteImageRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.Coord.AddNoteImage(r.Context(), chi.URLParam(r, "id"), req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DELETE /api/notes/{id}/images/{index}
func (h *Handler) RemoveNoteImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeDomainError(w, generic.Invalid("index", "must be an integer"))
		return
	}
	note, err := h.Coord.RemoveNoteImage(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// =============================================================================
// CHECKLIST HANDLERS
// =============================================================================

// GET /api/checklists
func (h *Handler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	opts := h.options()
	out := make([]views.ChecklistSensor, len(doc.Checklists))
	for i, c := range doc.Checklists {
		out[i] = views.ChecklistView(c, opts)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/checklists/{id}
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	_, c := doc.FindChecklist(chi.URLParam(r, "id"))
	if c == nil {
		writeDomainError(w, generic.ErrChecklistNotFound)
		return
	}
	writeJSON(w, http.StatusOK, views.ChecklistView(*c, h.options()))
}

// POST /api/checklists
func (h *Handler) CreateChecklist(w http.ResponseWriter, r *http.Request) {
	var req CreateChecklistRequest
	if !decode(w, r, &req) {
		return
	}
	cl, err := h.Coord.CreateChecklist(r.Context(), req.Title, req.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cl)
}

// PUT /api/checklists/{id}
func (h *Handler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	cl, err := h.Coord.UpdateChecklist(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

// DELETE /api/checklists/{id}
func (h *Handler) DeleteChecklist(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeleteChecklist(r.Context(), chi.URLParam(r, "id")))
}

// POST /api/checklists/{id}/items/{path}/check
func (h *Handler) CheckItem(w http.ResponseWriter, r *http.Request) {
	var req CheckItemRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	respondNoContent(w, h.Coord.CheckItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.Claimant))
}

// POST /api/checklists/{id}/items/{path}/uncheck
func (h *Handler) UncheckItem(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.UncheckItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path")))
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// GET /api/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	opts := h.options()
	out := make([]views.TaskSensor, len(doc.Tasks))
	for i, t := range doc.Tasks {
		out[i] = views.TaskView(t, opts)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	_, t := doc.FindTask(chi.URLParam(r, "id"))
	if t == nil {
		writeDomainError(w, generic.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, views.TaskView(*t, h.options()))
}

// POST /api/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Coord.CreateTask(r.Context(), req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// PUT /api/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Coord.UpdateTask(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeleteTask(r.Context(), chi.URLParam(r, "id")))
}

// PUT /api/tasks/{id}/items/{path}/status
func (h *Handler) UpdateTaskItemStatus(w http.ResponseWriter, r *http.Request) {
	var req ItemStatusRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.Coord.UpdateTaskItemStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.Status, req.Claimant)
	respondNoContent(w, err)
}

// POST /api/tasks/{id}/statuses
func (h *Handler) CreateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.Coord.CreateTaskStatus(r.Context(), chi.URLParam(r, "id"), coordinator.StatusInput{
		ID:    req.ID,
		Label: req.Label,
		Color: req.Color,
		Order: req.Order,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// PUT /api/tasks/{id}/statuses/{status}
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.Coord.UpdateTaskStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "status"), req.Label, req.Color, req.Order)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DELETE /api/tasks/{id}/statuses/{status}
func (h *Handler) DeleteTaskStatus(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeleteTaskStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "status")))
}

// =============================================================================
// SHARED ITEM HANDLERS
// =============================================================================
// Checklists and tasks expose the same item operations; only the
// coordinator method behind each one differs.

type itemOps struct {
	kind     coordinator.Kind
	add      func(ctx context.Context, id, text, status, parentPath string) (generic.IndexPath, error)
	remove   func(ctx context.Context, id, path string) error
	text     func(ctx context.Context, id, path, text string) error
	due      func(ctx context.Context, id, path string, due coordinator.DueDate) error
	clearDue func(ctx context.Context, id, path string) error
	points   func(ctx context.Context, id, path string, points int) error
	assign   func(ctx context.Context, id, path, userID string) error
}

func (h *Handler) itemOps(kind coordinator.Kind) itemOps {
	c := h.Coord
	if kind == coordinator.KindTask {
		return itemOps{
			kind:     kind,
			add:      c.AddTaskItem,
			remove:   c.DeleteTaskItem,
			text:     c.UpdateTaskItemText,
			due:      c.SetTaskItemDueDate,
			clearDue: c.ClearTaskItemDueDate,
			points:   c.SetTaskItemPoints,
			assign:   c.AssignTaskItem,
		}
	}
	return itemOps{
		kind:     coordinator.KindChecklist,
		add:      c.AddChecklistItem,
		remove:   c.DeleteChecklistItem,
		text:     c.UpdateChecklistItemText,
		due:      c.SetChecklistItemDueDate,
		clearDue: c.ClearChecklistItemDueDate,
		points:   c.SetChecklistItemPoints,
		assign:   c.AssignChecklistItem,
	}
}

// POST /api/{checklists|tasks}/{id}/items
func (ops itemOps) Add(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := ops.add(r.Context(), chi.URLParam(r, "id"), req.Text, req.Status, req.ParentPath)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddItemResponse{Path: p.String()})
}

// DELETE .../items/{path}
func (ops itemOps) Delete(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, ops.remove(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path")))
}

// PUT .../items/{path}
func (ops itemOps) UpdateText(w http.ResponseWriter, r *http.Request) {
	var req ItemTextRequest
	if !decode(w, r, &req) {
		return
	}
	respondNoContent(w, ops.text(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.Text))
}

// PUT .../items/{path}/due
func (ops itemOps) SetDue(w http.ResponseWriter, r *http.Request) {
	var req DueDateRequest
	if !decode(w, r, &req) {
		return
	}
	due := coordinator.DueDate{Date: req.DueDate, Time: req.DueTime, NotifyOverdue: req.NotifyOverdue}
	respondNoContent(w, ops.due(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), due))
}

// DELETE .../items/{path}/due
func (ops itemOps) ClearDue(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, ops.clearDue(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path")))
}

// PUT .../items/{path}/points
func (ops itemOps) SetPoints(w http.ResponseWriter, r *http.Request) {
	var req ItemPointsRequest
	if !decode(w, r, &req) {
		return
	}
	respondNoContent(w, ops.points(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.Points))
}

// PUT .../items/{path}/assign
func (ops itemOps) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	respondNoContent(w, ops.assign(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.UserID))
}

// ClaimItem credits an item's points to the given user (or its assignee).
// POST .../items/{path}/claim
func (h *Handler) ClaimItem(kind coordinator.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignRequest
		if !decodeOptional(w, r, &req) {
			return
		}
		out, err := h.Coord.ClaimItemPoints(r.Context(), kind, chi.URLParam(r, "id"), chi.URLParam(r, "path"), req.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// =============================================================================
// POINTS HANDLERS
// =============================================================================

// GET /api/points/users
func (h *Handler) ListPointsUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Coord.PointsUsers())
}

// POST /api/points/users
func (h *Handler) CreatePointsUser(w http.ResponseWriter, r *http.Request) {
	var req CreatePointsUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Coord.CreatePointsUser(r.Context(), req.Name, req.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// PUT /api/points/users/{id}
func (h *Handler) UpdatePointsUser(w http.ResponseWriter, r *http.Request) {
	var req UpdatePointsUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Coord.UpdatePointsUser(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DELETE /api/points/users/{id}
func (h *Handler) DeletePointsUser(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeletePointsUser(r.Context(), chi.URLParam(r, "id")))
}

// PUT /api/points/users/{id}/link
func (h *Handler) LinkPointsUser(w http.ResponseWriter, r *http.Request) {
	var req LinkUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Coord.LinkPointsUser(r.Context(), chi.URLParam(r, "id"), req.Account, req.Device)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// POST /api/points/users/{id}/adjust
func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req PointsRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Coord.AdjustPoints(r.Context(), req.Actor, chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/points/users/{id}/penalty
func (h *Handler) PenalizePoints(w http.ResponseWriter, r *http.Request) {
	var req PointsRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Coord.PenalizePoints(r.Context(), req.Actor, chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/points/users/{id}/reset
func (h *Handler) ResetPoints(w http.ResponseWriter, r *http.Request) {
	var req ResetPointsRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	out, err := h.Coord.ResetPoints(r.Context(), req.Actor, chi.URLParam(r, "id"), req.Reason, req.IncludeLifetime)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/points/users/{id}/redeem
func (h *Handler) RedeemPrize(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Coord.RedeemPrize(r.Context(), chi.URLParam(r, "id"), req.PrizeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/points/users/{id}/history?limit=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeDomainError(w, generic.Invalid("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.Coord.History(chi.URLParam(r, "id"), limit))
}

// GET /api/points/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Coord.Leaderboard())
}

// GET /api/points/prizes
func (h *Handler) ListPrizes(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.PointsPrizes)
}

func (req PrizeRequest) input() coordinator.PrizeInput {
	return coordinator.PrizeInput{
		Name:        req.Name,
		Description: req.Description,
		Cost:        req.Cost,
		Image:       req.Image,
		Active:      req.Active,
	}
}

// POST /api/points/prizes
func (h *Handler) CreatePrize(w http.ResponseWriter, r *http.Request) {
	var req PrizeRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Coord.CreatePrize(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PUT /api/points/prizes/{id}
func (h *Handler) UpdatePrize(w http.ResponseWriter, r *http.Request) {
	var req PrizeRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Coord.UpdatePrize(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DELETE /api/points/prizes/{id}
func (h *Handler) DeletePrize(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeletePrize(r.Context(), chi.URLParam(r, "id")))
}

// GET /api/points/admins
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.PointsAdmins)
}

// POST /api/points/admins
func (h *Handler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminRequest
	if !decode(w, r, &req) {
		return
	}
	respondNoContent(w, h.Coord.AddAdmin(r.Context(), req.UserID))
}

// DELETE /api/points/admins/{id}
func (h *Handler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.RemoveAdmin(r.Context(), chi.URLParam(r, "id")))
}

// =============================================================================
// ACHIEVEMENT HANDLERS
// =============================================================================

// GET /api/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.Achievements)
}

// GET /api/achievements/users/{id}
func (h *Handler) UserAchievements(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	held := doc.UserAchievements[chi.URLParam(r, "id")]
	if held == nil {
		held = []generic.UserAchievement{}
	}
	writeJSON(w, http.StatusOK, held)
}

func (req AchievementRequest) input() coordinator.AchievementInput {
	return coordinator.AchievementInput{
		ID:              req.ID,
		Name:            req.Name,
		Description:     req.Description,
		Image:           req.Image,
		PointsThreshold: req.PointsThreshold,
	}
}

// POST /api/achievements
func (h *Handler) CreateAchievement(w http.ResponseWriter, r *http.Request) {
	var req AchievementRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Coord.CreateAchievement(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// PUT /api/achievements/{id}
func (h *Handler) UpdateAchievement(w http.ResponseWriter, r *http.Request) {
	var req AchievementRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Coord.UpdateAchievement(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DELETE /api/achievements/{id}
func (h *Handler) DeleteAchievement(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.DeleteAchievement(r.Context(), chi.URLParam(r, "id")))
}

// POST /api/achievements/{id}/award
func (h *Handler) AwardAchievement(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if !decode(w, r, &req) {
		return
	}
	ua, err := h.Coord.AwardAchievement(r.Context(), req.Actor, req.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ua)
}

// POST /api/achievements/{id}/revoke
func (h *Handler) RevokeAchievement(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if !decode(w, r, &req) {
		return
	}
	respondNoContent(w, h.Coord.RevokeAchievement(r.Context(), req.Actor, req.UserID, chi.URLParam(r, "id")))
}

// =============================================================================
// ICAL HANDLERS
// =============================================================================

// GET /api/ical/sources
func (h *Handler) ListICalSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Coord.ICalSources())
}

// POST /api/ical/sources
func (h *Handler) ImportICal(w http.ResponseWriter, r *http.Request) {
	var req ImportICalRequest
	if !decode(w, r, &req) {
		return
	}
	src, err := h.Coord.ImportICal(r.Context(), req.URL, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

// DELETE /api/ical/sources?url=...
func (h *Handler) RemoveICalSource(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.Coord.RemoveICalSource(r.Context(), r.URL.Query().Get("url")))
}

// RefreshICal refreshes one source when a URL is given, otherwise all of
// them. A partial failure still answers 200 and lists what went wrong.
// POST /api/ical/refresh
func (h *Handler) RefreshICal(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.URL != "" {
		src, err := h.Coord.RefreshICal(r.Context(), req.URL)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RefreshAllResponse{Sources: []generic.ICalSource{src}})
		return
	}

	resp := RefreshAllResponse{}
	if err := h.Coord.RefreshAllICal(r.Context()); err != nil {
		resp.Errors = errorMessages(err)
	}
	resp.Sources = h.Coord.ICalSources()
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/ical/export
func (h *Handler) ExportICal(w http.ResponseWriter, r *http.Request) {
	res, err := h.Coord.ExportICal(r.Context(), h.Coord.Reminders())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DownloadICal serves the export without touching the filesystem.
// GET /api/ical/calendar.ics
func (h *Handler) DownloadICal(w http.ResponseWriter, r *http.Request) {
	body, _ := h.Coord.EncodeICal(h.Coord.Reminders())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jottick.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GET /api/ical/reminders
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	rs := h.Coord.Reminders()
	if rs == nil {
		rs = []generic.Reminder{}
	}
	writeJSON(w, http.StatusOK, rs)
}

// PUT /api/ical/reminders
func (h *Handler) SetReminders(w http.ResponseWriter, r *http.Request) {
	var req RemindersRequest
	if !decode(w, r, &req) {
		return
	}
	h.Coord.SetReminders(req.Reminders)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

// GET /api/sensors/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.Summarize(doc, h.options()))
}

// GET /api/calendars
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.Calendars(doc, h.options()))
}

// CalendarEventsResponse is one calendar's events plus the next upcoming one.
type CalendarEventsResponse struct {
	Events []views.Event `json:"events"`
	Next   *views.Event  `json:"next"`
}

// GET /api/calendars/{id}/events?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	opts := h.options()
	events, err := views.CalendarEventsFor(doc, chi.URLParam(r, "id"), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q := r.URL.Query()
	if q.Get("from") != "" || q.Get("to") != "" {
		loc := opts.Location
		from, err := generic.ParseDate(q.Get("from"), loc)
		if err != nil {
			writeDomainError(w, generic.Invalid("from", "must be YYYY-MM-DD"))
			return
		}
		to, err := generic.ParseDate(q.Get("to"), loc)
		if err != nil {
			writeDomainError(w, generic.Invalid("to", "must be YYYY-MM-DD"))
			return
		}
		events = views.EventsInRange(events, from, to)
	}

	now := generic.SystemClock
	if h.Now != nil {
		now = h.Now
	}
	if events == nil {
		events = []views.Event{}
	}
	writeJSON(w, http.StatusOK, CalendarEventsResponse{
		Events: events,
		Next:   views.NextEvent(events, now().In(opts.Location)),
	})
}

// GET /api/calendar-events
func (h *Handler) CalendarAggregate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.CalendarEvents(doc, h.options()))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps coordinator errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsForbidden(err):
		writeError(w, http.StatusForbidden, "Admin required", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, ical.ErrFetch):
		writeError(w, http.StatusBadGateway, "Calendar fetch failed", err)
	case errors.Is(err, coordinator.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "Not loaded", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func respondNoContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// errorMessages flattens a joined error.
func errorMessages(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
