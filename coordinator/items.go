package coordinator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// CONTAINERS - checklists and tasks share the item tree
// =============================================================================

// Kind names an item container.
type Kind string

const (
	KindChecklist Kind = "checklist"
	KindTask      Kind = "task"
)

// ParseKind accepts "checklist"/"list" and "task".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "checklist", "list", "checklists":
		return KindChecklist, nil
	case "task", "tasks":
		return KindTask, nil
	}
	return "", generic.Invalid("kind", fmt.Sprintf("%q is not checklist or task", s))
}

type container struct {
	kind      Kind
	id        string
	items     *[]generic.Item
	updatedAt *string
	task      *generic.Task // nil for checklists
}

func (ct container) touch(ts string) { *ct.updatedAt = ts }

func (ct container) reference(p generic.IndexPath) string {
	return string(ct.kind) + ":" + ct.id + ":" + p.String()
}

func findContainer(doc *generic.Document, kind Kind, id string) (container, error) {
	switch kind {
	case KindChecklist:
		_, cl := doc.FindChecklist(id)
		if cl == nil {
			return container{}, fmt.Errorf("%w: %s", generic.ErrChecklistNotFound, id)
		}
		return container{kind: kind, id: id, items: &cl.Items, updatedAt: &cl.UpdatedAt}, nil
	case KindTask:
		_, t := doc.FindTask(id)
		if t == nil {
			return container{}, fmt.Errorf("%w: %s", generic.ErrTaskNotFound, id)
		}
		return container{kind: kind, id: id, items: &t.Items, updatedAt: &t.UpdatedAt, task: t}, nil
	}
	return container{}, generic.Invalid("kind", string(kind))
}

// itemFn mutates one resolved item.
type itemFn func(doc *generic.Document, ct container, item *generic.Item, p generic.IndexPath, ch *change) error

// withItem is the shared item-operation contract: find the container,
// resolve the path, apply fn, stamp the container.
func (c *Coordinator) withItem(ctx context.Context, kind Kind, id, path string, fn itemFn) error {
	p, err := generic.ParsePath(path)
	if err != nil {
		return err
	}
	return c.update(ctx, func(doc *generic.Document, ch *change) error {
		ct, err := findContainer(doc, kind, id)
		if err != nil {
			return err
		}
		item, err := generic.ResolveItem(*ct.items, p)
		if err != nil {
			return err
		}
		if err := fn(doc, ct, item, p, ch); err != nil {
			return err
		}
		ct.touch(c.timestamp())
		return nil
	})
}

// completeItem runs after an item became done: descendants follow it, and
// unclaimed points go to the claimant or the assignee.
func (c *Coordinator) completeItem(doc *generic.Document, ct container, item *generic.Item, p generic.IndexPath, claimant string, wasDone bool, ch *change) error {
	if ct.kind == KindTask {
		generic.CascadeStatus(item, generic.StatusCompleted)
	} else {
		generic.CascadeComplete(item)
	}
	if wasDone {
		return nil
	}
	out, err := c.ledger.ClaimOnCompletion(doc, item, claimant, ct.reference(p))
	if err != nil {
		return err
	}
	if out != nil {
		emitClaim(ch, out, item)
	}
	return nil
}

// =============================================================================
// CHECKLISTS
// =============================================================================

func (c *Coordinator) CreateChecklist(ctx context.Context, title string, typ generic.ChecklistType) (generic.Checklist, error) {
	if typ == "" {
		typ = generic.ChecklistSimple
	}
	switch typ {
	case generic.ChecklistSimple, generic.ChecklistShopping, generic.ChecklistAdvanced:
	default:
		return generic.Checklist{}, generic.Invalid("type", fmt.Sprintf("unknown checklist type %q", typ))
	}
	var out generic.Checklist
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		now := c.timestamp()
		out = generic.Checklist{
			ID:        c.newID(),
			Title:     strings.TrimSpace(title),
			Type:      typ,
			Items:     []generic.Item{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Checklists = append(doc.Checklists, out)
		return nil
	})
	return out, err
}

func (c *Coordinator) UpdateChecklist(ctx context.Context, id string, title *string) (generic.Checklist, error) {
	var out generic.Checklist
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		_, cl := doc.FindChecklist(id)
		if cl == nil {
			return fmt.Errorf("%w: %s", generic.ErrChecklistNotFound, id)
		}
		if title != nil {
			cl.Title = strings.TrimSpace(*title)
		}
		cl.UpdatedAt = c.timestamp()
		out = *cl
		return nil
	})
	return out, err
}

func (c *Coordinator) DeleteChecklist(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		i, cl := doc.FindChecklist(id)
		if cl == nil {
			return fmt.Errorf("%w: %s", generic.ErrChecklistNotFound, id)
		}
		doc.Checklists = slices.Delete(doc.Checklists, i, i+1)
		return nil
	})
}

// AddChecklistItem appends an item at the root or under parentPath, which
// must exist. Returns the new item's path.
func (c *Coordinator) AddChecklistItem(ctx context.Context, id, text, status, parentPath string) (generic.IndexPath, error) {
	return c.addItem(ctx, KindChecklist, id, text, status, parentPath)
}

// CheckItem completes a checklist item and its subtree.
func (c *Coordinator) CheckItem(ctx context.Context, id, path, claimant string) error {
	return c.withItem(ctx, KindChecklist, id, path, func(doc *generic.Document, ct container, item *generic.Item, p generic.IndexPath, ch *change) error {
		wasDone := item.Completed
		item.Completed = true
		return c.completeItem(doc, ct, item, p, claimant, wasDone, ch)
	})
}

// UncheckItem reopens one item. Children and claimed points stay as they are.
func (c *Coordinator) UncheckItem(ctx context.Context, id, path string) error {
	return c.withItem(ctx, KindChecklist, id, path, func(_ *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		item.Completed = false
		return nil
	})
}

func (c *Coordinator) DeleteChecklistItem(ctx context.Context, id, path string) error {
	return c.deleteItem(ctx, KindChecklist, id, path)
}

func (c *Coordinator) UpdateChecklistItemText(ctx context.Context, id, path, text string) error {
	return c.updateItemText(ctx, KindChecklist, id, path, text)
}

func (c *Coordinator) SetChecklistItemDueDate(ctx context.Context, id, path string, due DueDate) error {
	return c.setDueDate(ctx, KindChecklist, id, path, due)
}

func (c *Coordinator) ClearChecklistItemDueDate(ctx context.Context, id, path string) error {
	return c.clearDueDate(ctx, KindChecklist, id, path)
}

func (c *Coordinator) SetChecklistItemPoints(ctx context.Context, id, path string, points int) error {
	return c.setPoints(ctx, KindChecklist, id, path, points)
}

func (c *Coordinator) AssignChecklistItem(ctx context.Context, id, path, userID string) error {
	return c.assign(ctx, KindChecklist, id, path, userID)
}

// =============================================================================
// TASKS
// =============================================================================

// CreateTask starts a task with the default statuses.
func (c *Coordinator) CreateTask(ctx context.Context, title string) (generic.Task, error) {
	var out generic.Task
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		now := c.timestamp()
		out = generic.Task{
			ID:        c.newID(),
			Title:     strings.TrimSpace(title),
			Items:     []generic.Item{},
			Statuses:  generic.DefaultStatuses(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Tasks = append(doc.Tasks, out)
		return nil
	})
	return out, err
}

func (c *Coordinator) UpdateTask(ctx context.Context, id string, title *string) (generic.Task, error) {
	var out generic.Task
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		t, err := findTask(doc, id)
		if err != nil {
			return err
		}
		if title != nil {
			t.Title = strings.TrimSpace(*title)
		}
		t.UpdatedAt = c.timestamp()
		out = *t
		return nil
	})
	return out, err
}

func (c *Coordinator) DeleteTask(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		i, t := doc.FindTask(id)
		if t == nil {
			return fmt.Errorf("%w: %s", generic.ErrTaskNotFound, id)
		}
		doc.Tasks = slices.Delete(doc.Tasks, i, i+1)
		return nil
	})
}

// AddTaskItem appends a task item; status defaults to "todo".
func (c *Coordinator) AddTaskItem(ctx context.Context, id, text, status, parentPath string) (generic.IndexPath, error) {
	if status == "" {
		status = generic.StatusTodo
	}
	return c.addItem(ctx, KindTask, id, text, status, parentPath)
}

// UpdateTaskItemStatus moves an item to another status. Moving to
// "completed" drags the subtree along and claims points.
func (c *Coordinator) UpdateTaskItemStatus(ctx context.Context, id, path, status, claimant string) error {
	return c.withItem(ctx, KindTask, id, path, func(doc *generic.Document, ct container, item *generic.Item, p generic.IndexPath, ch *change) error {
		if !taskHasStatus(ct.task, status) {
			return generic.Invalid("status", fmt.Sprintf("%q is not defined on task %s", status, ct.id))
		}
		wasDone := item.IsDone()
		item.Status = status
		if status != generic.StatusCompleted {
			item.Completed = false
			return nil
		}
		return c.completeItem(doc, ct, item, p, claimant, wasDone, ch)
	})
}

func (c *Coordinator) DeleteTaskItem(ctx context.Context, id, path string) error {
	return c.deleteItem(ctx, KindTask, id, path)
}

func (c *Coordinator) UpdateTaskItemText(ctx context.Context, id, path, text string) error {
	return c.updateItemText(ctx, KindTask, id, path, text)
}

func (c *Coordinator) SetTaskItemDueDate(ctx context.Context, id, path string, due DueDate) error {
	return c.setDueDate(ctx, KindTask, id, path, due)
}

func (c *Coordinator) ClearTaskItemDueDate(ctx context.Context, id, path string) error {
	return c.clearDueDate(ctx, KindTask, id, path)
}

func (c *Coordinator) SetTaskItemPoints(ctx context.Context, id, path string, points int) error {
	return c.setPoints(ctx, KindTask, id, path, points)
}

func (c *Coordinator) AssignTaskItem(ctx context.Context, id, path, userID string) error {
	return c.assign(ctx, KindTask, id, path, userID)
}

func findTask(doc *generic.Document, id string) (*generic.Task, error) {
	_, t := doc.FindTask(id)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", generic.ErrTaskNotFound, id)
	}
	return t, nil
}

// taskHasStatus treats a task that predates statuses as having the defaults.
func taskHasStatus(t *generic.Task, status string) bool {
	if len(t.Statuses) == 0 {
		for _, s := range generic.DefaultStatuses() {
			if s.ID == status {
				return true
			}
		}
		return false
	}
	return t.HasStatus(status)
}

// =============================================================================
// TASK STATUSES
// =============================================================================

// StatusInput describes a status to create. Order nil appends at the end.
type StatusInput struct {
	ID    string
	Label string
	Color string
	Order *int
}

func (c *Coordinator) CreateTaskStatus(ctx context.Context, taskID string, in StatusInput) (generic.Status, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return generic.Status{}, generic.Invalid("status_id", "must not be empty")
	}
	var out generic.Status
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		t, err := findTask(doc, taskID)
		if err != nil {
			return err
		}
		if t.HasStatus(in.ID) {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateStatus, in.ID)
		}
		out = generic.Status{ID: in.ID, Label: in.Label, Color: in.Color, Order: len(t.Statuses)}
		if out.Label == "" {
			out.Label = in.ID
		}
		if out.Color == "" {
			out.Color = generic.DefaultStatusColor
		}
		if in.Order != nil {
			out.Order = *in.Order
		}
		t.Statuses = append(t.Statuses, out)
		t.UpdatedAt = c.timestamp()
		return nil
	})
	return out, err
}

// UpdateTaskStatus changes the non-nil fields of a status.
func (c *Coordinator) UpdateTaskStatus(ctx context.Context, taskID, statusID string, label, color *string, order *int) (generic.Status, error) {
	var out generic.Status
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		t, err := findTask(doc, taskID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(t.Statuses, func(s generic.Status) bool { return s.ID == statusID })
		if i < 0 {
			return fmt.Errorf("%w: %s", generic.ErrStatusNotFound, statusID)
		}
		s := &t.Statuses[i]
		if label != nil {
			s.Label = *label
		}
		if color != nil {
			s.Color = *color
		}
		if order != nil {
			s.Order = *order
		}
		t.UpdatedAt = c.timestamp()
		out = *s
		return nil
	})
	return out, err
}

// DeleteTaskStatus removes a status no item is using.
func (c *Coordinator) DeleteTaskStatus(ctx context.Context, taskID, statusID string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		t, err := findTask(doc, taskID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(t.Statuses, func(s generic.Status) bool { return s.ID == statusID })
		if i < 0 {
			return fmt.Errorf("%w: %s", generic.ErrStatusNotFound, statusID)
		}
		if n := generic.CountByStatus(t.Items, statusID); n > 0 {
			return generic.Invalid("status_id", fmt.Sprintf("%q is used by %d items", statusID, n))
		}
		t.Statuses = slices.Delete(t.Statuses, i, i+1)
		t.UpdatedAt = c.timestamp()
		return nil
	})
}

// =============================================================================
// SHARED ITEM OPERATIONS
// =============================================================================

// DueDate is what set-due-date operations accept. Time is optional HH:MM.
type DueDate struct {
	Date          string
	Time          string
	NotifyOverdue bool
}

func (c *Coordinator) addItem(ctx context.Context, kind Kind, id, text, status, parentPath string) (generic.IndexPath, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, generic.Invalid("text", "must not be empty")
	}
	var parent generic.IndexPath
	if parentPath != "" {
		p, err := generic.ParsePath(parentPath)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	var out generic.IndexPath
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		ct, err := findContainer(doc, kind, id)
		if err != nil {
			return err
		}
		if kind == KindTask && !taskHasStatus(ct.task, status) {
			return generic.Invalid("status", fmt.Sprintf("%q is not defined on task %s", status, id))
		}
		item := generic.Item{Text: text, Status: status, Children: []generic.Item{}}
		if kind == KindChecklist && status == generic.StatusCompleted {
			item.Completed = true
		}
		out, err = generic.AppendChild(ct.items, parent, item)
		if err != nil {
			return err
		}
		ct.touch(c.timestamp())
		return nil
	})
	return out, err
}

func (c *Coordinator) deleteItem(ctx context.Context, kind Kind, id, path string) error {
	p, err := generic.ParsePath(path)
	if err != nil {
		return err
	}
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		ct, err := findContainer(doc, kind, id)
		if err != nil {
			return err
		}
		if _, err := generic.RemoveAt(ct.items, p); err != nil {
			return err
		}
		ct.touch(c.timestamp())
		return nil
	})
}

func (c *Coordinator) updateItemText(ctx context.Context, kind Kind, id, path, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return generic.Invalid("text", "must not be empty")
	}
	return c.withItem(ctx, kind, id, path, func(_ *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		item.Text = text
		return nil
	})
}

func (c *Coordinator) setDueDate(ctx context.Context, kind Kind, id, path string, due DueDate) error {
	if err := generic.ValidateDue(due.Date, due.Time); err != nil {
		return err
	}
	return c.withItem(ctx, kind, id, path, func(_ *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		item.DueDate = due.Date
		item.DueTime = due.Time
		item.NotifyOverdue = due.NotifyOverdue
		return nil
	})
}

func (c *Coordinator) clearDueDate(ctx context.Context, kind Kind, id, path string) error {
	return c.withItem(ctx, kind, id, path, func(_ *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		item.DueDate, item.DueTime, item.NotifyOverdue = "", "", false
		return nil
	})
}

// setPoints changes an item's reward. Claimed items keep their claim.
func (c *Coordinator) setPoints(ctx context.Context, kind Kind, id, path string, points int) error {
	if points < 0 {
		return generic.Invalid("points", "must not be negative")
	}
	return c.withItem(ctx, kind, id, path, func(_ *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		item.Points = points
		return nil
	})
}

// assign sets the default claimant. An empty userID clears it.
func (c *Coordinator) assign(ctx context.Context, kind Kind, id, path, userID string) error {
	return c.withItem(ctx, kind, id, path, func(doc *generic.Document, _ container, item *generic.Item, _ generic.IndexPath, _ *change) error {
		if userID != "" {
			if _, ok := doc.PointsUsers[userID]; !ok {
				return fmt.Errorf("%w: %s", generic.ErrUserNotFound, userID)
			}
		}
		item.AssignedTo = userID
		return nil
	})
}
