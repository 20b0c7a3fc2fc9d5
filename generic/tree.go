package generic

// =============================================================================
// TREE WALKS - Recursive helpers over Item trees
// =============================================================================

// Walk visits items in pre-order. Returning false from fn stops descent
// into that item's children (siblings are still visited).
func Walk(items []Item, fn func(path IndexPath, item *Item) bool) {
	walk(items, nil, fn)
}

func walk(items []Item, prefix IndexPath, fn func(IndexPath, *Item) bool) {
	for i := range items {
		p := prefix.Child(i)
		if fn(p, &items[i]) {
			walk(items[i].Children, p, fn)
		}
	}
}

// CountItems counts every item at every depth.
func CountItems(items []Item) int {
	n := 0
	for i := range items {
		n += 1 + CountItems(items[i].Children)
	}
	return n
}

// CountDone counts items that are completed or in the completed status.
func CountDone(items []Item) int {
	n := 0
	for i := range items {
		if items[i].IsDone() {
			n++
		}
		n += CountDone(items[i].Children)
	}
	return n
}

// CountByStatus counts task items sitting in the given status.
func CountByStatus(items []Item, status string) int {
	n := 0
	for i := range items {
		if items[i].Status == status {
			n++
		}
		n += CountByStatus(items[i].Children, status)
	}
	return n
}

// CountOverdue counts unfinished items whose due date is before today.
// Dates compare lexically; both sides are YYYY-MM-DD.
func CountOverdue(items []Item, today string) int {
	n := 0
	for i := range items {
		if items[i].DueDate != "" && items[i].DueDate < today && !items[i].IsDone() {
			n++
		}
		n += CountOverdue(items[i].Children, today)
	}
	return n
}

// CascadeComplete marks every descendant of item as completed.
func CascadeComplete(item *Item) {
	for i := range item.Children {
		item.Children[i].Completed = true
		CascadeComplete(&item.Children[i])
	}
}

// CascadeStatus moves every descendant of item into status.
func CascadeStatus(item *Item, status string) {
	for i := range item.Children {
		item.Children[i].Status = status
		CascadeStatus(&item.Children[i], status)
	}
}

// =============================================================================
// FLAT VIEWS
// =============================================================================

// FlatItem is an item lifted out of its tree together with its address.
type FlatItem struct {
	Item
	IndexPath string `json:"index_path"`
	Depth     int    `json:"depth"`
}

// Flatten lists all items in pre-order with their index paths.
func Flatten(items []Item) []FlatItem {
	out := []FlatItem{}
	Walk(items, func(p IndexPath, it *Item) bool {
		cp := *it
		out = append(out, FlatItem{Item: cp, IndexPath: p.String(), Depth: len(p) - 1})
		return true
	})
	return out
}

// DueItem is the due-date projection of an item.
type DueItem struct {
	Text          string `json:"text"`
	IndexPath     string `json:"index_path"`
	DueDate       string `json:"dueDate"`
	DueTime       string `json:"dueTime,omitempty"`
	Status        string `json:"status,omitempty"`
	NotifyOverdue bool   `json:"notifyOverdue"`
	IsOverdue     bool   `json:"isOverdue"`
	IsCompleted   bool   `json:"isCompleted"`
}

// DueItems lists every item with a due date, flagging overdue ones.
func DueItems(items []Item, today string) []DueItem {
	out := []DueItem{}
	Walk(items, func(p IndexPath, it *Item) bool {
		if it.DueDate == "" {
			return true
		}
		done := it.IsDone()
		out = append(out, DueItem{
			Text:          it.Text,
			IndexPath:     p.String(),
			DueDate:       it.DueDate,
			DueTime:       it.DueTime,
			Status:        it.Status,
			NotifyOverdue: it.NotifyOverdue,
			IsOverdue:     it.DueDate < today && !done,
			IsCompleted:   done,
		})
		return true
	})
	return out
}
