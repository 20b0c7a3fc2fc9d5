/*
ledger.go - Bounded points history

PURPOSE:
  points_history is the audit trail for every balance change. The balance
  on PointsUser is the fast path; the history explains how it got there.

CRITICAL INVARIANTS:
  1. PAIRED: Every balance change appends exactly one entry, in the same
     mutation. No balance change without an entry, no entry without one.
  2. IMMUTABLE: Entries are never edited after append.
  3. BOUNDED: At most MaxHistory entries are kept. Appending beyond the cap
     drops the oldest entries first (FIFO).

SEE ALSO:
  - rewards/points.go: The only writer of history entries
*/
package generic

// MaxHistory is the retention cap for points_history.
const MaxHistory = 1000

// AppendHistory appends entry and trims the log to MaxHistory.
func AppendHistory(doc *Document, entry HistoryEntry) {
	doc.PointsHistory = append(doc.PointsHistory, entry)
	if over := len(doc.PointsHistory) - MaxHistory; over > 0 {
		trimmed := make([]HistoryEntry, MaxHistory)
		copy(trimmed, doc.PointsHistory[over:])
		doc.PointsHistory = trimmed
	}
}

// HistoryFor returns the newest-first history of one user (all users when
// userID is empty), at most limit entries (no limit when limit <= 0).
func HistoryFor(doc *Document, userID string, limit int) []HistoryEntry {
	out := []HistoryEntry{}
	for i := len(doc.PointsHistory) - 1; i >= 0; i-- {
		e := doc.PointsHistory[i]
		if userID != "" && e.UserID != userID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
