/*
Package rewards implements the household points ledger: balances, the
bounded history that explains them, prizes, and threshold achievements.

PURPOSE:
  Chores carry points. Completing one credits the person who did it;
  parents can adjust, penalize, or reset balances; points are spent on
  prizes; lifetime totals unlock achievements. Everything here is a pure
  function over *generic.Document. The coordinator supplies locking,
  persistence, and notification around these calls.

BALANCE VS LIFETIME:
  points:          Spendable balance. Goes up and down, may go negative
                   after a penalty.
  lifetime_points: Total ever earned. Only positive adjustments and claims
                   raise it; redemptions and penalties never lower it.
                   Achievements key off this number.

HISTORY TYPES:
  adjustment: Admin credit or debit (signed)
  claim:      Points collected from a completed item
  redemption: Prize purchase (negative)
  penalty:    Admin deduction (negative)
  reset:      Balance forced to zero (amount = -old balance)

EXAMPLE FLOW:
  1. "Take out trash" carries 10 points, assigned to kid
  2. Kid checks the item; 10 points claimed, lifetime 10
  3. "Trash Hero" (threshold 10) is auto-awarded
  4. Kid redeems "Ice cream" (cost 8); balance 2, lifetime still 10

SEE ALSO:
  - points.go: Balance operations
  - achievements.go: Awarding and leaderboard
  - generic/ledger.go: History cap
*/
package rewards

import (
	"github.com/google/uuid"
	"github.com/warp/jottick/generic"
)

// AwardedByAuto marks achievements granted by crossing a threshold.
const AwardedByAuto = "auto"

// Ledger applies points rules to a document.
type Ledger struct {
	Now   generic.Clock
	NewID func() string
}

// NewLedger returns a Ledger on the wall clock with random UUID ids.
func NewLedger() *Ledger {
	return &Ledger{Now: generic.SystemClock, NewID: uuid.NewString}
}

func (l *Ledger) timestamp() string {
	return generic.FormatTimestamp(l.Now())
}

// Outcome is what a balance change produced.
type Outcome struct {
	Entry   generic.HistoryEntry  `json:"entry"`
	Awarded []generic.Achievement `json:"awarded,omitempty"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank int                `json:"rank"`
	User generic.PointsUser `json:"user"`
}
