package rewards

import (
	"fmt"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// PERMISSIONS
// =============================================================================

// RequireAdmin allows everyone while points_admins is empty. Once any admin
// is configured, actor must be one of them.
func RequireAdmin(doc *generic.Document, actor string) error {
	if len(doc.PointsAdmins) == 0 {
		return nil
	}
	if actor == "" || !doc.IsAdmin(actor) {
		return fmt.Errorf("%w: %q", generic.ErrNotAdmin, actor)
	}
	return nil
}

// =============================================================================
// BALANCE CHANGES
// =============================================================================
// Every exported operation funnels through apply, which is the only place
// a balance moves and the only place history is written.

func (l *Ledger) apply(doc *generic.Document, userID string, delta int, kind generic.HistoryType, reason, reference string) (Outcome, error) {
	user, ok := doc.PointsUsers[userID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, userID)
	}

	old := user.Points
	user.Points += delta
	if delta > 0 && (kind == generic.HistoryAdjustment || kind == generic.HistoryClaim) {
		user.LifetimePoints += delta
	}

	entry := generic.HistoryEntry{
		ID:         l.NewID(),
		UserID:     userID,
		Amount:     delta,
		OldBalance: old,
		NewBalance: user.Points,
		Reason:     reason,
		Type:       kind,
		Timestamp:  l.timestamp(),
		Reference:  reference,
	}
	generic.AppendHistory(doc, entry)

	return Outcome{Entry: entry, Awarded: l.CheckAchievements(doc, userID)}, nil
}

// Adjust credits (positive) or debits (negative) a user. Admin only.
func (l *Ledger) Adjust(doc *generic.Document, actor, userID string, amount int, reason string) (Outcome, error) {
	if err := RequireAdmin(doc, actor); err != nil {
		return Outcome{}, err
	}
	if amount == 0 {
		return Outcome{}, generic.Invalid("amount", "must not be zero")
	}
	if reason == "" {
		reason = "Manual adjustment"
	}
	return l.apply(doc, userID, amount, generic.HistoryAdjustment, reason, "")
}

// Penalize subtracts a positive amount. The balance may go negative.
func (l *Ledger) Penalize(doc *generic.Document, actor, userID string, amount int, reason string) (Outcome, error) {
	if err := RequireAdmin(doc, actor); err != nil {
		return Outcome{}, err
	}
	if amount <= 0 {
		return Outcome{}, generic.Invalid("amount", "penalty must be positive")
	}
	if reason == "" {
		reason = "Penalty"
	}
	return l.apply(doc, userID, -amount, generic.HistoryPenalty, reason, "")
}

// Reset zeroes the balance, and the lifetime total too when asked.
func (l *Ledger) Reset(doc *generic.Document, actor, userID, reason string, includeLifetime bool) (Outcome, error) {
	if err := RequireAdmin(doc, actor); err != nil {
		return Outcome{}, err
	}
	user, ok := doc.PointsUsers[userID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, userID)
	}
	if reason == "" {
		reason = "Points reset"
	}
	out, err := l.apply(doc, userID, -user.Points, generic.HistoryReset, reason, "")
	if err != nil {
		return Outcome{}, err
	}
	if includeLifetime {
		user.LifetimePoints = 0
	}
	return out, nil
}

// Redeem spends points on an active prize.
func (l *Ledger) Redeem(doc *generic.Document, userID, prizeID string) (Outcome, error) {
	_, prize := doc.FindPrize(prizeID)
	if prize == nil {
		return Outcome{}, fmt.Errorf("%w: %s", generic.ErrPrizeNotFound, prizeID)
	}
	if !prize.Active {
		return Outcome{}, generic.Invalid("prize", fmt.Sprintf("%q is not active", prize.Name))
	}
	user, ok := doc.PointsUsers[userID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, userID)
	}
	if user.Points < prize.Cost {
		return Outcome{}, &generic.InsufficientPointsError{UserID: userID, Balance: user.Points, Requested: prize.Cost}
	}
	return l.apply(doc, userID, -prize.Cost, generic.HistoryRedemption, "Redeemed: "+prize.Name, prize.ID)
}

// Claim collects the points on item for userID, exactly once. The item is
// marked claimed only when the credit succeeds.
func (l *Ledger) Claim(doc *generic.Document, item *generic.Item, userID, reference string) (Outcome, error) {
	if item.PointsClaimed {
		return Outcome{}, fmt.Errorf("%w: claimed by %s", generic.ErrAlreadyClaimed, item.PointsClaimedBy)
	}
	if item.Points <= 0 {
		return Outcome{}, generic.ErrNoPoints
	}
	if userID == "" {
		return Outcome{}, generic.Invalid("user_id", "no claimant and item is unassigned")
	}

	out, err := l.apply(doc, userID, item.Points, generic.HistoryClaim, "Completed: "+item.Text, reference)
	if err != nil {
		return Outcome{}, err
	}
	item.PointsClaimed = true
	item.PointsClaimedBy = userID
	item.PointsClaimedAt = out.Entry.Timestamp
	return out, nil
}

// ClaimOnCompletion is the opportunistic claim run when an item becomes
// done. It credits claimant (or the assignee) when that resolves to a known
// user and the item has unclaimed points; otherwise it does nothing.
func (l *Ledger) ClaimOnCompletion(doc *generic.Document, item *generic.Item, claimant, reference string) (*Outcome, error) {
	if !item.Claimable() {
		return nil, nil
	}
	userID := claimant
	if userID == "" {
		userID = item.AssignedTo
	}
	if userID == "" {
		return nil, nil
	}
	if _, ok := doc.PointsUsers[userID]; !ok {
		return nil, nil
	}
	out, err := l.Claim(doc, item, userID, reference)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
