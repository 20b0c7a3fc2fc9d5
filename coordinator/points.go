package coordinator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/rewards"
)

// =============================================================================
// EVENTS
// =============================================================================

func emitOutcome(ch *change, out rewards.Outcome) {
	ch.emit(generic.EventPointsChanged, map[string]any{
		"user_id":     out.Entry.UserID,
		"amount":      out.Entry.Amount,
		"new_balance": out.Entry.NewBalance,
		"type":        string(out.Entry.Type),
		"reason":      out.Entry.Reason,
	})
	emitAwards(ch, out.Entry.UserID, out.Awarded)
}

func emitAwards(ch *change, userID string, awarded []generic.Achievement) {
	for _, a := range awarded {
		ch.emit(generic.EventAchievementAwarded, map[string]any{
			"user_id":          userID,
			"achievement_id":   a.ID,
			"achievement_name": a.Name,
		})
	}
}

func emitClaim(ch *change, out *rewards.Outcome, item *generic.Item) {
	ch.emit(generic.EventPointsClaimed, map[string]any{
		"user_id":   out.Entry.UserID,
		"points":    item.Points,
		"item":      item.Text,
		"reference": out.Entry.Reference,
	})
	emitOutcome(ch, *out)
}

// =============================================================================
// USERS
// =============================================================================

// CreatePointsUser adds a user. id defaults to a generated one.
func (c *Coordinator) CreatePointsUser(ctx context.Context, name, id string) (generic.PointsUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return generic.PointsUser{}, generic.Invalid("name", "must not be empty")
	}
	var out generic.PointsUser
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		if id == "" {
			id = c.newID()
		}
		if _, ok := doc.PointsUsers[id]; ok {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateUser, id)
		}
		u := &generic.PointsUser{ID: id, Name: name}
		doc.PointsUsers[id] = u
		out = *u
		return nil
	})
	return out, err
}

func (c *Coordinator) UpdatePointsUser(ctx context.Context, id string, name *string) (generic.PointsUser, error) {
	var out generic.PointsUser
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		u, err := findUser(doc, id)
		if err != nil {
			return err
		}
		if name != nil {
			n := strings.TrimSpace(*name)
			if n == "" {
				return generic.Invalid("name", "must not be empty")
			}
			u.Name = n
		}
		out = *u
		return nil
	})
	return out, err
}

// DeletePointsUser removes the user and their achievements. History
// entries stay; they are the audit trail.
func (c *Coordinator) DeletePointsUser(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		if _, err := findUser(doc, id); err != nil {
			return err
		}
		delete(doc.PointsUsers, id)
		delete(doc.UserAchievements, id)
		return nil
	})
}

// LinkPointsUser ties a points user to a household account and a device.
func (c *Coordinator) LinkPointsUser(ctx context.Context, id, account, device string) (generic.PointsUser, error) {
	var out generic.PointsUser
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		u, err := findUser(doc, id)
		if err != nil {
			return err
		}
		u.LinkedHAUser = account
		u.LinkedDevice = device
		out = *u
		return nil
	})
	return out, err
}

func findUser(doc *generic.Document, id string) (*generic.PointsUser, error) {
	u, ok := doc.PointsUsers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrUserNotFound, id)
	}
	return u, nil
}

// PointsUsers returns every user, sorted by name.
func (c *Coordinator) PointsUsers() []generic.PointsUser {
	var out []generic.PointsUser
	c.read(func(doc *generic.Document) {
		for _, u := range doc.PointsUsers {
			out = append(out, *u)
		}
	})
	slices.SortFunc(out, func(a, b generic.PointsUser) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// =============================================================================
// BALANCES
// =============================================================================

func (c *Coordinator) ledgerOp(ctx context.Context, op func(doc *generic.Document) (rewards.Outcome, error)) (rewards.Outcome, error) {
	var out rewards.Outcome
	err := c.update(ctx, func(doc *generic.Document, ch *change) error {
		o, err := op(doc)
		if err != nil {
			return err
		}
		out = o
		emitOutcome(ch, o)
		return nil
	})
	return out, err
}

func (c *Coordinator) AdjustPoints(ctx context.Context, actor, userID string, amount int, reason string) (rewards.Outcome, error) {
	return c.ledgerOp(ctx, func(doc *generic.Document) (rewards.Outcome, error) {
		return c.ledger.Adjust(doc, actor, userID, amount, reason)
	})
}

func (c *Coordinator) PenalizePoints(ctx context.Context, actor, userID string, amount int, reason string) (rewards.Outcome, error) {
	return c.ledgerOp(ctx, func(doc *generic.Document) (rewards.Outcome, error) {
		return c.ledger.Penalize(doc, actor, userID, amount, reason)
	})
}

func (c *Coordinator) ResetPoints(ctx context.Context, actor, userID, reason string, includeLifetime bool) (rewards.Outcome, error) {
	return c.ledgerOp(ctx, func(doc *generic.Document) (rewards.Outcome, error) {
		return c.ledger.Reset(doc, actor, userID, reason, includeLifetime)
	})
}

func (c *Coordinator) RedeemPrize(ctx context.Context, userID, prizeID string) (rewards.Outcome, error) {
	return c.ledgerOp(ctx, func(doc *generic.Document) (rewards.Outcome, error) {
		return c.ledger.Redeem(doc, userID, prizeID)
	})
}

// ClaimItemPoints credits an item's points to userID (or the assignee when
// userID is empty). A second claim fails with ErrAlreadyClaimed.
func (c *Coordinator) ClaimItemPoints(ctx context.Context, kind Kind, containerID, path, userID string) (rewards.Outcome, error) {
	var out rewards.Outcome
	err := c.withItem(ctx, kind, containerID, path, func(doc *generic.Document, ct container, item *generic.Item, p generic.IndexPath, ch *change) error {
		claimant := userID
		if claimant == "" {
			claimant = item.AssignedTo
		}
		o, err := c.ledger.Claim(doc, item, claimant, ct.reference(p))
		if err != nil {
			return err
		}
		out = o
		emitClaim(ch, &o, item)
		return nil
	})
	return out, err
}

// History returns a user's entries, newest first. limit <= 0 means all.
func (c *Coordinator) History(userID string, limit int) []generic.HistoryEntry {
	var out []generic.HistoryEntry
	c.read(func(doc *generic.Document) {
		out = generic.HistoryFor(doc, userID, limit)
	})
	return out
}

func (c *Coordinator) Leaderboard() []rewards.Standing {
	var out []rewards.Standing
	c.read(func(doc *generic.Document) {
		out = rewards.Leaderboard(doc)
	})
	return out
}

// =============================================================================
// PRIZES
// =============================================================================

// PrizeInput describes a prize. Nil fields are left unchanged on update;
// a new prize is active unless Active says otherwise.
type PrizeInput struct {
	Name        *string
	Description *string
	Cost        *int
	Image       *string
	Active      *bool
}

func (in PrizeInput) apply(p *generic.Prize) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Cost != nil {
		p.Cost = *in.Cost
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if p.Name == "" {
		return generic.Invalid("name", "must not be empty")
	}
	if p.Cost < 0 {
		return generic.Invalid("cost", "must not be negative")
	}
	return nil
}

func (c *Coordinator) CreatePrize(ctx context.Context, in PrizeInput) (generic.Prize, error) {
	var out generic.Prize
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		p := generic.Prize{ID: c.newID(), Active: true}
		if err := in.apply(&p); err != nil {
			return err
		}
		doc.PointsPrizes = append(doc.PointsPrizes, p)
		out = p
		return nil
	})
	return out, err
}

func (c *Coordinator) UpdatePrize(ctx context.Context, id string, in PrizeInput) (generic.Prize, error) {
	var out generic.Prize
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		_, p := doc.FindPrize(id)
		if p == nil {
			return fmt.Errorf("%w: %s", generic.ErrPrizeNotFound, id)
		}
		if err := in.apply(p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

func (c *Coordinator) DeletePrize(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		i, p := doc.FindPrize(id)
		if p == nil {
			return fmt.Errorf("%w: %s", generic.ErrPrizeNotFound, id)
		}
		doc.PointsPrizes = slices.Delete(doc.PointsPrizes, i, i+1)
		return nil
	})
}

// =============================================================================
// ADMINS
// =============================================================================

func (c *Coordinator) AddAdmin(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return generic.Invalid("user_id", "must not be empty")
	}
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		if !doc.IsAdmin(userID) {
			doc.PointsAdmins = append(doc.PointsAdmins, userID)
		}
		return nil
	})
}

func (c *Coordinator) RemoveAdmin(ctx context.Context, userID string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		doc.PointsAdmins = slices.DeleteFunc(doc.PointsAdmins, func(a string) bool { return a == userID })
		return nil
	})
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// AchievementInput describes an achievement. Nil fields are left unchanged
// on update. A zero threshold makes it manual-only.
type AchievementInput struct {
	ID              string
	Name            *string
	Description     *string
	Image           *string
	PointsThreshold *int
}

func (in AchievementInput) apply(a *generic.Achievement) error {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Image != nil {
		a.Image = *in.Image
	}
	if in.PointsThreshold != nil {
		a.PointsThreshold = *in.PointsThreshold
	}
	if a.Name == "" {
		return generic.Invalid("name", "must not be empty")
	}
	if a.PointsThreshold < 0 {
		return generic.Invalid("points_threshold", "must not be negative")
	}
	return nil
}

// CreateAchievement defines an achievement and immediately grants it to
// users whose lifetime total already qualifies.
func (c *Coordinator) CreateAchievement(ctx context.Context, in AchievementInput) (generic.Achievement, error) {
	var out generic.Achievement
	err := c.update(ctx, func(doc *generic.Document, ch *change) error {
		a := generic.Achievement{ID: strings.TrimSpace(in.ID)}
		if a.ID == "" {
			a.ID = c.newID()
		}
		if _, existing := doc.FindAchievement(a.ID); existing != nil {
			return generic.Invalid("id", fmt.Sprintf("achievement %q already exists", a.ID))
		}
		if err := in.apply(&a); err != nil {
			return err
		}
		doc.Achievements = append(doc.Achievements, a)
		out = a
		c.recheckAchievements(doc, ch)
		return nil
	})
	return out, err
}

func (c *Coordinator) UpdateAchievement(ctx context.Context, id string, in AchievementInput) (generic.Achievement, error) {
	var out generic.Achievement
	err := c.update(ctx, func(doc *generic.Document, ch *change) error {
		_, a := doc.FindAchievement(id)
		if a == nil {
			return fmt.Errorf("%w: %s", generic.ErrAchievementNotFound, id)
		}
		if err := in.apply(a); err != nil {
			return err
		}
		out = *a
		c.recheckAchievements(doc, ch)
		return nil
	})
	return out, err
}

func (c *Coordinator) DeleteAchievement(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		return rewards.ForgetAchievement(doc, id)
	})
}

func (c *Coordinator) AwardAchievement(ctx context.Context, actor, userID, achievementID string) (generic.UserAchievement, error) {
	var out generic.UserAchievement
	err := c.update(ctx, func(doc *generic.Document, ch *change) error {
		ua, err := c.ledger.Award(doc, actor, userID, achievementID)
		if err != nil {
			return err
		}
		out = ua
		_, a := doc.FindAchievement(achievementID)
		emitAwards(ch, userID, []generic.Achievement{*a})
		return nil
	})
	return out, err
}

func (c *Coordinator) RevokeAchievement(ctx context.Context, actor, userID, achievementID string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		return c.ledger.Revoke(doc, actor, userID, achievementID)
	})
}

func (c *Coordinator) recheckAchievements(doc *generic.Document, ch *change) {
	for id := range doc.PointsUsers {
		emitAwards(ch, id, c.ledger.CheckAchievements(doc, id))
	}
}
