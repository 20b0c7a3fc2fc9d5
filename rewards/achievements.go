package rewards

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// CheckAchievements awards every threshold achievement the user's lifetime
// total has reached and the user does not yet hold. Achievements with a
// zero threshold are manual-only.
func (l *Ledger) CheckAchievements(doc *generic.Document, userID string) []generic.Achievement {
	user, ok := doc.PointsUsers[userID]
	if !ok {
		return nil
	}
	var awarded []generic.Achievement
	for _, a := range doc.Achievements {
		if a.PointsThreshold <= 0 || user.LifetimePoints < a.PointsThreshold {
			continue
		}
		if doc.HasAchievement(userID, a.ID) {
			continue
		}
		doc.UserAchievements[userID] = append(doc.UserAchievements[userID], generic.UserAchievement{
			AchievementID: a.ID,
			AwardedAt:     l.timestamp(),
			AwardedBy:     AwardedByAuto,
		})
		awarded = append(awarded, a)
	}
	return awarded
}

// Award grants an achievement by hand. Admin only.
func (l *Ledger) Award(doc *generic.Document, actor, userID, achievementID string) (generic.UserAchievement, error) {
	if err := RequireAdmin(doc, actor); err != nil {
		return generic.UserAchievement{}, err
	}
	if _, ok := doc.PointsUsers[userID]; !ok {
		return generic.UserAchievement{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, userID)
	}
	if _, a := doc.FindAchievement(achievementID); a == nil {
		return generic.UserAchievement{}, fmt.Errorf("%w: %s", generic.ErrAchievementNotFound, achievementID)
	}
	if doc.HasAchievement(userID, achievementID) {
		return generic.UserAchievement{}, fmt.Errorf("%w: %s already holds %s", generic.ErrDuplicateAchievement, userID, achievementID)
	}

	by := actor
	if by == "" {
		by = "manual"
	}
	ua := generic.UserAchievement{AchievementID: achievementID, AwardedAt: l.timestamp(), AwardedBy: by}
	doc.UserAchievements[userID] = append(doc.UserAchievements[userID], ua)
	return ua, nil
}

// Revoke removes a held achievement. Admin only.
func (l *Ledger) Revoke(doc *generic.Document, actor, userID, achievementID string) error {
	if err := RequireAdmin(doc, actor); err != nil {
		return err
	}
	held := doc.UserAchievements[userID]
	i := slices.IndexFunc(held, func(ua generic.UserAchievement) bool { return ua.AchievementID == achievementID })
	if i < 0 {
		return fmt.Errorf("%w: %s does not hold %s", generic.ErrAchievementNotFound, userID, achievementID)
	}
	doc.UserAchievements[userID] = slices.Delete(held, i, i+1)
	return nil
}

// ForgetAchievement drops an achievement definition and every grant of it.
func ForgetAchievement(doc *generic.Document, achievementID string) error {
	i, a := doc.FindAchievement(achievementID)
	if a == nil {
		return fmt.Errorf("%w: %s", generic.ErrAchievementNotFound, achievementID)
	}
	doc.Achievements = slices.Delete(doc.Achievements, i, i+1)
	for user, held := range doc.UserAchievements {
		doc.UserAchievements[user] = slices.DeleteFunc(held, func(ua generic.UserAchievement) bool {
			return ua.AchievementID == achievementID
		})
	}
	return nil
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// Leaderboard ranks users by balance, then lifetime total, then name.
// Ties on balance and lifetime share a rank.
func Leaderboard(doc *generic.Document) []Standing {
	users := make([]generic.PointsUser, 0, len(doc.PointsUsers))
	for _, u := range doc.PointsUsers {
		users = append(users, *u)
	}
	slices.SortFunc(users, func(a, b generic.PointsUser) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.LifetimePoints, a.LifetimePoints); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	out := make([]Standing, len(users))
	for i, u := range users {
		rank := i + 1
		if i > 0 && u.Points == users[i-1].Points && u.LifetimePoints == users[i-1].LifetimePoints {
			rank = out[i-1].Rank
		}
		out[i] = Standing{Rank: rank, User: u}
	}
	return out
}
