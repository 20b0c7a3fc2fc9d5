package rewards_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/rewards"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger() *rewards.Ledger {
	n := 0
	return &rewards.Ledger{
		Now: func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("h%d", n)
		},
	}
}

func household() *generic.Document {
	doc := generic.NewDocument()
	doc.PointsUsers["kid"] = &generic.PointsUser{ID: "kid", Name: "Kid"}
	doc.PointsUsers["teen"] = &generic.PointsUser{ID: "teen", Name: "Teen", Points: 40, LifetimePoints: 90}
	doc.PointsPrizes = append(doc.PointsPrizes,
		generic.Prize{ID: "ice", Name: "Ice cream", Cost: 8, Active: true},
		generic.Prize{ID: "pony", Name: "Pony", Cost: 1, Active: false},
	)
	doc.Achievements = append(doc.Achievements,
		generic.Achievement{ID: "ten", Name: "Trash Hero", PointsThreshold: 10},
		generic.Achievement{ID: "fifty", Name: "Helper", PointsThreshold: 50},
		generic.Achievement{ID: "manual", Name: "Birthday"},
	)
	return doc
}

// =============================================================================
// CLAIMS
// =============================================================================

func TestClaim_CreditsOnceAndMarksItem(t *testing.T) {
	l := newTestLedger()
	doc := household()
	item := &generic.Item{Text: "Take out trash", Points: 10}

	// WHEN: Kid claims the item
	out, err := l.Claim(doc, item, "kid", "checklist:l1:0")
	require.NoError(t, err)

	// THEN: Balance and lifetime rise, the item is marked, one entry is written
	assert.Equal(t, 10, doc.PointsUsers["kid"].Points)
	assert.Equal(t, 10, doc.PointsUsers["kid"].LifetimePoints)
	assert.True(t, item.PointsClaimed)
	assert.Equal(t, "kid", item.PointsClaimedBy)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", item.PointsClaimedAt)
	require.Len(t, doc.PointsHistory, 1)
	assert.Equal(t, generic.HistoryClaim, out.Entry.Type)
	assert.Equal(t, 0, out.Entry.OldBalance)
	assert.Equal(t, 10, out.Entry.NewBalance)
	assert.Equal(t, "checklist:l1:0", out.Entry.Reference)

	// AND: Crossing the threshold auto-awards
	require.Len(t, out.Awarded, 1)
	assert.Equal(t, "ten", out.Awarded[0].ID)
	assert.Equal(t, rewards.AwardedByAuto, doc.UserAchievements["kid"][0].AwardedBy)
}

func TestClaim_SecondClaimFailsWithoutDoubleCredit(t *testing.T) {
	l := newTestLedger()
	doc := household()
	item := &generic.Item{Text: "Dishes", Points: 5}

	_, err := l.Claim(doc, item, "kid", "")
	require.NoError(t, err)

	// WHEN: Claimed again, by anyone
	_, err = l.Claim(doc, item, "teen", "")

	// THEN: Rejected, balances untouched, no extra history
	assert.ErrorIs(t, err, generic.ErrAlreadyClaimed)
	assert.Equal(t, 5, doc.PointsUsers["kid"].Points)
	assert.Equal(t, 40, doc.PointsUsers["teen"].Points)
	assert.Len(t, doc.PointsHistory, 1)
}

func TestClaim_Rejections(t *testing.T) {
	l := newTestLedger()

	tests := []struct {
		name string
		item generic.Item
		user string
		want error
	}{
		{"no points", generic.Item{Text: "x"}, "kid", generic.ErrNoPoints},
		{"unknown user", generic.Item{Text: "x", Points: 3}, "ghost", generic.ErrUserNotFound},
		{"no claimant", generic.Item{Text: "x", Points: 3}, "", generic.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := household()
			item := tt.item
			_, err := l.Claim(doc, &item, tt.user, "")
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, item.PointsClaimed)
			assert.Empty(t, doc.PointsHistory)
		})
	}
}

func TestClaimOnCompletion_FallsBackToAssignee(t *testing.T) {
	l := newTestLedger()
	doc := household()

	assigned := &generic.Item{Text: "Vacuum", Points: 4, AssignedTo: "teen"}
	out, err := l.ClaimOnCompletion(doc, assigned, "", "")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 44, doc.PointsUsers["teen"].Points)

	// Unassigned and unknown users are skipped, not errors
	nobody := &generic.Item{Text: "Mop", Points: 4}
	out, err = l.ClaimOnCompletion(doc, nobody, "", "")
	require.NoError(t, err)
	assert.Nil(t, out)

	stranger := &generic.Item{Text: "Mop", Points: 4, AssignedTo: "neighbour"}
	out, err = l.ClaimOnCompletion(doc, stranger, "", "")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, stranger.PointsClaimed)
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

func TestAdjust_AdminGate(t *testing.T) {
	l := newTestLedger()
	doc := household()

	// GIVEN: No admins configured, anyone may adjust
	_, err := l.Adjust(doc, "", "kid", 3, "")
	require.NoError(t, err)

	// WHEN: An admin list exists
	doc.PointsAdmins = []string{"parent"}

	// THEN: Outsiders are refused and nothing changes
	_, err = l.Adjust(doc, "kid", "kid", 100, "cheat")
	assert.ErrorIs(t, err, generic.ErrNotAdmin)
	assert.True(t, generic.IsForbidden(err))
	assert.Equal(t, 3, doc.PointsUsers["kid"].Points)

	_, err = l.Adjust(doc, "parent", "kid", -1, "oops")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PointsUsers["kid"].Points)
	assert.Equal(t, 3, doc.PointsUsers["kid"].LifetimePoints, "debits never lower lifetime")
}

func TestAdjust_ZeroRejected(t *testing.T) {
	_, err := newTestLedger().Adjust(household(), "", "kid", 0, "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestPenalize_CanGoNegative(t *testing.T) {
	l := newTestLedger()
	doc := household()

	out, err := l.Penalize(doc, "", "kid", 7, "Rude")
	require.NoError(t, err)
	assert.Equal(t, -7, doc.PointsUsers["kid"].Points)
	assert.Equal(t, -7, out.Entry.Amount)
	assert.Equal(t, generic.HistoryPenalty, out.Entry.Type)

	_, err = l.Penalize(doc, "", "kid", -1, "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestReset_RecordsNegativeOldBalance(t *testing.T) {
	l := newTestLedger()
	doc := household()

	out, err := l.Reset(doc, "", "teen", "", false)
	require.NoError(t, err)
	assert.Equal(t, -40, out.Entry.Amount)
	assert.Equal(t, 0, doc.PointsUsers["teen"].Points)
	assert.Equal(t, 90, doc.PointsUsers["teen"].LifetimePoints)

	_, err = l.Reset(doc, "", "teen", "", true)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PointsUsers["teen"].LifetimePoints)
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func TestRedeem(t *testing.T) {
	l := newTestLedger()

	t.Run("success", func(t *testing.T) {
		doc := household()
		out, err := l.Redeem(doc, "teen", "ice")
		require.NoError(t, err)
		assert.Equal(t, 32, doc.PointsUsers["teen"].Points)
		assert.Equal(t, 90, doc.PointsUsers["teen"].LifetimePoints)
		assert.Equal(t, generic.HistoryRedemption, out.Entry.Type)
		assert.Equal(t, "ice", out.Entry.Reference)
	})

	t.Run("insufficient", func(t *testing.T) {
		doc := household()
		_, err := l.Redeem(doc, "kid", "ice")
		var ipe *generic.InsufficientPointsError
		require.ErrorAs(t, err, &ipe)
		assert.Equal(t, 8, ipe.Requested)
		assert.Empty(t, doc.PointsHistory)
	})

	t.Run("inactive", func(t *testing.T) {
		_, err := l.Redeem(household(), "teen", "pony")
		assert.ErrorIs(t, err, generic.ErrInvalidInput)
	})

	t.Run("unknown prize", func(t *testing.T) {
		_, err := l.Redeem(household(), "teen", "yacht")
		assert.True(t, generic.IsNotFound(err))
	})
}

// =============================================================================
// HISTORY CAP
// =============================================================================

func TestHistory_CappedFIFO(t *testing.T) {
	l := newTestLedger()
	doc := household()

	// WHEN: More adjustments than the cap
	for i := 0; i < generic.MaxHistory+25; i++ {
		_, err := l.Adjust(doc, "", "kid", 1, fmt.Sprintf("r%d", i))
		require.NoError(t, err)
	}

	// THEN: Exactly the newest MaxHistory survive, oldest dropped first
	require.Len(t, doc.PointsHistory, generic.MaxHistory)
	assert.Equal(t, "r25", doc.PointsHistory[0].Reason)
	assert.Equal(t, fmt.Sprintf("r%d", generic.MaxHistory+24), doc.PointsHistory[generic.MaxHistory-1].Reason)
	assert.Equal(t, generic.MaxHistory+25, doc.PointsUsers["kid"].Points)
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func TestAward_ManualAndDuplicate(t *testing.T) {
	l := newTestLedger()
	doc := household()

	ua, err := l.Award(doc, "", "kid", "manual")
	require.NoError(t, err)
	assert.Equal(t, "manual", ua.AwardedBy)

	_, err = l.Award(doc, "", "kid", "manual")
	assert.ErrorIs(t, err, generic.ErrDuplicateAchievement)
	assert.Len(t, doc.UserAchievements["kid"], 1)

	require.NoError(t, l.Revoke(doc, "", "kid", "manual"))
	assert.Empty(t, doc.UserAchievements["kid"])
	assert.True(t, generic.IsNotFound(l.Revoke(doc, "", "kid", "manual")))
}

func TestCheckAchievements_SkipsManualAndHeld(t *testing.T) {
	l := newTestLedger()
	doc := household()

	awarded := l.CheckAchievements(doc, "teen")
	require.Len(t, awarded, 2)
	assert.Empty(t, l.CheckAchievements(doc, "teen"))
	assert.False(t, doc.HasAchievement("teen", "manual"))
}

func TestForgetAchievement_RemovesGrants(t *testing.T) {
	l := newTestLedger()
	doc := household()
	l.CheckAchievements(doc, "teen")

	require.NoError(t, rewards.ForgetAchievement(doc, "ten"))
	assert.False(t, doc.HasAchievement("teen", "ten"))
	assert.True(t, doc.HasAchievement("teen", "fifty"))
}

func TestLeaderboard_Ordering(t *testing.T) {
	doc := household()
	doc.PointsUsers["amy"] = &generic.PointsUser{ID: "amy", Name: "Amy", Points: 40, LifetimePoints: 90}

	board := rewards.Leaderboard(doc)
	require.Len(t, board, 3)
	assert.Equal(t, "Amy", board[0].User.Name)
	assert.Equal(t, "Teen", board[1].User.Name)
	assert.Equal(t, 1, board[1].Rank)
	assert.Equal(t, 3, board[2].Rank)
}
