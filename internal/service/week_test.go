package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"betting-season-bot/internal/league"
)

func newWeekFixture(now time.Time) (*WeekService, *memDB, *testClock) {
	db := newMemDB()
	clk := &testClock{now: now}
	return NewWeekService(memWeeks{db}, league.NewClockAt(clk.Now)), db, clk
}

func TestMaybeAdvanceWeek_FirstWeek(t *testing.T) {
	svc, _, _ := newWeekFixture(leagueNoon(2024, 1, 1))

	week, err := svc.MaybeAdvanceWeek(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Equal(t, 1, week.WeekNumber)
	assert.Equal(t, league.Date(2024, 1, 2), week.StartDate)
	assert.Equal(t, league.Date(2024, 1, 8), week.EndDate)
	assert.False(t, week.SlatePublished)
}

func TestMaybeAdvanceWeek_RolloverBoundary(t *testing.T) {
	svc, _, clk := newWeekFixture(leagueNoon(2024, 1, 1))
	ctx := context.Background()

	_, err := svc.MaybeAdvanceWeek(ctx, 42)
	require.NoError(t, err)

	clk.Set(leagueNoon(2024, 1, 7))
	week, err := svc.MaybeAdvanceWeek(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, week, "tomorrow equals end date, no rollover")

	// 04:59 UTC on Jan 8 is still Jan 7 in the league.
	clk.Set(time.Date(2024, 1, 8, 4, 59, 0, 0, time.UTC))
	week, err = svc.MaybeAdvanceWeek(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, week)

	clk.Set(leagueNoon(2024, 1, 8))
	week, err = svc.MaybeAdvanceWeek(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Equal(t, 2, week.WeekNumber)
	assert.Equal(t, league.Date(2024, 1, 9), week.StartDate)
	assert.Equal(t, league.Date(2024, 1, 15), week.EndDate)

	week, err = svc.MaybeAdvanceWeek(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, week, "second call on the same day is a no-op")
}

func TestMaybeAdvanceWeek_SeasonEnd(t *testing.T) {
	svc, _, clk := newWeekFixture(leagueNoon(2024, 4, 1))
	svc.WithSeasonEnd(league.Date(2024, 4, 10))
	ctx := context.Background()

	week, err := svc.MaybeAdvanceWeek(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, week)

	clk.Set(leagueNoon(2024, 4, 12))
	week, err = svc.MaybeAdvanceWeek(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, week)
}

func TestMaybeAdvanceWeek_StoreError(t *testing.T) {
	svc, db, _ := newWeekFixture(leagueNoon(2024, 1, 1))
	db.failWith = errors.New("connection refused")

	_, err := svc.MaybeAdvanceWeek(context.Background(), 42)
	assert.ErrorIs(t, err, ErrStore)
}

func TestNeedsRollover(t *testing.T) {
	assert.True(t, NeedsRollover(nil, league.Date(2024, 1, 1)))
}

// TestWeekNumbersContiguousProperty: however the clock moves forward and
// however often MaybeAdvanceWeek runs, week numbers are 1, 2, 3, ... and weeks never overlap.
func TestWeekNumbersContiguousProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, db, clk := newWeekFixture(leagueNoon(2024, 1, 1))
		ctx := context.Background()
		chatID := rapid.Int64Range(-1000, -1).Draw(t, "chatID")

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		now := clk.Now()
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.IntRange(0, 72).Draw(t, "hours")) * time.Hour)
			clk.Set(now)
			calls := rapid.IntRange(1, 3).Draw(t, "calls")
			for c := 0; c < calls; c++ {
				if _, err := svc.MaybeAdvanceWeek(ctx, chatID); err != nil {
					t.Fatalf("MaybeAdvanceWeek: %v", err)
				}
			}
		}

		weeks := db.weeksOf(chatID)
		if len(weeks) == 0 {
			t.Fatalf("no week created")
		}
		for i, w := range weeks {
			if w.WeekNumber != i+1 {
				t.Fatalf("week %d has number %d", i, w.WeekNumber)
			}
			if !w.EndDate.After(w.StartDate) {
				t.Fatalf("week %d ends %s before start %s", w.WeekNumber, w.EndDate, w.StartDate)
			}
			if i > 0 && !w.StartDate.After(weeks[i-1].EndDate) {
				t.Fatalf("week %d starts %s inside previous week ending %s", w.WeekNumber, w.StartDate, weeks[i-1].EndDate)
			}
		}
	})
}
