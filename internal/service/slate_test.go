package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/model"
)

func testWeek() *model.Week {
	return &model.Week{ID: 1, ChatID: 42, WeekNumber: 1, StartDate: league.Date(2024, 1, 2), EndDate: league.Date(2024, 1, 8)}
}

func TestSlateService_SelectsAndCaches(t *testing.T) {
	db := newMemDB()
	db.addGames(weekOfGames()...)
	cache := newMemCache()
	svc := NewSlateService(memGames{db}, memWeeks{db}, cache, 2, 0)

	games, err := svc.Slate(context.Background(), testWeek())
	require.NoError(t, err)

	// Two best matchups plus the Pistons-Spurs tank game, in start order.
	assert.Equal(t, []int64{101, 102, 103}, gameIDs(games))

	_, cached, _ := cache.Get(context.Background(), CacheKey(league.Date(2024, 1, 2), league.Date(2024, 1, 8)))
	assert.True(t, cached)
}

func TestSlateService_FallsBackToCache(t *testing.T) {
	db := newMemDB()
	db.addGames(weekOfGames()...)
	cache := newMemCache()
	svc := NewSlateService(memGames{db}, memWeeks{db}, cache, 10, 0)
	ctx := context.Background()

	_, err := svc.Slate(ctx, testWeek())
	require.NoError(t, err)

	// A second week over the same window has no saved slate and must use the cache.
	other := testWeek()
	other.ID = 2
	db.failWith = errors.New("ingestion down")
	games, err := svc.Slate(ctx, other)
	require.NoError(t, err)
	assert.Len(t, games, 4)
}

func TestSlateService_ReusesSavedSlate(t *testing.T) {
	db := newMemDB()
	db.addGames(weekOfGames()...)
	svc := NewSlateService(memGames{db}, memWeeks{db}, nil, 2, 0)
	ctx := context.Background()

	first, err := svc.Slate(ctx, testWeek())
	require.NoError(t, err)

	// Pistons and Spurs turn into contenders; a fresh pick would change.
	db.setTeam(team(4, "Pistons", 36, 4, 12))
	db.setTeam(team(5, "Spurs", 35, 5, 11))
	fresh := NewSlateService(memGames{db}, memWeeks{newMemDB()}, nil, 2, 0)
	repicked, err := fresh.Slate(ctx, testWeek())
	require.NoError(t, err)
	require.NotEqual(t, gameIDs(first), gameIDs(repicked))

	again, err := svc.Slate(ctx, testWeek())
	require.NoError(t, err)
	assert.Equal(t, gameIDs(first), gameIDs(again))
}

func TestSlateService_NoSourceNoCache(t *testing.T) {
	db := newMemDB()
	db.failWith = errors.New("ingestion down")

	_, err := NewSlateService(memGames{db}, memWeeks{db}, newMemCache(), 10, 0).Slate(context.Background(), testWeek())
	assert.ErrorIs(t, err, ErrStore)
}

func TestSlateService_EmptyWindow(t *testing.T) {
	db := newMemDB()
	_, err := NewSlateService(memGames{db}, memWeeks{db}, nil, 10, 0).Slate(context.Background(), testWeek())
	assert.ErrorIs(t, err, ErrNoCandidates)
}
