package service

import (
	"context"
	"fmt"
	"strings"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/model"
)

// StandingsService reads and renders the chat leaderboards.
type StandingsService struct {
	store StandingsStore
	clock *league.Clock
}

// NewStandingsService creates a new StandingsService instance.
func NewStandingsService(store StandingsStore, clock *league.Clock) *StandingsService {
	return &StandingsService{store: store, clock: clock}
}

// WeeksPlayed returns the number of the latest week that has started, or 0.
func (s *StandingsService) WeeksPlayed(ctx context.Context, chatID int64) (int, error) {
	n, err := s.store.CurrentWeekNumber(ctx, chatID, s.clock.Today())
	if err != nil {
		return 0, storeErr("current week", err)
	}
	return n, nil
}

// Week renders the standings of the given week.
func (s *StandingsService) Week(ctx context.Context, chatID int64, weekNumber int) (string, error) {
	rows, err := s.store.WeekStandings(ctx, chatID, weekNumber)
	if err != nil {
		return "", storeErr("week standings", err)
	}
	return RenderWeek(weekNumber, rows), nil
}

// Current renders the standings of the week in progress.
func (s *StandingsService) Current(ctx context.Context, chatID int64) (string, error) {
	n, err := s.WeeksPlayed(ctx, chatID)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return noStandingsText, nil
	}
	return s.Week(ctx, chatID, n)
}

// Season renders weeks won per user over the whole season.
func (s *StandingsService) Season(ctx context.Context, chatID int64) (string, error) {
	rows, err := s.store.SeasonStandings(ctx, chatID)
	if err != nil {
		return "", storeErr("season standings", err)
	}
	return RenderSeason(rows), nil
}

const noStandingsText = "You can see the standings a couple hours after your first game is finished.\nMake sure to answer at least one poll!"

// RenderWeek formats a week leaderboard.
func RenderWeek(weekNumber int, rows []*model.WeekStanding) string {
	if len(rows) == 0 {
		return noStandingsText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏀 Week %d\nYou get one point for every correct bet\n", weekNumber)
	b.WriteString("━━━━━━━━━━━━━━━\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for _, r := range rows {
		rank := fmt.Sprintf("%d.", r.Rank)
		if r.Rank <= len(medals) {
			rank = medals[r.Rank-1]
		}
		fmt.Fprintf(&b, "%s %s: %d/%d\n", rank, displayName(r.FirstName, r.UserID), r.CorrectBets, r.FinishedGames)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}

// RenderSeason formats the season leaderboard.
func RenderSeason(rows []*model.SeasonStanding) string {
	if len(rows) == 0 {
		return noStandingsText
	}

	var b strings.Builder
	b.WriteString("🏆 Standings (including current week)\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%d. %s: %d weeks won\n", r.Rank, displayName(r.FirstName, r.UserID), r.WeeksWon)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}

func displayName(firstName string, userID int64) string {
	if firstName == "" {
		return fmt.Sprintf("User%d", userID)
	}
	return firstName
}
