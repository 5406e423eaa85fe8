// Package slate picks the weekly set of games a chat bets on.
package slate

import (
	"sort"
	"time"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/model"
)

// DefaultQualityCount is the number of quality games in a weekly slate.
const DefaultQualityCount = 10

// QualityScore ranks a matchup by the combined rating of both teams.
func QualityScore(g model.Game) float64 {
	return g.Away.SRS + g.Home.SRS
}

// TankScore is the inverse metric for the contrarian pick: lower is worse.
func TankScore(g model.Game) float64 {
	return g.Away.WinFraction() + g.Home.WinFraction()
}

// Eligible reports whether a game may be picked as a quality game.
// Both teams must have a positive rating or a winning record.
func Eligible(g model.Game) bool {
	return g.Away.Competitive() && g.Home.Competitive()
}

type pair struct {
	home, away int64
}

// Select returns the slate for the window [start, end]:
// the top qualityCount distinct matchups by QualityScore plus the single
// worst game by TankScore, deduplicated by game id and ordered by start time.
// An empty window yields an empty slate.
func Select(pool []model.Game, start, end time.Time, qualityCount int) []model.Game {
	window := inWindow(pool, start, end)
	if len(window) == 0 {
		return nil
	}

	picked := make(map[int64]model.Game, qualityCount+1)
	for _, g := range pickQuality(window, qualityCount) {
		picked[g.ID] = g
	}
	if tank, ok := pickTank(window); ok {
		picked[tank.ID] = tank
	}

	result := make([]model.Game, 0, len(picked))
	for _, g := range picked {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScheduledStart.Equal(result[j].ScheduledStart) {
			return result[i].ScheduledStart.Before(result[j].ScheduledStart)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// inWindow filters the pool to the window and drops repeated game ids.
func inWindow(pool []model.Game, start, end time.Time) []model.Game {
	seen := make(map[int64]struct{}, len(pool))
	out := make([]model.Game, 0, len(pool))
	for _, g := range pool {
		if _, dup := seen[g.ID]; dup {
			continue
		}
		if !league.InWindow(g.ScheduledStart, start, end) {
			continue
		}
		seen[g.ID] = struct{}{}
		out = append(out, g)
	}
	return out
}

func pickQuality(window []model.Game, count int) []model.Game {
	if count <= 0 {
		return nil
	}

	candidates := make([]model.Game, 0, len(window))
	for _, g := range window {
		if Eligible(g) {
			candidates = append(candidates, g)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		qi, qj := QualityScore(candidates[i]), QualityScore(candidates[j])
		if qi != qj {
			return qi > qj
		}
		return candidates[i].ID < candidates[j].ID
	})

	pairs := make(map[pair]struct{}, count)
	out := make([]model.Game, 0, count)
	for _, g := range candidates {
		if len(out) == count {
			break
		}
		p := pair{home: g.HomeTeamID(), away: g.AwayTeamID()}
		if _, dup := pairs[p]; dup {
			continue
		}
		pairs[p] = struct{}{}
		out = append(out, g)
	}
	return out
}

func pickTank(window []model.Game) (model.Game, bool) {
	if len(window) == 0 {
		return model.Game{}, false
	}
	worst := window[0]
	for _, g := range window[1:] {
		ts, ws := TankScore(g), TankScore(worst)
		if ts < ws || (ts == ws && g.ID < worst.ID) {
			worst = g
		}
	}
	return worst, true
}
