package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// winnerCase picks the home team only on a strictly higher score.
const winnerCase = `CASE WHEN g.home_points > g.away_points THEN g.home_team_id ELSE g.away_team_id END`

// StandingsRepository computes leaderboards from polls, bets and finished games.
type StandingsRepository struct {
	pool *pgxpool.Pool
}

// NewStandingsRepository creates a new StandingsRepository instance.
func NewStandingsRepository(pool *pgxpool.Pool) *StandingsRepository {
	return &StandingsRepository{pool: pool}
}

// WeekStandings ranks every bettor of the week by correct picks on finished games.
func (r *StandingsRepository) WeekStandings(ctx context.Context, chatID int64, weekNumber int) ([]*model.WeekStanding, error) {
	const query = `
		WITH week_polls AS (
			SELECT p.id AS poll_id, p.game_id
			FROM polls p
			JOIN weeks w ON w.id = p.week_id
			WHERE w.chat_id = $1 AND w.week_number = $2
		),
		finished AS (
			SELECT g.id AS game_id, ` + winnerCase + ` AS winner_id
			FROM games g
			JOIN week_polls wp ON wp.game_id = g.id
			WHERE g.home_points IS NOT NULL AND g.away_points IS NOT NULL
		),
		scores AS (
			SELECT b.user_id,
			       COUNT(f.game_id) FILTER (WHERE b.chosen_team_id = f.winner_id) AS correct_bets
			FROM bets b
			JOIN week_polls wp ON wp.poll_id = b.poll_id
			LEFT JOIN finished f ON f.game_id = b.game_id
			GROUP BY b.user_id
		)
		SELECT RANK() OVER (ORDER BY s.correct_bets DESC)::INT AS rank_number,
		       s.user_id,
		       u.first_name,
		       s.correct_bets::INT,
		       (SELECT COUNT(*) FROM finished)::INT AS finished_games
		FROM scores s
		JOIN users u ON u.id = s.user_id
		ORDER BY rank_number, s.user_id
	`

	rows, err := r.pool.Query(ctx, query, chatID, weekNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get week standings: %w", err)
	}
	defer rows.Close()

	var standings []*model.WeekStanding
	for rows.Next() {
		var s model.WeekStanding
		if err := rows.Scan(&s.Rank, &s.UserID, &s.FirstName, &s.CorrectBets, &s.FinishedGames); err != nil {
			return nil, fmt.Errorf("failed to scan week standing: %w", err)
		}
		standings = append(standings, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating week standings: %w", err)
	}
	return standings, nil
}

// SeasonStandings ranks bettors by weeks won, ongoing week included.
// A week is won by every user sharing rank one with at least one correct pick.
func (r *StandingsRepository) SeasonStandings(ctx context.Context, chatID int64) ([]*model.SeasonStanding, error) {
	const query = `
		WITH season_polls AS (
			SELECT w.week_number, p.id AS poll_id, p.game_id
			FROM polls p
			JOIN weeks w ON w.id = p.week_id
			WHERE w.chat_id = $1
		),
		finished AS (
			SELECT g.id AS game_id, ` + winnerCase + ` AS winner_id
			FROM games g
			WHERE g.home_points IS NOT NULL AND g.away_points IS NOT NULL
			  AND g.id IN (SELECT game_id FROM season_polls)
		),
		weekly AS (
			SELECT sp.week_number, b.user_id,
			       COUNT(f.game_id) FILTER (WHERE b.chosen_team_id = f.winner_id) AS correct_bets
			FROM bets b
			JOIN season_polls sp ON sp.poll_id = b.poll_id
			LEFT JOIN finished f ON f.game_id = b.game_id
			GROUP BY sp.week_number, b.user_id
		),
		ranked AS (
			SELECT user_id, correct_bets,
			       RANK() OVER (PARTITION BY week_number ORDER BY correct_bets DESC) AS week_rank
			FROM weekly
		),
		won AS (
			SELECT user_id, COUNT(*) FILTER (WHERE week_rank = 1 AND correct_bets > 0) AS weeks_won
			FROM ranked
			GROUP BY user_id
		)
		SELECT RANK() OVER (ORDER BY won.weeks_won DESC)::INT AS rank_number,
		       won.user_id,
		       u.first_name,
		       won.weeks_won::INT
		FROM won
		JOIN users u ON u.id = won.user_id
		ORDER BY rank_number, won.user_id
	`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get season standings: %w", err)
	}
	defer rows.Close()

	var standings []*model.SeasonStanding
	for rows.Next() {
		var s model.SeasonStanding
		if err := rows.Scan(&s.Rank, &s.UserID, &s.FirstName, &s.WeeksWon); err != nil {
			return nil, fmt.Errorf("failed to scan season standing: %w", err)
		}
		standings = append(standings, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season standings: %w", err)
	}
	return standings, nil
}

// CurrentWeekNumber returns the latest week that has started by today, or 0.
func (r *StandingsRepository) CurrentWeekNumber(ctx context.Context, chatID int64, today time.Time) (int, error) {
	const query = `SELECT COALESCE(MAX(week_number), 0) FROM weeks WHERE chat_id = $1 AND start_date <= $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, chatID, today).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to get current week: %w", err)
	}
	return n, nil
}
