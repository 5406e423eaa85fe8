package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/model"
)

// ErrGameNotFound is returned when a game id is unknown.
var ErrGameNotFound = errors.New("game not found")

const gameSelect = `
	SELECT g.id, g.scheduled_start, g.away_points, g.home_points,
	       a.id, a.name, a.wins, a.losses, a.srs,
	       h.id, h.name, h.wins, h.losses, h.srs
	FROM games g
	JOIN teams a ON a.id = g.away_team_id
	JOIN teams h ON h.id = g.home_team_id
`

// GameRepository reads and writes ingested teams and games.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	err := row.Scan(
		&g.ID, &g.ScheduledStart, &g.AwayPoints, &g.HomePoints,
		&g.Away.ID, &g.Away.Name, &g.Away.Wins, &g.Away.Losses, &g.Away.SRS,
		&g.Home.ID, &g.Home.Name, &g.Home.Wins, &g.Home.Losses, &g.Home.SRS,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetByID retrieves a game with both teams.
func (r *GameRepository) GetByID(ctx context.Context, gameID int64) (*model.Game, error) {
	g, err := scanGame(r.pool.QueryRow(ctx, gameSelect+` WHERE g.id = $1`, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// CandidateGames returns every game whose league date lies in [start, end].
func (r *GameRepository) CandidateGames(ctx context.Context, start, end time.Time) ([]model.Game, error) {
	from := league.StartOf(start)
	until := league.StartOf(end.AddDate(0, 0, 1))

	rows, err := r.pool.Query(ctx,
		gameSelect+` WHERE g.scheduled_start >= $1 AND g.scheduled_start < $2 ORDER BY g.scheduled_start, g.id`,
		from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate games: %w", err)
	}
	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]model.Game, error) {
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// UpsertTeam inserts or refreshes a team's season figures by name.
func (r *GameRepository) UpsertTeam(ctx context.Context, team *model.Team) (*model.Team, error) {
	const query = `
		INSERT INTO teams (name, wins, losses, srs)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET wins = EXCLUDED.wins, losses = EXCLUDED.losses, srs = EXCLUDED.srs
		RETURNING id, name, wins, losses, srs
	`

	var t model.Team
	err := r.pool.QueryRow(ctx, query, team.Name, team.Wins, team.Losses, team.SRS).
		Scan(&t.ID, &t.Name, &t.Wins, &t.Losses, &t.SRS)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert team: %w", err)
	}
	return &t, nil
}

// UpsertGame inserts a game or updates its scores. Teams must already exist.
func (r *GameRepository) UpsertGame(ctx context.Context, game *model.Game) (int64, error) {
	const query = `
		INSERT INTO games (away_team_id, home_team_id, scheduled_start, away_points, home_points)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (away_team_id, home_team_id, scheduled_start) DO UPDATE
		SET away_points = EXCLUDED.away_points, home_points = EXCLUDED.home_points
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		game.Away.ID, game.Home.ID, game.ScheduledStart, game.AwayPoints, game.HomePoints).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert game: %w", err)
	}
	return id, nil
}
