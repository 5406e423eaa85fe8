package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// ErrWeekNotFound is returned when a chat has no week yet.
var ErrWeekNotFound = errors.New("week not found")

const weekColumns = `id, chat_id, week_number, start_date, end_date, slate_published, created_at`

// WeekRepository handles betting week persistence.
type WeekRepository struct {
	pool *pgxpool.Pool
}

// NewWeekRepository creates a new WeekRepository instance.
func NewWeekRepository(pool *pgxpool.Pool) *WeekRepository {
	return &WeekRepository{pool: pool}
}

func scanWeek(row pgx.Row) (*model.Week, error) {
	var w model.Week
	err := row.Scan(&w.ID, &w.ChatID, &w.WeekNumber, &w.StartDate, &w.EndDate, &w.SlatePublished, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Latest returns the week with the greatest end date; later inserts win ties.
func (r *WeekRepository) Latest(ctx context.Context, chatID int64) (*model.Week, error) {
	const query = `
		SELECT ` + weekColumns + `
		FROM weeks
		WHERE chat_id = $1
		ORDER BY end_date DESC, id DESC
		LIMIT 1
	`

	w, err := scanWeek(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWeekNotFound
		}
		return nil, fmt.Errorf("failed to get latest week: %w", err)
	}
	return w, nil
}

// Insert stores a new week. A concurrent insert of the same week number
// loses the unique constraint race and gets (nil, false, nil).
func (r *WeekRepository) Insert(ctx context.Context, week *model.Week) (*model.Week, bool, error) {
	const query = `
		INSERT INTO weeks (chat_id, week_number, start_date, end_date, slate_published, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (chat_id, week_number) DO NOTHING
		RETURNING ` + weekColumns

	w, err := scanWeek(r.pool.QueryRow(ctx, query,
		week.ChatID, week.WeekNumber, week.StartDate, week.EndDate, week.SlatePublished))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert week: %w", err)
	}
	return w, true, nil
}

// MarkSlatePublished records that every slate poll of the week went out.
func (r *WeekRepository) MarkSlatePublished(ctx context.Context, weekID int64) error {
	const query = `UPDATE weeks SET slate_published = TRUE WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, weekID)
	if err != nil {
		return fmt.Errorf("failed to mark slate published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrWeekNotFound
	}
	return nil
}

// SaveSlate records the games chosen for a week in order.
// A slate already saved for the week is kept as is.
func (r *WeekRepository) SaveSlate(ctx context.Context, weekID int64, gameIDs []int64) error {
	const query = `
		INSERT INTO week_games (week_id, game_id, position)
		SELECT $1::BIGINT, t.game_id, t.position
		FROM unnest($2::BIGINT[]) WITH ORDINALITY AS t(game_id, position)
		WHERE NOT EXISTS (SELECT 1 FROM week_games WHERE week_id = $1::BIGINT)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, weekID, gameIDs); err != nil {
		return fmt.Errorf("failed to save week slate: %w", err)
	}
	return nil
}

// SlateGames returns the week's saved games in selection order.
func (r *WeekRepository) SlateGames(ctx context.Context, weekID int64) ([]model.Game, error) {
	rows, err := r.pool.Query(ctx,
		gameSelect+` JOIN week_games wg ON wg.game_id = g.id WHERE wg.week_id = $1 ORDER BY wg.position`,
		weekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list week slate: %w", err)
	}
	return collectGames(rows)
}
