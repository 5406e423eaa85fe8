package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// ErrPollNotFound is returned when no poll has the given Telegram id.
var ErrPollNotFound = errors.New("poll not found")

const pollColumns = `id, local_id, chat_id, game_id, week_id, sent_date, is_open`

// PollRepository handles published poll persistence.
type PollRepository struct {
	pool *pgxpool.Pool
}

// NewPollRepository creates a new PollRepository instance.
func NewPollRepository(pool *pgxpool.Pool) *PollRepository {
	return &PollRepository{pool: pool}
}

func scanPoll(row pgx.Row) (*model.Poll, error) {
	var p model.Poll
	if err := row.Scan(&p.ID, &p.LocalID, &p.ChatID, &p.GameID, &p.WeekID, &p.SentDate, &p.IsOpen); err != nil {
		return nil, err
	}
	return &p, nil
}

// Exists reports whether the chat already has a poll for the game.
func (r *PollRepository) Exists(ctx context.Context, chatID, gameID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM polls WHERE chat_id = $1 AND game_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, chatID, gameID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check poll existence: %w", err)
	}
	return exists, nil
}

// InsertIfAbsent stores the poll unless the chat already has one for the game.
func (r *PollRepository) InsertIfAbsent(ctx context.Context, poll *model.Poll) (bool, error) {
	const query = `
		INSERT INTO polls (id, local_id, chat_id, game_id, week_id, sent_date, is_open)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		poll.ID, poll.LocalID, poll.ChatID, poll.GameID, poll.WeekID, poll.SentDate)
	if err != nil {
		return false, fmt.Errorf("failed to insert poll: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// GetByID retrieves a poll by its Telegram poll id.
func (r *PollRepository) GetByID(ctx context.Context, pollID string) (*model.Poll, error) {
	const query = `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	p, err := scanPoll(r.pool.QueryRow(ctx, query, pollID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return p, nil
}

// OpenExpired returns the chat's open polls whose game has already started.
func (r *PollRepository) OpenExpired(ctx context.Context, chatID int64, now time.Time) ([]*model.Poll, error) {
	const query = `
		SELECT p.id, p.local_id, p.chat_id, p.game_id, p.week_id, p.sent_date, p.is_open
		FROM polls p
		JOIN games g ON g.id = p.game_id
		WHERE p.chat_id = $1 AND p.is_open AND g.scheduled_start <= $2
		ORDER BY g.scheduled_start, p.id
	`

	rows, err := r.pool.Query(ctx, query, chatID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired polls: %w", err)
	}
	defer rows.Close()

	var polls []*model.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, nil
}

// MarkClosed flips an open poll to closed. Returns false if it was already closed.
func (r *PollRepository) MarkClosed(ctx context.Context, pollID string) (bool, error) {
	const query = `UPDATE polls SET is_open = FALSE WHERE id = $1 AND is_open`

	result, err := r.pool.Exec(ctx, query, pollID)
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
