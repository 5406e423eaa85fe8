package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// BetRepository handles bet persistence.
type BetRepository struct {
	pool *pgxpool.Pool
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(pool *pgxpool.Pool) *BetRepository {
	return &BetRepository{pool: pool}
}

// InsertIfAbsent stores the bet unless the user already picked this game
// in this chat. The first pick wins.
func (r *BetRepository) InsertIfAbsent(ctx context.Context, bet *model.Bet) (bool, error) {
	const query = `
		INSERT INTO bets (game_id, chat_id, user_id, chosen_team_id, poll_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, bet.GameID, bet.ChatID, bet.UserID, bet.ChosenTeamID, bet.PollID)
	if err != nil {
		return false, fmt.Errorf("failed to insert bet: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
