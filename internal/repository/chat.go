// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
	"betting-season-bot/internal/pkg/db"
)

// ErrChatNotFound is returned when a chat row does not exist.
var ErrChatNotFound = errors.New("chat not found")

// ChatRepository handles chat persistence.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository instance.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// GetByID retrieves a chat by id.
func (r *ChatRepository) GetByID(ctx context.Context, chatID int64) (*model.Chat, error) {
	const query = `SELECT id, status, created_at FROM chats WHERE id = $1`

	var chat model.Chat
	err := r.pool.QueryRow(ctx, query, chatID).Scan(&chat.ID, &chat.Status, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

// GetOrCreate returns the chat, inserting it in setup status on first contact.
// The boolean reports whether the row was created by this call.
func (r *ChatRepository) GetOrCreate(ctx context.Context, chatID int64) (*model.Chat, bool, error) {
	const insert = `
		INSERT INTO chats (id, status, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING id, status, created_at
	`

	var chat model.Chat
	err := r.pool.QueryRow(ctx, insert, chatID, model.ChatStatusSetup).Scan(&chat.ID, &chat.Status, &chat.CreatedAt)
	if err == nil {
		return &chat, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create chat: %w", err)
	}

	existing, err := r.GetByID(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SetStatus updates a chat's season status.
func (r *ChatRepository) SetStatus(ctx context.Context, chatID int64, status model.ChatStatus) error {
	const query = `UPDATE chats SET status = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, chatID, status)
	if err != nil {
		return fmt.Errorf("failed to set chat status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ListActive returns the ids of all chats with a running season.
func (r *ChatRepository) ListActive(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM chats WHERE status = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, model.ChatStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active chats: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return ids, nil
}

// Remove deletes the chat and every bet, poll and week it owns.
func (r *ChatRepository) Remove(ctx context.Context, chatID int64) error {
	statements := []string{
		`DELETE FROM bets WHERE chat_id = $1`,
		`DELETE FROM polls WHERE chat_id = $1`,
		`DELETE FROM weeks WHERE chat_id = $1`,
		`DELETE FROM chats WHERE id = $1`,
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, chatID); err != nil {
				return fmt.Errorf("failed to remove chat: %w", err)
			}
		}
		return nil
	})
}
