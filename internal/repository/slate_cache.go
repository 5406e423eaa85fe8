package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// SlateCacheRepository keeps short-lived copies of candidate pools in a JSONB table.
type SlateCacheRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewSlateCacheRepository creates a new SlateCacheRepository instance.
func NewSlateCacheRepository(pool *pgxpool.Pool) *SlateCacheRepository {
	return &SlateCacheRepository{pool: pool, now: time.Now}
}

// Get returns the cached games for key if the entry has not expired.
func (r *SlateCacheRepository) Get(ctx context.Context, key string) ([]model.Game, bool, error) {
	const query = `SELECT games FROM slate_cache WHERE cache_key = $1 AND expires_at > $2`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, key, r.now()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read slate cache: %w", err)
	}

	var games []model.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, false, fmt.Errorf("failed to decode slate cache: %w", err)
	}
	return games, true, nil
}

// Put stores games under key for ttl, replacing any previous entry.
func (r *SlateCacheRepository) Put(ctx context.Context, key string, games []model.Game, ttl time.Duration) error {
	const query = `
		INSERT INTO slate_cache (cache_key, games, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET games = EXCLUDED.games, expires_at = EXCLUDED.expires_at
	`

	raw, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("failed to encode slate cache: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, key, string(raw), r.now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to write slate cache: %w", err)
	}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (r *SlateCacheRepository) Purge(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM slate_cache WHERE expires_at <= $1`, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge slate cache: %w", err)
	}
	return result.RowsAffected(), nil
}
