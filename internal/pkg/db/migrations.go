package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migration is one idempotent schema step.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "chats table",
		sql: `
		CREATE TABLE IF NOT EXISTS chats (
			id BIGINT PRIMARY KEY,
			status VARCHAR(16) NOT NULL DEFAULT 'setup',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_chats_status ON chats(status);
	`,
	},
	{
		name: "teams and games tables",
		sql: `
		CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			wins INT NOT NULL DEFAULT 0,
			losses INT NOT NULL DEFAULT 0,
			srs DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			away_team_id BIGINT NOT NULL REFERENCES teams(id),
			home_team_id BIGINT NOT NULL REFERENCES teams(id),
			scheduled_start TIMESTAMPTZ NOT NULL,
			away_points INT,
			home_points INT,
			UNIQUE (away_team_id, home_team_id, scheduled_start)
		);
		CREATE INDEX IF NOT EXISTS idx_games_start ON games(scheduled_start);
	`,
	},
	{
		name: "weeks table",
		sql: `
		CREATE TABLE IF NOT EXISTS weeks (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			week_number INT NOT NULL CHECK (week_number >= 1),
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			slate_published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_date > start_date),
			UNIQUE (chat_id, week_number)
		);
		CREATE INDEX IF NOT EXISTS idx_weeks_chat_end ON weeks(chat_id, end_date DESC);
	`,
	},
	{
		name: "polls table",
		sql: `
		CREATE TABLE IF NOT EXISTS polls (
			id VARCHAR(64) PRIMARY KEY,
			local_id INT NOT NULL,
			chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id),
			week_id BIGINT NOT NULL REFERENCES weeks(id) ON DELETE CASCADE,
			sent_date DATE NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (chat_id, game_id)
		);
		CREATE INDEX IF NOT EXISTS idx_polls_open ON polls(chat_id) WHERE is_open;
	`,
	},
	{
		name: "users and bets tables",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			username VARCHAR(255) NOT NULL DEFAULT '',
			language_code VARCHAR(16) NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS bets (
			game_id BIGINT NOT NULL REFERENCES games(id),
			chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id),
			chosen_team_id BIGINT NOT NULL REFERENCES teams(id),
			poll_id VARCHAR(64) NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (game_id, chat_id, user_id),
			UNIQUE (poll_id, user_id)
		);
	`,
	},
	{
		name: "slate cache table",
		sql: `
		CREATE TABLE IF NOT EXISTS slate_cache (
			cache_key VARCHAR(128) PRIMARY KEY,
			games JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_slate_cache_expires ON slate_cache(expires_at);
	`,
	},
	{
		name: "week games table",
		sql: `
		CREATE TABLE IF NOT EXISTS week_games (
			week_id BIGINT NOT NULL REFERENCES weeks(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id),
			position INT NOT NULL,
			PRIMARY KEY (week_id, game_id)
		);
	`,
	},
}

// Migrate applies the schema. Every step is idempotent, so it runs on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
