package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"betting-season-bot/internal/model"
)

// DefaultLanguageCode is stored when Telegram does not report a language.
const DefaultLanguageCode = "en"

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EnsureUser inserts the user if absent. Existing rows are left untouched.
// Returns true when the row was created by this call.
func (r *UserRepository) EnsureUser(ctx context.Context, user *model.User) (bool, error) {
	const query = `
		INSERT INTO users (id, first_name, last_name, username, language_code, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO NOTHING
	`

	lang := user.LanguageCode
	if lang == "" {
		lang = DefaultLanguageCode
	}

	result, err := r.pool.Exec(ctx, query, user.ID, user.FirstName, user.LastName, user.Username, lang)
	if err != nil {
		return false, fmt.Errorf("failed to ensure user: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
