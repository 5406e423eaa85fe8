package service

import (
	"context"
	"time"

	"betting-season-bot/internal/model"
)

// PublishedPoll identifies a poll the transport created.
type PublishedPoll struct {
	ID      string
	LocalID int
}

// Transport sends and closes polls and messages in a chat.
// Failures are reported as *TransportError.
type Transport interface {
	SendPoll(ctx context.Context, chatID int64, question string, options [2]string) (PublishedPoll, error)
	ClosePoll(ctx context.Context, chatID int64, localID int) error
	GetAdmins(ctx context.Context, chatID int64) ([]int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ChatStore persists chats and their season status.
type ChatStore interface {
	GetOrCreate(ctx context.Context, chatID int64) (*model.Chat, bool, error)
	SetStatus(ctx context.Context, chatID int64, status model.ChatStatus) error
	ListActive(ctx context.Context) ([]int64, error)
	Remove(ctx context.Context, chatID int64) error
}

// WeekStore persists betting weeks.
type WeekStore interface {
	// Latest returns the week with the greatest end date, or repository.ErrWeekNotFound.
	Latest(ctx context.Context, chatID int64) (*model.Week, error)
	// Insert stores a new week. It returns false when the week number already exists.
	Insert(ctx context.Context, week *model.Week) (*model.Week, bool, error)
	MarkSlatePublished(ctx context.Context, weekID int64) error
}

// WeekSlateStore remembers which games were chosen for a week.
type WeekSlateStore interface {
	// SaveSlate records the week's games in order. A slate already saved for the week is kept.
	SaveSlate(ctx context.Context, weekID int64, gameIDs []int64) error
	// SlateGames returns the saved games in order, or nothing if no slate was saved.
	SlateGames(ctx context.Context, weekID int64) ([]model.Game, error)
}

// PollStore persists published polls.
type PollStore interface {
	Exists(ctx context.Context, chatID, gameID int64) (bool, error)
	// InsertIfAbsent stores the poll unless one exists for its (chat, game).
	InsertIfAbsent(ctx context.Context, poll *model.Poll) (bool, error)
	// GetByID returns the poll or repository.ErrPollNotFound.
	GetByID(ctx context.Context, pollID string) (*model.Poll, error)
	OpenExpired(ctx context.Context, chatID int64, now time.Time) ([]*model.Poll, error)
	// MarkClosed flips is_open to false; it returns false if the poll was already closed.
	MarkClosed(ctx context.Context, pollID string) (bool, error)
}

// BetStore persists bets.
type BetStore interface {
	// InsertIfAbsent stores the bet unless the user already bet on that poll.
	InsertIfAbsent(ctx context.Context, bet *model.Bet) (bool, error)
}

// UserStore persists bettors.
type UserStore interface {
	EnsureUser(ctx context.Context, user *model.User) (bool, error)
}

// GameStore reads ingested games.
type GameStore interface {
	// GetByID returns the game or repository.ErrGameNotFound.
	GetByID(ctx context.Context, gameID int64) (*model.Game, error)
}

// CandidateSource supplies the pool of games for a window. Freshness is not guaranteed.
type CandidateSource interface {
	CandidateGames(ctx context.Context, start, end time.Time) ([]model.Game, error)
}

// SlateCache is a short-lived fallback copy of a candidate pool.
type SlateCache interface {
	Get(ctx context.Context, key string) ([]model.Game, bool, error)
	Put(ctx context.Context, key string, games []model.Game, ttl time.Duration) error
}

// StandingsStore computes leaderboards.
type StandingsStore interface {
	WeekStandings(ctx context.Context, chatID int64, weekNumber int) ([]*model.WeekStanding, error)
	SeasonStandings(ctx context.Context, chatID int64) ([]*model.SeasonStanding, error)
	// CurrentWeekNumber returns the latest week whose start date is not in the future, or 0.
	CurrentWeekNumber(ctx context.Context, chatID int64, today time.Time) (int, error)
}
