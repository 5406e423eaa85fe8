// Package model defines the data models for the betting season bot.
package model

import "time"

// ChatStatus is the persisted lifecycle status of a chat's season.
// A removed chat has no row at all.
type ChatStatus string

// Chat statuses stored in the chats table.
const (
	ChatStatusSetup  ChatStatus = "setup"
	ChatStatusActive ChatStatus = "active"
)

// Chat represents a Telegram group that plays a season.
type Chat struct {
	ID        int64      `db:"id"`
	Status    ChatStatus `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
}

// IsActive reports whether the chat's season is running.
func (c *Chat) IsActive() bool {
	return c != nil && c.Status == ChatStatusActive
}

// Week is one betting week of a chat's season.
// StartDate and EndDate are league-local calendar dates stored at midnight UTC.
type Week struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	WeekNumber     int       `db:"week_number"`
	StartDate      time.Time `db:"start_date"`
	EndDate        time.Time `db:"end_date"`
	SlatePublished bool      `db:"slate_published"`
	CreatedAt      time.Time `db:"created_at"`
}

// Team holds the season strength figures used to rank matchups.
type Team struct {
	ID     int64   `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Wins   int     `db:"wins" json:"wins"`
	Losses int     `db:"losses" json:"losses"`
	SRS    float64 `db:"srs" json:"srs"`
}

// WinFraction returns wins over games played, or 0.5 before the first game.
func (t Team) WinFraction() float64 {
	played := t.Wins + t.Losses
	if played == 0 {
		return 0.5
	}
	return float64(t.Wins) / float64(played)
}

// Competitive reports whether the team has a positive rating or a winning record.
func (t Team) Competitive() bool {
	return t.SRS > 0 || t.Wins > t.Losses
}

// Game is a scheduled matchup supplied by the ingestion pipeline.
// Points stay nil until the game is finished.
type Game struct {
	ID             int64     `db:"id" json:"id"`
	Away           Team      `json:"away"`
	Home           Team      `json:"home"`
	ScheduledStart time.Time `db:"scheduled_start" json:"scheduled_start"`
	AwayPoints     *int      `db:"away_points" json:"away_points,omitempty"`
	HomePoints     *int      `db:"home_points" json:"home_points,omitempty"`
}

// AwayTeamID returns the id of the visiting team.
func (g Game) AwayTeamID() int64 { return g.Away.ID }

// HomeTeamID returns the id of the home team.
func (g Game) HomeTeamID() int64 { return g.Home.ID }

// Poll is a published Telegram poll for one game in one chat.
// ID is the Telegram poll id, LocalID the message id inside the chat.
type Poll struct {
	ID       string    `db:"id"`
	LocalID  int       `db:"local_id"`
	ChatID   int64     `db:"chat_id"`
	GameID   int64     `db:"game_id"`
	WeekID   int64     `db:"week_id"`
	SentDate time.Time `db:"sent_date"`
	IsOpen   bool      `db:"is_open"`
}

// Bet is a user's pick for one game in one chat.
type Bet struct {
	GameID       int64     `db:"game_id"`
	ChatID       int64     `db:"chat_id"`
	UserID       int64     `db:"user_id"`
	ChosenTeamID int64     `db:"chosen_team_id"`
	PollID       string    `db:"poll_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// User is a Telegram user that has answered at least one poll.
type User struct {
	ID           int64     `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Username     string    `db:"username"`
	LanguageCode string    `db:"language_code"`
	CreatedAt    time.Time `db:"created_at"`
}

// DisplayName returns the best available human-readable name.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "X"
	}
}

// WeekStanding is one row of a week's leaderboard.
type WeekStanding struct {
	Rank          int    `db:"rank_number"`
	UserID        int64  `db:"user_id"`
	FirstName     string `db:"first_name"`
	CorrectBets   int    `db:"correct_bets"`
	FinishedGames int    `db:"finished_games"`
}

// SeasonStanding is one row of the season leaderboard.
type SeasonStanding struct {
	Rank      int    `db:"rank_number"`
	UserID    int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	WeeksWon  int    `db:"weeks_won"`
}
