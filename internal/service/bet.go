package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/model"
	"betting-season-bot/internal/repository"
)

// BetService turns poll answers into bets.
type BetService struct {
	polls PollStore
	games GameStore
	users UserStore
	bets  BetStore
}

// NewBetService creates a new BetService instance.
func NewBetService(polls PollStore, games GameStore, users UserStore, bets BetStore) *BetService {
	return &BetService{
		polls: polls,
		games: games,
		users: users,
		bets:  bets,
	}
}

// RecordBet stores the user's pick for the poll's game.
// Option 0 is the away team, option 1 the home team.
// A repeated answer by the same user is accepted as a no-op and returns false.
// Answers are accepted whether or not the poll is still open.
func (s *BetService) RecordBet(ctx context.Context, pollID string, user *model.User, option int) (bool, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			metrics.Bets.WithLabelValues("unknown_poll").Inc()
			return false, fmt.Errorf("%w: %s", ErrUnknownPoll, pollID)
		}
		metrics.Bets.WithLabelValues("error").Inc()
		return false, storeErr("get poll", err)
	}

	if option != 0 && option != 1 {
		metrics.Bets.WithLabelValues("invalid_option").Inc()
		return false, fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}

	game, err := s.games.GetByID(ctx, poll.GameID)
	if err != nil {
		metrics.Bets.WithLabelValues("error").Inc()
		return false, storeErr("get game", err)
	}

	chosen := game.AwayTeamID()
	if option == 1 {
		chosen = game.HomeTeamID()
	}

	if _, err := s.users.EnsureUser(ctx, user); err != nil {
		metrics.Bets.WithLabelValues("error").Inc()
		return false, storeErr("ensure user", err)
	}

	recorded, err := s.bets.InsertIfAbsent(ctx, &model.Bet{
		GameID:       poll.GameID,
		ChatID:       poll.ChatID,
		UserID:       user.ID,
		ChosenTeamID: chosen,
		PollID:       poll.ID,
	})
	if err != nil {
		metrics.Bets.WithLabelValues("error").Inc()
		return false, storeErr("insert bet", err)
	}

	if !recorded {
		metrics.Bets.WithLabelValues("duplicate").Inc()
		log.Debug().Str("poll_id", pollID).Int64("user_id", user.ID).Msg("Duplicate answer ignored")
		return false, nil
	}

	metrics.Bets.WithLabelValues("recorded").Inc()
	log.Info().
		Int64("chat_id", poll.ChatID).
		Int64("game_id", poll.GameID).
		Int64("user_id", user.ID).
		Int64("team_id", chosen).
		Msg("Bet recorded")
	return true, nil
}
