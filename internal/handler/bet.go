package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"betting-season-bot/internal/model"
	"betting-season-bot/internal/service"
)

// BetRecorder records a poll answer as a bet.
type BetRecorder interface {
	RecordBet(ctx context.Context, pollID string, user *model.User, option int) (bool, error)
}

// BetHandler turns poll answers into bets.
type BetHandler struct {
	bets    BetRecorder
	timeout time.Duration
}

// NewBetHandler creates a new BetHandler.
func NewBetHandler(bets BetRecorder, timeout time.Duration) *BetHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BetHandler{bets: bets, timeout: timeout}
}

// HandlePollAnswer handles OnPollAnswer updates.
// Retracted votes carry no options and are ignored.
func (h *BetHandler) HandlePollAnswer(c tele.Context) error {
	answer := c.PollAnswer()
	if answer == nil || answer.Sender == nil || len(answer.Options) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	user := userFromSender(answer.Sender)
	recorded, err := h.bets.RecordBet(ctx, answer.PollID, user, answer.Options[0])

	logEvent := log.Debug()
	switch {
	case errors.Is(err, service.ErrUnknownPoll):
	case errors.Is(err, service.ErrInvalidOption):
		logEvent = log.Warn()
	case err != nil:
		logEvent = log.Error()
	}
	logEvent.Err(err).
		Str("poll_id", answer.PollID).
		Int64("user_id", user.ID).
		Int("option", answer.Options[0]).
		Bool("recorded", recorded).
		Msg("Poll answer processed")
	return nil
}

func userFromSender(u *tele.User) *model.User {
	return &model.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}
