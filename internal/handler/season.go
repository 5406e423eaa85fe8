// Package handler provides Telegram bot update handlers.
package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// MessageProcessor feeds chat text into the season dialogue.
type MessageProcessor interface {
	HandleMessage(ctx context.Context, chatID, senderID int64, text string) error
}

// SeasonHandler routes every text message and command to the season dialogue.
type SeasonHandler struct {
	season  MessageProcessor
	timeout time.Duration
}

// NewSeasonHandler creates a new SeasonHandler.
func NewSeasonHandler(season MessageProcessor, timeout time.Duration) *SeasonHandler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SeasonHandler{season: season, timeout: timeout}
}

// HandleText handles OnText updates, which include every command.
func (h *SeasonHandler) HandleText(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.season.HandleMessage(ctx, chat.ID, sender.ID, c.Text()); err != nil {
		log.Error().Err(err).
			Int64("chat_id", chat.ID).
			Int64("user_id", sender.ID).
			Msg("Failed to handle message")
	}
	return nil
}
