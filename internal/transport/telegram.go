// Package transport implements the chat transport on top of the Telegram Bot API.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"betting-season-bot/internal/service"
)

// API is the subset of *tele.Bot used by Telegram.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	StopPoll(msg tele.Editable, opts ...interface{}) (*tele.Poll, error)
	AdminsOf(chat *tele.Chat) ([]tele.ChatMember, error)
}

// Options configures throttling and timeouts.
type Options struct {
	// RatePerSec caps outgoing calls across all chats.
	RatePerSec  int
	CallTimeout time.Duration
}

// Telegram sends polls and messages through the Bot API.
// Every call waits for the shared rate limiter and is bounded by CallTimeout.
type Telegram struct {
	api     API
	limiter *rate.Limiter
	timeout time.Duration
}

var _ service.Transport = (*Telegram)(nil)

// NewTelegram creates a Telegram transport.
func NewTelegram(api API, opts Options) *Telegram {
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
	}
}

// SendPoll publishes a non-anonymous two-option poll without notification.
func (t *Telegram) SendPoll(ctx context.Context, chatID int64, question string, options [2]string) (service.PublishedPoll, error) {
	poll := &tele.Poll{
		Type:      tele.PollRegular,
		Question:  question,
		Anonymous: false,
	}
	poll.AddOptions(options[0], options[1])

	var msg *tele.Message
	err := t.call(ctx, "send_poll", func() error {
		var err error
		msg, err = t.api.Send(&tele.Chat{ID: chatID}, poll, tele.Silent)
		return err
	})
	if err != nil {
		return service.PublishedPoll{}, err
	}
	if msg == nil || msg.Poll == nil {
		return service.PublishedPoll{}, &service.TransportError{
			Kind: service.TransportRetryable,
			Op:   "send_poll",
			Err:  errors.New("response carries no poll"),
		}
	}
	return service.PublishedPoll{ID: msg.Poll.ID, LocalID: msg.ID}, nil
}

// ClosePoll stops the poll sent as message localID. A poll that is already
// closed counts as closed.
func (t *Telegram) ClosePoll(ctx context.Context, chatID int64, localID int) error {
	err := t.call(ctx, "close_poll", func() error {
		_, err := t.api.StopPoll(tele.StoredMessage{MessageID: strconv.Itoa(localID), ChatID: chatID})
		if err != nil && strings.Contains(err.Error(), "poll has already been closed") {
			return nil
		}
		return err
	})
	return err
}

// GetAdmins returns the user ids of the chat's administrators.
func (t *Telegram) GetAdmins(ctx context.Context, chatID int64) ([]int64, error) {
	var members []tele.ChatMember
	err := t.call(ctx, "get_admins", func() error {
		var err error
		members, err = t.api.AdminsOf(&tele.Chat{ID: chatID})
		return err
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

// SendMessage sends a plain text message.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	return t.call(ctx, "send_message", func() error {
		_, err := t.api.Send(&tele.Chat{ID: chatID}, text)
		return err
	})
}

// call waits for the limiter and runs fn, giving up after the call timeout.
// fn keeps running in the background after a timeout; its result is dropped.
func (t *Telegram) call(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return &service.TransportError{Kind: service.TransportRetryable, Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return Classify(op, err)
	case <-ctx.Done():
		return &service.TransportError{Kind: service.TransportRetryable, Op: op, Err: ctx.Err()}
	}
}

// chatGoneErrors are Bot API failures after which the chat will never accept the bot again.
var chatGoneErrors = []error{
	tele.ErrChatNotFound,
	tele.ErrKickedFromGroup,
	tele.ErrKickedFromSuperGroup,
	tele.ErrKickedFromChannel,
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrNotChannelMember,
	tele.ErrNoRightsToSend,
}

// chatGoneDescriptions match errors telebot leaves unparsed.
var chatGoneDescriptions = []string{
	"message with poll to stop not found",
	"bot is not a member",
	"have no rights to send",
}

// Classify maps a Bot API error to a *service.TransportError. Nil stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := service.TransportRetryable
	if isChatGone(err) {
		kind = service.TransportChatGone
	}
	return &service.TransportError{Kind: kind, Op: op, Err: err}
}

func isChatGone(err error) bool {
	for _, target := range chatGoneErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	// A migrated group has a new chat id; the old one is gone for good.
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return true
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return false
	}

	msg := err.Error()
	for _, d := range chatGoneDescriptions {
		if strings.Contains(msg, d) {
			return true
		}
	}
	return false
}
