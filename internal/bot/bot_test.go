package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"betting-season-bot/internal/config"
	"betting-season-bot/internal/model"
)

type routedCalls struct {
	mu       sync.Mutex
	messages []string
	answers  []string
}

func (r *routedCalls) HandleMessage(_ context.Context, _, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *routedCalls) RecordBet(_ context.Context, pollID string, _ *model.User, _ int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, pollID)
	return true, nil
}

func TestBotRoutesUpdates(t *testing.T) {
	api := offlineBot(t)
	calls := &routedCalls{}
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}

	_, err := New(&Dependencies{Config: cfg, API: api, Season: calls, Bets: calls})
	require.NoError(t, err)

	group := &tele.Chat{ID: -100, Type: tele.ChatGroup}
	other := &tele.Chat{ID: -200, Type: tele.ChatGroup}
	user := &tele.User{ID: 3}

	api.ProcessUpdate(tele.Update{Message: &tele.Message{Text: "/start", Chat: group, Sender: user}})
	api.ProcessUpdate(tele.Update{Message: &tele.Message{Text: "/2", Chat: group, Sender: user}})
	api.ProcessUpdate(tele.Update{Message: &tele.Message{Text: "hello", Chat: group, Sender: user}})
	api.ProcessUpdate(tele.Update{Message: &tele.Message{Text: "/start", Chat: other, Sender: user}})
	api.ProcessUpdate(tele.Update{PollAnswer: &tele.PollAnswer{PollID: "p1", Sender: user, Options: []int{1}}})

	assert.Equal(t, []string{"/start", "/2", "hello"}, calls.messages)
	assert.Equal(t, []string{"p1"}, calls.answers)
}

func TestNewAPIRequiresToken(t *testing.T) {
	_, err := NewAPI(&config.BotConfig{})
	assert.Error(t, err)
}

func TestUsername(t *testing.T) {
	api := offlineBot(t)
	api.Me.Username = "SeasonBot"

	assert.Equal(t, "Configured", Username(&config.BotConfig{Username: "Configured"}, api))
	assert.Equal(t, "SeasonBot", Username(&config.BotConfig{}, api))
}
