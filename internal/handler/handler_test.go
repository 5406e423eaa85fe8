package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"betting-season-bot/internal/model"
	"betting-season-bot/internal/service"
)

type recordedMessage struct {
	chatID, senderID int64
	text             string
}

type fakeSeason struct {
	got []recordedMessage
	err error
}

func (f *fakeSeason) HandleMessage(_ context.Context, chatID, senderID int64, text string) error {
	f.got = append(f.got, recordedMessage{chatID, senderID, text})
	return f.err
}

type recordedBet struct {
	pollID string
	user   *model.User
	option int
}

type fakeBets struct {
	got []recordedBet
	err error
}

func (f *fakeBets) RecordBet(_ context.Context, pollID string, user *model.User, option int) (bool, error) {
	f.got = append(f.got, recordedBet{pollID, user, option})
	return f.err == nil, f.err
}

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b
}

func TestHandleTextRoutesToSeason(t *testing.T) {
	b := newOfflineBot(t)
	season := &fakeSeason{}
	h := NewSeasonHandler(season, 0)

	c := b.NewContext(tele.Update{Message: &tele.Message{
		Text:   "/start",
		Chat:   &tele.Chat{ID: -100, Type: tele.ChatGroup},
		Sender: &tele.User{ID: 7},
	}})
	require.NoError(t, h.HandleText(c))
	require.Len(t, season.got, 1)
	assert.Equal(t, recordedMessage{-100, 7, "/start"}, season.got[0])

	season.err = service.ErrStore
	assert.NoError(t, h.HandleText(c))
}

func TestHandleTextWithoutSender(t *testing.T) {
	b := newOfflineBot(t)
	season := &fakeSeason{}
	h := NewSeasonHandler(season, 0)

	c := b.NewContext(tele.Update{Message: &tele.Message{Text: "hi", Chat: &tele.Chat{ID: -100}}})
	require.NoError(t, h.HandleText(c))
	assert.Empty(t, season.got)
}

func TestHandlePollAnswer(t *testing.T) {
	b := newOfflineBot(t)
	sender := &tele.User{ID: 9, FirstName: "Ann", Username: "ann", LanguageCode: "fr"}

	tests := []struct {
		name    string
		answer  *tele.PollAnswer
		err     error
		want    int
		wantOpt int
	}{
		{"single option", &tele.PollAnswer{PollID: "p1", Sender: sender, Options: []int{1}}, nil, 1, 1},
		{"first of several", &tele.PollAnswer{PollID: "p1", Sender: sender, Options: []int{0, 1}}, nil, 1, 0},
		{"retraction", &tele.PollAnswer{PollID: "p1", Sender: sender}, nil, 0, 0},
		{"no sender", &tele.PollAnswer{PollID: "p1", Options: []int{0}}, nil, 0, 0},
		{"unknown poll", &tele.PollAnswer{PollID: "zz", Sender: sender, Options: []int{0}}, service.ErrUnknownPoll, 1, 0},
		{"store failure", &tele.PollAnswer{PollID: "p1", Sender: sender, Options: []int{0}}, errors.New("boom"), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bets := &fakeBets{err: tt.err}
			h := NewBetHandler(bets, 0)

			require.NoError(t, h.HandlePollAnswer(b.NewContext(tele.Update{PollAnswer: tt.answer})))
			require.Len(t, bets.got, tt.want)
			if tt.want == 0 {
				return
			}
			got := bets.got[0]
			assert.Equal(t, tt.answer.PollID, got.pollID)
			assert.Equal(t, tt.wantOpt, got.option)
			assert.Equal(t, int64(9), got.user.ID)
			assert.Equal(t, "Ann", got.user.FirstName)
			assert.Equal(t, "fr", got.user.LanguageCode)
		})
	}
}
