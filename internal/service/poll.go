package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/model"
)

// PublishResult summarizes one PublishSlate call.
type PublishResult struct {
	Published int
	Skipped   int
	Failed    int
	// ChatGone is set when the transport reported the chat as permanently unreachable.
	ChatGone bool
}

// Complete reports whether every slate game now has a poll.
func (r PublishResult) Complete() bool {
	return r.Failed == 0 && !r.ChatGone
}

// CloseResult summarizes one CloseExpiredPolls call.
type CloseResult struct {
	Closed int
	Forced int
	Failed int
}

// PollService publishes slate polls and closes them once their game starts.
type PollService struct {
	polls     PollStore
	weeks     WeekStore
	transport Transport
	clock     *league.Clock
}

// NewPollService creates a new PollService instance.
func NewPollService(polls PollStore, weeks WeekStore, transport Transport, clock *league.Clock) *PollService {
	return &PollService{
		polls:     polls,
		weeks:     weeks,
		transport: transport,
		clock:     clock,
	}
}

// Question renders the poll text for a game: matchup, league date and tip-off time.
func Question(g model.Game) string {
	start := g.ScheduledStart.In(league.Location)
	return fmt.Sprintf("%s @ %s\n%s\n%s ET",
		g.Away.Name, g.Home.Name,
		start.Format("2006-01-02"),
		start.Format("03:04 PM"),
	)
}

// Options returns the two poll options: away team first, home team second.
func Options(g model.Game) [2]string {
	return [2]string{g.Away.Name, g.Home.Name}
}

// PublishSlate sends one poll per slate game that does not have one yet.
// Games that already started are skipped. Send failures are logged and skipped; the week is marked published only
// once every game has a poll, so later ticks retry the gaps. A chat-gone failure also marks the week published,
// so later ticks stop sending into that chat.
func (s *PollService) PublishSlate(ctx context.Context, chatID, weekID int64, slate []model.Game) (PublishResult, error) {
	var res PublishResult
	now := s.clock.Now()

	for _, g := range slate {
		if !g.ScheduledStart.After(now) {
			res.Skipped++
			continue
		}

		exists, err := s.polls.Exists(ctx, chatID, g.ID)
		if err != nil {
			return res, storeErr("check poll", err)
		}
		if exists {
			res.Skipped++
			continue
		}

		sent, err := s.transport.SendPoll(ctx, chatID, Question(g), Options(g))
		if err != nil {
			recordTransportError("send_poll", err)
			log.Warn().Err(err).
				Int64("chat_id", chatID).
				Int64("game_id", g.ID).
				Msg("Failed to send poll")
			if IsChatGone(err) {
				res.ChatGone = true
				break
			}
			res.Failed++
			continue
		}

		inserted, err := s.polls.InsertIfAbsent(ctx, &model.Poll{
			ID:       sent.ID,
			LocalID:  sent.LocalID,
			ChatID:   chatID,
			GameID:   g.ID,
			WeekID:   weekID,
			SentDate: s.clock.Today(),
			IsOpen:   true,
		})
		if err != nil {
			return res, storeErr("insert poll", err)
		}
		if !inserted {
			log.Warn().
				Int64("chat_id", chatID).
				Int64("game_id", g.ID).
				Str("poll_id", sent.ID).
				Msg("Poll for game recorded concurrently, extra poll left unrecorded")
			res.Skipped++
			continue
		}

		metrics.PollsPublished.Inc()
		res.Published++
		log.Info().
			Int64("chat_id", chatID).
			Int64("week_id", weekID).
			Int64("game_id", g.ID).
			Str("poll_id", sent.ID).
			Msg("Poll published")
	}

	if len(slate) > 0 && (res.Complete() || res.ChatGone) {
		if err := s.weeks.MarkSlatePublished(ctx, weekID); err != nil {
			return res, storeErr("mark slate published", err)
		}
	}
	return res, nil
}

// CloseExpiredPolls stops every open poll whose game has started.
// A chat-gone failure force-closes the poll locally; other failures leave it open for the next tick.
func (s *PollService) CloseExpiredPolls(ctx context.Context, chatID int64) (CloseResult, error) {
	var res CloseResult

	expired, err := s.polls.OpenExpired(ctx, chatID, s.clock.Now())
	if err != nil {
		return res, storeErr("list expired polls", err)
	}

	for _, p := range expired {
		how := "closed"
		if err := s.transport.ClosePoll(ctx, chatID, p.LocalID); err != nil {
			recordTransportError("close_poll", err)
			if !IsChatGone(err) {
				log.Warn().Err(err).
					Int64("chat_id", chatID).
					Str("poll_id", p.ID).
					Msg("Failed to close poll, will retry")
				res.Failed++
				continue
			}
			how = "forced"
		}

		flipped, err := s.polls.MarkClosed(ctx, p.ID)
		if err != nil {
			return res, storeErr("mark poll closed", err)
		}
		if !flipped {
			continue
		}

		metrics.PollsClosed.WithLabelValues(how).Inc()
		if how == "forced" {
			res.Forced++
		} else {
			res.Closed++
		}
		log.Info().
			Int64("chat_id", chatID).
			Str("poll_id", p.ID).
			Str("how", how).
			Msg("Poll closed")
	}
	return res, nil
}

func recordTransportError(op string, err error) {
	kind := TransportRetryable
	if IsChatGone(err) {
		kind = TransportChatGone
	}
	metrics.TransportErrors.WithLabelValues(op, kind.String()).Inc()
}
