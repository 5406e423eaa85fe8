package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// ChatReport summarizes one chat's share of a tick.
type ChatReport struct {
	ChatID    int64
	Close     CloseResult
	NewWeekID int64
	Publish   PublishResult
	// NoSlate is set when the week had no candidate games this time.
	NoSlate bool
}

// CycleService runs the per-chat tick: close expired polls, roll the week
// over if due, then publish the latest week's slate if it is incomplete.
type CycleService struct {
	weeks  *WeekService
	polls  *PollService
	slates *SlateService
}

// NewCycleService creates a new CycleService instance.
func NewCycleService(weeks *WeekService, polls *PollService, slates *SlateService) *CycleService {
	return &CycleService{weeks: weeks, polls: polls, slates: slates}
}

// RunChat advances one chat. Callers serialize calls per chat.
// Store failures abort the chat and are returned; transport failures and empty slates are not errors.
func (s *CycleService) RunChat(ctx context.Context, chatID int64) (ChatReport, error) {
	report := ChatReport{ChatID: chatID}

	closed, err := s.polls.CloseExpiredPolls(ctx, chatID)
	report.Close = closed
	if err != nil {
		return report, err
	}

	week, err := s.weeks.MaybeAdvanceWeek(ctx, chatID)
	if err != nil {
		return report, err
	}
	if week != nil {
		report.NewWeekID = week.ID
	} else {
		week, err = s.weeks.Latest(ctx, chatID)
		if err != nil {
			return report, err
		}
		if week == nil || week.SlatePublished {
			return report, nil
		}
		log.Info().Int64("chat_id", chatID).Int64("week_id", week.ID).Msg("Resuming unpublished slate")
	}

	games, err := s.slates.Slate(ctx, week)
	if err != nil {
		if errors.Is(err, ErrNoCandidates) {
			log.Info().Err(err).Int64("chat_id", chatID).Int64("week_id", week.ID).Msg("Nothing to publish")
			report.NoSlate = true
			return report, nil
		}
		return report, err
	}

	published, err := s.polls.PublishSlate(ctx, chatID, week.ID, games)
	report.Publish = published
	return report, err
}
