package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/league"
	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/model"
	"betting-season-bot/internal/repository"
)

// WeekLength is the number of league days in a betting week.
const WeekLength = 7

// WeekService rolls chats over from one betting week to the next.
type WeekService struct {
	weeks     WeekStore
	clock     *league.Clock
	seasonEnd *time.Time
}

// NewWeekService creates a new WeekService instance.
func NewWeekService(weeks WeekStore, clock *league.Clock) *WeekService {
	return &WeekService{weeks: weeks, clock: clock}
}

// WithSeasonEnd stops new weeks from starting after the given league date.
func (s *WeekService) WithSeasonEnd(end time.Time) *WeekService {
	s.seasonEnd = &end
	return s
}

// Latest returns the chat's latest week, or nil if it has none.
func (s *WeekService) Latest(ctx context.Context, chatID int64) (*model.Week, error) {
	w, err := s.weeks.Latest(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrWeekNotFound) {
			return nil, nil
		}
		return nil, storeErr("latest week", err)
	}
	return w, nil
}

// NeedsRollover reports whether a new week must start given the latest week and tomorrow's date.
// A week ending on D rolls over once tomorrow is strictly after D.
func NeedsRollover(latest *model.Week, tomorrow time.Time) bool {
	return latest == nil || tomorrow.After(latest.EndDate)
}

// MaybeAdvanceWeek creates the chat's next week when the latest one has lapsed.
// It returns nil when no rollover is due or when a concurrent caller created the week first.
func (s *WeekService) MaybeAdvanceWeek(ctx context.Context, chatID int64) (*model.Week, error) {
	latest, err := s.Latest(ctx, chatID)
	if err != nil {
		return nil, err
	}

	tomorrow := s.clock.ShiftedDate(1, league.Future)
	if !NeedsRollover(latest, tomorrow) {
		return nil, nil
	}
	if s.seasonEnd != nil && tomorrow.After(*s.seasonEnd) {
		log.Debug().Int64("chat_id", chatID).Time("season_end", *s.seasonEnd).Msg("Season over, no new week")
		return nil, nil
	}

	next := 1
	if latest != nil {
		next = latest.WeekNumber + 1
	}

	week, created, err := s.weeks.Insert(ctx, &model.Week{
		ChatID:     chatID,
		WeekNumber: next,
		StartDate:  tomorrow,
		EndDate:    s.clock.ShiftedDate(WeekLength, league.Future),
	})
	if err != nil {
		return nil, storeErr("insert week", err)
	}
	if !created {
		log.Info().Int64("chat_id", chatID).Int("week_number", next).Msg("Week already created concurrently")
		return nil, nil
	}

	metrics.WeeksCreated.Inc()
	log.Info().
		Int64("chat_id", chatID).
		Int64("week_id", week.ID).
		Int("week_number", week.WeekNumber).
		Time("start_date", week.StartDate).
		Time("end_date", week.EndDate).
		Msg("New betting week")

	return week, nil
}
