package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/model"
	"betting-season-bot/internal/slate"
)

// SlateService builds a week's slate from the ingested games, falling back
// to the last cached candidate pool when ingestion is unavailable.
// A week's slate is chosen once; later calls return the saved games.
type SlateService struct {
	source       CandidateSource
	saved        WeekSlateStore
	cache        SlateCache
	qualityCount int
	ttl          time.Duration
}

// NewSlateService creates a new SlateService. cache may be nil.
func NewSlateService(source CandidateSource, saved WeekSlateStore, cache SlateCache, qualityCount int, ttl time.Duration) *SlateService {
	if qualityCount < 0 {
		qualityCount = slate.DefaultQualityCount
	}
	return &SlateService{
		source:       source,
		saved:        saved,
		cache:        cache,
		qualityCount: qualityCount,
		ttl:          ttl,
	}
}

// CacheKey identifies a candidate pool by its window.
func CacheKey(start, end time.Time) string {
	return fmt.Sprintf("slate:%s:%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
}

// Slate returns the games to publish for week. An empty result is reported as ErrNoCandidates.
func (s *SlateService) Slate(ctx context.Context, week *model.Week) ([]model.Game, error) {
	saved, err := s.saved.SlateGames(ctx, week.ID)
	if err != nil {
		return nil, storeErr("week slate", err)
	}
	if len(saved) > 0 {
		return saved, nil
	}

	pool, err := s.candidates(ctx, week.StartDate, week.EndDate)
	if err != nil {
		return nil, err
	}

	games := slate.Select(pool, week.StartDate, week.EndDate, s.qualityCount)
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: week %d (%s..%s)", ErrNoCandidates, week.WeekNumber,
			week.StartDate.Format(time.DateOnly), week.EndDate.Format(time.DateOnly))
	}

	ids := make([]int64, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	if err := s.saved.SaveSlate(ctx, week.ID, ids); err != nil {
		return nil, storeErr("week slate", err)
	}
	return games, nil
}

func (s *SlateService) candidates(ctx context.Context, start, end time.Time) ([]model.Game, error) {
	key := CacheKey(start, end)

	pool, err := s.source.CandidateGames(ctx, start, end)
	if err == nil {
		if s.cache != nil && len(pool) > 0 {
			if err := s.cache.Put(ctx, key, pool, s.ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to cache candidate games")
			}
		}
		return pool, nil
	}

	log.Warn().Err(err).Str("key", key).Msg("Candidate games unavailable, trying cache")
	if s.cache == nil {
		return nil, storeErr("candidate games", err)
	}

	cached, ok, cacheErr := s.cache.Get(ctx, key)
	if cacheErr != nil || !ok {
		if cacheErr != nil {
			log.Warn().Err(cacheErr).Str("key", key).Msg("Slate cache read failed")
		}
		return nil, storeErr("candidate games", err)
	}
	return cached, nil
}
