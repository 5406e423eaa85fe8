// Package scheduler drives the periodic season tick: every active chat gets its
// expired polls closed, its week rolled over when due and its slate published.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/pkg/lock"
	"betting-season-bot/internal/service"
)

// ChatLister lists the chats whose season is running.
type ChatLister interface {
	ListActive(ctx context.Context) ([]int64, error)
}

// ChatRunner advances a single chat by one tick.
type ChatRunner interface {
	RunChat(ctx context.Context, chatID int64) (service.ChatReport, error)
}

// CachePurger drops expired slate cache entries.
type CachePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Summary describes the outcome of one tick.
type Summary struct {
	TickID   string
	Chats    int
	OK       int
	Failed   int
	TimedOut int
	Reports  []service.ChatReport
	Duration time.Duration
}

// Outcome returns "ok" when every chat succeeded and "partial" otherwise.
func (s Summary) Outcome() string {
	if s.Failed == 0 && s.TimedOut == 0 {
		return "ok"
	}
	return "partial"
}

// Options configures a Runner.
type Options struct {
	Workers     int
	ChatTimeout time.Duration
}

// Runner executes ticks.
type Runner struct {
	chats   ChatLister
	cycle   ChatRunner
	purger  CachePurger
	locks   *lock.ChatLock
	workers int
	timeout time.Duration
}

// NewRunner creates a new Runner. The lock must be the one shared with inbound
// command handling so a chat is never advanced by two callers at once.
func NewRunner(chats ChatLister, cycle ChatRunner, locks *lock.ChatLock, opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	timeout := opts.ChatTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		chats:   chats,
		cycle:   cycle,
		locks:   locks,
		workers: workers,
		timeout: timeout,
	}
}

// WithCachePurger makes every tick drop expired slate cache entries first.
func (r *Runner) WithCachePurger(p CachePurger) *Runner {
	r.purger = p
	return r
}

type chatResult struct {
	report service.ChatReport
	err    error
}

// Tick runs one pass over every active chat. Chat failures are logged and
// counted; only a failure to list chats is returned.
func (r *Runner) Tick(ctx context.Context) (Summary, error) {
	started := time.Now()
	sum := Summary{TickID: uuid.NewString()}
	logger := log.With().Str("tick_id", sum.TickID).Logger()

	defer func() {
		sum.Duration = time.Since(started)
		metrics.TickDuration.Observe(sum.Duration.Seconds())
	}()

	if r.purger != nil {
		if n, err := r.purger.Purge(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to purge slate cache")
		} else if n > 0 {
			logger.Debug().Int64("entries", n).Msg("Purged slate cache")
		}
	}

	chatIDs, err := r.chats.ListActive(ctx)
	if err != nil {
		metrics.Ticks.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Failed to list active chats")
		return sum, err
	}
	sum.Chats = len(chatIDs)

	results := make([]chatResult, len(chatIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, chatID := range chatIDs {
		g.Go(func() error {
			results[i] = r.runChat(gctx, chatID)
			// Never cancel siblings: one chat's failure must not affect the others.
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		chatID := chatIDs[i]
		sum.Reports = append(sum.Reports, res.report)
		switch {
		case res.err == nil:
			sum.OK++
			metrics.ChatTicks.WithLabelValues("ok").Inc()
		case errors.Is(res.err, lock.ErrLockTimeout), errors.Is(res.err, context.DeadlineExceeded):
			sum.TimedOut++
			metrics.ChatTicks.WithLabelValues("timeout").Inc()
			logger.Warn().Err(res.err).Int64("chat_id", chatID).Msg("Chat tick timed out")
		default:
			sum.Failed++
			metrics.ChatTicks.WithLabelValues("error").Inc()
			logger.Error().Err(res.err).Int64("chat_id", chatID).Msg("Chat tick failed")
		}
	}

	metrics.Ticks.WithLabelValues(sum.Outcome()).Inc()
	logger.Info().
		Int("chats", sum.Chats).
		Int("ok", sum.OK).
		Int("failed", sum.Failed).
		Int("timed_out", sum.TimedOut).
		Dur("elapsed", time.Since(started)).
		Msg("Tick finished")

	return sum, nil
}

func (r *Runner) runChat(ctx context.Context, chatID int64) chatResult {
	res := chatResult{report: service.ChatReport{ChatID: chatID}}

	chatCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res.err = r.locks.WithLock(chatCtx, chatID, r.timeout, func(ctx context.Context) error {
		report, err := r.cycle.RunChat(ctx, chatID)
		res.report = report
		return err
	})
	return res
}
