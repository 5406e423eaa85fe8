package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/league"
)

// Ticker is what the trigger fires.
type Ticker interface {
	Tick(ctx context.Context) (Summary, error)
}

// Trigger fires ticks on a cron schedule evaluated in league time.
// A tick still running when the next one is due is skipped.
type Trigger struct {
	mu     sync.Mutex
	ticker Ticker
	spec   string
	parser cron.Parser
	c      *cron.Cron
	cancel context.CancelFunc
}

// NewTrigger validates spec and creates a stopped Trigger.
func NewTrigger(ticker Ticker, spec string) (*Trigger, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return &Trigger{ticker: ticker, spec: spec, parser: parser}, nil
}

// Start begins firing ticks. Ticks run with a context derived from ctx that
// is cancelled by Stop.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{}
	c := cron.New(
		cron.WithParser(t.parser),
		cron.WithLocation(league.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(t.spec, func() {
		if _, err := t.ticker.Tick(runCtx); err != nil {
			log.Error().Err(err).Msg("Scheduled tick failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	t.c = c
	t.cancel = cancel
	c.Start()
	log.Info().Str("spec", t.spec).Str("tz", league.Location.String()).Msg("Scheduler started")
	return nil
}

// Stop cancels the running tick, if any, and waits for it to return.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c == nil {
		return
	}
	t.cancel()
	<-t.c.Stop().Done()
	t.c = nil
	log.Info().Msg("Scheduler stopped")
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
