// Package main is the entry point for the betting season bot.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/bot"
	"betting-season-bot/internal/config"
	"betting-season-bot/internal/league"
	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/pkg/db"
	"betting-season-bot/internal/pkg/lock"
	"betting-season-bot/internal/repository"
	"betting-season-bot/internal/scheduler"
	"betting-season-bot/internal/service"
	"betting-season-bot/internal/transport"
)

func main() {
	configDir := flag.String("config", "config", "directory containing config.yaml")
	once := flag.Bool("once", false, "run a single scheduler tick and exit")
	flag.Parse()

	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment only")
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	chatRepo := repository.NewChatRepository(dbPool.Pool)
	weekRepo := repository.NewWeekRepository(dbPool.Pool)
	pollRepo := repository.NewPollRepository(dbPool.Pool)
	betRepo := repository.NewBetRepository(dbPool.Pool)
	userRepo := repository.NewUserRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	cacheRepo := repository.NewSlateCacheRepository(dbPool.Pool)
	standingsRepo := repository.NewStandingsRepository(dbPool.Pool)

	api, err := bot.NewAPI(&cfg.Bot)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	tg := transport.NewTelegram(api, transport.Options{
		RatePerSec:  cfg.Bot.RatePerSec,
		CallTimeout: cfg.Scheduler.CallTimeout,
	})

	// Services
	clock := league.NewClock()
	weekService := service.NewWeekService(weekRepo, clock)
	if end, ok, _ := cfg.Season.SeasonEnd(); ok {
		weekService.WithSeasonEnd(end)
		log.Info().Time("season_end", end).Msg("Season end date configured")
	}
	pollService := service.NewPollService(pollRepo, weekRepo, tg, clock)
	slateService := service.NewSlateService(gameRepo, weekRepo, cacheRepo, cfg.Season.QualityGames, cfg.Season.CacheTTL)
	cycleService := service.NewCycleService(weekService, pollService, slateService)
	betService := service.NewBetService(pollRepo, gameRepo, userRepo, betRepo)

	// One lock per chat, shared by ticks and inbound commands.
	chatLock := lock.NewChatLock()

	runner := scheduler.NewRunner(chatRepo, cycleService, chatLock, scheduler.Options{
		Workers:     cfg.Scheduler.Workers,
		ChatTimeout: cfg.Scheduler.ChatTimeout,
	}).WithCachePurger(cacheRepo)

	if *once {
		sum, err := runner.Tick(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Tick failed")
		}
		log.Info().Str("tick_id", sum.TickID).Str("outcome", sum.Outcome()).Msg("Single tick complete")
		return
	}

	seasonService := service.NewSeasonService(service.SeasonServiceConfig{
		Chats:       chatRepo,
		Cycle:       cycleService,
		Standings:   service.NewStandingsService(standingsRepo, clock),
		Admins:      service.NewAdminGate(tg, cfg.Admin.IDs),
		Transport:   tg,
		Locks:       chatLock,
		BotUsername: bot.Username(&cfg.Bot, api),
		LockTimeout: cfg.Scheduler.ChatTimeout,
	})

	telegramBot, err := bot.New(&bot.Dependencies{
		Config: cfg,
		API:    api,
		Season: seasonService,
		Bets:   betService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, dbPool.HealthCheck)
		metricsServer.Start()
	}

	trigger, err := scheduler.NewTrigger(runner, cfg.Scheduler.Spec)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	trigger.Stop()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}
