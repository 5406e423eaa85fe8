// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"betting-season-bot/internal/config"
	"betting-season-bot/internal/handler"
)

// allowedUpdates limits long polling to the updates the bot handles.
var allowedUpdates = []string{"message", "poll_answer"}

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	seasonHandler *handler.SeasonHandler
	betHandler    *handler.BetHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config *config.Config
	API    *tele.Bot
	Season handler.MessageProcessor
	Bets   handler.BetRecorder
}

// NewAPI creates the telebot client. It is shared by the inbound poller and the outbound transport.
func NewAPI(cfg *config.BotConfig) (*tele.Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token: cfg.Token,
		Poller: &tele.LongPoller{
			Timeout:        cfg.PollTimeout,
			AllowedUpdates: allowedUpdates,
		},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// Username returns the configured bot username, falling back to the one Telegram reports.
func Username(cfg *config.BotConfig, api *tele.Bot) string {
	if cfg.Username != "" {
		return cfg.Username
	}
	if api != nil && api.Me != nil {
		return api.Me.Username
	}
	return ""
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("telegram client is required")
	}

	b := &Bot{
		bot:           deps.API,
		cfg:           deps.Config,
		seasonHandler: handler.NewSeasonHandler(deps.Season, deps.Config.Scheduler.ChatTimeout),
		betHandler:    handler.NewBetHandler(deps.Bets, deps.Config.Bot.RequestTimeout),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers the update handlers.
// Every command arrives through OnText so the dialogue sees unknown commands too.
func (b *Bot) registerHandlers() {
	b.bot.Handle(tele.OnText, b.seasonHandler.HandleText)
	b.bot.Handle(tele.OnPollAnswer, b.betHandler.HandlePollAnswer)
	b.bot.Handle(tele.OnMigration, b.handleMigration)
}

// handleMigration logs a group upgrade. The old chat id stops receiving polls
// and its season has to be restarted from the new supergroup.
func (b *Bot) handleMigration(c tele.Context) error {
	from, to := c.Migration()
	log.Warn().
		Int64("chat_id", from).
		Int64("migrated_to", to).
		Msg("Chat migrated to supergroup")
	return nil
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
