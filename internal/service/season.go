package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"betting-season-bot/internal/dialogue"
	"betting-season-bot/internal/metrics"
	"betting-season-bot/internal/model"
	"betting-season-bot/internal/pkg/lock"
)

const standingsUnavailableText = "Sorry, could not send standings right now!"

// SeasonServiceConfig groups the collaborators of SeasonService.
type SeasonServiceConfig struct {
	Chats       ChatStore
	Cycle       *CycleService
	Standings   *StandingsService
	Admins      *AdminGate
	Transport   Transport
	Sessions    *dialogue.Store
	Locks       *lock.ChatLock
	BotUsername string
	LockTimeout time.Duration
}

// SeasonService drives the dialogue state machine for inbound chat messages
// and executes the effects of each transition.
type SeasonService struct {
	chats       ChatStore
	cycle       *CycleService
	standings   *StandingsService
	admins      *AdminGate
	transport   Transport
	sessions    *dialogue.Store
	locks       *lock.ChatLock
	botUsername string
	lockTimeout time.Duration
}

// NewSeasonService creates a new SeasonService instance.
func NewSeasonService(cfg SeasonServiceConfig) *SeasonService {
	if cfg.Sessions == nil {
		cfg.Sessions = dialogue.NewStore()
	}
	if cfg.Locks == nil {
		cfg.Locks = lock.NewChatLock()
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 30 * time.Second
	}
	return &SeasonService{
		chats:       cfg.Chats,
		cycle:       cfg.Cycle,
		standings:   cfg.Standings,
		admins:      cfg.Admins,
		transport:   cfg.Transport,
		sessions:    cfg.Sessions,
		locks:       cfg.Locks,
		botUsername: cfg.BotUsername,
		lockTimeout: cfg.LockTimeout,
	}
}

// HandleMessage feeds one chat message through the state machine.
// Only store and lock failures are returned; reply failures are logged.
func (s *SeasonService) HandleMessage(ctx context.Context, chatID, senderID int64, text string) error {
	ev := dialogue.ParseEvent(text, s.botUsername)
	if ev.IsCommand() {
		metrics.Commands.WithLabelValues(commandLabel(ev.Command)).Inc()
	}

	return s.locks.WithLock(ctx, chatID, s.lockTimeout, func(ctx context.Context) error {
		chat, created, err := s.chats.GetOrCreate(ctx, chatID)
		if err != nil {
			return storeErr("get chat", err)
		}
		if created {
			log.Info().Int64("chat_id", chatID).Msg("New chat registered")
		}

		var base dialogue.State = dialogue.Setup{}
		if chat.IsActive() {
			base = dialogue.Active{}
		}
		state := s.sessions.Resolve(chatID, base)

		if dialogue.NeedsAdmin(state, ev) {
			ev.IsAdmin = s.admins.IsAdmin(ctx, chatID, senderID)
		}
		if dialogue.NeedsWeeks(state, ev) {
			n, err := s.standings.WeeksPlayed(ctx, chatID)
			if err != nil {
				s.reply(ctx, chatID, standingsUnavailableText)
				return err
			}
			ev.WeeksPlayed = n
		}

		next, effects := dialogue.Transition(state, ev)
		s.sessions.Set(chatID, next)
		if next != state {
			log.Info().
				Int64("chat_id", chatID).
				Int64("user_id", senderID).
				Str("from", state.Name()).
				Str("to", next.Name()).
				Msg("Dialogue transition")
		}

		for _, eff := range effects {
			if err := s.apply(ctx, chatID, eff); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SeasonService) apply(ctx context.Context, chatID int64, eff dialogue.Effect) error {
	switch e := eff.(type) {
	case dialogue.Reply:
		s.reply(ctx, chatID, e.Text)

	case dialogue.ActivateSeason:
		if err := s.chats.SetStatus(ctx, chatID, model.ChatStatusActive); err != nil {
			return storeErr("activate chat", err)
		}
		log.Info().Int64("chat_id", chatID).Msg("Season started")
		// The first week goes out now; failures are retried by the next tick.
		report, err := s.cycle.RunChat(ctx, chatID)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("First cycle failed")
			return nil
		}
		log.Info().
			Int64("chat_id", chatID).
			Int64("week_id", report.NewWeekID).
			Int("published", report.Publish.Published).
			Msg("First week published")

	case dialogue.ShowWeekStandings:
		s.sendStandings(ctx, chatID, func() (string, error) { return s.standings.Week(ctx, chatID, e.Week) })

	case dialogue.ShowCurrentStandings:
		s.sendStandings(ctx, chatID, func() (string, error) { return s.standings.Current(ctx, chatID) })

	case dialogue.ShowSeasonStandings:
		s.sendStandings(ctx, chatID, func() (string, error) { return s.standings.Season(ctx, chatID) })

	case dialogue.RemoveSeason:
		if err := s.chats.Remove(ctx, chatID); err != nil {
			return storeErr("remove chat", err)
		}
		s.sessions.Clear(chatID)
		log.Info().Int64("chat_id", chatID).Msg("Season removed")
	}
	return nil
}

func (s *SeasonService) sendStandings(ctx context.Context, chatID int64, render func() (string, error)) {
	text, err := render()
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to load standings")
		text = standingsUnavailableText
	}
	s.reply(ctx, chatID, text)
}

func (s *SeasonService) reply(ctx context.Context, chatID int64, text string) {
	if err := s.transport.SendMessage(ctx, chatID, text); err != nil {
		recordTransportError("send_message", err)
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func commandLabel(cmd string) string {
	switch cmd {
	case dialogue.CmdStart, dialogue.CmdHelp, dialogue.CmdStandings, dialogue.CmdFullStandings,
		dialogue.CmdWeekStandings, dialogue.CmdStopSeason, dialogue.CmdEndMySeason, dialogue.CmdCancel:
		return cmd
	}
	return "other"
}
