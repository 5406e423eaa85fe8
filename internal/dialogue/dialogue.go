// Package dialogue implements the per-chat season state machine.
// Transition is pure: it never touches a store or a transport. The caller
// resolves admin status and played weeks into the Event beforehand and
// executes the returned effects in order.
package dialogue

import (
	"fmt"
	"strconv"
	"strings"
)

// State is one of Setup, Active, StopConfirm, WeekQuery or Removed.
type State interface {
	isState()
	Name() string
}

// Setup is the state of a chat that has not started its season.
type Setup struct{}

// Active is the state of a chat with a running season.
type Active struct{}

// StopConfirm waits for an admin to confirm the end of the season.
type StopConfirm struct{}

// WeekQuery waits for the number of the week whose standings to show.
type WeekQuery struct {
	MaxWeek int
}

// Removed is terminal: the chat and everything it owns is deleted.
type Removed struct{}

func (Setup) isState()       {}
func (Active) isState()      {}
func (StopConfirm) isState() {}
func (WeekQuery) isState()   {}
func (Removed) isState()     {}

func (Setup) Name() string       { return "setup" }
func (Active) Name() string      { return "active" }
func (StopConfirm) Name() string { return "stop_confirm" }
func (WeekQuery) Name() string   { return "week_query" }
func (Removed) Name() string     { return "removed" }

// Commands understood by the state machine.
const (
	CmdStart         = "/start"
	CmdHelp          = "/help"
	CmdStandings     = "/standings"
	CmdFullStandings = "/full_standings"
	CmdWeekStandings = "/week_standings"
	CmdStopSeason    = "/stop_season"
	CmdEndMySeason   = "/end_my_season"
	CmdCancel        = "/cancel"
)

// Event is an inbound chat message prepared for Transition.
type Event struct {
	// Command is the lowercased command without bot suffix, or empty for plain text.
	Command string
	// Text is the trimmed message text.
	Text string
	// IsAdmin is only meaningful when NeedsAdmin reported true.
	IsAdmin bool
	// WeeksPlayed is only meaningful when NeedsWeeks reported true.
	WeeksPlayed int
}

// ParseEvent builds an Event from message text. A command addressed to a
// different bot ("/start@OtherBot") is treated as plain text.
func ParseEvent(text, botUsername string) Event {
	text = strings.TrimSpace(text)
	ev := Event{Text: text}
	if !strings.HasPrefix(text, "/") {
		return ev
	}

	word := strings.Fields(text)[0]
	cmd, target, addressed := strings.Cut(word, "@")
	if addressed && !strings.EqualFold(target, strings.TrimPrefix(botUsername, "@")) {
		return ev
	}
	ev.Command = strings.ToLower(cmd)
	return ev
}

// IsCommand reports whether the event carries a command for this bot.
func (e Event) IsCommand() bool {
	return e.Command != ""
}

// NeedsAdmin reports whether Transition will consult ev.IsAdmin.
func NeedsAdmin(s State, ev Event) bool {
	switch s.(type) {
	case Active:
		return ev.Command == CmdStopSeason
	case StopConfirm:
		return ev.Command == CmdEndMySeason
	}
	return false
}

// NeedsWeeks reports whether Transition will consult ev.WeeksPlayed.
func NeedsWeeks(s State, ev Event) bool {
	_, active := s.(Active)
	return active && ev.Command == CmdWeekStandings
}

// Effect is a side effect requested by a transition.
type Effect interface {
	isEffect()
}

// Reply sends text to the chat.
type Reply struct {
	Text string
}

// ActivateSeason marks the chat active and runs its first cycle immediately.
type ActivateSeason struct{}

// ShowWeekStandings sends the standings of one week.
type ShowWeekStandings struct {
	Week int
}

// ShowCurrentStandings sends the standings of the week in progress.
type ShowCurrentStandings struct{}

// ShowSeasonStandings sends weeks won per user.
type ShowSeasonStandings struct{}

// RemoveSeason deletes the chat with all its weeks, polls and bets.
type RemoveSeason struct{}

func (Reply) isEffect()                {}
func (ActivateSeason) isEffect()       {}
func (ShowWeekStandings) isEffect()    {}
func (ShowCurrentStandings) isEffect() {}
func (ShowSeasonStandings) isEffect()  {}
func (RemoveSeason) isEffect()         {}

// Transition returns the next state and the effects to run for ev in state s.
// Plain text never changes state, except a week number answered in WeekQuery
// and any message in StopConfirm, which cancels the stop.
func Transition(s State, ev Event) (State, []Effect) {
	switch st := s.(type) {
	case Setup:
		return fromSetup(st, ev)
	case Active:
		return fromActive(st, ev)
	case StopConfirm:
		return fromStopConfirm(st, ev)
	case WeekQuery:
		return fromWeekQuery(st, ev)
	default:
		return s, nil
	}
}

func fromSetup(s Setup, ev Event) (State, []Effect) {
	switch ev.Command {
	case "":
		return s, nil
	case CmdStart:
		return Active{}, []Effect{
			Reply{Text: IntroText},
			Reply{Text: SeasonBeginsText},
			ActivateSeason{},
		}
	case CmdHelp:
		return s, []Effect{Reply{Text: HelpText}}
	default:
		return s, []Effect{Reply{Text: SendStartText}}
	}
}

func fromActive(s Active, ev Event) (State, []Effect) {
	switch ev.Command {
	case CmdStart:
		return s, []Effect{Reply{Text: AlreadyStartedText}}
	case CmdHelp:
		return s, []Effect{Reply{Text: HelpText}}
	case CmdStandings:
		return s, []Effect{ShowCurrentStandings{}}
	case CmdFullStandings:
		return s, []Effect{ShowSeasonStandings{}}
	case CmdStopSeason:
		if !ev.IsAdmin {
			return s, []Effect{Reply{Text: StopDeniedText}}
		}
		return StopConfirm{}, []Effect{Reply{Text: StopConfirmText}}
	case CmdWeekStandings:
		switch {
		case ev.WeeksPlayed <= 0:
			return s, []Effect{Reply{Text: NoWeeksText}}
		case ev.WeeksPlayed == 1:
			return s, []Effect{Reply{Text: OneWeekText}, ShowWeekStandings{Week: 1}}
		default:
			return WeekQuery{MaxWeek: ev.WeeksPlayed}, []Effect{Reply{Text: WeekPrompt(ev.WeeksPlayed)}}
		}
	default:
		return s, nil
	}
}

// fromStopConfirm only keeps the season going forward on /end_my_season.
// Anything else, plain text included, cancels back to Active.
func fromStopConfirm(_ StopConfirm, ev Event) (State, []Effect) {
	switch ev.Command {
	case CmdEndMySeason:
		if !ev.IsAdmin {
			return Active{}, []Effect{Reply{Text: EndDeniedText}}
		}
		return Removed{}, []Effect{
			ShowCurrentStandings{},
			ShowSeasonStandings{},
			RemoveSeason{},
			Reply{Text: SeasonEndedText},
		}
	default:
		return Active{}, []Effect{Reply{Text: StopCancelledText}}
	}
}

func fromWeekQuery(s WeekQuery, ev Event) (State, []Effect) {
	if ev.Command == CmdCancel {
		return Active{}, []Effect{Reply{Text: CancelledText}}
	}

	n, ok := parseWeekNumber(ev)
	if !ok {
		if ev.IsCommand() {
			return s, []Effect{Reply{Text: WeekPrompt(s.MaxWeek)}}
		}
		return s, nil
	}
	if n < 1 || n > s.MaxWeek {
		return s, []Effect{Reply{Text: WeekPrompt(s.MaxWeek)}}
	}
	return Active{}, []Effect{ShowWeekStandings{Week: n}}
}

// parseWeekNumber accepts "2" and "/2".
func parseWeekNumber(ev Event) (int, bool) {
	raw := ev.Text
	if ev.IsCommand() {
		raw = ev.Command
	}
	raw = strings.TrimPrefix(raw, "/")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WeekPrompt lists the selectable weeks.
func WeekPrompt(maxWeek int) string {
	var b strings.Builder
	b.WriteString("Click on the week that you want to show the results for!\n")
	for w := 1; w <= maxWeek; w++ {
		fmt.Fprintf(&b, "/%d ", w)
	}
	b.WriteString("\nSend /cancel to go back.")
	return b.String()
}

// User-facing replies.
const (
	IntroText = "BettingSeasonBot sends you 11 games to bet on each week, 10 good ones and one battle between the supreme tank commanders. " +
		"The one who gets the most games right in a week gets one point.\n" +
		"You play against the other members of your group and the winner is the one who wins the most weeks."
	SeasonBeginsText   = "Your season begins now!"
	AlreadyStartedText = "Looks like you've started your season already!"
	SendStartText      = "Send /start to begin your season!"
	HelpText           = IntroText + "\n" +
		"Once everyone who wants to participate is in this group, send /start to begin if you haven't done so already!\n\n" +
		"/standings to see who's the GOAT bettor this week.\n" +
		"/full_standings to see the weeks won this season.\n" +
		"/week_standings to look up a past week.\n" +
		"/stop_season to end the season (admins only)."
	StopDeniedText  = "Only the group admins can stop the season!"
	StopConfirmText = "Send /end_my_season to end the season.\n" +
		"Afterwards you will get the standings of this week and the complete results table.\n" +
		"YOU CAN'T UNDO THIS ACTION AND ALL YOUR BETS AND RESULTS ARE LOST!"
	EndDeniedText     = "Only the group admins can stop the season!"
	StopCancelledText = "Stopping the season was cancelled."
	SeasonEndedText   = "Your season has ended. Send /start to begin a new one!"
	NoWeeksText       = "Your first week hasn't started yet!"
	OneWeekText       = "You haven't played more than one week yet!\nHere are the standings for that week:"
	CancelledText     = "Cancelled."
)
