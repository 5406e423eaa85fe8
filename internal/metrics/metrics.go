// Package metrics exposes Prometheus instrumentation for the season scheduler
// and the bot's inbound traffic. Labels are limited to small fixed sets
// (outcome, kind, command) so cardinality stays bounded regardless of chat count.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Ticks counts scheduler ticks by outcome (ok, partial).
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_ticks_total",
			Help: "Total number of scheduler ticks.",
		},
		[]string{"outcome"},
	)

	// TickDuration records how long a full tick took in seconds.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "season_tick_duration_seconds",
			Help:    "Duration of scheduler ticks in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// ChatTicks counts per-chat tick processing by outcome (ok, error, timeout).
	ChatTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_chat_ticks_total",
			Help: "Per-chat tick results.",
		},
		[]string{"outcome"},
	)

	// WeeksCreated counts new betting weeks.
	WeeksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_weeks_created_total",
			Help: "Total number of betting weeks created.",
		},
	)

	// PollsPublished counts polls durably recorded after a successful send.
	PollsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_polls_published_total",
			Help: "Total number of polls published.",
		},
	)

	// PollsClosed counts polls flipped to closed, by how (closed, forced).
	PollsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_polls_closed_total",
			Help: "Total number of polls closed.",
		},
		[]string{"how"},
	)

	// TransportErrors counts classified transport failures by operation and kind.
	TransportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_transport_errors_total",
			Help: "Transport failures by operation and kind.",
		},
		[]string{"op", "kind"},
	)

	// Bets counts poll answers by result (recorded, duplicate, unknown_poll, invalid_option, error).
	Bets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_bets_total",
			Help: "Poll answers processed by result.",
		},
		[]string{"result"},
	)

	// Commands counts inbound commands by name.
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_commands_total",
			Help: "Inbound commands by name.",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(
		Ticks, TickDuration, ChatTicks,
		WeeksCreated, PollsPublished, PollsClosed,
		TransportErrors, Bets, Commands,
	)
}
