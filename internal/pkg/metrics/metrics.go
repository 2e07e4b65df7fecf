// Package metrics exposes the Prometheus counters and histograms the HTTP
// and sweep layers update as they process reservations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Ledger operation counters: one vec each for reserve, commit and reverse,
// labeled by a bounded result or reason, plus a plain top-up counter.
var (
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reservations_total",
			Help: "Total number of credit reservations attempted",
		},
		[]string{"result"}, // ok, insufficient_credits, duplicate
	)

	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commits_total",
			Help: "Total number of reservation commits",
		},
		[]string{"result"}, // ok, error
	)

	ReversalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reversals_total",
			Help: "Total number of reservation reversals",
		},
		[]string{"reason"}, // exception, non_2xx, error
	)

	TopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_topups_total",
			Help: "Total number of administrative top-ups",
		},
	)

	WalletBalanceHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_wallet_balance_credits",
			Help:    "Distribution of wallet balances in credits, sampled on mutation",
			Buckets: []float64{0, 10, 100, 1000, 10000, 100000, 1000000},
		},
	)
)

// Sweep metrics let an operator watch the stale-reservation sweeper keep
// pace with reservation creation independent of any single run's logs.
var (
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sweep_runs_total",
			Help: "Total number of sweep runs, by outcome",
		},
		[]string{"result"}, // ok, error
	)

	SweepReversedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_sweep_reversed_total",
			Help: "Total number of stale reservations reversed by the sweeper",
		},
	)

	SweepRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_sweep_run_duration_seconds",
			Help:    "Duration of a single sweep run",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_sweep_last_run_timestamp_seconds",
			Help: "Unix timestamp of the most recently completed sweep run",
		},
	)
)
