package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	hashesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "hashes_total",
			Help:      "Number of digests computed across all runs.",
		},
	)
	hashRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "hash_rate",
			Help:      "Average hashes per second of the current run at the last report.",
		},
	)
	elapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "elapsed_seconds",
			Help:      "Elapsed time of the current run at the last report.",
		},
	)
	reportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "reports_total",
			Help:      "Number of ALIVE reports emitted.",
		},
	)
	reportSpacing = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "report_spacing_seconds",
			Help:      "Observed wall-clock spacing between consecutive reports of a run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 2, 5},
		},
	)
	runsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "runs_total",
			Help:      "Number of runs started.",
		},
	)
	stopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "stops_total",
			Help:      "Number of runs that stopped.",
		},
	)
	runFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "run_failures_total",
			Help:      "Number of runs ended by a report channel failure.",
		},
	)
	difficulty = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "difficulty",
			Help:      "Configured difficulty (display only).",
		},
	)

	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "state_transitions_total",
			Help:      "Number of transitions between miner states.",
		}, []string{"from", "to"},
	)

	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "minesim",
			Subsystem: "miner",
			Name:      "current_state",
			Help:      "Current miner state (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		hashesTotal, hashRate, elapsedSeconds, reportsTotal, reportSpacing,
		runsTotal, stopsTotal, runFailures, difficulty, stateTransitions, currentState,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func AddHashes(n uint64) {
	if regOK.Load() && n > 0 {
		hashesTotal.Add(float64(n))
	}
}

func ObserveReport(rate, elapsed float64) {
	if regOK.Load() {
		reportsTotal.Inc()
		hashRate.Set(rate)
		elapsedSeconds.Set(elapsed)
	}
}

func ObserveReportSpacing(seconds float64) {
	if regOK.Load() {
		reportSpacing.Observe(seconds)
	}
}

func IncRun() {
	if regOK.Load() {
		runsTotal.Inc()
	}
}

func IncStop() {
	if regOK.Load() {
		stopsTotal.Inc()
	}
}

func IncRunFailure() {
	if regOK.Load() {
		runFailures.Inc()
	}
}

func SetDifficulty(n int) {
	if regOK.Load() {
		difficulty.Set(float64(n))
	}
}

func RecordStateTransition(from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(from, to).Inc()
	}
}

func SetCurrentState(state string, active bool) {
	if regOK.Load() {
		var value float64 = 0
		if active {
			value = 1
		}
		currentState.WithLabelValues(state).Set(value)
	}
}
