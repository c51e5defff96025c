// Package metrics exposes Prometheus collectors for the session table.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mdsession"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// Sessions is the number of sessions currently in the table.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "The current number of sessions in the session table.",
	})

	// Versions tracks the four persistence counters by stage.
	Versions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "table_version",
		Help:      "Session table version counters (version, projected, committing, committed).",
	}, []string{"stage"})

	// Commits counts finished table writes by outcome.
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "The total number of session table writes, by outcome.",
	}, []string{"outcome"})

	// CommitDuration observes how long a table write took.
	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "commit_duration_seconds",
		Help:      "Session table write duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// Loads counts finished table loads by outcome.
	Loads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_total",
		Help:      "The total number of session table loads, by outcome.",
	}, []string{"outcome"})

	// StoreRetries counts retried journal store operations.
	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_retries_total",
		Help:      "The total number of retried journal store operations.",
	}, []string{"op"})

	// WaitersFired counts released waiters by kind (commit, load, trim).
	WaitersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "waiters_fired_total",
		Help:      "The total number of waiters released, by kind.",
	}, []string{"kind"})
)

// RecordCommit records one finished write.
func RecordCommit(success bool, d time.Duration) {
	Commits.WithLabelValues(outcome(success)).Inc()
	CommitDuration.Observe(d.Seconds())
}

// RecordLoad records one finished load.
func RecordLoad(success bool) {
	Loads.WithLabelValues(outcome(success)).Inc()
}

// SetVersions publishes the persistence counters.
func SetVersions(version, projected, committing, committed uint64) {
	Versions.WithLabelValues("version").Set(float64(version))
	Versions.WithLabelValues("projected").Set(float64(projected))
	Versions.WithLabelValues("committing").Set(float64(committing))
	Versions.WithLabelValues("committed").Set(float64(committed))
}

// AddWaitersFired adds n released waiters of the given kind.
func AddWaitersFired(kind string, n int) {
	if n > 0 {
		WaitersFired.WithLabelValues(kind).Add(float64(n))
	}
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
