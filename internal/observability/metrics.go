package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                sync.Once
	httpDurationHistogram       *prometheus.HistogramVec
	duplicatePreventedCounter   *prometheus.CounterVec
	insufficientFundsCounter    *prometheus.CounterVec
	withdrawalTransitionCounter *prometheus.CounterVec
	ledgerImbalanceCounter      prometheus.Counter
	idempotencyCounter          *prometheus.CounterVec
	workerRunCounter            *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		duplicatePreventedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_duplicates_prevented_total",
			Help: "Duplicate ledger entries stopped by the dedup guard",
		}, []string{"logical_type"})

		insufficientFundsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "balance_insufficient_funds_total",
			Help: "Subtract operations rejected to protect the non-negative invariant",
		}, []string{"source"})

		withdrawalTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal request lifecycle transitions",
		}, []string{"transition"})

		ledgerImbalanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_balance_drift_total",
			Help: "Users whose stored balance diverged from their ledger sum",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			duplicatePreventedCounter,
			insufficientFundsCounter,
			withdrawalTransitionCounter,
			ledgerImbalanceCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementDuplicatePrevented(logicalType string) {
	if duplicatePreventedCounter == nil {
		return
	}
	duplicatePreventedCounter.WithLabelValues(logicalType).Inc()
}

func IncrementInsufficientFunds(source string) {
	if insufficientFundsCounter == nil {
		return
	}
	insufficientFundsCounter.WithLabelValues(source).Inc()
}

func IncrementWithdrawalTransition(transition string) {
	if withdrawalTransitionCounter == nil {
		return
	}
	withdrawalTransitionCounter.WithLabelValues(transition).Inc()
}

func IncrementLedgerImbalance() {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
