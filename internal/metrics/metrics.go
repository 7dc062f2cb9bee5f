// Package metrics exposes engine, tracker and provider counters on a private
// Prometheus registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "mon_ps"

type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	DecisionsTotal   *prometheus.CounterVec
	Confidence       prometheus.Histogram

	PicksRecorded   *prometheus.CounterVec
	PicksRejected   prometheus.Counter
	PicksResolved   *prometheus.CounterVec
	ResolvedProfit  prometheus.Counter
	ClosingCaptured prometheus.Counter
	Conflicts       prometheus.Gauge

	BacktestRuns     *prometheus.CounterVec
	BacktestDuration prometheus.Histogram
	BacktestROI      prometheus.Gauge

	ProviderRequests *prometheus.CounterVec
	JobRuns          *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Fixture analyses by status",
			},
			[]string{"status"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Wall time of one fixture analysis",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"mode"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Decisions by type and primary market",
			},
			[]string{"decision", "market"},
		),
		Confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decision_confidence",
				Help:      "Decision confidence",
				Buckets:   prometheus.LinearBuckets(0.4, 0.05, 11),
			},
		),

		PicksRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "picks_recorded_total",
				Help:      "Picks written to the tracker",
			},
			[]string{"op"},
		),
		PicksRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "picks_rejected_total",
				Help:      "Picks rejected for an inconsistent market",
			},
		),
		PicksResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "picks_resolved_total",
				Help:      "Resolved picks by outcome",
			},
			[]string{"outcome"},
		),
		ResolvedProfit: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolved_profit_units",
				Help:      "Sum of positive resolved profit in stake units",
			},
		),
		ClosingCaptured: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "closing_odds_captured_total",
				Help:      "Picks that received closing odds",
			},
		),
		Conflicts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resolution_conflicts",
				Help:      "Conflicts found by the last audit",
			},
		),

		BacktestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtest_runs_total",
				Help:      "Backtest runs by status",
			},
			[]string{"status"},
		),
		BacktestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backtest_duration_seconds",
				Help:      "Backtest wall time",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		BacktestROI: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtest_roi_percent",
				Help:      "ROI of the last backtest",
			},
		),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "External provider calls by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job wall time",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"job"},
		),
	}
	m.registerAll()
	return m
}

func (m *Metrics) registerAll() {
	m.registry.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.DecisionsTotal,
		m.Confidence,
		m.PicksRecorded,
		m.PicksRejected,
		m.PicksResolved,
		m.ResolvedProfit,
		m.ClosingCaptured,
		m.Conflicts,
		m.BacktestRuns,
		m.BacktestDuration,
		m.BacktestROI,
		m.ProviderRequests,
		m.JobRuns,
		m.JobDuration,
	)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAnalysis counts one analysis; market is empty for SKIP.
func (m *Metrics) RecordAnalysis(mode, status, decision, market string, confidence float64, took time.Duration) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.WithLabelValues(mode).Observe(took.Seconds())
	if decision == "" {
		return
	}
	if market == "" {
		market = "none"
	}
	m.DecisionsTotal.WithLabelValues(decision, market).Inc()
	m.Confidence.Observe(confidence)
}

func (m *Metrics) RecordPicks(created, updated, rejected int) {
	m.PicksRecorded.WithLabelValues("created").Add(float64(created))
	m.PicksRecorded.WithLabelValues("updated").Add(float64(updated))
	m.PicksRejected.Add(float64(rejected))
}

// RecordResolution counts outcomes. Counters cannot go down, so only gains
// are added to ResolvedProfit.
func (m *Metrics) RecordResolution(wins, losses, pushes int, profit decimal.Decimal) {
	m.PicksResolved.WithLabelValues("win").Add(float64(wins))
	m.PicksResolved.WithLabelValues("loss").Add(float64(losses))
	m.PicksResolved.WithLabelValues("push").Add(float64(pushes))
	if profit.IsPositive() {
		m.ResolvedProfit.Add(profit.InexactFloat64())
	}
}

func (m *Metrics) RecordBacktest(status string, roi float64, took time.Duration) {
	m.BacktestRuns.WithLabelValues(status).Inc()
	m.BacktestDuration.Observe(took.Seconds())
	m.BacktestROI.Set(roi)
}

func (m *Metrics) RecordProvider(endpoint string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequests.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) RecordJob(job string, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(took.Seconds())
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns a process-wide instance.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
