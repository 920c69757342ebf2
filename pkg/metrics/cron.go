package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for a cron job run.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunSkipped   = "skipped"
)

// CronMetrics covers the cron worker: job runs plus what the balance
// reconcile and outbox retention jobs find.
type CronMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drift    *prometheus.CounterVec
	backlog  prometheus.Gauge
	purged   prometheus.Counter
}

// NewCronMetrics registers the cron metrics on the provided registerer.
func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs by outcome. Skipped runs lost the job lock to another worker.",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron job runs in seconds.",
		Buckets: []float64{.05, .25, 1, 5, 15, 60, 300, 900},
	}, []string{"job"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_drift_parts_total",
		Help: "Parts whose stored balance disagreed with the ledger replay.",
	}, []string{"action"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_events",
		Help: "Unpublished outbox rows seen by the last retention run.",
	})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_purged_events_total",
		Help: "Published outbox rows deleted by retention.",
	})
	reg.MustRegister(runs, duration, drift, backlog, purged)
	return &CronMetrics{
		runs:     runs,
		duration: duration,
		drift:    drift,
		backlog:  backlog,
		purged:   purged,
	}
}

// ObserveRun records a finished job run.
func (c *CronMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	outcome := RunSucceeded
	if err != nil {
		outcome = RunFailed
	}
	c.runs.WithLabelValues(job, outcome).Inc()
	c.duration.WithLabelValues(job).Observe(duration.Seconds())
}

// SkipRun records a run that did not start because the job lock was held.
func (c *CronMetrics) SkipRun(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), RunSkipped).Inc()
}

// AddDrift counts drifted parts found and repaired by one reconcile run.
func (c *CronMetrics) AddDrift(detected, repaired int) {
	if c == nil || c.drift == nil {
		return
	}
	if detected > 0 {
		c.drift.WithLabelValues("detected").Add(float64(detected))
	}
	if repaired > 0 {
		c.drift.WithLabelValues("repaired").Add(float64(repaired))
	}
}

// ObserveOutbox records one retention pass.
func (c *CronMetrics) ObserveOutbox(pending, purged int64) {
	if c == nil || c.backlog == nil {
		return
	}
	c.backlog.Set(float64(pending))
	if purged > 0 {
		c.purged.Add(float64(purged))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
