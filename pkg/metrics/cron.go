package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronOutcome labels a single scheduled run.
type CronOutcome string

const (
	CronSucceeded CronOutcome = "succeeded"
	CronFailed    CronOutcome = "failed"
	// CronSkipped means another worker held the job lock.
	CronSkipped CronOutcome = "skipped"
)

// CronJobMetrics tracks cron runs per job.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstall_cron_job_runs_total",
			Help: "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookstall_cron_job_duration_seconds",
			Help:    "Wall time of cron jobs that executed.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bookstall_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
		now: time.Now,
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	}
	return m
}

// Observe records one run. Skipped runs carry no duration.
func (m *CronJobMetrics) Observe(job string, outcome CronOutcome, took time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, string(outcome)).Inc()
	if outcome == CronSkipped {
		return
	}
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == CronSucceeded {
		m.lastSuccess.WithLabelValues(job).Set(float64(m.now().Unix()))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
