package metrics

import "github.com/prometheus/client_golang/prometheus"

// FanOutMetrics counts per-owner notification outcomes of order fan-out.
type FanOutMetrics struct {
	emitted prometheus.Counter
	skipped prometheus.Counter
	failed  prometheus.Counter
}

// NewFanOutMetrics registers the fan-out counters on reg. A nil reg yields a no-op recorder.
func NewFanOutMetrics(reg prometheus.Registerer) *FanOutMetrics {
	if reg == nil {
		return &FanOutMetrics{}
	}
	m := &FanOutMetrics{
		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstall_notifications_emitted_total",
			Help: "Order notifications written for book owners.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstall_notifications_skipped_total",
			Help: "Order notifications skipped because they already existed.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstall_notifications_failed_total",
			Help: "Order line items whose owner notification could not be written.",
		}),
	}
	reg.MustRegister(m.emitted, m.skipped, m.failed)
	return m
}

func (m *FanOutMetrics) IncEmitted() {
	if m == nil || m.emitted == nil {
		return
	}
	m.emitted.Inc()
}

func (m *FanOutMetrics) IncSkipped() {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.Inc()
}

func (m *FanOutMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}
