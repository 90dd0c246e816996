package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_780_000_000, 0) }

	job := "rating-reconcile"
	m.Observe(job, CronSucceeded, 250*time.Millisecond)
	m.Observe(job, CronFailed, time.Second)
	m.Observe(job, CronSkipped, 0)
	m.Observe(job, CronSkipped, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "bookstall_cron_job_runs_total")
	if runs == nil {
		t.Fatal("runs counter not exported")
	}
	want := map[string]float64{"succeeded": 1, "failed": 1, "skipped": 2}
	for _, metric := range runs.GetMetric() {
		for outcome, n := range want {
			if matchesLabel(metric.GetLabel(), "outcome", outcome) && metric.GetCounter().GetValue() != n {
				t.Fatalf("outcome %s: expected %v, got %v", outcome, n, metric.GetCounter().GetValue())
			}
		}
	}

	hist := findMetricFamily(mfs, "bookstall_cron_job_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two timed runs, got %v", hist)
	}

	last := findMetricFamily(mfs, "bookstall_cron_job_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() != 1_780_000_000 {
		t.Fatalf("unexpected last success gauge %v", last)
	}

	var nilMetrics *CronJobMetrics
	nilMetrics.Observe(job, CronFailed, time.Second)
	NewCronJobMetrics(nil).Observe("", CronSucceeded, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestFanOutAndOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	fanout := NewFanOutMetrics(reg)
	outbox := NewOutboxMetrics(reg)

	fanout.IncEmitted()
	fanout.IncEmitted()
	fanout.IncFailed()
	outbox.IncPublished("order_created")
	outbox.IncDeadLettered("order_created", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	emitted := findMetricFamily(mfs, "bookstall_notifications_emitted_total")
	if emitted == nil || emitted.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected emitted=2, got %v", emitted)
	}
	if got, err := fetchCounterValue(mfs, "bookstall_outbox_published_total", "event_type", "order_created"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "bookstall_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected dead lettered=1, got %f (%v)", got, err)
	}

	var nilMetrics *FanOutMetrics
	nilMetrics.IncEmitted()
	NewOutboxMetrics(nil).IncFailed("order_created")
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/books", 200, 15*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "bookstall_http_requests_total", "route", "/api/v1/books"); err != nil || got != 1 {
		t.Fatalf("expected one books request, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "bookstall_http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("expected one unmatched request, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "bookstall_http_request_duration_seconds", "route", "/api/v1/books"); err != nil || got <= 0 {
		t.Fatalf("expected books latency > 0, got %f (%v)", got, err)
	}

	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
}
