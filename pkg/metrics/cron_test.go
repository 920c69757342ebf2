package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronMetricsLabelsRunsByJobAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronMetrics(reg)
	metrics.ObserveRun("balance-reconcile", 2*time.Second, nil)
	metrics.ObserveRun("balance-reconcile", time.Second, errors.New("replay failed"))
	metrics.SkipRun("outbox-retention")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		job, outcome string
	}{
		{"balance-reconcile", RunSucceeded},
		{"balance-reconcile", RunFailed},
		{"outbox-retention", RunSkipped},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": tc.job, "outcome": tc.outcome})
		if err != nil {
			t.Fatalf("fetch %s/%s: %v", tc.job, tc.outcome, err)
		}
		if got != 1 {
			t.Fatalf("expected %s/%s=1, got %f", tc.job, tc.outcome, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "balance-reconcile"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 3 {
		t.Fatalf("expected reconcile duration sum 3s, got %f", got)
	}
	if _, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "outbox-retention"); err == nil {
		t.Fatalf("skipped run must not observe a duration")
	}
}

func TestCronMetricsTracksDriftAndOutbox(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronMetrics(reg)
	metrics.AddDrift(3, 2)
	metrics.AddDrift(1, 0)
	metrics.ObserveOutbox(40, 12)
	metrics.ObserveOutbox(7, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "balance_drift_parts_total", map[string]string{"action": "detected"}); got != 4 {
		t.Fatalf("expected 4 detected, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "balance_drift_parts_total", map[string]string{"action": "repaired"}); got != 2 {
		t.Fatalf("expected 2 repaired, got %f", got)
	}
	if mf := findMetricFamily(mfs, "outbox_pending_events"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Fatalf("expected backlog gauge to hold the latest count")
	}
	if mf := findMetricFamily(mfs, "outbox_purged_events_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 12 {
		t.Fatalf("expected 12 purged rows")
	}
}

func TestCronMetricsNilSafe(t *testing.T) {
	var metrics *CronMetrics
	metrics.ObserveRun("balance-reconcile", time.Second, nil)
	metrics.SkipRun("balance-reconcile")
	metrics.AddDrift(1, 1)
	metrics.ObserveOutbox(1, 1)
	NewCronMetrics(nil).AddDrift(1, 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{label: value}) {
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

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if value != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
