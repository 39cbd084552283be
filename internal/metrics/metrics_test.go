package metrics

import (
	"math"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestRecorderObserveCacheOperation(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveCacheOperation("dataset", CacheHit)
	rec.SetCacheHitRate("dataset", 0.5)
	rec.SetCacheSize("dataset", 3)

	families := gather(t, rec, "apex_cache_operations_total", "apex_cache_hit_rate", "apex_cache_entries")

	counter := findMetric(t, families["apex_cache_operations_total"], map[string]string{
		"scope":   "dataset",
		"outcome": "hit",
	})
	if got := counter.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected counter value 1, got %v", got)
	}

	rate := findMetric(t, families["apex_cache_hit_rate"], map[string]string{"scope": "dataset"})
	if got := rate.GetGauge().GetValue(); got != 0.5 {
		t.Fatalf("expected hit rate 0.5, got %v", got)
	}

	size := findMetric(t, families["apex_cache_entries"], map[string]string{"scope": "dataset"})
	if got := size.GetGauge().GetValue(); got != 3 {
		t.Fatalf("expected size 3, got %v", got)
	}
}

func TestRecorderObserveRuleEvaluation(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveRuleEvaluation("positive-amount", "MATCH", 5*time.Millisecond)
	rec.ObserveRuleFailure("positive-amount")

	families := gather(t, rec, "apex_rule_evaluations_total", "apex_rule_evaluation_duration_seconds", "apex_rule_failures_total")

	evalMetric := findMetric(t, families["apex_rule_evaluations_total"], map[string]string{
		"rule":        "positive-amount",
		"result_type": "MATCH",
	})
	if got := evalMetric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected eval counter 1, got %v", got)
	}

	hist := findMetric(t, families["apex_rule_evaluation_duration_seconds"], map[string]string{"rule": "positive-amount"}).GetHistogram()
	if hist.GetSampleCount() != 1 {
		t.Fatalf("expected histogram count 1, got %d", hist.GetSampleCount())
	}
	want := 0.005
	if diff := math.Abs(hist.GetSampleSum() - want); diff > 0.001 {
		t.Fatalf("expected histogram sum near %v, got %v", want, hist.GetSampleSum())
	}

	failMetric := findMetric(t, families["apex_rule_failures_total"], map[string]string{"rule": "positive-amount"})
	if got := failMetric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected failure counter 1, got %v", got)
	}
}

func TestRecorderHandler(t *testing.T) {
	rec := NewRecorder(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	rec.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200 response, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected response body")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.ObserveCacheOperation("dataset", CacheHit)
	rec.SetCacheHitRate("dataset", 1)
	rec.SetCacheSize("dataset", 1)
	rec.ObserveRuleEvaluation("r", "MATCH", time.Millisecond)
	rec.ObserveRuleFailure("r")
	if rec.Gatherer() == nil {
		t.Fatalf("expected non-nil gatherer fallback")
	}
}

func gather(t *testing.T, rec *Recorder, names ...string) map[string][]*dto.Metric {
	t.Helper()
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	families, err := rec.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	collected := make(map[string][]*dto.Metric, len(names))
	for _, mf := range families {
		if !wanted[mf.GetName()] {
			continue
		}
		collected[mf.GetName()] = append(collected[mf.GetName()], mf.GetMetric()...)
	}
	for _, name := range names {
		if len(collected[name]) == 0 {
			t.Fatalf("metric %q not collected", name)
		}
	}
	return collected
}

func findMetric(t *testing.T, metrics []*dto.Metric, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, metric := range metrics {
		if matchLabels(metric, labels) {
			return metric
		}
	}
	t.Fatalf("metric with labels %v not found", labels)
	return nil
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) < len(labels) {
		return false
	}
	for key, expected := range labels {
		found := false
		for _, label := range metric.GetLabel() {
			if label.GetName() == key && label.GetValue() == expected {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
