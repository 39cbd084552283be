// Package metrics exposes Prometheus collectors for the unified cache's
// per-scope statistics and the rule evaluator's per-rule performance
// metrics (§6 "Observability outputs"), following the teacher's
// Recorder-wraps-a-registry pattern.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder publishes Prometheus metrics for cache and rule-evaluation
// activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	cacheOperations *prometheus.CounterVec
	cacheHitRate    *prometheus.GaugeVec
	cacheSize       *prometheus.GaugeVec

	ruleEvaluations *prometheus.CounterVec
	ruleDuration    *prometheus.HistogramVec
	ruleFailures    *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a
// dedicated registry is created so multiple recorders can coexist without
// conflicting with the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Unified cache operations, labeled by scope and outcome (hit/miss/eviction).",
	}, []string{"scope", "outcome"})

	cacheHitRate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apex",
		Subsystem: "cache",
		Name:      "hit_rate",
		Help:      "Most recently observed hits/(hits+misses) ratio per cache scope.",
	}, []string{"scope"})

	cacheSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apex",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Live entry count per cache scope.",
	}, []string{"scope"})

	ruleEvaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Subsystem: "rule",
		Name:      "evaluations_total",
		Help:      "Rule evaluations, labeled by rule name and result type.",
	}, []string{"rule", "result_type"})

	ruleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apex",
		Subsystem: "rule",
		Name:      "evaluation_duration_seconds",
		Help:      "Latency distribution for single-rule evaluations.",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"rule"})

	ruleFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apex",
		Subsystem: "rule",
		Name:      "failures_total",
		Help:      "Rule evaluations that produced a RuleEvaluationError.",
	}, []string{"rule"})

	reg.MustRegister(cacheOperations, cacheHitRate, cacheSize, ruleEvaluations, ruleDuration, ruleFailures)

	return &Recorder{
		gatherer:        reg,
		handler:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		cacheOperations: cacheOperations,
		cacheHitRate:    cacheHitRate,
		cacheSize:       cacheSize,
		ruleEvaluations: ruleEvaluations,
		ruleDuration:    ruleDuration,
		ruleFailures:    ruleFailures,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// CacheOutcome identifies a unified-cache operation's result.
type CacheOutcome string

const (
	CacheHit      CacheOutcome = "hit"
	CacheMiss     CacheOutcome = "miss"
	CacheEviction CacheOutcome = "eviction"
)

// ObserveCacheOperation increments the per-scope operation counter (§4.6
// cache statistics).
func (r *Recorder) ObserveCacheOperation(scope string, outcome CacheOutcome) {
	if r == nil {
		return
	}
	r.cacheOperations.WithLabelValues(scope, string(outcome)).Inc()
}

// SetCacheHitRate publishes a scope's current hitRate (§4.6
// "getStatistics(scope) -> {..., hitRate}").
func (r *Recorder) SetCacheHitRate(scope string, hitRate float64) {
	if r == nil {
		return
	}
	r.cacheHitRate.WithLabelValues(scope).Set(hitRate)
}

// SetCacheSize publishes a scope's current live entry count.
func (r *Recorder) SetCacheSize(scope string, size int) {
	if r == nil {
		return
	}
	r.cacheSize.WithLabelValues(scope).Set(float64(size))
}

// ObserveRuleEvaluation records one rule evaluation's result type and
// latency (§6 "performance metrics per rule"; §8 RuleResult.resultType).
func (r *Recorder) ObserveRuleEvaluation(ruleName, resultType string, duration time.Duration) {
	if r == nil {
		return
	}
	r.ruleEvaluations.WithLabelValues(ruleName, resultType).Inc()
	r.ruleDuration.WithLabelValues(ruleName).Observe(duration.Seconds())
}

// ObserveRuleFailure records that a rule's condition raised a
// RuleEvaluationError.
func (r *Recorder) ObserveRuleFailure(ruleName string) {
	if r == nil {
		return
	}
	r.ruleFailures.WithLabelValues(ruleName).Inc()
}
