package rules

import (
	"sync"
	"time"
)

// Recorder accumulates the per-rule performance history §6 "Observability
// outputs" documents (evaluationCount, totalTime, min/max/averageTime,
// failedEvaluations, successRate) across the lifetime of the Recorder
// instance (the orchestrator's Evaluator holds one), keyed by rule name. It is the
// SPEC_FULL.md-supplemented "performance metrics aggregation" feature;
// passing a Recorder to EvaluateRule/EvaluateRuleList/EvaluateRuleGroup (an
// optional trailing argument, so existing call sites are unaffected)
// populates each returned RuleResult's PerformanceMetrics with the
// just-updated snapshot.
//
// AverageMemory and AverageComplexity have no meaningful signal to derive
// from a tree-walking evaluator with no allocation/step instrumentation;
// they are always reported as 0 rather than guessed.
type Recorder struct {
	mu      sync.Mutex
	history map[string]*ruleHistory
}

type ruleHistory struct {
	count   int64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	failed  int64
	success int64
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{history: make(map[string]*ruleHistory)}
}

// record folds one rule evaluation's outcome into ruleName's history and
// returns the resulting snapshot.
func (r *Recorder) record(ruleName string, d time.Duration, errored bool) PerformanceMetrics {
	if r == nil {
		return PerformanceMetrics{DurationMs: d.Milliseconds()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.history[ruleName]
	if !ok {
		h = &ruleHistory{min: d, max: d}
		r.history[ruleName] = h
	}
	h.count++
	h.total += d
	if d < h.min {
		h.min = d
	}
	if d > h.max {
		h.max = d
	}
	if errored {
		h.failed++
	} else {
		h.success++
	}

	avg := float64(h.total.Milliseconds()) / float64(h.count)
	successRate := float64(h.success) / float64(h.count)

	return PerformanceMetrics{
		DurationMs:        d.Milliseconds(),
		EvaluationCount:   h.count,
		TotalTimeMs:       h.total.Milliseconds(),
		MinTimeMs:         h.min.Milliseconds(),
		MaxTimeMs:         h.max.Milliseconds(),
		AverageTimeMs:     avg,
		FailedEvaluations: h.failed,
		SuccessRate:       successRate,
	}
}

// firstRecorder returns the sole recorder passed via a variadic "...
// *Recorder" optional-argument slot, or nil when the caller omitted it.
func firstRecorder(rs []*Recorder) *Recorder {
	if len(rs) == 0 {
		return nil
	}
	return rs[0]
}
