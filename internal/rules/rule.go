package rules

import (
	"sort"
	"time"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
)

// ContextBuilder produces a fresh evaluation context rooted at record for a
// single rule evaluation. The orchestrator supplies one that also attaches
// the service registry and the "rules" stage marker (§4.2); tests can pass a
// bare expr.NewContext wrapper.
type ContextBuilder func(record *model.Record) *expr.EvaluationContext

// EvaluateRule implements §4.5's single-rule evaluation: compile the
// condition, evaluate against a fresh context, coerce to boolean, and turn
// any evaluation failure into a RuleResult with ResultType ERROR rather than
// propagating the error. An optional trailing *Recorder accumulates §6's
// per-rule performance history and attaches the resulting snapshot to
// PerformanceMetrics; omitting it (the common case in tests) costs nothing.
func EvaluateRule(env *expr.Environment, rule config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) RuleResult {
	start := time.Now()
	res := evaluateRuleOnce(env, rule, record, buildCtx)
	if rec := firstRecorder(recorder); rec != nil {
		pm := rec.record(rule.Name, time.Since(start), res.ResultType == ResultError)
		res.PerformanceMetrics = &pm
	}
	return res
}

func evaluateRuleOnce(env *expr.Environment, rule config.RuleConfig, record *model.Record, buildCtx ContextBuilder) RuleResult {
	now := time.Now().UTC()
	severity := rule.EffectiveSeverity()

	ctx := buildCtx(record)
	v, err := env.Eval(rule.Condition, ctx)
	if err != nil {
		return RuleResult{
			ID:         rule.ID,
			Message:    rule.Message,
			Severity:   severity,
			Triggered:  false,
			ResultType: ResultError,
			Timestamp:  now,
			FailureDiagnostics: &FailureDiagnostics{
				HighestFailedSeverity: severity,
			},
		}
	}

	triggered := v.Truthy()
	res := RuleResult{
		ID:        rule.ID,
		Message:   rule.Message,
		Severity:  severity,
		Triggered: triggered,
		Timestamp: now,
	}
	if triggered {
		res.RuleMatchedName = rule.Name
		res.ResultType = ResultMatch
	} else {
		res.ResultType = ResultNoMatch
		res.FailureDiagnostics = &FailureDiagnostics{HighestFailedSeverity: severity}
	}
	return res
}

// sortedByPriority stable-sorts rules by ascending EffectivePriority, ties
// resolving in encountered order (§4.4 "Stable sort by ascending priority").
func sortedByPriority(in []config.RuleConfig) []config.RuleConfig {
	out := make([]config.RuleConfig, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectivePriority() < out[j].EffectivePriority()
	})
	return out
}

// EvaluateRuleList implements §4.5's rule-list evaluation: ascending
// priority, first-match semantics. An empty list produces NO_RULES; a list
// where no rule triggers produces NO_MATCH with no diagnostics.
func EvaluateRuleList(env *expr.Environment, list []config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) RuleResult {
	if len(list) == 0 {
		return RuleResult{ResultType: ResultNoRules, Timestamp: time.Now().UTC()}
	}

	rec := firstRecorder(recorder)
	for _, rule := range sortedByPriority(list) {
		res := EvaluateRule(env, rule, record, buildCtx, rec)
		if res.Triggered {
			return res
		}
	}

	return RuleResult{ResultType: ResultNoMatch, Timestamp: time.Now().UTC()}
}
