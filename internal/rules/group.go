package rules

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
)

// sortedMembers stable-sorts a rule-group's members by ascending sequence
// (§3 "iteration order is by ascending sequence").
func sortedMembers(in []config.RuleGroupMemberConfig) []config.RuleGroupMemberConfig {
	out := make([]config.RuleGroupMemberConfig, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func evaluateMember(env *expr.Environment, ruleID string, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder *Recorder) RuleResult {
	ruleCfg, ok := ruleByID[ruleID]
	if !ok {
		return RuleResult{
			ID:         ruleID,
			Severity:   config.SeverityError,
			ResultType: ResultError,
			Timestamp:  time.Now().UTC(),
		}
	}
	return EvaluateRule(env, ruleCfg, record, buildCtx, recorder)
}

// evaluateGroupSequential implements §4.5's sequential strategy: iterate in
// ascending sequence, short-circuiting per operator iff shortCircuit is set.
// An unresolved member or a rule-evaluation error is just another
// non-triggered result, so the same short-circuit check handles both the
// "rule returned false" and "rule errored" cases the spec calls out
// separately.
func evaluateGroupSequential(env *expr.Environment, members []config.RuleGroupMemberConfig, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, operator string, shortCircuit bool, recorder *Recorder) []RuleResult {
	individual := make([]RuleResult, 0, len(members))
	for _, m := range members {
		res := evaluateMember(env, m.RuleID, ruleByID, record, buildCtx, recorder)
		individual = append(individual, res)
		if !shortCircuit {
			continue
		}
		if operator == config.OperatorAND && !res.Triggered {
			break
		}
		if operator == config.OperatorOR && res.Triggered {
			break
		}
	}
	return individual
}

// evaluateGroupParallel implements §4.5's parallel strategy: every member is
// dispatched to a bounded worker pool and always appears in the result,
// regardless of outcome (§8 "every rule in the group appears in the
// individual-results list"). Short-circuiting is disabled by construction.
func evaluateGroupParallel(env *expr.Environment, members []config.RuleGroupMemberConfig, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder *Recorder) []RuleResult {
	n := len(members)
	workers := n
	if cpu := runtime.NumCPU(); cpu < workers {
		workers = cpu
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]RuleResult, n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = evaluateMember(env, members[i].RuleID, ruleByID, record, buildCtx, recorder)
			}
		}()
	}
	for i := range members {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// computeGroupResult implements §3's derived invariant: `groupResult =
// (operator=AND ? failed==0 : passed>0)`, with the §8 boundary override that
// an empty group always returns false.
func computeGroupResult(operator string, individual []RuleResult, passed, failed int) bool {
	if len(individual) == 0 {
		return false
	}
	if operator == config.OperatorOR {
		return passed > 0
	}
	return failed == 0
}

// aggregateSeverity implements §4.5's per-group severity aggregation.
func aggregateSeverity(operator string, individual []RuleResult) string {
	if len(individual) == 0 {
		return ""
	}
	if operator == config.OperatorOR {
		for _, r := range individual {
			if r.Triggered {
				return r.Severity
			}
		}
		return maxSeverityAcross(individual, false)
	}
	anyFailed := false
	for _, r := range individual {
		if !r.Triggered {
			anyFailed = true
			break
		}
	}
	if anyFailed {
		return maxSeverityAcross(individual, true)
	}
	return maxSeverityAcross(individual, false)
}

// maxSeverityAcross folds config.MaxSeverity over individual, optionally
// restricted to non-triggered ("failed") results.
func maxSeverityAcross(individual []RuleResult, failedOnly bool) string {
	sev := ""
	for _, r := range individual {
		if failedOnly && r.Triggered {
			continue
		}
		if sev == "" {
			sev = r.Severity
			continue
		}
		sev = config.MaxSeverity(sev, r.Severity)
	}
	return sev
}

// EvaluateRuleGroup evaluates one rule-group per §4.5, dispatching to the
// sequential or parallel strategy depending on configuration.
func EvaluateRuleGroup(env *expr.Environment, group config.RuleGroupConfig, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) RuleGroupEvaluationResult {
	started := time.Now().UTC()
	operator := group.EffectiveOperator()
	members := sortedMembers(group.Rules)
	rec := firstRecorder(recorder)

	var individual []RuleResult
	if group.ParallelExecution && len(members) > 1 {
		individual = evaluateGroupParallel(env, members, ruleByID, record, buildCtx, rec)
	} else {
		shortCircuit := group.StopOnFirstFailure && !group.DebugMode
		individual = evaluateGroupSequential(env, members, ruleByID, record, buildCtx, operator, shortCircuit, rec)
	}

	passed, failed := 0, 0
	for _, r := range individual {
		if r.Triggered {
			passed++
		} else {
			failed++
		}
	}

	return RuleGroupEvaluationResult{
		GroupID:            group.ID,
		GroupName:          group.Name,
		Operator:           operator,
		GroupResult:        computeGroupResult(operator, individual, passed, failed),
		IndividualResults:  individual,
		AggregatedSeverity: aggregateSeverity(operator, individual),
		StartedAt:          started,
		DurationMs:         time.Since(started).Milliseconds(),
		TotalEvaluated:     len(individual),
		Passed:             passed,
		Failed:             failed,
	}
}
