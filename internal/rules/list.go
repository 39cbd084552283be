package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
)

// matchedGroupResult renders a passing rule-group as the shared RuleResult
// shape a rule-group list (or mixed list) returns on first match.
func matchedGroupResult(group config.RuleGroupConfig, groupRes RuleGroupEvaluationResult) RuleResult {
	return RuleResult{
		ID:              group.ID,
		RuleMatchedName: group.Name,
		Message:         fmt.Sprintf("rule group %q matched", group.Name),
		Severity:        groupRes.AggregatedSeverity,
		Triggered:       true,
		ResultType:      ResultMatch,
		Timestamp:       time.Now().UTC(),
	}
}

// noMatchResult renders a NO_MATCH RuleResult carrying failure diagnostics
// from whichever evaluated group had the highest aggregated severity (§4.5
// "Rule-group result for first-match failure tracking").
func noMatchResult(worst *RuleGroupEvaluationResult) RuleResult {
	res := RuleResult{ResultType: ResultNoMatch, Timestamp: time.Now().UTC()}
	if worst != nil {
		res.FailureDiagnostics = &FailureDiagnostics{
			LastFailedGroupName:    worst.GroupName,
			LastFailedGroupMessage: fmt.Sprintf("rule group %q did not match", worst.GroupName),
			HighestFailedSeverity:  worst.AggregatedSeverity,
		}
	}
	return res
}

func worseGroup(current, candidate *RuleGroupEvaluationResult) *RuleGroupEvaluationResult {
	if current == nil {
		return candidate
	}
	if config.SeverityRank(candidate.AggregatedSeverity) > config.SeverityRank(current.AggregatedSeverity) {
		return candidate
	}
	return current
}

// EvaluateRuleGroupList implements the rule-group analogue of §4.5's
// rule-list first-match semantics: ascending priority, return the first
// group whose GroupResult is true.
func EvaluateRuleGroupList(env *expr.Environment, groups []config.RuleGroupConfig, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) RuleResult {
	if len(groups) == 0 {
		return RuleResult{ResultType: ResultNoRules, Timestamp: time.Now().UTC()}
	}

	rec := firstRecorder(recorder)
	sorted := make([]config.RuleGroupConfig, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectivePriority() < sorted[j].EffectivePriority()
	})

	var worst *RuleGroupEvaluationResult
	for _, group := range sorted {
		groupRes := EvaluateRuleGroup(env, group, ruleByID, record, buildCtx, rec)
		if groupRes.GroupResult {
			return matchedGroupResult(group, groupRes)
		}
		groupResCopy := groupRes
		worst = worseGroup(worst, &groupResCopy)
	}
	return noMatchResult(worst)
}

// ListItem is one element of a heterogeneous rule/rule-group list (§4.5
// "Mixed list evaluation"). Exactly one of Rule or Group is set.
type ListItem struct {
	Rule  *config.RuleConfig
	Group *config.RuleGroupConfig
}

func (it ListItem) priority() int {
	if it.Rule != nil {
		return it.Rule.EffectivePriority()
	}
	return it.Group.EffectivePriority()
}

// EvaluateMixedList implements §4.5's mixed list evaluation: a
// homogeneous list delegates to EvaluateRuleList/EvaluateRuleGroupList;
// a genuinely mixed list iterates manually in priority order under the
// same first-match policy.
func EvaluateMixedList(env *expr.Environment, items []ListItem, ruleByID map[string]config.RuleConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) RuleResult {
	if len(items) == 0 {
		return RuleResult{ResultType: ResultNoRules, Timestamp: time.Now().UTC()}
	}

	rec := firstRecorder(recorder)
	allRules, allGroups := true, true
	for _, it := range items {
		if it.Rule == nil {
			allRules = false
		}
		if it.Group == nil {
			allGroups = false
		}
	}

	if allRules {
		list := make([]config.RuleConfig, len(items))
		for i, it := range items {
			list[i] = *it.Rule
		}
		return EvaluateRuleList(env, list, record, buildCtx, rec)
	}
	if allGroups {
		list := make([]config.RuleGroupConfig, len(items))
		for i, it := range items {
			list[i] = *it.Group
		}
		return EvaluateRuleGroupList(env, list, ruleByID, record, buildCtx, rec)
	}

	sorted := make([]ListItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].priority() < sorted[j].priority() })

	var worst *RuleGroupEvaluationResult
	for _, it := range sorted {
		if it.Rule != nil {
			res := EvaluateRule(env, *it.Rule, record, buildCtx, rec)
			if res.Triggered {
				return res
			}
			continue
		}
		groupRes := EvaluateRuleGroup(env, *it.Group, ruleByID, record, buildCtx, rec)
		if groupRes.GroupResult {
			return matchedGroupResult(*it.Group, groupRes)
		}
		groupResCopy := groupRes
		worst = worseGroup(worst, &groupResCopy)
	}
	return noMatchResult(worst)
}
