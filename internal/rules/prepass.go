package rules

import (
	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
)

// PrePassResults holds the read-only rule/rule-group outcomes the enrichment
// pipeline binds into its evaluation context (§4.4 pre-pass).
type PrePassResults struct {
	RuleResults      model.Value
	RuleGroupResults model.Value
}

// RunPrePass evaluates every configured rule and rule-group against record in
// read-only mode (no mutation of record) and packages the outcomes the way
// §4.4 describes: #ruleResults maps ruleId -> bool, #ruleGroupResults maps
// groupId -> { passed: bool, <ruleName>: bool, ... }.
func RunPrePass(env *expr.Environment, rulesCfg []config.RuleConfig, groupsCfg []config.RuleGroupConfig, record *model.Record, buildCtx ContextBuilder, recorder ...*Recorder) PrePassResults {
	rec := firstRecorder(recorder)
	ruleByID := make(map[string]config.RuleConfig, len(rulesCfg))
	ruleResults := model.NewRecord()
	for _, r := range rulesCfg {
		ruleByID[r.ID] = r
		res := EvaluateRule(env, r, record, buildCtx, rec)
		ruleResults.Set(r.ID, model.Bool(res.Triggered))
	}

	groupResults := model.NewRecord()
	for _, g := range groupsCfg {
		groupRes := EvaluateRuleGroup(env, g, ruleByID, record, buildCtx, rec)
		entry := model.NewRecord()
		entry.Set("passed", model.Bool(groupRes.GroupResult))
		for _, res := range groupRes.IndividualResults {
			if ruleCfg, ok := ruleByID[res.ID]; ok {
				entry.Set(ruleCfg.Name, model.Bool(res.Triggered))
			}
		}
		groupResults.Set(g.ID, model.FromRecord(entry))
	}

	return PrePassResults{
		RuleResults:      model.FromRecord(ruleResults),
		RuleGroupResults: model.FromRecord(groupResults),
	}
}
