package rules

import (
	"testing"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateRuleGroupListReturnsFirstMatchingGroup(t *testing.T) {
	env := expr.NewEnvironment()
	ruleByID := map[string]config.RuleConfig{
		"r1": {ID: "r1", Condition: "false"},
		"r2": {ID: "r2", Condition: "true"},
	}
	groups := []config.RuleGroupConfig{
		{ID: "g1", Name: "first", Priority: 10, Operator: config.OperatorAND,
			Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r1"}}},
		{ID: "g2", Name: "second", Priority: 20, Operator: config.OperatorAND,
			Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r2"}}},
	}

	res := EvaluateRuleGroupList(env, groups, ruleByID, model.NewRecord(), ctxFor)

	assert.True(t, res.Triggered)
	assert.Equal(t, "second", res.RuleMatchedName)
}

func TestEvaluateRuleGroupListNoMatchCarriesWorstFailedGroupDiagnostics(t *testing.T) {
	env := expr.NewEnvironment()
	ruleByID := map[string]config.RuleConfig{
		"r1": {ID: "r1", Condition: "false", Severity: config.SeverityWarning},
		"r2": {ID: "r2", Condition: "false", Severity: config.SeverityError},
	}
	groups := []config.RuleGroupConfig{
		{ID: "g1", Name: "mild", Priority: 10, Operator: config.OperatorAND,
			Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r1"}}},
		{ID: "g2", Name: "severe", Priority: 20, Operator: config.OperatorAND,
			Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r2"}}},
	}

	res := EvaluateRuleGroupList(env, groups, ruleByID, model.NewRecord(), ctxFor)

	assert.False(t, res.Triggered)
	assert.Equal(t, ResultNoMatch, res.ResultType)
	assert.NotNil(t, res.FailureDiagnostics)
	assert.Equal(t, "severe", res.FailureDiagnostics.LastFailedGroupName)
	assert.Equal(t, config.SeverityError, res.FailureDiagnostics.HighestFailedSeverity)
}

func TestEvaluateMixedListDispatchesHomogeneousRuleList(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Name: "matched", Condition: "true"}
	items := []ListItem{{Rule: &rule}}

	res := EvaluateMixedList(env, items, nil, model.NewRecord(), ctxFor)
	assert.True(t, res.Triggered)
	assert.Equal(t, "matched", res.RuleMatchedName)
}

func TestEvaluateMixedListHandlesGenuinelyMixedItemsInPriorityOrder(t *testing.T) {
	env := expr.NewEnvironment()
	ruleByID := map[string]config.RuleConfig{"r2": {ID: "r2", Condition: "true"}}
	rule1 := config.RuleConfig{ID: "r1", Name: "r1", Condition: "false", Priority: 5}
	group2 := config.RuleGroupConfig{
		ID: "g2", Name: "g2", Priority: 10, Operator: config.OperatorAND,
		Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r2"}},
	}
	items := []ListItem{{Group: &group2}, {Rule: &rule1}}

	res := EvaluateMixedList(env, items, ruleByID, model.NewRecord(), ctxFor)

	assert.True(t, res.Triggered)
	assert.Equal(t, "g2", res.RuleMatchedName)
}
