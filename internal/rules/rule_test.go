package rules

import (
	"testing"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
)

func ctxFor(record *model.Record) *expr.EvaluationContext {
	return expr.NewContext(model.FromRecord(record))
}

func newRecordWithAmount(amount int64) *model.Record {
	r := model.NewRecord()
	r.Set("amount", model.Int(amount))
	return r
}

func TestEvaluateRuleTriggersOnTruthyCondition(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Name: "highValue", Condition: "amount > 1000", Severity: "WARNING"}
	res := EvaluateRule(env, rule, newRecordWithAmount(5000), ctxFor)

	assert.True(t, res.Triggered)
	assert.Equal(t, ResultMatch, res.ResultType)
	assert.Equal(t, "highValue", res.RuleMatchedName)
}

func TestEvaluateRuleNullConditionCoercesToFalse(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Condition: "missingField"}
	res := EvaluateRule(env, rule, model.NewRecord(), ctxFor)

	assert.False(t, res.Triggered)
	assert.Equal(t, ResultNoMatch, res.ResultType)
}

func TestEvaluateRuleErrorProducesErrorResult(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Condition: "missingFn()"}
	res := EvaluateRule(env, rule, model.NewRecord(), ctxFor)

	assert.False(t, res.Triggered)
	assert.Equal(t, ResultError, res.ResultType)
}

func TestEvaluateRuleListReturnsFirstMatchInPriorityOrder(t *testing.T) {
	env := expr.NewEnvironment()
	list := []config.RuleConfig{
		{ID: "low-priority", Name: "low", Condition: "amount > 0", Priority: 200},
		{ID: "high-priority", Name: "high", Condition: "amount > 0", Priority: 10},
	}
	res := EvaluateRuleList(env, list, newRecordWithAmount(5), ctxFor)

	assert.True(t, res.Triggered)
	assert.Equal(t, "high", res.RuleMatchedName)
}

func TestEvaluateRuleListNoMatchWhenNoneTrigger(t *testing.T) {
	env := expr.NewEnvironment()
	list := []config.RuleConfig{{ID: "r1", Condition: "amount > 100000"}}
	res := EvaluateRuleList(env, list, newRecordWithAmount(5), ctxFor)

	assert.False(t, res.Triggered)
	assert.Equal(t, ResultNoMatch, res.ResultType)
}

func TestEvaluateRuleListEmptyReturnsNoRules(t *testing.T) {
	env := expr.NewEnvironment()
	res := EvaluateRuleList(env, nil, model.NewRecord(), ctxFor)
	assert.Equal(t, ResultNoRules, res.ResultType)
}
