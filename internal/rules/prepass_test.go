package rules

import (
	"testing"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRunPrePassPopulatesRuleAndGroupResults(t *testing.T) {
	env := expr.NewEnvironment()
	rulesCfg := []config.RuleConfig{
		{ID: "r1", Name: "highValue", Condition: "amount > 1000"},
		{ID: "r2", Name: "lowValue", Condition: "amount < 10"},
	}
	groupsCfg := []config.RuleGroupConfig{
		{ID: "g1", Name: "combined", Operator: config.OperatorAND,
			Rules: []config.RuleGroupMemberConfig{{Sequence: 1, RuleID: "r1"}}},
	}

	record := newRecordWithAmount(5000)
	pp := RunPrePass(env, rulesCfg, groupsCfg, record, ctxFor)

	assert.True(t, pp.RuleResults.Record().Get("r1").Bool())
	assert.False(t, pp.RuleResults.Record().Get("r2").Bool())

	groupEntry := pp.RuleGroupResults.Record().Get("g1")
	assert.True(t, groupEntry.Record().Get("passed").Bool())
	assert.True(t, groupEntry.Record().Get("highValue").Bool())
}

func TestRunPrePassEmptyConfigReturnsEmptyRecords(t *testing.T) {
	env := expr.NewEnvironment()
	pp := RunPrePass(env, nil, nil, model.NewRecord(), ctxFor)

	assert.Equal(t, model.KindRecord, pp.RuleResults.Kind())
	assert.Equal(t, 0, pp.RuleResults.Record().Len())
	assert.Equal(t, 0, pp.RuleGroupResults.Record().Len())
}
