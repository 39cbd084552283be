package rules

import (
	"testing"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderAccumulatesAcrossEvaluations(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Name: "highValue", Condition: "amount > 1000"}
	rec := NewRecorder()

	res := EvaluateRule(env, rule, newRecordWithAmount(5000), ctxFor, rec)
	require.NotNil(t, res.PerformanceMetrics)
	assert.Equal(t, int64(1), res.PerformanceMetrics.EvaluationCount)

	res = EvaluateRule(env, rule, newRecordWithAmount(5000), ctxFor, rec)
	require.NotNil(t, res.PerformanceMetrics)
	assert.Equal(t, int64(2), res.PerformanceMetrics.EvaluationCount)
	assert.Equal(t, float64(1), res.PerformanceMetrics.SuccessRate)
}

func TestRecorderTracksFailedEvaluations(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Name: "broken", Condition: "missingFn()"}
	rec := NewRecorder()

	res := EvaluateRule(env, rule, model.NewRecord(), ctxFor, rec)
	require.NotNil(t, res.PerformanceMetrics)
	assert.Equal(t, int64(1), res.PerformanceMetrics.FailedEvaluations)
	assert.Equal(t, float64(0), res.PerformanceMetrics.SuccessRate)
}

func TestEvaluateRuleWithoutRecorderLeavesPerformanceMetricsNil(t *testing.T) {
	env := expr.NewEnvironment()
	rule := config.RuleConfig{ID: "r1", Condition: "amount > 0"}
	res := EvaluateRule(env, rule, newRecordWithAmount(5), ctxFor)
	assert.Nil(t, res.PerformanceMetrics)
}
