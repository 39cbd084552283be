package orchestrator

import (
	"testing"

	"github.com/apexrules/apex/internal/cache"
	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currencyDataset() *config.DatasetConfig {
	return &config.DatasetConfig{
		Type:     "inline",
		KeyField: "code",
		Data: []map[string]any{
			{"code": "USD", "name": "US Dollar", "symbol": "$"},
			{"code": "EUR", "name": "Euro", "symbol": "€"},
		},
	}
}

// TestEvaluateCurrencyEnrichmentInlineDataset is §8 scenario 1.
func TestEvaluateCurrencyEnrichmentInlineDataset(t *testing.T) {
	cfg := &config.Configuration{
		Enrichments: []config.EnrichmentConfig{
			{
				ID:            "currency-lookup",
				Type:          config.EnrichmentLookup,
				LookupKey:     "#currency",
				LookupDataset: currencyDataset(),
				FieldMappings: []config.FieldMappingConfig{
					{SourceField: "code", TargetField: "currencyCode"},
					{SourceField: "name", TargetField: "currencyName"},
					{SourceField: "symbol", TargetField: "currencySymbol"},
				},
			},
		},
	}

	eval := New(cache.New())
	res := eval.Evaluate(cfg, map[string]any{"currency": "USD"})

	require.True(t, res.Success)
	assert.Equal(t, "USD", res.EnrichedData["currencyCode"])
	assert.Equal(t, "US Dollar", res.EnrichedData["currencyName"])
	assert.Equal(t, "$", res.EnrichedData["currencySymbol"])
}

// TestEvaluateDatasetDedupAcrossEnrichments is §8 scenario 2: two
// enrichments over byte-identical inline datasets share one
// DatasetLookupService, observable via the dataset cache's hit/miss
// statistics (one miss to build it, one hit to reuse it).
func TestEvaluateDatasetDedupAcrossEnrichments(t *testing.T) {
	c := cache.New()
	cfg := &config.Configuration{
		Enrichments: []config.EnrichmentConfig{
			{
				ID: "currency-lookup-a", Type: config.EnrichmentLookup,
				LookupKey: "#currency", LookupDataset: currencyDataset(),
				FieldMappings: []config.FieldMappingConfig{{SourceField: "name", TargetField: "nameA"}},
			},
			{
				ID: "currency-lookup-b", Type: config.EnrichmentLookup,
				LookupKey: "#currency", LookupDataset: currencyDataset(),
				FieldMappings: []config.FieldMappingConfig{{SourceField: "name", TargetField: "nameB"}},
			},
		},
	}

	eval := New(c)
	res := eval.Evaluate(cfg, map[string]any{"currency": "EUR"})

	require.True(t, res.Success)
	assert.Equal(t, "Euro", res.EnrichedData["nameA"])
	assert.Equal(t, "Euro", res.EnrichedData["nameB"])

	stats := c.GetStatistics(cache.ScopeDataset)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

// TestEvaluateRequiredFieldFailure is §8 scenario 3.
func TestEvaluateRequiredFieldFailure(t *testing.T) {
	cfg := &config.Configuration{
		Enrichments: []config.EnrichmentConfig{
			{
				ID:        "risk-lookup",
				Type:      config.EnrichmentLookup,
				LookupKey: "#code",
				LookupDataset: &config.DatasetConfig{
					Type:     "inline",
					KeyField: "code",
					Data:     []map[string]any{{"code": "XYZ"}},
				},
				FieldMappings: []config.FieldMappingConfig{
					{SourceField: "riskScore", TargetField: "riskScore", Required: true},
				},
			},
		},
	}

	eval := New(cache.New())
	res := eval.Evaluate(cfg, map[string]any{"code": "XYZ"})

	require.False(t, res.Success)
	assert.NotContains(t, res.EnrichedData, "riskScore")
	require.Len(t, res.FailureMessages, 1)
	assert.Contains(t, res.FailureMessages[0], "required field")
}

// TestEvaluateNilInputsProduceFailureResult covers §4.7 step 1.
func TestEvaluateNilInputsProduceFailureResult(t *testing.T) {
	eval := New(cache.New())

	res := eval.Evaluate(nil, map[string]any{"a": 1})
	assert.False(t, res.Success)
	assert.Equal(t, rules.ResultError, res.ResultType)

	res = eval.Evaluate(&config.Configuration{}, nil)
	assert.False(t, res.Success)
}

// TestEvaluateRuleMatch exercises the rules half of the pipeline end to end.
func TestEvaluateRuleMatch(t *testing.T) {
	cfg := &config.Configuration{
		Rules: []config.RuleConfig{
			{ID: "r1", Name: "highValue", Condition: "amount > 1000", Message: "large transaction", Severity: "WARNING"},
		},
	}

	eval := New(cache.New())
	res := eval.Evaluate(cfg, map[string]any{"amount": 5000})

	assert.True(t, res.Triggered)
	assert.Equal(t, "highValue", res.RuleMatchedName)
	require.NotNil(t, res.PerformanceMetrics)
	assert.Equal(t, int64(1), res.PerformanceMetrics.EvaluationCount)
}
