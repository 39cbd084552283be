package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleDefaults(t *testing.T) {
	r := RuleConfig{}
	assert.Equal(t, SeverityInfo, r.EffectiveSeverity())
	assert.Equal(t, DefaultPriority, r.EffectivePriority())
}

func TestRuleGroupDefaultsToAND(t *testing.T) {
	g := RuleGroupConfig{}
	assert.Equal(t, OperatorAND, g.EffectiveOperator())
	g.Operator = "or"
	assert.Equal(t, OperatorOR, g.EffectiveOperator())
}

func TestEnrichmentEnabledDefaultsTrue(t *testing.T) {
	e := EnrichmentConfig{}
	assert.True(t, e.IsEnabled())
	disabled := false
	e.Enabled = &disabled
	assert.False(t, e.IsEnabled())
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityError, MaxSeverity(SeverityWarning, SeverityError))
	assert.Equal(t, SeverityWarning, MaxSeverity(SeverityWarning, SeverityInfo))
	assert.Equal(t, SeverityInfo, MaxSeverity(SeverityInfo, SeverityInfo))
}

func TestValidateRejectsEmptyRuleFields(t *testing.T) {
	cfg := Configuration{Rules: []RuleConfig{{ID: "r1", Condition: "", Message: "m"}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicateRuleID(t *testing.T) {
	cfg := Configuration{Rules: []RuleConfig{
		{ID: "r1", Condition: "true", Message: "m"},
		{ID: "r1", Condition: "true", Message: "m"},
	}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnsupportedSeverity(t *testing.T) {
	cfg := Configuration{Rules: []RuleConfig{{ID: "r1", Condition: "true", Message: "m", Severity: "CRITICAL"}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicateRuleGroupSequence(t *testing.T) {
	cfg := Configuration{RuleGroups: []RuleGroupConfig{{
		ID:       "g1",
		Operator: OperatorAND,
		Rules: []RuleGroupMemberConfig{
			{Sequence: 1, RuleID: "r1"},
			{Sequence: 1, RuleID: "r2"},
		},
	}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnsupportedEnrichmentType(t *testing.T) {
	cfg := Configuration{Enrichments: []EnrichmentConfig{{ID: "e1", Type: "mystery-enrichment"}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDatasetMissingKeyField(t *testing.T) {
	cfg := Configuration{Enrichments: []EnrichmentConfig{{
		ID:   "e1",
		Type: EnrichmentLookup,
		LookupDataset: &DatasetConfig{
			Type: "inline",
			Data: []map[string]any{{"code": "USD"}},
		},
	}}}
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedConfiguration(t *testing.T) {
	cfg := Configuration{
		Rules: []RuleConfig{{ID: "r1", Condition: "#amount > 0", Message: "positive amount"}},
		RuleGroups: []RuleGroupConfig{{
			ID:       "g1",
			Operator: OperatorAND,
			Rules:    []RuleGroupMemberConfig{{Sequence: 1, RuleID: "r1"}},
		}},
		Enrichments: []EnrichmentConfig{{
			ID:   "e1",
			Type: EnrichmentLookup,
			LookupDataset: &DatasetConfig{
				Type:     "inline",
				KeyField: "code",
				Data:     []map[string]any{{"code": "USD", "name": "US Dollar"}},
			},
		}},
	}
	require.NoError(t, cfg.Validate())
}
