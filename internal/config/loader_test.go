package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
metadata:
  name: currency-enrichment
  version: "1.0"
rules:
  - id: positive-amount
    name: Positive Amount
    condition: "#amount > 0"
    message: amount must be positive
    severity: ERROR
    priority: 10
rule-groups:
  - id: validation-group
    operator: AND
    stop-on-first-failure: true
    rules:
      - sequence: 1
        rule-id: positive-amount
enrichments:
  - id: currency-lookup
    type: lookup-enrichment
    priority: 5
    lookup-key: "#currency"
    lookup-dataset:
      type: inline
      key-field: code
      data:
        - code: USD
          name: US Dollar
          symbol: "$"
        - code: EUR
          name: Euro
          symbol: "€"
    field-mappings:
      - source-field: name
        target-field: currencyName
      - source-field: symbol
        target-field: currencySymbol
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "apex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderAcceptsKebabCaseKeys(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	loader := NewLoader("APEX", path)
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, cfg.Rules, 1)
	require.Equal(t, "positive-amount", cfg.Rules[0].ID)
	require.Equal(t, SeverityError, cfg.Rules[0].EffectiveSeverity())

	require.Len(t, cfg.RuleGroups, 1)
	require.True(t, cfg.RuleGroups[0].StopOnFirstFailure)
	require.Equal(t, "positive-amount", cfg.RuleGroups[0].Rules[0].RuleID)

	require.Len(t, cfg.Enrichments, 1)
	enrichment := cfg.Enrichments[0]
	require.Equal(t, "#currency", enrichment.LookupKey)
	require.NotNil(t, enrichment.LookupDataset)
	require.Equal(t, "code", enrichment.LookupDataset.KeyField)
	require.Len(t, enrichment.LookupDataset.Data, 2)
	require.Len(t, enrichment.FieldMappings, 2)
	require.Equal(t, "currencyName", enrichment.FieldMappings[0].TargetField)
}

func TestLoaderMissingFileErrors(t *testing.T) {
	loader := NewLoader("APEX", "/nonexistent/apex.yaml")
	_, err := loader.Load(context.Background())
	require.Error(t, err)
}

func TestLoaderRejectsInvalidConfiguration(t *testing.T) {
	path := writeTempConfig(t, `
rules:
  - id: bad-rule
    message: missing condition
`)
	loader := NewLoader("APEX", path)
	_, err := loader.Load(context.Background())
	require.Error(t, err)
}

func TestLoaderEnvOverlayOverridesFile(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	t.Setenv("APEX_METADATA__NAME", "overridden-name")
	loader := NewLoader("APEX", path)
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "overridden-name", cfg.Metadata.Name)
}
