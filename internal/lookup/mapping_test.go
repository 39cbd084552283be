package lookup

import (
	"testing"

	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestApplyFieldMappingsCopiesSourceFields(t *testing.T) {
	source := model.FromRecord(model.RecordFromNative(map[string]any{
		"name":   "US Dollar",
		"symbol": "$",
	}))
	target := model.RecordFromNative(map[string]any{})

	outcome := ApplyFieldMappings(nil, "currency-lookup", source, []FieldMapping{
		{SourceField: "name", TargetField: "currencyName"},
		{SourceField: "symbol", TargetField: "currencySymbol"},
	}, target)

	assert.False(t, outcome.Failed())
	assert.Equal(t, "US Dollar", target.Get("currencyName").Str())
	assert.Equal(t, "$", target.Get("currencySymbol").Str())
}

func TestApplyFieldMappingsRequiredFieldMissingFails(t *testing.T) {
	source := model.FromRecord(model.RecordFromNative(map[string]any{
		"name": "US Dollar",
	}))
	target := model.RecordFromNative(map[string]any{})

	outcome := ApplyFieldMappings(nil, "currency-lookup", source, []FieldMapping{
		{SourceField: "name", TargetField: "currencyName"},
		{SourceField: "riskScore", TargetField: "risk", Required: true},
	}, target)

	assert.True(t, outcome.Failed())
	assert.Len(t, outcome.RequiredFieldFailures, 1)
	assert.Equal(t, "riskScore", outcome.RequiredFieldFailures[0].SourceField)
	assert.Equal(t, "risk", outcome.RequiredFieldFailures[0].TargetField)
	assert.True(t, target.Get("risk").IsNull())
}

func TestApplyFieldMappingsNullSourceUsesDefaults(t *testing.T) {
	target := model.RecordFromNative(map[string]any{})

	outcome := ApplyFieldMappings(nil, "currency-lookup", model.Null, []FieldMapping{
		{SourceField: "name", TargetField: "currencyName", DefaultValue: "UNKNOWN"},
		{SourceField: "name", TargetField: "alwaysEmpty"},
	}, target)

	assert.False(t, outcome.Failed())
	assert.Equal(t, "UNKNOWN", target.Get("currencyName").Str())
	assert.True(t, target.Get("alwaysEmpty").IsNull())
}

func TestApplyFieldMappingsSimpleScalarSourceSkipsExtraction(t *testing.T) {
	target := model.RecordFromNative(map[string]any{})

	outcome := ApplyFieldMappings(nil, "flag-lookup", model.Bool(true), []FieldMapping{
		{SourceField: "anything", TargetField: "copied", DefaultValue: "fallback"},
	}, target)

	assert.False(t, outcome.Failed())
	assert.Equal(t, "fallback", target.Get("copied").Str())
}

func TestApplyFieldMappingsAppliesTransformation(t *testing.T) {
	source := model.FromRecord(model.RecordFromNative(map[string]any{
		"symbol": "$",
	}))
	target := model.RecordFromNative(map[string]any{})
	env := expr.NewEnvironment()

	outcome := ApplyFieldMappings(env, "currency-lookup", source, []FieldMapping{
		{SourceField: "symbol", TargetField: "decorated", Transformation: "#value + '!'"},
	}, target)

	assert.False(t, outcome.Failed())
	assert.Equal(t, "$!", target.Get("decorated").Str())
}
