// Package enrichment implements §4.4's enrichment pipeline: compiling an
// EnrichmentConfig list into CompiledEnrichments, ordering and gating them,
// dispatching across the four enrichment types, and aggregating failures.
package enrichment

import (
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/lookup"
)

// CompiledConditionGroup pre-compiles a ConditionGroupConfig's sub-condition
// expressions, mirroring the teacher's compile-spec-into-programs split
// (rulechain.Definition over rulechain.DefinitionSpec).
type CompiledConditionGroup struct {
	Operator string
	Rules    []*expr.Program
}

// CompiledFieldMappingGroup is one field-enrichment conditionalMappings entry
// (§3 "conditionalMappings"): a condition group guarding a set of field
// mappings, all of which apply when the condition group passes.
type CompiledFieldMappingGroup struct {
	Conditions    CompiledConditionGroup
	FieldMappings []lookup.FieldMapping
}

// CompiledMappingRule is one conditional-mapping-enrichment rule (§3
// "mappingRules[]"), pre-compiled.
type CompiledMappingRule struct {
	Priority       int
	Type           string
	Conditions     CompiledConditionGroup
	SourceField    string
	Transformation string
	FallbackValue  any
}

// CompiledEnrichment is one enrichment ready for dispatch: gating fields
// plus per-type compiled programs (§4.4).
type CompiledEnrichment struct {
	ID         string
	Type       string
	Enabled    bool
	TargetType string
	Condition  *expr.Program
	Priority   int
	Severity   string

	// lookup-enrichment
	LookupKey  *expr.Program
	LookupSpec lookup.Spec

	// calculation-enrichment
	Expression   *expr.Program
	ResultField  string
	DefaultValue any

	// field-enrichment
	FieldMappings       []lookup.FieldMapping
	ConditionalMappings []CompiledFieldMappingGroup

	// conditional-mapping-enrichment
	TargetField      string
	MappingRules     []CompiledMappingRule
	StopOnFirstMatch bool
}

// Failure is one enrichment-step failure message, attributed to the
// enrichment that produced it (§4.4 "Failure aggregation").
type Failure struct {
	EnrichmentID string
	Message      string
	Severity     string
}

// Result is the enrichment pipeline's output (§4.4 "Failure aggregation"):
// human-readable failure messages and the aggregated severity across every
// processed enrichment. The record itself is not part of Result; Run
// mutates the caller's record in place.
type Result struct {
	Failures           []Failure
	AggregatedSeverity string
}
