// Package config loads and validates the APEX Configuration aggregate (§3):
// rules, rule-groups, enrichments, and data-source descriptors parsed once
// from YAML and treated as immutable for the lifetime of the value.
package config

import (
	"fmt"
	"strings"
)

// Configuration is the top-level parsed aggregate a caller hands to the
// orchestrator (§3 "Configuration"). It is built once by Loader.Load and
// never mutated afterward.
type Configuration struct {
	Metadata    MetadataConfig              `koanf:"metadata"`
	Rules       []RuleConfig                `koanf:"rules"`
	RuleGroups  []RuleGroupConfig           `koanf:"ruleGroups"`
	Enrichments []EnrichmentConfig          `koanf:"enrichments"`
	DataSources map[string]DataSourceConfig `koanf:"dataSources"`
}

// MetadataConfig carries free-form descriptive information about the
// configuration document itself; none of it drives evaluation.
type MetadataConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Description string `koanf:"description"`
}

// LoggingConfig is the ambient-stack knob a host process uses to build
// internal/logging's slog.Logger (SPEC_FULL.md ambient stack: "Logging").
// It is independent of Configuration — a host's log level doesn't belong
// to the rules/enrichments document a caller loads per evaluation.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Severity levels, ordered low to high for aggregation (§4.5 "ERROR >
// WARNING > INFO").
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// SeverityRank orders severities for max-severity aggregation; higher ranks
// first. Unknown severities rank below INFO so they never silently win an
// aggregation.
func SeverityRank(severity string) int {
	switch strings.ToUpper(severity) {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// MaxSeverity returns whichever of a, b ranks higher, defaulting to a when
// both rank equal (stable for repeated folds over a slice).
func MaxSeverity(a, b string) string {
	if SeverityRank(b) > SeverityRank(a) {
		return b
	}
	return a
}

// RuleConfig is §3's Rule.
type RuleConfig struct {
	ID         string           `koanf:"id"`
	Name       string           `koanf:"name"`
	Condition  string           `koanf:"condition"`
	Message    string           `koanf:"message"`
	Severity   string           `koanf:"severity"`
	Priority   int              `koanf:"priority"`
	Categories []string         `koanf:"categories"`
	Metadata   RuleMetaConfig   `koanf:"metadata"`
}

// RuleMetaConfig is the rule's optional metadata block (§3 "created-date,
// version, tags, business-owner").
type RuleMetaConfig struct {
	CreatedDate   string   `koanf:"createdDate"`
	Version       string   `koanf:"version"`
	Tags          []string `koanf:"tags"`
	BusinessOwner string   `koanf:"businessOwner"`
}

// DefaultPriority is §3's "priority defaults to 100" and applies to rules,
// rule-groups, and enrichments alike.
const DefaultPriority = 100

// EffectiveSeverity returns the rule's declared severity, defaulting to INFO
// (§3 "severity defaults to INFO").
func (r RuleConfig) EffectiveSeverity() string {
	if r.Severity == "" {
		return SeverityInfo
	}
	return strings.ToUpper(r.Severity)
}

// EffectivePriority returns the rule's declared priority, defaulting to 100.
func (r RuleConfig) EffectivePriority() int {
	if r.Priority == 0 {
		return DefaultPriority
	}
	return r.Priority
}

// Rule-group operators (§3 RuleGroup.operator).
const (
	OperatorAND = "AND"
	OperatorOR  = "OR"
)

// RuleGroupConfig is §3's RuleGroup.
type RuleGroupConfig struct {
	ID                 string                  `koanf:"id"`
	Name               string                  `koanf:"name"`
	Priority           int                     `koanf:"priority"`
	Operator           string                  `koanf:"operator"`
	Rules              []RuleGroupMemberConfig `koanf:"rules"`
	StopOnFirstFailure bool                    `koanf:"stopOnFirstFailure"`
	ParallelExecution  bool                    `koanf:"parallelExecution"`
	DebugMode          bool                    `koanf:"debugMode"`
}

// RuleGroupMemberConfig is one entry of a group's "ordered (sequence ->
// ruleId) mapping" (§3).
type RuleGroupMemberConfig struct {
	Sequence int    `koanf:"sequence"`
	RuleID   string `koanf:"ruleId"`
}

// EffectivePriority defaults a rule-group's priority to 100.
func (g RuleGroupConfig) EffectivePriority() int {
	if g.Priority == 0 {
		return DefaultPriority
	}
	return g.Priority
}

// EffectiveOperator defaults an unset/unrecognized operator to AND, the more
// conservative of the two (a group that declares neither member evaluation
// mode gets the strictest combination rule).
func (g RuleGroupConfig) EffectiveOperator() string {
	op := strings.ToUpper(g.Operator)
	if op != OperatorAND && op != OperatorOR {
		return OperatorAND
	}
	return op
}

// Enrichment types (§3 Enrichment.type).
const (
	EnrichmentLookup             = "lookup-enrichment"
	EnrichmentCalculation        = "calculation-enrichment"
	EnrichmentField              = "field-enrichment"
	EnrichmentConditionalMapping = "conditional-mapping-enrichment"
)

// EnrichmentConfig is §3's Enrichment, with every enrichment type's
// sub-configuration flattened onto one struct (the fields that don't apply
// to a given Type are simply left zero). This mirrors how YAML rule-engine
// documents of this shape are commonly authored: one enrichment list, the
// `type` field selecting which of the following blocks is meaningful.
type EnrichmentConfig struct {
	ID         string `koanf:"id"`
	Type       string `koanf:"type"`
	Enabled    *bool  `koanf:"enabled"`
	TargetType string `koanf:"targetType"`
	Condition  string `koanf:"condition"`
	Priority   int    `koanf:"priority"`
	Severity   string `koanf:"severity"`

	// lookup-enrichment
	LookupKey       string               `koanf:"lookupKey"`
	LookupService   string               `koanf:"lookupService"`
	LookupDataset   *DatasetConfig       `koanf:"lookupDataset"`
	FieldMappings   []FieldMappingConfig `koanf:"fieldMappings"`
	CacheEnabled    bool                 `koanf:"cacheEnabled"`
	CacheTTLSeconds int                  `koanf:"cacheTtlSeconds"`

	// calculation-enrichment
	Expression   string `koanf:"expression"`
	ResultField  string `koanf:"resultField"`
	DefaultValue any    `koanf:"defaultValue"`

	// field-enrichment (also reuses FieldMappings above for the top-level
	// "fieldMappings" of §3's Field block)
	ConditionalMappingGroups []ConditionalMappingGroupConfig `koanf:"conditionalMappings"`

	// conditional-mapping-enrichment
	TargetField       string                  `koanf:"targetField"`
	MappingRules      []MappingRuleConfig     `koanf:"mappingRules"`
	ExecutionSettings ExecutionSettingsConfig `koanf:"executionSettings"`
}

// IsEnabled defaults an unset Enabled to true (§4.4 "enabled != false").
func (e EnrichmentConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// EffectivePriority defaults an enrichment's priority to 100.
func (e EnrichmentConfig) EffectivePriority() int {
	if e.Priority == 0 {
		return DefaultPriority
	}
	return e.Priority
}

// EffectiveSeverity defaults an enrichment's severity to INFO.
func (e EnrichmentConfig) EffectiveSeverity() string {
	if e.Severity == "" {
		return SeverityInfo
	}
	return strings.ToUpper(e.Severity)
}

// DatasetConfig is §3's LookupDataset tagged union.
type DatasetConfig struct {
	Type     string `koanf:"type"`
	KeyField string `koanf:"keyField"`

	// inline
	Data []map[string]any `koanf:"data"`

	// file
	FilePath string `koanf:"filePath"`
	Format   string `koanf:"format"`

	// database
	ConnectionName string                 `koanf:"connectionName"`
	DataSourceRef  string                 `koanf:"dataSourceRef"`
	Query          string                 `koanf:"query"`
	QueryRef       string                 `koanf:"queryRef"`
	Parameters     []QueryParameterConfig `koanf:"parameters"`

	// rest-api
	Endpoint     string `koanf:"endpoint"`
	OperationRef string `koanf:"operationRef"`
}

// QueryParameterConfig is §3's database-dataset bound parameter.
type QueryParameterConfig struct {
	Name  string `koanf:"name"`
	Field string `koanf:"field"`
	Type  string `koanf:"type"`
}

// FieldMappingConfig is §3's FieldMapping.
type FieldMappingConfig struct {
	SourceField    string `koanf:"sourceField"`
	TargetField    string `koanf:"targetField"`
	Transformation string `koanf:"transformation"`
	DefaultValue   any    `koanf:"defaultValue"`
	Required       bool   `koanf:"required"`
}

// ConditionalMappingGroupConfig is one entry of field-enrichment's
// conditionalMappings (§4.4: "each is a condition group + a set of field
// mappings; all matching groups apply").
type ConditionalMappingGroupConfig struct {
	Conditions    ConditionGroupConfig `koanf:"conditions"`
	FieldMappings []FieldMappingConfig `koanf:"fieldMappings"`
}

// ConditionGroupConfig is §4.4's condition group: an AND/OR combination of
// sub-conditions evaluated with short-circuit semantics.
type ConditionGroupConfig struct {
	Operator string                `koanf:"operator"`
	Rules    []ConditionRuleConfig `koanf:"rules"`
}

// ConditionRuleConfig is one condition-group member.
type ConditionRuleConfig struct {
	Condition string `koanf:"condition"`
}

// Mapping-rule types for conditional-mapping-enrichment (§9 Open Questions).
const (
	MappingRuleDirect = "direct"
	MappingRuleLookup = "lookup"
)

// MappingRuleConfig is one conditional-mapping-enrichment rule (§3
// "mappingRules[]").
type MappingRuleConfig struct {
	Priority       int                  `koanf:"priority"`
	Type           string               `koanf:"type"`
	Conditions     ConditionGroupConfig `koanf:"conditions"`
	SourceField    string               `koanf:"sourceField"`
	Transformation string               `koanf:"transformation"`
	FallbackValue  any                  `koanf:"fallbackValue"`
}

// ExecutionSettingsConfig is conditional-mapping-enrichment's execution
// policy (§3 "executionSettings{stopOnFirstMatch, logMatchedRule}").
type ExecutionSettingsConfig struct {
	StopOnFirstMatch *bool `koanf:"stopOnFirstMatch"`
	LogMatchedRule   bool  `koanf:"logMatchedRule"`
}

// StopOnFirstMatchEffective defaults to true (§4.4 "Default behavior is
// stopOnFirstMatch = true").
func (e ExecutionSettingsConfig) StopOnFirstMatchEffective() bool {
	if e.StopOnFirstMatch == nil {
		return true
	}
	return *e.StopOnFirstMatch
}

// DataSourceConfig is a named external collaborator descriptor referenced by
// lookupDataset's connectionName/dataSourceRef fields (§3 "optional
// data-source descriptors referenced by name"). The core treats these as
// opaque bags of properties; wiring an actual connection is an external
// collaborator's job (§1, §6).
type DataSourceConfig struct {
	Type       string         `koanf:"type"`
	Properties map[string]any `koanf:"properties"`
}

// Validate performs the single-pass structural check over the parsed
// aggregate described in SPEC_FULL.md's Configuration loading section:
// rejects invalid severities, duplicate rule-group sequences, missing
// required fields, and datasets declaring more than one variant.
func (c *Configuration) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}

	seenRuleIDs := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		ctx := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("config: %s.id required", ctx)
		}
		if seenRuleIDs[r.ID] {
			return fmt.Errorf("config: %s.id duplicate: %q", ctx, r.ID)
		}
		seenRuleIDs[r.ID] = true
		if strings.TrimSpace(r.Condition) == "" {
			return fmt.Errorf("config: rule %q: condition required", r.ID)
		}
		if strings.TrimSpace(r.Message) == "" {
			return fmt.Errorf("config: rule %q: message required", r.ID)
		}
		if r.Severity != "" && SeverityRank(r.Severity) < 0 {
			return fmt.Errorf("config: rule %q: unsupported severity %q", r.ID, r.Severity)
		}
	}

	for i, g := range c.RuleGroups {
		ctx := fmt.Sprintf("ruleGroups[%d]", i)
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("config: %s.id required", ctx)
		}
		op := strings.ToUpper(g.Operator)
		if op != "" && op != OperatorAND && op != OperatorOR {
			return fmt.Errorf("config: rule-group %q: unsupported operator %q", g.ID, g.Operator)
		}
		seenSeq := make(map[int]bool, len(g.Rules))
		for _, member := range g.Rules {
			if seenSeq[member.Sequence] {
				return fmt.Errorf("config: rule-group %q: duplicate sequence %d", g.ID, member.Sequence)
			}
			seenSeq[member.Sequence] = true
			if strings.TrimSpace(member.RuleID) == "" {
				return fmt.Errorf("config: rule-group %q: member at sequence %d has empty ruleId", g.ID, member.Sequence)
			}
		}
	}

	for i, e := range c.Enrichments {
		ctx := fmt.Sprintf("enrichments[%d]", i)
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("config: %s.id required", ctx)
		}
		switch e.Type {
		case EnrichmentLookup, EnrichmentCalculation, EnrichmentField, EnrichmentConditionalMapping:
		default:
			return fmt.Errorf("config: enrichment %q: unsupported type %q", e.ID, e.Type)
		}
		if e.Severity != "" && SeverityRank(e.Severity) < 0 {
			return fmt.Errorf("config: enrichment %q: unsupported severity %q", e.ID, e.Severity)
		}
		if e.Type == EnrichmentLookup && e.LookupDataset != nil {
			if err := validateDataset(e.ID, e.LookupDataset); err != nil {
				return err
			}
		}
		if e.Type == EnrichmentCalculation && strings.TrimSpace(e.ResultField) == "" {
			return fmt.Errorf("config: enrichment %q: calculation-enrichment requires resultField", e.ID)
		}
		if e.Type == EnrichmentConditionalMapping && strings.TrimSpace(e.TargetField) == "" {
			return fmt.Errorf("config: enrichment %q: conditional-mapping-enrichment requires targetField", e.ID)
		}
	}

	return nil
}

// validateDataset enforces §3's "exactly one variant" invariant and the
// keyField requirement.
func validateDataset(enrichmentID string, ds *DatasetConfig) error {
	switch ds.Type {
	case "inline", "file", "database", "rest-api":
	default:
		return fmt.Errorf("config: enrichment %q: unsupported dataset type %q", enrichmentID, ds.Type)
	}
	if strings.TrimSpace(ds.KeyField) == "" {
		return fmt.Errorf("config: enrichment %q: dataset keyField required", enrichmentID)
	}
	variants := 0
	if len(ds.Data) > 0 {
		variants++
	}
	if ds.FilePath != "" {
		variants++
	}
	if ds.Query != "" || ds.QueryRef != "" {
		variants++
	}
	if ds.Endpoint != "" || ds.OperationRef != "" {
		variants++
	}
	if variants > 1 {
		return fmt.Errorf("config: enrichment %q: dataset declares more than one variant", enrichmentID)
	}
	switch ds.Type {
	case "inline":
		if len(ds.Data) == 0 {
			return fmt.Errorf("config: enrichment %q: inline dataset requires non-empty data", enrichmentID)
		}
	case "file":
		if ds.FilePath == "" {
			return fmt.Errorf("config: enrichment %q: file dataset requires filePath", enrichmentID)
		}
	case "database":
		if ds.Query == "" && ds.QueryRef == "" {
			return fmt.Errorf("config: enrichment %q: database dataset requires query or queryRef", enrichmentID)
		}
	case "rest-api":
		if ds.Endpoint == "" && ds.OperationRef == "" {
			return fmt.Errorf("config: enrichment %q: rest-api dataset requires endpoint or operationRef", enrichmentID)
		}
	}
	return nil
}

// DefaultConfiguration returns an empty, valid Configuration: no rules, no
// rule-groups, no enrichments. Loader.Load does not use it; its defaults
// layer comes from defaultsMap.
func DefaultConfiguration() Configuration {
	return Configuration{
		DataSources: make(map[string]DataSourceConfig),
	}
}
