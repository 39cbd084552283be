package enrichment

import (
	"fmt"
	"strings"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/lookup"
)

// CompileEnrichments turns a configuration's enrichment specs into compiled,
// dispatch-ready definitions (§4.4), the same split the teacher's
// rulechain.CompileDefinitions performs over DefinitionSpec.
func CompileEnrichments(env *expr.Environment, specs []config.EnrichmentConfig) ([]CompiledEnrichment, error) {
	compiled := make([]CompiledEnrichment, 0, len(specs))
	for _, spec := range specs {
		c, err := compileOne(env, spec)
		if err != nil {
			return nil, fmt.Errorf("enrichment %s: %w", spec.ID, err)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func compileOne(env *expr.Environment, spec config.EnrichmentConfig) (CompiledEnrichment, error) {
	c := CompiledEnrichment{
		ID:         spec.ID,
		Type:       spec.Type,
		Enabled:    spec.IsEnabled(),
		TargetType: spec.TargetType,
		Priority:   spec.EffectivePriority(),
		Severity:   spec.EffectiveSeverity(),
	}

	var err error
	if spec.Condition != "" {
		if c.Condition, err = env.Compile(spec.Condition); err != nil {
			return CompiledEnrichment{}, fmt.Errorf("condition: %w", err)
		}
	}

	switch spec.Type {
	case config.EnrichmentLookup:
		if spec.LookupKey != "" {
			if c.LookupKey, err = env.Compile(spec.LookupKey); err != nil {
				return CompiledEnrichment{}, fmt.Errorf("lookupKey: %w", err)
			}
		}
		c.LookupSpec = lookup.Spec{
			LookupKey:       spec.LookupKey,
			LookupService:   spec.LookupService,
			FieldMappings:   compileFieldMappings(spec.FieldMappings),
			CacheEnabled:    spec.CacheEnabled,
			CacheTTLSeconds: spec.CacheTTLSeconds,
		}
		if spec.LookupDataset != nil {
			ds, err := compileDataset(spec.LookupDataset)
			if err != nil {
				return CompiledEnrichment{}, err
			}
			c.LookupSpec.LookupDataset = ds
		}

	case config.EnrichmentCalculation:
		if spec.Expression == "" {
			return CompiledEnrichment{}, fmt.Errorf("calculation-enrichment requires expression")
		}
		if c.Expression, err = env.Compile(spec.Expression); err != nil {
			return CompiledEnrichment{}, fmt.Errorf("expression: %w", err)
		}
		c.ResultField = spec.ResultField
		c.DefaultValue = spec.DefaultValue

	case config.EnrichmentField:
		c.FieldMappings = compileFieldMappings(spec.FieldMappings)
		for _, group := range spec.ConditionalMappingGroups {
			cg, err := compileConditionGroup(env, group.Conditions)
			if err != nil {
				return CompiledEnrichment{}, fmt.Errorf("conditionalMappings: %w", err)
			}
			c.ConditionalMappings = append(c.ConditionalMappings, CompiledFieldMappingGroup{
				Conditions:    cg,
				FieldMappings: compileFieldMappings(group.FieldMappings),
			})
		}

	case config.EnrichmentConditionalMapping:
		c.TargetField = spec.TargetField
		c.StopOnFirstMatch = spec.ExecutionSettings.StopOnFirstMatchEffective()
		for _, rule := range spec.MappingRules {
			cg, err := compileConditionGroup(env, rule.Conditions)
			if err != nil {
				return CompiledEnrichment{}, fmt.Errorf("mappingRules: %w", err)
			}
			c.MappingRules = append(c.MappingRules, CompiledMappingRule{
				Priority:       rule.Priority,
				Type:           rule.Type,
				Conditions:     cg,
				SourceField:    rule.SourceField,
				Transformation: rule.Transformation,
				FallbackValue:  rule.FallbackValue,
			})
		}

	default:
		return CompiledEnrichment{}, fmt.Errorf("unsupported enrichment type %q", spec.Type)
	}

	return c, nil
}

func compileConditionGroup(env *expr.Environment, spec config.ConditionGroupConfig) (CompiledConditionGroup, error) {
	op := strings.ToUpper(spec.Operator)
	if op != config.OperatorOR {
		op = config.OperatorAND
	}
	cg := CompiledConditionGroup{Operator: op}
	for _, r := range spec.Rules {
		if strings.TrimSpace(r.Condition) == "" {
			continue
		}
		p, err := env.Compile(r.Condition)
		if err != nil {
			return CompiledConditionGroup{}, err
		}
		cg.Rules = append(cg.Rules, p)
	}
	return cg, nil
}

func compileFieldMappings(specs []config.FieldMappingConfig) []lookup.FieldMapping {
	out := make([]lookup.FieldMapping, 0, len(specs))
	for _, m := range specs {
		out = append(out, lookup.FieldMapping{
			SourceField:    m.SourceField,
			TargetField:    m.TargetField,
			Transformation: m.Transformation,
			DefaultValue:   m.DefaultValue,
			Required:       m.Required,
		})
	}
	return out
}

func compileDataset(ds *config.DatasetConfig) (*lookup.Dataset, error) {
	params := make([]lookup.QueryParameter, 0, len(ds.Parameters))
	for _, p := range ds.Parameters {
		params = append(params, lookup.QueryParameter{Name: p.Name, Field: p.Field, Type: p.Type})
	}
	kind := lookup.DatasetKind(ds.Type)
	switch kind {
	case lookup.DatasetInline, lookup.DatasetFile, lookup.DatasetDatabase, lookup.DatasetRESTAPI:
	default:
		return nil, fmt.Errorf("unsupported dataset type %q", ds.Type)
	}
	return &lookup.Dataset{
		Kind:           kind,
		InlineData:     ds.Data,
		FilePath:       ds.FilePath,
		Format:         ds.Format,
		ConnectionName: ds.ConnectionName,
		DataSourceRef:  ds.DataSourceRef,
		Query:          ds.Query,
		QueryRef:       ds.QueryRef,
		Parameters:     params,
		Endpoint:       ds.Endpoint,
		OperationRef:   ds.OperationRef,
		KeyField:       ds.KeyField,
	}, nil
}
