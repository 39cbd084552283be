package enrichment

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/apexrules/apex/internal/apexerr"
	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/lookup"
	"github.com/apexrules/apex/internal/model"
	"github.com/apexrules/apex/internal/rules"
)

// ResultCache is the structural seam the pipeline uses for §4.6's
// lookup-result scope, the same GetOrCompute-shaped seam lookup.DatasetCache
// gives the resolver for the dataset scope.
type ResultCache interface {
	GetOrCompute(key string, build func() (any, error)) (any, error)
}

// Deps bundles the collaborators a Run call needs beyond the compiled
// enrichments themselves. Resolver and ResultCache may be nil when a
// configuration has no lookup-enrichments to serve.
type Deps struct {
	Resolver    *lookup.Resolver
	ResultCache ResultCache
	Registry    expr.ServiceRegistry
}

// Run implements §4.4's enrichment pipeline end to end: an optional rules
// pre-pass, stable priority ordering, per-enrichment gating, dispatch across
// the four enrichment types, and failure aggregation. record is mutated in
// place; the returned Result carries failure messages and their aggregated
// severity.
func Run(env *expr.Environment, cfg *config.Configuration, compiled []CompiledEnrichment, record *model.Record, deps Deps) Result {
	ordered := make([]CompiledEnrichment, len(compiled))
	copy(ordered, compiled)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	buildCtx := func(r *model.Record) *expr.EvaluationContext {
		return expr.NewContext(model.FromRecord(r)).WithRegistry(deps.Registry).WithStage("rules")
	}

	var prePass *rules.PrePassResults
	if cfg != nil && (len(cfg.Rules) > 0 || len(cfg.RuleGroups) > 0) {
		pp := rules.RunPrePass(env, cfg.Rules, cfg.RuleGroups, record, buildCtx)
		prePass = &pp
	}

	ctx := expr.NewContext(model.FromRecord(record)).WithRegistry(deps.Registry).WithStage("enrichment")
	if prePass != nil {
		ctx.SetVariable("ruleResults", prePass.RuleResults)
		ctx.SetVariable("ruleGroupResults", prePass.RuleGroupResults)
	}

	var failures []Failure
	maxSeverity := ""
	for _, e := range ordered {
		if !gate(e, ctx, record) {
			continue
		}
		var outcomeFailures []Failure
		switch e.Type {
		case config.EnrichmentLookup:
			outcomeFailures = dispatchLookup(env, deps, e, ctx, record)
		case config.EnrichmentCalculation:
			outcomeFailures = dispatchCalculation(env, e, ctx, record)
		case config.EnrichmentField:
			outcomeFailures = dispatchField(env, e, ctx, record)
		case config.EnrichmentConditionalMapping:
			outcomeFailures = dispatchConditionalMapping(env, e, ctx, record)
		}
		maxSeverity = config.MaxSeverity(maxSeverity, e.Severity)
		if len(outcomeFailures) > 0 {
			failures = append(failures, outcomeFailures...)
			for _, f := range outcomeFailures {
				maxSeverity = config.MaxSeverity(maxSeverity, f.Severity)
			}
		}
	}

	return Result{Failures: failures, AggregatedSeverity: maxSeverity}
}

// gate implements §4.4's per-enrichment gating: enabled, targetType, then
// condition. A condition evaluation error skips the enrichment rather than
// aborting the whole pipeline.
func gate(e CompiledEnrichment, ctx *expr.EvaluationContext, record *model.Record) bool {
	if !e.Enabled {
		return false
	}
	if !matchesTargetType(e.TargetType, record.TypeName()) {
		return false
	}
	if e.Condition == nil {
		return true
	}
	v, err := e.Condition.Eval(ctx)
	if err != nil {
		return false
	}
	return v.Truthy()
}

func requiredFailures(enrichmentID string, outcome lookup.MappingOutcome) []Failure {
	out := make([]Failure, 0, len(outcome.RequiredFieldFailures))
	for _, f := range outcome.RequiredFieldFailures {
		out = append(out, Failure{
			EnrichmentID: enrichmentID,
			Message:      fmt.Sprintf("required field %q missing from lookup result for target %q", f.SourceField, f.TargetField),
			Severity:     config.SeverityError,
		})
	}
	return out
}

// dispatchLookup implements §4.3/§4.4's lookup-enrichment: extract the key,
// resolve (and optionally cache) the service's result, then apply field
// mappings. A null key skips resolution entirely but still applies
// default-valued mappings, per §8's boundary behavior.
func dispatchLookup(env *expr.Environment, deps Deps, e CompiledEnrichment, ctx *expr.EvaluationContext, record *model.Record) []Failure {
	var key model.Value
	if e.LookupKey != nil {
		v, err := e.LookupKey.Eval(ctx)
		if err == nil {
			key = v
		}
	}

	if key.IsNull() {
		outcome := lookup.ApplyFieldMappings(env, e.ID, model.Null, e.LookupSpec.FieldMappings, record)
		return requiredFailures(e.ID, outcome)
	}

	if deps.Resolver == nil {
		return []Failure{{EnrichmentID: e.ID, Message: "no lookup resolver configured", Severity: config.SeverityError}}
	}
	svc, err := deps.Resolver.Resolve(context.Background(), &e.LookupSpec)
	if err != nil {
		return []Failure{{EnrichmentID: e.ID, Message: err.Error(), Severity: config.SeverityError}}
	}

	result, err := transformCached(deps.ResultCache, e, svc, key)
	if err != nil {
		return []Failure{{EnrichmentID: e.ID, Message: err.Error(), Severity: config.SeverityError}}
	}

	outcome := lookup.ApplyFieldMappings(env, e.ID, result, e.LookupSpec.FieldMappings, record)
	return requiredFailures(e.ID, outcome)
}

// transformCached consults the lookup-result cache scope (§4.6) when the
// enrichment opts in, keyed by the service name and a stable string form of
// the lookup key.
func transformCached(cache ResultCache, e CompiledEnrichment, svc lookup.Service, key model.Value) (model.Value, error) {
	if cache == nil || !e.LookupSpec.CacheEnabled {
		return svc.Transform(key)
	}
	cacheKey := svc.Name() + "|" + stringifyValue(key)
	v, err := cache.GetOrCompute(cacheKey, func() (any, error) {
		return svc.Transform(key)
	})
	if err != nil {
		return model.Null, err
	}
	result, _ := v.(model.Value)
	return result, nil
}

func stringifyValue(v model.Value) string {
	switch v.Kind() {
	case model.KindString:
		return v.Str()
	case model.KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case model.KindFloat:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case model.KindBool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}

// dispatchCalculation implements §4.4's calculation-enrichment: evaluate the
// expression and write ResultField; on failure, fall back to DefaultValue
// when one is declared, else record a failure.
func dispatchCalculation(env *expr.Environment, e CompiledEnrichment, ctx *expr.EvaluationContext, record *model.Record) []Failure {
	v, err := e.Expression.Eval(ctx)
	if err != nil {
		if e.DefaultValue != nil {
			record.Set(e.ResultField, model.FromNative(e.DefaultValue))
			return nil
		}
		return []Failure{{EnrichmentID: e.ID, Message: err.Error(), Severity: e.Severity}}
	}
	record.Set(e.ResultField, v)
	return nil
}

// dispatchField implements §4.4's field-enrichment: every conditionalMappings
// group whose condition group passes has its field mappings applied (not
// just the first match), followed by the top-level field mappings, both
// using the record itself as source and target.
func dispatchField(env *expr.Environment, e CompiledEnrichment, ctx *expr.EvaluationContext, record *model.Record) []Failure {
	var failures []Failure
	source := model.FromRecord(record)

	for _, group := range e.ConditionalMappings {
		if !evaluateConditionGroup(group.Conditions, ctx) {
			continue
		}
		outcome := lookup.ApplyFieldMappings(env, e.ID, source, group.FieldMappings, record)
		failures = append(failures, requiredFailures(e.ID, outcome)...)
	}

	outcome := lookup.ApplyFieldMappings(env, e.ID, source, e.FieldMappings, record)
	failures = append(failures, requiredFailures(e.ID, outcome)...)
	return failures
}

// dispatchConditionalMapping implements §4.4's conditional-mapping-enrichment:
// rules evaluated in priority order, each matching rule's computed value
// written to TargetField, stopping after the first match unless configured
// otherwise.
func dispatchConditionalMapping(env *expr.Environment, e CompiledEnrichment, ctx *expr.EvaluationContext, record *model.Record) []Failure {
	rulesSorted := make([]CompiledMappingRule, len(e.MappingRules))
	copy(rulesSorted, e.MappingRules)
	sort.SliceStable(rulesSorted, func(i, j int) bool { return rulesSorted[i].Priority < rulesSorted[j].Priority })

	var failures []Failure
	for _, rule := range rulesSorted {
		if !evaluateConditionGroup(rule.Conditions, ctx) {
			continue
		}
		v, err := computeMappingValue(env, rule, ctx)
		if err != nil {
			failures = append(failures, Failure{EnrichmentID: e.ID, Message: err.Error(), Severity: e.Severity})
			if e.StopOnFirstMatch {
				break
			}
			continue
		}
		record.Set(e.TargetField, v)
		if e.StopOnFirstMatch {
			break
		}
	}
	return failures
}

// computeMappingValue resolves one conditional-mapping-enrichment rule's
// value. "direct" evaluates its transformation, falling back to the bare
// source field when none is declared; "lookup" is left unimplemented (§9
// Open Question: implementers may omit it behind a clear error) and falls
// back to FallbackValue when one is declared.
func computeMappingValue(env *expr.Environment, rule CompiledMappingRule, ctx *expr.EvaluationContext) (model.Value, error) {
	if rule.Type == config.MappingRuleLookup {
		if rule.FallbackValue != nil {
			return model.FromNative(rule.FallbackValue), nil
		}
		return model.Null, &apexerr.ConfigurationError{Detail: "mapping rule type \"lookup\" is not implemented"}
	}

	source := rule.Transformation
	if source == "" {
		source = "#sourceField"
		ctx.SetVariable("sourceField", readField(ctx, rule.SourceField))
	}
	v, err := env.Eval(source, ctx)
	if err != nil {
		if rule.FallbackValue != nil {
			return model.FromNative(rule.FallbackValue), nil
		}
		return model.Null, err
	}
	return v, nil
}

func readField(ctx *expr.EvaluationContext, field string) model.Value {
	if ctx.Root.Kind() != model.KindRecord || field == "" {
		return model.Null
	}
	return ctx.Root.Record().Get(field)
}
