// Package orchestrator implements §4.7's Evaluator entry point: the single
// call a host process makes per (configuration, record) pair. It wires
// together every other package — the expression engine, the unified cache,
// the lookup resolver, the enrichment pipeline, and the rule/rule-group
// evaluator — the same "iterate a list of stages, each mutating shared
// state, aggregate a final decision, never panic across the top-level
// boundary" shape the teacher's runtime.Pipeline uses for its own
// ServeAuth entry point (§7 "No exception is raised across the evaluator's
// top-level boundary").
package orchestrator

import (
	"fmt"
	"time"

	"github.com/apexrules/apex/internal/cache"
	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/enrichment"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/lookup"
	"github.com/apexrules/apex/internal/metrics"
	"github.com/apexrules/apex/internal/model"
	"github.com/apexrules/apex/internal/rules"
)

// Evaluator owns the collaborators a single evaluation needs and exposes
// Evaluate as the one entry point a host process calls (§4.7). A process
// typically builds one Evaluator per loaded Configuration's lifetime (or
// one shared Evaluator across many Configurations, since the cache/registry
// it holds are themselves per-signature/per-name keyed) and calls Evaluate
// once per incoming record; the Evaluator itself holds no per-call state.
type Evaluator struct {
	Env      *expr.Environment
	Cache    *cache.Cache
	Registry *lookup.Registry
	Resolver *lookup.Resolver
	Perf     *rules.Recorder
	Metrics  *metrics.Recorder
}

// Option configures an Evaluator at construction time.
type Option func(*Evaluator)

// WithRegistry swaps in a pre-populated service registry (a host that
// already registered named lookup services before building the Evaluator).
func WithRegistry(r *lookup.Registry) Option {
	return func(e *Evaluator) { e.Registry = r }
}

// WithDatasetCollaborators wires the lookup resolver's optional file/DB/REST
// collaborators (§6 "Data-source contracts"); datasets of variants left nil
// fail with ConfigurationError at resolve time rather than panicking.
func WithDatasetCollaborators(db lookup.DBQuerier, rest lookup.RESTClient, files lookup.FileLoader) Option {
	return func(e *Evaluator) {
		e.Resolver.DBQuerier = db
		e.Resolver.RESTClient = rest
		e.Resolver.FileLoader = files
	}
}

// WithMetrics attaches a Prometheus recorder; cache and rule statistics are
// published into it after every Evaluate call.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Evaluator) { e.Metrics = m }
}

// New builds an Evaluator. c may be nil, in which case the process-wide
// cache.Default() singleton is used, matching §4.6's "a process-wide handle
// is provided with lazy initialization". The expression engine's compile
// cache and the lookup resolver's dataset-signature cache both sit on the
// same *cache.Cache instance, so expression and dataset dedup (§8 scenarios
// 2 and 6) hold across every enrichment and rule this Evaluator serves.
func New(c *cache.Cache, opts ...Option) *Evaluator {
	if c == nil {
		c = cache.Default()
	}
	registry := lookup.NewRegistry()
	env := expr.NewEnvironment(expr.WithCache(cache.NewExpressionProgramCache(c)))
	resolver := lookup.NewResolver(registry, cache.NewDatasetScopeCache(c))

	e := &Evaluator{
		Env:      env,
		Cache:    c,
		Registry: registry,
		Resolver: resolver,
		Perf:     rules.NewRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements §4.7 end to end:
//
//  1. validate inputs (nil configuration or input -> failure result),
//  2. copy input into a working record,
//  3. run enrichments, appending a failure message per step failure,
//  4. run the rule list, appending a failure message if it errored,
//  5. run the rule-group list, same treatment,
//  6. compose the final RuleResult: success iff no failures accumulated,
//     enrichedData always populated.
//
// No error is ever returned; every path produces a well-formed RuleResult
// (§7 "No exception is raised across the evaluator's top-level boundary").
func (e *Evaluator) Evaluate(cfg *config.Configuration, input map[string]any) rules.RuleResult {
	now := time.Now().UTC()
	if cfg == nil || input == nil {
		return rules.RuleResult{
			ResultType:      rules.ResultError,
			Severity:        config.SeverityError,
			Timestamp:       now,
			FailureMessages: []string{"apex: configuration and input record are both required"},
			Success:         false,
		}
	}

	record := model.RecordFromNative(input)

	var failures []string
	aggSeverity := ""

	compiled, err := enrichment.CompileEnrichments(e.Env, cfg.Enrichments)
	switch {
	case err != nil:
		failures = append(failures, fmt.Sprintf("enrichment compilation failed: %v", err))
		aggSeverity = config.MaxSeverity(aggSeverity, config.SeverityError)
	case len(compiled) > 0:
		deps := enrichment.Deps{
			Resolver:    e.Resolver,
			ResultCache: cache.NewLookupResultScopeCache(e.Cache),
			Registry:    e.Registry,
		}
		result := enrichment.Run(e.Env, cfg, compiled, record, deps)
		for _, f := range result.Failures {
			failures = append(failures, fmt.Sprintf("enrichment %q: %s", f.EnrichmentID, f.Message))
		}
		aggSeverity = config.MaxSeverity(aggSeverity, result.AggregatedSeverity)
	}

	buildCtx := func(r *model.Record) *expr.EvaluationContext {
		return expr.NewContext(model.FromRecord(r)).WithRegistry(e.Registry).WithStage("rules")
	}

	ruleListRes := rules.EvaluateRuleList(e.Env, cfg.Rules, record, buildCtx, e.Perf)
	if ruleListRes.ResultType == rules.ResultError {
		failures = append(failures, fmt.Sprintf("rule evaluation failed: %s", ruleListRes.Message))
		aggSeverity = config.MaxSeverity(aggSeverity, ruleListRes.Severity)
	}

	groupListRes := rules.EvaluateRuleGroupList(e.Env, cfg.RuleGroups, ruleByID(cfg.Rules), record, buildCtx, e.Perf)
	if groupListRes.ResultType == rules.ResultError {
		failures = append(failures, fmt.Sprintf("rule-group evaluation failed: %s", groupListRes.Message))
		aggSeverity = config.MaxSeverity(aggSeverity, groupListRes.Severity)
	}

	final := composeFinal(ruleListRes, groupListRes)
	final.EnrichedData = record.Native()
	final.FailureMessages = failures
	final.Success = len(failures) == 0
	if final.Severity == "" {
		final.Severity = aggSeverity
	}

	e.publishMetrics(final)
	return final
}

// composeFinal decides which of the rule-list result and the rule-group-list
// result becomes the orchestrator's single consolidated RuleResult — an
// ambiguity spec.md leaves to the implementer (it specifies each evaluation
// independently, §4.7 steps 4-5, but not how their outputs merge into one
// return value). Resolved here as: a triggered rule list wins over a
// triggered rule-group list (rules are the finer-grained, usually
// higher-priority classification mechanism); if neither triggered, prefer
// whichever evaluation actually had something configured to run, so a
// Configuration with rule-groups but no bare rules still surfaces the
// rule-groups' failure diagnostics instead of a bare NO_RULES.
func composeFinal(listRes, groupRes rules.RuleResult) rules.RuleResult {
	if listRes.Triggered {
		return listRes
	}
	if groupRes.Triggered {
		return groupRes
	}
	if listRes.ResultType == rules.ResultNoRules && groupRes.ResultType != rules.ResultNoRules {
		return groupRes
	}
	return listRes
}

func ruleByID(list []config.RuleConfig) map[string]config.RuleConfig {
	out := make(map[string]config.RuleConfig, len(list))
	for _, r := range list {
		out[r.ID] = r
	}
	return out
}

// publishMetrics pushes the just-completed evaluation's rule outcome and the
// unified cache's current per-scope statistics into the attached Prometheus
// recorder (§6 "Observability outputs"). A nil Metrics is a no-op — every
// Recorder method already tolerates a nil receiver, matching the teacher's
// "metrics are additive, never load-bearing" convention.
func (e *Evaluator) publishMetrics(final rules.RuleResult) {
	if e.Metrics == nil {
		return
	}
	var duration time.Duration
	if final.PerformanceMetrics != nil {
		duration = time.Duration(final.PerformanceMetrics.DurationMs) * time.Millisecond
	}
	e.Metrics.ObserveRuleEvaluation(final.RuleMatchedName, string(final.ResultType), duration)

	if e.Cache == nil {
		return
	}
	for scope, stats := range e.Cache.GetAllStatistics() {
		e.Metrics.SetCacheHitRate(string(scope), stats.HitRate)
		e.Metrics.SetCacheSize(string(scope), e.Cache.Size(scope))
	}
}
