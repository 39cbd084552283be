// Package rules implements §4.5's rule and rule-group evaluator: single-rule
// condition evaluation, first-match rule-list dispatch, sequential/parallel
// rule-group combination, and the severity aggregation rules that feed the
// orchestrator's consolidated RuleResult.
package rules

import "time"

// ResultType is §3's RuleResult.resultType enumeration.
type ResultType string

const (
	ResultMatch   ResultType = "MATCH"
	ResultNoMatch ResultType = "NO_MATCH"
	ResultNoRules ResultType = "NO_RULES"
	ResultError   ResultType = "ERROR"
)

// FailureDiagnostics is populated only when a RuleResult is not triggered
// (§3 "non-null only when !triggered").
type FailureDiagnostics struct {
	LastFailedGroupName    string
	LastFailedGroupMessage string
	HighestFailedSeverity  string
}

// PerformanceMetrics is the optional per-evaluation timing the spec allows
// (§3 "performanceMetrics?"), expanded to the full per-rule tuple §6
// "Observability outputs" documents: a snapshot of a rule's accumulated
// history as of the evaluation that produced this RuleResult, plus that
// evaluation's own duration.
type PerformanceMetrics struct {
	DurationMs        int64
	EvaluationCount   int64
	TotalTimeMs       int64
	MinTimeMs         int64
	MaxTimeMs         int64
	AverageTimeMs     float64
	AverageMemory     float64
	AverageComplexity float64
	FailedEvaluations int64
	SuccessRate       float64
}

// RuleResult is §3's RuleResult, shared by single-rule evaluation, rule-list
// evaluation, and (extended with EnrichedData/FailureMessages/Success) the
// orchestrator's consolidated output.
type RuleResult struct {
	ID                 string
	RuleMatchedName    string
	Message            string
	Severity           string
	Triggered          bool
	ResultType         ResultType
	Timestamp          time.Time
	PerformanceMetrics *PerformanceMetrics
	FailureDiagnostics *FailureDiagnostics

	EnrichedData    map[string]any
	FailureMessages []string
	Success         bool
}

// RuleGroupEvaluationResult is §3's RuleGroupEvaluationResult.
type RuleGroupEvaluationResult struct {
	GroupID            string
	GroupName          string
	Operator           string
	GroupResult        bool
	IndividualResults  []RuleResult
	AggregatedSeverity string
	StartedAt          time.Time
	DurationMs         int64
	TotalEvaluated     int
	Passed             int
	Failed             int
}
