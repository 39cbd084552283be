// Package apexerr defines the error taxonomy of §7: ParseError,
// EvaluationError, ConfigurationError, RequiredFieldFailure,
// RuleEvaluationError, and TransportError. Each wraps an underlying cause
// (when one exists) following the teacher's fmt.Errorf("pkg: msg: %w")
// convention, and supports errors.As for callers that need to branch on
// taxonomy rather than message text.
package apexerr

import "fmt"

// ParseError is raised when an expression fails to parse (§4.1, §7). It is
// fatal to whichever operation requested the expression.
type ParseError struct {
	Expression string
	Cause      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("apex: parse %q: %v", e.Expression, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// EvaluationError is raised when a syntactically valid expression fails at
// runtime: null dereference, type mismatch, divide-by-zero, unknown
// property/method, or a sandbox violation (§4.1, §7).
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("apex: evaluate %q: %v", e.Expression, e.Cause)
}

func (e *EvaluationError) Unwrap() error { return e.Cause }

// ConfigurationError signals a missing or invalid sub-configuration: no
// lookup service and no dataset, a missing target field, an unsupported
// dataset variant, and so on (§7). It is fatal to the enrichment or rule
// that triggered it, never to the orchestrator as a whole.
type ConfigurationError struct {
	Detail string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("apex: configuration: %s: %v", e.Detail, e.Cause)
	}
	return fmt.Sprintf("apex: configuration: %s", e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// RequiredFieldFailure records that a field mapping marked required was
// absent from a lookup result (§4.3 step 2, §7). It is fatal to the
// enclosing enrichment, non-fatal to the pipeline.
type RequiredFieldFailure struct {
	EnrichmentID string
	SourceField  string
	TargetField  string
}

func (e *RequiredFieldFailure) Error() string {
	return fmt.Sprintf("apex: required field mapping failed in enrichment %q: source %q -> target %q",
		e.EnrichmentID, e.SourceField, e.TargetField)
}

// RuleEvaluationError wraps the cause of a rule condition throwing during
// evaluation (§7); the rule evaluator turns this into a RuleResult with
// ResultType ERROR rather than propagating it.
type RuleEvaluationError struct {
	RuleID string
	Cause  error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("apex: rule %q evaluation failed: %v", e.RuleID, e.Cause)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Cause }

// TransportError marks a failure in an external lookup transport (timeout,
// I/O). The lookup layer surfaces it to the enrichment as if the lookup
// returned null; the field-mapping policy decides whether that counts as a
// required-field miss (§7).
type TransportError struct {
	Service string
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("apex: transport failure for service %q: %v", e.Service, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }
