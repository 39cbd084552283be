package expr

import "github.com/apexrules/apex/internal/model"

// ServiceRegistry resolves a named lookup or external service for the
// evaluator's static-call and method-call machinery. It is defined here as a
// minimal structural interface so that internal/expr never imports
// internal/lookup; whichever concrete registry the orchestrator builds
// satisfies this by having a matching Resolve method.
type ServiceRegistry interface {
	Resolve(name string) (any, bool)
}

// EvaluationContext is built fresh for every evaluation (§4.2) and must never
// be shared across concurrent evaluations: the variable scope is mutated by
// setVariable and by the orchestrator's pre-pass writes.
type EvaluationContext struct {
	// Root is the object bare identifiers resolve against.
	Root model.Value

	// Accessor performs property reads/writes against record-shaped values.
	Accessor model.Accessor

	// Registry is consulted by lookup-aware expressions; nil if none applies.
	Registry ServiceRegistry

	// Stage is a free-form marker ("rules", "enrichment") used
	// only for diagnostics and error messages (§4.2).
	Stage string

	variables map[string]model.Value
}

// NewContext builds an evaluation context rooted at root.
func NewContext(root model.Value) *EvaluationContext {
	return &EvaluationContext{
		Root:      root,
		Accessor:  model.DefaultAccessor,
		variables: make(map[string]model.Value),
	}
}

// WithStage sets the diagnostic stage marker and returns the same context.
func (c *EvaluationContext) WithStage(stage string) *EvaluationContext {
	c.Stage = stage
	return c
}

// WithRegistry attaches a service registry and returns the same context.
func (c *EvaluationContext) WithRegistry(r ServiceRegistry) *EvaluationContext {
	c.Registry = r
	return c
}

// SetVariable binds name in the variable scope; later writes shadow earlier
// ones (§4.2). `#name` lookups always resolve here, never against Root, even
// when Root happens to carry a property of the same name (Open Question
// resolved in favor of variables always winning).
func (c *EvaluationContext) SetVariable(name string, v model.Value) {
	if c.variables == nil {
		c.variables = make(map[string]model.Value)
	}
	c.variables[name] = v
}

// Variable reads a bound variable; missing variables read as null.
func (c *EvaluationContext) Variable(name string) (model.Value, bool) {
	v, ok := c.variables[name]
	if !ok {
		return model.Null, false
	}
	return v, true
}

// Child returns a new context sharing Root, Accessor, and Registry, but with
// its own independent variable scope seeded by copying the parent's current
// bindings, so an evaluation run on it does not leak writes back to its
// caller. Nothing in this module calls it: rule-group members, including
// those run by the parallel worker pool, each get a fresh context from their
// ContextBuilder.
func (c *EvaluationContext) Child() *EvaluationContext {
	child := &EvaluationContext{
		Root:      c.Root,
		Accessor:  c.Accessor,
		Registry:  c.Registry,
		Stage:     c.Stage,
		variables: make(map[string]model.Value, len(c.variables)),
	}
	for k, v := range c.variables {
		child.variables[k] = v
	}
	return child
}
