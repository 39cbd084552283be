package expr

import (
	"sync"

	"github.com/apexrules/apex/internal/apexerr"
	"github.com/apexrules/apex/internal/model"
)

// Program is a compiled expression, ready for repeated evaluation against
// different contexts (§4.1: "expressions are parsed lazily at first use and
// the compiled form is cached").
type Program struct {
	source string
	root   node
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Eval runs the program against ctx.
func (p *Program) Eval(ctx *EvaluationContext) (model.Value, error) {
	return eval(ctx, p.root, p.source)
}

// ProgramCache is the compile-cache collaborator an Environment delegates to.
// Its default implementation is an unbounded in-process map; internal/cache
// provides an adapter satisfying this interface backed by the unified
// cache's "expression" scope (TTL + LRU + statistics, §4.6), which
// production wiring plugs in via NewEnvironment's WithCache option.
type ProgramCache interface {
	Get(source string) (*Program, bool)
	Put(source string, p *Program)
}

// memProgramCache is the zero-dependency default: correct, unbounded,
// concurrency-safe, but without the eviction and statistics of the unified
// cache (§4.6 describes those as a property of the *shared* cache, not a
// requirement every compile site must reimplement).
type memProgramCache struct {
	mu    sync.RWMutex
	items map[string]*Program
}

func newMemProgramCache() *memProgramCache {
	return &memProgramCache{items: make(map[string]*Program)}
}

func (c *memProgramCache) Get(source string) (*Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[source]
	return p, ok
}

func (c *memProgramCache) Put(source string, p *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[source] = p
}

// Environment is the compile-and-cache front door every other APEX
// component uses to turn expression text into a runnable Program (§4.1,
// §4.6). It holds no evaluation state itself; each Eval call takes a fresh
// EvaluationContext.
type Environment struct {
	cache ProgramCache
}

// EnvironmentOption configures an Environment at construction time.
type EnvironmentOption func(*Environment)

// WithCache overrides the default in-process compile cache, typically with
// an adapter over the unified cache's "expression" scope.
func WithCache(c ProgramCache) EnvironmentOption {
	return func(e *Environment) { e.cache = c }
}

// NewEnvironment returns an Environment with the default in-process compile
// cache unless overridden via WithCache.
func NewEnvironment(opts ...EnvironmentOption) *Environment {
	e := &Environment{cache: newMemProgramCache()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses source if it is not already cached, returning the cached or
// newly-compiled Program. Parse failures produce a *apexerr.ParseError and
// are not cached (a transient cache implementation is free to still cache
// them, but the default does not).
func (e *Environment) Compile(source string) (*Program, error) {
	if p, ok := e.cache.Get(source); ok {
		return p, nil
	}
	root, err := parseExpression(source)
	if err != nil {
		return nil, &apexerr.ParseError{Expression: source, Cause: err}
	}
	p := &Program{source: source, root: root}
	e.cache.Put(source, p)
	return p, nil
}

// Eval compiles (or reuses the cached compilation of) source and evaluates
// it against ctx in one call.
func (e *Environment) Eval(source string, ctx *EvaluationContext) (model.Value, error) {
	p, err := e.Compile(source)
	if err != nil {
		return model.Null, err
	}
	return p.Eval(ctx)
}
