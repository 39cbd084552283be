package cache

import "github.com/apexrules/apex/internal/expr"

// ExpressionProgramCache adapts the unified cache's "expression" scope to
// expr.ProgramCache, letting the expression engine's compile cache share
// the same TTL/LRU/statistics machinery as the other three scopes (§4.6)
// instead of falling back to its own unbounded in-process map.
type ExpressionProgramCache struct {
	cache *Cache
}

// NewExpressionProgramCache wraps cache's expression scope for use as an
// expr.Environment's ProgramCache.
func NewExpressionProgramCache(cache *Cache) *ExpressionProgramCache {
	return &ExpressionProgramCache{cache: cache}
}

func (a *ExpressionProgramCache) Get(source string) (*expr.Program, bool) {
	v, ok := a.cache.Get(ScopeExpression, source)
	if !ok {
		return nil, false
	}
	p, ok := v.(*expr.Program)
	return p, ok
}

func (a *ExpressionProgramCache) Put(source string, p *expr.Program) {
	a.cache.Put(ScopeExpression, source, p)
}

var _ expr.ProgramCache = (*ExpressionProgramCache)(nil)
