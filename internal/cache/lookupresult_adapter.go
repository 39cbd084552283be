package cache

// LookupResultScopeCache adapts the unified cache's "lookup-result" scope to
// the enrichment pipeline's ResultCache seam, the same structural-interface
// pattern DatasetScopeCache uses for the dataset scope (§4.6).
type LookupResultScopeCache struct {
	cache *Cache
}

// NewLookupResultScopeCache wraps cache's lookup-result scope for use as an
// enrichment pipeline's ResultCache.
func NewLookupResultScopeCache(cache *Cache) *LookupResultScopeCache {
	return &LookupResultScopeCache{cache: cache}
}

// GetOrCompute satisfies enrichment.ResultCache.
func (a *LookupResultScopeCache) GetOrCompute(key string, build func() (any, error)) (any, error) {
	return a.cache.GetOrCompute(ScopeLookupResult, key, build)
}
