package cache

// DatasetScopeCache adapts the unified cache's "dataset" scope to
// lookup.DatasetCache, letting internal/lookup's Resolver share the same
// TTL/LRU/statistics machinery (§4.6) for DatasetLookupService
// deduplication without importing internal/cache directly.
type DatasetScopeCache struct {
	cache *Cache
}

// NewDatasetScopeCache wraps cache's dataset scope for use as a
// lookup.Resolver's DatasetCache.
func NewDatasetScopeCache(cache *Cache) *DatasetScopeCache {
	return &DatasetScopeCache{cache: cache}
}

// GetOrCompute satisfies lookup.DatasetCache.
func (a *DatasetScopeCache) GetOrCompute(key string, build func() (any, error)) (any, error) {
	return a.cache.GetOrCompute(ScopeDataset, key, build)
}
