package cache

import "time"

// backend is the storage contract a scope's store must satisfy; memoryBackend
// and redisBackend both implement it. get must treat an expired entry as
// absent (§4.6: "get on an expired entry returns absence ... regardless of
// LRU position").
type backend interface {
	get(key string) (any, bool)
	put(key string, value any, ttl time.Duration)
	remove(key string)
	containsKey(key string) bool
	size() int
	clear()
}

var (
	_ backend = (*memoryBackend)(nil)
	_ backend = (*redisBackend)(nil)
)
