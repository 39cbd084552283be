package cache

import (
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Absent is returned by Get's second value when no live entry is found,
// making the zero-value ambiguity between "missing" and "stored nil"
// explicit at call sites (§4.6 "absence sentinel").
type Absent struct{}

// Cache is the unified, four-scope cache of §4.6. Each scope owns an
// independent backend and an independent set of statistics; nothing is
// shared across scopes except the top-level map protecting which backend
// serves which scope.
type Cache struct {
	mu       sync.RWMutex
	backends map[Scope]backend
	stats    map[Scope]*counters
	policies map[Scope]policy
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithRedisScope backs the given scope with a Redis/Valkey client instead of
// the in-memory default (§4.6 "dataset"/"lookup-result" are the scopes worth
// sharing across process instances; expression and service-registry are
// cheap to rebuild locally and default to memory).
func WithRedisScope(scope Scope, client valkey.Client, keyPrefix string) Option {
	return func(c *Cache) {
		c.backends[scope] = newRedisBackend(client, keyPrefix)
	}
}

// WithPolicy overrides a scope's default TTL/maxSize.
func WithPolicy(scope Scope, ttl time.Duration, maxSize int) Option {
	return func(c *Cache) {
		c.policies[scope] = policy{ttl: ttl, maxSize: maxSize}
		if _, ok := c.backends[scope]; !ok {
			return
		}
		if _, isMemory := c.backends[scope].(*memoryBackend); isMemory {
			c.backends[scope] = newMemoryBackend(maxSize, c.evictionHook(scope))
		}
	}
}

// New builds a Cache with every scope backed by memory unless overridden by
// opts.
func New(opts ...Option) *Cache {
	c := &Cache{
		backends: make(map[Scope]backend, len(allScopes)),
		stats:    make(map[Scope]*counters, len(allScopes)),
		policies: make(map[Scope]policy, len(allScopes)),
	}
	for _, s := range allScopes {
		c.policies[s] = defaultPolicies[s]
		c.stats[s] = &counters{}
	}
	for _, s := range allScopes {
		c.backends[s] = newMemoryBackend(c.policies[s].maxSize, c.evictionHook(s))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) evictionHook(scope Scope) func(string) {
	return func(string) {
		c.stats[scope].evictions.Add(1)
	}
}

func (c *Cache) backendFor(scope Scope) backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backends[scope]
}

// Put writes key unconditionally, using the scope's default TTL unless ttl
// overrides it (ttl <= 0 means "use the scope default").
func (c *Cache) Put(scope Scope, key string, value any, ttl ...time.Duration) {
	effective := c.policies[scope].ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		effective = ttl[0]
	}
	c.backendFor(scope).put(key, value, effective)
}

// Get reads key from scope, recording a hit or a miss.
func (c *Cache) Get(scope Scope, key string) (any, bool) {
	v, ok := c.backendFor(scope).get(key)
	if ok {
		c.stats[scope].hits.Add(1)
	} else {
		c.stats[scope].misses.Add(1)
	}
	return v, ok
}

// Remove deletes key from scope if present.
func (c *Cache) Remove(scope Scope, key string) {
	c.backendFor(scope).remove(key)
}

// ContainsKey reports presence without affecting hit/miss statistics (§4.6
// lists it alongside remove/size/clear as a structural query, not a read).
func (c *Cache) ContainsKey(scope Scope, key string) bool {
	return c.backendFor(scope).containsKey(key)
}

// Size reports the live entry count for scope.
func (c *Cache) Size(scope Scope) int {
	return c.backendFor(scope).size()
}

// Clear empties one scope. Statistics are untouched (§4.6 "clearAll does not
// reset statistics").
func (c *Cache) Clear(scope Scope) {
	c.backendFor(scope).clear()
}

// ClearAll empties every scope.
func (c *Cache) ClearAll() {
	for _, s := range allScopes {
		c.Clear(s)
	}
}

// scopeLocks guards GetOrCompute's check-then-put window per scope, so two
// goroutines racing to build the same dataset service never both win (§4.6
// "Identical DatasetSignature puts MUST coalesce").
var scopeLocks = struct {
	mu sync.Mutex
	m  map[Scope]*sync.Mutex
}{m: make(map[Scope]*sync.Mutex)}

func lockFor(scope Scope) *sync.Mutex {
	scopeLocks.mu.Lock()
	defer scopeLocks.mu.Unlock()
	l, ok := scopeLocks.m[scope]
	if !ok {
		l = &sync.Mutex{}
		scopeLocks.m[scope] = l
	}
	return l
}

// GetOrCompute is the atomic compute-if-absent primitive §4.6 asks callers
// to use instead of a racy check-then-put: build is invoked at most once per
// key per miss, and concurrent callers for the same key block on the same
// build rather than manufacturing duplicate values.
func (c *Cache) GetOrCompute(scope Scope, key string, build func() (any, error)) (any, error) {
	if v, ok := c.Get(scope, key); ok {
		return v, nil
	}
	l := lockFor(scope)
	l.Lock()
	defer l.Unlock()
	if v, ok := c.backendFor(scope).get(key); ok {
		c.stats[scope].hits.Add(1)
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	c.Put(scope, key, v)
	return v, nil
}

// GetStatistics returns a snapshot of one scope's counters.
func (c *Cache) GetStatistics(scope Scope) Stats {
	return c.stats[scope].snapshot()
}

// GetAllStatistics returns a snapshot of every scope's counters.
func (c *Cache) GetAllStatistics() map[Scope]Stats {
	out := make(map[Scope]Stats, len(allScopes))
	for _, s := range allScopes {
		out[s] = c.stats[s].snapshot()
	}
	return out
}

var (
	defaultMu    sync.Mutex
	defaultCache *Cache
)

// Default returns the process-wide Cache, initializing it lazily on first
// use (§4.6 "a process-wide handle is provided with lazy initialization").
func Default() *Cache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache == nil {
		defaultCache = New()
	}
	return defaultCache
}

// ResetForTests discards the process-wide Cache so the next Default() call
// rebuilds it from scratch (§4.6 "tests MUST be able to reset it").
func ResetForTests() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCache = nil
}
