package cache

import "time"

// Scope identifies one of the four named cache partitions of §4.6. Each
// scope has its own TTL/size policy and its own hit/miss/eviction
// statistics; nothing is shared across scopes.
type Scope string

const (
	ScopeDataset         Scope = "dataset"
	ScopeLookupResult    Scope = "lookup-result"
	ScopeExpression      Scope = "expression"
	ScopeServiceRegistry Scope = "service-registry"
)

// policy carries a scope's default TTL and maximum entry count (§4.6 table).
type policy struct {
	ttl     time.Duration
	maxSize int
}

var defaultPolicies = map[Scope]policy{
	ScopeDataset:         {ttl: 2 * time.Hour, maxSize: 1000},
	ScopeLookupResult:    {ttl: 5 * time.Minute, maxSize: 10000},
	ScopeExpression:      {ttl: 24 * time.Hour, maxSize: 1000},
	ScopeServiceRegistry: {ttl: 24 * time.Hour, maxSize: 500},
}

// allScopes lists every scope, used by getAllStatistics and clearAll.
var allScopes = []Scope{ScopeDataset, ScopeLookupResult, ScopeExpression, ScopeServiceRegistry}
