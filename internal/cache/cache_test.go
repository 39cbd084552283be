package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func TestPutGetMemory(t *testing.T) {
	c := New()
	c.Put(ScopeLookupResult, "k", "v")
	v, ok := c.Get(ScopeLookupResult, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestGetMissRecordsStatistics(t *testing.T) {
	c := New()
	_, ok := c.Get(ScopeExpression, "missing")
	assert.False(t, ok)
	stats := c.GetStatistics(ScopeExpression)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestExpiredEntryReadsAsAbsent(t *testing.T) {
	c := New(WithPolicy(ScopeLookupResult, 10*time.Millisecond, 10000))
	c.Put(ScopeLookupResult, "k", "v")
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ScopeLookupResult, "k")
	assert.False(t, ok)
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	c := New(WithPolicy(ScopeDataset, time.Hour, 2))
	c.Put(ScopeDataset, "a", 1)
	c.Put(ScopeDataset, "b", 2)
	c.Put(ScopeDataset, "c", 3) // evicts "a" (least recently used)
	_, ok := c.Get(ScopeDataset, "a")
	assert.False(t, ok)
	_, ok = c.Get(ScopeDataset, "b")
	assert.True(t, ok)
	stats := c.GetStatistics(ScopeDataset)
	assert.GreaterOrEqual(t, stats.Evictions, int64(1))
}

func TestClearAllKeepsStatistics(t *testing.T) {
	c := New()
	c.Put(ScopeServiceRegistry, "k", "v")
	c.Get(ScopeServiceRegistry, "k")
	c.ClearAll()
	_, ok := c.Get(ScopeServiceRegistry, "k")
	assert.False(t, ok)
	stats := c.GetStatistics(ScopeServiceRegistry)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetOrComputeCoalesces(t *testing.T) {
	c := New()
	calls := 0
	build := func() (any, error) {
		calls++
		return "built", nil
	}
	v1, err := c.GetOrCompute(ScopeDataset, "sig", build)
	require.NoError(t, err)
	v2, err := c.GetOrCompute(ScopeDataset, "sig", build)
	require.NoError(t, err)
	assert.Equal(t, "built", v1)
	assert.Equal(t, "built", v2)
	assert.Equal(t, 1, calls)
}

func TestDefaultSingletonResetForTests(t *testing.T) {
	ResetForTests()
	first := Default()
	first.Put(ScopeExpression, "x", 1)
	second := Default()
	v, ok := second.Get(ScopeExpression, "x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	ResetForTests()
	third := Default()
	_, ok = third.Get(ScopeExpression, "x")
	assert.False(t, ok)
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{mr.Addr()}})
	require.NoError(t, err)
	defer client.Close()

	c := New(WithRedisScope(ScopeLookupResult, client, "apex:test:lookup"))
	c.Put(ScopeLookupResult, "acct:1", map[string]any{"tier": "gold"})
	v, ok := c.Get(ScopeLookupResult, "acct:1")
	require.True(t, ok)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gold", m["tier"])

	assert.True(t, c.ContainsKey(ScopeLookupResult, "acct:1"))
	c.Remove(ScopeLookupResult, "acct:1")
	assert.False(t, c.ContainsKey(ScopeLookupResult, "acct:1"))
}
