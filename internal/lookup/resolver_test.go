package lookup

import (
	"context"
	"testing"

	"github.com/apexrules/apex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDatasetCache is a minimal DatasetCache used only to exercise
// coalescing semantics in tests, independent of internal/cache.
type memDatasetCache struct {
	built map[string]any
	calls map[string]int
}

func newMemDatasetCache() *memDatasetCache {
	return &memDatasetCache{built: make(map[string]any), calls: make(map[string]int)}
}

func (c *memDatasetCache) GetOrCompute(key string, build func() (any, error)) (any, error) {
	if v, ok := c.built[key]; ok {
		return v, nil
	}
	c.calls[key]++
	v, err := build()
	if err != nil {
		return nil, err
	}
	c.built[key] = v
	return v, nil
}

func currencyDataset() *Dataset {
	return &Dataset{
		Kind:     DatasetInline,
		KeyField: "code",
		InlineData: []map[string]any{
			{"code": "USD", "name": "US Dollar", "symbol": "$"},
			{"code": "EUR", "name": "Euro", "symbol": "€"},
		},
	}
}

func TestResolverBuildsInlineDatasetService(t *testing.T) {
	r := NewResolver(NewRegistry(), newMemDatasetCache())
	svc, err := r.Resolve(context.Background(), &Spec{LookupDataset: currencyDataset()})
	require.NoError(t, err)

	v, err := svc.Transform(model.String("USD"))
	require.NoError(t, err)
	require.False(t, v.IsNull())
	assert.Equal(t, "US Dollar", v.Record().Get("name").Str())
}

func TestResolverDeduplicatesIdenticalDatasets(t *testing.T) {
	dc := newMemDatasetCache()
	r := NewResolver(NewRegistry(), dc)

	spec1 := &Spec{LookupDataset: currencyDataset()}
	spec2 := &Spec{LookupDataset: currencyDataset()}

	svc1, err := r.Resolve(context.Background(), spec1)
	require.NoError(t, err)
	svc2, err := r.Resolve(context.Background(), spec2)
	require.NoError(t, err)

	assert.Same(t, svc1, svc2)
	sig, err := ComputeSignature(currencyDataset())
	require.NoError(t, err)
	assert.Equal(t, 1, dc.calls[sig.Key()])
}

func TestResolverUsesNamedRegistryService(t *testing.T) {
	reg := NewRegistry()
	reg.Register("external-risk", newDatasetService("external-risk", "id", nil))
	r := NewResolver(reg, newMemDatasetCache())

	svc, err := r.Resolve(context.Background(), &Spec{LookupService: "external-risk"})
	require.NoError(t, err)
	assert.Equal(t, "external-risk", svc.Name())
}

func TestResolverFailsWithNeitherServiceNorDataset(t *testing.T) {
	r := NewResolver(NewRegistry(), newMemDatasetCache())
	_, err := r.Resolve(context.Background(), &Spec{})
	require.Error(t, err)
}

func TestResolverDatabaseDatasetQueriesPerKey(t *testing.T) {
	r := &Resolver{DBQuerier: fakeDBQuerier{
		rows: map[string][]map[string]any{
			"XYZ": {{"id": "XYZ", "riskScore": 42}},
		},
	}}
	svc, err := r.Resolve(context.Background(), &Spec{LookupDataset: &Dataset{
		Kind: DatasetDatabase, KeyField: "id", Query: "select * from risk where id = :id",
	}})
	require.NoError(t, err)

	v, err := svc.Transform(model.String("XYZ"))
	require.NoError(t, err)
	require.False(t, v.IsNull())
	assert.Equal(t, int64(42), v.Record().Get("riskScore").Int())

	miss, err := svc.Transform(model.String("NOPE"))
	require.NoError(t, err)
	assert.True(t, miss.IsNull())
}

type fakeDBQuerier struct {
	rows map[string][]map[string]any
}

func (f fakeDBQuerier) Query(ctx context.Context, connectionName, dataSourceRef, query, queryRef string, params map[string]any) ([]map[string]any, error) {
	key, _ := params["id"].(string)
	return f.rows[key], nil
}
