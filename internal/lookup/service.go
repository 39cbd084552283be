package lookup

import (
	"context"
	"fmt"

	"github.com/apexrules/apex/internal/model"
)

// Service is §6's lookup service contract: a named resolver from key to
// value, with an optional bulk accessor for in-memory datasets.
type Service interface {
	Name() string
	Transform(key model.Value) (model.Value, error)
	GetAllRecords() ([]*model.Record, bool)
}

// DBQuerier executes a parameterized dataset query against an external
// database. Transports are out of scope for the core (§6); this interface
// exists so the core can depend on an abstraction instead of a driver.
type DBQuerier interface {
	Query(ctx context.Context, connectionName, dataSourceRef, query, queryRef string, params map[string]any) ([]map[string]any, error)
}

// RESTClient performs a single request against an external REST dataset
// source (§6 "single request per key (or prefetched bulk at construction)").
type RESTClient interface {
	Call(ctx context.Context, connectionName, dataSourceRef, endpoint, operationRef string, params map[string]any) (map[string]any, error)
}

// datasetService is a Service backed by an in-memory index over a list of
// records, built once per unique Signature and shared across enrichments
// (§3 "Lifecycles"). Indexing resolves duplicate keys last-write-wins in
// encountered order (§6).
type datasetService struct {
	name     string
	keyField string
	index    map[string]*model.Record
	all      []*model.Record
}

func newDatasetService(name, keyField string, records []*model.Record) *datasetService {
	s := &datasetService{
		name:     name,
		keyField: keyField,
		index:    make(map[string]*model.Record, len(records)),
		all:      records,
	}
	for _, r := range records {
		key := r.Get(keyField)
		if key.IsNull() {
			continue
		}
		s.index[stringifyKey(key)] = r
	}
	return s
}

func (s *datasetService) Name() string { return s.name }

func (s *datasetService) Transform(key model.Value) (model.Value, error) {
	if key.IsNull() {
		return model.Null, nil
	}
	r, ok := s.index[stringifyKey(key)]
	if !ok {
		return model.Null, nil
	}
	return model.FromRecord(r), nil
}

func (s *datasetService) GetAllRecords() ([]*model.Record, bool) {
	return s.all, true
}

// stringifyKey renders a lookup key value as the string the in-memory index
// is keyed by, so `'123'` and an int key field of `123` coincide.
func stringifyKey(v model.Value) string {
	if v.Kind() == model.KindString {
		return v.Str()
	}
	return fmt.Sprintf("%v", v.Native())
}
