package lookup

import (
	"context"
	"fmt"

	"github.com/apexrules/apex/internal/apexerr"
	"github.com/apexrules/apex/internal/model"
)

// FileLoader reads a file-based dataset's rows once at service construction
// (§6 "File dataset: read once at service construction"). Parsing the
// on-disk format is the loader's concern; the core only needs the resulting
// rows.
type FileLoader interface {
	Load(ctx context.Context, filePath, format string) ([]map[string]any, error)
}

// DatasetCache is the structural seam a Resolver depends on instead of
// internal/cache directly (the same seam internal/expr's ProgramCache uses),
// so internal/lookup never imports internal/cache. It models §4.6's
// GetOrCompute atomic compute-if-absent primitive, which is what guarantees
// the "identical DatasetSignature puts MUST coalesce" invariant.
type DatasetCache interface {
	GetOrCompute(key string, build func() (any, error)) (any, error)
}

// Resolver implements §4.3's lookup-service resolution order: a named
// registry service first, then a dataset-backed service built (or reused)
// via the dataset signature cache, else ConfigurationError.
type Resolver struct {
	Registry     *Registry
	DatasetCache DatasetCache
	DBQuerier    DBQuerier
	RESTClient   RESTClient
	FileLoader   FileLoader
}

// NewResolver builds a Resolver. DBQuerier/RESTClient/FileLoader may be left
// nil if the configuration never references database/rest-api/file
// datasets; a Resolve call against an unsupported variant then fails with a
// ConfigurationError rather than panicking.
func NewResolver(registry *Registry, datasetCache DatasetCache) *Resolver {
	return &Resolver{Registry: registry, DatasetCache: datasetCache}
}

// Resolve returns the Service a lookup enrichment's Spec should use,
// following §4.3's resolution order.
func (r *Resolver) Resolve(ctx context.Context, spec *Spec) (Service, error) {
	if spec.LookupService != "" {
		if r.Registry != nil {
			if svc, ok := r.Registry.Get(spec.LookupService); ok {
				return svc, nil
			}
		}
		return nil, &apexerr.ConfigurationError{Detail: fmt.Sprintf("lookup service %q not registered", spec.LookupService)}
	}
	if spec.LookupDataset != nil {
		return r.resolveDataset(ctx, spec.LookupDataset)
	}
	return nil, &apexerr.ConfigurationError{Detail: "enrichment declares neither lookupService nor lookupDataset"}
}

// resolveDataset computes ds's Signature and fetches (or builds, on miss)
// the corresponding Service through the dataset cache (§4.3, §3
// Lifecycles: "created once per unique DatasetSignature and shared across
// enrichments").
func (r *Resolver) resolveDataset(ctx context.Context, ds *Dataset) (Service, error) {
	sig, err := ComputeSignature(ds)
	if err != nil {
		return nil, err
	}
	build := func() (any, error) {
		return r.buildDatasetService(ctx, sig, ds)
	}
	if r.DatasetCache == nil {
		return r.buildDatasetService(ctx, sig, ds)
	}
	v, err := r.DatasetCache.GetOrCompute(sig.Key(), build)
	if err != nil {
		return nil, err
	}
	svc, ok := v.(Service)
	if !ok {
		return nil, &apexerr.ConfigurationError{Detail: "dataset cache entry is not a lookup.Service"}
	}
	return svc, nil
}

// buildDatasetService constructs the Service for each dataset variant.
// inline/file datasets are bulk-indexed once, matching §6's "indexing a
// list of records by its key field"; database/rest-api datasets query per
// key at Transform time (§6 "parameterized query with named parameter
// extraction from the record at lookup time" / "single request per key"),
// since the transport's inputs aren't known until a concrete key arrives.
func (r *Resolver) buildDatasetService(ctx context.Context, sig Signature, ds *Dataset) (Service, error) {
	switch ds.Kind {
	case DatasetInline:
		return newDatasetService(sig.Key(), ds.KeyField, recordsFromInline(ds.InlineData)), nil

	case DatasetFile:
		if r.FileLoader == nil {
			return nil, &apexerr.ConfigurationError{Detail: "file dataset requires a FileLoader"}
		}
		rows, err := r.FileLoader.Load(ctx, ds.FilePath, ds.Format)
		if err != nil {
			return nil, &apexerr.TransportError{Service: sig.Key(), Cause: err}
		}
		return newDatasetService(sig.Key(), ds.KeyField, recordsFromInline(rows)), nil

	case DatasetDatabase:
		if r.DBQuerier == nil {
			return nil, &apexerr.ConfigurationError{Detail: "database dataset requires a DBQuerier"}
		}
		return &dynamicDatasetService{
			name: sig.Key(), keyField: ds.KeyField, kind: DatasetDatabase, ds: ds, db: r.DBQuerier,
		}, nil

	case DatasetRESTAPI:
		if r.RESTClient == nil {
			return nil, &apexerr.ConfigurationError{Detail: "rest-api dataset requires a RESTClient"}
		}
		return &dynamicDatasetService{
			name: sig.Key(), keyField: ds.KeyField, kind: DatasetRESTAPI, ds: ds, rest: r.RESTClient,
		}, nil

	default:
		return nil, &apexerr.ConfigurationError{Detail: fmt.Sprintf("unsupported dataset kind %q", ds.Kind)}
	}
}

// dynamicDatasetService is a Service backed by a per-key database or
// rest-api call rather than a pre-built in-memory index (§6 "Data-source
// contracts"). It queries using the lookup key bound to the dataset's
// keyField as the sole named parameter, since only the key — not the full
// source record — is available at Transform time.
type dynamicDatasetService struct {
	name     string
	keyField string
	kind     DatasetKind
	ds       *Dataset
	db       DBQuerier
	rest     RESTClient
}

func (s *dynamicDatasetService) Name() string { return s.name }

func (s *dynamicDatasetService) Transform(key model.Value) (model.Value, error) {
	if key.IsNull() {
		return model.Null, nil
	}
	params := map[string]any{s.keyField: key.Native()}
	switch s.kind {
	case DatasetDatabase:
		rows, err := s.db.Query(context.Background(), s.ds.ConnectionName, s.ds.DataSourceRef, s.ds.Query, s.ds.QueryRef, params)
		if err != nil {
			return model.Null, &apexerr.TransportError{Service: s.name, Cause: err}
		}
		if len(rows) == 0 {
			return model.Null, nil
		}
		return model.FromRecord(model.RecordFromNative(rows[0])), nil
	case DatasetRESTAPI:
		row, err := s.rest.Call(context.Background(), s.ds.ConnectionName, s.ds.DataSourceRef, s.ds.Endpoint, s.ds.OperationRef, params)
		if err != nil {
			return model.Null, &apexerr.TransportError{Service: s.name, Cause: err}
		}
		if row == nil {
			return model.Null, nil
		}
		return model.FromRecord(model.RecordFromNative(row)), nil
	default:
		return model.Null, nil
	}
}

func (s *dynamicDatasetService) GetAllRecords() ([]*model.Record, bool) {
	return nil, false
}
