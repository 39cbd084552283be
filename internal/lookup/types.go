// Package lookup implements §4.3's lookup layer: resolving a lookup
// configuration to a cached lookup service, extracting a key, fetching a
// result, and applying field mappings onto a target record.
package lookup

import "github.com/apexrules/apex/internal/model"

// DatasetKind identifies which LookupDataset variant is populated.
type DatasetKind string

const (
	DatasetInline   DatasetKind = "inline"
	DatasetFile     DatasetKind = "file"
	DatasetDatabase DatasetKind = "database"
	DatasetRESTAPI  DatasetKind = "rest-api"
)

// Dataset is the tagged union of §3's LookupDataset. Exactly one of the
// variant-specific fields is populated, selected by Kind.
type Dataset struct {
	Kind DatasetKind

	// inline
	InlineData []map[string]any

	// file
	FilePath string
	Format   string

	// database
	ConnectionName string
	DataSourceRef  string
	Query          string
	QueryRef       string
	Parameters     []QueryParameter

	// rest-api
	Endpoint     string
	OperationRef string

	// KeyField names the field every variant indexes by (§3 "required for
	// correctness of lookup").
	KeyField string
}

// QueryParameter names a database query's parameter, the record field it
// maps to, and its type. Parameters enter the dataset signature only: at
// lookup time the database service binds the lookup key under KeyField as
// its sole parameter and does not extract these fields from the record.
type QueryParameter struct {
	Name  string
	Field string
	Type  string
}

// FieldMapping is §3's FieldMapping: how one lookup-result field is projected
// onto the target record.
type FieldMapping struct {
	SourceField     string
	TargetField     string
	Transformation  string
	DefaultValue    any
	Required        bool
}

// Spec is a lookup enrichment's sub-configuration (§3 "Lookup:").
type Spec struct {
	LookupKey       string
	LookupService   string
	LookupDataset   *Dataset
	FieldMappings   []FieldMapping
	CacheEnabled    bool
	CacheTTLSeconds int
}

// EffectiveTTLSeconds returns CacheTTLSeconds or the §4.3 default of 300.
func (s *Spec) EffectiveTTLSeconds() int {
	if s.CacheTTLSeconds > 0 {
		return s.CacheTTLSeconds
	}
	return 300
}

// recordsFromInline converts the raw inline dataset rows into Records.
func recordsFromInline(rows []map[string]any) []*model.Record {
	out := make([]*model.Record, len(rows))
	for i, row := range rows {
		out[i] = model.RecordFromNative(row)
	}
	return out
}
