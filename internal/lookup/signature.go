package lookup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/apexrules/apex/internal/apexerr"
)

// Signature is §3's DatasetSignature: a deterministic fingerprint of a
// dataset descriptor such that signature equality implies behavioral
// equivalence of the lookup service that would be built from it.
type Signature struct {
	Type        DatasetKind
	ContentHash string
	KeyField    string
}

// Key renders the signature as the cache key used for the dataset scope.
// Distinct KeyField values always produce distinct keys (§4.3 "signatures
// differing only in keyField are distinct services").
func (s Signature) Key() string {
	return fmt.Sprintf("%s:%s:%s", s.Type, s.ContentHash, s.KeyField)
}

// ComputeSignature builds a Signature for ds, following the per-variant
// recipe of §4.3. The canonical-string-then-hash technique mirrors the
// teacher's BackendDescriptor.Hash (FNV-1a over a sorted, delimited string),
// substituted with MD5 per the spec's explicit instruction — fingerprinting
// only, not a security property.
func ComputeSignature(ds *Dataset) (Signature, error) {
	if ds == nil {
		return Signature{}, &apexerr.ConfigurationError{Detail: "lookup dataset descriptor is nil"}
	}
	if ds.KeyField == "" {
		return Signature{}, &apexerr.ConfigurationError{Detail: "lookup dataset keyField is required"}
	}

	switch ds.Kind {
	case DatasetInline:
		return Signature{
			Type:        DatasetInline,
			ContentHash: shortMD5(canonicalInline(ds.InlineData)),
			KeyField:    ds.KeyField,
		}, nil

	case DatasetFile:
		return Signature{
			Type:        DatasetFile,
			ContentHash: normalizePath(ds.FilePath),
			KeyField:    ds.KeyField,
		}, nil

	case DatasetDatabase:
		canonical := fmt.Sprintf("conn:%s;ds:%s;q:%s;qref:%s;params:%s",
			ds.ConnectionName, ds.DataSourceRef, ds.Query, ds.QueryRef, canonicalParams(ds.Parameters))
		return Signature{
			Type:        DatasetDatabase,
			ContentHash: shortMD5(canonical),
			KeyField:    ds.KeyField,
		}, nil

	case DatasetRESTAPI:
		canonical := fmt.Sprintf("conn:%s;ds:%s;ep:%s;op:%s",
			ds.ConnectionName, ds.DataSourceRef, ds.Endpoint, ds.OperationRef)
		return Signature{
			Type:        DatasetRESTAPI,
			ContentHash: shortMD5(canonical),
			KeyField:    ds.KeyField,
		}, nil

	default:
		return Signature{}, &apexerr.ConfigurationError{Detail: fmt.Sprintf("unsupported dataset kind %q", ds.Kind)}
	}
}

// shortMD5 returns the first 8 hex characters of the MD5 digest of s (§4.3
// "first 8 hex chars of MD5").
func shortMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// normalizePath applies §4.3's file-based normalization: forward slashes,
// spaces underscored.
func normalizePath(path string) string {
	norm := strings.ReplaceAll(path, "\\", "/")
	norm = strings.ReplaceAll(norm, " ", "_")
	return norm
}

// canonicalInline renders inline rows as a deterministic string: each row's
// keys sorted, rows joined in encountered order (row order is semantically
// meaningful for inline data, unlike key order within a row).
func canonicalInline(rows []map[string]any) string {
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte(';')
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for j, k := range keys {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%s=%v", k, row[k])
		}
	}
	return sb.String()
}

func canonicalParams(params []QueryParameter) string {
	sorted := make([]QueryParameter, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var sb strings.Builder
	for i, p := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s:%s", p.Field, p.Type)
	}
	return sb.String()
}
