package model

// Record is APEX's canonical data shape: an ordered-insertion-independent
// mapping from string keys to dynamic Values (§3). It is the root object
// evaluations run against, and the target enrichments mutate in place.
type Record struct {
	fields map[string]Value
	// order preserves insertion order purely as a convenience for
	// deterministic iteration/serialization; lookup semantics never depend
	// on it (§3: "ordered only as a convenience").
	order []string

	// typeName optionally records a logical type label used by the
	// enrichment pipeline's targetType gating (§4.4). Records built from
	// plain maps have no type name; callers that need targetType matching
	// set it explicitly via WithTypeName.
	typeName string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// RecordFromNative builds a Record from a plain Go map, recursively
// converting nested maps/slices via FromNative.
func RecordFromNative(m map[string]any) *Record {
	r := NewRecord()
	for k, v := range m {
		r.Set(k, FromNative(v))
	}
	return r
}

// WithTypeName attaches a logical type label and returns the same record for
// chaining.
func (r *Record) WithTypeName(name string) *Record {
	r.typeName = name
	return r
}

// TypeName returns the record's logical type label, or "" if unset.
func (r *Record) TypeName() string { return r.typeName }

// Get reads a field. Missing keys read as null, never an error (§4.1
// "Missing keys read as null (they are not an error on the read path)").
func (r *Record) Get(name string) Value {
	if r == nil {
		return Null
	}
	v, ok := r.fields[name]
	if !ok {
		return Null
	}
	return v
}

// Has reports whether the key is present (distinct from present-but-null).
func (r *Record) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.fields[name]
	return ok
}

// Set writes a field, creating the key if absent (§6 "canWrite is
// unconditional (missing keys are created on write)").
func (r *Record) Set(name string, v Value) {
	if _, ok := r.fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.fields[name] = v
}

// Delete removes a field if present.
func (r *Record) Delete(name string) {
	if _, ok := r.fields[name]; !ok {
		return
	}
	delete(r.fields, name)
	for i, k := range r.order {
		if k == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Clone returns a deep-enough copy: top-level fields are copied into a new
// map, but nested records/lists are shared by reference, matching the
// orchestrator's "mutated in place" contract for the top-level record while
// letting callers snapshot before a read-only pre-pass (§4.4 pre-pass runs
// "in read-only mode (no mutation of the record)").
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := &Record{
		fields:   make(map[string]Value, len(r.fields)),
		order:    make([]string, len(r.order)),
		typeName: r.typeName,
	}
	copy(clone.order, r.order)
	for k, v := range r.fields {
		clone.fields[k] = v
	}
	return clone
}

// Native converts the record back into a plain map[string]any.
func (r *Record) Native() map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v.Native()
	}
	return out
}
