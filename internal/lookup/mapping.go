package lookup

import (
	"github.com/apexrules/apex/internal/apexerr"
	"github.com/apexrules/apex/internal/expr"
	"github.com/apexrules/apex/internal/model"
)

// MappingOutcome threads an explicit step-result for field-mapping
// application back to the enrichment pipeline (§9 Open Question: "Prefer
// threading an explicit step-result back to the pipeline" over inspecting
// the enriched record after the fact).
type MappingOutcome struct {
	RequiredFieldFailures []apexerr.RequiredFieldFailure
}

// Failed reports whether any required mapping failed.
func (o MappingOutcome) Failed() bool { return len(o.RequiredFieldFailures) > 0 }

// ApplyFieldMappings implements §4.3's field-mapping semantics (steps 1-4).
// source is the fetched lookup result (null on a miss or a null key);
// target is the record mappings are written onto. env compiles/evaluates
// each mapping's optional transformation expression; a nil env skips
// transformation evaluation entirely (equivalent to every mapping having no
// transformation).
func ApplyFieldMappings(env *expr.Environment, enrichmentID string, source model.Value, mappings []FieldMapping, target *model.Record) MappingOutcome {
	var outcome MappingOutcome

	// §4.3 step 1: a simple (non-record) scalar source is the conventional
	// sentinel for a failed external lookup; a null source covers both a
	// lookup miss and a null lookup key (§8 "Lookup key evaluating to null
	// -> record returned unchanged except default-value mappings"). Both
	// skip source-field extraction entirely.
	simpleSource := source.IsNull() || source.Kind() != model.KindRecord

	for _, m := range mappings {
		var current model.Value
		if simpleSource {
			current = model.FromNative(m.DefaultValue)
		} else {
			current = source.Record().Get(m.SourceField)
			if current.IsNull() {
				if m.Required {
					outcome.RequiredFieldFailures = append(outcome.RequiredFieldFailures, apexerr.RequiredFieldFailure{
						EnrichmentID: enrichmentID,
						SourceField:  m.SourceField,
						TargetField:  m.TargetField,
					})
					continue
				}
				current = model.FromNative(m.DefaultValue)
			}
		}

		if m.Transformation != "" && env != nil {
			ctx := expr.NewContext(model.FromRecord(target))
			ctx.SetVariable("value", current)
			if v, err := env.Eval(m.Transformation, ctx); err == nil {
				current = v
			}
		}

		if !current.IsNull() {
			target.Set(m.TargetField, current)
		}
	}

	return outcome
}
