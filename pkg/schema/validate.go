package schema

import (
	"fmt"
	"strconv"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/vars"
)

// SchemaDefaultProvenance marks fields filled from a FieldSpec default
// rather than any registered scope.
var SchemaDefaultProvenance = merge.Provenance{Scope: "schema-default"}

// ResolvedConfiguration is the typed, validated, coerced configuration of
// one target, with per-field provenance carried over from the merge.
// Ownership passes to the caller; the engine retains no reference.
type ResolvedConfiguration struct {
	// Values is the coerced configuration tree. It contains exactly the
	// fields the schema declares; merged keys outside the schema are not
	// copied through.
	Values vars.Value

	// Provenance maps each leaf field path to the scope that supplied its
	// winning value, or to schema-default.
	Provenance map[string]merge.Provenance
}

// Validate walks the FieldSpec tree against a target's merged variables and
// produces either a ResolvedConfiguration or a non-empty list of
// ValidationErrors ordered depth-first by field path. A configuration is
// never returned alongside errors: resolution is all-or-nothing per target.
//
// The root spec must be an object.
func Validate(spec *FieldSpec, merged *merge.MergedVariableSet) (*ResolvedConfiguration, []ValidationError) {
	w := &walker{}
	resolved, _ := w.validate(spec, "", merged.Vars())
	if len(w.errs) > 0 {
		return nil, w.errs
	}

	prov := make(map[string]merge.Provenance)
	collectProvenance(resolved, "", merged, prov)
	return &ResolvedConfiguration{Values: resolved, Provenance: prov}, nil
}

type walker struct {
	errs []ValidationError
}

func (w *walker) addError(e ValidationError) {
	w.errs = append(w.errs, e)
}

// validate coerces and checks one value against its spec, recursing into
// composites. Child errors are accumulated, never short-circuited.
func (w *walker) validate(spec *FieldSpec, path string, v vars.Value) (vars.Value, bool) {
	switch spec.Kind {
	case FieldObject:
		return w.validateObject(spec, path, v)
	case FieldSequence:
		return w.validateSequence(spec, path, v)
	case FieldMapping:
		return w.validateMapping(spec, path, v)
	default:
		return w.validateScalar(spec, path, v)
	}
}

func (w *walker) validateObject(spec *FieldSpec, path string, v vars.Value) (vars.Value, bool) {
	if v.Kind() != vars.KindMapping {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrTypeMismatch,
			Expected: string(FieldObject),
			Received: v.String(),
			Message:  fmt.Sprintf("expected a mapping, got %s", v.Kind()),
		})
		return vars.Value{}, false
	}

	before := len(w.errs)
	out := make(map[string]vars.Value, len(spec.Fields))
	for _, name := range spec.FieldNames() {
		fieldSpec := spec.Fields[name]
		fieldPath := joinPath(path, name)

		child, present := v.Get(name)
		if !present {
			if fieldSpec.Required {
				w.addError(ValidationError{
					Path:     fieldPath,
					Kind:     ErrMissingRequiredField,
					Expected: string(fieldSpec.Kind),
					Message:  "required field is absent from the merged variables",
				})
				continue
			}
			if fieldSpec.Default != nil {
				out[name] = fieldSpec.Default.Clone()
			}
			continue
		}

		if resolved, ok := w.validate(fieldSpec, fieldPath, child); ok {
			out[name] = resolved
		}
	}

	if len(w.errs) > before {
		return vars.Value{}, false
	}
	return vars.Mapping(out), true
}

func (w *walker) validateSequence(spec *FieldSpec, path string, v vars.Value) (vars.Value, bool) {
	if v.Kind() != vars.KindSequence {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrTypeMismatch,
			Expected: string(FieldSequence),
			Received: v.String(),
			Message:  fmt.Sprintf("expected a sequence, got %s", v.Kind()),
		})
		return vars.Value{}, false
	}

	before := len(w.errs)
	elems := v.Elems()
	w.checkLength(spec, path, v, len(elems), "element count")

	out := make([]vars.Value, 0, len(elems))
	for i, elem := range elems {
		elemPath := fmt.Sprintf("%s[%d]", displayPath(path), i)
		if resolved, ok := w.validate(spec.Elem, elemPath, elem); ok {
			out = append(out, resolved)
		}
	}

	if len(w.errs) > before {
		return vars.Value{}, false
	}
	return vars.Sequence(out...), true
}

func (w *walker) validateMapping(spec *FieldSpec, path string, v vars.Value) (vars.Value, bool) {
	if v.Kind() != vars.KindMapping {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrTypeMismatch,
			Expected: string(FieldMapping),
			Received: v.String(),
			Message:  fmt.Sprintf("expected a mapping, got %s", v.Kind()),
		})
		return vars.Value{}, false
	}

	before := len(w.errs)
	out := make(map[string]vars.Value, v.Len())
	for _, key := range v.Keys() {
		child, _ := v.Get(key)
		if resolved, ok := w.validate(spec.Value, joinPath(path, key), child); ok {
			out[key] = resolved
		}
	}

	if len(w.errs) > before {
		return vars.Value{}, false
	}
	return vars.Mapping(out), true
}

func (w *walker) validateScalar(spec *FieldSpec, path string, v vars.Value) (vars.Value, bool) {
	coerced, ok, reason := coerce(spec, v)
	if !ok {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrTypeMismatch,
			Expected: string(spec.Kind),
			Received: v.String(),
			Message:  reason,
		})
		return vars.Value{}, false
	}

	before := len(w.errs)
	switch spec.Kind {
	case FieldEnum:
		if !enumMember(spec.Enum, coerced) {
			w.addError(ValidationError{
				Path:     displayPath(path),
				Kind:     ErrConstraintViolation,
				Expected: enumMembersString(spec.Enum),
				Received: v.String(),
				Message:  fmt.Sprintf("value %s is not an allowed member", coerced),
			})
		}
	case FieldInt, FieldFloat:
		w.checkRange(spec, path, v, coerced)
	case FieldString:
		s, _ := coerced.StringVal()
		w.checkLength(spec, path, v, len(s), "length")
		if spec.Pattern != nil && !spec.Pattern.MatchString(s) {
			w.addError(ValidationError{
				Path:     displayPath(path),
				Kind:     ErrConstraintViolation,
				Expected: "pattern " + spec.Pattern.String(),
				Received: v.String(),
				Message:  fmt.Sprintf("value %q does not match pattern %s", s, spec.Pattern),
			})
		}
	}

	if len(w.errs) > before {
		return vars.Value{}, false
	}
	return coerced, true
}

func (w *walker) checkRange(spec *FieldSpec, path string, raw, coerced vars.Value) {
	n, _ := numericValue(coerced)
	if spec.Min != nil && n < *spec.Min {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrConstraintViolation,
			Expected: rangeString(spec),
			Received: raw.String(),
			Message:  fmt.Sprintf("value %v is below the allowed %s", coerced, rangeString(spec)),
		})
	}
	if spec.Max != nil && n > *spec.Max {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrConstraintViolation,
			Expected: rangeString(spec),
			Received: raw.String(),
			Message:  fmt.Sprintf("value %v is above the allowed %s", coerced, rangeString(spec)),
		})
	}
}

func (w *walker) checkLength(spec *FieldSpec, path string, raw vars.Value, n int, what string) {
	if spec.MinLen != nil && n < *spec.MinLen {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrConstraintViolation,
			Expected: fmt.Sprintf("minimum %s %d", what, *spec.MinLen),
			Received: raw.String(),
			Message:  fmt.Sprintf("%s %d is below the minimum of %d", what, n, *spec.MinLen),
		})
	}
	if spec.MaxLen != nil && n > *spec.MaxLen {
		w.addError(ValidationError{
			Path:     displayPath(path),
			Kind:     ErrConstraintViolation,
			Expected: fmt.Sprintf("maximum %s %d", what, *spec.MaxLen),
			Received: raw.String(),
			Message:  fmt.Sprintf("%s %d exceeds the maximum of %d", what, n, *spec.MaxLen),
		})
	}
}

func rangeString(spec *FieldSpec) string {
	switch {
	case spec.Min != nil && spec.Max != nil:
		return fmt.Sprintf("range [%s, %s]", formatBound(*spec.Min), formatBound(*spec.Max))
	case spec.Min != nil:
		return "minimum " + formatBound(*spec.Min)
	default:
		return "maximum " + formatBound(*spec.Max)
	}
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// collectProvenance copies provenance from the merge for every resolved
// leaf, falling back to schema-default for leaves the merge never saw
// (defaults substituted during validation).
func collectProvenance(v vars.Value, path string, merged *merge.MergedVariableSet, out map[string]merge.Provenance) {
	if v.Kind() == vars.KindMapping && v.Len() > 0 {
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			collectProvenance(child, joinPath(path, k), merged, out)
		}
		return
	}
	if path == "" {
		return
	}
	if p, ok := merged.Provenance(path); ok {
		out[path] = p
		return
	}
	out[path] = SchemaDefaultProvenance
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// displayPath renders the root path for error reporting.
func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
