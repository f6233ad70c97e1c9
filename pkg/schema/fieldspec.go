package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/strataconf/strata/pkg/vars"
)

// FieldKind identifies the declared type of a configuration field.
type FieldKind string

const (
	// FieldString is a plain string field.
	FieldString FieldKind = "string"

	// FieldInt is an integer field.
	FieldInt FieldKind = "int"

	// FieldFloat is a floating-point field.
	FieldFloat FieldKind = "float"

	// FieldBool is a boolean field.
	FieldBool FieldKind = "bool"

	// FieldIPAddr is an IPv4/IPv6 address field, stored canonically.
	FieldIPAddr FieldKind = "ipaddr"

	// FieldEnum is a field restricted to a declared set of scalar members.
	FieldEnum FieldKind = "enum"

	// FieldSequence is an ordered list whose elements share one spec.
	FieldSequence FieldKind = "sequence"

	// FieldMapping is a string-keyed map whose values share one spec.
	FieldMapping FieldKind = "mapping"

	// FieldObject is a nested structure with individually specified fields.
	FieldObject FieldKind = "object"
)

// FieldSpec is one node of a schema tree. The tree is authored once and is
// read-only during resolution.
type FieldSpec struct {
	// Kind is the declared field type.
	Kind FieldKind

	// Required marks the field as mandatory; a required field absent from
	// the merge is a validation error.
	Required bool

	// Default is substituted when an optional field is absent, with
	// provenance schema-default. Nil means the field is simply omitted.
	Default *vars.Value

	// Enum lists the allowed members for enum fields.
	Enum []vars.Value

	// Min and Max bound numeric fields (inclusive).
	Min *float64
	Max *float64

	// MinLen and MaxLen bound string lengths and sequence element counts.
	MinLen *int
	MaxLen *int

	// Pattern constrains string fields to a regular expression.
	Pattern *regexp.Regexp

	// Elem specifies sequence elements.
	Elem *FieldSpec

	// Value specifies mapping values.
	Value *FieldSpec

	// Fields specifies object members by name.
	Fields map[string]*FieldSpec
}

// FieldNames returns an object's field names in sorted order.
func (s *FieldSpec) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check verifies the structural consistency of a spec tree: composite kinds
// carry their child specs, enums declare members, and constraints are
// attached to kinds they apply to. Loaders call this once after building a
// tree from an authored document.
func (s *FieldSpec) Check() error {
	return s.check("$")
}

func (s *FieldSpec) check(path string) error {
	switch s.Kind {
	case FieldString, FieldInt, FieldFloat, FieldBool, FieldIPAddr:
	case FieldEnum:
		if len(s.Enum) == 0 {
			return fmt.Errorf("%s: enum field declares no members", path)
		}
		for i, member := range s.Enum {
			switch member.Kind() {
			case vars.KindString, vars.KindInt, vars.KindFloat:
			default:
				return fmt.Errorf("%s: enum member %d has non-scalar kind %s", path, i, member.Kind())
			}
		}
	case FieldSequence:
		if s.Elem == nil {
			return fmt.Errorf("%s: sequence field declares no element spec", path)
		}
		if err := s.Elem.check(path + "[]"); err != nil {
			return err
		}
	case FieldMapping:
		if s.Value == nil {
			return fmt.Errorf("%s: mapping field declares no value spec", path)
		}
		if err := s.Value.check(path + ".*"); err != nil {
			return err
		}
	case FieldObject:
		if len(s.Fields) == 0 {
			return fmt.Errorf("%s: object field declares no members", path)
		}
		for _, name := range s.FieldNames() {
			if err := s.Fields[name].check(path + "." + name); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unknown field kind %q", path, s.Kind)
	}

	if (s.Min != nil || s.Max != nil) && s.Kind != FieldInt && s.Kind != FieldFloat {
		return fmt.Errorf("%s: numeric range constraint on non-numeric kind %s", path, s.Kind)
	}
	if (s.MinLen != nil || s.MaxLen != nil) && s.Kind != FieldString && s.Kind != FieldSequence {
		return fmt.Errorf("%s: length constraint on kind %s", path, s.Kind)
	}
	if s.Pattern != nil && s.Kind != FieldString {
		return fmt.Errorf("%s: pattern constraint on non-string kind %s", path, s.Kind)
	}
	if s.Required && s.Default != nil {
		return fmt.Errorf("%s: required field cannot carry a default", path)
	}
	return nil
}
