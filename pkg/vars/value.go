package vars

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	// KindNull is the absence of a value (YAML null / JSON null).
	KindNull Kind = iota

	// KindBool is a boolean scalar.
	KindBool

	// KindInt is an integer scalar.
	KindInt

	// KindFloat is a floating-point scalar.
	KindFloat

	// KindString is a string scalar.
	KindString

	// KindSequence is an ordered list of Values.
	KindSequence

	// KindMapping is a set of unique string keys each bound to a Value.
	KindMapping
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsScalar reports whether the kind is one of the scalar kinds.
func (k Kind) IsScalar() bool {
	switch k {
	case KindNull, KindBool, KindInt, KindFloat, KindString:
		return true
	default:
		return false
	}
}

// Value is a closed tagged union over the generic value shapes produced by
// structured-data loaders. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	mp   map[string]Value
}

// Null returns the null Value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Float returns a floating-point Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Sequence returns a sequence Value holding the given elements.
func Sequence(elems ...Value) Value {
	return Value{kind: KindSequence, seq: elems}
}

// Mapping returns a mapping Value over the given entries. The map is used
// directly; callers hand over ownership.
func Mapping(entries map[string]Value) Value {
	if entries == nil {
		entries = make(map[string]Value)
	}
	return Value{kind: KindMapping, mp: entries}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// BoolVal returns the boolean payload. The second return is false when the
// value is not a bool.
func (v Value) BoolVal() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// IntVal returns the integer payload. The second return is false when the
// value is not an int.
func (v Value) IntVal() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// FloatVal returns the float payload. The second return is false when the
// value is not a float.
func (v Value) FloatVal() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// StringVal returns the string payload. The second return is false when the
// value is not a string.
func (v Value) StringVal() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Elems returns the elements of a sequence value, or nil for other kinds.
func (v Value) Elems() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Keys returns the mapping keys in sorted order, or nil for other kinds.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.mp))
	for k := range v.mp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value bound to key in a mapping. The second return is
// false when the value is not a mapping or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	child, ok := v.mp[key]
	return child, ok
}

// Len returns the element count for sequences and mappings, and zero for
// scalar kinds.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.mp)
	default:
		return 0
	}
}

// Equal reports deep structural equality of two values. Int and float are
// distinct kinds and never compare equal to each other.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.mp) != len(other.mp) {
			return false
		}
		for k, child := range v.mp {
			otherChild, ok := other.mp[k]
			if !ok || !child.Equal(otherChild) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		elems := make([]Value, len(v.seq))
		for i := range v.seq {
			elems[i] = v.seq[i].Clone()
		}
		return Value{kind: KindSequence, seq: elems}
	case KindMapping:
		entries := make(map[string]Value, len(v.mp))
		for k, child := range v.mp {
			entries[k] = child.Clone()
		}
		return Value{kind: KindMapping, mp: entries}
	default:
		return v
	}
}

// String renders the value in a compact, deterministic, YAML-flow-like form
// for logs and error messages.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindSequence:
		sb.WriteByte('[')
		for i, elem := range v.seq {
			if i > 0 {
				sb.WriteString(", ")
			}
			elem.write(sb)
		}
		sb.WriteByte(']')
	case KindMapping:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.mp[k].write(sb)
		}
		sb.WriteByte('}')
	}
}
