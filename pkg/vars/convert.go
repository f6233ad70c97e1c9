package vars

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromGo converts a generic Go value, as produced by yaml.v3 or
// encoding/json unmarshalling into any, to a Value. Unsupported Go kinds
// (structs, channels, non-string map keys, and similar) are rejected.
func FromGo(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return Sequence(elems...), nil
	case map[string]any:
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries[k] = v
		}
		return Mapping(entries), nil
	case map[any]any:
		// Older YAML decoders produce interface-keyed maps.
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("mapping key %v is not a string", k)
			}
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", ks, err)
			}
			entries[ks] = v
		}
		return Mapping(entries), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// MustFromGo is FromGo for static fixture literals; it panics on error.
func MustFromGo(raw any) Value {
	v, err := FromGo(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ToGo converts a Value back into generic Go data suitable for JSON or YAML
// serialization. Mappings become map[string]any, sequences []any.
func (v Value) ToGo() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, elem := range v.seq {
			out[i] = elem.ToGo()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.mp))
		for k, child := range v.mp {
			out[k] = child.ToGo()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON serializes the value as its generic Go form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToGo())
}
