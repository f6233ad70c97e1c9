package schema

import (
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"

	"github.com/strataconf/strata/pkg/vars"
)

// coerce attempts to bring v to the declared scalar kind of spec. Same-kind
// values pass through; cross-kind conversion is permitted only along the
// safe conversions documented on each branch. The boolean result reports
// whether coercion succeeded; on failure the string carries the reason.
func coerce(spec *FieldSpec, v vars.Value) (vars.Value, bool, string) {
	switch spec.Kind {
	case FieldString:
		if v.Kind() == vars.KindString {
			return v, true, ""
		}
		return vars.Value{}, false, fmt.Sprintf("expected string, got %s", v.Kind())

	case FieldInt:
		return coerceInt(v)

	case FieldFloat:
		return coerceFloat(v)

	case FieldBool:
		return coerceBool(v)

	case FieldIPAddr:
		return coerceIPAddr(v)

	case FieldEnum:
		// Membership itself is a constraint check; coercion only demands a
		// scalar string or number.
		switch v.Kind() {
		case vars.KindString, vars.KindInt, vars.KindFloat:
			return v, true, ""
		default:
			return vars.Value{}, false, fmt.Sprintf("expected enum member (string or number), got %s", v.Kind())
		}

	default:
		// Composite kinds are structural; the validator recurses instead
		// of coercing.
		return v, true, ""
	}
}

// coerceInt accepts ints, integral floats, and numeric-looking strings.
func coerceInt(v vars.Value) (vars.Value, bool, string) {
	switch v.Kind() {
	case vars.KindInt:
		return v, true, ""
	case vars.KindFloat:
		f, _ := v.FloatVal()
		if math.IsNaN(f) || f != math.Trunc(f) {
			return vars.Value{}, false, fmt.Sprintf("float %v has a fractional part", f)
		}
		// int64(f) is implementation-defined outside int64 range, so the
		// bound check must come before the conversion. MaxInt64 rounds up
		// to 2^63 as a float64, hence the strict upper comparison.
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return vars.Value{}, false, fmt.Sprintf("float %v is out of int range", f)
		}
		return vars.Int(int64(f)), true, ""
	case vars.KindString:
		s, _ := v.StringVal()
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return vars.Int(i), true, ""
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f == math.Trunc(f) {
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return vars.Value{}, false, fmt.Sprintf("string %q is out of int range", s)
			}
			return vars.Int(int64(f)), true, ""
		}
		return vars.Value{}, false, fmt.Sprintf("string %q is not numeric", s)
	default:
		return vars.Value{}, false, fmt.Sprintf("expected int, got %s", v.Kind())
	}
}

// coerceFloat accepts floats, ints, and numeric-looking strings.
func coerceFloat(v vars.Value) (vars.Value, bool, string) {
	switch v.Kind() {
	case vars.KindFloat:
		return v, true, ""
	case vars.KindInt:
		i, _ := v.IntVal()
		return vars.Float(float64(i)), true, ""
	case vars.KindString:
		s, _ := v.StringVal()
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return vars.Float(f), true, ""
		}
		return vars.Value{}, false, fmt.Sprintf("string %q is not numeric", s)
	default:
		return vars.Value{}, false, fmt.Sprintf("expected float, got %s", v.Kind())
	}
}

// coerceBool accepts bools and the usual truthy/falsy string spellings.
func coerceBool(v vars.Value) (vars.Value, bool, string) {
	switch v.Kind() {
	case vars.KindBool:
		return v, true, ""
	case vars.KindString:
		s, _ := v.StringVal()
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on":
			return vars.Bool(true), true, ""
		case "false", "no", "off":
			return vars.Bool(false), true, ""
		}
		return vars.Value{}, false, fmt.Sprintf("string %q is not a boolean", s)
	default:
		return vars.Value{}, false, fmt.Sprintf("expected bool, got %s", v.Kind())
	}
}

// coerceIPAddr accepts strings parseable as IPv4 or IPv6 addresses and
// stores them in canonical form.
func coerceIPAddr(v vars.Value) (vars.Value, bool, string) {
	s, ok := v.StringVal()
	if !ok {
		return vars.Value{}, false, fmt.Sprintf("expected IP address string, got %s", v.Kind())
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return vars.Value{}, false, fmt.Sprintf("string %q is not an IP address", s)
	}
	return vars.String(addr.String()), true, ""
}

// enumMember reports whether v matches one of the declared members by
// value. Int and float members bridge numerically so a YAML 1 matches a
// declared 1.0 and vice versa.
func enumMember(members []vars.Value, v vars.Value) bool {
	for _, m := range members {
		if m.Equal(v) {
			return true
		}
		mf, mOK := numericValue(m)
		vf, vOK := numericValue(v)
		if mOK && vOK && mf == vf {
			return true
		}
	}
	return false
}

func numericValue(v vars.Value) (float64, bool) {
	if i, ok := v.IntVal(); ok {
		return float64(i), true
	}
	if f, ok := v.FloatVal(); ok {
		return f, true
	}
	return 0, false
}

// enumMembersString renders the allowed members for error messages.
func enumMembersString(members []vars.Value) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.String()
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}
