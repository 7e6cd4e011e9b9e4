package runtime

import (
	"strconv"
	"strings"

	"github.com/liquidgo/liquid/parser"
	"github.com/spf13/cast"
)

// DefaultMaxNumberString is the default digit ceiling applied before a
// string is handed to the numeric coercion functions below (spec §5 DoS
// guard on `to_int`-style conversions: an attacker-controlled string of
// millions of digits must not be allowed to blow up CPU time in Go's
// bignum-free int/float parser, mirroring Python's int() digit limit that
// the original implementation also guards against).
const DefaultMaxNumberString = 4300

// MinMaxNumberString is a lower bound for Limits.MaxNumberString values
// other than 0 (0 disables the guard). Nothing in this module enforces it:
// checkNumberStringLength applies whatever ceiling it is given.
const MinMaxNumberString = 640

// Safe marks a string that autoescape must not re-escape (spec §4.2/§4.6
// "safe markup"): the output of the `escape`/`strip_html` filters, or a
// host-trusted value passed in through globals.
type Safe string

// ToString renders a value the way `{{ }}` output does (spec §4.2/§4.6):
// nil and the zero value of Undefined render as "", arrays concatenate each
// element's own string form with no separator, floats always show a decimal
// point.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Safe:
		return string(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case *Undefined:
		return x.String()
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case []any:
		var sb strings.Builder
		for _, e := range x {
			sb.WriteString(ToString(e))
		}
		return sb.String()
	case map[string]any:
		return ""
	default:
		return cast.ToString(v)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Truthy implements Liquid's truthiness rule (spec §4.2): everything is
// truthy except nil and false — 0, "", and empty collections are all truthy,
// unlike most scripting languages.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case *Undefined:
		return false
	default:
		return true
	}
}

// IsEmptyValue implements the `empty` primitive's comparison rule: zero-
// length string, array, or mapping.
func IsEmptyValue(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// IsBlankValue implements the `blank` primitive's comparison rule: empty,
// plus nil, false, and whitespace-only strings.
func IsBlankValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// Equal implements spec §4.2 value equality: numeric operands compare by
// value across int/float, everything else by Go's == after unwrapping
// Undefined to nil.
func Equal(a, b any) bool {
	if u, ok := a.(*Undefined); ok {
		a = nil
		_ = u
	}
	if u, ok := b.(*Undefined); ok {
		b = nil
		_ = u
	}
	if isNumeric(a) && isNumeric(b) {
		af, aerr := ToFloat64(a, 0)
		bf, berr := ToFloat64(b, 0)
		if aerr == nil && berr == nil {
			return af == bf
		}
	}
	if !comparable(a) || !comparable(b) {
		return false
	}
	return a == b
}

// comparable reports whether v's dynamic type is safe to pass through Go's
// == operator; arrays and mappings are never equal to anything in Liquid
// comparisons so they're excluded rather than risking a runtime panic on an
// uncomparable interface value.
func comparable(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return false
	default:
		return true
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float32, float64:
		return true
	default:
		return false
	}
}

// ToInt64 coerces v to an integer via spf13/cast, first rejecting an
// over-long numeric string per the DoS guard above. maxDigits <= 0 disables
// the guard.
func ToInt64(v any, maxDigits int) (int64, error) {
	if s, ok := v.(string); ok {
		if err := checkNumberStringLength(s, maxDigits); err != nil {
			return 0, err
		}
	}
	return cast.ToInt64E(v)
}

// ToFloat64 is ToInt64's float counterpart.
func ToFloat64(v any, maxDigits int) (float64, error) {
	if s, ok := v.(string); ok {
		if err := checkNumberStringLength(s, maxDigits); err != nil {
			return 0, err
		}
	}
	return cast.ToFloat64E(v)
}

func checkNumberStringLength(s string, maxDigits int) error {
	if maxDigits <= 0 {
		return nil
	}
	digits := strings.TrimLeft(strings.TrimPrefix(strings.TrimSpace(s), "-"), "0")
	digits = strings.Map(func(r rune) rune {
		if r == '.' {
			return -1
		}
		return r
	}, digits)
	if len(digits) > maxDigits {
		return NewValueError(parser.Span{}, "number string exceeds %d digits", maxDigits)
	}
	return nil
}
