package registry

import (
	"fmt"
	"math"
)

// Kind is the value type of a schema parameter.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindFloat
	KindInt
	KindBool
	KindStrings
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for k := KindString; k <= KindAny; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return KindInvalid, false
}

func (k Kind) valid() bool { return k >= KindString && k <= KindAny }

func (k Kind) numeric() bool { return k == KindFloat || k == KindInt }

// coerce normalizes v to the Go type used for k: string, float64, int,
// bool, []string, or v itself for KindAny.
func (k Kind) coerce(v any) (any, bool) {
	switch k {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case int64:
			return float64(n), true
		case uint:
			return float64(n), true
		case uint64:
			return float64(n), true
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			if n >= math.MinInt && n <= math.MaxInt {
				return int(n), true
			}
		case uint:
			if n <= math.MaxInt {
				return int(n), true
			}
		case uint64:
			if n <= math.MaxInt {
				return int(n), true
			}
		case float64:
			// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive.
			if n == math.Trunc(n) && n >= math.MinInt && n < -float64(math.MinInt) {
				return int(n), true
			}
		}
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindStrings:
		switch s := v.(type) {
		case []string:
			out := make([]string, len(s))
			copy(out, s)
			return out, true
		case []any:
			out := make([]string, len(s))
			for i, e := range s {
				str, ok := e.(string)
				if !ok {
					return nil, false
				}
				out[i] = str
			}
			return out, true
		}
	case KindAny:
		return v, true
	}
	return nil, false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
