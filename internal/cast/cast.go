// Package cast provides type conversion helpers for map[string]any and similar generic data.
package cast

import (
	"fmt"
	"strconv"
)

// ToText converts a scalar value to its textual form. Supports string, bool, int/uint/float
// types, []byte and fmt.Stringer. Returns false for nil and for composite values.
func ToText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

// ToTextMap converts every value of m with ToText. Nil values are dropped; the first
// value that is not a scalar is reported by key.
func ToTextMap(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		s, ok := ToText(v)
		if !ok {
			return nil, fmt.Errorf("cast: value for %q has non-text type %T", k, v)
		}
		out[k] = s
	}
	return out, nil
}
