// Package coerce provides tolerant numeric coercion for untrusted import
// fields, which arrive as numbers, numeric strings, empty strings, booleans,
// or nothing at all.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat attempts to interpret v as a finite float64. Booleans, empty
// strings, non-numeric strings, NaN, and infinities all report false.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case bool:
		return 0, false
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && isFinite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
