package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToNumericLenient converts a cell to float64 and never fails:
// nil, NaN, "" and the placeholder "x" become 0, commas are read as
// decimal points, anything unparsable becomes 0.
// Used for composition and measurement cells.
func ToNumericLenient(v any) float64 {
	var s string
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(val)
	case float32:
		return finiteOrZero(float64(val))
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case uint:
		return float64(val)
	case uint64:
		return float64(val)
	case uint32:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		s = val
	case *string:
		if val == nil {
			return 0
		}
		s = *val
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "x") {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(f)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// ParseCoerce converts one cell with the coercing rules of
// NormalizeNumericColumn: comma to dot, unparsable to NaN.
func ParseCoerce(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// NormalizeNumericColumn converts a whole column, leaving unparsable
// entries as NaN. Used for time/index columns where 0 would corrupt ordering.
func NormalizeNumericColumn(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = ParseCoerce(v)
	}
	return out
}

// LenientColumn is the column-wide form of ToNumericLenient
func LenientColumn(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = ToNumericLenient(v)
	}
	return out
}
