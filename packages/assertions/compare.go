package assertions

import (
	"fmt"
	"reflect"
	"strconv"
)

func equals(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk {
		return actualNum == expectedNum
	}

	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
