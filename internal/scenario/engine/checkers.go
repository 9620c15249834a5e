package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckerNameDefault is the checker used for keys without their own.
const CheckerNameDefault = "_default"

// ToUint64 converts integer outputs and YAML numbers for comparison.
// Strings are parsed with base prefixes, so "0x2A" equals 42.
func ToUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		return uint64(n), n >= 0 && n == float64(uint64(n))
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(n), 0, 64)
		return u, err == nil
	default:
		return 0, false
	}
}

// defaultChecker compares the output named key with the expected value,
// numerically when both sides are numbers.
func defaultChecker(key string, expected any, state *State) *ExpectResult {
	result := &ExpectResult{Key: key, Expected: expected}

	actual, exists := state.Outputs[key]
	if !exists {
		result.Message = fmt.Sprintf("key %q not found in outputs", key)
		return result
	}
	result.Actual = actual

	if s, ok := expected.(string); ok && s == "present" {
		result.Passed = true
		result.Message = fmt.Sprintf("%s = %v", key, actual)
		return result
	}

	if _, isBool := actual.(bool); !isBool {
		if a, ok := ToUint64(actual); ok {
			if e, ok := ToUint64(expected); ok {
				result.Passed = a == e
				if result.Passed {
					result.Message = fmt.Sprintf("%s = %#x", key, a)
				} else {
					result.Message = fmt.Sprintf("expected %#x, got %#x", e, a)
				}
				return result
			}
		}
	}

	result.Passed = fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
	if result.Passed {
		result.Message = fmt.Sprintf("%s = %v", key, expected)
	} else {
		result.Message = fmt.Sprintf("expected %v, got %v", expected, actual)
	}
	return result
}
