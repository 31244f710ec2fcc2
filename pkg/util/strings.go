package util

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// IsNormalString reports whether b is valid UTF-8 made of printable
// characters and whitespace.
func IsNormalString(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// AnyToInt converts a decoded JSON number to int64. Only integral values
// are accepted; strings, fractions and values outside the int64 range are
// rejected.
func AnyToInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
