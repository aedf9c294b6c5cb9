package domain

import (
	"math"
	"strconv"
	"strings"
)

// CanonicalID normalizes a recipe id so numeric spellings of the same
// number compare equal: "1", "1.0" and "+1" all become "1". Non-numeric ids
// are only trimmed.
func CanonicalID(s string) string {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
