package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Helpers for reading the loosely typed documents produced by the data file decoder.
// Integers may arrive as int, int64 or uint64, reals as float64 and anything may be a string.
// Malformed values coerce to the zero value.

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		return parseIntLoose(n)
	default:
		return 0
	}
}

// parseIntLoose accepts "12", " 12 " and "12.0"; anything else is 0.
func parseIntLoose(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	default:
		return toInt(v) != 0
	}
}

func toMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	default:
		return nil
	}
}

// numberedKeys returns the keys of d ordered by their trailing integer
// ("Response 2" before "Response 10"). Keys without one follow in lexical order.
func numberedKeys(d map[string]any) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, oki := trailingInt(keys[i])
		nj, okj := trailingInt(keys[j])
		if oki != okj {
			return oki
		}
		if oki && ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func trailingInt(s string) (int, bool) {
	i := strings.LastIndexByte(s, ' ')
	n, err := strconv.Atoi(s[i+1:])
	return n, err == nil
}
