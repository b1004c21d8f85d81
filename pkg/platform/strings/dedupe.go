// Package strings holds small slice-of-string helpers shared by check modules.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops empties and removes exact
// duplicates. Order is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeFold is DedupeAndTrim with case-insensitive and whitespace-collapsing
// comparison. The first spelling seen is the one kept, so
// {"Jane  Doe", "JANE DOE"} yields {"Jane  Doe"}.
func DedupeFold(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	})
}

func dedupe(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
