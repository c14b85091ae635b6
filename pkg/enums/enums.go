// Package enums holds the string enums mirrored by Postgres enum types.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// parseStrict accepts exact matches only; used for values read back from
// storage or from other services.
func parseStrict[T ~string](set []T, kind, raw string) (T, error) {
	if v := T(raw); member(set, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}

// parseLoose ignores case and surrounding whitespace; used for request input.
func parseLoose[T ~string](set []T, kind, raw string) (T, error) {
	if v := T(strings.ToLower(strings.TrimSpace(raw))); member(set, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
