// Package enums holds the string enums mirrored by Postgres enum types.
package enums

import (
	"fmt"
	"slices"
)

// oneOf reports whether v is among known.
func oneOf[T ~string](v T, known []T) bool {
	return slices.Contains(known, v)
}

// parse resolves raw against known and names kind in the error.
func parse[T ~string](kind, raw string, known []T) (T, error) {
	if v := T(raw); oneOf(v, known) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
