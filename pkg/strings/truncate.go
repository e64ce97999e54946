// Package strings holds small text helpers shared by the output layers.
package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest value a table cell shows before it is cut.
const DefaultCellMaxLen = 100

// MinTruncateLen is the smallest maxLen Truncate honours: one character plus "...".
const MinTruncateLen = 4

// Truncate collapses s onto a single line and cuts it to at most maxLen
// runes, ending in "..." when cut. maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
