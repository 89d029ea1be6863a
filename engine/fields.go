package engine

import (
	"slices"
	"strings"

	"github.com/ardnew/mung"
)

const fieldDelim = ","

// splitFields splits a comma-separated field list. Blank items and repeats
// are dropped; the first occurrence keeps its position.
func splitFields(s string) []string {
	return uniqueFields(strings.Split(s, fieldDelim))
}

// uniqueFields trims each field and drops blanks and repeats.
func uniqueFields(fields []string) []string {
	out := make([]string, 0, len(fields))

	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	return out
}

// joinFields renders a field list in the form used by cache keys.
func joinFields(fields []string) string {
	return mung.Make(
		mung.WithSubjectItems(uniqueFields(fields)...),
		mung.WithDelim(fieldDelim),
	).String()
}
