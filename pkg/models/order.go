package models

import (
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortTimeLayout renders timestamps as fixed-width UTC strings, so that their lexical order
// is their chronological order.
const SortTimeLayout = "2006-01-02T15:04:05.000000000Z"

// TimeSortKey formats t for use as a sort key.
func TimeSortKey(t time.Time) string {
	return t.UTC().Format(SortTimeLayout)
}

// Compare orders two entities by their sort keys only.
// Caches break ties by id, so a Compare may report distinct entities as equal.
type Compare[E Entity] func(a, b E) int

// Lexical orders sort keys byte-wise ascending.
func Lexical[E Entity]() Compare[E] {
	return func(a, b E) int {
		return strings.Compare(a.GetSortKey(), b.GetSortKey())
	}
}

// ByName orders sort keys as display names: case-insensitive and locale-aware.
//
// Each call builds its own collator; the returned function must not be shared
// between goroutines.
func ByName[E Entity]() Compare[E] {
	c := collate.New(language.Und, collate.IgnoreCase)
	return func(a, b E) int {
		return c.CompareString(a.GetSortKey(), b.GetSortKey())
	}
}

// NewestFirst orders sort keys produced by [TimeSortKey] descending.
func NewestFirst[E Entity]() Compare[E] {
	return func(a, b E) int {
		return strings.Compare(b.GetSortKey(), a.GetSortKey())
	}
}
