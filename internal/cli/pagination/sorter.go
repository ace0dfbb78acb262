package pagination

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rshade/finplan/internal/engine/cache"
)

type entryCompare func(a, b cache.EntryInfo) int

var entryFields = map[string]entryCompare{
	"createdAt":   func(a, b cache.EntryInfo) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"expiresAt":   func(a, b cache.EntryInfo) int { return a.ExpiresAt.Compare(b.ExpiresAt) },
	"client":      func(a, b cache.EntryInfo) int { return cmp.Compare(a.ClientID, b.ClientID) },
	"goals":       func(a, b cache.EntryInfo) int { return cmp.Compare(a.GoalsCount, b.GoalsCount) },
	"size":        func(a, b cache.EntryInfo) int { return cmp.Compare(a.SizeBytes, b.SizeBytes) },
	"fingerprint": func(a, b cache.EntryInfo) int { return cmp.Compare(a.Fingerprint, b.Fingerprint) },
}

// EntrySortFields lists the fields cache listings can be sorted by.
func EntrySortFields() []string {
	return slices.Sorted(maps.Keys(entryFields))
}

// SortEntries returns a sorted copy of entries according to a "field:order"
// string. Ties keep their input order.
func SortEntries(entries []cache.EntryInfo, sortStr string) ([]cache.EntryInfo, error) {
	field, order, err := ParseSort(sortStr)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(entries)
	if field == "" {
		return sorted, nil
	}

	compare, ok := entryFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(EntrySortFields(), ", "))
	}
	slices.SortStableFunc(sorted, func(a, b cache.EntryInfo) int {
		if order == SortOrderDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return sorted, nil
}
