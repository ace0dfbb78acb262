package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Limits and defaults for listing flags.
const (
	DefaultLimit     = 0
	MaxLimit         = 10000
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
	DefaultSortOrder = SortOrderAsc

	sortPartsMax = 2
)

// Validation errors.
var (
	ErrNegative          = errors.New("pagination values cannot be negative")
	ErrLimitTooLarge     = fmt.Errorf("limit cannot exceed %d", MaxLimit)
	ErrMixedModes        = errors.New("--page and --offset are mutually exclusive")
	ErrPageSizeRequired  = errors.New("--page requires --page-size (or --limit)")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'createdAt:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// Params are the listing flags of a command. Offset-based (--limit and
// --offset) and page-based (--page and --page-size) modes are mutually
// exclusive. A zero Limit means no limit.
type Params struct {
	Limit    int
	Offset   int
	Page     int
	PageSize int
	Sort     string
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.Limit < 0 || p.Offset < 0 || p.Page < 0 || p.PageSize < 0 {
		return ErrNegative
	}
	if p.Limit > MaxLimit || p.PageSize > MaxLimit {
		return ErrLimitTooLarge
	}
	if p.Page > 0 && p.Offset > 0 {
		return ErrMixedModes
	}
	if p.Page > 0 && p.PageSize == 0 && p.Limit == 0 {
		return ErrPageSizeRequired
	}
	_, _, err := ParseSort(p.Sort)
	return err
}

// IsPageBased reports whether --page was given.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// OffsetLimit returns the window to slice. limit is 0 when unbounded.
//
//nolint:nonamedreturns // Named returns document the pair.
func (p Params) OffsetLimit() (offset, limit int) {
	if !p.IsPageBased() {
		return p.Offset, p.Limit
	}
	size := p.PageSize
	if size == 0 {
		size = p.Limit
	}
	return (p.Page - 1) * size, size
}

// Apply returns the window of items selected by p. Page-based requests
// past the end return the last page; offset-based ones return nothing.
func Apply[T any](p Params, items []T) []T {
	if len(items) == 0 {
		return items
	}
	offset, limit := p.OffsetLimit()
	if p.IsPageBased() && limit > 0 && offset >= len(items) {
		offset = ((len(items) - 1) / limit) * limit
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// ParseSort splits "field" or "field:order". An empty string yields an
// empty field, meaning the natural order.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if sortStr == "" {
		return "", DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}
