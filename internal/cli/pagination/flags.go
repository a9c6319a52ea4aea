package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults and limits.
const (
	DefaultLimit     = 100
	MaxLimit         = 10000
	MaxPageSize      = 1000
	DefaultSortOrder = SortOrderAsc
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Validation errors.
var (
	ErrInvalidLimit         = errors.New("limit must be between 0 and 10000")
	ErrInvalidPageSize      = errors.New("page-size must be between 1 and 1000")
	ErrInvalidOffset        = errors.New("offset must be non-negative")
	ErrInvalidPage          = errors.New("page must be >= 1")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
	ErrMixedPaginationModes = errors.New("cannot use both offset-based (--offset) and page-based (--page) pagination")
	ErrPageSizeWithoutPage  = errors.New("--page-size requires --page to be set")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'co2e:desc')")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
	ErrInvalidSortField     = errors.New("invalid sort field")
)

// Params holds the pagination flags. Offset-based (Limit, Offset) and
// page-based (Page, PageSize) modes are mutually exclusive. Limit 0 means
// unlimited.
type Params struct {
	Limit    int
	Offset   int
	Page     int
	PageSize int
}

// NewParams returns Params with the default limit.
func NewParams() Params {
	return Params{Limit: DefaultLimit}
}

// Validate checks bounds and mode exclusivity.
func (p Params) Validate() error {
	switch {
	case p.Limit < 0 || p.Limit > MaxLimit:
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, p.Limit)
	case p.Offset < 0:
		return fmt.Errorf("%w: got %d", ErrInvalidOffset, p.Offset)
	case p.Page < 0:
		return fmt.Errorf("%w: got %d", ErrInvalidPage, p.Page)
	case p.Page > 0 && p.Offset > 0:
		return ErrMixedPaginationModes
	case p.Page == 0 && p.PageSize > 0:
		return ErrPageSizeWithoutPage
	case p.Page > 0 && (p.PageSize < 1 || p.PageSize > MaxPageSize):
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, p.PageSize)
	}
	return nil
}

// IsPageBased reports whether page-based pagination is active.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// Window returns the effective offset and limit. A zero limit is unlimited.
func (p Params) Window() (offset, limit int) { //nolint:nonamedreturns // Documents the pair.
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize, p.PageSize
	}
	return p.Offset, p.Limit
}

// TotalPages returns the page count for total items in page-based mode and
// 0 otherwise.
func (p Params) TotalPages(total int) int {
	if !p.IsPageBased() || total == 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}

// Apply returns the window of items selected by p. Out-of-range windows
// yield an empty slice.
func Apply[T any](p Params, items []T) []T {
	offset, limit := p.Window()
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses "field" or "field:order". An empty string yields an
// empty field and ascending order.
func ParseSort(sortStr string) (field, order string, err error) { //nolint:nonamedreturns // Documents the triple.
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
