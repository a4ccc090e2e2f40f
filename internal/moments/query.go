package moments

import (
	"errors"
	"fmt"
	"strings"
)

// SortKey orders the moment list by date.
type SortKey string

const (
	SortDateAscending  SortKey = "date-asc"
	SortDateDescending SortKey = "date-desc"
)

// DefaultPageSize is the page size selected when the dashboard opens.
const DefaultPageSize = 10

// AllowedPageSizes defines the selectable page sizes.
var AllowedPageSizes = []int{10, 20, 50, 100}

var (
	// ErrInvalidPageSize indicates a page size outside AllowedPageSizes.
	ErrInvalidPageSize = errors.New("moments: invalid page size")
	// ErrInvalidSortKey indicates an unsupported sort key.
	ErrInvalidSortKey = errors.New("moments: invalid sort key")
)

// ValidatePageSize checks if page size is allowed.
func ValidatePageSize(pageSize int) error {
	for _, size := range AllowedPageSizes {
		if pageSize == size {
			return nil
		}
	}
	return fmt.Errorf("%w: %d must be one of %v", ErrInvalidPageSize, pageSize, AllowedPageSizes)
}

// ParseSortKey normalizes raw input into a SortKey.
func ParseSortKey(rawInput string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(rawInput))) {
	case SortDateAscending:
		return SortDateAscending, nil
	case SortDateDescending:
		return SortDateDescending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, rawInput)
	}
}

// ListQuery holds the pagination, sort and search state of the moment list.
type ListQuery struct {
	PageSize    int
	CurrentPage int
	SortBy      SortKey
	SearchText  string
}

// DefaultListQuery returns the state of a freshly opened dashboard.
func DefaultListQuery() ListQuery {
	return ListQuery{
		PageSize:    DefaultPageSize,
		CurrentPage: 1,
		SortBy:      SortDateAscending,
	}
}
