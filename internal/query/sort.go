package query

import (
	"errors"
	"fmt"
	"slices"

	"techevents/internal/model"
)

// SortOption selects the ordering applied by Sort.
type SortOption string

const (
	SortDateAsc     SortOption = "date-asc"
	SortDateDesc    SortOption = "date-desc"
	SortCreatedDesc SortOption = "created-desc"
)

// DefaultSort is used when no option is given.
const DefaultSort = SortDateAsc

var ErrUnknownSortOption = errors.New("unknown sort option")

// ParseSortOption maps user input to a SortOption. The empty string means
// DefaultSort; anything else unrecognized is ErrUnknownSortOption.
func ParseSortOption(s string) (SortOption, error) {
	switch SortOption(s) {
	case "":
		return DefaultSort, nil
	case SortDateAsc, SortDateDesc, SortCreatedDesc:
		return SortOption(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortOption, s)
	}
}

// Sort returns a stably sorted copy of events. Events with equal keys keep
// their input order.
func Sort(events []model.Event, opt SortOption) ([]model.Event, error) {
	var cmp func(a, b model.Event) int
	switch opt {
	case "", SortDateAsc:
		cmp = func(a, b model.Event) int { return a.Start.Time().Compare(b.Start.Time()) }
	case SortDateDesc:
		cmp = func(a, b model.Event) int { return b.Start.Time().Compare(a.Start.Time()) }
	case SortCreatedDesc:
		cmp = func(a, b model.Event) int { return b.CreatedAt.Time().Compare(a.CreatedAt.Time()) }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortOption, opt)
	}

	sorted := slices.Clone(events)
	if sorted == nil {
		sorted = []model.Event{}
	}
	slices.SortStableFunc(sorted, cmp)
	return sorted, nil
}
