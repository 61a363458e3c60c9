package query

import (
	"strings"
	"time"

	"techevents/internal/model"
)

// FilterState holds the narrowing criteria picked by a visitor. Zero values
// mean "no restriction" on that axis.
type FilterState struct {
	Search    string
	Tags      []string
	Platforms []model.Source

	// DateFrom and DateTo are calendar days, read in their own Location.
	DateFrom *time.Time
	DateTo   *time.Time
}

// IsEmpty reports whether f restricts nothing.
func (f FilterState) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Tags) == 0 && len(f.Platforms) == 0 &&
		f.DateFrom == nil && f.DateTo == nil
}

// Filter keeps the events that pass every active axis, in input order.
//
//   - Tags: any event tag equals any requested tag, ignoring case.
//   - Platforms: the event source is one of the requested platforms.
//   - Dates: with both bounds the start must lie in
//     [start of DateFrom, end of DateTo]; with one bound the start must be
//     strictly after the start of DateFrom or strictly before the end of DateTo.
//   - Search: the event must be among Search(events, f.Search), computed over
//     the whole input rather than the already narrowed set.
func Filter(events []model.Event, f FilterState) []model.Event {
	var tagSet map[string]struct{}
	if len(f.Tags) > 0 {
		tagSet = make(map[string]struct{}, len(f.Tags))
		for _, t := range f.Tags {
			tagSet[strings.ToLower(t)] = struct{}{}
		}
	}

	var platformSet map[model.Source]struct{}
	if len(f.Platforms) > 0 {
		platformSet = make(map[model.Source]struct{}, len(f.Platforms))
		for _, p := range f.Platforms {
			platformSet[p] = struct{}{}
		}
	}

	var searchIDs map[string]struct{}
	if strings.TrimSpace(f.Search) != "" {
		found := Search(events, f.Search)
		searchIDs = make(map[string]struct{}, len(found))
		for _, ev := range found {
			searchIDs[ev.ID] = struct{}{}
		}
	}

	inRange := dateRange(f.DateFrom, f.DateTo)

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if tagSet != nil && !hasAnyTag(ev, tagSet) {
			continue
		}
		if platformSet != nil {
			if _, ok := platformSet[ev.Source]; !ok {
				continue
			}
		}
		if !inRange(ev.Start.Time()) {
			continue
		}
		if searchIDs != nil {
			if _, ok := searchIDs[ev.ID]; !ok {
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

func hasAnyTag(ev model.Event, lowered map[string]struct{}) bool {
	for _, t := range ev.Tags {
		if _, ok := lowered[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// dateRange builds the start-time predicate for the given bounds.
func dateRange(from, to *time.Time) func(time.Time) bool {
	switch {
	case from != nil && to != nil:
		lo, hi := StartOfDay(*from), EndOfDay(*to)
		return func(t time.Time) bool { return !t.Before(lo) && !t.After(hi) }
	case from != nil:
		lo := StartOfDay(*from)
		return func(t time.Time) bool { return t.After(lo) }
	case to != nil:
		hi := EndOfDay(*to)
		return func(t time.Time) bool { return t.Before(hi) }
	default:
		return func(time.Time) bool { return true }
	}
}

// StartOfDay is midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last representable instant of t's calendar day in t's
// location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}
