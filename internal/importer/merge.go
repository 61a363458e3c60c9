package importer

import (
	"fmt"

	"techevents/internal/model"
)

// MergeResult is the outcome of adding events to a collection.
type MergeResult struct {
	// Events is existing followed by Added, ready to save.
	Events  []model.Event
	Added   []model.Event
	Skipped []string
}

// Merge appends incoming events whose id and slug are both new. Existing
// records are never replaced.
func Merge(existing, incoming []model.Event) MergeResult {
	ids := make(map[string]bool, len(existing)+len(incoming))
	slugs := make(map[string]bool, len(existing)+len(incoming))
	for _, ev := range existing {
		ids[ev.ID] = true
		slugs[ev.Slug] = true
	}

	res := MergeResult{Added: []model.Event{}}
	for _, ev := range incoming {
		switch {
		case ids[ev.ID]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (duplicate id %s)", ev.Title, ev.ID))
			continue
		case slugs[ev.Slug]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (duplicate slug %s)", ev.Title, ev.Slug))
			continue
		}
		ids[ev.ID] = true
		slugs[ev.Slug] = true
		res.Added = append(res.Added, ev)
	}

	res.Events = make([]model.Event, 0, len(existing)+len(res.Added))
	res.Events = append(res.Events, existing...)
	res.Events = append(res.Events, res.Added...)
	return res
}
