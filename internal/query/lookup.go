package query

import (
	"slices"
	"strings"
	"time"

	"techevents/internal/model"
)

// FindBySlug returns the event with the given slug.
func FindBySlug(events []model.Event, slug string) (model.Event, error) {
	for _, ev := range events {
		if ev.Slug == slug {
			return ev, nil
		}
	}
	return model.Event{}, model.ErrEventNotFound
}

// FindByID returns the event with the given id.
func FindByID(events []model.Event, id string) (model.Event, error) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Event{}, model.ErrEventNotFound
}

// ByTag returns the events carrying tag, ignoring case.
func ByTag(events []model.Event, tag string) []model.Event {
	return Filter(events, FilterState{Tags: []string{tag}})
}

// ByPlatform returns the events published on src.
func ByPlatform(events []model.Event, src model.Source) []model.Event {
	return Filter(events, FilterState{Platforms: []model.Source{src}})
}

// AllTags returns every distinct tag (as stored) in byte order.
func AllTags(events []model.Event) []string {
	seen := make(map[string]struct{})
	for _, ev := range events {
		for _, t := range ev.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// TagCount is the number of events carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts counts tag occurrences, sorted by tag.
func TagCounts(events []model.Event) []TagCount {
	counts := make(map[string]int)
	for _, ev := range events {
		for _, t := range ev.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TagCount{Tag: t, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int { return strings.Compare(a.Tag, b.Tag) })
	return out
}

// TopTags returns the n most used tags, ties by tag name.
func TopTags(events []model.Event, n int) []TagCount {
	counts := TagCounts(events)
	slices.SortStableFunc(counts, func(a, b TagCount) int { return b.Count - a.Count })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Upcoming returns events starting after now, soonest first. A limit <= 0
// returns all of them.
func Upcoming(events []model.Event, now time.Time, limit int) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Start.Time().After(now) {
			out = append(out, ev)
		}
	}
	out, _ = Sort(out, SortDateAsc)
	return truncate(out, limit)
}

// Past returns events that started before now, most recent first. A
// limit <= 0 returns all of them.
func Past(events []model.Event, now time.Time, limit int) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Start.Time().Before(now) {
			out = append(out, ev)
		}
	}
	out, _ = Sort(out, SortDateDesc)
	return truncate(out, limit)
}

func truncate(events []model.Event, limit int) []model.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}
