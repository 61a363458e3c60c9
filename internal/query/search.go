// Package query is the in-memory event query engine: fuzzy search,
// structured filtering, sorting and relatedness scoring.
//
// Every function is pure. Inputs are never modified and the returned slices
// are freshly allocated, so callers may share one loaded event collection
// across concurrent requests.
package query

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"techevents/internal/model"
)

// DefaultThreshold is the largest normalized edit distance (edits divided by
// query length) at which a field still counts as a match. 0 is an exact
// substring hit; 1 means nothing in common.
const DefaultThreshold = 0.3

// MaxPatternRunes bounds the normalized query. Longer queries are cut so a
// request cannot make scoring arbitrarily expensive.
const MaxPatternRunes = 64

// searchField is one weighted text source of an event.
type searchField struct {
	name   string
	weight float64
	values func(ev model.Event) []string
}

var searchFields = []searchField{
	{"title", 3, func(ev model.Event) []string { return []string{ev.Title} }},
	{"summary", 2, func(ev model.Event) []string { return []string{ev.Summary} }},
	{"tags", 2, func(ev model.Event) []string { return ev.Tags }},
	{"organizer.name", 1, func(ev model.Event) []string { return []string{ev.OrganizerName()} }},
	{"venue.city", 1, func(ev model.Event) []string { return []string{ev.City()} }},
	{"descriptionMd", 1, func(ev model.Event) []string { return []string{ev.DescriptionMD} }},
}

var totalSearchWeight = func() float64 {
	var w float64
	for _, f := range searchFields {
		w += f.weight
	}
	return w
}()

// Search returns the events that approximately match q, most relevant first.
// A blank query returns events unchanged.
func Search(events []model.Event, q string) []model.Event {
	return SearchWithThreshold(events, q, DefaultThreshold)
}

// SearchWithThreshold is Search with an explicit match threshold in [0, 1].
func SearchWithThreshold(events []model.Event, q string, threshold float64) []model.Event {
	pattern := searchPattern(q)
	if len(pattern) == 0 {
		return events
	}

	type hit struct {
		ev        model.Event
		relevance float64
	}
	hits := make([]hit, 0, len(events))
	for _, ev := range events {
		if rel, ok := scoreEvent(ev, pattern, threshold); ok {
			hits = append(hits, hit{ev: ev, relevance: rel})
		}
	}

	// Stable: equally relevant events keep their input order.
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.relevance > b.relevance:
			return -1
		case a.relevance < b.relevance:
			return 1
		default:
			return 0
		}
	})

	out := make([]model.Event, len(hits))
	for i, h := range hits {
		out[i] = h.ev
	}
	return out
}

func searchPattern(q string) []rune {
	pattern := []rune(normalizeText(q))
	if len(pattern) > MaxPatternRunes {
		pattern = []rune(strings.TrimSpace(string(pattern[:MaxPatternRunes])))
	}
	return pattern
}

// scoreEvent reports whether any field matches within threshold, and a
// relevance in (0, 1] that sums weight*(1-distance) over matching fields.
func scoreEvent(ev model.Event, pattern []rune, threshold float64) (float64, bool) {
	var relevance float64
	matched := false
	for _, f := range searchFields {
		d := bestDistance(pattern, f.values(ev), threshold)
		if d > threshold {
			continue
		}
		matched = true
		relevance += f.weight * (1 - d)
	}
	return relevance / totalSearchWeight, matched
}

// bestDistance is the smallest normalized distance of pattern against any of
// the values. Empty values never match. Distances above threshold are only
// known to be too large, not exact.
func bestDistance(pattern []rune, values []string, threshold float64) float64 {
	maxEdits := int(math.Floor(threshold*float64(len(pattern)) + 1e-9))
	best := 1.0
	for _, v := range values {
		text := []rune(normalizeText(v))
		if len(text) == 0 {
			continue
		}
		d := float64(boundedSubstringDistance(pattern, text, maxEdits)) / float64(len(pattern))
		if d < best {
			best = d
		}
		if best == 0 {
			break
		}
	}
	return best
}

// substringDistance is the minimum Levenshtein distance between pattern and
// any substring of text (Sellers' algorithm). Leading and trailing text is
// free, so "mchine" against "intro to machine learning" costs 1.
func substringDistance(pattern, text []rune) int {
	return boundedSubstringDistance(pattern, text, len(pattern))
}

// boundedSubstringDistance is substringDistance that gives up once every
// cell of a row exceeds maxEdits. Row minimums never decrease, so the
// result can no longer come in under the bound; len(pattern) is returned.
func boundedSubstringDistance(pattern, text []rune, maxEdits int) int {
	m := len(pattern)
	prev := make([]int, len(text)+1)
	cur := make([]int, len(text)+1)

	for i := 1; i <= m; i++ {
		cur[0] = i
		rowMin := i
		for j := 1; j <= len(text); j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > maxEdits {
			return m
		}
		prev, cur = cur, prev
	}

	best := m
	for _, d := range prev {
		if d < best {
			best = d
		}
	}
	return best
}

// normalizeText folds case, strips diacritics and collapses whitespace.
// Casers and transformers carry state, so each call builds its own.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}
