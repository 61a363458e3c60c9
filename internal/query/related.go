package query

import (
	"slices"

	"techevents/internal/model"
)

// DefaultRelatedLimit is used when Related is called with a non-positive
// limit.
const DefaultRelatedLimit = 4

// Relatedness weights.
const (
	sameOrganizerScore = 3
	sharedTagScore     = 2
	sameSourceScore    = 1
	sameCityScore      = 1
)

// RelatednessScore rates how close candidate is to ref:
//
//	+3 same organizer name (ref must have one)
//	+2 for every ref tag the candidate also carries (exact case)
//	+1 same source
//	+1 same venue city (ref must have one)
func RelatednessScore(ref, candidate model.Event) int {
	score := 0

	if name := ref.OrganizerName(); name != "" && candidate.OrganizerName() == name {
		score += sameOrganizerScore
	}

	if len(ref.Tags) > 0 && len(candidate.Tags) > 0 {
		have := make(map[string]struct{}, len(candidate.Tags))
		for _, t := range candidate.Tags {
			have[t] = struct{}{}
		}
		for _, t := range ref.Tags {
			if _, ok := have[t]; ok {
				score += sharedTagScore
			}
		}
	}

	if candidate.Source == ref.Source {
		score += sameSourceScore
	}

	if city := ref.City(); city != "" && candidate.City() == city {
		score += sameCityScore
	}

	return score
}

// Related returns up to limit events from events ranked by RelatednessScore
// against ref, highest first. ref itself (matched by id) is never returned.
// Zero-scoring events still fill remaining slots, in input order.
func Related(ref model.Event, events []model.Event, limit int) []model.Event {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	type scored struct {
		ev    model.Event
		score int
	}
	candidates := make([]scored, 0, len(events))
	for _, ev := range events {
		if ev.ID == ref.ID {
			continue
		}
		candidates = append(candidates, scored{ev: ev, score: RelatednessScore(ref, ev)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int { return b.score - a.score })

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]model.Event, len(candidates))
	for i, c := range candidates {
		out[i] = c.ev
	}
	return out
}
