package query

import (
	"time"

	"techevents/internal/model"
)

// ev builds a minimal event; opts tweak it further.
func ev(id, start string, tags []string, src model.Source, opts ...func(*model.Event)) model.Event {
	e := model.Event{
		ID:        id,
		Slug:      "event-" + id,
		Title:     "Event " + id,
		Source:    src,
		EventURL:  "https://example.com/" + id,
		Timezone:  "America/Los_Angeles",
		Tags:      tags,
		CreatedAt: model.MustTimestamp("2024-12-01T10:00:00Z"),
		UpdatedAt: model.MustTimestamp("2024-12-01T10:00:00Z"),
	}
	if start != "" {
		e.Start = model.MustTimestamp(start)
	}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func withTitle(s string) func(*model.Event) { return func(e *model.Event) { e.Title = s } }

func withDescription(s string) func(*model.Event) { return func(e *model.Event) { e.DescriptionMD = s } }

func withSummary(s string) func(*model.Event) { return func(e *model.Event) { e.Summary = s } }

func withOrganizer(name string) func(*model.Event) {
	return func(e *model.Event) { e.Organizer = &model.Organizer{Name: name} }
}

func withCity(city string) func(*model.Event) {
	return func(e *model.Event) { e.Venue = &model.Venue{City: city} }
}

func withCreated(s string) func(*model.Event) {
	return func(e *model.Event) { e.CreatedAt = model.MustTimestamp(s) }
}

func withStartTime(t time.Time) func(*model.Event) {
	return func(e *model.Event) { e.Start = model.TimestampOf(t) }
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
