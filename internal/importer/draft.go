// Package importer turns outside input (command-line drafts, CSV rows, ICS
// feed occurrences) into validated events and merges them into a collection.
package importer

import (
	"strings"
	"time"

	"techevents/internal/model"
	"techevents/internal/store"
)

// DefaultTimezone is used when a draft names no timezone.
const DefaultTimezone = "America/Los_Angeles"

// IDFunc produces new event IDs. model.GenerateID in production.
type IDFunc func() string

// Draft holds the fields a person supplies for a new event.
type Draft struct {
	Title    string
	URL      string
	Start    string
	End      string
	Timezone string
	Tags     []string

	Summary     string
	Description string
	Price       string
	RSVP        bool
	Image       string

	OrganizerName string
	OrganizerURL  string

	VenueName    string
	VenueAddress string
	VenueCity    string
	VenueLat     *float64
	VenueLng     *float64
}

// Build validates a draft and turns it into an event stamped with now. The
// slug comes from the title, the source from the URL host.
func Build(d Draft, now time.Time, newID IDFunc) (model.Event, error) {
	start, err := model.ParseTimestamp(d.Start)
	if err != nil {
		return model.Event{}, model.ValidationError{Index: -1, Field: "start", Message: err.Error()}
	}

	ev := model.Event{
		ID:            newID(),
		Slug:          model.GenerateSlug(d.Title),
		Title:         strings.TrimSpace(d.Title),
		Source:        model.SourceCustom,
		EventURL:      strings.TrimSpace(d.URL),
		Start:         start,
		Timezone:      d.Timezone,
		Image:         d.Image,
		Price:         d.Price,
		Tags:          cleanTags(d.Tags),
		Summary:       d.Summary,
		DescriptionMD: d.Description,
		CreatedAt:     model.TimestampOf(now),
		UpdatedAt:     model.TimestampOf(now),
	}
	if ev.EventURL != "" {
		ev.Source = model.DetectSource(ev.EventURL)
	}
	if ev.Timezone == "" {
		ev.Timezone = DefaultTimezone
	}
	if ev.DescriptionMD == "" {
		ev.DescriptionMD = d.Summary
	}
	if d.RSVP {
		rsvp := true
		ev.RSVPRequired = &rsvp
	}

	if d.End != "" {
		end, err := model.ParseTimestamp(d.End)
		if err != nil {
			return model.Event{}, model.ValidationError{Index: -1, Field: "end", Message: err.Error()}
		}
		ev.End = &end
	}

	if d.VenueName != "" || d.VenueAddress != "" || d.VenueCity != "" {
		ev.Venue = &model.Venue{
			Name:    d.VenueName,
			Address: d.VenueAddress,
			City:    d.VenueCity,
			Lat:     d.VenueLat,
			Lng:     d.VenueLng,
		}
	}
	if d.OrganizerName != "" || d.OrganizerURL != "" {
		ev.Organizer = &model.Organizer{Name: d.OrganizerName, URL: d.OrganizerURL}
	}

	if err := store.ValidateEvent(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Patch lists the fields to change on an existing event. Nil fields are left
// alone. ID, slug, source and creation time never change.
type Patch struct {
	Title       *string
	Start       *string
	End         *string
	Timezone    *string
	Tags        []string
	Summary     *string
	Description *string
	Price       *string
	RSVP        *bool
	Image       *string

	OrganizerName *string
	OrganizerURL  *string

	VenueName    *string
	VenueAddress *string
	VenueCity    *string
	VenueLat     *float64
	VenueLng     *float64
}

// Apply returns ev with p applied and UpdatedAt set to now. The result is
// validated; ev itself is not modified.
func (p Patch) Apply(ev model.Event, now time.Time) (model.Event, error) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&ev.Title, p.Title)
	setString(&ev.Timezone, p.Timezone)
	setString(&ev.Summary, p.Summary)
	setString(&ev.DescriptionMD, p.Description)
	setString(&ev.Price, p.Price)
	setString(&ev.Image, p.Image)

	if p.Start != nil {
		ts, err := model.ParseTimestamp(*p.Start)
		if err != nil {
			return model.Event{}, model.ValidationError{Index: -1, Field: "start", Message: err.Error()}
		}
		ev.Start = ts
	}
	if p.End != nil {
		ts, err := model.ParseTimestamp(*p.End)
		if err != nil {
			return model.Event{}, model.ValidationError{Index: -1, Field: "end", Message: err.Error()}
		}
		ev.End = &ts
	}
	if p.Tags != nil {
		ev.Tags = cleanTags(p.Tags)
	}
	if p.RSVP != nil {
		rsvp := *p.RSVP
		ev.RSVPRequired = &rsvp
	}

	if p.VenueName != nil || p.VenueAddress != nil || p.VenueCity != nil || p.VenueLat != nil || p.VenueLng != nil {
		var v model.Venue
		if ev.Venue != nil {
			v = *ev.Venue
		}
		setString(&v.Name, p.VenueName)
		setString(&v.Address, p.VenueAddress)
		setString(&v.City, p.VenueCity)
		if p.VenueLat != nil {
			v.Lat = p.VenueLat
		}
		if p.VenueLng != nil {
			v.Lng = p.VenueLng
		}
		ev.Venue = &v
	}

	if p.OrganizerName != nil || p.OrganizerURL != nil {
		var o model.Organizer
		if ev.Organizer != nil {
			o = *ev.Organizer
		}
		setString(&o.Name, p.OrganizerName)
		setString(&o.URL, p.OrganizerURL)
		ev.Organizer = &o
	}

	ev.UpdatedAt = model.TimestampOf(now)

	if err := store.ValidateEvent(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// SplitTags splits a comma-separated tag list.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return cleanTags(strings.Split(s, ","))
}

// cleanTags trims tags and drops empty and repeated ones, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
