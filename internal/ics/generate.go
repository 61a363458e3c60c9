package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"techevents/internal/model"
)

// ExportOptions controls calendar file generation.
type ExportOptions struct {
	// OrganizerEmail is the mailto address placed on ORGANIZER.
	OrganizerEmail string
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// GenerateICS renders a single event as an iCalendar document.
func GenerateICS(ev model.Event, opts ExportOptions) (string, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendarFor("techevents")
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")

	vev := cal.AddEvent(ev.ID)
	vev.SetDtStampTime(now)
	vev.SetSummary(ev.Title)
	vev.SetDescription(ev.Summary + "\n\nMore info: " + ev.EventURL)
	vev.SetStartAt(ev.Start.Time())
	vev.SetEndAt(ev.EndTime())
	vev.SetURL(ev.EventURL)

	if loc := venueLocation(ev.Venue); loc != "" {
		vev.SetLocation(loc)
	}
	if name := ev.OrganizerName(); name != "" && opts.OrganizerEmail != "" {
		vev.SetOrganizer(opts.OrganizerEmail, ical.WithCN(name))
	}
	for _, tag := range ev.Tags {
		vev.AddCategory(tag)
	}
	vev.SetStatus(ical.ObjectStatusConfirmed)
	vev.SetTimeTransparency(ical.TransparencyOpaque)

	var b strings.Builder
	if err := cal.SerializeTo(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func venueLocation(v *model.Venue) string {
	if v == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Name, v.Address, v.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
