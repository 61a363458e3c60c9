// Package display formats events for people: dates in the event's own zone,
// prices, share links and "add to calendar" URLs.
package display

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"techevents/internal/model"
)

const (
	longLayout  = "Jan 2, 2006 · 3:04 PM MST"
	shortLayout = "Jan 2 · 3:04 PM"

	// Google Calendar wants UTC "basic" ISO-8601 without fractional seconds.
	gcalLayout = "20060102T150405Z"
)

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatEventDate renders t in the IANA zone tz, e.g.
// "Jun 10, 2025 · 6:00 PM PDT". Unknown zones fall back to UTC.
func FormatEventDate(t time.Time, tz string) string {
	return t.In(location(tz)).Format(longLayout)
}

// FormatEventDateShort is FormatEventDate without year or zone.
func FormatEventDateShort(t time.Time, tz string) string {
	return t.In(location(tz)).Format(shortLayout)
}

// FormatPrice returns "Free" for empty or free prices.
func FormatPrice(price string) string {
	if price == "" || strings.EqualFold(price, "free") {
		return "Free"
	}
	return price
}

// TruncateText shortens s to at most maxLen runes, ending in "...".
func TruncateText(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", max(maxLen, 0))
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// ShareURL is the public page of an event. An empty base yields a
// site-relative path.
func ShareURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/events/" + url.PathEscape(slug)
}

// OGImageURL is the social card image of an event.
func OGImageURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/api/og?slug=" + url.QueryEscape(slug)
}

// GoogleCalendarURL builds a "create event" link prefilled with ev.
func GoogleCalendarURL(ev model.Event) string {
	dates := ev.Start.Time().UTC().Format(gcalLayout) + "/" + ev.EndTime().UTC().Format(gcalLayout)

	var loc string
	if ev.Venue != nil {
		loc = strings.TrimSpace(ev.Venue.Name + " " + ev.Venue.Address)
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Title)
	q.Set("dates", dates)
	q.Set("details", ev.Summary+"\n\nMore info: "+ev.EventURL)
	q.Set("location", loc)

	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
