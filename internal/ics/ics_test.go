package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techevents/internal/model"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n"))
}

var feedBody = crlf(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekly@example.com
DTSTAMP:20250501T000000Z
DTSTART:20250602T180000Z
DTEND:20250602T200000Z
SUMMARY:Go Study Group
URL:https://www.meetup.com/go/events/1
ORGANIZER;CN=Gophers:mailto:hi@example.com
CATEGORIES:Go,Community
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20250609T180000Z
END:VEVENT
BEGIN:VEVENT
UID:weekly@example.com
DTSTAMP:20250501T000000Z
RECURRENCE-ID:20250616T180000Z
DTSTART:20250616T190000Z
DTEND:20250616T210000Z
SUMMARY:Go Study Group (moved)
END:VEVENT
BEGIN:VEVENT
UID:allday@example.com
DTSTAMP:20250501T000000Z
DTSTART;VALUE=DATE:20250620
SUMMARY:Hack Day
LOCATION:Main Hall
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250501T000000Z
DTSTART:20250620T180000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`)

func TestParseICS(t *testing.T) {
	feed := Feed{ID: "gophers", URL: "https://example.com/feed.ics?token=secret"}
	events, err := ParseICS(feed, feedBody)
	require.NoError(t, err)
	require.Len(t, events, 3, "VEVENT without UID is skipped")

	base := events[0]
	assert.Equal(t, "weekly@example.com", base.UID)
	assert.Equal(t, "Gophers", base.OrganizerName)
	assert.Equal(t, "https://www.meetup.com/go/events/1", base.URL)
	assert.Equal(t, []string{"Go", "Community"}, base.Categories)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", base.RawRRule)
	require.Len(t, base.ExDates, 1)
	assert.True(t, base.ExDates[0].Equal(time.Date(2025, 6, 9, 18, 0, 0, 0, time.UTC)))
	assert.False(t, base.IsOverride)

	override := events[1]
	assert.True(t, override.IsOverride)
	require.NotNil(t, override.Recurrence)

	allDay := events[2]
	assert.True(t, allDay.AllDay)
	assert.Equal(t, allDay.Start.AddDate(0, 0, 1), allDay.End)
	assert.Equal(t, "Main Hall", allDay.Location)
}

func TestParseICSEmptyBody(t *testing.T) {
	_, err := ParseICS(Feed{ID: "x"}, nil)
	assert.EqualError(t, err, "empty ICS body")
}

func TestExpandOccurrences(t *testing.T) {
	events, err := ParseICS(Feed{ID: "gophers"}, feedBody)
	require.NoError(t, err)

	res, err := ExpandOccurrences(events[:2], ExpandConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)

	var keys, summaries []string
	for _, o := range res.Occurrences {
		keys = append(keys, o.InstanceKey)
		summaries = append(summaries, o.Summary)
		assert.Equal(t, "gophers", o.FeedID)
	}
	assert.Equal(t, []string{
		"2025-06-02T18:00:00Z",
		"2025-06-16T19:00:00Z",
		"2025-06-23T18:00:00Z",
	}, keys)
	assert.Equal(t, []string{"Go Study Group", "Go Study Group (moved)", "Go Study Group"}, summaries)
	assert.Equal(t, 2*time.Hour, res.Occurrences[2].End.Sub(res.Occurrences[2].Start))
	assert.Empty(t, res.TruncatedEvents)
}

func TestExpandOccurrencesCapAndRange(t *testing.T) {
	events, err := ParseICS(Feed{ID: "gophers"}, feedBody)
	require.NoError(t, err)

	res, err := ExpandOccurrences(events[:1], ExpandConfig{
		Location:               time.UTC,
		RangeStart:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 1,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 1)
	assert.Equal(t, []string{"weekly@example.com"}, res.TruncatedEvents)

	_, err = ExpandOccurrences(events, ExpandConfig{
		RangeStart: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestGenerateICS(t *testing.T) {
	ev := model.Event{
		ID:       "evt_1",
		Slug:     "ai-night",
		Title:    "AI Night",
		Source:   model.SourceLuma,
		EventURL: "https://lu.ma/ai-night",
		Start:    model.MustTimestamp("2025-06-10T18:00:00-07:00"),
		Timezone: "America/Los_Angeles",
		Venue:    &model.Venue{Name: "Hall", Address: "1 Main St", City: "San Francisco"},
		Organizer: &model.Organizer{
			Name: "Acme AI",
		},
		Tags:    []string{"AI", "Startups"},
		Summary: "Talks, demos; drinks",
	}

	out, err := GenerateICS(ev, ExportOptions{
		OrganizerEmail: "events@eudia.com",
		Now:            time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	vev := cal.Events()[0]

	get := func(p ical.ComponentProperty) string {
		prop := vev.GetProperty(p)
		require.NotNil(t, prop, string(p))
		return prop.Value
	}

	assert.Equal(t, "evt_1", get(ical.ComponentPropertyUniqueId))
	assert.Equal(t, "AI Night", get(ical.ComponentPropertySummary))
	assert.Equal(t, "Talks, demos; drinks\n\nMore info: https://lu.ma/ai-night", get(ical.ComponentPropertyDescription))
	assert.Equal(t, "20250611T010000Z", get(ical.ComponentPropertyDtStart))
	assert.Equal(t, "20250611T030000Z", get(ical.ComponentPropertyDtEnd))
	assert.Equal(t, "https://lu.ma/ai-night", get(ical.ComponentPropertyUrl))
	assert.Equal(t, "Hall 1 Main St San Francisco", get(ical.ComponentPropertyLocation))
	assert.Equal(t, "mailto:events@eudia.com", get(ical.ComponentPropertyOrganizer))
	assert.Equal(t, []string{"Acme AI"}, vev.GetProperty(ical.ComponentPropertyOrganizer).ICalParameters["CN"])
	assert.Equal(t, "CONFIRMED", get(ical.ComponentPropertyStatus))
	assert.Equal(t, "OPAQUE", get(ical.ComponentPropertyTransp))

	var cats []string
	for _, p := range vev.GetProperties(ical.ComponentPropertyCategories) {
		cats = append(cats, p.Value)
	}
	assert.Equal(t, []string{"AI", "Startups"}, cats)
}

func TestGenerateICSOptionalParts(t *testing.T) {
	end := model.MustTimestamp("2025-06-10T21:30:00Z")
	ev := model.Event{
		ID:       "evt_2",
		Title:    "Plain",
		EventURL: "https://example.com",
		Start:    model.MustTimestamp("2025-06-10T18:00:00Z"),
		End:      &end,
	}
	out, err := GenerateICS(ev, ExportOptions{OrganizerEmail: "events@eudia.com"})
	require.NoError(t, err)

	assert.Contains(t, out, "DTEND:20250610T213000Z")
	assert.NotContains(t, out, "ORGANIZER")
	assert.NotContains(t, out, "LOCATION")
	assert.NotContains(t, out, "CATEGORIES")
}

func TestFetcherConditionalRequests(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(feedBody)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), WithHTTPClient(srv.Client()))
	feed := Feed{ID: "gophers", URL: srv.URL + "/feed.ics"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, feed)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feedBody, first.Body)

	second, err := f.FetchOne(ctx, feed)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feedBody, second.Body)

	fail.Store(true)
	third, err := f.FetchOne(ctx, feed)
	require.NoError(t, err)
	assert.True(t, third.FromCache)

	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchAllReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), WithHTTPClient(srv.Client()))
	results, errs := f.FetchAll(context.Background(), []Feed{
		{ID: "missing", URL: srv.URL + "/missing.ics"},
		{ID: "empty"},
	})
	assert.Empty(t, results)
	require.Len(t, errs, 2)
	assert.ErrorContains(t, errs[0], "feed missing: 404 Not Found")
	assert.ErrorContains(t, errs[1], "feed URL is empty")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
