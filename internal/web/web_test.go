package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techevents/internal/config"
	"techevents/internal/metrics"
	"techevents/internal/model"
)

type staticEvents []model.Event

func (s staticEvents) Events() []model.Event { return s }

type countingRenderer struct {
	calls   atomic.Int32
	lastURL atomic.Value
	err     error
}

func (c *countingRenderer) Render(_ context.Context, url string) ([]byte, error) {
	c.calls.Add(1)
	c.lastURL.Store(url)
	if c.err != nil {
		return nil, c.err
	}
	return []byte("\x89PNG-card"), nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixtures() staticEvents {
	return staticEvents{
		{
			ID:        "1",
			Slug:      "go-meetup",
			Title:     "Go Meetup",
			Source:    model.SourceMeetup,
			EventURL:  "https://www.meetup.com/go/events/1",
			Start:     model.MustTimestamp("2025-06-10T01:00:00Z"),
			Timezone:  "America/Los_Angeles",
			Venue:     &model.Venue{Name: "Hall", City: "San Francisco"},
			Organizer: &model.Organizer{Name: "Gophers"},
			Tags:      []string{"Go", "Community"},
			Summary:   "Gophers unite",
			CreatedAt: model.MustTimestamp("2025-05-01T00:00:00.000Z"),
			UpdatedAt: model.MustTimestamp("2025-05-02T00:00:00.000Z"),
		},
		{
			ID:        "2",
			Slug:      "ai-night",
			Title:     "AI Night",
			Source:    model.SourceLuma,
			EventURL:  "https://lu.ma/ai-night",
			Start:     model.MustTimestamp("2025-06-20T02:00:00Z"),
			Timezone:  "America/Los_Angeles",
			Tags:      []string{"AI"},
			Summary:   "Demos and drinks",
			CreatedAt: model.MustTimestamp("2025-05-03T00:00:00.000Z"),
			UpdatedAt: model.MustTimestamp("2025-05-03T00:00:00.000Z"),
		},
		{
			ID:        "3",
			Slug:      "past-event",
			Title:     "Spring Go Social",
			Source:    model.SourceMeetup,
			EventURL:  "https://www.meetup.com/go/events/0",
			Start:     model.MustTimestamp("2025-05-01T01:00:00Z"),
			Timezone:  "America/Los_Angeles",
			Tags:      []string{"Go"},
			Summary:   "Last month",
			CreatedAt: model.MustTimestamp("2025-04-01T00:00:00.000Z"),
			UpdatedAt: model.MustTimestamp("2025-04-02T00:00:00.000Z"),
		},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SiteURL = "https://events.example.com"
	cfg.SiteName = "Bay Area Tech Events"
	return cfg
}

type testClock struct{ now atomic.Int64 }

func (c *testClock) Now() time.Time { return time.Unix(0, c.now.Load()).UTC() }

func (c *testClock) Set(t time.Time) { c.now.Store(t.UnixNano()) }

func (c *testClock) Add(d time.Duration) { c.Set(c.Now().Add(d)) }

func newTestServer(t *testing.T, r *countingRenderer) (*Server, *testClock) {
	t.Helper()
	clock := &testClock{}
	clock.Set(testNow)
	opts := Options{
		Config:     testConfig(),
		Events:     fixtures(),
		RenderBase: "http://render.local/",
		Metrics:    metrics.New(),
		Now:        clock.Now,
	}
	if r != nil {
		opts.Renderer = r
	}
	return NewServer(opts), clock
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type idOnly struct {
	ID string `json:"id"`
}

func ids(events []idOnly) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(t, s, "/api/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestEventsListing(t *testing.T) {
	s, _ := newTestServer(t, nil)

	type listing struct {
		Events []idOnly `json:"events"`
		Total  int      `json:"total"`
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"default date-asc", "", []string{"3", "1", "2"}},
		{"tag any case, date-desc", "?tags=go&sort=date-desc", []string{"1", "3"}},
		{"platform", "?platforms=luma", []string{"2"}},
		{"several platforms", "?platforms=luma,meetup&sort=created-desc", []string{"2", "1", "3"}},
		{"day in configured zone", "?from=2025-06-09&to=2025-06-09", []string{"1"}},
		{"from only", "?from=2025-06-10", []string{"2"}},
		{"search", "?q=ai%20night", []string{"2"}},
		{"no match", "?tags=rust", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/events"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			got := decode[listing](t, rec)
			assert.Equal(t, tt.want, ids(got.Events))
			assert.Equal(t, len(tt.want), got.Total)
		})
	}
}

func TestEventsBadRequests(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, q := range []string{"?from=June", "?to=2025-13-01", "?sort=popular", "?platforms=myspace"} {
		rec := get(t, s, "/api/events"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), `"error"`, q)
	}
}

func TestEventDetail(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/api/events/go-meetup")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]any](t, rec)
	assert.Equal(t, "go-meetup", got["slug"])
	assert.Equal(t, "Go Meetup", got["title"])
	assert.Equal(t, "https://events.example.com/events/go-meetup", got["shareUrl"])
	assert.Equal(t, "https://events.example.com/api/og?slug=go-meetup", got["ogImageUrl"])
	assert.Equal(t, "https://events.example.com/api/ics/go-meetup", got["icsUrl"])
	assert.Equal(t, "Jun 9, 2025 · 6:00 PM PDT", got["displayDate"])
	assert.Equal(t, "Free", got["displayPrice"])
	assert.Contains(t, got["googleCalendarUrl"], "https://calendar.google.com/calendar/render?")

	rec = get(t, s, "/api/events/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Event not found"}`, rec.Body.String())
}

func TestRelated(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/api/events/go-meetup/related")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"3", "2"}, ids(decode[[]idOnly](t, rec)))

	rec = get(t, s, "/api/events/go-meetup/related?limit=1")
	assert.Equal(t, []string{"3"}, ids(decode[[]idOnly](t, rec)))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/events/nope/related").Code)
}

func TestRelatedNonPositiveLimitUsesConfig(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.cfg.RelatedLimit = 1

	for _, target := range []string{
		"/api/events/go-meetup/related",
		"/api/events/go-meetup/related?limit=0",
		"/api/events/go-meetup/related?limit=-3",
	} {
		rec := get(t, s, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, []string{"3"}, ids(decode[[]idOnly](t, rec)), target)
	}
}

func TestTagsAndPlatforms(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/api/tags")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"tag":"AI","count":1},{"tag":"Community","count":1},{"tag":"Go","count":2}]`, rec.Body.String())

	type grouped struct {
		Name     string   `json:"name"`
		Label    string   `json:"label"`
		Upcoming []idOnly `json:"upcoming"`
		Past     []idOnly `json:"past"`
	}

	rec = get(t, s, "/api/tags/go")
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[grouped](t, rec)
	assert.Equal(t, []string{"1"}, ids(g.Upcoming))
	assert.Equal(t, []string{"3"}, ids(g.Past))

	rec = get(t, s, "/api/platforms/meetup")
	require.Equal(t, http.StatusOK, rec.Code)
	g = decode[grouped](t, rec)
	assert.Equal(t, "Meetup", g.Label)
	assert.Equal(t, []string{"1"}, ids(g.Upcoming))
	assert.Equal(t, []string{"3"}, ids(g.Past))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/platforms/myspace").Code)
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"upcoming":2,"thisWeek":0,"thisMonth":2}`, rec.Body.String())
}

func TestICSDownload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/api/ics/go-meetup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="go-meetup.ics"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:Go Meetup")
	assert.Contains(t, body, "CN=Gophers")

	rec = get(t, s, "/api/ics/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Event not found"}`, rec.Body.String())
}

func TestOGImage(t *testing.T) {
	renderer := &countingRenderer{}
	s, clock := newTestServer(t, renderer)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/og").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/og?slug=nope").Code)
	assert.Zero(t, renderer.calls.Load())

	rec := get(t, s, "/api/og?slug=go-meetup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG-card", rec.Body.String())
	assert.Equal(t, "http://render.local/og/go-meetup", renderer.lastURL.Load())

	get(t, s, "/api/og?slug=go-meetup")
	assert.Equal(t, int32(1), renderer.calls.Load(), "served from cache")

	clock.Add(2 * time.Hour)
	get(t, s, "/api/og?slug=go-meetup")
	assert.Equal(t, int32(2), renderer.calls.Load(), "re-rendered after TTL")
}

func TestOGImageFailures(t *testing.T) {
	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/og?slug=go-meetup").Code)

	s, _ = newTestServer(t, &countingRenderer{err: errors.New("no chrome")})
	rec := get(t, s, "/api/og?slug=go-meetup")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	s, _ = newTestServer(t, &countingRenderer{})
	s.cfg.OG.Enabled = false
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/og?slug=go-meetup").Code)
}

func TestOGCard(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/og/go-meetup")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	// The renderer waits for the ready marker to be visible, so it must sit
	// on an element that generates a box.
	assert.Contains(t, body, `<body data-ready="true">`)
	assert.NotContains(t, body, "display:contents")
	assert.Equal(t, 1, strings.Count(body, "data-ready"))
	assert.Contains(t, body, "<h1>Go Meetup</h1>")
	assert.Contains(t, body, "Jun 9 · 6:00 PM")
	assert.Contains(t, body, "San Francisco")
	assert.Contains(t, body, "<footer>events.example.com</footer>")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/og/nope").Code)
}

func TestSitemapAndRobots(t *testing.T) {
	s, _ := newTestServer(t, nil)
	g := goldie.New(t)

	rec := get(t, s, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	g.Assert(t, "sitemap", rec.Body.Bytes())

	rec = get(t, s, "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	g.Assert(t, "robots", rec.Body.Bytes())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	get(t, s, "/health")
	get(t, s, "/api/events/nope")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `techevents_http_requests_total{code="200",route="/health"} 1`)
	assert.Contains(t, string(body), `techevents_http_requests_total{code="404",route="/api/events/{slug}"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Listen = "127.0.0.1:0"
	s := NewServer(Options{Config: cfg, Events: fixtures()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
