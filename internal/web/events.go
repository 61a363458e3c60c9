package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"techevents/internal/display"
	"techevents/internal/ics"
	appLog "techevents/internal/log"
	"techevents/internal/model"
	"techevents/internal/query"
)

const dateParamLayout = "2006-01-02"

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events []model.Event `json:"events"`
	Total  int           `json:"total"`
}

// eventDetail is an event plus the links a detail page needs.
type eventDetail struct {
	model.Event
	DisplayDate       string `json:"displayDate"`
	DisplayPrice      string `json:"displayPrice"`
	ShareURL          string `json:"shareUrl"`
	OGImageURL        string `json:"ogImageUrl"`
	ICSURL            string `json:"icsUrl"`
	GoogleCalendarURL string `json:"googleCalendarUrl"`
}

// groupedResponse is used by the tag and platform listings.
type groupedResponse struct {
	Name     string        `json:"name"`
	Label    string        `json:"label,omitempty"`
	Upcoming []model.Event `json:"upcoming"`
	Past     []model.Event `json:"past"`
}

// handleEvents filters and sorts the collection.
//
// GET /api/events?q=&tags=a,b&platforms=luma,meetup&from=2025-06-01&to=2025-06-30&sort=date-desc
//   - q:         fuzzy search text
//   - tags:      any of, case-insensitive
//   - platforms: any of
//   - from/to:   calendar days in the configured timezone
//   - sort:      date-asc (default), date-desc, created-desc
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	state := query.FilterState{
		Search: q.Get("q"),
		Tags:   splitList(q.Get("tags")),
	}

	for _, name := range splitList(q.Get("platforms")) {
		src, ok := model.ParseSource(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown platform: "+name)
			return
		}
		state.Platforms = append(state.Platforms, src)
	}

	loc := s.cfg.Location()
	var err error
	if state.DateFrom, err = parseDateParam(q.Get("from"), loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		return
	}
	if state.DateTo, err = parseDateParam(q.Get("to"), loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		return
	}

	opt, err := query.ParseSortOption(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filtered := query.Filter(s.events.Events(), state)
	sorted, err := query.Sort(filtered, opt)
	if err != nil {
		appLog.Error("api events: sort failed", err, "sort", string(opt))
		writeError(w, http.StatusInternalServerError, "failed to sort events")
		return
	}

	appLog.Debug("api events request",
		"q", state.Search,
		"tags", len(state.Tags),
		"platforms", len(state.Platforms),
		"sort", string(opt),
		"matched", len(sorted),
	)

	writeJSON(w, http.StatusOK, eventsResponse{Events: sorted, Total: len(sorted)})
}

// parseDateParam returns nil for an empty value.
func parseDateParam(v string, loc *time.Location) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateParamLayout, v, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lookup writes a 404 and returns false when slug is unknown.
func (s *Server) lookup(w http.ResponseWriter, slug string) (model.Event, bool) {
	ev, err := query.FindBySlug(s.events.Events(), slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "Event not found")
		return model.Event{}, false
	}
	return ev, true
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, mux.Vars(r)["slug"])
	if !ok {
		return
	}

	base := s.cfg.SiteURL
	writeJSON(w, http.StatusOK, eventDetail{
		Event:             ev,
		DisplayDate:       display.FormatEventDate(ev.Start.Time(), ev.Timezone),
		DisplayPrice:      display.FormatPrice(ev.Price),
		ShareURL:          display.ShareURL(base, ev.Slug),
		OGImageURL:        display.OGImageURL(base, ev.Slug),
		ICSURL:            base + "/api/ics/" + ev.Slug,
		GoogleCalendarURL: display.GoogleCalendarURL(ev),
	})
}

// handleRelated returns events similar to {slug}.
//
// GET /api/events/{slug}/related?limit=4
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, mux.Vars(r)["slug"])
	if !ok {
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), s.cfg.RelatedLimit)
	if limit <= 0 {
		limit = s.cfg.RelatedLimit
	}
	writeJSON(w, http.StatusOK, query.Related(ev, s.events.Events(), limit))
}

func (s *Server) handleTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.TagCounts(s.events.Events()))
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	writeJSON(w, http.StatusOK, s.grouped(tag, "", query.ByTag(s.events.Events(), tag)))
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	src, ok := model.ParseSource(mux.Vars(r)["name"])
	if !ok {
		writeError(w, http.StatusNotFound, "Platform not found")
		return
	}
	writeJSON(w, http.StatusOK, s.grouped(string(src), src.DisplayName(), query.ByPlatform(s.events.Events(), src)))
}

// grouped splits events into upcoming (soonest first) and past (most recent
// first).
func (s *Server) grouped(name, label string, events []model.Event) groupedResponse {
	now := s.now()
	return groupedResponse{
		Name:     name,
		Label:    label,
		Upcoming: query.Upcoming(events, now, 0),
		Past:     query.Past(events, now, 0),
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	now := s.now().In(s.cfg.Location())
	writeJSON(w, http.StatusOK, query.ComputeStats(s.events.Events(), now, s.cfg.WeekStartDay()))
}

// handleICS serves a single-event calendar file.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, mux.Vars(r)["slug"])
	if !ok {
		return
	}

	body, err := ics.GenerateICS(ev, ics.ExportOptions{
		OrganizerEmail: s.cfg.OrganizerEmail,
		Now:            s.now(),
	})
	if err != nil {
		appLog.Error("ics generation failed", err, "slug", ev.Slug)
		writeError(w, http.StatusInternalServerError, "Failed to generate ICS file")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ev.Slug+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
