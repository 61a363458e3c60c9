package web

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"techevents/internal/display"
	appLog "techevents/internal/log"
	"techevents/internal/metrics"
	"techevents/internal/model"
)

const maxCardTags = 5

// cardTemplate is the 1200x630 page the renderer screenshots.
var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{margin:0;width:{{.Width}}px;height:{{.Height}}px;font-family:system-ui,sans-serif;color:#fff;
background:linear-gradient(to bottom right,#0a0a0a,#1a1a2e);display:flex;flex-direction:column}
header{display:flex;justify-content:space-between;align-items:center;padding:40px 60px;font-size:24px;font-weight:700}
.platform{background:{{.Color}};padding:8px 16px;border-radius:20px;font-size:18px}
main{flex:1;display:flex;flex-direction:column;align-items:center;justify-content:center;padding:0 60px;text-align:center}
h1{font-size:64px;line-height:1.2;margin:0 0 24px}
.meta{font-size:24px;color:#94a3b8;margin-bottom:32px}
.tags span{display:inline-block;background:#1e293b;color:#3b82f6;border:2px solid #334155;border-radius:20px;padding:8px 20px;margin:0 6px;font-size:18px}
p{font-size:22px;color:#cbd5e1}
footer{border-top:1px solid #334155;padding:20px;text-align:center;font-size:16px;color:#64748b}
</style>
</head>
<body data-ready="true">
<header><span>{{.SiteName}}</span><span class="platform">{{.Platform}}</span></header>
<main>
<h1>{{.Title}}</h1>
<div class="meta">{{.Date}}{{if .City}} &bull; {{.City}}{{end}}</div>
<div class="tags">{{range .Tags}}<span>{{.}}</span>{{end}}</div>
<p>{{.Summary}}</p>
</main>
<footer>{{.Host}}</footer>
</body>
</html>
`))

type cardData struct {
	Title    string
	SiteName string
	Platform string
	Color    template.CSS
	Date     string
	City     string
	Tags     []string
	Summary  string
	Host     string
	Width    int
	Height   int
}

func platformColor(src model.Source) template.CSS {
	switch src {
	case model.SourceLuma:
		return "#9333ea"
	case model.SourceEventbrite:
		return "#f97316"
	case model.SourceMeetup:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// handleOGCard renders the HTML social card for {slug}.
func (s *Server) handleOGCard(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, mux.Vars(r)["slug"])
	if !ok {
		return
	}

	tags := ev.Tags
	if len(tags) > maxCardTags {
		tags = tags[:maxCardTags]
	}
	host := s.cfg.SiteURL
	if u, err := url.Parse(s.cfg.SiteURL); err == nil && u.Host != "" {
		host = u.Host
	}

	data := cardData{
		Title:    ev.Title,
		SiteName: s.cfg.SiteName,
		Platform: ev.Source.DisplayName(),
		Color:    platformColor(ev.Source),
		Date:     display.FormatEventDateShort(ev.Start.Time(), ev.Timezone),
		City:     ev.City(),
		Tags:     tags,
		Summary:  display.TruncateText(ev.Summary, 200),
		Host:     host,
		Width:    s.cfg.OG.Width,
		Height:   s.cfg.OG.Height,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := cardTemplate.Execute(w, data); err != nil {
		appLog.Error("og card render failed", err, "slug", ev.Slug)
	}
}

// handleOGImage returns the PNG social card for ?slug=.
//
// Images are rendered by screenshotting /og/{slug} and kept in memory for
// cfg.OG.CacheTTLSeconds.
func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil || !s.cfg.OG.Enabled {
		writeError(w, http.StatusServiceUnavailable, "image rendering is disabled")
		return
	}

	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "Missing slug parameter")
		return
	}
	if _, ok := s.lookup(w, slug); !ok {
		return
	}

	now := s.now()
	ttl := s.cfg.OGCacheTTL()

	s.ogMu.RLock()
	entry, cached := s.ogCache[slug]
	s.ogMu.RUnlock()
	if cached && now.Sub(entry.renderedAt) < ttl {
		s.metrics.OGRendered(metrics.ResultCache)
		writePNG(w, entry.png)
		return
	}

	png, err := s.renderer.Render(r.Context(), s.renderBase+"/og/"+url.PathEscape(slug))
	if err != nil {
		s.metrics.OGRendered(metrics.ResultError)
		appLog.Error("og render failed", err, "slug", slug)
		writeError(w, http.StatusInternalServerError, "Failed to generate the image")
		return
	}
	s.metrics.OGRendered(metrics.ResultOK)

	s.ogMu.Lock()
	s.ogCache[slug] = ogEntry{png: png, renderedAt: now}
	s.ogMu.Unlock()

	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
