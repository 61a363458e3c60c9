package web

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appLog "techevents/internal/log"
	"techevents/internal/model"
	"techevents/internal/query"
)

const sitemapLastmodLayout = "2006-01-02T15:04:05.000Z07:00"

type urlset struct {
	XMLName xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// buildSitemap lists the home page, every event, every tag and every
// platform.
func buildSitemap(base string, events []model.Event, now time.Time) ([]byte, error) {
	stamp := now.UTC().Format(sitemapLastmodLayout)

	set := urlset{URLs: []sitemapURL{{Loc: base, LastMod: stamp, ChangeFreq: "daily", Priority: "1.0"}}}
	for _, ev := range events {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/events/" + url.PathEscape(ev.Slug),
			LastMod:    ev.UpdatedAt.String(),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, tag := range query.AllTags(events) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/tags/" + url.PathEscape(tag),
			LastMod:    stamp,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}
	for _, src := range model.AllSources() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/platform/" + string(src),
			LastMod:    stamp,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func buildRobots(base string) []byte {
	return fmt.Appendf(nil, `User-agent: *
Allow: /

Sitemap: %s/sitemap.xml

Crawl-delay: 1

Disallow: /api/
Allow: /api/og
Allow: /api/ics/
`, base)
}

func (s *Server) handleSitemap(w http.ResponseWriter, _ *http.Request) {
	body, err := buildSitemap(s.cfg.SiteURL, s.events.Events(), s.now())
	if err != nil {
		appLog.Error("sitemap encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=3600, s-maxage=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buildRobots(s.cfg.SiteURL))
}
