package importer

import (
	"context"
	"fmt"
	"time"

	"techevents/internal/config"
	"techevents/internal/ics"
	appLog "techevents/internal/log"
	"techevents/internal/model"
)

// FeedImporter turns configured ICS feeds into events: fetch, parse, expand
// recurrences over [now, now+horizon], then convert.
type FeedImporter struct {
	fetcher *ics.Fetcher
	loc     *time.Location
	horizon int // days
}

func NewFeedImporter(fetcher *ics.Fetcher, loc *time.Location, horizonDays int) *FeedImporter {
	if horizonDays <= 0 {
		horizonDays = 90
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FeedImporter{fetcher: fetcher, loc: loc, horizon: horizonDays}
}

// Import processes every feed. A failing feed is reported and skipped; the
// others still contribute events.
func (fi *FeedImporter) Import(ctx context.Context, feeds []config.FeedConfig, now time.Time) ([]model.Event, []error) {
	var (
		events []model.Event
		errs   []error
	)
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		got, ferrs := fi.importFeed(ctx, feed, now)
		events = append(events, got...)
		errs = append(errs, ferrs...)
	}
	return events, errs
}

func (fi *FeedImporter) importFeed(ctx context.Context, feed config.FeedConfig, now time.Time) ([]model.Event, []error) {
	src := ics.Feed{ID: feed.ID, URL: feed.URL}

	res, err := fi.fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, []error{fmt.Errorf("feed %s: %w", feed.ID, err)}
	}

	parsed, err := ics.ParseICS(src, res.Body)
	if err != nil {
		return nil, []error{fmt.Errorf("feed %s: parse: %w", feed.ID, err)}
	}

	start := now.In(fi.loc)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   fi.loc,
		RangeStart: start,
		RangeEnd:   start.AddDate(0, 0, fi.horizon),
	})
	if err != nil {
		return nil, []error{fmt.Errorf("feed %s: expand: %w", feed.ID, err)}
	}
	if len(expanded.TruncatedEvents) > 0 {
		appLog.Warn("recurrence capped", "feed", feed.ID, "uids", len(expanded.TruncatedEvents))
	}

	events, errs := FromOccurrences(feed, expanded.Occurrences, now)
	appLog.Info("feed imported",
		"feed", feed.ID,
		"from_cache", res.FromCache,
		"occurrences", len(expanded.Occurrences),
		"events", len(events),
		"skipped", len(errs),
	)
	return events, errs
}
