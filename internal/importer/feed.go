package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"techevents/internal/config"
	"techevents/internal/display"
	"techevents/internal/model"
	"techevents/internal/store"
)

const feedSummaryLen = 200

// FeedEventID derives a stable event ID for one occurrence, so re-importing a
// feed recognizes events it has already added.
func FeedEventID(feedID, uid, instanceKey string) string {
	sum := sha256.Sum256([]byte(feedID + "\x00" + uid + "\x00" + instanceKey))
	return "evt_ics_" + hex.EncodeToString(sum[:6])
}

// FromOccurrences converts expanded feed occurrences into events. Occurrences
// that do not make a valid event are skipped and reported.
func FromOccurrences(feed config.FeedConfig, occs []model.Occurrence, now time.Time) ([]model.Event, []error) {
	events := make([]model.Event, 0, len(occs))
	var errs []error

	for _, occ := range occs {
		ev, err := fromOccurrence(feed, occ, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s, uid %s at %s: %w", feed.ID, occ.UID, occ.InstanceKey, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errs
}

func fromOccurrence(feed config.FeedConfig, occ model.Occurrence, now time.Time) (model.Event, error) {
	title := strings.TrimSpace(occ.Summary)
	if title == "" {
		return model.Event{}, errors.New("occurrence has no summary")
	}

	eventURL := firstNonEmpty(occ.URL, feed.EventURL, feed.URL)

	tz := occ.TZID
	if tz == "" {
		tz = occ.Start.Location().String()
	}

	ev := model.Event{
		ID:            FeedEventID(feed.ID, occ.UID, occ.InstanceKey),
		Slug:          feedSlug(title, occ.Start),
		Title:         title,
		Source:        model.DetectSource(eventURL),
		EventURL:      eventURL,
		Start:         model.TimestampOf(occ.Start),
		Timezone:      tz,
		Tags:          cleanTags(append(append([]string{}, feed.Tags...), occ.Categories...)),
		Summary:       display.TruncateText(firstParagraph(occ.Description), feedSummaryLen),
		DescriptionMD: occ.Description,
		CreatedAt:     model.TimestampOf(now),
		UpdatedAt:     model.TimestampOf(now),
	}
	if occ.End.After(occ.Start) {
		end := model.TimestampOf(occ.End)
		ev.End = &end
	}
	if loc := strings.TrimSpace(occ.Location); loc != "" {
		ev.Venue = &model.Venue{Address: loc}
	}
	if name := firstNonEmpty(occ.OrganizerName, feed.Name); name != "" {
		ev.Organizer = &model.Organizer{Name: name}
	}

	if err := store.ValidateEvent(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// feedSlug names an occurrence by title, date and, for timed events, the
// start time, so same-day instances of one series stay distinct.
func feedSlug(title string, start time.Time) string {
	stamp := start.Format("2006-01-02")
	if start.Hour() != 0 || start.Minute() != 0 {
		stamp += " " + start.Format("1504")
	}
	return model.GenerateSlug(title + " " + stamp)
}

func firstParagraph(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n\n"); i >= 0 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
