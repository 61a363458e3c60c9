package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"techevents/internal/model"
)

// CSVColumns are the recognized header names. title, url and start are
// required; the rest may be omitted.
var CSVColumns = []string{
	"title", "url", "start", "end", "timezone", "tags", "summary", "description",
	"price", "rsvp_required", "organizer_name", "organizer_url", "image",
	"venue_name", "venue_address", "venue_city", "venue_lat", "venue_lng",
}

var requiredCSVColumns = []string{"title", "url", "start"}

// RowError is a failure tied to a spreadsheet row. Row counts the header as
// row 1, so the first record is row 2.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// CSVResult reports what a CSV import would add.
type CSVResult struct {
	Events  []model.Event
	Skipped []string
	Errors  []RowError
}

// FromCSV reads events from CSV with a header row. Rows whose slug already
// exists in existing, or earlier in the file, are skipped. Invalid rows are
// reported in Errors and do not stop the import.
func FromCSV(r io.Reader, existing []model.Event, now time.Time, newID IDFunc) (CSVResult, error) {
	res := CSVResult{Events: []model.Event{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, errors.New("csv: missing header row")
	}
	if err != nil {
		return res, fmt.Errorf("csv: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredCSVColumns {
		if _, ok := index[col]; !ok {
			return res, fmt.Errorf("csv: missing required column %q", col)
		}
	}

	slugs := make(map[string]bool, len(existing))
	for _, ev := range existing {
		slugs[ev.Slug] = true
	}

	for row := 2; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			continue
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		title := get("title")
		if slug := model.GenerateSlug(title); slug != "" && slugs[slug] {
			res.Skipped = append(res.Skipped, fmt.Sprintf("row %d: %s (duplicate slug)", row, title))
			continue
		}

		draft, err := draftFromRow(get)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			continue
		}

		ev, err := Build(draft, now, newID)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			continue
		}
		slugs[ev.Slug] = true
		res.Events = append(res.Events, ev)
	}

	return res, nil
}

func draftFromRow(get func(string) string) (Draft, error) {
	d := Draft{
		Title:         get("title"),
		URL:           get("url"),
		Start:         get("start"),
		End:           get("end"),
		Timezone:      get("timezone"),
		Tags:          SplitTags(get("tags")),
		Summary:       get("summary"),
		Description:   get("description"),
		Price:         get("price"),
		Image:         get("image"),
		OrganizerName: get("organizer_name"),
		OrganizerURL:  get("organizer_url"),
		VenueName:     get("venue_name"),
		VenueAddress:  get("venue_address"),
		VenueCity:     get("venue_city"),
	}

	switch strings.ToLower(get("rsvp_required")) {
	case "true", "1", "yes":
		d.RSVP = true
	}

	var err error
	if d.VenueLat, err = parseCoord(get("venue_lat")); err != nil {
		return d, fmt.Errorf("venue_lat: %w", err)
	}
	if d.VenueLng, err = parseCoord(get("venue_lng")); err != nil {
		return d, fmt.Errorf("venue_lng: %w", err)
	}
	return d, nil
}

func parseCoord(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
