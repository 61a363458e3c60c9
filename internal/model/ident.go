package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxSlugLength = 100

// GenerateSlug derives a URL-safe slug from a title: lowercase ASCII letters
// and digits, every other run of characters collapsed into a single dash.
func GenerateSlug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

// GenerateID returns a new event id of the form evt_<unix millis>_<7 chars>.
func GenerateID() string {
	return generateIDAt(time.Now())
}

func generateIDAt(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("evt_%d_%s", now.UnixMilli(), suffix)
}

// DetectSource guesses the platform from an event URL's host. Unparseable
// URLs are treated as custom.
func DetectSource(rawURL string) Source {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SourceCustom
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "lu.ma") || strings.Contains(host, "luma"):
		return SourceLuma
	case strings.Contains(host, "eventbrite"):
		return SourceEventbrite
	case strings.Contains(host, "meetup"):
		return SourceMeetup
	default:
		return SourceCustom
	}
}
