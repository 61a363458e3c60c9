package model

import "time"

// DefaultDuration is assumed for events without an explicit end, both for
// calendar export and for "add to calendar" links.
const DefaultDuration = 2 * time.Hour

// Source identifies the platform an event is published on.
type Source string

const (
	SourceLuma       Source = "luma"
	SourceEventbrite Source = "eventbrite"
	SourceMeetup     Source = "meetup"
	SourceCustom     Source = "custom"
)

// AllSources lists every known platform in display order.
func AllSources() []Source {
	return []Source{SourceLuma, SourceEventbrite, SourceMeetup, SourceCustom}
}

// ParseSource returns the Source named by s, if it is a known platform.
func ParseSource(s string) (Source, bool) {
	for _, src := range AllSources() {
		if string(src) == s {
			return src, true
		}
	}
	return "", false
}

// DisplayName is the human-facing platform name.
func (s Source) DisplayName() string {
	switch s {
	case SourceLuma:
		return "Luma"
	case SourceEventbrite:
		return "Eventbrite"
	case SourceMeetup:
		return "Meetup"
	case SourceCustom:
		return "Custom"
	default:
		return string(s)
	}
}

// Venue is where an event takes place. Every field is optional.
type Venue struct {
	Name    string   `json:"name,omitempty"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Organizer is the group or company running an event.
type Organizer struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty" validate:"omitempty,url"`
	Logo string `json:"logo,omitempty"`
}

// Event is a single curated tech event as stored in the events file.
//
// Events are treated as immutable values once loaded: query functions return
// new slices and never modify the records they are given.
type Event struct {
	ID       string `json:"id" validate:"required"`
	Slug     string `json:"slug" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Source   Source `json:"source" validate:"required,oneof=luma eventbrite meetup custom"`
	EventURL string `json:"eventUrl" validate:"required,url"`

	// Start and End are instants; Timezone only affects display.
	Start    Timestamp  `json:"start" validate:"required"`
	End      *Timestamp `json:"end,omitempty"`
	Timezone string     `json:"timezone" validate:"required"`

	Venue        *Venue     `json:"venue,omitempty"`
	Image        string     `json:"image,omitempty"`
	Price        string     `json:"price,omitempty"`
	RSVPRequired *bool      `json:"rsvpRequired,omitempty"`
	Organizer    *Organizer `json:"organizer,omitempty"`

	Tags          []string `json:"tags"`
	Summary       string   `json:"summary"`
	DescriptionMD string   `json:"descriptionMd"`

	CreatedAt Timestamp `json:"createdAt" validate:"required"`
	UpdatedAt Timestamp `json:"updatedAt" validate:"required"`
}

// OrganizerName returns the organizer name or "" when absent.
func (e Event) OrganizerName() string {
	if e.Organizer == nil {
		return ""
	}
	return e.Organizer.Name
}

// City returns the venue city or "" when absent.
func (e Event) City() string {
	if e.Venue == nil {
		return ""
	}
	return e.Venue.City
}

// EndTime returns the explicit end, or Start + DefaultDuration.
func (e Event) EndTime() time.Time {
	if e.End != nil && !e.End.IsZero() {
		return e.End.Time()
	}
	return e.Start.Time().Add(DefaultDuration)
}

// Occurrence represents a single concrete instance of an event read from an
// external ICS feed (after recurrence expansion and timezone normalization).
type Occurrence struct {
	FeedID string // config feed ID
	UID    string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, typically derived from the local start time.
	InstanceKey string

	Summary       string
	Description   string
	Location      string
	URL           string
	OrganizerName string
	Categories    []string
	TZID          string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
