package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"techevents/internal/model"
)

func TestSearchBlankQueryIsIdentity(t *testing.T) {
	events := []model.Event{
		ev("1", "2025-03-01", []string{"AI"}, model.SourceLuma),
		ev("2", "2025-02-01", []string{"Robotics"}, model.SourceMeetup),
	}
	assert.Equal(t, events, Search(events, ""))
	assert.Equal(t, events, Search(events, "   \t"))
}

func TestSearchToleratesTypos(t *testing.T) {
	events := []model.Event{
		ev("1", "2025-03-01", nil, model.SourceLuma, withTitle("Intro to Machine Learning")),
		ev("2", "2025-03-02", nil, model.SourceLuma, withTitle("Kubernetes Office Hours")),
	}

	assert.Equal(t, []string{"1"}, ids(Search(events, "machne lerning")))
	assert.Equal(t, []string{"2"}, ids(Search(events, "KUBERNETES")))
}

func TestSearchRejectsDissimilarText(t *testing.T) {
	events := []model.Event{
		ev("1", "2025-03-01", []string{"AI"}, model.SourceLuma,
			withTitle("AI Agents Hackathon"),
			withSummary("Build agents"),
			withDescription("Hack on LLM agents all weekend"),
			withOrganizer("Acme"),
			withCity("San Francisco")),
	}
	assert.Empty(t, Search(events, "quantum biology"))
}

func TestSearchIgnoresDiacriticsAndCase(t *testing.T) {
	events := []model.Event{
		ev("1", "2025-03-01", nil, model.SourceCustom, withTitle("Café Meetup")),
	}
	assert.Equal(t, []string{"1"}, ids(Search(events, "CAFE")))
}

func TestSearchMatchesEveryWeightedField(t *testing.T) {
	events := []model.Event{
		ev("title", "2025-03-01", nil, model.SourceLuma, withTitle("Observability Night")),
		ev("summary", "2025-03-01", nil, model.SourceLuma, withSummary("all about observability")),
		ev("tags", "2025-03-01", []string{"Observability"}, model.SourceLuma),
		ev("org", "2025-03-01", nil, model.SourceLuma, withOrganizer("Observability Guild")),
		ev("city", "2025-03-01", nil, model.SourceLuma, withCity("Observability City")),
		ev("desc", "2025-03-01", nil, model.SourceLuma, withDescription("deep dive on observability")),
		ev("none", "2025-03-01", nil, model.SourceLuma, withTitle("Pottery")),
	}
	got := ids(Search(events, "observability"))
	assert.ElementsMatch(t, []string{"title", "summary", "tags", "org", "city", "desc"}, got)
	// Heavier fields rank first; equal weights keep input order.
	assert.Equal(t, []string{"title", "summary", "tags", "org", "city", "desc"}, got)
}

func TestSearchMostSimilarFirstAndStable(t *testing.T) {
	events := []model.Event{
		ev("desc-only", "2025-03-01", nil, model.SourceLuma,
			withTitle("Cloud Night"), withDescription("we talk rust")),
		ev("title-a", "2025-03-01", nil, model.SourceLuma, withTitle("Rust Meetup")),
		ev("title-b", "2025-03-01", nil, model.SourceLuma, withTitle("Rust Meetup")),
	}
	assert.Equal(t, []string{"title-a", "title-b", "desc-only"}, ids(Search(events, "rust")))
}

func TestSearchDoesNotMutateInput(t *testing.T) {
	events := []model.Event{
		ev("1", "2025-03-01", nil, model.SourceLuma, withTitle("Go Night")),
		ev("2", "2025-03-01", nil, model.SourceLuma, withTitle("Go Workshop Go")),
	}
	before := append([]model.Event(nil), events...)
	_ = Search(events, "go")
	assert.Equal(t, before, events)
}

func TestSubstringDistance(t *testing.T) {
	tests := []struct {
		pattern, text string
		want          int
	}{
		{"abc", "xxabcxx", 0},
		{"abd", "xxabcxx", 1},
		{"mchine", "intro to machine learning", 1},
		{"abc", "a", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, substringDistance([]rune(tt.pattern), []rune(tt.text)), tt.pattern+"/"+tt.text)
	}
}

func TestBoundedSubstringDistance(t *testing.T) {
	assert.Equal(t, 1, boundedSubstringDistance([]rune("abd"), []rune("xxabcxx"), 1))
	assert.Equal(t, 0, boundedSubstringDistance([]rune("abc"), []rune("xxabcxx"), 0))
	assert.Equal(t, 3, boundedSubstringDistance([]rune("xyz"), []rune("abcabc"), 0), "gives up with len(pattern)")
	assert.Equal(t, 5, boundedSubstringDistance([]rune("qqqqq"), []rune("machine"), 1))
}

func TestSearchPatternIsCapped(t *testing.T) {
	long := strings.Repeat("zq", 1000)
	assert.Len(t, searchPattern(long), MaxPatternRunes)
	assert.Equal(t, []rune("go meetup"), searchPattern("  Go   MEETUP "))

	// A cut that lands on a space does not leave it dangling.
	spaced := strings.Repeat("a", MaxPatternRunes-1) + " tail"
	assert.Len(t, searchPattern(spaced), MaxPatternRunes-1)
}

func TestSearchLongQueryOverLongText(t *testing.T) {
	desc := strings.Repeat("lorem ipsum dolor sit amet ", 150)
	events := make([]model.Event, 0, 100)
	for i := 0; i < 100; i++ {
		events = append(events, ev(fmt.Sprint(i), "2025-03-01", nil, model.SourceLuma, withDescription(desc)))
	}
	assert.Empty(t, Search(events, strings.Repeat("zq", 1000)))

	// A long query still finds text matching its leading runes.
	events[42].Title = strings.Repeat("zq", 40)
	assert.Equal(t, []string{"42"}, ids(Search(events, strings.Repeat("zq", 1000))))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "sao paulo meetup", normalizeText("  São   PAULO\tMeetup "))
	assert.Equal(t, "", normalizeText(""))
}
