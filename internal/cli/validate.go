package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"techevents/internal/model"
	"techevents/internal/query"
	"techevents/internal/store"
)

const (
	topTagsShown   = 10
	monthsShown    = 6
	pastEventsHint = 10
)

// ValidateReport is the outcome of validating the events file.
type ValidateReport struct {
	Valid  bool     `json:"valid"`
	File   string   `json:"file"`
	Errors []string `json:"errors,omitempty"`

	Stats      query.Stats      `json:"stats"`
	Past       int              `json:"past"`
	UniqueTags int              `json:"uniqueTags"`
	TopTags    []query.TagCount `json:"topTags"`
	Platforms  []PlatformCount  `json:"platforms"`
	Months     []MonthCount     `json:"months"`
}

type PlatformCount struct {
	Platform string  `json:"platform"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the events file and print statistics",
		Long: `Validate every event in the events file against the schema, check that
ids and slugs are unique, then summarize the collection: counts, top tags,
platform distribution and events per month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.DataFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewExitError(ExitCommandError, fmt.Sprintf("events file not found: %s", cfg.DataFile))
		}
		return WrapExitError(ExitCommandError, "failed to read events file", err)
	}
	f.VerboseLog("Read %d bytes from %s", len(data), cfg.DataFile)

	report := ValidateReport{File: cfg.DataFile}
	events, err := store.Decode(data)
	if err != nil {
		report.Errors = flattenErrors(err)
		_ = f.Result(report, func(w io.Writer) {
			fmt.Fprintf(w, "✗ %s failed validation:\n", cfg.DataFile)
			for _, e := range report.Errors {
				fmt.Fprintf(w, "  - %s\n", e)
			}
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))
	}

	now := opts.Now().In(cfg.Location())
	report.Valid = true
	report.Stats = query.ComputeStats(events, now, cfg.WeekStartDay())
	report.Past = len(query.Past(events, now, 0))
	report.UniqueTags = len(query.AllTags(events))
	report.TopTags = query.TopTags(events, topTagsShown)
	report.Platforms = platformCounts(events)
	report.Months = monthCounts(events, cfg.Location())

	return f.Result(report, func(w io.Writer) { writeValidateText(w, report) })
}

func writeValidateText(w io.Writer, r ValidateReport) {
	rule := strings.Repeat("─", 40)

	fmt.Fprintf(w, "✓ %s is valid\n\n", r.File)
	fmt.Fprintln(w, "Event statistics")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total events:     %d\n", r.Stats.Total)
	fmt.Fprintf(w, "Upcoming events:  %d\n", r.Stats.Upcoming)
	fmt.Fprintf(w, "This week:        %d\n", r.Stats.ThisWeek)
	fmt.Fprintf(w, "This month:       %d\n", r.Stats.ThisMonth)
	fmt.Fprintf(w, "Past events:      %d\n", r.Past)

	fmt.Fprintln(w, "\nTags")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Unique tags:      %d\n", r.UniqueTags)
	for _, tc := range r.TopTags {
		fmt.Fprintf(w, "  %-20s %d events\n", tc.Tag, tc.Count)
	}

	fmt.Fprintln(w, "\nPlatforms")
	fmt.Fprintln(w, rule)
	for _, pc := range r.Platforms {
		fmt.Fprintf(w, "  %-15s %d events (%.1f%%)\n", pc.Platform, pc.Count, pc.Percent)
	}

	fmt.Fprintln(w, "\nEvents by month")
	fmt.Fprintln(w, rule)
	for _, mc := range r.Months {
		fmt.Fprintf(w, "  %-15s %d events\n", mc.Month, mc.Count)
	}

	if r.Past > pastEventsHint {
		fmt.Fprintf(w, "\nHint: %d past events; consider archiving older ones.\n", r.Past)
	}
}

// flattenErrors splits joined errors into one message per problem.
func flattenErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, flattenErrors(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

// platformCounts lists platforms in display order, skipping empty ones.
func platformCounts(events []model.Event) []PlatformCount {
	out := make([]PlatformCount, 0)
	if len(events) == 0 {
		return out
	}
	for _, src := range model.AllSources() {
		n := len(query.ByPlatform(events, src))
		if n == 0 {
			continue
		}
		out = append(out, PlatformCount{
			Platform: src.DisplayName(),
			Count:    n,
			Percent:  float64(n) * 100 / float64(len(events)),
		})
	}
	return out
}

// monthCounts returns the latest monthsShown months that have events.
func monthCounts(events []model.Event, loc *time.Location) []MonthCount {
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Start.Time().In(loc).Format("2006-01")]++
	}
	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	slices.Sort(months)
	if len(months) > monthsShown {
		months = months[len(months)-monthsShown:]
	}
	out := make([]MonthCount, len(months))
	for i, m := range months {
		out[i] = MonthCount{Month: m, Count: counts[m]}
	}
	return out
}
