package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"techevents/internal/config"
	"techevents/internal/importer"
	appLog "techevents/internal/log"
	"techevents/internal/model"
)

// ImportReport summarizes an import run.
type ImportReport struct {
	DryRun  bool          `json:"dryRun"`
	Added   []model.Event `json:"added"`
	Skipped []string      `json:"skipped,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
}

func (r ImportReport) writeText(w io.Writer) {
	verb := "Added"
	if r.DryRun {
		verb = "Would add"
	}
	fmt.Fprintf(w, "%s %d event(s)\n", verb, len(r.Added))
	for _, ev := range r.Added {
		fmt.Fprintf(w, "  + %s (%s)\n", ev.Title, ev.Slug)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "Errors %d:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  ✗ %s\n", e)
		}
	}
}

// NewImportCSVCommand creates the import-csv command.
func NewImportCSVCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-csv <file>",
		Short: "Import events from a CSV spreadsheet",
		Long: `Import events from a CSV file with a header row.

Required columns: title, url, start. Rows whose slug already exists are
skipped. Invalid rows are reported and the command exits with status 1,
but valid rows are still saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCSV(rootOpts, cmd, args[0], dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without saving")
	return cmd
}

func runImportCSV(opts *RootOptions, cmd *cobra.Command, path string, dryRun bool) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, fileStore, events, err := opts.openStore(cmd)
	if err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open CSV", err)
	}
	defer in.Close()

	parsed, err := importer.FromCSV(in, events, opts.Now(), opts.NewID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read CSV", err)
	}
	f.VerboseLog("Parsed %d event(s) from %s", len(parsed.Events), path)

	merged := importer.Merge(events, parsed.Events)
	report := ImportReport{
		DryRun:  dryRun,
		Added:   merged.Added,
		Skipped: append(parsed.Skipped, merged.Skipped...),
	}
	for _, re := range parsed.Errors {
		report.Errors = append(report.Errors, re.Error())
	}

	if !dryRun && len(merged.Added) > 0 {
		if err := fileStore.Save(cmd.Context(), merged.Events); err != nil {
			return WrapExitError(ExitCommandError, "failed to save events", err)
		}
		appLog.Info("csv import saved", "file", path, "added", len(merged.Added))
	}

	if err := f.Result(report, report.writeText); err != nil {
		return err
	}
	if len(report.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d row(s) failed", len(report.Errors)))
	}
	return nil
}

// NewImportICSCommand creates the import-ics command.
func NewImportICSCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		feedID string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import-ics",
		Short: "Import events from the configured ICS feeds",
		Long: `Fetch the ICS feeds listed under import.feeds, expand recurring events
over the configured horizon and append events that are not already present.`,
		Example: `  techevents import-ics
  techevents import-ics --feed gophers --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportICS(rootOpts, cmd, feedID, dryRun)
		},
	}

	cmd.Flags().StringVar(&feedID, "feed", "", "import only the feed with this id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without saving")
	return cmd
}

func runImportICS(opts *RootOptions, cmd *cobra.Command, feedID string, dryRun bool) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, fileStore, events, err := opts.openStore(cmd)
	if err != nil {
		return err
	}

	feeds := cfg.Import.Feeds
	if feedID != "" {
		feed, ok := cfg.Feed(feedID)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown feed %q", feedID))
		}
		feeds = []config.FeedConfig{feed}
	}
	if len(feeds) == 0 {
		return NewExitError(ExitCommandError, "no feeds configured under import.feeds")
	}
	f.VerboseLog("Importing %d feed(s)", len(feeds))

	res, err := importFeeds(cmd.Context(), opts, cfg, fileStore, events, feeds, dryRun)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save events", err)
	}

	report := ImportReport{DryRun: dryRun, Added: res.Added, Skipped: res.Skipped}
	return f.Result(report, report.writeText)
}
