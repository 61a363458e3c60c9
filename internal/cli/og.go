package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"techevents/internal/capture"
	appLog "techevents/internal/log"
	"techevents/internal/query"
)

// OGReport describes a rendered social card.
type OGReport struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
	Out  string `json:"out"`
}

// NewOGCommand creates the og command.
func NewOGCommand(rootOpts *RootOptions) *cobra.Command {
	var out, base string

	cmd := &cobra.Command{
		Use:   "og <slug>",
		Short: "Render an event's social card to a PNG file",
		Long: `Render the social card of an event with headless Chrome and write it as
PNG. The card page is loaded from a running "techevents serve" at --base
(default: the configured listen address).`,
		Example: `  techevents og go-meetup --out go-meetup.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOG(rootOpts, cmd, args[0], base, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default <slug>.png)")
	cmd.Flags().StringVar(&base, "base", "", "base URL of a running server")
	return cmd
}

func runOG(opts *RootOptions, cmd *cobra.Command, slug, base, out string) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, _, events, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	if _, err := query.FindBySlug(events, slug); err != nil {
		return WrapExitError(ExitFailure, slug, err)
	}

	if base == "" {
		base = "http://" + cfg.Listen
	}
	if out == "" {
		out = slug + ".png"
	}

	r := opts.Renderer
	if r == nil {
		r = capture.NewChromeRenderer(capture.Options{
			Width:   cfg.OG.Width,
			Height:  cfg.OG.Height,
			Timeout: cfg.OGTimeout(),
		})
	}

	report := OGReport{Slug: slug, URL: strings.TrimRight(base, "/") + "/og/" + slug, Out: out}
	f.VerboseLog("Rendering %s", report.URL)
	if err := capture.CaptureToFile(cmd.Context(), r, report.URL, out); err != nil {
		return WrapExitError(ExitFailure, "render failed", err)
	}
	appLog.Info("og image written", "slug", slug, "out", out)

	return f.Result(report, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Wrote %s\n", out)
	})
}
