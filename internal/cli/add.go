package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"techevents/internal/importer"
	appLog "techevents/internal/log"
	"techevents/internal/model"
	"techevents/internal/query"
)

// eventFlags binds the editable event fields to command flags.
type eventFlags struct {
	title, url, start, end, timezone, tags string
	summary, description, price, image     string
	organizerName, organizerURL            string
	venueName, venueAddress, venueCity     string
	venueLat, venueLng                     float64
	rsvp                                   bool
}

func (f *eventFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "event title")
	fs.StringVar(&f.url, "url", "", "event page URL (the platform is detected from it)")
	fs.StringVar(&f.start, "start", "", "start date/time (ISO 8601)")
	fs.StringVar(&f.end, "end", "", "end date/time (ISO 8601)")
	fs.StringVar(&f.timezone, "timezone", "", "IANA timezone (default "+importer.DefaultTimezone+")")
	fs.StringVar(&f.tags, "tags", "", "comma-separated tags")
	fs.StringVar(&f.summary, "summary", "", "short summary")
	fs.StringVar(&f.description, "description", "", "description (Markdown)")
	fs.StringVar(&f.price, "price", "", "price, e.g. Free or $20")
	fs.StringVar(&f.image, "image", "", "image URL")
	fs.BoolVar(&f.rsvp, "rsvp", false, "RSVP required")
	fs.StringVar(&f.organizerName, "organizer-name", "", "organizer name")
	fs.StringVar(&f.organizerURL, "organizer-url", "", "organizer URL")
	fs.StringVar(&f.venueName, "venue-name", "", "venue name")
	fs.StringVar(&f.venueAddress, "venue-address", "", "venue street address")
	fs.StringVar(&f.venueCity, "venue-city", "", "venue city")
	fs.Float64Var(&f.venueLat, "venue-lat", 0, "venue latitude")
	fs.Float64Var(&f.venueLng, "venue-lng", 0, "venue longitude")
}

func (f *eventFlags) draft(fs *pflag.FlagSet) importer.Draft {
	d := importer.Draft{
		Title:         f.title,
		URL:           f.url,
		Start:         f.start,
		End:           f.end,
		Timezone:      f.timezone,
		Tags:          importer.SplitTags(f.tags),
		Summary:       f.summary,
		Description:   f.description,
		Price:         f.price,
		RSVP:          f.rsvp,
		Image:         f.image,
		OrganizerName: f.organizerName,
		OrganizerURL:  f.organizerURL,
		VenueName:     f.venueName,
		VenueAddress:  f.venueAddress,
		VenueCity:     f.venueCity,
	}
	if fs.Changed("venue-lat") {
		d.VenueLat = &f.venueLat
	}
	if fs.Changed("venue-lng") {
		d.VenueLng = &f.venueLng
	}
	return d
}

// patch only carries the flags that were given on the command line.
func (f *eventFlags) patch(fs *pflag.FlagSet) importer.Patch {
	str := func(name string, v *string) *string {
		if fs.Changed(name) {
			return v
		}
		return nil
	}

	p := importer.Patch{
		Title:         str("title", &f.title),
		Start:         str("start", &f.start),
		End:           str("end", &f.end),
		Timezone:      str("timezone", &f.timezone),
		Summary:       str("summary", &f.summary),
		Description:   str("description", &f.description),
		Price:         str("price", &f.price),
		Image:         str("image", &f.image),
		OrganizerName: str("organizer-name", &f.organizerName),
		OrganizerURL:  str("organizer-url", &f.organizerURL),
		VenueName:     str("venue-name", &f.venueName),
		VenueAddress:  str("venue-address", &f.venueAddress),
		VenueCity:     str("venue-city", &f.venueCity),
	}
	if fs.Changed("tags") {
		p.Tags = importer.SplitTags(f.tags)
	}
	if fs.Changed("rsvp") {
		p.RSVP = &f.rsvp
	}
	if fs.Changed("venue-lat") {
		p.VenueLat = &f.venueLat
	}
	if fs.Changed("venue-lng") {
		p.VenueLng = &f.venueLng
	}
	return p
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event to the events file",
		Example: `  techevents add --title "Go Meetup" --url https://www.meetup.com/go/events/1 \
    --start 2025-06-10T18:00:00-07:00 --tags "Go,Community" --venue-city "San Francisco"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, cmd, flags.draft(cmd.Flags()))
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runAdd(opts *RootOptions, cmd *cobra.Command, d importer.Draft) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, fileStore, events, err := opts.openStore(cmd)
	if err != nil {
		return err
	}

	ev, err := importer.Build(d, opts.Now(), opts.NewID)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid event", err)
	}

	res := importer.Merge(events, []model.Event{ev})
	if len(res.Added) == 0 {
		return NewExitError(ExitFailure, "event not added: "+res.Skipped[0])
	}
	if err := fileStore.Save(cmd.Context(), res.Events); err != nil {
		return WrapExitError(ExitCommandError, "failed to save events", err)
	}
	appLog.Info("event added", "id", ev.ID, "slug", ev.Slug)

	return f.Result(ev, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Added %q\n  id:   %s\n  slug: %s\n", ev.Title, ev.ID, ev.Slug)
	})
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		flags eventFlags
		byID  bool
	)

	cmd := &cobra.Command{
		Use:   "edit <slug>",
		Short: "Edit an existing event",
		Long: `Edit an existing event identified by slug (or by id with --id).

Only the flags given are changed. The slug, id, platform and creation time
are kept; updatedAt is set to now.`,
		Example: `  techevents edit go-meetup --venue-city Oakland --tags "Go,Community,Beginners"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(rootOpts, cmd, args[0], byID, flags.patch(cmd.Flags()))
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&byID, "id", false, "treat the argument as an event id")
	return cmd
}

func runEdit(opts *RootOptions, cmd *cobra.Command, key string, byID bool, p importer.Patch) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, fileStore, events, err := opts.openStore(cmd)
	if err != nil {
		return err
	}

	find := query.FindBySlug
	if byID {
		find = query.FindByID
	}
	orig, err := find(events, key)
	if err != nil {
		return WrapExitError(ExitFailure, key, err)
	}

	updated, err := p.Apply(orig, opts.Now())
	if err != nil {
		return WrapExitError(ExitFailure, "invalid event", err)
	}

	out := make([]model.Event, len(events))
	for i, ev := range events {
		if ev.ID == orig.ID {
			ev = updated
		}
		out[i] = ev
	}
	if err := fileStore.Save(cmd.Context(), out); err != nil {
		return WrapExitError(ExitCommandError, "failed to save events", err)
	}
	appLog.Info("event updated", "id", updated.ID, "slug", updated.Slug)

	return f.Result(updated, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Updated %q (%s)\n", updated.Title, updated.Slug)
	})
}
