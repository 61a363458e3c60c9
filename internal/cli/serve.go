package cli

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"techevents/internal/capture"
	"techevents/internal/config"
	"techevents/internal/ics"
	"techevents/internal/importer"
	appLog "techevents/internal/log"
	"techevents/internal/metrics"
	"techevents/internal/model"
	"techevents/internal/store"
	"techevents/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the events API",
		Long: `Serve the events API, calendar files, social cards and metrics.

The events file is reloaded on the "revalidate" cron schedule. When
import.cron is set, configured ICS feeds are imported on that schedule too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return runServe(cmd.Context(), rootOpts, cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, cfg *config.Config) error {
	appLog.Info("effective config",
		"listen", cfg.Listen,
		"data_file", cfg.DataFile,
		"timezone", cfg.Timezone,
		"revalidate", cfg.Revalidate,
		"og_enabled", cfg.OG.Enabled,
		"feeds", len(cfg.Import.Feeds),
	)

	m := metrics.New()
	fileStore := store.NewFileStore(cfg.DataFile)
	cache := store.NewCache(fileStore)
	cache.OnReload(m.StoreReloaded)

	if err := cache.Refresh(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	cr := cron.New()
	if _, err := cache.Schedule(cr, cfg.Revalidate); err != nil {
		return WrapExitError(ExitCommandError, "invalid revalidate schedule", err)
	}
	if cfg.Import.Cron != "" && len(cfg.Import.Feeds) > 0 {
		if _, err := cr.AddFunc(cfg.Import.Cron, func() {
			scheduledImport(ctx, opts, cfg, fileStore, cache)
		}); err != nil {
			return WrapExitError(ExitCommandError, "invalid import cron", err)
		}
	}
	cr.Start()
	defer func() {
		<-cr.Stop().Done()
	}()

	renderer := opts.Renderer
	if renderer == nil && cfg.OG.Enabled {
		renderer = capture.NewChromeRenderer(capture.Options{
			Width:   cfg.OG.Width,
			Height:  cfg.OG.Height,
			Timeout: cfg.OGTimeout(),
		})
	}

	srv := web.NewServer(web.Options{
		Config:   cfg,
		Events:   cache,
		Renderer: renderer,
		Metrics:  m,
		Now:      opts.Now,
	})
	srv.LogRoutes()

	if err := srv.Serve(ctx); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	appLog.Info("techevents exiting")
	return nil
}

// scheduledImport pulls every feed, appends new events to the file and
// reloads the cache.
func scheduledImport(ctx context.Context, opts *RootOptions, cfg *config.Config, fileStore *store.FileStore, cache *store.Cache) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	existing, err := fileStore.LoadAll(ctx)
	if err != nil {
		appLog.Error("scheduled import: events file unreadable", err)
		return
	}
	res, err := importFeeds(ctx, opts, cfg, fileStore, existing, cfg.Import.Feeds, false)
	if err != nil {
		appLog.Error("scheduled import failed", err)
		return
	}
	if len(res.Added) == 0 {
		return
	}
	if err := cache.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("reload after import failed", err)
	}
}

// importFeeds runs the feed pipeline, merges the result into existing and,
// unless dryRun, saves the merged collection. Per-feed problems are logged
// and appended to the result's Skipped list.
func importFeeds(ctx context.Context, opts *RootOptions, cfg *config.Config, fileStore *store.FileStore, existing []model.Event, feeds []config.FeedConfig, dryRun bool) (importer.MergeResult, error) {
	fi := importer.NewFeedImporter(ics.NewFetcher(cfg.Import.CacheDir), cfg.Location(), cfg.Import.HorizonDays)
	incoming, errs := fi.Import(ctx, feeds, opts.Now())

	res := importer.Merge(existing, incoming)
	for _, e := range errs {
		appLog.Warn("feed import problem", "error", e)
		res.Skipped = append(res.Skipped, e.Error())
	}

	if dryRun || len(res.Added) == 0 {
		return res, nil
	}
	if err := fileStore.Save(ctx, res.Events); err != nil {
		return res, err
	}
	appLog.Info("feed import saved", "added", len(res.Added), "skipped", len(res.Skipped))
	return res, nil
}
