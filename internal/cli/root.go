// Package cli implements the techevents command line: the HTTP server plus
// the maintenance commands that edit the events file.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"techevents/internal/capture"
	"techevents/internal/config"
	"techevents/internal/importer"
	appLog "techevents/internal/log"
	"techevents/internal/model"
	"techevents/internal/store"
)

const DefaultConfigPath = "config.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// Overridable in tests.
	Now      func() time.Time
	NewID    importer.IDFunc
	Renderer capture.Renderer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command with production defaults.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith builds the command tree around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = model.GenerateID
	}

	cmd := &cobra.Command{
		Use:   "techevents",
		Short: "Curated tech events: API server and events file tools",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewImportCSVCommand(opts))
	cmd.AddCommand(NewImportICSCommand(opts))
	cmd.AddCommand(NewOGCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies its log level. --verbose
// forces debug logging.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := appLog.ParseLevel(cfg.LogLevel)
	if o.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

// openStore loads the config and the current events file. A missing file is
// an empty collection so the first add can create it.
func (o *RootOptions) openStore(cmd *cobra.Command) (*config.Config, *store.FileStore, []model.Event, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	fileStore := store.NewFileStore(cfg.DataFile)
	events, err := fileStore.LoadAll(cmd.Context())
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fileStore, []model.Event{}, nil
	}
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load events", err)
	}
	return cfg, fileStore, events, nil
}
