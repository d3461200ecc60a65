// Package cli implements the questbox command line.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/version"
)

// EnvConfig names box.yaml when --config is not given.
const EnvConfig = "QUESTBOX_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the questbox command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "questbox",
		Short: "QuestBox - a narrated puzzle box",
		Long: `QuestBox plays narrated quests on a puzzle box: it reads buttons, dials,
a motion sensor and a distance sensor, checks the player's actions against
the quest, and answers with light, vibration and sound.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to box.yaml (default $"+EnvConfig+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDevicesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads box.yaml from --config or $QUESTBOX_CONFIG. Without
// either, the built-in defaults are used.
func loadConfig(opts *RootOptions) (*config.BoxConfig, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadBoxConfig(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load "+path, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr when the command
// prints JSON so stdout stays parseable.
func newLogger(opts *RootOptions, cfg *config.BoxConfig) *logging.Logger {
	lc := cfg.Logging
	if opts.Verbose {
		lc.Level = "debug"
	}
	if opts.Format == "json" {
		lc.Output = "stderr"
	}
	return logging.New(lc, version.Version)
}
