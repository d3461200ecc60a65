package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/game"
)

const historyTimeFormat = "2006-01-02 15:04:05"

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent quest sessions from the event store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.StorageNone {
				return NewExitError(ExitCommandError, "storage.driver is none, there is no history to read")
			}
			secrets, err := config.LoadSecrets()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load secrets", err)
			}
			store, err := openStore(cmd.Context(), cfg, secrets)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open event store", err)
			}
			defer store.Close()

			sessions, err := game.LoadHistory(store, limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read history", err)
			}
			return printHistory(rootOpts, cmd.OutOrStdout(), sessions)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", game.DefaultHistoryLimit, "number of stored events to read")

	return cmd
}

func printHistory(opts *RootOptions, w io.Writer, sessions []game.Session) error {
	if opts.Format == "json" {
		if sessions == nil {
			sessions = []game.Session{}
		}
		return writeJSON(w, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions recorded")
		return nil
	}
	for _, s := range sessions {
		outcome := string(s.Outcome)
		if outcome == "" {
			outcome = "unfinished"
		}
		title := s.QuestID
		if s.Title != "" {
			title = s.Title
		}
		fmt.Fprintf(w, "%s  %-10s  %s  [%s]\n", s.Started.Local().Format(historyTimeFormat), outcome, title, s.SessionID)

		var paths []string
		for _, p := range s.Paths {
			paths = append(paths, fmt.Sprintf("%s: %s", p.Name, p.State))
		}
		if len(paths) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(paths, ", "))
		}
	}
	return nil
}
