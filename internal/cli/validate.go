package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/QuestBox/internal/game"
	"github.com/AaronLay10/QuestBox/internal/steps"
)

// QuestDump is the canonical form of a validated quest: aliases resolved,
// every step tagged with its kind.
type QuestDump struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	StartingDescription string     `json:"starting_description"`
	Paths               []PathDump `json:"paths"`
}

type PathDump struct {
	Name      string            `json:"path_name"`
	TimeLimit float64           `json:"time_limit"`
	Solution  []steps.Canonical `json:"solution_sequence"`
	Effects   []steps.Canonical `json:"effects"`

	// Invalid effects are skipped when the path runs; they are listed here
	// so the author sees them.
	InvalidEffects []string `json:"invalid_effects,omitempty"`
}

// ValidationResult is the json output of the validate command.
type ValidationResult struct {
	Valid bool       `json:"valid"`
	Error string     `json:"error,omitempty"`
	Quest *QuestDump `json:"quest,omitempty"`
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <quest.json>",
		Short: "Validate a quest document",
		Long: `Validate a quest document without running it.

Every solution step is checked against the sensor registry. With
--format json the canonical form of the quest is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
}

func runValidate(opts *RootOptions, path string, w io.Writer) error {
	q, err := game.LoadQuest(path)
	if err != nil {
		code := ExitCommandError
		if errors.Is(err, game.ErrInvalidQuest) {
			code = ExitFailure
		}
		if opts.Format == "json" {
			if werr := writeJSON(w, ValidationResult{Valid: false, Error: err.Error()}); werr != nil {
				return werr
			}
		} else {
			fmt.Fprintf(w, "✗ %s\n", err)
		}
		return WrapExitError(code, "validation failed", err)
	}

	dump, err := DumpQuest(q)
	if err != nil {
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	if opts.Format == "json" {
		return writeJSON(w, ValidationResult{Valid: true, Quest: dump})
	}

	fmt.Fprintf(w, "✓ %s (%s): %d path(s)\n", dump.Title, dump.ID, len(dump.Paths))
	for i, p := range dump.Paths {
		fmt.Fprintf(w, "  %d. %s: %d step(s), %gs, %d effect(s)\n",
			i+1, p.Name, len(p.Solution), p.TimeLimit, len(p.Effects))
		for _, bad := range p.InvalidEffects {
			fmt.Fprintf(w, "     ! skipped effect: %s\n", bad)
		}
	}
	return nil
}

// DumpQuest normalises every step of q.
func DumpQuest(q *game.Quest) (*QuestDump, error) {
	dump := &QuestDump{
		ID:                  q.ID,
		Title:               q.Title,
		StartingDescription: q.StartingDescription,
		Paths:               make([]PathDump, 0, len(q.Paths)),
	}
	for _, p := range q.Paths {
		pd := PathDump{
			Name:      p.Name,
			TimeLimit: p.TimeLimit,
			Solution:  make([]steps.Canonical, 0, len(p.SolutionSequence)),
			Effects:   make([]steps.Canonical, 0, len(p.Effects)),
		}
		for i, raw := range p.SolutionSequence {
			c, err := steps.Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("path %q step %d: %w", p.Name, i, err)
			}
			pd.Solution = append(pd.Solution, c)
		}
		for i, raw := range p.Effects {
			c, err := steps.Normalize(raw)
			if err != nil {
				pd.InvalidEffects = append(pd.InvalidEffects, fmt.Sprintf("effects[%d]: %v", i, err))
				continue
			}
			if c.Kind != steps.KindActuator {
				pd.InvalidEffects = append(pd.InvalidEffects, fmt.Sprintf("effects[%d]: %s is not an actuator", i, c.Type))
				continue
			}
			pd.Effects = append(pd.Effects, c)
		}
		dump.Paths = append(dump.Paths, pd)
	}
	return dump, nil
}
