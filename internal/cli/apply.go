package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/questlog/internal/engine"
	"github.com/roach88/questlog/internal/tracker"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Title string
	XP    int
	Stats map[string]string

	// Clock overrides the system clock. Used by tests.
	Clock engine.Clock
}

// ApplyResult is the JSON payload of a successful apply.
type ApplyResult struct {
	Message        string `json:"message"`
	AlreadyApplied bool   `json:"already_applied,omitempty"`
	Delta          int    `json:"delta"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	Rank           string `json:"rank"`
	WinRate        *int   `json:"win_rate,omitempty"`
	Version        string `json:"version"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <quest|penalty|custom|stats|newday|reset> [id]",
		Short: "Apply one action to the tracker",
		Long: `Apply one action to the tracker through the same pipeline the HTTP
endpoint uses: load the document, apply the action, save it back.

Example:
  questlog apply quest steps
  questlog apply penalty junkFood
  questlog apply custom --title "Helped a friend move" --xp 40
  questlog apply stats --stat pushups=25 --stat pages=-3
  questlog apply newday`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "title for a custom action")
	cmd.Flags().IntVar(&opts.XP, "xp", 0, "signed XP for a custom action")
	cmd.Flags().StringToStringVar(&opts.Stats, "stat", nil, "counter delta for a stats action (name=n, repeatable)")
	return cmd
}

// buildAction turns positional arguments and flags into an engine.Action.
func buildAction(cmd *cobra.Command, args []string, opts *ApplyOptions) (engine.Action, error) {
	a := engine.Action{Kind: engine.Kind(args[0])}
	id := ""
	if len(args) == 2 {
		id = args[1]
	}

	switch a.Kind {
	case engine.KindQuest:
		if id == "" {
			return a, NewExitError(ExitCommandError, "quest requires an id")
		}
		a.QuestID = id
	case engine.KindPenalty:
		if id == "" {
			return a, NewExitError(ExitCommandError, "penalty requires an id")
		}
		a.PenaltyID = id
	case engine.KindCustom:
		a.CustomTitle = opts.Title
		if cmd.Flags().Changed("xp") {
			xp := opts.XP
			a.CustomXP = &xp
		}
	case engine.KindStats:
		a.Stats = make(map[string]json.Number, len(opts.Stats))
		for name, raw := range opts.Stats {
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return a, WrapExitError(ExitCommandError, fmt.Sprintf("--stat %s: not a number", name), err)
			}
			a.Stats[name] = json.Number(raw)
		}
	}
	if id != "" && a.Kind != engine.KindQuest && a.Kind != engine.KindPenalty {
		return a, NewExitError(ExitCommandError, fmt.Sprintf("%s takes no id argument", a.Kind))
	}
	return a, nil
}

func runApply(cmd *cobra.Command, args []string, opts *ApplyOptions) error {
	logger := setupLogging(opts.RootOptions)
	formatter := opts.formatter(cmd)

	action, err := buildAction(cmd, args, opts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	res, err := rt.processor(logger, opts.Clock).Process(ctx, action)
	if err != nil {
		msg := err.Error()
		var e *engine.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
		formatter.Error(string(engine.CodeOf(err)), msg, nil)
		return actionExitError(err)
	}

	out := ApplyResult{
		Message:        res.Outcome.Message,
		AlreadyApplied: res.Outcome.AlreadyApplied,
		Delta:          res.Outcome.Delta,
		XP:             res.Document.XP,
		Level:          res.Document.Level,
		Rank:           res.Document.Rank,
		Version:        res.Version,
	}
	if rate, ok := tracker.WinRate(res.Document); ok {
		out.WinRate = &rate
	}

	text := fmt.Sprintf("%s (XP %d, level %d, rank %s)", out.Message, out.XP, out.Level, out.Rank)
	if out.AlreadyApplied {
		text = out.Message
	}
	formatter.VerboseLog("request %s, version %s", res.RequestID, res.Version)
	return formatter.Success(out, res.RequestID, text)
}
