package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/questlog/internal/store"
	"github.com/roach88/questlog/internal/tracker"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	History   int
	Revisions int
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Version        string                 `json:"version"`
	XP             int                    `json:"xp"`
	Level          int                    `json:"level"`
	Rank           string                 `json:"rank"`
	Progress       float64                `json:"progress"`
	NextLevelXP    int                    `json:"next_level_xp"`
	Power          int                    `json:"power"`
	WinRate        *int                   `json:"win_rate,omitempty"`
	Stats          map[string]int         `json:"stats"`
	Counters       map[string]float64       `json:"counters,omitempty"`
	CompletedToday []string               `json:"completed_today"`
	PenaltiesToday []string               `json:"penalties_today"`
	DaysTracked    *int                   `json:"days_tracked,omitempty"`
	History        []tracker.HistoryEntry `json:"history"`
	Revisions      []store.Revision       `json:"revisions,omitempty"`
	LastUpdated    time.Time              `json:"last_updated"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the tracker with derived values",
		Long: `Print the current tracker: XP, level, rank, progress toward the next
level, power, win rate, stats and today's quests and penalties.

--revisions lists the most recent writes recorded by the SQLite store.

Example:
  questlog show
  questlog show --history 20 --revisions 5
  questlog show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.History, "history", 5, "number of recent history entries to print")
	cmd.Flags().IntVar(&opts.Revisions, "revisions", 0, "number of recent revisions to list (sqlite only)")
	return cmd
}

func runShow(cmd *cobra.Command, opts *ShowOptions) error {
	logger := setupLogging(opts.RootOptions)
	formatter := opts.formatter(cmd)

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

	doc, version, err := rt.store.Load(ctx)
	if err != nil {
		formatter.Error("UPSTREAM_READ", err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load tracker", err)
	}

	out := ShowResult{
		Version:        version,
		XP:             doc.XP,
		Level:          doc.Level,
		Rank:           doc.Rank,
		Progress:       tracker.Progress(doc.XP),
		NextLevelXP:    tracker.XPForNextLevel(doc.Level),
		Power:          tracker.Power(doc),
		Stats:          doc.Stats,
		Counters:       doc.Counters,
		CompletedToday: doc.CompletedToday,
		PenaltiesToday: doc.PenaltiesToday,
		DaysTracked:    doc.DaysTracked,
		History:        recentHistory(doc.History, opts.History),
		LastUpdated:    doc.LastUpdated,
	}
	if rate, ok := tracker.WinRate(doc); ok {
		out.WinRate = &rate
	}

	if opts.Revisions > 0 {
		sq, ok := rt.store.(*store.SQLite)
		if !ok {
			return NewExitError(ExitCommandError, "--revisions requires the sqlite store")
		}
		out.Revisions, err = sq.Revisions(ctx, opts.Revisions)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read revisions", err)
		}
	}

	return formatter.Success(out, "", formatShow(out, rt.location))
}

// recentHistory returns the last n entries, newest first.
func recentHistory(h []tracker.HistoryEntry, n int) []tracker.HistoryEntry {
	if n <= 0 {
		return []tracker.HistoryEntry{}
	}
	start := max(0, len(h)-n)
	out := slices.Clone(h[start:])
	slices.Reverse(out)
	return out
}

func formatShow(r ShowResult, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level %d  Rank %s  XP %d (%.0f%% to %d)\n", r.Level, r.Rank, r.XP, r.Progress, r.NextLevelXP)
	fmt.Fprintf(&b, "Power %d", r.Power)
	if r.WinRate != nil {
		fmt.Fprintf(&b, "  Win rate %d%%", *r.WinRate)
	}
	if r.DaysTracked != nil {
		fmt.Fprintf(&b, "  Days %d", *r.DaysTracked)
	}
	b.WriteString("\n\nStats:\n")
	for _, name := range slices.Sorted(maps.Keys(r.Stats)) {
		fmt.Fprintf(&b, "  %-14s %d\n", name, r.Stats[name])
	}
	if len(r.Counters) > 0 {
		b.WriteString("Counters:\n")
		for _, name := range slices.Sorted(maps.Keys(r.Counters)) {
			fmt.Fprintf(&b, "  %-14s %g\n", name, r.Counters[name])
		}
	}
	fmt.Fprintf(&b, "\nToday: quests [%s]  penalties [%s]\n",
		strings.Join(r.CompletedToday, ", "), strings.Join(r.PenaltiesToday, ", "))

	if len(r.History) > 0 {
		b.WriteString("\nRecent:\n")
		for _, e := range r.History {
			fmt.Fprintf(&b, "  %s  %+5d  %s\n", e.Date.In(loc).Format("2006-01-02 15:04"), e.XP, e.Action)
		}
	}
	if len(r.Revisions) > 0 {
		b.WriteString("\nRevisions:\n")
		for _, rev := range r.Revisions {
			fmt.Fprintf(&b, "  #%d  %s  %.12s  %s\n", rev.Seq, rev.SavedAt.In(loc).Format("2006-01-02 15:04"), rev.Version, rev.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
