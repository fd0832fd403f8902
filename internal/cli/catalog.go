package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/questlog/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Date string
}

// CatalogEntry is one resolved quest or penalty in JSON output.
type CatalogEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	XP    int    `json:"xp"`
	Stat  string `json:"stat,omitempty"`
}

// CatalogResult is the JSON payload of the catalog command.
type CatalogResult struct {
	Date      string         `json:"date"`
	Weekend   bool           `json:"weekend"`
	Quests    []CatalogEntry `json:"quests"`
	Penalties []CatalogEntry `json:"penalties"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List quests and penalties as they resolve for a day",
		Long: `List the quest and penalty catalog resolved for a day. Day-dependent
entries (such as work) show the weekday or weekend variant.

Example:
  questlog catalog
  questlog catalog --date 2026-03-07
  QUESTLOG_CATALOG=./my-catalog.cue questlog catalog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "day to resolve, YYYY-MM-DD (default today)")
	return cmd
}

func runCatalog(cmd *cobra.Command, opts *CatalogOptions) error {
	setupLogging(opts.RootOptions)
	formatter := opts.formatter(cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	day := time.Now().In(loc)
	if opts.Date != "" {
		day, err = time.ParseInLocation(time.DateOnly, opts.Date, loc)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
	}

	out := CatalogResult{
		Date:      day.Format(time.DateOnly),
		Weekend:   catalog.IsWeekend(day),
		Quests:    catalogEntries(cat.Quests(day)),
		Penalties: catalogEntries(cat.Penalties(day)),
	}
	return formatter.Success(out, "", formatCatalog(out))
}

func catalogEntries(entries []catalog.Entry) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, CatalogEntry{ID: e.ID, Title: e.Title, XP: e.XP, Stat: e.Stat})
	}
	return out
}

func formatCatalog(r CatalogResult) string {
	var b strings.Builder
	kind := "weekday"
	if r.Weekend {
		kind = "weekend"
	}
	fmt.Fprintf(&b, "Catalog for %s (%s)\n\nQuests:\n", r.Date, kind)
	for _, e := range r.Quests {
		fmt.Fprintf(&b, "  %-16s %+4d  %s\n", e.ID, e.XP, e.Title)
	}
	b.WriteString("\nPenalties:\n")
	for _, e := range r.Penalties {
		fmt.Fprintf(&b, "  %-16s %+4d  %s\n", e.ID, e.XP, e.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}
