// ABOUTME: CLI command reporting collection health
// ABOUTME: Shows vector count, metadata totals, and classification breakdowns
package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collection statistics",
		Long: `Report how many profiles are indexed and stored, how they break
down by account type and follower tier, and how many still need
enrichment.

Examples:
  hypelens status
  hypelens status --format json`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	indexed, err := app.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting vectors: %w", err)
	}
	stats, err := app.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading metadata stats: %w", err)
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(map[string]any{
			"indexed_vectors": indexed,
			"metadata":        stats,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Indexed vectors:\t%s\n", formatCount(indexed))
	fmt.Fprintf(w, "Stored profiles:\t%s\n", formatCount(stats.Total))
	fmt.Fprintf(w, "Missing follower counts:\t%s\n", formatCount(stats.MissingCount))
	if !stats.OldestUpdateAt.IsZero() {
		fmt.Fprintf(w, "Oldest update:\t%s\n", formatTime(stats.OldestUpdateAt))
	}
	writeBreakdown(w, "Account types", stats.ByAccountType)
	writeBreakdown(w, "Follower tiers", stats.ByCategory)
	return w.Flush()
}

func writeBreakdown(w *tabwriter.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%s\n", k, formatCount(counts[k]))
	}
}
