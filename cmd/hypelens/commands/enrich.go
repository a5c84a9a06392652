// ABOUTME: CLI command to backfill follower counts and tiers from stored display text
// ABOUTME: Patches both the metadata store and the index payloads in place
package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/followers"
	"github.com/hypelens/hypelens/internal/models"
)

var enrichBatchSize int

// NewEnrichCmd creates the enrich command.
func NewEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Backfill follower counts from raw text",
		Long: `Walk profiles without a parsed follower count and parse their
stored display text ("19.3K followers") into a number and tier.
Both the metadata store and the search index payloads are updated,
so follower filters start matching these profiles.

Examples:
  hypelens enrich
  hypelens enrich --batch-size 200`,
		Args: cobra.NoArgs,
		RunE: runEnrich,
	}

	cmd.Flags().IntVar(&enrichBatchSize, "batch-size", 0, "Profiles fetched per batch (default from HYPELENS_BATCH_SIZE)")

	return cmd
}

type enrichSummary struct {
	Examined   int `json:"examined"`
	Enriched   int `json:"enriched"`
	Unparsable int `json:"unparsable"`
	Failed     int `json:"failed"`
}

func runEnrich(cmd *cobra.Command, args []string) error {
	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	batchSize := enrichBatchSize
	if batchSize == 0 {
		batchSize = app.cfg.BatchSize
	}
	if err := validatePositiveInt(batchSize, "batch-size"); err != nil {
		return err
	}

	ctx := cmd.Context()
	summary := enrichSummary{}
	seen := make(map[int64]bool)
	for {
		profiles, err := app.store.ListMissingFollowers(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("listing profiles: %w", err)
		}
		progressed := false
		for i := range profiles {
			p := &profiles[i]
			if seen[p.ProfileID] {
				continue
			}
			seen[p.ProfileID] = true
			progressed = true
			summary.Examined++

			if p.FollowerCountRaw == "" {
				summary.Unparsable++
				continue
			}
			count, ok := followers.Parse(p.FollowerCountRaw)
			if !ok {
				summary.Unparsable++
				continue
			}
			category := followers.Categorize(count)
			patch := models.PayloadPatch{FollowerCount: &count, FollowerCategory: &category}
			if err := app.store.Update(ctx, p.ProfileID, patch); err != nil {
				log.Printf("enrich %d: store update failed: %v", p.ProfileID, err)
				summary.Failed++
				continue
			}
			if err := app.index.SetPayload(ctx, p.ProfileID, patch); err != nil {
				log.Printf("enrich %d: index update failed: %v", p.ProfileID, err)
				summary.Failed++
				continue
			}
			summary.Enriched++
		}
		if !progressed {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Examined %d profile(s): %d enriched, %d unparsable, %d failed\n",
			summary.Examined, summary.Enriched, summary.Unparsable, summary.Failed)
	}
	return nil
}
