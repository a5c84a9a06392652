// ABOUTME: CLI command to ingest profiles from a JSON file into the index
// ABOUTME: Parses follower text, embeds components, and reports a per-batch summary
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/followers"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/pipeline"
)

var (
	ingestSkipExisting  bool
	ingestWorkers       int
	ingestMaxPostImages int
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <profiles.json>",
		Short: "Embed and index profiles from a JSON file",
		Long: `Embed and index social media profiles from a JSON file.

The file holds an array of profile objects. Each profile's picture,
post images, captions, and bio are embedded individually and combined
into one vector. Follower counts given as display text ("19.3K
followers") are parsed into numbers and tiers.

Examples:
  hypelens ingest profiles.json
  hypelens ingest --skip-existing --workers 8 profiles.json`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().BoolVar(&ingestSkipExisting, "skip-existing", false, "Leave already-indexed profiles untouched")
	cmd.Flags().IntVar(&ingestWorkers, "workers", 0, "Concurrent ingestion workers (default from config)")
	cmd.Flags().IntVar(&ingestMaxPostImages, "max-post-images", 12, "Post images embedded per profile")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading profiles file: %w", err)
	}
	var profiles []models.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("decoding profiles file: %w", err)
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles in %s", args[0])
	}

	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	// Fill parsed follower fields where only display text was given.
	for i := range profiles {
		p := &profiles[i]
		if p.FollowerCount == 0 && p.FollowerCountRaw != "" {
			if count, ok := followers.Parse(p.FollowerCountRaw); ok {
				p.FollowerCount = count
			}
		}
		if p.FollowerCategory == "" && p.FollowerCount > 0 {
			p.FollowerCategory = followers.Categorize(p.FollowerCount)
		}
	}

	workers := ingestWorkers
	if workers <= 0 {
		workers = app.cfg.IngestWorker
	}

	summary, err := app.pipe.Ingest(cmd.Context(), profiles, pipeline.Options{
		SkipExisting:  ingestSkipExisting,
		Workers:       workers,
		MaxPostImages: ingestMaxPostImages,
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	}

	if summary.Failed > 0 || verbose {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "PROFILE\tUSERNAME\tSTATUS\tERROR\n")
		for _, r := range summary.Results {
			if r.Status != pipeline.StatusFailed && !verbose {
				continue
			}
			errText := ""
			if r.Err != nil {
				errText = truncate(r.Err.Error(), 60)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ProfileID, r.Username, r.Status, errText)
		}
		w.Flush()
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d, skipped %d, failed %d of %d profile(s)\n",
			summary.Done, summary.Skipped, summary.Failed, len(profiles))
	}
	if summary.Failed > 0 && summary.Done == 0 && summary.Skipped == 0 {
		return fmt.Errorf("every profile failed to ingest")
	}
	return nil
}
