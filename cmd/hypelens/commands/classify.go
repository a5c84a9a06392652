// ABOUTME: CLI command to classify unclassified profiles as human or brand
// ABOUTME: Embedding similarity decides clear cases; the LLM handles the rest
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/classify"
)

var classifyBatchSize int

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify profiles as human or brand",
		Long: `Walk profiles without an account type and classify each as
operated by a person or a brand. Bio embedding similarity decides
clear cases; ambiguous profiles go to the LLM when one is
configured, and stay unknown otherwise.

Examples:
  hypelens classify
  hypelens classify --batch-size 100`,
		Args: cobra.NoArgs,
		RunE: runClassify,
	}

	cmd.Flags().IntVar(&classifyBatchSize, "batch-size", 0, "Profiles fetched per batch (default from HYPELENS_BATCH_SIZE)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	batchSize := classifyBatchSize
	if batchSize == 0 {
		batchSize = app.cfg.BatchSize
	}
	if err := validatePositiveInt(batchSize, "batch-size"); err != nil {
		return err
	}

	classifier := classify.New(app.embedder, app.generator)
	summary, err := classifier.Reclassify(cmd.Context(), app.store, app.index, batchSize)
	if err != nil {
		return fmt.Errorf("classifying profiles: %w", err)
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
		fmt.Fprintf(cmd.OutOrStdout(), "Examined %d profile(s): %d classified, %d unknown, %d failed\n",
			summary.Examined, summary.Classified, summary.Unknown, summary.Failed)
	}
	return nil
}
