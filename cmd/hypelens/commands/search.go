// ABOUTME: CLI command for one-shot hybrid profile search
// ABOUTME: Accepts text, a reference image URL, and human-readable follower bounds
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/followers"
	"github.com/hypelens/hypelens/internal/models"
)

var (
	searchImageURL     string
	searchLimit        int
	searchOffset       int
	searchMinFollowers string
	searchMaxFollowers string
	searchAccountType  string
	searchUsername     string
	searchThreshold    float64
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed profiles",
		Long: `Search indexed profiles with text, a reference image, or both.

When both are given, the balance between visual and textual
similarity is inferred from the query phrasing. Follower bounds
accept display-style values like 10K or 1.5M.

Examples:
  hypelens search "travel photographers"
  hypelens search "similar to this" --image https://example.com/ref.jpg
  hypelens search "coffee roasters" --account-type brand --min-followers 10K`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().StringVar(&searchImageURL, "image", "", "Reference image URL")
	cmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default from config)")
	cmd.Flags().IntVar(&searchOffset, "offset", 0, "Results to skip, for paging")
	cmd.Flags().StringVar(&searchMinFollowers, "min-followers", "", "Minimum follower count (e.g. 10K)")
	cmd.Flags().StringVar(&searchMaxFollowers, "max-followers", "", "Exclusive maximum follower count (e.g. 1M)")
	cmd.Flags().StringVar(&searchAccountType, "account-type", "", "Restrict to 'human' or 'brand' accounts")
	cmd.Flags().StringVar(&searchUsername, "username", "", "Restrict to an exact username")
	cmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Minimum similarity score")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := models.SearchQuery{
		ImageURL:       searchImageURL,
		Limit:          searchLimit,
		Offset:         searchOffset,
		ScoreThreshold: searchThreshold,
	}
	if len(args) > 0 {
		query.Text = args[0]
	}
	if query.Text == "" && query.ImageURL == "" {
		return fmt.Errorf("provide query text, --image, or both")
	}

	if searchMinFollowers != "" || searchMaxFollowers != "" {
		query.Filters.Followers = &models.FollowerRange{}
		if searchMinFollowers != "" {
			n, ok := followers.Parse(searchMinFollowers)
			if !ok {
				return fmt.Errorf("cannot parse --min-followers value %q", searchMinFollowers)
			}
			query.Filters.Followers.Min = n
		}
		if searchMaxFollowers != "" {
			n, ok := followers.Parse(searchMaxFollowers)
			if !ok {
				return fmt.Errorf("cannot parse --max-followers value %q", searchMaxFollowers)
			}
			query.Filters.Followers.Max = n
		}
	}
	query.Filters.AccountType = models.AccountType(searchAccountType)
	query.Filters.Username = searchUsername

	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.engine.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("searching profiles: %w", err)
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	}

	if len(resp.Results) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles matched.")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tUSERNAME\tNAME\tFOLLOWERS\tTYPE\n")
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			r.Score,
			r.Payload.Username,
			truncate(r.Payload.FullName, 25),
			formatCount(r.Payload.FollowerCount),
			r.Payload.AccountType)
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d result(s), %s search", len(resp.Results), resp.Mode)
		if resp.Mode == "hybrid" {
			fmt.Fprintf(cmd.OutOrStdout(), " (image %.1f / text %.1f)", resp.Weights.Image, resp.Weights.Text)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
