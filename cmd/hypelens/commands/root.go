// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Execute is the entry point called from main
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
██╗  ██╗██╗   ██╗██████╗ ███████╗██╗     ███████╗███╗   ██╗███████╗
██║  ██║╚██╗ ██╔╝██╔══██╗██╔════╝██║     ██╔════╝████╗  ██║██╔════╝
███████║ ╚████╔╝ ██████╔╝█████╗  ██║     █████╗  ██╔██╗ ██║███████╗
██╔══██║  ╚██╔╝  ██╔═══╝ ██╔══╝  ██║     ██╔══╝  ██║╚██╗██║╚════██║
██║  ██║   ██║   ██║     ███████╗███████╗███████╗██║ ╚████║███████║
╚═╝  ╚═╝   ╚═╝   ╚═╝     ╚══════╝╚══════╝╚══════╝╚═╝  ╚═══╝╚══════╝
`

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hypelens",
		Short: "Hybrid image and text search over social media profiles",
		Long: banner + `
Hypelens embeds social media profiles (pictures, posts, captions,
bios) into a vector index and searches them with text queries,
reference images, or both. Weighting between visual and textual
similarity is inferred from the query.

Quick start:
  hypelens ingest profiles.json
  hypelens search "travel photographers" --min-followers 10K
  hypelens search "similar to this" --image https://example.com/ref.jpg
  hypelens chat`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewEnrichCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
