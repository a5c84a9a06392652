// ABOUTME: Interactive conversational search loop on the terminal
// ABOUTME: Session filters accumulate across refinements until a fresh search resets them
package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/models"
)

var chatLimit int

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Search conversationally",
		Long: `Start an interactive search conversation.

Each message either starts a search, refines the previous one, or
asks for help. Filters from refinements stack until a new search
begins. Exit with "quit" or Ctrl-D.

Example session:
  > travel photographers with over 10K followers
  > only brands
  > quit`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	cmd.Flags().IntVar(&chatLimit, "limit", 10, "Results shown per search")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(chatLimit, "limit"); err != nil {
		return err
	}

	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	session := models.NewSession()
	if !quiet {
		fmt.Fprintln(out, "Describe the profiles you want. Type 'quit' to exit.")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "quit" || message == "exit" {
			break
		}
		if message == "" {
			continue
		}
		session.AddTurn("user", message)

		parsed, err := app.parser.Parse(cmd.Context(), message, session)
		if err != nil {
			return fmt.Errorf("parsing message: %w", err)
		}

		var reply string
		switch parsed.Kind {
		case intent.KindSearch, intent.KindRefine:
			if parsed.Kind == intent.KindSearch {
				session.BaseQuery = parsed.Query
				session.Filters = models.Filters{}
			}
			session.MergeFilters(parsed.Filters)

			resp, err := app.engine.Search(cmd.Context(), models.SearchQuery{
				Text:    parsed.Query,
				Filters: session.Filters,
				Limit:   chatLimit,
			})
			if err != nil {
				fmt.Fprintf(out, "Search failed: %v\n", err)
				continue
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No profiles matched.")
			}
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%2d. %-20s %-10s %s  (%.3f)\n",
					i+1, r.Payload.Username, formatCount(r.Payload.FollowerCount),
					r.Payload.AccountType, r.Score)
			}
			reply = session.FilterSummary()
			fmt.Fprintln(out, reply)
		default:
			reply = parsed.Message
			fmt.Fprintln(out, reply)
		}
		session.AddTurn("assistant", reply)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
