// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes profile search and ingestion to LLM agents over stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hypelens/hypelens/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs Hypelens as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to search and ingest profiles via stdio.

Configure in Claude Desktop's config file to enable the tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by the agent host)
  hypelens mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "hypelens": {
  #       "command": "hypelens",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	app, err := newAppContext()
	if err != nil {
		return err
	}
	defer app.Close()

	if app.generator == nil && !quiet {
		log.Println("Warning: OPENAI_API_KEY not set - weight analysis and classification fall back to heuristics")
	}

	server := mcpserver.NewMCPServer(
		"Hypelens Profile Search",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, app.engine, app.pipe, app.store, app.index)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("Hypelens MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
