package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/adapters/driving/mcp"
	"github.com/custodia-labs/outbox/internal/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the search_activities and get_activity tools, an
outbox://stats resource and outbox://activities/{id} resources.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  outbox mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  outbox mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "outbox": {
        "command": "/path/to/outbox",
        "args": ["mcp", "serve", "-F", "databasePath=/path/to/data.sqlite3"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search:   searchService,
		Activity: activityService,
	}

	server, err := mcp.NewServer(ports,
		mcp.WithVersion(version),
		mcp.WithSiteURL(cfg.Get(config.SiteURL)),
	)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
