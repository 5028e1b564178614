package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/adapters/driving/mcp"
	"github.com/custodia-labs/outbox/internal/adapters/driving/web"
	"github.com/custodia-labs/outbox/internal/config"
)

var serveOptions = []config.Option{
	{Name: config.Host, Env: "HOST", Doc: "Server host", Default: "localhost"},
	{Name: config.Port, Env: "PORT", Doc: "Server port", Default: "8089"},
	{Name: config.PublicPath, Env: "PUBLIC_PATH", Doc: "Public web static resources path", Default: "public"},
	{Name: config.SiteURL, Env: "SITE_URL", Doc: "Server base URL (derived from host and port when empty)"},
	{Name: config.ProjectDomain, Env: "PROJECT_DOMAIN", Doc: "Glitch.com project domain"},
	{Name: config.ProjectID, Env: "PROJECT_ID", Doc: "Glitch.com project ID"},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Serves the public static site from publicPath together with:

  /healthz          archive and index counts
  /metrics          Prometheus metrics
  /api/search?q=    keyword search as JSON
  /api/activities?id=  one activity as JSON
  /mcp              the MCP server over streamable HTTP

Listens on host:port until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if activityService == nil || searchService == nil {
		return errNotConfigured("activity")
	}

	port, err := cfg.GetInt(config.Port)
	if err != nil {
		return err
	}
	opts := web.Options{
		Host:       cfg.Get(config.Host),
		Port:       port,
		PublicPath: cfg.Get(config.PublicPath),
	}
	opts.SiteURL = web.SiteURL(
		cfg.Get(config.SiteURL),
		opts.Host,
		opts.Port,
		cfg.Get(config.ProjectDomain),
		cfg.Get(config.ProjectID),
	)

	mcpServer, err := mcp.NewServer(
		&mcp.Ports{Search: searchService, Activity: activityService},
		mcp.WithVersion(version),
		mcp.WithSiteURL(opts.SiteURL),
	)
	if err != nil {
		return err
	}

	server, err := web.NewServer(opts, web.Ports{
		Search:   searchService,
		Activity: activityService,
		Metrics:  appMetrics,
		MCP:      mcpServer.Handler(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", opts.SiteURL, server.Addr())
	return server.Run(cmd.Context())
}
