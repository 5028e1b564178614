package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/outbox/internal/logger"
)

// Version is reported to clients unless WithVersion overrides it.
const Version = "0.1.0"

// shutdownTimeout bounds graceful shutdown of the HTTP transport.
const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*settings)

type settings struct {
	version string
	siteURL string
}

// WithVersion sets the version reported during initialisation.
func WithVersion(v string) Option {
	return func(s *settings) {
		if v != "" {
			s.version = v
		}
	}
}

// WithSiteURL names the public site the archive is published at.
func WithSiteURL(u string) Option {
	return func(s *settings) { s.siteURL = u }
}

// Server exposes an activity archive to MCP clients: keyword search,
// single activity lookup and store statistics. It never writes.
type Server struct {
	ports  *Ports
	server *mcp.Server
	log    *slog.Logger
}

// NewServer creates an MCP server over the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	cfg := settings{version: Version}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		ports: ports,
		log:   logger.For("mcp"),
	}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "outbox", Version: cfg.version},
		&mcp.ServerOptions{Instructions: instructions(cfg.siteURL)},
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells clients what the archive holds and how to query it.
func instructions(siteURL string) string {
	var b strings.Builder
	b.WriteString("Read-only archive of ActivityStreams activities imported from outbox exports.\n")
	b.WriteString("search_activities runs a keyword search where every term must match; set raw to use " +
		"SQLite FTS5 syntax (OR, NEAR, \"phrases\", prefix*). Results are ranked by relevance and " +
		"snippets mark matches with [brackets].\n")
	b.WriteString("get_activity returns the full JSON of one activity by its id, which is a URL.\n")
	b.WriteString("outbox://stats reports activity and search index counts; " +
		"outbox://activities/{id} reads one activity with a path-escaped id.")
	if siteURL != "" {
		fmt.Fprintf(&b, "\nThe archive is published at %s.", siteURL)
	}
	return b.String()
}

// Run serves a single client over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns an HTTP handler serving the streamable MCP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP listens on addr and serves the streamable transport until ctx
// is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("mcp server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("mcp server stopped")
		return nil
	})
	return g.Wait()
}
