// Package web serves the public static site together with a small read-only
// JSON API over the archive, health checks and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/logger"
	"github.com/custodia-labs/outbox/internal/metrics"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// ErrMissingActivityService is returned when the activity service is not provided.
var ErrMissingActivityService = errors.New("web: activity service is required")

// Options configures the server.
type Options struct {
	// Host and Port form the listen address.
	Host string
	Port int

	// PublicPath is the directory served at /. Empty disables static files.
	PublicPath string

	// SiteURL is the public base URL, reported by /healthz.
	SiteURL string
}

// Ports are the services the server reads from.
type Ports struct {
	Search   driving.SearchService
	Activity driving.ActivityService

	// Metrics is optional. When set, /metrics is served and requests are counted.
	Metrics *metrics.Metrics

	// MCP is an optional handler mounted at /mcp.
	MCP http.Handler
}

// Server is the HTTP server.
type Server struct {
	opts   Options
	ports  Ports
	router chi.Router
	log    *slog.Logger
}

// NewServer builds the router.
func NewServer(opts Options, ports Ports) (*Server, error) {
	if ports.Activity == nil {
		return nil, ErrMissingActivityService
	}

	s := &Server{
		opts:  opts,
		ports: ports,
		log:   logger.For("web"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if ports.Metrics != nil {
		r.Handle("/metrics", ports.Metrics.Handler())
	}
	if ports.MCP != nil {
		r.Handle("/mcp", ports.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/activities", s.handleGetActivity)
		if ports.Search != nil {
			r.Get("/search", s.handleSearch)
		}
	})

	if opts.PublicPath != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.PublicPath)))
	}

	s.router = r
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", ln.Addr().String(), "siteUrl", s.opts.SiteURL)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// logRequests logs each request and counts it when metrics are enabled.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.ports.Metrics != nil {
			s.ports.Metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		}
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// SiteURL returns the configured site URL or derives one. A Glitch project
// (both projectDomain and projectID set) uses its glitch.me address;
// otherwise the listen address is used.
func SiteURL(siteURL, host string, port int, projectDomain, projectID string) string {
	if siteURL != "" {
		return siteURL
	}
	if projectDomain != "" && projectID != "" {
		return "https://" + projectDomain + ".glitch.me"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: "/"}
	return u.String()
}
