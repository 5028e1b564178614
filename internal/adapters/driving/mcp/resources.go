package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for outbox resources.
	uriScheme = "outbox://"

	// activityMIMEType is the ActivityStreams media type.
	activityMIMEType = "application/activity+json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Number of archived activities and search index entries",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	// Activity ids are URLs, so the id segment is path-escaped.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "activities/{id}",
		Name:        "activity",
		Description: "JSON of one archived activity; the id is path-escaped",
		MIMEType:    activityMIMEType,
	}, s.handleActivityResource)
}

// handleStatsResource returns store statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Activity.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	data, err := json.MarshalIndent(struct {
		Activities   int  `json:"activities"`
		IndexEntries int  `json:"index_entries"`
		Consistent   bool `json:"consistent"`
	}{stats.Activities, stats.IndexEntries, stats.Consistent()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleActivityResource returns the payload of one activity.
func (s *Server) handleActivityResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractActivityID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	act, err := s.ports.Activity.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting activity: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: activityMIMEType,
			Text:     string(act.Payload),
		}},
	}, nil
}

// ActivityURI returns the resource URI for an activity id.
func ActivityURI(id string) string {
	return uriScheme + "activities/" + url.PathEscape(id)
}

// extractActivityID extracts the activity id from a URI like outbox://activities/{id}.
func extractActivityID(uri string) string {
	const prefix = uriScheme + "activities/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return id
}
