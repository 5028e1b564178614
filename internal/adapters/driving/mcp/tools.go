package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// defaultLimit caps search results when the caller gives no limit.
const defaultLimit = 10

// SearchInput is the input schema for the search_activities tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"keywords to find; every keyword must match"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of results to skip"`
	Raw    bool   `json:"raw,omitempty" jsonschema:"pass the query to the full-text engine unmodified (supports OR, NEAR, phrases)"`
}

// SearchOutput is the output schema for the search_activities tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID        string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Actor     string  `json:"actor,omitempty"`
	Published string  `json:"published,omitempty"`
	URL       string  `json:"url,omitempty"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet,omitempty"`
}

// GetActivityInput is the input schema for the get_activity tool.
type GetActivityInput struct {
	ID string `json:"id" jsonschema:"the activity id, usually a URL"`
}

// GetActivityOutput is the output schema for the get_activity tool.
type GetActivityOutput struct {
	ID       string          `json:"id"`
	Activity json.RawMessage `json:"activity"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_activities",
		Description: "Search archived activities by keyword, best matches first",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_activity",
		Description: "Fetch the full JSON of one archived activity by id",
	}, s.handleGetActivity)
}

// handleSearch handles the search_activities tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	opts := domain.SearchOptions{Limit: limit, Offset: max(input.Offset, 0), Raw: input.Raw}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		act := &results[i].Activity
		output.Results[i] = SearchResultOutput{
			ID:        act.ID,
			Type:      act.Derived.Type,
			Actor:     act.Derived.Actor,
			Published: act.Derived.Published,
			URL:       act.Derived.ObjectURL,
			Score:     results[i].Score,
			Snippet:   results[i].Snippet,
		}
	}

	return nil, output, nil
}

// handleGetActivity handles the get_activity tool invocation.
func (s *Server) handleGetActivity(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetActivityInput,
) (*mcp.CallToolResult, GetActivityOutput, error) {
	act, err := s.ports.Activity.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, GetActivityOutput{}, fmt.Errorf("activity %q not found", input.ID)
		}
		return nil, GetActivityOutput{}, err
	}

	return nil, GetActivityOutput{ID: act.ID, Activity: act.Payload}, nil
}
