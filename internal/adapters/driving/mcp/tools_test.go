package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

func newTestServer(t *testing.T, search *mockSearchService, activity *mockActivityService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Search: search, Activity: activity})
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		act := newActivity(`{
			"id": "https://example.com/a/1",
			"type": "Create",
			"actor": "https://example.com/u/me",
			"published": "2023-01-02T03:04:05Z",
			"object": {"url": "https://example.com/n/1", "content": "hello world"}
		}`)
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{{Activity: *act, Score: 1.5, Snippet: "[hello] world"}},
		}
		server := newTestServer(t, mockSearch, &mockActivityService{})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "hello", Limit: 5, Offset: 2})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		got := output.Results[0]
		assert.Equal(t, "https://example.com/a/1", got.ID)
		assert.Equal(t, "Create", got.Type)
		assert.Equal(t, "https://example.com/u/me", got.Actor)
		assert.Equal(t, "2023-01-02T03:04:05Z", got.Published)
		assert.Equal(t, "https://example.com/n/1", got.URL)
		assert.Equal(t, 1.5, got.Score)
		assert.Equal(t, "[hello] world", got.Snippet)
		assert.Equal(t, domain.SearchOptions{Limit: 5, Offset: 2}, mockSearch.opts)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server := newTestServer(t, mockSearch, &mockActivityService{})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Offset: -3, Raw: true})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, domain.SearchOptions{Limit: 10, Raw: true}, mockSearch.opts)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, mockSearch, &mockActivityService{})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleGetActivity(t *testing.T) {
	ctx := context.Background()
	act := newActivity(`{"id": "a1", "type": "Note"}`)
	activities := &mockActivityService{activities: map[string]*domain.Activity{"a1": act}}
	server := newTestServer(t, &mockSearchService{}, activities)

	t.Run("returns payload", func(t *testing.T) {
		_, output, err := server.handleGetActivity(ctx, nil, GetActivityInput{ID: "a1"})
		require.NoError(t, err)
		assert.Equal(t, "a1", output.ID)
		assert.JSONEq(t, `{"id": "a1", "type": "Note"}`, string(output.Activity))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := server.handleGetActivity(ctx, nil, GetActivityInput{ID: "nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("service failure", func(t *testing.T) {
		failing := newTestServer(t, &mockSearchService{}, &mockActivityService{err: domain.ErrStorage})
		_, _, err := failing.handleGetActivity(ctx, nil, GetActivityInput{ID: "a1"})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}
