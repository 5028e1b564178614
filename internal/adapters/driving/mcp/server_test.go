package mcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Activity: &mockActivityService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search:   &mockSearchService{},
			Activity: &mockActivityService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil activity service returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingActivityService)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:   &mockSearchService{},
			Activity: &mockActivityService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func connectClient(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = server.server.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "outbox-test", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestNewServer_Initialisation(t *testing.T) {
	ports := &Ports{Search: &mockSearchService{}, Activity: &mockActivityService{}}

	t.Run("defaults", func(t *testing.T) {
		server, err := NewServer(ports)
		require.NoError(t, err)

		info := connectClient(t, server).InitializeResult()
		require.NotNil(t, info)
		assert.Equal(t, "outbox", info.ServerInfo.Name)
		assert.Equal(t, Version, info.ServerInfo.Version)
		assert.Contains(t, info.Instructions, "search_activities")
		assert.Contains(t, info.Instructions, "get_activity")
		assert.Contains(t, info.Instructions, "outbox://stats")
		assert.NotContains(t, info.Instructions, "published at")
	})

	t.Run("version and site url", func(t *testing.T) {
		server, err := NewServer(ports, WithVersion("1.2.3"), WithSiteURL("https://outbox.example"))
		require.NoError(t, err)

		info := connectClient(t, server).InitializeResult()
		require.NotNil(t, info)
		assert.Equal(t, "1.2.3", info.ServerInfo.Version)
		assert.Contains(t, info.Instructions, "published at https://outbox.example.")
	})

	t.Run("empty version keeps default", func(t *testing.T) {
		server, err := NewServer(ports, WithVersion(""))
		require.NoError(t, err)

		info := connectClient(t, server).InitializeResult()
		assert.Equal(t, Version, info.ServerInfo.Version)
	})
}

func TestServer_ListsTools(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Activity: &mockActivityService{}})
	require.NoError(t, err)

	tools, err := connectClient(t, server).ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_activities", "get_activity"}, names)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Activity: &mockActivityService{}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
