// Package mcp provides an MCP (Model Context Protocol) server adapter for outbox.
// It lets AI assistants search the activity archive and read stored activities.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingActivityService is returned when the activity service is not provided.
var ErrMissingActivityService = errors.New("mcp: activity service is required")
