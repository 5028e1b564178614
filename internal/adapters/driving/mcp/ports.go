package mcp

import (
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs keyword queries over the archive.
	Search driving.SearchService

	// Activity reads individual activities and store statistics.
	Activity driving.ActivityService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Activity == nil {
		return ErrMissingActivityService
	}
	return nil
}
