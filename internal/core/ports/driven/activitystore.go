package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// ActivityStore persists activities and keeps their search index consistent.
// It is the only write path to the primary table: every mutation updates the
// index within the same transaction.
type ActivityStore interface {
	// Upsert inserts the payload or replaces the record with the same id.
	// The payload's $.id must equal id. The whole record (payload and every
	// derived field) is replaced; nothing is merged.
	Upsert(ctx context.Context, id string, payload []byte) error

	// Get retrieves an activity by id.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Activity, error)

	// Delete removes an activity and its index entry.
	// Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Search streams activities matching a keyword query, best match first.
	// The sequence ends at the first error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) iter.Seq2[domain.SearchResult, error]

	// Count returns the number of stored activities.
	Count(ctx context.Context) (int, error)

	// IndexCount returns the number of search index entries. It equals
	// Count whenever no mutation is in flight.
	IndexCount(ctx context.Context) (int, error)
}
