package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs a keyword query and returns up to opts.Limit results.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Stream runs a keyword query and yields results lazily.
	Stream(ctx context.Context, query string, opts domain.SearchOptions) iter.Seq2[domain.SearchResult, error]
}
