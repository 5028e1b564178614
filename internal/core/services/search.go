package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit applies to Search when no limit is given.
const DefaultSearchLimit = 20

// SearchService provides keyword search over stored activities.
type SearchService struct {
	store driven.ActivityStore
	log   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(store driven.ActivityStore) *SearchService {
	return &SearchService{
		store: store,
		log:   logger.For("search"),
	}
}

// Search runs a keyword query and collects up to opts.Limit results,
// or DefaultSearchLimit when no limit is set.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}

	var results []domain.SearchResult
	for result, err := range s.Stream(ctx, query, opts) {
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	s.log.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

// Stream runs a keyword query and yields results lazily, best match first.
func (s *SearchService) Stream(ctx context.Context, query string, opts domain.SearchOptions) iter.Seq2[domain.SearchResult, error] {
	if strings.TrimSpace(query) == "" {
		return func(yield func(domain.SearchResult, error) bool) {
			yield(domain.SearchResult{}, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput))
		}
	}
	return s.store.Search(ctx, query, opts)
}
