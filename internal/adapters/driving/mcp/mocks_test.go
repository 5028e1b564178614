package mcp

import (
	"context"
	"iter"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.opts = opts
	return m.results, m.err
}

func (m *mockSearchService) Stream(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) iter.Seq2[domain.SearchResult, error] {
	m.opts = opts
	return func(yield func(domain.SearchResult, error) bool) {
		if m.err != nil {
			yield(domain.SearchResult{}, m.err)
			return
		}
		for _, r := range m.results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// mockActivityService is a mock implementation of driving.ActivityService.
type mockActivityService struct {
	activities map[string]*domain.Activity
	stats      domain.StoreStats
	err        error
}

func (m *mockActivityService) Get(_ context.Context, id string) (*domain.Activity, error) {
	if m.err != nil {
		return nil, m.err
	}
	act, ok := m.activities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return act, nil
}

func (m *mockActivityService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockActivityService) Count(_ context.Context) (int, error) {
	return m.stats.Activities, m.err
}

func (m *mockActivityService) Stats(_ context.Context) (domain.StoreStats, error) {
	return m.stats, m.err
}

func newActivity(payload string) *domain.Activity {
	act, err := domain.ParseActivity([]byte(payload))
	if err != nil {
		panic(err)
	}
	return act
}
