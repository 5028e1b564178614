package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/logger"
)

// Ensure ActivityService implements the interface.
var _ driving.ActivityService = (*ActivityService)(nil)

// ActivityService manages individual activities.
type ActivityService struct {
	store driven.ActivityStore
	log   *slog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(store driven.ActivityStore) *ActivityService {
	return &ActivityService{
		store: store,
		log:   logger.For("activity"),
	}
}

// Get retrieves an activity by id.
func (s *ActivityService) Get(ctx context.Context, id string) (*domain.Activity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// Delete removes an activity and its index entry.
// It returns ErrNotFound if the activity does not exist.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	s.log.Info("activity deleted", "id", id)
	return nil
}

// Count returns the number of stored activities.
func (s *ActivityService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Stats returns activity and index entry counts.
func (s *ActivityService) Stats(ctx context.Context) (domain.StoreStats, error) {
	activities, err := s.store.Count(ctx)
	if err != nil {
		return domain.StoreStats{}, err
	}
	entries, err := s.store.IndexCount(ctx)
	if err != nil {
		return domain.StoreStats{}, err
	}
	return domain.StoreStats{Activities: activities, IndexEntries: entries}, nil
}
