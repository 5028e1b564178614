package driving

import (
	"context"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// ActivityService manages individual stored activities.
type ActivityService interface {
	// Get retrieves an activity by id.
	Get(ctx context.Context, id string) (*domain.Activity, error)

	// Delete removes an activity and its index entry.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored activities.
	Count(ctx context.Context) (int, error)

	// Stats returns activity and index entry counts.
	Stats(ctx context.Context) (domain.StoreStats, error)
}
