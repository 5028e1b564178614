package driven

import (
	"context"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// Migrator applies and reverts versioned schema migrations.
// Each call is all-or-nothing: on failure no migration from the batch is
// recorded as applied.
type Migrator interface {
	// ApplyForward applies pending migrations up to and including target.
	// A target of 0 applies every pending migration.
	ApplyForward(ctx context.Context, target int64) ([]domain.Migration, error)

	// ApplyBackward reverts the most recent steps migrations.
	ApplyBackward(ctx context.Context, steps int) ([]domain.Migration, error)

	// CurrentVersion returns the highest applied version, or 0.
	CurrentVersion(ctx context.Context) (int64, error)

	// ListApplied returns applied migrations in version order.
	ListApplied(ctx context.Context) ([]domain.Migration, error)

	// ListPending returns known migrations not yet applied, in version order.
	ListPending(ctx context.Context) ([]domain.Migration, error)
}

// MigrationWriter creates new migration files.
type MigrationWriter interface {
	// Make writes an empty up/down pair and returns the up file path.
	Make(name string) (string, error)
}

// ScriptRunner executes raw SQL scripts such as seed files.
type ScriptRunner interface {
	// ExecScript runs script in a single transaction.
	ExecScript(ctx context.Context, script string) error
}
