package driving

import (
	"context"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// SchemaService exposes migration and seed operations.
type SchemaService interface {
	// Init migrates to the latest version and runs every seed.
	Init(ctx context.Context) ([]domain.Migration, []domain.SeedResult, error)

	// Latest applies every pending migration.
	Latest(ctx context.Context) ([]domain.Migration, error)

	// Up applies the next pending migration only.
	Up(ctx context.Context) ([]domain.Migration, error)

	// Down reverts the most recently applied migration.
	Down(ctx context.Context) ([]domain.Migration, error)

	// CurrentVersion returns the highest applied version.
	CurrentVersion(ctx context.Context) (int64, error)

	// Status returns applied and pending migrations.
	Status(ctx context.Context) (applied, pending []domain.Migration, err error)

	// MakeMigration scaffolds a new migration pair.
	MakeMigration(name string) (string, error)

	// RunSeeds runs every seed file.
	RunSeeds(ctx context.Context) ([]domain.SeedResult, error)

	// MakeSeed scaffolds a new seed file.
	MakeSeed(name string) (string, error)
}
