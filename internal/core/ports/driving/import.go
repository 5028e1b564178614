package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// ImportService loads external outbox exports into the store.
type ImportService interface {
	// Import processes each source file in order. A source with a
	// structural error is reported in the result and the next source is
	// still attempted. A storage error stops the invocation and is returned.
	Import(ctx context.Context, sources ...string) (*domain.ImportResult, error)

	// ImportReader imports a single already-open source.
	ImportReader(ctx context.Context, name string, r io.Reader) (domain.SourceResult, error)
}
