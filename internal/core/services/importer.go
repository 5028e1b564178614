package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/logger"
)

// Ensure Importer implements the interface.
var _ driving.ImportService = (*Importer)(nil)

// Source outcome labels passed to ImportMetrics.RecordSource.
const (
	SourceOK         = "ok"
	SourceStructural = "structural"
	SourceFailed     = "failed"
	SourceCanceled   = "canceled"
)

// Importer loads outbox exports into the activity store.
//
// Sources are processed one at a time and records in source order, so a
// later record with a duplicate id replaces an earlier one. Every record is
// upserted in its own transaction: a storage failure stops the invocation
// but leaves the records before it committed.
type Importer struct {
	store      driven.ActivityStore
	metrics    driven.ImportMetrics
	interval   time.Duration
	onProgress ProgressFunc
	log        *slog.Logger

	// skipWarn throttles per-record skip warnings on large sources.
	skipWarn *rate.Sometimes
}

// NewImporter creates an importer writing to store.
// metrics is optional (can be nil).
func NewImporter(store driven.ActivityStore, metrics driven.ImportMetrics) *Importer {
	return &Importer{
		store:    store,
		metrics:  metrics,
		interval: DefaultProgressInterval,
		log:      logger.For("importer"),
		skipWarn: &rate.Sometimes{First: 10, Interval: time.Second},
	}
}

// SetProgressInterval sets the telemetry cadence. Zero disables telemetry.
func (i *Importer) SetProgressInterval(d time.Duration) {
	i.interval = d
}

// SetProgressFunc registers a callback for progress updates.
func (i *Importer) SetProgressFunc(fn ProgressFunc) {
	i.onProgress = fn
}

// Import processes each source file in order. Sources that cannot be
// opened or have no orderedItems array are recorded in the result and the
// next source is attempted. A storage error or cancellation stops the
// invocation and is returned alongside the partial result.
func (i *Importer) Import(ctx context.Context, sources ...string) (*domain.ImportResult, error) {
	result := &domain.ImportResult{RunID: uuid.NewString()}
	log := i.log.With("run", result.RunID)

	log.Info("import started", "sources", len(sources))
	started := time.Now()

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := i.importFile(ctx, log, source)
		result.Sources = append(result.Sources, res)
		if err != nil {
			log.Error("import aborted", "source", source, "error", err)
			return result, err
		}
	}

	log.Info("import complete",
		"sources", len(result.Sources),
		"upserted", result.Upserted(),
		"failed", result.Failed(),
		"duration", time.Since(started),
	)
	return result, nil
}

// ImportReader imports a single already-open source. The returned error is
// the source's own failure, structural or fatal.
func (i *Importer) ImportReader(ctx context.Context, name string, r io.Reader) (domain.SourceResult, error) {
	log := i.log.With("run", uuid.NewString())
	res, err := i.importSource(ctx, log, name, r)
	if err != nil {
		return res, err
	}
	return res, res.Err
}

func (i *Importer) importFile(ctx context.Context, log *slog.Logger, path string) (domain.SourceResult, error) {
	f, err := os.Open(path)
	if err != nil {
		res := domain.SourceResult{Source: path, Err: fmt.Errorf("opening source: %w", err)}
		log.Warn("import source failed", "source", path, "error", res.Err)
		i.recordSource(SourceFailed, 0)
		return res, nil
	}
	defer f.Close()

	return i.importSource(ctx, log, path, f)
}

// importSource imports one source. Per-source problems are reported in
// SourceResult.Err; the returned error is fatal to the invocation.
func (i *Importer) importSource(ctx context.Context, log *slog.Logger, name string, r io.Reader) (domain.SourceResult, error) {
	started := time.Now()
	res := domain.SourceResult{Source: name}

	items, err := decodeEnvelope(r)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(started)
		log.Warn("import source rejected", "source", name, "error", err)
		i.recordSource(SourceStructural, res.Duration)
		return res, nil
	}
	res.Total = len(items)

	log.Info("import source started", "source", name, "total", res.Total)

	progress := newProgressReporter(log, i.interval, i.onProgress, name, res.Total)
	progress.start(ctx)
	fatal := i.upsertAll(ctx, log, name, items, &res, progress)
	progress.stop()

	res.Duration = time.Since(started)
	if fatal != nil {
		res.Err = fatal
		status := SourceFailed
		if errors.Is(fatal, context.Canceled) || errors.Is(fatal, context.DeadlineExceeded) {
			status = SourceCanceled
		}
		i.recordSource(status, res.Duration)
		return res, fatal
	}

	log.Info("import source complete",
		"source", name,
		"total", res.Total,
		"upserted", res.Upserted,
		"skipped", res.Skipped,
		"duration", res.Duration,
	)
	i.recordSource(SourceOK, res.Duration)
	return res, nil
}

func (i *Importer) upsertAll(
	ctx context.Context,
	log *slog.Logger,
	name string,
	items []json.RawMessage,
	res *domain.SourceResult,
	progress *progressReporter,
) error {
	for idx, raw := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		act, err := domain.ParseActivity(raw)
		if err == nil {
			err = i.store.Upsert(ctx, act.ID, act.Payload)
		}

		switch {
		case err == nil:
			res.Upserted++
			i.recordUpserted()
		case errors.Is(err, domain.ErrMissingID), errors.Is(err, domain.ErrInvalidInput):
			res.Skipped++
			i.recordSkipped(skipReason(err))
			i.skipWarn.Do(func() {
				log.Warn("skipping record", "source", name, "index", idx, "error", err)
			})
		default:
			if !errors.Is(err, domain.ErrStorage) && ctx.Err() == nil {
				err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
			}
			return fmt.Errorf("%s: record %d: %w", name, idx, err)
		}
		progress.advance()
	}

	if res.Skipped > 0 {
		log.Warn("records skipped", "source", name, "skipped", res.Skipped)
	}
	return nil
}

// decodeEnvelope returns the orderedItems of an outbox export. It fails
// with ErrStructuralInput unless the source is exactly one JSON object
// whose orderedItems member is an array.
func decodeEnvelope(r io.Reader) ([]json.RawMessage, error) {
	var envelope struct {
		OrderedItems json.RawMessage `json:"orderedItems"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStructuralInput, err)
	}

	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), r))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStructuralInput, err)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("%w: unexpected data after the outbox object", domain.ErrStructuralInput)
	}

	raw := bytes.TrimSpace(envelope.OrderedItems)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, domain.ErrStructuralInput
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStructuralInput, err)
	}
	return items, nil
}

func skipReason(err error) string {
	if errors.Is(err, domain.ErrMissingID) {
		return "missing_id"
	}
	return "invalid"
}

func (i *Importer) recordUpserted() {
	if i.metrics != nil {
		i.metrics.RecordUpserted()
	}
}

func (i *Importer) recordSkipped(reason string) {
	if i.metrics != nil {
		i.metrics.RecordSkipped(reason)
	}
}

func (i *Importer) recordSource(status string, d time.Duration) {
	if i.metrics != nil {
		i.metrics.RecordSource(status, d)
	}
}
