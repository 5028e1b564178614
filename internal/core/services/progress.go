package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// DefaultProgressInterval is the wall-clock cadence of import progress.
const DefaultProgressInterval = time.Second

// ProgressFunc receives import progress. It is called from the telemetry
// goroutine and must not block.
type ProgressFunc func(domain.ImportProgress)

// progressReporter emits progress for one source on a fixed cadence.
// It only reads the counter; the import loop is the only writer.
type progressReporter struct {
	log      *slog.Logger
	interval time.Duration
	notify   ProgressFunc

	source  string
	total   int
	started time.Time
	current atomic.Int64

	cancel context.CancelFunc
	group  errgroup.Group
}

func newProgressReporter(log *slog.Logger, interval time.Duration, notify ProgressFunc, source string, total int) *progressReporter {
	return &progressReporter{
		log:      log,
		interval: interval,
		notify:   notify,
		source:   source,
		total:    total,
		started:  time.Now(),
	}
}

// start launches the telemetry goroutine. Nothing is emitted for empty
// sources or a non-positive interval.
func (p *progressReporter) start(ctx context.Context) {
	if p.total == 0 || p.interval <= 0 {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.group.Go(func() error {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				p.emit(now)
			}
		}
	})
}

// advance records one processed record.
func (p *progressReporter) advance() {
	p.current.Add(1)
}

// stop cancels the telemetry goroutine and waits for it to exit. After stop
// returns no further progress is emitted for this source.
func (p *progressReporter) stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	_ = p.group.Wait()
	p.cancel = nil
}

func (p *progressReporter) snapshot(now time.Time) domain.ImportProgress {
	return domain.NewImportProgress(p.source, p.total, int(p.current.Load()), p.started, now)
}

func (p *progressReporter) emit(now time.Time) {
	prog := p.snapshot(now)
	p.log.Info("import progress",
		"source", prog.Source,
		"current", prog.Current,
		"total", prog.Total,
		"fraction", prog.Fraction(),
		"elapsed", prog.Elapsed,
		"remaining", prog.Remaining,
		"perRecord", prog.PerRecord,
		"perSecond", prog.PerSecond,
	)
	if p.notify != nil {
		p.notify(prog)
	}
}
