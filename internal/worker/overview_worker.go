package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/debounce"
	"expenses/internal/log"
	"expenses/internal/overview"
	"expenses/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// exportTimeout bounds one debounced export.
const exportTimeout = 2 * time.Minute

// Source is the aggregate side of the transaction store.
type Source interface {
	SourceTotals(ctx context.Context) ([]overview.SourceTotal, error)
	SourceTagTotals(ctx context.Context) ([]overview.SourceTagTotal, error)
	ExpensesByYearTag(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error)
}

// OverviewWorker keeps the exported overview in step with tag edits.
// Bursts of TagsChanged events collapse into one export.
type OverviewWorker struct {
	source   Source
	exporter sheets.Exporter
	logger   *log.Logger
	debounce *debounce.Debouncer[string]

	// mu serializes exports.
	mu sync.Mutex
}

func NewOverviewWorker(source Source, exporter sheets.Exporter, window time.Duration) *OverviewWorker {
	w := &OverviewWorker{
		source:   source,
		exporter: exporter,
		logger:   log.Default().WithComponent(log.ComponentWorker),
	}
	w.debounce = debounce.New(window, w.exportAfterEvent)
	return w
}

// HandleTagsChanged schedules an export. It never fails, so the message
// is always acked.
func (w *OverviewWorker) HandleTagsChanged(ctx context.Context, msg *amqp.TagsChangedMessage) error {
	w.logger.InfoContext(ctx, "Tags changed",
		log.FieldEventID, msg.EventID,
		log.FieldTagOp, msg.Op,
		log.FieldTxnCount, len(msg.IDs))
	w.debounce.Trigger(msg.EventID)
	return nil
}

func (w *OverviewWorker) exportAfterEvent(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	if err := w.Export(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Export after tag change failed",
			log.FieldEventID, eventID,
			log.FieldError, err.Error())
	}
}

// Export recomputes the overview and yearly rows and writes both.
func (w *OverviewWorker) Export(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		sources []overview.SourceTotal
		tags    []overview.SourceTagTotal
		yearly  []overview.YearTag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sources, err = w.source.SourceTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		tags, err = w.source.SourceTagTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		yearly, err = w.source.ExpensesByYearTag(gctx, 0, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load aggregates: %w", err)
	}

	rows := overview.Build(sources, tags)
	if _, err := w.exporter.WriteOverview(ctx, rows); err != nil {
		return fmt.Errorf("write overview: %w", err)
	}
	if _, err := w.exporter.WriteYearly(ctx, yearly); err != nil {
		return fmt.Errorf("write yearly: %w", err)
	}

	w.logger.InfoContext(ctx, "Exported overview",
		log.FieldRows, len(rows),
		"yearly_rows", len(yearly))
	return nil
}

// Run exports once, then every interval until ctx is done. A zero
// interval disables the periodic export.
func (w *OverviewWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.Export(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", log.FieldError, err.Error())
	}
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err.Error())
			}
		}
	}
}

// Flush runs a pending debounced export now.
func (w *OverviewWorker) Flush() {
	w.debounce.Flush()
}

// Close drops any pending export.
func (w *OverviewWorker) Close() {
	w.debounce.Stop()
}
