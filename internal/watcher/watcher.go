// Package watcher bridges newly deposited billing CSVs from the bucket into
// InfluxDB, at-least-once per file, on a fixed polling interval.
package watcher

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/costs"
	"github.com/tanujbhatia24/capstone-herovired/internal/ledger"
)

// ObjectStore is the slice of the bucket client the loop needs.
type ObjectStore interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// PointWriter is the slice of the time-series sink the loop needs.
type PointWriter interface {
	WriteRecords(ctx context.Context, records []costs.Record) error
	PurgeBefore(ctx context.Context, cutoff time.Time) error
}

// Options configures a Watcher.
type Options struct {
	Prefix        string
	LedgerKey     string        // excluded from polling; it lives under the same bucket
	Interval      time.Duration // polling cadence, also the retry cadence
	RetentionDays int           // 0 disables the purge
}

// Watcher owns the poll-parse-write loop. Single-threaded: one cycle runs to
// completion before the next begins.
type Watcher struct {
	store  ObjectStore
	ledger ledger.Ledger
	writer PointWriter
	opts   Options
	logger *zap.Logger
}

// CycleStats summarizes one polling cycle for the per-cycle log line.
type CycleStats struct {
	FilesFound     int
	FilesProcessed int
	RowsWritten    int
	RowsSkipped    int
	Errors         int
}

func New(store ObjectStore, lg ledger.Ledger, writer PointWriter, opts Options, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:  store,
		ledger: lg,
		writer: writer,
		opts:   opts,
		logger: logger,
	}
}

// Run polls until the context is cancelled. The first cycle runs immediately.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Watcher started",
		zap.String("prefix", w.opts.Prefix),
		zap.Duration("interval", w.opts.Interval),
		zap.Int("retention_days", w.opts.RetentionDays))

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		w.RunCycle(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// RunCycle executes one full cycle: retention purge, poll, then
// ingest+flush+mark per new key. A per-file failure is logged and the loop
// moves on; the next cycle retries it.
func (w *Watcher) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats

	w.purgeOldPoints(ctx, &stats)

	keys, err := w.poll(ctx)
	if err != nil {
		w.logger.Error("Failed to list bucket", zap.Error(err))
		stats.Errors++
		return stats
	}
	stats.FilesFound = len(keys)

	for _, key := range keys {
		written, skipped, err := w.ingestFile(ctx, key)
		stats.RowsWritten += written
		stats.RowsSkipped += skipped
		if err != nil {
			// Persistent failures here repeat every cycle until an operator
			// removes or fixes the file; error level keeps them visible.
			w.logger.Error("Failed to ingest file",
				zap.String("key", key),
				zap.Error(err))
			stats.Errors++
			continue
		}
		stats.FilesProcessed++
	}

	w.logger.Info("Cycle complete",
		zap.Int("files_found", stats.FilesFound),
		zap.Int("files_processed", stats.FilesProcessed),
		zap.Int("rows_written", stats.RowsWritten),
		zap.Int("rows_skipped", stats.RowsSkipped),
		zap.Int("errors", stats.Errors))

	return stats
}

// poll lists keys under the prefix and filters out the ledger document and
// everything already processed. Keys sort by name, and daily file names embed
// the date, so the result is in date order.
func (w *Watcher) poll(ctx context.Context) ([]string, error) {
	keys, err := w.store.ListKeys(ctx, w.opts.Prefix)
	if err != nil {
		return nil, err
	}

	fresh := keys[:0]
	for _, key := range keys {
		if key == w.opts.LedgerKey || w.ledger.IsProcessed(key) {
			continue
		}
		fresh = append(fresh, key)
	}
	sort.Strings(fresh)

	return fresh, nil
}

// ingestFile fetches, parses, and flushes one file, marking it processed only
// after the whole flush succeeded. Returns rows written and rows skipped.
func (w *Watcher) ingestFile(ctx context.Context, key string) (int, int, error) {
	w.logger.Info("Processing file", zap.String("key", key))

	data, err := w.store.Get(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	records, skipped, err := costs.ParseReport(data)
	if err != nil {
		return 0, 0, err
	}
	if skipped > 0 {
		w.logger.Warn("Skipped malformed rows",
			zap.String("key", key),
			zap.Int("skipped", skipped))
	}

	if len(records) == 0 {
		// An empty export is a valid day with no billable usage; retrying it
		// forever would just re-read the same empty file.
		w.logger.Warn("File has no valid rows, marking processed",
			zap.String("key", key),
			zap.Int("skipped", skipped))
		if err := w.ledger.MarkProcessed(ctx, key); err != nil {
			return 0, skipped, err
		}
		return 0, skipped, nil
	}

	if err := w.writer.WriteRecords(ctx, records); err != nil {
		// Not marked: the next cycle retries the whole file.
		return 0, skipped, err
	}

	if err := w.ledger.MarkProcessed(ctx, key); err != nil {
		// Points are in; a re-run overwrites them. Still an error so the
		// operator sees the ledger write failing.
		return len(records), skipped, err
	}

	w.logger.Info("File ingested",
		zap.String("key", key),
		zap.Int("rows", len(records)),
		zap.Int("skipped", skipped))

	return len(records), skipped, nil
}

func (w *Watcher) purgeOldPoints(ctx context.Context, stats *CycleStats) {
	if w.opts.RetentionDays <= 0 {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -w.opts.RetentionDays)
	if err := w.writer.PurgeBefore(ctx, cutoff); err != nil {
		w.logger.Error("Failed to purge old points",
			zap.Time("cutoff", cutoff),
			zap.Error(err))
		stats.Errors++
		return
	}
	w.logger.Debug("Purged points older than cutoff", zap.Time("cutoff", cutoff))
}
