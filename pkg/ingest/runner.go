package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/records"
	"github.com/datamolt/searchload/pkg/source"
)

// ProgressLedger records fully-ingested files per collection so runs can
// resume. Implementations must be safe for concurrent use.
type ProgressLedger interface {
	Processed(collection string) (map[string]struct{}, error)
	Add(collection, fileID string) error
	Clear(collection string) error
}

// FailureReporter receives item-level failures for out-of-band reporting.
// Reporting must never fail the run; implementations log their own errors.
type FailureReporter interface {
	Report(ctx context.Context, fileKey string, failed []FailedRecord)
}

// Opener returns the content of a source file.
type Opener interface {
	Open(ctx context.Context, f source.File) (io.ReadCloser, error)
}

// Options control a single run.
type Options struct {
	// Resume skips files the ledger already marks fully ingested.
	Resume bool

	// FreshLoad clears the ledger for the collection before ingestion.
	// Mutually exclusive with Resume; callers validate.
	FreshLoad bool
}

// Runner orchestrates an ingestion run: one file at a time, each file
// pipelined through the dispatcher.
type Runner struct {
	dispatcher *Dispatcher
	opener     Opener
	ledger     ProgressLedger  // optional
	reporter   FailureReporter // optional
	index      string
	runID      string
	logger     *zap.Logger
}

// NewRunner wires the run orchestrator. ledger and reporter may be nil.
func NewRunner(dispatcher *Dispatcher, opener Opener, ledger ProgressLedger, reporter FailureReporter, index, runID string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		dispatcher: dispatcher,
		opener:     opener,
		ledger:     ledger,
		reporter:   reporter,
		index:      index,
		runID:      runID,
		logger:     logger,
	}
}

// Run ingests the given files and returns the aggregated summary.
//
// Per-file errors are captured in FileResults; Run itself only fails on
// ledger clear errors in fresh-load mode. Cancellation stops accepting new
// files but lets the in-flight file complete.
func (r *Runner) Run(ctx context.Context, files []source.File, opts Options) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: r.runID, Collection: r.index}

	if opts.FreshLoad && r.ledger != nil {
		if err := r.ledger.Clear(r.index); err != nil {
			return nil, err
		}
		r.logger.Info("Cleared progress ledger for fresh load",
			zap.String("collection", r.index))
	}

	var processed map[string]struct{}
	if opts.Resume && r.ledger != nil {
		var err error
		processed, err = r.ledger.Processed(r.index)
		if err != nil {
			r.logger.Warn("Failed to read progress ledger, resuming without it",
				zap.Error(err))
			processed = nil
		}
	}

	for _, f := range files {
		if ctx.Err() != nil {
			r.logger.Warn("Run cancelled, skipping remaining files",
				zap.Int("remaining", len(files)-len(summary.Files)-summary.FilesSkipped))
			break
		}

		if _, done := processed[f.ID()]; done {
			summary.FilesSkipped++
			r.logger.Info("Skipping already-ingested file",
				zap.String("file", f.ID()))
			continue
		}

		result := r.processFile(ctx, f)
		summary.Files = append(summary.Files, result)
		summary.FilesProcessed++
		summary.RowsRead += result.RowsRead
		summary.RowsAccepted += result.RowsAccepted

		if result.Status == StatusSuccess && r.ledger != nil {
			if err := r.ledger.Add(r.index, f.ID()); err != nil {
				r.logger.Warn("Failed to record file in progress ledger",
					zap.String("file", f.ID()),
					zap.Error(err))
			}
		}
	}

	summary.Duration = time.Since(start)
	r.logger.Info("Ingestion run complete",
		zap.String("run_id", r.runID),
		zap.String("collection", r.index),
		zap.Int("files_processed", summary.FilesProcessed),
		zap.Int("files_skipped", summary.FilesSkipped),
		zap.Int64("rows_read", summary.RowsRead),
		zap.Int64("rows_accepted", summary.RowsAccepted),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// processFile runs one file through parse and dispatch, converting every
// failure mode into a FileResult.
func (r *Runner) processFile(ctx context.Context, f source.File) FileResult {
	fileStart := time.Now()
	result := FileResult{FileID: f.ID()}

	content, err := r.opener.Open(ctx, f)
	if err != nil {
		r.logger.Error("Failed to open source file",
			zap.String("file", f.ID()),
			zap.Error(err))
		result.Status = StatusError
		result.Message = err.Error()
		return result
	}
	defer func() { _ = content.Close() }()

	rd, err := records.Open(content, f.Type, r.logger)
	if err != nil {
		r.logger.Error("Failed to parse source file",
			zap.String("file", f.ID()),
			zap.Error(err))
		result.Status = StatusError
		result.Message = err.Error()
		return result
	}

	rowsRead, rowsAccepted, failed, err := r.dispatcher.ProcessFile(ctx, f.ID(), rd)
	result.RowsRead = rowsRead
	result.RowsAccepted = rowsAccepted
	if err != nil && !errors.Is(err, context.Canceled) {
		result.Message = err.Error()
	}
	result.Status = deriveStatus(rowsRead, rowsAccepted)

	if len(failed) > 0 && r.reporter != nil {
		r.reporter.Report(ctx, f.ID(), failed)
	}

	r.logger.Info("Processed file",
		zap.String("file", f.ID()),
		zap.Int64("rows_read", rowsRead),
		zap.Int64("rows_accepted", rowsAccepted),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", time.Since(fileStart)))
	return result
}
