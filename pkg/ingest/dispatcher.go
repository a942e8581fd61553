// Package ingest implements the batched, parallel bulk-write pipeline.
//
// For each source file a producer batches row documents onto a bounded
// channel while a fixed pool of dispatcher workers drains it, submitting
// one bulk request per batch. Workers report per-batch outcomes on a
// result channel consumed by a single aggregator, so no counter is shared
// across goroutines. Closing the batch channel ends the workers; context
// cancellation stops new batches while letting in-flight ones finish.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/datamolt/searchload/pkg/records"
	"github.com/datamolt/searchload/pkg/storeclient"
)

// Config tunes the pipeline.
type Config struct {
	// BatchSize is the maximum documents per bulk request.
	BatchSize int

	// Workers is the number of concurrent dispatcher goroutines.
	Workers int

	// RateLimit caps bulk requests per second across all workers.
	// Zero disables limiting.
	RateLimit float64
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: 1000,
		Workers:   4,
	}
}

// BulkClient is the store surface the dispatcher needs.
type BulkClient interface {
	Bulk(ctx context.Context, body []byte) (*storeclient.BulkResponse, error)
}

// Dispatcher turns batches of documents into bulk writes against one
// destination collection.
type Dispatcher struct {
	store   BulkClient
	index   string
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher for the given collection.
func NewDispatcher(store BulkClient, index string, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Dispatcher{
		store:   store,
		index:   index,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// ProcessFile drains the reader through the batch pipeline and returns the
// rows read, rows accepted, and any item-level failures.
//
// rowsRead counts every document the reader produced, including documents
// that later fail at write time. A reader error other than end-of-stream
// stops production; rows already batched still complete.
func (d *Dispatcher) ProcessFile(ctx context.Context, fileID string, rd records.Reader) (rowsRead, rowsAccepted int64, failed []FailedRecord, err error) {
	batchCh := make(chan []records.Document, 2*d.cfg.Workers)
	resultCh := make(chan BatchOutcome, d.cfg.Workers)

	var workerWg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			d.worker(ctx, fileID, batchCh, resultCh)
		}()
	}

	// Single aggregator owns the totals.
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		for outcome := range resultCh {
			rowsAccepted += int64(outcome.Accepted)
			failed = append(failed, outcome.Failed...)
		}
	}()

	// Production runs on the calling goroutine.
	rowsRead, err = d.produce(ctx, rd, batchCh)

	close(batchCh)
	workerWg.Wait()
	close(resultCh)
	<-aggDone

	return rowsRead, rowsAccepted, failed, err
}

// produce reads documents and pushes bounded batches until end-of-stream,
// a reader error, or cancellation. Returns the number of documents seen.
func (d *Dispatcher) produce(ctx context.Context, rd records.Reader, batchCh chan<- []records.Document) (int64, error) {
	var rowsRead int64
	batch := make([]records.Document, 0, d.cfg.BatchSize)

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		select {
		case batchCh <- batch:
			batch = make([]records.Document, 0, d.cfg.BatchSize)
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		doc, err := rd.Next()
		if err != nil {
			if isEOF(err) {
				flush()
				return rowsRead, nil
			}
			flush()
			return rowsRead, fmt.Errorf("read records: %w", err)
		}

		rowsRead++
		batch = append(batch, doc)
		if len(batch) >= d.cfg.BatchSize {
			if !flush() {
				return rowsRead, ctx.Err()
			}
		}
	}
}

// worker drains batches until the channel closes or the context ends.
// An in-flight bulk request always runs to completion or error.
func (d *Dispatcher) worker(ctx context.Context, fileID string, batchCh <-chan []records.Document, resultCh chan<- BatchOutcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batchCh:
			if !ok {
				return
			}
			resultCh <- d.submit(ctx, fileID, batch)
		}
	}
}

// submit sends one batch and interprets the response.
//
// Accounting is all-or-nothing: a transport failure or any item-level
// error credits zero accepted documents for the whole batch, even when a
// subset of items was individually written. Partial writes are surfaced
// through the failure records and count reconciliation instead.
func (d *Dispatcher) submit(ctx context.Context, fileID string, batch []records.Document) BatchOutcome {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return BatchOutcome{}
		}
	}

	body, err := buildBulkBody(d.index, batch)
	if err != nil {
		d.logger.Error("Failed to encode bulk request",
			zap.String("file", fileID),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return BatchOutcome{}
	}

	resp, err := d.store.Bulk(ctx, body)
	if err != nil {
		d.logger.Error("Bulk request failed",
			zap.String("file", fileID),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return BatchOutcome{}
	}

	if resp.Errors {
		failed := collectFailures(batch, resp.Items)
		d.logger.Error("Bulk response reported item errors",
			zap.String("file", fileID),
			zap.Int("batch_size", len(batch)),
			zap.Int("failed_items", len(failed)))
		return BatchOutcome{Failed: failed}
	}

	accepted := len(resp.Items)
	if accepted > len(batch) {
		accepted = len(batch)
	}
	return BatchOutcome{Accepted: accepted}
}

// buildBulkBody renders the NDJSON bulk request: one action line pairing
// "index into the collection" (with explicit _id when the document carries
// one) followed by the document line.
func buildBulkBody(index string, batch []records.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, doc := range batch {
		action := map[string]map[string]string{"index": {"_index": index}}
		if id, ok := doc.ID(); ok {
			action["index"]["_id"] = id
		}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// collectFailures pairs item results with the submitted documents.
// Item order matches submission order, so failed item i is document i.
func collectFailures(batch []records.Document, items []storeclient.BulkItemResult) []FailedRecord {
	var failed []FailedRecord
	for i, item := range items {
		if item.Status < 400 {
			continue
		}
		rec := FailedRecord{DocumentID: item.ID, ErrorType: "item_error", ErrorReason: "bulk item rejected"}
		if item.Error != nil {
			rec.ErrorType = item.Error.Type
			rec.ErrorReason = item.Error.Reason
		}
		if i < len(batch) {
			rec.Document = batch[i]
			if rec.DocumentID == "" {
				if id, ok := batch[i].ID(); ok {
					rec.DocumentID = id
				}
			}
		}
		failed = append(failed, rec)
	}
	return failed
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
