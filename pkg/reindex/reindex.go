// Package reindex drives a server-side copy of one index into another,
// cleaning the target first so the copy starts from empty.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/indexsafety"
	"github.com/datamolt/searchload/pkg/storeclient"
)

var (
	// ErrSourceMissing means the source index does not exist.
	ErrSourceMissing = errors.New("source index does not exist")

	// ErrSourceEmpty means the source index holds no documents.
	ErrSourceEmpty = errors.New("source index is empty")
)

// Store is the index surface a reindex needs.
type Store interface {
	indexsafety.Store
	Reindex(ctx context.Context, source, target string) (*storeclient.ReindexResult, error)
}

// Result reports a completed reindex.
type Result struct {
	Source  string        `json:"source"`
	Target  string        `json:"target"`
	Total   int64         `json:"total"`
	Created int64         `json:"created"`
	Failed  int64         `json:"failed"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Runner copies indices server side.
type Runner struct {
	store   Store
	cleaner *indexsafety.Manager
	logger  *zap.Logger
}

// NewRunner builds a reindex runner. The cleaner guards the target the
// same way an ingestion run guards its destination.
func NewRunner(store Store, cleaner *indexsafety.Manager, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, cleaner: cleaner, logger: logger}
}

// Run validates the source, cleans the target, and performs the copy.
func (r *Runner) Run(ctx context.Context, source, target string) (*Result, error) {
	start := time.Now()

	exists, err := r.store.IndexExists(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("check source %s: %w", source, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, source)
	}

	count, err := r.store.Count(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("count source %s: %w", source, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceEmpty, source)
	}

	if _, err := r.cleaner.ValidateAndCleanup(ctx, target); err != nil {
		return nil, fmt.Errorf("clean target %s: %w", target, err)
	}

	res, err := r.store.Reindex(ctx, source, target)
	if err != nil {
		return nil, fmt.Errorf("reindex %s -> %s: %w", source, target, err)
	}

	result := &Result{
		Source:  source,
		Target:  target,
		Total:   res.Total,
		Created: res.Created,
		Failed:  res.Failed,
		Elapsed: time.Since(start),
	}
	r.logger.Info("Reindex complete",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("total", res.Total),
		zap.Int64("created", res.Created),
		zap.Int64("failed", res.Failed),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}
