// Package aliascut atomically repoints a read alias from one index to
// another, refusing the cutover when the target's document count has
// drifted too far from the source's.
package aliascut

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/storeclient"
)

// DefaultDriftThreshold is the maximum tolerated percentage difference
// between source and target counts before a cutover is refused.
const DefaultDriftThreshold = 10.0

var (
	// ErrAliasUnresolved means the alias does not point at any index.
	ErrAliasUnresolved = errors.New("alias does not resolve to an index")

	// ErrIndexMissing means one of the named indices does not exist.
	ErrIndexMissing = errors.New("index does not exist")

	// ErrEmptyTarget means the target index is empty while the source
	// holds documents, which would black-hole the alias.
	ErrEmptyTarget = errors.New("target index is empty")

	// ErrDriftExceeded means the count difference is above the threshold.
	ErrDriftExceeded = errors.New("document count drift exceeds threshold")
)

// Store is the alias/index surface a cutover needs.
type Store interface {
	ResolveAlias(ctx context.Context, alias string) ([]storeclient.AliasEntry, error)
	IndexExists(ctx context.Context, index string) (bool, error)
	Count(ctx context.Context, index string) (int64, error)
	UpdateAliases(ctx context.Context, actions []storeclient.AliasAction) error
}

// Config tunes cutover validation.
type Config struct {
	// DriftThreshold is the maximum percentage count difference allowed.
	// Zero selects the default.
	DriftThreshold float64
}

// Result reports a completed cutover.
type Result struct {
	Alias       string        `json:"alias"`
	Source      string        `json:"source"`
	Target      string        `json:"target"`
	SourceCount int64         `json:"source_count"`
	TargetCount int64         `json:"target_count"`
	DriftPct    float64       `json:"drift_pct"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Switcher performs drift-validated alias cutovers.
type Switcher struct {
	store     Store
	threshold float64
	logger    *zap.Logger
}

// NewSwitcher builds a cutover switcher.
func NewSwitcher(store Store, cfg Config, logger *zap.Logger) *Switcher {
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = DefaultDriftThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Switcher{store: store, threshold: cfg.DriftThreshold, logger: logger}
}

// Switch moves the alias from source to target in one atomic alias
// update, after validating that the alias currently resolves to source,
// both indices exist, and the counts are within the drift threshold.
func (s *Switcher) Switch(ctx context.Context, alias, source, target string) (*Result, error) {
	start := time.Now()

	entries, err := s.store.ResolveAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("resolve alias %s: %w", alias, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAliasUnresolved, alias)
	}
	bound := false
	for _, e := range entries {
		if e.Index == source {
			bound = true
			break
		}
	}
	if !bound {
		return nil, fmt.Errorf("alias %s does not point at %s (currently: %s)", alias, source, entries[0].Index)
	}

	for _, index := range []string{source, target} {
		exists, err := s.store.IndexExists(ctx, index)
		if err != nil {
			return nil, fmt.Errorf("check index %s: %w", index, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrIndexMissing, index)
		}
	}

	sourceCount, err := s.store.Count(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", source, err)
	}
	targetCount, err := s.store.Count(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", target, err)
	}

	if targetCount == 0 && sourceCount > 0 {
		return nil, fmt.Errorf("%w: %s has 0 documents while %s has %d", ErrEmptyTarget, target, source, sourceCount)
	}

	drift := percentDiff(sourceCount, targetCount)
	if drift > s.threshold {
		return nil, fmt.Errorf("%w: source=%d target=%d diff=%.2f%% threshold=%.2f%%",
			ErrDriftExceeded, sourceCount, targetCount, drift, s.threshold)
	}

	actions := []storeclient.AliasAction{
		{Remove: &storeclient.AliasTarget{Index: source, Alias: alias}},
		{Add: &storeclient.AliasTarget{Index: target, Alias: alias}},
	}
	if err := s.store.UpdateAliases(ctx, actions); err != nil {
		return nil, fmt.Errorf("update alias %s: %w", alias, err)
	}

	result := &Result{
		Alias:       alias,
		Source:      source,
		Target:      target,
		SourceCount: sourceCount,
		TargetCount: targetCount,
		DriftPct:    drift,
		Elapsed:     time.Since(start),
	}
	s.logger.Info("Switched alias",
		zap.String("alias", alias),
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("source_count", sourceCount),
		zap.Int64("target_count", targetCount),
		zap.Float64("drift_pct", drift),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

// percentDiff returns the count difference as a percentage of the larger
// count. Two zero counts have zero drift.
func percentDiff(a, b int64) float64 {
	if a == b {
		return 0
	}
	max, min := a, b
	if b > a {
		max, min = b, a
	}
	return float64(max-min) / float64(max) * 100
}
