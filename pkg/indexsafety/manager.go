// Package indexsafety guards the destination index before an ingestion
// run: small indices are purged in place, large ones are dropped and
// recreated with their settings and mappings, and aliased indices are
// refused outright.
package indexsafety

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrIndexAliased means the index is an alias target and must not be
// cleaned; write paths go through alias cutover instead.
var ErrIndexAliased = errors.New("index is bound to an alias")

// DefaultRecreateThreshold is the document count above which purging in
// place is slower than dropping and recreating the index.
const DefaultRecreateThreshold int64 = 1_000_000

// Action records what the cleanup decided to do.
type Action string

const (
	ActionNone     Action = "none"
	ActionPurged   Action = "purged"
	ActionRecreate Action = "recreated"
)

// Result reports a cleanup outcome.
type Result struct {
	Index   string `json:"index"`
	Action  Action `json:"action"`
	Deleted int64  `json:"deleted,omitempty"`
	Count   int64  `json:"count"`
}

// Store is the index surface cleanup needs.
type Store interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	Aliases(ctx context.Context, index string) ([]string, error)
	Count(ctx context.Context, index string) (int64, error)
	DeleteByQueryMatchAll(ctx context.Context, index string) (int64, error)
	ForceMerge(ctx context.Context, index string) error
	Settings(ctx context.Context, index string) (map[string]any, error)
	Mappings(ctx context.Context, index string) (map[string]any, error)
	DeleteIndex(ctx context.Context, index string) error
	CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error
}

// Config tunes cleanup behavior.
type Config struct {
	// RecreateThreshold is the document count above which the index is
	// recreated instead of purged. Zero selects the default.
	RecreateThreshold int64
}

// Manager performs guarded index cleanup.
type Manager struct {
	store     Store
	threshold int64
	logger    *zap.Logger
}

// NewManager builds a cleanup manager.
func NewManager(store Store, cfg Config, logger *zap.Logger) *Manager {
	if cfg.RecreateThreshold <= 0 {
		cfg.RecreateThreshold = DefaultRecreateThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, threshold: cfg.RecreateThreshold, logger: logger}
}

// ValidateAndCleanup empties the index ahead of a full load.
//
// A missing index is a successful no-op. An aliased index returns
// ErrIndexAliased without touching anything. Otherwise the index is
// purged in place when its count is at or below the threshold, or
// dropped and recreated with its original settings and mappings when
// above it.
func (m *Manager) ValidateAndCleanup(ctx context.Context, index string) (*Result, error) {
	exists, err := m.store.IndexExists(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("check index %s: %w", index, err)
	}
	if !exists {
		m.logger.Info("Index does not exist, nothing to clean",
			zap.String("index", index))
		return &Result{Index: index, Action: ActionNone}, nil
	}

	aliases, err := m.store.Aliases(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("check aliases for %s: %w", index, err)
	}
	if len(aliases) > 0 {
		m.logger.Error("Refusing to clean aliased index",
			zap.String("index", index),
			zap.Strings("aliases", aliases))
		return nil, fmt.Errorf("%w: %s -> %v", ErrIndexAliased, index, aliases)
	}

	count, err := m.store.Count(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", index, err)
	}

	if count <= m.threshold {
		return m.purge(ctx, index, count)
	}
	return m.recreate(ctx, index, count)
}

func (m *Manager) purge(ctx context.Context, index string, count int64) (*Result, error) {
	deleted, err := m.store.DeleteByQueryMatchAll(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("purge %s: %w", index, err)
	}
	if err := m.store.ForceMerge(ctx, index); err != nil {
		return nil, fmt.Errorf("force merge %s: %w", index, err)
	}
	m.logger.Info("Purged index in place",
		zap.String("index", index),
		zap.Int64("deleted", deleted))
	return &Result{Index: index, Action: ActionPurged, Deleted: deleted, Count: count}, nil
}

func (m *Manager) recreate(ctx context.Context, index string, count int64) (*Result, error) {
	settings, err := m.store.Settings(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("fetch settings for %s: %w", index, err)
	}
	mappings, err := m.store.Mappings(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("fetch mappings for %s: %w", index, err)
	}

	settings = stripServerSettings(settings)

	if err := m.store.DeleteIndex(ctx, index); err != nil {
		return nil, fmt.Errorf("drop %s: %w", index, err)
	}
	if err := m.store.CreateIndex(ctx, index, settings, mappings); err != nil {
		return nil, fmt.Errorf("recreate %s: %w", index, err)
	}
	m.logger.Info("Recreated index",
		zap.String("index", index),
		zap.Int64("previous_count", count))
	return &Result{Index: index, Action: ActionRecreate, Deleted: count, Count: count}, nil
}

// stripServerSettings removes the server-assigned settings that cannot be
// supplied back on index creation.
func stripServerSettings(settings map[string]any) map[string]any {
	idx, ok := settings["index"].(map[string]any)
	if !ok {
		return settings
	}
	for _, key := range []string{"creation_date", "uuid", "version", "provided_name"} {
		delete(idx, key)
	}
	return settings
}
