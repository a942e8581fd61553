package indexsafety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore simulates one index for cleanup scenarios.
type fakeStore struct {
	exists   bool
	aliases  []string
	count    int64
	settings map[string]any
	mappings map[string]any

	purged    bool
	merged    bool
	deleted   bool
	recreated bool

	createdSettings map[string]any
	createdMappings map[string]any
}

func (f *fakeStore) IndexExists(ctx context.Context, index string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) Aliases(ctx context.Context, index string) ([]string, error) {
	return f.aliases, nil
}

func (f *fakeStore) Count(ctx context.Context, index string) (int64, error) {
	return f.count, nil
}

func (f *fakeStore) DeleteByQueryMatchAll(ctx context.Context, index string) (int64, error) {
	f.purged = true
	return f.count, nil
}

func (f *fakeStore) ForceMerge(ctx context.Context, index string) error {
	f.merged = true
	return nil
}

func (f *fakeStore) Settings(ctx context.Context, index string) (map[string]any, error) {
	return f.settings, nil
}

func (f *fakeStore) Mappings(ctx context.Context, index string) (map[string]any, error) {
	return f.mappings, nil
}

func (f *fakeStore) DeleteIndex(ctx context.Context, index string) error {
	f.deleted = true
	return nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error {
	f.recreated = true
	f.createdSettings = settings
	f.createdMappings = mappings
	return nil
}

func TestCleanupMissingIndexIsNoop(t *testing.T) {
	store := &fakeStore{exists: false}
	m := NewManager(store, Config{}, nil)

	result, err := m.ValidateAndCleanup(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
	assert.False(t, store.purged)
	assert.False(t, store.deleted)
}

func TestCleanupRefusesAliasedIndex(t *testing.T) {
	store := &fakeStore{exists: true, aliases: []string{"things-read"}}
	m := NewManager(store, Config{}, nil)

	_, err := m.ValidateAndCleanup(context.Background(), "things")
	assert.ErrorIs(t, err, ErrIndexAliased)
	assert.False(t, store.purged)
	assert.False(t, store.deleted)
}

func TestCleanupSmallIndexPurgesInPlace(t *testing.T) {
	store := &fakeStore{exists: true, count: 50_000}
	m := NewManager(store, Config{}, nil)

	result, err := m.ValidateAndCleanup(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, ActionPurged, result.Action)
	assert.Equal(t, int64(50_000), result.Deleted)
	assert.True(t, store.purged)
	assert.True(t, store.merged)
	assert.False(t, store.deleted)
}

func TestCleanupAtThresholdPurges(t *testing.T) {
	store := &fakeStore{exists: true, count: DefaultRecreateThreshold}
	m := NewManager(store, Config{}, nil)

	result, err := m.ValidateAndCleanup(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, ActionPurged, result.Action)
}

func TestCleanupLargeIndexRecreates(t *testing.T) {
	store := &fakeStore{
		exists: true,
		count:  2_000_000,
		settings: map[string]any{
			"index": map[string]any{
				"number_of_shards":   "3",
				"number_of_replicas": "1",
				"creation_date":      "1693000000000",
				"uuid":               "abc123",
				"version":            map[string]any{"created": "136357827"},
				"provided_name":      "things",
			},
		},
		mappings: map[string]any{
			"properties": map[string]any{"name": map[string]any{"type": "keyword"}},
		},
	}
	m := NewManager(store, Config{}, nil)

	result, err := m.ValidateAndCleanup(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, ActionRecreate, result.Action)
	assert.True(t, store.deleted)
	assert.True(t, store.recreated)
	assert.False(t, store.purged)

	// Server-assigned settings must not be replayed on creation.
	idx := store.createdSettings["index"].(map[string]any)
	assert.NotContains(t, idx, "creation_date")
	assert.NotContains(t, idx, "uuid")
	assert.NotContains(t, idx, "version")
	assert.NotContains(t, idx, "provided_name")
	assert.Equal(t, "3", idx["number_of_shards"])

	assert.Equal(t, store.mappings, store.createdMappings)
}

func TestCleanupCustomThreshold(t *testing.T) {
	store := &fakeStore{exists: true, count: 1_000, settings: map[string]any{}, mappings: map[string]any{}}
	m := NewManager(store, Config{RecreateThreshold: 500}, nil)

	result, err := m.ValidateAndCleanup(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, ActionRecreate, result.Action)
}
