package reindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamolt/searchload/pkg/indexsafety"
	"github.com/datamolt/searchload/pkg/storeclient"
)

// fakeStore tracks two indices for reindex scenarios.
type fakeStore struct {
	counts  map[string]int64
	aliases map[string][]string

	purged     []string
	reindexed  bool
	lastSource string
	lastTarget string
}

func (f *fakeStore) IndexExists(ctx context.Context, index string) (bool, error) {
	_, ok := f.counts[index]
	return ok, nil
}

func (f *fakeStore) Aliases(ctx context.Context, index string) ([]string, error) {
	return f.aliases[index], nil
}

func (f *fakeStore) Count(ctx context.Context, index string) (int64, error) {
	return f.counts[index], nil
}

func (f *fakeStore) DeleteByQueryMatchAll(ctx context.Context, index string) (int64, error) {
	f.purged = append(f.purged, index)
	n := f.counts[index]
	f.counts[index] = 0
	return n, nil
}

func (f *fakeStore) ForceMerge(ctx context.Context, index string) error { return nil }

func (f *fakeStore) Settings(ctx context.Context, index string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeStore) Mappings(ctx context.Context, index string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeStore) DeleteIndex(ctx context.Context, index string) error {
	delete(f.counts, index)
	return nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error {
	f.counts[index] = 0
	return nil
}

func (f *fakeStore) Reindex(ctx context.Context, source, target string) (*storeclient.ReindexResult, error) {
	f.reindexed = true
	f.lastSource = source
	f.lastTarget = target
	n := f.counts[source]
	f.counts[target] = n
	return &storeclient.ReindexResult{Total: n, Created: n}, nil
}

func newRunner(store *fakeStore) *Runner {
	cleaner := indexsafety.NewManager(store, indexsafety.Config{}, nil)
	return NewRunner(store, cleaner, nil)
}

func TestRunCopiesSource(t *testing.T) {
	store := &fakeStore{counts: map[string]int64{"things-v1": 500, "things-v2": 10}}
	r := newRunner(store)

	result, err := r.Run(context.Background(), "things-v1", "things-v2")
	require.NoError(t, err)

	assert.True(t, store.reindexed)
	assert.Equal(t, "things-v1", store.lastSource)
	assert.Equal(t, "things-v2", store.lastTarget)
	assert.Equal(t, int64(500), result.Total)
	assert.Equal(t, int64(500), result.Created)

	// Target was emptied before the copy.
	assert.Contains(t, store.purged, "things-v2")
}

func TestRunMissingSource(t *testing.T) {
	store := &fakeStore{counts: map[string]int64{"things-v2": 0}}
	r := newRunner(store)

	_, err := r.Run(context.Background(), "things-v1", "things-v2")
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.False(t, store.reindexed)
}

func TestRunEmptySource(t *testing.T) {
	store := &fakeStore{counts: map[string]int64{"things-v1": 0, "things-v2": 0}}
	r := newRunner(store)

	_, err := r.Run(context.Background(), "things-v1", "things-v2")
	assert.ErrorIs(t, err, ErrSourceEmpty)
	assert.False(t, store.reindexed)
}

func TestRunAliasedTargetRefused(t *testing.T) {
	store := &fakeStore{
		counts:  map[string]int64{"things-v1": 500, "things-v2": 10},
		aliases: map[string][]string{"things-v2": {"things"}},
	}
	r := newRunner(store)

	_, err := r.Run(context.Background(), "things-v1", "things-v2")
	assert.ErrorIs(t, err, indexsafety.ErrIndexAliased)
	assert.False(t, store.reindexed)
}
