package storeclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Endpoint: srv.URL, Username: "loader", Password: "secret"})
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, Config{Endpoint: "http://localhost:9200"}.Validate())
}

func TestDoSendsBasicAuth(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	resp, err := c.Do(context.Background(), http.MethodGet, "/", nil, "")
	require.NoError(t, err)
	assert.True(t, resp.OK())

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("loader:secret"))
	assert.Equal(t, want, gotAuth)
}

func TestIndexExists(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/present" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	exists, err := c.IndexExists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.IndexExists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCount(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/things/_count", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 1234}`))
	}))

	count, err := c.Count(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
}

func TestResolveAlias(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cat/aliases/things", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"alias": "things", "index": "things-v1"}]`))
	}))

	entries, err := c.ResolveAlias(context.Background(), "things")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "things-v1", entries[0].Index)
}

func TestResolveAliasMissing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	entries, err := c.ResolveAlias(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBulkParsesItems(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"took": 5,
			"errors": true,
			"items": [
				{"index": {"_id": "1", "status": 201}},
				{"index": {"_id": "2", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "bad value"}}}
			]
		}`))
	}))

	resp, err := c.Bulk(context.Background(), []byte(`{"index":{"_index":"things"}}`+"\n{}\n"))
	require.NoError(t, err)

	assert.True(t, resp.Errors)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 201, resp.Items[0].Status)
	require.NotNil(t, resp.Items[1].Error)
	assert.Equal(t, "mapper_parsing_exception", resp.Items[1].Error.Type)
}

func TestBulkServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Bulk(context.Background(), []byte("{}\n"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDeleteByQueryMatchAll(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/things/_delete_by_query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deleted": 42}`))
	}))

	deleted, err := c.DeleteByQueryMatchAll(context.Background(), "things")
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"bad request", http.StatusBadRequest, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := c.Count(context.Background(), "things")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
