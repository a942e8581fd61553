package storeclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// IndexExists reports whether the named index exists (HEAD /{index}).
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	path := "/" + url.PathEscape(index)
	resp, err := c.Do(ctx, http.MethodHead, path, nil, "")
	if err != nil {
		return false, err
	}
	switch {
	case resp.OK():
		return true, nil
	case resp.StatusCode == 404:
		return false, nil
	default:
		return false, wrapStatus("IndexExists", path, resp.StatusCode)
	}
}

// Count returns the live document count of an index (GET /{index}/_count).
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	path := "/" + url.PathEscape(index) + "/_count"
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, wrapStatus("Count", path, resp.StatusCode)
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := resp.JSON(&body); err != nil {
		return 0, &StoreError{Op: "Count", Path: path, Status: resp.StatusCode, Err: err}
	}
	return body.Count, nil
}

// Aliases returns the alias names bound to an index (GET /{index}/_alias).
func (c *Client) Aliases(ctx context.Context, index string) ([]string, error) {
	path := "/" + url.PathEscape(index) + "/_alias"
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, wrapStatus("Aliases", path, resp.StatusCode)
	}

	// Response shape: {"<index>": {"aliases": {"<alias>": {...}}}}
	var body map[string]struct {
		Aliases map[string]any `json:"aliases"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, &StoreError{Op: "Aliases", Path: path, Status: resp.StatusCode, Err: err}
	}

	var names []string
	if entry, ok := body[index]; ok {
		for name := range entry.Aliases {
			names = append(names, name)
		}
	}
	return names, nil
}

// AliasEntry is one row of an alias resolution (GET /_cat/aliases).
type AliasEntry struct {
	Alias string `json:"alias"`
	Index string `json:"index"`
}

// ResolveAlias returns the indices an alias currently points at.
// Returns an empty slice when the alias does not exist.
func (c *Client) ResolveAlias(ctx context.Context, alias string) ([]AliasEntry, error) {
	path := "/_cat/aliases/" + url.PathEscape(alias) + "?format=json"
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if !resp.OK() {
		return nil, wrapStatus("ResolveAlias", path, resp.StatusCode)
	}
	var entries []AliasEntry
	if err := resp.JSON(&entries); err != nil {
		return nil, &StoreError{Op: "ResolveAlias", Path: path, Status: resp.StatusCode, Err: err}
	}
	return entries, nil
}

// Settings returns the index settings object (GET /{index}/_settings),
// unwrapped to the value of the "settings" key.
func (c *Client) Settings(ctx context.Context, index string) (map[string]any, error) {
	path := "/" + url.PathEscape(index) + "/_settings"
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, wrapStatus("Settings", path, resp.StatusCode)
	}
	var body map[string]struct {
		Settings map[string]any `json:"settings"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, &StoreError{Op: "Settings", Path: path, Status: resp.StatusCode, Err: err}
	}
	entry, ok := body[index]
	if !ok {
		return nil, &StoreError{Op: "Settings", Path: path, Status: resp.StatusCode, Err: fmt.Errorf("index %s missing from settings response", index)}
	}
	return entry.Settings, nil
}

// Mappings returns the index mappings object (GET /{index}/_mapping),
// unwrapped to the value of the "mappings" key.
func (c *Client) Mappings(ctx context.Context, index string) (map[string]any, error) {
	path := "/" + url.PathEscape(index) + "/_mapping"
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, wrapStatus("Mappings", path, resp.StatusCode)
	}
	var body map[string]struct {
		Mappings map[string]any `json:"mappings"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, &StoreError{Op: "Mappings", Path: path, Status: resp.StatusCode, Err: err}
	}
	entry, ok := body[index]
	if !ok {
		return nil, &StoreError{Op: "Mappings", Path: path, Status: resp.StatusCode, Err: fmt.Errorf("index %s missing from mapping response", index)}
	}
	return entry.Mappings, nil
}

// BulkItemError describes a per-item rejection inside a bulk response.
type BulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkItemResult is the outcome of one action in a bulk response.
type BulkItemResult struct {
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *BulkItemError `json:"error,omitempty"`
}

// BulkResponse is the parsed body of a bulk write response. Items preserve
// the submission order, which callers rely on for failure attribution.
type BulkResponse struct {
	Took   int64
	Errors bool
	Items  []BulkItemResult
}

// Bulk submits an NDJSON bulk body (POST /_bulk) and parses per-item
// outcomes. A non-2xx response is returned as an error: the caller treats
// the whole batch as unwritten.
func (c *Client) Bulk(ctx context.Context, body []byte) (*BulkResponse, error) {
	const path = "/_bulk"
	resp, err := c.Do(ctx, http.MethodPost, path, bytes.NewReader(body), contentTypeNDJSON)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, wrapStatus("Bulk", path, resp.StatusCode)
	}

	// Each item is {"<action>": {...result...}}; the action key varies
	// (index, create, update) so unwrap the single entry.
	var raw struct {
		Took   int64                       `json:"took"`
		Errors bool                        `json:"errors"`
		Items  []map[string]BulkItemResult `json:"items"`
	}
	if err := resp.JSON(&raw); err != nil {
		return nil, &StoreError{Op: "Bulk", Path: path, Status: resp.StatusCode, Err: err}
	}

	out := &BulkResponse{Took: raw.Took, Errors: raw.Errors, Items: make([]BulkItemResult, 0, len(raw.Items))}
	for _, item := range raw.Items {
		for _, result := range item {
			out.Items = append(out.Items, result)
			break
		}
	}
	return out, nil
}

// DeleteByQueryMatchAll deletes every document in an index and returns the
// deleted count (POST /{index}/_delete_by_query with a match_all query).
func (c *Client) DeleteByQueryMatchAll(ctx context.Context, index string) (int64, error) {
	path := "/" + url.PathEscape(index) + "/_delete_by_query"
	body := map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	resp, err := c.doJSON(ctx, http.MethodPost, path, body)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, wrapStatus("DeleteByQuery", path, resp.StatusCode)
	}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := resp.JSON(&out); err != nil {
		return 0, &StoreError{Op: "DeleteByQuery", Path: path, Status: resp.StatusCode, Err: err}
	}
	return out.Deleted, nil
}

// ForceMerge reclaims space from deleted documents (POST /{index}/_forcemerge).
func (c *Client) ForceMerge(ctx context.Context, index string) error {
	path := "/" + url.PathEscape(index) + "/_forcemerge"
	resp, err := c.Do(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return err
	}
	if !resp.OK() {
		return wrapStatus("ForceMerge", path, resp.StatusCode)
	}
	return nil
}

// DeleteIndex drops an index (DELETE /{index}).
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	path := "/" + url.PathEscape(index)
	resp, err := c.Do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	if !resp.OK() {
		return wrapStatus("DeleteIndex", path, resp.StatusCode)
	}
	return nil
}

// CreateIndex creates an index with the given settings and mappings
// (PUT /{index}). Either map may be nil.
func (c *Client) CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error {
	path := "/" + url.PathEscape(index)
	body := map[string]any{}
	if settings != nil {
		body["settings"] = settings
	}
	if mappings != nil {
		body["mappings"] = mappings
	}
	resp, err := c.doJSON(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return wrapStatus("CreateIndex", path, resp.StatusCode)
	}
	return nil
}

// AliasAction is one entry in an alias update request.
type AliasAction struct {
	Remove *AliasTarget `json:"remove,omitempty"`
	Add    *AliasTarget `json:"add,omitempty"`
}

// AliasTarget names the index/alias pair an action applies to.
type AliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// UpdateAliases submits a combined alias action list (POST /_aliases).
// The store applies all actions atomically.
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	const path = "/_aliases"
	resp, err := c.doJSON(ctx, http.MethodPost, path, map[string]any{"actions": actions})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return wrapStatus("UpdateAliases", path, resp.StatusCode)
	}
	return nil
}

// ReindexResult reports server-side reindex totals.
type ReindexResult struct {
	Total   int64 `json:"total"`
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	Failed  int64 `json:"failed"`
}

// Reindex copies all documents from source to target on the server
// (POST /_reindex).
func (c *Client) Reindex(ctx context.Context, source, target string) (*ReindexResult, error) {
	const path = "/_reindex"
	body := map[string]any{
		"source": map[string]any{"index": source},
		"dest":   map[string]any{"index": target},
	}
	resp, err := c.doJSON(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, wrapStatus("Reindex", path, resp.StatusCode)
	}
	var out ReindexResult
	if err := resp.JSON(&out); err != nil {
		return nil, &StoreError{Op: "Reindex", Path: path, Status: resp.StatusCode, Err: err}
	}
	return &out, nil
}
