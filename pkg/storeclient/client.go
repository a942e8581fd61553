// Package storeclient implements the HTTP contract against an
// OpenSearch-compatible document store.
//
// All store traffic goes through Client.Do, which executes a single request
// and returns the status code plus the raw body. Higher-level helpers in
// indexops.go interpret responses for specific endpoints. The client owns
// authentication (basic auth) and per-request timeouts; callers own retry
// policy.
package storeclient

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"

	// DefaultTimeout bounds a single store request. Bulk writes of large
	// batches can be slow, so this is generous.
	DefaultTimeout = 2 * time.Minute
)

// Config configures a store client.
type Config struct {
	// Endpoint is the base URL of the store, e.g. "https://search.example.com:9200".
	Endpoint string

	// Username and Password are used for basic auth when both are set.
	Username string
	Password string

	// InsecureSkipVerify disables TLS certificate verification. Intended
	// for self-signed development clusters only.
	InsecureSkipVerify bool

	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("store endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("store endpoint must be an http(s) URL: %s", c.Endpoint)
	}
	return nil
}

// Response holds the outcome of a single store request.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client executes requests against the document store.
type Client struct {
	httpc      *http.Client
	endpoint   string
	authHeader string
}

// New creates a store client from the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	var authHeader string
	if cfg.Username != "" && cfg.Password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		authHeader = "Basic " + creds
	}

	return &Client{
		httpc: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		authHeader: authHeader,
	}, nil
}

// Do executes one request against the store and returns the parsed response.
//
// path must begin with "/". A nil body sends no request body. contentType is
// ignored when body is nil. Transport failures return a StoreError wrapping
// ErrUnavailable; non-2xx statuses are returned to the caller in Response,
// not as errors, since several endpoints use e.g. 404 as a meaningful answer.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, &StoreError{Op: method, Path: path, Err: err}
	}

	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &StoreError{Op: method, Path: path, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreError{Op: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// doJSON marshals v and executes a request with a JSON body.
func (c *Client) doJSON(ctx context.Context, method, path string, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &StoreError{Op: method, Path: path, Err: err}
	}
	return c.Do(ctx, method, path, strings.NewReader(string(data)), contentTypeJSON)
}
