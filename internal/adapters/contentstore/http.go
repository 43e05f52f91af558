package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const maxErrorBody = 4 << 10

// HTTPStore talks to a content store replica over its item API:
// PUT and DELETE on /content<base_path>.
type HTTPStore struct {
	name    string
	baseURL *url.URL
	client  *http.Client
}

// HTTPOption customises an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPStore) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

// NewHTTPStore builds a client for the store at rawURL. name labels errors
// and logs (e.g. "draft-content-store").
func NewHTTPStore(name, rawURL string, opts ...HTTPOption) (*HTTPStore, error) {
	base, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", name, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: url %q must be absolute", name, rawURL)
	}
	store := &HTTPStore{
		name:    name,
		baseURL: base,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// PutItem upserts the representation stored at basePath.
func (s *HTTPStore) PutItem(ctx context.Context, basePath string, body []byte) error {
	resp, err := s.do(ctx, http.MethodPut, basePath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return s.classify(resp)
}

// DeleteItem removes whatever is stored at basePath. A 404 maps to
// interfaces.ErrStoreNotFound.
func (s *HTTPStore) DeleteItem(ctx context.Context, basePath string) error {
	resp, err := s.do(ctx, http.MethodDelete, basePath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return interfaces.ErrStoreNotFound
	}
	return s.classify(resp)
}

func (s *HTTPStore) do(ctx context.Context, method, basePath string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.itemURL(basePath), reader)
	if err != nil {
		return nil, interfaces.PermanentError(s.name, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, interfaces.TransientError(s.name, 0, err)
	}
	return resp, nil
}

func (s *HTTPStore) itemURL(basePath string) string {
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return s.baseURL.JoinPath("content").String() + basePath
}

// classify maps a response to nil, a transient error (5xx, 429) or a
// permanent error (any other non-2xx).
func (s *HTTPStore) classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("%s %s", resp.Status, strings.TrimSpace(string(detail)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return interfaces.TransientError(s.name, resp.StatusCode, err)
	}
	return interfaces.PermanentError(s.name, resp.StatusCode, err)
}
