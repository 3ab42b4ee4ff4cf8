// Package http provides an HTTP-based implementation of htmlinclude.Fetcher.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/htmlinclude"
)

// Ensure Fetcher implements htmlinclude.Fetcher at compile time.
var _ htmlinclude.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves fragments with plain HTTP GET requests.
type Fetcher struct {
	client  *http.Client
	base    *url.URL
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Zero (the default) means requests run until they complete or the
// context is canceled.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithBaseURL sets the URL that relative directive values resolve against.
// Without a base URL, directive values must be absolute.
func WithBaseURL(u *url.URL) Option {
	return func(f *Fetcher) {
		f.base = u
	}
}

// WithClient sets the HTTP client used for requests.
// The client's Timeout is overridden when WithTimeout is also given.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.timeout > 0 {
		client := *f.client
		client.Timeout = f.timeout
		f.client = &client
	}

	return f
}

// Fetch retrieves the fragment at src. Any status outside the 2xx range is
// an error: ENOTFOUND for 404, EINTERNAL otherwise.
func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	target, err := f.resolve(src)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", htmlinclude.Errorf(htmlinclude.ENOTFOUND, "HTTP %d for %s", resp.StatusCode, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", htmlinclude.Errorf(htmlinclude.EINTERNAL, "HTTP %d for %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", target, err)
	}

	return string(body), nil
}

// resolve turns a directive value into an absolute URL.
func (f *Fetcher) resolve(src string) (string, error) {
	ref, err := htmlinclude.ResolveSource(f.base, src)
	if err != nil {
		return "", err
	}
	if !ref.IsAbs() || ref.Host == "" {
		return "", htmlinclude.Errorf(htmlinclude.EINVALID, "cannot resolve relative fragment URL %q without a base URL", src)
	}
	return ref.String(), nil
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
