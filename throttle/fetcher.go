package throttle

import (
	"context"
	"net/url"

	"github.com/fwojciec/htmlinclude"
)

// Ensure Fetcher implements htmlinclude.Fetcher at compile time.
var _ htmlinclude.Fetcher = (*Fetcher)(nil)

// Limiter blocks until a request to host is allowed.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// Fetcher waits on a Limiter keyed by the fragment's host before delegating
// to the wrapped fetcher.
type Fetcher struct {
	next    htmlinclude.Fetcher
	limiter Limiter
	base    *url.URL
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL sets the URL that relative directive values resolve against
// before their host is taken. It should match the wrapped fetcher's base.
// Without it, relative values all share the empty host key.
func WithBaseURL(u *url.URL) Option {
	return func(f *Fetcher) {
		f.base = u
	}
}

// NewFetcher creates a new rate-limited Fetcher.
func NewFetcher(next htmlinclude.Fetcher, limiter Limiter, opts ...Option) *Fetcher {
	f := &Fetcher{next: next, limiter: limiter}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch waits for the host's turn and delegates to the wrapped fetcher.
// A canceled wait is returned as the fetch error. Malformed values skip the
// wait so the wrapped fetcher can report them.
func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	if u, err := htmlinclude.ResolveSource(f.base, src); err == nil {
		if err := f.limiter.Wait(ctx, HostKey(u)); err != nil {
			return "", err
		}
	}
	return f.next.Fetch(ctx, src)
}

// Close delegates to the wrapped fetcher.
func (f *Fetcher) Close() error {
	return f.next.Close()
}
