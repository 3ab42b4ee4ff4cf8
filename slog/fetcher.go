// Package slog provides logging decorators for htmlinclude services.
package slog

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/htmlinclude"
)

// Ensure LoggingFetcher implements htmlinclude.Fetcher.
var _ htmlinclude.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher and logs one line per fragment.
// Successful fetches log at Debug, failures at Warn with their error code.
type LoggingFetcher struct {
	next   htmlinclude.Fetcher
	logger *slog.Logger
	base   *url.URL
}

// FetcherOption configures a LoggingFetcher.
type FetcherOption func(*LoggingFetcher)

// WithBaseURL makes log lines carry the URL a directive value resolves to.
func WithBaseURL(u *url.URL) FetcherOption {
	return func(f *LoggingFetcher) {
		f.base = u
	}
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next htmlinclude.Fetcher, logger *slog.Logger, opts ...FetcherOption) *LoggingFetcher {
	f := &LoggingFetcher{next: next, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch delegates to the wrapped fetcher and logs the outcome.
func (f *LoggingFetcher) Fetch(ctx context.Context, src string) (html string, err error) {
	defer func(begin time.Time) {
		attrs := []any{"src", src}
		if u, err := htmlinclude.ResolveSource(f.base, src); err == nil && u.String() != src {
			attrs = append(attrs, "url", u.String())
		}
		if run, ok := runFromContext(ctx); ok {
			attrs = append(attrs, "run", run)
		}
		attrs = append(attrs, "duration", time.Since(begin))

		if err != nil {
			attrs = append(attrs, "code", htmlinclude.ErrorCode(err), "err", err)
			f.logger.Warn("fetch failed", attrs...)
			return
		}
		attrs = append(attrs, "bytes", len(html))
		f.logger.Debug("fetch", attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, src)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

type runKey struct{}

// withRun returns a context carrying the include pass's run id.
func withRun(ctx context.Context, run string) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

func runFromContext(ctx context.Context) (string, bool) {
	run, ok := ctx.Value(runKey{}).(string)
	return run, ok
}
