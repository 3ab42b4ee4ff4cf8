package mock

import (
	"context"

	"github.com/fwojciec/htmlinclude"
)

var _ htmlinclude.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of htmlinclude.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, src string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	return f.FetchFn(ctx, src)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}
