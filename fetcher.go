package htmlinclude

import (
	"context"
	"net/url"
)

// Fetcher retrieves the markup of a fragment named by a directive value.
// Any non-nil error is treated as a fetch failure: non-success status,
// transport error, malformed source and unreadable body alike.
type Fetcher interface {
	// Fetch returns the fragment text for src.
	// The context controls cancellation.
	Fetch(ctx context.Context, src string) (string, error)

	// Close releases resources held by the fetcher.
	Close() error
}

// ResolveSource parses a directive value and resolves it against base.
// With a nil base, relative values stay relative.
func ResolveSource(base *url.URL, src string) (*url.URL, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return nil, Errorf(EINVALID, "invalid fragment URL %q: %v", src, err)
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return ref, nil
}
