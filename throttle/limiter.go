// Package throttle rate-limits fragment fetches per host.
package throttle

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Ensure HostLimiter implements Limiter at compile time.
var _ Limiter = (*HostLimiter)(nil)

// HostLimiter keeps one token bucket per host, each with a burst of 1.
// Hosts are compared case-insensitively.
type HostLimiter struct {
	limit rate.Limit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewHostLimiter creates a HostLimiter allowing rps requests per second to
// each host. Zero or a negative rps means unlimited.
func NewHostLimiter(rps float64) *HostLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HostLimiter{
		limit:   limit,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until host's bucket has a token or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	return l.bucket(strings.ToLower(host)).Wait(ctx)
}

func (l *HostLimiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[host]
	if !ok {
		b = rate.NewLimiter(l.limit, 1)
		l.buckets[host] = b
	}
	return b
}

// HostKey returns the bucket key for u: the lowercased host, with the port
// dropped when it is the scheme's default.
func HostKey(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "":
		return host
	case port == "80" && strings.EqualFold(u.Scheme, "http"):
		return host
	case port == "443" && strings.EqualFold(u.Scheme, "https"):
		return host
	}
	return net.JoinHostPort(host, port)
}
