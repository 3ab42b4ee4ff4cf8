// Package rod provides a headless-Chrome implementation of
// htmlinclude.Fetcher for fragments that need JavaScript to render.
package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fwojciec/htmlinclude"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements htmlinclude.Fetcher at compile time.
var _ htmlinclude.Fetcher = (*Fetcher)(nil)

// Fetcher loads fragment URLs in a headless Chrome browser and returns the
// rendered body markup.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	base     *url.URL
	timeout  time.Duration
	closed   atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds each fetch. Zero (the default) means no timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithBaseURL sets the URL that relative directive values resolve against.
func WithBaseURL(u *url.URL) Option {
	return func(f *Fetcher) {
		f.base = u
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}

	// Launch browser using rod's launcher (finds or downloads Chrome)
	f.launcher = launcher.New().Headless(true)
	u, err := f.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	f.browser = rod.New().ControlURL(u)
	if err := f.browser.Connect(); err != nil {
		f.launcher.Kill() // Clean up launched process on connection failure
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return f, nil
}

// Fetch navigates to the fragment URL, waits for it to load and returns the
// inner HTML of its body. A document status outside 2xx is an error.
func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	if f.closed.Load() {
		return "", htmlinclude.Errorf(htmlinclude.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := f.resolve(src)
	if err != nil {
		return "", err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", err
	}
	defer page.Close()

	// Set context for all subsequent operations
	page = page.Context(ctx)

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return "", err
	}

	var status int
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(target); err != nil {
		return "", err
	}
	waitResponse()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if status == http.StatusNotFound {
		return "", htmlinclude.Errorf(htmlinclude.ENOTFOUND, "HTTP %d for %s", status, target)
	}
	if status < 200 || status > 299 {
		return "", htmlinclude.Errorf(htmlinclude.EINTERNAL, "HTTP %d for %s", status, target)
	}

	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	obj, err := page.Eval(`() => document.body ? document.body.innerHTML : ""`)
	if err != nil {
		return "", err
	}

	return obj.Value.Str(), nil
}

// resolve turns a directive value into an absolute URL.
func (f *Fetcher) resolve(src string) (string, error) {
	ref, err := htmlinclude.ResolveSource(f.base, src)
	if err != nil {
		return "", err
	}
	if !ref.IsAbs() {
		return "", htmlinclude.Errorf(htmlinclude.EINVALID, "cannot resolve relative fragment URL %q without a base URL", src)
	}
	return ref.String(), nil
}

// Close releases browser resources. It is safe to call more than once.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Kill()
	return err
}
