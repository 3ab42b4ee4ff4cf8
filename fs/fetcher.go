// Package fs provides file-based fragment retrieval and page storage.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fwojciec/htmlinclude"
)

// Ensure Fetcher implements htmlinclude.Fetcher at compile time.
var _ htmlinclude.Fetcher = (*Fetcher)(nil)

// Fetcher reads fragments from a local directory tree. Directive values are
// URL paths interpreted relative to the root directory; query strings and
// fragments are ignored, and paths cannot reach outside the root.
type Fetcher struct {
	root *os.Root
}

// NewFetcher creates a Fetcher serving fragments from dir.
// Close must be called when the Fetcher is no longer needed.
func NewFetcher(dir string) (*Fetcher, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening fragment root: %w", err)
	}
	return &Fetcher{root: root}, nil
}

// Fetch returns the contents of the file named by src.
func (f *Fetcher) Fetch(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := SourceToPath(src)
	if err != nil {
		return "", err
	}

	file, err := f.root.Open(name)
	if errors.Is(err, iofs.ErrNotExist) {
		return "", htmlinclude.Errorf(htmlinclude.ENOTFOUND, "fragment %q not found", src)
	} else if err != nil {
		return "", err
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(body), nil
}

// Close releases the root directory handle.
func (f *Fetcher) Close() error {
	return f.root.Close()
}

// SourceToPath converts a directive value to a file path relative to the
// fragment root.
// Example: /partials/nav.html?v=2 → partials/nav.html
func SourceToPath(src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", htmlinclude.Errorf(htmlinclude.EINVALID, "invalid fragment path %q: %v", src, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return "", htmlinclude.Errorf(htmlinclude.EINVALID, "fragment %q is not a local path", src)
	}

	p := path.Clean("/" + u.Path)

	// Directory paths serve their index document
	if p == "/" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index.html")
	}

	return filepath.FromSlash(strings.TrimPrefix(p, "/")), nil
}
