package htmlinclude

import "context"

// Page is an HTML document identified by its path relative to an output root.
type Page struct {
	Path string
	HTML string
}

// PageStore persists processed pages.
// Save stages a page; Commit publishes everything staged; Abort discards
// pending changes.
type PageStore interface {
	Save(ctx context.Context, page *Page) error
	Commit() error
	Abort() error
}
