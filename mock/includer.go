package mock

import (
	"context"

	"github.com/fwojciec/htmlinclude"
)

var _ htmlinclude.Includer = (*Includer)(nil)

// Includer is a mock implementation of htmlinclude.Includer.
type Includer struct {
	IncludeFn func(ctx context.Context, html string) (string, *htmlinclude.Report, error)
}

func (i *Includer) Include(ctx context.Context, html string) (string, *htmlinclude.Report, error) {
	return i.IncludeFn(ctx, html)
}
