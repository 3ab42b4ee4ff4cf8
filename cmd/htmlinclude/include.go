package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/htmlinclude"
)

// Run executes the include command. Fragment failures only blank their
// placeholders; errors come from reading inputs or writing results.
func (c *IncludeCmd) Run(deps *Dependencies) error {
	var paths []string
	if deps.Store != nil {
		var err error
		if paths, err = c.pagePaths(); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", htmlinclude.ErrorMessage(err))
			return err
		}
	}

	for i, name := range c.Files {
		src, err := c.read(deps, name)
		if err != nil {
			c.abort(deps)
			fmt.Fprintf(deps.Stderr, "error reading %s: %v\n", name, err)
			return err
		}

		out, _, err := deps.Includer.Include(deps.Ctx, src)
		if err != nil {
			c.abort(deps)
			fmt.Fprintf(deps.Stderr, "error processing %s: %s\n", name, htmlinclude.ErrorMessage(err))
			return err
		}

		if deps.Store == nil {
			if _, err := io.WriteString(deps.Stdout, out); err != nil {
				return err
			}
			continue
		}

		page := &htmlinclude.Page{Path: paths[i], HTML: out}
		if err := deps.Store.Save(deps.Ctx, page); err != nil {
			c.abort(deps)
			fmt.Fprintf(deps.Stderr, "error saving %s: %v\n", page.Path, err)
			return err
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Commit(); err != nil {
			fmt.Fprintf(deps.Stderr, "error committing: %v\n", err)
			return err
		}
	}

	return nil
}

func (c *IncludeCmd) read(deps *Dependencies, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(deps.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	return string(b), err
}

func (c *IncludeCmd) abort(deps *Dependencies) {
	if deps.Store != nil {
		_ = deps.Store.Abort()
	}
}

// pagePaths maps every input to its output path. Two inputs sharing an
// output path is an error, since the later one would overwrite the earlier.
func (c *IncludeCmd) pagePaths() ([]string, error) {
	paths := make([]string, len(c.Files))
	owner := make(map[string]string, len(c.Files))
	for i, name := range c.Files {
		p := c.pagePath(name)
		if prev, ok := owner[p]; ok {
			return nil, htmlinclude.Errorf(htmlinclude.EINVALID, "%s and %s both write to %s", prev, name, p)
		}
		owner[p] = name
		paths[i] = p
	}
	return paths, nil
}

// pagePath returns the output path for an input file: relative to the
// fragment root when the file lives under it, otherwise its base name.
func (c *IncludeCmd) pagePath(name string) string {
	if c.Root != "" {
		if rel, err := filepath.Rel(c.Root, name); err == nil && filepath.IsLocal(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(name)
}
