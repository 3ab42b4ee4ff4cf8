package main

import (
	"context"
	"io"

	"github.com/fwojciec/htmlinclude"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Includer htmlinclude.Includer

	// Store is nil when results go to Stdout.
	Store htmlinclude.PageStore
}

// IncludeCmd resolves inclusion directives in a set of input files.
type IncludeCmd struct {
	Files []string
	Root  string
}
