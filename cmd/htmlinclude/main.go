package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/htmlinclude"
	"github.com/fwojciec/htmlinclude/fs"
	"github.com/fwojciec/htmlinclude/goquery"
	inchttp "github.com/fwojciec/htmlinclude/http"
	"github.com/fwojciec/htmlinclude/rod"
	incslog "github.com/fwojciec/htmlinclude/slog"
	"github.com/fwojciec/htmlinclude/throttle"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Stdin is read when an input file is named "-".
	Stdin io.Reader
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Stdin: os.Stdin}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	BaseURL     string        `name:"base-url" short:"b" env:"HTMLINCLUDE_BASE_URL" help:"Fetch fragments over HTTP, resolving directives against this URL"`
	Root        string        `short:"r" default:"." env:"HTMLINCLUDE_ROOT" help:"Directory holding fragments when no base URL is given"`
	Render      bool          `help:"Render fragments in headless Chrome (requires --base-url)"`
	Attr        string        `short:"a" default:"data-include" help:"Directive attribute naming the fragment"`
	Fragment    bool          `short:"f" help:"Treat inputs as body fragments instead of full documents"`
	Out         string        `short:"o" help:"Write results under this directory instead of stdout"`
	Concurrency int           `short:"c" default:"0" help:"Maximum fetches in flight (0 = unlimited)"`
	Rate        float64       `default:"0" help:"Requests per second per host (0 = unlimited)"`
	Timeout     time.Duration `short:"t" default:"0s" help:"Fetch timeout per fragment (0 = none)"`
	Verbose     bool          `short:"v" help:"Log fetches and per-file summaries to stderr"`
	Files       []string      `arg:"" required:"" help:"HTML files to process (- reads stdin)"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("htmlinclude"),
		kong.Description("Replace the content of data-include elements with the fragments they name"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	if cli.Render && cli.BaseURL == "" {
		return fmt.Errorf("--render requires --base-url")
	}
	if cli.Out != "" {
		for _, name := range cli.Files {
			if name == "-" {
				return fmt.Errorf("stdin cannot be combined with --out")
			}
		}
	}

	logger := slog.New(slog.DiscardHandler)
	if cli.Verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var base *url.URL
	if cli.BaseURL != "" {
		if base, err = url.Parse(cli.BaseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
	}

	fetcher, err := newFetcher(cli, base)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	fetcher = throttle.NewFetcher(fetcher, throttle.NewHostLimiter(cli.Rate), throttle.WithBaseURL(base))
	if cli.Verbose {
		fetcher = incslog.NewLoggingFetcher(fetcher, logger, incslog.WithBaseURL(base))
	}

	// Wire dependencies
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  m.Stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	includer := goquery.NewIncluder(fetcher,
		goquery.WithAttribute(cli.Attr),
		goquery.WithConcurrency(cli.Concurrency),
	)
	deps.Includer = includer
	if cli.Fragment {
		deps.Includer = fragmentIncluder{includer}
	}
	if cli.Verbose {
		deps.Includer = incslog.NewLoggingIncluder(deps.Includer, logger)
	}

	if cli.Out != "" {
		out, err := filepath.Abs(cli.Out)
		if err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
		deps.Store = fs.NewFileStore(filepath.Dir(out), filepath.Base(out))
	}

	cmd := &IncludeCmd{
		Files: cli.Files,
		Root:  cli.Root,
	}

	return cmd.Run(deps)
}

// newFetcher selects the fragment source: headless Chrome, plain HTTP, or
// the local root directory.
func newFetcher(cli *CLI, base *url.URL) (htmlinclude.Fetcher, error) {
	if base == nil {
		return fs.NewFetcher(cli.Root)
	}

	if cli.Render {
		f, err := rod.NewFetcher(rod.WithBaseURL(base), rod.WithFetchTimeout(cli.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to start browser (Chrome or Chromium must be installed): %w", err)
		}
		return f, nil
	}

	return inchttp.NewFetcher(inchttp.WithBaseURL(base), inchttp.WithTimeout(cli.Timeout)), nil
}

// fragmentIncluder processes inputs as body fragments.
type fragmentIncluder struct {
	*goquery.Includer
}

func (i fragmentIncluder) Include(ctx context.Context, html string) (string, *htmlinclude.Report, error) {
	return i.IncludeFragment(ctx, html)
}
