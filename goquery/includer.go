// Package goquery implements fragment inclusion over HTML trees parsed with
// goquery.
package goquery

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/htmlinclude"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

// Ensure Includer implements htmlinclude.Includer at compile time.
var _ htmlinclude.Includer = (*Includer)(nil)

// Includer replaces the content of placeholder elements with fragments
// retrieved through a Fetcher.
type Includer struct {
	fetcher     htmlinclude.Fetcher
	attr        string
	concurrency int
}

// Option configures an Includer.
type Option func(*Includer)

// WithAttribute sets the directive attribute.
// Defaults to htmlinclude.DefaultAttribute if not specified.
func WithAttribute(name string) Option {
	return func(i *Includer) {
		i.attr = name
	}
}

// WithConcurrency caps the number of fetches in flight.
// Zero or a negative value (the default) issues every fetch at once.
func WithConcurrency(n int) Option {
	return func(i *Includer) {
		i.concurrency = n
	}
}

// NewIncluder creates a new Includer that retrieves fragments with fetcher.
func NewIncluder(fetcher htmlinclude.Fetcher, opts ...Option) *Includer {
	i := &Includer{
		fetcher: fetcher,
		attr:    htmlinclude.DefaultAttribute,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.attr == "" {
		i.attr = htmlinclude.DefaultAttribute
	}
	return i
}

// Placeholder is an element carrying a non-empty directive value.
type Placeholder struct {
	Selection *goquery.Selection
	Source    string
}

// Discover returns the placeholders of doc in document order, along with the
// number of elements whose directive value is empty.
func (i *Includer) Discover(doc *goquery.Document) (placeholders []Placeholder, skipped int) {
	doc.Find("[" + i.attr + "]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr(i.attr)
		if src == "" {
			skipped++
			return
		}
		placeholders = append(placeholders, Placeholder{Selection: sel, Source: src})
	})
	return placeholders, skipped
}

// Apply fetches the fragment of every placeholder in doc and blocks until all
// fetches have settled. Each placeholder ends either holding its fragment or
// empty; elements with an empty directive are left untouched.
//
// A failed fetch never stops its siblings.
func (i *Includer) Apply(ctx context.Context, doc *goquery.Document) *htmlinclude.Report {
	placeholders, skipped := i.Discover(doc)
	report := &htmlinclude.Report{
		Outcomes: make([]htmlinclude.Outcome, len(placeholders)),
		Skipped:  skipped,
	}

	// Nested placeholders share nodes, so tree mutation is serialized.
	var mu sync.Mutex

	var g errgroup.Group
	if i.concurrency > 0 {
		g.SetLimit(i.concurrency)
	}

	for idx, p := range placeholders {
		g.Go(func() error {
			text, err := i.fetcher.Fetch(ctx, p.Source)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes[idx] = settle(p, text, err)
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// settle applies a fetch result to its placeholder. Void elements cannot
// hold content, so a fragment fetched for one is dropped and the element
// stays empty.
func settle(p Placeholder, text string, err error) htmlinclude.Outcome {
	if err == nil {
		if n := p.Selection.Get(0); voidElements[n.DataAtom] {
			err = htmlinclude.Errorf(htmlinclude.EINVALID, "cannot include %s into void element <%s>", p.Source, n.Data)
		}
	}
	if err != nil {
		p.Selection.Empty()
		return htmlinclude.Outcome{Source: p.Source, Err: err}
	}
	p.Selection.SetHtml(text)
	return htmlinclude.Outcome{Source: p.Source, Bytes: len(text)}
}

// voidElements mirrors the set html.Render refuses to give children.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// Run starts Apply on its own goroutine and returns immediately.
// onComplete, when non-nil, is called exactly once after every fetch has
// settled. The caller must not touch doc before then.
func (i *Includer) Run(ctx context.Context, doc *goquery.Document, onComplete func()) {
	go func() {
		i.Apply(ctx, doc)
		if onComplete != nil {
			onComplete()
		}
	}()
}

// Include parses a full HTML document, resolves its placeholders and returns
// the rendered result.
func (i *Includer) Include(ctx context.Context, src string) (string, *htmlinclude.Report, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", nil, htmlinclude.Errorf(htmlinclude.EINVALID, "failed to parse HTML: %v", err)
	}

	report := i.Apply(ctx, doc)

	out, err := Render(doc)
	if err != nil {
		return "", nil, err
	}
	return out, report, nil
}

// IncludeFragment is like Include but treats src as a body fragment, so no
// html, head or body elements are added to the output.
func (i *Includer) IncludeFragment(ctx context.Context, src string) (string, *htmlinclude.Report, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return "", nil, htmlinclude.Errorf(htmlinclude.EINVALID, "failed to parse HTML fragment: %v", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	report := i.Apply(ctx, goquery.NewDocumentFromNode(body))

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", nil, err
		}
	}
	return buf.String(), report, nil
}

// Render serializes doc back to HTML.
func Render(doc *goquery.Document) (string, error) {
	var buf bytes.Buffer
	for _, n := range doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
