package main_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	main "github.com/fwojciec/htmlinclude/cmd/htmlinclude"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// Story: Including fragments over HTTP
//
// A page references three fragments: one served, one missing, one on a host
// that refuses connections. The served fragment is inserted and the other
// two placeholders end up empty.

func TestMain_IncludesFragmentsOverHTTP(t *testing.T) {
	t.Parallel()

	// Given: a server with one fragment and a 404 for everything else
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a.html" {
			_, _ = w.Write([]byte("<p>A</p>"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	// And: a host that refuses connections
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	page := `<html><head></head><body>` +
		`<div id="one" data-include="/a.html">1</div>` +
		`<div id="two" data-include="/b.html">2</div>` +
		`<div id="three" data-include="` + deadURL + `/c.html">3</div>` +
		`<div id="four" data-include="">4</div>` +
		`</body></html>`

	m := main.NewMain()
	m.Stdin = strings.NewReader(page)
	var stdout, stderr bytes.Buffer

	// When: processing stdin against the server
	err := m.Run(context.Background(), []string{"--base-url", srv.URL, "-"}, &stdout, &stderr)

	// Then: fragments are applied and failures are blanked without an error
	require.NoError(t, err)
	assert.Equal(t, `<html><head></head><body>`+
		`<div id="one" data-include="/a.html"><p>A</p></div>`+
		`<div id="two" data-include="/b.html"></div>`+
		`<div id="three" data-include="`+deadURL+`/c.html"></div>`+
		`<div id="four" data-include="">4</div>`+
		`</body></html>`, stdout.String())
}

// Story: Static site build from a local fragment directory

func TestMain_WritesProcessedFilesToOutputDirectory(t *testing.T) {
	t.Parallel()

	// Given: a site directory with partials and two pages
	base := t.TempDir()
	site := filepath.Join(base, "site")
	writeFile(t, filepath.Join(site, "partials", "header.html"), "<h1>Site</h1>")
	writeFile(t, filepath.Join(site, "index.html"),
		`<html><head></head><body><header data-include="/partials/header.html"></header></body></html>`)
	writeFile(t, filepath.Join(site, "docs", "intro.html"),
		`<html><head></head><body><header data-include="/partials/header.html"></header><aside data-include="/partials/missing.html">x</aside></body></html>`)

	out := filepath.Join(base, "public")
	var stdout, stderr bytes.Buffer

	// When: building into the output directory
	err := main.NewMain().Run(context.Background(), []string{
		"--root", site,
		"--out", out,
		filepath.Join(site, "index.html"),
		filepath.Join(site, "docs", "intro.html"),
	}, &stdout, &stderr)

	// Then: each page is written relative to the root
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `<header data-include="/partials/header.html"><h1>Site</h1></header>`)

	intro, err := os.ReadFile(filepath.Join(out, "docs", "intro.html"))
	require.NoError(t, err)
	assert.Contains(t, string(intro), `<aside data-include="/partials/missing.html"></aside>`)

	// And: the staging directory is gone
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestMain_ProcessesFragmentsWithoutDocumentWrapper(t *testing.T) {
	t.Parallel()

	site := t.TempDir()
	writeFile(t, filepath.Join(site, "nav.html"), "<ul><li>Home</li></ul>")

	m := main.NewMain()
	m.Stdin = strings.NewReader(`<nav include="/nav.html"></nav>`)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--root", site, "--fragment", "--attr", "include", "-"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, `<nav include="/nav.html"><ul><li>Home</li></ul></nav>`, stdout.String())
}

func TestMain_VerboseLogsToStderr(t *testing.T) {
	t.Parallel()

	site := t.TempDir()
	writeFile(t, filepath.Join(site, "a.html"), "A")

	m := main.NewMain()
	m.Stdin = strings.NewReader(`<div data-include="/a.html"></div><div data-include="/b.html"></div>`)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--root", site, "--fragment", "--verbose", "--rate", "100", "-"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, `<div data-include="/a.html">A</div><div data-include="/b.html"></div>`, stdout.String())
	logs := stderr.String()
	assert.Contains(t, logs, "msg=fetch")
	assert.Contains(t, logs, `msg="fetch failed" src=/b.html`)
	assert.Contains(t, logs, "code=not_found")
	assert.Contains(t, logs, "msg=include")
	assert.Contains(t, logs, "succeeded=1")
	assert.Contains(t, logs, "failed=1")
}

func TestMain_ReturnsErrorForMissingInput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	err := main.NewMain().Run(context.Background(), []string{"--root", t.TempDir(), "missing.html"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "error reading missing.html")
}
