package htmlinclude

import "context"

// Outcome is the settled result of fetching one placeholder's fragment.
// A nil Err means the element's content was replaced by the fetched text;
// otherwise the element was emptied.
type Outcome struct {
	Source string // directive value as written in the document
	Bytes  int    // length of the inserted fragment, 0 on failure
	Err    error
}

// OK reports whether the fragment was fetched and inserted.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report summarizes one inclusion pass over a document.
type Report struct {
	// Outcomes holds one entry per fetched placeholder, in document order.
	Outcomes []Outcome

	// Skipped counts placeholders with an empty directive value.
	Skipped int
}

// Succeeded returns the number of placeholders whose content was replaced.
func (r *Report) Succeeded() int {
	var n int
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of placeholders that were emptied.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Includer resolves inclusion directives in an HTML document.
type Includer interface {
	// Include parses html, replaces the content of every placeholder with its
	// fetched fragment (or empties it on failure) and returns the rendered
	// document. Fetch failures never produce an error; only an input that
	// cannot be parsed does.
	Include(ctx context.Context, html string) (string, *Report, error)
}
