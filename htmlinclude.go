// Package htmlinclude provides an HTML fragment includer. It scans a
// document for elements carrying an inclusion directive, fetches the
// referenced fragment for each one, and injects the returned markup into
// the element.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, http/, rod/).
package htmlinclude

// DefaultAttribute is the directive attribute naming the fragment to include.
const DefaultAttribute = "data-include"
