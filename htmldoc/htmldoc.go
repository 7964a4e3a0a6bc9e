// Package htmldoc is a small selector-query layer over goquery. Callers see
// only compiled selectors, documents and elements.
package htmldoc

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group.
type Selector struct {
	raw     string
	matcher cascadia.Selector
}

// Compile parses a CSS selector (groups such as "a, b" included).
func Compile(selector string) (Selector, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return Selector{}, fmt.Errorf("htmldoc: compile %q: %w", selector, err)
	}
	return Selector{raw: selector, matcher: m}, nil
}

// String returns the selector source.
func (s Selector) String() string { return s.raw }

// Document is a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from HTML text. The parser is lenient: malformed
// markup still produces a tree.
func Parse(text string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Query returns every element matching sel in document order.
func (d *Document) Query(sel Selector) []Element {
	return elements(d.doc.Selection, sel)
}

// Element is a single matched node.
type Element struct {
	s *goquery.Selection
}

// Text returns the combined text of the element and its descendants.
func (e Element) Text() string {
	return e.s.Text()
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	return e.s.Attr(name)
}

// Query returns descendants of e matching sel.
func (e Element) Query(sel Selector) []Element {
	return elements(e.s, sel)
}

func elements(s *goquery.Selection, sel Selector) []Element {
	if sel.matcher == nil {
		return nil
	}
	found := s.FindMatcher(sel.matcher)
	out := make([]Element, 0, found.Length())
	found.Each(func(_ int, item *goquery.Selection) {
		out = append(out, Element{s: item})
	})
	return out
}
