// Package markup extracts job summaries and descriptions from listing pages.
//
// Pages are parsed once into a Document; extraction code only uses the small
// query surface below so the parser can be swapped without touching the
// selectors.
package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is an element inside a parsed page.
type Node interface {
	// FindFirst returns the first descendant matching a CSS selector.
	FindFirst(selector string) (Node, bool)
	// FindAll returns every descendant matching a CSS selector, in document order.
	FindAll(selector string) []Node
	Attr(name string) (string, bool)
	Parent() (Node, bool)
	// Text returns the node's text content on a single normalized line.
	Text() string
	// RichText returns the node's text with block structure preserved as
	// newline separated lines and list items bulleted.
	RichText() string
}

// Document is a parsed page.
type Document interface {
	FindFirst(selector string) (Node, bool)
	FindAll(selector string) []Node
}

// Parse reads an HTML page.
func Parse(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return selection{doc.Selection}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (Document, error) {
	return Parse(strings.NewReader(s))
}

type selection struct {
	s *goquery.Selection
}

func (n selection) FindFirst(selector string) (Node, bool) {
	found := n.s.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selection{found}, true
}

func (n selection) FindAll(selector string) []Node {
	found := n.s.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selection{s})
	})
	return nodes
}

func (n selection) Attr(name string) (string, bool) {
	return n.s.Attr(name)
}

func (n selection) Parent() (Node, bool) {
	p := n.s.Parent()
	if p.Length() == 0 {
		return nil, false
	}
	return selection{p}, true
}

func (n selection) Text() string {
	return collapse(n.s.Text())
}

func (n selection) RichText() string {
	if len(n.s.Nodes) == 0 {
		return ""
	}
	return richText(n.s.Nodes[0])
}

var (
	_ Document = selection{}
	_ Node     = selection{}
)
