// internal/scraper/parser.go
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is the read-only view of a parsed page that the field cascades
// work against. Nodes are returned in document order.
type Document interface {
	SelectAll(sel cascadia.Selector) []*html.Node
	SelectFirst(sel cascadia.Selector) (*html.Node, bool)
	Text(n *html.Node) string
	Attr(n *html.Node, name string) (string, bool)
}

// HTMLDocument implements Document on top of goquery.
type HTMLDocument struct {
	document *goquery.Document
}

// NewHTMLDocument parses raw HTML. It never fails: markup the parser cannot
// handle yields an empty document, so every selection comes back empty.
func NewHTMLDocument(raw string) *HTMLDocument {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return &HTMLDocument{document: doc}
}

// SelectAll returns every node matching sel.
func (d *HTMLDocument) SelectAll(sel cascadia.Selector) []*html.Node {
	if sel == nil {
		return nil
	}
	return d.document.FindMatcher(sel).Nodes
}

// SelectFirst returns the first node matching sel.
func (d *HTMLDocument) SelectFirst(sel cascadia.Selector) (*html.Node, bool) {
	if sel == nil {
		return nil, false
	}
	n := sel.MatchFirst(d.document.Get(0))
	return n, n != nil
}

// Text returns the concatenated descendant text of n, trimmed.
func (d *HTMLDocument) Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(d.document.FindNodes(n).Text())
}

// Attr returns the value of attribute name on n.
func (d *HTMLDocument) Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
