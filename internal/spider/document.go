package spider

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Selector is a single node query. XPath by default; a "css:" prefix
// switches to a CSS selector.
type Selector string

const cssPrefix = "css:"

func (s Selector) isCSS() bool {
	return strings.HasPrefix(string(s), cssPrefix)
}

func (s Selector) expr() string {
	return strings.TrimPrefix(string(s), cssPrefix)
}

// Chain is an ordered fallback list of selectors. Extraction helpers use
// the first selector that yields a result.
type Chain []Selector

// Document is one fetched, parsed page. All relative URLs found in it
// resolve against the page URL the fetcher saw after redirects.
type Document struct {
	url  *url.URL
	root *html.Node
}

// ParseDocument parses an HTML page. pageURL must be absolute; it becomes
// the base for URL resolution.
func ParseDocument(pageURL string, r io.Reader) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{url: u, root: root}, nil
}

// URL returns the page URL.
func (d *Document) URL() *url.URL { return d.url }

// AbsoluteURL resolves href against the page URL. Returns "" for empty or
// unparseable input.
func (d *Document) AbsoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return d.url.ResolveReference(ref).String()
}

// Root returns the document root as an Element.
func (d *Document) Root() Element {
	return Element{doc: d, node: d.root}
}

// Element is one node of a Document, the scope for relative queries.
type Element struct {
	doc  *Document
	node *html.Node
}

// findNodes evaluates one selector relative to scope. Invalid selectors
// yield no nodes; selector maps are data and a typo in one field must not
// take the whole page down.
func findNodes(scope *html.Node, sel Selector) []*html.Node {
	if sel == "" || scope == nil {
		return nil
	}
	if sel.isCSS() {
		return goquery.NewDocumentFromNode(scope).Find(sel.expr()).Nodes
	}
	nodes, err := htmlquery.QueryAll(scope, sel.expr())
	if err != nil {
		return nil
	}
	return nodes
}

// Find returns all elements matched by the first selector in the chain
// that matches anything.
func (e Element) Find(chain Chain) []Element {
	for _, sel := range chain {
		nodes := findNodes(e.node, sel)
		if len(nodes) == 0 {
			continue
		}
		out := make([]Element, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, Element{doc: e.doc, node: n})
		}
		return out
	}
	return nil
}

// First returns the first matched element.
func (e Element) First(chain Chain) (Element, bool) {
	for _, sel := range chain {
		if nodes := findNodes(e.node, sel); len(nodes) > 0 {
			return Element{doc: e.doc, node: nodes[0]}, true
		}
	}
	return Element{}, false
}

// OwnText returns the element's whitespace-normalized inner text.
func (e Element) OwnText() string {
	if e.node == nil {
		return ""
	}
	return normalizeSpace(htmlquery.InnerText(e.node))
}

// Attr returns the value of the named attribute, "" when absent.
func (e Element) Attr(name string) string {
	if e.node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(e.node, name))
}

// rawValue is the extraction value of a node: the href attribute when the
// node carries one, otherwise its text. XPath attribute selections such as
// //a/@href come back as synthetic nodes whose text is the attribute
// value, so the text branch covers them.
func (e Element) rawValue() string {
	if href := e.Attr("href"); href != "" {
		return href
	}
	return e.OwnText()
}

// linkURL resolves the element's extraction value into an absolute URL.
func (e Element) linkURL() string {
	return e.doc.AbsoluteURL(e.rawValue())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
