// Package qtixml wraps antchfx/xmlquery with the namespace bindings and tree
// helpers shared by the manifest walker, the mappers and the scoring
// classifier.
package qtixml

import (
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Namespace URIs used in content packages.
const (
	NamespaceCP    = "http://www.imsglobal.org/xsd/imscp_v1p1"
	NamespaceLOM   = "http://ltsc.ieee.org/xsd/LOM"
	NamespaceQTI21 = "http://www.imsglobal.org/xsd/imsqti_v2p1"
	NamespaceQTI20 = "http://www.imsglobal.org/xsd/imsqti_v2p0"
)

// PackageNamespaces binds the prefixes used for manifest and LOM lookups.
var PackageNamespaces = map[string]string{
	"qti": NamespaceCP,
	"lom": NamespaceLOM,
}

// Query compiles namespace-qualified XPath expressions once and reuses them.
// A Query is safe for concurrent use.
type Query struct {
	namespaces map[string]string

	mu    sync.Mutex
	exprs map[string]*xpath.Expr
}

// NewQuery returns a query context with the given prefix bindings.
func NewQuery(namespaces map[string]string) *Query {
	ns := make(map[string]string, len(namespaces))
	for k, v := range namespaces {
		ns[k] = v
	}
	return &Query{namespaces: ns, exprs: make(map[string]*xpath.Expr)}
}

// Compile returns the compiled form of expr, compiling it on first use.
func (q *Query) Compile(expr string) (*xpath.Expr, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if compiled, ok := q.exprs[expr]; ok {
		return compiled, nil
	}
	compiled, err := xpath.CompileWithNS(expr, q.namespaces)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	q.exprs[expr] = compiled
	return compiled, nil
}

// All returns every node matching expr relative to n.
func (q *Query) All(n *xmlquery.Node, expr string) ([]*xmlquery.Node, error) {
	compiled, err := q.Compile(expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelectorAll(n, compiled), nil
}

// First returns the first node matching expr relative to n, or nil.
func (q *Query) First(n *xmlquery.Node, expr string) (*xmlquery.Node, error) {
	compiled, err := q.Compile(expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelector(n, compiled), nil
}

// Parse parses an XML document held in memory.
func Parse(document string) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return nil, err
	}
	if Root(doc) == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return doc, nil
}

// Root returns the document element of doc.
func Root(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// Children returns the element children of n, optionally filtered by local name.
func Children(n *xmlquery.Node, local string) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && (local == "" || c.Data == local) {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first element child of n with the given local name.
func Child(n *xmlquery.Node, local string) *xmlquery.Node {
	if children := Children(n, local); len(children) > 0 {
		return children[0]
	}
	return nil
}

// Descendants returns the elements below n with the given local name in
// document order.
func Descendants(n *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(p *xmlquery.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			if c.Data == local {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// Attr returns the trimmed value of the attribute with the given local name.
func Attr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// HasAttr reports whether n carries the attribute.
func HasAttr(n *xmlquery.Node, local string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return true
		}
	}
	return false
}

// Text returns the trimmed text content of n.
func Text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}

// InnerXML serialises the children of n.
func InnerXML(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.OutputXML(false))
}
