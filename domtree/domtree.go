// Package domtree is the opaque DOM capability shim: it parses and
// mutates a PlainWindow's document without exposing a browser-grade
// DOM API to the rest of the module. It wraps golang.org/x/net/html,
// generalizing the teacher's pattern of hiding a heavyweight
// third-party type behind a small capability interface (see
// api/interfaces.go's Transport/Reactor abstractions).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package domtree

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/purc-tools/purcrdr/errs"
)

// Document owns the root of a parsed fragment tree for one window.
type Document struct {
	root *html.Node
}

// Parse builds a Document from an HTML fragment body, the payload of
// a load/writeBegin+writeMore+writeEnd sequence.
func Parse(body []byte) (*Document, error) {
	nodes, err := html.ParseFragment(bytes.NewReader(body), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, errs.New(errs.CodeProtocol, "malformed document fragment: "+err.Error())
	}
	root := &html.Node{Type: html.ElementNode, Data: "body"}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// Root returns the document's synthetic root element.
func (d *Document) Root() *html.Node {
	return d.root
}

// Render serializes the whole document back to HTML text.
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, errs.New(errs.CodeIO, "document render failed: "+err.Error())
		}
	}
	return buf.Bytes(), nil
}

// FindByCSS resolves a minimal CSS selector: "tag", "#id", or
// "tag#id", matching the subset the original renderer's dom-tree.c
// select-by-id/select-by-tag paths use. It returns the first match in
// document order, or nil.
func FindByCSS(root *html.Node, selector string) *html.Node {
	wantID := ""
	wantTag := ""
	if strings.HasPrefix(selector, "#") {
		wantID = selector[1:]
	} else if idx := strings.IndexByte(selector, '#'); idx >= 0 {
		wantTag = selector[:idx]
		wantID = selector[idx+1:]
	} else {
		wantTag = selector
	}

	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		matches := n.Type == html.ElementNode &&
			(wantTag == "" || n.Data == wantTag) &&
			(wantID == "" || attr(n, "id") == wantID)
		if matches {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(root)
	return found
}

// FindByXPath resolves the tiny XPath subset the original renderer
// supports: a '/'-separated chain of tag names from the document root
// (e.g. "/body/div/span"), no predicates. A first step equal to the
// root's own tag names the root itself; every other step selects the
// first child element with that tag.
func FindByXPath(root *html.Node, path string) *html.Node {
	steps := strings.Split(strings.Trim(path, "/"), "/")
	cur := root
	for i, step := range steps {
		if step == "" {
			continue
		}
		if i == 0 && cur.Type == html.ElementNode && cur.Data == step {
			continue
		}
		next := firstChildTag(cur, step)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func firstChildTag(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	return Attr(n, key)
}

// Attr returns the value of n's key attribute, or "" if n carries no
// such attribute. Exported so callers outside this package (the
// session handle index, in particular) can read client-supplied
// attributes such as hvml:handle without reimplementing the scan.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// GetProperty reads back a property of element: "textContent" returns
// the concatenation of its text node children; anything else is
// looked up as an HTML attribute.
func GetProperty(element *html.Node, property string) (string, bool) {
	if element == nil {
		return "", false
	}
	if property == "textContent" {
		var b strings.Builder
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.TextNode {
				b.WriteString(n.Data)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(element)
		return b.String(), true
	}
	for _, a := range element.Attr {
		if a.Key == property {
			return a.Val, true
		}
	}
	return "", false
}

// SetProperty writes property on element; "textContent" replaces all
// children with a single text node, everything else sets/replaces the
// matching HTML attribute.
func SetProperty(element *html.Node, property, value string) {
	if property == "textContent" {
		for c := element.FirstChild; c != nil; {
			next := c.NextSibling
			element.RemoveChild(c)
			c = next
		}
		element.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return
	}
	for i, a := range element.Attr {
		if a.Key == property {
			element.Attr[i].Val = value
			return
		}
	}
	element.Attr = append(element.Attr, html.Attribute{Key: property, Val: value})
}

// ParseElements parses body as a forest of elements usable as the
// operand of a mutation operation (append/prepend/insertBefore/...).
func ParseElements(body []byte) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(bytes.NewReader(body), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, errs.New(errs.CodeProtocol, "malformed element fragment: "+err.Error())
	}
	return nodes, nil
}
