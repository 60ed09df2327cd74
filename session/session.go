// Package session holds per-endpoint client-visible state: its
// PlainWindows, each with a DOM document and an hvml:handle index
// element lookups resolve through. There is no locking here — the
// single-threaded server loop is this package's only caller.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/purc-tools/purcrdr/domtree"
)

// handleAttr is the HTML attribute clients stamp on an element to make
// it individually addressable by future update/mutation requests.
const handleAttr = "hvml:handle"

var nextHandle uint64

// allocHandle returns the next process-local handle, for server-owned
// objects (windows, sessions) rather than elements — those are keyed
// by their own hvml:handle attribute instead. Handles are never reused
// within a process lifetime, so a stale handle from a destroyed window
// is always recognizably invalid.
func allocHandle() uint64 {
	return atomic.AddUint64(&nextHandle, 1)
}

// AllocHandle exposes allocHandle for callers (such as handleStartSession
// in package dispatch) that need a server-assigned handle outside this
// package.
func AllocHandle() uint64 {
	return allocHandle()
}

// PlainWindow is one top-level window owned by an endpoint.
type PlainWindow struct {
	Handle   uint64
	Name     string
	Title    string
	Document *domtree.Document

	index *HandleIndex
}

// NewPlainWindow creates an empty window, allocating it a fresh
// handle, ready to receive a load or writeBegin/writeMore/writeEnd
// sequence.
func NewPlainWindow(name, title string) *PlainWindow {
	return &PlainWindow{
		Handle: allocHandle(),
		Name:   name,
		Title:  title,
		index:  NewHandleIndex(),
	}
}

// Load replaces the window's document with body, indexing every
// element that carries an hvml:handle attribute under that attribute's
// value.
func (w *PlainWindow) Load(body []byte) error {
	doc, err := domtree.Parse(body)
	if err != nil {
		return err
	}
	w.Document = doc
	w.index = NewHandleIndex()
	w.assignHandles(doc.Root())
	return nil
}

// assignHandles walks n and indexes every element node that carries an
// hvml:handle attribute, keyed by the attribute's own value parsed as
// base-16, per the wire format's handle encoding. Elements without the
// attribute are not indexed but are still traversed into, since a
// descendant may carry one. A malformed (non-hex) attribute value is
// likewise skipped rather than rejecting the whole load.
func (w *PlainWindow) assignHandles(n *html.Node) {
	if n.Type == html.ElementNode {
		if raw := domtree.Attr(n, handleAttr); raw != "" {
			if handle, err := strconv.ParseUint(raw, 16, 64); err == nil {
				w.index.Insert(handle, n)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.assignHandles(c)
	}
}

// Resolve looks up an element by its hvml:handle.
func (w *PlainWindow) Resolve(handle uint64) (*html.Node, bool) {
	return w.index.Lookup(handle)
}

// AdoptSubtree assigns handles to every element node newly attached
// to the document (the result of an append/prepend/insertBefore/
// insertAfter mutation), making them resolvable by future requests.
func (w *PlainWindow) AdoptSubtree(n *html.Node) {
	w.assignHandles(n)
}

// ForgetSubtree removes every element node under n (inclusive) from
// the handle index, the counterpart to AdoptSubtree called before a
// clear/erase mutation detaches them.
func (w *PlainWindow) ForgetSubtree(n *html.Node) {
	if n.Type == html.ElementNode {
		if h, ok := w.index.HandleOf(n); ok {
			w.index.Remove(h)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.ForgetSubtree(c)
	}
}
