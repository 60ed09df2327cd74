package dispatch

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/purc-tools/purcrdr/domtree"
	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/session"
	"github.com/purc-tools/purcrdr/wire/message"
)

// resolveElement finds req's target element within w's document,
// dispatching on req.ElementType the way the original renderer's
// dom-tree.c does: a handle is an O(log n) index lookup, CSS/XPath a
// tree walk.
func resolveElement(w *session.PlainWindow, req *message.Message) (*html.Node, error) {
	switch req.ElementType {
	case message.ElementHandle:
		handle, err := strconv.ParseUint(req.Element, 16, 64)
		if err != nil {
			return nil, errs.New(errs.CodeInvalidValue, "malformed element handle")
		}
		el, ok := w.Resolve(handle)
		if !ok {
			return nil, errs.New(errs.CodeInvalidValue, "unknown element handle")
		}
		return el, nil
	case message.ElementCSS:
		el := domtree.FindByCSS(w.Document.Root(), req.Element)
		if el == nil {
			return nil, errs.New(errs.CodeInvalidValue, "no element matches selector")
		}
		return el, nil
	case message.ElementXPath:
		el := domtree.FindByXPath(w.Document.Root(), req.Element)
		if el == nil {
			return nil, errs.New(errs.CodeInvalidValue, "no element matches path")
		}
		return el, nil
	default:
		return w.Document.Root(), nil
	}
}

func handleUpdate(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	el, err := resolveElement(w, req)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	if req.Property == "textContent" {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			w.ForgetSubtree(c)
		}
	}
	domtree.SetProperty(el, req.Property, string(req.Data))
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}

func handleGetProperty(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	el, err := resolveElement(w, req)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	val, found := domtree.GetProperty(el, req.Property)
	if !found {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataText, []byte(val))
}

func handleCallMethod(ctx *Context, req *message.Message) (*message.Message, error) {
	// No scripting engine is embedded; callMethod only recognizes the
	// read-back alias "getProperty" left for clients that issue method
	// calls uniformly.
	if req.Property == "getProperty" {
		return handleGetProperty(ctx, req)
	}
	return errResponse(req.RequestID, errs.CodeNotImplemented)
}

type mutateFunc func(w *session.PlainWindow, target *html.Node, nodes []*html.Node)

func insertAppend(w *session.PlainWindow, target *html.Node, nodes []*html.Node) {
	for _, n := range nodes {
		target.AppendChild(n)
	}
}

func insertPrepend(w *session.PlainWindow, target *html.Node, nodes []*html.Node) {
	first := target.FirstChild
	for _, n := range nodes {
		target.InsertBefore(n, first)
	}
}

func insertBefore(w *session.PlainWindow, target *html.Node, nodes []*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		parent.InsertBefore(n, target)
	}
}

func insertAfter(w *session.PlainWindow, target *html.Node, nodes []*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	ref := target.NextSibling
	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}
}

// displace replaces target's entire child list with nodes, forgetting
// the outgoing children's handle-index entries first — the same
// detach-before-remove order handleClear/handleErase use — so a
// re-render of the same window never leaves a stale or duplicate
// HandleIndex entry behind.
func displace(w *session.PlainWindow, target *html.Node, nodes []*html.Node) {
	for c := target.FirstChild; c != nil; {
		next := c.NextSibling
		w.ForgetSubtree(c)
		target.RemoveChild(c)
		c = next
	}
	insertAppend(w, target, nodes)
}

func runMutation(ctx *Context, req *message.Message, mutate mutateFunc) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	el, err := resolveElement(w, req)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	nodes, err := domtree.ParseElements(req.Data)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}
	mutate(w, el, nodes)
	for _, n := range nodes {
		w.AdoptSubtree(n)
	}
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}

func handleDisplace(ctx *Context, req *message.Message) (*message.Message, error) {
	return runMutation(ctx, req, displace)
}

func handleAppend(ctx *Context, req *message.Message) (*message.Message, error) {
	return runMutation(ctx, req, insertAppend)
}

func handlePrepend(ctx *Context, req *message.Message) (*message.Message, error) {
	return runMutation(ctx, req, insertPrepend)
}

func handleInsertBefore(ctx *Context, req *message.Message) (*message.Message, error) {
	return runMutation(ctx, req, insertBefore)
}

func handleInsertAfter(ctx *Context, req *message.Message) (*message.Message, error) {
	return runMutation(ctx, req, insertAfter)
}

func handleClear(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	el, err := resolveElement(w, req)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		w.ForgetSubtree(c)
		el.RemoveChild(c)
		c = next
	}
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}

func handleErase(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	el, err := resolveElement(w, req)
	if err != nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	parent := el.Parent
	if parent == nil {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	w.ForgetSubtree(el)
	parent.RemoveChild(el)
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}
