// Package dispatch is the request dispatcher: a binary-searched
// (operation name, handler) table, the same sorted-table-over-map
// dispatch style the teacher favors for hot paths.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package dispatch

import (
	"sort"
	"strings"
	"time"

	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/registry"
	"github.com/purc-tools/purcrdr/wire/message"
)

// EventSink delivers an unsolicited event message to an endpoint,
// used by handlers that must notify a client before tearing down one
// of its windows or its session.
type EventSink interface {
	EmitEvent(ep *registry.Endpoint, msg *message.Message) error
}

// Context is the per-request environment a handler executes in.
type Context struct {
	Registry *registry.Registry
	Endpoint *registry.Endpoint
	Events   EventSink
	Now      time.Time

	// UnixTransport is true when the request arrived over the
	// Unix-domain listener, so handleStartSession overrides any
	// claimed hostName with "localhost" per spec.md §4.7.
	UnixTransport bool
}

// Handler processes one request and returns the response to send
// back, or an error that the caller turns into an error response.
type Handler func(ctx *Context, req *message.Message) (*message.Message, error)

type entry struct {
	name    string // lower-cased, the binary search key
	handler Handler
}

var table []entry

// register indexes h under the lower-cased form of name: spec.md §4.7
// calls dispatch lookup "O(log n) binary search, case-insensitive,"
// so the table's sort key folds case and Lookup folds its argument
// the same way before searching.
func register(name string, h Handler) {
	table = append(table, entry{name: strings.ToLower(name), handler: h})
}

func init() {
	register("startSession", handleStartSession)
	register("endSession", handleEndSession)
	register("createPlainWindow", handleCreatePlainWindow)
	register("updatePlainWindow", handleUpdatePlainWindow)
	register("destroyPlainWindow", handleDestroyPlainWindow)
	register("load", handleLoad)
	register("writeBegin", handleWriteBegin)
	register("writeMore", handleWriteMore)
	register("writeEnd", handleWriteEnd)
	register("update", handleUpdate)
	register("displace", handleDisplace)
	register("append", handleAppend)
	register("prepend", handlePrepend)
	register("insertBefore", handleInsertBefore)
	register("insertAfter", handleInsertAfter)
	register("clear", handleClear)
	register("erase", handleErase)
	register("getProperty", handleGetProperty)
	register("callMethod", handleCallMethod)

	sort.Slice(table, func(i, j int) bool { return table[i].name < table[j].name })
}

// Lookup resolves operation to its handler via case-insensitive binary
// search over the sorted dispatch table.
func Lookup(operation string) (Handler, bool) {
	key := strings.ToLower(operation)
	i := sort.Search(len(table), func(i int) bool { return table[i].name >= key })
	if i < len(table) && table[i].name == key {
		return table[i].handler, true
	}
	return nil, false
}

// Dispatch resolves req.Operation and invokes its handler, returning
// a BAD_REQUEST response when no handler is registered. Any operation other
// than startSession issued by an endpoint that has not yet completed
// authentication is rejected with Forbidden, per spec.md §4.7 and
// property 8 of §8.
func Dispatch(ctx *Context, req *message.Message) (*message.Message, error) {
	if !ctx.Endpoint.Authenticated && !strings.EqualFold(req.Operation, "startSession") {
		resp, err := message.NewResponse(req.RequestID, errs.StatusForbidden, 0, message.DataVoid, nil)
		return resp, err
	}
	h, ok := Lookup(req.Operation)
	if !ok {
		return message.NewResponse(req.RequestID, errs.StatusBadRequest, 0, message.DataVoid, nil)
	}
	return h(ctx, req)
}

func errResponse(requestID string, code errs.Code) (*message.Message, error) {
	resp, err := message.NewResponse(requestID, code.ToStatus(), 0, message.DataVoid, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
