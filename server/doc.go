// Package server is the renderer's connection multiplexer and
// endpoint lifecycle manager (C5): it owns the Unix-domain and
// WebSocket listeners, accepts clients, frames/parses packets on
// their behalf, and drives C6 (registry) + C7 (dispatch) with every
// decoded request.
//
// Concurrency model: spec.md §5 specifies a single-threaded
// cooperative server so that endpoint/session state needs no locking.
// The teacher's epoll-based reactor (reactor/epoll_reactor.go)
// achieves that by hand-rolling non-blocking I/O in one goroutine —
// idiomatic in a language without a runtime scheduler, but fighting
// Go's own netpoller rather than using it. This package keeps the
// spirit of the invariant (every registry/dispatch mutation happens
// on exactly one goroutine) while using Go's native concurrency: one
// reader goroutine and one writer goroutine per connection do nothing
// but move bytes (blocking reads via the wire/frame codec, queued
// writes via a bounded eapache/queue ring), funneling decoded
// messages through a single channel into one dispatch goroutine that
// is the sole owner of the Registry and every Endpoint's session
// state. See DESIGN.md for the full rationale.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server
