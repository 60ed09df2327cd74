// Package registry is the endpoint registry: an endpoint_map keyed by
// endpoint name, a living_index ordered by last-activity time for
// O(log n) housekeeping sweeps, and a dangling_list of endpoints that
// have connected but not yet completed startSession. It replaces the
// teacher's internal/session.SessionManager sharding — built for
// concurrent access this single-threaded server loop never needs —
// while keeping its Create/Get/Delete/Range-shaped surface.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package registry

import (
	"time"

	"github.com/google/btree"

	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/ident"
	"github.com/purc-tools/purcrdr/session"
)

// Endpoint is one connected PURCMC client.
type Endpoint struct {
	Name   string // "@host/app/runner"
	Host   string
	App    string
	Runner string
	Token  string

	Authenticated bool
	TLiving       int64 // unix nanoseconds of last observed activity
	LastPingSent  int64

	Windows      map[uint64]*session.PlainWindow
	WindowByName map[string]*session.PlainWindow
	PendingWrite map[uint64][]byte

	// Transport carries whatever the server package needs to write
	// back to this endpoint (the server package's *conn); kept as an opaque
	// value here so registry has no transport dependency.
	Transport any
}

func newEndpoint(name, host, app, runner string) *Endpoint {
	return &Endpoint{
		Name:         name,
		Host:         host,
		App:          app,
		Runner:       runner,
		Windows:      make(map[uint64]*session.PlainWindow),
		WindowByName: make(map[string]*session.PlainWindow),
		PendingWrite: make(map[uint64][]byte),
	}
}

// NewPendingEndpoint registers a freshly accepted connection whose
// identity (host/app/runner) is not yet known: the AUTHING state of
// spec.md's lifecycle, before the client's startSession request
// arrives. It is pushed onto the dangling list unkeyed; Authenticate
// assigns its name once startSession is parsed.
func (r *Registry) NewPendingEndpoint(now time.Time) *Endpoint {
	ep := newEndpoint("", "", "", "")
	ep.TLiving = now.UnixNano()
	r.dangling = append(r.dangling, ep)
	return ep
}

// Authenticate assigns ep its endpoint name from (host, app, runner)
// and promotes it from the dangling list into the live endpoint map
// and living index, following a successful startSession. It fails
// with CodeInvalidValue for malformed names and CodeDuplicated if the
// assembled name is already registered.
func (r *Registry) Authenticate(ep *Endpoint, host, app, runner string, now time.Time) error {
	name, err := ident.AssembleEndpointName(host, app, runner)
	if err != nil {
		return errs.New(errs.CodeInvalidValue, err.Error())
	}
	if _, exists := r.byName[name]; exists {
		return errs.New(errs.CodeDuplicated, "endpoint already registered: "+name)
	}
	ep.Host, ep.App, ep.Runner, ep.Name = host, app, runner, name
	for i, d := range r.dangling {
		if d == ep {
			r.dangling = append(r.dangling[:i], r.dangling[i+1:]...)
			break
		}
	}
	ep.Authenticated = true
	ep.TLiving = now.UnixNano()
	r.byName[name] = ep
	r.living.ReplaceOrInsert(ep)
	return nil
}

// AddWindow registers w under both its handle and its name.
func (ep *Endpoint) AddWindow(w *session.PlainWindow) {
	ep.Windows[w.Handle] = w
	ep.WindowByName[w.Name] = w
}

// RemoveWindow drops w from both indexes.
func (ep *Endpoint) RemoveWindow(w *session.PlainWindow) {
	delete(ep.Windows, w.Handle)
	delete(ep.WindowByName, w.Name)
	delete(ep.PendingWrite, w.Handle)
}

// RenameWindow updates the name index after w.Name changes.
func (ep *Endpoint) RenameWindow(oldName string, w *session.PlainWindow) {
	delete(ep.WindowByName, oldName)
	ep.WindowByName[w.Name] = w
}

// livingLess orders endpoints by TLiving, breaking ties by Name so
// every live endpoint occupies a distinct BTree slot.
func livingLess(a, b *Endpoint) bool {
	if a.TLiving != b.TLiving {
		return a.TLiving < b.TLiving
	}
	return a.Name < b.Name
}

// Registry owns every connected endpoint.
type Registry struct {
	byName   map[string]*Endpoint
	living   *btree.BTreeG[*Endpoint]
	dangling []*Endpoint
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]*Endpoint),
		living: btree.NewG(32, livingLess),
	}
}

// Get looks up a live (authenticated) endpoint by name.
func (r *Registry) Get(name string) (*Endpoint, bool) {
	ep, ok := r.byName[name]
	return ep, ok
}

// Delete removes ep from every index it may appear in, for use when
// its connection is gone for good (close/error/no-response).
func (r *Registry) Delete(ep *Endpoint) {
	delete(r.byName, ep.Name)
	r.living.Delete(ep)
	for i, d := range r.dangling {
		if d == ep {
			r.dangling = append(r.dangling[:i], r.dangling[i+1:]...)
			break
		}
	}
}

// Deauthenticate ends ep's session without touching its connection:
// it drops ep out of endpoint_map/living_index (it is no longer
// READY) and clears Authenticated, but leaves the Endpoint and its
// transport alive so a later startSession on the same socket can
// re-authenticate it. This is endSession's counterpart to Delete,
// which a closed/errored connection uses instead.
func (r *Registry) Deauthenticate(ep *Endpoint) {
	delete(r.byName, ep.Name)
	r.living.Delete(ep)
	ep.Authenticated = false
}

// Range calls fn for every live endpoint until fn returns false; it
// ranges over a Go map, so the order is unspecified (matching the
// teacher's Range contract).
func (r *Registry) Range(fn func(ep *Endpoint) bool) {
	for _, ep := range r.byName {
		if !fn(ep) {
			return
		}
	}
}

// Dangling returns the current dangling list, oldest first.
func (r *Registry) Dangling() []*Endpoint {
	return r.dangling
}

// UpdateLiving bumps ep's last-activity time. For an AUTHING endpoint
// (not yet in the living index — see dangling list, §3) this only
// updates TLiving, which ReapDangling's age check reads directly; it
// must not insert ep into the living index, since that index is
// defined to hold exactly the READY endpoints (§3 invariants) and an
// AUTHING endpoint has no Name to order by, colliding with every other
// not-yet-authenticated endpoint at the BTree's "" key. For a READY
// endpoint, reposition it in the living index to match its new
// TLiving.
func (r *Registry) UpdateLiving(ep *Endpoint, now time.Time) {
	if !ep.Authenticated {
		ep.TLiving = now.UnixNano()
		return
	}
	r.living.Delete(ep)
	ep.TLiving = now.UnixNano()
	r.living.ReplaceOrInsert(ep)
}

// ReapDangling removes every dangling endpoint whose age exceeds
// maxAge, returning the removed endpoints so the caller can close
// their transports and log the timeout.
func (r *Registry) ReapDangling(now time.Time, maxAge time.Duration) []*Endpoint {
	cutoff := now.Add(-maxAge).UnixNano()
	var reaped []*Endpoint
	kept := r.dangling[:0]
	for _, ep := range r.dangling {
		if ep.TLiving < cutoff {
			reaped = append(reaped, ep)
		} else {
			kept = append(kept, ep)
		}
	}
	r.dangling = kept
	return reaped
}

// CheckNoResponding walks the living index from the oldest entry,
// returning every endpoint whose TLiving is older than maxAge. The
// BTree order lets the sweep stop at the first endpoint still within
// the window instead of visiting every live endpoint.
func (r *Registry) CheckNoResponding(now time.Time, maxAge time.Duration) []*Endpoint {
	cutoff := now.Add(-maxAge).UnixNano()
	var stale []*Endpoint
	r.living.Ascend(func(ep *Endpoint) bool {
		if ep.TLiving >= cutoff {
			return false
		}
		stale = append(stale, ep)
		return true
	})
	return stale
}
