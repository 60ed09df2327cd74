package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/purc-tools/purcrdr/control"
	"github.com/purc-tools/purcrdr/dispatch"
	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/logging"
	"github.com/purc-tools/purcrdr/registry"
	"github.com/purc-tools/purcrdr/wire/message"
)

// evKind distinguishes the handful of things that can land in the
// dispatch goroutine's inbox; only that goroutine ever reads byConn,
// byEndpoint, or the Registry.
type evKind int

const (
	evNewConn evKind = iota
	evPacket
	evClosed
)

type inboxEvent struct {
	kind evKind
	c    *conn
	pkt  *message.Message
	err  error
}

// Server multiplexes every accepted connection onto one dispatch
// goroutine that owns the Registry, satisfying the single-writer
// invariant spec.md's concurrency model depends on.
type Server struct {
	cfg *Config
	reg *registry.Registry
	log logging.Logger

	inbox chan inboxEvent

	byConn     map[*conn]*registry.Endpoint
	byEndpoint map[*registry.Endpoint]*conn

	// hk holds the current housekeeping intervals; touched only by
	// the Run goroutine (seeded at Run's start, updated on reload),
	// same single-owner discipline as byConn/byEndpoint/reg.
	hk control.HousekeepingConfig

	// usClients/wsClients count live accepted connections per listener,
	// checked against cfg.MaxClientsEachListener by acceptLoop before
	// it even hands a socket to onAccept, per spec.md §4.5.
	usClients atomic.Int64
	wsClients atomic.Int64
}

// New builds a Server around cfg, falling back to package defaults
// for any zero-valued field.
func New(cfg *Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:        cfg,
		reg:        registry.New(),
		log:        cfg.Logger,
		inbox:      make(chan inboxEvent, cfg.MaxClientsEachListener),
		byConn:     make(map[*conn]*registry.Endpoint),
		byEndpoint: make(map[*registry.Endpoint]*conn),
	}
}

// Registry exposes the server's endpoint registry for diagnostics and
// tests.
func (s *Server) Registry() *registry.Registry { return s.reg }

// EmitEvent satisfies dispatch.EventSink by serializing msg and
// enqueuing it on ep's connection outbound ring; it is safe to call
// only from the dispatch goroutine (Run), since it reads byEndpoint.
func (s *Server) EmitEvent(ep *registry.Endpoint, msg *message.Message) error {
	c, ok := s.byEndpoint[ep]
	if !ok {
		return errs.New(errs.CodeClosed, "endpoint has no active connection")
	}
	return s.writeMessage(c, msg)
}

func (s *Server) writeMessage(c *conn, msg *message.Message) error {
	payload := message.Serialize(msg)
	if c.ws {
		return sendWS(c, payload)
	}
	return sendUS(c, payload)
}

// Run drives the single dispatch goroutine until ctx is cancelled: it
// services the inbox, runs housekeeping on tickers sourced from
// cfg.Housekeeping, and tears down every connection on exit. A
// reload of cfg.Housekeeping's intervals resets the tickers without
// restarting the loop.
func (s *Server) Run(ctx context.Context) error {
	s.hk = s.cfg.Housekeeping.GetSnapshot()

	reapTicker := time.NewTicker(s.hk.ReapDanglingPeriod)
	defer reapTicker.Stop()
	noRespTicker := time.NewTicker(s.hk.CheckNoRespondingPeriod)
	defer noRespTicker.Stop()

	reload := make(chan control.HousekeepingConfig, 1)
	s.cfg.Housekeeping.OnReload(func(next control.HousekeepingConfig) {
		select {
		case reload <- next:
		default:
		}
	})

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()

		case ev := <-s.inbox:
			s.handleEvent(ev)

		case next := <-reload:
			s.hk = next
			reapTicker.Reset(next.ReapDanglingPeriod)
			noRespTicker.Reset(next.CheckNoRespondingPeriod)
			s.log.Info("housekeeping intervals reloaded",
				"reap", next.ReapDanglingPeriod, "checkNoResponding", next.CheckNoRespondingPeriod)

		case now := <-reapTicker.C:
			s.reapDangling(now)

		case now := <-noRespTicker.C:
			s.checkNoResponding(now)
		}
	}
}

func (s *Server) shutdown() {
	for c := range s.byConn {
		c.close()
	}
}

func (s *Server) handleEvent(ev inboxEvent) {
	switch ev.kind {
	case evNewConn:
		ep := s.reg.NewPendingEndpoint(time.Now())
		ep.Transport = ev.c
		s.byConn[ev.c] = ep
		s.byEndpoint[ep] = ev.c

	case evPacket:
		s.processPacket(ev.c, ev.pkt)

	case evClosed:
		s.dropConn(ev.c)
	}
}

func (s *Server) processPacket(c *conn, req *message.Message) {
	ep, ok := s.byConn[c]
	if !ok {
		return
	}

	now := time.Now()
	s.reg.UpdateLiving(ep, now)

	dctx := &dispatch.Context{
		Registry:      s.reg,
		Endpoint:      ep,
		Events:        s,
		Now:           now,
		UnixTransport: !c.ws,
	}

	resp, err := dispatch.Dispatch(dctx, req)
	if err != nil {
		s.log.Warn("dispatch failed", "operation", req.Operation, "error", err)
		resp, err = message.NewResponse(req.RequestID, errs.StatusInternalServerError, 0, message.DataVoid, nil)
		if err != nil {
			return
		}
	}
	if resp == nil {
		return
	}
	if werr := s.writeMessage(c, resp); werr != nil {
		s.log.Warn("response write failed", "error", werr)
		c.close()
	}
}

func (s *Server) dropConn(c *conn) {
	ep, ok := s.byConn[c]
	if !ok {
		c.close()
		return
	}
	delete(s.byConn, c)
	delete(s.byEndpoint, ep)
	s.reg.Delete(ep)
	c.close()
}

func (s *Server) reapDangling(now time.Time) {
	for _, ep := range s.reg.ReapDangling(now, s.hk.MaxNoRespondingTime) {
		if c, ok := ep.Transport.(*conn); ok {
			s.log.Info("reaping dangling endpoint", "endpoint", fmt.Sprintf("%p", ep))
			s.dropConn(c)
		}
	}
}

func (s *Server) checkNoResponding(now time.Time) {
	for _, ep := range s.reg.CheckNoResponding(now, s.hk.MaxPingTime) {
		c, ok := s.byEndpoint[ep]
		if !ok {
			continue
		}
		if ep.LastPingSent != 0 && now.UnixNano()-ep.LastPingSent < int64(s.hk.MaxPingTime) {
			continue
		}
		if err := pingConn(c); err != nil {
			s.log.Warn("ping failed, dropping endpoint", "endpoint", ep.Name, "error", err)
			s.dropConn(c)
			continue
		}
		ep.LastPingSent = now.UnixNano()
	}

	for _, ep := range s.reg.CheckNoResponding(now, s.hk.MaxNoRespondingTime) {
		if c, ok := s.byEndpoint[ep]; ok {
			s.log.Info("endpoint not responding, dropping", "endpoint", ep.Name)
			s.dropConn(c)
		}
	}
}
