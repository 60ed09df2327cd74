package server

import (
	"context"
	"net"
	"os"
	"sync/atomic"

	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/wire/frame"
	"github.com/purc-tools/purcrdr/wire/message"
)

func parseMessage(pkt *frame.Packet) (*message.Message, error) {
	return message.Parse(pkt.Payload)
}

// bestEffortTooLargeResponse writes a PACKET_TOO_LARGE response ahead
// of closing a connection whose inbound packet exceeded
// MAX_INMEM_PAYLOAD_SIZE (S5, spec.md §6). There is no parsed request
// to correlate this to — the packet was rejected by the frame codec
// before the message codec ever saw it — so the response carries an
// empty requestId; this is the best a receiver gets, per §7's
// "best-effort" framing-error propagation.
func (s *Server) bestEffortTooLargeResponse(c *conn, err error) {
	perr, ok := err.(*errs.Error)
	if !ok || perr.Code != errs.CodeTooLarge {
		return
	}
	resp := &message.Message{
		Type:     message.TypeResponse,
		RetCode:  errs.StatusPacketTooLarge,
		DataType: message.DataVoid,
	}
	_ = s.writeMessage(c, resp)
}

// Start binds every listener named by s.cfg and spawns an accept
// goroutine for each; it returns once listeners are bound, leaving
// acceptance to run in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if path := s.cfg.UnixSocketPath; path != "" {
		ln, err := listenUnix(path)
		if err != nil {
			return err
		}
		go s.acceptLoop(ctx, ln, false)
	}

	if addr := s.cfg.WSAddr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		go s.acceptLoop(ctx, ln, true)
	}

	return nil
}

// listenUnix binds a Unix-domain listener at path, removing a stale
// socket file left behind by a previous, uncleanly terminated run.
func listenUnix(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0700); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, ws bool) {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	counter := &s.usClients
	if ws {
		counter = &s.wsClients
	}

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		// MAX_CLIENTS_EACH per listener (spec.md §4.5): refuse by
		// closing immediately rather than handing the socket to
		// onAccept, which would otherwise count against a registry
		// this listener has no room left to track.
		if counter.Add(1) > int64(s.cfg.MaxClientsEachListener) {
			counter.Add(-1)
			s.log.Warn("refusing connection: listener at capacity", "ws", ws)
			nc.Close()
			continue
		}
		go s.onAccept(ctx, nc, ws, counter)
	}
}

// onAccept completes the WS handshake (if any), registers the
// connection's pending endpoint with the dispatch goroutine, then
// blocks reading packets and forwarding them to the inbox until the
// connection closes. slot is released exactly once, on every exit path.
func (s *Server) onAccept(ctx context.Context, nc net.Conn, ws bool, slot *atomic.Int64) {
	defer slot.Add(-1)

	c := newConn(nc, ws)

	if ws {
		hdr, br, err := frame.DoServerHandshake(nc)
		if err != nil {
			s.log.Warn("ws handshake failed", "error", err)
			nc.Close()
			return
		}
		if err := frame.WriteHandshakeResponse(nc, hdr); err != nil {
			nc.Close()
			return
		}
		c.br = br
	}

	go c.runWriter()

	select {
	case s.inbox <- inboxEvent{kind: evNewConn, c: c}:
	case <-ctx.Done():
		c.close()
		return
	}

	for {
		pkt, err := recvPacket(c)
		if err != nil {
			s.bestEffortTooLargeResponse(c, err)
			select {
			case s.inbox <- inboxEvent{kind: evClosed, c: c, err: err}:
			case <-ctx.Done():
			}
			return
		}

		msg, perr := parseMessage(pkt)
		if perr != nil {
			s.log.Warn("bad packet", "error", perr)
			continue
		}

		select {
		case s.inbox <- inboxEvent{kind: evPacket, c: c, pkt: msg}:
		case <-ctx.Done():
			return
		}
	}
}
