// Package client implements the renderer client connection: a
// single-owner, non-thread-safe Conn matching the server's
// single-threaded cooperative model (no internal locking, no
// background send/recv goroutines). Adapted from the teacher's
// client/facade.go connection-setup shape, with the NUMA/batch/
// zero-copy send-recv loops replaced by the spec's pending-request
// map and deadline-based wait.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/ident"
	"github.com/purc-tools/purcrdr/wire/frame"
	"github.com/purc-tools/purcrdr/wire/message"
)

// Conn is a connection to one PURCMC renderer, addressed by the
// caller's own endpoint identity. It owns no goroutines; callers
// drive it by calling ReadAndDispatchPacket (or WaitAndDispatchPacket)
// from their own event loop.
type Conn struct {
	nc      net.Conn
	pending map[string]chan *message.Message

	// OnEvent, if set, receives every event message the renderer
	// pushes unsolicited (e.g. a window-destroyed notification).
	OnEvent func(*message.Message)
}

// ConnectUnix dials the renderer's Unix-domain socket at path (default
// constants.DefaultUnixSocketPath), first binding a per-process client
// address under CLI_PATH named "<md5(app/runner)>-<pid>", mode 0700.
// If that address is already taken by a stale socket file from a
// reused pid, it retries once with a uuid-suffixed address instead of
// failing the connection outright.
func ConnectUnix(path, app, runner string) (*Conn, error) {
	if path == "" {
		path = constants.DefaultUnixSocketPath
	}

	laddr, err := bindClientAddr(app, runner)
	if err != nil {
		return nil, err
	}

	raddr := &net.UnixAddr{Name: path, Net: "unix"}
	nc, err := net.DialUnix("unix", laddr, raddr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			fallback, ferr := bindClientAddrFallback(app, runner)
			if ferr != nil {
				return nil, errs.New(errs.CodeBadConnection, "connect unix: "+err.Error())
			}
			nc, err = net.DialUnix("unix", fallback, raddr)
		}
		if err != nil {
			return nil, errs.New(errs.CodeBadConnection, "connect unix: "+err.Error())
		}
	}

	if laddr := nc.LocalAddr(); laddr != nil && laddr.String() != "" {
		_ = os.Chmod(laddr.String(), 0700)
	}

	return &Conn{nc: nc, pending: make(map[string]chan *message.Message)}, nil
}

// cliPathBase strips any trailing slash from constants.DefaultCliPath
// so the joined bind address gets exactly one separator, not
// "<path>//<name>".
func cliPathBase() string {
	return strings.TrimRight(constants.DefaultCliPath, "/")
}

func bindClientAddr(app, runner string) (*net.UnixAddr, error) {
	name := fmt.Sprintf("%s/%s-%d", cliPathBase(), ident.GenerateMD5ID(app+"/"+runner), os.Getpid())
	return &net.UnixAddr{Name: name, Net: "unix"}, nil
}

// bindClientAddrFallback mixes in a uuid so two processes racing on
// the same (app, runner, pid) triple (a reused pid after a crash) can
// both get a bindable address instead of one failing to connect.
func bindClientAddrFallback(app, runner string) (*net.UnixAddr, error) {
	name := fmt.Sprintf("%s/%s-%s-%d", cliPathBase(), ident.GenerateMD5ID(app+"/"+runner), uuid.NewString(), os.Getpid())
	return &net.UnixAddr{Name: name, Net: "unix"}, nil
}

// Disconnect closes the underlying socket.
func (c *Conn) Disconnect() error {
	return c.nc.Close()
}

// SendRequest writes req and returns immediately; the caller observes
// its response through a later ReadAndDispatchPacket or
// SendRequestAndWait call.
func (c *Conn) SendRequest(req *message.Message) error {
	return frame.SendUSPacket(c.nc, frame.KindText, message.Serialize(req))
}

// SendRequestAndWait sends req and blocks until its response arrives
// or deadline elapses, dispatching every other packet read in the
// meantime (events to OnEvent, other responses into their own
// pending slots).
func (c *Conn) SendRequestAndWait(req *message.Message, deadline time.Duration) (*message.Message, error) {
	ch := make(chan *message.Message, 1)
	c.pending[req.RequestID] = ch
	defer delete(c.pending, req.RequestID)

	if err := c.SendRequest(req); err != nil {
		return nil, err
	}

	limit := time.Now().Add(deadline)
	for {
		if deadline > 0 {
			remaining := time.Until(limit)
			if remaining <= 0 {
				return nil, errs.New(errs.CodeTimeout, "request timed out: "+req.RequestID)
			}
			_ = c.nc.SetReadDeadline(time.Now().Add(remaining))
		}
		if _, err := c.ReadAndDispatchPacket(); err != nil {
			// A read deadline elapsing here surfaces as wrapIOErr's
			// CodeTimeout (wire/frame/usframe.go), already the TIMEOUT
			// spec.md §4.4 requires from send_request_and_wait.
			return nil, err
		}
		select {
		case got := <-ch:
			return got, nil
		default:
		}
	}
}

// ReadAndDispatchPacket reads one packet, parses it, and routes it:
// a response is delivered to its waiting SendRequestAndWait call (if
// any) and also returned; an event is handed to OnEvent and returned.
func (c *Conn) ReadAndDispatchPacket() (*message.Message, error) {
	pkt, err := frame.RecvUSPacket(c.nc)
	if err != nil {
		if err == frame.ErrNoPacket {
			return nil, nil
		}
		return nil, err
	}
	m, err := message.Parse(pkt.Payload)
	if err != nil {
		return nil, err
	}

	switch m.Type {
	case message.TypeResponse:
		if ch, ok := c.pending[m.RequestID]; ok {
			select {
			case ch <- m:
			default:
			}
		}
	case message.TypeEvent:
		if c.OnEvent != nil {
			c.OnEvent(m)
		}
	}
	return m, nil
}

// WaitAndDispatchPacket blocks (honoring deadline, 0 = forever) until
// exactly one packet has been read and dispatched.
func (c *Conn) WaitAndDispatchPacket(deadline time.Duration) (*message.Message, error) {
	if deadline > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(deadline))
	} else {
		_ = c.nc.SetReadDeadline(time.Time{})
	}
	return c.ReadAndDispatchPacket()
}

// PingServer sends a keepalive PING, answered transparently by the
// renderer with PONG.
func (c *Conn) PingServer() error {
	return frame.PingUS(c.nc)
}
