package server

import (
	"bufio"
	"net"
	"sync"

	"github.com/eapache/queue"

	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/errs"
)

// conn is the server-side state of one accepted socket: a reader
// goroutine decodes packets off it, a writer goroutine drains its
// outbound ring. The dispatch goroutine reaches conn only through
// Write (via Server.writeMessage and pingConn) and close; outMu guards
// the outbound fields those callers share with the writer goroutine.
type conn struct {
	nc net.Conn
	ws bool
	br *bufio.Reader // set for WS connections, post-handshake buffered reader

	outMu    sync.Mutex
	outCond  *sync.Cond
	outq     *queue.Queue
	outBytes int
	closing  bool
}

func newConn(nc net.Conn, ws bool) *conn {
	c := &conn{nc: nc, ws: ws, outq: queue.New()}
	c.outCond = sync.NewCond(&c.outMu)
	return c
}

// Read satisfies io.Reader for the frame codec: WS connections read
// through the buffered reader the handshake left unconsumed bytes in,
// US connections read the raw socket directly.
func (c *conn) Read(p []byte) (int, error) {
	if c.ws {
		return c.br.Read(p)
	}
	return c.nc.Read(p)
}

// Write satisfies io.Writer for the frame codec by enqueuing onto the
// outbound ring rather than writing the socket directly, so every
// write — including the frame codec's own transparent PONG replies —
// goes through the single writer goroutine and respects
// SockThrottleThreshold back-pressure.
func (c *conn) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	c.outMu.Lock()
	if c.closing {
		c.outMu.Unlock()
		return 0, errs.New(errs.CodeClosed, "write to closing connection")
	}
	if c.outBytes+len(cp) > constants.SockThrottleThreshold {
		c.outMu.Unlock()
		return 0, errs.New(errs.CodeTooLarge, "outbound queue exceeds SOCK_THROTTLE_THLD")
	}
	c.outq.Add(cp)
	c.outBytes += len(cp)
	c.outCond.Signal()
	c.outMu.Unlock()
	return len(p), nil
}

// runWriter drains the outbound ring until the connection is marked
// closing and empty, writing each queued chunk to the raw socket.
// This is the only goroutine that ever calls c.nc.Write.
func (c *conn) runWriter() {
	for {
		c.outMu.Lock()
		for c.outq.Length() == 0 && !c.closing {
			c.outCond.Wait()
		}
		if c.outq.Length() == 0 {
			c.outMu.Unlock()
			return
		}
		chunk := c.outq.Remove().([]byte)
		c.outBytes -= len(chunk)
		c.outMu.Unlock()

		if _, err := c.nc.Write(chunk); err != nil {
			c.markClosing()
			return
		}
	}
}

// markClosing wakes the writer goroutine so it drains any remaining
// queued bytes (best effort) and exits instead of blocking forever.
func (c *conn) markClosing() {
	c.outMu.Lock()
	c.closing = true
	c.outCond.Broadcast()
	c.outMu.Unlock()
}

func (c *conn) close() {
	c.markClosing()
	_ = c.nc.Close()
}
