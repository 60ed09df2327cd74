// Package frame implements the two wire framings of C2: the
// Unix-socket header framing (this file) and the WebSocket framing
// (wsframe.go). Both return the same Packet type and ErrNoPacket
// keepalive sentinel; the server picks one framing per connection
// (server/io.go).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package frame

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/errs"
)

// Op identifies a US frame's role.
type Op uint32

const (
	OpContinuation Op = iota
	OpText
	OpBin
	OpEnd
	OpClose
	OpPing
	OpPong
)

// Header is the fixed 12-byte little-endian US frame header.
type Header struct {
	Op         Op
	Fragmented uint32
	SzPayload  uint32
}

func readHeader(r io.Reader) (Header, error) {
	var raw [constants.FrameHeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, wrapIOErr(err)
	}
	return Header{
		Op:         Op(binary.LittleEndian.Uint32(raw[0:4])),
		Fragmented: binary.LittleEndian.Uint32(raw[4:8]),
		SzPayload:  binary.LittleEndian.Uint32(raw[8:12]),
	}, nil
}

func writeHeader(w io.Writer, h Header) error {
	var raw [constants.FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(raw[0:4], uint32(h.Op))
	binary.LittleEndian.PutUint32(raw[4:8], h.Fragmented)
	binary.LittleEndian.PutUint32(raw[8:12], h.SzPayload)
	if _, err := w.Write(raw[:]); err != nil {
		return wrapIOErr(err)
	}
	return nil
}

// wrapIOErr translates a raw I/O error into the internal error
// taxonomy: EOF means the peer closed the connection, a net.Error
// whose deadline elapsed is a protocol-level TIMEOUT (spec.md §4.4's
// send_request_and_wait contract), anything else is a generic IO
// failure.
func wrapIOErr(err error) error {
	if err == io.EOF {
		return errs.New(errs.CodeClosed, "peer closed connection")
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errs.New(errs.CodeTimeout, err.Error())
	}
	return errs.New(errs.CodeIO, err.Error())
}

// PacketKind distinguishes TEXT and BIN packets for SendPacket.
type PacketKind int

const (
	KindText PacketKind = iota
	KindBinary
)

// SendUSPacket writes payload as one or more US frames, fragmenting
// any payload larger than MaxFramePayloadSize. Rejects a payload
// larger than MaxInMemPayloadSize with TOO_LARGE rather than sending
// it, matching RecvUSPacket's reassembly-size rejection on the other
// end (§8 boundary test).
func SendUSPacket(w io.Writer, kind PacketKind, payload []byte) error {
	if len(payload) > constants.MaxInMemPayloadSize {
		return errs.New(errs.CodeTooLarge, "payload exceeds MAX_INMEM_PAYLOAD_SIZE")
	}

	op := OpText
	if kind == KindBinary {
		op = OpBin
	}

	total := len(payload)
	if total <= constants.MaxFramePayloadSize {
		if err := writeHeader(w, Header{Op: op, Fragmented: 0, SzPayload: uint32(total)}); err != nil {
			return err
		}
		return writeAll(w, payload)
	}

	// Head frame announces the total payload size via Fragmented.
	head := payload[:constants.MaxFramePayloadSize]
	if err := writeHeader(w, Header{Op: op, Fragmented: uint32(total), SzPayload: uint32(len(head))}); err != nil {
		return err
	}
	if err := writeAll(w, head); err != nil {
		return err
	}

	rest := payload[constants.MaxFramePayloadSize:]
	for len(rest) > constants.MaxFramePayloadSize {
		chunk := rest[:constants.MaxFramePayloadSize]
		if err := writeHeader(w, Header{Op: OpContinuation, SzPayload: uint32(len(chunk))}); err != nil {
			return err
		}
		if err := writeAll(w, chunk); err != nil {
			return err
		}
		rest = rest[constants.MaxFramePayloadSize:]
	}

	if err := writeHeader(w, Header{Op: OpEnd, SzPayload: uint32(len(rest))}); err != nil {
		return err
	}
	return writeAll(w, rest)
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return wrapIOErr(err)
		}
		buf = buf[n:]
	}
	return nil
}

// Packet is a reassembled US packet ready for the message codec.
type Packet struct {
	Kind    PacketKind
	Payload []byte
}

// ErrNoPacket is returned by RecvUSPacket when the frame consumed was
// a keepalive (PING/PONG) carrying no application payload.
var ErrNoPacket = errs.New(errs.CodeNone, "no packet available")

// RecvUSPacket reads one packet, transparently answering PING with
// PONG and reporting PONG/CLOSE via the returned error sentinels.
func RecvUSPacket(rw io.ReadWriter) (*Packet, error) {
	hdr, err := readHeader(rw)
	if err != nil {
		return nil, err
	}

	switch hdr.Op {
	case OpPing:
		if err := writeHeader(rw, Header{Op: OpPong}); err != nil {
			return nil, err
		}
		return nil, ErrNoPacket
	case OpPong:
		return nil, ErrNoPacket
	case OpClose:
		return nil, errs.New(errs.CodeClosed, "peer sent CLOSE frame")
	case OpText, OpBin:
		// fallthrough to reassembly below
	default:
		return nil, errs.New(errs.CodeProtocol, "unexpected op code as first frame")
	}

	if hdr.Fragmented > constants.MaxInMemPayloadSize {
		return nil, errs.New(errs.CodeTooLarge, "fragmented payload exceeds MAX_INMEM_PAYLOAD_SIZE")
	}

	bufSize := hdr.SzPayload
	if hdr.Fragmented > bufSize {
		bufSize = hdr.Fragmented
	}
	buf := make([]byte, hdr.SzPayload, bufSize)
	if _, ioErr := io.ReadFull(rw, buf); ioErr != nil {
		return nil, wrapIOErr(ioErr)
	}

	if hdr.Fragmented > 0 {
		for {
			cont, err := readHeader(rw)
			if err != nil {
				return nil, err
			}
			if cont.Op != OpContinuation && cont.Op != OpEnd {
				return nil, errs.New(errs.CodeProtocol, "expected CONTINUATION or END frame")
			}
			if uint32(len(buf))+cont.SzPayload > constants.MaxInMemPayloadSize {
				return nil, errs.New(errs.CodeTooLarge, "reassembled payload exceeds MAX_INMEM_PAYLOAD_SIZE")
			}
			chunk := make([]byte, cont.SzPayload)
			if _, ioErr := io.ReadFull(rw, chunk); ioErr != nil {
				return nil, wrapIOErr(ioErr)
			}
			buf = append(buf, chunk...)
			if cont.Op == OpEnd {
				break
			}
		}
	}

	kind := KindText
	if hdr.Op == OpBin {
		kind = KindBinary
	}
	return &Packet{Kind: kind, Payload: buf}, nil
}

// PingUS writes a zero-payload PING frame.
func PingUS(w io.Writer) error {
	return writeHeader(w, Header{Op: OpPing})
}

// CloseUS writes a zero-payload CLOSE frame.
func CloseUS(w io.Writer) error {
	return writeHeader(w, Header{Op: OpClose})
}
