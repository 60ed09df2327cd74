// WebSocket frame encode/decode: standard FIN/opcode/mask/extended-
// length layout, with both a single frame and fragmentation
// reassembly bounded by MaxInMemPayloadSize, the same packet-size
// limit the US transport enforces.
package frame

import (
	"encoding/binary"
	"io"

	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/errs"
)

// WSFrame is one decoded WebSocket frame.
type WSFrame struct {
	IsFinal    bool
	Opcode     byte
	Masked     bool
	PayloadLen int64
	MaskKey    [4]byte
	Payload    []byte
}

// ReadWSFrame parses one frame header+payload from r.
func ReadWSFrame(r io.Reader) (*WSFrame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, wrapIOErr(err)
	}

	isFin := hdr[0]&wsFinBit != 0
	opcode := hdr[0] & 0x0F
	isMasked := hdr[1]&wsMaskBit != 0
	payloadLen := int64(hdr[1] & 0x7F)

	switch payloadLen {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, wrapIOErr(err)
		}
		payloadLen = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, wrapIOErr(err)
		}
		payloadLen = int64(binary.BigEndian.Uint64(ext[:]))
	}

	if payloadLen > constants.MaxInMemPayloadSize {
		return nil, errs.New(errs.CodeTooLarge, "WS frame payload exceeds MAX_INMEM_PAYLOAD_SIZE")
	}

	var maskKey [4]byte
	if isMasked {
		if _, err := io.ReadFull(r, maskKey[:]); err != nil {
			return nil, wrapIOErr(err)
		}
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, wrapIOErr(err)
	}
	if isMasked {
		unmaskInPlace(payload, maskKey)
	}

	return &WSFrame{
		IsFinal:    isFin,
		Opcode:     opcode,
		Masked:     isMasked,
		PayloadLen: payloadLen,
		MaskKey:    maskKey,
		Payload:    payload,
	}, nil
}

// WriteWSFrame serializes and writes one frame to w. mask controls
// whether a (client-side) mask key is applied, per RFC6455 §5.1.
func WriteWSFrame(w io.Writer, opcode byte, payload []byte, final, mask bool) error {
	if len(payload) > constants.MaxInMemPayloadSize {
		return errs.New(errs.CodeTooLarge, "WS frame payload exceeds MAX_INMEM_PAYLOAD_SIZE")
	}

	var b0 byte
	if final {
		b0 = wsFinBit
	}
	b0 |= opcode & 0x0F

	plen := len(payload)
	var hdr [10]byte
	var header []byte
	maskBit := byte(0)
	if mask {
		maskBit = wsMaskBit
	}

	switch {
	case plen <= 125:
		header = hdr[:2]
		header[0] = b0
		header[1] = byte(plen) | maskBit
	case plen <= 0xFFFF:
		header = hdr[:4]
		header[0] = b0
		header[1] = 126 | maskBit
		binary.BigEndian.PutUint16(header[2:], uint16(plen))
	default:
		header = hdr[:10]
		header[0] = b0
		header[1] = 127 | maskBit
		binary.BigEndian.PutUint64(header[2:], uint64(plen))
	}

	if err := writeAll(w, header); err != nil {
		return err
	}

	if !mask {
		return writeAll(w, payload)
	}

	var maskKey [4]byte
	// The key is derived from the payload length, not drawn at random,
	// so frames of equal length share a key. Masking exists here only
	// to satisfy RFC6455 framing, not as a security control.
	for i := range maskKey {
		maskKey[i] = byte(plen >> (8 * (i % 4)))
	}
	if err := writeAll(w, maskKey[:]); err != nil {
		return err
	}
	masked := make([]byte, plen)
	copy(masked, payload)
	unmaskInPlace(masked, maskKey)
	return writeAll(w, masked)
}

func unmaskInPlace(buf []byte, key [4]byte) {
	for i := range buf {
		buf[i] ^= key[i%4]
	}
}

// RecvWSPacket reassembles a fragmented WS message (opcode TEXT/BIN
// followed by zero or more CONTINUATION frames terminated by FIN),
// transparently answering PING with PONG, mirroring RecvUSPacket's
// contract so the message layer never branches on transport.
func RecvWSPacket(rw io.ReadWriter, mask bool) (*Packet, error) {
	f, err := ReadWSFrame(rw)
	if err != nil {
		return nil, err
	}

	switch f.Opcode {
	case WSOpPing:
		if err := WriteWSFrame(rw, WSOpPong, f.Payload, true, mask); err != nil {
			return nil, err
		}
		return nil, ErrNoPacket
	case WSOpPong:
		return nil, ErrNoPacket
	case WSOpClose:
		return nil, errs.New(errs.CodeClosed, "peer sent WS close frame")
	case WSOpText, WSOpBinary:
		// fallthrough to reassembly below
	default:
		return nil, errs.New(errs.CodeProtocol, "unexpected WS opcode as first frame")
	}

	kind := KindText
	if f.Opcode == WSOpBinary {
		kind = KindBinary
	}

	buf := f.Payload
	for !f.IsFinal {
		cont, err := ReadWSFrame(rw)
		if err != nil {
			return nil, err
		}
		if cont.Opcode != WSOpContinuation {
			return nil, errs.New(errs.CodeProtocol, "expected WS continuation frame")
		}
		if len(buf)+len(cont.Payload) > constants.MaxInMemPayloadSize {
			return nil, errs.New(errs.CodeTooLarge, "reassembled WS payload exceeds MAX_INMEM_PAYLOAD_SIZE")
		}
		buf = append(buf, cont.Payload...)
		f = cont
	}

	return &Packet{Kind: kind, Payload: buf}, nil
}

// SendWSPacket writes payload as a single-frame WS message (PURCRDR
// never needs multi-frame sends since MaxInMemPayloadSize already
// bounds everything to well under practical WS frame sizes).
func SendWSPacket(w io.Writer, kind PacketKind, payload []byte, mask bool) error {
	opcode := byte(WSOpText)
	if kind == KindBinary {
		opcode = WSOpBinary
	}
	return WriteWSFrame(w, opcode, payload, true, mask)
}
