package server

import (
	"github.com/purc-tools/purcrdr/wire/frame"
)

func sendUS(c *conn, payload []byte) error {
	return frame.SendUSPacket(c, frame.KindText, payload)
}

func sendWS(c *conn, payload []byte) error {
	return frame.SendWSPacket(c, frame.KindText, payload, false)
}

func pingConn(c *conn) error {
	if c.ws {
		return frame.WriteWSFrame(c, frame.WSOpPing, nil, true, false)
	}
	return frame.PingUS(c)
}

// recvPacket reads one application packet from c, transparently
// absorbing keepalive frames (which surface as frame.ErrNoPacket) by
// looping until a real packet or a terminal error arrives.
func recvPacket(c *conn) (*frame.Packet, error) {
	for {
		var pkt *frame.Packet
		var err error
		if c.ws {
			pkt, err = frame.RecvWSPacket(c, true)
		} else {
			pkt, err = frame.RecvUSPacket(c)
		}
		if err == frame.ErrNoPacket {
			continue
		}
		return pkt, err
	}
}
