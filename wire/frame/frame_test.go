package frame

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purc-tools/purcrdr/constants"
)

// loopback returns the two ends of a synchronous in-memory net.Pipe:
// every write blocks until the other end reads it, so each test writes
// from its own goroutine.
func loopback(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return a, b
}

func TestUSPacketRoundTripSmall(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := []byte("<html><body></body></html>")
	go func() {
		_ = SendUSPacket(client, KindText, payload)
	}()

	pkt, err := RecvUSPacket(server)
	require.NoError(t, err)
	assert.Equal(t, KindText, pkt.Kind)
	assert.Equal(t, payload, pkt.Payload)
}

func TestUSPacketExactlyMaxFrame(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := bytes.Repeat([]byte{'x'}, constants.MaxFramePayloadSize)
	go func() { _ = SendUSPacket(client, KindBinary, payload) }()

	pkt, err := RecvUSPacket(server)
	require.NoError(t, err)
	assert.Equal(t, KindBinary, pkt.Kind)
	assert.Equal(t, payload, pkt.Payload)
}

func TestUSPacketFragmentedOneByteOver(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := bytes.Repeat([]byte{'y'}, constants.MaxFramePayloadSize+1)
	go func() { _ = SendUSPacket(client, KindText, payload) }()

	pkt, err := RecvUSPacket(server)
	require.NoError(t, err)
	assert.Equal(t, payload, pkt.Payload)
}

func TestUSPacketOversizeRejected(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := bytes.Repeat([]byte{'z'}, constants.MaxInMemPayloadSize+1)
	// SendUSPacket refuses before writing anything, so the receiving
	// side is fed a head frame announcing the oversize total directly.
	require.Error(t, SendUSPacket(client, KindText, payload))
	go func() {
		_ = writeHeader(client, Header{Op: OpText, Fragmented: uint32(len(payload)), SzPayload: constants.MaxFramePayloadSize})
	}()

	_, err := RecvUSPacket(server)
	require.Error(t, err)
}

func TestUSPingAnsweredWithPong(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	pong := make(chan Header, 1)
	go func() {
		_ = PingUS(client)
		if hdr, err := readHeader(client); err == nil {
			pong <- hdr
		}
	}()

	_, err := RecvUSPacket(server)
	assert.ErrorIs(t, err, ErrNoPacket)

	select {
	case hdr := <-pong:
		assert.Equal(t, OpPong, hdr.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PONG")
	}
}

func TestWSFrameRoundTrip(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := []byte(`{"hello":"world"}`)
	go func() { _ = SendWSPacket(client, KindText, payload, true) }()

	pkt, err := RecvWSPacket(server, false)
	require.NoError(t, err)
	assert.Equal(t, KindText, pkt.Kind)
	assert.Equal(t, payload, pkt.Payload)
}

func TestWSFrameLargePayloadExtendedLength(t *testing.T) {
	server, client := loopback(t)
	defer server.Close()
	defer client.Close()

	payload := bytes.Repeat([]byte{'w'}, constants.MaxInMemPayloadSize)
	go func() { _ = SendWSPacket(client, KindBinary, payload, false) }()

	pkt, err := RecvWSPacket(server, false)
	require.NoError(t, err)
	assert.Equal(t, payload, pkt.Payload)
}
