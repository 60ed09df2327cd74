// Package constants holds the protocol names, size limits, and timing
// constants shared by every other package in the module.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package constants

import "time"

// Protocol identity, advertised during startSession and checked against
// the client's claimed protocolName/protocolVersion.
const (
	ProtocolName        = "PURCMC"
	ProtocolVersion      = 100
	ProtocolVersionMin   = 100
)

// Token / name bounds.
const (
	MaxHostNameLen     = 127
	MaxAppNameLen      = 127
	MaxRunnerNameLen   = 63
	MaxEndpointNameLen = 321
)

// Unique id bounds.
const MaxUniqueIDLen = 63

// Frame limits.
const (
	MaxFramePayloadSize  = 4096
	MaxInMemPayloadSize  = 40960
)

// US frame header layout: three little-endian uint32 fields.
const FrameHeaderSize = 12

// Unix-socket and WebSocket transport defaults.
const (
	DefaultUnixSocketPath = "/var/tmp/purcrdr.sock"
	DefaultCliPath        = "/var/tmp/"
	DefaultWSPort         = 7702
	ReservedWSPort        = 7703
)

// Server housekeeping timing.
const (
	PollTimeout            = 500 * time.Millisecond
	ReapDanglingPeriod     = 5 * time.Second
	CheckNoRespondingPeriod = 10 * time.Second
	MaxNoRespondingTime    = 90 * time.Second
	MaxPingTime            = 60 * time.Second
)

// Server resource limits.
const (
	MaxClientsEachListener = 4096
	SockThrottleThreshold  = 1 << 20 // 1 MiB
)

// Client defaults.
const DefaultRequestTimeout = 5 * time.Second
