package message

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/purc-tools/purcrdr/errs"
)

// headerKeys is the binary-searched dispatch table of recognized
// header names; unknown keys are rejected.
var headerKeys = []string{
	"datalen",
	"datatype",
	"element",
	"event",
	"operation",
	"property",
	"requestid",
	"result",
	"target",
	"type",
}

func isKnownHeaderKey(key string) bool {
	i := sort.SearchStrings(headerKeys, key)
	return i < len(headerKeys) && headerKeys[i] == key
}

// Parse decodes raw (the text payload of a frame.Packet) into a
// Message. It is the left inverse of Serialize: Parse(Serialize(m))
// equals m field-wise for every well-formed m.
func Parse(raw []byte) (*Message, error) {
	headers := make(map[string]string)

	s := string(raw)
	pos := 0
	bodyStart := -1
	for pos < len(s) {
		nl := strings.IndexByte(s[pos:], '\n')
		if nl < 0 {
			return nil, errs.New(errs.CodeProtocol, "message header block missing terminator")
		}
		line := s[pos : pos+nl]
		pos += nl + 1

		if line == " " {
			bodyStart = pos
			break
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("malformed header line %q", line))
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		if !isKnownHeaderKey(key) {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("unknown header key %q", key))
		}
		headers[key] = value
	}
	if bodyStart < 0 {
		return nil, errs.New(errs.CodeProtocol, "message header block missing blank-line terminator")
	}

	typeStr, ok := headers["type"]
	if !ok {
		return nil, errs.New(errs.CodeProtocol, "message missing required 'type' header")
	}
	var mtype Type
	switch strings.ToLower(typeStr) {
	case "request":
		mtype = TypeRequest
	case "response":
		mtype = TypeResponse
	case "event":
		mtype = TypeEvent
	default:
		return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("unknown message type %q", typeStr))
	}

	m := &Message{Type: mtype}

	if dt, ok := headers["datatype"]; ok {
		dtype, ok := ParseDataType(dt)
		if !ok {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("unknown dataType %q", dt))
		}
		m.DataType = dtype
	}

	dataLen := 0
	if dl, ok := headers["datalen"]; ok {
		n, err := strconv.Atoi(dl)
		if err != nil || n < 0 {
			return nil, errs.New(errs.CodeBadPacket, fmt.Sprintf("invalid dataLen %q", dl))
		}
		dataLen = n
	}
	if bodyStart+dataLen > len(raw) {
		return nil, errs.New(errs.CodeBadPacket, "dataLen exceeds available body bytes")
	}
	m.Data = raw[bodyStart : bodyStart+dataLen]
	if bodyStart+dataLen != len(raw) {
		return nil, errs.New(errs.CodeBadPacket, "dataLen does not match actual body length")
	}

	if tv, ok := headers["target"]; ok {
		t, hex, err := splitSlash(tv)
		if err != nil {
			return nil, err
		}
		target, ok := ParseTarget(t)
		if !ok {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("unknown target %q", t))
		}
		m.Target = target
		v, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("invalid target handle %q", hex))
		}
		m.TargetValue = v
	}

	if ev, ok := headers["element"]; ok {
		et, rest, err := splitSlash(ev)
		if err != nil {
			return nil, err
		}
		elementType, ok := ParseElementType(et)
		if !ok {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("unknown elementType %q", et))
		}
		m.ElementType = elementType
		m.Element = rest
	}

	m.Property = headers["property"]
	m.RequestID = headers["requestid"]
	m.Operation = headers["operation"]
	m.Event = headers["event"]

	switch mtype {
	case TypeRequest:
		if m.Operation == "" || m.RequestID == "" {
			return nil, errs.New(errs.CodeProtocol, "request missing operation or requestId")
		}
	case TypeResponse:
		res, ok := headers["result"]
		if !ok || m.RequestID == "" {
			return nil, errs.New(errs.CodeProtocol, "response missing result or requestId")
		}
		codeStr, hexStr, err := splitSlash(res)
		if err != nil {
			return nil, err
		}
		code, err := strconv.Atoi(codeStr)
		if err != nil {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("invalid result code %q", codeStr))
		}
		m.RetCode = errs.Status(code)
		v, err := strconv.ParseUint(hexStr, 16, 64)
		if err != nil {
			return nil, errs.New(errs.CodeProtocol, fmt.Sprintf("invalid result handle %q", hexStr))
		}
		m.ResultValue = v
	case TypeEvent:
		if m.Event == "" {
			return nil, errs.New(errs.CodeProtocol, "event missing event name")
		}
	}

	return m, nil
}

func splitSlash(s string) (string, string, error) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return "", "", errs.New(errs.CodeProtocol, fmt.Sprintf("expected '<name>/<value>', got %q", s))
	}
	return s[:i], s[i+1:], nil
}
