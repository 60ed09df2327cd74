// Package message implements the header-block message format: the
// tagged union of request/response/event carried as the text payload
// of a frame.Packet.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package message

import "github.com/purc-tools/purcrdr/errs"

// Type is the message's tagged-union discriminant.
type Type int

const (
	TypeRequest Type = iota
	TypeResponse
	TypeEvent
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	case TypeEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Target names the kind of object a request or event addresses.
type Target int

const (
	TargetSession Target = iota
	TargetWindow
	TargetTab
	TargetDOM
	TargetWorkspace
	TargetPlainWindow
	TargetPage
)

var targetNames = map[Target]string{
	TargetSession:     "session",
	TargetWindow:      "window",
	TargetTab:         "tab",
	TargetDOM:         "dom",
	TargetWorkspace:   "workspace",
	TargetPlainWindow: "plainWindow",
	TargetPage:        "page",
}

var targetByName = map[string]Target{}

func init() {
	for t, n := range targetNames {
		targetByName[lower(n)] = t
	}
}

func (t Target) String() string {
	if n, ok := targetNames[t]; ok {
		return n
	}
	return "unknown"
}

func ParseTarget(s string) (Target, bool) {
	t, ok := targetByName[lower(s)]
	return t, ok
}

// ElementType selects how Message.Element should be interpreted.
type ElementType int

const (
	ElementVoid ElementType = iota
	ElementCSS
	ElementXPath
	ElementHandle
)

var elementTypeNames = map[ElementType]string{
	ElementVoid:   "void",
	ElementCSS:    "css",
	ElementXPath:  "xpath",
	ElementHandle: "handle",
}

var elementTypeByName = map[string]ElementType{}

func init() {
	for t, n := range elementTypeNames {
		elementTypeByName[lower(n)] = t
	}
}

func (e ElementType) String() string {
	if n, ok := elementTypeNames[e]; ok {
		return n
	}
	return "unknown"
}

func ParseElementType(s string) (ElementType, bool) {
	t, ok := elementTypeByName[lower(s)]
	return t, ok
}

// DataType describes how Message.Data should be interpreted.
type DataType int

const (
	DataVoid DataType = iota
	DataEJSON
	DataText
)

var dataTypeNames = map[DataType]string{
	DataVoid:  "void",
	DataEJSON: "ejson",
	DataText:  "text",
}

var dataTypeByName = map[string]DataType{}

func init() {
	for t, n := range dataTypeNames {
		dataTypeByName[lower(n)] = t
	}
}

func (d DataType) String() string {
	if n, ok := dataTypeNames[d]; ok {
		return n
	}
	return "unknown"
}

func ParseDataType(s string) (DataType, bool) {
	t, ok := dataTypeByName[lower(s)]
	return t, ok
}

// Message is the tagged union carrying a request, response, or event.
type Message struct {
	Type Type

	// Request + Event
	Target      Target
	TargetValue uint64
	ElementType ElementType
	Element     string
	Property    string

	// Operation: request only; RequestID: request and response
	Operation string
	RequestID string

	// Event only
	Event string

	// Response only
	RetCode     errs.Status
	ResultValue uint64

	DataType DataType
	Data     []byte
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
