package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders m as a header-block text payload: a blank line
// (" \n") separates the header block from the raw body.
func Serialize(m *Message) []byte {
	var b strings.Builder

	b.WriteString("type: ")
	b.WriteString(m.Type.String())
	b.WriteByte('\n')

	switch m.Type {
	case TypeRequest:
		writeTarget(&b, m.Target, m.TargetValue)
		writeKV(&b, "operation", m.Operation)
		writeElement(&b, m.ElementType, m.Element)
		writeOptionalKV(&b, "property", m.Property)
		writeKV(&b, "requestId", m.RequestID)
		writeKV(&b, "dataType", m.DataType.String())
		writeKV(&b, "dataLen", strconv.Itoa(len(m.Data)))

	case TypeResponse:
		writeKV(&b, "requestId", m.RequestID)
		fmt.Fprintf(&b, "result: %d/%x\n", int(m.RetCode), m.ResultValue)
		writeKV(&b, "dataType", m.DataType.String())
		writeKV(&b, "dataLen", strconv.Itoa(len(m.Data)))

	case TypeEvent:
		writeTarget(&b, m.Target, m.TargetValue)
		writeKV(&b, "event", m.Event)
		writeElement(&b, m.ElementType, m.Element)
		writeOptionalKV(&b, "property", m.Property)
		writeKV(&b, "dataType", m.DataType.String())
		writeKV(&b, "dataLen", strconv.Itoa(len(m.Data)))
	}

	b.WriteString(" \n")

	out := make([]byte, 0, b.Len()+len(m.Data))
	out = append(out, b.String()...)
	out = append(out, m.Data...)
	return out
}

func writeKV(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func writeOptionalKV(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	writeKV(b, key, value)
}

func writeTarget(b *strings.Builder, t Target, value uint64) {
	fmt.Fprintf(b, "target: %s/%x\n", t.String(), value)
}

func writeElement(b *strings.Builder, et ElementType, element string) {
	if et == ElementVoid {
		return
	}
	fmt.Fprintf(b, "element: %s/%s\n", et.String(), element)
}
