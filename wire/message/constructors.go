package message

import (
	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/ident"
)

// NewRequestOptions carries the optional slots of a request message,
// grouped into an options struct to keep the constructor signature
// stable as optional fields are added.
type NewRequestOptions struct {
	ElementType ElementType
	Element     string
	Property    string
	DataType    DataType
	Data        []byte
}

// NewRequest builds a request message; requestID is auto-generated
// when empty.
func NewRequest(target Target, targetValue uint64, operation, requestID string, opts NewRequestOptions) (*Message, error) {
	if operation == "" {
		return nil, errs.New(errs.CodeInvalidValue, "request requires an operation")
	}
	if requestID == "" {
		requestID = ident.GenerateUniqueID("REQ")
	}
	return &Message{
		Type:        TypeRequest,
		Target:      target,
		TargetValue: targetValue,
		Operation:   operation,
		RequestID:   requestID,
		ElementType: opts.ElementType,
		Element:     opts.Element,
		Property:    opts.Property,
		DataType:    opts.DataType,
		Data:        opts.Data,
	}, nil
}

// NewResponse builds a response message correlated to requestID.
func NewResponse(requestID string, retCode errs.Status, resultValue uint64, dataType DataType, data []byte) (*Message, error) {
	if requestID == "" {
		return nil, errs.New(errs.CodeInvalidValue, "response requires a requestId")
	}
	return &Message{
		Type:        TypeResponse,
		RequestID:   requestID,
		RetCode:     retCode,
		ResultValue: resultValue,
		DataType:    dataType,
		Data:        data,
	}, nil
}

// NewEventOptions carries the optional slots of an event message.
type NewEventOptions struct {
	ElementType ElementType
	Element     string
	Property    string
	DataType    DataType
	Data        []byte
}

// NewEvent builds an event message.
func NewEvent(target Target, targetValue uint64, event string, opts NewEventOptions) (*Message, error) {
	if event == "" {
		return nil, errs.New(errs.CodeInvalidValue, "event requires an event name")
	}
	return &Message{
		Type:        TypeEvent,
		Target:      target,
		TargetValue: targetValue,
		Event:       event,
		ElementType: opts.ElementType,
		Element:     opts.Element,
		Property:    opts.Property,
		DataType:    opts.DataType,
		Data:        opts.Data,
	}, nil
}
