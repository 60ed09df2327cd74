package errs

import "fmt"

// Code is an internal error code, used by the transport, framing, and
// message layers before they are translated to a wire Status.
type Code int

const (
	CodeNone Code = iota
	CodeIO
	CodeClosed
	CodeNoMem
	CodeTooLarge
	CodeProtocol
	CodeUpper
	CodeNotImplemented
	CodeInvalidValue
	CodeDuplicated
	CodeTooSmallBuff
	CodeBadSystemCall
	CodeAuthFailed
	CodeServerError
	CodeTimeout
	CodeUnknownEvent
	CodeUnknownResult
	CodeUnknownMethod
	CodeUnexpected
	CodeServerRefused
	CodeBadPacket
	CodeBadConnection
	CodeCantLoad
	CodeBadKey
)

var codeNames = map[Code]string{
	CodeNone:           "NONE",
	CodeIO:             "IO",
	CodeClosed:         "CLOSED",
	CodeNoMem:          "NOMEM",
	CodeTooLarge:       "TOO_LARGE",
	CodeProtocol:       "PROTOCOL",
	CodeUpper:          "UPPER",
	CodeNotImplemented: "NOT_IMPLEMENTED",
	CodeInvalidValue:   "INVALID_VALUE",
	CodeDuplicated:     "DUPLICATED",
	CodeTooSmallBuff:   "TOO_SMALL_BUFF",
	CodeBadSystemCall:  "BAD_SYSTEM_CALL",
	CodeAuthFailed:     "AUTH_FAILED",
	CodeServerError:    "SERVER_ERROR",
	CodeTimeout:        "TIMEOUT",
	CodeUnknownEvent:   "UNKNOWN_EVENT",
	CodeUnknownResult:  "UNKNOWN_RESULT",
	CodeUnknownMethod:  "UNKNOWN_METHOD",
	CodeUnexpected:     "UNEXPECTED",
	CodeServerRefused:  "SERVER_REFUSED",
	CodeBadPacket:      "BAD_PACKET",
	CodeBadConnection:  "BAD_CONNECTION",
	CodeCantLoad:       "CANT_LOAD",
	CodeBadKey:         "BAD_KEY",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN_CODE"
}

// codeToStatus maps internal codes onto wire-visible statuses; codes
// not listed fall back to StatusInternalServerError.
var codeToStatus = map[Code]Status{
	CodeIO:             StatusIOErr,
	CodeClosed:         StatusServiceUnavailable,
	CodeNoMem:          StatusInsufficientStorage,
	CodeTooLarge:       StatusPacketTooLarge,
	CodeProtocol:       StatusUnprocessablePacket,
	CodeNotImplemented: StatusNotImplemented,
	CodeInvalidValue:   StatusBadRequest,
	CodeDuplicated:     StatusConflict,
	CodeAuthFailed:     StatusUnauthorized,
	CodeTimeout:        StatusCalleeTimeout,
	CodeUnknownMethod:  StatusNotFound,
}

// ToStatus maps an internal error code to its wire status, defaulting to
// 500 Internal Server Error for anything not in the closed mapping table.
func (c Code) ToStatus() Status {
	if s, ok := codeToStatus[c]; ok {
		return s
	}
	return StatusInternalServerError
}

// Error is a structured protocol error carrying an internal Code, a
// human message, and optional debugging context.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (context: %+v)", e.Code, e.Message, e.Context)
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Status returns the wire status this error maps to.
func (e *Error) Status() Status {
	return e.Code.ToStatus()
}
