package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purc-tools/purcrdr/errs"
)

func TestRequestRoundTrip(t *testing.T) {
	m, err := NewRequest(TargetPlainWindow, 0x1a2b, "createPlainWindow", "REQ-1", NewRequestOptions{
		DataType: DataEJSON,
		Data:     []byte(`{"name":"main"}`),
	})
	require.NoError(t, err)

	raw := Serialize(m)
	got, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.Target, got.Target)
	assert.Equal(t, m.TargetValue, got.TargetValue)
	assert.Equal(t, m.Operation, got.Operation)
	assert.Equal(t, m.RequestID, got.RequestID)
	assert.Equal(t, m.DataType, got.DataType)
	assert.Equal(t, m.Data, got.Data)
}

func TestRequestWithElementRoundTrip(t *testing.T) {
	m, err := NewRequest(TargetDOM, 7, "update", "REQ-2", NewRequestOptions{
		ElementType: ElementHandle,
		Element:     "7f3a",
		Property:    "textContent",
		DataType:    DataText,
		Data:        []byte("hello world"),
	})
	require.NoError(t, err)

	raw := Serialize(m)
	got, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, m.ElementType, got.ElementType)
	assert.Equal(t, m.Element, got.Element)
	assert.Equal(t, m.Property, got.Property)
	assert.Equal(t, m.Data, got.Data)
}

func TestResponseRoundTrip(t *testing.T) {
	m, err := NewResponse("REQ-1", errs.StatusOK, 0x42, DataVoid, nil)
	require.NoError(t, err)

	raw := Serialize(m)
	got, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, m.RequestID, got.RequestID)
	assert.Equal(t, m.RetCode, got.RetCode)
	assert.Equal(t, m.ResultValue, got.ResultValue)
}

func TestEventRoundTrip(t *testing.T) {
	m, err := NewEvent(TargetWindow, 99, "close", NewEventOptions{
		DataType: DataEJSON,
		Data:     []byte(`{"reason":"userClosed"}`),
	})
	require.NoError(t, err)

	raw := Serialize(m)
	got, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, m.Event, got.Event)
	assert.Equal(t, m.Target, got.Target)
	assert.Equal(t, m.TargetValue, got.TargetValue)
	assert.Equal(t, m.Data, got.Data)
}

func TestParseRejectsDataLenMismatch(t *testing.T) {
	m, err := NewResponse("REQ-3", errs.StatusOK, 0, DataText, []byte("abc"))
	require.NoError(t, err)

	raw := Serialize(m)
	raw = append(raw, 'x') // trailing byte not accounted for by dataLen

	_, err = Parse(raw)
	require.Error(t, err)
}

func TestParseRejectsUnknownHeaderKey(t *testing.T) {
	raw := []byte("type: request\nbogus: value\n \n")
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParseRejectsMissingTerminator(t *testing.T) {
	raw := []byte("type: request\noperation: load\n")
	_, err := Parse(raw)
	require.Error(t, err)
}
