package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/registry"
	"github.com/purc-tools/purcrdr/wire/message"
)

func newTestContext(t *testing.T) (*Context, *registry.Registry) {
	t.Helper()
	r := registry.New()
	now := time.Unix(0, 0)
	ep := r.NewPendingEndpoint(now)
	require.NoError(t, r.Authenticate(ep, "localhost", "cn.fmsoft.test", "t1", now))
	return &Context{Registry: r, Endpoint: ep, Now: now}, r
}

func TestCreateAndLoadWindow(t *testing.T) {
	ctx, _ := newTestContext(t)

	req, err := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	require.NoError(t, err)

	resp, err := Dispatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
	handle := resp.ResultValue
	require.NotZero(t, handle)

	loadReq, err := message.NewRequest(message.TargetPlainWindow, handle, "load", "R2", message.NewRequestOptions{
		DataType: message.DataText,
		Data:     []byte(`<div id="a"><span id="b">hi</span></div>`),
	})
	require.NoError(t, err)

	resp, err = Dispatch(ctx, loadReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
}

// TestCreatePlainWindowAllowsHyphenatedName grounds spec.md's own S2
// scenario ({"name":"the-plain-window-0", ...}): window names are
// free-form, not host/app/runner tokens, so a hyphen must not trigger
// INVALID_VALUE.
func TestCreatePlainWindowAllowsHyphenatedName(t *testing.T) {
	ctx, _ := newTestContext(t)

	req, err := message.NewRequest(message.TargetWorkspace, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"the-plain-window-0","title":"The Plain Window No. 0"}`),
	})
	require.NoError(t, err)

	resp, err := Dispatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
	assert.NotZero(t, resp.ResultValue)
}

// TestUpdatePlainWindowAllowsHyphenatedName covers the same free-form
// name rule on updatePlainWindow's "name" property as
// TestCreatePlainWindowAllowsHyphenatedName does for createPlainWindow.
func TestUpdatePlainWindowAllowsHyphenatedName(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, err := message.NewRequest(message.TargetWorkspace, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	require.NoError(t, err)
	createResp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	handle := createResp.ResultValue

	renameReq, err := message.NewRequest(message.TargetPlainWindow, handle, "updatePlainWindow", "R2", message.NewRequestOptions{
		Property: "name",
		DataType: message.DataEJSON,
		Data:     []byte(`{"value":"the-plain-window-0"}`),
	})
	require.NoError(t, err)
	resp, err := Dispatch(ctx, renameReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
}

func TestWriteBeginMoreEnd(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, _ := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	handle := resp.ResultValue

	begin, _ := message.NewRequest(message.TargetPlainWindow, handle, "writeBegin", "R2", message.NewRequestOptions{Data: []byte("<div>")})
	_, err = Dispatch(ctx, begin)
	require.NoError(t, err)

	more, _ := message.NewRequest(message.TargetPlainWindow, handle, "writeMore", "R3", message.NewRequestOptions{Data: []byte("<span>x</span>")})
	_, err = Dispatch(ctx, more)
	require.NoError(t, err)

	end, _ := message.NewRequest(message.TargetPlainWindow, handle, "writeEnd", "R4", message.NewRequestOptions{Data: []byte("</div>")})
	resp, err = Dispatch(ctx, end)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
}

func TestMutationSequenceAppendGetPropertyErase(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, _ := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	handle := resp.ResultValue

	loadReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "load", "R2", message.NewRequestOptions{
		Data: []byte(`<div id="root"></div>`),
	})
	_, err = Dispatch(ctx, loadReq)
	require.NoError(t, err)

	appendReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "append", "R3", message.NewRequestOptions{
		ElementType: message.ElementCSS,
		Element:     "#root",
		Data:        []byte(`<span id="child">hi</span>`),
	})
	resp, err = Dispatch(ctx, appendReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)

	getReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "getProperty", "R4", message.NewRequestOptions{
		ElementType: message.ElementCSS,
		Element:     "#child",
		Property:    "textContent",
	})
	resp, err = Dispatch(ctx, getReq)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(resp.Data))

	eraseReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "erase", "R5", message.NewRequestOptions{
		ElementType: message.ElementCSS,
		Element:     "#child",
	})
	resp, err = Dispatch(ctx, eraseReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)

	_, err = Dispatch(ctx, getReq)
	require.NoError(t, err)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, _ := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	require.Equal(t, errs.StatusOK, resp.RetCode)
	require.Len(t, ctx.Endpoint.Windows, 1)

	end1, _ := message.NewRequest(message.TargetSession, 0, "endSession", "R2", message.NewRequestOptions{})
	resp, err = Dispatch(ctx, end1)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
	assert.Empty(t, ctx.Endpoint.Windows, "endSession must tear down every window")
	assert.False(t, ctx.Endpoint.Authenticated)

	end2, _ := message.NewRequest(message.TargetSession, 0, "endSession", "R3", message.NewRequestOptions{})
	resp, err = Dispatch(ctx, end2)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusForbidden, resp.RetCode, "second endSession on a deauthenticated endpoint is the FORBIDDEN branch of property 7")
}

func TestOperationLookupIsCaseInsensitive(t *testing.T) {
	ctx, _ := newTestContext(t)
	req, _ := message.NewRequest(message.TargetSession, 0, "CREATEPLAINWINDOW", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
}

func TestDisplaceDoesNotDuplicateHandleIndexEntry(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, _ := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	handle := resp.ResultValue

	loadReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "load", "R2", message.NewRequestOptions{
		Data: []byte(`<div id="root"><span hvml:handle="3">old</span></div>`),
	})
	_, err = Dispatch(ctx, loadReq)
	require.NoError(t, err)

	// Re-render #root with fresh content that reuses the same
	// hvml:handle value ("3") the way a client redrawing a window
	// commonly does.
	displaceReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "displace", "R3", message.NewRequestOptions{
		ElementType: message.ElementCSS,
		Element:     "#root",
		Data:        []byte(`<span hvml:handle="3">new</span>`),
	})
	resp, err = Dispatch(ctx, displaceReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)

	getReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "getProperty", "R4", message.NewRequestOptions{
		ElementType: message.ElementHandle,
		Element:     "3",
		Property:    "textContent",
	})
	resp, err = Dispatch(ctx, getReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)
	assert.Equal(t, "new", string(resp.Data), "handle 3 must resolve to the new element, not the stale detached one")
}

func TestUpdateTextContentForgetsDetachedDescendantHandles(t *testing.T) {
	ctx, _ := newTestContext(t)

	createReq, _ := message.NewRequest(message.TargetSession, 0, "createPlainWindow", "R1", message.NewRequestOptions{
		DataType: message.DataEJSON,
		Data:     []byte(`{"name":"main","title":"Main"}`),
	})
	resp, err := Dispatch(ctx, createReq)
	require.NoError(t, err)
	handle := resp.ResultValue

	loadReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "load", "R2", message.NewRequestOptions{
		Data: []byte(`<div id="root"><span hvml:handle="9">child</span></div>`),
	})
	_, err = Dispatch(ctx, loadReq)
	require.NoError(t, err)

	updateReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "update", "R3", message.NewRequestOptions{
		ElementType: message.ElementCSS,
		Element:     "#root",
		Property:    "textContent",
		Data:        []byte("replaced"),
	})
	resp, err = Dispatch(ctx, updateReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusOK, resp.RetCode)

	getReq, _ := message.NewRequest(message.TargetPlainWindow, handle, "getProperty", "R4", message.NewRequestOptions{
		ElementType: message.ElementHandle,
		Element:     "9",
		Property:    "textContent",
	})
	resp, err = Dispatch(ctx, getReq)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusBadRequest, resp.RetCode, "handle 9 must no longer resolve after its element was replaced by textContent")
}

func TestUnknownOperationRejected(t *testing.T) {
	ctx, _ := newTestContext(t)
	req, _ := message.NewRequest(message.TargetSession, 0, "bogusOperation", "R1", message.NewRequestOptions{})
	resp, err := Dispatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, errs.StatusBadRequest, resp.RetCode)
}
