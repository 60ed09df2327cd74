package dispatch

import (
	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/errs"
	"github.com/purc-tools/purcrdr/session"
	"github.com/purc-tools/purcrdr/wire/message"
)

type startSessionParams struct {
	ProtocolName    string `mapstructure:"protocolName"`
	ProtocolVersion int    `mapstructure:"protocolVersion"`
	HostName        string `mapstructure:"hostName"`
	AppName         string `mapstructure:"appName"`
	RunnerName      string `mapstructure:"runnerName"`
}

// handleStartSession validates the handshake body against the
// protocol name/version bounds of spec.md §4.7, overrides hostName
// with "localhost" for Unix-socket clients, assembles the endpoint
// name, and promotes the endpoint from AUTHING to READY.
func handleStartSession(ctx *Context, req *message.Message) (*message.Message, error) {
	var p startSessionParams
	if err := decodeEJSON(req.Data, &p); err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}

	if p.ProtocolName != constants.ProtocolName {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	if p.ProtocolVersion > constants.ProtocolVersion {
		resp, err := message.NewResponse(req.RequestID, errs.StatusBadRequest, 0, message.DataVoid, nil)
		return resp, err
	}
	if p.ProtocolVersion < constants.ProtocolVersionMin {
		resp, err := message.NewResponse(req.RequestID, errs.StatusUpgradeRequired, 0, message.DataVoid, nil)
		return resp, err
	}

	host := p.HostName
	if ctx.UnixTransport {
		host = "localhost"
	}

	if err := ctx.Registry.Authenticate(ctx.Endpoint, host, p.AppName, p.RunnerName, ctx.Now); err != nil {
		if perr, ok := err.(*errs.Error); ok {
			resp, rerr := message.NewResponse(req.RequestID, perr.Status(), 0, message.DataVoid, nil)
			if perr.Code == errs.CodeInvalidValue {
				resp, rerr = message.NewResponse(req.RequestID, errs.StatusNotAcceptable, 0, message.DataVoid, nil)
			}
			return resp, rerr
		}
		return nil, err
	}

	return message.NewResponse(req.RequestID, errs.StatusOK, session.AllocHandle(), message.DataVoid, nil)
}

// handleEndSession tears down the session's windows and documents but
// leaves ep's connection open: spec.md §3's lifecycle destroys the
// session on endSession, not the endpoint's transport, so a second
// endSession on the same socket can still be routed and answered
// (property 7 of spec.md §8 — idempotent endSession).
func handleEndSession(ctx *Context, req *message.Message) (*message.Message, error) {
	ep := ctx.Endpoint
	if ctx.Events != nil {
		for _, w := range ep.Windows {
			evt, err := message.NewEvent(message.TargetPlainWindow, w.Handle, "destroyed", message.NewEventOptions{})
			if err == nil {
				_ = ctx.Events.EmitEvent(ep, evt)
			}
		}
	}
	ep.Windows = make(map[uint64]*session.PlainWindow)
	ep.WindowByName = make(map[string]*session.PlainWindow)
	ep.PendingWrite = make(map[uint64][]byte)
	ctx.Registry.Deauthenticate(ep)
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}

type createPlainWindowParams struct {
	Name  string `mapstructure:"name"`
	Title string `mapstructure:"title"`
}

func handleCreatePlainWindow(ctx *Context, req *message.Message) (*message.Message, error) {
	var p createPlainWindowParams
	if err := decodeEJSON(req.Data, &p); err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}
	// Window names are free-form (spec.md's createPlainWindow places
	// no token constraint on them, unlike host/app/runner names), so
	// only duplicates are rejected here.
	if _, exists := ctx.Endpoint.WindowByName[p.Name]; exists {
		return errResponse(req.RequestID, errs.CodeDuplicated)
	}

	w := session.NewPlainWindow(p.Name, p.Title)
	ctx.Endpoint.AddWindow(w)

	return message.NewResponse(req.RequestID, errs.StatusOK, w.Handle, message.DataVoid, nil)
}

type updatePlainWindowParams struct {
	Value string `mapstructure:"value"`
}

// handleUpdatePlainWindow updates either the window's name or its
// title, disambiguated by req.Property ("name" vs "title"), the same
// single operation the original renderer's endpoint.c dispatches on
// both fields of.
func handleUpdatePlainWindow(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := ctx.Endpoint.Windows[req.TargetValue]
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	var p updatePlainWindowParams
	if err := decodeEJSON(req.Data, &p); err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}

	switch req.Property {
	case "name":
		oldName := w.Name
		w.Name = p.Value
		ctx.Endpoint.RenameWindow(oldName, w)
	case "title":
		w.Title = p.Value
	default:
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}

	return message.NewResponse(req.RequestID, errs.StatusOK, w.Handle, message.DataVoid, nil)
}

func handleDestroyPlainWindow(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := ctx.Endpoint.Windows[req.TargetValue]
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	if ctx.Events != nil {
		evt, err := message.NewEvent(message.TargetPlainWindow, w.Handle, "destroyed", message.NewEventOptions{})
		if err == nil {
			_ = ctx.Events.EmitEvent(ctx.Endpoint, evt)
		}
	}
	ctx.Endpoint.RemoveWindow(w)
	return message.NewResponse(req.RequestID, errs.StatusOK, 0, message.DataVoid, nil)
}

func windowFor(ctx *Context, req *message.Message) (*session.PlainWindow, bool) {
	w, ok := ctx.Endpoint.Windows[req.TargetValue]
	return w, ok
}

func handleLoad(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	if err := w.Load(req.Data); err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}
	return message.NewResponse(req.RequestID, errs.StatusOK, w.Handle, message.DataVoid, nil)
}

func handleWriteBegin(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	ctx.Endpoint.PendingWrite[w.Handle] = append([]byte(nil), req.Data...)
	return message.NewResponse(req.RequestID, errs.StatusAccepted, w.Handle, message.DataVoid, nil)
}

func handleWriteMore(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	if _, started := ctx.Endpoint.PendingWrite[w.Handle]; !started {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	ctx.Endpoint.PendingWrite[w.Handle] = append(ctx.Endpoint.PendingWrite[w.Handle], req.Data...)
	return message.NewResponse(req.RequestID, errs.StatusAccepted, w.Handle, message.DataVoid, nil)
}

func handleWriteEnd(ctx *Context, req *message.Message) (*message.Message, error) {
	w, ok := windowFor(ctx, req)
	if !ok {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	body, started := ctx.Endpoint.PendingWrite[w.Handle]
	if !started {
		return errResponse(req.RequestID, errs.CodeInvalidValue)
	}
	body = append(body, req.Data...)
	delete(ctx.Endpoint.PendingWrite, w.Handle)

	if err := w.Load(body); err != nil {
		return errResponse(req.RequestID, errs.CodeProtocol)
	}
	return message.NewResponse(req.RequestID, errs.StatusOK, w.Handle, message.DataVoid, nil)
}
