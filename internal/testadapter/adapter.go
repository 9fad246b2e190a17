// Package testadapter is an in-process fake DAP adapter used to drive
// end-to-end tests of the transport/broker/session stack without a
// real debug adapter subprocess. It speaks github.com/google/go-dap's
// wire types directly via a bufio.ReadWriter dispatch loop
// (dap.ReadProtocolMessage / dap.WriteProtocolMessage) — the one place
// in this module go-dap's struct-tag-driven types are appropriate,
// since here they decode messages this fake writes itself rather than
// an arbitrary adapter's.
package testadapter

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/go-dap"
)

// Adapter is a fake DAP adapter driving one end of a duplex
// connection. Tests configure its hooks before calling Serve to
// script scenario-specific behavior; unconfigured hooks default to a
// bare success response.
type Adapter struct {
	rw *bufio.ReadWriter

	mu      sync.Mutex
	nextSeq int

	// Capabilities is sent in the initialize response body, nested under
	// its "capabilities" key.
	Capabilities dap.Capabilities

	// OnLaunch, OnAttach, and OnSetBreakpoints let a test observe or
	// fail a request. nil means "succeed with a bare response".
	OnLaunch         func(args json.RawMessage) error
	OnAttach         func(args json.RawMessage) error
	OnSetBreakpoints func(args dap.SetBreakpointsArguments) []dap.Breakpoint

	// OnStep, if set, observes every stepping request (stepIn, stepOut,
	// next, stepBack) by command name and arguments, letting a test
	// assert on merged options (singleThread, granularity, targetId)
	// without a typed struct per command. The arguments are go-dap's
	// decoded struct re-encoded to JSON, not the bytes on the wire:
	// fields go-dap does not model are lost, and zero-valued omitempty
	// fields (singleThread false, empty granularity) are absent.
	OnStep func(command string, args json.RawMessage)

	// Requests records every request received, in arrival order, for
	// tests to assert against after Serve returns.
	reqMu    sync.Mutex
	Requests []dap.Message
}

// New wraps conn, a duplex connection to the session under test
// (typically one end of a net.Pipe()).
func New(conn io.ReadWriteCloser) *Adapter {
	return &Adapter{
		rw:      bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		nextSeq: 1,
	}
}

func (a *Adapter) allocSeq() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	seq := a.nextSeq
	a.nextSeq++
	return seq
}

// Serve runs the request-dispatch loop until the connection closes.
// Run it in its own goroutine.
func (a *Adapter) Serve() error {
	for {
		msg, err := dap.ReadProtocolMessage(a.rw.Reader)
		if err != nil {
			return err
		}
		a.reqMu.Lock()
		a.Requests = append(a.Requests, msg)
		a.reqMu.Unlock()
		a.dispatch(msg)
	}
}

func (a *Adapter) send(msg dap.Message) {
	if r, ok := msg.(dap.ResponseMessage); ok {
		r.GetResponse().Seq = a.allocSeq()
	}
	_ = dap.WriteProtocolMessage(a.rw.Writer, msg)
	_ = a.rw.Flush()
}

// SendEvent lets a test push an arbitrary event to the session, e.g.
// a stopped event after continue.
func (a *Adapter) SendEvent(event string, body interface{}) {
	e := &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.allocSeq(), Type: "event"},
		Event:           event,
	}
	if body == nil {
		a.send(e)
		return
	}
	raw, _ := json.Marshal(body)
	wrapper := struct {
		*dap.Event
		Body json.RawMessage `json:"body"`
	}{Event: e, Body: raw}
	a.send(&wrapper)
}

// SendReverseRequest lets a test drive an adapter-initiated request
// (e.g. runInTerminal) at the session under test.
func (a *Adapter) SendReverseRequest(command string, arguments interface{}) {
	req := &dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.allocSeq(), Type: "request"},
		Command:         command,
	}
	if arguments == nil {
		a.send(req)
		return
	}
	raw, _ := json.Marshal(arguments)
	wrapper := struct {
		*dap.Request
		Arguments json.RawMessage `json:"arguments"`
	}{Request: req, Arguments: raw}
	a.send(&wrapper)
}

func newResponse(requestSeq int, command string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		RequestSeq:      requestSeq,
		Command:         command,
		Success:         true,
	}
}

func newErrorResponse(requestSeq int, command, message string) *dap.ErrorResponse {
	er := &dap.ErrorResponse{Response: newResponse(requestSeq, command)}
	er.Success = false
	er.Message = message
	er.Body.Error = &dap.ErrorMessage{Format: message}
	return er
}

func (a *Adapter) reportStep(command string, args interface{}) {
	if a.OnStep == nil {
		return
	}
	raw, _ := json.Marshal(args)
	a.OnStep(command, raw)
}

func (a *Adapter) dispatch(msg dap.Message) {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		resp := struct {
			dap.Response
			Body struct {
				Capabilities dap.Capabilities `json:"capabilities"`
			} `json:"body"`
		}{Response: newResponse(req.Seq, req.Command)}
		resp.Body.Capabilities = a.Capabilities
		a.send(&resp)
		a.SendEvent("initialized", nil)

	case *dap.LaunchRequest:
		if a.OnLaunch != nil {
			if err := a.OnLaunch(req.Arguments); err != nil {
				a.send(newErrorResponse(req.Seq, req.Command, err.Error()))
				return
			}
		}
		a.send(&dap.LaunchResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.AttachRequest:
		if a.OnAttach != nil {
			if err := a.OnAttach(req.Arguments); err != nil {
				a.send(newErrorResponse(req.Seq, req.Command, err.Error()))
				return
			}
		}
		a.send(&dap.AttachResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.ConfigurationDoneRequest:
		a.send(&dap.ConfigurationDoneResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.SetBreakpointsRequest:
		resp := &dap.SetBreakpointsResponse{Response: newResponse(req.Seq, req.Command)}
		if a.OnSetBreakpoints != nil {
			resp.Body.Breakpoints = a.OnSetBreakpoints(req.Arguments)
		} else {
			resp.Body.Breakpoints = make([]dap.Breakpoint, len(req.Arguments.Breakpoints))
			for i, b := range req.Arguments.Breakpoints {
				resp.Body.Breakpoints[i] = dap.Breakpoint{Verified: true, Line: b.Line}
			}
		}
		a.send(resp)

	case *dap.ThreadsRequest:
		resp := &dap.ThreadsResponse{Response: newResponse(req.Seq, req.Command)}
		resp.Body.Threads = []dap.Thread{{Id: 1, Name: "main"}}
		a.send(resp)

	case *dap.ContinueRequest:
		a.send(&dap.ContinueResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.NextRequest:
		a.reportStep("next", req.Arguments)
		a.send(&dap.NextResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.StepInRequest:
		a.reportStep("stepIn", req.Arguments)
		a.send(&dap.StepInResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.StepOutRequest:
		a.reportStep("stepOut", req.Arguments)
		a.send(&dap.StepOutResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.StepBackRequest:
		a.reportStep("stepBack", req.Arguments)
		a.send(&dap.StepBackResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.PauseRequest:
		a.send(&dap.PauseResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.SetExceptionBreakpointsRequest:
		a.send(&dap.SetExceptionBreakpointsResponse{Response: newResponse(req.Seq, req.Command)})

	case *dap.DisconnectRequest:
		a.send(&dap.DisconnectResponse{Response: newResponse(req.Seq, req.Command)})

	default:
		if baseReq, ok := msg.(*dap.Request); ok {
			a.send(newErrorResponse(baseReq.Seq, baseReq.Command, "unsupported by testadapter: "+baseReq.Command))
		}
	}
}
