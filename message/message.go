// Package message defines the wire-level Message variant the DAP
// client runtime exchanges with an adapter: Request, Response, or
// Event, each carrying a jsonvalue.Value body instead of a
// per-command Go struct.
package message

import (
	"fmt"

	"github.com/fansqz/dapclient/jsonvalue"
)

// Type tags which Message variant a value holds.
type Type int

const (
	TypeRequest Type = iota
	TypeResponse
	TypeEvent
)

// Message is the sum of Request, Response, and Event. Every Message
// carries a positive Seq (spec invariant).
type Message struct {
	typ Type

	seq int

	// Request fields
	command   string
	arguments jsonvalue.Value
	hasArgs   bool

	// Response fields
	requestSeq int
	success    bool
	message    string
	hasMessage bool
	body       jsonvalue.Value
	hasBody    bool

	// Event fields
	event string
}

func (m Message) Type() Type { return m.typ }
func (m Message) Seq() int   { return m.seq }

// NewRequest builds a Request Message. arguments may be the zero
// Value (jsonvalue.Null()) to mean "no arguments" (hasArgs=false is
// set by the caller passing hasArgs=false).
func NewRequest(seq int, command string, arguments jsonvalue.Value, hasArgs bool) Message {
	return Message{typ: TypeRequest, seq: seq, command: command, arguments: arguments, hasArgs: hasArgs}
}

// NewResponse builds a Response Message.
func NewResponse(seq, requestSeq int, success bool, command string) Message {
	return Message{typ: TypeResponse, seq: seq, requestSeq: requestSeq, success: success, command: command}
}

// WithMessage sets the optional human-readable message on a Response.
func (m Message) WithMessage(text string) Message {
	m.message = text
	m.hasMessage = true
	return m
}

// WithBody sets the optional body on a Response.
func (m Message) WithBody(body jsonvalue.Value) Message {
	m.body = body
	m.hasBody = true
	return m
}

// NewEvent builds an Event Message.
func NewEvent(seq int, event string, body jsonvalue.Value, hasBody bool) Message {
	return Message{typ: TypeEvent, seq: seq, event: event, body: body, hasBody: hasBody}
}

// Command returns a Request's command. Only valid when Type() == TypeRequest.
func (m Message) Command() string { return m.command }

// Arguments returns a Request's arguments and whether they were present.
func (m Message) Arguments() (jsonvalue.Value, bool) { return m.arguments, m.hasArgs }

// RequestSeq returns a Response's request_seq.
func (m Message) RequestSeq() int { return m.requestSeq }

// Success returns a Response's success flag.
func (m Message) Success() bool { return m.success }

// ResponseCommand returns a Response's mirrored command name.
func (m Message) ResponseCommand() string { return m.command }

// ErrorMessage returns a Response's optional message field.
func (m Message) ErrorMessage() (string, bool) { return m.message, m.hasMessage }

// Body returns a Response's or Event's optional body.
func (m Message) Body() (jsonvalue.Value, bool) { return m.body, m.hasBody }

// Event returns an Event's event name. Only valid when Type() == TypeEvent.
func (m Message) Event() string { return m.event }

// ToValue renders a Message as the jsonvalue.Value DAP puts on the
// wire.
func (m Message) ToValue() jsonvalue.Value {
	switch m.typ {
	case TypeRequest:
		v := jsonvalue.Object(
			jsonvalue.Pair("seq", jsonvalue.Int(m.seq)),
			jsonvalue.Pair("type", jsonvalue.String("request")),
			jsonvalue.Pair("command", jsonvalue.String(m.command)),
		)
		if m.hasArgs {
			v.Set("arguments", m.arguments)
		}
		return v
	case TypeResponse:
		v := jsonvalue.Object(
			jsonvalue.Pair("seq", jsonvalue.Int(m.seq)),
			jsonvalue.Pair("type", jsonvalue.String("response")),
			jsonvalue.Pair("request_seq", jsonvalue.Int(m.requestSeq)),
			jsonvalue.Pair("success", jsonvalue.Bool(m.success)),
			jsonvalue.Pair("command", jsonvalue.String(m.command)),
		)
		if m.hasMessage {
			v.Set("message", jsonvalue.String(m.message))
		}
		if m.hasBody {
			v.Set("body", m.body)
		}
		return v
	case TypeEvent:
		v := jsonvalue.Object(
			jsonvalue.Pair("seq", jsonvalue.Int(m.seq)),
			jsonvalue.Pair("type", jsonvalue.String("event")),
			jsonvalue.Pair("event", jsonvalue.String(m.event)),
		)
		if m.hasBody {
			v.Set("body", m.body)
		}
		return v
	default:
		return jsonvalue.Null()
	}
}

// Encode renders a Message as JSON bytes.
func Encode(m Message) ([]byte, error) {
	return jsonvalue.Encode(m.ToValue())
}

// FromValue parses a jsonvalue.Value into a Message, fail-fast on any
// required-field violation.
func FromValue(v jsonvalue.Value) (Message, error) {
	if !v.IsObject() {
		return Message{}, fmt.Errorf("message: expected object, got %s", v.Kind())
	}
	seqVal, ok := v.Get("seq")
	if !ok {
		return Message{}, fmt.Errorf("message: missing seq")
	}
	seq64, ok := seqVal.ExactInt()
	if !ok || seq64 <= 0 {
		return Message{}, fmt.Errorf("message: seq must be a positive integer")
	}
	seq := int(seq64)

	typVal, ok := v.Get("type")
	if !ok {
		return Message{}, fmt.Errorf("message: missing type")
	}
	typ, ok := typVal.String()
	if !ok {
		return Message{}, fmt.Errorf("message: type must be a string")
	}

	switch typ {
	case "request":
		commandVal, ok := v.Get("command")
		if !ok {
			return Message{}, fmt.Errorf("message: request missing command")
		}
		command, ok := commandVal.String()
		if !ok {
			return Message{}, fmt.Errorf("message: command must be a string")
		}
		args, hasArgs := v.Get("arguments")
		return NewRequest(seq, command, args, hasArgs), nil

	case "response":
		reqSeqVal, ok := v.Get("request_seq")
		if !ok {
			return Message{}, fmt.Errorf("message: response missing request_seq")
		}
		reqSeq64, ok := reqSeqVal.ExactInt()
		if !ok {
			return Message{}, fmt.Errorf("message: request_seq must be an integer")
		}
		successVal, ok := v.Get("success")
		if !ok {
			return Message{}, fmt.Errorf("message: response missing success")
		}
		success, ok := successVal.Bool()
		if !ok {
			return Message{}, fmt.Errorf("message: success must be a bool")
		}
		commandVal, ok := v.Get("command")
		if !ok {
			return Message{}, fmt.Errorf("message: response missing command")
		}
		command, ok := commandVal.String()
		if !ok {
			return Message{}, fmt.Errorf("message: command must be a string")
		}
		resp := NewResponse(seq, int(reqSeq64), success, command)
		if msgVal, ok := v.Get("message"); ok {
			if text, ok := msgVal.String(); ok {
				resp = resp.WithMessage(text)
			}
		}
		if body, ok := v.Get("body"); ok {
			resp = resp.WithBody(body)
		}
		return resp, nil

	case "event":
		eventVal, ok := v.Get("event")
		if !ok {
			return Message{}, fmt.Errorf("message: event missing event name")
		}
		event, ok := eventVal.String()
		if !ok {
			return Message{}, fmt.Errorf("message: event name must be a string")
		}
		body, hasBody := v.Get("body")
		return NewEvent(seq, event, body, hasBody), nil

	default:
		return Message{}, fmt.Errorf("message: unknown type %q", typ)
	}
}
