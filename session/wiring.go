package session

import (
	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/protocol"
)

// registerReverseHandlers installs handlers for the adapter-initiated
// requests this runtime understands: runInTerminal and
// startDebugging, both delegated to the HostDelegate supplied at
// construction. Every other reverse request falls through to the
// broker's own "Unsupported request" reply.
func (s *Session) registerReverseHandlers() {
	s.broker.RegisterRequestHandler("runInTerminal", func(args jsonvalue.Value, hasArgs bool) (jsonvalue.Value, bool, error) {
		parsed, err := protocol.ParseRunInTerminalArguments(args, hasArgs)
		if err != nil {
			return jsonvalue.Null(), false, err
		}
		if s.hostDelegate == nil {
			return jsonvalue.Null(), false, dapclienterr.New(dapclienterr.UnsupportedFeature, "runInTerminal: no host delegate configured")
		}
		result, err := s.hostDelegate.RunInTerminal(parsed)
		if err != nil {
			return jsonvalue.Null(), false, err
		}
		return result.ToValue(), true, nil
	})

	s.broker.RegisterRequestHandler("startDebugging", func(args jsonvalue.Value, hasArgs bool) (jsonvalue.Value, bool, error) {
		parsed, err := protocol.ParseStartDebuggingArguments(args, hasArgs)
		if err != nil {
			return jsonvalue.Null(), false, err
		}
		if s.hostDelegate == nil {
			return jsonvalue.Null(), false, dapclienterr.New(dapclienterr.UnsupportedFeature, "startDebugging: no host delegate configured")
		}
		if err := s.hostDelegate.StartDebugging(parsed); err != nil {
			return jsonvalue.Null(), false, err
		}
		return jsonvalue.Null(), false, nil
	})
}

// registerRuntimeEventHandlers installs handlers for the adapter
// events the runtime republishes as high-level Events. A stopped event
// without a body is logged and dropped, and an output event without a
// body is dropped; fields that are missing or of the wrong type read
// as zero values. No event, however malformed, fails the session.
func (s *Session) registerRuntimeEventHandlers() {
	s.broker.RegisterEventHandler("stopped", func(body jsonvalue.Value, hasBody bool) {
		if !hasBody {
			s.log.Warn("stopped event missing body")
			return
		}
		stopped := StoppedBody{
			Reason:            optionalStr(body, "reason"),
			ThreadID:          optionalIntVal(body, "threadId"),
			Description:       optionalStr(body, "description"),
			Text:              optionalStr(body, "text"),
			AllThreadsStopped: optionalBoolVal(body, "allThreadsStopped"),
		}
		s.events.Publish(Event{Kind: EventStopped, Stopped: &stopped})
	})

	s.broker.RegisterEventHandler("continued", func(_ jsonvalue.Value, _ bool) {
		s.events.Publish(Event{Kind: EventContinued})
	})

	s.broker.RegisterEventHandler("terminated", func(_ jsonvalue.Value, _ bool) {
		s.events.Publish(Event{Kind: EventTerminated})
	})

	s.broker.RegisterEventHandler("output", func(body jsonvalue.Value, hasBody bool) {
		if !hasBody {
			return
		}
		out := OutputBody{
			Category: optionalStr(body, "category"),
			Output:   optionalStr(body, "output"),
		}
		s.events.Publish(Event{Kind: EventOutput, Output: &out})
	})
}

func optionalStr(v jsonvalue.Value, key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := val.String()
	return s
}

func optionalIntVal(v jsonvalue.Value, key string) int {
	val, ok := v.Get(key)
	if !ok {
		return 0
	}
	n, _ := val.ExactInt()
	return int(n)
}

func optionalBoolVal(v jsonvalue.Value, key string) bool {
	val, ok := v.Get(key)
	if !ok {
		return false
	}
	b, _ := val.Bool()
	return b
}
