// Package dapclienterr defines the stable error taxonomy the DAP client
// runtime surfaces to callers. Kinds are the stable names; the Go type
// wrapping them is incidental.
package dapclienterr

import (
	"errors"
	"fmt"
)

// Kind names one of the failure modes the runtime can surface. Kinds are
// compared with errors.As against *Error, never by string.
type Kind string

const (
	// InvalidMessage means incoming bytes parsed as a Message but failed
	// schema requirements (e.g. a required field missing).
	InvalidMessage Kind = "invalid_message"
	// InvalidResponse means a Response body lacks the structure required
	// for the command in question.
	InvalidResponse Kind = "invalid_response"
	// TransportFailure means the underlying pipe closed, a write was
	// partial, or close happened while a caller was waiting.
	TransportFailure Kind = "transport_failure"
	// AdapterUnavailable means the adapter refused a request or was
	// otherwise uncooperative during the handshake.
	AdapterUnavailable Kind = "adapter_unavailable"
	// UnsupportedFeature means the operation is gated on a missing
	// capability or a missing host delegate.
	UnsupportedFeature Kind = "unsupported_feature"
	// SessionNotActive means a runtime operation was attempted outside
	// the Running state.
	SessionNotActive Kind = "session_not_active"
	// ProcessLaunchFailed is a boundary error from spawning the adapter
	// subprocess.
	ProcessLaunchFailed Kind = "process_launch_failed"
	// ConfigurationInvalid is a boundary error from manifest/config
	// loading.
	ConfigurationInvalid Kind = "configuration_invalid"
	// ConfigurationNotFound is a boundary error: the manifest or config
	// file does not exist.
	ConfigurationNotFound Kind = "configuration_not_found"
	// PersistenceFailure is a boundary error writing/removing a
	// SessionRecord.
	PersistenceFailure Kind = "persistence_failure"
)

// Error is the concrete error type for every Kind above. Reason is a
// short human-readable description; Cause, when present, is the
// underlying error that triggered this one.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, dapclienterr.New(SessionNotActive, "")) style checks
// work without comparing Reason or Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an *Error of the given kind with no cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// Of returns the Kind of err, and ok=false if err is not (or does not
// wrap) a *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
