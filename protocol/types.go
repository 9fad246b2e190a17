// Package protocol defines typed DAP request/response/event payloads
// and breakpoint wire types, with fail-fast parsers that read from a
// jsonvalue.Value rather than relying on encoding/json struct tags.
package protocol

import "github.com/fansqz/dapclient/jsonvalue"

// Source identifies a source file as DAP expects it on the wire.
type Source struct {
	Name string
	Path string
}

func (s Source) ToValue() jsonvalue.Value {
	return jsonvalue.Object(
		jsonvalue.Pair("name", jsonvalue.String(s.Name)),
		jsonvalue.Pair("path", jsonvalue.String(s.Path)),
	)
}

// Thread is a single thread of the debuggee.
type Thread struct {
	ID   int
	Name string
}

// StackFrame is one frame of a thread's call stack.
type StackFrame struct {
	ID     int
	Name   string
	Source *Source
	Line   int
	Column int
}

// Scope groups a set of variables visible at a stack frame.
type Scope struct {
	Name               string
	VariablesReference int
	Expensive          bool
}

// Variable is a single named value, possibly itself a container
// (VariablesReference > 0 means "fetch children via Session.Variables").
type Variable struct {
	Name               string
	Value              string
	Type               string
	VariablesReference int
}

// Module is one loaded module/shared library.
type Module struct {
	ID   string
	Name string
	Path string
}

// LoadedSource is one source the adapter has loaded.
type LoadedSource struct {
	Source Source
}

// CompletionItem is one candidate in a completions response.
type CompletionItem struct {
	Label  string
	Text   string
	Start  int
	Length int
}

// StepInTarget is one candidate target for a step-in-targets request.
type StepInTarget struct {
	ID    int
	Label string
}

// BreakpointLocation is one candidate location for breakpointLocations.
type BreakpointLocation struct {
	Line   int
	Column int
}

// ExceptionBreakpointsFilter describes one adapter-advertised
// exception filter, as returned in the initialize response.
type ExceptionBreakpointsFilter struct {
	Filter            string
	Label             string
	Default           bool
	SupportsCondition bool
}

// VerifiedBreakpoint is an adapter's acknowledgement of one breakpoint
// it accepted (or rejected), returned from setBreakpoints and its
// siblings.
type VerifiedBreakpoint struct {
	ID       int
	Verified bool
	Line     int
	Message  string
}

// MemoryRead is the decoded result of a read_memory operation.
type MemoryRead struct {
	Address string
	Data    []byte
}

// RunInTerminalArguments is the parsed argument object of a
// runInTerminal reverse request.
type RunInTerminalArguments struct {
	Kind string
	Cwd  string
	Args []string
	Env  map[string]string
}

// RunInTerminalResult is the body of a successful runInTerminal
// response.
type RunInTerminalResult struct {
	ProcessID int
}

func (r RunInTerminalResult) ToValue() jsonvalue.Value {
	return jsonvalue.Object(jsonvalue.Pair("processId", jsonvalue.Int(r.ProcessID)))
}

// StartDebuggingArguments is the parsed argument object of a
// startDebugging reverse request.
type StartDebuggingArguments struct {
	Configuration jsonvalue.Value
	Request       string
}

// StepOptions carries the fields DAP merges into every stepping
// request's arguments when the caller supplies them: whether only the
// stepping thread should resume, and the granularity to step by
// ("statement", "line", or "instruction").
type StepOptions struct {
	SingleThread    bool
	HasSingleThread bool
	Granularity     string
}

// Apply merges o into args in place, matching the shape every
// stepping request shares.
func (o StepOptions) Apply(args jsonvalue.Value) {
	if o.HasSingleThread {
		args.Set("singleThread", jsonvalue.Bool(o.SingleThread))
	}
	if o.Granularity != "" {
		args.Set("granularity", jsonvalue.String(o.Granularity))
	}
}
