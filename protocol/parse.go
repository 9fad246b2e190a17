package protocol

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/jsonvalue"
)

func invalidResponse(reason string) error {
	return dapclienterr.New(dapclienterr.InvalidResponse, reason)
}

func requireField(v jsonvalue.Value, key string) (jsonvalue.Value, error) {
	val, ok := v.Get(key)
	if !ok {
		return jsonvalue.Null(), invalidResponse(fmt.Sprintf("missing required field %q", key))
	}
	return val, nil
}

func requireString(v jsonvalue.Value, key string) (string, error) {
	val, err := requireField(v, key)
	if err != nil {
		return "", err
	}
	s, ok := val.String()
	if !ok {
		return "", invalidResponse(fmt.Sprintf("field %q must be a string", key))
	}
	return s, nil
}

func requireInt(v jsonvalue.Value, key string) (int, error) {
	val, err := requireField(v, key)
	if err != nil {
		return 0, err
	}
	n, ok := val.ExactInt()
	if !ok {
		return 0, invalidResponse(fmt.Sprintf("field %q must be an integer", key))
	}
	return int(n), nil
}

func optionalInt(v jsonvalue.Value, key string, fallback int) int {
	val, ok := v.Get(key)
	if !ok {
		return fallback
	}
	n, ok := val.ExactInt()
	if !ok {
		return fallback
	}
	return int(n)
}

func optionalString(v jsonvalue.Value, key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := val.String()
	return s
}

func optionalBool(v jsonvalue.Value, key string) bool {
	val, ok := v.Get(key)
	if !ok {
		return false
	}
	b, _ := val.Bool()
	return b
}

func requireArray(v jsonvalue.Value, key string) ([]jsonvalue.Value, error) {
	val, err := requireField(v, key)
	if err != nil {
		return nil, err
	}
	arr, ok := val.Array()
	if !ok {
		return nil, invalidResponse(fmt.Sprintf("field %q must be an array", key))
	}
	return arr, nil
}

// ParseSource parses a Source object.
func ParseSource(v jsonvalue.Value) (Source, error) {
	if !v.IsObject() {
		return Source{}, invalidResponse("source must be an object")
	}
	return Source{
		Name: optionalString(v, "name"),
		Path: optionalString(v, "path"),
	}, nil
}

// ParseThreads parses the body of a threads response.
func ParseThreads(body jsonvalue.Value) ([]Thread, error) {
	items, err := requireArray(body, "threads")
	if err != nil {
		return nil, err
	}
	out := make([]Thread, len(items))
	for i, item := range items {
		id, err := requireInt(item, "id")
		if err != nil {
			return nil, err
		}
		out[i] = Thread{ID: id, Name: optionalString(item, "name")}
	}
	return out, nil
}

// ParseStackTrace parses the body of a stackTrace response.
func ParseStackTrace(body jsonvalue.Value) ([]StackFrame, error) {
	items, err := requireArray(body, "stackFrames")
	if err != nil {
		return nil, err
	}
	out := make([]StackFrame, len(items))
	for i, item := range items {
		id, err := requireInt(item, "id")
		if err != nil {
			return nil, err
		}
		frame := StackFrame{
			ID:     id,
			Name:   optionalString(item, "name"),
			Line:   optionalInt(item, "line", 0),
			Column: optionalInt(item, "column", 0),
		}
		if srcVal, ok := item.Get("source"); ok && srcVal.IsObject() {
			src, err := ParseSource(srcVal)
			if err != nil {
				return nil, err
			}
			frame.Source = &src
		}
		out[i] = frame
	}
	return out, nil
}

// ParseScopes parses the body of a scopes response.
func ParseScopes(body jsonvalue.Value) ([]Scope, error) {
	items, err := requireArray(body, "scopes")
	if err != nil {
		return nil, err
	}
	out := make([]Scope, len(items))
	for i, item := range items {
		name, err := requireString(item, "name")
		if err != nil {
			return nil, err
		}
		ref, err := requireInt(item, "variablesReference")
		if err != nil {
			return nil, err
		}
		out[i] = Scope{Name: name, VariablesReference: ref, Expensive: optionalBool(item, "expensive")}
	}
	return out, nil
}

// ParseVariables parses the body of a variables response.
func ParseVariables(body jsonvalue.Value) ([]Variable, error) {
	items, err := requireArray(body, "variables")
	if err != nil {
		return nil, err
	}
	out := make([]Variable, len(items))
	for i, item := range items {
		name, err := requireString(item, "name")
		if err != nil {
			return nil, err
		}
		value, err := requireString(item, "value")
		if err != nil {
			return nil, err
		}
		out[i] = Variable{
			Name:               name,
			Value:              value,
			Type:               optionalString(item, "type"),
			VariablesReference: optionalInt(item, "variablesReference", 0),
		}
	}
	return out, nil
}

// ParseLoadedSources parses the body of a loadedSources response.
func ParseLoadedSources(body jsonvalue.Value) ([]LoadedSource, error) {
	items, err := requireArray(body, "sources")
	if err != nil {
		return nil, err
	}
	out := make([]LoadedSource, len(items))
	for i, item := range items {
		src, err := ParseSource(item)
		if err != nil {
			return nil, err
		}
		out[i] = LoadedSource{Source: src}
	}
	return out, nil
}

// ParseModules parses the body of a modules response.
func ParseModules(body jsonvalue.Value) ([]Module, error) {
	items, err := requireArray(body, "modules")
	if err != nil {
		return nil, err
	}
	out := make([]Module, len(items))
	for i, item := range items {
		idVal, err := requireField(item, "id")
		if err != nil {
			return nil, err
		}
		var id string
		if s, ok := idVal.String(); ok {
			id = s
		} else if n, ok := idVal.ExactInt(); ok {
			id = fmt.Sprintf("%d", n)
		} else {
			return nil, invalidResponse("module id must be a string or integer")
		}
		out[i] = Module{ID: id, Name: optionalString(item, "name"), Path: optionalString(item, "path")}
	}
	return out, nil
}

// ParseCompletions parses the body of a completions response.
func ParseCompletions(body jsonvalue.Value) ([]CompletionItem, error) {
	items, err := requireArray(body, "targets")
	if err != nil {
		return nil, err
	}
	out := make([]CompletionItem, len(items))
	for i, item := range items {
		label, err := requireString(item, "label")
		if err != nil {
			return nil, err
		}
		out[i] = CompletionItem{
			Label:  label,
			Text:   optionalString(item, "text"),
			Start:  optionalInt(item, "start", 0),
			Length: optionalInt(item, "length", 0),
		}
	}
	return out, nil
}

// ParseStepInTargets parses the body of a stepInTargets response.
func ParseStepInTargets(body jsonvalue.Value) ([]StepInTarget, error) {
	items, err := requireArray(body, "targets")
	if err != nil {
		return nil, err
	}
	out := make([]StepInTarget, len(items))
	for i, item := range items {
		id, err := requireInt(item, "id")
		if err != nil {
			return nil, err
		}
		label, err := requireString(item, "label")
		if err != nil {
			return nil, err
		}
		out[i] = StepInTarget{ID: id, Label: label}
	}
	return out, nil
}

// ParseBreakpointLocations parses the body of a breakpointLocations
// response.
func ParseBreakpointLocations(body jsonvalue.Value) ([]BreakpointLocation, error) {
	items, err := requireArray(body, "breakpoints")
	if err != nil {
		return nil, err
	}
	out := make([]BreakpointLocation, len(items))
	for i, item := range items {
		line, err := requireInt(item, "line")
		if err != nil {
			return nil, err
		}
		out[i] = BreakpointLocation{Line: line, Column: optionalInt(item, "column", 0)}
	}
	return out, nil
}

// ParseVerifiedBreakpoints parses a "breakpoints" array of the shape
// returned by setBreakpoints, setFunctionBreakpoints,
// setInstructionBreakpoints, and setDataBreakpoints.
func ParseVerifiedBreakpoints(body jsonvalue.Value) ([]VerifiedBreakpoint, error) {
	items, err := requireArray(body, "breakpoints")
	if err != nil {
		return nil, err
	}
	out := make([]VerifiedBreakpoint, len(items))
	for i, item := range items {
		out[i] = VerifiedBreakpoint{
			ID:       optionalInt(item, "id", 0),
			Verified: optionalBool(item, "verified"),
			Line:     optionalInt(item, "line", 0),
			Message:  optionalString(item, "message"),
		}
	}
	return out, nil
}

// ParseExceptionBreakpointsFilters parses the initialize response's
// exceptionBreakpointFilters array.
func ParseExceptionBreakpointsFilters(body jsonvalue.Value) ([]ExceptionBreakpointsFilter, error) {
	arr, ok := body.Array()
	if !ok {
		return nil, invalidResponse("exceptionBreakpointFilters must be an array")
	}
	out := make([]ExceptionBreakpointsFilter, len(arr))
	for i, item := range arr {
		filter, err := requireString(item, "filter")
		if err != nil {
			return nil, err
		}
		label, err := requireString(item, "label")
		if err != nil {
			return nil, err
		}
		out[i] = ExceptionBreakpointsFilter{
			Filter:            filter,
			Label:             label,
			Default:           optionalBool(item, "default"),
			SupportsCondition: optionalBool(item, "supportsCondition"),
		}
	}
	return out, nil
}

// ParseMemoryRead parses the body of a readMemory response, decoding
// its base64 data tolerant of embedded whitespace (some adapters wrap
// long base64 payloads across lines).
func ParseMemoryRead(body jsonvalue.Value) (MemoryRead, error) {
	address, err := requireString(body, "address")
	if err != nil {
		return MemoryRead{}, err
	}
	dataVal, ok := body.Get("data")
	if !ok {
		return MemoryRead{Address: address}, nil
	}
	encoded, ok := dataVal.String()
	if !ok {
		return MemoryRead{}, invalidResponse("data must be a string")
	}
	cleaned := strings.Join(strings.Fields(encoded), "")
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return MemoryRead{}, invalidResponse("data is not valid base64: " + err.Error())
	}
	return MemoryRead{Address: address, Data: decoded}, nil
}

// EncodeMemoryWrite base64-encodes data for a writeMemory request.
func EncodeMemoryWrite(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ParseRunInTerminalArguments parses a runInTerminal reverse
// request's argument object. Non-string values inside env are
// silently dropped, matching the source's tolerant behavior (see
// spec Open Questions).
func ParseRunInTerminalArguments(v jsonvalue.Value, hasArgs bool) (RunInTerminalArguments, error) {
	if !hasArgs || !v.IsObject() {
		return RunInTerminalArguments{}, invalidResponse("runInTerminal requires an arguments object")
	}
	argsVal, err := requireArray(v, "args")
	if err != nil {
		return RunInTerminalArguments{}, err
	}
	if len(argsVal) == 0 {
		return RunInTerminalArguments{}, invalidResponse("runInTerminal requires a non-empty args array")
	}
	args := make([]string, len(argsVal))
	for i, item := range argsVal {
		s, ok := item.String()
		if !ok {
			return RunInTerminalArguments{}, invalidResponse("args elements must be strings")
		}
		args[i] = s
	}

	env := map[string]string{}
	if envVal, ok := v.Get("env"); ok && envVal.IsObject() {
		for _, k := range envVal.Keys() {
			val, _ := envVal.Get(k)
			if s, ok := val.String(); ok {
				env[k] = s
			}
			// non-string env values are dropped, not an error
		}
	}

	return RunInTerminalArguments{
		Kind: optionalString(v, "kind"),
		Cwd:  optionalString(v, "cwd"),
		Args: args,
		Env:  env,
	}, nil
}

// ParseStartDebuggingArguments parses a startDebugging reverse
// request's argument object.
func ParseStartDebuggingArguments(v jsonvalue.Value, hasArgs bool) (StartDebuggingArguments, error) {
	if !hasArgs || !v.IsObject() {
		return StartDebuggingArguments{}, invalidResponse("startDebugging requires an arguments object")
	}
	config, err := requireField(v, "configuration")
	if err != nil {
		return StartDebuggingArguments{}, err
	}
	if !config.IsObject() {
		return StartDebuggingArguments{}, invalidResponse("configuration must be an object")
	}
	request := optionalString(v, "request")
	if request == "" {
		request = "launch"
	}
	return StartDebuggingArguments{Configuration: config, Request: request}, nil
}

// ParseCapabilities returns the key set of the initialize response's
// capabilities object. Presence of a key is treated as the adapter
// asserting that capability, regardless of its boolean value (see
// DESIGN.md's resolution of the corresponding Open Question).
func ParseCapabilities(body jsonvalue.Value) map[string]bool {
	caps := map[string]bool{}
	capsVal, ok := body.Get("capabilities")
	if !ok || !capsVal.IsObject() {
		return caps
	}
	for _, k := range capsVal.Keys() {
		caps[k] = true
	}
	return caps
}
