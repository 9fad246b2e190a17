package session

import (
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/protocol"
)

// Continue resumes execution starting from threadID. Whether other
// threads also resumed (allThreadsContinued) is not surfaced: the
// response body is discarded, and the republished continued event
// carries no body either.
func (s *Session) Continue(threadID int) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	args := jsonvalue.Object(jsonvalue.Pair("threadId", jsonvalue.Int(threadID)))
	resp, err := s.broker.SendRequest("continue", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

// Pause requests the adapter suspend threadID.
func (s *Session) Pause(threadID int) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	args := jsonvalue.Object(jsonvalue.Pair("threadId", jsonvalue.Int(threadID)))
	resp, err := s.broker.SendRequest("pause", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

func (s *Session) step(command string, threadID int, opts protocol.StepOptions) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	args := jsonvalue.Object(jsonvalue.Pair("threadId", jsonvalue.Int(threadID)))
	opts.Apply(args)
	resp, err := s.broker.SendRequest(command, args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

// StepIn steps threadID into the next callable. targetID selects
// among the candidates StepInTargets returned; hasTarget false omits
// it, letting the adapter pick. opts carries singleThread/granularity.
func (s *Session) StepIn(threadID int, targetID int, hasTarget bool, opts protocol.StepOptions) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	args := jsonvalue.Object(jsonvalue.Pair("threadId", jsonvalue.Int(threadID)))
	if hasTarget {
		args.Set("targetId", jsonvalue.Int(targetID))
	}
	opts.Apply(args)
	resp, err := s.broker.SendRequest("stepIn", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

// StepOut steps threadID out of the current function.
func (s *Session) StepOut(threadID int, opts protocol.StepOptions) error {
	return s.step("stepOut", threadID, opts)
}

// StepOver steps threadID over the next line, without entering calls.
func (s *Session) StepOver(threadID int, opts protocol.StepOptions) error {
	return s.step("next", threadID, opts)
}

// StepBack steps threadID backward, gated on supportsStepBack.
func (s *Session) StepBack(threadID int, opts protocol.StepOptions) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	if err := s.requireCapability("supportsStepBack"); err != nil {
		return err
	}
	return s.step("stepBack", threadID, opts)
}

// Threads fetches the debuggee's current thread list.
func (s *Session) Threads() ([]protocol.Thread, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	resp, err := s.broker.SendRequest("threads", jsonvalue.Null(), false)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseThreads(body)
}

// StackTrace fetches one thread's call stack.
func (s *Session) StackTrace(threadID int) ([]protocol.StackFrame, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(jsonvalue.Pair("threadId", jsonvalue.Int(threadID)))
	resp, err := s.broker.SendRequest("stackTrace", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseStackTrace(body)
}

// Scopes fetches the variable scopes visible at a stack frame.
func (s *Session) Scopes(frameID int) ([]protocol.Scope, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(jsonvalue.Pair("frameId", jsonvalue.Int(frameID)))
	resp, err := s.broker.SendRequest("scopes", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseScopes(body)
}

// Variables fetches the variables under a variablesReference.
func (s *Session) Variables(variablesReference int) ([]protocol.Variable, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(jsonvalue.Pair("variablesReference", jsonvalue.Int(variablesReference)))
	resp, err := s.broker.SendRequest("variables", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseVariables(body)
}

// LoadedSources fetches the adapter's currently loaded sources.
func (s *Session) LoadedSources() ([]protocol.LoadedSource, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	resp, err := s.broker.SendRequest("loadedSources", jsonvalue.Null(), false)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseLoadedSources(body)
}

// Modules fetches the debuggee's loaded modules.
func (s *Session) Modules() ([]protocol.Module, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	resp, err := s.broker.SendRequest("modules", jsonvalue.Null(), false)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseModules(body)
}

// Completions fetches completion candidates for text at column within
// a frame's expression context, gated on supportsCompletionsRequest.
func (s *Session) Completions(frameID int, text string, column int) ([]protocol.CompletionItem, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsCompletionsRequest"); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("frameId", jsonvalue.Int(frameID)),
		jsonvalue.Pair("text", jsonvalue.String(text)),
		jsonvalue.Pair("column", jsonvalue.Int(column)),
	)
	resp, err := s.broker.SendRequest("completions", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseCompletions(body)
}

// StepInTargets fetches the candidate stepIn targets at a frame,
// gated on supportsStepInTargetsRequest.
func (s *Session) StepInTargets(frameID int) ([]protocol.StepInTarget, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsStepInTargetsRequest"); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(jsonvalue.Pair("frameId", jsonvalue.Int(frameID)))
	resp, err := s.broker.SendRequest("stepInTargets", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseStepInTargets(body)
}

// ReadMemory reads count bytes starting at offset from memoryReference,
// gated on supportsReadMemoryRequest.
func (s *Session) ReadMemory(memoryReference string, offset, count int) (protocol.MemoryRead, error) {
	if err := s.requireRunning(); err != nil {
		return protocol.MemoryRead{}, err
	}
	if err := s.requireCapability("supportsReadMemoryRequest"); err != nil {
		return protocol.MemoryRead{}, err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("memoryReference", jsonvalue.String(memoryReference)),
		jsonvalue.Pair("offset", jsonvalue.Int(offset)),
		jsonvalue.Pair("count", jsonvalue.Int(count)),
	)
	resp, err := s.broker.SendRequest("readMemory", args, true)
	if err != nil {
		return protocol.MemoryRead{}, err
	}
	if !resp.Success() {
		return protocol.MemoryRead{}, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseMemoryRead(body)
}

// WriteMemory writes data starting at offset into memoryReference,
// gated on supportsWriteMemoryRequest.
func (s *Session) WriteMemory(memoryReference string, offset int, data []byte) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	if err := s.requireCapability("supportsWriteMemoryRequest"); err != nil {
		return err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("memoryReference", jsonvalue.String(memoryReference)),
		jsonvalue.Pair("offset", jsonvalue.Int(offset)),
		jsonvalue.Pair("data", jsonvalue.String(protocol.EncodeMemoryWrite(data))),
	)
	resp, err := s.broker.SendRequest("writeMemory", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

// SetExpression evaluates and assigns an expression in a frame's
// context, gated on supportsSetExpression.
func (s *Session) SetExpression(frameID int, expression, value string) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	if err := s.requireCapability("supportsSetExpression"); err != nil {
		return err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("expression", jsonvalue.String(expression)),
		jsonvalue.Pair("value", jsonvalue.String(value)),
		jsonvalue.Pair("frameId", jsonvalue.Int(frameID)),
	)
	resp, err := s.broker.SendRequest("setExpression", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

// SetVariable assigns name=value under a variablesReference, gated on
// supportsSetVariable.
func (s *Session) SetVariable(variablesReference int, name, value string) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	if err := s.requireCapability("supportsSetVariable"); err != nil {
		return err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("variablesReference", jsonvalue.Int(variablesReference)),
		jsonvalue.Pair("name", jsonvalue.String(name)),
		jsonvalue.Pair("value", jsonvalue.String(value)),
	)
	resp, err := s.broker.SendRequest("setVariable", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}
