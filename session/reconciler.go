package session

import (
	"path/filepath"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/fansqz/dapclient/dapsync"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/protocol"
)

// SetSourceBreakpoints replaces the desired breakpoint set for one
// source file. An empty or nil list clears every breakpoint in that
// file. The change is queued and reconciled against the adapter in
// the background; call Start (if not yet Running) or wait for the
// next reconciliation pass to observe it take effect.
func (s *Session) SetSourceBreakpoints(filePath string, breakpoints []protocol.ConditionalBreakpoint) {
	s.mu.Lock()
	if len(breakpoints) == 0 {
		delete(s.desiredSourceBreakpoints, filePath)
	} else {
		s.desiredSourceBreakpoints[filePath] = breakpoints
	}
	s.pendingSourceSync = true
	s.mu.Unlock()

	dapsync.Go(func() {
		if err := s.flushSourceBreakpoints(); err != nil {
			s.log.WithError(err).Warn("breakpoint reconciliation failed, will retry on next change")
		}
	})
}

// flushSourceBreakpoints reconciles the desired per-file breakpoint
// sets against the adapter. files_to_update is the union of every
// file with desired breakpoints and every file synchronized on the
// previous pass, so a file that lost all its breakpoints still gets
// an empty setBreakpoints call clearing it adapter-side. Dispatch is
// concurrent across files; any single file's failure re-raises the
// pending flag for a later retry without rolling back the files that
// did succeed. Running it again after a successful pass, with nothing
// marked pending since, returns without sending any request.
func (s *Session) flushSourceBreakpoints() error {
	if !s.state.Is(Running) {
		return nil
	}

	s.mu.Lock()
	if !s.pendingSourceSync {
		s.mu.Unlock()
		return nil
	}
	desired := make(map[string][]protocol.ConditionalBreakpoint, len(s.desiredSourceBreakpoints))
	filesToUpdate := hashset.New()
	for file, bps := range s.desiredSourceBreakpoints {
		desired[file] = bps
		filesToUpdate.Add(file)
	}
	for _, v := range s.lastSynchronizedFiles.Values() {
		filesToUpdate.Add(v)
	}
	s.mu.Unlock()

	files := filesToUpdate.Values()
	tasks := make([]func() error, len(files))
	for i, f := range files {
		file := f.(string)
		tasks[i] = func() error {
			return s.setBreakpointsForFile(file, desired[file])
		}
	}

	if err := dapsync.Run(tasks); err != nil {
		s.mu.Lock()
		s.pendingSourceSync = true
		s.mu.Unlock()
		return err
	}

	synced := hashset.New()
	for file := range desired {
		synced.Add(file)
	}
	s.mu.Lock()
	s.lastSynchronizedFiles = synced
	s.pendingSourceSync = false
	s.mu.Unlock()
	return nil
}

func (s *Session) setBreakpointsForFile(file string, breakpoints []protocol.ConditionalBreakpoint) error {
	items := make([]jsonvalue.Value, len(breakpoints))
	for i, bp := range breakpoints {
		items[i] = bp.ToSourceBreakpoint().ToValue()
	}
	source := protocol.Source{Name: filepath.Base(file), Path: file}
	args := jsonvalue.Object(
		jsonvalue.Pair("source", source.ToValue()),
		jsonvalue.Pair("breakpoints", jsonvalue.Array(items...)),
	)
	resp, err := s.broker.SendRequest("setBreakpoints", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}
	return nil
}

func stringArray(items []string) jsonvalue.Value {
	vals := make([]jsonvalue.Value, len(items))
	for i, s := range items {
		vals[i] = jsonvalue.String(s)
	}
	return jsonvalue.Array(vals...)
}

// SetExceptionBreakpoints replaces the desired exception-breakpoint
// configuration and reconciles it against the adapter immediately.
// filterOptions is only sent when the adapter advertises
// supportsExceptionFilterOptions; exceptionOptions only when it
// advertises supportsExceptionOptions. Either is silently omitted
// rather than failing the call when unsupported, so callers can pass
// the richer shape unconditionally.
func (s *Session) SetExceptionBreakpoints(filters []string, filterOptions []protocol.FilterOptions, exceptionOptions []protocol.ExceptionOptions) error {
	if err := s.requireRunning(); err != nil {
		return err
	}

	args := jsonvalue.Object(jsonvalue.Pair("filters", stringArray(filters)))
	if s.hasCapability("supportsExceptionFilterOptions") && len(filterOptions) > 0 {
		items := make([]jsonvalue.Value, len(filterOptions))
		for i, o := range filterOptions {
			items[i] = o.ToValue()
		}
		args.Set("filterOptions", jsonvalue.Array(items...))
	}
	if s.hasCapability("supportsExceptionOptions") && len(exceptionOptions) > 0 {
		items := make([]jsonvalue.Value, len(exceptionOptions))
		for i, o := range exceptionOptions {
			items[i] = o.ToValue()
		}
		args.Set("exceptionOptions", jsonvalue.Array(items...))
	}

	resp, err := s.broker.SendRequest("setExceptionBreakpoints", args, true)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return adapterRejected(resp)
	}

	s.mu.Lock()
	s.desiredExceptionFilters = filters
	s.desiredFilterOptions = filterOptions
	s.desiredExceptionOptions = exceptionOptions
	s.mu.Unlock()
	return nil
}

// SetFunctionBreakpoints is a one-shot (non-reconciled) call to
// setFunctionBreakpoints, gated on supportsFunctionBreakpoints.
func (s *Session) SetFunctionBreakpoints(breakpoints []protocol.FunctionBreakpoint) ([]protocol.VerifiedBreakpoint, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsFunctionBreakpoints"); err != nil {
		return nil, err
	}
	items := make([]jsonvalue.Value, len(breakpoints))
	for i, b := range breakpoints {
		items[i] = b.ToValue()
	}
	args := jsonvalue.Object(jsonvalue.Pair("breakpoints", jsonvalue.Array(items...)))
	resp, err := s.broker.SendRequest("setFunctionBreakpoints", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseVerifiedBreakpoints(body)
}

// SetInstructionBreakpoints is a one-shot call to
// setInstructionBreakpoints, gated on supportsInstructionBreakpoints.
func (s *Session) SetInstructionBreakpoints(breakpoints []protocol.InstructionBreakpoint) ([]protocol.VerifiedBreakpoint, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsInstructionBreakpoints"); err != nil {
		return nil, err
	}
	items := make([]jsonvalue.Value, len(breakpoints))
	for i, b := range breakpoints {
		items[i] = b.ToValue()
	}
	args := jsonvalue.Object(jsonvalue.Pair("breakpoints", jsonvalue.Array(items...)))
	resp, err := s.broker.SendRequest("setInstructionBreakpoints", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseVerifiedBreakpoints(body)
}

// SetDataBreakpoints is a one-shot call to setDataBreakpoints, gated
// on supportsDataBreakpoints.
func (s *Session) SetDataBreakpoints(breakpoints []protocol.DataBreakpoint) ([]protocol.VerifiedBreakpoint, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsDataBreakpoints"); err != nil {
		return nil, err
	}
	items := make([]jsonvalue.Value, len(breakpoints))
	for i, b := range breakpoints {
		items[i] = b.ToValue()
	}
	args := jsonvalue.Object(jsonvalue.Pair("breakpoints", jsonvalue.Array(items...)))
	resp, err := s.broker.SendRequest("setDataBreakpoints", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseVerifiedBreakpoints(body)
}

// BreakpointLocations queries candidate breakpoint locations in a
// line range, gated on supportsBreakpointLocationsRequest.
func (s *Session) BreakpointLocations(source protocol.Source, line int, endLine int, hasEndLine bool) ([]protocol.BreakpointLocation, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if err := s.requireCapability("supportsBreakpointLocationsRequest"); err != nil {
		return nil, err
	}
	args := jsonvalue.Object(
		jsonvalue.Pair("source", source.ToValue()),
		jsonvalue.Pair("line", jsonvalue.Int(line)),
	)
	if hasEndLine {
		args.Set("endLine", jsonvalue.Int(endLine))
	}
	resp, err := s.broker.SendRequest("breakpointLocations", args, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, adapterRejected(resp)
	}
	body, _ := resp.Body()
	return protocol.ParseBreakpointLocations(body)
}
