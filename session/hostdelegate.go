package session

import "github.com/fansqz/dapclient/protocol"

// HostDelegate is the borrowed capability set the host application
// provides for adapter-initiated actions the session cannot perform
// on its own: spawning a terminal, or launching a nested session.
// Unimplemented operations should return an UnsupportedFeature error;
// a nil HostDelegate is legal and every reverse request it would have
// served fails the same way.
type HostDelegate interface {
	RunInTerminal(args protocol.RunInTerminalArguments) (protocol.RunInTerminalResult, error)
	StartDebugging(args protocol.StartDebuggingArguments) error
}
