// Package hostdelegate provides a reference session.HostDelegate that
// serves runInTerminal by opening a real pseudo-terminal, grounded on
// a pty.Open/term.MakeRaw sequence
// for spawning a debuggee with an interactive TTY attached.
package hostdelegate

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// PTYDelegate implements session.HostDelegate's RunInTerminal by
// opening a pseudo-terminal and running the requested command with it
// attached as stdio. StartDebugging is not implemented: nested
// debug sessions have no host-application analogue in this runtime,
// so it always fails UnsupportedFeature.
type PTYDelegate struct {
	log *logrus.Entry
}

// NewPTYDelegate constructs a PTYDelegate.
func NewPTYDelegate() *PTYDelegate {
	return &PTYDelegate{log: logrus.WithField("component", "hostdelegate")}
}

// RunInTerminal opens a pty, puts the master side into raw mode, and
// runs args.Args[0] with the rest as arguments, args.Cwd as working
// directory, and args.Env merged onto the current process environment.
func (d *PTYDelegate) RunInTerminal(args protocol.RunInTerminalArguments) (protocol.RunInTerminalResult, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return protocol.RunInTerminalResult{}, dapclienterr.Wrap(dapclienterr.ProcessLaunchFailed, "opening pty", err)
	}
	defer pts.Close()

	if _, err := term.MakeRaw(int(ptmx.Fd())); err != nil {
		ptmx.Close()
		return protocol.RunInTerminalResult{}, dapclienterr.Wrap(dapclienterr.ProcessLaunchFailed, "setting raw mode", err)
	}

	cmd := exec.Command(args.Args[0], args.Args[1:]...)
	cmd.Dir = args.Cwd
	cmd.Stdin = pts
	cmd.Stdout = pts
	cmd.Stderr = pts
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	env := os.Environ()
	for k, v := range args.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	if err := cmd.Start(); err != nil {
		ptmx.Close()
		return protocol.RunInTerminalResult{}, dapclienterr.Wrap(dapclienterr.ProcessLaunchFailed, "starting process", err)
	}

	d.log.WithField("pid", cmd.Process.Pid).Info("started process in pty")

	go func() {
		_ = cmd.Wait()
		_ = ptmx.Close()
	}()

	return protocol.RunInTerminalResult{ProcessID: cmd.Process.Pid}, nil
}

// StartDebugging always fails: this delegate has no way to launch a
// nested session of its own.
func (d *PTYDelegate) StartDebugging(args protocol.StartDebuggingArguments) error {
	return dapclienterr.New(dapclienterr.UnsupportedFeature, "startDebugging: PTYDelegate cannot launch nested sessions")
}
