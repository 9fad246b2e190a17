// Command dapclient spawns a debug adapter subprocess, drives one
// session end-to-end against a launch configuration, and logs every
// high-level event until the adapter process exits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/fansqz/dapclient/hostdelegate"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/manifest"
	"github.com/fansqz/dapclient/persistence"
	"github.com/fansqz/dapclient/session"
	"github.com/fansqz/dapclient/transport"
	"github.com/sirupsen/logrus"
)

const version = "0.1.0"

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	showVersion := flag.Bool("version", false, "show the version number")
	manifestPath := flag.String("manifest", "", "path to the adapter manifest JSON file")
	configPath := flag.String("config", "", "path to the launch/attach configuration JSON file")
	recordDir := flag.String("record-dir", "", "directory to persist session records in (disabled if empty)")
	handshakeTimeout := flag.Duration("handshake-timeout", 10*time.Second, "how long Start waits for the adapter (0 disables the timeout)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dapclient %s\n", version)
		return
	}
	if *manifestPath == "" || *configPath == "" {
		fmt.Println("both -manifest and -config are required")
		os.Exit(1)
	}

	if err := run(*manifestPath, *configPath, *recordDir, *handshakeTimeout); err != nil {
		logrus.WithError(err).Fatal("dapclient failed")
	}
}

func run(manifestPath, configPath, recordDir string, handshakeTimeout time.Duration) error {
	desc, err := manifest.LoadFile(manifestPath)
	if err != nil {
		return err
	}

	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	configuration, err := jsonvalue.Parse(configBytes)
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	cmd := exec.Command(desc.Executable, desc.Arguments...)
	if desc.WorkingDirectory != "" {
		cmd.Dir = desc.WorkingDirectory
	}
	env := os.Environ()
	for k, v := range desc.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = env
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("wiring adapter stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("wiring adapter stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting adapter: %w", err)
	}
	defer cmd.Process.Kill()

	conn := &stdioConn{r: stdout, w: stdin}
	t := transport.New(conn, desc.Identifier)

	var recorder persistence.Recorder
	if recordDir != "" {
		fr, err := persistence.NewFileRecorder(recordDir)
		if err != nil {
			return err
		}
		recorder = fr
	}

	sess := session.New(t, desc, hostdelegate.NewPTYDelegate(), recorder, handshakeTimeout)
	sess.Subscribe(logEvent)

	if err := sess.Start(configuration); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	logrus.WithField("session_id", sess.ID()).Info("session started")

	if err := cmd.Wait(); err != nil {
		logrus.WithError(err).Warn("adapter process exited with error")
	}
	return sess.Stop()
}

func logEvent(e session.Event) {
	switch e.Kind {
	case session.EventInitialized:
		logrus.Info("event: initialized")
	case session.EventStopped:
		logrus.WithField("reason", e.Stopped.Reason).WithField("thread_id", e.Stopped.ThreadID).Info("event: stopped")
	case session.EventContinued:
		logrus.Info("event: continued")
	case session.EventTerminated:
		logrus.Info("event: terminated")
	case session.EventOutput:
		logrus.WithField("category", e.Output.Category).Info(e.Output.Output)
	}
}

// stdioConn adapts a subprocess's separate stdout/stdin pipes into the
// io.ReadWriteCloser transport.New expects.
type stdioConn struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (c *stdioConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *stdioConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *stdioConn) Close() error {
	werr := c.w.Close()
	rerr := c.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
