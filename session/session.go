// Package session drives one DAP handshake, its runtime operation
// set, and breakpoint reconciliation against a single adapter
// connection, on top of a broker.Broker.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/fansqz/dapclient/broker"
	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/dapsync"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/manifest"
	"github.com/fansqz/dapclient/message"
	"github.com/fansqz/dapclient/persistence"
	"github.com/fansqz/dapclient/protocol"
	"github.com/fansqz/dapclient/transport"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session owns a broker, the session state machine, the adapter's
// advertised capabilities, and the desired/observed breakpoint state
// the reconciler acts on. All exported methods are safe for
// concurrent use.
type Session struct {
	id       uuid.UUID
	manifest manifest.Descriptor
	broker   *broker.Broker
	state    *stateMachine
	events   *eventBus
	log      *logrus.Entry

	hostDelegate     HostDelegate
	recorder         persistence.Recorder
	handshakeTimeout time.Duration

	mu           sync.Mutex
	capabilities map[string]bool

	desiredSourceBreakpoints map[string][]protocol.ConditionalBreakpoint
	lastSynchronizedFiles    *hashset.Set
	pendingSourceSync        bool
	desiredExceptionFilters  []string
	desiredFilterOptions     []protocol.FilterOptions
	desiredExceptionOptions  []protocol.ExceptionOptions
}

// New constructs a Session over t, not yet started. desc identifies
// the adapter for the initialize handshake. hostDelegate and recorder
// may both be nil; a nil hostDelegate fails every reverse request as
// UnsupportedFeature, a nil recorder skips persistence entirely.
// handshakeTimeout <= 0 means Start waits for the adapter indefinitely.
func New(t *transport.Transport, desc manifest.Descriptor, hostDelegate HostDelegate, recorder persistence.Recorder, handshakeTimeout time.Duration) *Session {
	id := uuid.New()
	s := &Session{
		id:                       id,
		manifest:                 desc,
		broker:                   broker.New(t),
		state:                    newStateMachine(),
		events:                   &eventBus{},
		log:                      logrus.WithField("component", "session").WithField("session_id", id.String()),
		hostDelegate:             hostDelegate,
		recorder:                 recorder,
		handshakeTimeout:         handshakeTimeout,
		capabilities:             map[string]bool{},
		desiredSourceBreakpoints: map[string][]protocol.ConditionalBreakpoint{},
		lastSynchronizedFiles:    hashset.New(),
	}
	s.registerReverseHandlers()
	s.registerRuntimeEventHandlers()
	return s
}

// ID returns the session's generated identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state.Get() }

// Capabilities returns a copy of the capability set the adapter
// advertised during initialize. Empty before Start completes.
func (s *Session) Capabilities() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.capabilities))
	for k, v := range s.capabilities {
		out[k] = v
	}
	return out
}

// Subscribe registers h to observe every future high-level Event, in
// registration order relative to other subscribers.
func (s *Session) Subscribe(h EventHandler) {
	s.events.Subscribe(h)
}

func (s *Session) hasCapability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities[name]
}

func (s *Session) requireCapability(name string) error {
	if !s.hasCapability(name) {
		return dapclienterr.New(dapclienterr.UnsupportedFeature, name)
	}
	return nil
}

func (s *Session) requireRunning() error {
	if !s.state.Is(Running) {
		return dapclienterr.New(dapclienterr.SessionNotActive, "session is not running")
	}
	return nil
}

// Start performs the full DAP handshake: send initialize, wait for
// the initialized event, send configurationDone, then send the
// launch or attach request. configuration's "request" key selects
// which (default "launch") and is stripped before the key is sent as
// launch/attach arguments. Once Running, it sends a default
// setExceptionBreakpoints with an empty filter set — callers that want
// exception breakpoints call SetExceptionBreakpoints afterward to
// replace it — and flushes any breakpoint state queued before Start
// was called, in the background.
func (s *Session) Start(configuration jsonvalue.Value) error {
	if err := s.state.Transition(Starting); err != nil {
		return dapclienterr.Wrap(dapclienterr.SessionNotActive, "start", err)
	}

	requestCommand := "launch"
	if reqVal, ok := configuration.Get("request"); ok {
		if r, ok := reqVal.String(); ok && r != "" {
			requestCommand = r
		}
	}
	launchArgs := configuration.Without("request")

	handshakeDone := make(chan error, 1)
	var signal sync.Once
	complete := func(err error) {
		signal.Do(func() { handshakeDone <- err })
	}

	s.broker.RegisterEventHandler("initialized", func(_ jsonvalue.Value, _ bool) {
		if _, err := s.broker.SendRequest("configurationDone", jsonvalue.Null(), false); err != nil {
			complete(dapclienterr.Wrap(dapclienterr.AdapterUnavailable, "configurationDone", err))
			return
		}
		resp, err := s.broker.SendRequest(requestCommand, launchArgs, true)
		if err != nil {
			complete(dapclienterr.Wrap(dapclienterr.AdapterUnavailable, requestCommand, err))
			return
		}
		if !resp.Success() {
			complete(adapterRejected(resp))
			return
		}
		complete(nil)
	})

	dapsync.Go(func() {
		if err := s.broker.Run(); err != nil {
			s.log.WithError(err).Info("broker run loop exited")
		}
	})

	initArgs := jsonvalue.Object(
		jsonvalue.Pair("adapterID", jsonvalue.String(s.manifest.Identifier)),
		jsonvalue.Pair("pathFormat", jsonvalue.String("path")),
		jsonvalue.Pair("supportsVariableType", jsonvalue.Bool(true)),
		jsonvalue.Pair("supportsVariablePaging", jsonvalue.Bool(true)),
	)
	initResp, err := s.broker.SendRequest("initialize", initArgs, true)
	if err != nil {
		s.failStart()
		return dapclienterr.Wrap(dapclienterr.AdapterUnavailable, "initialize", err)
	}
	if !initResp.Success() {
		s.failStart()
		return adapterRejected(initResp)
	}
	if body, ok := initResp.Body(); ok {
		s.mu.Lock()
		s.capabilities = protocol.ParseCapabilities(body)
		s.mu.Unlock()
	}

	handshakeErr, ok := dapsync.Race(func() error {
		return <-handshakeDone
	}, s.handshakeTimeout)
	if !ok {
		s.failStart()
		return dapclienterr.New(dapclienterr.TransportFailure, "timeout")
	}
	if handshakeErr != nil {
		s.failStart()
		return handshakeErr
	}

	if err := s.state.Transition(Running); err != nil {
		return dapclienterr.Wrap(dapclienterr.SessionNotActive, "start", err)
	}

	if err := s.SetExceptionBreakpoints(nil, nil, nil); err != nil {
		s.log.WithError(err).Warn("failed to set default (empty) exception breakpoints")
	}

	s.events.Publish(Event{Kind: EventInitialized})

	if s.recorder != nil {
		if err := s.recorder.Save(persistence.Record{
			SessionID:         s.id,
			AdapterIdentifier: s.manifest.Identifier,
			Configuration:     configuration,
			Timestamp:         time.Now(),
		}); err != nil {
			s.log.WithError(err).Warn("failed to persist session record")
		}
	}

	s.mu.Lock()
	s.pendingSourceSync = len(s.desiredSourceBreakpoints) > 0
	s.mu.Unlock()
	dapsync.Go(func() {
		if err := s.flushSourceBreakpoints(); err != nil {
			s.log.WithError(err).Warn("initial breakpoint flush failed")
		}
	})

	return nil
}

// failStart transitions a Starting session straight to Terminated. It
// swallows the transition error: Starting->Terminated is always legal
// per allowedTransitions, so failure here would mean a logic bug, not
// a caller error worth surfacing.
func (s *Session) failStart() {
	_ = s.state.Transition(Terminated)
}

// Stop disconnects from the adapter and tears the session down.
// Disconnect failures are logged, not returned: teardown always
// proceeds through to Terminated once Stop has begun.
func (s *Session) Stop() error {
	if err := s.state.Transition(Stopping); err != nil {
		return dapclienterr.Wrap(dapclienterr.SessionNotActive, "stop", err)
	}

	args := jsonvalue.Object(jsonvalue.Pair("restart", jsonvalue.Bool(false)))
	if _, err := s.broker.SendRequest("disconnect", args, true); err != nil {
		s.log.WithError(err).Warn("disconnect request failed")
	}
	s.broker.Close()

	if err := s.state.Transition(Terminated); err != nil {
		return dapclienterr.Wrap(dapclienterr.SessionNotActive, "stop", err)
	}
	s.events.Publish(Event{Kind: EventTerminated})

	if s.recorder != nil {
		if err := s.recorder.Remove(s.id); err != nil {
			s.log.WithError(err).Warn("failed to remove session record")
		}
	}
	return nil
}

func adapterRejected(resp message.Message) error {
	reason := resp.ResponseCommand()
	if msg, ok := resp.ErrorMessage(); ok && msg != "" {
		reason = fmt.Sprintf("%s: %s", reason, msg)
	}
	return dapclienterr.New(dapclienterr.AdapterUnavailable, reason)
}
