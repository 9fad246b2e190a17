// Package broker multiplexes a single framed transport into
// per-request response futures, event subscriptions, and
// adapter-initiated (reverse) request handlers.
package broker

import (
	"fmt"
	"sync"

	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/dapsync"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/message"
	"github.com/fansqz/dapclient/transport"
	"github.com/sirupsen/logrus"
)

// RequestHandler services a reverse request and returns the body to
// place in the success Response, or an error to place in a failure
// Response.
type RequestHandler func(arguments jsonvalue.Value, hasArguments bool) (jsonvalue.Value, bool, error)

// EventHandler observes an Event's body.
type EventHandler func(body jsonvalue.Value, hasBody bool)

// Broker owns a Transport and serializes all mutation of its pending-
// request table and handler maps through mu.
type Broker struct {
	transport *transport.Transport
	log       *logrus.Entry

	mu              sync.Mutex
	nextSeq         int
	pending         map[int]chan message.Message
	requestHandlers map[string]RequestHandler
	eventHandlers   map[string][]EventHandler
	closed          bool

	// dispatch queues event and reverse-request handler invocations so
	// they run off the goroutine driving the transport's receive loop.
	// A handler that itself calls SendRequest (e.g. the handshake's
	// "initialized" handler sending configurationDone) must be able to
	// block waiting for a response; the receive loop is what delivers
	// that response, so the handler cannot run on that same goroutine
	// without deadlocking. A single consumer drains dispatch, so
	// handlers still run one at a time in arrival order.
	dispatch chan func()
	done     chan struct{}
}

// New creates a Broker over t. The receive loop must be started
// separately via Run, which blocks — callers run it in its own
// goroutine.
func New(t *transport.Transport) *Broker {
	b := &Broker{
		transport:       t,
		log:             logrus.WithField("component", "broker"),
		nextSeq:         1,
		pending:         map[int]chan message.Message{},
		requestHandlers: map[string]RequestHandler{},
		eventHandlers:   map[string][]EventHandler{},
		dispatch:        make(chan func(), 64),
		done:            make(chan struct{}),
	}
	dapsync.Go(b.runDispatch)
	return b
}

// runDispatch is the sole consumer of dispatch, run in its own
// goroutine for the Broker's lifetime.
func (b *Broker) runDispatch() {
	for {
		select {
		case fn := <-b.dispatch:
			fn()
		case <-b.done:
			return
		}
	}
}

// enqueueDispatch queues fn for runDispatch, or drops it silently if
// the broker has already closed.
func (b *Broker) enqueueDispatch(fn func()) {
	select {
	case b.dispatch <- fn:
	case <-b.done:
	}
}

// Run drives the transport's receive loop, routing every decoded
// Message to ingress, until the transport returns an error (including
// io.EOF), at which point the broker closes.
func (b *Broker) Run() error {
	err := b.transport.StartReceiving(func(r transport.Result) {
		if r.Err != nil {
			b.log.WithError(r.Err).Warn("dropping unparseable frame")
			return
		}
		b.ingress(r.Message)
	})
	b.Close()
	return err
}

// allocateSeq returns the next outbound sequence number. Must be
// called with mu held.
func (b *Broker) allocateSeq() int {
	seq := b.nextSeq
	b.nextSeq++
	return seq
}

// SendRequest allocates a seq, sends a Request, and blocks until the
// correlated Response arrives or the broker closes.
func (b *Broker) SendRequest(command string, arguments jsonvalue.Value, hasArguments bool) (message.Message, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return message.Message{}, dapclienterr.New(dapclienterr.TransportFailure, "broker is closed")
	}
	seq := b.allocateSeq()
	ch := make(chan message.Message, 1)
	b.pending[seq] = ch
	b.mu.Unlock()

	req := message.NewRequest(seq, command, arguments, hasArguments)
	if err := b.transport.Send(req); err != nil {
		b.mu.Lock()
		delete(b.pending, seq)
		b.mu.Unlock()
		return message.Message{}, dapclienterr.Wrap(dapclienterr.TransportFailure, "send failed", err)
	}

	resp, ok := <-ch
	if !ok {
		return message.Message{}, dapclienterr.New(dapclienterr.TransportFailure, "broker closed while waiting for response")
	}
	return resp, nil
}

// SendEvent allocates a seq and sends an Event with no correlation
// tracking.
func (b *Broker) SendEvent(name string, body jsonvalue.Value, hasBody bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return dapclienterr.New(dapclienterr.TransportFailure, "broker is closed")
	}
	seq := b.allocateSeq()
	b.mu.Unlock()

	return b.transport.Send(message.NewEvent(seq, name, body, hasBody))
}

// RegisterRequestHandler installs (or replaces) the handler for an
// adapter-initiated command.
func (b *Broker) RegisterRequestHandler(command string, handler RequestHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requestHandlers[command] = handler
}

// RegisterEventHandler appends handler to the ordered list of
// subscribers for event.
func (b *Broker) RegisterEventHandler(event string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eventHandlers[event] = append(b.eventHandlers[event], handler)
}

// Close closes the transport and fails every outstanding pending
// request. Idempotent.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pending := b.pending
	b.pending = map[int]chan message.Message{}
	b.mu.Unlock()

	close(b.done)
	for _, ch := range pending {
		close(ch)
	}
	_ = b.transport.Close()
}

// ingress routes one decoded Message. Responses are routed inline, on
// the same goroutine that fed them to ingress, since routeResponse
// never blocks. Events and reverse requests are handed to the
// dispatch queue instead of run inline: their handlers may themselves
// call SendRequest and block waiting for a response, and only the
// receive loop this method runs on can ever deliver that response.
func (b *Broker) ingress(m message.Message) {
	switch m.Type() {
	case message.TypeResponse:
		b.routeResponse(m)
	case message.TypeRequest:
		b.enqueueDispatch(func() { b.routeReverseRequest(m) })
	case message.TypeEvent:
		b.enqueueDispatch(func() { b.routeEvent(m) })
	}
}

func (b *Broker) routeResponse(m message.Message) {
	b.mu.Lock()
	ch, ok := b.pending[m.RequestSeq()]
	if ok {
		delete(b.pending, m.RequestSeq())
	}
	b.mu.Unlock()

	if !ok {
		b.log.WithField("request_seq", m.RequestSeq()).Debug("dropping stale response")
		return
	}
	ch <- m
	close(ch)
}

func (b *Broker) routeReverseRequest(m message.Message) {
	b.mu.Lock()
	handler, ok := b.requestHandlers[m.Command()]
	b.mu.Unlock()

	if !ok {
		b.replyUnsupported(m)
		return
	}

	args, hasArgs := m.Arguments()
	body, hasBody, err := handler(args, hasArgs)

	b.mu.Lock()
	seq := b.allocateSeq()
	b.mu.Unlock()

	var resp message.Message
	if err != nil {
		resp = message.NewResponse(seq, m.Seq(), false, m.Command()).WithMessage(describeError(err))
	} else {
		resp = message.NewResponse(seq, m.Seq(), true, m.Command())
		if hasBody {
			resp = resp.WithBody(body)
		}
	}
	if sendErr := b.transport.Send(resp); sendErr != nil {
		b.log.WithError(sendErr).Error("failed to send reverse-request response")
	}
}

func (b *Broker) replyUnsupported(m message.Message) {
	b.mu.Lock()
	seq := b.allocateSeq()
	b.mu.Unlock()

	resp := message.NewResponse(seq, m.Seq(), false, m.Command()).
		WithMessage(fmt.Sprintf("Unsupported request: %s", m.Command()))
	if err := b.transport.Send(resp); err != nil {
		b.log.WithError(err).Error("failed to send unsupported-request response")
	}
}

func (b *Broker) routeEvent(m message.Message) {
	b.mu.Lock()
	handlers := append([]EventHandler{}, b.eventHandlers[m.Event()]...)
	b.mu.Unlock()

	body, hasBody := m.Body()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.WithField("event", m.Event()).Errorf("event handler panicked: %v", r)
				}
			}()
			h(body, hasBody)
		}()
	}
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
