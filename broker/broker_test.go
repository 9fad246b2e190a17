package broker_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fansqz/dapclient/broker"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/message"
	"github.com/fansqz/dapclient/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBrokerPair wires a client Broker to an in-memory adapter-side
// Transport connected via net.Pipe, so tests can act as the adapter
// without a real subprocess.
func newBrokerPair(t *testing.T) (*broker.Broker, *transport.Transport) {
	t.Helper()
	clientConn, adapterConn := net.Pipe()

	clientTransport := transport.New(clientConn, "client")
	adapterTransport := transport.New(adapterConn, "adapter")

	b := broker.New(clientTransport)
	go func() { _ = b.Run() }()

	t.Cleanup(func() {
		b.Close()
		_ = adapterTransport.Close()
	})

	return b, adapterTransport
}

func TestSequenceMonotonicity(t *testing.T) {
	b, adapter := newBrokerPair(t)

	var seqs []int
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		_ = adapter.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			mu.Lock()
			seqs = append(seqs, r.Message.Seq())
			mu.Unlock()
			resp := message.NewResponse(1, r.Message.Seq(), true, r.Message.Command())
			_ = adapter.Send(resp)
			if len(seqs) == 3 {
				close(done)
			}
		})
	}()

	for i := 0; i < 3; i++ {
		_, err := b.SendRequest("noop", jsonvalue.Null(), false)
		require.NoError(t, err)
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestResponseCorrelation(t *testing.T) {
	b, adapter := newBrokerPair(t)

	go func() {
		_ = adapter.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			resp := message.NewResponse(99, r.Message.Seq(), true, r.Message.Command()).
				WithBody(jsonvalue.Object(jsonvalue.Pair("ok", jsonvalue.Bool(true))))
			_ = adapter.Send(resp)
		})
	}()

	resp, err := b.SendRequest("initialize", jsonvalue.Null(), false)
	require.NoError(t, err)
	assert.True(t, resp.Success())
}

func TestStaleResponseDropped(t *testing.T) {
	b, adapter := newBrokerPair(t)

	responded := make(chan struct{})
	go func() {
		_ = adapter.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			// Reply to a request_seq that was never sent — must be
			// dropped silently, not routed to any pending request.
			stale := message.NewResponse(1, 99999, true, "bogus")
			_ = adapter.Send(stale)

			real := message.NewResponse(2, r.Message.Seq(), true, r.Message.Command())
			_ = adapter.Send(real)
			close(responded)
		})
	}()

	resp, err := b.SendRequest("launch", jsonvalue.Null(), false)
	require.NoError(t, err)
	assert.True(t, resp.Success())
	<-responded
}

func TestReverseRequestUnregisteredCommandFails(t *testing.T) {
	b, adapter := newBrokerPair(t)

	got := make(chan message.Message, 1)
	go func() {
		_ = adapter.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			got <- r.Message
		})
	}()

	err := adapter.Send(message.NewRequest(1, "runInTerminal", jsonvalue.Null(), false))
	require.NoError(t, err)

	select {
	case resp := <-got:
		assert.Equal(t, message.TypeResponse, resp.Type())
		assert.False(t, resp.Success())
		assert.Equal(t, 1, resp.RequestSeq())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unsupported-request response")
	}
	_ = b
}

func TestEventHandlersCalledInRegistrationOrder(t *testing.T) {
	b, adapter := newBrokerPair(t)

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})

	b.RegisterEventHandler("stopped", func(body jsonvalue.Value, hasBody bool) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	b.RegisterEventHandler("stopped", func(body jsonvalue.Value, hasBody bool) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		close(done)
	})

	err := adapter.Send(message.NewEvent(1, "stopped", jsonvalue.Null(), false))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event handlers")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

// TestEventHandlerCanSendRequestWithoutDeadlock pins the handshake's
// exact shape: an event handler that itself blocks on SendRequest must
// not deadlock the receive loop that is the only thing able to
// deliver the response it's waiting for.
func TestEventHandlerCanSendRequestWithoutDeadlock(t *testing.T) {
	b, adapter := newBrokerPair(t)

	go func() {
		_ = adapter.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			if r.Message.Type() != message.TypeRequest {
				return
			}
			resp := message.NewResponse(1, r.Message.Seq(), true, r.Message.Command())
			_ = adapter.Send(resp)
		})
	}()

	nested := make(chan error, 1)
	b.RegisterEventHandler("initialized", func(body jsonvalue.Value, hasBody bool) {
		_, err := b.SendRequest("configurationDone", jsonvalue.Null(), false)
		nested <- err
	})

	err := adapter.Send(message.NewEvent(1, "initialized", jsonvalue.Null(), false))
	require.NoError(t, err)

	select {
	case err := <-nested:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("event handler's nested SendRequest deadlocked")
	}
}

func TestCloseFailsPendingRequests(t *testing.T) {
	b, _ := newBrokerPair(t)

	resultCh := make(chan error, 1)
	go func() {
		_, err := b.SendRequest("launch", jsonvalue.Null(), false)
		resultCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	b.Close()

	select {
	case err := <-resultCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for closed broker to fail pending request")
	}
}
