package session_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fansqz/dapclient/internal/testadapter"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/manifest"
	"github.com/fansqz/dapclient/protocol"
	"github.com/fansqz/dapclient/session"
	"github.com/fansqz/dapclient/transport"
	"github.com/stretchr/testify/require"
)

// TestStepInMergesTargetAndOptions verifies that StepIn's targetId and
// StepOptions (singleThread, granularity) reach the wire, rather than
// only threadId.
func TestStepInMergesTargetAndOptions(t *testing.T) {
	clientConn, adapterConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		adapterConn.Close()
	})
	ad := testadapter.New(adapterConn)

	var gotCommand string
	var gotArgs map[string]interface{}
	ad.OnStep = func(command string, args json.RawMessage) {
		gotCommand = command
		_ = json.Unmarshal(args, &gotArgs)
	}
	go ad.Serve()

	desc := manifest.Descriptor{Identifier: "fake-adapter", Executable: "fake"}
	tr := transport.New(clientConn, desc.Identifier)
	s := session.New(tr, desc, nil, nil, 2*time.Second)
	require.NoError(t, s.Start(jsonvalue.Object(jsonvalue.Pair("program", jsonvalue.String("/bin/true")))))

	err := s.StepIn(1, 7, true, protocol.StepOptions{
		HasSingleThread: true,
		SingleThread:    true,
		Granularity:     "instruction",
	})
	require.NoError(t, err)

	require.Equal(t, "stepIn", gotCommand)
	require.EqualValues(t, 7, gotArgs["targetId"])
	require.Equal(t, true, gotArgs["singleThread"])
	require.Equal(t, "instruction", gotArgs["granularity"])
}

// TestStepOverOmitsOptionalFieldsByDefault verifies that a bare
// StepOptions{} leaves singleThread and granularity out of the
// arguments the fake adapter reports. The fake re-encodes go-dap's
// decoded struct with omitempty, so a zero value sent on the wire
// would be reported as absent too.
func TestStepOverOmitsOptionalFieldsByDefault(t *testing.T) {
	clientConn, adapterConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		adapterConn.Close()
	})
	ad := testadapter.New(adapterConn)

	var gotArgs map[string]interface{}
	ad.OnStep = func(command string, args json.RawMessage) {
		_ = json.Unmarshal(args, &gotArgs)
	}
	go ad.Serve()

	desc := manifest.Descriptor{Identifier: "fake-adapter", Executable: "fake"}
	tr := transport.New(clientConn, desc.Identifier)
	s := session.New(tr, desc, nil, nil, 2*time.Second)
	require.NoError(t, s.Start(jsonvalue.Object(jsonvalue.Pair("program", jsonvalue.String("/bin/true")))))

	require.NoError(t, s.StepOver(1, protocol.StepOptions{}))

	require.NotContains(t, gotArgs, "singleThread")
	require.NotContains(t, gotArgs, "granularity")
}
