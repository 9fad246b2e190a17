package protocol_test

import (
	"testing"

	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreads(t *testing.T) {
	body := jsonvalue.Object(jsonvalue.Pair("threads", jsonvalue.Array(
		jsonvalue.Object(jsonvalue.Pair("id", jsonvalue.Int(1)), jsonvalue.Pair("name", jsonvalue.String("main"))),
	)))

	threads, err := protocol.ParseThreads(body)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, 1, threads[0].ID)
	assert.Equal(t, "main", threads[0].Name)
}

func TestParseThreadsMissingIDFailsFast(t *testing.T) {
	body := jsonvalue.Object(jsonvalue.Pair("threads", jsonvalue.Array(
		jsonvalue.Object(jsonvalue.Pair("name", jsonvalue.String("main"))),
	)))

	_, err := protocol.ParseThreads(body)
	assert.Error(t, err)
}

func TestParseCapabilitiesIsKeyPresenceOnly(t *testing.T) {
	body := jsonvalue.Object(jsonvalue.Pair("capabilities", jsonvalue.Object(
		jsonvalue.Pair("supportsStepBack", jsonvalue.Bool(true)),
		jsonvalue.Pair("supportsSetVariable", jsonvalue.Bool(false)),
	)))

	caps := protocol.ParseCapabilities(body)
	assert.True(t, caps["supportsStepBack"])
	// present-but-false still counts as supported: key presence alone
	// is the signal, independent of the boolean value.
	assert.True(t, caps["supportsSetVariable"])
	assert.False(t, caps["supportsStepInTargetsRequest"])
}

func TestParseMemoryReadTolerantOfWhitespace(t *testing.T) {
	body := jsonvalue.Object(
		jsonvalue.Pair("address", jsonvalue.String("0x1000")),
		jsonvalue.Pair("data", jsonvalue.String("aGVs\nbG8=")),
	)

	mem, err := protocol.ParseMemoryRead(body)
	require.NoError(t, err)
	assert.Equal(t, "0x1000", mem.Address)
	assert.Equal(t, "hello", string(mem.Data))
}

func TestParseRunInTerminalRequiresNonEmptyArgs(t *testing.T) {
	empty := jsonvalue.Object(jsonvalue.Pair("args", jsonvalue.Array()))
	_, err := protocol.ParseRunInTerminalArguments(empty, true)
	assert.Error(t, err)

	missing := jsonvalue.Null()
	_, err = protocol.ParseRunInTerminalArguments(missing, false)
	assert.Error(t, err)
}

func TestParseRunInTerminalDropsNonStringEnvValues(t *testing.T) {
	v := jsonvalue.Object(
		jsonvalue.Pair("args", jsonvalue.Array(jsonvalue.String("echo"), jsonvalue.String("hi"))),
		jsonvalue.Pair("env", jsonvalue.Object(
			jsonvalue.Pair("GOOD", jsonvalue.String("1")),
			jsonvalue.Pair("BAD", jsonvalue.Int(2)),
		)),
	)

	args, err := protocol.ParseRunInTerminalArguments(v, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hi"}, args.Args)
	assert.Equal(t, "1", args.Env["GOOD"])
	_, ok := args.Env["BAD"]
	assert.False(t, ok)
}

func TestSourceBreakpointOmitsEmptyOptionals(t *testing.T) {
	sb := protocol.SourceBreakpoint{Line: 10}
	v := sb.ToValue()
	assert.False(t, v.Has("condition"))
	assert.False(t, v.Has("hitCondition"))
	assert.False(t, v.Has("logMessage"))
}

func TestStartDebuggingRequiresConfigurationObject(t *testing.T) {
	missing := jsonvalue.Object()
	_, err := protocol.ParseStartDebuggingArguments(missing, true)
	assert.Error(t, err)

	ok := jsonvalue.Object(jsonvalue.Pair("configuration", jsonvalue.Object(jsonvalue.Pair("program", jsonvalue.String("/tmp/app")))))
	args, err := protocol.ParseStartDebuggingArguments(ok, true)
	require.NoError(t, err)
	assert.Equal(t, "launch", args.Request)
}
