package session_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fansqz/dapclient/internal/testadapter"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/manifest"
	"github.com/fansqz/dapclient/protocol"
	"github.com/fansqz/dapclient/session"
	"github.com/fansqz/dapclient/transport"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"
)

// callRecorder tracks, per file, the most recent set of breakpoint
// lines the fake adapter was asked to set, and how many times it was
// asked at all — used to distinguish "never called" from "called with
// an empty set".
type callRecorder struct {
	mu    sync.Mutex
	lines map[string][]int
	count map[string]int
}

func newCallRecorder() *callRecorder {
	return &callRecorder{lines: map[string][]int{}, count: map[string]int{}}
}

func (r *callRecorder) record(file string, lines []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[file] = lines
	r.count[file]++
}

func (r *callRecorder) snapshot(file string) ([]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int{}, r.lines[file]...), r.count[file]
}

func linesOf(breakpoints []dap.SourceBreakpoint) []int {
	out := make([]int, len(breakpoints))
	for i, b := range breakpoints {
		out[i] = b.Line
	}
	return out
}

func newReconcilerTestSession(t *testing.T, rec *callRecorder) *session.Session {
	t.Helper()
	clientConn, adapterConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		adapterConn.Close()
	})
	ad := testadapter.New(adapterConn)
	ad.OnSetBreakpoints = func(args dap.SetBreakpointsArguments) []dap.Breakpoint {
		lines := linesOf(args.Breakpoints)
		rec.record(args.Source.Path, lines)
		out := make([]dap.Breakpoint, len(args.Breakpoints))
		for i, b := range args.Breakpoints {
			out[i] = dap.Breakpoint{Verified: true, Line: b.Line}
		}
		return out
	}
	go ad.Serve()

	desc := manifest.Descriptor{Identifier: "fake-adapter", Executable: "fake"}
	tr := transport.New(clientConn, desc.Identifier)
	return session.New(tr, desc, nil, nil, 2*time.Second)
}

// TestReconcilerIdempotentResend verifies that passing an unchanged
// breakpoint list to SetSourceBreakpoints again marks the file pending,
// resends the same request, and leaves the observed lines unchanged.
func TestReconcilerIdempotentResend(t *testing.T) {
	rec := newCallRecorder()
	s := newReconcilerTestSession(t, rec)

	s.SetSourceBreakpoints("/src/a.go", []protocol.ConditionalBreakpoint{{FilePath: "/src/a.go", Line: 10}})
	require.NoError(t, s.Start(jsonvalue.Object(jsonvalue.Pair("program", jsonvalue.String("/bin/true")))))

	require.Eventually(t, func() bool {
		_, count := rec.snapshot("/src/a.go")
		return count >= 1
	}, time.Second, 10*time.Millisecond)

	_, firstCount := rec.snapshot("/src/a.go")
	s.SetSourceBreakpoints("/src/a.go", []protocol.ConditionalBreakpoint{{FilePath: "/src/a.go", Line: 10}})

	require.Eventually(t, func() bool {
		lines, count := rec.snapshot("/src/a.go")
		return count > firstCount && len(lines) == 1 && lines[0] == 10
	}, time.Second, 10*time.Millisecond)
}

// TestReconcilerClosureClearsRemovedFileBreakpoints verifies that
// removing every breakpoint from a file still reaches the adapter as
// an explicit empty setBreakpoints call, rather than the file
// silently dropping out of sync.
func TestReconcilerClosureClearsRemovedFileBreakpoints(t *testing.T) {
	rec := newCallRecorder()
	s := newReconcilerTestSession(t, rec)

	s.SetSourceBreakpoints("/src/a.go", []protocol.ConditionalBreakpoint{{FilePath: "/src/a.go", Line: 10}})
	s.SetSourceBreakpoints("/src/b.go", []protocol.ConditionalBreakpoint{{FilePath: "/src/b.go", Line: 20}})
	require.NoError(t, s.Start(jsonvalue.Object(jsonvalue.Pair("program", jsonvalue.String("/bin/true")))))

	require.Eventually(t, func() bool {
		_, countA := rec.snapshot("/src/a.go")
		_, countB := rec.snapshot("/src/b.go")
		return countA >= 1 && countB >= 1
	}, time.Second, 10*time.Millisecond)

	s.SetSourceBreakpoints("/src/a.go", nil)

	require.Eventually(t, func() bool {
		lines, count := rec.snapshot("/src/a.go")
		return count >= 2 && len(lines) == 0
	}, time.Second, 10*time.Millisecond)
}
