package transport_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/message"
	"github.com/fansqz/dapclient/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeRWC lets a test feed bytes into the read side independent of
// what gets written to the write side.
type pipeRWC struct {
	r      io.Reader
	w      bytes.Buffer
	closed bool
}

func (p *pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeRWC) Close() error                { p.closed = true; return nil }

func encodeFrame(t *testing.T, m message.Message) []byte {
	t.Helper()
	body, err := message.Encode(m)
	require.NoError(t, err)
	return []byte(fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body))
}

func TestMultiMessageDelivery(t *testing.T) {
	m1 := message.NewEvent(1, "initialized", jsonvalue.Null(), false)
	m2 := message.NewEvent(2, "output", jsonvalue.Object(jsonvalue.Pair("output", jsonvalue.String("hi"))), true)

	var all []byte
	all = append(all, encodeFrame(t, m1)...)
	all = append(all, encodeFrame(t, m2)...)

	rwc := &pipeRWC{r: bytes.NewReader(all)}
	tr := transport.New(rwc, "test")

	var got []message.Message
	err := tr.StartReceiving(func(r transport.Result) {
		require.NoError(t, r.Err)
		got = append(got, r.Message)
	})
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, got, 2)
	assert.Equal(t, "initialized", got[0].Event())
	assert.Equal(t, "output", got[1].Event())
}

// chunkedReader delivers data split at an arbitrary point across two
// reads, simulating a partial pipe read.
type chunkedReader struct {
	chunks [][]byte
	idx    int
}

func (c *chunkedReader) Read(b []byte) (int, error) {
	if c.idx >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(b, c.chunks[c.idx])
	c.idx++
	return n, nil
}

func TestPartialDeliveryMatchesSingleDelivery(t *testing.T) {
	m := message.NewRequest(1, "initialize", jsonvalue.Object(jsonvalue.Pair("adapterID", jsonvalue.String("x"))), true)
	frame := encodeFrame(t, m)

	for splitAt := 0; splitAt <= len(frame); splitAt++ {
		rwc := &pipeRWC{r: &chunkedReader{chunks: [][]byte{frame[:splitAt], frame[splitAt:]}}}
		tr := transport.New(rwc, "test")

		var got []message.Message
		_ = tr.StartReceiving(func(r transport.Result) {
			require.NoError(t, r.Err)
			got = append(got, r.Message)
		})

		require.Lenf(t, got, 1, "split at %d", splitAt)
		assert.Equal(t, "initialize", got[0].Command())
	}
}

func TestMalformedContentLengthDiscardsBuffer(t *testing.T) {
	bad := "Content-Length: notanumber\r\n\r\n{}"
	good := encodeFrame(t, message.NewEvent(1, "output", jsonvalue.Null(), false))

	rwc := &pipeRWC{r: bytes.NewReader(append([]byte(bad), good...))}
	tr := transport.New(rwc, "test")

	var results []transport.Result
	_ = tr.StartReceiving(func(r transport.Result) { results = append(results, r) })

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestInvalidJSONBodyKeepsFraming(t *testing.T) {
	badBody := "not json"
	bad := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(badBody), badBody)
	good := encodeFrame(t, message.NewEvent(1, "output", jsonvalue.Null(), false))

	rwc := &pipeRWC{r: bytes.NewReader(append([]byte(bad), good...))}
	tr := transport.New(rwc, "test")

	var results []transport.Result
	_ = tr.StartReceiving(func(r transport.Result) { results = append(results, r) })

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "output", results[1].Message.Event())
}

func TestSendWritesFramedMessage(t *testing.T) {
	rwc := &pipeRWC{r: bytes.NewReader(nil)}
	tr := transport.New(rwc, "test")

	err := tr.Send(message.NewEvent(5, "terminated", jsonvalue.Null(), false))
	require.NoError(t, err)

	assert.Contains(t, rwc.w.String(), "Content-Length:")
	assert.Contains(t, rwc.w.String(), "\"event\":\"terminated\"")
}

func TestSendAfterCloseFails(t *testing.T) {
	rwc := &pipeRWC{r: bytes.NewReader(nil)}
	tr := transport.New(rwc, "test")
	require.NoError(t, tr.Close())

	err := tr.Send(message.NewEvent(1, "output", jsonvalue.Null(), false))
	assert.Error(t, err)
	assert.True(t, rwc.closed)
}
