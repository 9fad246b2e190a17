// Package transport implements the Content-Length-framed JSON wire
// format DAP adapters speak, reassembling partial reads the way a
// real child-process pipe delivers them.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/fansqz/dapclient/message"
	"github.com/sirupsen/logrus"
)

const headerTerminator = "\r\n\r\n"

// Result is what the receive loop hands the caller for each framed
// unit: either a decoded Message, or an error describing why framing
// or decoding failed.
type Result struct {
	Message message.Message
	Err     error
}

// Handler is invoked once per framed unit received from the stream.
type Handler func(Result)

// Transport reads/writes framed Messages over an io.ReadWriteCloser —
// typically a debug adapter subprocess's stdio.
type Transport struct {
	rw  io.ReadWriteCloser
	log *logrus.Entry

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

// New wraps rw. label is used only for log context (e.g. the adapter
// identifier).
func New(rw io.ReadWriteCloser, label string) *Transport {
	return &Transport{
		rw:  rw,
		log: logrus.WithField("component", "transport").WithField("adapter", label),
	}
}

// Send encodes and writes a Message. A write is atomic at the Message
// granularity: callers must treat any error here as transport death
// and close.
func (t *Transport) Send(m message.Message) error {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return fmt.Errorf("transport: send after close")
	}

	body, err := message.Encode(m)
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(t.rw, header); err != nil {
		return fmt.Errorf("transport: write header: %w", err)
	}
	if _, err := t.rw.Write(body); err != nil {
		return fmt.Errorf("transport: write body: %w", err)
	}
	t.log.WithField("seq", m.Seq()).Debug("sent message")
	return nil
}

// StartReceiving runs the receive loop until the underlying stream
// returns an error (including io.EOF), invoking handler once per
// framed unit. It runs synchronously; callers that want it in the
// background should launch it in its own goroutine.
func (t *Transport) StartReceiving(handler Handler) error {
	buf := &bytes.Buffer{}
	chunk := make([]byte, 4096)

	for {
		n, err := t.rw.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			t.drainBuffer(buf, handler)
		}
		if err != nil {
			return err
		}
	}
}

// drainBuffer repeatedly extracts complete frames from buf, invoking
// handler for each, leaving any trailing partial frame in buf for the
// next read.
func (t *Transport) drainBuffer(buf *bytes.Buffer, handler Handler) {
	for {
		data := buf.Bytes()
		headerEnd := bytes.Index(data, []byte(headerTerminator))
		if headerEnd < 0 {
			return
		}

		headerBlock := string(data[:headerEnd])
		contentLength, ok := parseContentLength(headerBlock)
		if !ok {
			t.log.Warn("malformed or missing Content-Length header, discarding buffer")
			handler(Result{Err: fmt.Errorf("transport: invalid message: malformed Content-Length header")})
			buf.Reset()
			return
		}

		bodyStart := headerEnd + len(headerTerminator)
		bodyEnd := bodyStart + contentLength
		if len(data) < bodyEnd {
			return // wait for more bytes
		}

		body := data[bodyStart:bodyEnd]
		t.consume(body, handler)

		// advance past the consumed frame
		remaining := append([]byte{}, data[bodyEnd:]...)
		buf.Reset()
		buf.Write(remaining)
	}
}

func (t *Transport) consume(body []byte, handler Handler) {
	val, err := jsonvalue.Parse(body)
	if err != nil {
		handler(Result{Err: fmt.Errorf("transport: invalid message: %w", err)})
		return
	}
	msg, err := message.FromValue(val)
	if err != nil {
		handler(Result{Err: fmt.Errorf("transport: invalid message: %w", err)})
		return
	}
	handler(Result{Message: msg})
}

// parseContentLength scans a header block (lines split on \r\n) for a
// case-insensitive "content-length" line and parses its value as a
// non-negative decimal integer.
func parseContentLength(headerBlock string) (int, bool) {
	for _, line := range strings.Split(headerBlock, "\r\n") {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		if !strings.EqualFold(name, "content-length") {
			continue
		}
		value := strings.TrimSpace(line[idx+1:])
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Close closes the underlying stream. Idempotent.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.rw.Close()
}
