package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// Transport is a bidirectional byte stream to the dispenser.
//
// Read must return promptly with whatever bytes are buffered, returning
// (0, nil) when nothing arrived within the transport's configured read
// timeout. The Driver relies on this to keep the poll path non-blocking.
type Transport interface {
	io.ReadWriteCloser
}

// NoopTransport is the --debug substitute for a real serial port. It accepts
// and discards writes and never has inbound bytes.
type NoopTransport struct{}

var _ Transport = (*NoopTransport)(nil)

// NewNoopTransport creates a NoopTransport.
func NewNoopTransport() *NoopTransport { return &NoopTransport{} }

// Read always reports that no bytes are available.
func (t *NoopTransport) Read(_ []byte) (int, error) { return 0, nil }

// Write discards p.
func (t *NoopTransport) Write(p []byte) (int, error) { return len(p), nil }

// Close is a no-op.
func (t *NoopTransport) Close() error { return nil }

// LoopTransport is an in-memory Transport for tests. Inbound device bytes
// are scripted with Feed, and everything the driver writes is captured for
// inspection with Outbound.
type LoopTransport struct {
	mu       sync.Mutex
	inbound  bytes.Buffer
	outbound bytes.Buffer
	readErr  error
	writeErr error
	closed   bool
}

var _ Transport = (*LoopTransport)(nil)

// NewLoopTransport creates an empty LoopTransport.
func NewLoopTransport() *LoopTransport { return &LoopTransport{} }

// Feed appends scripted device bytes to the inbound stream.
func (t *LoopTransport) Feed(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inbound.Write(p)
}

// FeedString appends scripted device bytes to the inbound stream.
func (t *LoopTransport) FeedString(s string) { t.Feed([]byte(s)) }

// Outbound returns everything written to the transport so far.
func (t *LoopTransport) Outbound() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, t.outbound.Len())
	copy(out, t.outbound.Bytes())

	return out
}

// OutboundString returns everything written to the transport so far.
func (t *LoopTransport) OutboundString() string { return string(t.Outbound()) }

// FailReads makes subsequent Read calls return err.
func (t *LoopTransport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.readErr = err
}

// FailWrites makes subsequent Write calls return err.
func (t *LoopTransport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writeErr = err
}

// Closed reports whether Close has been called.
func (t *LoopTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// Read drains buffered inbound bytes into p, returning (0, nil) when the
// inbound stream is empty.
func (t *LoopTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readErr != nil {
		return 0, t.readErr
	}

	if t.inbound.Len() == 0 {
		return 0, nil
	}

	n, err := t.inbound.Read(p)
	if errors.Is(err, io.EOF) {
		err = nil
	}

	return n, err
}

// Write captures p on the outbound stream.
func (t *LoopTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return 0, t.writeErr
	}

	return t.outbound.Write(p)
}

// Close marks the transport closed.
func (t *LoopTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true

	return nil
}
