// Package eventlog implements the append-only event log of the dispenser:
// one line per event, each prefixed with a microsecond-precision timestamp.
//
// Three event kinds are recorded: outbound commands (TX), inbound device
// messages (RX), and committed session records (SESSION). The session line
// is the only place identity data is persisted.
package eventlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// timestampLayout is the line prefix format, microsecond precision.
const timestampLayout = "2006-01-02 15:04:05.000000"

// Log is an append-only, line-oriented event log.
//
// Writes are serialized and timestamps are strictly increasing: a line
// never carries the same or an earlier timestamp than the line before it.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	last   time.Time
	now    func() time.Time
}

// New creates a Log appending to w.
func New(w io.Writer) *Log {
	return &Log{w: w, now: time.Now}
}

// Nop creates a Log that discards every event, for tests and debug mode.
func Nop() *Log {
	return New(io.Discard)
}

// Open creates a Log appending to the file at path, creating it when
// missing.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	l := New(f)
	l.closer = f

	return l, nil
}

// Close closes the underlying file, if the Log owns one.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}

	return l.closer.Close()
}

// TX records an outbound command. The payload carries the command text
// without the framing terminator.
func (l *Log) TX(payload string) error {
	return l.append("TX", payload)
}

// RX records a complete inbound device message, terminator stripped.
func (l *Log) RX(payload string) error {
	return l.append("RX", payload)
}

// Session records a committed session identity.
func (l *Log) Session(operator, sampleID, accessionID string) error {
	return l.append("SESSION", fmt.Sprintf("operator=%s sample=%s accession=%s", operator, sampleID, accessionID))
}

func (l *Log) append(kind, payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	if !ts.After(l.last) {
		ts = l.last.Add(time.Microsecond)
	}
	l.last = ts

	line := fmt.Sprintf("%s %s %s\n", ts.Format(timestampLayout), kind, payload)
	if _, err := io.WriteString(l.w, line); err != nil {
		return fmt.Errorf("eventlog: append %s event: %w", kind, err)
	}

	return nil
}
