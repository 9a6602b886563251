// Package link implements the serial protocol layer of the dispenser: a
// Transport abstraction over the serial port, and the Driver that frames
// outgoing commands with the terminator character, reassembles inbound
// bytes into terminator-delimited messages, and echoes both directions to
// a bounded trace ring and the event log.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/biometra/go-psd/command"
	"github.com/biometra/go-psd/logger"
)

// readChunkSize is the scratch buffer size for a single poll read.
const readChunkSize = 256

// Sentinel errors for the dispenser link.
var (
	ErrLinkDown     = errors.New("link: link is down")
	ErrTransportNil = errors.New("link: transport is nil")
)

// EventSink receives one event per protocol exchange: TX for every command
// written to the transport and RX for every complete inbound message.
// Payloads carry the text without the framing terminator.
//
// The event log satisfies this interface.
type EventSink interface {
	TX(payload string) error
	RX(payload string) error
}

// Driver frames outgoing commands onto the Transport and incrementally
// assembles inbound bytes into complete, terminator-delimited messages.
//
// Sending is fire-and-forget: Send writes the framed command and returns
// without waiting for a device reply. Replies and unsolicited device output
// arrive through PollIncoming, which the scheduler tick drives.
//
// Send, PollIncoming, Tick and Close must be serialized by the caller; the
// response buffer is not safe for concurrent use. The trace ring, state
// manager and metrics may be read from any goroutine.
type Driver struct {
	cfg       *Config
	transport Transport
	logger    logger.Logger

	stateMgr *LinkStateMgr
	trace    *traceRing
	metrics  LinkMetrics

	// rbuf accumulates inbound bytes across polls until a terminator
	// completes a message. A completed message never leaves bytes behind.
	rbuf    []byte
	scratch []byte
}

// NewDriver creates a Driver over the given transport.
//
// The driver starts with the link down; call Open before sending.
func NewDriver(t Transport, cfg *Config) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("link: config is nil")
	}

	d := &Driver{
		cfg:       cfg,
		transport: t,
		logger:    cfg.logger,
		trace:     newTraceRing(cfg.traceCapacity),
		scratch:   make([]byte, readChunkSize),
	}
	d.stateMgr = NewLinkStateMgr(cfg.logger)

	return d, nil
}

// Open brings the link up. It returns ErrTransportNil when the driver was
// created without a transport.
func (d *Driver) Open() error {
	if d.transport == nil {
		return ErrTransportNil
	}

	d.stateMgr.ToUp()
	d.logger.Debug("link: opened")

	return nil
}

// Close closes the transport and brings the link down.
func (d *Driver) Close() error {
	d.stateMgr.ToDown()

	if d.transport == nil {
		return nil
	}

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("link: close transport: %w", err)
	}

	return nil
}

// State returns the current link state.
func (d *Driver) State() LinkState { return d.stateMgr.State() }

// OnLinkStateChange registers handlers invoked on every link state transition.
func (d *Driver) OnLinkStateChange(handlers ...LinkStateChangeHandler) {
	d.stateMgr.AddHandler(handlers...)
}

// OnTrace registers handlers invoked for every appended trace record.
func (d *Driver) OnTrace(handlers ...TraceHandler) {
	d.trace.addHandler(handlers...)
}

// Trace returns a copy of the buffered trace records, oldest first.
func (d *Driver) Trace() []TraceRecord { return d.trace.snapshot() }

// ClearTrace discards the buffered trace records.
func (d *Driver) ClearTrace() { d.trace.clear() }

// Metrics returns the metrics associated with the link.
func (d *Driver) Metrics() *LinkMetrics { return &d.metrics }

// Send frames cmd with the terminator and writes it to the transport.
//
// It is fire-and-forget: no reply is awaited. One outbound trace record and
// one TX event are emitted per successful send. A write failure transitions
// the link to LinkDown and is returned wrapped; the caller stays alive.
func (d *Driver) Send(cmd command.Command) error {
	if d.cfg.validateCommands {
		if err := cmd.Validate(); err != nil {
			return err
		}
	}

	if d.stateMgr.IsDown() {
		return ErrLinkDown
	}

	frame := make([]byte, 0, len(cmd)+1)
	frame = append(frame, cmd...)
	frame = append(frame, d.cfg.terminator)

	n, err := d.transport.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}

	if err != nil {
		d.metrics.incSendErrCount()
		d.stateMgr.ToDown()
		d.logger.Error("link: command write failed", "command", cmd.String(), "error", err)

		return fmt.Errorf("link: write command %q: %w", cmd.String(), err)
	}

	d.metrics.incCommandSendCount()
	d.emit(DirOutbound, cmd.String())

	return nil
}

// PollIncoming checks the transport for buffered inbound bytes without
// blocking beyond the transport's read timeout, appends them to the
// response buffer, and returns every complete terminator-delimited message
// with the terminator stripped. A partial tail is retained for the next
// poll.
//
// One inbound trace record and one RX event are emitted per message. A read
// failure transitions the link to LinkDown and is returned wrapped.
func (d *Driver) PollIncoming() ([]string, error) {
	if d.stateMgr.IsDown() {
		return nil, ErrLinkDown
	}

	n, err := d.transport.Read(d.scratch)
	if err != nil {
		d.metrics.incReadErrCount()
		d.stateMgr.ToDown()
		d.logger.Error("link: poll read failed", "error", err)

		return nil, fmt.Errorf("link: poll read: %w", err)
	}

	if n == 0 {
		return nil, nil
	}

	d.metrics.addBytesRecvCount(uint64(n))
	d.rbuf = append(d.rbuf, d.scratch[:n]...)

	var msgs []string

	rest := d.rbuf
	for {
		idx := bytes.IndexByte(rest, d.cfg.terminator)
		if idx < 0 {
			break
		}

		msg := string(rest[:idx])
		rest = rest[idx+1:]

		d.metrics.incMsgRecvCount()
		d.emit(DirInbound, msg)
		msgs = append(msgs, msg)
	}

	// Keep only the partial tail; the backing array is reused.
	d.rbuf = append(d.rbuf[:0], rest...)

	return msgs, nil
}

// Tick performs one scheduler tick of the link: a single inbound poll.
// Poll errors are logged by PollIncoming and swallowed here so a transport
// fault never breaks the tick loop.
func (d *Driver) Tick() {
	_, _ = d.PollIncoming()
}

// emit records one protocol exchange on the trace ring and the event sink.
func (d *Driver) emit(dir Dir, payload string) {
	d.trace.append(TraceRecord{Dir: dir, Payload: payload, At: time.Now()})
	d.logger.Debug("link: exchange", "dir", dir, "payload", payload)

	if d.cfg.events == nil {
		return
	}

	var err error
	if dir == DirOutbound {
		err = d.cfg.events.TX(payload)
	} else {
		err = d.cfg.events.RX(payload)
	}

	if err != nil {
		d.logger.Warn("link: event sink write failed", "dir", dir, "error", err)
	}
}
