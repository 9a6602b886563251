package link

import (
	"sync"
	"time"
)

// Dir is the direction of a traced protocol exchange.
type Dir uint8

// Trace directions.
const (
	// DirOutbound marks a command sent to the dispenser.
	DirOutbound Dir = iota
	// DirInbound marks a message received from the dispenser.
	DirInbound
)

// String returns the trace prefix for the direction.
func (d Dir) String() string {
	switch d {
	case DirOutbound:
		return "tx"
	case DirInbound:
		return "rx"
	default:
		return "unknown"
	}
}

// TraceRecord is one entry of the protocol trace: a command sent or a
// complete message received. Payload carries the text without the framing
// terminator.
type TraceRecord struct {
	Dir     Dir
	Payload string
	At      time.Time
}

// TraceHandler is invoked for every record appended to the trace.
//
// Handlers run in blocking mode on the appending goroutine; take care with
// long-running implementations.
type TraceHandler func(rec TraceRecord)

// traceRing is a bounded in-memory buffer of the most recent trace records.
// It backs the scrollable trace display of a front-end.
type traceRing struct {
	mu       sync.Mutex
	records  []TraceRecord
	capacity int
	handlers []TraceHandler
}

func newTraceRing(capacity int) *traceRing {
	return &traceRing{
		records:  make([]TraceRecord, 0, capacity),
		capacity: capacity,
	}
}

func (r *traceRing) addHandler(handlers ...TraceHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handlers...)
}

// append adds rec, dropping the oldest record when the ring is full.
func (r *traceRing) append(rec TraceRecord) {
	r.mu.Lock()

	if len(r.records) >= r.capacity {
		drop := len(r.records) - r.capacity + 1
		r.records = append(r.records[:0], r.records[drop:]...)
	}
	r.records = append(r.records, rec)

	handlers := r.handlers
	r.mu.Unlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(rec)
		}
	}
}

// snapshot returns a copy of the buffered records, oldest first.
func (r *traceRing) snapshot() []TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TraceRecord, len(r.records))
	copy(out, r.records)

	return out
}

func (r *traceRing) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = r.records[:0]
}
