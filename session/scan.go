package session

import (
	"fmt"
	"time"
)

// DefaultScanWindow is the elapsed-time threshold between the first and
// last keystroke of a fixed-length field under which the entry is treated
// as scanner-generated rather than typed.
const DefaultScanWindow = 250 * time.Millisecond

// ScanDetector implements the fast-entry heuristic for barcode scanners.
//
// A front-end feeds it one timestamp per keystroke of a fixed-length
// identifier field. When the field fills completely within the window, the
// entry is reported as scanner-generated so the caller can auto-copy the
// value into its confirmation field and advance focus.
//
// This is a UX shortcut only; it never bypasses the Commit equality check.
// The detector is fed from the UI event path and is not safe for concurrent
// use.
type ScanDetector struct {
	length int
	window time.Duration
	first  time.Time
	count  int
}

// NewScanDetector creates a detector for a field of the given fixed length,
// typically the command table's barcode length. A zero or negative window
// falls back to DefaultScanWindow.
func NewScanDetector(length int, window time.Duration) (*ScanDetector, error) {
	if length < 2 {
		return nil, fmt.Errorf("session: scan field length %d must be >= 2", length)
	}

	if window <= 0 {
		window = DefaultScanWindow
	}

	return &ScanDetector{length: length, window: window}, nil
}

// Keystroke records one keystroke arriving at time at. It returns true
// exactly when the keystroke fills the field and the elapsed time since the
// first keystroke is under the window.
//
// Filling the field resets the detector for the next entry, whatever the
// outcome.
func (d *ScanDetector) Keystroke(at time.Time) bool {
	if d.count == 0 {
		d.first = at
	}

	d.count++
	if d.count < d.length {
		return false
	}

	elapsed := at.Sub(d.first)
	d.Reset()

	return elapsed < d.window
}

// Reset discards any partially observed entry, e.g. when the field is
// cleared or loses focus.
func (d *ScanDetector) Reset() {
	d.count = 0
	d.first = time.Time{}
}
