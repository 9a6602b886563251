package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds a single poll read on the serial port when the
// command table does not configure one. It must stay well below the tick
// period so a poll never stalls the tick callback.
const DefaultReadTimeout = 20 * time.Millisecond

// SerialTransport is a Transport over a physical serial port.
//
// The port's read timeout makes Read return (0, nil) when the dispenser has
// written nothing, which is the contract the Driver's poll path expects.
type SerialTransport struct {
	port serial.Port
	name string
}

var _ Transport = (*SerialTransport)(nil)

// OpenSerial opens the serial port with the given baud rate and read timeout.
//
// A zero or negative readTimeout falls back to DefaultReadTimeout. Open
// failure is returned to the caller; at startup it is fatal.
func OpenSerial(name string, baud int, readTimeout time.Duration) (*SerialTransport, error) {
	if baud <= 0 {
		return nil, fmt.Errorf("link: invalid baud rate %d", baud)
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("link: open serial port %s: %w", name, err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()

		return nil, fmt.Errorf("link: set read timeout on %s: %w", name, err)
	}

	return &SerialTransport{port: port, name: name}, nil
}

// Name returns the port path the transport was opened with.
func (t *SerialTransport) Name() string { return t.name }

// Read reads buffered bytes from the port, returning (0, nil) on timeout.
func (t *SerialTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

// Write writes p to the port.
func (t *SerialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

// Close releases the port.
func (t *SerialTransport) Close() error {
	return t.port.Close()
}
