// Package command defines the dispenser command vocabulary: the command
// table mapping motor movements and load functions to the literal ASCII
// commands understood by the dispenser firmware, and the motion profiles
// that group per-motor commands with an expected execution duration.
//
// Both tables are loaded once at startup from JSON documents and are
// immutable afterwards.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// Terminator is the reserved end-of-command/end-of-message character of the
// wire protocol. It must not appear inside a command string.
const Terminator byte = '='

// Sentinel errors for command table lookups and validation.
var (
	ErrEmptyCommand        = errors.New("command: empty command string")
	ErrTerminatorInCommand = errors.New("command: command contains the terminator character")
	ErrUnknownMotor        = errors.New("command: unknown motor")
	ErrUnknownDirection    = errors.New("command: unknown direction")
	ErrUnknownAction       = errors.New("command: unknown action")
	ErrUnknownFunction     = errors.New("command: unknown function")
	ErrUnknownProfile      = errors.New("command: unknown profile label")
)

// Command is a literal command string understood by the dispenser firmware.
//
// Commands are owned by the Table and are read-only after load. The framing
// terminator is not part of a Command; the link layer appends it on send.
type Command string

// String returns the literal command text.
func (c Command) String() string { return string(c) }

// Validate reports whether the command is non-empty and terminator-free.
func (c Command) Validate() error {
	if c == "" {
		return ErrEmptyCommand
	}

	if strings.IndexByte(string(c), Terminator) >= 0 {
		return fmt.Errorf("%w: %q", ErrTerminatorInCommand, string(c))
	}

	return nil
}

// Motor identifies one of the two stepper motors of the dispenser.
type Motor uint8

// The dispenser carries two stepper motors.
const (
	M1 Motor = iota + 1
	M2
)

// String returns the motor key used in the command table document.
func (m Motor) String() string {
	switch m {
	case M1:
		return "m1"
	case M2:
		return "m2"
	default:
		return "unknown"
	}
}

// Direction is the rotation direction of a motor movement.
type Direction uint8

// Motor movement directions.
const (
	Forward Direction = iota
	Reverse
)

// String returns the direction key used in the command table document.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Action is the movement distance of a motor command.
type Action uint8

// Motor movement actions.
const (
	MoveShort Action = iota
	MoveLong
)

// String returns the action key used in the command table document.
func (a Action) String() string {
	switch a {
	case MoveShort:
		return "moveshort"
	case MoveLong:
		return "movelong"
	default:
		return "unknown"
	}
}

// Function is one of the named sample-loading functions.
type Function uint8

// Sample-loading functions.
const (
	Status Function = iota
	Stop
	FindNeedle
	Go
)

// String returns the function key used in the command table document.
func (f Function) String() string {
	switch f {
	case Status:
		return "status"
	case Stop:
		return "stop"
	case FindNeedle:
		return "findneedle"
	case Go:
		return "go"
	default:
		return "unknown"
	}
}
