// Package interlock implements the busy/idle gate that blocks user input
// while a timed dispenser operation is presumed in flight.
//
// The Controller tracks a single Idle/Busy state driven by the scheduler
// tick. Entering Busy disables every registered control group; returning to
// Idle, either by countdown expiry or an explicit Stop, re-enables them in
// the same transition.
package interlock

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/biometra/go-psd/logger"
)

// Sentinel errors for the interlock.
var (
	ErrBusy            = errors.New("interlock: operation already in progress")
	ErrInvalidDuration = errors.New("interlock: duration must be positive")
)

// State represents the interlock state.
type State uint32

// Interlock states.
const (
	// Idle indicates no timed operation is in flight; controls are enabled.
	Idle State = iota
	// Busy indicates a timed operation is presumed in flight; controls are
	// disabled until the countdown expires or Stop is called.
	Busy
)

// IsIdle returns true if the state is Idle.
func (s State) IsIdle() bool { return s == Idle }

// IsBusy returns true if the state is Busy.
func (s State) IsBusy() bool { return s == Busy }

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// ControlGroup is a set of control surfaces that can be enabled or disabled
// together, such as the loader buttons or one motor's buttons.
type ControlGroup interface {
	SetEnabled(enabled bool)
}

// StateChangeHandler is invoked on every Idle/Busy boundary, after the
// registered control groups have been toggled.
//
// Handlers run in blocking mode under the controller's lock; take care with
// long-running implementations.
type StateChangeHandler func(prevState State, newState State)

// Controller is the interlock state machine.
//
// The countdown is a fixed multiple of the scheduler tick period, not a
// completion signal from the device; the device's own completion is never
// confirmed. Stop is the operator's unconditional override.
type Controller struct {
	mu         sync.Mutex
	state      atomic.Uint32
	ticksLeft  int
	tickPeriod time.Duration
	groups     *xsync.MapOf[string, ControlGroup]
	handlers   []StateChangeHandler
	logger     logger.Logger
}

// NewController creates an idle Controller whose countdown is measured in
// ticks of the given period.
func NewController(tickPeriod time.Duration, l logger.Logger) (*Controller, error) {
	if tickPeriod <= 0 {
		return nil, fmt.Errorf("interlock: invalid tick period %v", tickPeriod)
	}

	if l == nil {
		l = logger.GetLogger()
	}

	return &Controller{
		tickPeriod: tickPeriod,
		groups:     xsync.NewMapOf[string, ControlGroup](),
		logger:     l,
	}, nil
}

// Register adds a named control group to be disabled while Busy. A group
// registered under an existing name replaces the previous one.
func (c *Controller) Register(name string, g ControlGroup) {
	c.groups.Store(name, g)
}

// Unregister removes a named control group.
func (c *Controller) Unregister(name string) {
	c.groups.Delete(name)
}

// AddHandler registers handlers invoked on every Idle/Busy boundary.
func (c *Controller) AddHandler(handlers ...StateChangeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = append(c.handlers, handlers...)
}

// State returns the current interlock state. It is lock-free and safe to
// call from within control group and state change callbacks.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// TicksRemaining returns the remaining countdown ticks. It is zero while
// Idle; the countdown is only meaningful while Busy.
func (c *Controller) TicksRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ticksLeft
}

// Start transitions Idle to Busy for an operation expected to run for d,
// disabling all registered control groups. The countdown is
// ceil(d / tickPeriod) ticks.
//
// It returns ErrBusy when an operation is already in flight.
func (c *Controller) Start(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State().IsBusy() {
		return ErrBusy
	}

	ticks := int((d + c.tickPeriod - 1) / c.tickPeriod)
	c.ticksLeft = ticks
	c.toState(Busy)

	c.logger.Debug("interlock: busy", "duration", d, "ticks", ticks)

	return nil
}

// Tick performs one countdown step. On the final tick the controller
// atomically returns to Idle and re-enables all registered control groups.
// Tick is a no-op while Idle.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State().IsIdle() {
		return
	}

	c.ticksLeft--
	if c.ticksLeft > 0 {
		return
	}

	c.ticksLeft = 0
	c.toState(Idle)

	c.logger.Debug("interlock: countdown expired")
}

// Stop unconditionally returns the controller to Idle, re-enabling all
// registered control groups without waiting for the countdown. The operator
// can always interrupt. Stop is a no-op while Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State().IsIdle() {
		return
	}

	c.ticksLeft = 0
	c.toState(Idle)

	c.logger.Debug("interlock: stopped by operator")
}

// toState flips the state, toggles the registered control groups, and
// invokes the handlers. Caller must hold c.mu.
func (c *Controller) toState(newState State) {
	prevState := c.State()
	c.state.Store(uint32(newState))

	enabled := newState.IsIdle()
	c.groups.Range(func(_ string, g ControlGroup) bool {
		if g != nil {
			g.SetEnabled(enabled)
		}

		return true
	})

	for _, handler := range c.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
