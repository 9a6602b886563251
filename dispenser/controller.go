// Package dispenser provides the high-level controller of the precision
// sample dispenser: motor and loader operations, motion profile execution,
// the busy interlock, and the session gate, wired over the serial protocol
// driver. It is the surface a GUI front-end calls.
package dispenser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/biometra/go-psd/command"
	"github.com/biometra/go-psd/eventlog"
	"github.com/biometra/go-psd/interlock"
	"github.com/biometra/go-psd/link"
	"github.com/biometra/go-psd/logger"
	"github.com/biometra/go-psd/psd"
	"github.com/biometra/go-psd/session"
)

// tickTaskName is the task manager name of the scheduler tick.
const tickTaskName = "tick"

// ControlSurface is a front-end control group whose availability the
// controller manages: enabled only while the session is committed and no
// timed operation is in flight.
type ControlSurface interface {
	SetEnabled(enabled bool)
}

// Controller owns the protocol driver, the interlock, the session gate and
// the command tables, and exposes the dispenser operations.
//
// All device operations and the scheduler tick are serialized on an
// internal mutex, preserving the single-dispatch-thread invariant of the
// transport and response buffer even when callers run on multiple
// goroutines.
type Controller struct {
	mu sync.Mutex

	table    *command.Table
	profiles command.Profiles
	driver   *link.Driver
	lock     *interlock.Controller
	gate     *session.Gate
	elog     *eventlog.Log
	taskMgr  *psd.TaskManager

	tickPeriod time.Duration
	logger     logger.Logger
}

// NewController creates a Controller from its explicit collaborators.
//
// A nil event log falls back to a discarding log. The tick period defaults
// to the driver config's period when zero.
func NewController(ctx context.Context, table *command.Table, profiles command.Profiles, driver *link.Driver, elog *eventlog.Log, tickPeriod time.Duration, l logger.Logger) (*Controller, error) {
	if table == nil {
		return nil, errors.New("dispenser: command table is nil")
	}

	if driver == nil {
		return nil, errors.New("dispenser: driver is nil")
	}

	if elog == nil {
		elog = eventlog.Nop()
	}

	if tickPeriod <= 0 {
		tickPeriod = link.DefaultTickPeriod
	}

	if l == nil {
		l = logger.GetLogger()
	}

	lock, err := interlock.NewController(tickPeriod, l)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		table:      table,
		profiles:   profiles,
		driver:     driver,
		lock:       lock,
		gate:       session.NewGate(l),
		elog:       elog,
		taskMgr:    psd.NewTaskManager(ctx, l),
		tickPeriod: tickPeriod,
		logger:     l,
	}

	// A committed session is the only place identity data is persisted.
	c.gate.AddCommitHandler(func(rec session.Record) {
		if err := c.elog.Session(rec.Operator, rec.SampleID, rec.AccessionID); err != nil {
			c.logger.Warn("dispenser: session log write failed", "error", err)
		}
	})

	return c, nil
}

// RegisterControls registers a named front-end control surface. The surface
// is enabled exactly while the session gate is committed and the interlock
// is idle; both components re-evaluate it on their own transitions.
func (c *Controller) RegisterControls(name string, s ControlSurface) {
	c.lock.Register(name, &gatedSurface{gate: c.gate, surface: s})
	c.gate.RegisterDependent(name, &idleSurface{lock: c.lock, surface: s})
}

// gatedSurface applies interlock decisions, masked by the session gate.
type gatedSurface struct {
	gate    *session.Gate
	surface ControlSurface
}

func (s *gatedSurface) SetEnabled(enabled bool) {
	s.surface.SetEnabled(enabled && s.gate.State().IsCommitted())
}

// idleSurface applies session gate decisions, masked by the interlock.
type idleSurface struct {
	lock    *interlock.Controller
	surface ControlSurface
}

func (s *idleSurface) SetEnabled(enabled bool) {
	s.surface.SetEnabled(enabled && s.lock.State().IsIdle())
}

// Run opens the link and starts the recurring scheduler tick.
func (c *Controller) Run() error {
	if err := c.driver.Open(); err != nil {
		return err
	}

	if _, err := c.taskMgr.StartInterval(tickTaskName, c.tick, c.tickPeriod, false); err != nil {
		return err
	}

	c.logger.Info("dispenser: controller running", "tickPeriod", c.tickPeriod)

	return nil
}

// Close stops the scheduler and closes the link.
func (c *Controller) Close() error {
	c.taskMgr.Stop()
	c.taskMgr.Wait()

	return c.driver.Close()
}

// Tick performs one scheduler tick: the inbound poll first, then the
// interlock countdown.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.driver.Tick()
	c.lock.Tick()
}

// tick adapts Tick to the task manager's TaskFunc contract.
func (c *Controller) tick() bool {
	c.Tick()

	return true
}

// Gate returns the session gate for field entry and Edit/Clear.
func (c *Controller) Gate() *session.Gate { return c.gate }

// Interlock returns the busy interlock.
func (c *Controller) Interlock() *interlock.Controller { return c.lock }

// Driver returns the protocol driver, e.g. for trace access.
func (c *Controller) Driver() *link.Driver { return c.driver }

// Table returns the command table.
func (c *Controller) Table() *command.Table { return c.table }

// Profiles returns the loaded motion profiles.
func (c *Controller) Profiles() command.Profiles { return c.profiles }

// NewScanDetector creates a barcode scan detector sized to the command
// table's barcode length, for the front-end's sample field.
func (c *Controller) NewScanDetector() (*session.ScanDetector, error) {
	return session.NewScanDetector(c.table.BarcodeLength(), session.DefaultScanWindow)
}

// Commit enters the identity fields and runs the double-entry check.
func (c *Controller) Commit(operator, sample, sampleConfirm, accession, accessionConfirm string) (session.Record, error) {
	c.gate.SetOperator(operator)
	c.gate.SetSample(sample, sampleConfirm)
	c.gate.SetAccession(accession, accessionConfirm)

	return c.gate.Commit()
}

// guard enforces the availability rules a front-end expresses by disabling
// buttons: device operations require a committed session and an idle
// interlock.
func (c *Controller) guard() error {
	if !c.gate.State().IsCommitted() {
		return session.ErrNotCommitted
	}

	if c.lock.State().IsBusy() {
		return interlock.ErrBusy
	}

	return nil
}

// --- Motor operations ---

// Home drives the motor to its home position (reverse, long move).
func (c *Controller) Home(m command.Motor) error {
	return c.sendMotor(m, command.Reverse, command.MoveLong)
}

// Limit drives the motor to its limit position (forward, long move).
func (c *Controller) Limit(m command.Motor) error {
	return c.sendMotor(m, command.Forward, command.MoveLong)
}

// StepForward steps the motor forward (forward, short move).
func (c *Controller) StepForward(m command.Motor) error {
	return c.sendMotor(m, command.Forward, command.MoveShort)
}

// StepReverse steps the motor backward (reverse, short move).
func (c *Controller) StepReverse(m command.Motor) error {
	return c.sendMotor(m, command.Reverse, command.MoveShort)
}

func (c *Controller) sendMotor(m command.Motor, d command.Direction, a command.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	cmd, err := c.table.Motor(m, d, a)
	if err != nil {
		return err
	}

	return c.driver.Send(cmd)
}

// --- Loader operations ---

// Status requests the dispenser status output.
func (c *Controller) Status() error {
	return c.sendFunction(command.Status)
}

// FindNeedle runs the needle search function.
func (c *Controller) FindNeedle() error {
	return c.sendFunction(command.FindNeedle)
}

// Go instructs the dispenser to execute the most recently loaded profile.
func (c *Controller) Go() error {
	return c.sendFunction(command.Go)
}

// Reset returns both motors to their reverse stop (long reverse move on
// each motor).
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	for _, m := range []command.Motor{command.M1, command.M2} {
		cmd, err := c.table.Motor(m, command.Reverse, command.MoveLong)
		if err != nil {
			return err
		}

		if err := c.driver.Send(cmd); err != nil {
			return err
		}
	}

	return nil
}

// LoadProfile sends the commands of the named profile, skipping absent
// motor commands, and starts the busy interlock when the profile carries an
// expected duration.
func (c *Controller) LoadProfile(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	profile, err := c.profiles.Find(label)
	if err != nil {
		return err
	}

	for _, cmd := range []command.Command{profile.M1, profile.M2} {
		if cmd == "" {
			continue
		}

		if err := c.driver.Send(cmd); err != nil {
			return err
		}
	}

	if profile.Duration > 0 {
		if err := c.lock.Start(profile.Duration); err != nil {
			return err
		}
	}

	c.logger.Info("dispenser: profile loaded", "label", label, "duration", profile.Duration)

	return nil
}

// Stop sends the stop command and unconditionally clears the busy
// interlock; the operator can always interrupt. While idle the interlock is
// untouched but the command is still sent, producing its trace and log
// records.
//
// Stop bypasses the session and interlock guards.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, err := c.table.Function(command.Stop)
	if err != nil {
		return err
	}

	sendErr := c.driver.Send(cmd)

	// Clear the logical busy state even when the write failed; whether the
	// device itself halts depends on it honoring the command.
	c.lock.Stop()

	return sendErr
}

func (c *Controller) sendFunction(f command.Function) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	cmd, err := c.table.Function(f)
	if err != nil {
		return err
	}

	return c.driver.Send(cmd)
}
