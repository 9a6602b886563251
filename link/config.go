package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/biometra/go-psd/command"
	"github.com/biometra/go-psd/logger"
)

// Default configuration values for a dispenser link.
const (
	// DefaultTerminator is the reserved end-of-command/end-of-message character.
	DefaultTerminator = command.Terminator

	// DefaultTickPeriod is the period of the scheduler tick driving the
	// inbound poll and the interlock countdown.
	DefaultTickPeriod = 100 * time.Millisecond

	// DefaultTraceCapacity is the number of records retained by the trace ring.
	DefaultTraceCapacity = 256
)

// Configuration limits.
const (
	MinTickPeriod = 10 * time.Millisecond
	MaxTickPeriod = 10 * time.Second
)

// Config holds all configuration for a dispenser link Driver.
type Config struct {
	terminator       byte
	tickPeriod       time.Duration
	traceCapacity    int
	validateCommands bool
	events           EventSink
	logger           logger.Logger
}

// NewConfig creates a link configuration with the given functional options
// applied in order; see With* functions.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		terminator:       DefaultTerminator,
		tickPeriod:       DefaultTickPeriod,
		traceCapacity:    DefaultTraceCapacity,
		validateCommands: true,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Terminator returns the configured framing terminator.
func (cfg *Config) Terminator() byte { return cfg.terminator }

// TickPeriod returns the configured scheduler tick period.
func (cfg *Config) TickPeriod() time.Duration { return cfg.tickPeriod }

// TraceCapacity returns the capacity of the trace ring.
func (cfg *Config) TraceCapacity() int { return cfg.traceCapacity }

// ValidateCommands returns whether commands are validated before sending.
func (cfg *Config) ValidateCommands() bool { return cfg.validateCommands }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTerminator sets the framing terminator character.
func WithTerminator(b byte) Option {
	return optFunc(func(cfg *Config) error {
		if b == 0 {
			return errors.New("link: terminator must not be NUL")
		}
		cfg.terminator = b

		return nil
	})
}

// WithTickPeriod sets the scheduler tick period. Must be in
// [MinTickPeriod, MaxTickPeriod].
func WithTickPeriod(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinTickPeriod || d > MaxTickPeriod {
			return fmt.Errorf("link: tick period %v out of range [%v, %v]", d, MinTickPeriod, MaxTickPeriod)
		}
		cfg.tickPeriod = d

		return nil
	})
}

// WithTraceCapacity sets the number of records retained by the trace ring.
func WithTraceCapacity(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 {
			return errors.New("link: trace capacity must be >= 1")
		}
		cfg.traceCapacity = n

		return nil
	})
}

// WithValidateCommands enables or disables command validation before
// sending. Enabled by default.
func WithValidateCommands(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.validateCommands = enabled

		return nil
	})
}

// WithEventSink sets the sink that receives one event per sent command and
// received message, typically the append-only event log.
func WithEventSink(sink EventSink) Option {
	return optFunc(func(cfg *Config) error {
		cfg.events = sink

		return nil
	})
}

// WithLogger sets the logger for the link.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
