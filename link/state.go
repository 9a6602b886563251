package link

import (
	"sync"
	"sync/atomic"

	"github.com/biometra/go-psd/logger"
)

// LinkState represents the state of the serial link.
type LinkState uint32

// Serial link states.
const (
	// LinkDown indicates the link is unusable: not yet opened, closed, or
	// failed on a read or write.
	LinkDown LinkState = iota
	// LinkUp indicates the link is open and commands may be sent.
	LinkUp
)

// IsDown returns true if the state is LinkDown.
func (s LinkState) IsDown() bool { return s == LinkDown }

// IsUp returns true if the state is LinkUp.
func (s LinkState) IsUp() bool { return s == LinkUp }

// String returns the string representation of the state.
func (s LinkState) String() string {
	switch s {
	case LinkDown:
		return "down"
	case LinkUp:
		return "up"
	default:
		return "unknown"
	}
}

// LinkStateChangeHandler is invoked on every link state transition.
//
// Handlers run in blocking mode under the state manager's lock; take care
// with long-running implementations.
type LinkStateChangeHandler func(prevState LinkState, newState LinkState)

// LinkStateMgr manages the up/down state of the serial link and notifies
// registered handlers of transitions. Transitions are safe for concurrent
// use.
type LinkStateMgr struct {
	mu       sync.Mutex
	state    atomic.Uint32
	logger   logger.Logger
	handlers []LinkStateChangeHandler
}

// NewLinkStateMgr creates a LinkStateMgr initialized to LinkDown.
func NewLinkStateMgr(l logger.Logger, handlers ...LinkStateChangeHandler) *LinkStateMgr {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &LinkStateMgr{
		logger:   l,
		handlers: make([]LinkStateChangeHandler, 0, len(handlers)),
	}
	mgr.handlers = append(mgr.handlers, handlers...)
	mgr.state.Store(uint32(LinkDown))

	return mgr
}

// State returns the current link state.
func (mgr *LinkStateMgr) State() LinkState {
	return LinkState(mgr.state.Load())
}

// IsDown returns true if the link is down.
func (mgr *LinkStateMgr) IsDown() bool { return mgr.State().IsDown() }

// IsUp returns true if the link is up.
func (mgr *LinkStateMgr) IsUp() bool { return mgr.State().IsUp() }

// AddHandler registers one or more handlers to be invoked on state changes.
func (mgr *LinkStateMgr) AddHandler(handlers ...LinkStateChangeHandler) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	mgr.handlers = append(mgr.handlers, handlers...)
}

// ToUp transitions the link to LinkUp. No-op when already up.
func (mgr *LinkStateMgr) ToUp() {
	mgr.transition(LinkUp)
}

// ToDown transitions the link to LinkDown. No-op when already down.
func (mgr *LinkStateMgr) ToDown() {
	mgr.transition(LinkDown)
}

func (mgr *LinkStateMgr) transition(newState LinkState) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	prevState := mgr.State()
	if prevState == newState {
		return
	}

	mgr.state.Store(uint32(newState))
	mgr.logger.Debug("link: state changed", "prevState", prevState, "newState", newState)

	for _, handler := range mgr.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
