// Package session implements the double-entry identity gate: operator,
// sample and accession identifiers must be entered twice and match before
// the dispenser controls become available.
//
// Rejections are observable through typed sentinel errors and the gate
// state, so a front-end can render a status indicator instead of failing
// silently.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/biometra/go-psd/logger"
)

// Sentinel rejection errors returned by Commit.
var (
	ErrOperatorEmpty     = errors.New("session: operator is empty")
	ErrSampleEmpty       = errors.New("session: sample ID is empty")
	ErrSampleMismatch    = errors.New("session: sample ID confirmation mismatch")
	ErrAccessionEmpty    = errors.New("session: accession ID is empty")
	ErrAccessionMismatch = errors.New("session: accession ID confirmation mismatch")
)

// ErrNotCommitted reports an operation that requires a committed session.
var ErrNotCommitted = errors.New("session: session not committed")

// State represents the session gate state.
type State uint32

// Session gate states.
const (
	// Editing indicates the identity fields are open for entry and the
	// dependent controls are disabled.
	Editing State = iota
	// Committed indicates the double-entry check passed and the dependent
	// controls are enabled.
	Committed
)

// IsEditing returns true if the state is Editing.
func (s State) IsEditing() bool { return s == Editing }

// IsCommitted returns true if the state is Committed.
func (s State) IsCommitted() bool { return s == Committed }

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Record is a committed session identity. It is appended to the event log
// on a successful Commit, the only place identity data is persisted.
type Record struct {
	Operator    string
	SampleID    string
	AccessionID string
	CommittedAt time.Time
}

// Dependent is a control surface whose availability follows the gate state.
type Dependent interface {
	SetEnabled(enabled bool)
}

// CommitHandler is invoked once per successful Commit with the committed
// record.
type CommitHandler func(rec Record)

// StateChangeHandler is invoked on every Editing/Committed boundary.
type StateChangeHandler func(prevState State, newState State)

// Gate holds the identity fields with their confirmations and gates the
// registered dependent controls on a successful double-entry Commit.
type Gate struct {
	mu               sync.Mutex
	operator         string
	sample           string
	sampleConfirm    string
	accession        string
	accessionConfirm string
	state            atomic.Uint32
	dependents       *xsync.MapOf[string, Dependent]
	commitHandlers   []CommitHandler
	stateHandlers    []StateChangeHandler
	logger           logger.Logger
}

// NewGate creates a Gate in the Editing state with empty fields.
func NewGate(l logger.Logger) *Gate {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Gate{
		dependents: xsync.NewMapOf[string, Dependent](),
		logger:     l,
	}
}

// RegisterDependent adds a named control surface to be enabled only while
// Committed. A dependent registered under an existing name replaces the
// previous one. Newly registered dependents start disabled.
func (g *Gate) RegisterDependent(name string, dep Dependent) {
	g.dependents.Store(name, dep)

	g.mu.Lock()
	defer g.mu.Unlock()

	if dep != nil && g.State().IsEditing() {
		dep.SetEnabled(false)
	}
}

// AddCommitHandler registers handlers invoked on every successful Commit.
func (g *Gate) AddCommitHandler(handlers ...CommitHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.commitHandlers = append(g.commitHandlers, handlers...)
}

// AddStateChangeHandler registers handlers invoked on every state boundary.
func (g *Gate) AddStateChangeHandler(handlers ...StateChangeHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stateHandlers = append(g.stateHandlers, handlers...)
}

// State returns the current gate state. It is lock-free and safe to call
// from within dependent and state change callbacks.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// SetOperator sets the operator name.
func (g *Gate) SetOperator(operator string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.operator = operator
}

// SetSample sets the sample ID and its confirmation.
func (g *Gate) SetSample(id, confirm string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sample = id
	g.sampleConfirm = confirm
}

// SetAccession sets the accession ID and its confirmation.
func (g *Gate) SetAccession(id, confirm string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.accession = id
	g.accessionConfirm = confirm
}

// Commit runs the double-entry check.
//
// It succeeds iff the operator is non-empty, the sample ID equals its
// confirmation and both are non-empty, and the accession ID equals its
// confirmation and both are non-empty. Success enables the dependent
// controls and reports the committed record to the commit handlers. Any
// violation returns a sentinel error and leaves the dependent controls
// disabled.
func (g *Gate) Commit() (Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(); err != nil {
		// Failed commits always end in Editing, even from Committed.
		g.toState(Editing)
		g.logger.Debug("session: commit rejected", "error", err)

		return Record{}, err
	}

	rec := Record{
		Operator:    g.operator,
		SampleID:    g.sample,
		AccessionID: g.accession,
		CommittedAt: time.Now(),
	}

	g.toState(Committed)

	for _, handler := range g.commitHandlers {
		if handler != nil {
			handler(rec)
		}
	}

	g.logger.Info("session: committed", "operator", rec.Operator, "sampleID", rec.SampleID, "accessionID", rec.AccessionID)

	return rec, nil
}

// Edit re-opens the identity fields for modification and disables the
// dependent controls until the next successful Commit.
func (g *Gate) Edit() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.toState(Editing)
}

// Clear resets all identity fields to empty and disables the dependent
// controls.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.operator = ""
	g.sample = ""
	g.sampleConfirm = ""
	g.accession = ""
	g.accessionConfirm = ""

	g.toState(Editing)
}

// check validates the double-entry invariant. Caller must hold g.mu.
func (g *Gate) check() error {
	if g.operator == "" {
		return ErrOperatorEmpty
	}

	if g.sample == "" || g.sampleConfirm == "" {
		return ErrSampleEmpty
	}

	if g.sample != g.sampleConfirm {
		return ErrSampleMismatch
	}

	if g.accession == "" || g.accessionConfirm == "" {
		return ErrAccessionEmpty
	}

	if g.accession != g.accessionConfirm {
		return ErrAccessionMismatch
	}

	return nil
}

// toState applies the state, toggles the dependent controls, and invokes
// the state handlers on a boundary. Caller must hold g.mu.
//
// The dependents are toggled even without a boundary: a failed Commit while
// Editing must still force them disabled.
func (g *Gate) toState(newState State) {
	prevState := g.State()
	g.state.Store(uint32(newState))

	enabled := newState.IsCommitted()
	g.dependents.Range(func(_ string, dep Dependent) bool {
		if dep != nil {
			dep.SetEnabled(enabled)
		}

		return true
	})

	if prevState == newState {
		return
	}

	for _, handler := range g.stateHandlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
