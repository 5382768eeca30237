package abacus

import (
	"fmt"
	"strings"
)

// Engine holds the bead positions of every rod on one abacus.
// It is not safe for concurrent use; drive it from a single goroutine.
type Engine struct {
	rods      []RodState
	transient bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransientChanges controls whether Toggle reports intermediate bead
// movements, such as both heaven beads dropping before they reset on a carry.
// When disabled the change list holds only the net difference between the rod
// before and after the toggle. Enabled by default.
func WithTransientChanges(enabled bool) Option {
	return func(e *Engine) {
		e.transient = enabled
	}
}

// New returns an abacus with rodCount rods and every bead inactive.
func New(rodCount int, opts ...Option) (*Engine, error) {
	if rodCount < 1 || rodCount > MaxRods {
		return nil, fmt.Errorf("rod count %d not in [1, %d]: %w", rodCount, MaxRods, ErrOutOfRange)
	}
	e := &Engine{
		rods:      make([]RodState, rodCount),
		transient: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rods returns the number of rods.
func (e *Engine) Rods() int {
	return len(e.rods)
}

// Reset moves every bead on every rod away from the beam.
func (e *Engine) Reset() {
	for i := range e.rods {
		e.rods[i] = RodState{}
	}
}

// Value returns the number shown on the abacus, rod 0 being the most
// significant digit.
func (e *Engine) Value() int64 {
	var total int64
	for _, r := range e.rods {
		total = total*10 + int64(r.Value())
	}
	return total
}

// Rod returns a copy of the beads on rod i.
func (e *Engine) Rod(i int) (RodState, error) {
	if err := e.checkRod(i); err != nil {
		return RodState{}, err
	}
	return e.rods[i], nil
}

// RodValue returns the digit shown on rod i.
func (e *Engine) RodValue(i int) (int, error) {
	if err := e.checkRod(i); err != nil {
		return 0, err
	}
	return e.rods[i].Value(), nil
}

// States returns a copy of every rod, leftmost first.
func (e *Engine) States() []RodState {
	out := make([]RodState, len(e.rods))
	copy(out, e.rods)
	return out
}

// Toggle flips bead index of class on rod and settles that rod.
//
// The returned changes, applied in order to the rod as it was before the call,
// reproduce its new state. A non-nil CarryInstruction means the rod reached ten
// and reset; the caller owes one unit to CarryInstruction.TargetRod.
//
// Arguments are validated before anything moves: a bad rod or bead index yields
// ErrOutOfRange, an unknown class ErrInvalidArgument.
func (e *Engine) Toggle(rod int, class BeadClass, index int) ([]Change, *CarryInstruction, error) {
	if err := e.checkRod(rod); err != nil {
		return nil, nil, err
	}
	if !class.Valid() {
		return nil, nil, fmt.Errorf("bead class %q: %w", class, ErrInvalidArgument)
	}
	if index < 0 || index >= class.Beads() {
		return nil, nil, fmt.Errorf("%s bead %d not in [0, %d): %w", class, index, class.Beads(), ErrOutOfRange)
	}

	before := e.rods[rod]
	m := &move{rod: rod, state: before}
	switch class {
	case Heaven:
		m.toggleHeaven(index)
	case Earth:
		m.toggleEarth(index)
	}
	m.settle()

	e.rods[rod] = m.state
	if !e.transient {
		return diff(before, m.state), m.carry, nil
	}
	return m.changes, m.carry, nil
}

// String dumps every rod, one per line, after a summary line.
func (e *Engine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Abacus with %d rods. Current value: %d\n", len(e.rods), e.Value())
	for i, r := range e.rods {
		fmt.Fprintf(&sb, "Rod %d: %s\n", i, r)
	}
	return sb.String()
}

func (e *Engine) checkRod(i int) error {
	if i < 0 || i >= len(e.rods) {
		return fmt.Errorf("rod %d not in [0, %d): %w", i, len(e.rods), ErrOutOfRange)
	}
	return nil
}

// diff lists the beads that differ between two rod states, heaven first.
func diff(before, after RodState) []Change {
	var changes []Change
	for i := range before.Heaven {
		if before.Heaven[i] != after.Heaven[i] {
			changes = append(changes, Change{Class: Heaven, Index: i, State: after.Heaven[i]})
		}
	}
	for i := range before.Earth {
		if before.Earth[i] != after.Earth[i] {
			changes = append(changes, Change{Class: Earth, Index: i, State: after.Earth[i]})
		}
	}
	return changes
}
