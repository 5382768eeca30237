package abacus

import (
	"fmt"
	"strings"
)

// Bead counts per rod.
const (
	HeavenBeads = 2
	EarthBeads  = 5

	// HeavenValue is what one active heaven bead contributes to its rod.
	HeavenValue = 5

	// MaxRods is the widest abacus whose value still fits in an int64.
	MaxRods = 18
)

// Heaven bead indices.
const (
	UpperHeaven = 0
	LowerHeaven = 1
)

// BeadClass identifies which side of the beam a bead lives on.
type BeadClass string

const (
	Heaven BeadClass = "heaven"
	Earth  BeadClass = "earth"
)

// Valid reports whether c is one of the two recognised bead classes.
func (c BeadClass) Valid() bool {
	return c == Heaven || c == Earth
}

// Beads returns the number of beads of class c on one rod, or 0 for an unknown class.
func (c BeadClass) Beads() int {
	switch c {
	case Heaven:
		return HeavenBeads
	case Earth:
		return EarthBeads
	default:
		return 0
	}
}

// ParseBeadClass converts a user-supplied class name into a BeadClass.
// It accepts the full names and the one-letter forms "h" and "e", case-insensitively.
func ParseBeadClass(s string) (BeadClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heaven", "h":
		return Heaven, nil
	case "earth", "e":
		return Earth, nil
	default:
		return "", fmt.Errorf("bead class %q: %w", s, ErrInvalidArgument)
	}
}

// Position is the state of a single bead.
type Position uint8

const (
	// Inactive beads rest away from the beam and count for nothing.
	Inactive Position = 0
	// Active beads touch the beam and count toward the rod value.
	Active Position = 1
)

// Flip returns the opposite position.
func (p Position) Flip() Position {
	if p == Active {
		return Inactive
	}
	return Active
}

// Change is one bead movement on a single rod.
type Change struct {
	Class BeadClass `json:"class" yaml:"class"`
	Index int       `json:"index" yaml:"index"`
	State Position  `json:"state" yaml:"state"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s[%d]=%d", c.Class, c.Index, c.State)
}

// CarryReason names why a carry instruction was produced.
type CarryReason string

// ReasonTensCarry marks a rod that reached ten and reset itself.
const ReasonTensCarry CarryReason = "tens-carry"

// CarryInstruction asks the caller to add one unit to TargetRod.
// TargetRod is -1 when the leftmost rod overflowed.
type CarryInstruction struct {
	TargetRod int         `json:"target_rod" yaml:"target_rod"`
	Class     BeadClass   `json:"class" yaml:"class"`
	Index     int         `json:"index" yaml:"index"`
	Reason    CarryReason `json:"reason" yaml:"reason"`
}

// Overflow reports whether the carry falls off the left edge of the abacus.
func (c CarryInstruction) Overflow() bool {
	return c.TargetRod < 0
}

func newTensCarry(fromRod int) *CarryInstruction {
	return &CarryInstruction{
		TargetRod: fromRod - 1,
		Class:     Earth,
		Index:     0,
		Reason:    ReasonTensCarry,
	}
}

// RodState is a read-only copy of one rod's beads.
type RodState struct {
	Heaven [HeavenBeads]Position `json:"heaven" yaml:"heaven,flow"`
	Earth  [EarthBeads]Position  `json:"earth" yaml:"earth,flow"`
}

// Value returns the rod's digit: five when any heaven bead is active, plus one
// per active earth bead. Transient states may exceed nine.
func (r RodState) Value() int {
	v := r.EarthCount()
	for _, p := range r.Heaven {
		if p == Active {
			v += HeavenValue
		}
	}
	return v
}

// EarthCount returns the number of active earth beads.
func (r RodState) EarthCount() int {
	n := 0
	for _, p := range r.Earth {
		if p == Active {
			n++
		}
	}
	return n
}

// Settled reports whether the rod satisfies the resting invariants: at most one
// active heaven bead, active earth beads forming a prefix from the beam, and a
// value below ten.
func (r RodState) Settled() bool {
	if r.Heaven[UpperHeaven] == Active && r.Heaven[LowerHeaven] == Active {
		return false
	}
	seenInactive := false
	for _, p := range r.Earth {
		if p == Inactive {
			seenInactive = true
		} else if seenInactive {
			return false
		}
	}
	return r.Value() <= 9
}

// Apply replays changes onto r in order.
// Changes with an unknown class or index are ignored.
func (r *RodState) Apply(changes []Change) {
	for _, c := range changes {
		switch c.Class {
		case Heaven:
			if c.Index >= 0 && c.Index < HeavenBeads {
				r.Heaven[c.Index] = c.State
			}
		case Earth:
			if c.Index >= 0 && c.Index < EarthBeads {
				r.Earth[c.Index] = c.State
			}
		}
	}
}

func (r RodState) get(class BeadClass, index int) Position {
	if class == Heaven {
		return r.Heaven[index]
	}
	return r.Earth[index]
}

func (r RodState) String() string {
	return fmt.Sprintf("Heaven: %v, Earth: %v", r.Heaven, r.Earth)
}
