// Package abacus implements the bead-state engine of a two-five bead abacus.
//
// The package contains only pure Go code with standard library imports. It has
// no knowledge of rendering, input devices, timers or persistence; those belong
// to its callers.
//
// # Layout
//
// An Engine owns a fixed number of rods. Rod 0 is the leftmost (highest place
// value) and rod N-1 holds the units. Every rod carries two heaven beads worth
// five each and five earth beads worth one each. A bead is Active when it has
// been moved against the beam.
//
// # Toggling
//
// Engine.Toggle flips one bead and returns the ordered list of Change values
// needed to reproduce the result on a copy of the rod, plus an optional
// CarryInstruction when the rod rolled over ten. Earth beads ripple: pushing a
// bead toward the beam pushes every bead between it and the beam, and pulling
// one away pulls every bead behind it. Five active earth beads convert into the
// lower heaven bead; two active heaven beads (or a heaven five plus five earth
// beads) reset the rod and produce a tens-carry.
//
// # Carries
//
// The engine resolves exactly one rod per call. It never touches the rod named
// by a CarryInstruction; chaining carries across rods, delaying them for
// animation, or dropping an overflow off the leftmost rod is left to the
// caller (see package carry).
package abacus
