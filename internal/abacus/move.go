package abacus

// move simulates one toggle on a copy of a rod, recording every bead that
// moves along the way.
type move struct {
	rod     int
	state   RodState
	changes []Change
	carry   *CarryInstruction
}

// set moves one bead and records it. Beads already in place are skipped.
func (m *move) set(class BeadClass, index int, p Position) {
	if m.state.get(class, index) == p {
		return
	}
	switch class {
	case Heaven:
		m.state.Heaven[index] = p
	case Earth:
		m.state.Earth[index] = p
	}
	m.changes = append(m.changes, Change{Class: class, Index: index, State: p})
}

func (m *move) clearHeaven() {
	for i := range HeavenBeads {
		m.set(Heaven, i, Inactive)
	}
}

func (m *move) clearEarth() {
	for i := range EarthBeads {
		m.set(Earth, i, Inactive)
	}
}

// tensCarry resets the heaven beads and owes one unit to the rod on the left.
func (m *move) tensCarry() {
	m.clearHeaven()
	m.carry = newTensCarry(m.rod)
}

func (m *move) toggleHeaven(index int) {
	upper := m.state.Heaven[UpperHeaven] == Active
	lower := m.state.Heaven[LowerHeaven] == Active

	if index == LowerHeaven {
		if !lower {
			m.set(Heaven, LowerHeaven, Active)
			if upper {
				m.tensCarry()
			}
			return
		}
		m.set(Heaven, LowerHeaven, Inactive)
		m.set(Heaven, UpperHeaven, Inactive)
		return
	}

	// The upper bead never rests alone against the beam, so pushing it is a
	// request for five more on top of whatever the lower bead shows.
	switch {
	case upper:
		m.set(Heaven, UpperHeaven, Inactive)
	case lower:
		m.set(Heaven, UpperHeaven, Active)
		m.tensCarry()
	default:
		m.set(Heaven, UpperHeaven, Active)
		m.set(Heaven, LowerHeaven, Active)
		m.tensCarry()
	}
}

func (m *move) toggleEarth(index int) {
	if m.state.Earth[index] == Inactive {
		for i := 0; i <= index; i++ {
			m.set(Earth, i, Active)
		}
	} else {
		for i := index; i < EarthBeads; i++ {
			m.set(Earth, i, Inactive)
		}
	}

	if m.state.EarthCount() < EarthBeads {
		return
	}
	if m.state.Heaven[LowerHeaven] == Inactive {
		// Five earth beads become the lower heaven bead; the digit is unchanged.
		m.clearEarth()
		m.set(Heaven, LowerHeaven, Active)
		m.set(Heaven, UpperHeaven, Inactive)
		return
	}
	m.clearHeaven()
	m.clearEarth()
	m.carry = newTensCarry(m.rod)
}

// settle resets the rod and carries if it still shows ten or more and no
// carry has been produced yet.
func (m *move) settle() {
	if m.carry != nil || m.state.Value() < 10 {
		return
	}
	m.clearHeaven()
	m.clearEarth()
	m.carry = newTensCarry(m.rod)
}
