package layout

import (
	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/templates"
)

// pairKey identifies the angle pair (a, b) around centre atom c, with a < b.
type pairKey struct{ c, a, b int }

func newPairKey(c, a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{c, a, b}
}

// state is the working set of one layout run over one connected fragment.
type state struct {
	m    *mol.Molecule
	L    float64
	tmpl *templates.Library
	log  *log.Logger

	pos      []r2.Vec
	has      []bool // coordinate assigned, possibly in a system's local frame
	anchored []bool // coordinate final in the molecule frame

	rings     []mol.Ring
	systems   []mol.RingSystem
	sysOf     []int  // ring system per atom, -1 for chain atoms
	templated []bool // per system
	degraded  []bool // per system
	ringBond  []bool // per bond

	// pairTarget is the Phase 1 distance between two ring neighbours of a
	// ring atom, in bond lengths.
	pairTarget map[pairKey]float64

	report *Report
}

func newState(m *mol.Molecule, bondLength float64, opts Options) *state {
	n := m.NumAtoms()
	s := &state{
		m:          m,
		L:          bondLength,
		tmpl:       opts.Templates,
		log:        opts.Logger,
		pos:        make([]r2.Vec, n),
		has:        make([]bool, n),
		anchored:   make([]bool, n),
		sysOf:      make([]int, n),
		ringBond:   make([]bool, m.NumBonds()),
		pairTarget: make(map[pairKey]float64),
		report:     &Report{BondLength: bondLength, Atoms: n, Bonds: m.NumBonds(), Fragments: 1},
	}
	for i := range s.sysOf {
		s.sysOf[i] = -1
	}
	return s
}

func (s *state) bonded(a, b int) bool {
	_, ok := s.m.BondBetween(a, b)
	return ok
}

// linear reports whether atom v wants a straight 180° geometry: it carries a
// triple bond or two double bonds (allenes, ketenes).
func (s *state) linear(v int) bool {
	doubles := 0
	for _, id := range s.m.IncidentBonds(v) {
		switch s.m.Bond(id).Order {
		case mol.Triple:
			return true
		case mol.Double:
			doubles++
		}
	}
	return doubles >= 2
}

func (s *state) positions(atoms []int) []r2.Vec {
	out := make([]r2.Vec, len(atoms))
	for i, a := range atoms {
		out[i] = s.pos[a]
	}
	return out
}
