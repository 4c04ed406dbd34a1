package mol

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrUnknownAtom is returned by [Molecule.AddBond], [Molecule.SetStereo]
	// and [Molecule.Validate] when a bond or stereo descriptor references an
	// atom handle outside the arena.
	ErrUnknownAtom = errors.New("unknown atom")

	// ErrSelfLoop is returned when a bond connects an atom to itself.
	ErrSelfLoop = errors.New("bond connects an atom to itself")

	// ErrDuplicateBond is returned when two bonds connect the same pair of
	// atoms. Multiple bonds are expressed through [BondOrder], not repetition.
	ErrDuplicateBond = errors.New("duplicate bond")

	// ErrUnknownBond is returned by [Molecule.SetStereo] for an invalid bond handle.
	ErrUnknownBond = errors.New("unknown bond")

	// ErrInvalidStereo is returned when a cis/trans descriptor sits on a bond
	// that is not a double bond, or its reference atoms are not neighbours of
	// the corresponding bond ends.
	ErrInvalidStereo = errors.New("invalid stereo descriptor")

	// ErrInvalidCoordinate is returned by [Molecule.Validate] for a NaN or
	// infinite atom coordinate.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrDisconnected is returned by [Molecule.Validate] when the molecule has
	// several fragments but is not marked [Molecule.MultiFragment].
	ErrDisconnected = errors.New("molecule is disconnected")
)

// BondOrder is the chemical order of a bond.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

// String returns the lowercase name of the order.
func (o BondOrder) String() string {
	switch o {
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	case Aromatic:
		return "aromatic"
	}
	return fmt.Sprintf("order(%d)", int(o))
}

// StereoClass distinguishes the two double-bond configurations.
type StereoClass int

const (
	// Cis places the reference atoms on the same side of the double bond.
	Cis StereoClass = iota + 1
	// Trans places the reference atoms on opposite sides.
	Trans
)

// String returns "cis" or "trans".
func (c StereoClass) String() string {
	switch c {
	case Cis:
		return "cis"
	case Trans:
		return "trans"
	}
	return "none"
}

// Stereo is a cis/trans descriptor attached to a double bond A=B.
// RefA must be a neighbour of A and RefB a neighbour of B (neither may be the
// other bond end).
type Stereo struct {
	Class StereoClass
	RefA  int
	RefB  int
}

// Atom is a vertex of the molecular graph.
//
// Symbol and Charge are carried for readers and renderers; the layout only
// reads connectivity and writes Pos. HasPos distinguishes the origin from an
// absent coordinate.
type Atom struct {
	Symbol string
	Charge int
	Pos    r2.Vec
	HasPos bool
}

// Bond is an edge of the molecular graph. A and B are atom handles.
type Bond struct {
	A, B   int
	Order  BondOrder
	Stereo *Stereo // nil when the bond carries no cis/trans descriptor
}

// Other returns the bond end that is not atom.
func (b Bond) Other(atom int) int {
	if b.A == atom {
		return b.B
	}
	return b.A
}

// Molecule is an arena of atoms and bonds addressed by stable integer
// handles. Handles are dense indices assigned in insertion order and never
// reused; atoms and bonds are never removed.
//
// The zero value is an empty, usable molecule. Molecule is not safe for
// concurrent mutation.
type Molecule struct {
	// Name is a free-form label used for output file names and cache keys.
	Name string
	// MultiFragment marks a molecule that is allowed to consist of several
	// disconnected fragments (salts, mixtures). Unmarked molecules must be
	// connected.
	MultiFragment bool

	atoms []Atom
	bonds []Bond
	adj   [][]int // atom -> incident bond handles, insertion order
}

// New creates an empty molecule with the given name.
func New(name string) *Molecule {
	return &Molecule{Name: name}
}

// AddAtom appends an atom and returns its handle.
func (m *Molecule) AddAtom(a Atom) int {
	m.atoms = append(m.atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.atoms) - 1
}

// AddBond appends a bond between two existing atoms and returns its handle.
// A zero Order is stored as [Single]. Returns [ErrUnknownAtom],
// [ErrSelfLoop] or [ErrDuplicateBond] when the bond would corrupt the graph;
// the molecule is unchanged in that case. A non-nil Stereo is checked as by
// [Molecule.SetStereo].
func (m *Molecule) AddBond(b Bond) (int, error) {
	if !m.validAtom(b.A) {
		return -1, fmt.Errorf("atom %d: %w", b.A, ErrUnknownAtom)
	}
	if !m.validAtom(b.B) {
		return -1, fmt.Errorf("atom %d: %w", b.B, ErrUnknownAtom)
	}
	if b.A == b.B {
		return -1, fmt.Errorf("atom %d: %w", b.A, ErrSelfLoop)
	}
	if _, ok := m.BondBetween(b.A, b.B); ok {
		return -1, fmt.Errorf("atoms %d-%d: %w", b.A, b.B, ErrDuplicateBond)
	}
	if b.Order == 0 {
		b.Order = Single
	}
	st := b.Stereo
	b.Stereo = nil
	m.bonds = append(m.bonds, b)
	id := len(m.bonds) - 1
	m.adj[b.A] = append(m.adj[b.A], id)
	m.adj[b.B] = append(m.adj[b.B], id)
	if st != nil {
		if err := m.SetStereo(id, *st); err != nil {
			m.bonds = m.bonds[:id]
			m.adj[b.A] = m.adj[b.A][:len(m.adj[b.A])-1]
			m.adj[b.B] = m.adj[b.B][:len(m.adj[b.B])-1]
			return -1, err
		}
	}
	return id, nil
}

// SetStereo attaches a cis/trans descriptor to a double bond.
func (m *Molecule) SetStereo(bond int, s Stereo) error {
	if bond < 0 || bond >= len(m.bonds) {
		return fmt.Errorf("bond %d: %w", bond, ErrUnknownBond)
	}
	if err := m.checkStereo(bond, s); err != nil {
		return err
	}
	m.bonds[bond].Stereo = &s
	return nil
}

func (m *Molecule) checkStereo(bond int, s Stereo) error {
	b := m.bonds[bond]
	if b.Order != Double {
		return fmt.Errorf("bond %d is %s: %w", bond, b.Order, ErrInvalidStereo)
	}
	if s.Class != Cis && s.Class != Trans {
		return fmt.Errorf("bond %d: class %d: %w", bond, s.Class, ErrInvalidStereo)
	}
	if !m.validAtom(s.RefA) || !m.validAtom(s.RefB) {
		return fmt.Errorf("bond %d references: %w", bond, ErrUnknownAtom)
	}
	if s.RefA == b.B || s.RefB == b.A {
		return fmt.Errorf("bond %d: reference is a bond end: %w", bond, ErrInvalidStereo)
	}
	if _, ok := m.BondBetween(b.A, s.RefA); !ok {
		return fmt.Errorf("bond %d: atom %d is not bonded to %d: %w", bond, s.RefA, b.A, ErrInvalidStereo)
	}
	if _, ok := m.BondBetween(b.B, s.RefB); !ok {
		return fmt.Errorf("bond %d: atom %d is not bonded to %d: %w", bond, s.RefB, b.B, ErrInvalidStereo)
	}
	return nil
}

func (m *Molecule) validAtom(i int) bool { return i >= 0 && i < len(m.atoms) }

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.bonds) }

// Atom returns a copy of the atom with the given handle.
// It panics if the handle is out of range.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// Bond returns a copy of the bond with the given handle.
// It panics if the handle is out of range.
func (m *Molecule) Bond(i int) Bond { return m.bonds[i] }

// Bonds returns a copy of all bonds in insertion order.
func (m *Molecule) Bonds() []Bond { return slices.Clone(m.bonds) }

// IncidentBonds returns the handles of the bonds touching atom i in
// insertion order. The returned slice must not be modified.
func (m *Molecule) IncidentBonds(i int) []int { return m.adj[i] }

// Neighbors returns the atoms bonded to atom i, in bond insertion order.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, len(m.adj[i]))
	for k, b := range m.adj[i] {
		out[k] = m.bonds[b].Other(i)
	}
	return out
}

// Degree returns the number of bonds touching atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// BondBetween returns the handle of the bond joining a and b.
func (m *Molecule) BondBetween(a, b int) (int, bool) {
	if !m.validAtom(a) || !m.validAtom(b) {
		return -1, false
	}
	// Scan the shorter list; degrees are small.
	if len(m.adj[a]) > len(m.adj[b]) {
		a, b = b, a
	}
	for _, id := range m.adj[a] {
		if m.bonds[id].Other(a) == b {
			return id, true
		}
	}
	return -1, false
}

// Pos returns the coordinate of atom i and whether it has one.
func (m *Molecule) Pos(i int) (r2.Vec, bool) {
	return m.atoms[i].Pos, m.atoms[i].HasPos
}

// SetPos assigns a coordinate to atom i.
func (m *Molecule) SetPos(i int, p r2.Vec) {
	m.atoms[i].Pos = p
	m.atoms[i].HasPos = true
}

// AllPlaced reports whether every atom carries a coordinate.
// An empty molecule is trivially placed.
func (m *Molecule) AllPlaced() bool {
	for _, a := range m.atoms {
		if !a.HasPos {
			return false
		}
	}
	return true
}

// Coords returns a snapshot of all atom positions. Atoms without a
// coordinate contribute the zero vector.
func (m *Molecule) Coords() []r2.Vec {
	out := make([]r2.Vec, len(m.atoms))
	for i, a := range m.atoms {
		out[i] = a.Pos
	}
	return out
}

// MeanBondLength returns the mean length of bonds whose two ends both carry
// coordinates, and false when there is no such bond.
func (m *Molecule) MeanBondLength() (float64, bool) {
	var sum float64
	var n int
	for _, b := range m.bonds {
		pa, oka := m.Pos(b.A)
		pb, okb := m.Pos(b.B)
		if !oka || !okb {
			continue
		}
		sum += r2.Norm(r2.Sub(pa, pb))
		n++
	}
	if n == 0 || sum == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Clone returns a deep copy of the molecule.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Name:          m.Name,
		MultiFragment: m.MultiFragment,
		atoms:         slices.Clone(m.atoms),
		bonds:         slices.Clone(m.bonds),
		adj:           make([][]int, len(m.adj)),
	}
	for i := range c.bonds {
		if s := c.bonds[i].Stereo; s != nil {
			cp := *s
			c.bonds[i].Stereo = &cp
		}
	}
	for i, a := range m.adj {
		c.adj[i] = slices.Clone(a)
	}
	return c
}

// Validate checks graph integrity and returns nil if valid.
// It verifies that:
//
//  1. Every bond connects two distinct, existing atoms
//  2. No pair of atoms is bonded twice
//  3. Stereo descriptors sit on double bonds and reference neighbours
//  4. Coordinates, when present, are finite
//  5. The molecule is connected, unless MultiFragment is set
//
// Molecules built only through [Molecule.AddBond] satisfy the first three by
// construction; Validate exists for graphs assembled by decoders and for the
// layout entry point, which refuses to run on a malformed graph.
func (m *Molecule) Validate() error {
	seen := make(map[[2]int]bool, len(m.bonds))
	for i, b := range m.bonds {
		if !m.validAtom(b.A) || !m.validAtom(b.B) {
			return fmt.Errorf("bond %d: %w", i, ErrUnknownAtom)
		}
		if b.A == b.B {
			return fmt.Errorf("bond %d on atom %d: %w", i, b.A, ErrSelfLoop)
		}
		key := [2]int{min(b.A, b.B), max(b.A, b.B)}
		if seen[key] {
			return fmt.Errorf("atoms %d-%d: %w", key[0], key[1], ErrDuplicateBond)
		}
		seen[key] = true
		if b.Stereo != nil {
			if err := m.checkStereo(i, *b.Stereo); err != nil {
				return err
			}
		}
	}
	for i, a := range m.atoms {
		if a.HasPos && !finite(a.Pos) {
			return fmt.Errorf("atom %d has non-finite coordinate %v: %w", i, a.Pos, ErrInvalidCoordinate)
		}
	}
	if !m.MultiFragment && len(m.atoms) > 0 {
		if frags := m.Fragments(); len(frags) > 1 {
			return fmt.Errorf("%d fragments (atom %d is not reachable from atom 0): %w",
				len(frags), frags[1][0], ErrDisconnected)
		}
	}
	return nil
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
