// Package mol provides the molecular graph model consumed by the layout
// engine: an arena of atoms and bonds addressed by stable integer handles.
//
// # Overview
//
// Atoms and bonds live in flat slices and refer to each other by index, so
// the graph has no cyclic ownership and every neighbour lookup is a slice
// walk. Handles are assigned in insertion order and never reused.
//
//	m := mol.New("ethene")
//	a := m.AddAtom(mol.Atom{Symbol: "C"})
//	b := m.AddAtom(mol.Atom{Symbol: "C"})
//	m.AddBond(mol.Bond{A: a, B: b, Order: mol.Double})
//
// [Molecule.AddBond] rejects dangling endpoints, self-loops and duplicate
// bonds up front. [Molecule.Validate] re-checks a complete graph and also
// enforces connectivity unless [Molecule.MultiFragment] is set.
//
// # Coordinates
//
// Each atom carries an optional 2D position ([Atom.HasPos]). Positions are
// gonum [r2.Vec] values so geometry code can use the r2 vector helpers
// directly.
//
// # Rings
//
// [Molecule.SSSR] computes the smallest set of smallest rings and
// [RingSystems] groups them into fused, spiro and bridged systems. Both are
// derived on demand and never cached on the molecule: callers that mutate
// connectivity simply recompute them. [Molecule.Fragments] returns the
// connected components.
//
// # Concurrency
//
// A Molecule is not safe for concurrent mutation. Distinct molecules share
// nothing and may be processed in parallel.
//
// [r2.Vec]: gonum.org/v1/gonum/spatial/r2.Vec
package mol
