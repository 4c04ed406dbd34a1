// Package layout generates 2D depiction coordinates for molecular graphs.
//
// [Generate] takes a [mol.Molecule] with or without coordinates and writes a
// planar drawing into it: bonds close to one target length, rings as regular
// polygons, chains as zig-zags, no two atoms on top of each other.
//
// # Phases
//
// Each connected fragment is laid out in four phases:
//
//  1. Rings. Every ring system is drawn in a local frame. Cages that match
//     the template catalog (package templates) take the stored projection;
//     the rest are built ring by ring, largest first, fusing each new ring
//     onto the atoms already drawn (spiro, shared edge or bridge).
//  2. Chains. A breadth-first walk from the largest ring system (or from
//     atom 0 of an acyclic fragment) places acyclic atoms in the largest free
//     angular gap of their parent and attaches further ring systems rigidly.
//     Double bonds with a cis/trans descriptor put their reference atoms on
//     the requested side.
//  3. Collisions. Non-bonded atoms closer than [CollisionDistance] are
//     separated by reflecting a substituent across an acyclic bond that
//     carries no cis/trans descriptor, or pushed apart when no flip helps.
//     A push never moves a bond out of [BondTolerance].
//  4. Refinement. Steepest descent on bond springs, angle springs and a
//     short-range repulsion polishes the drawing.
//
// Fragments of a molecule marked MultiFragment are laid out independently
// and arranged left to right, two bond lengths apart.
//
// # Results
//
// Contract violations return a *errors.Error and leave the molecule
// untouched. Everything else produces coordinates; a [Report] records how
// good they are (degraded ring systems, residual collisions, convergence,
// bond length statistics).
//
//	r, err := layout.Generate(m, layout.Options{BondLength: 1.5})
//	if err != nil {
//	    return err
//	}
//	if r.Degraded() {
//	    log.Warn("layout degraded", "molecule", m.Name)
//	}
//
// The layout is deterministic: the same molecule and options always yield
// the same coordinates.
package layout
