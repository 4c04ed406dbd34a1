// Package moltest builds small reference molecules for tests.
//
// Every builder returns a fresh molecule without coordinates. Atom handles
// follow the order documented on each builder so tests can address specific
// atoms.
package moltest

import (
	"fmt"

	"github.com/matzehuels/chemlayout/pkg/mol"
)

// Build creates a carbon skeleton with n atoms and the given bonds.
// It panics on invalid bonds; fixtures are static.
func Build(name string, n int, bonds ...[2]int) *mol.Molecule {
	m := mol.New(name)
	for range n {
		m.AddAtom(mol.Atom{Symbol: "C"})
	}
	for _, b := range bonds {
		MustBond(m, b[0], b[1], mol.Single)
	}
	return m
}

// MustBond adds a bond and panics on error.
func MustBond(m *mol.Molecule, a, b int, order mol.BondOrder) int {
	id, err := m.AddBond(mol.Bond{A: a, B: b, Order: order})
	if err != nil {
		panic(fmt.Sprintf("moltest: bond %d-%d: %v", a, b, err))
	}
	return id
}

// Cycle returns the bonds of the ring through atoms in order.
func Cycle(atoms ...int) [][2]int {
	out := make([][2]int, len(atoms))
	for i := range atoms {
		out[i] = [2]int{atoms[i], atoms[(i+1)%len(atoms)]}
	}
	return out
}

// Chain returns an unbranched chain 0-1-...-(n-1).
func Chain(n int) *mol.Molecule {
	var bonds [][2]int
	for i := 0; i+1 < n; i++ {
		bonds = append(bonds, [2]int{i, i + 1})
	}
	return Build(fmt.Sprintf("chain-%d", n), n, bonds...)
}

// Ring returns a single n-membered ring 0..n-1.
func Ring(n int) *mol.Molecule {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return Build(fmt.Sprintf("ring-%d", n), n, Cycle(ids...)...)
}

// Benzene returns a six-membered ring with alternating double bonds.
func Benzene() *mol.Molecule {
	m := mol.New("benzene")
	for range 6 {
		m.AddAtom(mol.Atom{Symbol: "C"})
	}
	for i := range 6 {
		order := mol.Single
		if i%2 == 0 {
			order = mol.Double
		}
		MustBond(m, i, (i+1)%6, order)
	}
	return m
}

// Naphthalene returns two six-membered rings fused on bond 4-5:
// ring 0-1-2-3-4-5 and ring 4-6-7-8-9-5.
func Naphthalene() *mol.Molecule {
	bonds := Cycle(0, 1, 2, 3, 4, 5)
	bonds = append(bonds, [2]int{4, 6}, [2]int{6, 7}, [2]int{7, 8}, [2]int{8, 9}, [2]int{9, 5})
	return Build("naphthalene", 10, bonds...)
}

// Cubane returns the cube graph: faces 0-1-3-2, 4-5-7-6 and so on, with
// atom i bonded to every atom whose index differs in exactly one bit.
func Cubane() *mol.Molecule {
	var bonds [][2]int
	for i := range 8 {
		for _, bit := range []int{1, 2, 4} {
			if j := i ^ bit; j > i {
				bonds = append(bonds, [2]int{i, j})
			}
		}
	}
	return Build("cubane", 8, bonds...)
}

// Norbornane returns bicyclo[2.2.1]heptane: the six-ring 0-1-2-3-4-5 bridged
// by atom 6 between bridgeheads 0 and 3.
func Norbornane() *mol.Molecule {
	bonds := Cycle(0, 1, 2, 3, 4, 5)
	bonds = append(bonds, [2]int{0, 6}, [2]int{6, 3})
	return Build("norbornane", 7, bonds...)
}

// Adamantane returns the tricyclic cage: bridgeheads 0-3, methylenes 4-9.
func Adamantane() *mol.Molecule {
	return Build("adamantane", 10,
		[2]int{0, 4}, [2]int{0, 6}, [2]int{0, 8},
		[2]int{1, 4}, [2]int{1, 7}, [2]int{1, 9},
		[2]int{2, 5}, [2]int{2, 6}, [2]int{2, 9},
		[2]int{3, 5}, [2]int{3, 7}, [2]int{3, 8},
	)
}

// Biphenyl returns two benzene rings 0-5 and 6-11 joined by bond 0-6.
func Biphenyl() *mol.Molecule {
	bonds := Cycle(0, 1, 2, 3, 4, 5)
	bonds = append(bonds, Cycle(6, 7, 8, 9, 10, 11)...)
	bonds = append(bonds, [2]int{0, 6})
	return Build("biphenyl", 12, bonds...)
}

// Spiro returns spiro[4.5]decane: a five-ring 0-1-2-3-4 and a six-ring
// 0-5-6-7-8-9 sharing atom 0.
func Spiro() *mol.Molecule {
	bonds := Cycle(0, 1, 2, 3, 4)
	bonds = append(bonds, Cycle(0, 5, 6, 7, 8, 9)...)
	return Build("spiro[4.5]decane", 10, bonds...)
}

// Neopentane returns a central atom 0 bonded to atoms 1-4.
func Neopentane() *mol.Molecule {
	return Build("neopentane", 5, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4})
}

// Dendron returns a tree of depth levels below atom 0: the centre has three
// branches and every further atom splits in two. Atoms are numbered level by
// level.
func Dendron(depth int) *mol.Molecule {
	var bonds [][2]int
	n, level := 1, []int{0}
	for d := range depth {
		fan := 2
		if d == 0 {
			fan = 3
		}
		var next []int
		for _, p := range level {
			for range fan {
				bonds = append(bonds, [2]int{p, n})
				next = append(next, n)
				n++
			}
		}
		level = next
	}
	return Build(fmt.Sprintf("dendron-%d", depth), n, bonds...)
}

// TertButylEthylene returns cis- or trans-1,2-di-tert-butylethylene: the
// double bond 0=1 carries quaternary carbons 2 (on 0) and 3 (on 1), each with
// three methyls (4-6 on 2, 7-9 on 3). The descriptor references 2 and 3.
func TertButylEthylene(class mol.StereoClass) *mol.Molecule {
	m := Build(class.String()+"-di-tert-butylethylene", 10,
		[2]int{0, 2}, [2]int{1, 3},
		[2]int{2, 4}, [2]int{2, 5}, [2]int{2, 6},
		[2]int{3, 7}, [2]int{3, 8}, [2]int{3, 9})
	db := MustBond(m, 0, 1, mol.Double)
	if err := m.SetStereo(db, mol.Stereo{Class: class, RefA: 2, RefB: 3}); err != nil {
		panic(err)
	}
	return m
}

// Butene returns 2-butene 0-1=2-3 with the given cis/trans descriptor on the
// double bond, referencing the terminal atoms.
func Butene(class mol.StereoClass) *mol.Molecule {
	m := Build(class.String()+"-2-butene", 4, [2]int{0, 1})
	db := MustBond(m, 1, 2, mol.Double)
	MustBond(m, 2, 3, mol.Single)
	if err := m.SetStereo(db, mol.Stereo{Class: class, RefA: 0, RefB: 3}); err != nil {
		panic(err)
	}
	return m
}

// Hexyne returns hex-3-yne 0-1-2#3-4-5.
func Hexyne() *mol.Molecule {
	m := Build("hex-3-yne", 6, [2]int{0, 1}, [2]int{1, 2})
	MustBond(m, 2, 3, mol.Triple)
	MustBond(m, 3, 4, mol.Single)
	MustBond(m, 4, 5, mol.Single)
	return m
}

// Steroid returns the gonane skeleton: three six-rings and a five-ring fused
// in the usual 6-6-6-5 arrangement (17 atoms).
func Steroid() *mol.Molecule {
	bonds := Cycle(0, 1, 2, 3, 4, 5)
	bonds = append(bonds,
		[2]int{4, 6}, [2]int{6, 7}, [2]int{7, 8}, [2]int{8, 9}, [2]int{9, 5},
		[2]int{8, 10}, [2]int{10, 11}, [2]int{11, 12}, [2]int{12, 13}, [2]int{13, 7},
		[2]int{12, 14}, [2]int{14, 15}, [2]int{15, 16}, [2]int{16, 13},
	)
	return Build("gonane", 17, bonds...)
}
