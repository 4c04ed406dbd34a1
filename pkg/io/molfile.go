package io

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

// Molfile charge codes (atom block, ccc field).
var chargeFromCode = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// doubleEither is the V2000 bond stereo value for an unspecified double bond.
const doubleEither = 3

// ReadMolfile reads the first V2000 connection table from r. Reading stops
// at "M  END", so SD files are accepted and only their first record is used.
//
// V3000 connection tables are rejected. ReadMolfile does not close r.
func ReadMolfile(r io.Reader) (*mol.Molecule, error) {
	sc := bufio.NewScanner(r)
	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("read %s: %w", what, err)
			}
			return "", fmt.Errorf("%w: unexpected end of file in %s", ErrMalformed, what)
		}
		return strings.TrimRight(sc.Text(), "\r"), nil
	}

	name, err := next("header")
	if err != nil {
		return nil, err
	}
	for range 2 {
		if _, err := next("header"); err != nil {
			return nil, err
		}
	}
	counts, err := next("counts line")
	if err != nil {
		return nil, err
	}
	if strings.Contains(counts, "V3000") {
		return nil, fmt.Errorf("%w: V3000 connection table", ErrUnsupported)
	}
	na, err1 := field(counts, 0, 3)
	nb, err2 := field(counts, 3, 6)
	if err1 != nil || err2 != nil || na < 0 || nb < 0 {
		return nil, fmt.Errorf("%w: bad counts line %q", ErrMalformed, counts)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = generatedName()
	}
	atoms := make([]mol.Atom, na)
	nonZero := false
	for i := range atoms {
		line, err := next("atom block")
		if err != nil {
			return nil, err
		}
		if len(line) < 34 {
			return nil, fmt.Errorf("%w: atom %d: line too short", ErrMalformed, i+1)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(line[0:10]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[10:20]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: atom %d: bad coordinates", ErrMalformed, i+1)
		}
		atoms[i] = mol.Atom{Symbol: strings.TrimSpace(line[31:34])}
		if code, err := field(line, 36, 39); err == nil {
			atoms[i].Charge = chargeFromCode[code]
		}
		atoms[i].Pos.X, atoms[i].Pos.Y = x, y
		nonZero = nonZero || x != 0 || y != 0
	}

	type rawBond struct {
		bond   mol.Bond
		either bool
	}
	bonds := make([]rawBond, nb)
	for i := range bonds {
		line, err := next("bond block")
		if err != nil {
			return nil, err
		}
		a, errA := field(line, 0, 3)
		b, errB := field(line, 3, 6)
		order, errO := field(line, 6, 9)
		if errA != nil || errB != nil || errO != nil {
			return nil, fmt.Errorf("%w: bond %d: bad line %q", ErrMalformed, i+1, line)
		}
		if order < int(mol.Single) || order > int(mol.Aromatic) {
			return nil, fmt.Errorf("%w: bond %d: unsupported bond type %d", ErrMalformed, i+1, order)
		}
		bonds[i].bond = mol.Bond{A: a - 1, B: b - 1, Order: mol.BondOrder(order)}
		if st, err := field(line, 9, 12); err == nil && st == doubleEither {
			bonds[i].either = true
		}
	}

	if err := readProperties(sc, atoms); err != nil {
		return nil, err
	}

	m := mol.New(name)
	for _, a := range atoms {
		a.HasPos = nonZero
		m.AddAtom(a)
	}
	var either []int
	for i, rb := range bonds {
		id, err := m.AddBond(rb.bond)
		if err != nil {
			return nil, fmt.Errorf("bond %d (%d-%d): %w", i+1, rb.bond.A+1, rb.bond.B+1, err)
		}
		if rb.either {
			either = append(either, id)
		}
	}
	if nonZero {
		if err := perceiveStereo(m, either); err != nil {
			return nil, err
		}
	}
	m.MultiFragment = len(m.Fragments()) > 1
	return m, nil
}

// readProperties consumes the properties block up to "M  END". "M  CHG"
// lines replace every charge given in the atom block.
func readProperties(sc *bufio.Scanner, atoms []mol.Atom) error {
	reset := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "M  END") {
			return nil
		}
		if !strings.HasPrefix(line, "M  CHG") {
			continue
		}
		if !reset {
			for i := range atoms {
				atoms[i].Charge = 0
			}
			reset = true
		}
		f := strings.Fields(line[6:])
		if len(f) == 0 {
			return fmt.Errorf("%w: empty M  CHG line", ErrMalformed)
		}
		n, err := strconv.Atoi(f[0])
		if err != nil || len(f) < 1+2*n {
			return fmt.Errorf("%w: bad M  CHG line %q", ErrMalformed, line)
		}
		for k := range n {
			idx, err1 := strconv.Atoi(f[1+2*k])
			chg, err2 := strconv.Atoi(f[2+2*k])
			if err1 != nil || err2 != nil || idx < 1 || idx > len(atoms) {
				return fmt.Errorf("%w: bad M  CHG line %q", ErrMalformed, line)
			}
			atoms[idx-1].Charge = chg
		}
	}
	return sc.Err()
}

// perceiveStereo attaches cis/trans descriptors to acyclic double bonds
// whose ends both carry a substituent, read off the 2D coordinates. Bonds
// flagged "either" and collinear arrangements are left alone.
func perceiveStereo(m *mol.Molecule, either []int) error {
	inRing := make(map[[2]int]bool)
	for _, ring := range m.SSSR() {
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			inRing[[2]int{min(a, b), max(a, b)}] = true
		}
	}
	skip := make(map[int]bool, len(either))
	for _, id := range either {
		skip[id] = true
	}

	for id := range m.NumBonds() {
		b := m.Bond(id)
		if b.Order != mol.Double || skip[id] || inRing[[2]int{min(b.A, b.B), max(b.A, b.B)}] {
			continue
		}
		ra, okA := firstOther(m, b.A, b.B)
		rb, okB := firstOther(m, b.B, b.A)
		if !okA || !okB {
			continue
		}
		pa, _ := m.Pos(b.A)
		pb, _ := m.Pos(b.B)
		qa, _ := m.Pos(ra)
		qb, _ := m.Pos(rb)
		sa, sb := geom.Side(pa, pb, qa), geom.Side(pa, pb, qb)
		if math.Abs(sa) < geom.Eps || math.Abs(sb) < geom.Eps {
			continue
		}
		class := mol.Trans
		if (sa > 0) == (sb > 0) {
			class = mol.Cis
		}
		if err := m.SetStereo(id, mol.Stereo{Class: class, RefA: ra, RefB: rb}); err != nil {
			return fmt.Errorf("bond %d stereo: %w", id+1, err)
		}
	}
	return nil
}

// firstOther returns the lowest-handle neighbour of a other than b.
func firstOther(m *mol.Molecule, a, b int) (int, bool) {
	best := -1
	for _, w := range m.Neighbors(a) {
		if w != b && (best < 0 || w < best) {
			best = w
		}
	}
	return best, best >= 0
}

// field parses the fixed-width integer column line[from:to]. Short lines
// are an error.
func field(line string, from, to int) (int, error) {
	if len(line) < to {
		if len(line) <= from {
			return 0, fmt.Errorf("column %d-%d missing", from+1, to)
		}
		to = len(line)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}

// WriteMolfile writes m as a V2000 molfile. Atoms without a coordinate are
// written at the origin. Charges go to both the atom block and "M  CHG".
func WriteMolfile(m *mol.Molecule, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n  chemlayout          2D\n\n", m.Name)
	fmt.Fprintf(bw, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", m.NumAtoms(), m.NumBonds())

	codeFromCharge := make(map[int]int, len(chargeFromCode))
	for code, chg := range chargeFromCode {
		codeFromCharge[chg] = code
	}
	var charged []int
	for i := range m.NumAtoms() {
		a := m.Atom(i)
		p, _ := m.Pos(i)
		if a.Charge != 0 {
			charged = append(charged, i)
		}
		fmt.Fprintf(bw, "%10.4f%10.4f%10.4f %-3s 0%3d  0  0  0  0  0  0  0  0  0  0\n",
			p.X, p.Y, 0.0, a.Symbol, codeFromCharge[a.Charge])
	}
	for i := range m.NumBonds() {
		b := m.Bond(i)
		fmt.Fprintf(bw, "%3d%3d%3d  0\n", b.A+1, b.B+1, int(b.Order))
	}
	for start := 0; start < len(charged); start += 8 {
		chunk := charged[start:min(start+8, len(charged))]
		fmt.Fprintf(bw, "M  CHG%3d", len(chunk))
		for _, i := range chunk {
			fmt.Fprintf(bw, " %3d %3d", i+1, m.Atom(i).Charge)
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "M  END")
	return bw.Flush()
}
