package io

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/matzehuels/chemlayout/pkg/errors"
	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

var (
	// ErrMalformed is returned when input cannot be decoded into a molecule.
	ErrMalformed = stderrors.New("malformed molecule")

	// ErrUnsupported is returned for well-formed input using a feature the
	// readers do not implement, such as V3000 connection tables.
	ErrUnsupported = stderrors.New("unsupported input")
)

type molecule struct {
	Name          string         `json:"name"`
	MultiFragment bool           `json:"multi_fragment,omitempty"`
	Atoms         []atom         `json:"atoms"`
	Bonds         []bond         `json:"bonds"`
	Report        *layout.Report `json:"report,omitempty"`
}

type atom struct {
	Symbol string   `json:"symbol"`
	Charge int      `json:"charge,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
}

type bond struct {
	A      int     `json:"a"`
	B      int     `json:"b"`
	Order  int     `json:"order,omitempty"`
	Stereo *stereo `json:"stereo,omitempty"`
}

type stereo struct {
	Class string `json:"class"`
	RefA  int    `json:"ref_a"`
	RefB  int    `json:"ref_b"`
}

var classFromString = map[string]mol.StereoClass{
	"cis":   mol.Cis,
	"trans": mol.Trans,
}

// ReadJSON decodes a JSON molecule from r.
//
// Structural problems (unknown atom index, self-loop, duplicate bond,
// invalid stereo descriptor) are returned wrapping the corresponding mol
// sentinel error; everything else wraps [ErrMalformed]. Connectivity is not
// checked here; layout.Generate does that.
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*mol.Molecule, error) {
	var data molecule
	dec := json.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrMalformed, err)
	}
	if err := errors.ValidateMoleculeName(data.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	name := data.Name
	if name == "" {
		name = generatedName()
	}
	m := mol.New(name)
	m.MultiFragment = data.MultiFragment

	for i, a := range data.Atoms {
		at := mol.Atom{Symbol: a.Symbol, Charge: a.Charge}
		if at.Symbol == "" {
			at.Symbol = "C"
		}
		switch {
		case a.X != nil && a.Y != nil:
			if math.IsNaN(*a.X) || math.IsInf(*a.X, 0) || math.IsNaN(*a.Y) || math.IsInf(*a.Y, 0) {
				return nil, fmt.Errorf("%w: atom %d: non-finite coordinate", ErrMalformed, i)
			}
			at.Pos.X, at.Pos.Y, at.HasPos = *a.X, *a.Y, true
		case a.X != nil || a.Y != nil:
			return nil, fmt.Errorf("%w: atom %d: x and y must be given together", ErrMalformed, i)
		}
		m.AddAtom(at)
	}

	type pending struct {
		bond int
		s    stereo
	}
	var stereos []pending
	for i, b := range data.Bonds {
		order := mol.BondOrder(b.Order)
		if b.Order == 0 {
			order = mol.Single
		}
		if order < mol.Single || order > mol.Aromatic {
			return nil, fmt.Errorf("%w: bond %d: invalid order %d", ErrMalformed, i, b.Order)
		}
		id, err := m.AddBond(mol.Bond{A: b.A, B: b.B, Order: order})
		if err != nil {
			return nil, fmt.Errorf("bond %d (%d-%d): %w", i, b.A, b.B, err)
		}
		if b.Stereo != nil {
			stereos = append(stereos, pending{id, *b.Stereo})
		}
	}
	// Stereo references may point at atoms bonded later in the list.
	for _, p := range stereos {
		class, ok := classFromString[p.s.Class]
		if !ok {
			return nil, fmt.Errorf("%w: bond %d: unknown stereo class %q", ErrMalformed, p.bond, p.s.Class)
		}
		if err := m.SetStereo(p.bond, mol.Stereo{Class: class, RefA: p.s.RefA, RefB: p.s.RefB}); err != nil {
			return nil, fmt.Errorf("bond %d: %w", p.bond, err)
		}
	}
	return m, nil
}

// WriteJSON encodes m as JSON and writes it to w. A non-nil report is
// included under "report". The output can be re-read with [ReadJSON].
func WriteJSON(m *mol.Molecule, report *layout.Report, w io.Writer) error {
	out := molecule{
		Name:          m.Name,
		MultiFragment: m.MultiFragment,
		Atoms:         make([]atom, m.NumAtoms()),
		Bonds:         make([]bond, m.NumBonds()),
		Report:        report,
	}
	for i := range out.Atoms {
		a := m.Atom(i)
		out.Atoms[i] = atom{Symbol: a.Symbol, Charge: a.Charge}
		if a.HasPos {
			x, y := a.Pos.X, a.Pos.Y
			out.Atoms[i].X, out.Atoms[i].Y = &x, &y
		}
	}
	for i := range out.Bonds {
		b := m.Bond(i)
		out.Bonds[i] = bond{A: b.A, B: b.B, Order: int(b.Order)}
		if b.Stereo != nil {
			out.Bonds[i].Stereo = &stereo{Class: b.Stereo.Class.String(), RefA: b.Stereo.RefA, RefB: b.Stereo.RefB}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// generatedName returns a unique name for molecules read without one.
func generatedName() string {
	return "molecule-" + uuid.NewString()[:8]
}
