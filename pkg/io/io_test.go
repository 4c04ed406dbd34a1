package io_test

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/mol/moltest"
)

const butene = `{
  "name": "2-butene",
  "atoms": [
    {"symbol": "C"},
    {"symbol": "C", "x": 0.5, "y": -1.5},
    {},
    {"symbol": "O", "charge": -1}
  ],
  "bonds": [
    {"a": 0, "b": 1},
    {"a": 1, "b": 2, "order": 2, "stereo": {"class": "trans", "ref_a": 0, "ref_b": 3}},
    {"a": 2, "b": 3}
  ]
}`

func TestReadJSON(t *testing.T) {
	m, err := chemio.ReadJSON(strings.NewReader(butene))
	if err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if m.Name != "2-butene" || m.NumAtoms() != 4 || m.NumBonds() != 3 {
		t.Fatalf("got %s with %d atoms, %d bonds", m.Name, m.NumAtoms(), m.NumBonds())
	}
	if got := m.Atom(2).Symbol; got != "C" {
		t.Errorf("default symbol = %q, want C", got)
	}
	if got := m.Atom(3).Charge; got != -1 {
		t.Errorf("charge = %d, want -1", got)
	}
	if _, ok := m.Pos(0); ok {
		t.Error("atom 0 should have no coordinate")
	}
	if p, ok := m.Pos(1); !ok || p.X != 0.5 || p.Y != -1.5 {
		t.Errorf("atom 1 position = %v, %v", p, ok)
	}
	if got := m.Bond(0).Order; got != mol.Single {
		t.Errorf("default order = %v, want single", got)
	}
	st := m.Bond(1).Stereo
	if st == nil || st.Class != mol.Trans || st.RefA != 0 || st.RefB != 3 {
		t.Errorf("stereo = %+v", st)
	}
}

func TestReadJSONGeneratesName(t *testing.T) {
	m, err := chemio.ReadJSON(strings.NewReader(`{"atoms": [{}], "bonds": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(m.Name, "molecule-") || len(m.Name) != len("molecule-")+8 {
		t.Errorf("generated name = %q", m.Name)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"syntax", `{"atoms": [`, chemio.ErrMalformed},
		{"bad name", `{"name": "../x", "atoms": []}`, chemio.ErrMalformed},
		{"x without y", `{"atoms": [{"x": 1}]}`, chemio.ErrMalformed},
		{"bad order", `{"atoms": [{}, {}], "bonds": [{"a": 0, "b": 1, "order": 7}]}`, chemio.ErrMalformed},
		{"unknown atom", `{"atoms": [{}], "bonds": [{"a": 0, "b": 3}]}`, mol.ErrUnknownAtom},
		{"self loop", `{"atoms": [{}], "bonds": [{"a": 0, "b": 0}]}`, mol.ErrSelfLoop},
		{"duplicate", `{"atoms": [{}, {}], "bonds": [{"a": 0, "b": 1}, {"a": 1, "b": 0}]}`, mol.ErrDuplicateBond},
		{
			"stereo class",
			`{"atoms": [{}, {}, {}, {}], "bonds": [{"a": 0, "b": 1}, {"a": 1, "b": 2, "order": 2, "stereo": {"class": "up", "ref_a": 0, "ref_b": 3}}, {"a": 2, "b": 3}]}`,
			chemio.ErrMalformed,
		},
		{
			"stereo on single bond",
			`{"atoms": [{}, {}, {}, {}], "bonds": [{"a": 0, "b": 1}, {"a": 1, "b": 2, "stereo": {"class": "cis", "ref_a": 0, "ref_b": 3}}, {"a": 2, "b": 3}]}`,
			mol.ErrInvalidStereo,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chemio.ReadJSON(strings.NewReader(tt.input))
			if !stderrors.Is(err, tt.want) {
				t.Errorf("ReadJSON error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteJSONIncludesReport(t *testing.T) {
	m := moltest.Butene(mol.Cis)
	r, err := layout.Generate(m, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := chemio.WriteJSON(m, r, &buf); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"report"`, `"bond_stats"`, `"class": "cis"`, `"order": 2`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}

	back, err := chemio.ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON of written output: %v", err)
	}
	if !back.AllPlaced() {
		t.Error("coordinates should survive a round trip")
	}
	if st := back.Bond(1).Stereo; st == nil || st.Class != mol.Cis {
		t.Errorf("stereo after round trip = %+v", st)
	}
}

// ethanolate: C-C-O(-) with an M  CHG block overriding the atom block charge.
const ethanolate = `ethanolate
  test

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.2990    0.7500    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.5981    0.0000    0.0000 O   0  3  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  CHG  1   3  -1
M  END
$$$$
`

func TestReadMolfile(t *testing.T) {
	m, err := chemio.ReadMolfile(strings.NewReader(ethanolate))
	if err != nil {
		t.Fatalf("ReadMolfile error: %v", err)
	}
	if m.Name != "ethanolate" || m.NumAtoms() != 3 || m.NumBonds() != 2 {
		t.Fatalf("got %s with %d atoms, %d bonds", m.Name, m.NumAtoms(), m.NumBonds())
	}
	if got := m.Atom(2); got.Symbol != "O" || got.Charge != -1 {
		t.Errorf("atom 3 = %s charge %d, want O charge -1", got.Symbol, got.Charge)
	}
	if p, ok := m.Pos(1); !ok || p.X != 1.299 || p.Y != 0.75 {
		t.Errorf("atom 2 position = %v, %v", p, ok)
	}
	if m.MultiFragment {
		t.Error("connected molecule should not be marked multi-fragment")
	}
}

func TestReadMolfileZeroCoordinates(t *testing.T) {
	src := `salt


  2  0  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 Na  0  3  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 Cl  0  5  0  0  0  0  0  0  0  0  0  0
M  END
`
	m, err := chemio.ReadMolfile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadMolfile error: %v", err)
	}
	for i := range m.NumAtoms() {
		if _, ok := m.Pos(i); ok {
			t.Errorf("atom %d should have no coordinate", i)
		}
	}
	if m.Atom(0).Charge != 1 || m.Atom(1).Charge != -1 {
		t.Errorf("charges = %d, %d; want 1, -1", m.Atom(0).Charge, m.Atom(1).Charge)
	}
	if !m.MultiFragment {
		t.Error("disconnected molfile should be marked multi-fragment")
	}
}

func TestReadMolfilePerceivesStereo(t *testing.T) {
	molfile := func(y4 float64, stereo int) string {
		return "butene\n\n\n" +
			"  4  3  0  0  0  0  0  0  0  0999 V2000\n" +
			"   -0.8660    0.5000    0.0000 C   0  0\n" +
			"    0.0000    0.0000    0.0000 C   0  0\n" +
			"    1.0000    0.0000    0.0000 C   0  0\n" +
			fmt.Sprintf("    1.8660%10.4f    0.0000 C   0  0\n", y4) +
			"  1  2  1  0\n" +
			fmt.Sprintf("  2  3  2%3d\n", stereo) +
			"  3  4  1  0\n" +
			"M  END\n"
	}
	tests := []struct {
		name   string
		y4     float64
		stereo int
		want   mol.StereoClass
	}{
		{"cis", 0.5, 0, mol.Cis},
		{"trans", -0.5, 0, mol.Trans},
		{"either", 0.5, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := chemio.ReadMolfile(strings.NewReader(molfile(tt.y4, tt.stereo)))
			if err != nil {
				t.Fatalf("ReadMolfile error: %v", err)
			}
			st := m.Bond(1).Stereo
			switch {
			case tt.want == 0 && st != nil:
				t.Errorf("stereo = %+v, want none", st)
			case tt.want != 0 && (st == nil || st.Class != tt.want):
				t.Errorf("stereo = %+v, want %v", st, tt.want)
			}
		})
	}
}

func TestReadMolfileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated header", "name\n\n"},
		{"bad counts", "name\n\n\nxyz\n"},
		{"missing atoms", "name\n\n\n  2  0  0  0  0  0  0  0  0  0999 V2000\n    0.0000    0.0000    0.0000 C   0  0\n"},
		{"bad bond type", "name\n\n\n  2  1  0  0  0  0  0  0  0  0999 V2000\n" +
			"    0.0000    0.0000    0.0000 C   0  0\n    1.0000    0.0000    0.0000 C   0  0\n  1  2  9  0\nM  END\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := chemio.ReadMolfile(strings.NewReader(tt.input)); !stderrors.Is(err, chemio.ErrMalformed) {
				t.Errorf("ReadMolfile error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestReadMolfileV3000(t *testing.T) {
	input := "name\n\n\n  0  0  0     0  0            999 V3000\n"
	_, err := chemio.ReadMolfile(strings.NewReader(input))
	if !stderrors.Is(err, chemio.ErrUnsupported) {
		t.Errorf("ReadMolfile error = %v, want ErrUnsupported", err)
	}
}

func TestMolfileRoundTrip(t *testing.T) {
	m := moltest.Naphthalene()
	at := m.Atom(0)
	at.Symbol, at.Charge = "N", 1
	m = withAtom(m, 0, at)
	if _, err := layout.Generate(m, layout.Options{}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := chemio.WriteMolfile(m, &buf); err != nil {
		t.Fatalf("WriteMolfile error: %v", err)
	}
	if !strings.Contains(buf.String(), "M  CHG  1   1   1") {
		t.Errorf("missing charge block in:\n%s", buf.String())
	}

	back, err := chemio.ReadMolfile(&buf)
	if err != nil {
		t.Fatalf("ReadMolfile error: %v", err)
	}
	if back.NumAtoms() != m.NumAtoms() || back.NumBonds() != m.NumBonds() {
		t.Fatalf("round trip changed size: %d/%d atoms", back.NumAtoms(), m.NumAtoms())
	}
	if a := back.Atom(0); a.Symbol != "N" || a.Charge != 1 {
		t.Errorf("atom 1 = %s charge %d", a.Symbol, a.Charge)
	}
	for i := range m.NumAtoms() {
		p, _ := m.Pos(i)
		q, ok := back.Pos(i)
		if !ok || math.Abs(p.X-q.X) > 1e-4 || math.Abs(p.Y-q.Y) > 1e-4 {
			t.Errorf("atom %d: %v became %v", i, p, q)
		}
	}
}

// withAtom rebuilds m with atom i replaced.
func withAtom(m *mol.Molecule, i int, a mol.Atom) *mol.Molecule {
	out := mol.New(m.Name)
	for k := range m.NumAtoms() {
		if k == i {
			out.AddAtom(a)
		} else {
			out.AddAtom(m.Atom(k))
		}
	}
	for _, b := range m.Bonds() {
		moltest.MustBond(out, b.A, b.B, b.Order)
	}
	return out
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	m := moltest.Benzene()
	r, err := layout.Generate(m, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"benzene.json", "benzene.mol"} {
		path := filepath.Join(dir, name)
		if err := chemio.WriteFile(m, r, path, chemio.FormatOf(path)); err != nil {
			t.Fatalf("WriteFile(%s) error: %v", name, err)
		}
		back, err := chemio.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error: %v", name, err)
		}
		if back.Name != "benzene" || back.NumBonds() != 6 || !back.AllPlaced() {
			t.Errorf("%s: got %s with %d bonds", name, back.Name, back.NumBonds())
		}
	}

	if _, err := chemio.ReadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want chemio.Format
		ok   bool
	}{
		{"json", chemio.FormatJSON, true},
		{"MOL", chemio.FormatMol, true},
		{"sdf", chemio.FormatMol, true},
		{"smiles", "", false},
	}
	for _, tt := range tests {
		got, err := chemio.ParseFormat(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if chemio.FormatOf("x.SDF") != chemio.FormatMol || chemio.FormatOf("x.txt") != chemio.FormatJSON {
		t.Error("FormatOf picked the wrong format")
	}
}
