package render

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

// ErrNoCoordinates is returned when an atom has no coordinate.
var ErrNoCoordinates = errors.New("molecule has unplaced atoms")

// DefaultScale is the on-screen length of a mean bond in pixels.
const DefaultScale = 40.0

// Option configures rendering.
type Option func(*config)

type config struct {
	scale       float64
	showCarbons bool
	showIndices bool
}

// WithScale sets the mean bond length in pixels.
func WithScale(px float64) Option { return func(c *config) { c.scale = px } }

// WithCarbons labels carbon atoms too.
func WithCarbons() Option { return func(c *config) { c.showCarbons = true } }

// WithIndices writes each atom's handle next to it.
func WithIndices() Option { return func(c *config) { c.showIndices = true } }

func newConfig(opts ...Option) config {
	c := config{scale: DefaultScale}
	for _, opt := range opts {
		opt(&c)
	}
	if c.scale <= 0 || math.IsNaN(c.scale) || math.IsInf(c.scale, 0) {
		c.scale = DefaultScale
	}
	return c
}

// elementColors holds the label colours that differ from black.
var elementColors = map[string]string{
	"N":  "#3050F8",
	"O":  "#FF0D0D",
	"S":  "#B8A000",
	"P":  "#FF8000",
	"F":  "#1FA01F",
	"Cl": "#1FA01F",
	"Br": "#A62929",
	"I":  "#940094",
}

// sceneAtom is an atom in pixel space.
type sceneAtom struct {
	Index int
	P     r2.Vec
	Label string
	Color string
}

// stroke is one line of a bond drawing.
type stroke struct {
	A, B   r2.Vec
	Dashed bool
}

// scene is the renderer-independent depiction of a molecule.
type scene struct {
	Width, Height float64
	FontSize      float64
	LineWidth     float64
	Atoms         []sceneAtom
	Strokes       []stroke
	ShowIndices   bool
}

func buildScene(m *mol.Molecule, c config) (*scene, error) {
	if !m.AllPlaced() {
		return nil, fmt.Errorf("%s: %w", m.Name, ErrNoCoordinates)
	}
	bond := 1.0
	if mean, ok := m.MeanBondLength(); ok && mean > geom.Eps {
		bond = mean
	}
	k := c.scale / bond

	s := &scene{
		FontSize:    0.45 * c.scale,
		LineWidth:   max(1, c.scale/25),
		ShowIndices: c.showIndices,
	}
	pad := 1.5 * s.FontSize

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range m.Coords() {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	if m.NumAtoms() == 0 {
		minX, maxX, minY, maxY = 0, 0, 0, 0
	}
	s.Width = (maxX-minX)*k + 2*pad
	s.Height = (maxY-minY)*k + 2*pad

	s.Atoms = make([]sceneAtom, m.NumAtoms())
	for i := range s.Atoms {
		p, _ := m.Pos(i)
		a := m.Atom(i)
		sa := sceneAtom{
			Index: i,
			P:     r2.Vec{X: pad + (p.X-minX)*k, Y: pad + (maxY-p.Y)*k},
			Color: "#000000",
		}
		if a.Symbol != "C" || c.showCarbons || m.Degree(i) == 0 || a.Charge != 0 {
			sa.Label = a.Symbol + chargeLabel(a.Charge)
		}
		if col, ok := elementColors[a.Symbol]; ok {
			sa.Color = col
		}
		s.Atoms[i] = sa
	}

	centers := ringCenters(m, s.Atoms)
	offset := 0.18 * c.scale
	for id := range m.NumBonds() {
		b := m.Bond(id)
		p1, p2 := s.clip(b.A, b.B), s.clip(b.B, b.A)
		d := r2.Sub(p2, p1)
		if r2.Norm(d) < geom.Eps {
			continue
		}
		n := r2.Unit(r2.Vec{X: -d.Y, Y: d.X})
		centre, inRing := centers[id]
		switch b.Order {
		case mol.Double, mol.Aromatic:
			dashed := b.Order == mol.Aromatic
			if inRing {
				if r2.Dot(n, r2.Sub(centre, r2.Scale(0.5, r2.Add(p1, p2)))) < 0 {
					n = r2.Scale(-1, n)
				}
				s.Strokes = append(s.Strokes, stroke{A: p1, B: p2})
				trim := r2.Scale(0.15, d)
				s.Strokes = append(s.Strokes, stroke{
					A:      r2.Add(r2.Add(p1, trim), r2.Scale(offset, n)),
					B:      r2.Add(r2.Sub(p2, trim), r2.Scale(offset, n)),
					Dashed: dashed,
				})
				continue
			}
			h := r2.Scale(offset/2, n)
			s.Strokes = append(s.Strokes,
				stroke{A: r2.Add(p1, h), B: r2.Add(p2, h)},
				stroke{A: r2.Sub(p1, h), B: r2.Sub(p2, h), Dashed: dashed})
		case mol.Triple:
			h := r2.Scale(offset, n)
			s.Strokes = append(s.Strokes,
				stroke{A: p1, B: p2},
				stroke{A: r2.Add(p1, h), B: r2.Add(p2, h)},
				stroke{A: r2.Sub(p1, h), B: r2.Sub(p2, h)})
		default:
			s.Strokes = append(s.Strokes, stroke{A: p1, B: p2})
		}
	}
	return s, nil
}

// clip returns the end of bond a-b at atom a, pulled back from a's label.
func (s *scene) clip(a, b int) r2.Vec {
	pa, pb := s.Atoms[a].P, s.Atoms[b].P
	if s.Atoms[a].Label == "" {
		return pa
	}
	d := r2.Sub(pb, pa)
	dn := r2.Norm(d)
	r := 0.6 * s.FontSize
	if dn <= 2*r {
		return pa
	}
	return r2.Add(pa, r2.Scale(r/dn, d))
}

// ringCenters maps each ring bond to the pixel centre of the smallest ring
// containing it.
func ringCenters(m *mol.Molecule, atoms []sceneAtom) map[int]r2.Vec {
	rings := m.SSSR()
	slices.SortStableFunc(rings, func(a, b mol.Ring) int { return cmp.Compare(len(a), len(b)) })
	out := make(map[int]r2.Vec)
	for _, ring := range rings {
		pts := make([]r2.Vec, len(ring))
		for i, a := range ring {
			pts[i] = atoms[a].P
		}
		c := geom.Centroid(pts)
		for i, a := range ring {
			id, ok := m.BondBetween(a, ring[(i+1)%len(ring)])
			if _, seen := out[id]; ok && !seen {
				out[id] = c
			}
		}
	}
	return out
}

// chargeLabel formats a formal charge as a superscript-style suffix.
func chargeLabel(q int) string {
	switch {
	case q == 1:
		return "+"
	case q == -1:
		return "-"
	case q > 1:
		return fmt.Sprintf("%d+", q)
	case q < -1:
		return fmt.Sprintf("%d-", -q)
	}
	return ""
}
