package layout

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/errors"
	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

// placeRings is Phase 1. Every ring atom receives a coordinate in the local
// frame of its ring system; chain atoms are left alone.
func (s *state) placeRings() error {
	s.rings = s.m.SSSR()
	s.systems = mol.RingSystems(s.rings)
	s.templated = make([]bool, len(s.systems))
	s.degraded = make([]bool, len(s.systems))
	s.report.Rings = len(s.rings)
	s.report.RingSystems = len(s.systems)

	for si, sys := range s.systems {
		for _, ri := range sys.Rings {
			if r := s.rings[ri]; len(r) > MaxRingSize {
				return errors.New(errors.ErrCodeRingTooLarge,
					"ring system %d: ring of %d atoms exceeds the %d atom limit (atoms %s)",
					si, len(r), MaxRingSize, atomList(sys.Atoms))
			}
		}
		for _, a := range sys.Atoms {
			s.sysOf[a] = si
		}
	}
	for _, r := range s.rings {
		for i := range r {
			if id, ok := s.m.BondBetween(r[i], r[(i+1)%len(r)]); ok {
				s.ringBond[id] = true
			}
		}
	}

	for si := range s.systems {
		if s.placeTemplate(si) {
			continue
		}
		s.placeFused(si)
		if s.degraded[si] {
			s.report.DegradedSystems++
			s.log.Warn("ring system placed naively", "system", si, "atoms", atomList(s.systems[si].Atoms))
		}
	}

	for si, sys := range s.systems {
		for _, c := range sys.Atoms {
			var rn []int
			for _, w := range s.m.Neighbors(c) {
				if s.sysOf[w] == si {
					rn = append(rn, w)
				}
			}
			for i := range rn {
				for j := i + 1; j < len(rn); j++ {
					s.pairTarget[newPairKey(c, rn[i], rn[j])] = geom.Dist(s.pos[rn[i]], s.pos[rn[j]]) / s.L
				}
			}
		}
	}
	return nil
}

func atomList(atoms []int) string {
	const show = 12
	parts := make([]string, 0, show+1)
	for i, a := range atoms {
		if i == show {
			parts = append(parts, fmt.Sprintf("... +%d", len(atoms)-show))
			break
		}
		parts = append(parts, fmt.Sprint(a))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// placeTemplate copies a matching cage template onto system si.
func (s *state) placeTemplate(si int) bool {
	atoms := s.systems[si].Atoms
	local := make(map[int]int, len(atoms))
	for i, a := range atoms {
		local[a] = i
	}
	var edges [][2]int
	for i := range s.m.NumBonds() {
		b := s.m.Bond(i)
		la, oka := local[b.A]
		lb, okb := local[b.B]
		if oka && okb {
			edges = append(edges, [2]int{la, lb})
		}
	}
	match, ok := s.tmpl.Find(len(atoms), edges)
	if !ok {
		return false
	}
	for i, a := range atoms {
		s.pos[a] = r2.Scale(s.L, match.Template.Coords[match.Mapping[i]])
		s.has[a] = true
	}
	s.templated[si] = true
	s.report.TemplateSystems++
	s.report.Templates = append(s.report.Templates, match.Template.Name)
	s.log.Debug("ring system placed from template", "system", si, "template", match.Template.Name)
	return true
}

// fusion tracks one system while its rings are fused in.
type fusion struct {
	si      int
	placed  []int
	centers []r2.Vec
}

func (f *fusion) centroid(s *state) r2.Vec { return geom.Centroid(s.positions(f.placed)) }

func (s *state) placeFused(si int) {
	order := slices.Clone(s.systems[si].Rings)
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(len(s.rings[b]), len(s.rings[a])); c != 0 {
			return c
		}
		return slices.Compare(s.rings[a], s.rings[b])
	})

	f := &fusion{si: si}
	first := s.rings[order[0]]
	n := len(first)
	R := geom.CircumRadius(n, s.L)
	for k, a := range first {
		s.set(f, a, geom.Polar(math.Pi/2+2*math.Pi*float64(k)/float64(n), R))
	}
	f.centers = append(f.centers, r2.Vec{})

	rest := order[1:]
	for len(rest) > 0 {
		best, bestShared := -1, 0
		for i, ri := range rest {
			shared := 0
			for _, a := range s.rings[ri] {
				if s.has[a] {
					shared++
				}
			}
			if shared > bestShared {
				best, bestShared = i, shared
			}
		}
		if best < 0 {
			s.placeNaive(f, s.rings[rest[0]])
			s.degraded[si] = true
			rest = rest[1:]
			continue
		}
		ring := s.rings[rest[best]]
		rest = slices.Delete(rest, best, best+1)
		s.fuse(f, ring)
	}
}

func (s *state) set(f *fusion, a int, p r2.Vec) {
	s.pos[a] = p
	s.has[a] = true
	f.placed = append(f.placed, a)
}

// placeNaive draws the unplaced atoms of ring as a free-standing polygon to
// the right of the system drawn so far.
func (s *state) placeNaive(f *fusion, ring []int) {
	R := geom.CircumRadius(len(ring), s.L)
	var cy, maxX float64
	if len(f.placed) > 0 {
		cy = f.centroid(s).Y
		maxX = math.Inf(-1)
		for _, a := range f.placed {
			maxX = max(maxX, s.pos[a].X)
		}
	}
	c := r2.Vec{X: maxX + R + s.L, Y: cy}
	for k, a := range ring {
		if s.has[a] {
			continue
		}
		s.set(f, a, r2.Add(c, geom.Polar(2*math.Pi*float64(k)/float64(len(ring)), R)))
	}
}

// arc is a maximal run of unplaced ring atoms between placed atoms a and b.
type arc struct {
	a, b  int
	atoms []int
}

func (s *state) arcs(ring []int) []arc {
	n := len(ring)
	var out []arc
	for i := range n {
		if !s.has[ring[i]] || s.has[ring[(i+1)%n]] {
			continue
		}
		var atoms []int
		j := (i + 1) % n
		for !s.has[ring[j]] {
			atoms = append(atoms, ring[j])
			j = (j + 1) % n
		}
		out = append(out, arc{a: ring[i], b: ring[j], atoms: atoms})
	}
	return out
}

func (s *state) fuse(f *fusion, ring []int) {
	n := len(ring)
	step := 2 * math.Pi / float64(n)
	for _, ar := range s.arcs(ring) {
		k := len(ar.atoms)
		switch {
		case ar.a == ar.b:
			s.fuseSpiro(f, ar, n, step)
		case k == n-2:
			s.fuseEdge(f, ar, n, step)
		default:
			s.fuseBridge(f, ar)
			var pts []r2.Vec
			for _, a := range ring {
				if s.has[a] {
					pts = append(pts, s.pos[a])
				}
			}
			f.centers = append(f.centers, geom.Centroid(pts))
		}
	}
}

// fuseSpiro grows a ring out of a single shared atom, pointing into the
// widest free sector around it.
func (s *state) fuseSpiro(f *fusion, ar arc, n int, step float64) {
	R := geom.CircumRadius(n, s.L)
	pa := s.pos[ar.a]
	var nb []r2.Vec
	for _, w := range s.m.Neighbors(ar.a) {
		if s.has[w] && s.sysOf[w] == f.si {
			nb = append(nb, s.pos[w])
		}
	}
	c := r2.Add(pa, r2.Scale(R, geom.Bisector(pa, nb)))
	theta := geom.Angle(r2.Sub(pa, c))
	for i, a := range ar.atoms {
		s.set(f, a, r2.Add(c, geom.Polar(theta-step*float64(i+1), R)))
	}
	f.centers = append(f.centers, c)
}

// fuseEdge builds a regular polygon on a shared edge, on the side away from
// the rings already drawn.
func (s *state) fuseEdge(f *fusion, ar arc, n int, step float64) {
	R := geom.CircumRadius(n, s.L)
	pa, pb := s.pos[ar.a], s.pos[ar.b]
	mid := r2.Scale(0.5, r2.Add(pa, pb))
	e := r2.Sub(pb, pa)
	dl := r2.Norm(e)
	if dl < geom.Eps {
		s.placeNaive(f, append([]int{ar.a}, ar.atoms...))
		s.degraded[f.si] = true
		return
	}
	h := math.Sqrt(math.Max(R*R-dl*dl/4, 0))
	perp := r2.Unit(r2.Vec{X: -e.Y, Y: e.X})
	c1 := r2.Add(mid, r2.Scale(h, perp))
	c2 := r2.Sub(mid, r2.Scale(h, perp))

	clearance := func(c r2.Vec) float64 {
		d := math.Inf(1)
		for _, q := range f.centers {
			d = min(d, geom.Dist(c, q))
		}
		return d
	}
	s1, s2 := clearance(c1), clearance(c2)
	c := c2
	switch {
	case math.Abs(s1-s2) < geom.Eps:
		pc := f.centroid(s)
		if geom.Dist(c1, pc) >= geom.Dist(c2, pc) {
			c = c1
		}
	case s1 > s2:
		c = c1
	}

	ta := geom.Angle(r2.Sub(pa, c))
	tb := geom.Angle(r2.Sub(pb, c))
	dir := 1.0
	if geom.NormAngle(tb-ta) < math.Pi {
		dir = -1
	}
	r := geom.Dist(pa, c)
	for i, a := range ar.atoms {
		s.set(f, a, r2.Add(c, geom.Polar(ta+dir*step*float64(i+1), r)))
	}
	f.centers = append(f.centers, c)
}

// fuseBridge spans k atoms across the fixed chord between two placed atoms.
// A chord shorter than (k+1) bonds is bridged by a circular arc with k+1
// equal chords of one bond length; a longer one by a straight line.
func (s *state) fuseBridge(f *fusion, ar arc) {
	k := len(ar.atoms)
	pa, pb := s.pos[ar.a], s.pos[ar.b]
	d := geom.Dist(pa, pb)
	if d < geom.Eps {
		s.placeNaive(f, append([]int{ar.a}, ar.atoms...))
		s.degraded[f.si] = true
		return
	}

	var cands [][]r2.Vec
	if d < float64(k+1)*s.L*(1-geom.Eps) {
		// Solve L·sin((k+1)x)/sin(x) = d for the half chord angle x.
		lo, hi := 1e-9, math.Pi/float64(k+1)
		for range 100 {
			x := (lo + hi) / 2
			if s.L*math.Sin(float64(k+1)*x)/math.Sin(x) > d {
				lo = x
			} else {
				hi = x
			}
		}
		x := (lo + hi) / 2
		phi := 2 * x
		R := s.L / (2 * math.Sin(x))
		mid := r2.Scale(0.5, r2.Add(pa, pb))
		e := r2.Sub(pb, pa)
		perp := r2.Unit(r2.Vec{X: -e.Y, Y: e.X})
		h := R * math.Cos(float64(k+1)*phi/2)
		for _, side := range []float64{1, -1} {
			c := r2.Sub(mid, r2.Scale(side*h, perp))
			rot := 1.0
			endPos := r2.Add(c, r2.Rotate(r2.Sub(pa, c), phi*float64(k+1), r2.Vec{}))
			endNeg := r2.Add(c, r2.Rotate(r2.Sub(pa, c), -phi*float64(k+1), r2.Vec{}))
			if geom.Dist(endNeg, pb) < geom.Dist(endPos, pb) {
				rot = -1
			}
			pts := make([]r2.Vec, k)
			for i := range pts {
				pts[i] = r2.Add(c, r2.Rotate(r2.Sub(pa, c), rot*phi*float64(i+1), r2.Vec{}))
			}
			cands = append(cands, pts)
		}
	} else {
		pts := make([]r2.Vec, k)
		for i := range pts {
			pts[i] = r2.Add(pa, r2.Scale(float64(i+1)/float64(k+1), r2.Sub(pb, pa)))
		}
		cands = append(cands, pts)
	}

	pc := f.centroid(s)
	best, bestClash, bestFar := 0, math.MaxInt, 0.0
	for ci, pts := range cands {
		clash := 0
		far := 0.0
		for _, p := range pts {
			for _, q := range f.placed {
				if geom.Dist(p, s.pos[q]) < bridgeClearance*s.L {
					clash++
				}
			}
			far += geom.Dist(p, pc)
		}
		if clash < bestClash || (clash == bestClash && far > bestFar) {
			best, bestClash, bestFar = ci, clash, far
		}
	}
	for i, a := range ar.atoms {
		s.set(f, a, cands[best][i])
	}
}
