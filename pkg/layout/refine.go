package layout

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/spatial"
)

// Force field constants, in bond-length units.
const (
	bondStiffness  = 1.0
	angleStiffness = 0.3
	repulsion      = 0.5
	repulsionRange = 1.8
	repulsionFloor = 0.3
	pairSkin       = 0.5
	pairRebuild    = 10
	stepSize       = 0.05
	maxStep        = 0.25
)

// spring pulls atoms a and b towards separation rest.
type spring struct {
	a, b int
	rest float64
}

// refine is Phase 4: steepest descent on bond stretch, angle springs and
// short-range repulsion. It returns the iterations run and the final largest
// per-atom force.
func (s *state) refine(maxIter int) (iters int, gmax float64) {
	n := s.m.NumAtoms()
	x := make([]r2.Vec, n)
	for i, p := range s.pos {
		x[i] = r2.Scale(1/s.L, p)
	}
	angles := s.angleSprings()
	near := s.twoBondNeighbourhood()
	far := func(i, j int) bool {
		if si := s.sysOf[i]; si >= 0 && si == s.sysOf[j] && s.templated[si] {
			return false
		}
		return !near[spatial.Pair{I: i, J: j}]
	}

	var pairs []spatial.Pair
	force := make([]r2.Vec, n)
	pull := func(a, b int, k, rest float64) {
		d := r2.Sub(x[b], x[a])
		dn := r2.Norm(d)
		if dn < 1e-12 {
			return
		}
		f := r2.Scale(k*(dn-rest)/dn, d)
		force[a] = r2.Add(force[a], f)
		force[b] = r2.Sub(force[b], f)
	}

	iters = maxIter
	for it := range maxIter {
		if it%pairRebuild == 0 {
			pairs = pairs[:0]
			for _, p := range spatial.New(x).Pairs(repulsionRange + pairSkin) {
				if far(p.I, p.J) {
					pairs = append(pairs, p)
				}
			}
		}
		clear(force)
		for i := range s.m.NumBonds() {
			b := s.m.Bond(i)
			pull(b.A, b.B, bondStiffness, 1)
		}
		for _, sp := range angles {
			pull(sp.a, sp.b, angleStiffness, sp.rest)
		}
		for _, p := range pairs {
			d := r2.Sub(x[p.J], x[p.I])
			dn := r2.Norm(d)
			if dn >= repulsionRange {
				continue
			}
			u := r2.Vec{X: 1}
			if dn >= 1e-12 {
				u = r2.Scale(1/dn, d)
			}
			dd := max(dn, repulsionFloor)
			f := r2.Scale(repulsion/(dd*dd), u)
			force[p.I] = r2.Sub(force[p.I], f)
			force[p.J] = r2.Add(force[p.J], f)
		}

		gmax = 0
		for _, f := range force {
			gmax = max(gmax, r2.Norm(f))
		}
		if gmax < convergenceLimit {
			iters = it
			break
		}
		for i, f := range force {
			step := r2.Scale(stepSize, f)
			if sn := r2.Norm(step); sn > maxStep {
				step = r2.Scale(maxStep/sn, step)
			}
			x[i] = r2.Add(x[i], step)
		}
	}
	for i, p := range x {
		s.pos[i] = r2.Scale(s.L, p)
	}
	return iters, gmax
}

// twoBondNeighbourhood marks the pairs that are bonded or share a neighbour.
func (s *state) twoBondNeighbourhood() map[spatial.Pair]bool {
	near := make(map[spatial.Pair]bool)
	mark := func(a, b int) {
		if a != b {
			near[spatial.Pair{I: min(a, b), J: max(a, b)}] = true
		}
	}
	for c := range s.m.NumAtoms() {
		nb := s.m.Neighbors(c)
		for i, a := range nb {
			mark(c, a)
			for _, b := range nb[i+1:] {
				mark(a, b)
			}
		}
	}
	return near
}

// chord is the distance between two unit bonds separated by angle theta.
func chord(theta float64) float64 { return 2 * math.Sin(theta/2) }

// angleSprings builds the virtual springs that hold bond angles: for each
// atom, springs between pairs of its neighbours at the separation the ideal
// angle implies.
func (s *state) angleSprings() []spring {
	var out []spring
	for c := range s.m.NumAtoms() {
		nb := s.m.Neighbors(c)
		deg := len(nb)
		if deg < 2 {
			continue
		}
		pc := s.pos[c]
		slices.SortStableFunc(nb, func(a, b int) int {
			if v := cmp.Compare(geom.Angle(r2.Sub(s.pos[a], pc)), geom.Angle(r2.Sub(s.pos[b], pc))); v != 0 {
				return v
			}
			return cmp.Compare(a, b)
		})

		if si := s.sysOf[c]; si >= 0 {
			out = s.ringSprings(out, c, si, nb)
			continue
		}
		switch {
		case deg == 2:
			theta := 2 * math.Pi / 3
			if s.linear(c) {
				theta = math.Pi
			}
			out = append(out, spring{nb[0], nb[1], chord(theta)})
		case deg == 3:
			for i := range 3 {
				for j := i + 1; j < 3; j++ {
					out = append(out, spring{nb[i], nb[j], chord(2 * math.Pi / 3)})
				}
			}
		default:
			rest := chord(2 * math.Pi / float64(deg))
			for i := range deg {
				out = append(out, spring{nb[i], nb[(i+1)%deg], rest})
			}
			if deg == 4 {
				out = append(out, spring{nb[0], nb[2], 2}, spring{nb[1], nb[3], 2})
			}
		}
	}
	return out
}

// ringSprings keeps the Phase 1 geometry between ring neighbours of ring
// atom c and spreads exocyclic substituents evenly over the exterior angle.
// nb is sorted by angle around c.
func (s *state) ringSprings(out []spring, c, si int, nb []int) []spring {
	var rn, ex []int
	for _, w := range nb {
		if s.sysOf[w] == si {
			rn = append(rn, w)
		} else {
			ex = append(ex, w)
		}
	}
	for i := range rn {
		for j := i + 1; j < len(rn); j++ {
			out = append(out, spring{rn[i], rn[j], s.pairTarget[newPairKey(c, rn[i], rn[j])]})
		}
	}
	if len(rn) != 2 || len(ex) == 0 {
		return out
	}

	d := s.pairTarget[newPairKey(c, rn[0], rn[1])]
	interior := 2 * math.Asin(min(d/2, 1))
	rest := chord((2*math.Pi - interior) / float64(len(ex)+1))

	// Walk the exterior sector: from one ring neighbour through the
	// substituents to the other.
	i0 := slices.Index(nb, rn[0])
	i1 := slices.Index(nb, rn[1])
	between := nb[i0+1 : i1]
	around := append(slices.Clone(nb[i1+1:]), nb[:i0]...)
	seq := append([]int{rn[0]}, between...)
	seq = append(seq, rn[1])
	if len(around) > len(between) {
		seq = append([]int{rn[1]}, around...)
		seq = append(seq, rn[0])
	}
	for i := 0; i+1 < len(seq); i++ {
		out = append(out, spring{seq[i], seq[i+1], rest})
	}
	return out
}
