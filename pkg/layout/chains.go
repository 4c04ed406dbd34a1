package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

// placeChains is Phase 2: a breadth-first walk from the root ring system (or
// a seeded bond for acyclic molecules) that places every remaining atom and
// moves the other ring systems out of their local frames.
func (s *state) placeChains() {
	n := s.m.NumAtoms()
	if n == 0 {
		return
	}
	sysAnchored := make([]bool, len(s.systems))
	var queue []int

	if len(s.systems) > 0 {
		root := 0
		for si, sys := range s.systems {
			rs := s.systems[root]
			if len(sys.Atoms) > len(rs.Atoms) || (len(sys.Atoms) == len(rs.Atoms) && sys.Atoms[0] < rs.Atoms[0]) {
				root = si
			}
		}
		sysAnchored[root] = true
		for _, a := range s.systems[root].Atoms {
			s.anchored[a] = true
			queue = append(queue, a)
		}
	} else {
		s.pos[0], s.has[0], s.anchored[0] = r2.Vec{}, true, true
		queue = append(queue, 0)
		if nb := s.m.Neighbors(0); len(nb) > 0 {
			w := nb[0]
			s.pos[w], s.has[w], s.anchored[w] = r2.Vec{X: s.L}, true, true
			queue = append(queue, w)
		}
	}

	for head := 0; head < len(queue); head++ {
		v := queue[head]
		var placed, free []int
		for _, w := range s.m.Neighbors(v) {
			if s.anchored[w] {
				placed = append(placed, w)
			} else {
				free = append(free, w)
			}
		}
		if len(free) == 0 {
			continue
		}
		targets := s.chainTargets(v, placed, free)

		for i, w := range free {
			if s.anchored[w] {
				continue
			}
			t := targets[i]
			si := s.sysOf[w]
			if si < 0 || sysAnchored[si] {
				s.pos[w], s.has[w], s.anchored[w] = t, true, true
				queue = append(queue, w)
				continue
			}
			s.attachSystem(si, w, v, t)
			sysAnchored[si] = true
			queue = append(queue, w)
			for _, a := range s.systems[si].Atoms {
				if a != w {
					queue = append(queue, a)
				}
			}
		}
	}
}

// chainTargets returns one target position per free neighbour of v.
func (s *state) chainTargets(v int, placed, free []int) []r2.Vec {
	pv := s.pos[v]
	if len(placed) == 1 && len(free) == 1 {
		p := placed[0]
		d := direction(s.pos[p], pv)
		if s.linear(v) {
			return []r2.Vec{r2.Add(pv, r2.Scale(s.L, d))}
		}
		c1 := r2.Add(pv, r2.Scale(s.L, r2.Rotate(d, math.Pi/3, r2.Vec{})))
		c2 := r2.Add(pv, r2.Scale(s.L, r2.Rotate(d, -math.Pi/3, r2.Vec{})))
		want, ok := s.stereoSide(p, v, free[0])
		if !ok {
			want = 1
			// Zig-zag: turn away from the atom that preceded p.
			for _, r := range s.m.Neighbors(p) {
				if r != v && s.anchored[r] {
					if geom.Side(s.pos[p], pv, s.pos[r]) > 0 {
						want = -1
					}
					break
				}
			}
		}
		if (geom.Side(s.pos[p], pv, c1) > 0) == (want > 0) {
			return []r2.Vec{c1}
		}
		return []r2.Vec{c2}
	}

	start, width := geom.LargestGap(pv, s.positions(placed))
	step := width / float64(len(free)+1)
	targets := make([]r2.Vec, len(free))
	for i := range targets {
		targets[i] = r2.Add(pv, geom.Polar(start+step*float64(i+1), s.L))
	}
	if len(placed) == 1 {
		p := placed[0]
		for i, w := range free {
			want, ok := s.stereoSide(p, v, w)
			if !ok {
				continue
			}
			if (geom.Side(s.pos[p], pv, targets[i]) > 0) != (want > 0) {
				for l, r := 0, len(targets)-1; l < r; l, r = l+1, r-1 {
					targets[l], targets[r] = targets[r], targets[l]
				}
			}
			break
		}
	}
	return targets
}

// stereoSide returns the side (+1 left, -1 right of p→v) on which w must sit
// to honour a cis/trans descriptor on bond p=v. ok is false when the bond has
// no descriptor or the reference atom on p's side is not placed yet.
func (s *state) stereoSide(p, v, w int) (want float64, ok bool) {
	id, found := s.m.BondBetween(p, v)
	if !found {
		return 0, false
	}
	b := s.m.Bond(id)
	if b.Stereo == nil {
		return 0, false
	}
	rp, rv := b.Stereo.RefA, b.Stereo.RefB
	if b.A != p {
		rp, rv = rv, rp
	}
	if !s.anchored[rp] {
		return 0, false
	}
	sgn := -1.0
	if geom.Side(s.pos[p], s.pos[v], s.pos[rp]) > 0 {
		sgn = 1
	}
	want = sgn
	if b.Stereo.Class == mol.Trans {
		want = -sgn
	}
	if w != rv {
		want = -want
	}
	return want, true
}

// attachSystem rigidly moves ring system si from its local frame so that
// entry atom w lands on t and the widest free sector at w faces back towards
// v. Every atom of the system becomes anchored.
func (s *state) attachSystem(si, w, v int, t r2.Vec) {
	lw := s.pos[w]
	var inner []r2.Vec
	for _, x := range s.m.Neighbors(w) {
		if s.sysOf[x] == si {
			inner = append(inner, s.pos[x])
		}
	}
	start, width := geom.LargestGap(lw, inner)
	u := direction(s.pos[v], t)
	ang := geom.Angle(r2.Scale(-1, u)) - (start + width/2)
	for _, a := range s.systems[si].Atoms {
		s.pos[a] = r2.Add(t, r2.Rotate(r2.Sub(s.pos[a], lw), ang, r2.Vec{}))
		s.has[a] = true
		s.anchored[a] = true
	}
}

// direction returns the unit vector from a to b, or +x when they coincide.
func direction(a, b r2.Vec) r2.Vec {
	d := r2.Sub(b, a)
	if n := r2.Norm(d); n >= geom.Eps {
		return r2.Scale(1/n, d)
	}
	return r2.Vec{X: 1}
}
