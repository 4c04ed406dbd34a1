package layout

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/spatial"
)

// collisions returns the non-bonded pairs of pos closer than the collision
// distance, ordered by (I, J).
func (s *state) collisions(pos []r2.Vec) []spatial.Pair {
	thr := CollisionDistance * s.L
	var out []spatial.Pair
	for _, p := range spatial.New(pos).Pairs(thr) {
		if geom.Dist(pos[p.I], pos[p.J]) < thr && !s.bonded(p.I, p.J) {
			out = append(out, p)
		}
	}
	return out
}

// resolveCollisions is Phase 3. Each pass first tries to clear every
// colliding pair by reflecting a substituent across an acyclic bond, keeping
// the flip that removes the most collisions overall; pairs that survive are
// pushed apart. It returns the number of passes run and the collisions left.
func (s *state) resolveCollisions(maxPasses int) (passes, residual int) {
	for passes = 0; passes < maxPasses; passes++ {
		cols := s.collisions(s.pos)
		if len(cols) == 0 {
			return passes, 0
		}
		total := len(cols)
		for _, c := range cols {
			if geom.Dist(s.pos[c.I], s.pos[c.J]) >= CollisionDistance*s.L {
				continue
			}
			if cand, n := s.bestFlip(c.I, c.J, total); cand != nil {
				s.pos, total = cand, n
			}
		}
		for _, c := range s.collisions(s.pos) {
			d := r2.Sub(s.pos[c.J], s.pos[c.I])
			u := r2.Vec{X: 1}
			if dn := r2.Norm(d); dn >= geom.Eps {
				u = r2.Scale(1/dn, d)
			}
			step := r2.Scale(nudgeDistance*s.L, u)
			s.nudge(c.I, r2.Scale(-1, step))
			s.nudge(c.J, step)
		}
	}
	return passes, len(s.collisions(s.pos))
}

// nudge moves atom a by step, or by the largest fraction of it (1, 1/2, 1/4)
// that keeps every bond of a within BondTolerance. Bonds already outside the
// tolerance do not constrain the move. It reports whether a moved.
func (s *state) nudge(a int, step r2.Vec) bool {
	for _, f := range []float64{1, 0.5, 0.25} {
		p := r2.Add(s.pos[a], r2.Scale(f, step))
		if s.keepsBonds(a, p) {
			s.pos[a] = p
			return true
		}
	}
	return false
}

// keepsBonds reports whether moving atom a to p leaves each of its bonds
// that is within tolerance now still within tolerance.
func (s *state) keepsBonds(a int, p r2.Vec) bool {
	for _, w := range s.m.Neighbors(a) {
		if withinTolerance(geom.Dist(s.pos[a], s.pos[w]), s.L) && !withinTolerance(geom.Dist(p, s.pos[w]), s.L) {
			return false
		}
	}
	return true
}

// withinTolerance reports whether d is within BondTolerance of L.
func withinTolerance(d, L float64) bool {
	return math.Abs(d-L) <= BondTolerance*L
}

// bestFlip tries the flip candidates of the pair x, y and returns the
// candidate coordinates with the fewest collisions, provided that is fewer
// than total. Ring bonds and bonds carrying a cis/trans descriptor are never
// used as the mirror axis.
func (s *state) bestFlip(x, y, total int) ([]r2.Vec, int) {
	var best []r2.Vec
	bestN := total
	for _, e := range s.flipCandidates(x, y) {
		u, w := e[0], e[1]
		id, _ := s.m.BondBetween(u, w)
		if s.ringBond[id] || s.m.Bond(id).Stereo != nil {
			continue
		}
		sw := s.sideOf(w, u)
		if slices.Contains(sw, u) {
			continue
		}
		su := s.sideOf(u, w)
		moving, a0, a1 := sw, u, w
		if len(su) < len(sw) {
			moving, a0, a1 = su, w, u
		}
		cand := slices.Clone(s.pos)
		for _, z := range moving {
			cand[z] = geom.Reflect(s.pos[z], s.pos[a0], s.pos[a1])
		}
		if n := len(s.collisions(cand)); n < bestN {
			best, bestN = cand, n
		}
	}
	return best, bestN
}

// flipCandidates returns the bonds on the shortest path x..y followed by the
// remaining bonds incident to x or y, each once, in a fixed order.
func (s *state) flipCandidates(x, y int) [][2]int {
	var out [][2]int
	seen := make(map[[2]int]bool)
	add := func(u, w int) {
		k := [2]int{min(u, w), max(u, w)}
		if !seen[k] {
			seen[k] = true
			out = append(out, [2]int{u, w})
		}
	}
	path := s.shortestPath(x, y)
	for i := 0; i+1 < len(path); i++ {
		add(path[i], path[i+1])
	}
	for _, e := range []int{x, y} {
		for _, w := range s.m.Neighbors(e) {
			add(w, e)
		}
	}
	return out
}

// shortestPath returns a BFS shortest path from a to b, both included.
func (s *state) shortestPath(a, b int) []int {
	parent := make([]int, s.m.NumAtoms())
	for i := range parent {
		parent[i] = -2
	}
	parent[a] = -1
	queue := []int{a}
	for head := 0; head < len(queue) && parent[b] == -2; head++ {
		x := queue[head]
		for _, y := range s.m.Neighbors(x) {
			if parent[y] == -2 {
				parent[y] = x
				queue = append(queue, y)
			}
		}
	}
	if parent[b] == -2 {
		return nil
	}
	var path []int
	for v := b; v != -1; v = parent[v] {
		path = append(path, v)
	}
	slices.Reverse(path)
	return path
}

// sideOf returns the atoms reachable from start without using the bond
// start-blocked.
func (s *state) sideOf(start, blocked int) []int {
	seen := map[int]bool{start: true}
	out := []int{start}
	for head := 0; head < len(out); head++ {
		x := out[head]
		for _, y := range s.m.Neighbors(x) {
			if x == start && y == blocked {
				continue
			}
			if !seen[y] {
				seen[y] = true
				out = append(out, y)
			}
		}
	}
	return out
}
