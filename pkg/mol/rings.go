package mol

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Ring is a simple cycle of atom handles in traversal order. Rings returned
// by this package are normalized: they start at their lowest handle and
// continue towards the smaller of its two ring neighbours.
type Ring []int

// Contains reports whether atom lies on the ring.
func (r Ring) Contains(atom int) bool { return slices.Contains(r, atom) }

// RingSystem is a maximal set of rings connected through shared atoms.
type RingSystem struct {
	Rings []int // indices into the ring slice the system was built from, ascending
	Atoms []int // union of the member rings' atoms, ascending
}

// SSSR returns the smallest set of smallest rings.
//
// Candidates are Horton cycles: for every root atom and every bond (x, y),
// the BFS shortest paths root→x and root→y closed by the bond, kept when the
// two paths only share the root. Candidates are sorted by size and accepted
// greedily while they are linearly independent over GF(2) in bond space,
// until the cyclomatic number (bonds - atoms + fragments) is reached.
//
// Acyclic atoms are pruned before the search. The result is deterministic for
// a given insertion order of atoms and bonds.
func (m *Molecule) SSSR() []Ring {
	n := len(m.atoms)
	if n == 0 {
		return nil
	}
	need := len(m.bonds) - n + len(m.Fragments())
	if need <= 0 {
		return nil
	}

	core := m.cyclicCore()
	words := (len(m.bonds) + 63) / 64

	type candidate struct {
		ring  Ring
		edges []uint64
	}
	var cands []candidate
	seen := make(map[string]bool)

	parent := make([]int, n)
	queue := make([]int, 0, n)
	for root := 0; root < n; root++ {
		if !core[root] {
			continue
		}
		m.bfsParents(root, core, parent, queue)
		for _, b := range m.bonds {
			x, y := b.A, b.B
			if !core[x] || !core[y] || parent[x] == unreached || parent[y] == unreached {
				continue
			}
			if parent[x] == y || parent[y] == x {
				continue
			}
			px := pathTo(parent, root, x)
			py := pathTo(parent, root, y)
			if !disjointButRoot(px, py) {
				continue
			}
			cycle := make([]int, 0, len(px)+len(py)-1)
			cycle = append(cycle, px...)
			for i := len(py) - 1; i >= 1; i-- {
				cycle = append(cycle, py[i])
			}
			edges := make([]uint64, words)
			valid := true
			for i := range cycle {
				id, ok := m.BondBetween(cycle[i], cycle[(i+1)%len(cycle)])
				if !ok {
					valid = false
					break
				}
				edges[id/64] |= 1 << (id % 64)
			}
			if !valid {
				continue
			}
			key := bitsKey(edges)
			if seen[key] {
				continue
			}
			seen[key] = true
			cands = append(cands, candidate{ring: normalizeRing(cycle), edges: edges})
		}
	}

	slices.SortStableFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(len(a.ring), len(b.ring)); c != 0 {
			return c
		}
		return slices.Compare(a.ring, b.ring)
	})

	var basis []Ring
	var rows [][]uint64 // reduced rows, each with a distinct leading bit
	var pivots []int
	for _, c := range cands {
		v := slices.Clone(c.edges)
		for i, row := range rows {
			if bitSet(v, pivots[i]) {
				xorInto(v, row)
			}
		}
		p := highestBit(v)
		if p < 0 {
			continue
		}
		// Keep rows ordered by descending pivot so a single sweep reduces.
		at, _ := slices.BinarySearchFunc(pivots, p, func(e, t int) int { return cmp.Compare(t, e) })
		rows = slices.Insert(rows, at, v)
		pivots = slices.Insert(pivots, at, p)
		basis = append(basis, c.ring)
		if len(basis) == need {
			break
		}
	}
	return basis
}

const unreached = -2

// cyclicCore marks atoms that survive repeated removal of degree-one atoms.
func (m *Molecule) cyclicCore() []bool {
	n := len(m.atoms)
	deg := make([]int, n)
	core := make([]bool, n)
	var stack []int
	for i := range n {
		deg[i] = len(m.adj[i])
		core[i] = true
		if deg[i] <= 1 {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !core[v] {
			continue
		}
		core[v] = false
		for _, b := range m.adj[v] {
			w := m.bonds[b].Other(v)
			if core[w] {
				deg[w]--
				if deg[w] <= 1 {
					stack = append(stack, w)
				}
			}
		}
	}
	return core
}

func (m *Molecule) bfsParents(root int, core []bool, parent, queue []int) {
	for i := range parent {
		parent[i] = unreached
	}
	parent[root] = -1
	queue = append(queue[:0], root)
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for _, b := range m.adj[v] {
			w := m.bonds[b].Other(v)
			if core[w] && parent[w] == unreached {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
}

// pathTo returns the BFS tree path root..x.
func pathTo(parent []int, root, x int) []int {
	var p []int
	for v := x; ; v = parent[v] {
		p = append(p, v)
		if v == root {
			break
		}
	}
	slices.Reverse(p)
	return p
}

func disjointButRoot(a, b []int) bool {
	for _, x := range a[1:] {
		if slices.Contains(b[1:], x) {
			return false
		}
	}
	return true
}

func normalizeRing(c []int) Ring {
	start := 0
	for i, v := range c {
		if v < c[start] {
			start = i
		}
	}
	out := make(Ring, 0, len(c))
	out = append(out, c[start:]...)
	out = append(out, c[:start]...)
	if len(out) > 2 && out[len(out)-1] < out[1] {
		slices.Reverse(out[1:])
	}
	return out
}

func bitSet(v []uint64, i int) bool { return v[i/64]&(1<<(i%64)) != 0 }

func xorInto(dst, src []uint64) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func highestBit(v []uint64) int {
	for w := len(v) - 1; w >= 0; w-- {
		if v[w] == 0 {
			continue
		}
		for b := 63; b >= 0; b-- {
			if v[w]&(1<<b) != 0 {
				return w*64 + b
			}
		}
	}
	return -1
}

func bitsKey(v []uint64) string {
	buf := make([]byte, 0, len(v)*8)
	for _, w := range v {
		for i := range 8 {
			buf = append(buf, byte(w>>(8*i)))
		}
	}
	return string(buf)
}

// RingSystems groups rings into systems: two rings belong to the same system
// when they share at least one atom, directly or through other rings.
// Systems are ordered by their lowest ring index.
func RingSystems(rings []Ring) []RingSystem {
	if len(rings) == 0 {
		return nil
	}
	g := simple.NewUndirectedGraph()
	byAtom := make(map[int][]int)
	for i, r := range rings {
		g.AddNode(simple.Node(i))
		for _, a := range r {
			byAtom[a] = append(byAtom[a], i)
		}
	}
	for i, r := range rings {
		for _, a := range r {
			for _, j := range byAtom[a] {
				if j > i && !g.HasEdgeBetween(int64(i), int64(j)) {
					g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
				}
			}
		}
	}

	var systems []RingSystem
	for _, comp := range topo.ConnectedComponents(g) {
		var sys RingSystem
		atoms := make(map[int]bool)
		for _, node := range comp {
			ri := int(node.ID())
			sys.Rings = append(sys.Rings, ri)
			for _, a := range rings[ri] {
				atoms[a] = true
			}
		}
		slices.Sort(sys.Rings)
		for a := range atoms {
			sys.Atoms = append(sys.Atoms, a)
		}
		slices.Sort(sys.Atoms)
		systems = append(systems, sys)
	}
	slices.SortFunc(systems, func(a, b RingSystem) int { return cmp.Compare(a.Rings[0], b.Rings[0]) })
	return systems
}

// Fragments returns the connected components of the molecule as ascending
// atom handle lists, ordered by their lowest handle.
func (m *Molecule) Fragments() [][]int {
	if len(m.atoms) == 0 {
		return nil
	}
	g := simple.NewUndirectedGraph()
	for i := range m.atoms {
		g.AddNode(simple.Node(i))
	}
	for _, b := range m.bonds {
		if b.A == b.B || !m.validAtom(b.A) || !m.validAtom(b.B) {
			continue
		}
		if !g.HasEdgeBetween(int64(b.A), int64(b.B)) {
			g.SetEdge(g.NewEdge(simple.Node(b.A), simple.Node(b.B)))
		}
	}
	comps := topo.ConnectedComponents(g)
	out := make([][]int, 0, len(comps))
	for _, comp := range comps {
		ids := make([]int, len(comp))
		for i, node := range comp {
			ids[i] = int(node.ID())
		}
		slices.Sort(ids)
		out = append(out, ids)
	}
	slices.SortFunc(out, func(a, b []int) int { return cmp.Compare(a[0], b[0]) })
	return out
}
