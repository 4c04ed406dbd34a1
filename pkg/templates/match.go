package templates

import (
	"slices"
)

// Match is a successful template lookup.
type Match struct {
	Template *Template
	// Mapping[v] is the template vertex assigned to query vertex v.
	Mapping []int
}

// Find looks for a template whose topology is isomorphic to the query graph
// with n vertices and the given edges. Templates are tried in catalog order
// and the first match wins. Malformed edges (out of range, self-loops)
// simply fail to match.
func (l *Library) Find(n int, edges [][2]int) (Match, bool) {
	if l == nil || n == 0 {
		return Match{}, false
	}
	q, ok := newQuery(n, edges)
	if !ok {
		return Match{}, false
	}
	for _, t := range l.templates {
		if t.Size() != n || len(t.Edges) != len(q.edges) {
			continue
		}
		if !slices.Equal(t.degrees, q.degrees) {
			continue
		}
		if mapping, ok := isomorphism(q, t); ok {
			return Match{Template: t, Mapping: mapping}, true
		}
	}
	return Match{}, false
}

type query struct {
	n       int
	edges   [][2]int
	adj     [][]int
	deg     []int
	degrees []int
}

func newQuery(n int, edges [][2]int) (*query, bool) {
	q := &query{n: n, adj: make([][]int, n), deg: make([]int, n)}
	for _, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= n || b < 0 || b >= n || a == b || slices.Contains(q.adj[a], b) {
			return nil, false
		}
		q.adj[a] = append(q.adj[a], b)
		q.adj[b] = append(q.adj[b], a)
		q.deg[a]++
		q.deg[b]++
		q.edges = append(q.edges, e)
	}
	q.degrees = slices.Clone(q.deg)
	slices.Sort(q.degrees)
	return q, true
}

// searchOrder lists query vertices most constrained first: start from the
// highest degree vertex, then repeatedly take the vertex with the most
// neighbours already in the order (ties: higher degree, then lower index).
func searchOrder(q *query) []int {
	order := make([]int, 0, q.n)
	in := make([]bool, q.n)
	links := make([]int, q.n)
	for len(order) < q.n {
		best := -1
		for v := range q.n {
			if in[v] {
				continue
			}
			if best < 0 || links[v] > links[best] ||
				(links[v] == links[best] && q.deg[v] > q.deg[best]) {
				best = v
			}
		}
		in[best] = true
		order = append(order, best)
		for _, w := range q.adj[best] {
			links[w]++
		}
	}
	return order
}

// isomorphism runs the backtracking search. next[d] is the first template
// vertex still to try at depth d; the frames live in slices rather than on
// the call stack.
func isomorphism(q *query, t *Template) ([]int, bool) {
	n := q.n
	order := searchOrder(q)
	mapping := make([]int, n)
	for i := range mapping {
		mapping[i] = -1
	}
	used := make([]bool, n)
	next := make([]int, n)

	feasible := func(v, tv int) bool {
		if used[tv] || t.deg[tv] != q.deg[v] {
			return false
		}
		for _, u := range q.adj[v] {
			if mu := mapping[u]; mu >= 0 && !t.adj[tv][mu] {
				return false
			}
		}
		return true
	}

	d := 0
	for d >= 0 {
		if d == n {
			return mapping, true
		}
		v := order[d]
		if mapping[v] >= 0 {
			used[mapping[v]] = false
			mapping[v] = -1
		}
		found := false
		for tv := next[d]; tv < n; tv++ {
			if feasible(v, tv) {
				mapping[v] = tv
				used[tv] = true
				next[d] = tv + 1
				found = true
				break
			}
		}
		if !found {
			next[d] = 0
			d--
			continue
		}
		d++
		if d < n {
			next[d] = 0
		}
	}
	return nil, false
}
