// Package spatial answers proximity queries over a snapshot of 2D points.
//
// An [Index] is built once from a coordinate slice and never updated: the
// layout phases rebuild it wholesale between bulk coordinate changes. Points
// are addressed by their position in the snapshot (the handle). Above
// [BruteForceBelow] points the index is a k-d tree from
// gonum.org/v1/gonum/spatial/kdtree, split on x then y at the median;
// below it a linear scan is cheaper than building the tree.
//
// Query results are always sorted by handle so callers iterate them in a
// deterministic order.
package spatial

import (
	"cmp"
	"slices"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// BruteForceBelow is the point count under which queries scan linearly.
const BruteForceBelow = 20

// Pair is an unordered pair of handles with I < J.
type Pair struct {
	I, J int
}

// Index is an immutable proximity index over a point snapshot.
// It is safe for concurrent queries.
type Index struct {
	pts  []r2.Vec
	tree *kdtree.Tree
}

// New builds an index over a copy of pts.
func New(pts []r2.Vec) *Index {
	idx := &Index{pts: slices.Clone(pts)}
	if len(pts) >= BruteForceBelow {
		list := make(points, len(pts))
		for i, p := range idx.pts {
			list[i] = point{Vec: p, handle: i}
		}
		idx.tree = kdtree.New(list, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return len(x.pts) }

// Within returns the handles of all points at distance ≤ r from q.
func (x *Index) Within(q r2.Vec, r float64) []int {
	if r < 0 {
		return nil
	}
	var out []int
	if x.tree == nil {
		r2sq := r * r
		for i, p := range x.pts {
			if r2.Norm2(r2.Sub(p, q)) <= r2sq {
				out = append(out, i)
			}
		}
		return out
	}
	keep := kdtree.NewDistKeeper(r * r)
	x.tree.NearestSet(keep, point{Vec: q, handle: -1})
	for _, c := range keep.Heap {
		// The keeper starts with a nil sentinel that survives an empty result.
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(point).handle)
	}
	slices.Sort(out)
	return out
}

// Pairs returns every pair of distinct points at distance ≤ r, sorted by
// (I, J).
func (x *Index) Pairs(r float64) []Pair {
	if r < 0 {
		return nil
	}
	var out []Pair
	if x.tree == nil {
		r2sq := r * r
		for i := range x.pts {
			for j := i + 1; j < len(x.pts); j++ {
				if r2.Norm2(r2.Sub(x.pts[i], x.pts[j])) <= r2sq {
					out = append(out, Pair{I: i, J: j})
				}
			}
		}
		return out
	}
	for i, p := range x.pts {
		for _, j := range x.Within(p, r) {
			if j > i {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	slices.SortFunc(out, func(a, b Pair) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
	return out
}

// point is a handle-carrying kdtree.Comparable.
type point struct {
	r2.Vec
	handle int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.X - q.X
	}
	return p.Y - q.Y
}

func (p point) Dims() int { return 2 }

// Distance returns the squared Euclidean distance, as kdtree expects.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	return r2.Norm2(r2.Sub(p.Vec, q.Vec))
}

// points implements kdtree.Interface with a deterministic median split:
// the slice is sorted on the split dimension (handle breaks ties) and the
// middle element becomes the pivot.
type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p points) Pivot(d kdtree.Dim) int {
	sort.Sort(byDim{points: p, dim: d})
	return len(p) / 2
}

type byDim struct {
	points
	dim kdtree.Dim
}

func (b byDim) Less(i, j int) bool {
	if c := b.points[i].Compare(b.points[j], b.dim); c != 0 {
		return c < 0
	}
	return b.points[i].handle < b.points[j].handle
}

func (b byDim) Swap(i, j int) { b.points[i], b.points[j] = b.points[j], b.points[i] }
