package spatial

import (
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func randomPoints(n int, seed uint64) []r2.Vec {
	rng := rand.New(rand.NewPCG(seed, 7))
	pts := make([]r2.Vec, n)
	for i := range pts {
		pts[i] = r2.Vec{X: rng.Float64() * 20, Y: rng.Float64() * 20}
	}
	return pts
}

func bruteWithin(pts []r2.Vec, q r2.Vec, r float64) []int {
	var out []int
	for i, p := range pts {
		if r2.Norm(r2.Sub(p, q)) <= r {
			out = append(out, i)
		}
	}
	return out
}

func brutePairs(pts []r2.Vec, r float64) []Pair {
	var out []Pair
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if r2.Norm(r2.Sub(pts[i], pts[j])) <= r {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	return out
}

func TestWithinMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		r    float64
	}{
		{"brute force path", BruteForceBelow - 1, 5},
		{"tree path", 300, 1.5},
		{"tree path large radius", 300, 8},
		{"tree path zero radius", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := randomPoints(tt.n, uint64(tt.n))
			idx := New(pts)
			for _, q := range randomPoints(25, 99) {
				got := idx.Within(q, tt.r)
				want := bruteWithin(pts, q, tt.r)
				if !slices.Equal(got, want) {
					t.Fatalf("Within(%v, %v) = %v, want %v", q, tt.r, got, want)
				}
			}
		})
	}
}

func TestWithinFindsIndexedPoint(t *testing.T) {
	pts := randomPoints(64, 3)
	idx := New(pts)
	for i, p := range pts {
		if got := idx.Within(p, 0); !slices.Contains(got, i) {
			t.Fatalf("Within(pts[%d], 0) = %v, missing %d", i, got, i)
		}
	}
}

func TestPairsMatchesBruteForce(t *testing.T) {
	for _, n := range []int{5, BruteForceBelow, 150} {
		pts := randomPoints(n, 11)
		got := New(pts).Pairs(2)
		want := brutePairs(pts, 2)
		if !slices.Equal(got, want) {
			t.Errorf("n=%d: Pairs() returned %d pairs, want %d", n, len(got), len(want))
		}
	}
}

func TestDuplicatePoints(t *testing.T) {
	pts := make([]r2.Vec, 30)
	for i := range pts {
		pts[i] = r2.Vec{X: float64(i % 3), Y: 0}
	}
	idx := New(pts)
	got := idx.Within(r2.Vec{X: 1}, 0)
	if len(got) != 10 {
		t.Errorf("Within() on duplicates = %d points, want 10", len(got))
	}
	if pairs := idx.Pairs(0); len(pairs) != 3*45 {
		t.Errorf("Pairs(0) on duplicates = %d, want %d", len(pairs), 3*45)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := New(nil)
	if idx.Len() != 0 || idx.Within(r2.Vec{}, 10) != nil || idx.Pairs(10) != nil {
		t.Error("empty index returned results")
	}
	if New(randomPoints(50, 1)).Within(r2.Vec{}, -1) != nil {
		t.Error("negative radius returned results")
	}
}

func TestQueryDoesNotAliasInput(t *testing.T) {
	pts := randomPoints(40, 5)
	idx := New(pts)
	before := idx.Within(pts[0], 3)
	pts[0] = r2.Vec{X: 1e6, Y: 1e6}
	if after := idx.Within(idx.pts[0], 3); !slices.Equal(before, after) {
		t.Errorf("index changed after mutating input: %v vs %v", before, after)
	}
}
