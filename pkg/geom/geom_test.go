package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearVec(a, b r2.Vec) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestReflect(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b r2.Vec
		want    r2.Vec
	}{
		{"across x axis", r2.Vec{X: 1, Y: 2}, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 1, Y: -2}},
		{"across diagonal", r2.Vec{X: 1}, r2.Vec{}, r2.Vec{X: 1, Y: 1}, r2.Vec{Y: 1}},
		{"point on line", r2.Vec{X: 3}, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 3}},
		{"offset line", r2.Vec{X: 0, Y: 3}, r2.Vec{X: 0, Y: 1}, r2.Vec{X: 2, Y: 1}, r2.Vec{X: 0, Y: -1}},
		{"degenerate line", r2.Vec{X: 4, Y: 4}, r2.Vec{X: 1}, r2.Vec{X: 1}, r2.Vec{X: 4, Y: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reflect(tt.p, tt.a, tt.b); !nearVec(got, tt.want) {
				t.Errorf("Reflect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSide(t *testing.T) {
	a, b := r2.Vec{}, r2.Vec{X: 1}
	if Side(a, b, r2.Vec{Y: 1}) <= 0 {
		t.Error("point above x axis should be on the left")
	}
	if Side(a, b, r2.Vec{Y: -1}) >= 0 {
		t.Error("point below x axis should be on the right")
	}
	if Side(a, b, r2.Vec{X: 5}) != 0 {
		t.Error("collinear point should have zero side")
	}
}

func TestCircumRadius(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{3, 1 / math.Sqrt(3)},
		{4, 1 / math.Sqrt(2)},
		{6, 1},
	}
	for _, tt := range tests {
		if got := CircumRadius(tt.n, 1); !near(got, tt.want) {
			t.Errorf("CircumRadius(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestLargestGap(t *testing.T) {
	tests := []struct {
		name      string
		neighbors []r2.Vec
		start     float64
		width     float64
	}{
		{"none", nil, 0, 2 * math.Pi},
		{"one", []r2.Vec{{Y: 1}}, math.Pi / 2, 2 * math.Pi},
		{"two opposite", []r2.Vec{{X: 1}, {X: -1}}, 0, math.Pi},
		{"ring atom", []r2.Vec{Polar(math.Pi/3, 1), Polar(-math.Pi/3, 1)}, math.Pi / 3, 4 * math.Pi / 3},
		{"three", []r2.Vec{{X: 1}, {Y: 1}, {X: -1}}, math.Pi, math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, width := LargestGap(r2.Vec{}, tt.neighbors)
			if !near(NormAngle(start), NormAngle(tt.start)) || !near(width, tt.width) {
				t.Errorf("LargestGap() = (%v, %v), want (%v, %v)", start, width, tt.start, tt.width)
			}
		})
	}
}

func TestBisector(t *testing.T) {
	// Two ring neighbours at ±60° leave the exterior bisector pointing along -x.
	got := Bisector(r2.Vec{}, []r2.Vec{Polar(math.Pi/3, 1), Polar(-math.Pi/3, 1)})
	if !nearVec(got, r2.Vec{X: -1}) {
		t.Errorf("Bisector() = %v, want (-1, 0)", got)
	}
}

func TestCentroid(t *testing.T) {
	if got := Centroid(nil); got != (r2.Vec{}) {
		t.Errorf("Centroid(nil) = %v", got)
	}
	got := Centroid([]r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 3}})
	if !nearVec(got, r2.Vec{X: 1, Y: 1}) {
		t.Errorf("Centroid() = %v, want (1, 1)", got)
	}
}
