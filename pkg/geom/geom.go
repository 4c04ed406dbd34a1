// Package geom holds the small amount of plane geometry the layout phases
// share: angles, reflections, polygon radii and angular gap search. All
// vectors are gonum r2.Vec values.
package geom

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// Eps is the tolerance used for degenerate-geometry checks.
const Eps = 1e-9

// Angle returns the polar angle of v in (-π, π].
func Angle(v r2.Vec) float64 { return math.Atan2(v.Y, v.X) }

// Polar returns the vector of length r at angle theta.
func Polar(theta, r float64) r2.Vec {
	return r2.Vec{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b r2.Vec) float64 { return r2.Norm(r2.Sub(a, b)) }

// Side returns the signed area spanned by a→b and a→p: positive when p lies
// to the left of the directed line a→b, negative to the right, zero on it.
func Side(a, b, p r2.Vec) float64 { return r2.Cross(r2.Sub(b, a), r2.Sub(p, a)) }

// Reflect mirrors p across the line through a and b. When a and b coincide
// p is returned unchanged.
func Reflect(p, a, b r2.Vec) r2.Vec {
	d := r2.Sub(b, a)
	n := r2.Norm2(d)
	if n < Eps*Eps {
		return p
	}
	v := r2.Sub(p, a)
	proj := r2.Scale(r2.Dot(v, d)/n, d)
	return r2.Add(a, r2.Sub(r2.Scale(2, proj), v))
}

// Centroid returns the mean of pts, or the zero vector for no points.
func Centroid(pts []r2.Vec) r2.Vec {
	if len(pts) == 0 {
		return r2.Vec{}
	}
	var c r2.Vec
	for _, p := range pts {
		c = r2.Add(c, p)
	}
	return r2.Scale(1/float64(len(pts)), c)
}

// CircumRadius returns the circumradius of a regular n-gon with the given
// side length.
func CircumRadius(n int, side float64) float64 {
	return side / (2 * math.Sin(math.Pi/float64(n)))
}

// NormAngle maps theta into [0, 2π).
func NormAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// LargestGap returns the start angle and width of the widest empty angular
// sector around center, given the positions of its existing neighbours.
// With no neighbours the whole circle starting at angle 0 is free; with one,
// the free sector starts and ends at that neighbour's direction. Ties keep
// the sector that starts at the smallest angle.
func LargestGap(center r2.Vec, neighbors []r2.Vec) (start, width float64) {
	switch len(neighbors) {
	case 0:
		return 0, 2 * math.Pi
	case 1:
		return Angle(r2.Sub(neighbors[0], center)), 2 * math.Pi
	}
	angles := make([]float64, len(neighbors))
	for i, p := range neighbors {
		angles[i] = NormAngle(Angle(r2.Sub(p, center)))
	}
	slices.Sort(angles)
	width = -1
	for i, a := range angles {
		next := angles[(i+1)%len(angles)]
		gap := next - a
		if i == len(angles)-1 {
			gap += 2 * math.Pi
		}
		if gap > width+Eps {
			start, width = a, gap
		}
	}
	return start, width
}

// Bisector returns the unit vector through the middle of the largest free
// sector around center.
func Bisector(center r2.Vec, neighbors []r2.Vec) r2.Vec {
	start, width := LargestGap(center, neighbors)
	return Polar(start+width/2, 1)
}
