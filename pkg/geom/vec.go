// Package geom is the geometry kernel of the boolean engine: points and
// vectors, planes, axis-aligned boxes, 2D projections of planar polygons and
// the tri-state orientation predicates that every topological decision goes
// through.
//
// Points and vectors are the sdfx vector type, so meshes can be transformed
// with sdfx matrices and boxes are plain sdf.Box3 values.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultEpsilon is the relative tolerance used for welding points and for
// the non-topological comparisons (parameters along a line, distances in a
// projected face). It is multiplied by the size of the operands, see
// ScaledEpsilon.
const DefaultEpsilon = 1e-9

// Vec is a point or a vector in 3-space.
type Vec = v3.Vec

// V is shorthand for a Vec literal.
func V(x, y, z float64) Vec {
	return Vec{X: x, Y: y, Z: z}
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b Vec, t float64) Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// Component returns the coordinate of v along axis 0 (X), 1 (Y) or 2 (Z).
func Component(v Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Finite reports whether all coordinates of v are finite numbers.
func Finite(v Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return a.Sub(b).Length()
}

// ScaledEpsilon turns the relative DefaultEpsilon-style tolerance rel into an
// absolute one for geometry whose bounding box has the given size. Geometry
// smaller than one unit uses rel unchanged.
func ScaledEpsilon(rel float64, size Vec) float64 {
	s := math.Max(math.Abs(size.X), math.Max(math.Abs(size.Y), math.Abs(size.Z)))
	if s < 1 {
		s = 1
	}
	return rel * s
}
