package geom

import "math"

// Plane is the set of points p with N·p + D = 0. N has unit length.
type Plane struct {
	N Vec
	D float64
}

// NewellNormal returns the (unnormalised) normal of the polygon ring pts
// using Newell's method. Its length is twice the polygon's area and it is
// well defined for non-convex and slightly non-planar rings.
func NewellNormal(pts []Vec) Vec {
	var n Vec
	for i := range pts {
		p := pts[i]
		q := pts[(i+1)%len(pts)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}

// Centroid returns the average of pts.
func Centroid(pts []Vec) Vec {
	var c Vec
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.MulScalar(1 / float64(len(pts)))
}

// NewellPlane returns the best-fit plane of a polygon ring. ok is false when
// the ring has no area.
func NewellPlane(pts []Vec) (Plane, bool) {
	n := NewellNormal(pts)
	l := n.Length()
	if l == 0 || math.IsNaN(l) {
		return Plane{}, false
	}
	n = n.MulScalar(1 / l)
	return Plane{N: n, D: -n.Dot(Centroid(pts))}, true
}

// PlaneFromPoints returns the plane through a, b and c oriented by
// (b-a)×(c-a). ok is false for collinear points.
func PlaneFromPoints(a, b, c Vec) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return Plane{}, false
	}
	n = n.MulScalar(1 / l)
	return Plane{N: n, D: -n.Dot(a)}, true
}

// Distance returns the signed distance from p to the plane, positive on the
// side N points to.
func (pl Plane) Distance(p Vec) float64 {
	return pl.N.Dot(p) + pl.D
}

// Flip returns the plane with the opposite orientation.
func (pl Plane) Flip() Plane {
	return Plane{N: pl.N.Neg(), D: -pl.D}
}

// ProjectPoint returns the orthogonal projection of p onto the plane.
func (pl Plane) ProjectPoint(p Vec) Vec {
	return p.Sub(pl.N.MulScalar(pl.Distance(p)))
}

// SegmentPlane intersects the segment p→q with the plane. It returns the
// parameter t in [0,1] of the crossing and false when the segment does not
// cross or lies in the plane.
func SegmentPlane(p, q Vec, pl Plane) (float64, bool) {
	dp := pl.Distance(p)
	dq := pl.Distance(q)
	if (dp > 0 && dq > 0) || (dp < 0 && dq < 0) || dp == dq {
		return 0, false
	}
	return dp / (dp - dq), true
}

// PlaneLine returns a point on and the unit direction of the line where two
// planes meet. ok is false for (nearly) parallel planes.
func PlaneLine(a, b Plane) (point, dir Vec, ok bool) {
	dir = a.N.Cross(b.N)
	l2 := dir.Dot(dir)
	if l2 < 1e-24 {
		return Vec{}, Vec{}, false
	}
	// Point solving both plane equations, closest to the origin.
	point = b.N.MulScalar(-a.D).Sub(a.N.MulScalar(-b.D)).Cross(dir).MulScalar(1 / l2)
	return point, dir.MulScalar(1 / math.Sqrt(l2)), true
}
