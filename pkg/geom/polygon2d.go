package geom

import (
	"errors"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Vec2 is a point in a face's projected 2D frame.
type Vec2 = v2.Vec

// ErrTriangulation is returned when a polygon has no valid ear left.
var ErrTriangulation = errors.New("geom: polygon cannot be triangulated")

// DominantAxis returns the axis (0, 1, 2) along which n has the largest
// magnitude. Ties go to the lower axis.
func DominantAxis(n Vec) int {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	}
	return 2
}

// Projector maps points of a plane to 2D by dropping the dominant axis of the
// plane normal. The two kept axes are ordered so that a polygon that is
// counterclockwise seen from the tip of the normal has positive signed area.
type Projector struct {
	U, V int
}

// NewProjector returns the orientation-preserving projector for normal n.
func NewProjector(n Vec) Projector {
	axis := DominantAxis(n)
	u, v := (axis+1)%3, (axis+2)%3
	if Component(n, axis) < 0 {
		u, v = v, u
	}
	return Projector{U: u, V: v}
}

// Project returns the 2D image of p.
func (pr Projector) Project(p Vec) Vec2 {
	return Vec2{X: Component(p, pr.U), Y: Component(p, pr.V)}
}

// ProjectAll projects every point of pts.
func (pr Projector) ProjectAll(pts []Vec) []Vec2 {
	out := make([]Vec2, len(pts))
	for i, p := range pts {
		out[i] = pr.Project(p)
	}
	return out
}

// SignedArea2D returns the signed area of a polygon ring, positive for
// counterclockwise rings.
func SignedArea2D(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		p := pts[i]
		q := pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// PolygonArea returns the unsigned area of a planar polygon ring in 3-space.
func PolygonArea(pts []Vec) float64 {
	return NewellNormal(pts).Length() / 2
}

// OnSegment2D reports whether p lies on the closed segment a-b, exactly.
func OnSegment2D(p, a, b Vec2) bool {
	if Orient2D(a, b, p) != Zero {
		return false
	}
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// PointInPolygon2D locates p against the ring poly: Positive inside, Zero on
// the boundary, Negative outside. The ring may have either orientation.
func PointInPolygon2D(p Vec2, poly []Vec2) Sign {
	inside := false
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if OnSegment2D(p, a, b) {
			return Zero
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			// Crossing to the right of p.
			s := Orient2D(a, b, p)
			if (b.Y > a.Y && s == Positive) || (b.Y < a.Y && s == Negative) {
				inside = !inside
			}
		}
	}
	if inside {
		return Positive
	}
	return Negative
}

// SegmentIntersect2D intersects a-b with c-d. It returns the parameters along
// both segments of a single proper or touching crossing. Collinear overlaps
// and misses report false.
func SegmentIntersect2D(a, b, c, d Vec2) (t, u float64, ok bool) {
	o1 := Orient2D(a, b, c)
	o2 := Orient2D(a, b, d)
	o3 := Orient2D(c, d, a)
	o4 := Orient2D(c, d, b)
	if o1 == Zero && o2 == Zero {
		return 0, 0, false
	}
	if o1 == o2 || o3 == o4 {
		return 0, 0, false
	}
	rx, ry := b.X-a.X, b.Y-a.Y
	sx, sy := d.X-c.X, d.Y-c.Y
	den := rx*sy - ry*sx
	if den == 0 {
		return 0, 0, false
	}
	cax, cay := c.X-a.X, c.Y-a.Y
	t = (cax*sy - cay*sx) / den
	u = (cax*ry - cay*rx) / den
	return clamp01(t), clamp01(u), true
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// PolygonPlaneSigns returns the exact side of every point of pts relative to
// the plane through a, b and c.
func PolygonPlaneSigns(pts []Vec, a, b, c Vec) []Sign {
	out := make([]Sign, len(pts))
	for i, p := range pts {
		out[i] = Orient3D(a, b, c, p)
	}
	return out
}

// ---------------------------------------------------------------------------
// Triangulation
// ---------------------------------------------------------------------------

// Triangulate2D ear-clips a simple or weakly simple polygon ring (a ring
// whose vertices may repeat where hole bridges touch the outer boundary).
// Triangles index into pts and are counterclockwise when the ring is.
// Vertices lying on a candidate diagonal block that ear, so collinear
// vertices always end up as triangle corners and no T-junctions are made.
func Triangulate2D(pts []Vec2) ([][3]int, error) {
	n := len(pts)
	if n < 3 {
		return nil, ErrTriangulation
	}
	ccw := SignedArea2D(pts) >= 0
	idx := make([]int, n)
	for i := range idx {
		if ccw {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}

	tris := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		k := findEar(pts, idx, true)
		if k < 0 {
			k = findEar(pts, idx, false)
		}
		if k < 0 {
			return nil, ErrTriangulation
		}
		m := len(idx)
		p, c, q := idx[(k+m-1)%m], idx[k], idx[(k+1)%m]
		tris = append(tris, orientTri(p, c, q, ccw))
		idx = append(idx[:k], idx[k+1:]...)
	}
	if Orient2D(pts[idx[0]], pts[idx[1]], pts[idx[2]]) != Positive {
		return nil, ErrTriangulation
	}
	tris = append(tris, orientTri(idx[0], idx[1], idx[2], ccw))
	return tris, nil
}

func orientTri(a, b, c int, ccw bool) [3]int {
	if ccw {
		return [3]int{a, b, c}
	}
	return [3]int{a, c, b}
}

// findEar returns the position in idx of a clippable vertex, or -1. Strict
// mode rejects ears whose triangle touches any other vertex; relaxed mode
// only rejects vertices strictly inside.
func findEar(pts []Vec2, idx []int, strict bool) int {
	m := len(idx)
	for k := 0; k < m; k++ {
		a := pts[idx[(k+m-1)%m]]
		b := pts[idx[k]]
		c := pts[idx[(k+1)%m]]
		if Orient2D(a, b, c) != Positive {
			continue
		}
		ear := true
		for j := 0; j < m && ear; j++ {
			if j == k || j == (k+m-1)%m || j == (k+1)%m {
				continue
			}
			p := pts[idx[j]]
			if p == a || p == b || p == c {
				continue
			}
			s1 := Orient2D(a, b, p)
			s2 := Orient2D(b, c, p)
			s3 := Orient2D(c, a, p)
			if s1 == Negative || s2 == Negative || s3 == Negative {
				continue
			}
			if strict || (s1 == Positive && s2 == Positive && s3 == Positive) {
				ear = false
			}
		}
		if ear {
			return k
		}
	}
	return -1
}

// InteriorPoint2D returns a point strictly inside the polygon ring: the
// centroid of the largest triangle of its triangulation.
func InteriorPoint2D(pts []Vec2) (Vec2, bool) {
	tris, err := Triangulate2D(pts)
	if err != nil || len(tris) == 0 {
		return Vec2{}, false
	}
	best, bestArea := -1, 0.0
	for i, t := range tris {
		a := math.Abs(SignedArea2D([]Vec2{pts[t[0]], pts[t[1]], pts[t[2]]}))
		if a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return Vec2{}, false
	}
	t := tris[best]
	a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
	return Vec2{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3}, true
}
