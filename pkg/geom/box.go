package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Box is an axis-aligned bounding box.
type Box = sdf.Box3

// BoxOf returns the smallest box containing pts. The zero Box is returned
// for no points.
func BoxOf(pts ...Vec) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Include(p)
	}
	return b
}

// Grow returns b enlarged by eps on every side.
func Grow(b Box, eps float64) Box {
	e := V(eps, eps, eps)
	return Box{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Overlaps reports whether a and b overlap or come within eps of each
// other. Touching boxes overlap.
func Overlaps(a, b Box, eps float64) bool {
	return !(a.Max.X+eps < b.Min.X || a.Min.X-eps > b.Max.X ||
		a.Max.Y+eps < b.Min.Y || a.Min.Y-eps > b.Max.Y ||
		a.Max.Z+eps < b.Min.Z || a.Min.Z-eps > b.Max.Z)
}

// ContainsPoint reports whether p lies in b grown by eps.
func ContainsPoint(b Box, p Vec, eps float64) bool {
	return p.X >= b.Min.X-eps && p.X <= b.Max.X+eps &&
		p.Y >= b.Min.Y-eps && p.Y <= b.Max.Y+eps &&
		p.Z >= b.Min.Z-eps && p.Z <= b.Max.Z+eps
}

// RayBox reports whether the ray origin + t*dir, t >= 0, passes through b
// grown by eps (slab test).
func RayBox(b Box, origin, dir Vec, eps float64) bool {
	tmin, tmax := 0.0, math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := Component(origin, axis)
		d := Component(dir, axis)
		lo := Component(b.Min, axis) - eps
		hi := Component(b.Max, axis) + eps
		if d == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// Diagonal returns the length of the box diagonal.
func Diagonal(b Box) float64 {
	return b.Size().Length()
}
