package csg

import (
	"math"
	"slices"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
)

// featKind is the dimension of the mesh element a point lies on.
type featKind uint8

const (
	featFace featKind = iota
	featEdge
	featVertex
)

// feature is the lowest-dimensional element of one operand that an
// intersection point lies on. Edges are stored with v0 < v1.
type feature struct {
	kind   featKind
	v0, v1 mesh.VertexID
}

func vertexFeat(v mesh.VertexID) feature { return feature{kind: featVertex, v0: v, v1: v} }

func edgeFeat(a, b mesh.VertexID) feature {
	if a > b {
		a, b = b, a
	}
	return feature{kind: featEdge, v0: a, v1: b}
}

// endpoint is one end of an intersection segment with its feature in both
// operands, indexed by Side.
type endpoint struct {
	pos  geom.Vec
	feat [2]feature
}

// segment is the intersection of working faces fa of A and fb of B. A
// segment with n == 1 is a single touching point.
type segment struct {
	fa, fb int
	ends   [2]endpoint
	n      int
}

// contact is a point where a face meets the other face's plane.
type contact struct {
	pos  geom.Vec
	t    float64
	feat feature
}

// interval is the part of the line shared by both planes that a convex
// face covers. run lists, in order of t, the face vertices lying on the
// other plane when the interval runs along the face boundary.
type interval struct {
	lo, hi contact
	run    []contact
}

// pairResult is the outcome of testing one candidate pair.
type pairResult struct {
	seg      segment
	hasSeg   bool
	coplanar bool
}

// intersectPair intersects working face fa of a with working face fb of b.
func intersectPair(a, b *operand, fa, fb int, eps float64) pairResult {
	wa, wb := &a.faces[fa], &b.faces[fb]
	sa := a.signs(fa, wb)
	sb := b.signs(fb, wa)

	if oneSided(sa) || oneSided(sb) {
		return pairResult{}
	}
	if allZero(sa) || allZero(sb) {
		if polygonsOverlap(wa.proj.ProjectAll(facePoints(a, fa)), wa.proj.ProjectAll(facePoints(b, fb))) {
			return pairResult{coplanar: true}
		}
		return pairResult{}
	}

	dir := wa.plane.N.Cross(wb.plane.N)
	if l := dir.Length(); l > 1e-12 {
		dir = dir.MulScalar(1 / l)
	} else {
		dir = fallbackDirection(a, fa, sa, wb.plane, b, fb, sb, wa.plane)
		if dir == (geom.Vec{}) {
			return pairResult{}
		}
	}

	ia, okA := faceInterval(a, fa, sa, wb.plane, dir)
	ib, okB := faceInterval(b, fb, sb, wa.plane, dir)
	if !okA || !okB {
		return pairResult{}
	}

	lo := math.Max(ia.lo.t, ib.lo.t)
	hi := math.Min(ia.hi.t, ib.hi.t)
	if lo > hi+eps {
		return pairResult{}
	}

	seg := segment{fa: fa, fb: fb, n: 2}
	seg.ends[0] = makeEndpoint(ia, ib, lo, ia.lo.t >= ib.lo.t, true, eps)
	if hi-lo <= eps {
		seg.n = 1
	} else {
		seg.ends[1] = makeEndpoint(ia, ib, hi, ia.hi.t <= ib.hi.t, false, eps)
	}
	for i := 0; i < seg.n; i++ {
		e := &seg.ends[i]
		e.feat[SideA] = refineFeature(a, fa, e.feat[SideA], e.pos, eps)
		e.feat[SideB] = refineFeature(b, fb, e.feat[SideB], e.pos, eps)
		// Vertex features fix the position exactly.
		switch {
		case e.feat[SideA].kind == featVertex:
			e.pos = a.point(e.feat[SideA].v0)
		case e.feat[SideB].kind == featVertex:
			e.pos = b.point(e.feat[SideB].v0)
		}
	}
	return pairResult{seg: seg, hasSeg: true}
}

func oneSided(s []geom.Sign) bool {
	first := s[0]
	if first == geom.Zero {
		return false
	}
	for _, x := range s[1:] {
		if x != first {
			return false
		}
	}
	return true
}

func allZero(s []geom.Sign) bool {
	for _, x := range s {
		if x != geom.Zero {
			return false
		}
	}
	return true
}

func facePoints(op *operand, fi int) []geom.Vec {
	f := &op.faces[fi]
	pts := make([]geom.Vec, len(f.verts))
	for i, v := range f.verts {
		pts[i] = op.point(v)
	}
	return pts
}

// faceInterval collects the contacts of face fi with plane and returns
// their extent along dir.
func faceInterval(op *operand, fi int, s []geom.Sign, plane geom.Plane, dir geom.Vec) (interval, bool) {
	f := &op.faces[fi]
	n := len(f.verts)
	var pts []contact
	zeros := 0
	for k, v := range f.verts {
		if s[k] == geom.Zero {
			p := op.point(v)
			pts = append(pts, contact{pos: p, t: dir.Dot(p), feat: vertexFeat(v)})
			zeros++
		}
	}
	crossings := 0
	for k := 0; k < n; k++ {
		j := (k + 1) % n
		if s[k]*s[j] >= 0 {
			continue
		}
		p := edgeCrossing(op, f.verts[k], f.verts[j], plane)
		pts = append(pts, contact{pos: p, t: dir.Dot(p), feat: edgeFeat(f.verts[k], f.verts[j])})
		crossings++
	}
	if len(pts) == 0 {
		return interval{}, false
	}
	slices.SortStableFunc(pts, func(x, y contact) int {
		switch {
		case x.t < y.t:
			return -1
		case x.t > y.t:
			return 1
		}
		return 0
	})
	iv := interval{lo: pts[0], hi: pts[len(pts)-1]}
	if crossings == 0 && zeros >= 2 && zeroRunConsecutive(s) {
		iv.run = pts
	}
	return iv, true
}

// zeroRunConsecutive reports whether the Zero signs form one cyclic run.
func zeroRunConsecutive(s []geom.Sign) bool {
	n := len(s)
	starts := 0
	for k := 0; k < n; k++ {
		if s[k] == geom.Zero && s[(k+n-1)%n] != geom.Zero {
			starts++
		}
	}
	return starts == 1
}

// edgeCrossing returns where edge u-w crosses plane. The edge is evaluated
// from its lower vertex id, so every face sharing the edge gets the same
// bits.
func edgeCrossing(op *operand, u, w mesh.VertexID, plane geom.Plane) geom.Vec {
	if u > w {
		u, w = w, u
	}
	pu, pw := op.point(u), op.point(w)
	du, dw := plane.Distance(pu), plane.Distance(pw)
	t := 0.5
	if du != dw {
		t = du / (du - dw)
	}
	t = math.Max(0, math.Min(1, t))
	return geom.Lerp(pu, pw, t)
}

// fallbackDirection parameterises contacts of nearly parallel planes along
// the widest span between any two of them. It returns the zero vector when
// all contacts coincide.
func fallbackDirection(a *operand, fa int, sa []geom.Sign, pb geom.Plane, b *operand, fb int, sb []geom.Sign, pa geom.Plane) geom.Vec {
	var pts []geom.Vec
	if iv, ok := faceInterval(a, fa, sa, pb, geom.V(1, 0, 0)); ok {
		pts = append(pts, iv.lo.pos, iv.hi.pos)
		for _, c := range iv.run {
			pts = append(pts, c.pos)
		}
	}
	if iv, ok := faceInterval(b, fb, sb, pa, geom.V(1, 0, 0)); ok {
		pts = append(pts, iv.lo.pos, iv.hi.pos)
	}
	var best geom.Vec
	bestLen := 0.0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := pts[j].Sub(pts[i])
			if l := d.Length(); l > bestLen {
				best, bestLen = d.MulScalar(1/l), l
			}
		}
	}
	return best
}

// makeEndpoint builds the overlap endpoint at parameter t. fromA selects
// which interval the position is taken from.
func makeEndpoint(ia, ib interval, t float64, fromA, low bool, eps float64) endpoint {
	pick := func(iv interval) contact {
		if low {
			return iv.lo
		}
		return iv.hi
	}
	var e endpoint
	if fromA {
		e.pos = pick(ia).pos
	} else {
		e.pos = pick(ib).pos
	}
	e.feat[SideA] = ia.featureAt(t, eps)
	e.feat[SideB] = ib.featureAt(t, eps)
	return e
}

// featureAt returns the feature of the face at parameter t of its
// interval.
func (iv interval) featureAt(t, eps float64) feature {
	if math.Abs(t-iv.lo.t) <= eps {
		return iv.lo.feat
	}
	if math.Abs(t-iv.hi.t) <= eps {
		return iv.hi.feat
	}
	if iv.run == nil {
		return feature{kind: featFace}
	}
	for i := range iv.run {
		if math.Abs(t-iv.run[i].t) <= eps {
			return iv.run[i].feat
		}
		if i+1 < len(iv.run) && t > iv.run[i].t && t < iv.run[i+1].t {
			return edgeFeat(iv.run[i].feat.v0, iv.run[i+1].feat.v0)
		}
	}
	return feature{kind: featFace}
}

// refineFeature moves a feature to a lower dimension when pos lies within
// eps of an edge or vertex of working face fi.
func refineFeature(op *operand, fi int, ft feature, pos geom.Vec, eps float64) feature {
	switch ft.kind {
	case featVertex:
		return ft
	case featEdge:
		if geom.Distance(pos, op.point(ft.v0)) <= eps {
			return vertexFeat(ft.v0)
		}
		if geom.Distance(pos, op.point(ft.v1)) <= eps {
			return vertexFeat(ft.v1)
		}
		return ft
	}
	f := &op.faces[fi]
	n := len(f.verts)
	for _, v := range f.verts {
		if geom.Distance(pos, op.point(v)) <= eps {
			return vertexFeat(v)
		}
	}
	for k := 0; k < n; k++ {
		u, w := f.verts[k], f.verts[(k+1)%n]
		if pointSegmentDistance(pos, op.point(u), op.point(w)) <= eps {
			return edgeFeat(u, w)
		}
	}
	return ft
}

func pointSegmentDistance(p, a, b geom.Vec) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return geom.Distance(p, a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return geom.Distance(p, geom.Lerp(a, b, t))
}

// polygonsOverlap reports whether two coplanar convex polygons, given in a
// common projection, share area or touch.
func polygonsOverlap(p, q []geom.Vec2) bool {
	if geom.PointInPolygon2D(centroid2(p), q) != geom.Negative ||
		geom.PointInPolygon2D(centroid2(q), p) != geom.Negative {
		return true
	}
	for _, v := range p {
		if geom.PointInPolygon2D(v, q) == geom.Positive {
			return true
		}
	}
	for _, v := range q {
		if geom.PointInPolygon2D(v, p) == geom.Positive {
			return true
		}
	}
	for i := range p {
		for j := range q {
			if _, _, ok := geom.SegmentIntersect2D(p[i], p[(i+1)%len(p)], q[j], q[(j+1)%len(q)]); ok {
				return true
			}
		}
	}
	return false
}

func centroid2(p []geom.Vec2) geom.Vec2 {
	var c geom.Vec2
	for _, v := range p {
		c.X += v.X
		c.Y += v.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}
