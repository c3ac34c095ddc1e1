package csg

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
)

// ---------------------------------------------------------------------------
// Point pool
// ---------------------------------------------------------------------------

// pool holds every point of the evaluation. Points closer than eps are
// welded to one id; ids found equal later are joined with union.
type pool struct {
	pts    []geom.Vec
	parent []int
	eps    float64
	cell   float64
	grid   map[[3]int64][]int
}

func newPool(eps float64) *pool {
	return &pool{eps: eps, cell: 2 * eps, grid: make(map[[3]int64][]int)}
}

func (p *pool) key(v geom.Vec) [3]int64 {
	return [3]int64{
		int64(math.Floor(v.X / p.cell)),
		int64(math.Floor(v.Y / p.cell)),
		int64(math.Floor(v.Z / p.cell)),
	}
}

// add inserts v without welding.
func (p *pool) add(v geom.Vec) int {
	id := len(p.pts)
	p.pts = append(p.pts, v)
	p.parent = append(p.parent, id)
	k := p.key(v)
	p.grid[k] = append(p.grid[k], id)
	return id
}

// weld returns the lowest id below limit within eps of v, or inserts v. A
// negative limit searches every id.
func (p *pool) weld(v geom.Vec, limit int) int {
	k := p.key(v)
	best := -1
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, id := range p.grid[[3]int64{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if limit >= 0 && id >= limit {
						continue
					}
					if geom.Distance(p.pts[id], v) <= p.eps && (best < 0 || id < best) {
						best = id
					}
				}
			}
		}
	}
	if best >= 0 {
		return p.find(best)
	}
	return p.add(v)
}

func (p *pool) find(id int) int {
	for p.parent[id] != id {
		p.parent[id] = p.parent[p.parent[id]]
		id = p.parent[id]
	}
	return id
}

// union joins two ids; the lower root survives.
func (p *pool) union(a, b int) int {
	ra, rb := p.find(a), p.find(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	p.parent[rb] = ra
	return ra
}

// flatten points every id straight at its root. After flatten, pos may be
// called concurrently.
func (p *pool) flatten() {
	for id := range p.parent {
		p.parent[id] = p.find(id)
	}
}

func (p *pool) pos(id int) geom.Vec { return p.pts[p.parent[id]] }

// ---------------------------------------------------------------------------
// Weld phase
// ---------------------------------------------------------------------------

// wseg is an intersection segment in pool ids.
type wseg struct{ a, b int }

// welded is the sequential outcome of the intersection phase: pool ids of
// every operand vertex, the split points registered on every working edge,
// the segments crossing every working face and the coplanar partners of
// every working face.
type welded struct {
	pool     *pool
	ids      [2][]int
	splits   [2]map[feature][]int
	segs     [2][][]wseg
	coplanar [2][][]int
	nSegs    int
}

// weldResults runs the weld phase over results, given in pair order.
func weldResults(a, b *operand, pairs []candidate, results []pairResult, eps float64) *welded {
	w := &welded{pool: newPool(eps)}
	ops := [2]*operand{a, b}
	for s, op := range ops {
		w.splits[s] = make(map[feature][]int)
		w.segs[s] = make([][]wseg, len(op.faces))
		w.coplanar[s] = make([][]int, len(op.faces))
	}

	w.ids[SideA] = make([]int, a.ms.NumVertices())
	for v := range w.ids[SideA] {
		w.ids[SideA][v] = w.pool.add(a.point(mesh.VertexID(v)))
	}
	nA := len(w.pool.pts)
	w.ids[SideB] = make([]int, b.ms.NumVertices())
	for v := range w.ids[SideB] {
		// B vertices only weld to A vertices, never to each other.
		w.ids[SideB][v] = w.pool.weld(b.point(mesh.VertexID(v)), nA)
	}

	for i, r := range results {
		if r.coplanar {
			fa, fb := pairs[i].fa, pairs[i].fb
			w.coplanar[SideA][fa] = append(w.coplanar[SideA][fa], fb)
			w.coplanar[SideB][fb] = append(w.coplanar[SideB][fb], fa)
			continue
		}
		if !r.hasSeg {
			continue
		}
		var ids [2]int
		for j := 0; j < r.seg.n; j++ {
			ids[j] = w.endpointID(r.seg.ends[j])
		}
		if r.seg.n == 2 && w.pool.find(ids[0]) != w.pool.find(ids[1]) {
			w.segs[SideA][r.seg.fa] = append(w.segs[SideA][r.seg.fa], wseg{ids[0], ids[1]})
			w.segs[SideB][r.seg.fb] = append(w.segs[SideB][r.seg.fb], wseg{ids[0], ids[1]})
			w.nSegs++
		}
	}
	w.canonicalize()
	return w
}

// endpointID welds an endpoint and registers it on the edges it lies on.
func (w *welded) endpointID(e endpoint) int {
	var id int
	fa, fb := e.feat[SideA], e.feat[SideB]
	switch {
	case fa.kind == featVertex:
		id = w.ids[SideA][fa.v0]
		if fb.kind == featVertex {
			id = w.pool.union(id, w.ids[SideB][fb.v0])
		}
	case fb.kind == featVertex:
		id = w.ids[SideB][fb.v0]
	default:
		id = w.pool.weld(e.pos, -1)
	}
	for s, ft := range e.feat {
		if ft.kind == featEdge {
			w.splits[s][ft] = append(w.splits[s][ft], id)
		}
	}
	return id
}

// canonicalize maps every recorded id to its union root.
func (w *welded) canonicalize() {
	p := w.pool
	p.flatten()
	for s := range w.ids {
		for v, id := range w.ids[s] {
			w.ids[s][v] = p.find(id)
		}
		for k, ids := range w.splits[s] {
			for i, id := range ids {
				ids[i] = p.find(id)
			}
			w.splits[s][k] = ids
		}
		for f := range w.segs[s] {
			for i, sg := range w.segs[s][f] {
				w.segs[s][f][i] = wseg{p.find(sg.a), p.find(sg.b)}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Per-face splitting
// ---------------------------------------------------------------------------

// fragment is a simple polygon of a split face, in pool ids, oriented like
// its face.
type fragment struct {
	side   Side
	face   int // working face
	loop   []int
	area   float64
	sample geom.Vec
	label  Label
	patch  int
}

// faceSplit is the outcome of splitting one working face.
type faceSplit struct {
	frags []fragment
	isect []ekey
}

// boundaryLoop returns the boundary of working face fi with every split
// point registered on its edges inserted in order.
func (w *welded) boundaryLoop(op *operand, fi int) []int {
	f := &op.faces[fi]
	n := len(f.verts)
	var loop []int
	for k := 0; k < n; k++ {
		u, v := f.verts[k], f.verts[(k+1)%n]
		iu, iv := w.ids[op.side][u], w.ids[op.side][v]
		loop = append(loop, iu)
		splits := w.splits[op.side][edgeFeat(u, v)]
		if len(splits) == 0 {
			continue
		}
		pu := op.point(u)
		d := op.point(v).Sub(pu)
		type at struct {
			id int
			t  float64
		}
		var pts []at
		for _, id := range splits {
			if id == iu || id == iv {
				continue
			}
			pts = append(pts, at{id, w.pool.pos(id).Sub(pu).Dot(d)})
		}
		slices.SortFunc(pts, func(x, y at) int {
			switch {
			case x.t < y.t:
				return -1
			case x.t > y.t:
				return 1
			}
			return x.id - y.id
		})
		for _, p := range pts {
			loop = append(loop, p.id)
		}
	}
	return dedupeLoop(loop)
}

// dedupeLoop drops consecutive repeats, including across the wrap.
// Non-consecutive repeats stay; the arrangement resolves the pinch.
func dedupeLoop(loop []int) []int {
	out := loop[:0:0]
	for _, id := range loop {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// splitFace cuts working face fi of op along its intersection segments.
func (w *welded) splitFace(op *operand, fi int, eps float64) (faceSplit, error) {
	f := &op.faces[fi]
	boundary := w.boundaryLoop(op, fi)
	segs := w.segs[op.side][fi]

	xy := func(id int) geom.Vec2 { return f.proj.Project(w.pool.pos(id)) }
	loops, isect, err := arrange(boundary, segs, xy, eps)
	if err != nil {
		return faceSplit{}, &mesh.Error{Kind: mesh.KindNumericAmbiguity, Op: "split",
			Detail: fmt.Sprintf("face %d of %s", f.src, op.side), Err: err}
	}

	out := faceSplit{isect: isect}
	for _, loop := range loops {
		pts := make([]geom.Vec, len(loop))
		for i, id := range loop {
			pts[i] = w.pool.pos(id)
		}
		sample, ok := samplePoint(pts, f.proj)
		if !ok {
			continue
		}
		out.frags = append(out.frags, fragment{
			side:   op.side,
			face:   fi,
			loop:   loop,
			area:   math.Abs(geom.SignedArea2D(f.proj.ProjectAll(pts))) / math.Abs(geom.Component(f.plane.N, geom.DominantAxis(f.plane.N))),
			sample: sample,
			patch:  -1,
		})
	}
	return out, nil
}

// samplePoint returns a point strictly inside the polygon pts: the 3D
// centroid of the largest triangle of its triangulation.
func samplePoint(pts []geom.Vec, proj geom.Projector) (geom.Vec, bool) {
	q := proj.ProjectAll(pts)
	tris, err := geom.Triangulate2D(q)
	if err != nil {
		return geom.Vec{}, false
	}
	best, bestArea := -1, 0.0
	for i, t := range tris {
		a := math.Abs(geom.SignedArea2D([]geom.Vec2{q[t[0]], q[t[1]], q[t[2]]}))
		if a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return geom.Vec{}, false
	}
	t := tris[best]
	return pts[t[0]].Add(pts[t[1]]).Add(pts[t[2]]).MulScalar(1.0 / 3), true
}
