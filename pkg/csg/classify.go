package csg

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
)

// rayCount is the number of directions tried before a patch is reported
// ambiguous.
const rayCount = 32

// rayDirections returns n unit vectors spread over the sphere on a golden
// spiral. The sequence is fixed, so classification is deterministic.
func rayDirections(n int) []geom.Vec {
	dirs := make([]geom.Vec, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range dirs {
		z := 1 - (2*float64(i)+1)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden*float64(i) + 0.1
		dirs[i] = geom.V(r*math.Cos(phi), r*math.Sin(phi), z)
	}
	return dirs
}

// classifier labels the fragments of both operands.
type classifier struct {
	ops   [2]*operand
	w     *welded
	frags []fragment
	isect map[ekey]bool
	eps   float64
	dirs  []geom.Vec
}

// run labels every fragment and returns the number of patches ray cast.
func (c *classifier) run(workers int) (int, error) {
	c.dirs = rayDirections(rayCount)
	c.labelOn()
	patches := c.patches()

	labels := make([]Label, len(patches))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, chunk := range chunks(len(patches), workers) {
		g.Go(func() error {
			ctx := NewClassificationContext()
			for i := chunk[0]; i < chunk[1]; i++ {
				l, err := c.castPatch(ctx, patches[i])
				if err != nil {
					return err
				}
				labels[i] = l
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for i, p := range patches {
		for _, fi := range p {
			c.frags[fi].label = labels[i]
			c.frags[fi].patch = i
		}
	}
	return len(patches), nil
}

// labelOn marks fragments lying inside a coplanar face of the other
// operand.
func (c *classifier) labelOn() {
	for i := range c.frags {
		fr := &c.frags[i]
		partners := c.w.coplanar[fr.side][fr.face]
		if len(partners) == 0 {
			continue
		}
		own := &c.ops[fr.side].faces[fr.face]
		other := c.ops[fr.side.other()]
		p := own.proj.Project(fr.sample)
		for _, pj := range partners {
			pf := &other.faces[pj]
			if geom.PointInPolygon2D(p, own.proj.ProjectAll(facePoints(other, pj))) == geom.Negative {
				continue
			}
			if own.plane.N.Dot(pf.plane.N) > 0 {
				fr.label = OnSame
			} else {
				fr.label = OnOpposite
			}
			break
		}
	}
}

// patches groups the unlabelled fragments of each operand that are
// connected across edges not on the intersection. Each patch lists
// fragment indices, largest area first.
func (c *classifier) patches() [][]int {
	parent := make([]int, len(c.frags))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	type sideEdge struct {
		side Side
		e    ekey
	}
	first := make(map[sideEdge]int)
	for i := range c.frags {
		fr := &c.frags[i]
		if fr.label != Unknown {
			continue
		}
		n := len(fr.loop)
		for k := range fr.loop {
			e := ukey(fr.loop[k], fr.loop[(k+1)%n])
			if c.isect[e] {
				continue
			}
			key := sideEdge{fr.side, e}
			if j, ok := first[key]; ok {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
				continue
			}
			first[key] = i
		}
	}

	index := make(map[int]int)
	var out [][]int
	for i := range c.frags {
		if c.frags[i].label != Unknown {
			continue
		}
		r := find(i)
		k, ok := index[r]
		if !ok {
			k = len(out)
			index[r] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], i)
	}
	for _, p := range out {
		slices.SortStableFunc(p, func(x, y int) int { return cmp.Compare(c.frags[y].area, c.frags[x].area) })
	}
	return out
}

// castPatch classifies a patch by casting rays from its largest fragment.
func (c *classifier) castPatch(ctx *ClassificationContext, patch []int) (Label, error) {
	fr := &c.frags[patch[0]]
	n := c.ops[fr.side].faces[fr.face].plane.N

	// Rays close to the face normal graze the least.
	dirs := slices.Clone(c.dirs)
	slices.SortStableFunc(dirs, func(x, y geom.Vec) int {
		return cmp.Compare(math.Abs(y.Dot(n)), math.Abs(x.Dot(n)))
	})
	for _, d := range dirs {
		if math.Abs(d.Dot(n)) < 1e-3 {
			continue
		}
		l, ok := c.cast(ctx, fr, d)
		if ok {
			return l, nil
		}
	}
	return Unknown, &mesh.Error{Kind: mesh.KindNumericAmbiguity, Op: "classify",
		Detail: fmt.Sprintf("face %d of %s: no conclusive ray", c.ops[fr.side].faces[fr.face].src, fr.side)}
}

// cast sums the signed crossings of the ray from fr's sample along dir
// with the other operand. It reports false when the ray grazes an edge or
// vertex.
func (c *classifier) cast(ctx *ClassificationContext, fr *fragment, dir geom.Vec) (Label, bool) {
	other := c.ops[fr.side.other()]
	own := c.ops[fr.side].faces[fr.face].plane.N
	origin := fr.sample
	tol := 16 * c.eps

	ctx.BeginPass()
	winding := 0
	label := Unknown
	grazed := false
	other.tree.QueryRay(origin, dir, func(item int) bool {
		if !ctx.MarkIfUnseen(other.side, ElemFace, item) {
			return true
		}
		f := &other.faces[item]
		den := f.plane.N.Dot(dir)
		dist := f.plane.Distance(origin)
		if math.Abs(den) < 1e-12 {
			if math.Abs(dist) <= tol && c.near(other, item, origin, tol) {
				grazed = true
				return false
			}
			return true
		}
		t := -dist / den
		if t < -tol {
			return true
		}
		hit := origin.Add(dir.MulScalar(t))
		if c.nearBoundary(other, item, hit, tol) {
			grazed = true
			return false
		}
		if geom.PointInPolygon2D(f.proj.Project(hit), f.loop2) != geom.Positive {
			return true
		}
		if t <= tol {
			// The sample lies on this face.
			if own.Dot(f.plane.N) > 0 {
				label = OnSame
			} else {
				label = OnOpposite
			}
			return false
		}
		if den > 0 {
			winding++
		} else {
			winding--
		}
		return true
	})
	if grazed {
		return Unknown, false
	}
	if label != Unknown {
		return label, true
	}
	if winding > 0 {
		return In, true
	}
	return Out, true
}

// nearBoundary reports whether p lies within tol of an edge of face fi.
func (c *classifier) nearBoundary(op *operand, fi int, p geom.Vec, tol float64) bool {
	f := &op.faces[fi]
	n := len(f.verts)
	for k := 0; k < n; k++ {
		if pointSegmentDistance(p, op.point(f.verts[k]), op.point(f.verts[(k+1)%n])) <= tol {
			return true
		}
	}
	return false
}

// near reports whether p lies within tol of face fi, boundary included.
func (c *classifier) near(op *operand, fi int, p geom.Vec, tol float64) bool {
	f := &op.faces[fi]
	if c.nearBoundary(op, fi, p, tol) {
		return true
	}
	return geom.PointInPolygon2D(f.proj.Project(p), f.loop2) != geom.Negative
}

// chunks splits [0, n) into at most parts contiguous ranges.
func chunks(n, parts int) [][2]int {
	if n == 0 {
		return nil
	}
	parts = max(1, min(parts, n))
	size := (n + parts - 1) / parts
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
