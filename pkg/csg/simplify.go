package csg

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
)

// stitch turns the selected loops into a validated MeshSet.
func stitch(p *pool, loops [][]int, o options, eps float64) (*mesh.MeshSet, error) {
	verts, faces := compact(p, loops)
	tol := 10 * eps

	faces = collapseSlivers(verts, faces, tol)
	if o.simplify {
		faces = mergeCoplanar(verts, faces, tol)
		faces = removeCollinear(verts, faces, tol)
	}
	if o.triangulate {
		var err error
		faces, err = triangulateFaces(verts, faces)
		if err != nil {
			return nil, &mesh.Error{Kind: mesh.KindNonManifoldResult, Op: "stitch", Err: err}
		}
	}
	verts, faces = dropUnused(verts, faces)

	ms, err := mesh.Build(verts, faces)
	if err != nil {
		return nil, &mesh.Error{Kind: mesh.KindNonManifoldResult, Op: "stitch", Err: err}
	}
	return dropFlat(ms, eps)
}

// ---------------------------------------------------------------------------
// Slivers
// ---------------------------------------------------------------------------

// collapseSlivers removes triangles whose middle vertex lies on their
// longest edge, inserting that vertex into the neighbour across the long
// edge.
func collapseSlivers(verts []geom.Vec, faces [][]int, tol float64) [][]int {
	for {
		owner := edgeOwners(faces)
		done := true
		for fi, f := range faces {
			if len(f) != 3 {
				continue
			}
			k, ok := sliverApex(verts, f, tol)
			if !ok {
				continue
			}
			// Long edge f[k+1] -> f[k+2]; its neighbour holds the reverse.
			a, b := f[(k+1)%3], f[(k+2)%3]
			g, ok := owner[[2]int{b, a}]
			if !ok || g == fi {
				continue
			}
			at := slices.Index(faces[g], b)
			faces[g] = slices.Insert(faces[g], at+1, f[k])
			faces = slices.Delete(faces, fi, fi+1)
			done = false
			break
		}
		if done {
			return faces
		}
	}
}

// sliverApex returns the corner of triangle f lying within tol of the
// opposite edge, strictly between its ends.
func sliverApex(verts []geom.Vec, f []int, tol float64) (int, bool) {
	for k := 0; k < 3; k++ {
		p := verts[f[k]]
		a, b := verts[f[(k+1)%3]], verts[f[(k+2)%3]]
		if geom.Distance(p, a) <= tol || geom.Distance(p, b) <= tol {
			continue
		}
		if pointSegmentDistance(p, a, b) <= tol {
			return k, true
		}
	}
	return 0, false
}

func edgeOwners(faces [][]int) map[[2]int]int {
	owner := make(map[[2]int]int)
	for fi, f := range faces {
		for k := range f {
			owner[[2]int{f[k], f[(k+1)%len(f)]}] = fi
		}
	}
	return owner
}

// ---------------------------------------------------------------------------
// Coplanar merge
// ---------------------------------------------------------------------------

// mergeCoplanar replaces every connected group of coplanar faces with the
// same orientation by one face, when the group is bounded by a single loop
// that visits each vertex once.
func mergeCoplanar(verts []geom.Vec, faces [][]int, tol float64) [][]int {
	planes := make([]geom.Plane, len(faces))
	valid := make([]bool, len(faces))
	for fi, f := range faces {
		planes[fi], valid[fi] = geom.NewellPlane(points(verts, f))
	}
	similar := func(f, g int) bool {
		if !valid[f] || !valid[g] || planes[f].N.Dot(planes[g].N) < 1-1e-9 {
			return false
		}
		for _, v := range faces[g] {
			if math.Abs(planes[f].Distance(verts[v])) > tol {
				return false
			}
		}
		return true
	}

	parent := make([]int, len(faces))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	owner := edgeOwners(faces)
	for fi, f := range faces {
		for k := range f {
			g, ok := owner[[2]int{f[(k+1)%len(f)], f[k]}]
			if !ok || g == fi || !similar(fi, g) {
				continue
			}
			if rf, rg := find(fi), find(g); rf != rg {
				parent[max(rf, rg)] = min(rf, rg)
			}
		}
	}

	groups := make(map[int][]int)
	for fi := range faces {
		r := find(fi)
		groups[r] = append(groups[r], fi)
	}
	out := make([][]int, 0, len(faces))
	for fi := range faces {
		members := groups[find(fi)]
		if len(members) == 1 {
			out = append(out, faces[fi])
			continue
		}
		if members[0] != fi {
			continue
		}
		if loop, ok := outerLoop(faces, members); ok {
			out = append(out, loop)
			continue
		}
		for _, m := range members {
			out = append(out, faces[m])
		}
	}
	return out
}

// outerLoop returns the boundary of a face group if it is one loop without
// repeated vertices.
func outerLoop(faces [][]int, members []int) ([]int, bool) {
	inGroup := make(map[[2]int]bool)
	for _, m := range members {
		f := faces[m]
		for k := range f {
			inGroup[[2]int{f[k], f[(k+1)%len(f)]}] = true
		}
	}
	next := make(map[int]int)
	start := -1
	for _, m := range members {
		f := faces[m]
		for k := range f {
			u, v := f[k], f[(k+1)%len(f)]
			if inGroup[[2]int{v, u}] {
				continue
			}
			if _, dup := next[u]; dup {
				return nil, false
			}
			next[u] = v
			if start < 0 || u < start {
				start = u
			}
		}
	}
	if start < 0 {
		return nil, false
	}
	loop := []int{start}
	for v := next[start]; v != start; v = next[v] {
		if len(loop) > len(next) {
			return nil, false
		}
		loop = append(loop, v)
		if _, ok := next[v]; !ok {
			return nil, false
		}
	}
	if len(loop) != len(next) || len(loop) < 3 {
		return nil, false
	}
	return loop, true
}

// ---------------------------------------------------------------------------
// Collinear vertices
// ---------------------------------------------------------------------------

// removeCollinear drops vertices joined to exactly two others that lie on
// the segment between them, as long as every face keeps three vertices.
func removeCollinear(verts []geom.Vec, faces [][]int, tol float64) [][]int {
	for changed := true; changed; {
		changed = false
		nbrs := make(map[int][]int)
		users := make(map[int][]int)
		link := func(a, b int) {
			if !slices.Contains(nbrs[a], b) {
				nbrs[a] = append(nbrs[a], b)
			}
		}
		for fi, f := range faces {
			for k, v := range f {
				w := f[(k+1)%len(f)]
				link(v, w)
				link(w, v)
				users[v] = append(users[v], fi)
			}
		}
		candidates := make([]int, 0, len(nbrs))
		for v := range nbrs {
			candidates = append(candidates, v)
		}
		slices.Sort(candidates)

		touched := make(map[int]bool)
		for _, v := range candidates {
			nb := nbrs[v]
			if len(nb) != 2 || touched[v] || touched[nb[0]] || touched[nb[1]] {
				continue
			}
			a, b := verts[nb[0]], verts[nb[1]]
			p := verts[v]
			if geom.Distance(p, a) <= tol || geom.Distance(p, b) <= tol || pointSegmentDistance(p, a, b) > tol {
				continue
			}
			ok := true
			for _, fi := range users[v] {
				if len(faces[fi]) < 4 {
					ok = false
				}
			}
			if !ok {
				continue
			}
			for _, fi := range users[v] {
				faces[fi] = slices.DeleteFunc(faces[fi], func(x int) bool { return x == v })
			}
			touched[v], touched[nb[0]], touched[nb[1]] = true, true, true
			changed = true
		}
	}
	return faces
}

// ---------------------------------------------------------------------------
// Output shaping
// ---------------------------------------------------------------------------

func triangulateFaces(verts []geom.Vec, faces [][]int) ([][]int, error) {
	out := make([][]int, 0, len(faces))
	for fi, f := range faces {
		if len(f) == 3 {
			out = append(out, f)
			continue
		}
		pts := points(verts, f)
		pl, ok := geom.NewellPlane(pts)
		if !ok {
			return nil, fmt.Errorf("csg: triangulate face %d: degenerate plane", fi)
		}
		tris, err := geom.Triangulate2D(geom.NewProjector(pl.N).ProjectAll(pts))
		if err != nil {
			return nil, fmt.Errorf("csg: triangulate face %d: %w", fi, err)
		}
		for _, t := range tris {
			out = append(out, []int{f[t[0]], f[t[1]], f[t[2]]})
		}
	}
	return out, nil
}

// dropUnused removes vertices no face refers to.
func dropUnused(verts []geom.Vec, faces [][]int) ([]geom.Vec, [][]int) {
	index := make([]int, len(verts))
	for i := range index {
		index[i] = -1
	}
	var out []geom.Vec
	for _, f := range faces {
		for j, v := range f {
			if index[v] < 0 {
				index[v] = len(out)
				out = append(out, verts[v])
			}
			f[j] = index[v]
		}
	}
	return out, faces
}

// dropFlat removes manifolds enclosing no volume.
func dropFlat(ms *mesh.MeshSet, eps float64) (*mesh.MeshSet, error) {
	var keepFaces []mesh.FaceID
	dropped := 0
	for m := mesh.ManifoldID(0); int(m) < ms.NumManifolds(); m++ {
		d := geom.Diagonal(ms.ManifoldBox(m))
		if math.Abs(ms.ManifoldVolume(m)) <= eps*d*d {
			dropped++
			continue
		}
		keepFaces = append(keepFaces, ms.ManifoldFaces(m)...)
	}
	if dropped == 0 {
		return ms, nil
	}
	Logger().Warn("csg: dropped flat manifolds", "count", dropped)
	slices.Sort(keepFaces)
	faces := make([][]int, len(keepFaces))
	for i, f := range keepFaces {
		vs := ms.FaceVertices(f)
		loop := make([]int, len(vs))
		for j, v := range vs {
			loop[j] = int(v)
		}
		faces[i] = loop
	}
	verts, faces := dropUnused(ms.Vertices(), faces)
	out, err := mesh.Build(verts, faces)
	if err != nil {
		return nil, &mesh.Error{Kind: mesh.KindNonManifoldResult, Op: "stitch", Err: err}
	}
	return out, nil
}

func points(verts []geom.Vec, f []int) []geom.Vec {
	pts := make([]geom.Vec, len(f))
	for i, v := range f {
		pts[i] = verts[v]
	}
	return pts
}
