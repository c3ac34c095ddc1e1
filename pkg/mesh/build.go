package mesh

import (
	"slices"

	"github.com/chazu/carve/pkg/geom"
)

// planarTolerance is the relative distance a face vertex may lie off the
// face's best-fit plane.
const planarTolerance = 1e-6

type edgeKey struct{ a, b VertexID }

func keyOf(a, b VertexID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Build validates index arrays and returns a new MeshSet that owns copies of
// them. Each face is a loop of indices into vertices, counterclockwise seen
// from outside the solid.
//
// Validation fails with KindDegenerateFace for a loop with fewer than three
// vertices, an out-of-range or repeated index, a non-finite coordinate, no
// area, a non-planar loop or a self-intersecting loop; with
// KindNonManifoldInput if an edge is shared by more than two faces or by two
// faces running it in the same direction; and otherwise with
// KindOpenSurface if an edge belongs to a single face.
func Build(vertices []geom.Vec, faces [][]int) (*MeshSet, error) {
	m := &MeshSet{
		vertices: append([]geom.Vec(nil), vertices...),
		faces:    make([]face, len(faces)),
	}

	nHalf := 0
	for fi, loop := range faces {
		fc, err := m.newFace(FaceID(fi), loop)
		if err != nil {
			return nil, err
		}
		fc.first = EdgeID(nHalf)
		nHalf += len(loop)
		m.faces[fi] = fc
	}

	m.halfEdges = make([]halfEdge, nHalf)
	for fi := range m.faces {
		fc := &m.faces[fi]
		n := len(fc.verts)
		for k, v := range fc.verts {
			e := fc.first + EdgeID(k)
			m.halfEdges[e] = halfEdge{
				origin: v,
				face:   FaceID(fi),
				next:   fc.first + EdgeID((k+1)%n),
				twin:   None,
			}
		}
	}

	if err := m.linkTwins(); err != nil {
		return nil, err
	}
	m.groupManifolds()
	return m, nil
}

// newFace validates one loop and computes its cached geometry.
func (m *MeshSet) newFace(id FaceID, loop []int) (face, error) {
	if len(loop) < 3 {
		return face{}, errorf(KindDegenerateFace, "build", "face %d has %d vertices", id, len(loop))
	}
	seen := make(map[int]bool, len(loop))
	verts := make([]VertexID, len(loop))
	pts := make([]geom.Vec, len(loop))
	for i, v := range loop {
		if v < 0 || v >= len(m.vertices) {
			return face{}, errorf(KindDegenerateFace, "build", "face %d references vertex %d of %d", id, v, len(m.vertices))
		}
		if seen[v] {
			return face{}, errorf(KindDegenerateFace, "build", "face %d repeats vertex %d", id, v)
		}
		seen[v] = true
		if !geom.Finite(m.vertices[v]) {
			return face{}, errorf(KindDegenerateFace, "build", "vertex %d of face %d is not finite", v, id)
		}
		verts[i] = VertexID(v)
		pts[i] = m.vertices[v]
	}

	ref, ok := referenceTriple(pts)
	if !ok {
		return face{}, errorf(KindDegenerateFace, "build", "face %d has no three non-collinear vertices", id)
	}
	plane, ok := geom.NewellPlane(pts)
	if !ok {
		return face{}, errorf(KindDegenerateFace, "build", "face %d has zero area", id)
	}
	box := geom.BoxOf(pts...)
	tol := geom.ScaledEpsilon(planarTolerance, box.Size())
	for i, p := range pts {
		if d := plane.Distance(p); d > tol || d < -tol {
			return face{}, errorf(KindDegenerateFace, "build", "face %d is not planar at vertex %d (off by %g)", id, loop[i], d)
		}
	}
	if i, j, bad := selfIntersection(geom.NewProjector(plane.N).ProjectAll(pts)); bad {
		return face{}, errorf(KindDegenerateFace, "build", "face %d intersects itself at edges %d and %d", id, i, j)
	}

	// Orient the reference triangle like the face.
	tri := pts[ref[1]].Sub(pts[ref[0]]).Cross(pts[ref[2]].Sub(pts[ref[0]]))
	if tri.Dot(plane.N) < 0 {
		ref[1], ref[2] = ref[2], ref[1]
	}

	return face{
		verts: verts,
		plane: plane,
		box:   box,
		ref:   [3]VertexID{verts[ref[0]], verts[ref[1]], verts[ref[2]]},
	}, nil
}

// referenceTriple picks loop positions of a large triangle of pts: the first
// vertex, the vertex farthest from it and the vertex farthest from the line
// through both.
func referenceTriple(pts []geom.Vec) ([3]int, bool) {
	i1, best := -1, 0.0
	for i := 1; i < len(pts); i++ {
		if d := geom.Distance(pts[0], pts[i]); d > best {
			i1, best = i, d
		}
	}
	if i1 < 0 {
		return [3]int{}, false
	}
	axis := pts[i1].Sub(pts[0])
	i2, best := -1, 0.0
	for i := 1; i < len(pts); i++ {
		if i == i1 || geom.Collinear(pts[0], pts[i1], pts[i]) {
			continue
		}
		if a := axis.Cross(pts[i].Sub(pts[0])).Length(); i2 < 0 || a > best {
			i2, best = i, a
		}
	}
	if i2 < 0 {
		return [3]int{}, false
	}
	return [3]int{0, i1, i2}, true
}

// selfIntersection reports the first pair of loop edges that touch where
// they should not.
func selfIntersection(q []geom.Vec2) (int, int, bool) {
	n := len(q)
	for i := 0; i < n; i++ {
		a, b := q[i], q[(i+1)%n]
		// Adjacent edge folding back onto this one.
		if c := q[(i+2)%n]; geom.OnSegment2D(c, a, b) || geom.OnSegment2D(a, b, c) {
			return i, (i + 1) % n, true
		}
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			c, d := q[j], q[(j+1)%n]
			if _, _, hit := geom.SegmentIntersect2D(a, b, c, d); hit {
				return i, j, true
			}
			if geom.OnSegment2D(c, a, b) || geom.OnSegment2D(d, a, b) ||
				geom.OnSegment2D(a, c, d) || geom.OnSegment2D(b, c, d) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// linkTwins pairs half-edges and enforces the two-faces-per-edge rule.
func (m *MeshSet) linkTwins() error {
	uses := make(map[edgeKey][]EdgeID, len(m.halfEdges)/2)
	for e := range m.halfEdges {
		from, to := m.EdgeVertices(EdgeID(e))
		k := keyOf(from, to)
		uses[k] = append(uses[k], EdgeID(e))
	}

	// Non-manifold edges take precedence over open ones.
	for e := range m.halfEdges {
		from, to := m.EdgeVertices(EdgeID(e))
		es := uses[keyOf(from, to)]
		switch {
		case len(es) > 2:
			return errorf(KindNonManifoldInput, "build", "edge (%d,%d) is shared by %d faces", from, to, len(es))
		case len(es) == 2:
			f0, _ := m.EdgeVertices(es[0])
			f1, _ := m.EdgeVertices(es[1])
			if f0 == f1 {
				return errorf(KindNonManifoldInput, "build", "faces %d and %d run edge (%d,%d) in the same direction",
					m.halfEdges[es[0]].face, m.halfEdges[es[1]].face, from, to)
			}
		}
	}
	for e := range m.halfEdges {
		from, to := m.EdgeVertices(EdgeID(e))
		es := uses[keyOf(from, to)]
		if len(es) == 1 {
			return errorf(KindOpenSurface, "build", "edge (%d,%d) of face %d has no neighbour", from, to, m.halfEdges[e].face)
		}
		if es[0] == EdgeID(e) {
			m.halfEdges[e].twin = es[1]
		} else {
			m.halfEdges[e].twin = es[0]
		}
	}
	return nil
}

// groupManifolds labels connected components of faces, numbered by their
// lowest face id.
func (m *MeshSet) groupManifolds() {
	for i := range m.faces {
		m.faces[i].manifold = None
	}
	var stack []FaceID
	for start := range m.faces {
		if m.faces[start].manifold != None {
			continue
		}
		id := ManifoldID(len(m.manifolds))
		mf := manifold{box: m.faces[start].box}
		m.faces[start].manifold = id
		stack = append(stack[:0], FaceID(start))
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			mf.faces = append(mf.faces, f)
			mf.box = mf.box.Extend(m.faces[f].box)
			fc := &m.faces[f]
			for k := range fc.verts {
				g := m.halfEdges[m.halfEdges[fc.first+EdgeID(k)].twin].face
				if m.faces[g].manifold == None {
					m.faces[g].manifold = id
					stack = append(stack, g)
				}
			}
		}
		slices.Sort(mf.faces)
		m.manifolds = append(m.manifolds, mf)
	}
	for i, mf := range m.manifolds {
		if i == 0 {
			m.box = mf.box
		} else {
			m.box = m.box.Extend(mf.box)
		}
	}
}
