// Package mesh is the polyhedral mesh model of the boolean engine. A MeshSet
// is an immutable arena of vertices, polygonal faces and half-edges grouped
// into closed manifolds, addressed by typed integer ids. It is built once
// from index arrays by Build, which validates that every manifold is closed
// and every face is a simple planar polygon, and is never edited in place:
// transforms and merges return new sets.
package mesh

import (
	"github.com/chazu/carve/pkg/geom"
)

// Typed indices into a MeshSet's arenas.
type (
	VertexID   int
	FaceID     int
	EdgeID     int // half-edge
	ManifoldID int
)

// None marks a missing id.
const None = -1

// halfEdge runs from origin to the origin of next, inside face.
type halfEdge struct {
	origin VertexID
	face   FaceID
	next   EdgeID
	twin   EdgeID
}

type face struct {
	verts    []VertexID
	first    EdgeID // half-edges first .. first+len(verts)-1 in loop order
	plane    geom.Plane
	box      geom.Box
	ref      [3]VertexID
	manifold ManifoldID
}

type manifold struct {
	faces []FaceID
	box   geom.Box
}

// MeshSet owns a vertex pool and one or more closed manifolds.
type MeshSet struct {
	vertices  []geom.Vec
	faces     []face
	halfEdges []halfEdge
	manifolds []manifold
	box       geom.Box
}

// ---------------------------------------------------------------------------
// Read-only traversal
// ---------------------------------------------------------------------------

// NumVertices returns the size of the vertex pool.
func (m *MeshSet) NumVertices() int { return len(m.vertices) }

// NumFaces returns the number of faces.
func (m *MeshSet) NumFaces() int { return len(m.faces) }

// NumEdges returns the number of undirected edges.
func (m *MeshSet) NumEdges() int { return len(m.halfEdges) / 2 }

// NumManifolds returns the number of closed manifolds.
func (m *MeshSet) NumManifolds() int { return len(m.manifolds) }

// IsEmpty reports whether the set has no faces.
func (m *MeshSet) IsEmpty() bool { return len(m.faces) == 0 }

// Vertex returns the position of v.
func (m *MeshSet) Vertex(v VertexID) geom.Vec { return m.vertices[v] }

// Vertices returns a copy of the vertex pool.
func (m *MeshSet) Vertices() []geom.Vec {
	return append([]geom.Vec(nil), m.vertices...)
}

// FaceVertices returns the vertex loop of f. The slice is shared with the
// MeshSet and must not be modified.
func (m *MeshSet) FaceVertices(f FaceID) []VertexID { return m.faces[f].verts }

// FacePoints returns the positions of f's vertex loop.
func (m *MeshSet) FacePoints(f FaceID) []geom.Vec {
	vs := m.faces[f].verts
	pts := make([]geom.Vec, len(vs))
	for i, v := range vs {
		pts[i] = m.vertices[v]
	}
	return pts
}

// FaceEdges returns the half-edges of f in loop order. Edge k runs from
// vertex k to vertex k+1 of the loop.
func (m *MeshSet) FaceEdges(f FaceID) []EdgeID {
	fc := &m.faces[f]
	es := make([]EdgeID, len(fc.verts))
	for i := range es {
		es[i] = fc.first + EdgeID(i)
	}
	return es
}

// FacePlane returns the cached best-fit plane of f. Its normal points out of
// the manifold.
func (m *MeshSet) FacePlane(f FaceID) geom.Plane { return m.faces[f].plane }

// FaceBox returns the bounding box of f.
func (m *MeshSet) FaceBox(f FaceID) geom.Box { return m.faces[f].box }

// FaceRef returns three vertices of f spanning its largest reference
// triangle. Exact side tests against f use this triple.
func (m *MeshSet) FaceRef(f FaceID) (a, b, c geom.Vec) {
	r := m.faces[f].ref
	return m.vertices[r[0]], m.vertices[r[1]], m.vertices[r[2]]
}

// FaceManifold returns the manifold containing f.
func (m *MeshSet) FaceManifold(f FaceID) ManifoldID { return m.faces[f].manifold }

// EdgeVertices returns the endpoints of half-edge e in its direction.
func (m *MeshSet) EdgeVertices(e EdgeID) (from, to VertexID) {
	he := &m.halfEdges[e]
	return he.origin, m.halfEdges[he.next].origin
}

// EdgeFace returns the face owning half-edge e.
func (m *MeshSet) EdgeFace(e EdgeID) FaceID { return m.halfEdges[e].face }

// Twin returns the opposite half-edge of e.
func (m *MeshSet) Twin(e EdgeID) EdgeID { return m.halfEdges[e].twin }

// Next returns the half-edge following e in its face loop.
func (m *MeshSet) Next(e EdgeID) EdgeID { return m.halfEdges[e].next }

// AdjacentFace returns the face across edge e of face f. ok is false when e
// is not an edge of f.
func (m *MeshSet) AdjacentFace(f FaceID, e EdgeID) (FaceID, bool) {
	if int(e) < 0 || int(e) >= len(m.halfEdges) || m.halfEdges[e].face != f {
		return None, false
	}
	return m.halfEdges[m.halfEdges[e].twin].face, true
}

// ManifoldFaces returns the faces of manifold id in ascending order. The
// slice is shared and must not be modified.
func (m *MeshSet) ManifoldFaces(id ManifoldID) []FaceID { return m.manifolds[id].faces }

// ManifoldBox returns the bounding box of manifold id.
func (m *MeshSet) ManifoldBox(id ManifoldID) geom.Box { return m.manifolds[id].box }

// Box returns the bounding box of all faces.
func (m *MeshSet) Box() geom.Box { return m.box }

// Arrays returns the set as vertex and face index arrays that Build accepts.
func (m *MeshSet) Arrays() ([]geom.Vec, [][]int) {
	faces := make([][]int, len(m.faces))
	for i := range m.faces {
		loop := make([]int, len(m.faces[i].verts))
		for j, v := range m.faces[i].verts {
			loop[j] = int(v)
		}
		faces[i] = loop
	}
	return m.Vertices(), faces
}
