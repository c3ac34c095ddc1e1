package mesh

import "github.com/chazu/carve/pkg/geom"

// FaceArea returns the area of f.
func (m *MeshSet) FaceArea(f FaceID) float64 {
	return geom.PolygonArea(m.FacePoints(f))
}

// Area returns the total surface area.
func (m *MeshSet) Area() float64 {
	var a float64
	for f := range m.faces {
		a += m.FaceArea(FaceID(f))
	}
	return a
}

// faceVolume is the signed volume of the cone from the origin to f, by
// fanning the loop into triangles.
func (m *MeshSet) faceVolume(f FaceID) float64 {
	vs := m.faces[f].verts
	p0 := m.vertices[vs[0]]
	var v float64
	for i := 1; i+1 < len(vs); i++ {
		v += p0.Dot(m.vertices[vs[i]].Cross(m.vertices[vs[i+1]]))
	}
	return v / 6
}

// ManifoldVolume returns the signed volume enclosed by manifold id. It is
// negative for an inward-facing shell such as a cavity.
func (m *MeshSet) ManifoldVolume(id ManifoldID) float64 {
	var v float64
	for _, f := range m.manifolds[id].faces {
		v += m.faceVolume(f)
	}
	return v
}

// Volume returns the signed volume enclosed by the whole set.
func (m *MeshSet) Volume() float64 {
	var v float64
	for f := range m.faces {
		v += m.faceVolume(FaceID(f))
	}
	return v
}

// Stats summarises a MeshSet.
type Stats struct {
	Vertices  int
	Faces     int
	Edges     int
	Manifolds int
	Volume    float64
	Area      float64
	Box       geom.Box
}

// Stats computes counts and measures of the set. Unused pool vertices are
// not counted.
func (m *MeshSet) Stats() Stats {
	used := make(map[VertexID]struct{}, len(m.vertices))
	for _, fc := range m.faces {
		for _, v := range fc.verts {
			used[v] = struct{}{}
		}
	}
	return Stats{
		Vertices:  len(used),
		Faces:     len(m.faces),
		Edges:     m.NumEdges(),
		Manifolds: len(m.manifolds),
		Volume:    m.Volume(),
		Area:      m.Area(),
		Box:       m.box,
	}
}
