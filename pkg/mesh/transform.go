package mesh

import (
	"slices"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/carve/pkg/geom"
)

// Transformed returns a copy of m with every vertex mapped through mat. A
// mirroring matrix reverses the face loops so normals keep pointing out. A
// singular matrix fails with KindDegenerateFace.
func (m *MeshSet) Transformed(mat sdf.M44) (*MeshSet, error) {
	o := mat.MulPosition(geom.V(0, 0, 0))
	ex := mat.MulPosition(geom.V(1, 0, 0)).Sub(o)
	ey := mat.MulPosition(geom.V(0, 1, 0)).Sub(o)
	ez := mat.MulPosition(geom.V(0, 0, 1)).Sub(o)
	det := ex.Dot(ey.Cross(ez))
	if det == 0 {
		return nil, errorf(KindDegenerateFace, "transform", "matrix is singular")
	}

	verts := make([]geom.Vec, len(m.vertices))
	for i, p := range m.vertices {
		verts[i] = mat.MulPosition(p)
	}
	if det < 0 {
		_, faces := m.Arrays()
		for _, loop := range faces {
			slices.Reverse(loop)
		}
		return Build(verts, faces)
	}
	return m.withVertices(verts)
}

// Translated returns a copy of m moved by d.
func (m *MeshSet) Translated(d geom.Vec) (*MeshSet, error) {
	verts := make([]geom.Vec, len(m.vertices))
	for i, p := range m.vertices {
		verts[i] = p.Add(d)
	}
	return m.withVertices(verts)
}

// withVertices shares m's topology with a new vertex pool and recomputes
// the cached face geometry.
func (m *MeshSet) withVertices(verts []geom.Vec) (*MeshSet, error) {
	out := &MeshSet{
		vertices:  verts,
		faces:     make([]face, len(m.faces)),
		halfEdges: m.halfEdges,
		manifolds: make([]manifold, len(m.manifolds)),
	}
	for i, fc := range m.faces {
		pts := make([]geom.Vec, len(fc.verts))
		for j, v := range fc.verts {
			pts[j] = verts[v]
		}
		pl, ok := geom.NewellPlane(pts)
		if !ok {
			return nil, errorf(KindDegenerateFace, "transform", "face %d collapsed", i)
		}
		fc.plane = pl
		fc.box = geom.BoxOf(pts...)
		out.faces[i] = fc
	}
	for i, mf := range m.manifolds {
		box := out.faces[mf.faces[0]].box
		for _, f := range mf.faces[1:] {
			box = box.Extend(out.faces[f].box)
		}
		out.manifolds[i] = manifold{faces: mf.faces, box: box}
		if i == 0 {
			out.box = box
		} else {
			out.box = out.box.Extend(box)
		}
	}
	return out, nil
}

// Inverted returns a copy of m with every face loop reversed, turning the
// solid inside out.
func (m *MeshSet) Inverted() (*MeshSet, error) {
	verts, faces := m.Arrays()
	for _, loop := range faces {
		slices.Reverse(loop)
	}
	return Build(verts, faces)
}

// Merge concatenates sets into one. Vertex pools are appended, so the
// manifolds of different inputs never share vertices or edges.
func Merge(sets ...*MeshSet) (*MeshSet, error) {
	var verts []geom.Vec
	var faces [][]int
	for _, s := range sets {
		if s == nil {
			continue
		}
		base := len(verts)
		vs, fs := s.Arrays()
		verts = append(verts, vs...)
		for _, loop := range fs {
			for i := range loop {
				loop[i] += base
			}
			faces = append(faces, loop)
		}
	}
	return Build(verts, faces)
}
