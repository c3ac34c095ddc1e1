package csg

import (
	"fmt"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
	"github.com/chazu/carve/pkg/spatial"
)

// Side names one of the two operands.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

func (s Side) other() Side { return 1 - s }

// wface is a convex working face. Non-convex input faces are split into
// triangles; every piece keeps the plane and reference triple of its
// source face so exact side tests agree across pieces.
type wface struct {
	src   mesh.FaceID
	verts []mesh.VertexID
	plane geom.Plane
	ref   [3]geom.Vec
	box   geom.Box
	proj  geom.Projector
	loop2 []geom.Vec2
}

// operand is one input of a boolean prepared for evaluation.
type operand struct {
	side  Side
	ms    *mesh.MeshSet
	faces []wface
	tree  *spatial.Octree
}

func newOperand(s Side, ms *mesh.MeshSet, eps float64) (*operand, error) {
	op := &operand{side: s, ms: ms}
	for f := mesh.FaceID(0); int(f) < ms.NumFaces(); f++ {
		plane := ms.FacePlane(f)
		a, b, c := ms.FaceRef(f)
		proj := geom.NewProjector(plane.N)
		verts := ms.FaceVertices(f)
		loop2 := proj.ProjectAll(ms.FacePoints(f))

		pieces := [][]mesh.VertexID{verts}
		if !convex(loop2) {
			tris, err := geom.Triangulate2D(loop2)
			if err != nil {
				return nil, &mesh.Error{Kind: mesh.KindDegenerateFace, Op: "prepare",
					Detail: fmt.Sprintf("face %d of %s", f, s), Err: err}
			}
			pieces = pieces[:0]
			for _, t := range tris {
				pieces = append(pieces, []mesh.VertexID{verts[t[0]], verts[t[1]], verts[t[2]]})
			}
		}
		for _, pv := range pieces {
			pts := make([]geom.Vec, len(pv))
			for i, v := range pv {
				pts[i] = ms.Vertex(v)
			}
			op.faces = append(op.faces, wface{
				src:   f,
				verts: pv,
				plane: plane,
				ref:   [3]geom.Vec{a, b, c},
				box:   geom.BoxOf(pts...),
				proj:  proj,
				loop2: proj.ProjectAll(pts),
			})
		}
	}
	boxes := make([]geom.Box, len(op.faces))
	for i := range op.faces {
		boxes[i] = op.faces[i].box
	}
	op.tree = spatial.New(boxes, spatial.WithTolerance(eps))
	return op, nil
}

// convex reports whether a counterclockwise ring has no reflex vertex.
// Collinear vertices are allowed.
func convex(loop []geom.Vec2) bool {
	n := len(loop)
	for i := range loop {
		if geom.Orient2D(loop[(i+n-1)%n], loop[i], loop[(i+1)%n]) == geom.Negative {
			return false
		}
	}
	return true
}

func (op *operand) point(v mesh.VertexID) geom.Vec { return op.ms.Vertex(v) }

// signs returns the exact side of every vertex of face fi relative to the
// plane of face of other.
func (op *operand) signs(fi int, other *wface) []geom.Sign {
	f := &op.faces[fi]
	out := make([]geom.Sign, len(f.verts))
	for i, v := range f.verts {
		out[i] = geom.Orient3D(other.ref[0], other.ref[1], other.ref[2], op.point(v))
	}
	return out
}
