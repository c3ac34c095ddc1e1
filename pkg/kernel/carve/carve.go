// Package carve implements the kernel.Kernel interface on top of the exact
// polyhedral boolean engine in pkg/csg. Solids are closed manifold meshes,
// so results are exact up to floating point and need no sampling
// resolution.
package carve

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/carve/pkg/csg"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/kernel"
	"github.com/chazu/carve/pkg/mesh"
)

// Compile-time interface check.
var _ kernel.Kernel = (*CarveKernel)(nil)

// carveSolid wraps a MeshSet to implement kernel.Solid. A failed
// primitive or transform carries its error until the solid is used.
type carveSolid struct {
	m   *mesh.MeshSet
	err error
}

// BoundingBox returns the axis-aligned bounding box. Empty and failed
// solids report a zero box.
func (s *carveSolid) BoundingBox() (min, max [3]float64) {
	if s.err != nil || s.m.IsEmpty() {
		return min, max
	}
	bb := s.m.Box()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// MeshSet returns the solid's boundary, or the error that produced it.
func MeshSet(s kernel.Solid) (*mesh.MeshSet, error) {
	cs, ok := s.(*carveSolid)
	if !ok {
		return nil, fmt.Errorf("carve: solid %T does not belong to this kernel", s)
	}
	return cs.m, cs.err
}

// Option configures a CarveKernel.
type Option func(*CarveKernel)

// WithOptions passes options through to every boolean evaluation.
func WithOptions(opts ...csg.Option) Option {
	return func(k *CarveKernel) {
		k.opts = append(k.opts, opts...)
	}
}

// CarveKernel implements kernel.Kernel using pkg/csg.
type CarveKernel struct {
	opts []csg.Option
}

// New returns a new CarveKernel.
func New(opts ...Option) *CarveKernel {
	k := &CarveKernel{}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func wrap(m *mesh.MeshSet, err error) kernel.Solid {
	return &carveSolid{m: m, err: err}
}

// Box creates a box with its minimum corner at the origin.
func (k *CarveKernel) Box(x, y, z float64) kernel.Solid {
	return wrap(mesh.NewBox(geom.V(0, 0, 0), geom.V(x, y, z)))
}

// Cylinder creates a prism with segments sides approximating a cylinder
// along Z, centred on the origin.
func (k *CarveKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	return wrap(mesh.NewCylinder(height, radius, segments))
}

// Polyhedron builds a solid from vertex positions and outward-wound faces.
func (k *CarveKernel) Polyhedron(vertices [][3]float64, faces [][]int) (kernel.Solid, error) {
	verts := make([]geom.Vec, len(vertices))
	for i, v := range vertices {
		verts[i] = geom.V(v[0], v[1], v[2])
	}
	loops := make([][]int, len(faces))
	for i, f := range faces {
		loops[i] = append([]int(nil), f...)
	}
	m, err := mesh.Build(verts, loops)
	if err != nil {
		return nil, fmt.Errorf("carve: polyhedron: %w", err)
	}
	return wrap(m, nil), nil
}

// Union returns the union of two solids.
func (k *CarveKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	return k.compute(a, b, csg.Union)
}

// Difference returns the difference a - b.
func (k *CarveKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	return k.compute(a, b, csg.Subtract)
}

// Intersection returns the intersection of two solids.
func (k *CarveKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	return k.compute(a, b, csg.Intersection)
}

// Xor returns the symmetric difference of two solids.
func (k *CarveKernel) Xor(a, b kernel.Solid) (kernel.Solid, error) {
	return k.compute(a, b, csg.SymmetricDifference)
}

func (k *CarveKernel) compute(a, b kernel.Solid, op csg.Op) (kernel.Solid, error) {
	ma, err := MeshSet(a)
	if err != nil {
		return nil, fmt.Errorf("carve: %s: left operand: %w", op, err)
	}
	mb, err := MeshSet(b)
	if err != nil {
		return nil, fmt.Errorf("carve: %s: right operand: %w", op, err)
	}
	out, err := csg.Compute(ma, mb, op, k.opts...)
	if err != nil {
		return nil, fmt.Errorf("carve: %s: %w", op, err)
	}
	return wrap(out, nil), nil
}

// Translate moves a solid by (x, y, z).
func (k *CarveKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return k.transform(s, sdf.Translate3d(geom.V(x, y, z)))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *CarveKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return k.transform(s, m)
}

func (k *CarveKernel) transform(s kernel.Solid, mat sdf.M44) kernel.Solid {
	m, err := MeshSet(s)
	if err != nil || m.IsEmpty() {
		return wrap(m, err)
	}
	return wrap(m.Transformed(mat))
}

// ToMesh triangulates every face of the solid. Vertices are duplicated per
// face so each carries its face normal.
func (k *CarveKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	m, err := MeshSet(s)
	if err != nil {
		return nil, fmt.Errorf("carve: ToMesh: %w", err)
	}

	var vertices, normals []float32
	var indices []uint32
	for f := mesh.FaceID(0); int(f) < m.NumFaces(); f++ {
		pts := m.FacePoints(f)
		n := m.FacePlane(f).N
		tris, err := geom.Triangulate2D(geom.NewProjector(n).ProjectAll(pts))
		if err != nil {
			return nil, fmt.Errorf("carve: ToMesh: face %d: %w", f, err)
		}

		base := uint32(len(vertices) / 3)
		for _, p := range pts {
			vertices = append(vertices, float32(p.X), float32(p.Y), float32(p.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for _, t := range tris {
			indices = append(indices, base+uint32(t[0]), base+uint32(t[1]), base+uint32(t[2]))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
