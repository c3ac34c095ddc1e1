// Package sdfx implements the kernel.Kernel interface on the
// github.com/deadsy/sdfx signed distance field library. Results are
// sampled with marching cubes, so this backend is an approximate reference
// for the exact carve kernel: volumes agree within the sampling error and
// cylinders are smooth rather than prisms.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/carve/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis
// of a solid's bounding box.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. A primitive that
// sdfx rejected carries its error until the solid is used.
type sdfxSolid struct {
	s   sdf.SDF3
	err error
}

// BoundingBox returns the axis-aligned bounding box. Failed solids report
// a zero box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	if s.err != nil {
		return min, max
	}
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution used by ToMesh.
// Values below 1 keep the default.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n >= 1 {
			k.cells = n
		}
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: solid %T does not belong to this kernel", s)
	}
	return ss.s, ss.err
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3, err error) kernel.Solid {
	return &sdfxSolid{s: s, err: err}
}

// Box creates a box with the given dimensions and its minimum corner at the
// origin, so (translate (box ...) (vec3 10 0 0)) puts the corner at x=10.
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return wrap(nil, fmt.Errorf("sdfx: box: %w", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m), nil)
}

// Cylinder creates a cylinder centred on the origin along Z.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return wrap(nil, fmt.Errorf("sdfx: cylinder: %w", err))
	}
	return wrap(s, nil)
}

// Polyhedron is not supported: sdfx has no signed distance for an arbitrary
// face list.
func (k *SdfxKernel) Polyhedron(vertices [][3]float64, faces [][]int) (kernel.Solid, error) {
	return nil, fmt.Errorf("sdfx: polyhedron: %w", kernel.ErrUnsupported)
}

// operands unwraps both sides of a boolean.
func operands(op string, a, b kernel.Solid) (sdf.SDF3, sdf.SDF3, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, nil, fmt.Errorf("sdfx: %s: %w", op, err)
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, nil, fmt.Errorf("sdfx: %s: %w", op, err)
	}
	return sa, sb, nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := operands("union", a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb), nil), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := operands("difference", a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb), nil), nil
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := operands("intersection", a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Intersect3D(sa, sb), nil), nil
}

// Xor returns the symmetric difference as the union of both differences.
func (k *SdfxKernel) Xor(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := operands("xor", a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sdf.Difference3D(sa, sb), sdf.Difference3D(sb, sa)), nil), nil
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return transform(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return transform(s, m)
}

func transform(s kernel.Solid, m sdf.M44) kernel.Solid {
	ss, err := unwrap(s)
	if err != nil {
		return wrap(nil, err)
	}
	return wrap(sdf.Transform3D(ss, m), nil)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for i, tri := range triangles {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m, nil
}
