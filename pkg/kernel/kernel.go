// Package kernel defines the abstract geometry kernel interface.
// Implementations (carve, sdfx) provide solid modeling and boolean
// operations behind this interface. The kernel abstraction allows
// swapping backends without changing the rest of the system.
package kernel

import "errors"

// ErrUnsupported is returned by a backend that cannot build a shape.
var ErrUnsupported = errors.New("kernel: operation not supported by this backend")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives. Box has its minimum corner at the origin; Cylinder is
	// centred on the origin along Z.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Polyhedron(vertices [][3]float64, faces [][]int) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)
	Xor(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
