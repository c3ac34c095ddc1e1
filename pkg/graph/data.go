package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is an axis-aligned box with its minimum corner at the origin.
type BoxData struct {
	Size Vec3 `json:"size"`
}

func (BoxData) nodeData() {}

// CylinderData is a cylinder along Z, centred on the origin, approximated
// by a prism with Segments sides. Zero Segments means the graph default.
type CylinderData struct {
	Height   float64 `json:"height"`
	Radius   float64 `json:"radius"`
	Segments int     `json:"segments,omitempty"`
}

func (CylinderData) nodeData() {}

// PolyhedronData is a closed polyhedron given by vertex positions and
// faces as counter-clockwise index loops seen from outside.
type PolyhedronData struct {
	Vertices []Vec3  `json:"vertices"`
	Faces    [][]int `json:"faces"`
}

func (PolyhedronData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to child nodes.
// Rotation is applied before translation.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanOp names a boolean operation between solids.
type BooleanOp string

const (
	OpUnion        BooleanOp = "union"
	OpIntersection BooleanOp = "intersection"
	OpDifference   BooleanOp = "difference"
	OpXor          BooleanOp = "xor"
)

// ValidBooleanOps is the set of recognized boolean operations.
var ValidBooleanOps = map[BooleanOp]bool{
	OpUnion:        true,
	OpIntersection: true,
	OpDifference:   true,
	OpXor:          true,
}

// BooleanData folds the node's children left to right with Op. For
// OpDifference the first child is the base and the rest are removed from it.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is a logical collection. Each child is tessellated as its own
// part.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
