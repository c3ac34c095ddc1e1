package mesh

import (
	"fmt"
	"math"

	"github.com/chazu/carve/pkg/geom"
)

// boxFaces are the six quads of a box whose corner i sits at bit 0 = x,
// bit 1 = y, bit 2 = z.
var boxFaces = [][]int{
	{0, 2, 3, 1}, // -Z
	{4, 5, 7, 6}, // +Z
	{0, 1, 5, 4}, // -Y
	{2, 6, 7, 3}, // +Y
	{0, 4, 6, 2}, // -X
	{1, 3, 7, 5}, // +X
}

// NewBox returns the axis-aligned box spanning min to max as six quads.
func NewBox(min, max geom.Vec) (*MeshSet, error) {
	if !(max.X > min.X && max.Y > min.Y && max.Z > min.Z) {
		return nil, errorf(KindDegenerateFace, "box", "empty extent %v to %v", min, max)
	}
	verts := make([]geom.Vec, 8)
	for i := range verts {
		p := min
		if i&1 != 0 {
			p.X = max.X
		}
		if i&2 != 0 {
			p.Y = max.Y
		}
		if i&4 != 0 {
			p.Z = max.Z
		}
		verts[i] = p
	}
	faces := make([][]int, len(boxFaces))
	for i, f := range boxFaces {
		faces[i] = append([]int(nil), f...)
	}
	return Build(verts, faces)
}

// NewCylinder returns a prism approximating a cylinder of the given height
// and radius along Z, centred on the origin, with segments side quads.
func NewCylinder(height, radius float64, segments int) (*MeshSet, error) {
	if height <= 0 || radius <= 0 {
		return nil, errorf(KindDegenerateFace, "cylinder", "height %g and radius %g must be positive", height, radius)
	}
	if segments < 3 {
		return nil, fmt.Errorf("mesh: cylinder needs at least 3 segments, got %d", segments)
	}
	n := segments
	verts := make([]geom.Vec, 2*n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		x, y := radius*math.Cos(a), radius*math.Sin(a)
		verts[i] = geom.V(x, y, -height/2)
		verts[n+i] = geom.V(x, y, height/2)
	}
	bottom := make([]int, n)
	top := make([]int, n)
	for i := 0; i < n; i++ {
		bottom[i] = n - 1 - i
		top[i] = n + i
	}
	faces := [][]int{bottom, top}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		faces = append(faces, []int{i, j, n + j, n + i})
	}
	return Build(verts, faces)
}
