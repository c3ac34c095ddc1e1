package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/carve/pkg/geom"
)

func unitCube(t *testing.T) *MeshSet {
	t.Helper()
	m, err := NewBox(geom.V(0, 0, 0), geom.V(1, 1, 1))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return m
}

func tetra() ([]geom.Vec, [][]int) {
	verts := []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(0, 1, 0), geom.V(0, 0, 1)}
	faces := [][]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}
	return verts, faces
}

// --- Build validation ---

func TestBuildValid(t *testing.T) {
	verts, faces := tetra()
	m, err := Build(verts, faces)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.NumFaces() != 4 || m.NumEdges() != 6 || m.NumManifolds() != 1 {
		t.Errorf("faces=%d edges=%d manifolds=%d, want 4 6 1", m.NumFaces(), m.NumEdges(), m.NumManifolds())
	}
	if v := m.Volume(); math.Abs(v-1.0/6) > 1e-12 {
		t.Errorf("Volume = %v, want 1/6", v)
	}
}

func TestBuildEmpty(t *testing.T) {
	m, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build(nil, nil): %v", err)
	}
	if !m.IsEmpty() || m.NumManifolds() != 0 {
		t.Error("empty build is not empty")
	}
}

func TestBuildErrors(t *testing.T) {
	verts, faces := tetra()
	tests := []struct {
		name  string
		verts []geom.Vec
		faces [][]int
		want  error
	}{
		{
			name:  "open surface",
			verts: verts,
			faces: faces[:3],
			want:  ErrOpenSurface,
		},
		{
			name:  "short loop",
			verts: verts,
			faces: [][]int{{0, 1}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "out of range",
			verts: verts,
			faces: [][]int{{0, 1, 9}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "repeated vertex",
			verts: verts,
			faces: [][]int{{0, 1, 1, 2}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "collinear",
			verts: []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(2, 0, 0)},
			faces: [][]int{{0, 1, 2}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "non-finite",
			verts: []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(math.NaN(), 1, 0)},
			faces: [][]int{{0, 1, 2}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "non-planar",
			verts: []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 1, 0.5), geom.V(0, 1, 0)},
			faces: [][]int{{0, 1, 2, 3}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "bow tie",
			verts: []geom.Vec{geom.V(0, 0, 0), geom.V(1, 1, 0), geom.V(1, 0, 0), geom.V(0, 1, 0)},
			faces: [][]int{{0, 1, 2, 3}},
			want:  ErrDegenerateFace,
		},
		{
			name:  "flipped face",
			verts: verts,
			faces: [][]int{{0, 1, 2}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
			want:  ErrNonManifoldInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.verts, tt.faces)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildThreeFaceEdge(t *testing.T) {
	// Three triangles fanned around edge (0,1); the open rims would also
	// be reported, but the non-manifold edge wins.
	verts := []geom.Vec{
		geom.V(0, 0, 0), geom.V(0, 0, 1),
		geom.V(1, 0, 0.5), geom.V(-1, 1, 0.5), geom.V(-1, -1, 0.5),
	}
	faces := [][]int{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}}
	_, err := Build(verts, faces)
	if !errors.Is(err, ErrNonManifoldInput) {
		t.Fatalf("Build error = %v, want non-manifold input", err)
	}
	var me *Error
	if !errors.As(err, &me) || me.Op != "build" {
		t.Errorf("error %v is not a build *Error", err)
	}
	if kind, ok := KindOf(err); !ok || kind != KindNonManifoldInput {
		t.Errorf("KindOf = %v,%v", kind, ok)
	}
}

// --- Traversal ---

func TestTraversal(t *testing.T) {
	m := unitCube(t)
	if m.NumVertices() != 8 || m.NumFaces() != 6 || m.NumEdges() != 12 {
		t.Fatalf("counts: v=%d f=%d e=%d", m.NumVertices(), m.NumFaces(), m.NumEdges())
	}
	for f := FaceID(0); int(f) < m.NumFaces(); f++ {
		n := m.FacePlane(f).N
		c := geom.Centroid(m.FacePoints(f))
		if out := c.Sub(geom.V(0.5, 0.5, 0.5)).Dot(n); out <= 0 {
			t.Errorf("face %d normal %v points inward", f, n)
		}
		a, b, cc := m.FaceRef(f)
		if geom.Orient3D(a, b, cc, geom.V(0.5, 0.5, 0.5)) != geom.Negative {
			t.Errorf("face %d: centre not on the inner side of the reference triangle", f)
		}
		for _, e := range m.FaceEdges(f) {
			g, ok := m.AdjacentFace(f, e)
			if !ok || g == f {
				t.Fatalf("AdjacentFace(%d, %d) = %d,%v", f, e, g, ok)
			}
			from, to := m.EdgeVertices(e)
			tf, tt := m.EdgeVertices(m.Twin(e))
			if from != tt || to != tf {
				t.Errorf("twin of (%d,%d) is (%d,%d)", from, to, tf, tt)
			}
			if m.EdgeFace(m.Twin(e)) != g {
				t.Errorf("twin face mismatch")
			}
		}
	}
	if _, ok := m.AdjacentFace(0, m.FaceEdges(1)[0]); ok {
		t.Error("AdjacentFace accepted an edge of another face")
	}
	if got := m.ManifoldFaces(0); len(got) != 6 {
		t.Errorf("ManifoldFaces = %v", got)
	}
}

func TestArraysRoundTrip(t *testing.T) {
	m := unitCube(t)
	verts, faces := m.Arrays()
	m2, err := Build(verts, faces)
	if err != nil {
		t.Fatalf("round trip Build: %v", err)
	}
	if m2.NumFaces() != m.NumFaces() || math.Abs(m2.Volume()-m.Volume()) > 1e-12 {
		t.Error("round trip changed the mesh")
	}
}

// --- Measures and reconstruction ---

func TestMeasures(t *testing.T) {
	m, err := NewBox(geom.V(0, 0, 0), geom.V(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if v := m.Volume(); math.Abs(v-24) > 1e-9 {
		t.Errorf("Volume = %v, want 24", v)
	}
	if a := m.Area(); math.Abs(a-52) > 1e-9 {
		t.Errorf("Area = %v, want 52", a)
	}
	st := m.Stats()
	if st.Vertices != 8 || st.Faces != 6 || st.Edges != 12 || st.Manifolds != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCylinder(t *testing.T) {
	m, err := NewCylinder(2, 1, 32)
	if err != nil {
		t.Fatalf("NewCylinder: %v", err)
	}
	want := 0.5 * 32 * math.Sin(2*math.Pi/32) * 2
	if v := m.Volume(); math.Abs(v-want) > 1e-9 {
		t.Errorf("Volume = %v, want %v", v, want)
	}
	if _, err := NewCylinder(2, 1, 2); err == nil {
		t.Error("two segments accepted")
	}
}

func TestTransformed(t *testing.T) {
	m := unitCube(t)

	moved, err := m.Translated(geom.V(10, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if moved.Box().Min.X != 10 || math.Abs(moved.Volume()-1) > 1e-9 {
		t.Errorf("Translated box %v volume %v", moved.Box(), moved.Volume())
	}
	if m.Box().Min.X != 0 {
		t.Error("Translated mutated its receiver")
	}

	mirrored, err := m.Transformed(sdf.Scale3d(geom.V(-1, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if v := mirrored.Volume(); math.Abs(v-1) > 1e-9 {
		t.Errorf("mirrored volume = %v, want 1", v)
	}

	if _, err := m.Transformed(sdf.Scale3d(geom.V(1, 0, 1))); !errors.Is(err, ErrDegenerateFace) {
		t.Errorf("singular transform error = %v", err)
	}
}

func TestInvertedAndMerge(t *testing.T) {
	m := unitCube(t)
	inv, err := m.Inverted()
	if err != nil {
		t.Fatal(err)
	}
	if v := inv.Volume(); math.Abs(v+1) > 1e-9 {
		t.Errorf("inverted volume = %v, want -1", v)
	}
	far, _ := m.Translated(geom.V(5, 0, 0))
	merged, err := Merge(m, far)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.NumManifolds() != 2 || math.Abs(merged.Volume()-2) > 1e-9 {
		t.Errorf("merged manifolds=%d volume=%v", merged.NumManifolds(), merged.Volume())
	}
	if v := merged.ManifoldVolume(1); math.Abs(v-1) > 1e-9 {
		t.Errorf("ManifoldVolume(1) = %v", v)
	}
}
