package carve

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/carve/pkg/csg"
	"github.com/chazu/carve/pkg/kernel"
	"github.com/chazu/carve/pkg/kernel/sdfx"
	"github.com/chazu/carve/pkg/mesh"
)

func volume(t *testing.T, k kernel.Kernel, s kernel.Solid) float64 {
	t.Helper()
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	return m.Volume()
}

// must fails the test on a boolean error: must(t)(k.Union(a, b)).
func must(t *testing.T) func(kernel.Solid, error) kernel.Solid {
	return func(s kernel.Solid, err error) kernel.Solid {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
}

func TestBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	m, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("box triangle count = %d, want 12", m.TriangleCount())
	}
	if m.VertexCount() != 24 {
		t.Errorf("box vertex count = %d, want 24", m.VertexCount())
	}
	if len(m.Vertices) != len(m.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(m.Vertices), len(m.Normals))
	}
	if v := m.Volume(); math.Abs(v-125000) > 1e-6*125000 {
		t.Errorf("box volume = %v, want 125000", v)
	}

	min, max := box.BoundingBox()
	if min != [3]float64{0, 0, 0} || max != [3]float64{100, 50, 25} {
		t.Errorf("box bounds = %v %v", min, max)
	}
}

func TestCylinder(t *testing.T) {
	k := New()
	cyl := k.Cylinder(50, 10, 32)
	want := 0.5 * 32 * 100 * math.Sin(2*math.Pi/32) * 50
	if v := volume(t, k, cyl); math.Abs(v-want) > 1e-4*want {
		t.Errorf("cylinder volume = %v, want %v", v, want)
	}
	min, max := cyl.BoundingBox()
	if math.Abs(min[2]+25) > 1e-9 || math.Abs(max[2]-25) > 1e-9 {
		t.Errorf("cylinder z range = %v..%v, want -25..25", min[2], max[2])
	}
}

func TestBooleans(t *testing.T) {
	k := New()
	a := k.Box(100, 100, 100)
	b := k.Translate(k.Box(100, 100, 100), 50, 0, 0)

	tests := []struct {
		name string
		op   func(a, b kernel.Solid) (kernel.Solid, error)
		want float64
	}{
		{"union", k.Union, 1.5e6},
		{"difference", k.Difference, 0.5e6},
		{"intersection", k.Intersection, 0.5e6},
		{"xor", k.Xor, 1.0e6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := must(t)(tt.op(a, b))
			if v := volume(t, k, s); math.Abs(v-tt.want) > 1e-6*tt.want {
				t.Errorf("volume = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestDrilledPlateMatchesSdfx(t *testing.T) {
	ck := New(WithOptions(csg.WithWorkers(2)))
	sk := sdfx.New()

	build := func(k kernel.Kernel) kernel.Solid {
		plate := k.Box(100, 100, 20)
		hole := k.Translate(k.Cylinder(40, 20, 64), 50, 50, 10)
		return must(t)(k.Difference(plate, hole))
	}

	exact := volume(t, ck, build(ck))
	want := 100*100*20 - 0.5*64*400*math.Sin(2*math.Pi/64)*20
	if math.Abs(exact-want) > 1e-6*want {
		t.Errorf("carve volume = %v, want %v", exact, want)
	}

	// Marching cubes is only accurate to a few percent.
	sampled := math.Abs(volume(t, sk, build(sk)))
	if math.Abs(sampled-exact) > 0.05*exact {
		t.Errorf("sdfx volume %v differs from carve volume %v by more than 5%%", sampled, exact)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	min, max := box.BoundingBox()

	const tol = 1e-9
	expectMin := [3]float64{100, 200, 300}
	expectMax := [3]float64{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	rotated := k.Rotate(k.Box(100, 10, 10), 0, 0, 90)
	min, max := rotated.BoundingBox()

	const tol = 1e-6
	if x := max[0] - min[0]; math.Abs(x-10) > tol {
		t.Errorf("rotated X extent = %f, expected 10", x)
	}
	if y := max[1] - min[1]; math.Abs(y-100) > tol {
		t.Errorf("rotated Y extent = %f, expected 100", y)
	}
	if v := volume(t, k, rotated); math.Abs(v-10000) > 1e-6*10000 {
		t.Errorf("rotation changed the volume to %v", v)
	}
}

func TestPolyhedron(t *testing.T) {
	k := New()
	verts := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	faces := [][]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}}

	s, err := k.Polyhedron(verts, faces)
	if err != nil {
		t.Fatalf("Polyhedron failed: %v", err)
	}
	if v := volume(t, k, s); math.Abs(v-1.0/6) > 1e-6 {
		t.Errorf("tetrahedron volume = %v, want 1/6", v)
	}

	_, err = k.Polyhedron(verts, faces[:3])
	if !errors.Is(err, mesh.ErrOpenSurface) {
		t.Errorf("open polyhedron error = %v, want ErrOpenSurface", err)
	}
}

func TestFailedPrimitivePropagates(t *testing.T) {
	k := New()
	bad := k.Box(0, 1, 1)
	if min, max := bad.BoundingBox(); min != max {
		t.Errorf("failed box has bounds %v %v", min, max)
	}
	moved := k.Translate(bad, 1, 2, 3)
	if _, err := k.Union(moved, k.Box(1, 1, 1)); err == nil {
		t.Error("union with a failed box should fail")
	}
	if _, err := k.ToMesh(bad); err == nil {
		t.Error("ToMesh of a failed box should fail")
	}
}

func TestForeignSolid(t *testing.T) {
	k := New()
	if _, err := k.Union(k.Box(1, 1, 1), sdfx.New().Box(1, 1, 1)); err == nil {
		t.Error("mixing kernels should fail")
	}
}

func TestEmptyResult(t *testing.T) {
	k := New()
	a := k.Box(1, 1, 1)
	b := k.Translate(k.Box(1, 1, 1), 5, 0, 0)
	s := must(t)(k.Intersection(a, b))
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEmpty() {
		t.Errorf("disjoint intersection has %d triangles", m.TriangleCount())
	}
	moved := k.Translate(s, 1, 1, 1)
	if min, max := moved.BoundingBox(); min != max {
		t.Errorf("empty solid has bounds %v %v", min, max)
	}
}
