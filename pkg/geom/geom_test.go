package geom

import (
	"math"
	"testing"
)

// --- Predicates ---

func TestOrient3D(t *testing.T) {
	a, b, c := V(0, 0, 0), V(1, 0, 0), V(0, 1, 0)
	tests := []struct {
		name string
		d    Vec
		want Sign
	}{
		{"above normal side", V(0.2, 0.2, 1), Positive},
		{"below", V(0.2, 0.2, -1), Negative},
		{"coplanar", V(5, -3, 0), Zero},
		{"tiny positive", V(0.3, 0.3, 1e-300), Positive},
		{"tiny negative", V(0.3, 0.3, -1e-300), Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orient3D(a, b, c, tt.d); got != tt.want {
				t.Errorf("Orient3D = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrient3DExactFallback(t *testing.T) {
	// Points on a plane through non-representable coordinates. The float
	// determinant is noise; the exact path must agree with itself under
	// permutation of the reference triple.
	a := V(0.1, 0.2, 0.3)
	b := V(1.1, 0.7, 0.9)
	c := V(0.4, 1.3, 0.2)
	d := Lerp(a, b, 1.0/3)
	got := Orient3D(a, b, c, d)
	if got != Orient3D(b, c, a, d) || got != Orient3D(c, a, b, d) {
		t.Errorf("cyclic permutations disagree: %v", got)
	}
	if Orient3D(a, c, b, d) != got.Flip() {
		t.Errorf("swapping b and c did not flip the sign")
	}
}

func TestOrient2D(t *testing.T) {
	a, b := Vec2{X: 0, Y: 0}, Vec2{X: 1, Y: 1}
	if got := Orient2D(a, b, Vec2{X: 0, Y: 1}); got != Positive {
		t.Errorf("left point = %v, want positive", got)
	}
	if got := Orient2D(a, b, Vec2{X: 1, Y: 0}); got != Negative {
		t.Errorf("right point = %v, want negative", got)
	}
	if got := Orient2D(a, b, Vec2{X: 3, Y: 3}); got != Zero {
		t.Errorf("collinear point = %v, want zero", got)
	}
	if got := Orient2D(a, b, Vec2{X: 0.5, Y: math.Nextafter(0.5, 1)}); got != Positive {
		t.Errorf("near-collinear point = %v, want positive", got)
	}
}

func TestCollinear(t *testing.T) {
	if !Collinear(V(0, 0, 0), V(1, 2, 3), V(2, 4, 6)) {
		t.Error("points on a line reported non-collinear")
	}
	if Collinear(V(0, 0, 0), V(1, 2, 3), V(2, 4, 6.0000001)) {
		t.Error("off-line point reported collinear")
	}
}

func TestSignOf(t *testing.T) {
	if SignOf(1e-12, 1e-9) != Zero || SignOf(1e-3, 1e-9) != Positive || SignOf(-1, 1e-9) != Negative {
		t.Error("SignOf misclassified")
	}
}

// --- Planes ---

func TestNewellPlane(t *testing.T) {
	sq := []Vec{V(0, 0, 2), V(1, 0, 2), V(1, 1, 2), V(0, 1, 2)}
	pl, ok := NewellPlane(sq)
	if !ok {
		t.Fatal("NewellPlane failed on a square")
	}
	if math.Abs(pl.N.Z-1) > 1e-12 || math.Abs(pl.D+2) > 1e-12 {
		t.Errorf("plane = %+v, want N=(0,0,1) D=-2", pl)
	}
	if d := pl.Distance(V(3, 3, 5)); math.Abs(d-3) > 1e-12 {
		t.Errorf("Distance = %v, want 3", d)
	}
	if got := pl.Flip().Distance(V(0, 0, 5)); math.Abs(got+3) > 1e-12 {
		t.Errorf("flipped Distance = %v, want -3", got)
	}
	if _, ok := NewellPlane([]Vec{V(0, 0, 0), V(1, 0, 0), V(2, 0, 0)}); ok {
		t.Error("NewellPlane accepted a collinear ring")
	}
}

func TestSegmentPlane(t *testing.T) {
	pl, _ := PlaneFromPoints(V(0, 0, 1), V(1, 0, 1), V(0, 1, 1))
	tt, ok := SegmentPlane(V(0, 0, 0), V(0, 0, 4), pl)
	if !ok || math.Abs(tt-0.25) > 1e-12 {
		t.Errorf("SegmentPlane = %v,%v, want 0.25,true", tt, ok)
	}
	if _, ok := SegmentPlane(V(0, 0, 2), V(0, 0, 4), pl); ok {
		t.Error("segment above the plane reported a crossing")
	}
}

func TestPlaneLine(t *testing.T) {
	a, _ := PlaneFromPoints(V(0, 0, 1), V(1, 0, 1), V(0, 1, 1)) // z = 1
	b, _ := PlaneFromPoints(V(2, 0, 0), V(2, 1, 0), V(2, 0, 1)) // x = 2
	p, dir, ok := PlaneLine(a, b)
	if !ok {
		t.Fatal("PlaneLine failed")
	}
	if math.Abs(a.Distance(p)) > 1e-12 || math.Abs(b.Distance(p)) > 1e-12 {
		t.Errorf("point %v not on both planes", p)
	}
	if math.Abs(math.Abs(dir.Y)-1) > 1e-12 {
		t.Errorf("dir = %v, want ±Y", dir)
	}
	if _, _, ok := PlaneLine(a, a.Flip()); ok {
		t.Error("parallel planes produced a line")
	}
}

// --- Boxes ---

func TestBoxes(t *testing.T) {
	a := BoxOf(V(0, 0, 0), V(1, 1, 1))
	b := BoxOf(V(1, 0, 0), V(2, 1, 1))
	c := BoxOf(V(1.5, 0, 0), V(2, 1, 1))
	if !Overlaps(a, b, 0) {
		t.Error("touching boxes should overlap")
	}
	if Overlaps(a, c, 1e-9) {
		t.Error("separated boxes overlap")
	}
	if !ContainsPoint(a, V(1, 1, 1+1e-12), 1e-9) {
		t.Error("point within tolerance not contained")
	}
	if !RayBox(a, V(-1, 0.5, 0.5), V(1, 0, 0), 0) {
		t.Error("ray through box missed")
	}
	if RayBox(a, V(-1, 0.5, 0.5), V(-1, 0, 0), 0) {
		t.Error("ray pointing away hit")
	}
	if d := Diagonal(a); math.Abs(d-math.Sqrt(3)) > 1e-12 {
		t.Errorf("Diagonal = %v", d)
	}
}

// --- 2D polygons ---

func TestProjectorPreservesOrientation(t *testing.T) {
	ring := []Vec{V(0, 0, 0), V(1, 0, 0), V(1, 1, 0), V(0, 1, 0)}
	for _, n := range []Vec{V(0, 0, 1), V(0, 0, -1)} {
		pts := ring
		if n.Z < 0 {
			pts = []Vec{ring[0], ring[3], ring[2], ring[1]}
		}
		if a := SignedArea2D(NewProjector(n).ProjectAll(pts)); a <= 0 {
			t.Errorf("normal %v: projected area %v, want positive", n, a)
		}
	}
	// Face x = const, counterclockwise seen from -X.
	wall := []Vec{V(0, 0, 0), V(0, 0, 1), V(0, 1, 1), V(0, 1, 0)}
	n := NewellNormal(wall)
	if a := SignedArea2D(NewProjector(n).ProjectAll(wall)); a <= 0 {
		t.Errorf("wall area %v, want positive (normal %v)", a, n)
	}
}

func TestPointInPolygon2D(t *testing.T) {
	sq := []Vec2{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	tests := []struct {
		name string
		p    Vec2
		want Sign
	}{
		{"inside", Vec2{X: 1, Y: 1}, Positive},
		{"outside", Vec2{X: 3, Y: 1}, Negative},
		{"edge", Vec2{X: 2, Y: 1}, Zero},
		{"corner", Vec2{X: 0, Y: 0}, Zero},
		{"level with vertex", Vec2{X: -1, Y: 2}, Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon2D(tt.p, sq); got != tt.want {
				t.Errorf("PointInPolygon2D = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmentIntersect2D(t *testing.T) {
	tt, u, ok := SegmentIntersect2D(Vec2{X: 0, Y: 0}, Vec2{X: 2, Y: 0}, Vec2{X: 1, Y: -1}, Vec2{X: 1, Y: 1})
	if !ok || math.Abs(tt-0.5) > 1e-12 || math.Abs(u-0.5) > 1e-12 {
		t.Errorf("crossing = %v %v %v", tt, u, ok)
	}
	if _, _, ok := SegmentIntersect2D(Vec2{X: 0, Y: 0}, Vec2{X: 2, Y: 0}, Vec2{X: 3, Y: -1}, Vec2{X: 3, Y: 1}); ok {
		t.Error("disjoint segments crossed")
	}
}

func TestTriangulate2D(t *testing.T) {
	tests := []struct {
		name string
		pts  []Vec2
	}{
		{"square", []Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}},
		{"clockwise square", []Vec2{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}},
		{"L shape", []Vec2{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}},
		{"collinear vertices", []Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 0, Y: 2}}},
		{"bridged hole", []Vec2{
			{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}, {X: 0, Y: 0},
			{X: 1, Y: 1}, {X: 1, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 1}, {X: 1, Y: 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris, err := Triangulate2D(tt.pts)
			if err != nil {
				t.Fatalf("Triangulate2D: %v", err)
			}
			want := SignedArea2D(tt.pts)
			var got float64
			for _, tri := range tris {
				a := SignedArea2D([]Vec2{tt.pts[tri[0]], tt.pts[tri[1]], tt.pts[tri[2]]})
				if a*want <= 0 {
					t.Errorf("triangle %v has area %v, ring area %v", tri, a, want)
				}
				got += a
			}
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("triangle area sum %v, want %v", got, want)
			}
		})
	}
}

func TestInteriorPoint2D(t *testing.T) {
	l := []Vec2{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}
	p, ok := InteriorPoint2D(l)
	if !ok {
		t.Fatal("no interior point")
	}
	if PointInPolygon2D(p, l) != Positive {
		t.Errorf("interior point %v is not inside", p)
	}
}
