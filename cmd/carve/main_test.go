package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the root command with args and returns its stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeDesign(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "design.carve")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "carve ") {
		t.Errorf("version output = %q", out)
	}
}

func TestEvalPrintsParts(t *testing.T) {
	path := writeDesign(t, `
(defsolid "cube" (box 10 10 10))
(defsolid "slab"
  (difference (translate (box 20 20 2) (vec3 30 0 0))
              (translate (box 5 5 4) (vec3 35 5 -1))))
`)
	for _, k := range []string{"carve", "sdfx"} {
		t.Run(k, func(t *testing.T) {
			out, _, err := run(t, "eval", "--kernel", k, "--cells", "64", path)
			if err != nil {
				t.Fatal(err)
			}
			cube := strings.Index(out, "cube\n")
			slab := strings.Index(out, "slab\n")
			if cube < 0 || slab < 0 || slab < cube {
				t.Fatalf("parts missing or out of order:\n%s", out)
			}
			if !strings.Contains(out, "Triangles:") || !strings.Contains(out, "Bounds:") {
				t.Errorf("statistics missing:\n%s", out)
			}
		})
	}
}

func TestEvalExactVolumes(t *testing.T) {
	path := writeDesign(t, `
(defsolid "plate"
  (difference (box 10 10 2) (translate (box 4 4 4) (vec3 3 3 -1))))
`)
	out, _, err := run(t, "eval", "--workers", "2", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Volume: 168.000") {
		t.Errorf("expected volume 168, got:\n%s", out)
	}
	if !strings.Contains(out, "Bounds: (0.000, 0.000, 0.000) - (10.000, 10.000, 2.000)") {
		t.Errorf("unexpected bounds:\n%s", out)
	}
}

func TestEvalExample(t *testing.T) {
	out, _, err := run(t, "eval", filepath.Join("..", "..", "examples", "bracket.carve"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "bracket\n") {
		t.Errorf("expected only the bracket part, got:\n%s", out)
	}
}

func TestEvalWarnings(t *testing.T) {
	path := writeDesign(t, `(defsolid "still" (translate (box 1 1 1) (vec3 0 0 0)))`)
	out, errOut, err := run(t, "eval", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "warning: transform has no translation or rotation") {
		t.Errorf("stderr = %q", errOut)
	}
	if !strings.Contains(out, "still") {
		t.Errorf("stdout = %q", out)
	}
}

func TestEvalNoSolids(t *testing.T) {
	path := writeDesign(t, `(+ 1 2)`)
	out, _, err := run(t, "eval", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No solids.") {
		t.Errorf("stdout = %q", out)
	}
}

func TestEvalFailures(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"missing file", func(t *testing.T) []string {
			return []string{"eval", filepath.Join(t.TempDir(), "nope.carve")}
		}},
		{"syntax error", func(t *testing.T) []string {
			return []string{"eval", writeDesign(t, `(box 1 1`)}
		}},
		{"validation error", func(t *testing.T) []string {
			return []string{"eval", writeDesign(t, `(defsolid "flat" (box 1 0 1))`)}
		}},
		{"unknown kernel", func(t *testing.T) []string {
			return []string{"eval", "--kernel", "manifold", writeDesign(t, `(box 1 1 1)`)}
		}},
		{"removed triangulate flag", func(t *testing.T) []string {
			return []string{"eval", "--triangulate", writeDesign(t, `(box 1 1 1)`)}
		}},
		{"polyhedron on sdfx", func(t *testing.T) []string {
			return []string{"eval", "--kernel", "sdfx", writeDesign(t, `
(polyhedron
  :vertices (list (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1))
  :faces (list (list 0 2 1) (list 0 1 3) (list 1 2 3) (list 0 3 2)))`)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := run(t, tt.args(t)...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
