package graph

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (errors and warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs all Tier 2 geometric checks.
// Returns errors (blocking) and warnings (advisory) separately.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	errs = append(errs, validatePositiveDimensions(g)...)
	errs = append(errs, validatePolyhedra(g)...)

	warnings = append(warnings, validateNoOpTransforms(g)...)
	warnings = append(warnings, validateSelfOperands(g)...)

	return errs, warnings
}

// validatePositiveDimensions checks box sizes and cylinder parameters.
func validatePositiveDimensions(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	bad := func(id NodeID, what string, v float64) {
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("%s is %.4f, must be positive", what, v),
			Severity: SeverityError,
		})
	}

	for _, node := range g.SortedNodes() {
		switch d := node.Data.(type) {
		case BoxData:
			if !(d.Size.X > 0) {
				bad(node.ID, "box dimension X", d.Size.X)
			}
			if !(d.Size.Y > 0) {
				bad(node.ID, "box dimension Y", d.Size.Y)
			}
			if !(d.Size.Z > 0) {
				bad(node.ID, "box dimension Z", d.Size.Z)
			}
		case CylinderData:
			if !(d.Height > 0) {
				bad(node.ID, "cylinder height", d.Height)
			}
			if !(d.Radius > 0) {
				bad(node.ID, "cylinder radius", d.Radius)
			}
			if d.Segments != 0 && d.Segments < 3 {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("cylinder has %d segments, want at least 3", d.Segments),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validatePolyhedra checks that every polyhedron has enough vertices, that
// faces have at least three distinct indices, and that every index is in
// range. Closedness is left to the mesh builder.
func validatePolyhedra(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.SortedNodes() {
		pd, ok := node.Data.(PolyhedronData)
		if !ok {
			continue
		}
		fail := func(format string, args ...any) {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf(format, args...),
				Severity: SeverityError,
			})
		}

		if len(pd.Vertices) < 4 {
			fail("polyhedron has %d vertices, want at least 4", len(pd.Vertices))
		}
		if len(pd.Faces) < 4 {
			fail("polyhedron has %d faces, want at least 4", len(pd.Faces))
		}
		for i, v := range pd.Vertices {
			if math.IsNaN(v.X+v.Y+v.Z) || math.IsInf(v.X+v.Y+v.Z, 0) {
				fail("polyhedron vertex %d is not finite", i)
			}
		}
		for fi, f := range pd.Faces {
			if len(f) < 3 {
				fail("polyhedron face %d has %d indices, want at least 3", fi, len(f))
				continue
			}
			seen := make(map[int]bool, len(f))
			for _, vi := range f {
				if vi < 0 || vi >= len(pd.Vertices) {
					fail("polyhedron face %d index %d out of range [0,%d)", fi, vi, len(pd.Vertices))
					continue
				}
				if seen[vi] {
					fail("polyhedron face %d repeats vertex %d", fi, vi)
				}
				seen[vi] = true
			}
		}
	}

	return errs
}

// validateNoOpTransforms warns about transforms that move nothing.
func validateNoOpTransforms(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, node := range g.SortedNodes() {
		td, ok := node.Data.(TransformData)
		if !ok {
			continue
		}
		if (td.Translation == nil || td.Translation.IsZero()) && (td.Rotation == nil || td.Rotation.IsZero()) {
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: "transform has no translation or rotation",
			})
		}
	}

	return warnings
}

// validateSelfOperands warns when a boolean uses the same node twice.
// Differences and xors of a solid with itself are empty.
func validateSelfOperands(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, node := range g.SortedNodes() {
		bd, ok := node.Data.(BooleanData)
		if !ok {
			continue
		}
		seen := make(map[NodeID]bool, len(node.Children))
		for _, c := range node.Children {
			if seen[c] {
				warnings = append(warnings, ValidationWarning{
					NodeID:  node.ID,
					Message: fmt.Sprintf("%s uses operand %s more than once", bd.Op, c.Short()),
				})
				break
			}
			seen[c] = true
		}
	}

	return warnings
}
