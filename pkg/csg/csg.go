// Package csg computes boolean operations between closed manifold meshes.
//
// Evaluation runs in phases: candidate face pairs are found through an
// octree, every pair is intersected with exact orientation predicates,
// intersection points are welded into one pool, every face is split along
// its intersection segments, fragments are classified against the other
// solid, and the fragments the operator keeps are stitched into a new
// [mesh.MeshSet]. The parallel phases use a bounded worker group; their
// results are merged in a fixed order, so output does not depend on
// scheduling.
//
// Inputs are never modified. Every failure is a *mesh.Error carrying one of
// the mesh.Kind values.
package csg

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/mesh"
)

// Recentering applies when the operands lie farther than recenterDistance
// from the origin and farther than recenterRatio times their extent.
const (
	recenterDistance = 100.0
	recenterRatio    = 10.0
)

// candidate is a pair of working faces whose boxes overlap.
type candidate struct{ fa, fb int }

// Compute returns the result of applying op to a and b.
func Compute(a, b *mesh.MeshSet, op Op, opts ...Option) (*mesh.MeshSet, error) {
	if op < Union || op > SymmetricDifference {
		return nil, fmt.Errorf("csg: compute: unknown operator %v", op)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := Logger()

	if a.IsEmpty() || b.IsEmpty() || !geom.Overlaps(a.Box(), b.Box(), 0) {
		log.Debug("csg: disjoint operands", "op", op)
		return disjoint(a, b, op)
	}

	box := a.Box().Extend(b.Box())
	var shift geom.Vec
	if o.recenter {
		c := box.Center()
		if d := c.Length(); d > recenterDistance && d > recenterRatio*geom.Diagonal(box) {
			shift = c
		}
	}
	if shift != (geom.Vec{}) {
		var err error
		if a, err = a.Translated(shift.Neg()); err != nil {
			return nil, err
		}
		if b, err = b.Translated(shift.Neg()); err != nil {
			return nil, err
		}
		log.Debug("csg: recentered operands", "shift", shift)
	}

	eps := geom.ScaledEpsilon(o.epsilon, box.Size())
	out, err := evaluate(a, b, op, o, eps)
	if err != nil {
		return nil, err
	}
	if shift != (geom.Vec{}) {
		return out.Translated(shift)
	}
	return out, nil
}

// disjoint evaluates op for operands that share no volume.
func disjoint(a, b *mesh.MeshSet, op Op) (*mesh.MeshSet, error) {
	switch op {
	case Union, SymmetricDifference:
		return mesh.Merge(a, b)
	case Intersection:
		return mesh.Merge()
	case Subtract:
		return mesh.Merge(a)
	default:
		return mesh.Merge(b)
	}
}

func evaluate(a, b *mesh.MeshSet, op Op, o options, eps float64) (*mesh.MeshSet, error) {
	log := Logger()

	opA, err := newOperand(SideA, a, eps)
	if err != nil {
		return nil, err
	}
	opB, err := newOperand(SideB, b, eps)
	if err != nil {
		return nil, err
	}
	opA.tree.Build()
	opB.tree.Build()

	pairs, err := candidatePairs(opA, opB, o.workers)
	if err != nil {
		return nil, err
	}
	results := make([]pairResult, len(pairs))
	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for _, ch := range chunks(len(pairs), o.workers) {
		g.Go(func() error {
			for i := ch[0]; i < ch[1]; i++ {
				results[i] = intersectPair(opA, opB, pairs[i].fa, pairs[i].fb, eps)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w := weldResults(opA, opB, pairs, results, eps)
	log.Debug("csg: intersected", "pairs", len(pairs), "segments", w.nSegs, "points", len(w.pool.pts))

	frags, isect, err := splitAll(w, opA, opB, o.workers, eps)
	if err != nil {
		return nil, err
	}
	cls := &classifier{ops: [2]*operand{opA, opB}, w: w, frags: frags, isect: isect, eps: eps}
	patches, err := cls.run(o.workers)
	if err != nil {
		return nil, err
	}
	log.Debug("csg: classified", "fragments", len(frags), "patches", patches)

	if op == SymmetricDifference {
		left, err := stitch(w.pool, selectLoops(frags, Subtract), o, eps)
		if err != nil {
			return nil, err
		}
		right, err := stitch(w.pool, selectLoops(frags, ReverseSubtract), o, eps)
		if err != nil {
			return nil, err
		}
		return mesh.Merge(left, right)
	}
	return stitch(w.pool, selectLoops(frags, op), o, eps)
}

// candidatePairs queries a's octree with every working face of b.
func candidatePairs(a, b *operand, workers int) ([]candidate, error) {
	parts := chunks(len(b.faces), workers)
	found := make([][]candidate, len(parts))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for pi, ch := range parts {
		g.Go(func() error {
			for fb := ch[0]; fb < ch[1]; fb++ {
				for _, fa := range a.tree.Query(b.faces[fb].box) {
					found[pi] = append(found[pi], candidate{fa, fb})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := slices.Concat(found...)
	slices.SortFunc(out, func(x, y candidate) int {
		if c := cmp.Compare(x.fa, y.fa); c != 0 {
			return c
		}
		return cmp.Compare(x.fb, y.fb)
	})
	return out, nil
}

// splitAll splits every working face of both operands and returns the
// fragments in face order with the set of intersection edges.
func splitAll(w *welded, a, b *operand, workers int, eps float64) ([]fragment, map[ekey]bool, error) {
	type job struct {
		op *operand
		fi int
	}
	var jobs []job
	for _, op := range []*operand{a, b} {
		for fi := range op.faces {
			jobs = append(jobs, job{op, fi})
		}
	}
	out := make([]faceSplit, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, ch := range chunks(len(jobs), workers) {
		g.Go(func() error {
			for i := ch[0]; i < ch[1]; i++ {
				fs, err := w.splitFace(jobs[i].op, jobs[i].fi, eps)
				if err != nil {
					return err
				}
				out[i] = fs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var frags []fragment
	isect := make(map[ekey]bool)
	for _, fs := range out {
		frags = append(frags, fs.frags...)
		for _, e := range fs.isect {
			isect[e] = true
		}
	}
	return frags, isect, nil
}
