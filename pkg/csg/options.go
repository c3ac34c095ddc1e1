package csg

import (
	"runtime"

	"github.com/chazu/carve/pkg/geom"
)

// Option configures a boolean evaluation.
//
// Example:
//
//	out, err := csg.Compute(a, b, csg.Union,
//	    csg.WithWorkers(4),
//	    csg.WithTriangulate(true))
type Option func(*options)

type options struct {
	workers     int
	epsilon     float64
	simplify    bool
	triangulate bool
	recenter    bool
}

func defaultOptions() options {
	return options{
		workers:  runtime.GOMAXPROCS(0),
		epsilon:  geom.DefaultEpsilon,
		simplify: true,
		recenter: true,
	}
}

// WithWorkers bounds the number of goroutines used by each parallel phase.
// Values below one select one worker.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = max(n, 1)
	}
}

// WithEpsilon sets the relative welding tolerance. It is scaled by the size
// of the operands; see geom.ScaledEpsilon.
func WithEpsilon(eps float64) Option {
	return func(o *options) {
		if eps > 0 {
			o.epsilon = eps
		}
	}
}

// WithSimplify enables or disables merging of coplanar faces and removal
// of collinear vertices in the result. Enabled by default.
func WithSimplify(on bool) Option {
	return func(o *options) {
		o.simplify = on
	}
}

// WithTriangulate makes every face of the result a triangle.
func WithTriangulate(on bool) Option {
	return func(o *options) {
		o.triangulate = on
	}
}

// WithoutRecentering disables moving operands that are far from the origin
// next to it before evaluation.
func WithoutRecentering() Option {
	return func(o *options) {
		o.recenter = false
	}
}
