package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/carve/pkg/graph"
)

// DefaultEvalTimeout is the hard limit for a single evaluation unless
// WithTimeout overrides it.
const DefaultEvalTimeout = 5 * time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation. Non-positive
// values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// evalResult carries one evaluation's output from the sandbox goroutine.
type evalResult struct {
	graph  *graph.DesignGraph
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// once timeout elapses. Results of generation gen are discarded when a
// newer evaluation has started in the meantime.
//
// On timeout the sandbox goroutine may still be running; ch must be
// buffered so that its eventual send does not block.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*graph.DesignGraph, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation %d superseded by %d", gen, current)
		}
		return res.graph, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
