// Package spatial provides an octree over axis-aligned boxes for candidate
// queries. The tree is built once, lazily or by an explicit Build barrier,
// and is read-only afterwards, so any number of goroutines may query it.
package spatial

import (
	"slices"
	"sync"

	"github.com/chazu/carve/pkg/geom"
)

// Defaults for the split policy.
const (
	MaxLeafItems = 8
	MaxDepth     = 16
)

const (
	// A split is kept only while its octants hold fewer than splitGrowth
	// times the parent's item references.
	splitGrowth = 2
	// Splits may add at most refsPerItem references per indexed item over
	// the whole tree.
	refsPerItem = 8
)

// Option configures an Octree.
type Option func(*options)

type options struct {
	maxLeafItems int
	maxDepth     int
	eps          float64
}

func defaultOptions() options {
	return options{maxLeafItems: MaxLeafItems, maxDepth: MaxDepth}
}

// WithMaxLeafItems sets the item count above which a leaf splits.
func WithMaxLeafItems(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLeafItems = n
		}
	}
}

// WithMaxDepth bounds the depth of the tree.
func WithMaxDepth(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDepth = d
		}
	}
}

// WithTolerance widens every overlap test by eps.
func WithTolerance(eps float64) Option {
	return func(o *options) {
		if eps >= 0 {
			o.eps = eps
		}
	}
}

type node struct {
	box      geom.Box
	items    []int
	children []*node // nil for leaves, else 8
}

// Octree indexes items by their bounding boxes. Item i is boxes[i].
type Octree struct {
	boxes []geom.Box
	opts  options
	once  sync.Once
	root  *node
}

// New returns an unbuilt octree over boxes.
func New(boxes []geom.Box, opts ...Option) *Octree {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Octree{boxes: boxes, opts: o}
}

// Len returns the number of indexed items.
func (t *Octree) Len() int { return len(t.boxes) }

// Build constructs the tree if it has not been built. It is safe to call
// from several goroutines; all return once the tree is complete.
func (t *Octree) Build() {
	t.once.Do(t.build)
}

func (t *Octree) build() {
	if len(t.boxes) == 0 {
		return
	}
	bounds := t.boxes[0]
	items := make([]int, len(t.boxes))
	for i, b := range t.boxes {
		items[i] = i
		bounds = bounds.Extend(b)
	}
	// Slack so items on the outer faces are inside every test.
	bounds = geom.Grow(bounds, 0.05*geom.Diagonal(bounds)+t.opts.eps)
	t.root = &node{box: bounds, items: items}

	// Breadth first, so the reference budget is spent level by level.
	type pending struct {
		n     *node
		depth int
	}
	budget := refsPerItem * len(items)
	queue := []pending{{t.root, 0}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if len(p.n.items) <= t.opts.maxLeafItems || p.depth >= t.opts.maxDepth {
			continue
		}
		children, refs := t.split(p.n)
		// Straddling items land in every octant they touch; stop once that
		// doubles the node.
		grown := refs - len(p.n.items)
		if refs >= splitGrowth*len(p.n.items) || grown > budget {
			continue
		}
		budget -= grown
		p.n.children = children
		p.n.items = nil
		for _, c := range children {
			queue = append(queue, pending{c, p.depth + 1})
		}
	}
}

// split distributes n's items over its eight octants and returns them with
// the total number of item references they hold.
func (t *Octree) split(n *node) ([]*node, int) {
	mid := n.box.Center()
	children := make([]*node, 8)
	refs := 0
	for i := range children {
		cb := n.box
		if i&1 == 0 {
			cb.Max.X = mid.X
		} else {
			cb.Min.X = mid.X
		}
		if i&2 == 0 {
			cb.Max.Y = mid.Y
		} else {
			cb.Min.Y = mid.Y
		}
		if i&4 == 0 {
			cb.Max.Z = mid.Z
		} else {
			cb.Min.Z = mid.Z
		}
		c := &node{box: cb}
		for _, it := range n.items {
			if geom.Overlaps(cb, t.boxes[it], t.opts.eps) {
				c.items = append(c.items, it)
			}
		}
		refs += len(c.items)
		children[i] = c
	}
	return children, refs
}

// Query returns, in ascending order and without duplicates, every item
// whose box overlaps b within the tolerance.
func (t *Octree) Query(b geom.Box) []int {
	t.Build()
	if t.root == nil {
		return nil
	}
	var out []int
	t.query(t.root, b, &out)
	slices.Sort(out)
	return slices.Compact(out)
}

func (t *Octree) query(n *node, b geom.Box, out *[]int) {
	if !geom.Overlaps(n.box, b, t.opts.eps) {
		return
	}
	if n.children == nil {
		for _, it := range n.items {
			if geom.Overlaps(t.boxes[it], b, t.opts.eps) {
				*out = append(*out, it)
			}
		}
		return
	}
	for _, c := range n.children {
		t.query(c, b, out)
	}
}

// QueryRay calls visit for every item whose box the ray origin + t*dir,
// t >= 0, passes through. An item may be visited more than once. Returning
// false from visit stops the walk.
func (t *Octree) QueryRay(origin, dir geom.Vec, visit func(item int) bool) {
	t.Build()
	if t.root == nil {
		return
	}
	t.queryRay(t.root, origin, dir, visit)
}

func (t *Octree) queryRay(n *node, origin, dir geom.Vec, visit func(int) bool) bool {
	if !geom.RayBox(n.box, origin, dir, t.opts.eps) {
		return true
	}
	if n.children == nil {
		for _, it := range n.items {
			if geom.RayBox(t.boxes[it], origin, dir, t.opts.eps) && !visit(it) {
				return false
			}
		}
		return true
	}
	for _, c := range n.children {
		if !t.queryRay(c, origin, dir, visit) {
			return false
		}
	}
	return true
}

// Depth returns the depth of the built tree, 0 for a single leaf.
func (t *Octree) Depth() int {
	t.Build()
	return depth(t.root)
}

func depth(n *node) int {
	if n == nil || n.children == nil {
		return 0
	}
	d := 0
	for _, c := range n.children {
		d = max(d, depth(c))
	}
	return d + 1
}
