// Package tessellate walks a design graph and produces triangle meshes
// using a geometry kernel. Groups and transforms distribute parts; every
// primitive or boolean reached that way becomes one mesh.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/carve/pkg/graph"
	"github.com/chazu/carve/pkg/kernel"
)

// ErrInvalidGraph is returned when structural or geometric validation of
// the graph reports errors.
var ErrInvalidGraph = errors.New("tessellate: invalid design graph")

// transformStack accumulates spatial transforms during graph traversal.
// The innermost transform is on top.
type transformStack struct {
	frames []graph.TransformData
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(td graph.TransformData) {
	ts.frames = append(ts.frames, td)
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// snapshot returns a copy that later pushes and pops do not affect.
func (ts *transformStack) snapshot() *transformStack {
	return &transformStack{frames: append([]graph.TransformData(nil), ts.frames...)}
}

// apply places s by every frame, innermost first. Each frame rotates
// before it translates.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.frames) - 1; i >= 0; i-- {
		td := ts.frames[i]
		if r := td.Rotation; r != nil && !r.IsZero() {
			s = k.Rotate(s, r.X, r.Y, r.Z)
		}
		if t := td.Translation; t != nil && !t.IsZero() {
			s = k.Translate(s, t.X, t.Y, t.Z)
		}
	}
	return s
}

// part is a solid-producing node found under the roots, with the transforms
// that place it.
type part struct {
	node  *graph.Node
	stack *transformStack
	name  string
}

// Tessellate walks the design graph and produces one triangle mesh per
// part using the provided geometry kernel. The graph is validated first;
// validation errors are returned wrapped in ErrInvalidGraph. The
// tessellator is read-only and never mutates the graph.
func Tessellate(ctx context.Context, g *graph.DesignGraph, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}
	if res := graph.ValidateAll(g); len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidGraph, strings.Join(msgs, "; "))
	}

	var parts []part
	ts := newTransformStack()
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		if err := collect(g, root, ts, "", &parts); err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
	}

	ev := &evaluator{g: g, k: k, cache: make(map[graph.ContentHash]kernel.Solid)}
	meshes := make([]*kernel.Mesh, len(parts))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range parts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			solid, err := ev.solid(ctx, p.node)
			if err != nil {
				return fmt.Errorf("tessellate: part %q: %w", p.name, err)
			}
			mesh, err := k.ToMesh(p.stack.apply(k, solid))
			if err != nil {
				return fmt.Errorf("tessellate: ToMesh failed for part %q: %w", p.name, err)
			}
			mesh.PartName = p.name
			meshes[i] = mesh
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// collect descends through groups and transforms, recording every
// primitive or boolean it reaches as a part. Unnamed parts inherit the
// name of their nearest named ancestor.
func collect(g *graph.DesignGraph, n *graph.Node, ts *transformStack, inherited string, out *[]part) error {
	name := inherited
	if n.Name != "" {
		name = n.Name
	}

	switch n.Kind {
	case graph.NodePrimitive, graph.NodeBoolean:
		if name == "" {
			name = n.ID.Short()
		}
		*out = append(*out, part{node: n, stack: ts.snapshot(), name: name})
		return nil

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		ts.push(td)
		defer ts.pop()
		return collectChildren(g, n, ts, name, out)

	case graph.NodeGroup:
		return collectChildren(g, n, ts, name, out)

	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func collectChildren(g *graph.DesignGraph, n *graph.Node, ts *transformStack, name string, out *[]part) error {
	children := g.Children(n)
	for i, child := range children {
		childName := name
		if len(children) > 1 && name != "" && child.Name == "" {
			childName = fmt.Sprintf("%s/%d", name, i)
		}
		if err := collect(g, child, ts, childName, out); err != nil {
			return err
		}
	}
	return nil
}

// evaluator builds kernel solids for nodes in their local frame. Nodes
// with equal content hashes share one solid.
type evaluator struct {
	g *graph.DesignGraph
	k kernel.Kernel

	mu    sync.Mutex
	cache map[graph.ContentHash]kernel.Solid
}

func (ev *evaluator) solid(ctx context.Context, n *graph.Node) (kernel.Solid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hashed := n.ContentHash != (graph.ContentHash{})
	if hashed {
		ev.mu.Lock()
		s, ok := ev.cache[n.ContentHash]
		ev.mu.Unlock()
		if ok {
			return s, nil
		}
	}

	s, err := ev.build(ctx, n)
	if err != nil {
		return nil, err
	}
	if hashed {
		ev.mu.Lock()
		ev.cache[n.ContentHash] = s
		ev.mu.Unlock()
	}
	return s, nil
}

func (ev *evaluator) build(ctx context.Context, n *graph.Node) (kernel.Solid, error) {
	k := ev.k
	switch n.Kind {
	case graph.NodePrimitive:
		return ev.primitive(n)

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		s, err := ev.unionChildren(ctx, n)
		if err != nil {
			return nil, err
		}
		ts := newTransformStack()
		ts.push(td)
		return ts.apply(k, s), nil

	case graph.NodeGroup:
		return ev.unionChildren(ctx, n)

	case graph.NodeBoolean:
		bd, ok := n.Data.(graph.BooleanData)
		if !ok {
			return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		op, err := operator(k, bd.Op)
		if err != nil {
			return nil, fmt.Errorf("boolean node %s: %w", n.ID.Short(), err)
		}
		children := ev.g.Children(n)
		acc, err := ev.solid(ctx, children[0])
		if err != nil {
			return nil, err
		}
		for _, c := range children[1:] {
			s, err := ev.solid(ctx, c)
			if err != nil {
				return nil, err
			}
			if acc, err = op(acc, s); err != nil {
				return nil, fmt.Errorf("boolean node %s: %w", n.ID.Short(), err)
			}
		}
		return acc, nil

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// unionChildren evaluates the children of a transform or group nested
// inside a boolean as one solid.
func (ev *evaluator) unionChildren(ctx context.Context, n *graph.Node) (kernel.Solid, error) {
	children := ev.g.Children(n)
	if len(children) == 0 {
		return nil, fmt.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	acc, err := ev.solid(ctx, children[0])
	if err != nil {
		return nil, err
	}
	for _, c := range children[1:] {
		s, err := ev.solid(ctx, c)
		if err != nil {
			return nil, err
		}
		if acc, err = ev.k.Union(acc, s); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// primitive creates geometry for a primitive node.
func (ev *evaluator) primitive(n *graph.Node) (kernel.Solid, error) {
	switch data := n.Data.(type) {
	case graph.BoxData:
		return ev.k.Box(data.Size.X, data.Size.Y, data.Size.Z), nil
	case graph.CylinderData:
		return ev.k.Cylinder(data.Height, data.Radius, ev.g.Segments(data)), nil
	case graph.PolyhedronData:
		verts := make([][3]float64, len(data.Vertices))
		for i, v := range data.Vertices {
			verts[i] = [3]float64{v.X, v.Y, v.Z}
		}
		return ev.k.Polyhedron(verts, data.Faces)
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
}

func operator(k kernel.Kernel, op graph.BooleanOp) (func(a, b kernel.Solid) (kernel.Solid, error), error) {
	switch op {
	case graph.OpUnion:
		return k.Union, nil
	case graph.OpIntersection:
		return k.Intersection, nil
	case graph.OpDifference:
		return k.Difference, nil
	case graph.OpXor:
		return k.Xor, nil
	}
	return nil, fmt.Errorf("unknown boolean op %q", op)
}
