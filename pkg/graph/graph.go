package graph

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"slices"
)

// DefaultSegments is the default number of sides of a cylinder prism.
const DefaultSegments = 32

// GlobalDefaults contains graph-wide default settings.
type GlobalDefaults struct {
	Segments int    `json:"segments"` // cylinder sides when a node leaves it unset
	Units    string `json:"units"`    // "mm" (only option for now)
}

// DesignGraph is the top-level immutable data structure produced by Lisp evaluation.
// It is never mutated in place; each evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  GlobalDefaults    `json:"defaults"`
	Version   uint64            `json:"version"`
}

// New creates an empty DesignGraph with default settings.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: GlobalDefaults{
			Segments: DefaultSegments,
			Units:    "mm",
		},
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph. Adding the same
// root twice has no effect.
func (g *DesignGraph) AddRoot(id NodeID) {
	for _, r := range g.Roots {
		if r == id {
			return
		}
	}
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Primitives returns all primitive nodes in the graph.
func (g *DesignGraph) Primitives() []*Node {
	return g.ofKind(NodePrimitive)
}

// Booleans returns all boolean nodes in the graph.
func (g *DesignGraph) Booleans() []*Node {
	return g.ofKind(NodeBoolean)
}

func (g *DesignGraph) ofKind(k NodeKind) []*Node {
	var out []*Node
	for _, n := range g.SortedNodes() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// SortedNodes returns every node ordered by ID, so that walks over the
// graph report findings in a stable order.
func (g *DesignGraph) SortedNodes() []*Node {
	out := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}

// Segments returns the prism side count for a cylinder node.
func (g *DesignGraph) Segments(d CylinderData) int {
	if d.Segments > 0 {
		return d.Segments
	}
	if g.Defaults.Segments > 0 {
		return g.Defaults.Segments
	}
	return DefaultSegments
}

// HashContent fills in ContentHash for every node reachable from the roots.
// Two nodes with equal hashes describe the same geometry, whatever their
// names. Nodes on a cycle or with dangling children are left unhashed.
func (g *DesignGraph) HashContent() {
	state := make(map[NodeID]int) // 1 visiting, 2 done, 3 failed
	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch state[id] {
		case 1, 3:
			return false
		case 2:
			return true
		}
		n := g.Nodes[id]
		if n == nil {
			return false
		}
		state[id] = 1
		h := sha256.New()
		fmt.Fprintf(h, "%d|", n.Kind)
		writeData(h, n.Data)
		for _, c := range n.Children {
			if !visit(c) {
				state[id] = 3
				return false
			}
			h.Write(g.Nodes[c].ContentHash[:])
		}
		copy(n.ContentHash[:], h.Sum(nil))
		state[id] = 2
		return true
	}
	for _, r := range g.Roots {
		visit(r)
	}
}

// writeData writes a pointer-free rendering of d.
func writeData(w io.Writer, d NodeData) {
	if td, ok := d.(TransformData); ok {
		var t, r Vec3
		if td.Translation != nil {
			t = *td.Translation
		}
		if td.Rotation != nil {
			r = *td.Rotation
		}
		fmt.Fprintf(w, "transform%v%v|", t, r)
		return
	}
	fmt.Fprintf(w, "%#v|", d)
}
