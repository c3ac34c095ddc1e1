package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/carve/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms carve Lisp source code before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: drill-hole -> drill_hole
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Lisp comments: ; and ;; become //, the zygomys line comment.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(solid %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number returns the keyword value if present, else the positional
// argument at index pos, else ok=false.
func (pa kwArgs) number(kw string, pos int) (float64, bool, error) {
	if v, ok := pa.kw[kw]; ok {
		f, err := toFloat64(v)
		return f, true, err
	}
	if pos >= 0 && pos < len(pa.positional) {
		f, err := toFloat64(pa.positional[pos])
		return f, true, err
	}
	return 0, false, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3 or a list of three numbers.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 3 {
		return graph.Vec3{}, fmt.Errorf("expected vec3, got %T", s)
	}
	var c [3]float64
	for i, item := range items {
		if c[i], err = toFloat64(item); err != nil {
			return graph.Vec3{}, fmt.Errorf("vec3 component %d: %w", i, err)
		}
	}
	return graph.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Graph builder
// ---------------------------------------------------------------------------

// builder collects nodes into a graph during one evaluation. Anonymous
// node IDs come from a per-evaluation counter, so the same source always
// yields the same IDs.
type builder struct {
	g       *graph.DesignGraph
	counter int
	defined []graph.NodeID // defsolid nodes in definition order
}

func newBuilder(g *graph.DesignGraph) *builder {
	return &builder{g: g}
}

// anonID returns a fresh ID under the given construction prefix.
func (b *builder) anonID(prefix string) graph.NodeID {
	b.counter++
	return graph.NewNodeID(fmt.Sprintf("%s/_anon_%d", prefix, b.counter))
}

// add inserts a node and returns a reference to it.
func (b *builder) add(n *graph.Node) *sexpNodeRef {
	b.g.AddNode(n)
	return &sexpNodeRef{id: n.ID, name: n.Name}
}

func (b *builder) primitive(kind string, data graph.NodeData) *sexpNodeRef {
	return b.add(&graph.Node{
		ID:   b.anonID(kind),
		Kind: graph.NodePrimitive,
		Data: data,
	})
}

// finish registers the graph roots: every defsolid that no other node uses.
// A program without defsolid forms renders the value of its last
// expression, if that is a solid.
func (b *builder) finish(last zygo.Sexp) {
	used := make(map[graph.NodeID]bool)
	for _, n := range b.g.Nodes {
		for _, c := range n.Children {
			used[c] = true
		}
	}
	for _, id := range b.defined {
		if !used[id] {
			b.g.AddRoot(id)
		}
	}
	if len(b.defined) == 0 {
		if ref, ok := last.(*sexpNodeRef); ok {
			b.g.AddRoot(ref.id)
		}
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all carve DSL builtins into a zygomys environment.
// The builtins operate on the builder's DesignGraph, populating it during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		v, err := toVec3(&zygo.SexpArray{Val: args})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (box 100 60 5) or (box (vec3 100 60 5)) or (box :size (vec3 100 60 5))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var size graph.Vec3
		var err error
		switch {
		case pa.kw["size"] != nil:
			size, err = toVec3(pa.kw["size"])
		case len(pa.positional) == 1:
			size, err = toVec3(pa.positional[0])
		case len(pa.positional) == 3:
			size, err = toVec3(&zygo.SexpArray{Val: pa.positional})
		default:
			return zygo.SexpNull, fmt.Errorf("box requires a size: (box x y z) or (box :size (vec3 x y z))")
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
		}
		return b.primitive("box", graph.BoxData{Size: size}), nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 10 :radius 4 :segments 16) or (cylinder 10 4)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var cd graph.CylinderData

		h, ok, err := pa.number("height", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires :height")
		}
		cd.Height = h

		r, ok, err := pa.number("radius", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires :radius")
		}
		cd.Radius = r

		if v, ok := pa.kw["segments"]; ok {
			n, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: segments: %w", err)
			}
			cd.Segments = n
		}

		return b.primitive("cylinder", cd), nil
	})

	// -----------------------------------------------------------------------
	// (polyhedron :vertices (list (vec3 0 0 0) ...) :faces (list (list 0 2 1) ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polyhedron", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var pd graph.PolyhedronData

		vs, ok := pa.kw["vertices"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("polyhedron requires :vertices")
		}
		items, err := sexpListToSlice(vs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyhedron: vertices: %w", err)
		}
		for i, item := range items {
			v, err := toVec3(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyhedron: vertex %d: %w", i, err)
			}
			pd.Vertices = append(pd.Vertices, v)
		}

		fs, ok := pa.kw["faces"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("polyhedron requires :faces")
		}
		faces, err := sexpListToSlice(fs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyhedron: faces: %w", err)
		}
		for i, f := range faces {
			idx, err := sexpListToSlice(f)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyhedron: face %d: %w", i, err)
			}
			loop := make([]int, len(idx))
			for j, x := range idx {
				if loop[j], err = toInt(x); err != nil {
					return zygo.SexpNull, fmt.Errorf("polyhedron: face %d: %w", i, err)
				}
			}
			pd.Faces = append(pd.Faces, loop)
		}

		return b.primitive("polyhedron", pd), nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (intersection a b ...) (difference base cut ...) (xor a b ...)
	// -----------------------------------------------------------------------
	for _, op := range []graph.BooleanOp{graph.OpUnion, graph.OpIntersection, graph.OpDifference, graph.OpXor} {
		env.AddFunction(string(op), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			var children []graph.NodeID
			for i, a := range args {
				if items, err := sexpListToSlice(a); err == nil {
					for _, item := range items {
						id, err := toNodeRef(item)
						if err != nil {
							return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", op, i, err)
						}
						children = append(children, id)
					}
					continue
				}
				id, err := toNodeRef(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", op, i, err)
				}
				children = append(children, id)
			}
			if len(children) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", op, len(children))
			}
			return b.add(&graph.Node{
				ID:       b.anonID(string(op)),
				Kind:     graph.NodeBoolean,
				Children: children,
				Data:     graph.BooleanData{Op: op},
			}), nil
		})
	}

	// -----------------------------------------------------------------------
	// (translate solid (vec3 0 0 19)) or (translate solid :by (vec3 0 0 19))
	// (rotate solid (vec3 0 0 90))    or (rotate solid :by (vec3 0 0 90))
	// -----------------------------------------------------------------------
	transform := func(kind string, set func(*graph.TransformData, graph.Vec3)) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid as first argument", kind)
			}
			childID, err := toNodeRef(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: solid: %w", kind, err)
			}

			amount, ok := pa.kw["by"]
			if !ok {
				if len(pa.positional) != 2 {
					return zygo.SexpNull, fmt.Errorf("%s requires a vec3 amount", kind)
				}
				amount = pa.positional[1]
			}
			vec, err := toVec3(amount)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: by: %w", kind, err)
			}

			td := graph.TransformData{}
			set(&td, vec)
			return b.add(&graph.Node{
				ID:       b.anonID(kind),
				Kind:     graph.NodeTransform,
				Children: []graph.NodeID{childID},
				Data:     td,
			}), nil
		}
	}
	env.AddFunction("translate", transform("translate", func(td *graph.TransformData, v graph.Vec3) {
		td.Translation = &v
	}))
	env.AddFunction("rotate", transform("rotate", func(td *graph.TransformData, v graph.Vec3) {
		td.Rotation = &v
	}))

	// -----------------------------------------------------------------------
	// (defsolid "name" solid)
	// -----------------------------------------------------------------------
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a solid expression")
		}

		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		if solidName == "" {
			return zygo.SexpNull, fmt.Errorf("defsolid: name must not be empty")
		}
		if b.g.Lookup(solidName) != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %q is already defined", solidName)
		}
		childID, err := toNodeRef(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: body: %w", err)
		}

		ref := b.add(&graph.Node{
			ID:       graph.NewNodeID("defsolid/" + solidName),
			Kind:     graph.NodeGroup,
			Name:     solidName,
			Children: []graph.NodeID{childID},
			Data:     graph.GroupData{},
		})
		b.defined = append(b.defined, ref.id)
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (solid "name")
	// -----------------------------------------------------------------------
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}

		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}

		n := b.g.Lookup(solidName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", solidName)
		}

		return &sexpNodeRef{id: n.ID, name: solidName}, nil
	})
}
