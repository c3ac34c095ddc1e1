package csg

// ElementKind names the arena an element key points into.
type ElementKind uint8

const (
	ElemFace ElementKind = iota
	ElemEdge
	ElemVertex
)

// elementKey identifies one element of one operand.
type elementKey struct {
	side Side
	kind ElementKind
	id   int
}

// ClassificationContext carries "already visited" marks for one worker.
// Every pass starts with BeginPass, which bumps the generation; an element
// is marked in the current pass when its recorded generation equals the
// current one, so marks never have to be cleared. A context must not be
// shared between goroutines.
type ClassificationContext struct {
	seen    map[elementKey]uint64
	current uint64
}

// NewClassificationContext returns an empty context. No pass is open until
// BeginPass is called.
func NewClassificationContext() *ClassificationContext {
	return &ClassificationContext{seen: make(map[elementKey]uint64)}
}

// BeginPass starts a new pass and returns its generation.
func (c *ClassificationContext) BeginPass() uint64 {
	c.current++
	return c.current
}

// Mark records the element as visited in the current pass.
func (c *ClassificationContext) Mark(s Side, kind ElementKind, id int) {
	c.seen[elementKey{s, kind, id}] = c.current
}

// IsMarked reports whether the element was visited in the current pass.
func (c *ClassificationContext) IsMarked(s Side, kind ElementKind, id int) bool {
	g, ok := c.seen[elementKey{s, kind, id}]
	return ok && c.current != 0 && g == c.current
}

// MarkIfUnseen marks the element and reports true if it had not been
// visited in the current pass.
func (c *ClassificationContext) MarkIfUnseen(s Side, kind ElementKind, id int) bool {
	k := elementKey{s, kind, id}
	if g, ok := c.seen[k]; ok && g == c.current {
		return false
	}
	c.seen[k] = c.current
	return true
}
