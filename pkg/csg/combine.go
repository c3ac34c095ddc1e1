package csg

import (
	"slices"

	"github.com/chazu/carve/pkg/geom"
)

// keep selects fragments of one side carrying one label; flip reverses
// their orientation in the result.
type keep struct {
	side  Side
	label Label
	flip  bool
}

// Coplanar surfaces are emitted once, from the copy owned by the operand
// whose Out or In fragments form the rest of that surface.
var combineRules = map[Op][]keep{
	Union: {
		{SideA, Out, false},
		{SideB, Out, false},
		{SideA, OnSame, false},
	},
	Intersection: {
		{SideA, In, false},
		{SideB, In, false},
		{SideA, OnSame, false},
	},
	Subtract: {
		{SideA, Out, false},
		{SideB, In, true},
		{SideA, OnOpposite, false},
	},
	ReverseSubtract: {
		{SideB, Out, false},
		{SideA, In, true},
		{SideB, OnOpposite, false},
	},
}

// selectLoops returns the loops, in pool ids, of the fragments op keeps.
// SymmetricDifference has no rule of its own; it is evaluated as two
// subtractions.
func selectLoops(frags []fragment, op Op) [][]int {
	rules := combineRules[op]
	var out [][]int
	for i := range frags {
		fr := &frags[i]
		for _, r := range rules {
			if fr.side != r.side || fr.label != r.label {
				continue
			}
			loop := slices.Clone(fr.loop)
			if r.flip {
				slices.Reverse(loop)
			}
			out = append(out, loop)
			break
		}
	}
	return out
}

// compact renumbers the pool ids used by loops densely, in order of first
// use, and returns the matching vertex list.
func compact(p *pool, loops [][]int) ([]geom.Vec, [][]int) {
	index := make(map[int]int)
	var verts []geom.Vec
	faces := make([][]int, len(loops))
	for i, loop := range loops {
		f := make([]int, len(loop))
		for j, id := range loop {
			k, ok := index[id]
			if !ok {
				k = len(verts)
				index[id] = k
				verts = append(verts, p.pos(id))
			}
			f[j] = k
		}
		faces[i] = f
	}
	return verts, faces
}
