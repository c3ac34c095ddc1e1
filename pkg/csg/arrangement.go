package csg

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"github.com/chazu/carve/pkg/geom"
)

var (
	errTrace    = errors.New("inconsistent face arrangement")
	errNoParent = errors.New("hole outside every region")
	errBridge   = errors.New("no visible bridge for hole")
)

// ekey is an undirected edge between two pool ids, lower id first.
type ekey [2]int

func ukey(a, b int) ekey {
	if a > b {
		a, b = b, a
	}
	return ekey{a, b}
}

// arrange computes the planar arrangement of a face boundary and the
// intersection segments crossing the face. It returns the bounded regions
// as simple counterclockwise loops of pool ids, and every intersection edge
// lying on the face.
func arrange(boundary []int, segs []wseg, xy func(int) geom.Vec2, eps float64) ([][]int, []ekey, error) {
	pos := make(map[int]geom.Vec2)
	var nodes []int
	addNode := func(id int) {
		if _, ok := pos[id]; !ok {
			pos[id] = xy(id)
			nodes = append(nodes, id)
		}
	}
	for _, id := range boundary {
		addNode(id)
	}
	for _, s := range segs {
		addNode(s.a)
		addNode(s.b)
	}
	slices.Sort(nodes)

	n := len(boundary)
	onBoundary := make(map[ekey]bool, n)
	for i := range boundary {
		onBoundary[ukey(boundary[i], boundary[(i+1)%n])] = true
	}

	var isect, inner []ekey
	seen := make(map[ekey]bool)
	for _, s := range segs {
		for _, pc := range splitSegment(s, nodes, pos, eps) {
			k := ukey(pc[0], pc[1])
			if seen[k] {
				continue
			}
			seen[k] = true
			isect = append(isect, k)
			if !onBoundary[k] {
				inner = append(inner, k)
			}
		}
	}

	if len(inner) == 0 && !hasRepeat(boundary) {
		if len(boundary) < 3 {
			return nil, isect, nil
		}
		return [][]int{boundary}, isect, nil
	}

	g := newPlanarGraph(pos)
	for i := range boundary {
		g.addEdge(boundary[i], boundary[(i+1)%n])
	}
	for _, k := range inner {
		g.addEdge(k[0], k[1])
	}
	g.sortAround()
	for i := range boundary {
		// The reversed boundary bounds the outside of the face.
		g.visited[[2]int{boundary[(i+1)%n], boundary[i]}] = true
	}

	var regions, holes [][]int
	var areas []float64
	for _, u := range nodes {
		for _, v := range g.adj[u] {
			if g.visited[[2]int{u, v}] {
				continue
			}
			loop, err := g.trace(u, v)
			if err != nil {
				return nil, nil, err
			}
			loop = removeSpikes(loop)
			if len(loop) < 3 {
				continue
			}
			a := geom.SignedArea2D(g.points(loop))
			switch {
			case a > 0:
				regions = append(regions, loop)
				areas = append(areas, a)
			case a < 0:
				holes = append(holes, loop)
			}
		}
	}

	owned := make([][][]int, len(regions))
	for _, h := range holes {
		p := pos[h[0]]
		best := -1
		for i, r := range regions {
			if geom.PointInPolygon2D(p, g.points(r)) != geom.Positive {
				continue
			}
			if best < 0 || areas[i] < areas[best] {
				best = i
			}
		}
		if best < 0 {
			return nil, nil, errNoParent
		}
		owned[best] = append(owned[best], h)
	}

	var out [][]int
	for i, r := range regions {
		if len(owned[i]) == 0 && !hasRepeat(r) {
			out = append(out, r)
			continue
		}
		ring := r
		if len(owned[i]) > 0 {
			var err error
			ring, err = bridgeHoles(r, owned[i], pos)
			if err != nil {
				return nil, nil, err
			}
		}
		tris, err := geom.Triangulate2D(g.points(ring))
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tris {
			out = append(out, []int{ring[t[0]], ring[t[1]], ring[t[2]]})
		}
	}
	return out, isect, nil
}

// splitSegment cuts s at every node lying on it within eps and returns the
// pieces in order.
func splitSegment(s wseg, nodes []int, pos map[int]geom.Vec2, eps float64) [][2]int {
	a, b := pos[s.a], pos[s.b]
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return nil
	}
	type at struct {
		id int
		t  float64
	}
	var mid []at
	for _, id := range nodes {
		if id == s.a || id == s.b {
			continue
		}
		p := pos[id]
		t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
		if t <= 0 || t >= 1 {
			continue
		}
		if math.Hypot(a.X+t*dx-p.X, a.Y+t*dy-p.Y) > eps {
			continue
		}
		mid = append(mid, at{id, t})
	}
	slices.SortFunc(mid, func(x, y at) int {
		if c := cmp.Compare(x.t, y.t); c != 0 {
			return c
		}
		return x.id - y.id
	})
	chain := []int{s.a}
	for _, m := range mid {
		chain = append(chain, m.id)
	}
	chain = append(chain, s.b)

	var out [][2]int
	for i := 0; i+1 < len(chain); i++ {
		if chain[i] != chain[i+1] {
			out = append(out, [2]int{chain[i], chain[i+1]})
		}
	}
	return out
}

func hasRepeat(loop []int) bool {
	seen := make(map[int]bool, len(loop))
	for _, id := range loop {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

// removeSpikes drops back-and-forth excursions a b a from a loop.
func removeSpikes(loop []int) []int {
	for changed := true; changed && len(loop) >= 3; {
		changed = false
		n := len(loop)
		for i := 0; i < n; i++ {
			prev, next := loop[(i+n-1)%n], loop[(i+1)%n]
			if prev != next {
				continue
			}
			// Drop loop[i] and the repeated loop[i+1].
			j := (i + 1) % n
			var keep []int
			for k, id := range loop {
				if k != i && k != j {
					keep = append(keep, id)
				}
			}
			loop = keep
			changed = true
			break
		}
	}
	if len(loop) < 3 {
		return nil
	}
	return loop
}

// ---------------------------------------------------------------------------
// Planar graph
// ---------------------------------------------------------------------------

type planarGraph struct {
	pos     map[int]geom.Vec2
	adj     map[int][]int
	edges   map[ekey]bool
	visited map[[2]int]bool
}

func newPlanarGraph(pos map[int]geom.Vec2) *planarGraph {
	return &planarGraph{
		pos:     pos,
		adj:     make(map[int][]int),
		edges:   make(map[ekey]bool),
		visited: make(map[[2]int]bool),
	}
}

func (g *planarGraph) addEdge(a, b int) {
	if a == b || g.edges[ukey(a, b)] {
		return
	}
	g.edges[ukey(a, b)] = true
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// sortAround orders every neighbour list counterclockwise.
func (g *planarGraph) sortAround() {
	for v, nb := range g.adj {
		o := g.pos[v]
		slices.SortFunc(nb, func(x, y int) int {
			px, py := g.pos[x], g.pos[y]
			ax := math.Atan2(px.Y-o.Y, px.X-o.X)
			ay := math.Atan2(py.Y-o.Y, py.X-o.X)
			if c := cmp.Compare(ax, ay); c != 0 {
				return c
			}
			return x - y
		})
	}
}

// trace walks the face to the left of half-edge u->v and returns its
// vertices. At every node it takes the first edge clockwise from the one it
// arrived on.
func (g *planarGraph) trace(u, v int) ([]int, error) {
	su, sv := u, v
	var loop []int
	limit := 2*len(g.edges) + 1
	for step := 0; ; step++ {
		if step > limit {
			return nil, errTrace
		}
		if g.visited[[2]int{u, v}] {
			return nil, errTrace
		}
		g.visited[[2]int{u, v}] = true
		loop = append(loop, u)
		nb := g.adj[v]
		i := slices.Index(nb, u)
		w := nb[(i-1+len(nb))%len(nb)]
		u, v = v, w
		if u == su && v == sv {
			return loop, nil
		}
	}
}

func (g *planarGraph) points(loop []int) []geom.Vec2 {
	out := make([]geom.Vec2, len(loop))
	for i, id := range loop {
		out[i] = g.pos[id]
	}
	return out
}

// ---------------------------------------------------------------------------
// Holes
// ---------------------------------------------------------------------------

// bridgeHoles connects every hole to the outer ring with a pair of
// coincident edges and returns the resulting weakly simple ring.
func bridgeHoles(outer []int, holes [][]int, pos map[int]geom.Vec2) ([]int, error) {
	left := func(h []int) int {
		best := 0
		for i, id := range h {
			p, q := pos[id], pos[h[best]]
			if p.X < q.X || (p.X == q.X && p.Y < q.Y) {
				best = i
			}
		}
		return best
	}
	holes = slices.Clone(holes)
	slices.SortFunc(holes, func(a, b []int) int {
		pa, pb := pos[a[left(a)]], pos[b[left(b)]]
		if c := cmp.Compare(pa.X, pb.X); c != 0 {
			return c
		}
		return cmp.Compare(pa.Y, pb.Y)
	})

	ring := slices.Clone(outer)
	for hi, h := range holes {
		li := left(h)
		hv := h[li]
		p := pos[hv]

		order := make([]int, len(ring))
		for i := range order {
			order[i] = i
		}
		dist := func(j int) float64 {
			q := pos[ring[j]]
			return (q.X-p.X)*(q.X-p.X) + (q.Y-p.Y)*(q.Y-p.Y)
		}
		slices.SortStableFunc(order, func(x, y int) int { return cmp.Compare(dist(x), dist(y)) })

		found := -1
		for _, j := range order {
			if visible(p, pos[ring[j]], ring, holes[hi:], pos) {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, errBridge
		}
		next := make([]int, 0, len(ring)+len(h)+2)
		next = append(next, ring[:found+1]...)
		next = append(next, h[li:]...)
		next = append(next, h[:li]...)
		next = append(next, hv, ring[found])
		next = append(next, ring[found+1:]...)
		ring = next
	}
	return ring, nil
}

// visible reports whether the segment p-q stays inside ring and outside
// every hole without touching any other edge or vertex.
func visible(p, q geom.Vec2, ring []int, holes [][]int, pos map[int]geom.Vec2) bool {
	if p == q {
		return false
	}
	loops := append([][]int{ring}, holes...)
	for _, l := range loops {
		for i, id := range l {
			c, d := pos[id], pos[l[(i+1)%len(l)]]
			if c != p && c != q && geom.OnSegment2D(c, p, q) {
				return false
			}
			if c == p || c == q || d == p || d == q {
				continue
			}
			if _, _, ok := geom.SegmentIntersect2D(p, q, c, d); ok {
				return false
			}
		}
	}
	mid := geom.Vec2{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
	pts := func(l []int) []geom.Vec2 {
		out := make([]geom.Vec2, len(l))
		for i, id := range l {
			out[i] = pos[id]
		}
		return out
	}
	if geom.PointInPolygon2D(mid, pts(ring)) != geom.Positive {
		return false
	}
	for _, h := range holes {
		if geom.PointInPolygon2D(mid, pts(h)) != geom.Negative {
			return false
		}
	}
	return true
}
