package nav

import (
	"container/heap"
	"slices"
)

// FindNodePath runs A* from start to goal over traversable nodes using s as
// the per-node scratch. Returns the node indices from start to goal inclusive,
// or false when the goal is unreachable.
func (g *Grid) FindNodePath(start, goal int32, s *Scratch) ([]int32, bool) {
	if start == goal {
		return []int32{start}, true
	}

	goalCoords := g.nodes[goal].Coords

	first := s.Touch(start)
	first.GCost = 0
	first.FCost = heuristic(g.nodes[start].Coords, goalCoords)
	first.CameFrom = noNode

	open := &openSet{}
	heap.Init(open)
	var seq uint64
	heap.Push(open, openEntry{node: start, f: first.FCost, seq: seq})

	closed := make(map[int32]struct{}, 256)

	for open.Len() > 0 {
		cur := heap.Pop(open).(openEntry)

		if !s.Current(cur.node) {
			continue
		}
		if _, done := closed[cur.node]; done {
			continue
		}
		closed[cur.node] = struct{}{}

		if cur.node == goal {
			return g.reconstruct(goal, s), true
		}

		curNode := &g.nodes[cur.node]
		curScratch := s.Touch(cur.node)

		for _, nb := range curNode.Neighbors {
			next := &g.nodes[nb]
			if !next.Traversable {
				continue
			}
			if _, done := closed[nb]; done {
				continue
			}

			tentative := curScratch.GCost + edgeCost(curNode.Coords, next.Coords)
			ns := s.Touch(nb)
			if tentative < ns.GCost {
				ns.CameFrom = cur.node
				ns.GCost = tentative
				ns.FCost = tentative + heuristic(next.Coords, goalCoords)
				seq++
				heap.Push(open, openEntry{node: nb, f: ns.FCost, seq: seq})
			}
		}
	}
	return nil, false
}

// reconstruct follows CameFrom links back from goal. The walk is bounded by
// the node count so a corrupted chain cannot loop forever.
func (g *Grid) reconstruct(goal int32, s *Scratch) []int32 {
	path := make([]int32, 0, 32)
	for n := goal; n != noNode && len(path) <= len(g.nodes); n = s.Peek(n).CameFrom {
		path = append(path, n)
		if !s.Current(n) {
			break
		}
	}
	slices.Reverse(path)
	return path
}

// heuristic is the Euclidean distance in grid units. It never overestimates
// edgeCost sums, so the first goal pop is optimal.
func heuristic(from, goal Coord) float64 {
	return from.Distance(goal)
}

func edgeCost(a, b Coord) float64 {
	return a.Distance(b)
}

type openEntry struct {
	node int32
	f    float64
	seq  uint64
}

// openSet is a min-heap on f, earlier pushes first on ties.
type openSet []openEntry

func (h openSet) Len() int { return len(h) }

func (h openSet) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h openSet) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *openSet) Push(x any) {
	*h = append(*h, x.(openEntry))
}

func (h *openSet) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
