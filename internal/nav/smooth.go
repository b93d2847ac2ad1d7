package nav

// SmoothPath removes intermediate nodes that are directly visible from the
// previously kept node. Runs up to MaxSmoothPasses passes and stops early
// when a pass changes nothing. Endpoints are always kept.
func (g *Grid) SmoothPath(path []int32) []int32 {
	for range MaxSmoothPasses {
		if len(path) <= 2 {
			return path
		}

		changed := false
		smoothed := make([]int32, 0, len(path))
		smoothed = append(smoothed, path[0])

		for i := 1; i < len(path)-1; i++ {
			prev := g.nodes[smoothed[len(smoothed)-1]].Coords
			next := g.nodes[path[i+1]].Coords

			if g.HasLineOfSight(prev, next) {
				changed = true
				continue
			}
			smoothed = append(smoothed, path[i])
		}
		smoothed = append(smoothed, path[len(path)-1])
		path = smoothed

		if !changed {
			break
		}
	}
	return path
}
