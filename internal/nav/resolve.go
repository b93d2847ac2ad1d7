package nav

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/nav3d/internal/collision"
)

// findValidLocation looks for a traversable cell whose center lies within
// radius of origin and is visible from it. Cells are scanned top layer first,
// then by ascending y and x; the first match wins.
func (st *navState) findValidLocation(origin mgl64.Vec3, radius float64, ignore collision.ActorID) (Coord, bool) {
	g := st.grid
	originCell, ok := g.WorldToCell(origin)
	if !ok {
		return Coord{}, false
	}

	if radius < KindaSmallNumber {
		node, ok := g.NodeAt(originCell)
		if !ok || !node.Traversable {
			return Coord{}, false
		}
		center, _ := g.CellToWorld(originCell)
		if !st.visible(origin, center, ignore) {
			return Coord{}, false
		}
		return originCell, true
	}

	r := int(math.Ceil(radius/st.worldCellSize())) + ResolveExpansionCells
	radiusSq := radius * radius

	// Offsets outside the grid never match, so the cube is cut to the grid.
	xLo, xHi := scanRange(originCell.X, r, g.sizeX)
	yLo, yHi := scanRange(originCell.Y, r, g.sizeY)
	zLo, zHi := scanRange(originCell.Z, r, g.sizeZ)

	for dz := zHi; dz >= zLo; dz-- {
		for dy := yLo; dy <= yHi; dy++ {
			for dx := xLo; dx <= xHi; dx++ {
				c := originCell.Add(Coord{dx, dy, dz})
				if !g.nodes[g.index(c)].Traversable {
					continue
				}
				center, _ := g.CellToWorld(c)
				if center.Sub(origin).LenSqr() > radiusSq {
					continue
				}
				if !st.visible(origin, center, ignore) {
					continue
				}
				return c, true
			}
		}
	}
	return Coord{}, false
}

// scanRange returns the offsets in [-r, r] that keep origin+offset inside [0, size).
func scanRange(origin, r, size int) (lo, hi int) {
	return max(-r, -origin), min(r, size-1-origin)
}

// visible traces from one world point to another against the obstacle
// categories, skipping the ignored actor. Without an obstacle query it falls
// back to the grid's own line of sight.
func (st *navState) visible(from, to mgl64.Vec3, ignore collision.ActorID) bool {
	if st.query == nil {
		a, okA := st.grid.WorldToCell(from)
		b, okB := st.grid.WorldToCell(to)
		return okA && okB && st.grid.HasLineOfSight(a, b)
	}
	filter := st.filter.ChannelsOnly().WithIgnored(ignore)
	_, hit := st.query.LineTrace(from, to, filter)
	return !hit
}

// worldCellSize is the smallest world-space edge of a cell.
func (st *navState) worldCellSize() float64 {
	s := st.grid.frame.Scale
	minScale := min(math.Abs(s[0]), math.Abs(s[1]), math.Abs(s[2]))
	return st.grid.cellSize * minScale
}

// resolveEndpoint maps a world point to a traversable node, relocating it
// within the resolve radius when its own cell is blocked. invalid and blocked
// are the codes reported for the two failure modes.
func (st *navState) resolveEndpoint(p mgl64.Vec3, requester collision.ActorID, endpoint string, invalid, blocked Result) (int32, Result) {
	cell, ok := st.grid.WorldToCell(p)
	if !ok {
		return noNode, invalid
	}
	idx, ok := st.grid.IndexAt(cell)
	if !ok {
		return noNode, invalid
	}
	if st.grid.nodes[idx].Traversable {
		return idx, Success
	}

	relocated, ok := st.findValidLocation(p, st.resolveRadius, requester)
	if !ok {
		endpointResolutions.WithLabelValues(endpoint, "failed").Inc()
		return noNode, blocked
	}
	endpointResolutions.WithLabelValues(endpoint, "resolved").Inc()
	return st.grid.index(relocated), Success
}
