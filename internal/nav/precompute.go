package nav

import (
	"encoding/binary"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/nav3d/internal/collision"
)

// ObstacleQuery answers world-space collision questions for the grid.
// collision.World implements it.
type ObstacleQuery interface {
	OverlapBox(center, halfExtent mgl64.Vec3, filter collision.Filter) bool
	LineTrace(start, end mgl64.Vec3, filter collision.Filter) (collision.Hit, bool)
}

// Precompute marks every node whose world-space box overlaps an obstacle
// accepted by filter as not traversable. Returns the number of blocked nodes.
// With a nil query or an empty filter every node stays traversable.
func (g *Grid) Precompute(query ObstacleQuery, filter collision.Filter) int {
	if query == nil || filter.IsEmpty() {
		slog.Warn("traversability precompute skipped: no obstacle filter",
			"nodes", len(g.nodes))
		return 0
	}

	extent := g.cellSize * OverlapExtentScale
	half := mgl64.Vec3{extent, extent, extent}

	blocked := 0
	for i := range g.nodes {
		center := g.nodeCenter(int32(i))
		overlapped := query.OverlapBox(center, half, filter)
		g.nodes[i].Traversable = !overlapped
		if overlapped {
			blocked++
		}
	}
	return blocked
}

// BlockedCount returns the number of non-traversable nodes.
func (g *Grid) BlockedCount() int {
	n := 0
	for i := range g.nodes {
		if !g.nodes[i].Traversable {
			n++
		}
	}
	return n
}

// TraversabilityDigest hashes the grid dimensions and the traversable bitmap.
// Two grids with equal digests block exactly the same cells.
func (g *Grid) TraversabilityDigest() [32]byte {
	buf := make([]byte, 12, 12+(len(g.nodes)+7)/8)
	binary.LittleEndian.PutUint32(buf[0:], uint32(g.sizeX))
	binary.LittleEndian.PutUint32(buf[4:], uint32(g.sizeY))
	binary.LittleEndian.PutUint32(buf[8:], uint32(g.sizeZ))

	var b byte
	for i := range g.nodes {
		if g.nodes[i].Traversable {
			b |= 1 << (i % 8)
		}
		if i%8 == 7 {
			buf = append(buf, b)
			b = 0
		}
	}
	if len(g.nodes)%8 != 0 {
		buf = append(buf, b)
	}
	return blake2b.Sum256(buf)
}
