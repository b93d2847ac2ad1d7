package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidDimensions is returned when a grid is built with a non-positive size.
var ErrInvalidDimensions = errors.New("invalid grid dimensions")

// Node is one cell of the navigation lattice.
// Coordinates, traversability and neighbours are read-only once the grid is built.
type Node struct {
	Coords      Coord
	Traversable bool
	Neighbors   []int32 // indices into the grid's node array
}

// Grid is a dense 3D lattice of nodes laid out as z*(sizeX*sizeY) + y*sizeX + x.
type Grid struct {
	sizeX, sizeY, sizeZ int
	cellSize            float64
	frame               Frame
	nodes               []Node
}

// NewGrid creates an empty grid placed at the given frame.
func NewGrid(frame Frame) *Grid {
	return &Grid{frame: frame.normalized()}
}

// Build allocates sizeX*sizeY*sizeZ nodes, assigns coordinates and marks every
// node traversable with no neighbours. A non-positive dimension leaves the grid untouched.
func (g *Grid) Build(sizeX, sizeY, sizeZ int, cellSize float64) error {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 || !fitsIndex(sizeX, sizeY, sizeZ) {
		slog.Warn("grid build skipped: invalid dimensions",
			"x", sizeX, "y", sizeY, "z", sizeZ)
		return fmt.Errorf("building grid %dx%dx%d: %w", sizeX, sizeY, sizeZ, ErrInvalidDimensions)
	}

	g.sizeX, g.sizeY, g.sizeZ = sizeX, sizeY, sizeZ
	g.cellSize = cellSize
	g.nodes = make([]Node, sizeX*sizeY*sizeZ)

	for z := range sizeZ {
		for y := range sizeY {
			for x := range sizeX {
				c := Coord{x, y, z}
				g.nodes[g.index(c)] = Node{Coords: c, Traversable: true}
			}
		}
	}
	return nil
}

// ConnectNeighbors links every node to the in-bounds cells among its 26
// surrounding offsets that share between minSharedAxes and 2 axes with it.
// 2 gives face neighbours only, 1 adds edge neighbours, 0 adds corners.
func (g *Grid) ConnectNeighbors(minSharedAxes int) {
	minSharedAxes = min(max(minSharedAxes, 0), 2)

	for i := range g.nodes {
		node := &g.nodes[i]
		node.Neighbors = node.Neighbors[:0]

		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					candidate := node.Coords.Add(Coord{dx, dy, dz})
					if !g.InBounds(candidate) {
						continue
					}
					shared := node.Coords.SharedAxes(candidate)
					if shared < minSharedAxes || shared >= 3 {
						continue
					}
					idx := g.index(candidate)
					if idx < 0 || int(idx) >= len(g.nodes) {
						panic(fmt.Sprintf("nav: neighbour index %d out of range for %s (nodes=%d)",
							idx, candidate, len(g.nodes)))
					}
					node.Neighbors = append(node.Neighbors, idx)
				}
			}
		}
	}
}

// Size returns the grid dimensions.
func (g *Grid) Size() (x, y, z int) {
	return g.sizeX, g.sizeY, g.sizeZ
}

// CellSize returns the edge length of one cell in local units.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Frame returns the grid's local-to-world transform.
func (g *Grid) Frame() Frame {
	return g.frame
}

// Len returns the number of nodes.
func (g *Grid) Len() int {
	return len(g.nodes)
}

// Node returns the node at a flat index.
func (g *Grid) Node(idx int32) *Node {
	return &g.nodes[idx]
}

// NodeAt clamps c into bounds and returns the node there.
// Returns false if the grid is empty or has invalid dimensions.
func (g *Grid) NodeAt(c Coord) (*Node, bool) {
	idx, ok := g.IndexAt(c)
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// IndexAt clamps c into bounds and returns its flat index.
func (g *Grid) IndexAt(c Coord) (int32, bool) {
	if !g.validDimensions() || len(g.nodes) == 0 {
		return noNode, false
	}
	idx := g.index(g.Clamp(c))
	if idx < 0 || int(idx) >= len(g.nodes) {
		slog.Error("grid index out of range",
			"index", idx, "nodes", len(g.nodes), "coords", c.String())
		return noNode, false
	}
	return idx, true
}

// InBounds reports whether c lies inside the grid without clamping.
func (g *Grid) InBounds(c Coord) bool {
	if !g.validDimensions() {
		return false
	}
	return c.X >= 0 && c.X < g.sizeX &&
		c.Y >= 0 && c.Y < g.sizeY &&
		c.Z >= 0 && c.Z < g.sizeZ
}

// Clamp moves c to the nearest in-bounds cell.
func (g *Grid) Clamp(c Coord) Coord {
	return Coord{
		X: clampAxis(c.X, g.sizeX),
		Y: clampAxis(c.Y, g.sizeY),
		Z: clampAxis(c.Z, g.sizeZ),
	}
}

// WorldToCell maps a world position to the cell containing it, clamped into bounds.
func (g *Grid) WorldToCell(world mgl64.Vec3) (Coord, bool) {
	if !g.canTransform() {
		return Coord{}, false
	}
	local := g.frame.ToLocal(world)
	return Coord{
		X: cellAxis(local[0]/g.cellSize, g.sizeX),
		Y: cellAxis(local[1]/g.cellSize, g.sizeY),
		Z: cellAxis(local[2]/g.cellSize, g.sizeZ),
	}, true
}

// CellToWorld returns the world-space center of a cell, clamping c into bounds first.
func (g *Grid) CellToWorld(c Coord) (mgl64.Vec3, bool) {
	if !g.canTransform() {
		return mgl64.Vec3{}, false
	}
	c = g.Clamp(c)
	local := mgl64.Vec3{
		(float64(c.X) + 0.5) * g.cellSize,
		(float64(c.Y) + 0.5) * g.cellSize,
		(float64(c.Z) + 0.5) * g.cellSize,
	}
	return g.frame.ToWorld(local), true
}

// nodeCenter is CellToWorld for a node that is known to exist.
func (g *Grid) nodeCenter(idx int32) mgl64.Vec3 {
	p, _ := g.CellToWorld(g.nodes[idx].Coords)
	return p
}

func (g *Grid) index(c Coord) int32 {
	return int32(c.Z*(g.sizeX*g.sizeY) + c.Y*g.sizeX + c.X)
}

// fitsIndex reports whether every node of an x*y*z grid has an int32 index.
func fitsIndex(x, y, z int) bool {
	return x <= math.MaxInt32/y && x*y <= math.MaxInt32/z
}

func (g *Grid) validDimensions() bool {
	return g.sizeX > 0 && g.sizeY > 0 && g.sizeZ > 0
}

func (g *Grid) canTransform() bool {
	return g.validDimensions() && g.cellSize >= KindaSmallNumber
}

// cellAxis floors q and clamps it into [0, size-1]. The clamp happens on the
// float so huge or non-finite quotients never reach the int conversion.
func cellAxis(q float64, size int) int {
	if math.IsNaN(q) {
		return 0
	}
	q = math.Min(math.Max(math.Floor(q), 0), float64(size-1))
	return int(q)
}

func clampAxis(v, size int) int {
	if size <= 0 {
		return 0
	}
	return min(max(v, 0), size-1)
}
