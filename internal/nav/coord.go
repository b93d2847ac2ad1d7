package nav

import (
	"fmt"
	"math"
)

// Coord is an integer cell position inside a grid.
type Coord struct {
	X, Y, Z int
}

// Add returns c+o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Sub returns c-o.
func (c Coord) Sub(o Coord) Coord {
	return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z}
}

// Distance returns the Euclidean distance between two cells in grid units.
func (c Coord) Distance(o Coord) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	dz := float64(c.Z - o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SharedAxes counts the axes on which c and o have equal coordinates.
func (c Coord) SharedAxes(o Coord) int {
	n := 0
	if c.X == o.X {
		n++
	}
	if c.Y == o.Y {
		n++
	}
	if c.Z == o.Z {
		n++
	}
	return n
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}
