package nav

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGrid(t *testing.T, x, y, z int, minShared int) *Grid {
	t.Helper()
	g := NewGrid(IdentityFrame())
	require.NoError(t, g.Build(x, y, z, 100))
	g.ConnectNeighbors(minShared)
	return g
}

func TestBuildAssignsCoordinates(t *testing.T) {
	g := NewGrid(IdentityFrame())
	require.NoError(t, g.Build(3, 2, 2, 100))

	assert.Equal(t, 12, g.Len())
	for z := range 2 {
		for y := range 2 {
			for x := range 3 {
				idx := int32(z*6 + y*3 + x)
				n := g.Node(idx)
				assert.Equal(t, Coord{x, y, z}, n.Coords)
				assert.True(t, n.Traversable)
				assert.Empty(t, n.Neighbors)
			}
		}
	}
}

func TestBuildInvalidDimensions(t *testing.T) {
	g := NewGrid(IdentityFrame())
	err := g.Build(3, 0, 3, 100)
	require.ErrorIs(t, err, ErrInvalidDimensions)

	assert.Equal(t, 0, g.Len())
	_, ok := g.NodeAt(Coord{})
	assert.False(t, ok)
	_, ok = g.WorldToCell(mgl64.Vec3{})
	assert.False(t, ok)
	_, ok = g.CellToWorld(Coord{})
	assert.False(t, ok)
}

func TestBuildRejectsGridBeyondInt32Index(t *testing.T) {
	g := NewGrid(IdentityFrame())
	err := g.Build(1<<16, 1<<16, 1, 100)
	require.ErrorIs(t, err, ErrInvalidDimensions)
	assert.Equal(t, 0, g.Len())

	assert.True(t, fitsIndex(1<<15, 1<<15, 1))
	assert.False(t, fitsIndex(1<<11, 1<<11, 1<<10))
}

func TestConnectNeighborsCounts(t *testing.T) {
	tests := []struct {
		name      string
		minShared int
		center    int
		corner    int
	}{
		{"faces", 2, 6, 3},
		{"faces and edges", 1, 18, 6},
		{"all", 0, 26, 7},
		{"clamped high", 5, 6, 3},
		{"clamped low", -1, 26, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGrid(t, 3, 3, 3, tt.minShared)

			center, ok := g.NodeAt(Coord{1, 1, 1})
			require.True(t, ok)
			assert.Len(t, center.Neighbors, tt.center)

			corner, ok := g.NodeAt(Coord{0, 0, 0})
			require.True(t, ok)
			assert.Len(t, corner.Neighbors, tt.corner)
		})
	}
}

func TestConnectNeighborsOrder(t *testing.T) {
	g := buildGrid(t, 3, 3, 3, 0)

	center, _ := g.NodeAt(Coord{1, 1, 1})
	first := g.Node(center.Neighbors[0]).Coords
	last := g.Node(center.Neighbors[len(center.Neighbors)-1]).Coords

	assert.Equal(t, Coord{0, 0, 0}, first, "dz, dy, dx all start at -1")
	assert.Equal(t, Coord{1, 0, 0}, g.Node(center.Neighbors[1]).Coords, "dx varies fastest")
	assert.Equal(t, Coord{2, 2, 2}, last)
}

func TestConnectNeighborsSymmetric(t *testing.T) {
	for _, minShared := range []int{0, 1, 2} {
		g := buildGrid(t, 4, 3, 2, minShared)
		for i := range g.Len() {
			for _, nb := range g.Node(int32(i)).Neighbors {
				assert.Contains(t, g.Node(nb).Neighbors, int32(i),
					"minShared=%d: %s missing back link to %s", minShared,
					g.Node(nb).Coords, g.Node(int32(i)).Coords)
			}
		}
	}
}

func TestNodeAtClamps(t *testing.T) {
	g := buildGrid(t, 3, 3, 3, 1)

	n, ok := g.NodeAt(Coord{-5, 10, 1})
	require.True(t, ok)
	assert.Equal(t, Coord{0, 2, 1}, n.Coords)

	assert.False(t, g.InBounds(Coord{-5, 10, 1}))
	assert.True(t, g.InBounds(Coord{2, 2, 2}))
	assert.False(t, g.InBounds(Coord{3, 0, 0}))
}

func TestWorldCellConversion(t *testing.T) {
	g := buildGrid(t, 3, 3, 1, 1)

	p, ok := g.CellToWorld(Coord{1, 2, 0})
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{150, 250, 50}, p)

	c, ok := g.WorldToCell(mgl64.Vec3{150, 250, 50})
	require.True(t, ok)
	assert.Equal(t, Coord{1, 2, 0}, c)

	c, ok = g.WorldToCell(mgl64.Vec3{-10, 1e6, 0})
	require.True(t, ok)
	assert.Equal(t, Coord{0, 2, 0}, c, "out of range positions clamp")

	c, ok = g.WorldToCell(mgl64.Vec3{199.99, 0, 99.99})
	require.True(t, ok)
	assert.Equal(t, Coord{1, 0, 0}, c)
}

func TestWorldToCellHugeCoordinates(t *testing.T) {
	g := buildGrid(t, 3, 4, 5, 1)

	tests := []struct {
		name  string
		world mgl64.Vec3
		want  Coord
	}{
		{"far +x", mgl64.Vec3{1e21, 50, 50}, Coord{2, 0, 0}},
		{"far -x", mgl64.Vec3{-1e21, 50, 50}, Coord{0, 0, 0}},
		{"far +y", mgl64.Vec3{50, 1e21, 50}, Coord{0, 3, 0}},
		{"far -y", mgl64.Vec3{50, -1e21, 50}, Coord{0, 0, 0}},
		{"far +z", mgl64.Vec3{50, 50, 1e21}, Coord{0, 0, 4}},
		{"far -z", mgl64.Vec3{50, 50, -1e21}, Coord{0, 0, 0}},
		{"all far +", mgl64.Vec3{1e21, 1e21, 1e21}, Coord{2, 3, 4}},
		{"infinite", mgl64.Vec3{math.Inf(1), math.Inf(-1), math.Inf(1)}, Coord{2, 0, 4}},
		{"nan", mgl64.Vec3{math.NaN(), 150, 50}, Coord{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := g.WorldToCell(tt.world)
			require.True(t, ok)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestWorldCellRoundTripTransformed(t *testing.T) {
	frame := NewFrame(mgl64.Vec3{1000, -500, 20}, 10, 90, 30, mgl64.Vec3{2, 1.5, 0.5})
	g := NewGrid(frame)
	require.NoError(t, g.Build(4, 3, 2, 50))

	for z := range 2 {
		for y := range 3 {
			for x := range 4 {
				c := Coord{x, y, z}
				p, ok := g.CellToWorld(c)
				require.True(t, ok)
				got, ok := g.WorldToCell(p)
				require.True(t, ok)
				assert.Equal(t, c, got)
			}
		}
	}
}

func TestWorldCellRejectsTinyCellSize(t *testing.T) {
	g := NewGrid(IdentityFrame())
	require.NoError(t, g.Build(2, 2, 2, KindaSmallNumber/2))

	_, ok := g.WorldToCell(mgl64.Vec3{})
	assert.False(t, ok)
	_, ok = g.CellToWorld(Coord{})
	assert.False(t, ok)
}
