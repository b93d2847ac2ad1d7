package nav

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/udisondev/nav3d/internal/collision"
)

var staticFilter = collision.Filter{
	Categories: collision.NewCategorySet(collision.CategoryWorldStatic, collision.CategoryWorldDynamic),
}

// cellBlock returns an obstacle filling exactly one 100-unit cell of an identity-framed grid.
func cellBlock(id string, c Coord) collision.Obstacle {
	lo := mgl64.Vec3{float64(c.X) * 100, float64(c.Y) * 100, float64(c.Z) * 100}
	return collision.Obstacle{
		ID:       collision.ActorID(id),
		Category: collision.CategoryWorldStatic,
		Bounds:   collision.Box{Min: lo, Max: lo.Add(mgl64.Vec3{100, 100, 100})},
	}
}

func TestPrecomputeBlocksOverlappedCells(t *testing.T) {
	g := buildGrid(t, 3, 3, 1, 1)
	world := collision.NewWorld(cellBlock("rock", Coord{1, 0, 0}))

	blocked := g.Precompute(world, staticFilter)
	assert.Equal(t, 1, blocked)
	assert.Equal(t, 1, g.BlockedCount())

	n, _ := g.NodeAt(Coord{1, 0, 0})
	assert.False(t, n.Traversable)
	for _, c := range []Coord{{0, 0, 0}, {2, 0, 0}, {1, 1, 0}} {
		n, _ := g.NodeAt(c)
		assert.True(t, n.Traversable, "%s touches the obstacle only on a face", c)
	}
}

func TestPrecomputeShrunkenBox(t *testing.T) {
	g := buildGrid(t, 2, 1, 1, 1)
	// Sliver poking 4 units into cell 1: inside the cell, outside its 0.45 box.
	world := collision.NewWorld(collision.Obstacle{
		ID:       "sliver",
		Category: collision.CategoryWorldStatic,
		Bounds:   collision.Box{Min: mgl64.Vec3{90, 0, 0}, Max: mgl64.Vec3{104, 100, 100}},
	})

	assert.Equal(t, 1, g.Precompute(world, staticFilter))
	n, _ := g.NodeAt(Coord{0, 0, 0})
	assert.False(t, n.Traversable)
	n, _ = g.NodeAt(Coord{1, 0, 0})
	assert.True(t, n.Traversable)
}

func TestPrecomputeEmptyFilterLeavesEverythingTraversable(t *testing.T) {
	g := buildGrid(t, 3, 3, 1, 1)
	world := collision.NewWorld(cellBlock("rock", Coord{1, 1, 0}))

	assert.Equal(t, 0, g.Precompute(world, collision.Filter{}))
	assert.Equal(t, 0, g.Precompute(nil, staticFilter))
	assert.Equal(t, 0, g.BlockedCount())
}

func TestPrecomputeClassFilter(t *testing.T) {
	g := buildGrid(t, 3, 1, 1, 1)
	rock := cellBlock("rock", Coord{0, 0, 0})
	rock.Class = "Rock"
	tree := cellBlock("tree", Coord{2, 0, 0})
	tree.Class = "Tree"
	world := collision.NewWorld(rock, tree)

	blocked := g.Precompute(world, collision.Filter{Class: "Rock"})
	assert.Equal(t, 1, blocked)
	n, _ := g.NodeAt(Coord{0, 0, 0})
	assert.False(t, n.Traversable)
}

func TestPrecomputeIdempotent(t *testing.T) {
	world := collision.NewWorld(
		cellBlock("a", Coord{1, 1, 0}),
		cellBlock("b", Coord{2, 0, 1}),
	)

	g := buildGrid(t, 4, 4, 2, 1)
	first := g.Precompute(world, staticFilter)
	digest := g.TraversabilityDigest()

	second := g.Precompute(world, staticFilter)
	assert.Equal(t, first, second)
	assert.Equal(t, digest, g.TraversabilityDigest())

	fresh := buildGrid(t, 4, 4, 2, 1)
	fresh.Precompute(world, staticFilter)
	assert.Equal(t, digest, fresh.TraversabilityDigest())

	empty := buildGrid(t, 4, 4, 2, 1)
	assert.NotEqual(t, digest, empty.TraversabilityDigest())
}
