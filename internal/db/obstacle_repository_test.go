package db_test

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/nav3d/internal/collision"
	"github.com/udisondev/nav3d/internal/db"
	"github.com/udisondev/nav3d/internal/testutil"
)

func obstacle(id string, category collision.Category, minX float64) collision.Obstacle {
	return collision.Obstacle{
		ID:       collision.ActorID(id),
		Class:    "Crate",
		Category: category,
		Bounds:   collision.Box{Min: mgl64.Vec3{minX, 0, 0}, Max: mgl64.Vec3{minX + 50, 100, 100}},
	}
}

func TestObstacleRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewObstacleRepository(pool)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, repo.SaveObstacle(ctx, "main", obstacle("b", collision.CategoryWorldDynamic, 200)))
		require.NoError(t, repo.SaveObstacle(ctx, "main", obstacle("a", collision.CategoryWorldStatic, 0)))
		require.NoError(t, repo.SaveObstacle(ctx, "other", obstacle("z", collision.CategoryPawn, 0)))

		got, err := repo.LoadVolumeObstacles(ctx, "main")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, obstacle("a", collision.CategoryWorldStatic, 0), got[0])
		assert.Equal(t, obstacle("b", collision.CategoryWorldDynamic, 200), got[1])
	})

	t.Run("save updates existing", func(t *testing.T) {
		moved := obstacle("a", collision.CategoryWorldStatic, 500)
		require.NoError(t, repo.SaveObstacle(ctx, "main", moved))

		got, err := repo.LoadVolumeObstacles(ctx, "main")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, moved, got[0])
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.DeleteObstacle(ctx, "main", "b")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteObstacle(ctx, "main", "b")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("replace volume", func(t *testing.T) {
		layout := []collision.Obstacle{
			obstacle("x", collision.CategoryWorldStatic, 0),
			obstacle("y", collision.CategoryDestructible, 100),
		}
		require.NoError(t, repo.ReplaceVolumeObstacles(ctx, "main", layout))

		got, err := repo.LoadVolumeObstacles(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, layout, got)

		other, err := repo.LoadVolumeObstacles(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, other, 1, "other volumes untouched")

		require.NoError(t, repo.ReplaceVolumeObstacles(ctx, "main", nil))
		got, err = repo.LoadVolumeObstacles(ctx, "main")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMigrationsIdempotent(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	dsn := pool.Config().ConnString()

	require.NoError(t, db.RunMigrations(ctx, dsn), "second run is a no-op")

	v, err := db.SchemaVersion(ctx, dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
