package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/nav3d/internal/collision"
)

// ObstacleRepository persists per-volume obstacle layouts.
type ObstacleRepository struct {
	pool *pgxpool.Pool
}

// NewObstacleRepository creates a new obstacle repository.
func NewObstacleRepository(pool *pgxpool.Pool) *ObstacleRepository {
	return &ObstacleRepository{pool: pool}
}

// LoadVolumeObstacles loads every obstacle of a volume ordered by actor id.
func (r *ObstacleRepository) LoadVolumeObstacles(ctx context.Context, volume string) ([]collision.Obstacle, error) {
	query := `
		SELECT actor_id, class, category, min_x, min_y, min_z, max_x, max_y, max_z
		FROM nav_obstacles
		WHERE volume = $1
		ORDER BY actor_id
	`

	rows, err := r.pool.Query(ctx, query, volume)
	if err != nil {
		return nil, fmt.Errorf("loading obstacles for volume %s: %w", volume, err)
	}
	defer rows.Close()

	var obstacles []collision.Obstacle
	for rows.Next() {
		var (
			id, class, category string
			lo, hi              mgl64.Vec3
		)
		if err := rows.Scan(&id, &class, &category,
			&lo[0], &lo[1], &lo[2], &hi[0], &hi[1], &hi[2]); err != nil {
			return nil, fmt.Errorf("scanning obstacle row: %w", err)
		}

		cat, err := collision.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("obstacle %s in volume %s: %w", id, volume, err)
		}
		obstacles = append(obstacles, collision.Obstacle{
			ID:       collision.ActorID(id),
			Class:    class,
			Category: cat,
			Bounds:   collision.Box{Min: lo, Max: hi},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating obstacle rows: %w", err)
	}

	return obstacles, nil
}

// SaveObstacle inserts or updates a single obstacle.
func (r *ObstacleRepository) SaveObstacle(ctx context.Context, volume string, o collision.Obstacle) error {
	query := `
		INSERT INTO nav_obstacles (volume, actor_id, class, category, min_x, min_y, min_z, max_x, max_y, max_z)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (volume, actor_id) DO UPDATE SET
			class = EXCLUDED.class,
			category = EXCLUDED.category,
			min_x = EXCLUDED.min_x, min_y = EXCLUDED.min_y, min_z = EXCLUDED.min_z,
			max_x = EXCLUDED.max_x, max_y = EXCLUDED.max_y, max_z = EXCLUDED.max_z,
			updated_at = now()
	`
	b := o.Bounds.Normalized()
	_, err := r.pool.Exec(ctx, query, volume, string(o.ID), o.Class, o.Category.String(),
		b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
	if err != nil {
		return fmt.Errorf("saving obstacle %s in volume %s: %w", o.ID, volume, err)
	}
	return nil
}

// DeleteObstacle removes an obstacle. Returns false if it did not exist.
func (r *ObstacleRepository) DeleteObstacle(ctx context.Context, volume string, id collision.ActorID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM nav_obstacles WHERE volume = $1 AND actor_id = $2`,
		volume, string(id),
	)
	if err != nil {
		return false, fmt.Errorf("deleting obstacle %s in volume %s: %w", id, volume, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceVolumeObstacles swaps a volume's whole layout in one transaction.
func (r *ObstacleRepository) ReplaceVolumeObstacles(ctx context.Context, volume string, obstacles []collision.Obstacle) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for volume %s: %w", volume, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.Error("rollback failed", "volume", volume, "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM nav_obstacles WHERE volume = $1`, volume); err != nil {
		return fmt.Errorf("deleting old obstacles for volume %s: %w", volume, err)
	}

	if len(obstacles) > 0 {
		rows := make([][]any, 0, len(obstacles))
		for _, o := range obstacles {
			b := o.Bounds.Normalized()
			rows = append(rows, []any{volume, string(o.ID), o.Class, o.Category.String(),
				b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2]})
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"nav_obstacles"},
			[]string{"volume", "actor_id", "class", "category", "min_x", "min_y", "min_z", "max_x", "max_y", "max_z"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting obstacles for volume %s: %w", volume, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing obstacles for volume %s: %w", volume, err)
	}

	slog.Debug("replaced volume obstacles",
		"volume", volume,
		"count", len(obstacles))

	return nil
}
