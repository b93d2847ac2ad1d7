package navserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/nav3d/internal/collision"
	"github.com/udisondev/nav3d/internal/config"
	"github.com/udisondev/nav3d/internal/nav"
)

// ObstacleSource supplies the obstacles a volume is built against.
type ObstacleSource interface {
	VolumeObstacles(ctx context.Context, volume string) ([]collision.Obstacle, error)
}

// ObstacleSourceFunc adapts a function to ObstacleSource.
type ObstacleSourceFunc func(ctx context.Context, volume string) ([]collision.Obstacle, error)

// VolumeObstacles calls f.
func (f ObstacleSourceFunc) VolumeObstacles(ctx context.Context, volume string) ([]collision.Obstacle, error) {
	return f(ctx, volume)
}

// LayoutFile serves one YAML obstacle layout to every volume.
// A missing file is an empty world.
func LayoutFile(path string) ObstacleSource {
	return ObstacleSourceFunc(func(_ context.Context, volume string) ([]collision.Obstacle, error) {
		if path == "" {
			return nil, nil
		}
		obstacles, err := collision.LoadLayout(path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("obstacle layout not found, volume starts empty", "path", path, "volume", volume)
			return nil, nil
		}
		return obstacles, err
	})
}

// VolumeConfig converts a volume's YAML settings into a nav.VolumeConfig.
// workers is used when the volume does not set max_concurrent_searches.
func VolumeConfig(v config.Volume, workers int) (nav.VolumeConfig, error) {
	categories, err := collision.ParseCategorySet(v.ObstacleCategories)
	if err != nil {
		return nav.VolumeConfig{}, fmt.Errorf("volume %s: %w", v.Name, err)
	}

	maxSearches := v.MaxConcurrentSearches
	if maxSearches == 0 {
		maxSearches = workers
	}

	return nav.VolumeConfig{
		Name: v.Name,
		Frame: nav.NewFrame(mgl64.Vec3(v.Origin),
			v.Rotation[0], v.Rotation[1], v.Rotation[2],
			mgl64.Vec3(v.Scale)),
		SizeX:                 v.Divisions[0],
		SizeY:                 v.Divisions[1],
		SizeZ:                 v.Divisions[2],
		CellSize:              v.CellSize,
		MinSharedNeighborAxes: v.MinSharedNeighborAxes,
		Obstacles: collision.Filter{
			Categories: categories,
			Class:      v.ObstacleClass,
		},
		ResolveRadius:         v.ResolveRadius,
		LongPathThreshold:     v.LongPathThreshold,
		SmoothPath:            v.SmoothPath,
		MaxConcurrentSearches: int64(maxSearches),
		RequireRequester:      v.RequireRequester,
	}, nil
}

// BuildVolumes creates and initializes every configured volume. Each volume
// gets its own collision world filled from src. On error the volumes built so
// far are closed.
func BuildVolumes(ctx context.Context, cfg config.NavServer, src ObstacleSource, exec nav.Executor) ([]*nav.Volume, error) {
	volumes := make([]*nav.Volume, 0, len(cfg.Volumes))
	fail := func(err error) ([]*nav.Volume, error) {
		for _, v := range volumes {
			v.Close()
		}
		return nil, err
	}

	for _, vc := range cfg.Volumes {
		navCfg, err := VolumeConfig(vc, cfg.Workers)
		if err != nil {
			return fail(err)
		}

		obstacles, err := src.VolumeObstacles(ctx, vc.Name)
		if err != nil {
			return fail(fmt.Errorf("loading obstacles for volume %s: %w", vc.Name, err))
		}
		world := collision.NewWorld()
		for _, o := range obstacles {
			if err := world.Add(o); err != nil {
				return fail(fmt.Errorf("volume %s: %w", vc.Name, err))
			}
		}

		v := nav.NewVolume(navCfg, world, exec)
		if err := v.Init(); err != nil {
			return fail(err)
		}
		volumes = append(volumes, v)

		slog.Info("volume built",
			"volume", vc.Name,
			"obstacles", world.Len(),
			"divisions", vc.Divisions,
			"cell_size", vc.CellSize)
	}
	return volumes, nil
}

// Registry maps volume names to live volumes. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	volumes map[string]*nav.Volume
}

// NewRegistry creates a registry holding the given volumes.
func NewRegistry(volumes ...*nav.Volume) *Registry {
	r := &Registry{volumes: make(map[string]*nav.Volume, len(volumes))}
	for _, v := range volumes {
		r.volumes[v.Name()] = v
	}
	return r
}

// Get returns the volume with the given name.
func (r *Registry) Get(name string) (*nav.Volume, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.volumes[name]
	return v, ok
}

// Stats returns a snapshot of every volume sorted by name.
func (r *Registry) Stats() []nav.VolumeStats {
	r.mu.RLock()
	stats := make([]nav.VolumeStats, 0, len(r.volumes))
	for _, v := range r.volumes {
		stats = append(stats, v.Stats())
	}
	r.mu.RUnlock()

	slices.SortFunc(stats, func(a, b nav.VolumeStats) int {
		return strings.Compare(a.Name, b.Name)
	})
	return stats
}

// Replace swaps in a new set of volumes and closes the previous ones.
// In-flight searches on the old volumes complete with VolumeNotReady.
func (r *Registry) Replace(volumes []*nav.Volume) {
	next := make(map[string]*nav.Volume, len(volumes))
	for _, v := range volumes {
		next[v.Name()] = v
	}

	r.mu.Lock()
	old := r.volumes
	r.volumes = next
	r.mu.Unlock()

	for _, v := range old {
		v.Close()
	}
}

// Close closes every volume.
func (r *Registry) Close() {
	r.Replace(nil)
}

// ObstacleStore is persistent obstacle storage, implemented by
// db.ObstacleRepository.
type ObstacleStore interface {
	LoadVolumeObstacles(ctx context.Context, volume string) ([]collision.Obstacle, error)
	SaveObstacle(ctx context.Context, volume string, o collision.Obstacle) error
	DeleteObstacle(ctx context.Context, volume string, id collision.ActorID) (bool, error)
	ReplaceVolumeObstacles(ctx context.Context, volume string, obstacles []collision.Obstacle) error
}

// StoreSource reads each volume's obstacles from store. A volume with no
// stored obstacles is seeded from seed first, when seed is non-nil.
func StoreSource(store ObstacleStore, seed ObstacleSource) ObstacleSource {
	return ObstacleSourceFunc(func(ctx context.Context, volume string) ([]collision.Obstacle, error) {
		obstacles, err := store.LoadVolumeObstacles(ctx, volume)
		if err != nil {
			return nil, err
		}
		if len(obstacles) > 0 || seed == nil {
			return obstacles, nil
		}

		seeded, err := seed.VolumeObstacles(ctx, volume)
		if err != nil {
			return nil, fmt.Errorf("seeding volume %s: %w", volume, err)
		}
		if len(seeded) == 0 {
			return nil, nil
		}
		if err := store.ReplaceVolumeObstacles(ctx, volume, seeded); err != nil {
			return nil, fmt.Errorf("seeding volume %s: %w", volume, err)
		}
		slog.Info("seeded volume obstacles", "volume", volume, "count", len(seeded))
		return seeded, nil
	})
}

// ImportObstacles overwrites the stored obstacles of every configured volume
// with the ones from src and returns how many were written.
func ImportObstacles(ctx context.Context, cfg config.NavServer, src ObstacleSource, store ObstacleStore) (int, error) {
	total := 0
	for _, v := range cfg.Volumes {
		obstacles, err := src.VolumeObstacles(ctx, v.Name)
		if err != nil {
			return total, fmt.Errorf("loading obstacles for volume %s: %w", v.Name, err)
		}
		if err := store.ReplaceVolumeObstacles(ctx, v.Name, obstacles); err != nil {
			return total, err
		}
		total += len(obstacles)
		slog.Info("imported volume obstacles", "volume", v.Name, "count", len(obstacles))
	}
	return total, nil
}
