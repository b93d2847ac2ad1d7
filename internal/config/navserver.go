package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/nav3d/internal/collision"
)

// NavServer holds all configuration for the navigation server.
type NavServer struct {
	LogLevel string `yaml:"log_level"`

	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Workers is the default number of concurrent searches per volume.
	Workers int `yaml:"workers"`

	// Websocket sessions
	WriteTimeout  time.Duration `yaml:"write_timeout"`   // per-write deadline (default: 5s)
	SendQueueSize int           `yaml:"send_queue_size"` // per-session outbox capacity (default: 64)

	// Reload volumes when the config or obstacle file changes.
	WatchConfig bool `yaml:"watch_config"`

	// Obstacles come from ObstacleFile unless UseDatabase is set.
	ObstacleFile string         `yaml:"obstacle_file"`
	UseDatabase  bool           `yaml:"use_database"`
	Database     DatabaseConfig `yaml:"database"`

	Volumes []Volume `yaml:"volumes"`
}

// Volume configures one navigation volume.
type Volume struct {
	Name string `yaml:"name"`

	// Placement in the world
	Origin   [3]float64 `yaml:"origin"`
	Rotation [3]float64 `yaml:"rotation"` // pitch, yaw, roll in degrees
	Scale    [3]float64 `yaml:"scale"`

	// Grid shape
	Divisions             [3]int  `yaml:"divisions"`
	CellSize              float64 `yaml:"cell_size"`
	MinSharedNeighborAxes int     `yaml:"min_shared_neighbor_axes"`

	// Which obstacles block cells
	ObstacleCategories []string `yaml:"obstacle_categories"`
	ObstacleClass      string   `yaml:"obstacle_class"`

	// Search behaviour
	ResolveRadius         float64 `yaml:"resolve_radius"`
	LongPathThreshold     int     `yaml:"long_path_threshold"`
	SmoothPath            bool    `yaml:"smooth_path"`
	MaxConcurrentSearches int     `yaml:"max_concurrent_searches"` // 0 = workers
	RequireRequester      bool    `yaml:"require_requester"`
}

// DefaultVolume returns a 10x10x10 volume of 100-unit cells at the origin.
func DefaultVolume(name string) Volume {
	return Volume{
		Name:                  name,
		Scale:                 [3]float64{1, 1, 1},
		Divisions:             [3]int{10, 10, 10},
		CellSize:              100,
		MinSharedNeighborAxes: 1,
		ObstacleCategories:    []string{"world_static", "world_dynamic"},
		ResolveRadius:         300,
		LongPathThreshold:     80,
	}
}

// UnmarshalYAML fills keys missing from the document with DefaultVolume values.
func (v *Volume) UnmarshalYAML(node *yaml.Node) error {
	type plain Volume
	p := plain(DefaultVolume(""))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = Volume(p)
	return nil
}

// DefaultNavServer returns NavServer config with sensible defaults.
func DefaultNavServer() NavServer {
	return NavServer{
		LogLevel:      "info",
		BindAddress:   "0.0.0.0",
		Port:          8088,
		Workers:       8,
		WriteTimeout:  5 * time.Second,
		SendQueueSize: 64,
		WatchConfig:   true,
		ObstacleFile:  "config/obstacles.yaml",
		Database:      DefaultDatabase(),
		Volumes:       []Volume{DefaultVolume("main")},
	}
}

// LoadNavServer loads navigation server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadNavServer(path string) (NavServer, error) {
	cfg := DefaultNavServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c NavServer) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send_queue_size must be positive, got %d", c.SendQueueSize)
	}
	if len(c.Volumes) == 0 {
		return errors.New("no volumes configured")
	}
	if c.UseDatabase && c.Database.Host == "" {
		return errors.New("use_database requires database.host")
	}

	seen := make(map[string]struct{}, len(c.Volumes))
	for i, v := range c.Volumes {
		if v.Name == "" {
			return fmt.Errorf("volume %d: empty name", i)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("volume %s: duplicate name", v.Name)
		}
		seen[v.Name] = struct{}{}

		if err := v.Validate(); err != nil {
			return fmt.Errorf("volume %s: %w", v.Name, err)
		}
	}
	return nil
}

// Validate reports the first invalid volume setting.
func (v Volume) Validate() error {
	for i, d := range v.Divisions {
		if d <= 0 {
			return fmt.Errorf("divisions[%d] must be positive, got %d", i, d)
		}
	}
	nodes := 1
	for _, d := range v.Divisions {
		if d > math.MaxInt32/nodes {
			return fmt.Errorf("divisions %v exceed %d nodes", v.Divisions, math.MaxInt32)
		}
		nodes *= d
	}
	for i, s := range v.Scale {
		if s == 0 {
			return fmt.Errorf("scale[%d] must be non-zero", i)
		}
	}
	if v.CellSize < 1e-4 {
		return fmt.Errorf("cell_size %g too small", v.CellSize)
	}
	if v.MinSharedNeighborAxes < 0 || v.MinSharedNeighborAxes > 2 {
		return fmt.Errorf("min_shared_neighbor_axes %d not in 0..2", v.MinSharedNeighborAxes)
	}
	if _, err := collision.ParseCategorySet(v.ObstacleCategories); err != nil {
		return fmt.Errorf("obstacle_categories: %w", err)
	}
	if v.ResolveRadius < 0 {
		return fmt.Errorf("resolve_radius %g is negative", v.ResolveRadius)
	}
	if v.LongPathThreshold <= 0 {
		return fmt.Errorf("long_path_threshold must be positive, got %d", v.LongPathThreshold)
	}
	if v.MaxConcurrentSearches < 0 {
		return fmt.Errorf("max_concurrent_searches %d is negative", v.MaxConcurrentSearches)
	}
	return nil
}
