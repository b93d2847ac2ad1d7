package collision

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// layoutFile is the YAML representation of an obstacle layout.
type layoutFile struct {
	Obstacles []layoutObstacle `yaml:"obstacles"`
}

type layoutObstacle struct {
	ID         string    `yaml:"id"`
	Class      string    `yaml:"class"`
	Category   string    `yaml:"category"`
	Min        []float64 `yaml:"min"`
	Max        []float64 `yaml:"max"`
	Center     []float64 `yaml:"center"`
	HalfExtent []float64 `yaml:"half_extent"`
}

// LoadLayout reads an obstacle layout from a YAML file.
func LoadLayout(path string) ([]Obstacle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading obstacle layout %s: %w", path, err)
	}
	obstacles, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("parsing obstacle layout %s: %w", path, err)
	}
	return obstacles, nil
}

// ParseLayout decodes a YAML obstacle layout.
// Each obstacle gives either min/max corners or center/half_extent.
func ParseLayout(data []byte) ([]Obstacle, error) {
	var file layoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	out := make([]Obstacle, 0, len(file.Obstacles))
	seen := make(map[string]struct{}, len(file.Obstacles))
	for i, lo := range file.Obstacles {
		if lo.ID == "" {
			return nil, fmt.Errorf("obstacle #%d: missing id", i)
		}
		if _, dup := seen[lo.ID]; dup {
			return nil, fmt.Errorf("obstacle %s: duplicate id", lo.ID)
		}
		seen[lo.ID] = struct{}{}

		category := CategoryWorldStatic
		if lo.Category != "" {
			c, err := ParseCategory(lo.Category)
			if err != nil {
				return nil, fmt.Errorf("obstacle %s: %w", lo.ID, err)
			}
			category = c
		}

		bounds, err := lo.bounds()
		if err != nil {
			return nil, fmt.Errorf("obstacle %s: %w", lo.ID, err)
		}

		out = append(out, Obstacle{
			ID:       ActorID(lo.ID),
			Class:    lo.Class,
			Category: category,
			Bounds:   bounds,
		})
	}
	return out, nil
}

func (lo layoutObstacle) bounds() (Box, error) {
	switch {
	case lo.Min != nil || lo.Max != nil:
		lower, err := vec3(lo.Min, "min")
		if err != nil {
			return Box{}, err
		}
		upper, err := vec3(lo.Max, "max")
		if err != nil {
			return Box{}, err
		}
		return Box{Min: lower, Max: upper}.Normalized(), nil
	case lo.Center != nil || lo.HalfExtent != nil:
		center, err := vec3(lo.Center, "center")
		if err != nil {
			return Box{}, err
		}
		half, err := vec3(lo.HalfExtent, "half_extent")
		if err != nil {
			return Box{}, err
		}
		return BoxFromCenter(center, half).Normalized(), nil
	default:
		return Box{}, fmt.Errorf("needs min/max or center/half_extent")
	}
}

func vec3(v []float64, field string) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%s must have 3 components, got %d", field, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}
