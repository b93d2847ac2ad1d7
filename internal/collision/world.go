package collision

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Obstacle is a static or dynamic blocker registered in the world.
type Obstacle struct {
	ID       ActorID
	Class    string
	Category Category
	Bounds   Box
}

// Hit describes the first obstacle a line trace ran into.
type Hit struct {
	Actor    ActorID
	Class    string
	Location mgl64.Vec3
	Fraction float64 // 0..1 along the traced segment
	Distance float64
}

// World is an in-memory collision scene answering overlap and trace queries.
// Thread-safe: queries take a read lock, mutations a write lock.
type World struct {
	mu        sync.RWMutex
	obstacles map[ActorID]Obstacle
}

// NewWorld creates a world populated with the given obstacles.
func NewWorld(obstacles ...Obstacle) *World {
	w := &World{obstacles: make(map[ActorID]Obstacle, len(obstacles))}
	for _, o := range obstacles {
		_ = w.Add(o)
	}
	return w
}

// Add registers or replaces an obstacle.
func (w *World) Add(o Obstacle) error {
	if o.ID == "" {
		return fmt.Errorf("adding obstacle: empty id")
	}
	if _, ok := categoryNames[o.Category]; !ok {
		return fmt.Errorf("adding obstacle %s: %s is not a valid category", o.ID, o.Category)
	}
	o.Bounds = o.Bounds.Normalized()

	w.mu.Lock()
	w.obstacles[o.ID] = o
	w.mu.Unlock()
	return nil
}

// Remove unregisters an obstacle. Returns false if it was not present.
func (w *World) Remove(id ActorID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.obstacles[id]; !ok {
		return false
	}
	delete(w.obstacles, id)
	return true
}

// Len returns the number of registered obstacles.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.obstacles)
}

// Obstacles returns a snapshot sorted by ID.
func (w *World) Obstacles() []Obstacle {
	w.mu.RLock()
	out := make([]Obstacle, 0, len(w.obstacles))
	for _, o := range w.obstacles {
		out = append(out, o)
	}
	w.mu.RUnlock()

	slices.SortFunc(out, func(a, b Obstacle) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// OverlapBox reports whether any obstacle accepted by filter overlaps the box
// centered at center with the given half extent.
func (w *World) OverlapBox(center, halfExtent mgl64.Vec3, filter Filter) bool {
	if filter.IsEmpty() {
		return false
	}
	query := BoxFromCenter(center, halfExtent)

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, o := range w.obstacles {
		if filter.Matches(o) && o.Bounds.Overlaps(query) {
			return true
		}
	}
	return false
}

// LineTrace returns the nearest obstacle hit along start→end.
// Ties on the hit fraction resolve to the smallest actor ID.
func (w *World) LineTrace(start, end mgl64.Vec3, filter Filter) (Hit, bool) {
	if filter.IsEmpty() {
		return Hit{}, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	var (
		best  Hit
		found bool
	)
	for _, o := range w.obstacles {
		if !filter.Matches(o) {
			continue
		}
		t, ok := o.Bounds.IntersectSegment(start, end)
		if !ok {
			continue
		}
		if found && (t > best.Fraction || (t == best.Fraction && o.ID >= best.Actor)) {
			continue
		}
		best = Hit{Actor: o.ID, Class: o.Class, Fraction: t}
		found = true
	}
	if !found {
		return Hit{}, false
	}

	seg := end.Sub(start)
	best.Location = start.Add(seg.Mul(best.Fraction))
	best.Distance = seg.Len() * best.Fraction
	return best, true
}
