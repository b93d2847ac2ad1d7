package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const segmentEpsilon = 1e-9

// Box is a world-axis-aligned bounding box.
type Box struct {
	Min, Max mgl64.Vec3
}

// BoxFromCenter builds a box from its center and half extent.
func BoxFromCenter(center, halfExtent mgl64.Vec3) Box {
	return Box{Min: center.Sub(halfExtent), Max: center.Add(halfExtent)}
}

// Normalized returns the box with Min/Max swapped per axis where needed.
func (b Box) Normalized() Box {
	for i := range 3 {
		if b.Min[i] > b.Max[i] {
			b.Min[i], b.Max[i] = b.Max[i], b.Min[i]
		}
	}
	return b
}

// Center returns the box center.
func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtent returns half the box size per axis.
func (b Box) HalfExtent() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Overlaps reports whether the interiors of the two boxes intersect.
// Boxes that only touch on a face do not overlap.
func (b Box) Overlaps(o Box) bool {
	for i := range 3 {
		if b.Max[i] <= o.Min[i] || o.Max[i] <= b.Min[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p mgl64.Vec3) bool {
	for i := range 3 {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// IntersectSegment returns the fraction along start→end where the segment
// enters the box. Segments starting inside the box report no entry.
func (b Box) IntersectSegment(start, end mgl64.Vec3) (float64, bool) {
	if b.Contains(start) {
		return 0, false
	}

	dir := end.Sub(start)
	tMin, tMax := 0.0, 1.0
	for i := range 3 {
		if math.Abs(dir[i]) < segmentEpsilon {
			if start[i] < b.Min[i] || start[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / dir[i]
		t1 := (b.Min[i] - start[i]) * inv
		t2 := (b.Max[i] - start[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
