package collision

import (
	"fmt"
	"strings"
)

// Category is the object channel an obstacle is registered on.
type Category uint8

// Obstacle categories. Names follow the host engine's object channels.
const (
	CategoryWorldStatic Category = iota + 1
	CategoryWorldDynamic
	CategoryPawn
	CategoryPhysicsBody
	CategoryVehicle
	CategoryDestructible
)

var categoryNames = map[Category]string{
	CategoryWorldStatic:  "world_static",
	CategoryWorldDynamic: "world_dynamic",
	CategoryPawn:         "pawn",
	CategoryPhysicsBody:  "physics_body",
	CategoryVehicle:      "vehicle",
	CategoryDestructible: "destructible",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory resolves a config/database name into a Category.
func ParseCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown obstacle category %q", name)
}

// CategorySet is a bitmask of categories.
type CategorySet uint32

// NewCategorySet builds a set from the given categories.
func NewCategorySet(categories ...Category) CategorySet {
	var s CategorySet
	for _, c := range categories {
		s = s.With(c)
	}
	return s
}

// ParseCategorySet parses a list of category names.
func ParseCategorySet(names []string) (CategorySet, error) {
	var s CategorySet
	for _, name := range names {
		c, err := ParseCategory(name)
		if err != nil {
			return 0, err
		}
		s = s.With(c)
	}
	return s, nil
}

// With returns a copy of s that also contains c.
func (s CategorySet) With(c Category) CategorySet {
	return s | 1<<c
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	return s&(1<<c) != 0
}

// Empty reports whether the set has no categories.
func (s CategorySet) Empty() bool {
	return s == 0
}
