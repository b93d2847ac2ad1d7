package collision

import "slices"

// ActorID identifies an obstacle owner or a path requester.
type ActorID string

// Filter selects which obstacles a query considers.
// An empty filter (no categories, no class) matches nothing.
type Filter struct {
	Categories CategorySet
	Class      string
	Ignore     []ActorID
}

// IsEmpty reports whether the filter names neither categories nor a class.
func (f Filter) IsEmpty() bool {
	return f.Categories.Empty() && f.Class == ""
}

// Matches reports whether the obstacle passes the filter.
func (f Filter) Matches(o Obstacle) bool {
	if f.IsEmpty() {
		return false
	}
	if !f.Categories.Empty() && !f.Categories.Has(o.Category) {
		return false
	}
	if f.Class != "" && o.Class != f.Class {
		return false
	}
	return !slices.Contains(f.Ignore, o.ID)
}

// WithIgnored returns a copy of f that also skips the given actors.
// Empty IDs are dropped.
func (f Filter) WithIgnored(ids ...ActorID) Filter {
	out := f
	out.Ignore = slices.Clone(f.Ignore)
	for _, id := range ids {
		if id != "" {
			out.Ignore = append(out.Ignore, id)
		}
	}
	return out
}

// ChannelsOnly drops the class restriction, keeping categories and ignores.
// Line-of-sight traces run against object channels only.
func (f Filter) ChannelsOnly() Filter {
	out := f
	out.Class = ""
	return out
}
