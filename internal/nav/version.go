package nav

import "sync/atomic"

// VersionCounter issues search versions. Zero is never returned: it marks
// scratch entries that no search has touched.
type VersionCounter struct {
	n     atomic.Uint64
	epoch atomic.Uint64
}

// Next returns a fresh non-zero version. When the counter wraps to zero it
// draws again and bumps the epoch so pooled scratch tables reset themselves.
func (c *VersionCounter) Next() uint64 {
	for {
		v := c.n.Add(1)
		if v != 0 {
			return v
		}
		c.epoch.Add(1)
	}
}

// Reset rewinds the counter to zero and starts a new epoch.
func (c *VersionCounter) Reset() {
	c.n.Store(0)
	c.epoch.Add(1)
}

// Current returns the last issued version.
func (c *VersionCounter) Current() uint64 {
	return c.n.Load()
}

// Epoch returns the number of resets and wraps seen so far.
func (c *VersionCounter) Epoch() uint64 {
	return c.epoch.Load()
}
