package nav

import (
	"log/slog"
	"math"
	"sync"
)

// NodeScratch holds the per-search A* fields of one node.
// The fields are meaningful only while SearchVersion equals the search's version.
type NodeScratch struct {
	GCost         float64
	FCost         float64
	CameFrom      int32
	SearchVersion uint64
}

// Scratch is a per-grid table of NodeScratch owned by one search at a time.
type Scratch struct {
	version uint64
	epoch   uint64
	entries []NodeScratch
}

// NewScratch allocates a table for n nodes, every entry untouched.
func NewScratch(n int) *Scratch {
	s := &Scratch{entries: make([]NodeScratch, n)}
	s.resetAll()
	return s
}

// Begin tags the table with a search version. Entries left by earlier
// searches are reinitialized lazily by Touch. A table from a different epoch,
// or a zero version, is fully reset first.
func (s *Scratch) Begin(version, epoch uint64) {
	if version == 0 {
		slog.Warn("search version 0 is reserved, resetting scratch", "nodes", len(s.entries))
		s.resetAll()
	} else if epoch != s.epoch {
		s.resetAll()
	}
	s.version = version
	s.epoch = epoch
}

// Version returns the search version the table is tagged with.
func (s *Scratch) Version() uint64 {
	return s.version
}

// Current reports whether the entry at idx was written by the active search.
func (s *Scratch) Current(idx int32) bool {
	return s.entries[idx].SearchVersion == s.version
}

// Touch returns the entry at idx, reinitializing it first if it belongs to another search.
func (s *Scratch) Touch(idx int32) *NodeScratch {
	e := &s.entries[idx]
	if e.SearchVersion != s.version {
		*e = NodeScratch{
			GCost:         math.Inf(1),
			FCost:         math.Inf(1),
			CameFrom:      noNode,
			SearchVersion: s.version,
		}
	}
	return e
}

// Peek returns a copy of the entry at idx without reinitializing it.
func (s *Scratch) Peek(idx int32) NodeScratch {
	return s.entries[idx]
}

// Len returns the number of entries.
func (s *Scratch) Len() int {
	return len(s.entries)
}

func (s *Scratch) resetAll() {
	for i := range s.entries {
		s.entries[i] = NodeScratch{
			GCost:    math.Inf(1),
			FCost:    math.Inf(1),
			CameFrom: noNode,
		}
	}
}

// scratchPool hands out scratch tables sized for one grid.
type scratchPool struct {
	pool sync.Pool
}

func newScratchPool(nodes int) *scratchPool {
	return &scratchPool{
		pool: sync.Pool{New: func() any { return NewScratch(nodes) }},
	}
}

func (p *scratchPool) get(version, epoch uint64) *Scratch {
	s := p.pool.Get().(*Scratch)
	s.Begin(version, epoch)
	return s
}

func (p *scratchPool) put(s *Scratch) {
	p.pool.Put(s)
}
