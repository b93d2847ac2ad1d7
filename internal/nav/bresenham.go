package nav

// LineIterator3D walks the cells of a 3D Bresenham line from start to end.
type LineIterator3D struct {
	current, target        Coord
	deltaX, deltaY, deltaZ int
	stepX, stepY, stepZ    int
	errorA, errorB         int
	dominant               int // 0=X, 1=Y, 2=Z
	started                bool
}

// NewLineIterator3D creates an iterator over the cells from start to end inclusive.
func NewLineIterator3D(start, end Coord) *LineIterator3D {
	it := &LineIterator3D{current: start, target: end}

	it.deltaX, it.stepX = absStep(end.X - start.X)
	it.deltaY, it.stepY = absStep(end.Y - start.Y)
	it.deltaZ, it.stepZ = absStep(end.Z - start.Z)

	switch {
	case it.deltaX >= it.deltaY && it.deltaX >= it.deltaZ:
		it.dominant = 0
		it.errorA, it.errorB = it.deltaX/2, it.deltaX/2
	case it.deltaY >= it.deltaX && it.deltaY >= it.deltaZ:
		it.dominant = 1
		it.errorA, it.errorB = it.deltaY/2, it.deltaY/2
	default:
		it.dominant = 2
		it.errorA, it.errorB = it.deltaZ/2, it.deltaZ/2
	}
	return it
}

// Next advances to the next cell. The first call yields the start cell;
// returns false once the target has been yielded.
func (it *LineIterator3D) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.current == it.target {
		return false
	}

	switch it.dominant {
	case 0:
		it.current.X += it.stepX
		it.errorA += it.deltaY
		if it.errorA >= it.deltaX {
			it.current.Y += it.stepY
			it.errorA -= it.deltaX
		}
		it.errorB += it.deltaZ
		if it.errorB >= it.deltaX {
			it.current.Z += it.stepZ
			it.errorB -= it.deltaX
		}
	case 1:
		it.current.Y += it.stepY
		it.errorA += it.deltaX
		if it.errorA >= it.deltaY {
			it.current.X += it.stepX
			it.errorA -= it.deltaY
		}
		it.errorB += it.deltaZ
		if it.errorB >= it.deltaY {
			it.current.Z += it.stepZ
			it.errorB -= it.deltaY
		}
	case 2:
		it.current.Z += it.stepZ
		it.errorA += it.deltaX
		if it.errorA >= it.deltaZ {
			it.current.X += it.stepX
			it.errorA -= it.deltaZ
		}
		it.errorB += it.deltaY
		if it.errorB >= it.deltaZ {
			it.current.Y += it.stepY
			it.errorB -= it.deltaZ
		}
	}
	return true
}

// Cell returns the current cell.
func (it *LineIterator3D) Cell() Coord { return it.current }

// HasLineOfSight reports whether every cell on the line from a to b, except a
// itself, is in bounds and traversable.
func (g *Grid) HasLineOfSight(a, b Coord) bool {
	it := NewLineIterator3D(a, b)
	it.Next()
	for it.Next() {
		c := it.Cell()
		if !g.InBounds(c) {
			return false
		}
		if !g.nodes[g.index(c)].Traversable {
			return false
		}
	}
	return true
}

func absStep(d int) (int, int) {
	if d < 0 {
		return -d, -1
	}
	return d, 1
}
