package nav

// Grid and search tuning.
const (
	// KindaSmallNumber is the smallest cell size the coordinate transform accepts.
	KindaSmallNumber = 1e-4

	// OverlapExtentScale shrinks the precompute overlap box below the cell size
	// so obstacles touching a cell boundary do not block both neighbours.
	OverlapExtentScale = 0.45

	// DefaultResolveRadius is the world-space radius searched around a blocked endpoint.
	DefaultResolveRadius = 300.0

	// ResolveExpansionCells widens the endpoint scan beyond ceil(radius/cellSize).
	ResolveExpansionCells = 1

	// DefaultLongPathThreshold is the point count above which a path is flagged long.
	DefaultLongPathThreshold = 80

	// MaxSmoothPasses bounds the optional path smoothing.
	MaxSmoothPasses = 3

	// DefaultCellSize and DefaultDivisions match a freshly placed volume.
	DefaultCellSize  = 100.0
	DefaultDivisions = 10
)

const noNode int32 = -1
