package nav

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/udisondev/nav3d/internal/collision"
)

var (
	// ErrAlreadyInitialized is returned by Init on a volume that is already built.
	ErrAlreadyInitialized = errors.New("volume already initialized")
	// ErrVolumeClosed is returned by Init after Close.
	ErrVolumeClosed = errors.New("volume closed")
	// ErrInvalidCellSize is returned when the cell size is below KindaSmallNumber.
	ErrInvalidCellSize = errors.New("invalid cell size")
)

// VolumeConfig describes one navigation volume.
type VolumeConfig struct {
	Name  string
	Frame Frame

	SizeX, SizeY, SizeZ int
	CellSize            float64

	// MinSharedNeighborAxes selects connectivity: 2 faces, 1 faces+edges, 0 all 26.
	MinSharedNeighborAxes int

	// Obstacles selects which obstacles block cells and line of sight.
	Obstacles collision.Filter

	ResolveRadius         float64
	LongPathThreshold     int
	SmoothPath            bool
	MaxConcurrentSearches int64

	// RequireRequester rejects requests with an empty requester identity.
	RequireRequester bool
}

// DefaultVolumeConfig returns a 10x10x10 volume of 100-unit cells blocked by
// static and dynamic world geometry.
func DefaultVolumeConfig(name string) VolumeConfig {
	return VolumeConfig{
		Name:                  name,
		Frame:                 IdentityFrame(),
		SizeX:                 DefaultDivisions,
		SizeY:                 DefaultDivisions,
		SizeZ:                 DefaultDivisions,
		CellSize:              DefaultCellSize,
		MinSharedNeighborAxes: 1,
		Obstacles: collision.Filter{
			Categories: collision.NewCategorySet(collision.CategoryWorldStatic, collision.CategoryWorldDynamic),
		},
		ResolveRadius:         DefaultResolveRadius,
		LongPathThreshold:     DefaultLongPathThreshold,
		MaxConcurrentSearches: int64(runtime.GOMAXPROCS(0)),
	}
}

// VolumeStats is a snapshot of a volume for diagnostics.
type VolumeStats struct {
	Name     string  `json:"name"`
	Size     [3]int  `json:"size"`
	CellSize float64 `json:"cell_size"`
	Ready    bool    `json:"ready"`
	Nodes    int     `json:"nodes"`
	Blocked  int     `json:"blocked"`
	Digest   string  `json:"digest,omitempty"`

	// Last issued search version and its counter epoch.
	SearchVersion uint64 `json:"search_version"`
	SearchEpoch   uint64 `json:"search_epoch"`
}

// liveness is shared by a volume and its in-flight searches.
type liveness struct {
	alive atomic.Bool
}

// navState is the immutable snapshot a search works against.
type navState struct {
	name          string
	grid          *Grid
	query         ObstacleQuery
	filter        collision.Filter
	resolveRadius float64
	longThreshold int
	smooth        bool
	versions      *VersionCounter
	scratch       *scratchPool
	token         *liveness
	blocked       int
	digest        [32]byte
}

// Volume owns a navigation grid and answers asynchronous path requests.
// Callbacks are delivered through the Executor passed to NewVolume.
type Volume struct {
	cfg   VolumeConfig
	query ObstacleQuery
	exec  Executor

	versions VersionCounter
	sem      *semaphore.Weighted
	token    *liveness
	state    atomic.Pointer[navState]

	initMu      sync.Mutex
	initialized bool
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewVolume creates an unbuilt volume. query may be nil, in which case every
// cell is traversable. A nil exec runs callbacks inline on the worker.
func NewVolume(cfg VolumeConfig, query ObstacleQuery, exec Executor) *Volume {
	if exec == nil {
		exec = Inline
	}
	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = int64(runtime.GOMAXPROCS(0))
	}
	if cfg.ResolveRadius < 0 {
		cfg.ResolveRadius = 0
	}
	if cfg.LongPathThreshold <= 0 {
		cfg.LongPathThreshold = DefaultLongPathThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &Volume{
		cfg:    cfg,
		query:  query,
		exec:   exec,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrentSearches),
		token:  &liveness{},
		ctx:    ctx,
		cancel: cancel,
	}
	v.token.alive.Store(true)
	return v
}

// Init builds the grid, wires neighbours, precomputes traversability and
// resets the search counter. The volume is ready for requests once Init returns nil.
func (v *Volume) Init() error {
	v.initMu.Lock()
	defer v.initMu.Unlock()

	if v.closed {
		return fmt.Errorf("initializing volume %s: %w", v.cfg.Name, ErrVolumeClosed)
	}
	if v.initialized {
		return fmt.Errorf("initializing volume %s: %w", v.cfg.Name, ErrAlreadyInitialized)
	}
	if v.cfg.CellSize < KindaSmallNumber {
		slog.Warn("volume cell size too small", "volume", v.cfg.Name, "cell_size", v.cfg.CellSize)
		return fmt.Errorf("initializing volume %s: %w", v.cfg.Name, ErrInvalidCellSize)
	}

	start := time.Now()
	grid := NewGrid(v.cfg.Frame)
	if err := grid.Build(v.cfg.SizeX, v.cfg.SizeY, v.cfg.SizeZ, v.cfg.CellSize); err != nil {
		return fmt.Errorf("initializing volume %s: %w", v.cfg.Name, err)
	}
	grid.ConnectNeighbors(v.cfg.MinSharedNeighborAxes)
	blocked := grid.Precompute(v.query, v.cfg.Obstacles)
	digest := grid.TraversabilityDigest()

	v.versions.Reset()
	v.state.Store(&navState{
		name:          v.cfg.Name,
		grid:          grid,
		query:         v.query,
		filter:        v.cfg.Obstacles,
		resolveRadius: v.cfg.ResolveRadius,
		longThreshold: v.cfg.LongPathThreshold,
		smooth:        v.cfg.SmoothPath,
		versions:      &v.versions,
		scratch:       newScratchPool(grid.Len()),
		token:         v.token,
		blocked:       blocked,
		digest:        digest,
	})
	v.initialized = true

	slog.Info("navigation volume ready",
		"volume", v.cfg.Name,
		"nodes", grid.Len(),
		"blocked", blocked,
		"digest", hex.EncodeToString(digest[:8]),
		"duration", time.Since(start))
	return nil
}

// Close tears the volume down. In-flight requests complete with VolumeNotReady.
func (v *Volume) Close() {
	v.initMu.Lock()
	defer v.initMu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.token.alive.Store(false)
	v.state.Store(nil)
	v.cancel()
}

// Ready reports whether the volume accepts searches.
func (v *Volume) Ready() bool {
	return v.state.Load() != nil
}

// Name returns the configured volume name.
func (v *Volume) Name() string {
	return v.cfg.Name
}

// Config returns the volume's configuration after defaults were applied.
func (v *Volume) Config() VolumeConfig {
	return v.cfg
}

// Grid returns the published grid, or nil when the volume is not ready.
// The grid must be treated as read-only.
func (v *Volume) Grid() *Grid {
	st := v.state.Load()
	if st == nil {
		return nil
	}
	return st.grid
}

// Versions exposes the search counter.
func (v *Volume) Versions() *VersionCounter {
	return &v.versions
}

// Stats returns a diagnostic snapshot.
func (v *Volume) Stats() VolumeStats {
	stats := VolumeStats{
		Name:     v.cfg.Name,
		Size:     [3]int{v.cfg.SizeX, v.cfg.SizeY, v.cfg.SizeZ},
		CellSize: v.cfg.CellSize,

		SearchVersion: v.Versions().Current(),
		SearchEpoch:   v.Versions().Epoch(),
	}
	st := v.state.Load()
	if st == nil {
		return stats
	}
	stats.Ready = true
	stats.Nodes = st.grid.Len()
	stats.Blocked = st.blocked
	stats.Digest = hex.EncodeToString(st.digest[:])
	return stats
}

// WorldToCell converts a world point to a cell of the published grid.
func (v *Volume) WorldToCell(p mgl64.Vec3) (Coord, bool) {
	st := v.state.Load()
	if st == nil {
		return Coord{}, false
	}
	return st.grid.WorldToCell(p)
}

// CellToWorld returns the world-space center of a cell of the published grid.
func (v *Volume) CellToWorld(c Coord) (mgl64.Vec3, bool) {
	st := v.state.Load()
	if st == nil {
		return mgl64.Vec3{}, false
	}
	return st.grid.CellToWorld(c)
}

// FindValidLocationInRadius returns the world center of the first traversable
// cell within radius of origin that is visible from it, ignoring the given actor.
func (v *Volume) FindValidLocationInRadius(origin mgl64.Vec3, radius float64, ignore collision.ActorID) (mgl64.Vec3, bool) {
	st := v.state.Load()
	if st == nil {
		return mgl64.Vec3{}, false
	}
	c, ok := st.findValidLocation(origin, radius, ignore)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return st.grid.CellToWorld(c)
}

// RequestPath starts an asynchronous search from start to end and returns
// immediately. onComplete runs on the volume's executor exactly once.
func (v *Volume) RequestPath(requester collision.ActorID, start, end mgl64.Vec3, onComplete CompletionFunc) *Request {
	req := newRequest(requester, start, end, onComplete)
	req.version = v.versions.Next()
	req.transition(StateDispatched)

	st := v.state.Load()
	if st == nil {
		slog.Debug("path request on volume that is not ready", "volume", v.cfg.Name)
		v.deliver(nil, req, PathResult{Result: VolumeNotReady})
		return req
	}
	if v.cfg.RequireRequester && requester == "" {
		v.deliver(st, req, PathResult{Result: RequesterInvalid})
		return req
	}

	go v.runSearch(st, req)
	return req
}

func (v *Volume) runSearch(st *navState, req *Request) {
	if err := v.sem.Acquire(v.ctx, 1); err != nil {
		v.deliver(st, req, PathResult{Result: VolumeNotReady})
		return
	}
	defer v.sem.Release(1)

	if !st.token.alive.Load() {
		v.deliver(st, req, PathResult{Result: VolumeNotReady})
		return
	}

	ctx, span := tracer.Start(v.ctx, "nav.Volume.search",
		trace.WithAttributes(
			attribute.String("volume", st.name),
			attribute.String("requester", string(req.requester)),
			attribute.Int64("search_version", int64(req.version)),
		),
	)
	defer span.End()

	began := time.Now()
	res := st.execute(ctx, req)
	searchDuration.WithLabelValues(st.name).Observe(time.Since(began).Seconds())

	span.SetAttributes(
		attribute.String("result", res.Result.String()),
		attribute.Int("points", len(res.Points)),
	)
	if res.Result.IsCompleted() {
		span.SetStatus(codes.Ok, res.Result.String())
	} else {
		span.SetStatus(codes.Error, res.Result.String())
	}

	v.deliver(st, req, res)
}

// deliver posts the completion to the owner's executor. Liveness is checked
// again there so a volume closed mid-flight reports VolumeNotReady.
func (v *Volume) deliver(st *navState, req *Request, res PathResult) {
	v.exec.Post(func() {
		if st != nil && !st.token.alive.Load() {
			res = PathResult{Result: VolumeNotReady}
		}
		pathRequests.WithLabelValues(v.cfg.Name, res.Result.String()).Inc()
		req.complete(res)
	})
}

// execute resolves both endpoints and runs A* on the worker goroutine.
func (st *navState) execute(ctx context.Context, req *Request) PathResult {
	req.transition(StateResolving)

	startIdx, code := st.resolveEndpoint(req.start, req.requester, "start", StartNodeInvalid, StartNodeBlocked)
	if code != Success {
		return PathResult{Result: code}
	}
	goalIdx, code := st.resolveEndpoint(req.end, req.requester, "end", EndNodeInvalid, EndNodeBlocked)
	if code != Success {
		return PathResult{Result: code}
	}

	if startIdx == goalIdx {
		return PathResult{
			Result: PathToSelf,
			Points: []mgl64.Vec3{st.grid.nodeCenter(startIdx)},
		}
	}

	if !st.token.alive.Load() {
		return PathResult{Result: VolumeNotReady}
	}
	req.transition(StateSearching)

	scratch := st.scratch.get(req.version, st.versions.Epoch())
	nodes, found := st.grid.FindNodePath(startIdx, goalIdx, scratch)
	st.scratch.put(scratch)

	if !found {
		trace.SpanFromContext(ctx).AddEvent("no_path")
		return PathResult{Result: NoPathExists}
	}
	if st.smooth {
		nodes = st.grid.SmoothPath(nodes)
	}

	points := make([]mgl64.Vec3, len(nodes))
	for i, idx := range nodes {
		points[i] = st.grid.nodeCenter(idx)
	}
	pathPoints.Observe(float64(len(points)))

	res := PathResult{Result: Success, Points: points}
	if len(points) > st.longThreshold {
		res.Long = true
		longPaths.WithLabelValues(st.name).Inc()
		slog.Warn("long path",
			"volume", st.name,
			"requester", req.requester,
			"points", len(points),
			"threshold", st.longThreshold)
	}
	return res
}
