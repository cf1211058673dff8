// Package streamer implements the chunk streamer (C10): the viewpoint-
// driven load/unload sweep, the priority queue that orders pending
// generation, and the terrain modification and regeneration APIs.
package streamer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxelplanet/internal/boundary"
	"voxelplanet/internal/chunkspace"
	"voxelplanet/internal/config"
	"voxelplanet/internal/density"
	"voxelplanet/internal/meshutil"
	"voxelplanet/internal/profiling"
	"voxelplanet/internal/ratelimit"
)

// Settings configures sweep and throughput behavior (spec.md §6.1 stream).
type Settings struct {
	LoadDistance     float64
	UnloadDistance   float64
	ChunksPerFrame   int
	MeshesPerFrame   int
	SearchIntervalS  float64
	MaxConcurrentGen int
}

// Stats reports streamer state for diagnostics (spec.md §6.2).
type Stats struct {
	Active         int
	Pending        int
	InProgress     int
	MeshQueue      int
	TotalGenerated uint64
	TotalUnloaded  uint64
}

// MeshCallbacks are invoked on the control thread whenever a chunk's mesh
// changes (spec.md §6.3).
type MeshCallbacks struct {
	OnMeshReady   func(coord chunkspace.Coord, mesh *chunkspace.Mesh)
	OnMeshCleared func(coord chunkspace.Coord)
}

// Streamer owns the active/pending/in-progress chunk sets and the chunk
// generation/meshing pipeline. All exported methods are safe to call from
// any goroutine; the spec's "single-threaded control loop" owns the
// logical state, which this type enforces with an internal mutex rather
// than requiring callers to coordinate externally.
type Streamer struct {
	Settings Settings

	PlanetCenter mgl32.Vec3
	PlanetRadius float64
	MaxHeight    float64
	MaxDepth     float64

	chunkSize  float64
	resolution int
	store      *boundary.Store
	field      *density.Field
	tintFor    func(coord chunkspace.Coord) chunkspace.TintOptions
	callbacks  MeshCallbacks
	log        *zap.SugaredLogger
	limit      *ratelimit.Limiter

	mu         sync.Mutex
	active     map[chunkspace.Coord]*chunkspace.Chunk
	pending    map[chunkspace.Coord]bool
	inProgress map[chunkspace.Coord]*chunkspace.Chunk
	cancels    map[chunkspace.Coord]context.CancelFunc

	queue      []chunkspace.Coord
	queueDirty bool

	meshQueue []chunkspace.Coord

	viewpoint        mgl32.Vec3
	lastQueueVP      mgl32.Vec3
	haveLastQueueVP  bool

	stats Stats
}

// New constructs a Streamer. field and store must already be wired
// together (store.Density should call field.Eval).
func New(chunkSize float64, resolution int, store *boundary.Store, field *density.Field,
	tintFor func(coord chunkspace.Coord) chunkspace.TintOptions, settings Settings,
	callbacks MeshCallbacks, log *zap.SugaredLogger, limit *ratelimit.Limiter) *Streamer {
	if settings.MaxConcurrentGen <= 0 {
		settings.MaxConcurrentGen = 4
	}
	if limit == nil {
		limit = ratelimit.New(10 * time.Second)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if settings.ChunksPerFrame > 0 {
		config.SetChunksPerFrame(settings.ChunksPerFrame)
	}
	if settings.MeshesPerFrame > 0 {
		config.SetMeshesPerFrame(settings.MeshesPerFrame)
	}
	return &Streamer{
		Settings:   settings,
		chunkSize:  chunkSize,
		resolution: resolution,
		store:      store,
		field:      field,
		tintFor:    tintFor,
		callbacks:  callbacks,
		log:        log,
		limit:      limit,
		active:     make(map[chunkspace.Coord]*chunkspace.Chunk),
		pending:    make(map[chunkspace.Coord]bool),
		inProgress: make(map[chunkspace.Coord]*chunkspace.Chunk),
		cancels:    make(map[chunkspace.Coord]context.CancelFunc),
	}
}

// SetViewpoint updates the tracked viewpoint; large moves dirty the
// priority queue (spec.md §4.10).
func (s *Streamer) SetViewpoint(p mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewpoint = p
	if !s.haveLastQueueVP || p.Sub(s.lastQueueVP).Len() >= float32(0.5*s.chunkSize) {
		s.queueDirty = true
	}
}

func (s *Streamer) chunkCenter(c chunkspace.Coord) mgl32.Vec3 {
	half := float32(s.chunkSize / 2)
	return mgl32.Vec3{
		float32(c.X)*float32(s.chunkSize) + half,
		float32(c.Y)*float32(s.chunkSize) + half,
		float32(c.Z)*float32(s.chunkSize) + half,
	}
}

func (s *Streamer) viewpointChunk() chunkspace.Coord {
	return chunkspace.Coord{
		X: int32(math.Floor(float64(s.viewpoint.X()) / s.chunkSize)),
		Y: int32(math.Floor(float64(s.viewpoint.Y()) / s.chunkSize)),
		Z: int32(math.Floor(float64(s.viewpoint.Z()) / s.chunkSize)),
	}
}

// searchSweep enumerates candidate coordinates around the viewpoint and
// adds survivors to pending (spec.md §4.10). Caller must hold s.mu.
func (s *Streamer) searchSweep() {
	center := s.viewpointChunk()
	radius := int32(math.Ceil(s.Settings.LoadDistance/s.chunkSize)) + 1
	diag := s.chunkSize * math.Sqrt(3)
	shellLo := s.PlanetRadius - s.MaxDepth - diag
	shellHi := s.PlanetRadius + s.MaxHeight + diag

	added := false
	for dz := -radius; dz <= radius; dz++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				coord := chunkspace.Coord{X: center.X + dx, Y: center.Y + dy, Z: center.Z + dz}
				if s.active[coord] != nil || s.pending[coord] || s.inProgress[coord] != nil {
					continue
				}

				cc := s.chunkCenter(coord)
				dist := float64(cc.Sub(s.viewpoint).Len())
				if dist > s.Settings.LoadDistance {
					continue
				}

				r := float64(cc.Sub(s.PlanetCenter).Len())
				if r < shellLo || r > shellHi {
					continue
				}

				s.pending[coord] = true
				added = true
			}
		}
	}

	s.lastQueueVP = s.viewpoint
	s.haveLastQueueVP = true
	if added {
		s.queueDirty = true
	}
}

// rebuildQueue sorts pending coordinates by distance to the viewpoint.
// Caller must hold s.mu.
func (s *Streamer) rebuildQueue() {
	s.queue = s.queue[:0]
	for c := range s.pending {
		s.queue = append(s.queue, c)
	}
	vp := s.viewpoint
	sort.Slice(s.queue, func(i, j int) bool {
		di := s.chunkCenter(s.queue[i]).Sub(vp).LenSqr()
		dj := s.chunkCenter(s.queue[j]).Sub(vp).LenSqr()
		return di < dj
	})
	s.queueDirty = false
}

// Tick runs one streamer iteration: search sweep, generation of up to
// ChunksPerFrame pending chunks, meshing of up to MeshesPerFrame queued
// chunks, and the unload sweep. The search sweep runs on every tick;
// Settings.SearchIntervalS is not consulted.
func (s *Streamer) Tick(ctx context.Context) {
	defer profiling.Track("streamer.Tick")()
	// Per-tick throughput is read from the live tunables (config.SetChunksPerFrame
	// /SetMeshesPerFrame) rather than the Settings snapshot taken at construction,
	// so a host can throttle generation/meshing while the engine is running
	// without tearing down the streamer.
	s.mu.Lock()
	s.searchSweep()
	if s.queueDirty {
		s.rebuildQueue()
	}
	toGenerate := s.popPendingLocked(config.GetChunksPerFrame())
	s.mu.Unlock()

	s.generateChunks(ctx, toGenerate)

	s.mu.Lock()
	toMesh := s.popMeshQueueLocked(config.GetMeshesPerFrame())
	s.mu.Unlock()

	for _, coord := range toMesh {
		s.meshOne(coord)
	}

	s.unloadSweep()
	s.refreshStats()
}

// popPendingLocked removes up to n coordinates from the front of the
// priority queue and from the pending set; generateChunks then records
// them as in progress.
func (s *Streamer) popPendingLocked(n int) []chunkspace.Coord {
	if n > len(s.queue) {
		n = len(s.queue)
	}
	out := make([]chunkspace.Coord, n)
	copy(out, s.queue[:n])
	s.queue = s.queue[n:]
	for _, c := range out {
		delete(s.pending, c)
	}
	return out
}

func (s *Streamer) popMeshQueueLocked(n int) []chunkspace.Coord {
	if n > len(s.meshQueue) {
		n = len(s.meshQueue)
	}
	out := make([]chunkspace.Coord, n)
	copy(out, s.meshQueue[:n])
	s.meshQueue = s.meshQueue[n:]
	return out
}

// generateChunks materializes density for the given coordinates on a
// worker pool (spec.md §5: CPU-heavy work runs off the control thread;
// results are integrated back here).
func (s *Streamer) generateChunks(ctx context.Context, coords []chunkspace.Coord) {
	defer profiling.Track("streamer.generateChunks")()
	if len(coords) == 0 {
		return
	}

	type result struct {
		coord chunkspace.Coord
		chunk *chunkspace.Chunk
		err   error
	}
	results := make([]result, len(coords))

	genCtx, cancels := make([]context.Context, len(coords)), make([]context.CancelFunc, len(coords))
	s.mu.Lock()
	for i, coord := range coords {
		c, cancel := context.WithCancel(ctx)
		genCtx[i], cancels[i] = c, cancel
		chunk := chunkspace.NewChunk(coord, s.chunkSize, s.resolution, s.store, s.field)
		s.inProgress[coord] = chunk
		s.cancels[coord] = cancel
	}
	s.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.Settings.MaxConcurrentGen)
	for i := range coords {
		i := i
		g.Go(func() error {
			s.mu.Lock()
			chunk := s.inProgress[coords[i]]
			s.mu.Unlock()
			coord := coords[i]
			stop := profiling.TrackChunk("streamer.generateOne", fmt.Sprintf("%d,%d,%d", coord.X, coord.Y, coord.Z))
			err := chunk.GenerateDensityField(genCtx[i])
			stop()
			results[i] = result{coord: coord, chunk: chunk, err: err}
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	for _, r := range results {
		delete(s.inProgress, r.coord)
		delete(s.cancels, r.coord)
		if r.err != nil {
			if s.log != nil && s.limit.Allow("generate:"+r.err.Error()) {
				s.log.Debugw("chunk generation dropped", "coord", r.coord, "err", r.err)
			}
			continue
		}
		s.active[r.coord] = r.chunk
		s.stats.TotalGenerated++
		s.meshQueue = append(s.meshQueue, r.coord)
	}
	s.mu.Unlock()
}

func (s *Streamer) meshOne(coord chunkspace.Coord) {
	defer profiling.Track("streamer.meshOne")()
	s.mu.Lock()
	chunk := s.active[coord]
	s.mu.Unlock()
	if chunk == nil {
		return
	}

	tint := chunkspace.TintOptions{}
	if s.tintFor != nil {
		tint = s.tintFor(coord)
	}

	if err := chunk.GenerateMesh(tint); err != nil {
		if s.log != nil && s.limit.Allow("mesh_failed:"+err.Error()) {
			s.log.Warnw("mesh generation failed", "coord", coord, "err", err)
		}
		return
	}

	if chunk.Mesh == nil {
		if s.callbacks.OnMeshCleared != nil {
			s.callbacks.OnMeshCleared(coord)
		}
		return
	}
	if s.callbacks.OnMeshReady != nil {
		s.callbacks.OnMeshReady(coord, chunk.Mesh)
	}
}

// unloadSweep destroys active chunks outside UnloadDistance.
func (s *Streamer) unloadSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for coord := range s.active {
		dist := float64(s.chunkCenter(coord).Sub(s.viewpoint).Len())
		if dist <= s.Settings.UnloadDistance {
			continue
		}
		delete(s.active, coord)
		s.stats.TotalUnloaded++
		s.queueDirty = true
	}

	for coord, cancel := range s.cancels {
		dist := float64(s.chunkCenter(coord).Sub(s.viewpoint).Len())
		if dist > s.Settings.UnloadDistance {
			cancel()
		}
	}
}

func (s *Streamer) refreshStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Active = len(s.active)
	s.stats.Pending = len(s.pending)
	s.stats.InProgress = len(s.inProgress)
	s.stats.MeshQueue = len(s.meshQueue)
}

// Stats returns a snapshot of current streamer counters.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// GetChunk returns the active chunk at coord, if any.
func (s *Streamer) GetChunk(coord chunkspace.Coord) (*chunkspace.Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.active[coord]
	return c, ok
}

// IsLoaded reports whether coord is active.
func (s *Streamer) IsLoaded(coord chunkspace.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[coord] != nil
}

// IsPending reports whether coord is pending or in progress.
func (s *Streamer) IsPending(coord chunkspace.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[coord] || s.inProgress[coord] != nil
}

// Modify applies a terrain edit, finding every active chunk whose AABB
// intersects the sphere, invoking Chunk.Modify, and scheduling re-meshing
// (spec.md §4.10 terrain modification API). Chunks with immediateCollider
// set are re-meshed synchronously before this call returns.
func (s *Streamer) Modify(center mgl32.Vec3, radius, strength float64, immediateCollider bool) bool {
	s.mu.Lock()
	var dirtied []chunkspace.Coord
	for coord, chunk := range s.active {
		if chunk.Modify(center, radius, strength) {
			dirtied = append(dirtied, coord)
		}
	}
	s.mu.Unlock()

	if len(dirtied) == 0 {
		return false
	}

	if immediateCollider {
		for _, coord := range dirtied {
			s.meshOne(coord)
		}
		return true
	}

	// Re-meshing respects MeshesPerFrame on the next Tick, which drains
	// meshQueue at that rate; queuing here just records the work.
	s.mu.Lock()
	s.meshQueue = append(s.meshQueue, dirtied...)
	s.mu.Unlock()
	return true
}

// RegenerateChunk invalidates the shared boundary store for coord,
// regenerates its density, and queues re-meshing (spec.md §4.10).
func (s *Streamer) RegenerateChunk(ctx context.Context, coord chunkspace.Coord) {
	s.store.Invalidate(coord)

	s.mu.Lock()
	chunk, ok := s.active[coord]
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := chunk.GenerateDensityField(ctx); err != nil {
		if s.log != nil && s.limit.Allow("regenerate_failed:"+err.Error()) {
			s.log.Warnw("regenerate failed", "coord", coord, "err", err)
		}
		return
	}

	s.mu.Lock()
	s.meshQueue = append(s.meshQueue, coord)
	s.mu.Unlock()
}

// RegenerateInRadius regenerates every active chunk whose AABB intersects
// a world sphere.
func (s *Streamer) RegenerateInRadius(ctx context.Context, center mgl32.Vec3, radius float64) {
	s.mu.Lock()
	var coords []chunkspace.Coord
	for coord, chunk := range s.active {
		if chunk.IntersectsSphere(center, radius) {
			coords = append(coords, coord)
		}
	}
	s.mu.Unlock()

	for _, coord := range coords {
		s.RegenerateChunk(ctx, coord)
	}
}

// QuerySurface performs the density binary search of spec.md §6.4 along
// direction u from the planet center.
func (s *Streamer) QuerySurface(u mgl32.Vec3) meshutil.SurfacePoint {
	if u.Len() > 1e-9 {
		u = u.Normalize()
	}

	lo := s.PlanetRadius - s.MaxDepth
	hi := s.PlanetRadius + s.MaxHeight
	var mid float64
	for i := 0; i < 32; i++ {
		mid = (lo + hi) / 2
		p := s.PlanetCenter.Add(u.Mul(float32(mid)))
		d := s.field.Eval(p)
		if math.Abs(d) < 0.1 {
			break
		}
		if d > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	p := s.PlanetCenter.Add(u.Mul(float32(mid)))
	normal := s.gradientNormalAt(p)
	altitude := mid - s.PlanetRadius
	slope := math.Acos(clamp11(float64(normal.Dot(u))))

	biome := ""
	if s.field.Selector != nil {
		weights := s.field.Selector.Select(u, altitude, slope)
		if len(weights) > 0 {
			biome = weights[0].Biome.Name
		}
	}

	return meshutil.SurfacePoint{Pos: p, Normal: normal, Slope: slope, Altitude: altitude, Biome: biome}
}

// QuerySurfaceRay marches a ray from origin along dir for up to length world
// units looking for the first density sign change, then bisects it the same
// way QuerySurface does (spec.md §6.2/§6.4). Unlike QuerySurface, which
// brackets radially from the planet center, this is meant for a host that
// already knows roughly where to look (e.g. from its own collider raycast)
// and just wants the engine's SurfacePoint fields at the crossing. Returns
// ok=false if no crossing is found within length.
func (s *Streamer) QuerySurfaceRay(origin, dir mgl32.Vec3, length float64) (meshutil.SurfacePoint, bool) {
	if dir.Len() > 1e-9 {
		dir = dir.Normalize()
	}

	step := s.chunkSize / float64(s.resolution)
	if step <= 0 {
		step = 1
	}
	steps := int(math.Ceil(length / step))
	if steps < 1 {
		steps = 1
	}
	if steps > 100000 {
		steps = 100000
	}

	prevT := 0.0
	prevD := s.field.Eval(origin)
	for i := 1; i <= steps; i++ {
		t := length * float64(i) / float64(steps)
		p := origin.Add(dir.Mul(float32(t)))
		d := s.field.Eval(p)

		if math.Abs(d) < 0.1 {
			return s.surfacePointAt(p, dir), true
		}
		if (prevD > 0) != (d > 0) {
			lo, hi := prevT, t
			loD := prevD
			var mid float64
			for iter := 0; iter < 32; iter++ {
				mid = (lo + hi) / 2
				p = origin.Add(dir.Mul(float32(mid)))
				md := s.field.Eval(p)
				if math.Abs(md) < 0.1 {
					break
				}
				if (md > 0) == (loD > 0) {
					lo = mid
				} else {
					hi = mid
				}
			}
			p = origin.Add(dir.Mul(float32(mid)))
			return s.surfacePointAt(p, dir), true
		}

		prevT, prevD = t, d
	}
	return meshutil.SurfacePoint{}, false
}

func (s *Streamer) surfacePointAt(p, rayDir mgl32.Vec3) meshutil.SurfacePoint {
	normal := s.gradientNormalAt(p)
	radial := p.Sub(s.PlanetCenter)
	r := float64(radial.Len())
	altitude := r - s.PlanetRadius

	alignDir := rayDir
	if r > 1e-9 {
		alignDir = radial.Mul(float32(1 / r))
	}
	slope := math.Acos(clamp11(float64(normal.Dot(alignDir))))

	biome := ""
	if s.field.Selector != nil && r > 1e-9 {
		weights := s.field.Selector.Select(radial.Mul(float32(1 / r)), altitude, slope)
		if len(weights) > 0 {
			biome = weights[0].Biome.Name
		}
	}

	return meshutil.SurfacePoint{Pos: p, Normal: normal, Slope: slope, Altitude: altitude, Biome: biome}
}

func (s *Streamer) gradientNormalAt(p mgl32.Vec3) mgl32.Vec3 {
	const e = 0.1
	dx := s.field.Eval(p.Add(mgl32.Vec3{e, 0, 0})) - s.field.Eval(p.Sub(mgl32.Vec3{e, 0, 0}))
	dy := s.field.Eval(p.Add(mgl32.Vec3{0, e, 0})) - s.field.Eval(p.Sub(mgl32.Vec3{0, e, 0}))
	dz := s.field.Eval(p.Add(mgl32.Vec3{0, 0, e})) - s.field.Eval(p.Sub(mgl32.Vec3{0, 0, e}))
	n := mgl32.Vec3{float32(-dx), float32(-dy), float32(-dz)}
	if n.Len() < 1e-9 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

func clamp11(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
