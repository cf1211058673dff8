// Package chunkspace implements the chunk type (C7): its density lattice,
// dirty-region tracking, terrain modification, and mesh generation.
package chunkspace

import (
	"context"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"voxelplanet/internal/boundary"
	"voxelplanet/internal/density"
	"voxelplanet/internal/marching"
	"voxelplanet/internal/meshutil"
	"voxelplanet/internal/profiling"
)

// Coord is a chunk-grid coordinate.
type Coord = boundary.ChunkCoord

// Mesh is the generated geometry for a chunk (spec.md §3.6). No shared
// vertices are required across marching-cubes cells, so Indices is a
// trivial 0..N-1 sequence kept for API uniformity with 32-bit-index
// consumers.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Colors    []mgl32.Vec4
	Indices   []uint32
}

// maxIndex32 bounds vertex count before the mesh is considered to exceed
// the 32-bit index budget (spec.md §7 index_overflow).
const maxIndex32 = math.MaxUint32

// Chunk owns its density lattice and mesh exclusively; it holds a
// non-owning reference to the shared boundary store and density field
// (spec.md §3.3).
type Chunk struct {
	Coord      Coord
	Size       float64
	Resolution int

	store *boundary.Store
	field *density.Field

	mu       sync.RWMutex
	lattice  []float32 // (R+1)^3, flattened [z][y][x]
	AllEmpty bool
	AllSolid bool
	Modified bool
	Failed   bool

	dirtyMin    [3]int
	dirtyMax    [3]int
	dirtyActive bool

	Mesh          *Mesh
	SurfacePoints []meshutil.SurfacePoint

	cancelled bool
}

// NewChunk constructs an empty chunk bound to the given store and density
// field; GenerateDensityField must be called before meshing.
func NewChunk(coord Coord, size float64, resolution int, store *boundary.Store, field *density.Field) *Chunk {
	n := resolution + 1
	return &Chunk{
		Coord:      coord,
		Size:       size,
		Resolution: resolution,
		store:      store,
		field:      field,
		lattice:    make([]float32, n*n*n),
	}
}

func (c *Chunk) n() int { return c.Resolution + 1 }

func (c *Chunk) idx(x, y, z int) int {
	n := c.n()
	return (z*n+y)*n + x
}

func (c *Chunk) at(x, y, z int) float32 {
	return c.lattice[c.idx(x, y, z)]
}

func (c *Chunk) set(x, y, z int, v float32) {
	c.lattice[c.idx(x, y, z)] = v
}

// voxelStep returns the world length of one lattice cell edge.
func (c *Chunk) voxelStep() float64 { return c.Size / float64(c.Resolution) }

// WorldPos converts a lattice index to a world position.
func (c *Chunk) WorldPos(x, y, z int) mgl32.Vec3 {
	step := c.voxelStep()
	origin := mgl32.Vec3{
		float32(c.Size) * float32(c.Coord.X),
		float32(c.Size) * float32(c.Coord.Y),
		float32(c.Size) * float32(c.Coord.Z),
	}
	return origin.Add(mgl32.Vec3{float32(float64(x) * step), float32(float64(y) * step), float32(float64(z) * step)})
}

// Cancel marks an in-progress generation to be abandoned at the next phase
// boundary (spec.md §5 cancellation).
func (c *Chunk) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

func (c *Chunk) isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancelled
}

// GenerateDensityField fills the (R+1)^3 lattice in the four phases
// required by spec.md §4.7/§5: corners and edges and faces from the
// shared boundary store, then interior points directly from the density
// field. Checks for cancellation at each phase boundary.
func (c *Chunk) GenerateDensityField(ctx context.Context) error {
	defer profiling.Track("chunkspace.GenerateDensityField")()
	r := c.Resolution

	// Phase 1: 8 corners.
	for i := 0; i < 8; i++ {
		x, y, z := 0, 0, 0
		if i&1 != 0 {
			x = r
		}
		if i&2 != 0 {
			y = r
		}
		if i&4 != 0 {
			z = r
		}
		c.set(x, y, z, c.store.GetOrCreateCorner(c.Coord, i))
	}
	if c.isCancelled(ctx) {
		return ErrCancelled
	}

	// Phase 2: 12 edges, skipping the endpoints already set by phase 1.
	axes := [3]boundary.Axis{boundary.AxisX, boundary.AxisY, boundary.AxisZ}
	for _, axis := range axes {
		for bit1 := 0; bit1 < 2; bit1++ {
			for bit2 := 0; bit2 < 2; bit2++ {
				values := c.store.GetOrCreateEdge(c.Coord, axis, bit1, bit2)
				c.applyEdge(axis, bit1, bit2, values)
			}
		}
	}
	if c.isCancelled(ctx) {
		return ErrCancelled
	}

	// Phase 3: 6 faces, skipping cells already set by edges.
	for _, dir := range boundary.FaceDirs {
		grid := c.store.GetOrCreateFace(c.Coord, dir)
		c.applyFace(dir, grid)
	}
	if c.isCancelled(ctx) {
		return ErrCancelled
	}

	// Phase 4: interior points, sampled directly.
	for z := 1; z < r; z++ {
		for y := 1; y < r; y++ {
			for x := 1; x < r; x++ {
				v := c.field.Eval(c.WorldPos(x, y, z))
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				c.set(x, y, z, float32(v))
			}
		}
		if c.isCancelled(ctx) {
			return ErrCancelled
		}
	}

	c.computeLifecycleFlags()
	return nil
}

func (c *Chunk) applyEdge(axis boundary.Axis, bit1, bit2 int, values []float32) {
	r := c.Resolution
	for i := 1; i < r; i++ { // endpoints belong to corners
		var x, y, z int
		switch axis {
		case boundary.AxisX:
			x, y, z = i, bit1*r, bit2*r
		case boundary.AxisY:
			x, y, z = bit1*r, i, bit2*r
		default:
			x, y, z = bit1*r, bit2*r, i
		}
		c.set(x, y, z, values[i])
	}
}

func (c *Chunk) applyFace(dir boundary.FaceDir, grid [][]float32) {
	r := c.Resolution
	fixed := 0
	if dir.Positive {
		fixed = r
	}
	for u := 1; u < r; u++ {
		for v := 1; v < r; v++ {
			var x, y, z int
			switch dir.Axis {
			case boundary.AxisX:
				x, y, z = fixed, u, v
			case boundary.AxisY:
				x, y, z = u, fixed, v
			default:
				x, y, z = u, v, fixed
			}
			c.set(x, y, z, grid[u][v])
		}
	}
}

func (c *Chunk) computeLifecycleFlags() {
	allEmpty, allSolid := true, true
	for _, v := range c.lattice {
		if v < 0 {
			allSolid = false
		} else {
			allEmpty = false
		}
		if !allEmpty && !allSolid {
			break
		}
	}
	c.AllEmpty = allEmpty
	c.AllSolid = allSolid
}

// MarkDirty expands the dirty-region AABB (in lattice indices) to include
// [min,max].
func (c *Chunk) MarkDirty(min, max [3]int) {
	if !c.dirtyActive {
		c.dirtyMin, c.dirtyMax = min, max
		c.dirtyActive = true
		return
	}
	for i := 0; i < 3; i++ {
		if min[i] < c.dirtyMin[i] {
			c.dirtyMin[i] = min[i]
		}
		if max[i] > c.dirtyMax[i] {
			c.dirtyMax[i] = max[i]
		}
	}
}

func (c *Chunk) clearDirty() {
	c.dirtyActive = false
}

// aabbMin/aabbMax are the chunk's world-space bounding box.
func (c *Chunk) aabbMin() mgl32.Vec3 { return c.WorldPos(0, 0, 0) }
func (c *Chunk) aabbMax() mgl32.Vec3 { return c.WorldPos(c.Resolution, c.Resolution, c.Resolution) }

// IntersectsSphere reports whether the chunk's AABB intersects a world
// sphere, used by the streamer to find chunks affected by an edit.
func (c *Chunk) IntersectsSphere(center mgl32.Vec3, radius float64) bool {
	lo, hi := c.aabbMin(), c.aabbMax()
	closest := mgl32.Vec3{
		clampf(center.X(), lo.X(), hi.X()),
		clampf(center.Y(), lo.Y(), hi.Y()),
		clampf(center.Z(), lo.Z(), hi.Z()),
	}
	return float64(closest.Sub(center).Len()) <= radius
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Modify adds a quadratic-falloff density bump centered at a world point
// to every lattice sample within radius (spec.md §4.7). Returns false
// (modify_out_of_bounds) if the sphere does not intersect the chunk.
func (c *Chunk) Modify(center mgl32.Vec3, radius, strength float64) bool {
	if !c.IntersectsSphere(center, radius) {
		return false
	}

	step := c.voxelStep()
	origin := c.aabbMin()

	minIdx := [3]int{
		clampIdx(int(math.Floor((float64(center.X())-radius-float64(origin.X()))/step)), 0, c.Resolution),
		clampIdx(int(math.Floor((float64(center.Y())-radius-float64(origin.Y()))/step)), 0, c.Resolution),
		clampIdx(int(math.Floor((float64(center.Z())-radius-float64(origin.Z()))/step)), 0, c.Resolution),
	}
	maxIdx := [3]int{
		clampIdx(int(math.Ceil((float64(center.X())+radius-float64(origin.X()))/step)), 0, c.Resolution),
		clampIdx(int(math.Ceil((float64(center.Y())+radius-float64(origin.Y()))/step)), 0, c.Resolution),
		clampIdx(int(math.Ceil((float64(center.Z())+radius-float64(origin.Z()))/step)), 0, c.Resolution),
	}

	changed := false
	for z := minIdx[2]; z <= maxIdx[2]; z++ {
		for y := minIdx[1]; y <= maxIdx[1]; y++ {
			for x := minIdx[0]; x <= maxIdx[0]; x++ {
				p := c.WorldPos(x, y, z)
				dist := float64(p.Sub(center).Len())
				if dist > radius {
					continue
				}
				falloff := (1 - dist/radius)
				falloff *= falloff
				c.set(x, y, z, c.at(x, y, z)+float32(strength*falloff))
				changed = true
			}
		}
	}

	if changed {
		c.MarkDirty(minIdx, maxIdx)
		c.Modified = true
		c.computeLifecycleFlags()
	}
	return changed
}

func clampIdx(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TintOptions forwards to meshutil.TintOptions, filled in by the caller
// (typically the streamer, which owns the biome selector and cave field).
type TintOptions = meshutil.TintOptions

// GenerateMesh runs marching cubes over the chunk's lattice. If the
// lattice has no surface crossing the mesh is cleared. Normals are
// recomputed from the density gradient (spec.md §4.7 allows either
// gradient or mesh-geometry normals); colors come from meshutil tinting.
func (c *Chunk) GenerateMesh(tint TintOptions) error {
	defer profiling.Track("chunkspace.GenerateMesh")()
	if c.AllEmpty || c.AllSolid || !meshutil.SurfaceCrosses(c.Resolution, c.at3) {
		c.Mesh = nil
		c.clearDirty()
		return nil
	}

	tris := marching.Extract(c.Resolution, c.at3)

	vertexCount := len(tris) * 3
	if uint64(vertexCount) > maxIndex32 {
		c.Failed = true
		return ErrTooManyVertices
	}

	positions := make([]mgl32.Vec3, 0, vertexCount)
	for _, t := range tris {
		positions = append(positions, c.toWorld(t.A), c.toWorld(t.B), c.toWorld(t.C))
	}

	normals := make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		normals[i] = c.gradientNormal(p)
	}

	colors := meshutil.TintVertices(positions, normals, tint)

	indices := make([]uint32, len(positions))
	for i := range indices {
		indices[i] = uint32(i)
	}

	c.Mesh = &Mesh{Positions: positions, Normals: normals, Colors: colors, Indices: indices}
	c.clearDirty()
	return nil
}

// at3 adapts the flattened lattice to marching.DensityFunc.
func (c *Chunk) at3(x, y, z int) float32 { return c.at(x, y, z) }

// toWorld converts a marching-cubes vertex (in lattice-index space,
// fractional) to a world position.
func (c *Chunk) toWorld(p mgl32.Vec3) mgl32.Vec3 {
	step := float32(c.voxelStep())
	origin := c.aabbMin()
	return origin.Add(p.Mul(step))
}

const gradientEpsilon = 0.05

func (c *Chunk) gradientNormal(p mgl32.Vec3) mgl32.Vec3 {
	e := float32(gradientEpsilon)
	dx := c.field.Eval(p.Add(mgl32.Vec3{e, 0, 0})) - c.field.Eval(p.Sub(mgl32.Vec3{e, 0, 0}))
	dy := c.field.Eval(p.Add(mgl32.Vec3{0, e, 0})) - c.field.Eval(p.Sub(mgl32.Vec3{0, e, 0}))
	dz := c.field.Eval(p.Add(mgl32.Vec3{0, 0, e})) - c.field.Eval(p.Sub(mgl32.Vec3{0, 0, e}))
	// Density decreases outward, so the gradient points inward; negate it
	// so normals point from solid to air.
	n := mgl32.Vec3{float32(-dx), float32(-dy), float32(-dz)}
	if n.Len() < 1e-9 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

// SampleSurfacePoints strides over the chunk's mesh vertices (spec.md
// §4.9) and caches the result.
func (c *Chunk) SampleSurfacePoints(opts meshutil.SampleOptions) []meshutil.SurfacePoint {
	if c.Mesh == nil {
		c.SurfacePoints = nil
		return nil
	}
	c.SurfacePoints = meshutil.SamplePoints(c.Mesh.Positions, c.Mesh.Normals, opts)
	return c.SurfacePoints
}

// DirtyBounds returns the current dirty-region AABB in lattice indices and
// whether one is active.
func (c *Chunk) DirtyBounds() (min, max [3]int, active bool) {
	return c.dirtyMin, c.dirtyMax, c.dirtyActive
}
