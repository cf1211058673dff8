// Package boundary implements the process-scoped shared boundary store
// (C6, spec.md §3.4/§4.6): a deduplicating cache of density samples that
// fall on chunk boundaries, so two neighboring chunks always agree on the
// densities they share.
package boundary

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/singleflight"
)

// ChunkCoord is a signed chunk-grid coordinate (spec.md §3.1).
type ChunkCoord struct {
	X, Y, Z int32
}

// Add returns c shifted by (dx,dy,dz).
func (c ChunkCoord) Add(dx, dy, dz int32) ChunkCoord {
	return ChunkCoord{c.X + dx, c.Y + dy, c.Z + dz}
}

// Axis identifies one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// FaceDir names one of the six chunk faces.
type FaceDir struct {
	Axis     Axis
	Positive bool
}

var (
	FaceDirs = [6]FaceDir{
		{AxisX, true}, {AxisX, false},
		{AxisY, true}, {AxisY, false},
		{AxisZ, true}, {AxisZ, false},
	}
)

// latticePoint is an absolute lattice-space coordinate (world position
// divided by the voxel step), shared across every chunk that touches it.
type latticePoint struct {
	X, Y, Z int64
}

type edgeKey struct {
	min  latticePoint
	axis Axis
}

type faceKey struct {
	owner ChunkCoord
	axis  Axis
}

// DensityFunc evaluates the world density at p (see internal/density.Field.Eval).
type DensityFunc func(p mgl32.Vec3) float64

// Store is the shared boundary store. One Store instance is shared by every
// chunk in an engine; ChunkSize/Resolution/Density must not change after
// chunks begin reading from it (a seed/config change requires a fresh Store).
type Store struct {
	ChunkSize  float64
	Resolution int
	Density    DensityFunc

	mu     sync.RWMutex
	corner map[latticePoint]float32
	edge   map[edgeKey][]float32
	face   map[faceKey][][]float32

	cornerGroup singleflight.Group
	edgeGroup   singleflight.Group
	faceGroup   singleflight.Group
}

// NewStore constructs an empty boundary store.
func NewStore(chunkSize float64, resolution int, density DensityFunc) *Store {
	return &Store{
		ChunkSize:  chunkSize,
		Resolution: resolution,
		Density:    density,
		corner:     make(map[latticePoint]float32),
		edge:       make(map[edgeKey][]float32),
		face:       make(map[faceKey][][]float32),
	}
}

func (s *Store) voxelStep() float64 { return s.ChunkSize / float64(s.Resolution) }

func (s *Store) worldPos(lp latticePoint) mgl32.Vec3 {
	step := s.voxelStep()
	return mgl32.Vec3{
		float32(float64(lp.X) * step),
		float32(float64(lp.Y) * step),
		float32(float64(lp.Z) * step),
	}
}

func (s *Store) cornerLattice(chunk ChunkCoord, cornerIndex int) latticePoint {
	r := int64(s.Resolution)
	lx := int64(chunk.X) * r
	ly := int64(chunk.Y) * r
	lz := int64(chunk.Z) * r
	if cornerIndex&1 != 0 {
		lx += r
	}
	if cornerIndex&2 != 0 {
		ly += r
	}
	if cornerIndex&4 != 0 {
		lz += r
	}
	return latticePoint{lx, ly, lz}
}

// GetOrCreateCorner returns the density at one of a chunk's 8 bounding-box
// corners (cornerIndex bit 0 = +X, bit 1 = +Y, bit 2 = +Z), computing it
// once per key even under concurrent callers (spec.md §4.6 determinism).
func (s *Store) GetOrCreateCorner(chunk ChunkCoord, cornerIndex int) float32 {
	lp := s.cornerLattice(chunk, cornerIndex)

	s.mu.RLock()
	if v, ok := s.corner[lp]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	key := fmt.Sprintf("%d,%d,%d", lp.X, lp.Y, lp.Z)
	v, _, _ := s.cornerGroup.Do(key, func() (interface{}, error) {
		s.mu.RLock()
		if v, ok := s.corner[lp]; ok {
			s.mu.RUnlock()
			return v, nil
		}
		s.mu.RUnlock()

		value := float32(s.Density(s.worldPos(lp)))

		s.mu.Lock()
		s.corner[lp] = value
		s.mu.Unlock()
		return value, nil
	})
	return v.(float32)
}

// edgeDescriptor returns the edge's starting lattice point; bits select
// which of the two non-edge-axis coordinates (0 or R) the edge sits at,
// per spec.md §4.6 ("Y and Z bits identifying the offset").
func (s *Store) edgeDescriptor(chunk ChunkCoord, axis Axis, bit1, bit2 int) (latticePoint, edgeKey) {
	r := int64(s.Resolution)
	base := latticePoint{int64(chunk.X) * r, int64(chunk.Y) * r, int64(chunk.Z) * r}

	switch axis {
	case AxisX:
		if bit1 != 0 {
			base.Y += r
		}
		if bit2 != 0 {
			base.Z += r
		}
	case AxisY:
		if bit1 != 0 {
			base.X += r
		}
		if bit2 != 0 {
			base.Z += r
		}
	case AxisZ:
		if bit1 != 0 {
			base.X += r
		}
		if bit2 != 0 {
			base.Y += r
		}
	}
	return base, edgeKey{min: base, axis: axis}
}

// GetOrCreateEdge returns the R+1 densities along one of a chunk's 12
// bounding-box edges.
func (s *Store) GetOrCreateEdge(chunk ChunkCoord, axis Axis, bit1, bit2 int) []float32 {
	min, key := s.edgeDescriptor(chunk, axis, bit1, bit2)

	s.mu.RLock()
	if v, ok := s.edge[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	cacheKey := fmt.Sprintf("%d,%d,%d,%d", min.X, min.Y, min.Z, axis)
	v, _, _ := s.edgeGroup.Do(cacheKey, func() (interface{}, error) {
		s.mu.RLock()
		if v, ok := s.edge[key]; ok {
			s.mu.RUnlock()
			return v, nil
		}
		s.mu.RUnlock()

		n := s.Resolution + 1
		values := make([]float32, n)
		step := s.voxelStep()
		for i := 0; i < n; i++ {
			lp := min
			switch axis {
			case AxisX:
				lp.X += int64(i)
			case AxisY:
				lp.Y += int64(i)
			case AxisZ:
				lp.Z += int64(i)
			}
			values[i] = float32(s.Density(mgl32.Vec3{
				float32(float64(lp.X) * step),
				float32(float64(lp.Y) * step),
				float32(float64(lp.Z) * step),
			}))
		}

		s.mu.Lock()
		s.edge[key] = values
		s.mu.Unlock()
		return values, nil
	})
	return v.([]float32)
}

// faceOwner resolves the owning chunk/axis for a face request, translating
// a negative-direction request to the neighbor's positive face (spec.md
// §4.6: "the chunk with the lower coordinate on the axis owns the
// boundary").
func faceOwner(chunk ChunkCoord, dir FaceDir) (ChunkCoord, Axis) {
	if dir.Positive {
		return chunk, dir.Axis
	}
	switch dir.Axis {
	case AxisX:
		return chunk.Add(-1, 0, 0), dir.Axis
	case AxisY:
		return chunk.Add(0, -1, 0), dir.Axis
	default:
		return chunk.Add(0, 0, -1), dir.Axis
	}
}

// GetOrCreateFace returns the (R+1)x(R+1) density grid for the owner's
// positive face on dir's axis.
func (s *Store) GetOrCreateFace(chunk ChunkCoord, dir FaceDir) [][]float32 {
	owner, axis := faceOwner(chunk, dir)
	key := faceKey{owner: owner, axis: axis}

	s.mu.RLock()
	if v, ok := s.face[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	cacheKey := fmt.Sprintf("%d,%d,%d,%d", owner.X, owner.Y, owner.Z, axis)
	v, _, _ := s.faceGroup.Do(cacheKey, func() (interface{}, error) {
		s.mu.RLock()
		if v, ok := s.face[key]; ok {
			s.mu.RUnlock()
			return v, nil
		}
		s.mu.RUnlock()

		r := int64(s.Resolution)
		n := s.Resolution + 1
		step := s.voxelStep()
		base := latticePoint{int64(owner.X) * r, int64(owner.Y) * r, int64(owner.Z) * r}
		switch axis {
		case AxisX:
			base.X += r
		case AxisY:
			base.Y += r
		case AxisZ:
			base.Z += r
		}

		grid := make([][]float32, n)
		for u := 0; u < n; u++ {
			row := make([]float32, n)
			for v := 0; v < n; v++ {
				lp := base
				switch axis {
				case AxisX:
					lp.Y += int64(u)
					lp.Z += int64(v)
				case AxisY:
					lp.X += int64(u)
					lp.Z += int64(v)
				case AxisZ:
					lp.X += int64(u)
					lp.Y += int64(v)
				}
				row[v] = float32(s.Density(mgl32.Vec3{
					float32(float64(lp.X) * step),
					float32(float64(lp.Y) * step),
					float32(float64(lp.Z) * step),
				}))
			}
			grid[u] = row
		}

		s.mu.Lock()
		s.face[key] = grid
		s.mu.Unlock()
		return grid, nil
	})
	return v.([][]float32)
}

// Invalidate removes every corner, edge, and face entry touching chunk
// (spec.md §4.6).
func (s *Store) Invalidate(chunk ChunkCoord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < 8; i++ {
		delete(s.corner, s.cornerLattice(chunk, i))
	}
	for _, axis := range [3]Axis{AxisX, AxisY, AxisZ} {
		for bit1 := 0; bit1 < 2; bit1++ {
			for bit2 := 0; bit2 < 2; bit2++ {
				_, key := s.edgeDescriptor(chunk, axis, bit1, bit2)
				delete(s.edge, key)
			}
		}
	}
	for _, dir := range FaceDirs {
		owner, axis := faceOwner(chunk, dir)
		delete(s.face, faceKey{owner: owner, axis: axis})
	}
}

// Clear empties all three tables.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corner = make(map[latticePoint]float32)
	s.edge = make(map[edgeKey][]float32)
	s.face = make(map[faceKey][][]float32)
}
