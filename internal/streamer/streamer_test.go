package streamer

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelplanet/internal/boundary"
	"voxelplanet/internal/chunkspace"
	"voxelplanet/internal/density"
)

func newTestStreamer(t *testing.T) *Streamer {
	t.Helper()
	field := &density.Field{
		Center:               mgl32.Vec3{0, 0, 0},
		Radius:               50,
		SurfaceBlendDistance: 6,
		MaxInteriorDensity:   10,
	}
	store := boundary.NewStore(8, 4, func(p mgl32.Vec3) float64 { return field.Eval(p) })

	settings := Settings{
		LoadDistance:     40,
		UnloadDistance:   60,
		ChunksPerFrame:   64,
		MeshesPerFrame:   64,
		MaxConcurrentGen: 4,
	}

	return New(8, 4, store, field, nil, settings, MeshCallbacks{}, nil, nil)
}

func TestTickLoadsChunksNearViewpoint(t *testing.T) {
	s := newTestStreamer(t)
	s.PlanetCenter = mgl32.Vec3{0, 0, 0}
	s.PlanetRadius = 50
	s.MaxHeight = 10
	s.MaxDepth = 10
	s.SetViewpoint(mgl32.Vec3{50, 0, 0})

	s.Tick(context.Background())

	stats := s.Stats()
	if stats.Active == 0 {
		t.Error("expected at least one chunk to become active after a tick near the surface")
	}
}

func TestUnloadSweepRemovesFarChunks(t *testing.T) {
	s := newTestStreamer(t)
	s.PlanetCenter = mgl32.Vec3{0, 0, 0}
	s.PlanetRadius = 50
	s.MaxHeight = 10
	s.MaxDepth = 10
	s.Settings.UnloadDistance = 20

	s.SetViewpoint(mgl32.Vec3{50, 0, 0})
	s.Tick(context.Background())
	before := s.Stats().Active
	if before == 0 {
		t.Skip("no chunks loaded to test unload against")
	}

	s.SetViewpoint(mgl32.Vec3{5000, 0, 0})
	s.Tick(context.Background())

	if s.Stats().Active != 0 {
		t.Errorf("expected all chunks to unload once viewpoint moved far away, got %d active", s.Stats().Active)
	}
	if s.Stats().TotalUnloaded == 0 {
		t.Error("expected TotalUnloaded to be incremented")
	}
}

func TestModifyReturnsFalseWhenNoChunkLoaded(t *testing.T) {
	s := newTestStreamer(t)
	if s.Modify(mgl32.Vec3{1000, 1000, 1000}, 2, 5, false) {
		t.Error("expected Modify to report false when no chunk intersects the edit")
	}
}

func TestModifyDirtiesLoadedChunk(t *testing.T) {
	s := newTestStreamer(t)
	s.PlanetCenter = mgl32.Vec3{0, 0, 0}
	s.PlanetRadius = 50
	s.MaxHeight = 10
	s.MaxDepth = 10
	s.SetViewpoint(mgl32.Vec3{50, 0, 0})
	s.Tick(context.Background())

	if s.Stats().Active == 0 {
		t.Skip("no chunks loaded near the surface to modify")
	}

	if !s.Modify(mgl32.Vec3{50, 0, 0}, 5, -20, true) {
		t.Error("expected Modify to dirty the chunk containing the surface point")
	}
}

func TestGetChunkAndIsLoaded(t *testing.T) {
	s := newTestStreamer(t)
	coord := chunkspace.Coord{X: 6, Y: 0, Z: 0}
	if s.IsLoaded(coord) {
		t.Error("expected coord not loaded before any tick")
	}
	if _, ok := s.GetChunk(coord); ok {
		t.Error("expected GetChunk to report absent before any tick")
	}
}
