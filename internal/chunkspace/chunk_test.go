package chunkspace

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelplanet/internal/boundary"
	"voxelplanet/internal/density"
)

func flatField(radius float64) *density.Field {
	return &density.Field{
		Center:               mgl32.Vec3{0, 0, 0},
		Radius:               radius,
		SurfaceBlendDistance: 4,
		MaxInteriorDensity:   10,
	}
}

func newTestChunk(coord Coord, size float64, res int, radius float64) *Chunk {
	field := flatField(radius)
	store := boundary.NewStore(size, res, func(p mgl32.Vec3) float64 { return field.Eval(p) })
	return NewChunk(coord, size, res, store, field)
}

func TestGenerateDensityFieldSetsLifecycleFlags(t *testing.T) {
	// Chunk far outside the planet radius should end up all_empty.
	c := newTestChunk(Coord{10, 10, 10}, 8, 4, 20)
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.AllEmpty {
		t.Error("expected chunk far outside radius to be all_empty")
	}
}

func TestGenerateDensityFieldInteriorIsAllSolid(t *testing.T) {
	c := newTestChunk(Coord{0, 0, 0}, 8, 4, 1000)
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.AllSolid {
		t.Error("expected chunk deep inside a huge planet to be all_solid")
	}
}

func TestGenerateDensityFieldCancellation(t *testing.T) {
	c := newTestChunk(Coord{0, 0, 0}, 8, 4, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.GenerateDensityField(ctx)
	if err != ErrCancelled {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestNeighboringChunksAgreeOnSharedCorner(t *testing.T) {
	field := flatField(50)
	store := boundary.NewStore(8, 4, func(p mgl32.Vec3) float64 { return field.Eval(p) })

	a := NewChunk(Coord{0, 0, 0}, 8, 4, store, field)
	b := NewChunk(Coord{1, 0, 0}, 8, 4, store, field)
	if err := a.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}

	av := a.at(a.Resolution, 0, 0)
	bv := b.at(0, 0, 0)
	if av != bv {
		t.Errorf("shared boundary sample disagreed: %v != %v", av, bv)
	}
}

func TestModifyOutOfBoundsReturnsFalse(t *testing.T) {
	c := newTestChunk(Coord{100, 100, 100}, 8, 4, 20)
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Modify(mgl32.Vec3{0, 0, 0}, 1, 5) {
		t.Error("expected Modify to return false for a sphere that does not intersect the chunk")
	}
}

func TestModifyMarksDirtyAndModified(t *testing.T) {
	c := newTestChunk(Coord{0, 0, 0}, 8, 4, 1000)
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	center := c.WorldPos(2, 2, 2)
	if !c.Modify(center, 4, -50) {
		t.Fatal("expected Modify to report a change")
	}
	if !c.Modified {
		t.Error("expected Modified flag to be set")
	}
	_, _, active := c.DirtyBounds()
	if !active {
		t.Error("expected dirty region to be active after Modify")
	}
}

func TestGenerateMeshClearsDirtyRegion(t *testing.T) {
	c := newTestChunk(Coord{0, 0, 0}, 8, 4, 5) // radius 5 with chunk size 8: surface crosses
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.GenerateMesh(TintOptions{}); err != nil {
		t.Fatal(err)
	}
	_, _, active := c.DirtyBounds()
	if active {
		t.Error("expected dirty region cleared after mesh generation")
	}
}

func TestGenerateMeshNilWhenNoSurfaceCrossing(t *testing.T) {
	c := newTestChunk(Coord{50, 50, 50}, 8, 4, 5) // far from the tiny planet: all air
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.GenerateMesh(TintOptions{}); err != nil {
		t.Fatal(err)
	}
	if c.Mesh != nil {
		t.Error("expected nil mesh when lattice has no surface crossing")
	}
}

func TestMeshVertexCountIsMultipleOfThree(t *testing.T) {
	c := newTestChunk(Coord{0, 0, 0}, 8, 4, 5)
	if err := c.GenerateDensityField(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.GenerateMesh(TintOptions{}); err != nil {
		t.Fatal(err)
	}
	if c.Mesh != nil && len(c.Mesh.Positions)%3 != 0 {
		t.Errorf("expected vertex count to be a multiple of 3, got %d", len(c.Mesh.Positions))
	}
}
