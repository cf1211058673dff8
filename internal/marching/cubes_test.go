package marching

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func uniformDensity(v float32) DensityFunc {
	return func(x, y, z int) float32 { return v }
}

func TestAllSolidEmitsNothing(t *testing.T) {
	tris := Extract(2, uniformDensity(1))
	if len(tris) != 0 {
		t.Errorf("expected no triangles for all-solid lattice, got %d", len(tris))
	}
}

func TestAllAirEmitsNothing(t *testing.T) {
	tris := Extract(2, uniformDensity(-1))
	if len(tris) != 0 {
		t.Errorf("expected no triangles for all-air lattice, got %d", len(tris))
	}
}

func TestSingleCrossingCubeEmitsTriangles(t *testing.T) {
	// Corner 0 (0,0,0) is air, every other corner is solid: a single
	// corner case (index bit 0 set) must emit exactly one triangle.
	density := func(x, y, z int) float32 {
		if x == 0 && y == 0 && z == 0 {
			return -1
		}
		return 1
	}
	tris := Cube(0, 0, 0, density, nil)
	if len(tris) != 1 {
		t.Fatalf("expected exactly one triangle for a single-corner crossing, got %d", len(tris))
	}
}

func TestDegenerateNearZeroGuardReturnsEndpoint(t *testing.T) {
	p1 := mgl32.Vec3{0, 0, 0}
	p2 := mgl32.Vec3{1, 0, 0}
	// A corner density exactly on the surface returns that corner's position.
	if got := vertexInterp(p1, p2, 0, 1); got != p1 {
		t.Errorf("expected v1 on the surface to return p1, got %v", got)
	}
	if got := vertexInterp(p1, p2, 1, 0); got != p2 {
		t.Errorf("expected v2 on the surface to return p2, got %v", got)
	}
}

func TestPlaneCrossingProducesManyCubes(t *testing.T) {
	density := func(x, y, z int) float32 { return float32(3 - z) }
	tris := Extract(8, density)
	// Layer z=3 has density 0 (not < 0) and z>=4 is negative, so each of the
	// 8x8 cubes spanning z=3..4 has only its four upper corners below zero
	// and emits two triangles; no other cube crosses.
	if len(tris) != 2*8*8 {
		t.Fatalf("expected a flat plane crossing to produce 2 triangles in each of the 8x8 cubes across the lattice, got %d", len(tris))
	}
}
