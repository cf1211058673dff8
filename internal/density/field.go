package density

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"voxelplanet/internal/config"
	"voxelplanet/internal/noise"
)

// Field is the deterministic 3D density function (C3, spec.md §4.3):
// sphere base, blended terrain noise, and a subtractive cave field.
type Field struct {
	Center mgl32.Vec3
	Radius float64

	SurfaceBlendDistance float64
	MaxInteriorDensity   float64

	Selector      *BiomeSelector // optional; nil falls back to GlobalLayers
	GlobalLayers  []*noise.Layer

	Caves *CaveField // optional
}

// Eval returns the density at world point p, per spec.md §4.3's 8 steps.
// Positive is solid, negative is air, the zero crossing is the surface.
func (f *Field) Eval(p mgl32.Vec3) float64 {
	toCenter := p.Sub(f.Center)
	r := float64(toCenter.Len())
	if r < 1e-9 {
		r = 1e-9
	}
	base := f.Radius - r

	blend := clamp01(1 - math.Abs(base)/math.Max(f.SurfaceBlendDistance, 1e-9))

	dir := toCenter.Mul(float32(1 / r))

	sp := dir.Mul(float32(f.Radius))
	var terrainNoise float64
	if f.Selector != nil {
		terrainNoise = f.Selector.TerrainNoise(dir, sp, -base)
	} else {
		terrainNoise = noise.EvaluateStack(f.GlobalLayers,
			float64(sp.X()), float64(sp.Y()), float64(sp.Z()))
	}

	terrain := base + terrainNoise*blend

	var caveValue float64
	caveEnabled := f.Caves != nil && f.Caves.Enabled && config.GetCavesEnabled()
	if caveEnabled {
		caveValue = f.Caves.Eval(p)
	}

	if terrain > f.MaxInteriorDensity && caveValue < 0 {
		terrain = f.MaxInteriorDensity
	}

	return terrain + caveValue
}

// Contributions returns the same result as Eval, decomposed into tagged
// terms for callers that need per-source attribution. The terrain term
// carries the blended noise together with any interior clamp.
func (f *Field) Contributions(p mgl32.Vec3) []Contribution {
	toCenter := p.Sub(f.Center)
	r := float64(toCenter.Len())
	if r < 1e-9 {
		r = 1e-9
	}
	base := f.Radius - r
	blend := clamp01(1 - math.Abs(base)/math.Max(f.SurfaceBlendDistance, 1e-9))
	dir := toCenter.Mul(float32(1 / r))

	sp := dir.Mul(float32(f.Radius))
	var terrainNoise float64
	if f.Selector != nil {
		terrainNoise = f.Selector.TerrainNoise(dir, sp, -base)
	} else {
		terrainNoise = noise.EvaluateStack(f.GlobalLayers,
			float64(sp.X()), float64(sp.Y()), float64(sp.Z()))
	}
	terrain := base + terrainNoise*blend

	var caveValue float64
	if f.Caves != nil && f.Caves.Enabled && config.GetCavesEnabled() {
		caveValue = f.Caves.Eval(p)
	}
	if terrain > f.MaxInteriorDensity && caveValue < 0 {
		terrain = f.MaxInteriorDensity
	}

	terms := []Contribution{{Kind: ContributionBase, Value: base}}
	if terrain != base {
		terms = append(terms, Contribution{Kind: ContributionTerrain, Value: terrain - base})
	}
	if caveValue != 0 {
		terms = append(terms, Contribution{Kind: ContributionCave, Value: caveValue})
	}
	return terms
}
