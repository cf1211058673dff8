package density

import "github.com/go-gl/mathgl/mgl32"

// Biome is a named terrain variant selected by surface direction (C4,
// spec.md §3.5). Its noise layers live in a shared LayerArena, referenced
// by [LayerStart, LayerEnd).
type Biome struct {
	Name             string
	LayerStart       int
	LayerEnd         int
	HeightMultiplier float64
	HeightOffset     float64
	DebugColor       [4]float32

	// Application predicate (spec.md §3.5: "maximum slope, altitude
	// range, allowed surface directions").
	MaxSlope             float64 // radians; 0 means unconstrained
	MinAltitude          float64
	MaxAltitude          float64 // 0 with MinAltitude==0 means unconstrained
	PoleAxis             mgl32.Vec3
	MinPoleAlignment     float64 // dot(dir, PoleAxis) must be >= this; ignored if PoleAxis is zero
}

// Allows reports whether this biome's predicate admits the given sample.
// slope is the angle in radians between the surface normal and the radial
// direction; altitude is height above the nominal sphere surface.
func (b *Biome) Allows(dir mgl32.Vec3, slope, altitude float64) bool {
	if b.MaxSlope > 0 && slope > b.MaxSlope {
		return false
	}
	if b.MinAltitude != 0 || b.MaxAltitude != 0 {
		if altitude < b.MinAltitude || altitude > b.MaxAltitude {
			return false
		}
	}
	if b.PoleAxis.LenSqr() > 1e-12 {
		if float64(dir.Dot(b.PoleAxis.Normalize())) < b.MinPoleAlignment {
			return false
		}
	}
	return true
}
