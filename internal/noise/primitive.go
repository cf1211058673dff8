// Package noise provides deterministic 3D scalar noise primitives (C1)
// and stacked-octave noise layers (C2).
package noise

import (
	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Primitive3D is a pure function noise3(p, seed) -> s in [-1, 1].
// Implementations must be deterministic per (p, seed) and Lipschitz-continuous.
type Primitive3D interface {
	Eval3(x, y, z float64) float64
}

// Kind selects which Primitive3D backs a Layer.
type Kind int

const (
	// KindSimplex uses github.com/ojrac/opensimplex-go, the default terrain engine.
	KindSimplex Kind = iota
	// KindPerlin uses github.com/aquilax/go-perlin, used by default for cave noise
	// so caves read as a visibly different texture from terrain.
	KindPerlin
)

// NewPrimitive constructs the Primitive3D for kind, seeded deterministically.
func NewPrimitive(kind Kind, seed int32) Primitive3D {
	switch kind {
	case KindPerlin:
		return newPerlinPrimitive(seed)
	default:
		return &simplexPrimitive{gen: opensimplex.NewNormalized(int64(seed))}
	}
}

// simplexPrimitive wraps opensimplex-go. NewNormalized returns [0,1]; we
// remap to the [-1,1] contract documented in spec.md §4.1.
type simplexPrimitive struct {
	gen opensimplex.Noise
}

func (s *simplexPrimitive) Eval3(x, y, z float64) float64 {
	v := s.gen.Eval3(x, y, z)
	return v*2 - 1
}

// perlinPrimitive wraps aquilax/go-perlin, which is already approximately
// in [-1,1] for reasonable alpha/beta, and is itself already an octave
// generator; we drive it with a single dominant octave and let Layer (C2)
// own the fBM stacking so both Kinds share one evaluation order.
type perlinPrimitive struct {
	gen *perlin.Perlin
}

func newPerlinPrimitive(seed int32) *perlinPrimitive {
	const (
		alpha = 2.0
		beta  = 2.0
		n     = int32(1)
	)
	return &perlinPrimitive{gen: perlin.NewPerlin(alpha, beta, n, int64(seed))}
}

func (p *perlinPrimitive) Eval3(x, y, z float64) float64 {
	v := p.gen.Noise3D(x, y, z)
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return v
}
