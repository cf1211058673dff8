// Package meshutil implements the mesh-level utilities in spec.md §4.9
// (C9): the surface-crossing test, vertex color tinting, and
// surface-point sampling used by external decorators.
package meshutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"voxelplanet/internal/density"
)

// SurfaceCrosses reports whether the (R+1)^3 lattice sampled by density
// contains at least one sample < 0 and at least one sample >= 0, with
// early exit once both have been observed (spec.md §4.9).
func SurfaceCrosses(resolution int, sample func(x, y, z int) float32) bool {
	sawNegative, sawNonNegative := false, false
	for z := 0; z <= resolution; z++ {
		for y := 0; y <= resolution; y++ {
			for x := 0; x <= resolution; x++ {
				if sample(x, y, z) < 0 {
					sawNegative = true
				} else {
					sawNonNegative = true
				}
				if sawNegative && sawNonNegative {
					return true
				}
			}
		}
	}
	return false
}

// SurfacePoint is one sampled surface location for external decorators
// (spec.md §4.9).
type SurfacePoint struct {
	Pos      mgl32.Vec3
	Normal   mgl32.Vec3
	Slope    float64 // radians between normal and the planet-radial direction
	Altitude float64 // distance above the nominal sphere surface
	Biome    string
}

// TintOptions configures vertex color tinting.
type TintOptions struct {
	Center        mgl32.Vec3
	Radius        float64 // nominal sphere radius, for Selector altitude/slope predicates
	Selector      *density.BiomeSelector // optional
	DefaultColor  mgl32.Vec4
	Caves         *density.CaveField // optional
	CaveColor     mgl32.Vec4
	CaveFullDepth float64 // depth at which cave tint reaches full strength
}

// TintVertices computes a per-vertex color for each position: biome debug
// colors blended by selector weight, then interpolated toward a
// depth-dependent cave color wherever the position falls inside carved-out
// cave volume (spec.md §4.9: "if the position is inside a cave region,
// linearly interpolate the surface color toward a depth-dependent cave
// color"). normals must be the same length as positions.
func TintVertices(positions, normals []mgl32.Vec3, opts TintOptions) []mgl32.Vec4 {
	colors := make([]mgl32.Vec4, len(positions))
	for i, p := range positions {
		var n mgl32.Vec3
		if i < len(normals) {
			n = normals[i]
		}
		colors[i] = tintOne(p, n, opts)
	}
	return colors
}

func tintOne(p, normal mgl32.Vec3, opts TintOptions) mgl32.Vec4 {
	toCenter := p.Sub(opts.Center)
	r := toCenter.Len()
	base := opts.DefaultColor

	if opts.Selector != nil && r > 1e-6 {
		dir := toCenter.Mul(1 / r)
		altitude := float64(r) - opts.Radius
		slope := math.Acos(clamp11(float64(normal.Dot(dir))))
		weights := opts.Selector.Select(dir, altitude, slope)
		var blended mgl32.Vec4
		total := 0.0
		for _, w := range weights {
			c := w.Biome.DebugColor
			blended = blended.Add(mgl32.Vec4{c[0], c[1], c[2], c[3]}.Mul(float32(w.W)))
			total += w.W
		}
		if total > 0 {
			base = blended
		}
	}

	if opts.Caves != nil && opts.Caves.Enabled {
		if opts.Caves.Eval(p) < 0 {
			depth := opts.Caves.Depth(p, opts.Center)
			t := clamp01(depth / math.Max(opts.CaveFullDepth, 1e-9))
			base = lerpColor(base, opts.CaveColor, float32(t))
		}
	}

	return base
}

func lerpColor(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SampleOptions bounds SamplePoints output.
type SampleOptions struct {
	Center        mgl32.Vec3
	Radius        float64
	MinAlignment  float64 // minimum dot(normal, radial direction)
	MinAltitude   float64
	Stride        int
	TargetCount   int
	BiomeOf       func(dir mgl32.Vec3) string
}

// SamplePoints strides over mesh vertices, keeping those whose world
// normal has positive alignment with the planet-radial direction above
// opts.MinAlignment and whose altitude exceeds opts.MinAltitude, up to
// opts.TargetCount results (spec.md §4.9).
func SamplePoints(positions, normals []mgl32.Vec3, opts SampleOptions) []SurfacePoint {
	stride := opts.Stride
	if stride < 1 {
		stride = 1
	}

	var out []SurfacePoint
	for i := 0; i < len(positions) && i < len(normals); i += stride {
		if opts.TargetCount > 0 && len(out) >= opts.TargetCount {
			break
		}
		p := positions[i]
		n := normals[i]

		toCenter := p.Sub(opts.Center)
		r := float64(toCenter.Len())
		if r < 1e-6 {
			continue
		}
		dir := toCenter.Mul(float32(1 / r))
		altitude := r - opts.Radius

		alignment := float64(n.Dot(dir))
		if alignment < opts.MinAlignment {
			continue
		}
		if altitude < opts.MinAltitude {
			continue
		}

		slope := math.Acos(clamp11(alignment))

		biome := ""
		if opts.BiomeOf != nil {
			biome = opts.BiomeOf(dir)
		}

		out = append(out, SurfacePoint{
			Pos:      p,
			Normal:   n,
			Slope:    slope,
			Altitude: altitude,
			Biome:    biome,
		})
	}
	return out
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
