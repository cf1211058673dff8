package density

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"voxelplanet/internal/noise"
)

// Weight pairs a biome with its blend contribution, w in [0,1] (spec.md §3.5).
type Weight struct {
	Biome *Biome
	W     float64
}

// BiomeSelector maps a normalized surface direction to a weighted set of
// biomes via a large-scale selection noise (C4, spec.md §4.4).
type BiomeSelector struct {
	Biomes       []*Biome
	Arena        *LayerArena
	Selection    *noise.Layer
	SampleRadius float64
	BlendWidth   float64
	Contrast     float64

	cacheMu        sync.Mutex
	cached         bool
	cachedDir      mgl32.Vec3
	cachedAltitude float64
	cachedSlope    float64
	cachedOut      []Weight
}

const positionCacheEpsilon = 1e-6

// Select returns the biome weights for a normalized surface direction n at
// the given altitude (height above the nominal sphere surface) and slope
// (radians between the surface normal and the radial direction), per
// spec.md §4.4. altitude/slope feed Biome.Allows (spec.md §3.5's
// application predicate); callers that cannot yet know one of the two
// (density generation has no mesh normal to derive slope from) pass 0,
// which a biome with no slope constraint treats as unconstrained. Results
// are cached for the last query (position equality at fixed epsilon, as
// the spec allows).
func (s *BiomeSelector) Select(n mgl32.Vec3, altitude, slope float64) []Weight {
	s.cacheMu.Lock()
	if s.cached && n.Sub(s.cachedDir).Len() < positionCacheEpsilon &&
		math.Abs(altitude-s.cachedAltitude) < positionCacheEpsilon &&
		math.Abs(slope-s.cachedSlope) < positionCacheEpsilon {
		out := s.cachedOut
		s.cacheMu.Unlock()
		return out
	}
	s.cacheMu.Unlock()

	out := s.compute(n, altitude, slope)

	s.cacheMu.Lock()
	s.cached = true
	s.cachedDir = n
	s.cachedAltitude = altitude
	s.cachedSlope = slope
	s.cachedOut = out
	s.cacheMu.Unlock()

	return out
}

func (s *BiomeSelector) compute(n mgl32.Vec3, altitude, slope float64) []Weight {
	numBiomes := len(s.Biomes)
	if numBiomes == 0 {
		return nil
	}

	p := n.Mul(float32(s.SampleRadius))
	raw := s.Selection.Evaluate(float64(p.X()), float64(p.Y()), float64(p.Z()), 0)

	t := (raw + 1) / 2
	if s.Contrast > 0 && s.Contrast != 1 {
		sign := 1.0
		if t < 0.5 {
			sign = -1.0
		}
		t = sign*math.Pow(math.Abs(2*t-1), 1/s.Contrast)/2 + 0.5
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	i := int(t * float64(numBiomes))
	if i >= numBiomes {
		i = numBiomes - 1
	}
	if i < 0 {
		i = 0
	}

	// Distance (in t-space) to the nearest boundary of this biome's band.
	bandLo := float64(i) / float64(numBiomes)
	bandHi := float64(i+1) / float64(numBiomes)
	distToLo := t - bandLo
	distToHi := bandHi - t

	var weights []Weight
	if distToLo < s.BlendWidth && i > 0 {
		// Blend with the lower-index neighbor; at the boundary (frac=0)
		// the weights are exactly 0.5/0.5, not 0/1, reaching 1/0 at the
		// far edge of the blend band (frac=1).
		frac := distToLo / math.Max(s.BlendWidth, 1e-9)
		w := 0.5 + 0.5*smoothstep(0, 1, frac)
		weights = []Weight{
			{Biome: s.Biomes[i-1], W: 1 - w},
			{Biome: s.Biomes[i], W: w},
		}
	} else if distToHi < s.BlendWidth && i < numBiomes-1 {
		frac := distToHi / math.Max(s.BlendWidth, 1e-9)
		w := 0.5 + 0.5*smoothstep(0, 1, frac)
		weights = []Weight{
			{Biome: s.Biomes[i], W: w},
			{Biome: s.Biomes[i+1], W: 1 - w},
		}
	} else {
		weights = []Weight{{Biome: s.Biomes[i], W: 1}}
	}

	return s.applyPredicate(weights, i, n, slope, altitude)
}

// applyPredicate drops any candidate from the noise-chosen band whose
// application predicate (spec.md §3.5: max slope, altitude range, allowed
// surface directions) rejects this sample, renormalizing the surviving
// weights so they still sum to 1. If the whole band is rejected, it falls
// back to the nearest allowed biome by index distance, so a polar-only or
// altitude-restricted biome never leaks into a direction/altitude it was
// configured to exclude just because it won the noise band. If no biome
// allows the sample at all (a degenerate biome list), the original
// unconstrained pick is returned rather than leaving terrain with no biome.
func (s *BiomeSelector) applyPredicate(weights []Weight, primary int, dir mgl32.Vec3, slope, altitude float64) []Weight {
	kept := weights[:0:0]
	totalW := 0.0
	for _, w := range weights {
		if w.Biome.Allows(dir, slope, altitude) {
			kept = append(kept, w)
			totalW += w.W
		}
	}
	if len(kept) == len(weights) {
		return weights
	}
	if len(kept) > 0 {
		for i := range kept {
			kept[i].W /= totalW
		}
		return kept
	}

	best := -1
	bestDist := len(s.Biomes) + 1
	for i, b := range s.Biomes {
		if !b.Allows(dir, slope, altitude) {
			continue
		}
		d := i - primary
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best >= 0 {
		return []Weight{{Biome: s.Biomes[best], W: 1}}
	}

	return weights
}

// TerrainNoise computes the biome-weighted combined terrain noise at
// world point p, given its altitude above the nominal sphere surface
// (spec.md §4.4 step 5). Slope is not yet known at density-generation
// time (it is derived from the mesh normal, which does not exist until
// after density generation), so biome selection here constrains only by
// direction and altitude; slope is passed as 0, which any biome without
// a MaxSlope constraint treats as unconstrained.
func (s *BiomeSelector) TerrainNoise(dir mgl32.Vec3, p mgl32.Vec3, altitude float64) float64 {
	weights := s.Select(dir, altitude, 0)
	if len(weights) == 0 {
		return 0
	}

	sum := 0.0
	totalW := 0.0
	for _, w := range weights {
		layers := s.Arena.Range(w.Biome.LayerStart, w.Biome.LayerEnd)
		layerSum := noise.EvaluateStack(layers, float64(p.X()), float64(p.Y()), float64(p.Z()))
		sum += w.W * (layerSum*w.Biome.HeightMultiplier + w.Biome.HeightOffset)
		totalW += w.W
	}
	if totalW == 0 {
		return 0
	}
	return sum / totalW
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
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
