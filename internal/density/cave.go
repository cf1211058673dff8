package density

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"voxelplanet/internal/noise"
)

// Variant selects how cave noise octaves are combined and domain-warped
// (spec.md §4.5: "Variants ... differ only in how step 3 combines
// octaves and applies domain warping; all obey the threshold/strength/
// depth discipline above.").
type Variant int

const (
	VariantWorm Variant = iota
	VariantCavern
	VariantFracture
	VariantStratified
	VariantSponge
	VariantHybrid
)

// CaveField carves tunnels/chambers as a negative additive density
// contribution (C5, spec.md §4.5).
type CaveField struct {
	Enabled     bool
	MinDepth    float64
	MaxDepth    float64
	FadeRange   float64
	Threshold   float64
	Width       float64
	CaveDensity float64
	CellSize    float64
	Variant     Variant

	primary *noise.Layer
	warp    *noise.Layer

	center mgl32.Vec3
	radius float64

	cacheMu sync.RWMutex
	cache   map[uint64]float64
}

// NewCaveField constructs a cave field whose noise is seeded deterministically
// from seed, offset so it never collides with terrain/biome-selection noise.
func NewCaveField(variant Variant, seed int32) *CaveField {
	primary := noise.NewLayer(noise.KindPerlin, seed+5000)
	primary.Octaves = 3
	primary.Persistence = 0.5
	primary.Lacunarity = 2.0

	warp := noise.NewLayer(noise.KindSimplex, seed+6000)
	warp.Octaves = 2

	return &CaveField{
		Variant: variant,
		primary: primary,
		warp:    warp,
		cache:   make(map[uint64]float64),
	}
}

// SetFrequency configures the primary noise frequency (1/typical tunnel width).
func (c *CaveField) SetFrequency(freq float64) { c.primary.Frequency = freq }

// SetOrigin updates the planet center/radius used for depth computation,
// flushing the coarse-cell cache when either actually changes (spec.md
// §4.5: "cache is flushed when seed, center, or radius change").
func (c *CaveField) SetOrigin(center mgl32.Vec3, radius float64) {
	if c.center == center && c.radius == radius {
		return
	}
	c.center = center
	c.radius = radius
	c.cacheMu.Lock()
	c.cache = make(map[uint64]float64)
	c.cacheMu.Unlock()
}

// Eval returns the cave contribution (<= 0) at world point p.
func (c *CaveField) Eval(p mgl32.Vec3) float64 {
	if !c.Enabled {
		return 0
	}

	depth := c.radius - float64(p.Sub(c.center).Len())
	if depth < c.MinDepth || depth > c.MaxDepth {
		return 0
	}

	fade := c.depthFade(depth)

	value := c.trilinearSample(p)
	if value <= c.Threshold {
		return 0
	}

	strength := (value - c.Threshold) / (1 - c.Threshold) * c.CaveDensity * fade
	return -strength * c.Width
}

// Depth returns p's depth below the nominal sphere surface defined by
// center and this field's own radius (set via SetOrigin), used by callers
// that want a depth-dependent effect strength outside of Eval itself.
func (c *CaveField) Depth(p, center mgl32.Vec3) float64 {
	return c.radius - float64(p.Sub(center).Len())
}

// depthFade smoothsteps to 0 within FadeRange of both MinDepth and MaxDepth,
// and is 1 in the middle band (spec.md §4.5 step 2).
func (c *CaveField) depthFade(depth float64) float64 {
	fadeRange := math.Max(c.FadeRange, 1e-9)
	lo := smoothstep(0, fadeRange, depth-c.MinDepth)
	hi := smoothstep(0, fadeRange, c.MaxDepth-depth)
	return math.Min(lo, hi)
}

// trilinearSample interpolates the 8 surrounding coarse-lattice cave samples
// with smoothstep-smoothed interpolants (spec.md §4.5 final paragraph),
// normalizing the result to [0,1].
func (c *CaveField) trilinearSample(p mgl32.Vec3) float64 {
	cell := math.Max(c.CellSize, 1e-6)
	fx := float64(p.X()) / cell
	fy := float64(p.Y()) / cell
	fz := float64(p.Z()) / cell

	ix := int64(math.Floor(fx))
	iy := int64(math.Floor(fy))
	iz := int64(math.Floor(fz))

	tx := smoothstepUnit(fx - float64(ix))
	ty := smoothstepUnit(fy - float64(iy))
	tz := smoothstepUnit(fz - float64(iz))

	c000 := c.coarseSample(ix, iy, iz)
	c100 := c.coarseSample(ix+1, iy, iz)
	c010 := c.coarseSample(ix, iy+1, iz)
	c110 := c.coarseSample(ix+1, iy+1, iz)
	c001 := c.coarseSample(ix, iy, iz+1)
	c101 := c.coarseSample(ix+1, iy, iz+1)
	c011 := c.coarseSample(ix, iy+1, iz+1)
	c111 := c.coarseSample(ix+1, iy+1, iz+1)

	x00 := lerp(c000, c100, tx)
	x10 := lerp(c010, c110, tx)
	x01 := lerp(c001, c101, tx)
	x11 := lerp(c011, c111, tx)

	y0 := lerp(x00, x10, ty)
	y1 := lerp(x01, x11, ty)

	return lerp(y0, y1, tz)
}

func smoothstepUnit(t float64) float64 { return smoothstep(0, 1, t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// coarseSample returns the cached or freshly-computed raw [0,1] noise value
// at a coarse cell corner, keyed by packed (ix,iy,iz).
func (c *CaveField) coarseSample(ix, iy, iz int64) float64 {
	key := packCell(ix, iy, iz)

	c.cacheMu.RLock()
	v, ok := c.cache[key]
	c.cacheMu.RUnlock()
	if ok {
		return v
	}

	cell := math.Max(c.CellSize, 1e-6)
	x := float64(ix) * cell
	y := float64(iy) * cell
	z := float64(iz) * cell
	v = (c.combine(x, y, z) + 1) / 2

	c.cacheMu.Lock()
	c.cache[key] = v
	c.cacheMu.Unlock()

	return v
}

// combine applies the variant's octave-combination / domain-warp strategy.
func (c *CaveField) combine(x, y, z float64) float64 {
	switch c.Variant {
	case VariantCavern:
		// Ridge noise: fold the signal so low-magnitude regions become
		// wide open chambers instead of thin worms.
		v := c.primary.Evaluate(x, y, z, 0)
		return 1 - 2*math.Abs(v)
	case VariantFracture:
		// Domain-warp the sample point before evaluating the primary
		// field, producing angular fracture-like tunnels.
		wx := c.warp.Evaluate(x, y, z, 0) * 4
		wy := c.warp.Evaluate(y, z, x, 0) * 4
		wz := c.warp.Evaluate(z, x, y, 0) * 4
		return c.primary.Evaluate(x+wx, y+wy, z+wz, 0)
	case VariantStratified:
		// Horizontal banding: modulate by a slow sine of depth-axis
		// position so caves cluster into layers.
		band := math.Sin(y * 0.1)
		return c.primary.Evaluate(x, y, z, 0) * (0.5 + 0.5*band)
	case VariantSponge:
		// Cellular: take the min of two independently-offset samples of
		// the same field to carve interconnected voids.
		a := c.primary.Evaluate(x, y, z, 0)
		b := c.primary.Evaluate(x+31.7, y+17.3, z+9.1, 0)
		return math.Min(a, b)
	case VariantHybrid:
		worm := c.primary.Evaluate(x, y, z, 0)
		cavern := 1 - 2*math.Abs(c.warp.Evaluate(x, y, z, 0))
		return (worm + cavern) / 2
	default: // VariantWorm
		return c.primary.Evaluate(x, y, z, 0)
	}
}

// packCell packs signed 21-bit-biased cell coordinates into a 64-bit key
// (spec.md §4.5: "a cell-indexed cache ... keyed by (ix, iy, iz) packed
// into a 64-bit integer").
func packCell(ix, iy, iz int64) uint64 {
	const bias = 1 << 20
	const mask = (1 << 21) - 1
	ux := uint64(ix+bias) & mask
	uy := uint64(iy+bias) & mask
	uz := uint64(iz+bias) & mask
	return ux<<42 | uy<<21 | uz
}
