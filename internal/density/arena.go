package density

import "voxelplanet/internal/noise"

// LayerArena is a flat store of noise layers indexed by range, replacing
// the reflective per-biome layer list the source used (spec.md §9:
// "replace the reflective layer list with an arena of noise-layer
// configurations and indices into the arena; biome configs hold index
// ranges").
type LayerArena struct {
	layers []*noise.Layer
}

// Add appends a layer to the arena and returns its index.
func (a *LayerArena) Add(l *noise.Layer) int {
	a.layers = append(a.layers, l)
	return len(a.layers) - 1
}

// Len returns the number of layers currently in the arena, i.e. the next
// free index a caller should use as a range's start.
func (a *LayerArena) Len() int { return len(a.layers) }

// Range returns the half-open [start,end) slice of layers, as owned by a biome.
func (a *LayerArena) Range(start, end int) []*noise.Layer {
	if start < 0 || end > len(a.layers) || start > end {
		return nil
	}
	return a.layers[start:end]
}
