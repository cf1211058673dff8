// Package engine wires the noise, density, boundary, chunk, and streamer
// layers into the public runtime API described in spec.md §6.
package engine

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxelplanet/internal/boundary"
	"voxelplanet/internal/chunkspace"
	"voxelplanet/internal/config"
	"voxelplanet/internal/density"
	"voxelplanet/internal/meshutil"
	"voxelplanet/internal/noise"
	"voxelplanet/internal/ratelimit"
	"voxelplanet/internal/streamer"
)

// RendererSink receives chunk meshes for display (spec.md §6.3).
type RendererSink interface {
	OnChunkMeshReady(coord chunkspace.Coord, mesh *chunkspace.Mesh)
	OnChunkMeshCleared(coord chunkspace.Coord)
}

// ColliderSink receives chunk meshes for collision. A host may register the
// same concrete type for both roles; spec.md §6.3 leaves that decision to
// the host.
type ColliderSink interface {
	OnChunkMeshReady(coord chunkspace.Coord, mesh *chunkspace.Mesh)
	OnChunkMeshCleared(coord chunkspace.Coord)
}

// Sinks builds streamer.MeshCallbacks from a renderer and an optional
// collider sink, fanning each mesh event out to whichever sinks are set.
func Sinks(renderer RendererSink, collider ColliderSink) streamer.MeshCallbacks {
	return streamer.MeshCallbacks{
		OnMeshReady: func(coord chunkspace.Coord, mesh *chunkspace.Mesh) {
			if renderer != nil {
				renderer.OnChunkMeshReady(coord, mesh)
			}
			if collider != nil {
				collider.OnChunkMeshReady(coord, mesh)
			}
		},
		OnMeshCleared: func(coord chunkspace.Coord) {
			if renderer != nil {
				renderer.OnChunkMeshCleared(coord)
			}
			if collider != nil {
				collider.OnChunkMeshCleared(coord)
			}
		},
	}
}

// Engine is the top-level runtime object a host constructs once per
// loaded world.
type Engine struct {
	cfg    *config.EngineConfig
	field  *density.Field
	store  *boundary.Store
	stream *streamer.Streamer
	log    *zap.SugaredLogger
}

// New validates cfg and assembles an Engine. The only error this (or any
// other public method) returns is *config.ConfigInvalidError, per
// spec.md §7's propagation policy.
func New(cfg *config.EngineConfig, callbacks streamer.MeshCallbacks, log *zap.SugaredLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	center := mgl32.Vec3{cfg.Planet.Center.X, cfg.Planet.Center.Y, cfg.Planet.Center.Z}

	field := &density.Field{
		Center:               center,
		Radius:               float64(cfg.Planet.Radius),
		SurfaceBlendDistance: float64(cfg.Planet.SurfaceBlendDistance),
		MaxInteriorDensity:   float64(cfg.Planet.MaxInteriorDensity),
	}

	arena := &density.LayerArena{}

	if len(cfg.Biomes) > 0 {
		selection := buildLayer(cfg.BiomeSelect.Noise, cfg.Seed+9999)
		biomes := make([]*density.Biome, len(cfg.Biomes))
		for i, bc := range cfg.Biomes {
			start := arena.Len()
			for j, lc := range bc.Layers {
				arena.Add(buildLayer(lc, cfg.Seed+int32(i)+int32(j)*37))
			}
			end := start + len(bc.Layers)
			biomes[i] = &density.Biome{
				Name:             bc.Name,
				LayerStart:       start,
				LayerEnd:         end,
				HeightMultiplier: bc.HeightMultiplier,
				HeightOffset:     bc.HeightOffset,
				DebugColor:       bc.DebugColor,
				MaxSlope:         bc.MaxSlope,
				MinAltitude:      bc.MinAltitude,
				MaxAltitude:      bc.MaxAltitude,
				PoleAxis:         mgl32.Vec3{bc.PoleAxis.X, bc.PoleAxis.Y, bc.PoleAxis.Z},
				MinPoleAlignment: bc.MinPoleAlignment,
			}
		}
		field.Selector = &density.BiomeSelector{
			Biomes:       biomes,
			Arena:        arena,
			Selection:    selection,
			SampleRadius: cfg.BiomeSelect.SampleRadius,
			BlendWidth:   cfg.BiomeSelect.BlendWidth,
			Contrast:     cfg.BiomeSelect.Contrast,
		}
	} else {
		layers := make([]*noise.Layer, len(cfg.TerrainLayers))
		for i, lc := range cfg.TerrainLayers {
			layers[i] = buildLayer(lc, cfg.Seed+int32(i))
		}
		field.GlobalLayers = layers
	}

	config.SetCavesEnabled(cfg.Caves.Enabled)

	if cfg.Caves.Enabled {
		caves := density.NewCaveField(parseVariant(cfg.Caves.Variant), cfg.Seed)
		caves.Enabled = true
		caves.MinDepth = cfg.Caves.MinDepth
		caves.MaxDepth = cfg.Caves.MaxDepth
		caves.FadeRange = cfg.Caves.FadeRange
		caves.Threshold = cfg.Caves.Threshold
		caves.Width = cfg.Caves.Width
		caves.CaveDensity = cfg.Caves.CaveDensity
		caves.CellSize = cfg.Caves.CellSize
		if cfg.Caves.Noise.Frequency > 0 {
			caves.SetFrequency(cfg.Caves.Noise.Frequency)
		}
		caves.SetOrigin(center, float64(cfg.Planet.Radius))
		field.Caves = caves
	}

	store := boundary.NewStore(float64(cfg.Chunk.Size), cfg.Chunk.Resolution, field.Eval)

	settings := streamer.Settings{
		LoadDistance:     cfg.Stream.LoadDistance,
		UnloadDistance:   cfg.Stream.UnloadDistance,
		ChunksPerFrame:   cfg.Stream.ChunksPerFrame,
		MeshesPerFrame:   cfg.Stream.MeshesPerFrame,
		SearchIntervalS:  cfg.Stream.SearchIntervalS,
		MaxConcurrentGen: 4,
	}

	limit := ratelimit.New(10 * time.Second)
	e := &Engine{cfg: cfg, field: field, store: store, log: log}

	e.stream = streamer.New(float64(cfg.Chunk.Size), cfg.Chunk.Resolution, store, field, e.tintFor, settings, callbacks, log, limit)
	e.stream.PlanetCenter = center
	e.stream.PlanetRadius = float64(cfg.Planet.Radius)
	e.stream.MaxHeight = float64(cfg.Planet.MaxTerrainHeight)
	e.stream.MaxDepth = float64(cfg.Planet.MaxTerrainDepth)

	return e, nil
}

func buildLayer(lc config.NoiseLayerConfig, seed int32) *noise.Layer {
	kind := noise.KindSimplex
	if lc.Kind == "perlin" {
		kind = noise.KindPerlin
	}
	l := noise.NewLayer(kind, seed)
	l.Enabled = lc.Enabled
	if lc.Frequency != 0 {
		l.Frequency = lc.Frequency
	}
	if lc.Lacunarity != 0 {
		l.Lacunarity = lc.Lacunarity
	}
	if lc.Octaves != 0 {
		l.Octaves = lc.Octaves
	}
	if lc.Persistence != 0 {
		l.Persistence = lc.Persistence
	}
	if lc.Amplitude != 0 {
		l.Amplitude = lc.Amplitude
	}
	l.Center = [3]float64{lc.Center.X, lc.Center.Y, lc.Center.Z}
	l.Invert = lc.Invert
	l.UseFloor = lc.UseFloor
	l.FloorValue = lc.FloorValue
	l.UseFirstLayerMask = lc.UseFirstLayerMask
	l.MinValue = lc.MinValue
	return l
}

func parseVariant(s string) density.Variant {
	switch s {
	case "cavern":
		return density.VariantCavern
	case "fracture":
		return density.VariantFracture
	case "stratified":
		return density.VariantStratified
	case "sponge":
		return density.VariantSponge
	case "hybrid":
		return density.VariantHybrid
	default:
		return density.VariantWorm
	}
}

func (e *Engine) tintFor(coord chunkspace.Coord) chunkspace.TintOptions {
	opts := chunkspace.TintOptions{
		Center:        e.stream.PlanetCenter,
		Radius:        e.stream.PlanetRadius,
		Selector:      e.field.Selector,
		DefaultColor:  mgl32.Vec4{0.5, 0.5, 0.5, 1},
		Caves:         e.field.Caves,
		CaveColor:     mgl32.Vec4{0.05, 0.05, 0.08, 1},
		CaveFullDepth: 20,
	}
	if !config.GetCavesEnabled() {
		opts.Caves = nil
	}
	return opts
}

// SetViewpoint forwards to the streamer (spec.md §6.2).
func (e *Engine) SetViewpoint(p mgl32.Vec3) { e.stream.SetViewpoint(p) }

// Tick advances the streamer one control-loop iteration.
func (e *Engine) Tick(ctx context.Context) { e.stream.Tick(ctx) }

// ModifyTerrain applies a terrain edit (spec.md §6.2).
func (e *Engine) ModifyTerrain(center mgl32.Vec3, radius, strength float32, immediateCollider bool) bool {
	return e.stream.Modify(center, float64(radius), float64(strength), immediateCollider)
}

// RegenerateChunk invalidates and regenerates one chunk coordinate.
func (e *Engine) RegenerateChunk(ctx context.Context, coord chunkspace.Coord) {
	e.stream.RegenerateChunk(ctx, coord)
}

// RegenerateChunksInRadius invalidates and regenerates every chunk
// intersecting a world sphere.
func (e *Engine) RegenerateChunksInRadius(ctx context.Context, center mgl32.Vec3, radius float32) {
	e.stream.RegenerateInRadius(ctx, center, float64(radius))
}

// QuerySurface runs the density-binary-search query (spec.md §6.4).
func (e *Engine) QuerySurface(direction mgl32.Vec3) meshutil.SurfacePoint {
	return e.stream.QuerySurface(direction)
}

// QuerySurfaceRay finds the first density crossing along a ray, for hosts
// that want to resolve a surface point from their own collider raycast
// origin/direction rather than a planet-relative direction (spec.md §6.2).
func (e *Engine) QuerySurfaceRay(origin, dir mgl32.Vec3, length float32) (meshutil.SurfacePoint, bool) {
	return e.stream.QuerySurfaceRay(origin, dir, float64(length))
}

// GetChunk returns the active chunk at coord, if loaded.
func (e *Engine) GetChunk(coord chunkspace.Coord) (*chunkspace.Chunk, bool) {
	return e.stream.GetChunk(coord)
}

// IsChunkLoaded reports whether coord is currently active.
func (e *Engine) IsChunkLoaded(coord chunkspace.Coord) bool { return e.stream.IsLoaded(coord) }

// IsChunkPending reports whether coord is pending or in progress.
func (e *Engine) IsChunkPending(coord chunkspace.Coord) bool { return e.stream.IsPending(coord) }

// Stats reports streamer counters (spec.md §6.2).
func (e *Engine) Stats() streamer.Stats { return e.stream.Stats() }

// SetChunksPerFrame adjusts the live per-tick chunk generation budget
// without reconstructing the engine.
func (e *Engine) SetChunksPerFrame(n int) { config.SetChunksPerFrame(n) }

// SetMeshesPerFrame adjusts the live per-tick mesh generation budget
// without reconstructing the engine.
func (e *Engine) SetMeshesPerFrame(n int) { config.SetMeshesPerFrame(n) }

// SetCavesEnabled toggles cave carving live and clears the shared boundary
// store (spec.md §7's cache_miss stale-detection row, §9's invalidated
// on config-epoch change), so corner/edge/face density recomputed for any
// newly-streamed neighbor chunk reflects the new toggle instead of a
// cached pre-toggle value. Chunks already meshed keep their old geometry
// until a RegenerateChunk/RegenerateChunksInRadius call. While carving is
// off, meshes are tinted without the cave color. An engine constructed with
// caves disabled has no cave field, so turning carving on there carves
// nothing.
func (e *Engine) SetCavesEnabled(enabled bool) {
	config.SetCavesEnabled(enabled)
	e.store.Clear()
}

// CavesEnabled reports the current live cave-carving toggle.
func (e *Engine) CavesEnabled() bool { return config.GetCavesEnabled() }
