// Package config loads and validates the engine configuration (spec.md
// §6.1) and holds a small set of runtime-tunable knobs in the teacher's
// mutex-guarded global-settings style.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigInvalidError is the one error kind permitted to cross the public
// API (spec.md §7: "no error crosses the public API except
// config_invalid").
type ConfigInvalidError struct {
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("config_invalid: %s", e.Reason)
}

// Vec3 is a plain 3-float vector for YAML decoding, independent of the
// math library's own vector type so config files stay engine-library-agnostic.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// PlanetConfig is spec.md §6.1's `planet` block.
type PlanetConfig struct {
	Center               Vec3    `yaml:"center"`
	Radius               float32 `yaml:"radius"`
	MaxTerrainHeight     float32 `yaml:"max_terrain_height"`
	MaxTerrainDepth      float32 `yaml:"max_terrain_depth"`
	SurfaceBlendDistance float32 `yaml:"surface_blend_distance"`
	MaxInteriorDensity   float32 `yaml:"max_interior_density"`
}

// ChunkConfig is spec.md §6.1's `chunk` block.
type ChunkConfig struct {
	Size       float32 `yaml:"size"`
	Resolution int     `yaml:"resolution"`
}

// StreamConfig is spec.md §6.1's `stream` block.
type StreamConfig struct {
	LoadDistance    float64 `yaml:"load_distance"`
	UnloadDistance  float64 `yaml:"unload_distance"`
	ChunksPerFrame  int     `yaml:"chunks_per_frame"`
	MeshesPerFrame  int     `yaml:"meshes_per_frame"`
	SearchIntervalS float64 `yaml:"search_interval_s"`
}

// NoiseLayerConfig mirrors the options table in spec.md §4.2.
type NoiseLayerConfig struct {
	Kind              string  `yaml:"kind"` // "simplex" | "perlin"
	Enabled           bool    `yaml:"enabled"`
	Frequency         float64 `yaml:"frequency"`
	Lacunarity        float64 `yaml:"lacunarity"`
	Octaves           int     `yaml:"octaves"`
	Persistence       float64 `yaml:"persistence"`
	Amplitude         float64 `yaml:"amplitude"`
	Center            Vec3    `yaml:"center"`
	Invert            bool    `yaml:"invert"`
	UseFloor          bool    `yaml:"use_floor"`
	FloorValue        float64 `yaml:"floor_value"`
	UseFirstLayerMask bool    `yaml:"use_first_layer_mask"`
	MinValue          float64 `yaml:"min_value"`
}

// BiomeSelectionConfig is the `biomes.selection` sub-block.
type BiomeSelectionConfig struct {
	Noise        NoiseLayerConfig `yaml:"noise"`
	SampleRadius float64          `yaml:"sample_radius"`
	BlendWidth   float64          `yaml:"blend_width"`
	Contrast     float64          `yaml:"contrast"`
}

// BiomeConfig is one entry of spec.md §6.1's `biomes` list.
type BiomeConfig struct {
	Name             string             `yaml:"name"`
	Layers           []NoiseLayerConfig `yaml:"layers"`
	HeightMultiplier float64            `yaml:"height_multiplier"`
	HeightOffset     float64            `yaml:"height_offset"`
	DebugColor       [4]float32         `yaml:"debug_color"`
	MaxSlope         float64            `yaml:"max_slope"`
	MinAltitude      float64            `yaml:"min_altitude"`
	MaxAltitude      float64            `yaml:"max_altitude"`
	PoleAxis         Vec3               `yaml:"pole_axis"`
	MinPoleAlignment float64            `yaml:"min_pole_alignment"`
}

// CaveConfig is spec.md §6.1's `caves` block.
type CaveConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Variant     string           `yaml:"variant"` // worm|cavern|fracture|stratified|sponge|hybrid
	MinDepth    float64          `yaml:"min_depth"`
	MaxDepth    float64          `yaml:"max_depth"`
	FadeRange   float64          `yaml:"fade_range"`
	Threshold   float64          `yaml:"threshold"`
	Width       float64          `yaml:"width"`
	CaveDensity float64          `yaml:"cave_density"`
	Noise       NoiseLayerConfig `yaml:"noise"`
	CellSize    float64          `yaml:"cell_size"`
}

// EngineConfig is the complete engine configuration loaded at init
// (spec.md §6.1).
type EngineConfig struct {
	Seed          int32                `yaml:"seed"`
	Planet        PlanetConfig         `yaml:"planet"`
	Chunk         ChunkConfig          `yaml:"chunk"`
	Stream        StreamConfig         `yaml:"stream"`
	TerrainLayers []NoiseLayerConfig   `yaml:"terrain_layers"`
	Biomes        []BiomeConfig        `yaml:"biomes"`
	BiomeSelect   BiomeSelectionConfig `yaml:"biome_selection"`
	Caves         CaveConfig           `yaml:"caves"`
}

// Load reads and decodes an EngineConfig from a YAML file and validates it.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigInvalidError{Reason: fmt.Sprintf("yaml decode: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants spec.md §7 assigns to config_invalid:
// "R < 4, radius <= 0, unload <= load, or inconsistent biome list".
func (c *EngineConfig) Validate() error {
	if c.Chunk.Resolution < 4 || c.Chunk.Resolution > 64 {
		return &ConfigInvalidError{Reason: "chunk.resolution must be in [4,64]"}
	}
	if c.Chunk.Size <= 0 {
		return &ConfigInvalidError{Reason: "chunk.size must be > 0"}
	}
	if c.Planet.Radius <= 0 {
		return &ConfigInvalidError{Reason: "planet.radius must be > 0"}
	}
	if c.Planet.SurfaceBlendDistance <= 0 {
		return &ConfigInvalidError{Reason: "planet.surface_blend_distance must be > 0"}
	}
	if c.Stream.UnloadDistance <= c.Stream.LoadDistance {
		return &ConfigInvalidError{Reason: "stream.unload_distance must exceed stream.load_distance"}
	}
	for _, b := range c.Biomes {
		if b.Name == "" {
			return &ConfigInvalidError{Reason: "biome list contains an unnamed entry"}
		}
		if b.MaxAltitude != 0 && b.MaxAltitude < b.MinAltitude {
			return &ConfigInvalidError{Reason: fmt.Sprintf("biome %q has max_altitude < min_altitude", b.Name)}
		}
	}
	return nil
}
