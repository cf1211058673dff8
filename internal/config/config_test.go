package config

import "testing"

func validConfig() EngineConfig {
	return EngineConfig{
		Seed: 1,
		Planet: PlanetConfig{
			Radius:               100,
			SurfaceBlendDistance: 8,
		},
		Chunk: ChunkConfig{Size: 16, Resolution: 16},
		Stream: StreamConfig{
			LoadDistance:   80,
			UnloadDistance: 120,
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}

func TestValidateRejectsLowResolution(t *testing.T) {
	c := validConfig()
	c.Chunk.Resolution = 2
	if err := c.Validate(); err == nil {
		t.Error("expected resolution below 4 to be rejected")
	}
}

func TestValidateRejectsUnloadNotExceedingLoad(t *testing.T) {
	c := validConfig()
	c.Stream.UnloadDistance = c.Stream.LoadDistance
	if err := c.Validate(); err == nil {
		t.Error("expected unload_distance == load_distance to be rejected")
	}
}

func TestValidateRejectsNonPositiveRadius(t *testing.T) {
	c := validConfig()
	c.Planet.Radius = 0
	if err := c.Validate(); err == nil {
		t.Error("expected radius 0 to be rejected")
	}
}

func TestValidateRejectsUnnamedBiome(t *testing.T) {
	c := validConfig()
	c.Biomes = []BiomeConfig{{Name: ""}}
	if err := c.Validate(); err == nil {
		t.Error("expected an unnamed biome to be rejected")
	}
}

func TestStreamTunablesClamping(t *testing.T) {
	SetChunksPerFrame(0)
	if GetChunksPerFrame() < 1 {
		t.Error("expected ChunksPerFrame to clamp below 1")
	}
	SetChunksPerFrame(1000)
	if GetChunksPerFrame() > 256 {
		t.Error("expected ChunksPerFrame to clamp above 256")
	}
}

func TestToggleCavesEnabled(t *testing.T) {
	before := GetCavesEnabled()
	ToggleCavesEnabled()
	if GetCavesEnabled() == before {
		t.Error("expected ToggleCavesEnabled to flip the value")
	}
	SetCavesEnabled(before)
}
