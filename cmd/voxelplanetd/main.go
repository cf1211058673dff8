// Command voxelplanetd is a headless driver that exercises the public
// engine API (spec.md §6.2) without a graphics or physics backend: it
// stands in for the renderer and collider, which spec.md treats as
// external collaborators referenced only by their interfaces. It is
// the spiritual successor of the teacher's cmd/mini-mc main loop, with
// the GLFW window and OpenGL renderer removed.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"voxelplanet/internal/chunkspace"
	"voxelplanet/internal/config"
	"voxelplanet/internal/engine"
	"voxelplanet/internal/profiling"
)

// countingSink satisfies both engine.RendererSink and engine.ColliderSink,
// standing in for the display and physics backends spec.md treats as
// external collaborators.
type countingSink struct {
	ready   int
	cleared int
}

func (s *countingSink) OnChunkMeshReady(coord chunkspace.Coord, mesh *chunkspace.Mesh) {
	s.ready++
}

func (s *countingSink) OnChunkMeshCleared(coord chunkspace.Coord) {
	s.cleared++
}

func main() {
	configPath := flag.String("config", "", "path to an engine config YAML file; built-in defaults are used if empty")
	ticks := flag.Int("ticks", 0, "number of control-loop ticks to run before exiting; 0 runs until interrupted")
	orbitRadius := flag.Float64("orbit-radius", 0, "distance from planet center the viewpoint orbits at; defaults to radius + max_terrain_height + 40")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "err", err)
	}

	sink := &countingSink{}

	eng, err := engine.New(cfg, engine.Sinks(sink, sink), log)
	if err != nil {
		log.Fatalw("failed to construct engine", "err", err)
	}

	radius := *orbitRadius
	if radius == 0 {
		radius = float64(cfg.Planet.Radius) + float64(cfg.Planet.MaxTerrainHeight) + 40
	}
	center := mgl32.Vec3{cfg.Planet.Center.X, cfg.Planet.Center.Y, cfg.Planet.Center.Z}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const tickInterval = 100 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var elapsed float64
	tickCount := 0
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			profiling.ResetFrame()
			elapsed += tickInterval.Seconds()

			viewpoint := orbitPosition(center, radius, elapsed)
			eng.SetViewpoint(viewpoint)
			eng.Tick(ctx)

			tickCount++
			if *ticks > 0 && tickCount >= *ticks {
				log.Infow("reached tick limit, exiting", "ticks", tickCount)
				return
			}

			if time.Since(lastReport) >= time.Second {
				stats := eng.Stats()
				fmt.Printf("tick=%d active=%d pending=%d in_progress=%d mesh_ready=%d mesh_cleared=%d top=%s\n",
					tickCount, stats.Active, stats.Pending, stats.InProgress, sink.ready, sink.cleared,
					profiling.TopN(3))
				lastReport = time.Now()
			}
		}
	}
}

// orbitPosition places the viewpoint on a slow circular orbit around the
// planet's equator, far enough out that the streamer's load radius sweeps
// across fresh chunks as the driver runs.
func orbitPosition(center mgl32.Vec3, radius, t float64) mgl32.Vec3 {
	const angularSpeed = 0.05 // radians/sec
	angle := t * angularSpeed
	return mgl32.Vec3{
		center[0] + float32(radius*math.Cos(angle)),
		center[1],
		center[2] + float32(radius*math.Sin(angle)),
	}
}

func loadConfig(path string) (*config.EngineConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig provides a small, self-consistent planet so the driver
// runs out of the box with no config file on disk.
func defaultConfig() *config.EngineConfig {
	return &config.EngineConfig{
		Seed: 1,
		Planet: config.PlanetConfig{
			Center:               config.Vec3{X: 0, Y: 0, Z: 0},
			Radius:               200,
			MaxTerrainHeight:     24,
			MaxTerrainDepth:      24,
			SurfaceBlendDistance: 12,
			MaxInteriorDensity:   8,
		},
		Chunk: config.ChunkConfig{
			Size:       16,
			Resolution: 16,
		},
		Stream: config.StreamConfig{
			LoadDistance:    96,
			UnloadDistance:  128,
			ChunksPerFrame:  6,
			MeshesPerFrame:  6,
			SearchIntervalS: 0.5,
		},
		TerrainLayers: []config.NoiseLayerConfig{
			{
				Kind:        "simplex",
				Enabled:     true,
				Frequency:   0.02,
				Lacunarity:  2.0,
				Octaves:     4,
				Persistence: 0.5,
				Amplitude:   16,
			},
		},
		Caves: config.CaveConfig{
			Enabled:     true,
			Variant:     "worm",
			MinDepth:    4,
			MaxDepth:    120,
			FadeRange:   8,
			Threshold:   0.55,
			Width:       3,
			CaveDensity: 1,
			CellSize:    32,
			Noise: config.NoiseLayerConfig{
				Kind:      "perlin",
				Enabled:   true,
				Frequency: 0.05,
			},
		},
	}
}
