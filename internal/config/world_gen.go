package config

import "sync"

// StreamTunables holds the subset of stream settings that are safe to
// adjust live, independent of the immutable EngineConfig it was seeded
// from.
type StreamTunables struct {
	mu             sync.RWMutex
	chunksPerFrame int
	meshesPerFrame int
	caves          bool
}

var globalStreamTunables = &StreamTunables{
	chunksPerFrame: 4,
	meshesPerFrame: 4,
	caves:          true,
}

// GetChunksPerFrame returns the current per-tick chunk generation budget.
func GetChunksPerFrame() int {
	globalStreamTunables.mu.RLock()
	defer globalStreamTunables.mu.RUnlock()
	return globalStreamTunables.chunksPerFrame
}

// SetChunksPerFrame sets the per-tick chunk generation budget, clamped to
// a sane range so a bad value can't stall or flood the worker pool.
func SetChunksPerFrame(n int) {
	globalStreamTunables.mu.Lock()
	defer globalStreamTunables.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	globalStreamTunables.chunksPerFrame = n
}

// GetMeshesPerFrame returns the current per-tick mesh generation budget.
func GetMeshesPerFrame() int {
	globalStreamTunables.mu.RLock()
	defer globalStreamTunables.mu.RUnlock()
	return globalStreamTunables.meshesPerFrame
}

// SetMeshesPerFrame sets the per-tick mesh generation budget.
func SetMeshesPerFrame(n int) {
	globalStreamTunables.mu.Lock()
	defer globalStreamTunables.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	globalStreamTunables.meshesPerFrame = n
}

// GetCavesEnabled returns whether cave carving is currently enabled.
func GetCavesEnabled() bool {
	globalStreamTunables.mu.RLock()
	defer globalStreamTunables.mu.RUnlock()
	return globalStreamTunables.caves
}

// SetCavesEnabled toggles cave carving at runtime.
func SetCavesEnabled(enabled bool) {
	globalStreamTunables.mu.Lock()
	defer globalStreamTunables.mu.Unlock()
	globalStreamTunables.caves = enabled
}

// ToggleCavesEnabled flips the cave-carving toggle.
func ToggleCavesEnabled() {
	globalStreamTunables.mu.Lock()
	defer globalStreamTunables.mu.Unlock()
	globalStreamTunables.caves = !globalStreamTunables.caves
}
