package boundary

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func sphereDensity(p mgl32.Vec3) float64 {
	return 10 - float64(p.Len())
}

func TestGetOrCreateCornerDeterministic(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	a := s.GetOrCreateCorner(ChunkCoord{0, 0, 0}, 0)
	b := s.GetOrCreateCorner(ChunkCoord{0, 0, 0}, 0)
	if a != b {
		t.Errorf("expected repeated corner reads to agree, got %v != %v", a, b)
	}
}

func TestNeighborChunksShareCorner(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	// Chunk (0,0,0)'s +X+Y+Z corner (index 7) is chunk (1,1,1)'s index-0 corner.
	a := s.GetOrCreateCorner(ChunkCoord{0, 0, 0}, 7)
	b := s.GetOrCreateCorner(ChunkCoord{1, 1, 1}, 0)
	if a != b {
		t.Errorf("shared corner disagreed across chunks: %v != %v", a, b)
	}
}

func TestSharedFaceAgreesBothDirections(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	posFace := s.GetOrCreateFace(ChunkCoord{0, 0, 0}, FaceDir{AxisX, true})
	negFace := s.GetOrCreateFace(ChunkCoord{1, 0, 0}, FaceDir{AxisX, false})
	if len(posFace) != len(negFace) {
		t.Fatalf("face grid size mismatch: %d vs %d", len(posFace), len(negFace))
	}
	for i := range posFace {
		for j := range posFace[i] {
			if posFace[i][j] != negFace[i][j] {
				t.Fatalf("face disagreement at [%d][%d]: %v != %v", i, j, posFace[i][j], negFace[i][j])
			}
		}
	}
}

func TestEdgeLengthIsResolutionPlusOne(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	e := s.GetOrCreateEdge(ChunkCoord{0, 0, 0}, AxisX, 0, 0)
	if len(e) != s.Resolution+1 {
		t.Errorf("expected edge length R+1=%d, got %d", s.Resolution+1, len(e))
	}
}

func TestInvalidateRemovesTouchingEntries(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	chunk := ChunkCoord{2, 3, -1}
	s.GetOrCreateCorner(chunk, 0)
	s.GetOrCreateFace(chunk, FaceDir{AxisX, true})

	s.Invalidate(chunk)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.corner) != 0 {
		t.Errorf("expected corner table empty after invalidate, got %d entries", len(s.corner))
	}
	if len(s.face) != 0 {
		t.Errorf("expected face table empty after invalidate, got %d entries", len(s.face))
	}
}

func TestClearEmptiesAllTables(t *testing.T) {
	s := NewStore(8, 4, sphereDensity)
	s.GetOrCreateCorner(ChunkCoord{0, 0, 0}, 0)
	s.GetOrCreateEdge(ChunkCoord{0, 0, 0}, AxisX, 0, 0)
	s.GetOrCreateFace(ChunkCoord{0, 0, 0}, FaceDir{AxisX, true})

	s.Clear()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.corner) != 0 || len(s.edge) != 0 || len(s.face) != 0 {
		t.Error("expected all tables empty after Clear")
	}
}

func TestConcurrentCornerComputesOnce(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	counting := func(p mgl32.Vec3) float64 {
		mu.Lock()
		calls++
		mu.Unlock()
		return sphereDensity(p)
	}
	s := NewStore(8, 4, counting)

	var wg sync.WaitGroup
	results := make([]float32, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = s.GetOrCreateCorner(ChunkCoord{5, 5, 5}, 3)
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		if v != results[0] {
			t.Error("concurrent corner reads disagreed")
		}
	}
	if calls != 1 {
		t.Errorf("expected the shared corner to be computed once, got %d density calls", calls)
	}
}
