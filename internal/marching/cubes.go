// Package marching implements table-driven marching-cubes isosurface
// extraction at the zero threshold (C8, spec.md §4.8).
package marching

import "github.com/go-gl/mathgl/mgl32"

var cornerOffset = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

const degenerateEps = 1e-5

// DensityFunc reads the density at lattice index (x,y,z), 0 <= x,y,z <= R.
type DensityFunc func(x, y, z int) float32

// Triangle is one marching-cubes output triangle in lattice-index space
// (fractional coordinates from vertex interpolation). Exactly 3 distinct
// vertices per triangle; no sharing across cubes (spec.md §3.6).
type Triangle struct {
	A, B, C mgl32.Vec3
}

// Cube runs marching cubes over a single lattice cell at cube-local indices
// (x,y,z), reading the 8 corner densities via density. Appends emitted
// triangles to dst and returns the updated slice.
func Cube(x, y, z int, density DensityFunc, dst []Triangle) []Triangle {
	var corner [8]float32
	var pos [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		cx := x + cornerOffset[i][0]
		cy := y + cornerOffset[i][1]
		cz := z + cornerOffset[i][2]
		corner[i] = density(cx, cy, cz)
		pos[i] = mgl32.Vec3{float32(cx), float32(cy), float32(cz)}
	}

	index := 0
	for i := 0; i < 8; i++ {
		if corner[i] < 0 {
			index |= 1 << uint(i)
		}
	}

	if edgeTable[index] == 0 {
		return dst
	}

	var edgeVert [12]mgl32.Vec3
	for e := 0; e < 12; e++ {
		if edgeTable[index]&(1<<uint(e)) == 0 {
			continue
		}
		a, b := edgeCorners[e][0], edgeCorners[e][1]
		edgeVert[e] = vertexInterp(pos[a], pos[b], corner[a], corner[b])
	}

	tri := triTable[index]
	for i := 0; tri[i] != -1; i += 3 {
		dst = append(dst, Triangle{
			A: edgeVert[tri[i]],
			B: edgeVert[tri[i+1]],
			C: edgeVert[tri[i+2]],
		})
	}
	return dst
}

// vertexInterp linearly interpolates the surface crossing between p1/v1
// and p2/v2, guarding near-degenerate cases per spec.md §4.8 step 4.
func vertexInterp(p1, p2 mgl32.Vec3, v1, v2 float32) mgl32.Vec3 {
	if abs32(v1) < degenerateEps {
		return p1
	}
	if abs32(v2) < degenerateEps {
		return p2
	}
	if abs32(v1-v2) < degenerateEps {
		return p1
	}
	t := -v1 / (v2 - v1)
	return p1.Add(p2.Sub(p1).Mul(t))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// ExtractRange runs marching cubes over every cube in [min,max) (exclusive
// upper bound) in a resolution-R lattice, for the dirty-region+1 mesh
// optimization described in spec.md §4.7.
func ExtractRange(minX, minY, minZ, maxX, maxY, maxZ int, density DensityFunc) []Triangle {
	var tris []Triangle
	for z := minZ; z < maxZ; z++ {
		for y := minY; y < maxY; y++ {
			for x := minX; x < maxX; x++ {
				tris = Cube(x, y, z, density, tris)
			}
		}
	}
	return tris
}

// Extract runs marching cubes over the full R^3 cube lattice.
func Extract(resolution int, density DensityFunc) []Triangle {
	return ExtractRange(0, 0, 0, resolution, resolution, resolution, density)
}
