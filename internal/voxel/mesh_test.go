package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGreedyMeshSolidCube checks that a 2x2x2 grid filled entirely with
// voxel 7 meshes to exactly one quad per face (no air boundary to split a
// face into smaller rectangles), with every face's vertices spanning
// (±0.5, ±0.5, ±0.5) after centring and unit scaling.
func TestGreedyMeshSolidCube(t *testing.T) {
	g := NewGrid(2, 2, 2)
	g.Fill(7)
	var pal Palette
	pal[7] = 0xFFAABBCC
	g.SetPalette(pal)

	mesh := GreedyMesh(g)

	require.Len(t, mesh.Vertices, 24, "expected 6 faces x 4 vertices")
	for _, f := range mesh.Offsets {
		assert.EqualValues(t, 4, f, "expected every face to merge into exactly one quad, got offsets %v", mesh.Offsets)
	}

	base := mesh.Offsets[0] // FaceNegX vertex count precedes FacePosX
	posXVerts := mesh.Vertices[base : base+4]

	seen := map[[3]float32]bool{}
	for _, v := range posXVerts {
		assert.Equal(t, float32(0.5), v.Pos[0], "+X face vertex has wrong x: %v", v.Pos)
		assert.Contains(t, []float32{0.5, -0.5}, v.Pos[1], "+X face vertex has unexpected y: %v", v.Pos)
		assert.Contains(t, []float32{0.5, -0.5}, v.Pos[2], "+X face vertex has unexpected z: %v", v.Pos)
		assert.Equal(t, pal[7], v.Color)
		seen[v.Pos] = true
	}
	assert.Len(t, seen, 4, "expected 4 distinct corners")

	wantIdx := []uint32{base + 0, base + 1, base + 2, base + 2, base + 3, base + 0}
	gotIdx := mesh.Indices[base*6/4 : base*6/4+6]
	assert.Equal(t, wantIdx, gotIdx)
}

// TestNaiveMatchesGreedyForIsolatedVoxel checks that a single solid voxel
// inside a 3x3x3 grid of air has no adjacent same-value voxel to merge
// with, so the naive and greedy meshers must agree exactly.
func TestNaiveMatchesGreedyForIsolatedVoxel(t *testing.T) {
	g := NewGrid(3, 3, 3)
	g.Set(1, 1, 1, 3)

	greedy := GreedyMesh(g)
	naive := NaiveMesh(g)

	require.Equal(t, len(naive.Vertices), len(greedy.Vertices), "vertex count mismatch")
	require.Len(t, greedy.Vertices, 24, "expected 24 vertices for one fully exposed voxel")
	assert.Equal(t, naive.Offsets, greedy.Offsets)
}

func TestGreedyMeshAllAirProducesNothing(t *testing.T) {
	g := NewGrid(4, 4, 4)
	mesh := GreedyMesh(g)
	assert.Empty(t, mesh.Vertices)
	assert.Empty(t, mesh.Indices)
}

// TestGreedyMeshFlatSlabMergesToOneQuad exercises the longest-axis=1 case:
// a 1-voxel-thick slab merges its top and bottom faces into single quads
// spanning the whole slab.
func TestGreedyMeshFlatSlabMergesToOneQuad(t *testing.T) {
	g := NewGrid(4, 1, 4)
	g.Fill(1)

	mesh := GreedyMesh(g)
	for _, f := range mesh.Offsets {
		assert.EqualValues(t, 4, f, "expected every face of a solid slab to merge to one quad, got offsets %v", mesh.Offsets)
	}
	assert.Len(t, mesh.Vertices, 24)
}

// TestGreedyMeshShrinksRectangleAcrossShorterRow checks an L-shaped face
// region: the first row is 3 voxels wide, the second only 2. The rectangle
// merge must still combine both rows by clamping its width to the
// narrower row's span, rather than refusing to extend past row 0 at all.
func TestGreedyMeshShrinksRectangleAcrossShorterRow(t *testing.T) {
	g := NewGrid(3, 2, 1)
	g.Set(0, 0, 0, 1)
	g.Set(1, 0, 0, 1)
	g.Set(2, 0, 0, 1)
	g.Set(0, 1, 0, 1)
	g.Set(1, 1, 0, 1)
	// (2,1,0) left as air: row 1 is narrower than row 0.

	mesh := GreedyMesh(g)

	// The +Z face (facing the viewer through the single-voxel-thick slab)
	// covers 5 voxels; merged into rectangles that's 2 quads (8 vertices),
	// not five unmerged unit quads (20 vertices).
	posZ := mesh.Offsets[FacePosZ]
	assert.EqualValues(t, 8, posZ, "expected +Z face to merge into 2 quads, got offsets %v", mesh.Offsets)
}

func TestGreedyMeshRespectsVertexUpperBound(t *testing.T) {
	g := NewGrid(3, 3, 3)
	for z := 0; z < 3; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				// Checkerboard pattern defeats merging entirely, stressing
				// the mesher toward its worst case.
				if (x+y+z)%2 == 0 {
					g.Set(x, y, z, 1)
				}
			}
		}
	}
	mesh := GreedyMesh(g) // must not panic the 3*W*H*D assertion
	assert.LessOrEqual(t, len(mesh.Vertices), maxVerticesFor(g))
}
