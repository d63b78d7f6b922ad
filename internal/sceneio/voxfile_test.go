package sceneio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadIntoGridReordersAxes places one distinguishable voxel at
// source position (x=1,y=2,z=3) in the .vox format's x-fastest,z,y byte
// order and checks it lands at the same logical (1,2,3) coordinate in the
// grid, whose internal layout is x-fastest,y,z.
func TestLoadIntoGridReordersAxes(t *testing.T) {
	sx, sy, sz := 2, 3, 4
	data := make([]byte, sx*sy*sz)
	// source index for (x=1,y=2,z=3): x + z*sx + y*sx*sz
	srcIdx := 1 + 3*sx + 2*sx*sz
	data[srcIdx] = 42

	g, err := LoadIntoGrid(VoxModelRaw{SizeX: sx, SizeY: sy, SizeZ: sz, VoxelData: data})
	require.NoError(t, err)
	assert.EqualValues(t, 42, g.At(1, 2, 3))

	// every other cell must have reordered to air
	nonZero := 0
	for z := 0; z < sz; z++ {
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				if g.At(x, y, z) != 0 {
					nonZero++
				}
			}
		}
	}
	assert.Equal(t, 1, nonZero, "expected exactly one non-air voxel after reorder")
}

func TestLoadIntoGridRejectsSizeMismatch(t *testing.T) {
	_, err := LoadIntoGrid(VoxModelRaw{SizeX: 2, SizeY: 2, SizeZ: 2, VoxelData: []byte{1, 2, 3}})
	assert.Error(t, err, "expected an error for mismatched voxel data length")
}
