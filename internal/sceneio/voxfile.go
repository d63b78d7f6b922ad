package sceneio

import (
	"fmt"

	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

// VoxModelRaw is one model as an external .vox decoder exposes it:
// dimensions and a byte buffer in the format's own x-fastest, then
// z, then y order, plus a shared 256-entry RGBA palette. The decoder
// itself is an external collaborator, out of scope here — only this
// contract and the grid-loader's axis reorder below belong to the core.
type VoxModelRaw struct {
	SizeX, SizeY, SizeZ int
	VoxelData           []byte
	Palette             [256]uint32
}

// VoxelDecoder is the opaque external decoder contract:
// bytes in, a scene's worth of raw models out.
type VoxelDecoder interface {
	Decode(data []byte) ([]VoxModelRaw, error)
}

// LoadIntoGrid reorders a decoded model's voxel bytes from the format's
// x-fastest, z, y layout into the grid's own x-fastest, y, z layout
// and loads them into a freshly allocated grid sized to
// match.
func LoadIntoGrid(m VoxModelRaw) (*voxel.Grid, error) {
	g := voxel.NewGrid(m.SizeX, m.SizeY, m.SizeZ)
	want := m.SizeX * m.SizeY * m.SizeZ
	if len(m.VoxelData) != want {
		return nil, fmt.Errorf("sceneio: decoded voxel data length %d, want %d (%dx%dx%d)", len(m.VoxelData), want, m.SizeX, m.SizeY, m.SizeZ)
	}

	reordered := make([]voxel.Voxel, len(m.VoxelData))
	for z := 0; z < m.SizeZ; z++ {
		for y := 0; y < m.SizeY; y++ {
			for x := 0; x < m.SizeX; x++ {
				// source index walks x-fastest, then z, then y (the .vox
				// format's own convention); dst walks the grid's x-fastest,
				// then y, then z.
				srcIdx := x + z*m.SizeX + y*m.SizeX*m.SizeZ
				dstIdx := x + y*m.SizeX + z*m.SizeX*m.SizeY
				reordered[dstIdx] = m.VoxelData[srcIdx]
			}
		}
	}

	g.LoadBulk(reordered, voxel.Palette(m.Palette))
	return g, nil
}
