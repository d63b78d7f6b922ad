package sceneio

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	var palette voxel.Palette
	for i := range palette {
		palette[i] = uint32(i) * 7
	}

	pkg := &Package{
		Camera: Camera{
			Position: mgl32.Vec3{1, 2, 3},
			Up:       mgl32.Vec3{0, 1, 0},
			Rotation: mgl32.Vec3{0.1, 0.2, 0.3},
		},
		Models: []VoxModel{
			{
				Transform: mathx.Transform{
					Rotation: mgl32.Quat{W: 0.7071, V: mgl32.Vec3{0, 0.7071, 0}},
					Position: mgl32.Vec3{10, 0, -5},
					Scale:    2.5,
				},
				Palette: palette,
				W:       2, H: 2, D: 2,
				Voxels: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, pkg))

	got, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, pkg.Camera.Position, got.Camera.Position)
	require.Len(t, got.Models, 1)

	m := got.Models[0]
	want := pkg.Models[0]
	assert.Equal(t, want.W, m.W)
	assert.Equal(t, want.H, m.H)
	assert.Equal(t, want.D, m.D)
	assert.Equal(t, want.Voxels, m.Voxels)
	assert.Equal(t, want.Transform.Position, m.Transform.Position)
	assert.Equal(t, want.Transform.Scale, m.Transform.Scale)
	assert.Equal(t, want.Palette, m.Palette)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}) // not the magic

	_, err := Load(&buf)
	assert.Error(t, err, "expected an error loading a file with the wrong magic")
}

func TestSaveRejectsVoxelCountMismatch(t *testing.T) {
	pkg := &Package{
		Models: []VoxModel{
			{W: 2, H: 2, D: 2, Voxels: []byte{1, 2, 3}}, // wrong length
		},
	}
	var buf bytes.Buffer
	err := Save(&buf, pkg)
	assert.Error(t, err, "expected an error saving a model whose voxel slice doesn't match its dimensions")
}
