package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[Camera]
fovy = 1.2
speed = 5

[Render]
shadow_map_dim = 2048
vsync = true
name = "forward"
`

func TestLoadFlattensSectionsToDottedKeys(t *testing.T) {
	s, err := Load(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	v, ok := s.Float("Camera.fovy")
	require.True(t, ok)
	assert.Equal(t, 1.2, v)

	iv, ok := s.Int("Render.shadow_map_dim")
	require.True(t, ok)
	assert.EqualValues(t, 2048, iv)

	bv, ok := s.Bool("Render.vsync")
	require.True(t, ok)
	assert.True(t, bv)

	sv, ok := s.String("Render.name")
	require.True(t, ok)
	assert.Equal(t, "forward", sv)
}

func TestSetOverwritesAndListFiltersByPrefix(t *testing.T) {
	s, err := Load(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	s.Set("Camera.fovy", 2.5)
	v, _ := s.Float("Camera.fovy")
	assert.Equal(t, 2.5, v, "expected Set to overwrite")

	cameraKeys := s.List("Camera.")
	assert.Len(t, cameraKeys, 2)
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	s, err := Load(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, s.Save(&buf))

	reloaded, err := Load(strings.NewReader(buf.String()))
	require.NoError(t, err)

	v, _ := reloaded.Int("Render.shadow_map_dim")
	assert.EqualValues(t, 2048, v, "round trip lost Render.shadow_map_dim")
}
