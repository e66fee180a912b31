package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 2: a source material with no textures
// produces a Material whose four texture indices refer to the
// four fallback textures, with default factors.
func TestFallbackMaterialScenario(t *testing.T) {
	var s Scene
	fb, err := NewFallbacks(&s)
	require.NoError(t, err)
	require.Len(t, s.Textures, 4)

	m := NewMaterial()
	m.ResolveFallbacks(fb)

	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.BaseColor)
	assert.Equal(t, float32(0), m.Metallic)
	assert.Equal(t, float32(1), m.Roughness)
	assert.Equal(t, float32(1.4), m.IOR)
	assert.GreaterOrEqual(t, m.Albedo, int32(0))
	assert.GreaterOrEqual(t, m.Normal, int32(0))
	assert.GreaterOrEqual(t, m.Specular, int32(0))
	assert.GreaterOrEqual(t, m.Emissive, int32(0))
	assert.Less(t, m.Albedo, int32(len(s.Textures)))
}

func TestMaterialValidateRejectsOutOfRange(t *testing.T) {
	m := NewMaterial()
	m.Metallic = 1.5
	require.Error(t, m.Validate())
}
