package scenecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

func sampleScene() *scene.Scene {
	return &scene.Scene{
		Vertices:  []scene.Vertex{{Position: [3]int16{1, 2, 3}}},
		Materials: []scene.Material{scene.NewMaterial()},
		Models:    []scene.Model{{Meshes: []uint32{0}}},
		Meshes: []scene.Mesh{{
			VertexOffset: 0, VertexCount: 1,
			LODs: []scene.LOD{{}},
		}},
		Instances: []scene.Instance{{
			Model: 0, Scale: linear.V3{1, 1, 1}, Rotation: linear.Q{R: 1},
		}},
		Roots: []int32{0},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.rndc")
	want := sampleScene()

	id, err := Save(path, want)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, gotID, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, want.Vertices, got.Vertices)
	assert.Equal(t, want.Materials, got.Materials)
	assert.Equal(t, want.Instances, got.Instances)
	assert.Equal(t, want.Roots, got.Roots)
}

func TestLoadRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.rndc")
	require.NoError(t, os.WriteFile(path, []byte("not a scene cache at all, way too long to be a header"), 0o644))

	_, _, err := Load(path)
	assert.Error(t, err)
}
