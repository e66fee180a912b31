package scene

import (
	"testing"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneValidateIndexOutOfRange(t *testing.T) {
	s := Scene{
		Vertices: make([]Vertex, 4),
		Indices:  []uint32{0, 1, 4},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestSceneValidateMeshletAlignment(t *testing.T) {
	s := Scene{
		Vertices: make([]Vertex, 4),
		Meshlets: make([]Meshlet, 1),
	}
	err := s.Validate()
	require.Error(t, err)
}

func TestSceneValidateLODMonotonic(t *testing.T) {
	s := Scene{
		Materials: make([]Material, 1),
		Meshes: []Mesh{{
			LODs: []LOD{{IndexCount: 300}, {IndexCount: 400}},
		}},
	}
	err := s.Validate()
	require.Error(t, err)
}

func TestFlattenComposesParentTransform(t *testing.T) {
	// root --translate(1,0,0)--> child --translate(0,2,0)--> (model 0)
	s := Scene{
		Instances: []Instance{
			{Model: -1, Scale: linear.V3{1, 1, 1}, Rotation: linear.Q{R: 1}, Translation: linear.V3{1, 0, 0}, Children: []int32{1}},
			{Model: 0, Scale: linear.V3{1, 1, 1}, Rotation: linear.Q{R: 1}, Translation: linear.V3{0, 2, 0}},
		},
		Roots: []int32{0},
	}
	flat := s.Flatten()
	require.Len(t, flat, 1)
	assert.Equal(t, int32(0), flat[0].Model)
	assert.Equal(t, float32(1), flat[0].World[3][0])
	assert.Equal(t, float32(2), flat[0].World[3][1])
}
