package scene

import (
	"math"
	"testing"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sphereMesh builds a UV sphere with approximately the requested
// triangle count, used by the LOD-chain scenario.
func sphereMesh(triTarget int) PrimitiveInput {
	rings := int(math.Sqrt(float64(triTarget) / 2))
	if rings < 4 {
		rings = 4
	}
	sectors := rings * 2

	var positions []linear.V3
	var texcoords [][2]float32
	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for sgt := 0; sgt <= sectors; sgt++ {
			phi := 2 * math.Pi * float64(sgt) / float64(sectors)
			x := float32(math.Sin(theta) * math.Cos(phi))
			y := float32(math.Cos(theta))
			z := float32(math.Sin(theta) * math.Sin(phi))
			positions = append(positions, linear.V3{x, y, z})
			texcoords = append(texcoords, [2]float32{float32(sgt) / float32(sectors), float32(r) / float32(rings)})
		}
	}
	var indices []uint32
	stride := uint32(sectors + 1)
	for r := 0; r < rings; r++ {
		for sgt := 0; sgt < sectors; sgt++ {
			a := uint32(r)*stride + uint32(sgt)
			b := a + stride
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return PrimitiveInput{Positions: positions, Texcoords: texcoords, Indices: indices, Material: 0}
}

func TestLODChainMonotonicScenario(t *testing.T) {
	prim := sphereMesh(16384)
	var s Scene
	s.Materials = append(s.Materials, NewMaterial())
	mesh, err := s.AddPrimitive(prim)
	require.NoError(t, err)

	require.LessOrEqual(t, len(mesh.LODs), MaxLOD)
	for i := 1; i < len(mesh.LODs); i++ {
		assert.LessOrEqual(t, mesh.LODs[i].IndexCount, mesh.LODs[i-1].IndexCount)
	}
	require.NoError(t, s.Validate())
}

// Scenario 3: importing a mesh twice yields byte-identical
// meshlets and meshlet_data arrays.
func TestMeshletPartitionDeterminism(t *testing.T) {
	prim := sphereMesh(512)
	var s1, s2 Scene
	s1.Materials = append(s1.Materials, NewMaterial())
	s2.Materials = append(s2.Materials, NewMaterial())

	_, err := s1.AddPrimitive(prim)
	require.NoError(t, err)
	_, err = s2.AddPrimitive(prim)
	require.NoError(t, err)

	assert.Equal(t, s1.Meshlets, s2.Meshlets)
	assert.Equal(t, s1.MeshletData, s2.MeshletData)
}

func TestMeshletVertexAndTriangleCaps(t *testing.T) {
	prim := sphereMesh(4096)
	var s Scene
	s.Materials = append(s.Materials, NewMaterial())
	_, err := s.AddPrimitive(prim)
	require.NoError(t, err)
	for _, m := range s.Meshlets {
		assert.LessOrEqual(t, int(m.VertexCount), MeshletVertexCap)
		assert.LessOrEqual(t, int(m.TriangleCount), MeshletTriangleCap)
	}
}
