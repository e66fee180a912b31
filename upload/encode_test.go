package upload

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

func TestVertexBytesLayout(t *testing.T) {
	v := scene.Vertex{
		Position: [3]int16{1, -2, 3},
		Texcoord: [2]uint16{100, 200},
		Normal:   [2]int8{4, -5},
		Tangent:  [2]int8{6, -7},
		TangentW: -1,
		Material: 9,
	}
	b := vertexBytes([]scene.Vertex{v})
	assert.Len(t, b, 20)
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[0:]))
	assert.Equal(t, int16(-2), int16(binary.LittleEndian.Uint16(b[2:])))
	assert.Equal(t, uint16(100), binary.LittleEndian.Uint16(b[6:]))
	assert.Equal(t, uint16(200), binary.LittleEndian.Uint16(b[8:]))
	assert.Equal(t, int8(4), int8(b[10]))
	assert.Equal(t, int8(-5), int8(b[11]))
	assert.Equal(t, int8(-1), int8(b[14]))
	assert.Equal(t, uint16(9), binary.LittleEndian.Uint16(b[16:]))
}

func TestU32BytesLayout(t *testing.T) {
	b := u32Bytes([]uint32{1, 0xdeadbeef})
	assert.Len(t, b, 8)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(b[4:]))
}

func TestMaterialBytesCarriesEveryFactor(t *testing.T) {
	m := scene.Material{
		Albedo: 1, Normal: 2, Specular: 3, Emissive: 4,
		BaseColor:      [4]float32{0.1, 0.2, 0.3, 0.4},
		EmissiveFactor: [3]float32{0.5, 0.6, 0.7},
		Metallic:       0.8,
		Roughness:      0.9,
		IOR:            1.4,
	}
	b := materialBytes([]scene.Material{m})
	assert.Len(t, b, 56)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[8:]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(b[12:]))
	assert.InDelta(t, 0.1, readF32(b[16:]), 1e-6)
	assert.InDelta(t, 0.4, readF32(b[28:]), 1e-6)
	assert.InDelta(t, 0.5, readF32(b[32:]), 1e-6)
	assert.InDelta(t, 0.8, readF32(b[44:]), 1e-6)
	assert.InDelta(t, 0.9, readF32(b[48:]), 1e-6)
	assert.InDelta(t, 1.4, readF32(b[52:]), 1e-6)
}

func TestMeshletBytesLayout(t *testing.T) {
	m := scene.Meshlet{
		Bounds:        scene.Sphere{Center: linear.V3{1, 2, 3}, Radius: 4},
		ConeAxis:      [3]int8{5, -6, 7},
		ConeCutoff:    -8,
		VertexCount:   9,
		TriangleCount: 10,
		DataOffset:    0xcafef00d,
	}
	b := meshletBytes([]scene.Meshlet{m})
	assert.Len(t, b, 28)
	assert.InDelta(t, 1, readF32(b[0:]), 1e-6)
	assert.InDelta(t, 2, readF32(b[4:]), 1e-6)
	assert.InDelta(t, 3, readF32(b[8:]), 1e-6)
	assert.InDelta(t, 4, readF32(b[12:]), 1e-6)
	assert.Equal(t, int8(5), int8(b[16]))
	assert.Equal(t, int8(-6), int8(b[17]))
	assert.Equal(t, int8(7), int8(b[18]))
	assert.Equal(t, int8(-8), int8(b[19]))
	assert.Equal(t, uint8(9), b[20])
	assert.Equal(t, uint8(10), b[21])
	assert.Equal(t, uint32(0xcafef00d), binary.LittleEndian.Uint32(b[24:]))
}

func TestMeshBytesLayout(t *testing.T) {
	m := scene.Mesh{
		VertexOffset: 100,
		VertexCount:  200,
		Material:     3,
		Bounds:       scene.Sphere{Center: linear.V3{1, 2, 3}, Radius: 4},
		LODs: []scene.LOD{
			{IndexOffset: 0, IndexCount: 300, MeshletOffset: 0, MeshletCount: 64},
			{IndexOffset: 300, IndexCount: 150, MeshletOffset: 64, MeshletCount: 64},
		},
	}
	b := meshBytes([]scene.Mesh{m})
	assert.Len(t, b, 160)
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint32(200), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[8:]))
	assert.InDelta(t, 4, readF32(b[24:]), 1e-6)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[28:]))
	assert.Equal(t, uint32(300), binary.LittleEndian.Uint32(b[36:]))
	assert.Equal(t, uint32(150), binary.LittleEndian.Uint32(b[32+16+4:]))
	// Unused LOD slots stay zero.
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[32+2*16:]))
}

func TestInstanceBytesCarriesWorldTransform(t *testing.T) {
	var world linear.M4
	world.I()
	world[3] = linear.V4{5, 6, 7, 1}
	b := instanceBytes([]scene.Flat{{World: world, Model: 2}})
	assert.Len(t, b, 80)
	assert.InDelta(t, 1, readF32(b[0:]), 1e-6)
	assert.InDelta(t, 5, readF32(b[48:]), 1e-6)
	assert.InDelta(t, 6, readF32(b[52:]), 1e-6)
	assert.InDelta(t, 7, readF32(b[56:]), 1e-6)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[64:]))
}

func TestDrawBytesOnePerInstanceMeshPair(t *testing.T) {
	s := &scene.Scene{
		Models: []scene.Model{
			{Meshes: []uint32{0, 1}},
			{Meshes: []uint32{2}},
		},
	}
	var id linear.M4
	id.I()
	flats := []scene.Flat{
		{World: id, Model: 0},
		{World: id, Model: 1},
	}
	assert.Equal(t, 3, drawCount(s, flats))
	b := drawBytes(s, flats)
	assert.Len(t, b, 3*8)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[8:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[12:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[16:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[20:]))
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
