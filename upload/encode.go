package upload

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/SebastianRueClausen/rendinator-sub000/driver"
	"github.com/SebastianRueClausen/rendinator-sub000/gpu"
	scene "github.com/SebastianRueClausen/rendinator-sub000"
)

var (
	errArenaFull  = errors.New("upload: arena exhausted")
	errArenaAlign = errors.New("upload: alignment exceeds staging block size")
)

func gpuGPU() driver.GPU { return gpu.GPU() }

func gpuNewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return gpuGPU().NewBuffer(size, visible, usg)
}

func gpuNewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return gpuGPU().NewImage(pf, size, layers, levels, samples, usg)
}

// vertexStride is the packed GPU vertex size.
const vertexStride = 20

// vertexBytes packs a Vertex array into its GPU layout: 3x int16
// position, 2x uint16 texcoord, 2x int8 + 1x int8 normal/tangent,
// uint16 material — 20 bytes per vertex.
func vertexBytes(vs []scene.Vertex) []byte {
	const stride = vertexStride
	out := make([]byte, len(vs)*stride)
	for i, v := range vs {
		b := out[i*stride:]
		binary.LittleEndian.PutUint16(b[0:], uint16(v.Position[0]))
		binary.LittleEndian.PutUint16(b[2:], uint16(v.Position[1]))
		binary.LittleEndian.PutUint16(b[4:], uint16(v.Position[2]))
		binary.LittleEndian.PutUint16(b[6:], v.Texcoord[0])
		binary.LittleEndian.PutUint16(b[8:], v.Texcoord[1])
		b[10] = byte(v.Normal[0])
		b[11] = byte(v.Normal[1])
		b[12] = byte(v.Tangent[0])
		b[13] = byte(v.Tangent[1])
		b[14] = byte(v.TangentW)
		binary.LittleEndian.PutUint16(b[16:], v.Material)
	}
	return out
}

func u32Bytes(vs []uint32) []byte {
	out := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// meshletBytes packs a Meshlet array: bounding sphere (4 float32),
// cone axis+cutoff (4 int8), vertex/triangle counts (2 uint8), two
// bytes of padding, then the data offset (uint32) — 28 bytes per
// meshlet.
func meshletBytes(ms []scene.Meshlet) []byte {
	const stride = 28
	out := make([]byte, len(ms)*stride)
	for i, m := range ms {
		b := out[i*stride:]
		putFloat32(b[0:], m.Bounds.Center[0])
		putFloat32(b[4:], m.Bounds.Center[1])
		putFloat32(b[8:], m.Bounds.Center[2])
		putFloat32(b[12:], m.Bounds.Radius)
		b[16] = byte(m.ConeAxis[0])
		b[17] = byte(m.ConeAxis[1])
		b[18] = byte(m.ConeAxis[2])
		b[19] = byte(m.ConeCutoff)
		b[20] = m.VertexCount
		b[21] = m.TriangleCount
		binary.LittleEndian.PutUint32(b[24:], m.DataOffset)
	}
	return out
}

// materialBytes packs a Material array into its shader-visible
// constant layout: four texture indices, base color, emissive
// factor, then metallic/roughness/ior.
func materialBytes(ms []scene.Material) []byte {
	const stride = 56
	out := make([]byte, len(ms)*stride)
	for i, m := range ms {
		b := out[i*stride:]
		binary.LittleEndian.PutUint32(b[0:], uint32(m.Albedo))
		binary.LittleEndian.PutUint32(b[4:], uint32(m.Normal))
		binary.LittleEndian.PutUint32(b[8:], uint32(m.Specular))
		binary.LittleEndian.PutUint32(b[12:], uint32(m.Emissive))
		for k, c := range m.BaseColor {
			putFloat32(b[16+k*4:], c)
		}
		for k, c := range m.EmissiveFactor {
			putFloat32(b[32+k*4:], c)
		}
		putFloat32(b[44:], m.Metallic)
		putFloat32(b[48:], m.Roughness)
		putFloat32(b[52:], m.IOR)
	}
	return out
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

// meshBytes packs a Mesh array: vertex offset/count, material,
// bounding sphere (4 float32), LOD count, then 8 LOD slots of 4
// uint32 each, zero-padded — 160 bytes per mesh.
func meshBytes(ms []scene.Mesh) []byte {
	const stride = 160
	out := make([]byte, len(ms)*stride)
	for i, m := range ms {
		b := out[i*stride:]
		binary.LittleEndian.PutUint32(b[0:], m.VertexOffset)
		binary.LittleEndian.PutUint32(b[4:], m.VertexCount)
		binary.LittleEndian.PutUint32(b[8:], m.Material)
		putFloat32(b[12:], m.Bounds.Center[0])
		putFloat32(b[16:], m.Bounds.Center[1])
		putFloat32(b[20:], m.Bounds.Center[2])
		putFloat32(b[24:], m.Bounds.Radius)
		binary.LittleEndian.PutUint32(b[28:], uint32(len(m.LODs)))
		for l, lod := range m.LODs {
			lb := b[32+l*16:]
			binary.LittleEndian.PutUint32(lb[0:], lod.IndexOffset)
			binary.LittleEndian.PutUint32(lb[4:], lod.IndexCount)
			binary.LittleEndian.PutUint32(lb[8:], lod.MeshletOffset)
			binary.LittleEndian.PutUint32(lb[12:], lod.MeshletCount)
		}
	}
	return out
}

// instanceBytes packs the flattened instance tree: a column-major
// 4x4 world transform plus the model index — 80 bytes per entry.
func instanceBytes(flats []scene.Flat) []byte {
	const stride = 80
	out := make([]byte, len(flats)*stride)
	for i, f := range flats {
		b := out[i*stride:]
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				putFloat32(b[(c*4+r)*4:], f.World[c][r])
			}
		}
		binary.LittleEndian.PutUint32(b[64:], uint32(f.Model))
	}
	return out
}

// drawBytes packs one draw descriptor per (instance, mesh) pair:
// mesh index and instance index — 8 bytes per draw. The per-draw
// early-phase bit lives in the cull pass's own state buffer.
func drawBytes(s *scene.Scene, flats []scene.Flat) []byte {
	const stride = 8
	out := make([]byte, drawCount(s, flats)*stride)
	d := 0
	for i, f := range flats {
		for _, mesh := range s.Models[f.Model].Meshes {
			b := out[d*stride:]
			binary.LittleEndian.PutUint32(b[0:], mesh)
			binary.LittleEndian.PutUint32(b[4:], uint32(i))
			d++
		}
	}
	return out
}

// drawCount reports the number of potential draws in the flattened
// scene.
func drawCount(s *scene.Scene, flats []scene.Flat) int {
	n := 0
	for _, f := range flats {
		n += len(s.Models[f.Model].Meshes)
	}
	return n
}
