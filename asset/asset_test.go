package asset

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianRueClausen/rendinator-sub000/gltf"
	"github.com/SebastianRueClausen/rendinator-sub000/texcompress"
)

// triangleDoc builds a single-primitive, single-node glTF document
// whose accessors point into bin: three positions, three UVs and
// three indices, all packed back to back.
func triangleDoc() (*gltf.GLTF, []byte) {
	var bin []byte
	putF32 := func(v float32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		bin = append(bin, b[:]...)
	}
	posOff := len(bin)
	putF32(0)
	putF32(0)
	putF32(0)
	putF32(1)
	putF32(0)
	putF32(0)
	putF32(0)
	putF32(1)
	putF32(0)

	uvOff := len(bin)
	putF32(0)
	putF32(0)
	putF32(1)
	putF32(0)
	putF32(0)
	putF32(1)

	idxOff := len(bin)
	for _, i := range []uint16{0, 1, 2} {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], i)
		bin = append(bin, b[:]...)
	}

	zero := int64(0)
	mat := int64(0)
	mesh := int64(0)
	baseColor := [4]float32{0.2, 0.4, 0.8, 1}
	metallic := float32(0.1)
	roughness := float32(0.9)

	doc := &gltf.GLTF{
		BufferViews: []gltf.BufferView{
			{Buffer: 0, ByteOffset: int64(posOff), ByteLength: 36},
			{Buffer: 0, ByteOffset: int64(uvOff), ByteLength: 24},
			{Buffer: 0, ByteOffset: int64(idxOff), ByteLength: 6},
		},
		Accessors: []gltf.Accessor{
			{BufferView: ptr(int64(0)), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.TypeVec3},
			{BufferView: ptr(int64(1)), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.TypeVec2},
			{BufferView: ptr(int64(2)), ComponentType: gltf.ComponentUnsignedShort, Count: 3, Type: gltf.TypeScalar},
		},
		Materials: []gltf.Material{{
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &baseColor,
				MetallicFactor:  &metallic,
				RoughnessFactor: &roughness,
			},
		}},
		Meshes: []gltf.Mesh{{
			Primitives: []gltf.Primitive{{
				Attributes: map[string]int64{"POSITION": 0, "TEXCOORD_0": 1},
				Indices:    ptr(int64(2)),
				Material:   &mat,
			}},
		}},
		Nodes: []gltf.Node{{Mesh: &mesh}},
		Scenes: []gltf.Scene{{Nodes: []int64{0}}},
		Scene:  &zero,
	}
	doc.Asset.Version = "2.0"
	return doc, bin
}

func ptr[T any](v T) *T { return &v }

func TestBuildTriangle(t *testing.T) {
	doc, bin := triangleDoc()
	s, err := Build(doc, bin, "")
	require.NoError(t, err)

	require.Len(t, s.Meshes, 1)
	require.Len(t, s.Models, 1)
	require.Len(t, s.Instances, 1)
	require.Equal(t, []int32{0}, s.Roots)
	assert.Equal(t, int32(0), s.Instances[0].Model)

	require.Len(t, s.Materials, 1)
	assert.InDelta(t, 0.2, s.Materials[0].BaseColor[0], 1e-6)
	assert.InDelta(t, 0.1, s.Materials[0].Metallic, 1e-6)
	assert.InDelta(t, 0.9, s.Materials[0].Roughness, 1e-6)

	require.NoError(t, s.Validate())
}

func TestBuildMissingPosition(t *testing.T) {
	doc, bin := triangleDoc()
	delete(doc.Meshes[0].Primitives[0].Attributes, "POSITION")
	_, err := Build(doc, bin, "")
	require.Error(t, err)
}

// A material referencing an embedded PNG gets its own conditioned
// texture ahead of the four fallbacks, and the same image referenced
// twice with the same kind is conditioned once.
func TestBuildConditionsEmbeddedTexture(t *testing.T) {
	doc, bin := triangleDoc()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 32), uint8(y * 32), 0x80, 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	imgOff := len(bin)
	bin = append(bin, buf.Bytes()...)

	doc.BufferViews = append(doc.BufferViews, gltf.BufferView{
		Buffer: 0, ByteOffset: int64(imgOff), ByteLength: int64(buf.Len()),
	})
	view := int64(len(doc.BufferViews) - 1)
	doc.Images = []gltf.Image{{MimeType: gltf.PNG, BufferView: &view}}
	doc.Textures = []gltf.Texture{{Source: ptr(int64(0))}}
	doc.Materials[0].PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: 0}
	doc.Materials = append(doc.Materials, gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})

	s, err := Build(doc, bin, "")
	require.NoError(t, err)

	// One conditioned albedo plus the four fallbacks.
	require.Len(t, s.Textures, 5)
	assert.Equal(t, texcompress.KindAlbedo, s.Textures[0].Kind)
	assert.Equal(t, 8, s.Textures[0].Width)
	assert.Equal(t, s.Materials[0].Albedo, s.Materials[1].Albedo)
	require.NoError(t, s.Validate())
}
