package gltf

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `{
	"asset": {"version": "2.0"},
	"buffers": [{"byteLength": 44}],
	"bufferViews": [
		{"buffer": 0, "byteOffset": 0, "byteLength": 36},
		{"buffer": 0, "byteOffset": 36, "byteLength": 6}
	],
	"accessors": [
		{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
		{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
	],
	"materials": [{"pbrMetallicRoughness": {"metallicFactor": 0.5}}],
	"meshes": [{"primitives": [
		{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}
	]}],
	"nodes": [{"mesh": 0, "children": [1]}, {"translation": [1, 2, 3]}],
	"scenes": [{"nodes": [0]}],
	"scene": 0
}`

func TestDecodeAndCheck(t *testing.T) {
	doc, err := Decode(strings.NewReader(minimalDoc))
	require.NoError(t, err)
	require.NoError(t, doc.Check())

	assert.Equal(t, "2.0", doc.Asset.Version)
	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.Equal(t, int64(0), prim.Attributes["POSITION"])
	require.NotNil(t, doc.Materials[0].PBRMetallicRoughness.MetallicFactor)
	assert.InDelta(t, 0.5, *doc.Materials[0].PBRMetallicRoughness.MetallicFactor, 1e-6)
	require.NotNil(t, doc.Nodes[1].Translation)
	assert.Equal(t, [3]float32{1, 2, 3}, *doc.Nodes[1].Translation)
}

func TestCheckRejects(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(*GLTF)
	}{
		{"bad version", func(d *GLTF) { d.Asset.Version = "1.0" }},
		{"view past buffer", func(d *GLTF) { d.BufferViews[0].ByteLength = 100 }},
		{"accessor past view", func(d *GLTF) { d.Accessors[0].Count = 100 }},
		{"unknown component type", func(d *GLTF) { d.Accessors[0].ComponentType = 9999 }},
		{"primitive bad accessor", func(d *GLTF) { *d.Meshes[0].Primitives[0].Indices = 7 }},
		{"primitive bad material", func(d *GLTF) { *d.Meshes[0].Primitives[0].Material = 3 }},
		{"node bad child", func(d *GLTF) { d.Nodes[0].Children[0] = 9 }},
		{"self child", func(d *GLTF) { d.Nodes[0].Children[0] = 0 }},
		{"two parents", func(d *GLTF) { d.Nodes[1].Children = []int64{0}; d.Nodes = append(d.Nodes, Node{Children: []int64{0}}) }},
		{"scene bad node", func(d *GLTF) { d.Scenes[0].Nodes[0] = 4 }},
		{"bad default scene", func(d *GLTF) { *d.Scene = 2 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(minimalDoc))
			require.NoError(t, err)
			c.corrupt(doc)
			assert.Error(t, doc.Check())
		})
	}
}

// glbBytes assembles a GLB container around the given JSON and BIN
// payloads.
func glbBytes(t *testing.T, jsonChunk, binChunk []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	total := 12 + 8 + len(jsonChunk)
	if binChunk != nil {
		total += 8 + len(binChunk)
	}
	words := []uint32{glbMagic, 2, uint32(total), uint32(len(jsonChunk)), glbJSONType}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, words))
	buf.Write(jsonChunk)
	if binChunk != nil {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(binChunk)), glbBINType}))
		buf.Write(binChunk)
	}
	return buf.Bytes()
}

func TestGLBSeek(t *testing.T) {
	jsonChunk := []byte(`{"asset":{"version":"2.0"}}`)
	binChunk := []byte{1, 2, 3, 4}
	r := bytes.NewReader(glbBytes(t, jsonChunk, binChunk))

	require.True(t, IsGLB(r))
	n, err := SeekJSON(r, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, len(jsonChunk), n)

	doc, err := Decode(io.LimitReader(r, int64(n)))
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Asset.Version)

	n, err = SeekBIN(r, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, len(binChunk), n)
}

func TestGLBSeekFromStart(t *testing.T) {
	jsonChunk := []byte(`{"asset":{"version":"2.0"}}`)
	r := bytes.NewReader(glbBytes(t, jsonChunk, nil))
	n, err := SeekJSON(r, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, len(jsonChunk), n)

	// Skip the JSON payload so r sits where a BIN chunk header would
	// start; without a BIN chunk the seek reports EOF.
	_, err = r.Seek(int64(n), io.SeekCurrent)
	require.NoError(t, err)
	_, err = SeekBIN(r, io.SeekCurrent)
	assert.ErrorIs(t, err, io.EOF)
}

func TestIsGLBRejectsGarbage(t *testing.T) {
	assert.False(t, IsGLB(bytes.NewReader([]byte("not a container"))))
	assert.False(t, IsGLB(bytes.NewReader(nil)))
}
