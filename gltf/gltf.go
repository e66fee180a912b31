// Package gltf decodes the subset of glTF 2.0 the asset conditioner
// consumes: buffers and accessors for geometry, images and textures
// for materials, the PBR metallic-roughness material model, and the
// mesh/node/scene hierarchy. Animations, skins, cameras and lights
// are not part of the conditioning input and are ignored when
// present in a document.
package gltf

import (
	"encoding/json"
	"io"
)

// Accessor component types, as the format spells them.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// Accessor element types.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
	TypeMat4   = "MAT4"
)

// Image MIME types the conditioner decodes.
const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
)

// GLTF is the root of a decoded document.
type GLTF struct {
	Asset struct {
		Version    string `json:"version"`
		Generator  string `json:"generator,omitempty"`
		MinVersion string `json:"minVersion,omitempty"`
	} `json:"asset"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	Images      []Image      `json:"images,omitempty"`
	Samplers    []Sampler    `json:"samplers,omitempty"`
	Textures    []Texture    `json:"textures,omitempty"`
	Materials   []Material   `json:"materials,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Scene       *int64       `json:"scene,omitempty"`
}

// Buffer is a blob of geometry or image bytes, inline in a GLB's
// BIN chunk (no URI) or external.
type Buffer struct {
	ByteLength int64  `json:"byteLength"`
	URI        string `json:"uri,omitempty"`
	Name       string `json:"name,omitempty"`
}

// BufferView is a byte range of a buffer.
type BufferView struct {
	Buffer     int64  `json:"buffer"`
	ByteOffset int64  `json:"byteOffset,omitempty"`
	ByteLength int64  `json:"byteLength"`
	ByteStride int64  `json:"byteStride,omitempty"`
	Target     int64  `json:"target,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Accessor types a buffer view's contents: count elements of the
// given element type and component type, starting at ByteOffset
// within the view.
type Accessor struct {
	BufferView    *int64    `json:"bufferView,omitempty"`
	ByteOffset    int64     `json:"byteOffset,omitempty"`
	ComponentType int64     `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int64     `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
	Name          string    `json:"name,omitempty"`
}

// Image is a PNG or JPEG source, embedded via a buffer view or
// referenced by URI relative to the document.
type Image struct {
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int64 `json:"bufferView,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Sampler carries filtering/wrapping hints. The conditioner bakes
// its own samplers, so the fields are recorded but unused.
type Sampler struct {
	MagFilter int64 `json:"magFilter,omitempty"`
	MinFilter int64 `json:"minFilter,omitempty"`
	WrapS     int64 `json:"wrapS,omitempty"`
	WrapT     int64 `json:"wrapT,omitempty"`
}

// Texture pairs an image source with a sampler.
type Texture struct {
	Sampler *int64 `json:"sampler,omitempty"`
	Source  *int64 `json:"source,omitempty"`
	Name    string `json:"name,omitempty"`
}

// TextureInfo references a texture from a material channel.
type TextureInfo struct {
	Index    int64 `json:"index"`
	TexCoord int64 `json:"texCoord,omitempty"`
}

// NormalTextureInfo is TextureInfo plus the normal-map scale.
type NormalTextureInfo struct {
	Index    int64    `json:"index"`
	TexCoord int64    `json:"texCoord,omitempty"`
	Scale    *float32 `json:"scale,omitempty"`
}

// PBRMetallicRoughness is the core material model: base color,
// metallic and roughness factors, each optionally modulated by a
// texture.
type PBRMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// Material combines the PBR model with normal and emissive
// channels. Extension blocks (IOR, emissive strength) decode into
// Extensions as nested maps.
type Material struct {
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *NormalTextureInfo    `json:"normalTexture,omitempty"`
	EmissiveTexture      *TextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32           `json:"emissiveFactor,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32              `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
	Name                 string                `json:"name,omitempty"`
	Extensions           any                   `json:"extensions,omitempty"`
}

// Mesh is an ordered list of primitives.
type Mesh struct {
	Primitives []Primitive `json:"primitives"`
	Name       string      `json:"name,omitempty"`
}

// Primitive is one drawable: attribute accessors keyed by semantic
// (POSITION, NORMAL, TEXCOORD_0, TANGENT), an optional index
// accessor, and an optional material.
type Primitive struct {
	Attributes map[string]int64 `json:"attributes"`
	Indices    *int64           `json:"indices,omitempty"`
	Material   *int64           `json:"material,omitempty"`
	Mode       *int64           `json:"mode,omitempty"`
}

// Node is one scene-graph entry: an optional mesh plus either a
// matrix or a decomposed TRS transform, and child node indices.
type Node struct {
	Mesh        *int64       `json:"mesh,omitempty"`
	Children    []int64      `json:"children,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
	Name        string       `json:"name,omitempty"`
}

// Scene lists its root nodes.
type Scene struct {
	Nodes []int64 `json:"nodes,omitempty"`
	Name  string  `json:"name,omitempty"`
}

// Decode reads one JSON document from r.
func Decode(r io.Reader) (*GLTF, error) {
	var doc GLTF
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode writes doc to w as compact JSON.
func Encode(w io.Writer, doc *GLTF) error {
	return json.NewEncoder(w).Encode(doc)
}
