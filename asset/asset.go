// Package asset turns a decoded glTF 2.0 document into a
// scene.Scene, running every primitive through the conditioning
// pipeline (quantization, LOD generation, meshlet partitioning) and
// flattening the node hierarchy into scene.Instances.
package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	scene "github.com/SebastianRueClausen/rendinator-sub000"
	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/gltf"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// LoadGLB reads a binary glTF (.glb) file and conditions it into a
// scene.Scene. Only the embedded BIN chunk is supported; external
// buffer URIs are not.
func LoadGLB(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.KindIO, "asset.LoadGLB", err)
	}
	defer f.Close()

	if !gltf.IsGLB(f) {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", fmt.Errorf("%s is not a GLB file", path))
	}
	n, err := gltf.SeekJSON(f, io.SeekCurrent)
	if err != nil {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", err)
	}
	jsonBuf := make([]byte, n)
	if _, err := io.ReadFull(f, jsonBuf); err != nil {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", err)
	}
	doc, err := gltf.Decode(bytes.NewReader(jsonBuf))
	if err != nil {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", err)
	}
	if err := doc.Check(); err != nil {
		return nil, errs.New(errs.KindValidation, "asset.LoadGLB", err)
	}

	binLen, err := gltf.SeekBIN(f, io.SeekCurrent)
	if err != nil {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", err)
	}
	bin := make([]byte, binLen)
	if _, err := io.ReadFull(f, bin); err != nil {
		return nil, errs.New(errs.KindParse, "asset.LoadGLB", err)
	}
	return Build(doc, bin, filepath.Dir(path))
}

// Build conditions doc into a scene.Scene, resolving accessor data
// from the single embedded binary blob bin. External image URIs are
// resolved relative to dir; pass an empty dir for documents with
// only embedded images.
func Build(doc *gltf.GLTF, bin []byte, dir string) (*scene.Scene, error) {
	var s scene.Scene
	cond := newConditioner(doc, bin, dir, &s)
	for i := range doc.Materials {
		m, err := cond.material(&doc.Materials[i])
		if err != nil {
			return nil, err
		}
		s.Materials = append(s.Materials, m)
	}
	if len(s.Materials) == 0 {
		s.Materials = append(s.Materials, scene.NewMaterial())
	}
	fallback, err := scene.NewFallbacks(&s)
	if err != nil {
		return nil, err
	}
	for i := range s.Materials {
		s.Materials[i].ResolveFallbacks(fallback)
	}

	// One Model per glTF mesh, listing the Scene.Meshes indices
	// its primitives were conditioned into.
	for _, m := range doc.Meshes {
		var model scene.Model
		for _, prim := range m.Primitives {
			in, err := primitiveInput(doc, bin, &prim)
			if err != nil {
				return nil, err
			}
			mesh, err := s.AddPrimitive(*in)
			if err != nil {
				return nil, err
			}
			s.Meshes = append(s.Meshes, mesh)
			model.Meshes = append(model.Meshes, uint32(len(s.Meshes)-1))
		}
		s.Models = append(s.Models, model)
	}

	for _, root := range gltfRoots(doc) {
		idx := buildInstance(&s, doc, root)
		s.Roots = append(s.Roots, idx)
	}
	return &s, s.Validate()
}

func gltfRoots(doc *gltf.GLTF) []int64 {
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	return nil
}

// buildInstance recursively appends n and its children to s.Instances
// and returns n's own index.
func buildInstance(s *scene.Scene, doc *gltf.GLTF, n int64) int32 {
	node := doc.Nodes[n]
	inst := scene.Instance{Model: -1, Scale: linear.V3{1, 1, 1}, Rotation: linear.Q{R: 1}}
	if node.Mesh != nil {
		inst.Model = int32(*node.Mesh)
	}
	if node.Translation != nil {
		inst.Translation = linear.V3{node.Translation[0], node.Translation[1], node.Translation[2]}
	}
	if node.Rotation != nil {
		inst.Rotation = linear.Q{
			V: linear.V3{node.Rotation[0], node.Rotation[1], node.Rotation[2]},
			R: node.Rotation[3],
		}
	}
	if node.Scale != nil {
		inst.Scale = linear.V3{node.Scale[0], node.Scale[1], node.Scale[2]}
	}
	idx := int32(len(s.Instances))
	s.Instances = append(s.Instances, inst)
	for _, c := range node.Children {
		child := buildInstance(s, doc, c)
		s.Instances[idx].Children = append(s.Instances[idx].Children, child)
	}
	return idx
}

// primitiveInput decodes a glTF primitive's attributes into a
// scene.PrimitiveInput, reading straight out of bin using each
// accessor's buffer view.
func primitiveInput(doc *gltf.GLTF, bin []byte, prim *gltf.Primitive) (*scene.PrimitiveInput, error) {
	in := &scene.PrimitiveInput{}
	if prim.Material != nil {
		in.Material = uint32(*prim.Material)
	}

	pos, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errs.New(errs.KindValidation, "asset.primitiveInput", fmt.Errorf("primitive has no POSITION attribute"))
	}
	positions, err := readVec3(doc, bin, pos)
	if err != nil {
		return nil, err
	}
	in.Positions = positions

	if nrm, ok := prim.Attributes["NORMAL"]; ok {
		in.Normals, err = readVec3(doc, bin, nrm)
		if err != nil {
			return nil, err
		}
	}
	if tan, ok := prim.Attributes["TANGENT"]; ok {
		in.Tangents, err = readVec4(doc, bin, tan)
		if err != nil {
			return nil, err
		}
	}
	if uv, ok := prim.Attributes["TEXCOORD_0"]; ok {
		in.Texcoords, err = readVec2(doc, bin, uv)
		if err != nil {
			return nil, err
		}
	} else {
		in.Texcoords = make([][2]float32, len(positions))
	}
	if prim.Indices != nil {
		in.Indices, err = readIndices(doc, bin, *prim.Indices)
		if err != nil {
			return nil, err
		}
	} else {
		in.Indices = make([]uint32, len(positions))
		for i := range in.Indices {
			in.Indices[i] = uint32(i)
		}
	}
	return in, nil
}

func accessorBytes(doc *gltf.GLTF, bin []byte, accessor int64) ([]byte, *gltf.Accessor, error) {
	a := &doc.Accessors[accessor]
	if a.BufferView == nil {
		return nil, a, errs.New(errs.KindValidation, "asset.accessorBytes", fmt.Errorf("accessor %d has no bufferView (sparse accessors unsupported)", accessor))
	}
	view := &doc.BufferViews[*a.BufferView]
	off := view.ByteOffset + a.ByteOffset
	return bin[off:], a, nil
}

func componentSize(componentType int64) int {
	switch componentType {
	case gltf.ComponentByte, gltf.ComponentUnsignedByte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUnsignedShort:
		return 2
	case gltf.ComponentUnsignedInt, gltf.ComponentFloat:
		return 4
	default:
		return 4
	}
}

func readFloat(b []byte, componentType int64, i int) float32 {
	sz := componentSize(componentType)
	off := i * sz
	switch componentType {
	case gltf.ComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	case gltf.ComponentUnsignedByte:
		return float32(b[off]) / 255
	case gltf.ComponentUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b[off:])) / 65535
	default:
		return float32(binary.LittleEndian.Uint32(b[off:]))
	}
}

func readVec3(doc *gltf.GLTF, bin []byte, accessor int64) ([]linear.V3, error) {
	b, a, err := accessorBytes(doc, bin, accessor)
	if err != nil {
		return nil, err
	}
	stride := componentSize(a.ComponentType) * 3
	out := make([]linear.V3, a.Count)
	for i := range out {
		base := b[i*stride:]
		out[i] = linear.V3{
			readFloat(base, a.ComponentType, 0),
			readFloat(base, a.ComponentType, 1),
			readFloat(base, a.ComponentType, 2),
		}
	}
	return out, nil
}

func readVec2(doc *gltf.GLTF, bin []byte, accessor int64) ([][2]float32, error) {
	b, a, err := accessorBytes(doc, bin, accessor)
	if err != nil {
		return nil, err
	}
	stride := componentSize(a.ComponentType) * 2
	out := make([][2]float32, a.Count)
	for i := range out {
		base := b[i*stride:]
		out[i] = [2]float32{readFloat(base, a.ComponentType, 0), readFloat(base, a.ComponentType, 1)}
	}
	return out, nil
}

func readVec4(doc *gltf.GLTF, bin []byte, accessor int64) ([]linear.V4, error) {
	b, a, err := accessorBytes(doc, bin, accessor)
	if err != nil {
		return nil, err
	}
	stride := componentSize(a.ComponentType) * 4
	out := make([]linear.V4, a.Count)
	for i := range out {
		base := b[i*stride:]
		out[i] = linear.V4{
			readFloat(base, a.ComponentType, 0),
			readFloat(base, a.ComponentType, 1),
			readFloat(base, a.ComponentType, 2),
			readFloat(base, a.ComponentType, 3),
		}
	}
	return out, nil
}

func readIndices(doc *gltf.GLTF, bin []byte, accessor int64) ([]uint32, error) {
	b, a, err := accessorBytes(doc, bin, accessor)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, a.Count)
	switch a.ComponentType {
	case gltf.ComponentUnsignedShort:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(b[i*2:]))
		}
	case gltf.ComponentUnsignedInt:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(b[i*4:])
		}
	default:
		return nil, errs.New(errs.KindValidation, "asset.readIndices", fmt.Errorf("unsupported index component type %d", a.ComponentType))
	}
	return out, nil
}
