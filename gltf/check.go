package gltf

import "fmt"

// Check validates every cross-reference in the document so that the
// conditioner can index freely afterwards: buffer views point into
// buffers, accessors into views, primitives into accessors and
// materials, material channels into textures, textures into images
// and samplers, nodes into meshes and children, and scenes into
// nodes. It also rejects documents of a version other than 2.x and
// node graphs that are not trees.
func (doc *GLTF) Check() error {
	if v := doc.Asset.Version; len(v) < 2 || v[:2] != "2." {
		return fmt.Errorf("gltf: unsupported version %q", v)
	}

	for i, b := range doc.Buffers {
		if b.ByteLength <= 0 {
			return fmt.Errorf("gltf: buffer %d has non-positive byteLength %d", i, b.ByteLength)
		}
	}
	for i, v := range doc.BufferViews {
		if err := checkIndex("bufferView", i, "buffer", v.Buffer, len(doc.Buffers)); err != nil {
			return err
		}
		if v.ByteOffset < 0 || v.ByteLength <= 0 {
			return fmt.Errorf("gltf: bufferView %d has invalid range [%d, %d)", i, v.ByteOffset, v.ByteOffset+v.ByteLength)
		}
		if end := v.ByteOffset + v.ByteLength; end > doc.Buffers[v.Buffer].ByteLength {
			return fmt.Errorf("gltf: bufferView %d ends at %d, past buffer %d's length %d",
				i, end, v.Buffer, doc.Buffers[v.Buffer].ByteLength)
		}
	}
	for i, a := range doc.Accessors {
		if err := a.check(doc, i); err != nil {
			return err
		}
	}
	for i, img := range doc.Images {
		if img.BufferView == nil && img.URI == "" {
			return fmt.Errorf("gltf: image %d has neither bufferView nor uri", i)
		}
		if img.BufferView != nil {
			if err := checkIndex("image", i, "bufferView", *img.BufferView, len(doc.BufferViews)); err != nil {
				return err
			}
		}
	}
	for i, t := range doc.Textures {
		if t.Source != nil {
			if err := checkIndex("texture", i, "image", *t.Source, len(doc.Images)); err != nil {
				return err
			}
		}
		if t.Sampler != nil {
			if err := checkIndex("texture", i, "sampler", *t.Sampler, len(doc.Samplers)); err != nil {
				return err
			}
		}
	}
	for i, m := range doc.Materials {
		if err := m.check(doc, i); err != nil {
			return err
		}
	}
	for i, m := range doc.Meshes {
		if len(m.Primitives) == 0 {
			return fmt.Errorf("gltf: mesh %d has no primitives", i)
		}
		for j, p := range m.Primitives {
			if err := p.check(doc, i, j); err != nil {
				return err
			}
		}
	}
	if err := doc.checkNodes(); err != nil {
		return err
	}
	for i, s := range doc.Scenes {
		for _, n := range s.Nodes {
			if err := checkIndex("scene", i, "node", n, len(doc.Nodes)); err != nil {
				return err
			}
		}
	}
	if doc.Scene != nil {
		if err := checkIndex("document", 0, "scene", *doc.Scene, len(doc.Scenes)); err != nil {
			return err
		}
	}
	return nil
}

func checkIndex(owner string, ownerIdx int, kind string, idx int64, n int) error {
	if idx < 0 || idx >= int64(n) {
		return fmt.Errorf("gltf: %s %d references %s %d, have %d", owner, ownerIdx, kind, idx, n)
	}
	return nil
}

func componentBytes(componentType int64) int64 {
	switch componentType {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

func typeComponents(typ string) int64 {
	switch typ {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

func (a *Accessor) check(doc *GLTF, i int) error {
	cb := componentBytes(a.ComponentType)
	if cb == 0 {
		return fmt.Errorf("gltf: accessor %d has unknown componentType %d", i, a.ComponentType)
	}
	tc := typeComponents(a.Type)
	if tc == 0 {
		return fmt.Errorf("gltf: accessor %d has unknown type %q", i, a.Type)
	}
	if a.Count <= 0 {
		return fmt.Errorf("gltf: accessor %d has non-positive count %d", i, a.Count)
	}
	if a.ByteOffset < 0 {
		return fmt.Errorf("gltf: accessor %d has negative byteOffset", i)
	}
	if a.BufferView == nil {
		// Sparse-only accessors are not part of the conditioning
		// input; a viewless accessor reads as zeros and is left
		// for the consumer to reject.
		return nil
	}
	if err := checkIndex("accessor", i, "bufferView", *a.BufferView, len(doc.BufferViews)); err != nil {
		return err
	}
	view := &doc.BufferViews[*a.BufferView]
	stride := view.ByteStride
	if stride == 0 {
		stride = cb * tc
	}
	need := a.ByteOffset + stride*(a.Count-1) + cb*tc
	if need > view.ByteLength {
		return fmt.Errorf("gltf: accessor %d needs %d bytes of bufferView %d, which has %d",
			i, need, *a.BufferView, view.ByteLength)
	}
	return nil
}

func (m *Material) check(doc *GLTF, i int) error {
	refs := []*TextureInfo{m.EmissiveTexture}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		refs = append(refs, pbr.BaseColorTexture, pbr.MetallicRoughnessTexture)
	}
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if err := checkIndex("material", i, "texture", ref.Index, len(doc.Textures)); err != nil {
			return err
		}
	}
	if m.NormalTexture != nil {
		if err := checkIndex("material", i, "texture", m.NormalTexture.Index, len(doc.Textures)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Primitive) check(doc *GLTF, mesh, prim int) error {
	if len(p.Attributes) == 0 {
		return fmt.Errorf("gltf: mesh %d primitive %d has no attributes", mesh, prim)
	}
	for sem, acc := range p.Attributes {
		if err := checkIndex("primitive", prim, "accessor", acc, len(doc.Accessors)); err != nil {
			return fmt.Errorf("%w (attribute %s of mesh %d)", err, sem, mesh)
		}
	}
	if p.Indices != nil {
		if err := checkIndex("primitive", prim, "accessor", *p.Indices, len(doc.Accessors)); err != nil {
			return err
		}
	}
	if p.Material != nil {
		if err := checkIndex("primitive", prim, "material", *p.Material, len(doc.Materials)); err != nil {
			return err
		}
	}
	return nil
}

// checkNodes validates node references and rejects graphs where a
// node is reachable through two parents or through a cycle; the
// instance tree built from the document requires strict tree shape.
func (doc *GLTF) checkNodes() error {
	parent := make([]int64, len(doc.Nodes))
	for i := range parent {
		parent[i] = -1
	}
	for i, n := range doc.Nodes {
		if n.Mesh != nil {
			if err := checkIndex("node", i, "mesh", *n.Mesh, len(doc.Meshes)); err != nil {
				return err
			}
		}
		for _, c := range n.Children {
			if err := checkIndex("node", i, "child node", c, len(doc.Nodes)); err != nil {
				return err
			}
			if int64(i) == c {
				return fmt.Errorf("gltf: node %d is its own child", i)
			}
			if parent[c] != -1 {
				return fmt.Errorf("gltf: node %d has two parents (%d and %d)", c, parent[c], i)
			}
			parent[c] = int64(i)
		}
	}
	// Single-parenthood rules out diamonds; a cycle would need a
	// node whose ancestor chain never reaches a root.
	for i := range doc.Nodes {
		seen := 0
		for n := int64(i); n != -1; n = parent[n] {
			seen++
			if seen > len(doc.Nodes) {
				return fmt.Errorf("gltf: node %d is part of a cycle", i)
			}
		}
	}
	return nil
}
