// Package scene is the renderer's device-independent scene
// representation: quantized vertices, meshlet-clustered geometry,
// materials, textures, and the instance tree, plus the mesh
// pre-processing and meshlet partitioning that build them from a
// decoded asset.
package scene

import (
	"fmt"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// MaxLOD is the ceiling on LOD chain length per mesh.
const MaxLOD = 8

// MeshletVertexCap, MeshletTriangleCap and MeshletAlign bound a
// meshlet's size and the padding applied to each LOD's meshlet
// range.
const (
	MeshletVertexCap   = 64
	MeshletTriangleCap = 64
	MeshletAlign       = 64
)

// Vertex is the quantized, GPU-ready vertex record.
type Vertex struct {
	Position [3]int16 // snorm16, relative to the owning primitive's bounding sphere
	Texcoord [2]uint16
	Normal   [2]int8 // octahedron-encoded
	Tangent  [2]int8 // octahedron-encoded
	TangentW int8    // handedness: +1 or -1
	Material uint16
}

// Meshlet is a cluster of at most MeshletVertexCap vertices and
// MeshletTriangleCap triangles with its own culling metadata.
type Meshlet struct {
	Bounds        Sphere
	ConeAxis      [3]int8
	ConeCutoff    int8
	VertexCount   uint8
	TriangleCount uint8
	DataOffset    uint32
}

// LOD records one level of detail's ranges within a Mesh's shared
// index/meshlet arrays.
type LOD struct {
	IndexOffset   uint32
	IndexCount    uint32
	MeshletOffset uint32
	MeshletCount  uint32
}

// Mesh is a drawable primitive.
type Mesh struct {
	VertexOffset uint32
	VertexCount  uint32
	Material     uint32
	Bounds       Sphere
	LODs         []LOD // len <= MaxLOD
}

// Model is an ordered list of mesh indices.
type Model struct {
	Meshes []uint32
}

// Instance is a node in the scene graph: an optional model
// reference plus a decomposed affine transform and children.
// Children store indices into the owning Scene's Instances slice
// rather than pointers, so the tree has no back-reference to guard
// against; it is built once at import and is immutable thereafter.
type Instance struct {
	Model       int32 // -1 if this node has no model
	Scale       linear.V3
	Rotation    linear.Q
	Translation linear.V3
	Children    []int32
}

// Local returns the instance's local affine transform, composed
// from its decomposed TRS fields.
func (i *Instance) Local() linear.M4 {
	var m linear.M4
	linear.TRS(&i.Scale, &i.Translation, &i.Rotation, &m)
	return m
}

// Flat is one entry of a flattened instance tree: a world
// transform paired with the model it draws.
type Flat struct {
	World linear.M4
	Model int32
}

// Scene is the root of the device-independent scene representation.
type Scene struct {
	Vertices    []Vertex
	Indices     []uint32
	Meshlets    []Meshlet
	MeshletData []uint32
	Textures    []Texture
	Materials   []Material
	Meshes      []Mesh
	Models      []Model
	Instances   []Instance
	Roots       []int32
}

// Flatten performs a single pre-order traversal of the instance
// tree, composing each node's local transform with its parent's
// world transform.
func (s *Scene) Flatten() []Flat {
	var out []Flat
	var world linear.M4
	world.I()
	var walk func(idx int32, parent linear.M4)
	walk = func(idx int32, parent linear.M4) {
		inst := &s.Instances[idx]
		local := inst.Local()
		var w linear.M4
		w.Mul(&parent, &local)
		if inst.Model >= 0 {
			out = append(out, Flat{World: w, Model: inst.Model})
		}
		for _, c := range inst.Children {
			walk(c, w)
		}
	}
	for _, r := range s.Roots {
		walk(r, world)
	}
	return out
}

// Validate checks the universal invariants every importer must
// uphold before a Scene is handed to upload.
func (s *Scene) Validate() error {
	nv := uint32(len(s.Vertices))
	for i, idx := range s.Indices {
		if idx >= nv {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("index %d at position %d is >= vertex count %d", idx, i, nv))
		}
	}
	nmd := uint32(len(s.MeshletData))
	for i, m := range s.Meshlets {
		need := uint32(m.VertexCount) + uint32(m.TriangleCount)
		if m.DataOffset+need > nmd {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("meshlet %d data range [%d,%d) exceeds meshlet_data len %d",
					i, m.DataOffset, m.DataOffset+need, nmd))
		}
		if m.VertexCount > MeshletVertexCap || m.TriangleCount > MeshletTriangleCap {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("meshlet %d exceeds %d/%d vertex/triangle cap", i, MeshletVertexCap, MeshletTriangleCap))
		}
	}
	if len(s.Meshlets)%MeshletAlign != 0 {
		return errs.New(errs.KindValidation, "scene.Validate",
			fmt.Errorf("meshlet count %d is not a multiple of %d", len(s.Meshlets), MeshletAlign))
	}
	nmat := uint32(len(s.Materials))
	for i, v := range s.Vertices {
		if uint32(v.Material) >= nmat {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("vertex %d references material %d >= %d", i, v.Material, nmat))
		}
	}
	for i, m := range s.Meshes {
		if m.Material >= nmat {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("mesh %d references material %d >= %d", i, m.Material, nmat))
		}
		if len(m.LODs) > MaxLOD {
			return errs.New(errs.KindValidation, "scene.Validate",
				fmt.Errorf("mesh %d has %d LODs, exceeds cap %d", i, len(m.LODs), MaxLOD))
		}
		for l := 1; l < len(m.LODs); l++ {
			if m.LODs[l].IndexCount > m.LODs[l-1].IndexCount {
				return errs.New(errs.KindValidation, "scene.Validate",
					fmt.Errorf("mesh %d LOD %d index count %d exceeds LOD %d count %d",
						i, l, m.LODs[l].IndexCount, l-1, m.LODs[l-1].IndexCount))
			}
		}
	}
	ntex := uint32(len(s.Textures))
	for i, mat := range s.Materials {
		for _, t := range []int32{mat.Albedo, mat.Normal, mat.Specular, mat.Emissive} {
			if t >= 0 && uint32(t) >= ntex {
				return errs.New(errs.KindValidation, "scene.Validate",
					fmt.Errorf("material %d references texture %d >= %d", i, t, ntex))
			}
		}
	}
	return nil
}
