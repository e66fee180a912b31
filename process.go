package scene

import (
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// AddPrimitive runs the full mesh pre-processing pipeline on prim
// and appends the resulting vertices, indices,
// meshlets and meshlet data to s, returning the new Mesh. prim's
// own slices are left untouched.
func (s *Scene) AddPrimitive(prim PrimitiveInput) (Mesh, error) {
	positions := prim.Positions
	normals := prim.Normals
	if normals == nil {
		normals = SynthesizeNormals(positions, prim.Indices)
	}
	texcoords := prim.Texcoords
	if texcoords == nil {
		texcoords = make([][2]float32, len(positions))
	}
	tangents := prim.Tangents
	if tangents == nil {
		filled := prim
		filled.Normals = normals
		filled.Texcoords = texcoords
		var err error
		tangents, err = SynthesizeTangents(&filled)
		if err != nil {
			return Mesh{}, err
		}
	}

	bounds := BoundingSphere(positions)
	vertexOffset := uint32(len(s.Vertices))
	for i, p := range positions {
		var n, t linear.V3
		n = normals[i]
		t = linear.V3{tangents[i][0], tangents[i][1], tangents[i][2]}
		s.Vertices = append(s.Vertices, Vertex{
			Position: EncodePosition(p, bounds),
			Texcoord: EncodeTexcoord(texcoords[i]),
			Normal:   EncodeOctahedron(n),
			Tangent:  EncodeOctahedron(t),
			TangentW: int8sign(tangents[i][3]),
			Material: uint16(prim.Material),
		})
	}

	mesh := Mesh{
		VertexOffset: vertexOffset,
		VertexCount:  uint32(len(positions)),
		Material:     prim.Material,
		Bounds:       bounds,
	}

	optimized := OptimizeForLocality(prim.Indices, len(positions))
	chain := BuildLODChain(positions, optimized)
	for _, lodIndices := range chain {
		indexOffset := uint32(len(s.Indices))
		for _, idx := range lodIndices {
			s.Indices = append(s.Indices, vertexOffset+idx)
		}
		meshlets, data := BuildMeshlets(positions, lodIndices)
		meshlets = PadMeshlets(meshlets)
		meshletOffset := uint32(len(s.Meshlets))
		dataOffset := uint32(len(s.MeshletData))
		for i := range meshlets {
			meshlets[i].DataOffset += dataOffset
		}
		s.Meshlets = append(s.Meshlets, meshlets...)
		s.MeshletData = append(s.MeshletData, data...)

		mesh.LODs = append(mesh.LODs, LOD{
			IndexOffset:   indexOffset,
			IndexCount:    uint32(len(lodIndices)),
			MeshletOffset: meshletOffset,
			MeshletCount:  uint32(len(meshlets)),
		})
	}
	return mesh, nil
}

func int8sign(w float32) int8 {
	if w < 0 {
		return -1
	}
	return 1
}
