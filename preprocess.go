package scene

import (
	"fmt"

	"github.com/SebastianRueClausen/rendinator-sub000/errs"
	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// PrimitiveInput is one glTF-style primitive's decoded attributes,
// prior to quantization and meshlet partitioning.
type PrimitiveInput struct {
	Positions []linear.V3
	Normals   []linear.V3 // nil if absent; synthesized by Process
	Texcoords [][2]float32
	Tangents  []linear.V4 // nil if absent; w carries handedness
	Indices   []uint32
	Material  uint32
}

// SynthesizeNormals computes per-vertex normals by summing the
// cross product of each triangle into each of its three vertices,
// then normalizing.
func SynthesizeNormals(positions []linear.V3, indices []uint32) []linear.V3 {
	normals := make([]linear.V3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		ia, ib, ic := indices[i], indices[i+1], indices[i+2]
		a, b, c := positions[ia], positions[ib], positions[ic]
		var ab, ac, n linear.V3
		ab.Sub(&b, &a)
		ac.Sub(&c, &a)
		n.Cross(&ab, &ac)
		normals[ia].Add(&normals[ia], &n)
		normals[ib].Add(&normals[ib], &n)
		normals[ic].Add(&normals[ic], &n)
	}
	for i := range normals {
		if l := normals[i].Len(); l > 0 {
			normals[i].Norm(&normals[i])
		} else {
			normals[i] = linear.V3{0, 0, 1}
		}
	}
	return normals
}

// SynthesizeTangents derives a per-vertex tangent frame from
// positions, normals, texcoords and indices, accumulating each
// triangle's tangent/bitangent basis per vertex and orthogonalizing
// against the vertex normal (the same per-triangle-accumulation
// shape as the reference Mikkelsen algorithm, without its
// quality-driven vertex-splitting pass). It surfaces an error when
// every triangle is UV-degenerate, since no tangent can be derived.
func SynthesizeTangents(prim *PrimitiveInput) ([]linear.V4, error) {
	n := len(prim.Positions)
	tan := make([]linear.V3, n)
	bitan := make([]linear.V3, n)
	any := false
	for i := 0; i+2 < len(prim.Indices); i += 3 {
		ia, ib, ic := prim.Indices[i], prim.Indices[i+1], prim.Indices[i+2]
		p0, p1, p2 := prim.Positions[ia], prim.Positions[ib], prim.Positions[ic]
		uv0, uv1, uv2 := prim.Texcoords[ia], prim.Texcoords[ib], prim.Texcoords[ic]

		var e1, e2 linear.V3
		e1.Sub(&p1, &p0)
		e2.Sub(&p2, &p0)
		du1, dv1 := uv1[0]-uv0[0], uv1[1]-uv0[1]
		du2, dv2 := uv2[0]-uv0[0], uv2[1]-uv0[1]
		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		any = true
		r := 1 / det
		var t, b linear.V3
		for k := 0; k < 3; k++ {
			t[k] = (e1[k]*dv2 - e2[k]*dv1) * r
			b[k] = (e2[k]*du1 - e1[k]*du2) * r
		}
		for _, idx := range [3]uint32{ia, ib, ic} {
			tan[idx].Add(&tan[idx], &t)
			bitan[idx].Add(&bitan[idx], &b)
		}
	}
	if !any {
		return nil, errs.New(errs.KindValidation, "SynthesizeTangents",
			fmt.Errorf("primitive has no non-degenerate UV triangles"))
	}
	out := make([]linear.V4, n)
	for i := 0; i < n; i++ {
		nrm := prim.Normals[i]
		t := tan[i]
		// Gram-Schmidt orthogonalize against the normal.
		d := nrm.Dot(&t)
		var proj, ortho linear.V3
		proj.Scale(d, &nrm)
		ortho.Sub(&t, &proj)
		if ortho.Len() == 0 {
			ortho = linear.V3{1, 0, 0}
		} else {
			ortho.Norm(&ortho)
		}
		var cross linear.V3
		cross.Cross(&nrm, &ortho)
		w := float32(1)
		if cross.Dot(&bitan[i]) < 0 {
			w = -1
		}
		out[i] = linear.V4{ortho[0], ortho[1], ortho[2], w}
	}
	return out, nil
}

// OptimizeForLocality reorders a triangle list for better GPU
// vertex-cache hit rate: a greedy pass that keeps a small
// fetch-order window and prefers triangles sharing a vertex with
// the most recently emitted one, approximating the effect of a
// dedicated optimizer without its full cache simulation.
func OptimizeForLocality(indices []uint32, vertexCount int) []uint32 {
	tris := len(indices) / 3
	used := make([]bool, tris)
	degree := make(map[uint32]int, vertexCount)
	for _, idx := range indices {
		degree[idx]++
	}
	vertexTris := make(map[uint32][]int, vertexCount)
	for t := 0; t < tris; t++ {
		for _, idx := range indices[t*3: t*3+3] {
			vertexTris[idx] = append(vertexTris[idx], t)
		}
	}
	out := make([]uint32, 0, len(indices))
	var frontier []uint32
	emit := func(t int) {
		used[t] = true
		out = append(out, indices[t*3], indices[t*3+1], indices[t*3+2])
		frontier = append(frontier, indices[t*3], indices[t*3+1], indices[t*3+2])
	}
	next := 0
	for len(out) < len(indices) {
		picked := -1
		for len(frontier) > 0 {
			v := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			for _, t := range vertexTris[v] {
				if !used[t] {
					picked = t
					break
				}
			}
			if picked >= 0 {
				break
			}
		}
		if picked < 0 {
			for next < tris && used[next] {
				next++
			}
			if next >= tris {
				break
			}
			picked = next
		}
		emit(picked)
	}
	return out
}
