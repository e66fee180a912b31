package scene

import (
	"math"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// BuildMeshlets partitions a triangle list into clusters of at
// most MeshletVertexCap vertices and MeshletTriangleCap triangles,
// computing each cluster's bounding sphere and back-face cone, and
// appends its vertex-index table and packed triangles to data
//
// Triangles are assigned to the current cluster in index order,
// which after OptimizeForLocality already groups spatially close
// triangles; a cluster flushes as soon as either cap would be
// exceeded, which is simpler than (and does not spill-minimize as
// well as) a greedy adjacency-graph partitioner, but upholds the
// same per-cluster caps.
func BuildMeshlets(positions []linear.V3, indices []uint32) ([]Meshlet, []uint32) {
	var meshlets []Meshlet
	var data []uint32

	var clusterVerts []uint32       // global indices, local order == index into this slice
	localOf := make(map[uint32]int) // global -> local
	var clusterTris [][3]uint8

	flush := func() {
		if len(clusterTris) == 0 {
			return
		}
		offset := uint32(len(data))
		for _, g := range clusterVerts {
			data = append(data, g)
		}
		for i := 0; i < len(clusterTris); i += 1 {
			tri := clusterTris[i]
			packed := uint32(tri[0]) | uint32(tri[1])<<8 | uint32(tri[2])<<16
			data = append(data, packed)
		}
		pts := make([]linear.V3, len(clusterVerts))
		for i, g := range clusterVerts {
			pts[i] = positions[g]
		}
		bounds := BoundingSphere(pts)
		axis, cutoff := coneBounds(positions, clusterVerts, clusterTris)
		meshlets = append(meshlets, Meshlet{
			Bounds:        bounds,
			ConeAxis:      axis,
			ConeCutoff:    cutoff,
			VertexCount:   uint8(len(clusterVerts)),
			TriangleCount: uint8(len(clusterTris)),
			DataOffset:    offset,
		})
		clusterVerts = nil
		localOf = make(map[uint32]int)
		clusterTris = nil
	}

	for i := 0; i+2 < len(indices); i += 3 {
		tri := [3]uint32{indices[i], indices[i+1], indices[i+2]}
		newVerts := 0
		for _, g := range tri {
			if _, ok := localOf[g]; !ok {
				newVerts++
			}
		}
		if len(clusterVerts)+newVerts > MeshletVertexCap || len(clusterTris)+1 > MeshletTriangleCap {
			flush()
		}
		var local [3]uint8
		for k, g := range tri {
			l, ok := localOf[g]
			if !ok {
				l = len(clusterVerts)
				localOf[g] = l
				clusterVerts = append(clusterVerts, g)
			}
			local[k] = uint8(l)
		}
		clusterTris = append(clusterTris, local)
	}
	flush()
	return meshlets, data
}

// PadMeshlets appends degenerate (zero-triangle) meshlets until
// the array length is a multiple of MeshletAlign.
func PadMeshlets(meshlets []Meshlet) []Meshlet {
	pad := (MeshletAlign - len(meshlets)%MeshletAlign) % MeshletAlign
	for i := 0; i < pad; i++ {
		meshlets = append(meshlets, Meshlet{})
	}
	return meshlets
}

// coneBounds computes a back-face cluster cone: axis is the mean
// triangle normal, cutoff is the cosine of the half-angle spanning
// every triangle normal in the cluster, each quantized to 8 bits
// signed-normalized.
func coneBounds(positions []linear.V3, verts []uint32, tris [][3]uint8) ([3]int8, int8) {
	var mean linear.V3
	normals := make([]linear.V3, len(tris))
	for i, t := range tris {
		a, b, c := positions[verts[t[0]]], positions[verts[t[1]]], positions[verts[t[2]]]
		var ab, ac, n linear.V3
		ab.Sub(&b, &a)
		ac.Sub(&c, &a)
		n.Cross(&ab, &ac)
		if l := n.Len(); l > 0 {
			n.Norm(&n)
		}
		normals[i] = n
		mean.Add(&mean, &n)
	}
	if l := mean.Len(); l > 0 {
		mean.Norm(&mean)
	} else {
		mean = linear.V3{0, 0, 1}
	}
	minDot := float32(1)
	for _, n := range normals {
		d := mean.Dot(&n)
		if d < minDot {
			minDot = d
		}
	}
	enc := [3]int8{
		int8(math.Round(float64(mean[0]) * 127)),
		int8(math.Round(float64(mean[1]) * 127)),
		int8(math.Round(float64(mean[2]) * 127)),
	}
	return enc, int8(math.Round(float64(minDot) * 127))
}
