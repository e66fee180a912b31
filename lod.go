package scene

import (
	"math"
	"sort"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// simplifyErrorBound caps how much geometric error a collapse may
// introduce, relative to the mesh's bounding radius.
const simplifyErrorBound = 1e-2

// Simplify reduces a triangle list toward targetIndexCount by
// greedily collapsing the shortest edges first (a proxy for the
// quadric-error metric a production simplifier like meshoptimizer
// uses; no Go binding for one is available, so the reduction is
// implemented directly).
// It returns the simplified index list and reports whether it made
// any progress; no progress means the LOD chain should terminate.
func Simplify(positions []linear.V3, indices []uint32, targetIndexCount int) ([]uint32, bool) {
	if targetIndexCount >= len(indices) {
		return indices, false
	}
	remap := make([]uint32, len(positions))
	for i := range remap {
		remap[i] = uint32(i)
	}
	find := func(v uint32) uint32 {
		for remap[v] != v {
			v = remap[v]
		}
		return v
	}

	type edge struct {
		a, b uint32
		len  float32
	}
	edgeSet := make(map[[2]uint32]struct{})
	var edges []edge
	addEdge := func(a, b uint32) {
		if a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		key := [2]uint32{a, b}
		if _, ok := edgeSet[key]; ok {
			return
		}
		edgeSet[key] = struct{}{}
		var d linear.V3
		d.Sub(&positions[a], &positions[b])
		edges = append(edges, edge{a, b, d.Len()})
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		addEdge(a, b)
		addEdge(b, c)
		addEdge(c, a)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].len < edges[j].len })

	triCount := func() int {
		seen := make(map[[3]uint32]struct{}, len(indices)/3)
		n := 0
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := find(indices[i]), find(indices[i+1]), find(indices[i+2])
			if a == b || b == c || a == c {
				continue
			}
			key := sortedTri(a, b, c)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			n++
		}
		return n
	}

	targetTris := targetIndexCount / 3
	collapsed := false
	for _, e := range edges {
		if triCount() <= targetTris {
			break
		}
		ra, rb := find(e.a), find(e.b)
		if ra == rb {
			continue
		}
		// Collapse b into a; error proxy is the edge length itself,
		// checked against the bound scaled by the mesh's rough
		// extent so short edges in small meshes still collapse.
		if e.len > simplifyErrorBound*boundsRadius(positions) {
			continue
		}
		remap[rb] = ra
		collapsed = true
	}
	if !collapsed {
		return indices, false
	}

	out := make([]uint32, 0, len(indices))
	seen := make(map[[3]uint32]struct{}, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := find(indices[i]), find(indices[i+1]), find(indices[i+2])
		if a == b || b == c || a == c {
			continue
		}
		key := sortedTri(a, b, c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a, b, c)
	}
	if len(out) >= len(indices) {
		return indices, false
	}
	return out, true
}

func sortedTri(a, b, c uint32) [3]uint32 {
	t := [3]uint32{a, b, c}
	sort.Slice(t[:], func(i, j int) bool { return t[i] < t[j] })
	return t
}

func boundsRadius(positions []linear.V3) float32 {
	s := BoundingSphere(positions)
	if s.Radius == 0 {
		return 1
	}
	return s.Radius
}

// BuildLODChain generates up to MaxLOD levels of detail for a
// primitive. LOD 0 is the source mesh; each subsequent level
// targets ceil(previous_count * 0.75) and stops when simplification
// makes no progress.
func BuildLODChain(positions []linear.V3, indices []uint32) [][]uint32 {
	chain := [][]uint32{indices}
	cur := indices
	for len(chain) < MaxLOD {
		target := int(math.Ceil(float64(len(cur)) * 0.75))
		target -= target % 3
		if target < 3 {
			break
		}
		next, progressed := Simplify(positions, cur, target)
		if !progressed {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}
