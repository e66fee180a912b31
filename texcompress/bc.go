package texcompress

import (
	"encoding/binary"
	"math"
)

// encodeBC1Block compresses one 4x4 RGBA block to 8 bytes of BC1
// (DXT1): two RGB565 endpoints plus 16 2-bit indices. Endpoints are
// chosen along the block's principal axis (the "cluster fit" mode
// of a production encoder, approximated here by projecting the
// pixels onto the covariance's dominant eigenvector and taking the
// extremes, rather than a full least-squares cluster search).
func encodeBC1Block(block [16]rgbaColor) []byte {
	c0, c1 := principalAxisEndpoints(block)
	e0 := packRGB565(c0)
	e1 := packRGB565(c1)
	// BC1 always decodes a 4-color (non-alpha) palette when
	// e0 > e1, which this encoder guarantees by swapping if needed.
	if e0 < e1 {
		e0, e1 = e1, e0
		c0, c1 = c1, c0
	}
	palette := bc1Palette(c0, c1)
	out := make([]byte, 8)
	binary.LittleEndian.PutUint16(out[0:2], e0)
	binary.LittleEndian.PutUint16(out[2:4], e1)
	var idx uint32
	for i, px := range block {
		best, bestDist := 0, int(^uint(0)>>1)
		for p, cand := range palette {
			d := colorDistSq(px, cand)
			if d < bestDist {
				bestDist, best = d, p
			}
		}
		idx |= uint32(best) << uint(i*2)
	}
	binary.LittleEndian.PutUint32(out[4:8], idx)
	return out
}

// encodeBC5Block compresses the R and G channels of a 4x4 block
// independently using the BC4 8-value interpolation scheme, as BC5
// is two BC4 blocks back to back (16 bytes total).
func encodeBC5Block(block [16]rgbaColor) []byte {
	out := make([]byte, 16)
	copy(out[0:8], encodeBC4Channel(block, func(c rgbaColor) uint8 { return c.r }))
	copy(out[8:16], encodeBC4Channel(block, func(c rgbaColor) uint8 { return c.g }))
	return out
}

func encodeBC4Channel(block [16]rgbaColor, ch func(rgbaColor) uint8) []byte {
	min, max := uint8(255), uint8(0)
	for _, px := range block {
		v := ch(px)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]byte, 8)
	out[0] = max
	out[1] = min
	if max == min {
		// Degenerate block: every index maps to max via the
		// 8-value table's first entry.
		return out
	}
	palette := bc4Palette(max, min)
	var bits uint64
	for i, px := range block {
		v := ch(px)
		best, bestDist := 0, 256
		for p, cand := range palette {
			d := int(v) - int(cand)
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				bestDist, best = d, p
			}
		}
		bits |= uint64(best) << uint(i*3)
	}
	out[2] = byte(bits)
	out[3] = byte(bits >> 8)
	out[4] = byte(bits >> 16)
	out[5] = byte(bits >> 24)
	out[6] = byte(bits >> 32)
	out[7] = byte(bits >> 40)
	return out
}

// bc4Palette builds the 8-value interpolation table used when
// max > min (the common, non-degenerate case).
func bc4Palette(max, min uint8) [8]uint8 {
	var p [8]uint8
	p[0], p[1] = max, min
	for i := 1; i <= 6; i++ {
		p[i+1] = uint8((int(max)*(7-i) + int(min)*i) / 7)
	}
	return p
}

func principalAxisEndpoints(block [16]rgbaColor) (rgbaColor, rgbaColor) {
	var mean [3]float64
	for _, px := range block {
		mean[0] += float64(px.r)
		mean[1] += float64(px.g)
		mean[2] += float64(px.b)
	}
	for i := range mean {
		mean[i] /= 16
	}
	var cov [3][3]float64
	for _, px := range block {
		d := [3]float64{float64(px.r) - mean[0], float64(px.g) - mean[1], float64(px.b) - mean[2]}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += d[i] * d[j]
			}
		}
	}
	// Power iteration for the dominant eigenvector of cov.
	axis := [3]float64{1, 1, 1}
	for iter := 0; iter < 4; iter++ {
		var next [3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				next[i] += cov[i][j] * axis[j]
			}
		}
		norm := vecLen(next)
		if norm == 0 {
			break
		}
		for i := range next {
			next[i] /= norm
		}
		axis = next
	}
	minP, maxP := 1e30, -1e30
	for _, px := range block {
		d := [3]float64{float64(px.r) - mean[0], float64(px.g) - mean[1], float64(px.b) - mean[2]}
		proj := d[0]*axis[0] + d[1]*axis[1] + d[2]*axis[2]
		if proj < minP {
			minP = proj
		}
		if proj > maxP {
			maxP = proj
		}
	}
	c0 := clampColor(mean[0]+axis[0]*maxP, mean[1]+axis[1]*maxP, mean[2]+axis[2]*maxP)
	c1 := clampColor(mean[0]+axis[0]*minP, mean[1]+axis[1]*minP, mean[2]+axis[2]*minP)
	return c0, c1
}

func vecLen(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func clampColor(r, g, b float64) rgbaColor {
	return rgbaColor{clamp8(r), clamp8(g), clamp8(b), 255}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func packRGB565(c rgbaColor) uint16 {
	r := uint16(c.r) >> 3
	g := uint16(c.g) >> 2
	b := uint16(c.b) >> 3
	return r<<11 | g<<5 | b
}

func unpackRGB565(v uint16) rgbaColor {
	r := uint8((v >> 11) & 0x1f)
	g := uint8((v >> 5) & 0x3f)
	b := uint8(v & 0x1f)
	return rgbaColor{
		r: (r << 3) | (r >> 2),
		g: (g << 2) | (g >> 4),
		b: (b << 3) | (b >> 2),
		a: 255,
	}
}

// bc1Palette builds the 4-color table for the e0 > e1 (opaque) case.
func bc1Palette(c0, c1 rgbaColor) [4]rgbaColor {
	e0 := unpackRGB565(packRGB565(c0))
	e1 := unpackRGB565(packRGB565(c1))
	lerp := func(a, b uint8, t float64) uint8 {
		return clamp8(float64(a)*(1-t) + float64(b)*t)
	}
	return [4]rgbaColor{
		e0,
		e1,
		{lerp(e0.r, e1.r, 1.0/3), lerp(e0.g, e1.g, 1.0/3), lerp(e0.b, e1.b, 1.0/3), 255},
		{lerp(e0.r, e1.r, 2.0/3), lerp(e0.g, e1.g, 2.0/3), lerp(e0.b, e1.b, 2.0/3), 255},
	}
}

func colorDistSq(a, b rgbaColor) int {
	dr := int(a.r) - int(b.r)
	dg := int(a.g) - int(b.g)
	db := int(a.b) - int(b.b)
	return dr*dr + dg*dg + db*db
}
