package scene

import (
	"math"

	"github.com/SebastianRueClausen/rendinator-sub000/linear"
)

// Sphere is a bounding sphere used both for per-primitive vertex
// quantization and for meshlet/cull rejection.
type Sphere struct {
	Center linear.V3
	Radius float32
}

// BoundingSphere computes a primitive's bounding sphere as the
// midpoint of its axis-aligned bounding box and the distance from
// that center to the box's max corner.
func BoundingSphere(positions []linear.V3) Sphere {
	if len(positions) == 0 {
		return Sphere{}
	}
	min, max := positions[0], positions[0]
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	var center linear.V3
	for i := 0; i < 3; i++ {
		center[i] = (min[i] + max[i]) / 2
	}
	var d linear.V3
	d.Sub(&max, &center)
	return Sphere{Center: center, Radius: d.Len()}
}

const snorm16Max = 32767

// encodeSnorm16 maps x in [-1, 1] to a 16-bit signed-normalized
// integer, clamping out-of-range input.
func encodeSnorm16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(math.Round(float64(x) * snorm16Max))
}

// decodeSnorm16 is the inverse of encodeSnorm16.
func decodeSnorm16(x int16) float32 { return float32(x) / snorm16Max }

// EncodePosition quantizes pos relative to sphere into three
// 16-bit signed-normalized values.
func EncodePosition(pos linear.V3, sphere Sphere) [3]int16 {
	var rel linear.V3
	rel.Sub(&pos, &sphere.Center)
	r := sphere.Radius
	if r == 0 {
		r = 1
	}
	return [3]int16{
		encodeSnorm16(rel[0] / r),
		encodeSnorm16(rel[1] / r),
		encodeSnorm16(rel[2] / r),
	}
}

// DecodePosition reverses EncodePosition:
// pos_world = bounding_center + bounding_radius * dequantize_snorm16(encoded_xyz).
func DecodePosition(enc [3]int16, sphere Sphere) linear.V3 {
	return linear.V3{
		sphere.Center[0] + sphere.Radius*decodeSnorm16(enc[0]),
		sphere.Center[1] + sphere.Radius*decodeSnorm16(enc[1]),
		sphere.Center[2] + sphere.Radius*decodeSnorm16(enc[2]),
	}
}

// half converts a float32 to an IEEE 754 binary16 bit pattern.
// No half-float type ships in the standard library, so texcoords
// are packed by hand here. The mantissa is truncated (rounded toward
// zero), values below the smallest normal half flush to signed zero,
// and values past the half range (and NaN) become infinity.
func half(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff
	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp)<<10 | uint16(mant>>13)
	}
}

func unhalf(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}

// EncodeTexcoord packs a texcoord as two half-float lanes.
func EncodeTexcoord(uv [2]float32) [2]uint16 { return [2]uint16{half(uv[0]), half(uv[1])} }

// DecodeTexcoord reverses EncodeTexcoord.
func DecodeTexcoord(enc [2]uint16) [2]float32 { return [2]float32{unhalf(enc[0]), unhalf(enc[1])} }

// EncodeOctahedron maps a unit vector to octahedron UV in [-1, 1],
// then quantizes each axis to 8 bits signed-normalized.
func EncodeOctahedron(n linear.V3) [2]int8 {
	l1 := math.Abs(float64(n[0])) + math.Abs(float64(n[1])) + math.Abs(float64(n[2]))
	if l1 == 0 {
		l1 = 1
	}
	x, y := float32(float64(n[0])/l1), float32(float64(n[1])/l1)
	if n[2] < 0 {
		x, y = octWrap(x, y)
	}
	return [2]int8{int8(math.Round(float64(x) * 127)), int8(math.Round(float64(y) * 127))}
}

func octWrap(x, y float32) (float32, float32) {
	ox := (1 - abs32(y)) * sign32(x)
	oy := (1 - abs32(x)) * sign32(y)
	return ox, oy
}

// DecodeOctahedron reverses EncodeOctahedron, renormalizing the
// result to a unit vector.
func DecodeOctahedron(enc [2]int8) linear.V3 {
	x := float32(enc[0]) / 127
	y := float32(enc[1]) / 127
	z := 1 - abs32(x) - abs32(y)
	if z < 0 {
		x, y = octWrap(x, y)
	}
	v := linear.V3{x, y, z}
	var n linear.V3
	n.Norm(&v)
	return n
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func sign32(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}
